package domain

import (
	"encoding/json"
	"time"
)

// ActionType names the write operation an offline action replays against.
type ActionType string

const (
	ActionSaveLedgerEntry ActionType = "saveTransaction"
	ActionSaveCashFlow    ActionType = "saveCashFlow"
	ActionSaveIncome      ActionType = "saveIncome"
	ActionSaveExpense     ActionType = "saveExpense"
)

// MaxReplayRetries caps failed replays before an action is dead-lettered.
const MaxReplayRetries = 5

// OfflineAction is a durably queued mutation awaiting replay. Actions replay
// in enqueue order; each dispatch is an upsert on a natural key, so replaying
// the same action twice converges to the same state.
type OfflineAction struct {
	ID         string          `json:"id"`
	Type       ActionType      `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`
	RetryCount int             `json:"retryCount"`
}

// SaveEntryPayload is the payload of an ActionSaveLedgerEntry.
type SaveEntryPayload struct {
	CompanyID string                 `json:"companyId"`
	EntityID  string                 `json:"entityId"`
	Date      time.Time              `json:"date"`
	Formulas  map[ServiceKind]string `json:"formulas"`
	Actor     Actor                  `json:"actor"`
}

// DeadLetter is an action that permanently failed replay. It is kept for
// operator attention rather than silently discarded.
type DeadLetter struct {
	Action    OfflineAction `json:"action"`
	LastError string        `json:"lastError"`
	FailedAt  time.Time     `json:"failedAt"`
}
