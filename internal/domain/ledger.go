package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ServiceKind identifies a cash-out service offered at an entity.
type ServiceKind string

const (
	ServiceRia      ServiceKind = "ria"
	ServiceWave     ServiceKind = "wave"
	ServiceOKDollar ServiceKind = "ok_dollar"
	ServiceOther    ServiceKind = "other"
)

// EntryKey is the natural key of a ledger entry.
type EntryKey struct {
	CompanyID string
	EntityID  string
	Date      time.Time
}

// NewEntryKey builds a key with the date normalized to a UTC civil date.
func NewEntryKey(companyID, entityID string, date time.Time) EntryKey {
	return EntryKey{
		CompanyID: companyID,
		EntityID:  entityID,
		Date:      Day(date),
	}
}

// Day truncates a timestamp to its UTC civil date.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ServicePayment is one service's cash-out for a date: the raw formula the
// user typed and its evaluated total. Total is always Evaluate(Formula),
// never edited independently.
type ServicePayment struct {
	Formula string          `json:"formula"`
	Total   decimal.Decimal `json:"total"`
}

// LedgerEntry is one entity's recorded cash activity for one date.
// Uniquely keyed by (companyId, entityId, date); writes are upserts on that
// key so a replayed mutation converges instead of duplicating rows.
type LedgerEntry struct {
	CompanyID         string                         `json:"companyId"`
	EntityID          string                         `json:"entityId"`
	Date              time.Time                      `json:"date"`
	OpeningBalance    decimal.Decimal                `json:"openingBalance"`
	CashReceived      decimal.Decimal                `json:"cashReceived"`
	TotalCash         decimal.Decimal                `json:"totalCash"`
	CashPaidByService map[ServiceKind]ServicePayment `json:"cashPaidByService"`
	TotalCashPaid     decimal.Decimal                `json:"totalCashPaid"`
	ClosingBalance    decimal.Decimal                `json:"closingBalance"`
	EditHistory       []EditLog                      `json:"editHistory"`
	CreatedAt         time.Time                      `json:"createdAt"`
	CreatedByUserID   string                         `json:"createdByUserId"`
	CreatedByName     string                         `json:"createdByName"`
}

// Key returns the entry's natural key.
func (e *LedgerEntry) Key() EntryKey {
	return NewEntryKey(e.CompanyID, e.EntityID, e.Date)
}

// Consistent reports whether the balance equation holds:
// closingBalance == openingBalance + cashReceived - totalCashPaid, with
// totalCashPaid exactly the sum of the per-service totals.
func (e *LedgerEntry) Consistent() bool {
	paid := decimal.Zero
	for _, p := range e.CashPaidByService {
		paid = paid.Add(p.Total)
	}

	if !paid.Equal(e.TotalCashPaid) {
		return false
	}

	if !e.TotalCash.Equal(e.OpeningBalance.Add(e.CashReceived)) {
		return false
	}

	return e.ClosingBalance.Equal(e.TotalCash.Sub(e.TotalCashPaid))
}

// MaxEditHistory caps the per-entry edit history.
const MaxEditHistory = 10

// EntrySnapshot captures the mutable fields of an entry for the edit history.
type EntrySnapshot struct {
	CashPaidByService map[ServiceKind]ServicePayment `json:"cashPaidByService"`
	TotalCashPaid     decimal.Decimal                `json:"totalCashPaid"`
	ClosingBalance    decimal.Decimal                `json:"closingBalance"`
}

// Snapshot returns the entry's mutable fields. The payment map is copied so
// later edits cannot reach back into history.
func (e *LedgerEntry) Snapshot() EntrySnapshot {
	payments := make(map[ServiceKind]ServicePayment, len(e.CashPaidByService))
	for k, v := range e.CashPaidByService {
		payments[k] = v
	}

	return EntrySnapshot{
		CashPaidByService: payments,
		TotalCashPaid:     e.TotalCashPaid,
		ClosingBalance:    e.ClosingBalance,
	}
}

// EditLog records one edit of a ledger entry, most-recent-first.
type EditLog struct {
	Timestamp     time.Time     `json:"timestamp"`
	UserID        string        `json:"userId"`
	UserName      string        `json:"userName"`
	PreviousState EntrySnapshot `json:"previousState"`
	NewState      EntrySnapshot `json:"newState"`
}

// PrependEditLog pushes a log to the front of the history and truncates to
// MaxEditHistory.
func (e *LedgerEntry) PrependEditLog(log EditLog) {
	history := make([]EditLog, 0, len(e.EditHistory)+1)
	history = append(history, log)
	history = append(history, e.EditHistory...)

	if len(history) > MaxEditHistory {
		history = history[:MaxEditHistory]
	}

	e.EditHistory = history
}

// Actor identifies the user performing a write.
type Actor struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}
