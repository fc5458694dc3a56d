package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/cashbook/internal/domain"
	"github.com/iho/cashbook/internal/usecase"
)

// EntryResponse represents a ledger entry in API responses.
type EntryResponse struct {
	CompanyID         string                    `json:"companyId"`
	EntityID          string                    `json:"entityId"`
	Date              string                    `json:"date"`
	OpeningBalance    decimal.Decimal           `json:"openingBalance"`
	CashReceived      decimal.Decimal           `json:"cashReceived"`
	TotalCash         decimal.Decimal           `json:"totalCash"`
	CashPaidByService map[string]ServicePayment `json:"cashPaidByService"`
	TotalCashPaid     decimal.Decimal           `json:"totalCashPaid"`
	ClosingBalance    decimal.Decimal           `json:"closingBalance"`
	EditHistory       []domain.EditLog          `json:"editHistory,omitempty"`
	CreatedAt         time.Time                 `json:"createdAt"`
	CreatedByUserID   string                    `json:"createdByUserId"`
	CreatedByName     string                    `json:"createdByName"`
}

// ServicePayment is one service's formula and evaluated total.
type ServicePayment struct {
	Formula string          `json:"formula"`
	Total   decimal.Decimal `json:"total"`
}

// EntryFromDomain converts a domain entry to a response.
func EntryFromDomain(e *domain.LedgerEntry) *EntryResponse {
	payments := make(map[string]ServicePayment, len(e.CashPaidByService))
	for service, p := range e.CashPaidByService {
		payments[string(service)] = ServicePayment{Formula: p.Formula, Total: p.Total}
	}

	return &EntryResponse{
		CompanyID:         e.CompanyID,
		EntityID:          e.EntityID,
		Date:              e.Date.Format("2006-01-02"),
		OpeningBalance:    e.OpeningBalance,
		CashReceived:      e.CashReceived,
		TotalCash:         e.TotalCash,
		CashPaidByService: payments,
		TotalCashPaid:     e.TotalCashPaid,
		ClosingBalance:    e.ClosingBalance,
		EditHistory:       e.EditHistory,
		CreatedAt:         e.CreatedAt,
		CreatedByUserID:   e.CreatedByUserID,
		CreatedByName:     e.CreatedByName,
	}
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.LedgerEntry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}
	return result
}

// SaveEntryResponse reports the outcome of a save. Queued means the write
// could not reach storage and was parked on the offline queue instead; the
// entry is nil in that case.
type SaveEntryResponse struct {
	Entry  *EntryResponse `json:"entry,omitempty"`
	Queued bool           `json:"queued"`
}

// OpeningBalanceResponse represents a resolved opening balance.
type OpeningBalanceResponse struct {
	EntityID       string          `json:"entityId"`
	Date           string          `json:"date"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
}

// ChainBreakResponse represents one broken balance-chain link.
type ChainBreakResponse struct {
	Date           string          `json:"date"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	WantOpening    decimal.Decimal `json:"wantOpening"`
}

// ChainBreaksFromUseCase converts chain breaks to responses.
func ChainBreaksFromUseCase(breaks []usecase.ChainBreak) []ChainBreakResponse {
	result := make([]ChainBreakResponse, len(breaks))
	for i, b := range breaks {
		result[i] = ChainBreakResponse{
			Date:           b.Date.Format("2006-01-02"),
			OpeningBalance: b.OpeningBalance,
			WantOpening:    b.WantOpening,
		}
	}
	return result
}

// ActionResponse represents a queued offline action.
type ActionResponse struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
	RetryCount int       `json:"retryCount"`
}

// ActionsFromDomain converts offline actions to responses.
func ActionsFromDomain(actions []*domain.OfflineAction) []ActionResponse {
	result := make([]ActionResponse, len(actions))
	for i, a := range actions {
		result[i] = ActionResponse{
			ID:         a.ID,
			Type:       string(a.Type),
			EnqueuedAt: a.EnqueuedAt,
			RetryCount: a.RetryCount,
		}
	}
	return result
}

// QueueStatusResponse reports the pending offline queue.
type QueueStatusResponse struct {
	Pending []ActionResponse `json:"pending"`
	Count   int              `json:"count"`
}

// ReplayReportResponse reports the outcome of a replay pass.
type ReplayReportResponse struct {
	Replayed     int `json:"replayed"`
	Failed       int `json:"failed"`
	DeadLettered int `json:"deadLettered"`
}

// DeadLetterResponse represents a permanently failed action.
type DeadLetterResponse struct {
	Action    ActionResponse `json:"action"`
	LastError string         `json:"lastError"`
	FailedAt  time.Time      `json:"failedAt"`
}

// DeadLettersFromDomain converts dead letters to responses.
func DeadLettersFromDomain(letters []*domain.DeadLetter) []DeadLetterResponse {
	result := make([]DeadLetterResponse, len(letters))
	for i, l := range letters {
		result[i] = DeadLetterResponse{
			Action: ActionResponse{
				ID:         l.Action.ID,
				Type:       string(l.Action.Type),
				EnqueuedAt: l.Action.EnqueuedAt,
				RetryCount: l.Action.RetryCount,
			},
			LastError: l.LastError,
			FailedAt:  l.FailedAt,
		}
	}
	return result
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
