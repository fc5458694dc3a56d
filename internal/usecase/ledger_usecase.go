package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iho/cashbook/internal/domain"
)

const entryCacheTTL = 5 * time.Minute

// LedgerUseCase is the ledger write path: it recomputes every derived field
// from the submitted formulas, resolves the opening balance, and upserts the
// entry on its natural key. There is no row lock; upsert-by-natural-key is
// what makes concurrent and replayed writes safe to retry.
type LedgerUseCase struct {
	ledgerRepo LedgerRepository
	balance    *BalanceUseCase
	cashFlow   CashFlowReader
	settings   SettingsReader
	cache      Cache // optional
}

// NewLedgerUseCase creates a new LedgerUseCase. cache may be nil.
func NewLedgerUseCase(
	ledgerRepo LedgerRepository,
	balance *BalanceUseCase,
	cashFlow CashFlowReader,
	settings SettingsReader,
	cache Cache,
) *LedgerUseCase {
	return &LedgerUseCase{
		ledgerRepo: ledgerRepo,
		balance:    balance,
		cashFlow:   cashFlow,
		settings:   settings,
		cache:      cache,
	}
}

// SaveEntryInput represents input for saving a ledger entry.
type SaveEntryInput struct {
	CompanyID string
	EntityID  string
	Date      time.Time
	Formulas  map[domain.ServiceKind]string
	Actor     domain.Actor
}

// SaveEntry validates, upserts, and audits the ledger entry for
// (companyId, entityId, date).
//
// A write with zero total paid and no prior entry is a legitimate "touch"
// that establishes the row. A write on or before the company lock date is
// rejected with a LockedError before anything is computed.
func (uc *LedgerUseCase) SaveEntry(ctx context.Context, input SaveEntryInput) (*domain.LedgerEntry, error) {
	date := domain.Day(input.Date)
	key := domain.NewEntryKey(input.CompanyID, input.EntityID, date)

	lockDate, err := uc.settings.LockDate(ctx, input.CompanyID)
	if err != nil {
		return nil, domain.Retryable(err)
	}

	if !lockDate.IsZero() && !date.After(domain.Day(lockDate)) {
		return nil, &domain.LockedError{Date: date, LockDate: domain.Day(lockDate)}
	}

	payments, totalPaid := domain.EvaluatePayments(input.Formulas)

	openingBalance, err := uc.balance.ResolveOpeningBalance(ctx, input.EntityID, date)
	if err != nil {
		return nil, err
	}

	cashReceived, err := uc.cashFlow.CashReceived(ctx, key)
	if err != nil {
		return nil, domain.Retryable(err)
	}

	totalCash := openingBalance.Add(cashReceived)

	entry := &domain.LedgerEntry{
		CompanyID:         input.CompanyID,
		EntityID:          input.EntityID,
		Date:              date,
		OpeningBalance:    openingBalance,
		CashReceived:      cashReceived,
		TotalCash:         totalCash,
		CashPaidByService: payments,
		TotalCashPaid:     totalPaid,
		ClosingBalance:    totalCash.Sub(totalPaid),
	}

	now := time.Now().UTC()

	existing, err := uc.ledgerRepo.GetEntry(ctx, key)
	switch {
	case err == nil:
		entry.EditHistory = existing.EditHistory
		entry.CreatedAt = existing.CreatedAt
		entry.CreatedByUserID = existing.CreatedByUserID
		entry.CreatedByName = existing.CreatedByName
		entry.PrependEditLog(domain.EditLog{
			Timestamp:     now,
			UserID:        input.Actor.UserID,
			UserName:      input.Actor.UserName,
			PreviousState: existing.Snapshot(),
			NewState:      entry.Snapshot(),
		})
	case errors.Is(err, domain.ErrEntryNotFound):
		entry.CreatedAt = now
		entry.CreatedByUserID = input.Actor.UserID
		entry.CreatedByName = input.Actor.UserName
	default:
		return nil, domain.Retryable(err)
	}

	if err := uc.ledgerRepo.UpsertEntry(ctx, entry); err != nil {
		return nil, domain.Retryable(err)
	}

	uc.balance.Prime(entry)
	uc.cacheSet(ctx, entry)

	return entry, nil
}

// GetEntry returns the entry for a key, consulting the read cache first.
func (uc *LedgerUseCase) GetEntry(ctx context.Context, key domain.EntryKey) (*domain.LedgerEntry, error) {
	if uc.cache != nil {
		if raw, err := uc.cache.Get(ctx, cacheKey(key)); err == nil {
			var entry domain.LedgerEntry
			if err := json.Unmarshal([]byte(raw), &entry); err == nil {
				return &entry, nil
			}
			// Stale or unreadable cache payload: fall through to the repository.
			_ = uc.cache.Delete(ctx, cacheKey(key))
		}
	}

	entry, err := uc.ledgerRepo.GetEntry(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrEntryNotFound) {
			return nil, err
		}
		return nil, domain.Retryable(err)
	}

	uc.cacheSet(ctx, entry)

	return entry, nil
}

// ListEntries returns an entity's entries for a date range, oldest first.
func (uc *LedgerUseCase) ListEntries(ctx context.Context, entityID string, from, to time.Time) ([]*domain.LedgerEntry, error) {
	entries, err := uc.ledgerRepo.ListByEntity(ctx, entityID, domain.Day(from), domain.Day(to))
	if err != nil {
		return nil, domain.Retryable(err)
	}

	return entries, nil
}

func (uc *LedgerUseCase) cacheSet(ctx context.Context, entry *domain.LedgerEntry) {
	if uc.cache == nil {
		return
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}

	_ = uc.cache.Set(ctx, cacheKey(entry.Key()), string(raw), entryCacheTTL)
}

func cacheKey(key domain.EntryKey) string {
	return fmt.Sprintf("entry:%s:%s:%s", key.CompanyID, key.EntityID, key.Date.Format("2006-01-02"))
}
