package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/cashbook/internal/domain"
)

// BalanceUseCase resolves opening balances by walking the balance chain:
// the nearest strictly-earlier entry's closing balance, or the entity's
// configured initial balance when no earlier entry exists.
//
// It holds an explicit, invalidatable read cache of recently loaded entries
// per entity so that resolving during active editing rarely touches the
// repository.
type BalanceUseCase struct {
	ledgerRepo LedgerRepository
	entityRepo EntityRepository

	mu     sync.RWMutex
	loaded map[string]map[int64]*domain.LedgerEntry // entityID -> date(unix) -> entry
}

// NewBalanceUseCase creates a new BalanceUseCase.
func NewBalanceUseCase(ledgerRepo LedgerRepository, entityRepo EntityRepository) *BalanceUseCase {
	return &BalanceUseCase{
		ledgerRepo: ledgerRepo,
		entityRepo: entityRepo,
		loaded:     make(map[string]map[int64]*domain.LedgerEntry),
	}
}

// Prime adds entries to the read cache, replacing any cached entry for the
// same date.
func (uc *BalanceUseCase) Prime(entries ...*domain.LedgerEntry) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	for _, entry := range entries {
		byDate, ok := uc.loaded[entry.EntityID]
		if !ok {
			byDate = make(map[int64]*domain.LedgerEntry)
			uc.loaded[entry.EntityID] = byDate
		}
		byDate[domain.Day(entry.Date).Unix()] = entry
	}
}

// Invalidate drops all cached entries for an entity.
func (uc *BalanceUseCase) Invalidate(entityID string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	delete(uc.loaded, entityID)
}

// ResolveOpeningBalance determines the opening balance for an entity on a
// date. Deterministic for a fixed ledger state; mutates nothing but the
// cache. A repository failure propagates as retryable; substituting zero
// here would corrupt the balance chain.
func (uc *BalanceUseCase) ResolveOpeningBalance(ctx context.Context, entityID string, date time.Time) (decimal.Decimal, error) {
	date = domain.Day(date)

	if entry := uc.latestCachedBefore(entityID, date); entry != nil {
		return entry.ClosingBalance, nil
	}

	// Covers entries evicted from the in-memory window.
	entry, err := uc.ledgerRepo.FindLatestBefore(ctx, entityID, date)
	switch {
	case err == nil:
		uc.Prime(entry)
		return entry.ClosingBalance, nil
	case !errors.Is(err, domain.ErrEntryNotFound):
		return decimal.Zero, domain.Retryable(err)
	}

	entity, err := uc.entityRepo.GetByID(ctx, entityID)
	switch {
	case err == nil:
		return entity.InitialBalance, nil
	case errors.Is(err, domain.ErrEntityNotFound):
		// Weak reference: a ledger key may outlive its entity.
		return decimal.Zero, nil
	default:
		return decimal.Zero, domain.Retryable(err)
	}
}

func (uc *BalanceUseCase) latestCachedBefore(entityID string, date time.Time) *domain.LedgerEntry {
	uc.mu.RLock()
	defer uc.mu.RUnlock()

	var best *domain.LedgerEntry
	for unix, entry := range uc.loaded[entityID] {
		if unix >= date.Unix() {
			continue
		}
		if best == nil || entry.Date.After(best.Date) {
			best = entry
		}
	}

	return best
}

// ChainBreak describes one broken link found by VerifyChain.
type ChainBreak struct {
	Date           time.Time       `json:"date"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	WantOpening    decimal.Decimal `json:"wantOpening"`
}

// VerifyChain walks an entity's entries in date order and reports every link
// whose opening balance does not equal the previous entry's closing balance.
// The chain is forward-only: a retroactive edit does not cascade into later
// entries, so breaks found here are surfaced for operator correction rather
// than silently recomputed.
func (uc *BalanceUseCase) VerifyChain(ctx context.Context, entityID string, from, to time.Time) ([]ChainBreak, error) {
	entries, err := uc.ledgerRepo.ListByEntity(ctx, entityID, domain.Day(from), domain.Day(to))
	if err != nil {
		return nil, domain.Retryable(err)
	}

	var breaks []ChainBreak
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		if cur.OpeningBalance.Equal(prev.ClosingBalance) {
			continue
		}
		breaks = append(breaks, ChainBreak{
			Date:           cur.Date,
			OpeningBalance: cur.OpeningBalance,
			WantOpening:    prev.ClosingBalance,
		})
	}

	return breaks, nil
}
