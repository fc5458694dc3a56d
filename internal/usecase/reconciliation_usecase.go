package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/cashbook/internal/domain"
)

// ReconciliationUseCase compares an external payment list against the
// amounts itemized in the ledger's formulas.
type ReconciliationUseCase struct {
	ledgerRepo LedgerRepository
}

// NewReconciliationUseCase creates a new ReconciliationUseCase.
func NewReconciliationUseCase(ledgerRepo LedgerRepository) *ReconciliationUseCase {
	return &ReconciliationUseCase{ledgerRepo: ledgerRepo}
}

// ReconcileInput represents input for a reconciliation pass.
type ReconcileInput struct {
	EntityID      string
	Service       domain.ServiceKind
	From, To      time.Time
	SystemAmounts []decimal.Decimal
}

// ReconcileReport is the outcome of a reconciliation pass.
type ReconcileReport struct {
	Result          domain.MatchResult `json:"result"`
	AppAmounts      []decimal.Decimal  `json:"appAmounts"`
	SystemUnmatched int                `json:"systemUnmatched"`
	AppUnmatched    int                `json:"appUnmatched"`
	CheckedAt       time.Time          `json:"checkedAt"`
}

// Reconcile derives the app-side amount list from the persisted formulas of
// one service across a date range, then runs the exact-count matcher against
// the external system list.
func (uc *ReconciliationUseCase) Reconcile(ctx context.Context, input ReconcileInput) (*ReconcileReport, error) {
	entries, err := uc.ledgerRepo.ListByEntity(ctx, input.EntityID, domain.Day(input.From), domain.Day(input.To))
	if err != nil {
		return nil, domain.Retryable(err)
	}

	var appAmounts []decimal.Decimal
	for _, entry := range entries {
		payment, ok := entry.CashPaidByService[input.Service]
		if !ok {
			continue
		}
		appAmounts = append(appAmounts, domain.FormulaAmounts(payment.Formula)...)
	}

	result := domain.Match(input.SystemAmounts, appAmounts)

	return &ReconcileReport{
		Result:          result,
		AppAmounts:      appAmounts,
		SystemUnmatched: len(input.SystemAmounts) - countMatched(result.SystemMatched),
		AppUnmatched:    len(appAmounts) - countMatched(result.AppMatched),
		CheckedAt:       time.Now().UTC(),
	}, nil
}

func countMatched(flags []bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
