package usecase_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/iho/cashbook/internal/domain"
	"github.com/iho/cashbook/internal/usecase"
	"github.com/iho/cashbook/internal/usecase/mocks"
)

func TestReconciliationUseCase_Reconcile(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ledgerRepo := mocks.NewMockLedgerRepository(ctrl)
	ledgerRepo.EXPECT().ListByEntity(gomock.Any(), "ent-1", day(2024, 1, 1), day(2024, 1, 31)).Return([]*domain.LedgerEntry{
		{
			Date: day(2024, 1, 15),
			CashPaidByService: map[domain.ServiceKind]domain.ServicePayment{
				domain.ServiceRia:  {Formula: "500+1200", Total: decimal.NewFromInt(1700)},
				domain.ServiceWave: {Formula: "9999", Total: decimal.NewFromInt(9999)},
			},
		},
		{
			Date: day(2024, 1, 16),
			CashPaidByService: map[domain.ServiceKind]domain.ServicePayment{
				domain.ServiceRia: {Formula: "1200", Total: decimal.NewFromInt(1200)},
			},
		},
	}, nil)

	uc := usecase.NewReconciliationUseCase(ledgerRepo)

	report, err := uc.Reconcile(context.Background(), usecase.ReconcileInput{
		EntityID: "ent-1",
		Service:  domain.ServiceRia,
		From:     day(2024, 1, 1),
		To:       day(2024, 1, 31),
		SystemAmounts: []decimal.Decimal{
			decimal.NewFromInt(500),
			decimal.NewFromInt(500),
			decimal.NewFromInt(1200),
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// App side derives only from the requested service's formulas:
	// [500, 1200, 1200]. One 500 and one 1200 pair up.
	if report.Result.TotalMatches != 2 {
		t.Errorf("TotalMatches = %d, want 2", report.Result.TotalMatches)
	}

	if report.SystemUnmatched != 1 {
		t.Errorf("SystemUnmatched = %d, want 1", report.SystemUnmatched)
	}

	if report.AppUnmatched != 1 {
		t.Errorf("AppUnmatched = %d, want 1", report.AppUnmatched)
	}

	if len(report.AppAmounts) != 3 {
		t.Errorf("AppAmounts = %v, want 3 itemized amounts", report.AppAmounts)
	}
}

func TestReconciliationUseCase_RepositoryFailureIsRetryable(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ledgerRepo := mocks.NewMockLedgerRepository(ctrl)
	ledgerRepo.EXPECT().ListByEntity(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, context.DeadlineExceeded)

	uc := usecase.NewReconciliationUseCase(ledgerRepo)

	_, err := uc.Reconcile(context.Background(), usecase.ReconcileInput{EntityID: "ent-1", Service: domain.ServiceRia})
	if !domain.IsRetryable(err) {
		t.Errorf("expected retryable error, got %v", err)
	}
}
