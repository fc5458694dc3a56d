package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/iho/cashbook/internal/domain"
	"github.com/iho/cashbook/internal/usecase"
	"github.com/iho/cashbook/internal/usecase/mocks"
)

func newLedgerFixture(ctrl *gomock.Controller) (*usecase.LedgerUseCase, *mocks.FakeLedgerRepository, *mocks.FakeCashFlowReader, *mocks.FakeSettingsReader, *mocks.MockEntityRepository) {
	ledgerRepo := mocks.NewFakeLedgerRepository()
	entityRepo := mocks.NewMockEntityRepository(ctrl)
	cashFlow := mocks.NewFakeCashFlowReader()
	settings := &mocks.FakeSettingsReader{}

	balance := usecase.NewBalanceUseCase(ledgerRepo, entityRepo)
	uc := usecase.NewLedgerUseCase(ledgerRepo, balance, cashFlow, settings, nil)

	return uc, ledgerRepo, cashFlow, settings, entityRepo
}

func TestLedgerUseCase_SaveEntry_FirstEntryFromInitialBalance(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	uc, _, cashFlow, _, entityRepo := newLedgerFixture(ctrl)

	entityRepo.EXPECT().GetByID(gomock.Any(), "ent-x").Return(
		&domain.Entity{ID: "ent-x", InitialBalance: decimal.NewFromInt(1000), IsActive: true}, nil)
	cashFlow.SetCashReceived(domain.NewEntryKey("co-1", "ent-x", day(2024, 1, 15)), decimal.NewFromInt(500))

	entry, err := uc.SaveEntry(context.Background(), usecase.SaveEntryInput{
		CompanyID: "co-1",
		EntityID:  "ent-x",
		Date:      day(2024, 1, 15),
		Formulas: map[domain.ServiceKind]string{
			domain.ServiceRia:   "100+50",
			domain.ServiceOther: "0",
		},
		Actor: domain.Actor{UserID: "u-1", UserName: "Aye"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !entry.TotalCashPaid.Equal(decimal.NewFromInt(150)) {
		t.Errorf("totalCashPaid = %s, want 150", entry.TotalCashPaid)
	}

	if !entry.TotalCash.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("totalCash = %s, want 1500", entry.TotalCash)
	}

	if !entry.ClosingBalance.Equal(decimal.NewFromInt(1350)) {
		t.Errorf("closingBalance = %s, want 1350", entry.ClosingBalance)
	}

	if !entry.Consistent() {
		t.Errorf("saved entry violates the balance equation")
	}

	if len(entry.EditHistory) != 0 {
		t.Errorf("fresh entry should have empty history, got %d logs", len(entry.EditHistory))
	}

	if entry.CreatedByUserID != "u-1" || entry.CreatedByName != "Aye" {
		t.Errorf("creator not recorded: %s/%s", entry.CreatedByUserID, entry.CreatedByName)
	}
}

func TestLedgerUseCase_SaveEntry_ChainsFromPreviousDay(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	uc, _, cashFlow, _, entityRepo := newLedgerFixture(ctrl)

	entityRepo.EXPECT().GetByID(gomock.Any(), "ent-x").Return(
		&domain.Entity{ID: "ent-x", InitialBalance: decimal.NewFromInt(1000)}, nil)
	cashFlow.SetCashReceived(domain.NewEntryKey("co-1", "ent-x", day(2024, 1, 15)), decimal.NewFromInt(500))

	_, err := uc.SaveEntry(context.Background(), usecase.SaveEntryInput{
		CompanyID: "co-1",
		EntityID:  "ent-x",
		Date:      day(2024, 1, 15),
		Formulas:  map[domain.ServiceKind]string{domain.ServiceRia: "100+50"},
		Actor:     domain.Actor{UserID: "u-1"},
	})
	if err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	next, err := uc.SaveEntry(context.Background(), usecase.SaveEntryInput{
		CompanyID: "co-1",
		EntityID:  "ent-x",
		Date:      day(2024, 1, 16),
		Formulas:  map[domain.ServiceKind]string{domain.ServiceRia: "0"},
		Actor:     domain.Actor{UserID: "u-1"},
	})
	if err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	if !next.OpeningBalance.Equal(decimal.NewFromInt(1350)) {
		t.Errorf("openingBalance = %s, want previous closing 1350", next.OpeningBalance)
	}
}

func TestLedgerUseCase_SaveEntry_UpdateAppendsEditLog(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	uc, _, _, _, entityRepo := newLedgerFixture(ctrl)

	// Both saves target the same date, so each resolves the opening balance
	// from the entity's initial balance.
	entityRepo.EXPECT().GetByID(gomock.Any(), "ent-x").Return(
		&domain.Entity{ID: "ent-x", InitialBalance: decimal.NewFromInt(1000)}, nil).Times(2)

	input := usecase.SaveEntryInput{
		CompanyID: "co-1",
		EntityID:  "ent-x",
		Date:      day(2024, 1, 15),
		Formulas:  map[domain.ServiceKind]string{domain.ServiceRia: "100"},
		Actor:     domain.Actor{UserID: "u-1", UserName: "Aye"},
	}

	first, err := uc.SaveEntry(context.Background(), input)
	if err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	input.Formulas = map[domain.ServiceKind]string{domain.ServiceRia: "100+25"}
	input.Actor = domain.Actor{UserID: "u-2", UserName: "Min"}

	second, err := uc.SaveEntry(context.Background(), input)
	if err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	if len(second.EditHistory) != 1 {
		t.Fatalf("history length = %d, want 1", len(second.EditHistory))
	}

	log := second.EditHistory[0]
	if log.UserID != "u-2" {
		t.Errorf("edit log user = %s, want u-2", log.UserID)
	}

	if !log.PreviousState.TotalCashPaid.Equal(first.TotalCashPaid) {
		t.Errorf("previous totalCashPaid = %s, want %s", log.PreviousState.TotalCashPaid, first.TotalCashPaid)
	}

	if !log.NewState.TotalCashPaid.Equal(decimal.NewFromInt(125)) {
		t.Errorf("new totalCashPaid = %s, want 125", log.NewState.TotalCashPaid)
	}

	// Creation metadata is immutable once set.
	if second.CreatedByUserID != "u-1" {
		t.Errorf("createdByUserId changed to %s", second.CreatedByUserID)
	}
}

func TestLedgerUseCase_SaveEntry_ZeroPaidTouchIsLegitimate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	uc, repo, _, _, entityRepo := newLedgerFixture(ctrl)

	entityRepo.EXPECT().GetByID(gomock.Any(), "ent-x").Return(
		&domain.Entity{ID: "ent-x", InitialBalance: decimal.NewFromInt(1000)}, nil)

	entry, err := uc.SaveEntry(context.Background(), usecase.SaveEntryInput{
		CompanyID: "co-1",
		EntityID:  "ent-x",
		Date:      day(2024, 1, 15),
		Formulas:  map[domain.ServiceKind]string{},
		Actor:     domain.Actor{UserID: "u-1"},
	})
	if err != nil {
		t.Fatalf("touch write rejected: %v", err)
	}

	if !entry.TotalCashPaid.IsZero() {
		t.Errorf("totalCashPaid = %s, want 0", entry.TotalCashPaid)
	}

	if repo.Count() != 1 {
		t.Errorf("row count = %d, want 1", repo.Count())
	}
}

func TestLedgerUseCase_SaveEntry_LockedDate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	uc, repo, _, settings, _ := newLedgerFixture(ctrl)
	settings.Lock = day(2024, 1, 31)

	for _, date := range []time.Time{day(2024, 1, 15), day(2024, 1, 31)} {
		_, err := uc.SaveEntry(context.Background(), usecase.SaveEntryInput{
			CompanyID: "co-1",
			EntityID:  "ent-x",
			Date:      date,
			Formulas:  map[domain.ServiceKind]string{domain.ServiceRia: "100"},
			Actor:     domain.Actor{UserID: "u-1"},
		})

		if !domain.IsLocked(err) {
			t.Errorf("date %s: expected LockedError, got %v", date.Format("2006-01-02"), err)
		}
	}

	if repo.Count() != 0 {
		t.Errorf("locked writes must not persist, found %d rows", repo.Count())
	}
}

func TestLedgerUseCase_SaveEntry_RepositoryFailureIsRetryable(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	uc, repo, _, _, entityRepo := newLedgerFixture(ctrl)

	entityRepo.EXPECT().GetByID(gomock.Any(), "ent-x").Return(
		&domain.Entity{ID: "ent-x", InitialBalance: decimal.Zero}, nil)
	repo.UpsertEntryFunc = func(ctx context.Context, entry *domain.LedgerEntry) error {
		return errors.New("network unreachable")
	}

	_, err := uc.SaveEntry(context.Background(), usecase.SaveEntryInput{
		CompanyID: "co-1",
		EntityID:  "ent-x",
		Date:      day(2024, 1, 15),
		Formulas:  map[domain.ServiceKind]string{domain.ServiceRia: "100"},
		Actor:     domain.Actor{UserID: "u-1"},
	})

	if !domain.IsRetryable(err) {
		t.Errorf("expected retryable error, got %v", err)
	}
}
