package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/cashbook/internal/adapter/http/dto"
	"github.com/iho/cashbook/internal/domain"
	"github.com/iho/cashbook/internal/usecase"
)

type stubLedgerService struct {
	GetEntryFunc    func(ctx context.Context, key domain.EntryKey) (*domain.LedgerEntry, error)
	ListEntriesFunc func(ctx context.Context, entityID string, from, to time.Time) ([]*domain.LedgerEntry, error)
}

func (s *stubLedgerService) GetEntry(ctx context.Context, key domain.EntryKey) (*domain.LedgerEntry, error) {
	return s.GetEntryFunc(ctx, key)
}

func (s *stubLedgerService) ListEntries(ctx context.Context, entityID string, from, to time.Time) ([]*domain.LedgerEntry, error) {
	return s.ListEntriesFunc(ctx, entityID, from, to)
}

type stubSubmitter struct {
	SubmitEntryFunc func(ctx context.Context, input usecase.SaveEntryInput) (*domain.LedgerEntry, bool, error)
}

func (s *stubSubmitter) SubmitEntry(ctx context.Context, input usecase.SaveEntryInput) (*domain.LedgerEntry, bool, error) {
	return s.SubmitEntryFunc(ctx, input)
}

type stubBalanceService struct {
	ResolveFunc func(ctx context.Context, entityID string, date time.Time) (decimal.Decimal, error)
	VerifyFunc  func(ctx context.Context, entityID string, from, to time.Time) ([]usecase.ChainBreak, error)
}

func (s *stubBalanceService) ResolveOpeningBalance(ctx context.Context, entityID string, date time.Time) (decimal.Decimal, error) {
	return s.ResolveFunc(ctx, entityID, date)
}

func (s *stubBalanceService) VerifyChain(ctx context.Context, entityID string, from, to time.Time) ([]usecase.ChainBreak, error) {
	return s.VerifyFunc(ctx, entityID, from, to)
}

func newLedgerRouter(h *LedgerHandler) http.Handler {
	r := chi.NewRouter()
	r.Route("/companies/{companyId}/entities/{entityId}", func(r chi.Router) {
		r.Put("/entries/{date}", h.Save)
		r.Get("/entries/{date}", h.Get)
		r.Get("/entries", h.List)
		r.Get("/opening-balance", h.OpeningBalance)
		r.Get("/chain", h.VerifyChain)
	})
	return r
}

func testEntry() *domain.LedgerEntry {
	return &domain.LedgerEntry{
		CompanyID:      "co-1",
		EntityID:       "agent-1",
		Date:           time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		OpeningBalance: decimal.NewFromInt(1000),
		CashReceived:   decimal.NewFromInt(500),
		TotalCash:      decimal.NewFromInt(1500),
		CashPaidByService: map[domain.ServiceKind]domain.ServicePayment{
			domain.ServiceRia: {Formula: "100+50", Total: decimal.NewFromInt(150)},
		},
		TotalCashPaid:  decimal.NewFromInt(150),
		ClosingBalance: decimal.NewFromInt(1350),
	}
}

func TestLedgerHandlerSave(t *testing.T) {
	submitter := &stubSubmitter{
		SubmitEntryFunc: func(_ context.Context, input usecase.SaveEntryInput) (*domain.LedgerEntry, bool, error) {
			if input.CompanyID != "co-1" || input.EntityID != "agent-1" {
				t.Fatalf("unexpected key %s/%s", input.CompanyID, input.EntityID)
			}
			if input.Formulas[domain.ServiceRia] != "100+50" {
				t.Fatalf("unexpected formulas %v", input.Formulas)
			}
			return testEntry(), false, nil
		},
	}
	h := NewLedgerHandler(nil, submitter, nil)
	router := newLedgerRouter(h)

	body := `{"formulas":{"ria":"100+50"},"userId":"u1","userName":"Aye"}`
	req := httptest.NewRequest(http.MethodPut, "/companies/co-1/entities/agent-1/entries/2026-01-15", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.SaveEntryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if resp.Queued {
		t.Fatalf("expected direct save, got queued")
	}
	if !resp.Entry.ClosingBalance.Equal(decimal.NewFromInt(1350)) {
		t.Fatalf("expected closing 1350, got %s", resp.Entry.ClosingBalance)
	}
}

func TestLedgerHandlerSaveQueued(t *testing.T) {
	submitter := &stubSubmitter{
		SubmitEntryFunc: func(context.Context, usecase.SaveEntryInput) (*domain.LedgerEntry, bool, error) {
			return nil, true, nil
		},
	}
	h := NewLedgerHandler(nil, submitter, nil)
	router := newLedgerRouter(h)

	body := `{"formulas":{"ria":"100"},"userId":"u1","userName":"Aye"}`
	req := httptest.NewRequest(http.MethodPut, "/companies/co-1/entities/agent-1/entries/2026-01-15", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}

	var resp dto.SaveEntryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !resp.Queued || resp.Entry != nil {
		t.Fatalf("expected queued response, got %+v", resp)
	}
}

func TestLedgerHandlerSaveLockedDate(t *testing.T) {
	day := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	submitter := &stubSubmitter{
		SubmitEntryFunc: func(context.Context, usecase.SaveEntryInput) (*domain.LedgerEntry, bool, error) {
			return nil, false, &domain.LockedError{Date: day, LockDate: time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)}
		},
	}
	h := NewLedgerHandler(nil, submitter, nil)
	router := newLedgerRouter(h)

	body := `{"formulas":{"ria":"100"},"userId":"u1","userName":"Aye"}`
	req := httptest.NewRequest(http.MethodPut, "/companies/co-1/entities/agent-1/entries/2026-01-15", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for locked date, got %d", rec.Code)
	}
}

func TestLedgerHandlerSaveInvalidDate(t *testing.T) {
	h := NewLedgerHandler(nil, &stubSubmitter{}, nil)
	router := newLedgerRouter(h)

	req := httptest.NewRequest(http.MethodPut, "/companies/co-1/entities/agent-1/entries/not-a-date", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestLedgerHandlerGetNotFound(t *testing.T) {
	ledger := &stubLedgerService{
		GetEntryFunc: func(context.Context, domain.EntryKey) (*domain.LedgerEntry, error) {
			return nil, domain.ErrEntryNotFound
		},
	}
	h := NewLedgerHandler(ledger, nil, nil)
	router := newLedgerRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/companies/co-1/entities/agent-1/entries/2026-01-15", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestLedgerHandlerOpeningBalance(t *testing.T) {
	balance := &stubBalanceService{
		ResolveFunc: func(_ context.Context, entityID string, date time.Time) (decimal.Decimal, error) {
			if entityID != "agent-1" {
				t.Fatalf("unexpected entity %s", entityID)
			}
			return decimal.NewFromInt(1350), nil
		},
	}
	h := NewLedgerHandler(nil, nil, balance)
	router := newLedgerRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/companies/co-1/entities/agent-1/opening-balance?date=2026-01-16", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp dto.OpeningBalanceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !resp.OpeningBalance.Equal(decimal.NewFromInt(1350)) {
		t.Fatalf("expected 1350, got %s", resp.OpeningBalance)
	}
}

func TestLedgerHandlerVerifyChain(t *testing.T) {
	balance := &stubBalanceService{
		VerifyFunc: func(context.Context, string, time.Time, time.Time) ([]usecase.ChainBreak, error) {
			return []usecase.ChainBreak{{
				Date:           time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC),
				OpeningBalance: decimal.NewFromInt(1000),
				WantOpening:    decimal.NewFromInt(1350),
			}}, nil
		},
	}
	h := NewLedgerHandler(nil, nil, balance)
	router := newLedgerRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/companies/co-1/entities/agent-1/chain?from=2026-01-01&to=2026-01-31", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var breaks []dto.ChainBreakResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &breaks); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(breaks) != 1 || breaks[0].Date != "2026-01-16" {
		t.Fatalf("unexpected breaks %+v", breaks)
	}
}
