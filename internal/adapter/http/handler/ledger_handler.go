package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/cashbook/internal/adapter/http/dto"
	"github.com/iho/cashbook/internal/domain"
	"github.com/iho/cashbook/internal/usecase"
)

// LedgerService defines the read behavior needed by LedgerHandler.
type LedgerService interface {
	GetEntry(ctx context.Context, key domain.EntryKey) (*domain.LedgerEntry, error)
	ListEntries(ctx context.Context, entityID string, from, to time.Time) ([]*domain.LedgerEntry, error)
}

// EntrySubmitter defines the write behavior needed by LedgerHandler.
// Submit degrades to the offline queue on transient failure instead of
// surfacing an error.
type EntrySubmitter interface {
	SubmitEntry(ctx context.Context, input usecase.SaveEntryInput) (*domain.LedgerEntry, bool, error)
}

// BalanceService defines the balance-chain behavior needed by LedgerHandler.
type BalanceService interface {
	ResolveOpeningBalance(ctx context.Context, entityID string, date time.Time) (decimal.Decimal, error)
	VerifyChain(ctx context.Context, entityID string, from, to time.Time) ([]usecase.ChainBreak, error)
}

// LedgerHandler handles ledger entry HTTP requests.
type LedgerHandler struct {
	ledgerUC    LedgerService
	submitterUC EntrySubmitter
	balanceUC   BalanceService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerUC LedgerService, submitterUC EntrySubmitter, balanceUC BalanceService) *LedgerHandler {
	return &LedgerHandler{
		ledgerUC:    ledgerUC,
		submitterUC: submitterUC,
		balanceUC:   balanceUC,
	}
}

// Save upserts the entry for (companyId, entityId, date). When storage is
// unreachable the mutation is queued offline and the handler answers 202.
func (h *LedgerHandler) Save(w http.ResponseWriter, r *http.Request) {
	date, err := parseDateParam(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date", err.Error())
		return
	}

	var req dto.SaveEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input := req.ToUseCaseInput(chi.URLParam(r, "companyId"), chi.URLParam(r, "entityId"), date)

	entry, queued, err := h.submitterUC.SubmitEntry(r.Context(), input)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to save entry", err.Error())
		return
	}

	if queued {
		writeJSON(w, http.StatusAccepted, dto.SaveEntryResponse{Queued: true})
		return
	}

	writeJSON(w, http.StatusOK, dto.SaveEntryResponse{Entry: dto.EntryFromDomain(entry)})
}

// Get retrieves the entry for (companyId, entityId, date).
func (h *LedgerHandler) Get(w http.ResponseWriter, r *http.Request) {
	date, err := parseDateParam(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date", err.Error())
		return
	}

	key := domain.NewEntryKey(chi.URLParam(r, "companyId"), chi.URLParam(r, "entityId"), date)

	entry, err := h.ledgerUC.GetEntry(r.Context(), key)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to get entry", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry))
}

// List lists an entity's entries over a date range.
func (h *LedgerHandler) List(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRangeQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date range", err.Error())
		return
	}

	entries, err := h.ledgerUC.ListEntries(r.Context(), chi.URLParam(r, "entityId"), from, to)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to list entries", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EntriesFromDomain(entries))
}

// OpeningBalance resolves the opening balance an entry on the given date
// would start from.
func (h *LedgerHandler) OpeningBalance(w http.ResponseWriter, r *http.Request) {
	date, err := parseDateParam(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date", err.Error())
		return
	}

	entityID := chi.URLParam(r, "entityId")

	balance, err := h.balanceUC.ResolveOpeningBalance(r.Context(), entityID, date)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to resolve opening balance", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.OpeningBalanceResponse{
		EntityID:       entityID,
		Date:           domain.Day(date).Format("2006-01-02"),
		OpeningBalance: balance,
	})
}

// VerifyChain reports broken balance-chain links over a date range.
func (h *LedgerHandler) VerifyChain(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRangeQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date range", err.Error())
		return
	}

	breaks, err := h.balanceUC.VerifyChain(r.Context(), chi.URLParam(r, "entityId"), from, to)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to verify chain", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ChainBreaksFromUseCase(breaks))
}
