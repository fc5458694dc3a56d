package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/cashbook/internal/adapter/http/dto"
	"github.com/iho/cashbook/internal/usecase"
)

// ReconcileService defines the behavior needed by ReconcileHandler.
type ReconcileService interface {
	Reconcile(ctx context.Context, input usecase.ReconcileInput) (*usecase.ReconcileReport, error)
}

// ReconcileHandler handles reconciliation HTTP requests.
type ReconcileHandler struct {
	reconcileUC ReconcileService
}

// NewReconcileHandler creates a new ReconcileHandler.
func NewReconcileHandler(reconcileUC ReconcileService) *ReconcileHandler {
	return &ReconcileHandler{reconcileUC: reconcileUC}
}

// Reconcile matches an external payment list against the ledger's itemized
// formula amounts for one service over a date range.
func (h *ReconcileHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	var req dto.ReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	report, err := h.reconcileUC.Reconcile(r.Context(), req.ToUseCaseInput(chi.URLParam(r, "entityId")))
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "reconciliation failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, report)
}
