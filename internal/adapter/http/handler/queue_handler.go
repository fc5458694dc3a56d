package handler

import (
	"context"
	"net/http"

	"github.com/iho/cashbook/internal/adapter/http/dto"
	"github.com/iho/cashbook/internal/domain"
	"github.com/iho/cashbook/internal/usecase"
)

// QueueService defines the behavior needed by QueueHandler.
type QueueService interface {
	Pending(ctx context.Context) ([]*domain.OfflineAction, error)
	ReplayAll(ctx context.Context) (usecase.ReplayReport, error)
	DeadLetters(ctx context.Context) ([]*domain.DeadLetter, error)
}

// QueueHandler handles offline queue HTTP requests.
type QueueHandler struct {
	queueUC QueueService
}

// NewQueueHandler creates a new QueueHandler.
func NewQueueHandler(queueUC QueueService) *QueueHandler {
	return &QueueHandler{queueUC: queueUC}
}

// Status reports the pending queue in enqueue order.
func (h *QueueHandler) Status(w http.ResponseWriter, r *http.Request) {
	actions, err := h.queueUC.Pending(r.Context())
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to read queue", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.QueueStatusResponse{
		Pending: dto.ActionsFromDomain(actions),
		Count:   len(actions),
	})
}

// Replay drains the queue in order. Only one pass runs at a time; a
// concurrent request answers 409.
func (h *QueueHandler) Replay(w http.ResponseWriter, r *http.Request) {
	report, err := h.queueUC.ReplayAll(r.Context())
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "replay failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ReplayReportResponse{
		Replayed:     report.Replayed,
		Failed:       report.Failed,
		DeadLettered: report.DeadLettered,
	})
}

// DeadLetters lists permanently failed actions.
func (h *QueueHandler) DeadLetters(w http.ResponseWriter, r *http.Request) {
	letters, err := h.queueUC.DeadLetters(r.Context())
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to read dead letters", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.DeadLettersFromDomain(letters))
}
