package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/iho/cashbook/internal/domain"
)

// ReplayHandler applies one queued mutation. Handlers must use
// upsert-on-natural-key semantics so a replayed action converges instead of
// duplicating rows.
type ReplayHandler func(ctx context.Context, payload json.RawMessage) error

// ReplayReport summarizes one replay pass.
type ReplayReport struct {
	Replayed     int `json:"replayed"`
	Failed       int `json:"failed"`
	DeadLettered int `json:"deadLettered"`
}

// OfflineUseCase owns the durable FIFO queue of pending mutations and
// replays them when connectivity is available.
type OfflineUseCase struct {
	store    OfflineStore
	ledger   *LedgerUseCase
	idGen    IDGenerator
	logger   zerolog.Logger
	siblings map[domain.ActionType]ReplayHandler

	replaying atomic.Bool
	now       func() time.Time
}

// NewOfflineUseCase creates a new OfflineUseCase.
func NewOfflineUseCase(store OfflineStore, ledger *LedgerUseCase, idGen IDGenerator, logger zerolog.Logger) *OfflineUseCase {
	return &OfflineUseCase{
		store:    store,
		ledger:   ledger,
		idGen:    idGen,
		logger:   logger,
		siblings: make(map[domain.ActionType]ReplayHandler),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RegisterHandler registers a replay handler for a sibling write operation
// (cash-flow, income, expense) owned by a collaborator subsystem.
func (uc *OfflineUseCase) RegisterHandler(actionType domain.ActionType, handler ReplayHandler) {
	uc.siblings[actionType] = handler
}

// Enqueue appends a mutation to the durable queue. The append persists
// synchronously so the action survives a process restart.
func (uc *OfflineUseCase) Enqueue(ctx context.Context, actionType domain.ActionType, payload any) (*domain.OfflineAction, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal action payload: %w", err)
	}

	action := &domain.OfflineAction{
		ID:         uc.idGen.Generate(),
		Type:       actionType,
		Payload:    raw,
		EnqueuedAt: uc.now(),
	}

	if err := uc.store.Append(ctx, action); err != nil {
		return nil, err
	}

	uc.logger.Info().
		Str("action_id", action.ID).
		Str("action_type", string(action.Type)).
		Msg("mutation queued for replay")

	return action, nil
}

// SubmitEntry tries the ledger write path directly and degrades to offline
// queuing on a retryable failure, so the user-facing action still succeeds
// optimistically. Lock-date rejections surface immediately and are never
// queued.
func (uc *OfflineUseCase) SubmitEntry(ctx context.Context, input SaveEntryInput) (*domain.LedgerEntry, bool, error) {
	entry, err := uc.ledger.SaveEntry(ctx, input)
	if err == nil {
		return entry, false, nil
	}

	if !domain.IsRetryable(err) {
		return nil, false, err
	}

	_, qerr := uc.Enqueue(ctx, domain.ActionSaveLedgerEntry, domain.SaveEntryPayload{
		CompanyID: input.CompanyID,
		EntityID:  input.EntityID,
		Date:      domain.Day(input.Date),
		Formulas:  input.Formulas,
		Actor:     input.Actor,
	})
	if qerr != nil {
		// Could not reach the backend or the local store; nothing held the
		// mutation, so the caller must see the original failure.
		return nil, false, err
	}

	return nil, true, nil
}

// ReplayAll replays queued actions in enqueue order. Only one pass runs at a
// time; a re-entrant call is rejected with ErrReplayInProgress. A failed
// dispatch increments the persisted retry count; past the cap the action is
// moved to the dead-letter store instead of being silently dropped.
func (uc *OfflineUseCase) ReplayAll(ctx context.Context) (ReplayReport, error) {
	if !uc.replaying.CompareAndSwap(false, true) {
		return ReplayReport{}, domain.ErrReplayInProgress
	}
	defer uc.replaying.Store(false)

	actions, err := uc.store.List(ctx)
	if err != nil {
		return ReplayReport{}, domain.Retryable(err)
	}

	var report ReplayReport
	for _, action := range actions {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		err := uc.dispatch(ctx, action)
		if err == nil {
			if err := uc.store.Remove(ctx, action.ID); err != nil {
				return report, domain.Retryable(err)
			}
			report.Replayed++
			continue
		}

		report.Failed++
		if err := uc.recordFailure(ctx, action, err, &report); err != nil {
			return report, err
		}
	}

	return report, nil
}

// Pending returns the queued actions in enqueue order.
func (uc *OfflineUseCase) Pending(ctx context.Context) ([]*domain.OfflineAction, error) {
	return uc.store.List(ctx)
}

// DeadLetters returns permanently failed actions awaiting attention.
func (uc *OfflineUseCase) DeadLetters(ctx context.Context) ([]*domain.DeadLetter, error) {
	return uc.store.ListDeadLetters(ctx)
}

// dispatch applies one action, absorbing short transient blips with a small
// exponential backoff inside the pass. Non-retryable errors fail immediately.
func (uc *OfflineUseCase) dispatch(ctx context.Context, action *domain.OfflineAction) error {
	handler, err := uc.handlerFor(action.Type)
	if err != nil {
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxElapsedTime = 2 * time.Second

	return backoff.Retry(func() error {
		err := handler(ctx, action.Payload)
		if err != nil && !domain.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(b, ctx))
}

func (uc *OfflineUseCase) handlerFor(actionType domain.ActionType) (ReplayHandler, error) {
	if actionType == domain.ActionSaveLedgerEntry {
		return uc.replaySaveEntry, nil
	}

	if handler, ok := uc.siblings[actionType]; ok {
		return handler, nil
	}

	return nil, fmt.Errorf("%w: %s", domain.ErrUnknownActionType, actionType)
}

func (uc *OfflineUseCase) replaySaveEntry(ctx context.Context, payload json.RawMessage) error {
	var p domain.SaveEntryPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode saveTransaction payload: %w", err)
	}

	_, err := uc.ledger.SaveEntry(ctx, SaveEntryInput{
		CompanyID: p.CompanyID,
		EntityID:  p.EntityID,
		Date:      p.Date,
		Formulas:  p.Formulas,
		Actor:     p.Actor,
	})

	return err
}

func (uc *OfflineUseCase) recordFailure(ctx context.Context, action *domain.OfflineAction, cause error, report *ReplayReport) error {
	retryCount := action.RetryCount + 1

	if retryCount <= domain.MaxReplayRetries {
		uc.logger.Warn().
			Str("action_id", action.ID).
			Str("action_type", string(action.Type)).
			Int("retry_count", retryCount).
			Err(cause).
			Msg("replay failed, will retry")

		if err := uc.store.UpdateRetryCount(ctx, action.ID, retryCount); err != nil {
			return domain.Retryable(err)
		}
		return nil
	}

	dead := *action
	dead.RetryCount = retryCount

	perm := &domain.PermanentFailureError{ActionID: action.ID, RetryCount: retryCount, LastError: cause.Error()}
	letter := &domain.DeadLetter{
		Action:    dead,
		LastError: perm.Error(),
		FailedAt:  uc.now(),
	}

	if err := uc.store.MoveToDeadLetter(ctx, letter); err != nil {
		return domain.Retryable(err)
	}

	report.DeadLettered++

	// Surfaced, not silently dropped: persisted above, counted in the
	// report, and loud in the log. The pass keeps going.
	uc.logger.Error().
		Str("action_id", action.ID).
		Str("action_type", string(action.Type)).
		Int("retry_count", retryCount).
		Err(cause).
		Msg("action permanently failed, moved to dead letters")

	return nil
}
