package replayworker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/cashbook/internal/domain"
	"github.com/iho/cashbook/internal/infrastructure/metrics"
	"github.com/iho/cashbook/internal/usecase"
)

// Replayer drains the offline queue. Implemented by usecase.OfflineUseCase.
type Replayer interface {
	Pending(ctx context.Context) ([]*domain.OfflineAction, error)
	ReplayAll(ctx context.Context) (usecase.ReplayReport, error)
}

// Worker periodically replays queued offline actions once connectivity
// returns. It is a poll loop rather than an event listener so that actions
// enqueued while the server was down still drain without any trigger.
type Worker struct {
	queue    Replayer
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	interval time.Duration
}

// Config for Worker.
type Config struct {
	Queue    Replayer
	Logger   zerolog.Logger
	Metrics  *metrics.Metrics
	Interval time.Duration // Polling interval
}

// NewWorker creates a new replay Worker.
func NewWorker(cfg Config) *Worker {
	if cfg.Interval == 0 {
		cfg.Interval = 5 * time.Second
	}

	return &Worker{
		queue:    cfg.Queue,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		interval: cfg.Interval,
	}
}

// Start begins the replay worker.
// It runs continuously until the context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info().Dur("interval", w.interval).Msg("replay worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Drain immediately on start
	if err := w.drain(ctx); err != nil {
		w.logger.Error().Err(err).Msg("replay pass on start failed")
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("replay worker shutting down")
			return ctx.Err()
		case <-ticker.C:
			if err := w.drain(ctx); err != nil {
				w.logger.Error().Err(err).Msg("replay pass failed")
			}
		}
	}
}

// drain runs one replay pass if the queue is non-empty.
func (w *Worker) drain(ctx context.Context) error {
	pending, err := w.queue.Pending(ctx)
	if err != nil {
		return err
	}
	if w.metrics != nil {
		w.metrics.QueueDepth.Set(float64(len(pending)))
	}
	if len(pending) == 0 {
		return nil
	}

	w.logger.Info().Int("pending", len(pending)).Msg("replaying queued actions")
	if w.metrics != nil {
		w.metrics.ReplayPasses.Inc()
	}

	report, err := w.queue.ReplayAll(ctx)
	if err != nil {
		// Someone else (the replay endpoint) is already draining.
		if errors.Is(err, domain.ErrReplayInProgress) {
			w.logger.Debug().Msg("replay already in progress, skipping pass")
			return nil
		}
		return err
	}

	if w.metrics != nil {
		w.metrics.ActionsReplayed.Add(float64(report.Replayed))
		w.metrics.ActionsFailed.Add(float64(report.Failed))
		w.metrics.ActionsDeadLettered.Add(float64(report.DeadLettered))
	}

	w.logger.Info().
		Int("replayed", report.Replayed).
		Int("failed", report.Failed).
		Int("dead_lettered", report.DeadLettered).
		Msg("replay pass finished")

	return nil
}
