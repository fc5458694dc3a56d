package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/cashbook/internal/domain"
)

// DefaultCommitDelay is the debounce window after the last keystroke before
// an auto-commit fires.
const DefaultCommitDelay = 1500 * time.Millisecond

// CommitFunc performs the actual commit for a key.
type CommitFunc func(ctx context.Context) error

// Committer debounces and coalesces commits per ledger key. A newer edit
// resets the pending debounce; an explicit confirm commits immediately and
// cancels it. At most one commit is in flight per key; an attempt arriving
// while one runs is coalesced into a single follow-up commit with the latest
// inputs, never parallelized.
type Committer struct {
	delay  time.Duration
	logger zerolog.Logger

	mu      sync.Mutex
	pending map[domain.EntryKey]*pendingCommit
}

type pendingCommit struct {
	timer    *time.Timer
	fn       CommitFunc
	inFlight bool
	queued   bool
}

// NewCommitter creates a Committer with the given debounce delay.
func NewCommitter(delay time.Duration, logger zerolog.Logger) *Committer {
	if delay <= 0 {
		delay = DefaultCommitDelay
	}

	return &Committer{
		delay:   delay,
		logger:  logger,
		pending: make(map[domain.EntryKey]*pendingCommit),
	}
}

// Schedule registers an edit for a key: the commit fires after the debounce
// delay unless a newer edit resets it first. fn always carries the latest
// inputs for the key.
func (c *Committer) Schedule(ctx context.Context, key domain.EntryKey, fn CommitFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pending[key]
	if !ok {
		p = &pendingCommit{}
		c.pending[key] = p
	}

	p.fn = fn

	if p.inFlight {
		p.queued = true
		return
	}

	if p.timer != nil {
		p.timer.Stop()
	}

	p.timer = time.AfterFunc(c.delay, func() {
		c.fire(ctx, key)
	})
}

// Flush commits a key immediately, cancelling any pending debounce. No-op if
// nothing is pending for the key.
func (c *Committer) Flush(ctx context.Context, key domain.EntryKey) {
	c.mu.Lock()
	p, ok := c.pending[key]
	if !ok || p.fn == nil {
		c.mu.Unlock()
		return
	}

	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}

	if p.inFlight {
		p.queued = true
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.fire(ctx, key)
}

// Stop cancels every pending debounce without committing. In-flight commits
// finish on their own.
func (c *Committer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, p := range c.pending {
		if p.timer != nil {
			p.timer.Stop()
		}
		if !p.inFlight {
			delete(c.pending, key)
		}
	}
}

func (c *Committer) fire(ctx context.Context, key domain.EntryKey) {
	c.mu.Lock()
	p, ok := c.pending[key]
	if !ok || p.fn == nil || p.inFlight {
		if ok && p.inFlight {
			p.queued = true
		}
		c.mu.Unlock()
		return
	}

	fn := p.fn
	p.fn = nil
	p.inFlight = true
	c.mu.Unlock()

	go func() {
		err := fn(ctx)
		if err != nil {
			c.logger.Warn().
				Str("entity_id", key.EntityID).
				Str("date", key.Date.Format("2006-01-02")).
				Err(err).
				Msg("commit failed")
		}

		c.mu.Lock()
		p.inFlight = false
		rerun := p.queued && p.fn != nil
		p.queued = false
		if !rerun {
			delete(c.pending, key)
		}
		c.mu.Unlock()

		if rerun {
			c.fire(ctx, key)
		}
	}()
}
