package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/cashbook/internal/domain"
)

// Session identifies the local editing session for presence broadcasts.
type Session struct {
	SessionID string
	UserID    string
	UserName  string
	Color     string
}

// PresenceUseCase broadcasts advisory "this field is being edited" signals
// over the Broadcaster port. Best-effort and at-most-once per interval:
// nothing here blocks a write, and a lost message has no correctness impact.
type PresenceUseCase struct {
	broadcaster Broadcaster
	session     Session
	logger      zerolog.Logger

	heartbeat time.Duration
	throttle  time.Duration
	now       func() time.Time

	mu         sync.Mutex
	heartbeats map[string]context.CancelFunc // field key -> stop heartbeat
	lastValue  map[string]time.Time          // field key -> last value broadcast
}

// NewPresenceUseCase creates a new PresenceUseCase.
func NewPresenceUseCase(broadcaster Broadcaster, session Session, logger zerolog.Logger) *PresenceUseCase {
	return &PresenceUseCase{
		broadcaster: broadcaster,
		session:     session,
		logger:      logger,
		heartbeat:   domain.PresenceHeartbeatInterval,
		throttle:    domain.PresenceValueThrottle,
		now:         func() time.Time { return time.Now().UTC() },
		heartbeats:  make(map[string]context.CancelFunc),
		lastValue:   make(map[string]time.Time),
	}
}

// BroadcastFocus announces that a field gained focus and keeps the claim
// alive with a heartbeat until BroadcastBlur, Close, or ctx cancellation.
func (uc *PresenceUseCase) BroadcastFocus(ctx context.Context, entityID string, date time.Time, field domain.ServiceKind) error {
	if err := uc.publish(ctx, uc.signal(entityID, date, field)); err != nil {
		return err
	}

	key := fieldKey(entityID, date, field)

	uc.mu.Lock()
	if cancel, ok := uc.heartbeats[key]; ok {
		cancel()
	}
	hbCtx, cancel := context.WithCancel(ctx)
	uc.heartbeats[key] = cancel
	uc.mu.Unlock()

	go uc.runHeartbeat(hbCtx, entityID, date, field)

	return nil
}

// BroadcastValue mirrors the live field value to remote observers, throttled
// to one publish per 100ms per field.
func (uc *PresenceUseCase) BroadcastValue(ctx context.Context, entityID string, date time.Time, field domain.ServiceKind, value string) error {
	key := fieldKey(entityID, date, field)
	now := uc.now()

	uc.mu.Lock()
	if last, ok := uc.lastValue[key]; ok && now.Sub(last) < uc.throttle {
		uc.mu.Unlock()
		return nil
	}
	uc.lastValue[key] = now
	uc.mu.Unlock()

	signal := uc.signal(entityID, date, field)
	signal.Value = value

	return uc.publish(ctx, signal)
}

// BroadcastBlur stops the heartbeat and publishes a clear sentinel for this
// sender.
func (uc *PresenceUseCase) BroadcastBlur(ctx context.Context, entityID string, date time.Time, field domain.ServiceKind) error {
	key := fieldKey(entityID, date, field)

	uc.mu.Lock()
	if cancel, ok := uc.heartbeats[key]; ok {
		cancel()
		delete(uc.heartbeats, key)
	}
	delete(uc.lastValue, key)
	uc.mu.Unlock()

	signal := uc.signal(entityID, date, field)
	signal.Cleared = true

	return uc.publish(ctx, signal)
}

// OnPresenceUpdate subscribes to presence signals for an entity and date.
// Own-session signals and signals older than the TTL (by signal timestamp,
// not receipt time) are dropped. Returns an unsubscribe function.
func (uc *PresenceUseCase) OnPresenceUpdate(ctx context.Context, entityID string, date time.Time, handler func(domain.PresenceSignal)) (func(), error) {
	channel := domain.PresenceChannel(entityID, date)

	return uc.broadcaster.Subscribe(ctx, channel, func(payload []byte) {
		var signal domain.PresenceSignal
		if err := json.Unmarshal(payload, &signal); err != nil {
			uc.logger.Debug().Err(err).Str("channel", channel).Msg("dropping unreadable presence signal")
			return
		}

		if signal.UserID == uc.session.UserID {
			return
		}

		if signal.Expired(uc.now()) {
			return
		}

		handler(signal)
	})
}

// Close cancels every running heartbeat (component teardown).
func (uc *PresenceUseCase) Close() {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	for key, cancel := range uc.heartbeats {
		cancel()
		delete(uc.heartbeats, key)
	}
}

func (uc *PresenceUseCase) runHeartbeat(ctx context.Context, entityID string, date time.Time, field domain.ServiceKind) {
	ticker := time.NewTicker(uc.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := uc.publish(ctx, uc.signal(entityID, date, field)); err != nil {
				uc.logger.Debug().Err(err).Msg("presence heartbeat publish failed")
			}
		}
	}
}

func (uc *PresenceUseCase) signal(entityID string, date time.Time, field domain.ServiceKind) domain.PresenceSignal {
	return domain.PresenceSignal{
		SessionID: uc.session.SessionID,
		UserID:    uc.session.UserID,
		UserName:  uc.session.UserName,
		EntityID:  entityID,
		Date:      domain.Day(date),
		Field:     field,
		Timestamp: uc.now(),
		Color:     uc.session.Color,
	}
}

func (uc *PresenceUseCase) publish(ctx context.Context, signal domain.PresenceSignal) error {
	payload, err := json.Marshal(signal)
	if err != nil {
		return err
	}

	return uc.broadcaster.Publish(ctx, domain.PresenceChannel(signal.EntityID, signal.Date), payload)
}

func fieldKey(entityID string, date time.Time, field domain.ServiceKind) string {
	return domain.PresenceChannel(entityID, date) + ":" + string(field)
}
