// Package redis implements the presence broadcaster on Redis pub/sub.
// Delivery is at-most-once and unordered; a dropped signal is repaired by
// the next heartbeat, so nothing here persists or retries.
package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Broadcaster implements usecase.Broadcaster.
type Broadcaster struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewBroadcaster creates a new Broadcaster.
func NewBroadcaster(client *redis.Client, logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		client: client,
		logger: logger,
	}
}

// Publish sends a payload to every subscriber of the channel.
func (b *Broadcaster) Publish(ctx context.Context, channel string, payload []byte) error {
	return b.client.Publish(ctx, channel, payload).Err()
}

// Subscribe registers a handler for a channel and returns an unsubscribe
// function. The handler runs on a dedicated goroutine until unsubscribe is
// called or ctx is cancelled.
func (b *Broadcaster) Subscribe(ctx context.Context, channel string, handler func(payload []byte)) (func(), error) {
	pubsub := b.client.Subscribe(ctx, channel)

	// Confirm the subscription before returning so callers never miss
	// signals published right after Subscribe.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		ch := pubsub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				handler([]byte(msg.Payload))
			case <-ctx.Done():
				return
			}
		}
	}()

	unsubscribe := func() {
		if err := pubsub.Close(); err != nil {
			b.logger.Warn().Err(err).Str("channel", channel).Msg("failed to close subscription")
		}
		<-done
	}

	return unsubscribe, nil
}
