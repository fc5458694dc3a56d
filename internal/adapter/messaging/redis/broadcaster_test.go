package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iho/cashbook/internal/domain"
)

func newTestBroadcaster(t *testing.T) *Broadcaster {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return NewBroadcaster(client, zerolog.Nop())
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

func TestBroadcasterPublishReachesSubscriber(t *testing.T) {
	b := newTestBroadcaster(t)
	ctx := context.Background()

	channel := domain.PresenceChannel("agent-1", time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC))

	var mu sync.Mutex
	var received [][]byte
	unsubscribe, err := b.Subscribe(ctx, channel, func(payload []byte) {
		mu.Lock()
		received = append(received, payload)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer unsubscribe()

	if err := b.Publish(ctx, channel, []byte(`{"sessionId":"s1"}`)); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	})

	mu.Lock()
	got := string(received[0])
	mu.Unlock()
	if got != `{"sessionId":"s1"}` {
		t.Fatalf("unexpected payload: %s", got)
	}
}

func TestBroadcasterChannelsAreIsolated(t *testing.T) {
	b := newTestBroadcaster(t)
	ctx := context.Background()

	day := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	var mu sync.Mutex
	count := 0
	unsubscribe, err := b.Subscribe(ctx, domain.PresenceChannel("agent-1", day), func([]byte) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer unsubscribe()

	// Different entity, different channel.
	if err := b.Publish(ctx, domain.PresenceChannel("agent-2", day), []byte("x")); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if err := b.Publish(ctx, domain.PresenceChannel("agent-1", day), []byte("y")); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 1
	})
}

func TestBroadcasterUnsubscribeStopsDelivery(t *testing.T) {
	b := newTestBroadcaster(t)
	ctx := context.Background()

	var mu sync.Mutex
	count := 0
	unsubscribe, err := b.Subscribe(ctx, "presence:test", func([]byte) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	if err := b.Publish(ctx, "presence:test", []byte("one")); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 1
	})

	unsubscribe()

	if err := b.Publish(ctx, "presence:test", []byte("two")); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Fatalf("expected no delivery after unsubscribe, got %d", count)
	}
}
