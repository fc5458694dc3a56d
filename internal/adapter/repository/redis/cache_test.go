package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/cashbook/internal/domain"
)

func TestCacheSetAndGet(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "foo", "bar", time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	val, err := cache.Get(ctx, "foo")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	if val != "bar" {
		t.Fatalf("expected bar, got %s", val)
	}
}

func TestCacheDelete(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "foo", "bar", time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	if err := cache.Delete(ctx, "foo"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := cache.Get(ctx, "foo"); err == nil {
		t.Fatalf("expected error getting deleted key")
	}
}

func TestCacheExpiry(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "foo", "bar", time.Second); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	mr.FastForward(2 * time.Second)

	if _, err := cache.Get(ctx, "foo"); err == nil {
		t.Fatalf("expected error getting expired key")
	}
}

func TestCacheEntryRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	entry := &domain.LedgerEntry{
		CompanyID:      "co-1",
		EntityID:       "agent-1",
		Date:           time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		OpeningBalance: decimal.NewFromInt(1000),
		ClosingBalance: decimal.NewFromInt(1350),
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	if err := cache.Set(ctx, "entry:co-1:agent-1:2026-01-15", string(raw), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	val, err := cache.Get(ctx, "entry:co-1:agent-1:2026-01-15")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	var got domain.LedgerEntry
	if err := json.Unmarshal([]byte(val), &got); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !got.ClosingBalance.Equal(entry.ClosingBalance) {
		t.Fatalf("expected closing balance %s, got %s", entry.ClosingBalance, got.ClosingBalance)
	}
}
