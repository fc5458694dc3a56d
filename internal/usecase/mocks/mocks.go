// Package mocks provides hand-rolled in-memory fakes alongside the generated
// gomock mocks. The fakes carry enough real behavior (ordering, persistence
// within the process, pub/sub fan-out) to exercise the queue and presence
// flows without a backend.
package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/cashbook/internal/domain"
	"github.com/iho/cashbook/internal/usecase"
)

// FakeLedgerRepository is an in-memory LedgerRepository with optional
// per-method overrides.
type FakeLedgerRepository struct {
	mu      sync.RWMutex
	entries map[domain.EntryKey]*domain.LedgerEntry

	GetEntryFunc         func(ctx context.Context, key domain.EntryKey) (*domain.LedgerEntry, error)
	UpsertEntryFunc      func(ctx context.Context, entry *domain.LedgerEntry) error
	FindLatestBeforeFunc func(ctx context.Context, entityID string, date time.Time) (*domain.LedgerEntry, error)
	ListByEntityFunc     func(ctx context.Context, entityID string, from, to time.Time) ([]*domain.LedgerEntry, error)
}

func NewFakeLedgerRepository() *FakeLedgerRepository {
	return &FakeLedgerRepository{
		entries: make(map[domain.EntryKey]*domain.LedgerEntry),
	}
}

func (f *FakeLedgerRepository) GetEntry(ctx context.Context, key domain.EntryKey) (*domain.LedgerEntry, error) {
	if f.GetEntryFunc != nil {
		return f.GetEntryFunc(ctx, key)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if entry, ok := f.entries[key]; ok {
		copied := *entry
		return &copied, nil
	}
	return nil, domain.ErrEntryNotFound
}

func (f *FakeLedgerRepository) UpsertEntry(ctx context.Context, entry *domain.LedgerEntry) error {
	if f.UpsertEntryFunc != nil {
		return f.UpsertEntryFunc(ctx, entry)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *entry
	f.entries[entry.Key()] = &copied
	return nil
}

func (f *FakeLedgerRepository) FindLatestBefore(ctx context.Context, entityID string, date time.Time) (*domain.LedgerEntry, error) {
	if f.FindLatestBeforeFunc != nil {
		return f.FindLatestBeforeFunc(ctx, entityID, date)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	var best *domain.LedgerEntry
	for key, entry := range f.entries {
		if key.EntityID != entityID || !key.Date.Before(domain.Day(date)) {
			continue
		}
		if best == nil || entry.Date.After(best.Date) {
			best = entry
		}
	}
	if best == nil {
		return nil, domain.ErrEntryNotFound
	}
	copied := *best
	return &copied, nil
}

func (f *FakeLedgerRepository) ListByEntity(ctx context.Context, entityID string, from, to time.Time) ([]*domain.LedgerEntry, error) {
	if f.ListByEntityFunc != nil {
		return f.ListByEntityFunc(ctx, entityID, from, to)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []*domain.LedgerEntry
	for key, entry := range f.entries {
		if key.EntityID != entityID || key.Date.Before(from) || key.Date.After(to) {
			continue
		}
		copied := *entry
		out = append(out, &copied)
	}
	sortEntriesByDate(out)
	return out, nil
}

// Count returns the number of stored rows. Replay tests use it to assert
// that re-applying an action converges rather than duplicating.
func (f *FakeLedgerRepository) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.entries)
}

func sortEntriesByDate(entries []*domain.LedgerEntry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].Date.Before(entries[j-1].Date); j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}

// FakeOfflineStore is an in-memory OfflineStore preserving enqueue order.
type FakeOfflineStore struct {
	mu      sync.Mutex
	actions []*domain.OfflineAction
	dead    []*domain.DeadLetter

	AppendFunc func(ctx context.Context, action *domain.OfflineAction) error
}

func NewFakeOfflineStore() *FakeOfflineStore {
	return &FakeOfflineStore{}
}

func (f *FakeOfflineStore) Append(ctx context.Context, action *domain.OfflineAction) error {
	if f.AppendFunc != nil {
		return f.AppendFunc(ctx, action)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *action
	f.actions = append(f.actions, &copied)
	return nil
}

func (f *FakeOfflineStore) List(ctx context.Context) ([]*domain.OfflineAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.OfflineAction, len(f.actions))
	for i, a := range f.actions {
		copied := *a
		out[i] = &copied
	}
	return out, nil
}

func (f *FakeOfflineStore) Remove(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, a := range f.actions {
		if a.ID == id {
			f.actions = append(f.actions[:i], f.actions[i+1:]...)
			return nil
		}
	}
	return domain.ErrActionNotFound
}

func (f *FakeOfflineStore) UpdateRetryCount(ctx context.Context, id string, retryCount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.actions {
		if a.ID == id {
			a.RetryCount = retryCount
			return nil
		}
	}
	return domain.ErrActionNotFound
}

func (f *FakeOfflineStore) MoveToDeadLetter(ctx context.Context, letter *domain.DeadLetter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, a := range f.actions {
		if a.ID == letter.Action.ID {
			f.actions = append(f.actions[:i], f.actions[i+1:]...)
			f.dead = append(f.dead, letter)
			return nil
		}
	}
	return domain.ErrActionNotFound
}

func (f *FakeOfflineStore) ListDeadLetters(ctx context.Context) ([]*domain.DeadLetter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*domain.DeadLetter(nil), f.dead...), nil
}

// FakeBroadcaster is an in-process Broadcaster: synchronous fan-out to every
// subscriber of a channel, no persistence, no ordering guarantee.
type FakeBroadcaster struct {
	mu       sync.Mutex
	handlers map[string]map[int]func([]byte)
	nextID   int

	Published []PublishedMessage
}

// PublishedMessage records one Publish call for assertions.
type PublishedMessage struct {
	Channel string
	Payload []byte
}

func NewFakeBroadcaster() *FakeBroadcaster {
	return &FakeBroadcaster{
		handlers: make(map[string]map[int]func([]byte)),
	}
}

func (f *FakeBroadcaster) Publish(ctx context.Context, channel string, payload []byte) error {
	f.mu.Lock()
	f.Published = append(f.Published, PublishedMessage{Channel: channel, Payload: payload})
	var subs []func([]byte)
	for _, h := range f.handlers[channel] {
		subs = append(subs, h)
	}
	f.mu.Unlock()

	for _, h := range subs {
		h(payload)
	}
	return nil
}

func (f *FakeBroadcaster) Subscribe(ctx context.Context, channel string, handler func(payload []byte)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.handlers[channel] == nil {
		f.handlers[channel] = make(map[int]func([]byte))
	}
	id := f.nextID
	f.nextID++
	f.handlers[channel][id] = handler

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers[channel], id)
	}, nil
}

// PublishCount returns how many messages went out on a channel.
func (f *FakeBroadcaster) PublishCount(channel string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.Published {
		if m.Channel == channel {
			n++
		}
	}
	return n
}

// FakeCashFlowReader returns a fixed amount per key, zero when unset.
type FakeCashFlowReader struct {
	mu      sync.RWMutex
	amounts map[domain.EntryKey]decimal.Decimal

	CashReceivedFunc func(ctx context.Context, key domain.EntryKey) (decimal.Decimal, error)
}

func NewFakeCashFlowReader() *FakeCashFlowReader {
	return &FakeCashFlowReader{amounts: make(map[domain.EntryKey]decimal.Decimal)}
}

func (f *FakeCashFlowReader) SetCashReceived(key domain.EntryKey, amount decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.amounts[key] = amount
}

func (f *FakeCashFlowReader) CashReceived(ctx context.Context, key domain.EntryKey) (decimal.Decimal, error) {
	if f.CashReceivedFunc != nil {
		return f.CashReceivedFunc(ctx, key)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.amounts[key], nil
}

// FakeSettingsReader returns a fixed lock date (zero value = no lock).
type FakeSettingsReader struct {
	Lock time.Time

	LockDateFunc func(ctx context.Context, companyID string) (time.Time, error)
}

func (f *FakeSettingsReader) LockDate(ctx context.Context, companyID string) (time.Time, error) {
	if f.LockDateFunc != nil {
		return f.LockDateFunc(ctx, companyID)
	}
	return f.Lock, nil
}

// SequenceIDGenerator yields deterministic ids for tests.
type SequenceIDGenerator struct {
	mu sync.Mutex
	n  int
}

func (g *SequenceIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%04d", g.n)
}

var _ usecase.LedgerRepository = (*FakeLedgerRepository)(nil)
var _ usecase.OfflineStore = (*FakeOfflineStore)(nil)
var _ usecase.Broadcaster = (*FakeBroadcaster)(nil)
var _ usecase.CashFlowReader = (*FakeCashFlowReader)(nil)
var _ usecase.SettingsReader = (*FakeSettingsReader)(nil)
var _ usecase.IDGenerator = (*SequenceIDGenerator)(nil)
