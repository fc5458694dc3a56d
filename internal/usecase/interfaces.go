package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/cashbook/internal/domain"
)

// LedgerRepository defines data access for ledger entries. Implementations
// must treat UpsertEntry as a full replace on the natural key
// (companyId, entityId, date); that is what makes replays idempotent.
type LedgerRepository interface {
	GetEntry(ctx context.Context, key domain.EntryKey) (*domain.LedgerEntry, error)
	UpsertEntry(ctx context.Context, entry *domain.LedgerEntry) error
	FindLatestBefore(ctx context.Context, entityID string, date time.Time) (*domain.LedgerEntry, error)
	ListByEntity(ctx context.Context, entityID string, from, to time.Time) ([]*domain.LedgerEntry, error)
}

// EntityRepository reads entities owned by the management subsystem.
// The ledger core holds entity ids only and must tolerate a missing or
// deactivated entity.
type EntityRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Entity, error)
}

// CashFlowReader reads the externally recorded cash inflow for a key.
// A key with no recorded inflow yields zero, not an error.
type CashFlowReader interface {
	CashReceived(ctx context.Context, key domain.EntryKey) (decimal.Decimal, error)
}

// SettingsReader reads company-wide settings owned elsewhere.
// A zero lock date means no cutoff is configured.
type SettingsReader interface {
	LockDate(ctx context.Context, companyID string) (time.Time, error)
}

// OfflineStore is the durable local store backing the offline queue.
// Contents must survive process restart; List returns actions in enqueue
// order.
type OfflineStore interface {
	Append(ctx context.Context, action *domain.OfflineAction) error
	List(ctx context.Context) ([]*domain.OfflineAction, error)
	Remove(ctx context.Context, id string) error
	UpdateRetryCount(ctx context.Context, id string, retryCount int) error
	MoveToDeadLetter(ctx context.Context, letter *domain.DeadLetter) error
	ListDeadLetters(ctx context.Context) ([]*domain.DeadLetter, error)
}

// Broadcaster is the at-most-once messaging port used for presence.
// No ordering guarantee, no persistence; message loss is acceptable.
type Broadcaster interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string, handler func(payload []byte)) (func(), error)
}

// Cache defines caching operations for ledger reads.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}
