// Package sqlite provides the durable local store backing the offline queue.
// Queued actions and dead letters must survive a process restart, so they
// live in a small SQLite database on the client host rather than in memory.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/iho/cashbook/internal/domain"
)

// QueueStore implements usecase.OfflineStore on SQLite.
type QueueStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewQueueStore opens (or creates) the queue database at dbPath.
// Use ":memory:" for an in-memory database in tests. WAL mode keeps
// readers from blocking the single writer.
func NewQueueStore(dbPath string) (*QueueStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open queue database: %w", err)
	}

	store := &QueueStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate queue database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *QueueStore) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for health checks.
func (s *QueueStore) DB() *sql.DB {
	return s.db
}

func (s *QueueStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS offline_actions (
		id TEXT PRIMARY KEY,
		action_type TEXT NOT NULL,
		payload TEXT NOT NULL,
		enqueued_at TEXT NOT NULL,
		retry_count INTEGER NOT NULL DEFAULT 0,
		seq INTEGER NOT NULL
	);

	-- Replay walks the queue in enqueue order.
	CREATE INDEX IF NOT EXISTS idx_offline_actions_seq
		ON offline_actions(seq);

	CREATE TABLE IF NOT EXISTS dead_letters (
		action_id TEXT PRIMARY KEY,
		action_type TEXT NOT NULL,
		payload TEXT NOT NULL,
		enqueued_at TEXT NOT NULL,
		retry_count INTEGER NOT NULL,
		last_error TEXT NOT NULL,
		failed_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_dead_letters_failed_at
		ON dead_letters(failed_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Append adds an action to the tail of the queue.
func (s *QueueStore) Append(ctx context.Context, action *domain.OfflineAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO offline_actions (id, action_type, payload, enqueued_at, retry_count, seq)
		VALUES (?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM offline_actions))
	`

	_, err := s.db.ExecContext(ctx, query,
		action.ID,
		string(action.Type),
		string(action.Payload),
		action.EnqueuedAt.UTC().Format(time.RFC3339Nano),
		action.RetryCount,
	)
	if err != nil {
		return fmt.Errorf("failed to append offline action: %w", err)
	}

	return nil
}

// List returns all queued actions in enqueue order.
func (s *QueueStore) List(ctx context.Context) ([]*domain.OfflineAction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, action_type, payload, enqueued_at, retry_count
		FROM offline_actions
		ORDER BY seq ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list offline actions: %w", err)
	}
	defer rows.Close()

	var actions []*domain.OfflineAction
	for rows.Next() {
		action, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}

	return actions, rows.Err()
}

// Remove deletes an action after a successful replay. Removing an id that
// is no longer queued is not an error.
func (s *QueueStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM offline_actions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to remove offline action: %w", err)
	}
	return nil
}

// UpdateRetryCount persists the retry count of a failed action so the cap
// holds across restarts.
func (s *QueueStore) UpdateRetryCount(ctx context.Context, id string, retryCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE offline_actions SET retry_count = ? WHERE id = ?",
		retryCount, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update retry count: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrActionNotFound
	}
	return nil
}

// MoveToDeadLetter removes an action from the queue and files it as a dead
// letter in the same transaction.
func (s *QueueStore) MoveToDeadLetter(ctx context.Context, letter *domain.DeadLetter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM offline_actions WHERE id = ?", letter.Action.ID,
	); err != nil {
		return fmt.Errorf("failed to remove dead action: %w", err)
	}

	query := `
		INSERT INTO dead_letters (action_id, action_type, payload, enqueued_at, retry_count, last_error, failed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(action_id) DO UPDATE SET
			retry_count = excluded.retry_count,
			last_error = excluded.last_error,
			failed_at = excluded.failed_at
	`

	if _, err := tx.ExecContext(ctx, query,
		letter.Action.ID,
		string(letter.Action.Type),
		string(letter.Action.Payload),
		letter.Action.EnqueuedAt.UTC().Format(time.RFC3339Nano),
		letter.Action.RetryCount,
		letter.LastError,
		letter.FailedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("failed to file dead letter: %w", err)
	}

	return tx.Commit()
}

// ListDeadLetters returns permanently failed actions, oldest first.
func (s *QueueStore) ListDeadLetters(ctx context.Context) ([]*domain.DeadLetter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT action_id, action_type, payload, enqueued_at, retry_count, last_error, failed_at
		FROM dead_letters
		ORDER BY failed_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list dead letters: %w", err)
	}
	defer rows.Close()

	var letters []*domain.DeadLetter
	for rows.Next() {
		var (
			letter     domain.DeadLetter
			actionType string
			payload    string
			enqueuedAt string
			failedAt   string
		)
		if err := rows.Scan(
			&letter.Action.ID, &actionType, &payload,
			&enqueuedAt, &letter.Action.RetryCount,
			&letter.LastError, &failedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan dead letter: %w", err)
		}

		letter.Action.Type = domain.ActionType(actionType)
		letter.Action.Payload = json.RawMessage(payload)
		letter.Action.EnqueuedAt, _ = time.Parse(time.RFC3339Nano, enqueuedAt)
		letter.FailedAt, _ = time.Parse(time.RFC3339Nano, failedAt)

		letters = append(letters, &letter)
	}

	return letters, rows.Err()
}

func scanAction(rows *sql.Rows) (*domain.OfflineAction, error) {
	var (
		action     domain.OfflineAction
		actionType string
		payload    string
		enqueuedAt string
	)

	if err := rows.Scan(
		&action.ID, &actionType, &payload, &enqueuedAt, &action.RetryCount,
	); err != nil {
		return nil, fmt.Errorf("failed to scan offline action: %w", err)
	}

	action.Type = domain.ActionType(actionType)
	action.Payload = json.RawMessage(payload)
	action.EnqueuedAt, _ = time.Parse(time.RFC3339Nano, enqueuedAt)

	return &action, nil
}
