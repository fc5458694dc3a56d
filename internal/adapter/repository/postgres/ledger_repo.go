package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/cashbook/internal/domain"
)

// LedgerRepository implements usecase.LedgerRepository over PostgreSQL.
// UpsertEntry is an INSERT ... ON CONFLICT full replace on the natural key,
// which is what keeps replayed writes idempotent.
type LedgerRepository struct {
	pool    *pgxpool.Pool
	retrier *Retrier
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool, retrier *Retrier) *LedgerRepository {
	return &LedgerRepository{pool: pool, retrier: retrier}
}

const ledgerColumns = `company_id, entity_id, entry_date,
	opening_balance, cash_received, total_cash,
	cash_paid, total_cash_paid, closing_balance,
	edit_history, created_at, created_by_user_id, created_by_name`

// GetEntry retrieves the entry for a natural key.
func (r *LedgerRepository) GetEntry(ctx context.Context, key domain.EntryKey) (*domain.LedgerEntry, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+ledgerColumns+`
		FROM ledger_entries
		WHERE company_id = $1 AND entity_id = $2 AND entry_date = $3`,
		key.CompanyID, key.EntityID, key.Date)

	return scanEntry(row)
}

// UpsertEntry inserts or fully replaces the entry for its natural key.
func (r *LedgerRepository) UpsertEntry(ctx context.Context, entry *domain.LedgerEntry) error {
	cashPaid, err := json.Marshal(entry.CashPaidByService)
	if err != nil {
		return fmt.Errorf("encode cash_paid: %w", err)
	}

	history, err := json.Marshal(entry.EditHistory)
	if err != nil {
		return fmt.Errorf("encode edit_history: %w", err)
	}

	return r.retrier.Retry(ctx, func() error {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO ledger_entries (`+ledgerColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (company_id, entity_id, entry_date) DO UPDATE SET
				opening_balance = EXCLUDED.opening_balance,
				cash_received = EXCLUDED.cash_received,
				total_cash = EXCLUDED.total_cash,
				cash_paid = EXCLUDED.cash_paid,
				total_cash_paid = EXCLUDED.total_cash_paid,
				closing_balance = EXCLUDED.closing_balance,
				edit_history = EXCLUDED.edit_history`,
			entry.CompanyID, entry.EntityID, entry.Date,
			decimalToNumeric(entry.OpeningBalance),
			decimalToNumeric(entry.CashReceived),
			decimalToNumeric(entry.TotalCash),
			cashPaid,
			decimalToNumeric(entry.TotalCashPaid),
			decimalToNumeric(entry.ClosingBalance),
			history,
			timeToPgTimestamptz(entry.CreatedAt),
			entry.CreatedByUserID, entry.CreatedByName,
		)
		return err
	})
}

// FindLatestBefore retrieves the nearest entry strictly earlier than date.
func (r *LedgerRepository) FindLatestBefore(ctx context.Context, entityID string, date time.Time) (*domain.LedgerEntry, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+ledgerColumns+`
		FROM ledger_entries
		WHERE entity_id = $1 AND entry_date < $2
		ORDER BY entry_date DESC
		LIMIT 1`,
		entityID, date)

	return scanEntry(row)
}

// ListByEntity retrieves an entity's entries for a date range, oldest first.
func (r *LedgerRepository) ListByEntity(ctx context.Context, entityID string, from, to time.Time) ([]*domain.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+ledgerColumns+`
		FROM ledger_entries
		WHERE entity_id = $1 AND entry_date BETWEEN $2 AND $3
		ORDER BY entry_date ASC`,
		entityID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*domain.LedgerEntry, error) {
	var (
		entry       domain.LedgerEntry
		entryDate   pgtype.Date
		opening     pgtype.Numeric
		received    pgtype.Numeric
		totalCash   pgtype.Numeric
		cashPaid    []byte
		totalPaid   pgtype.Numeric
		closing     pgtype.Numeric
		editHistory []byte
		createdAt   pgtype.Timestamptz
	)

	err := row.Scan(
		&entry.CompanyID, &entry.EntityID, &entryDate,
		&opening, &received, &totalCash,
		&cashPaid, &totalPaid, &closing,
		&editHistory, &createdAt, &entry.CreatedByUserID, &entry.CreatedByName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, err
	}

	entry.Date = domain.Day(entryDate.Time)
	entry.OpeningBalance = numericToDecimal(opening)
	entry.CashReceived = numericToDecimal(received)
	entry.TotalCash = numericToDecimal(totalCash)
	entry.TotalCashPaid = numericToDecimal(totalPaid)
	entry.ClosingBalance = numericToDecimal(closing)
	entry.CreatedAt = createdAt.Time

	if err := json.Unmarshal(cashPaid, &entry.CashPaidByService); err != nil {
		return nil, fmt.Errorf("decode cash_paid: %w", err)
	}

	if len(editHistory) > 0 {
		if err := json.Unmarshal(editHistory, &entry.EditHistory); err != nil {
			return nil, fmt.Errorf("decode edit_history: %w", err)
		}
	}

	return &entry, nil
}

// Type conversion helpers.
func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric

	_ = n.Scan(d.String())

	return n
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}

	d, _ := decimal.NewFromString(n.Int.String())
	if n.Exp != 0 {
		d = d.Shift(n.Exp)
	}

	return d
}

func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}
