package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SettingsRepository implements usecase.SettingsReader. Company settings are
// owned elsewhere; only the lock date matters to the write path.
type SettingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository creates a new SettingsRepository.
func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// LockDate returns the company's ledger cutoff. A company without settings
// or without a configured cutoff has no lock (zero time).
func (r *SettingsRepository) LockDate(ctx context.Context, companyID string) (time.Time, error) {
	var lockDate pgtype.Date

	err := r.pool.QueryRow(ctx, `
		SELECT lock_date
		FROM company_settings
		WHERE company_id = $1`,
		companyID).Scan(&lockDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}

	if !lockDate.Valid {
		return time.Time{}, nil
	}

	return lockDate.Time, nil
}
