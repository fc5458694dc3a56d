package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/cashbook/internal/domain"
)

// EntityRepository implements usecase.EntityRepository. The ledger core only
// ever reads entities; their lifecycle belongs to the management subsystem.
type EntityRepository struct {
	pool *pgxpool.Pool
}

// NewEntityRepository creates a new EntityRepository.
func NewEntityRepository(pool *pgxpool.Pool) *EntityRepository {
	return &EntityRepository{pool: pool}
}

// GetByID retrieves an entity by id.
func (r *EntityRepository) GetByID(ctx context.Context, id string) (*domain.Entity, error) {
	var (
		entity         domain.Entity
		serviceRates   []byte
		initialBalance pgtype.Numeric
		editHistory    []byte
		createdAt      pgtype.Timestamptz
		updatedAt      pgtype.Timestamptz
	)

	err := r.pool.QueryRow(ctx, `
		SELECT id, company_id, name, service_rates, initial_balance,
			is_active, edit_history, created_at, updated_at
		FROM entities
		WHERE id = $1`,
		id).Scan(
		&entity.ID, &entity.CompanyID, &entity.Name, &serviceRates, &initialBalance,
		&entity.IsActive, &editHistory, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntityNotFound
		}
		return nil, err
	}

	entity.InitialBalance = numericToDecimal(initialBalance)
	entity.CreatedAt = createdAt.Time
	entity.UpdatedAt = updatedAt.Time

	if len(serviceRates) > 0 {
		if err := json.Unmarshal(serviceRates, &entity.ServiceRates); err != nil {
			return nil, fmt.Errorf("decode service_rates: %w", err)
		}
	}

	if len(editHistory) > 0 {
		if err := json.Unmarshal(editHistory, &entity.EditHistory); err != nil {
			return nil, fmt.Errorf("decode edit_history: %w", err)
		}
	}

	return &entity, nil
}
