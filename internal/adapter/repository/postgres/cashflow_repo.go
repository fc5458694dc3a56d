package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/cashbook/internal/domain"
)

// CashFlowRepository implements usecase.CashFlowReader. Cash inflows are
// recorded by a collaborator subsystem; the ledger core reads them only.
type CashFlowRepository struct {
	pool *pgxpool.Pool
}

// NewCashFlowRepository creates a new CashFlowRepository.
func NewCashFlowRepository(pool *pgxpool.Pool) *CashFlowRepository {
	return &CashFlowRepository{pool: pool}
}

// CashReceived returns the recorded inflow for a key. A key with no recorded
// inflow yields zero.
func (r *CashFlowRepository) CashReceived(ctx context.Context, key domain.EntryKey) (decimal.Decimal, error) {
	var amount pgtype.Numeric

	err := r.pool.QueryRow(ctx, `
		SELECT cash_received
		FROM cash_flows
		WHERE company_id = $1 AND entity_id = $2 AND flow_date = $3`,
		key.CompanyID, key.EntityID, key.Date).Scan(&amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}

	return numericToDecimal(amount), nil
}
