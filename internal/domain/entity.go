package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entity is a branch or agent whose daily cash movements are recorded.
// Entities are owned by the management subsystem; the ledger core reads them
// by id only and must tolerate a referenced entity being absent or
// deactivated.
type Entity struct {
	ID             string                          `json:"id"`
	CompanyID      string                          `json:"companyId"`
	Name           string                          `json:"name"`
	ServiceRates   map[ServiceKind]decimal.Decimal `json:"serviceRates"`
	InitialBalance decimal.Decimal                 `json:"initialBalance"`
	IsActive       bool                            `json:"isActive"`
	EditHistory    []EditLog                       `json:"editHistory"`
	CreatedAt      time.Time                       `json:"createdAt"`
	UpdatedAt      time.Time                       `json:"updatedAt"`
}
