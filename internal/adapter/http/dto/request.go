package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/cashbook/internal/domain"
	"github.com/iho/cashbook/internal/usecase"
)

// SaveEntryRequest represents a request to save a day's ledger entry.
// Formulas are the raw "+"-delimited strings per service; totals are never
// accepted from the client, they are always re-evaluated server side.
type SaveEntryRequest struct {
	Formulas map[string]string `json:"formulas"`
	UserID   string            `json:"userId"`
	UserName string            `json:"userName"`
}

// ToUseCaseInput converts to use case input.
func (r *SaveEntryRequest) ToUseCaseInput(companyID, entityID string, date time.Time) usecase.SaveEntryInput {
	formulas := make(map[domain.ServiceKind]string, len(r.Formulas))
	for service, formula := range r.Formulas {
		formulas[domain.ServiceKind(service)] = formula
	}

	return usecase.SaveEntryInput{
		CompanyID: companyID,
		EntityID:  entityID,
		Date:      date,
		Formulas:  formulas,
		Actor: domain.Actor{
			UserID:   r.UserID,
			UserName: r.UserName,
		},
	}
}

// ReconcileRequest represents a request to match an external payment list
// against the ledger's itemized formula amounts.
type ReconcileRequest struct {
	Service       string            `json:"service"`
	From          time.Time         `json:"from"`
	To            time.Time         `json:"to"`
	SystemAmounts []decimal.Decimal `json:"systemAmounts"`
}

// ToUseCaseInput converts to use case input.
func (r *ReconcileRequest) ToUseCaseInput(entityID string) usecase.ReconcileInput {
	return usecase.ReconcileInput{
		EntityID:      entityID,
		Service:       domain.ServiceKind(r.Service),
		From:          r.From,
		To:            r.To,
		SystemAmounts: r.SystemAmounts,
	}
}
