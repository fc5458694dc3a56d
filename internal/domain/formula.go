package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Evaluate sums a "+"-delimited formula of itemized cash amounts.
// Tokens that do not parse as a decimal contribute zero rather than failing:
// the field is edited character by character, and a transient state like
// "100+" must never block input.
func Evaluate(formula string) decimal.Decimal {
	total := decimal.Zero

	for _, token := range strings.Split(formula, "+") {
		d, err := decimal.NewFromString(strings.TrimSpace(token))
		if err != nil {
			continue
		}
		total = total.Add(d)
	}

	return total
}

// FormulaAmounts splits a formula into its individual parseable amounts,
// in the order they appear. Used by reconciliation, where each itemized
// amount is matched against an external payment list.
func FormulaAmounts(formula string) []decimal.Decimal {
	var out []decimal.Decimal

	for _, token := range strings.Split(formula, "+") {
		d, err := decimal.NewFromString(strings.TrimSpace(token))
		if err != nil {
			continue
		}
		out = append(out, d)
	}

	return out
}

// EvaluatePayments recomputes every payment total from its formula and
// returns the recomputed map alongside the grand total paid.
func EvaluatePayments(formulas map[ServiceKind]string) (map[ServiceKind]ServicePayment, decimal.Decimal) {
	payments := make(map[ServiceKind]ServicePayment, len(formulas))
	totalPaid := decimal.Zero

	for kind, formula := range formulas {
		total := Evaluate(formula)
		payments[kind] = ServicePayment{Formula: formula, Total: total}
		totalPaid = totalPaid.Add(total)
	}

	return payments, totalPaid
}
