// Package currency holds the single base-currency conversion used by account
// creation, cost maintenance, budget upload and expense updates.
package currency

import "github.com/shopspring/decimal"

// Convert converts an amount into the company base currency using the source
// currency rate and the base currency rate: amount * sourceRate / baseRate.
// When the rates are equal (same currency) or the base rate is zero, the
// amount passes through unchanged.
func Convert(amount, sourceRate, baseRate decimal.Decimal) decimal.Decimal {
	if baseRate.IsZero() || sourceRate.Equal(baseRate) {
		return amount
	}
	return amount.Mul(sourceRate).Div(baseRate)
}
