package models

import "github.com/shopspring/decimal"

// TaxRate is applied to the order subtotal.
var TaxRate = decimal.New(5, -2)

// Totals are the money fields of an order.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// ComputeTotals sums line items and adds tax rounded down to a whole unit.
func ComputeTotals(items []LineItem) Totals {
	subtotal := decimal.Zero
	for _, li := range items {
		subtotal = subtotal.Add(li.LineTotal())
	}
	tax := subtotal.Mul(TaxRate).Floor()
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}
