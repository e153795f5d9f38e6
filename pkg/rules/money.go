package rules

import (
	"github.com/ogulcanaydogan/Financial-Alarm/pkg/model"
	"github.com/shopspring/decimal"
)

// outflowTotal sums the absolute value of every outflow in txns.
func outflowTotal(txns []model.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txns {
		if t.IsOutflow() {
			total = total.Add(decimal.NewFromFloat(t.Amount).Abs())
		}
	}
	return total
}

// money renders d with two decimals, prefixed by the currency code when known.
func money(currency string, d decimal.Decimal) string {
	s := d.StringFixed(2)
	if currency == "" {
		return s
	}
	return currency + " " + s
}
