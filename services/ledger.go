package services

import "github.com/shopspring/decimal"

// DebtTotal adds debt amounts without float drift and rounds to cents.
func DebtTotal(amounts []float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(decimal.NewFromFloat(a))
	}
	return total.Round(2).InexactFloat64()
}

// FormatAmount renders an amount with two decimals for messages.
func FormatAmount(amount float64) string {
	return decimal.NewFromFloat(amount).StringFixed(2)
}
