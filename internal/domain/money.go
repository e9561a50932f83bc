package domain

import "github.com/shopspring/decimal"

// Money rounds v to cents.
func Money(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// LineTotal returns price*quantity as an exact decimal.
func LineTotal(price float64, quantity int) decimal.Decimal {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(quantity)))
}

// Cents converts an amount to the smallest currency unit.
func Cents(amount float64) int64 {
	return decimal.NewFromFloat(amount).Shift(2).Round(0).IntPart()
}
