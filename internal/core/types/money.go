package types

import "github.com/shopspring/decimal"

// Money represents a monetary value with full precision.
type Money = decimal.Decimal

// NewMoneyFromString creates a Money value from a string.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// LineAmount prices a quantity: unitPrice * qty, rounded to 2 places.
func LineAmount(unitPrice Money, qty Quantity) Money {
	return unitPrice.Mul(decimal.New(int64(qty), -4)).Round(2)
}
