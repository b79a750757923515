package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

type Money struct {
	Amount   decimal.Decimal
	Currency currency.Unit
}

// Mul scales the amount by a quantity, keeping the currency.
func (m Money) Mul(quantity int64) Money {
	return Money{
		Amount:   m.Amount.Mul(decimal.NewFromInt(quantity)),
		Currency: m.Currency,
	}
}

// Add fails on mismatched currencies, a total across them is undefined.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency.String() != other.Currency.String() {
		return Money{}, fmt.Errorf("currency mismatch: %s vs %s", m.Currency, other.Currency)
	}

	return Money{
		Amount:   m.Amount.Add(other.Amount),
		Currency: m.Currency,
	}, nil
}

func (m Money) IsNegative() bool {
	return m.Amount.IsNegative()
}
