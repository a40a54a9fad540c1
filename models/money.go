package models

import (
	"github.com/shopspring/decimal"
)

// Money is a decimal amount that always renders with two places in JSON ("25.00", not "25")
type Money struct {
	decimal.Decimal
}

func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.StringFixed(2) + `"`), nil
}
