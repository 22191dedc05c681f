package valueobject

import (
	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits kept for every monetary amount
const MoneyScale int32 = 2

var hundred = decimal.NewFromInt(100)

// RoundMoney rounds an amount half-even to MoneyScale places
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.RoundBank(MoneyScale)
}

// PercentOf returns base × pct / 100, rounded half-even
func PercentOf(base, pct decimal.Decimal) decimal.Decimal {
	return RoundMoney(base.Mul(pct).Div(hundred))
}

// LineTotal returns unitPrice × quantity, rounded half-even
func LineTotal(unitPrice decimal.Decimal, quantity int64) decimal.Decimal {
	return RoundMoney(unitPrice.Mul(decimal.NewFromInt(quantity)))
}

// Sum adds amounts without intermediate rounding
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// ParseMoney parses a decimal string and rounds it to MoneyScale places
func ParseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	return RoundMoney(d), nil
}

// MustParseMoney is ParseMoney for constants; it panics on malformed input
func MustParseMoney(s string) decimal.Decimal {
	d, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return d
}
