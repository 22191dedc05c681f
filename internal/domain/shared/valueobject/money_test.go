package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundMoney(t *testing.T) {
	t.Run("rounds half to even", func(t *testing.T) {
		assert.Equal(t, "0.12", RoundMoney(decimal.RequireFromString("0.125")).StringFixed(2))
		assert.Equal(t, "0.14", RoundMoney(decimal.RequireFromString("0.135")).StringFixed(2))
		assert.Equal(t, "2.50", RoundMoney(decimal.RequireFromString("2.5")).StringFixed(2))
	})
}

func TestPercentOf(t *testing.T) {
	base := decimal.NewFromInt(200)
	assert.Equal(t, "6.00", PercentOf(base, decimal.NewFromInt(3)).StringFixed(2))
	assert.Equal(t, "1.70", PercentOf(decimal.NewFromInt(34), decimal.NewFromInt(5)).StringFixed(2))
	assert.True(t, PercentOf(base, decimal.Zero).IsZero())
}

func TestLineTotal(t *testing.T) {
	assert.Equal(t, "200.00", LineTotal(decimal.RequireFromString("100.00"), 2).StringFixed(2))
	assert.Equal(t, "0.00", LineTotal(decimal.Zero, 5).StringFixed(2))
}

func TestParseMoney(t *testing.T) {
	t.Run("valid string", func(t *testing.T) {
		d, err := ParseMoney("12.345")
		require.NoError(t, err)
		assert.Equal(t, "12.34", d.StringFixed(2))
	})

	t.Run("invalid string", func(t *testing.T) {
		_, err := ParseMoney("twelve")
		assert.Error(t, err)
	})

	t.Run("must parse panics", func(t *testing.T) {
		assert.Panics(t, func() { MustParseMoney("x") })
	})
}

func TestNewAddress(t *testing.T) {
	t.Run("creates address with options", func(t *testing.T) {
		a, err := NewAddress(" 12 Harbour Rd ", "Casablanca", WithRegion("Grand Casablanca"), WithPostalCode("20250"))
		require.NoError(t, err)
		assert.Equal(t, "12 Harbour Rd", a.Line1)
		assert.Equal(t, "12 Harbour Rd, Casablanca, Grand Casablanca, 20250", a.String())
	})

	t.Run("requires line1 and city", func(t *testing.T) {
		_, err := NewAddress("", "Rabat")
		assert.Error(t, err)
		_, err = NewAddress("1 Main St", " ")
		assert.Error(t, err)
	})

	t.Run("empty address", func(t *testing.T) {
		assert.True(t, Address{}.IsEmpty())
	})
}
