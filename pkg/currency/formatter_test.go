package currency

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatUSD(t *testing.T) {
	assert.Equal(t, "$1,234.50", Format(decimal.RequireFromString("1234.5"), "USD", "US"))
	assert.Equal(t, "-$5.00", Format(decimal.RequireFromString("-5"), "usd", "US"))
}

func TestFormatUnknownCountryUsesDefaultLocale(t *testing.T) {
	got := Format(decimal.RequireFromString("10"), "GBP", "ZZ")
	assert.Equal(t, "£10.00", got)
}

func TestFormatSymbolAfterNumber(t *testing.T) {
	got := Format(decimal.RequireFromString("12.5"), "EUR", "DE")
	assert.Contains(t, got, "12,50")
	assert.True(t, strings.HasSuffix(got, " €"), got)
}

func TestFormatUnknownCurrencyFallsBack(t *testing.T) {
	var got string
	assert.NotPanics(t, func() {
		got = Format(decimal.RequireFromString("12.345"), "QQQ", "US")
	})
	assert.Contains(t, got, "QQQ")
	assert.Equal(t, "QQQ12.35", got)
}

func TestFormatIsIdempotent(t *testing.T) {
	amount := decimal.RequireFromString("98765.4321")
	for _, cc := range []string{"US", "DE", "FR", "JP", "XX", ""} {
		first := Format(amount, "EUR", cc)
		assert.Equal(t, first, Format(amount, "EUR", cc), cc)
	}
}

func TestLookups(t *testing.T) {
	c, ok := LookupCountry("de")
	assert.True(t, ok)
	assert.Equal(t, "Germany", c.Name)
	assert.Equal(t, "🇩🇪", c.Flag)

	_, ok = LookupCountry("XX")
	assert.False(t, ok)
	assert.Equal(t, DefaultLocale, LocaleFor("XX"))

	assert.Equal(t, "€", Symbol("eur"))
	assert.Equal(t, "NOK", Symbol("NOK"))
}

func TestFormatRate(t *testing.T) {
	assert.Equal(t, "19%", FormatRate(decimal.RequireFromString("0.19")))
	assert.Equal(t, "7.5%", FormatRate(decimal.RequireFromString("0.075")))
}

func TestIsISO(t *testing.T) {
	assert.True(t, IsISO("usd"))
	assert.True(t, IsISO("VND"))
	assert.False(t, IsISO("QQQ"))
	assert.False(t, IsISO(""))
}
