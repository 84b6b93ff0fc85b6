// Package currency renders money amounts for storefront display.
package currency

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// LookupCountry returns display info for an ISO 3166-1 alpha-2 code.
func LookupCountry(code string) (Country, bool) {
	c, ok := countries[strings.ToUpper(code)]
	return c, ok
}

// LocaleFor maps a country to a locale, DefaultLocale when unknown.
func LocaleFor(countryCode string) string {
	if c, ok := LookupCountry(countryCode); ok {
		return c.Locale
	}
	return DefaultLocale
}

// Symbol returns the display symbol for an ISO 4217 code. Codes without a
// table entry are their own symbol.
func Symbol(code string) string {
	code = strings.ToUpper(code)
	if s, ok := symbols[code]; ok {
		return s
	}
	return code
}

// IsISO reports whether code is a known ISO 4217 currency.
func IsISO(code string) bool {
	_, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	return err == nil
}

// Format renders amount in currencyCode using the locale of countryCode.
// It never fails: a currency unknown to ISO 4217 renders as the code
// followed by the amount fixed to two places.
func Format(amount decimal.Decimal, currencyCode, countryCode string) string {
	code := strings.ToUpper(strings.TrimSpace(currencyCode))
	if _, err := currency.ParseISO(code); err != nil {
		return code + amount.StringFixed(2)
	}

	locale := LocaleFor(countryCode)
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.AmericanEnglish
	}

	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Abs()
	}

	number := message.NewPrinter(tag).Sprintf("%.2f", amount.Round(2).InexactFloat64())
	symbol := Symbol(code)

	base, _ := tag.Base()
	if symbolAfter[base.String()] {
		return sign + number + " " + symbol
	}
	return sign + symbol + number
}

// FormatRate renders a [0,1] rate as a percentage, e.g. 0.19 -> "19%".
func FormatRate(rate decimal.Decimal) string {
	return rate.Mul(decimal.NewFromInt(100)).Round(2).String() + "%"
}
