package currency

// Country describes a storefront country for display.
type Country struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Flag   string `json:"flag"`
	Locale string `json:"locale"`
}

// DefaultLocale is used for countries missing from the table.
const DefaultLocale = "en-US"

var countries = map[string]Country{
	"US": {Code: "US", Name: "United States", Flag: "🇺🇸", Locale: "en-US"},
	"GB": {Code: "GB", Name: "United Kingdom", Flag: "🇬🇧", Locale: "en-GB"},
	"IE": {Code: "IE", Name: "Ireland", Flag: "🇮🇪", Locale: "en-IE"},
	"CA": {Code: "CA", Name: "Canada", Flag: "🇨🇦", Locale: "en-CA"},
	"AU": {Code: "AU", Name: "Australia", Flag: "🇦🇺", Locale: "en-AU"},
	"IN": {Code: "IN", Name: "India", Flag: "🇮🇳", Locale: "en-IN"},
	"SG": {Code: "SG", Name: "Singapore", Flag: "🇸🇬", Locale: "en-SG"},
	"DE": {Code: "DE", Name: "Germany", Flag: "🇩🇪", Locale: "de-DE"},
	"AT": {Code: "AT", Name: "Austria", Flag: "🇦🇹", Locale: "de-AT"},
	"CH": {Code: "CH", Name: "Switzerland", Flag: "🇨🇭", Locale: "de-CH"},
	"FR": {Code: "FR", Name: "France", Flag: "🇫🇷", Locale: "fr-FR"},
	"ES": {Code: "ES", Name: "Spain", Flag: "🇪🇸", Locale: "es-ES"},
	"IT": {Code: "IT", Name: "Italy", Flag: "🇮🇹", Locale: "it-IT"},
	"NL": {Code: "NL", Name: "Netherlands", Flag: "🇳🇱", Locale: "nl-NL"},
	"PL": {Code: "PL", Name: "Poland", Flag: "🇵🇱", Locale: "pl-PL"},
	"SE": {Code: "SE", Name: "Sweden", Flag: "🇸🇪", Locale: "sv-SE"},
	"BR": {Code: "BR", Name: "Brazil", Flag: "🇧🇷", Locale: "pt-BR"},
	"MX": {Code: "MX", Name: "Mexico", Flag: "🇲🇽", Locale: "es-MX"},
	"JP": {Code: "JP", Name: "Japan", Flag: "🇯🇵", Locale: "ja-JP"},
	"CN": {Code: "CN", Name: "China", Flag: "🇨🇳", Locale: "zh-CN"},
	"VN": {Code: "VN", Name: "Vietnam", Flag: "🇻🇳", Locale: "vi-VN"},
}

var symbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"INR": "₹",
	"JPY": "¥",
	"CNY": "¥",
	"AUD": "A$",
	"CAD": "C$",
	"SGD": "S$",
	"CHF": "CHF",
	"SEK": "kr",
	"PLN": "zł",
	"BRL": "R$",
	"MXN": "MX$",
	"VND": "₫",
}

// Locales whose convention puts the symbol after the number.
var symbolAfter = map[string]bool{
	"de": true,
	"fr": true,
	"es": true,
	"it": true,
	"pl": true,
	"sv": true,
	"vi": true,
}
