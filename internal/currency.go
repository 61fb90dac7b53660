package internal

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Currency represents a currency with its formatting rules
type Currency struct {
	Code    string // "USD", "EUR", "SEK"
	unit    currency.Unit
	symbol  string
	printer *message.Printer
}

// symbolOverrides provides custom symbols where x/text defaults aren't ideal
var symbolOverrides = map[string]string{
	"SEK": "kr",
	"NOK": "kr",
	"DKK": "kr",
}

// localeForCurrency is the "home" locale used to format each currency.
var localeForCurrency = map[string]language.Tag{
	"USD": language.AmericanEnglish,
	"CAD": language.MustParse("en-CA"),
	"GBP": language.BritishEnglish,
	"EUR": language.German,
	"SEK": language.Swedish,
	"NOK": language.Norwegian,
	"DKK": language.Danish,
	"CHF": language.German,
	"AUD": language.MustParse("en-AU"),
	"MXN": language.LatinAmericanSpanish,
	"BRL": language.BrazilianPortuguese,
	"INR": language.MustParse("en-IN"),
	"JPY": language.Japanese,
}

// GetCurrency returns the Currency for a given code. Unknown codes format
// with English separators and the code itself as symbol.
func GetCurrency(code string) Currency {
	code = strings.ToUpper(strings.TrimSpace(code))

	unit, err := currency.ParseISO(code)
	isUnknown := err != nil
	if isUnknown {
		unit = currency.USD // fallback unit for number formatting only
	}

	tag, ok := localeForCurrency[code]
	if !ok {
		tag = language.English
	}

	c := Currency{
		Code:    code,
		unit:    unit,
		printer: message.NewPrinter(tag),
	}
	switch {
	case isUnknown:
		c.symbol = code
	case symbolOverrides[code] != "":
		c.symbol = symbolOverrides[code]
	default:
		c.symbol = c.printer.Sprint(currency.NarrowSymbol(unit))
	}
	return c
}

// isPrefix returns true if this currency symbol should be placed before the amount.
// golang.org/x/text/currency does not position symbols from CLDR patterns,
// so prefix currencies are listed here.
func (c Currency) isPrefix() bool {
	switch c.Code {
	case "USD", "GBP", "JPY", "CAD", "AUD", "MXN", "INR":
		return true
	default:
		return false
	}
}

// Format formats an amount with cents and the currency symbol. Negative
// amounts keep their sign ahead of the symbol.
func (c Currency) Format(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}
	formatted := c.printer.Sprint(number.Decimal(amount.Round(2).InexactFloat64(),
		number.MinFractionDigits(2), number.MaxFractionDigits(2)))

	if c.isPrefix() {
		return sign + c.symbol + formatted
	}
	return sign + formatted + " " + c.symbol
}

// FormatNull formats a nullable amount; null renders as "-".
func (c Currency) FormatNull(amount decimal.NullDecimal) string {
	if !amount.Valid {
		return "-"
	}
	return c.Format(amount.Decimal)
}
