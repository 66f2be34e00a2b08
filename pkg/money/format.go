// Package money formatea montos para documentos impresos y planillas (punto de miles,
// coma decimal).
package money

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.Spanish)

// FormatPYG guaraníes sin decimales: 730000 → "Gs. 730.000".
func FormatPYG(d decimal.Decimal) string {
	return "Gs. " + printer.Sprint(number.Decimal(d.Round(0).IntPart()))
}

// FormatUSD dólares con dos decimales: 12345.5 → "USD 12.345,50".
func FormatUSD(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return "USD " + printer.Sprint(number.Decimal(f, number.Scale(2)))
}
