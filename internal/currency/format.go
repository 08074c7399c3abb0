package currency

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// FormatAmount renders an amount with the symbol placement conventional for
// the currency's locale. Yen amounts are rounded to whole units. An
// unsupported code falls back to a generic "<amount> <code>" string.
func FormatAmount(amount float64, code string) string {
	cur := Lookup(code)
	if cur == nil {
		p := message.NewPrinter(language.English)
		return p.Sprint(number.Decimal(amount)) + " " + code
	}

	if cur.wholeUnits {
		amount = math.Round(amount)
	}

	p := message.NewPrinter(cur.locale)
	formatted := p.Sprint(number.Decimal(amount))

	if cur.symbolFirst {
		return cur.Symbol + formatted
	}
	return formatted + " " + cur.Symbol
}
