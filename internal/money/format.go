package money

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var displayTag = language.AmericanEnglish

// FormatCents renders cents for display, e.g. 123456 USD -> "$1,234.56". The
// result always carries exactly two fractional digits. Unknown currency codes
// fall back to the upper-cased code as a prefix.
func FormatCents(cents int64, currencyCode string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	fixed := decimal.New(cents, -2).StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	p := message.NewPrinter(displayTag)
	dollars := decimal.RequireFromString(whole).IntPart()
	grouped := p.Sprint(number.Decimal(dollars))

	return sign + symbolFor(p, currencyCode) + grouped + "." + frac
}

func symbolFor(p *message.Printer, code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = "USD"
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return code + " "
	}
	return p.Sprint(currency.Symbol(unit))
}
