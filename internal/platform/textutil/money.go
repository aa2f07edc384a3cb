package textutil

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// MoneyFormatter renders decimal amounts for API responses.
type MoneyFormatter struct {
	currency string
	tag      language.Tag
}

// NewMoneyFormatter builds a formatter for an ISO currency code and a BCP 47 locale.
// Unparseable locales fall back to English.
func NewMoneyFormatter(currency, locale string) *MoneyFormatter {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		tag = language.English
	}
	return &MoneyFormatter{
		currency: strings.ToUpper(strings.TrimSpace(currency)),
		tag:      tag,
	}
}

// Currency returns the configured ISO currency code.
func (f *MoneyFormatter) Currency() string {
	return f.currency
}

// Amount renders value as a plain string rounded to two decimals, e.g. "12500.50".
func (f *MoneyFormatter) Amount(value decimal.Decimal) string {
	return value.StringFixed(2)
}

// Display renders value with locale grouping, prefixed by the currency code, e.g. "NGN 12,500.50".
func (f *MoneyFormatter) Display(value decimal.Decimal) string {
	p := message.NewPrinter(f.tag)
	formatted := p.Sprint(number.Decimal(value.Round(2).InexactFloat64(), number.Scale(2)))
	if f.currency == "" {
		return formatted
	}
	return f.currency + " " + formatted
}
