package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultCurrency is used when a caller does not configure one.
const DefaultCurrency = "BRL"

// Formatter renders unrounded decimal totals at display precision.
type Formatter struct {
	unit    currency.Unit
	scale   int32
	printer *message.Printer
}

// NewFormatter builds a formatter for an ISO 4217 code, e.g. "BRL".
func NewFormatter(code string, tag language.Tag) (*Formatter, error) {
	if strings.TrimSpace(code) == "" {
		code = DefaultCurrency
	}
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, fmt.Errorf("parse currency %q: %w", code, err)
	}
	scale, _ := currency.Standard.Rounding(unit)
	return &Formatter{
		unit:    unit,
		scale:   int32(scale),
		printer: message.NewPrinter(tag),
	}, nil
}

// MustFormatter panics on an unknown currency code; for package-level defaults.
func MustFormatter(code string, tag language.Tag) *Formatter {
	f, err := NewFormatter(code, tag)
	if err != nil {
		panic(err)
	}
	return f
}

// Format renders amount with the currency symbol and its standard fraction digits.
func (f *Formatter) Format(amount decimal.Decimal) string {
	symbol := f.printer.Sprint(currency.Symbol(f.unit))
	return fmt.Sprintf("%s %s", symbol, amount.StringFixed(f.scale))
}

// Round applies display rounding without formatting.
func (f *Formatter) Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(f.scale)
}

// Currency returns the ISO code.
func (f *Formatter) Currency() string {
	return f.unit.String()
}

// LineTotal multiplies a unit price by a quantity.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}
