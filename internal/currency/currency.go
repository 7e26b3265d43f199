// Package currency formats monetary amounts as localized currency text.
package currency

import (
	"fmt"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formatter renders amounts in a fixed currency for a fixed locale.
// It is immutable and safe for concurrent use.
type Formatter struct {
	printer *message.Printer
	unit    currency.Unit
}

// NewFormatter creates a formatter for the given ISO 4217 code and BCP 47 locale.
func NewFormatter(code, locale string) (*Formatter, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, fmt.Errorf("invalid currency code %q: %w", code, err)
	}

	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", locale, err)
	}

	return &Formatter{
		unit:    unit,
		printer: message.NewPrinter(tag),
	}, nil
}

// MustFormatter is like NewFormatter but panics on invalid input.
// Intended for defaults known to be valid at compile time.
func MustFormatter(code, locale string) *Formatter {
	f, err := NewFormatter(code, locale)
	if err != nil {
		panic(err)
	}
	return f
}

// Format renders the amount with the currency symbol, e.g. "$1,234.50".
func (f *Formatter) Format(amount float64) string {
	return f.printer.Sprintf("%v", currency.Symbol(f.unit.Amount(amount)))
}

// Code returns the ISO 4217 code this formatter renders.
func (f *Formatter) Code() string {
	return f.unit.String()
}
