// Package storage provides the data persistence layer for the application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/marchbank/pennywort/internal/model"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrNilParameter     = errors.New("parameter cannot be nil")
	ErrInvalidMonth     = errors.New("month must be between 1 and 12")
	ErrInvalidYear      = errors.New("year must be positive")
	ErrInvalidAmount    = errors.New("amount cannot be negative")
	ErrInvalidDateRange = errors.New("start date must be before end date")
	ErrInvalidPurchase  = errors.New("invalid purchase")
	ErrInvalidEntry     = errors.New("invalid budget entry")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateMonth ensures a month falls in 1-12.
func validateMonth(month int) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: got %d", ErrInvalidMonth, month)
	}
	return nil
}

// validateYear ensures a year is plausible.
func validateYear(year int) error {
	if year <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidYear, year)
	}
	return nil
}

// validateAmount ensures an amount is non-negative.
func validateAmount(amount float64) error {
	if amount < 0 {
		return fmt.Errorf("%w: got %.2f", ErrInvalidAmount, amount)
	}
	return nil
}

// validateEntry validates a single budget entry.
func validateEntry(entry *model.BudgetEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry", ErrNilParameter)
	}
	if !entry.Valid() {
		return fmt.Errorf("%w: %+v", ErrInvalidEntry, *entry)
	}
	return nil
}

// validatePurchase validates a single purchase.
func validatePurchase(p *model.Purchase) error {
	if p == nil {
		return fmt.Errorf("%w: purchase", ErrNilParameter)
	}
	if p.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidPurchase)
	}
	if p.Category == "" {
		return fmt.Errorf("%w: missing category", ErrInvalidPurchase)
	}
	return nil
}
