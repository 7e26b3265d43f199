// Package budget implements the month-bucketed budget model: the in-memory
// store, category validation, and derived analytics.
package budget

import (
	"fmt"
	"strings"

	"github.com/marchbank/pennywort/internal/currency"
)

// Limits bound what a category name and amount may look like.
type Limits struct {
	// FormatAmount renders amounts embedded in user-facing messages.
	FormatAmount       func(float64) string
	MaxNameLength      int
	MinAmount          float64
	MaxAmount          float64
	LargeAmountWarning float64
}

// IsZero reports whether the limits are entirely unset. Limits holds a func
// field, so callers cannot compare against the zero value directly.
func (l Limits) IsZero() bool {
	return l.FormatAmount == nil &&
		l.MaxNameLength == 0 &&
		l.MinAmount == 0 &&
		l.MaxAmount == 0 &&
		l.LargeAmountWarning == 0
}

// DefaultLimits returns the limits used when the caller has no configuration.
func DefaultLimits() Limits {
	return Limits{
		MaxNameLength:      50,
		MinAmount:          0,
		MaxAmount:          1_000_000,
		LargeAmountWarning: 10_000,
		FormatAmount:       currency.MustFormatter("USD", "en-US").Format,
	}
}

// ValidationResult carries every issue found in one validation pass.
// Warnings never affect Valid.
type ValidationResult struct {
	Errors   []string
	Warnings []string
	Valid    bool
}

// ValidateCategory checks a proposed category name and amount against the
// limits and the names already present in the target month. All applicable
// rules run; nothing short-circuits, so the caller can display every issue
// at once. Pure function, cheap enough to run on every keystroke.
func ValidateCategory(name string, amount float64, existingNames []string, limits Limits) ValidationResult {
	var result ValidationResult

	formatAmount := limits.FormatAmount
	if formatAmount == nil {
		formatAmount = func(v float64) string { return fmt.Sprintf("%.2f", v) }
	}

	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		result.Errors = append(result.Errors, "Category name cannot be empty")
	}

	if limits.MaxNameLength > 0 && len([]rune(trimmed)) > limits.MaxNameLength {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Category name must be %d characters or less", limits.MaxNameLength))
	}

	// Duplicate detection is case-sensitive.
	for _, existing := range existingNames {
		if existing == trimmed {
			result.Errors = append(result.Errors, "Category already exists for this month")
			break
		}
	}

	if amount < 0 {
		result.Errors = append(result.Errors, "Amount must be non-negative")
	}

	if limits.MaxAmount > 0 && amount > limits.MaxAmount {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Amount cannot exceed %s", formatAmount(limits.MaxAmount)))
	}

	if amount == 0 {
		result.Warnings = append(result.Warnings,
			"Amount is zero, category will not contribute to budget")
	}

	if limits.LargeAmountWarning > 0 && amount > limits.LargeAmountWarning {
		result.Warnings = append(result.Warnings,
			"Large amount, please verify this is correct")
	}

	result.Valid = len(result.Errors) == 0
	return result
}
