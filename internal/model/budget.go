// Package model defines the core domain types shared across the application.
package model

// BudgetEntry is a single budgeted category amount for one month of one year.
type BudgetEntry struct {
	Category     string
	Amount       float64
	Month        int
	Year         int
	IsHistorical bool
}

// Valid reports whether the entry satisfies the basic storage invariants:
// month in 1-12, non-empty category, non-negative amount.
func (e *BudgetEntry) Valid() bool {
	return e.Month >= 1 && e.Month <= 12 && e.Category != "" && e.Amount >= 0
}
