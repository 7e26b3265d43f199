// Package service defines the interfaces for all application collaborators.
package service

import (
	"context"
	"time"

	"github.com/marchbank/pennywort/internal/model"
)

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Budget operations
	GetMonthlyBudgets(ctx context.Context, month, year int) ([]model.BudgetEntry, error)
	AddCategory(ctx context.Context, name string, amount float64, month, year int) error
	UpdateCategoryAmount(ctx context.Context, category string, amount float64, month, year int) error
	DeleteMonthlyBudget(ctx context.Context, category string, fromMonth, year int, includeFutureMonths bool) error
	SaveBudgets(ctx context.Context, year int, entries []model.BudgetEntry) error

	// Purchase operations
	SavePurchases(ctx context.Context, purchases []model.Purchase) error
	GetPurchasesByPeriod(ctx context.Context, start, end time.Time) ([]model.Purchase, error)
	GetPurchaseTotalsByCategory(ctx context.Context, start, end time.Time) (map[string]float64, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// ErrorReporter receives non-validation failures for out-of-band handling.
// Implementations must not block; the caller does not depend on the outcome.
type ErrorReporter interface {
	Report(err error, contextLabel string)
}

// PurchaseSource fetches purchases from an external provider (OFX file,
// bank aggregator) for a date range.
type PurchaseSource interface {
	GetPurchases(ctx context.Context, start, end time.Time) ([]model.Purchase, error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
