package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/marchbank/pennywort/internal/model"
)

// GetMonthlyBudgets returns all budgeted categories for one month of one year,
// ordered by category name.
func (s *SQLiteStorage) GetMonthlyBudgets(ctx context.Context, month, year int) ([]model.BudgetEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateMonth(month); err != nil {
		return nil, err
	}
	if err := validateYear(year); err != nil {
		return nil, err
	}

	query := `
		SELECT year, month, category, amount, is_historical
		FROM monthly_budgets
		WHERE year = ? AND month = ?
		ORDER BY category`

	rows, err := s.db.QueryContext(ctx, query, year, month)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly budgets: %w", err)
	}
	defer rows.Close()

	var entries []model.BudgetEntry
	for rows.Next() {
		var entry model.BudgetEntry
		if err := rows.Scan(&entry.Year, &entry.Month, &entry.Category, &entry.Amount, &entry.IsHistorical); err != nil {
			return nil, fmt.Errorf("failed to scan budget entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating budget entries: %w", err)
	}

	slog.Debug("retrieved monthly budgets", "year", year, "month", month, "count", len(entries))
	return entries, nil
}

// AddCategory inserts or replaces one category amount for a month.
func (s *SQLiteStorage) AddCategory(ctx context.Context, name string, amount float64, month, year int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(name, "name"); err != nil {
		return err
	}
	if err := validateAmount(amount); err != nil {
		return err
	}
	if err := validateMonth(month); err != nil {
		return err
	}
	if err := validateYear(year); err != nil {
		return err
	}

	query := `
		INSERT INTO monthly_budgets (year, month, category, amount)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(year, month, category)
		DO UPDATE SET amount = excluded.amount, updated_at = CURRENT_TIMESTAMP`

	if _, err := s.db.ExecContext(ctx, query, year, month, name, amount); err != nil {
		return fmt.Errorf("failed to add category: %w", err)
	}

	slog.Debug("added budget category", "year", year, "month", month, "category", name)
	return nil
}

// UpdateCategoryAmount replaces the amount for an existing category.
func (s *SQLiteStorage) UpdateCategoryAmount(ctx context.Context, category string, amount float64, month, year int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(category, "category"); err != nil {
		return err
	}
	if err := validateAmount(amount); err != nil {
		return err
	}
	if err := validateMonth(month); err != nil {
		return err
	}

	query := `
		UPDATE monthly_budgets
		SET amount = ?, updated_at = CURRENT_TIMESTAMP
		WHERE year = ? AND month = ? AND category = ?`

	result, err := s.db.ExecContext(ctx, query, amount, year, month, category)
	if err != nil {
		return fmt.Errorf("failed to update category amount: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("category %q not found for %d-%02d", category, year, month)
	}

	return nil
}

// DeleteMonthlyBudget removes a category from one month, and from every
// later month of the year when includeFutureMonths is set. Deleting rows
// that do not exist is not an error.
func (s *SQLiteStorage) DeleteMonthlyBudget(ctx context.Context, category string, fromMonth, year int, includeFutureMonths bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(category, "category"); err != nil {
		return err
	}
	if err := validateMonth(fromMonth); err != nil {
		return err
	}

	var query string
	if includeFutureMonths {
		query = `DELETE FROM monthly_budgets WHERE year = ? AND month >= ? AND category = ?`
	} else {
		query = `DELETE FROM monthly_budgets WHERE year = ? AND month = ? AND category = ?`
	}

	if _, err := s.db.ExecContext(ctx, query, year, fromMonth, category); err != nil {
		return fmt.Errorf("failed to delete monthly budget: %w", err)
	}

	slog.Debug("deleted budget category",
		"year", year,
		"from_month", fromMonth,
		"category", category,
		"include_future", includeFutureMonths)
	return nil
}

// SaveBudgets replaces the whole year with the given entries in one
// transaction: nothing is partially written.
func (s *SQLiteStorage) SaveBudgets(ctx context.Context, year int, entries []model.BudgetEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateYear(year); err != nil {
		return err
	}
	for i, entry := range entries {
		if err := validateEntry(&entry); err != nil {
			return fmt.Errorf("entry at index %d: %w", i, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM monthly_budgets WHERE year = ?`, year); err != nil {
		return fmt.Errorf("failed to clear year %d: %w", year, err)
	}

	insert := `
		INSERT INTO monthly_budgets (year, month, category, amount, is_historical)
		VALUES (?, ?, ?, ?, ?)`
	for _, entry := range entries {
		if entry.Year != year {
			// Entries for other years are the caller's bug, not silently saved.
			return fmt.Errorf("%w: entry year %d does not match %d", ErrInvalidEntry, entry.Year, year)
		}
		if _, err := tx.ExecContext(ctx, insert, entry.Year, entry.Month, entry.Category, entry.Amount, entry.IsHistorical); err != nil {
			return fmt.Errorf("failed to insert entry %q: %w", entry.Category, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit budgets: %w", err)
	}

	slog.Info("saved budgets", "year", year, "entries", len(entries))
	return nil
}

// GetBudgetYears returns the distinct years with budget rows, newest first.
func (s *SQLiteStorage) GetBudgetYears(ctx context.Context) ([]int, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT year FROM monthly_budgets ORDER BY year DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query budget years: %w", err)
	}
	defer rows.Close()

	var years []int
	for rows.Next() {
		var year int
		if err := rows.Scan(&year); err != nil {
			return nil, fmt.Errorf("failed to scan year: %w", err)
		}
		years = append(years, year)
	}
	return years, rows.Err()
}
