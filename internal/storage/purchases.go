package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/marchbank/pennywort/internal/model"
)

// SavePurchases stores purchases in one transaction, skipping any whose
// hash is already present. Hashes are generated for purchases that lack one.
func (s *SQLiteStorage) SavePurchases(ctx context.Context, purchases []model.Purchase) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	for i := range purchases {
		if err := validatePurchase(&purchases[i]); err != nil {
			return fmt.Errorf("purchase at index %d: %w", i, err)
		}
		if purchases[i].Hash == "" {
			purchases[i].Hash = purchases[i].GenerateHash()
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insert := `
		INSERT OR IGNORE INTO purchases (external_id, hash, date, amount, category, note)
		VALUES (?, ?, ?, ?, ?, ?)`

	var saved int64
	for _, p := range purchases {
		result, err := tx.ExecContext(ctx, insert,
			p.ID, p.Hash, p.Date.Format("2006-01-02"), p.Amount, p.Category, p.Note)
		if err != nil {
			return fmt.Errorf("failed to insert purchase %s: %w", p.ID, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check insert result: %w", err)
		}
		saved += affected
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit purchases: %w", err)
	}

	slog.Info("saved purchases", "received", len(purchases), "saved", saved, "duplicates", int64(len(purchases))-saved)
	return nil
}

// GetPurchasesByPeriod returns purchases with date in [start, end], newest first.
func (s *SQLiteStorage) GetPurchasesByPeriod(ctx context.Context, start, end time.Time) ([]model.Purchase, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, ErrInvalidDateRange
	}

	query := `
		SELECT COALESCE(external_id, ''), hash, date, amount, category, note
		FROM purchases
		WHERE date >= ? AND date <= ?
		ORDER BY date DESC, id`

	rows, err := s.db.QueryContext(ctx, query,
		start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to query purchases: %w", err)
	}
	defer rows.Close()

	var purchases []model.Purchase
	for rows.Next() {
		var p model.Purchase
		// The driver materializes DATETIME columns as time.Time.
		if err := rows.Scan(&p.ID, &p.Hash, &p.Date, &p.Amount, &p.Category, &p.Note); err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		purchases = append(purchases, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating purchases: %w", err)
	}

	slog.Debug("retrieved purchases", "start", start.Format("2006-01-02"), "end", end.Format("2006-01-02"), "count", len(purchases))
	return purchases, nil
}

// GetPurchaseTotalsByCategory sums purchase amounts per category over [start, end].
func (s *SQLiteStorage) GetPurchaseTotalsByCategory(ctx context.Context, start, end time.Time) (map[string]float64, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, ErrInvalidDateRange
	}

	query := `
		SELECT category, SUM(amount)
		FROM purchases
		WHERE date >= ? AND date <= ?
		GROUP BY category`

	rows, err := s.db.QueryContext(ctx, query,
		start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to query purchase totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]float64)
	for rows.Next() {
		var category string
		var total float64
		if err := rows.Scan(&category, &total); err != nil {
			return nil, fmt.Errorf("failed to scan purchase total: %w", err)
		}
		totals[category] = total
	}
	return totals, rows.Err()
}
