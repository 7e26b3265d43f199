package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marchbank/pennywort/internal/model"
)

func TestSavePurchases(t *testing.T) {
	ctx := context.Background()

	t.Run("saves and retrieves", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		purchases := createTestPurchases(3)
		require.NoError(t, store.SavePurchases(ctx, purchases))

		got, err := store.GetPurchasesByPeriod(ctx,
			time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("skips duplicates by hash", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		purchases := createTestPurchases(3)
		require.NoError(t, store.SavePurchases(ctx, purchases))
		require.NoError(t, store.SavePurchases(ctx, purchases))

		got, err := store.GetPurchasesByPeriod(ctx,
			time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("generates missing hashes", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		purchase := model.Purchase{
			Date:     time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
			Category: "Coffee",
			Amount:   4.50,
		}
		require.NoError(t, store.SavePurchases(ctx, []model.Purchase{purchase}))

		got, err := store.GetPurchasesByPeriod(ctx,
			time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.NotEmpty(t, got[0].Hash)
	})

	t.Run("round-trips the purchase date", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		purchase := model.Purchase{
			Date:     time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
			Category: "Coffee",
			Amount:   4.50,
		}
		require.NoError(t, store.SavePurchases(ctx, []model.Purchase{purchase}))

		got, err := store.GetPurchasesByPeriod(ctx,
			time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "2026-03-05", got[0].Date.Format("2006-01-02"))
	})

	t.Run("rejects invalid purchases", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		err := store.SavePurchases(ctx, []model.Purchase{{Category: "NoDate", Amount: 1.0}})
		assert.Error(t, err)

		err = store.SavePurchases(ctx, []model.Purchase{{Date: time.Now(), Amount: 1.0}})
		assert.Error(t, err)
	})
}

func TestGetPurchasesByPeriod(t *testing.T) {
	ctx := context.Background()

	t.Run("filters by date range", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		require.NoError(t, store.SavePurchases(ctx, createTestPurchases(10)))

		got, err := store.GetPurchasesByPeriod(ctx,
			time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("newest first", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		require.NoError(t, store.SavePurchases(ctx, createTestPurchases(5)))

		got, err := store.GetPurchasesByPeriod(ctx,
			time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		require.Len(t, got, 5)
		for i := 1; i < len(got); i++ {
			assert.False(t, got[i].Date.After(got[i-1].Date))
		}
	})

	t.Run("rejects inverted range", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		_, err := store.GetPurchasesByPeriod(ctx,
			time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
		assert.ErrorIs(t, err, ErrInvalidDateRange)
	})
}

func TestGetPurchaseTotalsByCategory(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	purchases := []model.Purchase{
		{Date: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), Category: "Groceries", Amount: 50.0},
		{Date: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), Category: "Groceries", Amount: 30.0},
		{Date: time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), Category: "Dining", Amount: 25.0},
		{Date: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), Category: "Groceries", Amount: 99.0},
	}
	require.NoError(t, store.SavePurchases(ctx, purchases))

	totals, err := store.GetPurchaseTotalsByCategory(ctx,
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Len(t, totals, 2)
	assert.InDelta(t, 80.0, totals["Groceries"], 0.001)
	assert.InDelta(t, 25.0, totals["Dining"], 0.001)
}
