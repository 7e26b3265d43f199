package session

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marchbank/pennywort/internal/budget"
	"github.com/marchbank/pennywort/internal/common"
	"github.com/marchbank/pennywort/internal/export"
	"github.com/marchbank/pennywort/internal/model"
)

// mockStorage records calls and serves budgets from an in-memory map.
type mockStorage struct {
	mu          sync.Mutex
	budgets     map[int]map[int]map[string]float64 // year -> month -> category -> amount
	purchases   []model.Purchase
	calls       []string
	failNext    error
	failOnCall  string
	saveBudgets int
}

func newMockStorage() *mockStorage {
	return &mockStorage{budgets: make(map[int]map[int]map[string]float64)}
}

func (m *mockStorage) record(call string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
	if m.failNext != nil && (m.failOnCall == "" || m.failOnCall == call) {
		err := m.failNext
		m.failNext = nil
		return err
	}
	return nil
}

func (m *mockStorage) set(year, month int, category string, amount float64) {
	if m.budgets[year] == nil {
		m.budgets[year] = make(map[int]map[string]float64)
	}
	if m.budgets[year][month] == nil {
		m.budgets[year][month] = make(map[string]float64)
	}
	m.budgets[year][month][category] = amount
}

func (m *mockStorage) GetMonthlyBudgets(_ context.Context, month, year int) ([]model.BudgetEntry, error) {
	if err := m.record("GetMonthlyBudgets"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var entries []model.BudgetEntry
	for category, amount := range m.budgets[year][month] {
		entries = append(entries, model.BudgetEntry{Year: year, Month: month, Category: category, Amount: amount})
	}
	return entries, nil
}

func (m *mockStorage) AddCategory(_ context.Context, name string, amount float64, month, year int) error {
	if err := m.record("AddCategory"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(year, month, name, amount)
	return nil
}

func (m *mockStorage) UpdateCategoryAmount(_ context.Context, category string, amount float64, month, year int) error {
	if err := m.record("UpdateCategoryAmount"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(year, month, category, amount)
	return nil
}

func (m *mockStorage) DeleteMonthlyBudget(_ context.Context, category string, fromMonth, year int, includeFuture bool) error {
	if err := m.record("DeleteMonthlyBudget"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	last := fromMonth
	if includeFuture {
		last = 12
	}
	for mo := fromMonth; mo <= last; mo++ {
		delete(m.budgets[year][mo], category)
	}
	return nil
}

func (m *mockStorage) SaveBudgets(_ context.Context, year int, entries []model.BudgetEntry) error {
	if err := m.record("SaveBudgets"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveBudgets++
	for _, e := range entries {
		m.set(e.Year, e.Month, e.Category, e.Amount)
	}
	return nil
}

func (m *mockStorage) SavePurchases(_ context.Context, purchases []model.Purchase) error {
	if err := m.record("SavePurchases"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purchases = append(m.purchases, purchases...)
	return nil
}

func (m *mockStorage) GetPurchasesByPeriod(_ context.Context, start, end time.Time) ([]model.Purchase, error) {
	if err := m.record("GetPurchasesByPeriod"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Purchase
	for _, p := range m.purchases {
		if !p.Date.Before(start) && p.Date.Before(end) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockStorage) GetPurchaseTotalsByCategory(_ context.Context, start, end time.Time) (map[string]float64, error) {
	if err := m.record("GetPurchaseTotalsByCategory"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	totals := make(map[string]float64)
	for _, p := range m.purchases {
		if !p.Date.Before(start) && p.Date.Before(end) {
			totals[p.Category] += p.Amount
		}
	}
	return totals, nil
}

func (m *mockStorage) Migrate(_ context.Context) error { return m.record("Migrate") }
func (m *mockStorage) Close() error                    { return nil }

func (m *mockStorage) callCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int
	for _, c := range m.calls {
		if c == name {
			n++
		}
	}
	return n
}

// mockReporter records forwarded errors.
type mockReporter struct {
	mu     sync.Mutex
	errors []error
	labels []string
}

func (r *mockReporter) Report(err error, label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, err)
	r.labels = append(r.labels, label)
}

func (r *mockReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errors)
}

func newTestSession(t *testing.T, store *mockStorage, reporter *mockReporter) *Session {
	t.Helper()
	s, err := New(Config{
		Storage:    store,
		Reporter:   reporter,
		Year:       2024,
		Month:      6,
		NoAutoSave: true,
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestNewRequiresStorage(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestNewLimitsDefaulting(t *testing.T) {
	t.Run("unset limits fall back to defaults", func(t *testing.T) {
		s, err := New(Config{Storage: newMockStorage()})
		require.NoError(t, err)
		defer s.Close()

		assert.Equal(t, budget.DefaultLimits().MaxAmount, s.limits.MaxAmount)
		assert.NotNil(t, s.limits.FormatAmount)
	})

	t.Run("configured limits are kept", func(t *testing.T) {
		custom := budget.Limits{
			MaxNameLength:      10,
			MaxAmount:          100,
			LargeAmountWarning: 50,
			FormatAmount:       func(float64) string { return "" },
		}
		s, err := New(Config{Storage: newMockStorage(), Limits: custom})
		require.NoError(t, err)
		defer s.Close()

		assert.Equal(t, 10, s.limits.MaxNameLength)
		assert.Equal(t, 100.0, s.limits.MaxAmount)
	})
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("empty year lands in empty state", func(t *testing.T) {
		s := newTestSession(t, newMockStorage(), nil)
		require.NoError(t, s.Load(ctx))
		assert.Equal(t, StateEmpty, s.ViewState())
		assert.Equal(t, OpNone, s.Operation())
	})

	t.Run("populated year lands in loaded state", func(t *testing.T) {
		store := newMockStorage()
		store.set(2024, 6, "Groceries", 500)
		s := newTestSession(t, store, nil)

		require.NoError(t, s.Load(ctx))
		assert.Equal(t, StateLoaded, s.ViewState())
		assert.Equal(t, 500.0, s.TotalForMonth(6))
	})

	t.Run("load failure reports and sets error state", func(t *testing.T) {
		store := newMockStorage()
		store.failNext = errors.New("disk gone")
		store.failOnCall = "GetMonthlyBudgets"
		reporter := &mockReporter{}
		s := newTestSession(t, store, reporter)

		err := s.Load(ctx)
		require.Error(t, err)
		assert.Equal(t, StateError, s.ViewState())
		assert.Equal(t, 1, reporter.count())
		assert.Equal(t, "Loading budgets", reporter.labels[0])

		// Retry succeeds once the backend recovers.
		require.NoError(t, s.Retry(ctx))
		assert.Equal(t, StateEmpty, s.ViewState())
	})
}

func TestAddCategory(t *testing.T) {
	ctx := context.Background()

	t.Run("persists and propagates", func(t *testing.T) {
		store := newMockStorage()
		s := newTestSession(t, store, nil)
		require.NoError(t, s.Load(ctx))

		require.NoError(t, s.AddCategory(ctx, 6, "Groceries", 500, true))

		assert.Equal(t, 7, store.callCount("AddCategory"), "months 6 through 12")
		for m := 6; m <= 12; m++ {
			snap := s.MonthSnapshot(m)
			assert.Equal(t, 500.0, snap["Groceries"], "month %d", m)
		}
		assert.Empty(t, s.MonthSnapshot(5))
		assert.True(t, s.HasUnsavedChanges())
		assert.Equal(t, StateLoaded, s.ViewState())
	})

	t.Run("validation failure is local", func(t *testing.T) {
		store := newMockStorage()
		reporter := &mockReporter{}
		s := newTestSession(t, store, reporter)
		require.NoError(t, s.Load(ctx))

		err := s.AddCategory(ctx, 6, "   ", -5, false)
		require.ErrorIs(t, err, common.ErrValidation)

		fields := s.ValidationErrors()
		assert.Equal(t, "Category name cannot be empty", fields["name"])
		assert.Equal(t, "Amount must be non-negative", fields["amount"])
		assert.Equal(t, 0, reporter.count(), "validation errors never reach the reporter")
		assert.NotEqual(t, StateError, s.ViewState())
		assert.Equal(t, 0, store.callCount("AddCategory"))
	})

	t.Run("duplicate rejected", func(t *testing.T) {
		s := newTestSession(t, newMockStorage(), nil)
		require.NoError(t, s.Load(ctx))
		require.NoError(t, s.AddCategory(ctx, 6, "Rent", 1200, false))

		err := s.AddCategory(ctx, 6, "Rent", 1300, false)
		assert.ErrorIs(t, err, common.ErrValidation)
		assert.Equal(t, "Category already exists for this month", s.ValidationErrors()["name"])
	})

	t.Run("storage failure reports with label", func(t *testing.T) {
		store := newMockStorage()
		store.failNext = errors.New("locked")
		store.failOnCall = "AddCategory"
		reporter := &mockReporter{}
		s := newTestSession(t, store, reporter)
		require.NoError(t, s.Load(ctx))

		err := s.AddCategory(ctx, 6, "Rent", 1200, false)
		require.ErrorIs(t, err, common.ErrDataWrite)
		assert.Equal(t, StateError, s.ViewState())
		require.Equal(t, 1, reporter.count())
		assert.Equal(t, "Adding category", reporter.labels[0])
		assert.Empty(t, s.MonthSnapshot(6), "store untouched on persistence failure")
	})
}

func TestUpdateAndDeleteCategory(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, newMockStorage(), nil)
	require.NoError(t, s.Load(ctx))
	require.NoError(t, s.AddCategory(ctx, 3, "Gym", 50, true))

	t.Run("update", func(t *testing.T) {
		require.NoError(t, s.UpdateCategory(ctx, 3, "Gym", 60))
		assert.Equal(t, 60.0, s.MonthSnapshot(3)["Gym"])
	})

	t.Run("update of missing category is a validation error", func(t *testing.T) {
		err := s.UpdateCategory(ctx, 3, "Missing", 60)
		assert.ErrorIs(t, err, common.ErrValidation)
	})

	t.Run("delete with propagation", func(t *testing.T) {
		require.NoError(t, s.DeleteCategory(ctx, "Gym", 6, true))
		assert.Contains(t, s.MonthSnapshot(5), "Gym")
		assert.NotContains(t, s.MonthSnapshot(6), "Gym")
		assert.NotContains(t, s.MonthSnapshot(12), "Gym")
	})
}

func TestRenameCategory(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, newMockStorage(), nil)
	require.NoError(t, s.Load(ctx))
	require.NoError(t, s.AddCategory(ctx, 4, "Food", 400, true))

	require.NoError(t, s.RenameCategory(ctx, 4, "Food", "Groceries", 450, true))

	for m := 4; m <= 12; m++ {
		snap := s.MonthSnapshot(m)
		assert.NotContains(t, snap, "Food", "month %d", m)
		assert.Equal(t, 450.0, snap["Groceries"], "month %d", m)
	}
}

func TestRenameCategoryValidatesAmountChanges(t *testing.T) {
	ctx := context.Background()
	reporter := &mockReporter{}
	s := newTestSession(t, newMockStorage(), reporter)
	require.NoError(t, s.Load(ctx))
	require.NoError(t, s.AddCategory(ctx, 4, "Food", 400, true))

	// Same name, negative amount: a field validation error, never a
	// storage write and never a reporter call.
	err := s.RenameCategory(ctx, 4, "Food", "Food", -50, true)
	require.Error(t, err)
	assert.Contains(t, s.ValidationErrors(), "amount")
	assert.Equal(t, 0, reporter.count())
	assert.Equal(t, 400.0, s.MonthSnapshot(4)["Food"])
}

func TestSave(t *testing.T) {
	ctx := context.Background()

	t.Run("clean session saves nothing", func(t *testing.T) {
		store := newMockStorage()
		s := newTestSession(t, store, nil)
		require.NoError(t, s.Load(ctx))

		require.NoError(t, s.Save(ctx))
		assert.Equal(t, 0, store.callCount("SaveBudgets"))
	})

	t.Run("save clears unsaved flag and records timestamp", func(t *testing.T) {
		store := newMockStorage()
		s := newTestSession(t, store, nil)
		require.NoError(t, s.Load(ctx))
		require.NoError(t, s.AddCategory(ctx, 1, "Rent", 1200, false))
		require.True(t, s.HasUnsavedChanges())

		require.NoError(t, s.Save(ctx))
		assert.False(t, s.HasUnsavedChanges())
		assert.False(t, s.LastSaveDate().IsZero())
		assert.Equal(t, 1, store.callCount("SaveBudgets"))
	})

	t.Run("failed save keeps local edits", func(t *testing.T) {
		store := newMockStorage()
		reporter := &mockReporter{}
		s := newTestSession(t, store, reporter)
		require.NoError(t, s.Load(ctx))
		require.NoError(t, s.AddCategory(ctx, 1, "Rent", 1200, false))

		store.mu.Lock()
		store.failNext = errors.New("disk full")
		store.failOnCall = "SaveBudgets"
		store.mu.Unlock()

		err := s.Save(ctx)
		require.ErrorIs(t, err, common.ErrDataWrite)
		assert.True(t, s.HasUnsavedChanges())
		assert.Equal(t, 1200.0, s.MonthSnapshot(1)["Rent"])
		assert.Equal(t, "Saving budget", reporter.labels[len(reporter.labels)-1])
	})
}

func TestAutoSaveCoalesces(t *testing.T) {
	ctx := context.Background()
	store := newMockStorage()
	s, err := New(Config{
		Storage:       store,
		Year:          2024,
		Month:         6,
		AutoSaveDelay: 30 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	require.NoError(t, s.Load(ctx))

	require.NoError(t, s.AddCategory(ctx, 6, "Groceries", 500, false))
	require.NoError(t, s.AddCategory(ctx, 6, "Rent", 1200, false))
	require.NoError(t, s.AddCategory(ctx, 6, "Travel", 300, false))

	assert.Eventually(t, func() bool {
		return !s.HasUnsavedChanges()
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, store.callCount("SaveBudgets"), "rapid edits coalesce into one save")
}

func TestValidatePopulatesFieldMap(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, newMockStorage(), nil)
	require.NoError(t, s.Load(ctx))
	require.NoError(t, s.AddCategory(ctx, 6, "Rent", 1200, false))

	result := s.Validate(6, "Rent", -1)
	assert.False(t, result.Valid)
	fields := s.ValidationErrors()
	assert.Equal(t, "Category already exists for this month", fields["name"])
	assert.Equal(t, "Amount must be non-negative", fields["amount"])

	// A subsequent valid pass clears the field map.
	result = s.Validate(6, "Gym", 50)
	assert.True(t, result.Valid)
	fields = s.ValidationErrors()
	assert.NotContains(t, fields, "name")
	assert.NotContains(t, fields, "amount")
}

func TestListenersNotified(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, newMockStorage(), nil)

	var notifications int
	unsubscribe := s.Subscribe(func() { notifications++ })

	require.NoError(t, s.Load(ctx))
	require.NoError(t, s.AddCategory(ctx, 6, "Rent", 1200, false))
	assert.GreaterOrEqual(t, notifications, 2)

	unsubscribe()
	before := notifications
	require.NoError(t, s.Save(ctx))
	assert.Equal(t, before, notifications)
}

func TestAnalyticsRecomputedOnMutation(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, newMockStorage(), nil)
	require.NoError(t, s.Load(ctx))

	assert.Contains(t, s.Analytics().Recommendations, "Set up your first budget categories")

	require.NoError(t, s.AddCategory(ctx, 6, "Rent", 1200, false))
	snap := s.Analytics()
	assert.NotContains(t, snap.Recommendations, "Set up your first budget categories")
	assert.Equal(t, 1200.0, snap.CategoryDistribution["Rent"])
}

func TestExportImportPurchasesRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newMockStorage()
	s := newTestSession(t, store, nil)
	require.NoError(t, s.Load(ctx))

	input := strings.Join([]string{
		"Date,Amount,Category,Note",
		"2024-06-01,42.50,Groceries,weekly shop",
		"2024-06-15,9.99,Books,paperback",
	}, "\n") + "\n"

	n, err := s.ImportPurchases(ctx, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var buf bytes.Buffer
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	require.NoError(t, s.ExportPurchases(ctx, &buf, start, end))

	got, err := export.ParsePurchases(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Groceries", got[0].Category)
	assert.Equal(t, 42.5, got[0].Amount)
}

func TestImportPurchasesBadFileFails(t *testing.T) {
	ctx := context.Background()
	reporter := &mockReporter{}
	s := newTestSession(t, newMockStorage(), reporter)
	require.NoError(t, s.Load(ctx))

	_, err := s.ImportPurchases(ctx, strings.NewReader("not,a,valid,header\n"))
	require.ErrorIs(t, err, export.ErrInvalidFormat)
	assert.Equal(t, StateError, s.ViewState())
	assert.Equal(t, "Importing purchases", reporter.labels[0])
}

func TestImportBudgetsRehydratesCurrentYear(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, newMockStorage(), nil)
	require.NoError(t, s.Load(ctx))

	input := strings.Join([]string{
		"Year,Month,Category,Amount,IsHistorical",
		"2024,6,Rent,1200.00,false",
		"2023,12,Rent,1100.00,true",
	}, "\n") + "\n"

	n, err := s.ImportBudgets(ctx, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1200.0, s.MonthSnapshot(6)["Rent"])
	assert.Equal(t, StateLoaded, s.ViewState())
}

func TestSetMonthRefocusesAnalytics(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, newMockStorage(), nil)
	require.NoError(t, s.Load(ctx))
	require.NoError(t, s.AddCategory(ctx, 2, "Rent", 1200, false))

	s.SetMonth(2)
	assert.Equal(t, 2, s.Month())
	assert.NotContains(t, s.Analytics().Recommendations, "Set up your first budget categories")

	s.SetMonth(3)
	assert.Contains(t, s.Analytics().Recommendations, "Set up your first budget categories")

	// Out-of-range months are ignored.
	s.SetMonth(13)
	assert.Equal(t, 3, s.Month())
}
