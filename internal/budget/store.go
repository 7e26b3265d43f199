package budget

import (
	"context"
	"fmt"
	"sort"

	"github.com/marchbank/pennywort/internal/common"
	"github.com/marchbank/pennywort/internal/model"
)

// MonthsPerYear is the number of month buckets a store holds.
const MonthsPerYear = 12

// Source hydrates a store from the persistence layer, one month at a time.
type Source interface {
	GetMonthlyBudgets(ctx context.Context, month, year int) ([]model.BudgetEntry, error)
}

// Store is the in-memory budget model for one fiscal year: a mapping from
// month (1-12) to category name to budgeted amount. All mutation goes through
// the operations below; callers never edit the maps directly. The store is
// not safe for concurrent use; a session owns one store and serializes access.
type Store struct {
	months map[int]map[string]float64
	year   int
}

// NewStore creates an empty store for the given year.
func NewStore(year int) *Store {
	return &Store{
		year:   year,
		months: make(map[int]map[string]float64, MonthsPerYear),
	}
}

// Year returns the fiscal year this store holds.
func (s *Store) Year() int {
	return s.year
}

// month returns the bucket for m, creating it if absent.
func (s *Store) month(m int) map[string]float64 {
	bucket, ok := s.months[m]
	if !ok {
		bucket = make(map[string]float64)
		s.months[m] = bucket
	}
	return bucket
}

// AddCategory inserts name with the given amount into the month bucket.
// The caller is expected to have validated the input (month in 1-12, amount
// non-negative, no duplicate in the target month). With propagate set, the
// category is also inserted into every later month of the year; a name
// already present in a later month is silently overwritten.
func (s *Store) AddCategory(month int, name string, amount float64, propagate bool) {
	last := month
	if propagate {
		last = MonthsPerYear
	}
	for m := month; m <= last; m++ {
		s.month(m)[name] = amount
	}
}

// UpdateCategory replaces the amount for name in the given month.
// Returns a not-found error when the category is absent.
func (s *Store) UpdateCategory(month int, name string, newAmount float64) error {
	if newAmount < 0 {
		return fmt.Errorf("%w: amount %.2f is negative", common.ErrValidation, newAmount)
	}

	bucket := s.month(month)
	if _, ok := bucket[name]; !ok {
		return fmt.Errorf("%w: category %q in month %d", common.ErrNotFound, name, month)
	}
	bucket[name] = newAmount
	return nil
}

// RenameAndUpdate removes oldName and inserts newName with newAmount across
// the selected month set. A zero newAmount means delete: the old name is
// removed and nothing is inserted.
func (s *Store) RenameAndUpdate(month int, oldName, newName string, newAmount float64, propagate bool) {
	last := month
	if propagate {
		last = MonthsPerYear
	}
	for m := month; m <= last; m++ {
		bucket := s.month(m)
		delete(bucket, oldName)
		if newAmount != 0 {
			bucket[newName] = newAmount
		}
	}
}

// DeleteCategory removes name from fromMonth, and from every subsequent month
// through December when propagating. Deleting an absent name is a no-op.
func (s *Store) DeleteCategory(name string, fromMonth int, propagate bool) {
	last := fromMonth
	if propagate {
		last = MonthsPerYear
	}
	for m := fromMonth; m <= last; m++ {
		if bucket, ok := s.months[m]; ok {
			delete(bucket, name)
		}
	}
}

// TotalForMonth sums the amounts budgeted in the given month.
func (s *Store) TotalForMonth(month int) float64 {
	var total float64
	for _, amount := range s.months[month] {
		total += amount
	}
	return total
}

// TotalForYear sums the amounts budgeted across all twelve months.
func (s *Store) TotalForYear() float64 {
	var total float64
	for m := range s.months {
		total += s.TotalForMonth(m)
	}
	return total
}

// CategoryCount returns how many categories the given month holds.
func (s *Store) CategoryCount(month int) int {
	return len(s.months[month])
}

// TotalCategoryCount returns the number of (month, category) pairs held.
func (s *Store) TotalCategoryCount() int {
	var n int
	for _, bucket := range s.months {
		n += len(bucket)
	}
	return n
}

// AvailableCategories returns the sorted union of category names across all
// months of the year.
func (s *Store) AvailableCategories() []string {
	seen := make(map[string]bool)
	for _, bucket := range s.months {
		for name := range bucket {
			seen[name] = true
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CategoriesForMonth returns the sorted category names in one month.
func (s *Store) CategoriesForMonth(month int) []string {
	bucket := s.months[month]
	names := make([]string, 0, len(bucket))
	for name := range bucket {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Amount returns the budgeted amount for name in month, and whether it exists.
func (s *Store) Amount(month int, name string) (float64, bool) {
	amount, ok := s.months[month][name]
	return amount, ok
}

// MonthlyTotals returns the per-month totals ordered January through December.
func (s *Store) MonthlyTotals() []float64 {
	totals := make([]float64, MonthsPerYear)
	for m := 1; m <= MonthsPerYear; m++ {
		totals[m-1] = s.TotalForMonth(m)
	}
	return totals
}

// Distribution sums each category's amount across every month present.
// Categories absent from a given month contribute nothing for that month.
func (s *Store) Distribution() map[string]float64 {
	dist := make(map[string]float64)
	for _, bucket := range s.months {
		for name, amount := range bucket {
			dist[name] += amount
		}
	}
	return dist
}

// MonthSnapshot returns a copy of one month's bucket for read-only display.
func (s *Store) MonthSnapshot(month int) map[string]float64 {
	bucket := s.months[month]
	out := make(map[string]float64, len(bucket))
	for name, amount := range bucket {
		out[name] = amount
	}
	return out
}

// Entries flattens the store into budget entries ordered by month then name.
func (s *Store) Entries() []model.BudgetEntry {
	var entries []model.BudgetEntry
	for m := 1; m <= MonthsPerYear; m++ {
		for _, name := range s.CategoriesForMonth(m) {
			entries = append(entries, model.BudgetEntry{
				Year:     s.year,
				Month:    m,
				Category: name,
				Amount:   s.months[m][name],
			})
		}
	}
	return entries
}

// LoadYear replaces the store contents by querying the source for months 1-12.
// On any fetch error the store is left unchanged and the error is returned.
func (s *Store) LoadYear(ctx context.Context, year int, source Source) error {
	loaded := make(map[int]map[string]float64, MonthsPerYear)
	for m := 1; m <= MonthsPerYear; m++ {
		entries, err := source.GetMonthlyBudgets(ctx, m, year)
		if err != nil {
			return fmt.Errorf("%w: month %d of %d: %v", common.ErrDataLoad, m, year, err)
		}
		bucket := make(map[string]float64, len(entries))
		for _, entry := range entries {
			bucket[entry.Category] = entry.Amount
		}
		loaded[m] = bucket
	}

	s.year = year
	s.months = loaded
	return nil
}
