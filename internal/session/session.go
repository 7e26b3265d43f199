// Package session orchestrates the budget store, validator, and analytics
// against injected persistence and error-reporting collaborators, tracking
// view state, the operation in flight, and unsaved changes.
package session

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/marchbank/pennywort/internal/budget"
	"github.com/marchbank/pennywort/internal/common"
	"github.com/marchbank/pennywort/internal/export"
	"github.com/marchbank/pennywort/internal/model"
	"github.com/marchbank/pennywort/internal/service"
)

// ViewState is the coarse display state of a budget screen.
type ViewState int

// View states.
const (
	StateIdle ViewState = iota
	StateLoading
	StateLoaded
	StateEmpty
	StateError
)

func (v ViewState) String() string {
	switch v {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateEmpty:
		return "empty"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Operation tags the logical operation currently in flight. It is an axis
// independent of ViewState, used for UI gating and metric labels.
type Operation string

// Operation tags.
const (
	OpNone     Operation = "none"
	OpLoad     Operation = "load"
	OpSave     Operation = "save"
	OpAdd      Operation = "addCategory"
	OpUpdate   Operation = "updateCategory"
	OpDelete   Operation = "deleteCategory"
	OpValidate Operation = "validate"
	OpExport   Operation = "export"
	OpImport   Operation = "import"
)

// DefaultAutoSaveDelay is the quiet window that coalesces rapid edits into
// one persistence call.
const DefaultAutoSaveDelay = 2 * time.Second

// Config wires a session to its collaborators. Storage is required; every
// other field has a sensible default.
type Config struct {
	Storage       service.Storage
	Reporter      service.ErrorReporter
	Clock         func() time.Time
	Limits        budget.Limits
	Thresholds    budget.Thresholds
	Year          int
	Month         int
	AutoSaveDelay time.Duration
	NoAutoSave    bool
}

// Session owns one year's budget for one screen. Public methods are safe for
// concurrent use, though the expected pattern is one caller at a time with
// the UI disabling controls while an operation is in flight.
type Session struct {
	lastSave         time.Time
	storage          service.Storage
	reporter         service.ErrorReporter
	clock            func() time.Time
	store            *budget.Store
	validationErrors map[string]string
	spent            map[string]float64
	listeners        map[int]func()
	analytics        budget.Snapshot
	limits           budget.Limits
	thresholds       budget.Thresholds
	month            int
	autoSaveDelay    time.Duration
	nextListener     int
	state            ViewState
	op               Operation
	lastErr          error
	hasUnsaved       bool
	noAutoSave       bool
	debounce         common.Debouncer
	mu               sync.Mutex
}

// New creates a session in the idle state. Call Load to hydrate it.
func New(cfg Config) (*Session, error) {
	if cfg.Storage == nil {
		return nil, fmt.Errorf("%w: storage is required", common.ErrMissingConfig)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	year := cfg.Year
	if year == 0 {
		year = clock().Year()
	}
	month := cfg.Month
	if month < 1 || month > 12 {
		month = int(clock().Month())
	}

	limits := cfg.Limits
	if limits.IsZero() {
		limits = budget.DefaultLimits()
	}
	thresholds := cfg.Thresholds
	if thresholds == (budget.Thresholds{}) {
		thresholds = budget.DefaultThresholds()
	}

	delay := cfg.AutoSaveDelay
	if delay <= 0 {
		delay = DefaultAutoSaveDelay
	}

	return &Session{
		storage:          cfg.Storage,
		reporter:         cfg.Reporter,
		clock:            clock,
		store:            budget.NewStore(year),
		month:            month,
		limits:           limits,
		thresholds:       thresholds,
		autoSaveDelay:    delay,
		noAutoSave:       cfg.NoAutoSave,
		state:            StateIdle,
		op:               OpNone,
		validationErrors: make(map[string]string),
		spent:            make(map[string]float64),
		listeners:        make(map[int]func()),
	}, nil
}

// Subscribe registers a listener invoked after every state change. The
// returned function unsubscribes it.
func (s *Session) Subscribe(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// notify invokes every listener outside the session lock.
func (s *Session) notify() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// begin marks an operation in flight. Caller must hold the lock.
func (s *Session) begin(op Operation) {
	s.op = op
	if s.state != StateLoading {
		s.state = StateLoading
	}
}

// succeed clears the operation and recomputes the view state from the store.
// Caller must hold the lock.
func (s *Session) succeed() {
	s.op = OpNone
	s.lastErr = nil
	if s.store.TotalCategoryCount() == 0 {
		s.state = StateEmpty
	} else {
		s.state = StateLoaded
	}
}

// fail clears the operation, records the error, and forwards it to the
// reporter with a context label. Caller must hold the lock.
func (s *Session) fail(err error, label string) error {
	s.op = OpNone
	s.lastErr = err
	s.state = StateError
	if s.reporter != nil {
		s.reporter.Report(err, label)
	}
	return err
}

// failValidation records per-field validation errors without touching the
// error reporter or the error view state. Caller must hold the lock.
func (s *Session) failValidation(fields map[string]string) error {
	s.op = OpNone
	for field, msg := range fields {
		s.validationErrors[field] = msg
	}
	if s.store.TotalCategoryCount() == 0 {
		s.state = StateEmpty
	} else {
		s.state = StateLoaded
	}
	return fmt.Errorf("%w: %d field(s)", common.ErrValidation, len(fields))
}

// recompute replaces the analytics snapshot wholesale. Caller must hold the lock.
func (s *Session) recompute() {
	totals := s.store.MonthlyTotals()
	// Months after the last budgeted one carry no signal; trailing zeros
	// would read as a collapse to nothing.
	for len(totals) > 0 && totals[len(totals)-1] == 0 {
		totals = totals[:len(totals)-1]
	}

	var spentTotal float64
	for _, v := range s.spent {
		spentTotal += v
	}

	s.analytics = budget.Compute(budget.AnalyticsInput{
		MonthlyTotals: totals,
		Distribution:  s.store.Distribution(),
		Current: budget.Summary{
			Budgeted:      s.store.TotalForMonth(s.month),
			Spent:         spentTotal,
			CategoryCount: s.store.CategoryCount(s.month),
		},
		Thresholds: s.thresholds,
	})
}

// monthRange returns the half-open [start, end) interval of the session's
// current month.
func (s *Session) monthRange() (time.Time, time.Time) {
	start := time.Date(s.store.Year(), time.Month(s.month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// Load hydrates the store and the current month's purchase totals.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.notify()
	defer s.mu.Unlock()

	s.begin(OpLoad)

	if err := s.store.LoadYear(ctx, s.store.Year(), s.storage); err != nil {
		return s.fail(err, "Loading budgets")
	}

	start, end := s.monthRange()
	spent, err := s.storage.GetPurchaseTotalsByCategory(ctx, start, end)
	if err != nil {
		return s.fail(fmt.Errorf("%w: %v", common.ErrDataLoad, err), "Loading purchase totals")
	}
	s.spent = spent

	s.hasUnsaved = false
	s.recompute()
	s.succeed()
	return nil
}

// Retry re-invokes a failed load.
func (s *Session) Retry(ctx context.Context) error {
	return s.Load(ctx)
}

// Validate runs the category validator against the current contents of the
// given month, populating the per-field validation error map. Validation
// failures stay local; they are never forwarded to the error reporter.
func (s *Session) Validate(month int, name string, amount float64) budget.ValidationResult {
	s.mu.Lock()
	defer s.notify()
	defer s.mu.Unlock()

	s.op = OpValidate
	result := budget.ValidateCategory(name, amount, s.store.CategoriesForMonth(month), s.limits)
	s.op = OpNone

	delete(s.validationErrors, "name")
	delete(s.validationErrors, "amount")
	for _, msg := range result.Errors {
		if strings.HasPrefix(msg, "Category") {
			if _, ok := s.validationErrors["name"]; !ok {
				s.validationErrors["name"] = msg
			}
		} else {
			if _, ok := s.validationErrors["amount"]; !ok {
				s.validationErrors["amount"] = msg
			}
		}
	}
	return result
}

// AddCategory validates and persists a new category, then applies it to the
// in-memory store, propagating to later months when requested.
func (s *Session) AddCategory(ctx context.Context, month int, name string, amount float64, propagate bool) error {
	s.mu.Lock()
	defer s.notify()
	defer s.mu.Unlock()

	if month < 1 || month > 12 {
		return s.failValidation(map[string]string{"month": fmt.Sprintf("Month %d is out of range", month)})
	}

	trimmed := strings.TrimSpace(name)
	result := budget.ValidateCategory(trimmed, amount, s.store.CategoriesForMonth(month), s.limits)
	if !result.Valid {
		return s.failValidation(fieldErrors(result))
	}
	delete(s.validationErrors, "name")
	delete(s.validationErrors, "amount")

	s.begin(OpAdd)

	last := month
	if propagate {
		last = budget.MonthsPerYear
	}
	for m := month; m <= last; m++ {
		if err := s.storage.AddCategory(ctx, trimmed, amount, m, s.store.Year()); err != nil {
			return s.fail(fmt.Errorf("%w: %v", common.ErrDataWrite, err), "Adding category")
		}
	}

	s.store.AddCategory(month, trimmed, amount, propagate)
	s.afterMutation()
	return nil
}

// UpdateCategory persists a new amount for an existing category.
func (s *Session) UpdateCategory(ctx context.Context, month int, name string, amount float64) error {
	s.mu.Lock()
	defer s.notify()
	defer s.mu.Unlock()

	if amount < 0 {
		return s.failValidation(map[string]string{"amount": "Amount must be non-negative"})
	}
	if _, ok := s.store.Amount(month, name); !ok {
		return s.failValidation(map[string]string{"name": fmt.Sprintf("Category %q not found for month %d", name, month)})
	}

	s.begin(OpUpdate)

	if err := s.storage.UpdateCategoryAmount(ctx, name, amount, month, s.store.Year()); err != nil {
		return s.fail(fmt.Errorf("%w: %v", common.ErrDataWrite, err), "Updating category")
	}

	if err := s.store.UpdateCategory(month, name, amount); err != nil {
		return s.fail(err, "Updating category")
	}
	s.afterMutation()
	return nil
}

// RenameCategory removes oldName and inserts newName with newAmount across
// the selected month set. A zero newAmount deletes the category outright.
func (s *Session) RenameCategory(ctx context.Context, month int, oldName, newName string, newAmount float64, propagate bool) error {
	s.mu.Lock()
	defer s.notify()
	defer s.mu.Unlock()

	trimmed := strings.TrimSpace(newName)
	// Excluding oldName keeps the duplicate check from tripping on a pure
	// amount change while still validating the name and amount.
	existing := s.store.CategoriesForMonth(month)
	result := budget.ValidateCategory(trimmed, newAmount, removeName(existing, oldName), s.limits)
	if !result.Valid {
		return s.failValidation(fieldErrors(result))
	}

	s.begin(OpUpdate)

	year := s.store.Year()
	if err := s.storage.DeleteMonthlyBudget(ctx, oldName, month, year, propagate); err != nil {
		return s.fail(fmt.Errorf("%w: %v", common.ErrDataWrite, err), "Renaming category")
	}
	if newAmount != 0 {
		last := month
		if propagate {
			last = budget.MonthsPerYear
		}
		for m := month; m <= last; m++ {
			if err := s.storage.AddCategory(ctx, trimmed, newAmount, m, year); err != nil {
				return s.fail(fmt.Errorf("%w: %v", common.ErrDataWrite, err), "Renaming category")
			}
		}
	}

	s.store.RenameAndUpdate(month, oldName, trimmed, newAmount, propagate)
	s.afterMutation()
	return nil
}

// DeleteCategory removes a category from fromMonth onward.
func (s *Session) DeleteCategory(ctx context.Context, name string, fromMonth int, propagate bool) error {
	s.mu.Lock()
	defer s.notify()
	defer s.mu.Unlock()

	s.begin(OpDelete)

	if err := s.storage.DeleteMonthlyBudget(ctx, name, fromMonth, s.store.Year(), propagate); err != nil {
		return s.fail(fmt.Errorf("%w: %v", common.ErrDataWrite, err), "Deleting category")
	}

	s.store.DeleteCategory(name, fromMonth, propagate)
	s.afterMutation()
	return nil
}

// afterMutation recomputes derived state and schedules the debounced save.
// Caller must hold the lock.
func (s *Session) afterMutation() {
	s.hasUnsaved = true
	s.recompute()
	s.succeed()

	if s.noAutoSave {
		return
	}
	s.debounce.Schedule(s.autoSaveDelay, func() {
		if s.CanSave() {
			// Best effort; a failed auto-save surfaces through view state.
			_ = s.Save(context.Background())
		}
	})
}

// CanSave reports whether a save would do useful work right now.
func (s *Session) CanSave() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasUnsaved && s.op == OpNone && s.lastErr == nil
}

// Save persists the whole store. It returns immediately when there is
// nothing to save. Every entry is validated first; a single bad triple
// aborts the save with no partial write. A failed save leaves local edits
// intact so the user can retry.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.notify()
	defer s.mu.Unlock()

	if !s.hasUnsaved {
		return nil
	}

	s.begin(OpSave)

	entries := s.store.Entries()
	for _, e := range entries {
		if strings.TrimSpace(e.Category) == "" || e.Amount < 0 || !e.Valid() {
			return s.failValidation(map[string]string{
				"save": fmt.Sprintf("Invalid entry %q in month %d", e.Category, e.Month),
			})
		}
	}

	if err := s.storage.SaveBudgets(ctx, s.store.Year(), entries); err != nil {
		return s.fail(fmt.Errorf("%w: %v", common.ErrDataWrite, err), "Saving budget")
	}

	s.hasUnsaved = false
	s.lastSave = s.clock()
	s.succeed()
	return nil
}

// ExportPurchases writes the period's purchases to w as CSV.
func (s *Session) ExportPurchases(ctx context.Context, w io.Writer, start, end time.Time) error {
	s.mu.Lock()
	defer s.notify()
	defer s.mu.Unlock()

	s.begin(OpExport)

	purchases, err := s.storage.GetPurchasesByPeriod(ctx, start, end)
	if err != nil {
		return s.fail(fmt.Errorf("%w: %v", common.ErrDataLoad, err), "Exporting purchases")
	}
	if err := export.WritePurchases(w, purchases); err != nil {
		return s.fail(err, "Exporting purchases")
	}

	s.succeed()
	return nil
}

// ImportPurchases parses purchase CSV from r and persists the rows.
func (s *Session) ImportPurchases(ctx context.Context, r io.Reader) (int, error) {
	s.mu.Lock()
	defer s.notify()
	defer s.mu.Unlock()

	s.begin(OpImport)

	purchases, err := export.ParsePurchases(r)
	if err != nil {
		return 0, s.fail(err, "Importing purchases")
	}
	if len(purchases) > 0 {
		if err := s.storage.SavePurchases(ctx, purchases); err != nil {
			return 0, s.fail(fmt.Errorf("%w: %v", common.ErrDataWrite, err), "Importing purchases")
		}
	}

	s.succeed()
	return len(purchases), nil
}

// ImportBudgets parses budget CSV from r, persists every year it mentions,
// and rehydrates the store when the session's year is among them.
func (s *Session) ImportBudgets(ctx context.Context, r io.Reader) (int, error) {
	s.mu.Lock()
	defer s.notify()
	defer s.mu.Unlock()

	s.begin(OpImport)

	entries, err := export.ParseBudgets(r)
	if err != nil {
		return 0, s.fail(err, "Importing budgets")
	}

	byYear := make(map[int][]model.BudgetEntry)
	for _, e := range entries {
		byYear[e.Year] = append(byYear[e.Year], e)
	}
	for year, yearEntries := range byYear {
		if err := s.storage.SaveBudgets(ctx, year, yearEntries); err != nil {
			return 0, s.fail(fmt.Errorf("%w: %v", common.ErrDataWrite, err), "Importing budgets")
		}
	}

	if _, ok := byYear[s.store.Year()]; ok {
		if err := s.store.LoadYear(ctx, s.store.Year(), s.storage); err != nil {
			return 0, s.fail(err, "Importing budgets")
		}
		s.recompute()
	}

	s.succeed()
	return len(entries), nil
}

// SetMonth changes the month analytics and summaries focus on.
func (s *Session) SetMonth(month int) {
	if month < 1 || month > 12 {
		return
	}
	s.mu.Lock()
	defer s.notify()
	defer s.mu.Unlock()

	s.month = month
	s.recompute()
}

// Close cancels any pending auto-save.
func (s *Session) Close() {
	s.debounce.Stop()
}

// Accessors. Each takes the lock briefly and returns a copy.

// ViewState returns the current display state.
func (s *Session) ViewState() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Operation returns the operation currently in flight.
func (s *Session) Operation() Operation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.op
}

// IsProcessing reports whether any operation is in flight.
func (s *Session) IsProcessing() bool {
	return s.Operation() != OpNone
}

// LastError returns the most recent non-validation failure, if any.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// HasUnsavedChanges reports whether a mutation has happened since the last
// successful save.
func (s *Session) HasUnsavedChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasUnsaved
}

// LastSaveDate returns when the last successful save completed.
func (s *Session) LastSaveDate() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSave
}

// ValidationErrors returns a copy of the per-field validation error map.
func (s *Session) ValidationErrors() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.validationErrors))
	for k, v := range s.validationErrors {
		out[k] = v
	}
	return out
}

// Analytics returns the current derived snapshot.
func (s *Session) Analytics() budget.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analytics
}

// Month returns the month analytics currently focus on.
func (s *Session) Month() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.month
}

// Year returns the fiscal year this session edits.
func (s *Session) Year() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Year()
}

// MonthSnapshot returns a copy of one month's category map for display.
func (s *Session) MonthSnapshot(month int) map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.MonthSnapshot(month)
}

// TotalForMonth returns the budgeted total for a month.
func (s *Session) TotalForMonth(month int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.TotalForMonth(month)
}

// TotalForYear returns the budgeted total across the year.
func (s *Session) TotalForYear() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.TotalForYear()
}

// AvailableCategories returns the sorted union of categories across the year.
func (s *Session) AvailableCategories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.AvailableCategories()
}

// SpentByCategory returns a copy of the current month's purchase totals.
func (s *Session) SpentByCategory() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]float64, len(s.spent))
	for k, v := range s.spent {
		out[k] = v
	}
	return out
}

// fieldErrors maps validator messages onto the name and amount fields.
func fieldErrors(result budget.ValidationResult) map[string]string {
	fields := make(map[string]string)
	for _, msg := range result.Errors {
		field := "amount"
		if strings.HasPrefix(msg, "Category") {
			field = "name"
		}
		if _, ok := fields[field]; !ok {
			fields[field] = msg
		}
	}
	return fields
}

func removeName(names []string, drop string) []string {
	out := names[:0]
	for _, n := range names {
		if n != drop {
			out = append(out, n)
		}
	}
	return out
}
