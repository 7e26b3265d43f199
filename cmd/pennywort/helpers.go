package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"github.com/marchbank/pennywort/internal/common"
	"github.com/marchbank/pennywort/internal/config"
	"github.com/marchbank/pennywort/internal/currency"
	"github.com/marchbank/pennywort/internal/service"
	"github.com/marchbank/pennywort/internal/session"
	"github.com/marchbank/pennywort/internal/storage"
)

// initStorage opens the database and brings the schema up to date.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = config.DefaultDatabasePath()
	} else {
		dbPath = config.ExpandPath(dbPath)
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("Could not open database at %s", dbPath), err)
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, common.NewUserError("Database schema migration failed", err)
	}

	return store, nil
}

// initFormatter builds the currency formatter from config.
func initFormatter() (*currency.Formatter, error) {
	code := viper.GetString("currency.code")
	if code == "" {
		code = "USD"
	}
	locale := viper.GetString("currency.locale")
	if locale == "" {
		locale = "en-US"
	}
	return currency.NewFormatter(code, locale)
}

// logReporter forwards session failures to the structured log.
type logReporter struct{}

func (logReporter) Report(err error, contextLabel string) {
	slog.Error(contextLabel, "error", err)
}

// openSession creates and hydrates a budget session for the given year and
// month. Zero values default to the current date.
func openSession(ctx context.Context, store service.Storage, year, month int) (*session.Session, error) {
	now := time.Now()
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = int(now.Month())
	}

	sess, err := session.New(session.Config{
		Storage:    store,
		Reporter:   logReporter{},
		Year:       year,
		Month:      month,
		NoAutoSave: true, // one-shot commands persist per operation
	})
	if err != nil {
		return nil, err
	}

	if err := sess.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load budget: %w", err)
	}
	return sess, nil
}
