package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/marchbank/pennywort/internal/currency"
	"github.com/marchbank/pennywort/internal/session"
)

// Run starts the month editor and blocks until the user quits.
func Run(ctx context.Context, sess *session.Session, formatter *currency.Formatter) error {
	if sess == nil {
		return fmt.Errorf("session is required")
	}
	if formatter == nil {
		formatter = currency.MustFormatter("USD", "en-US")
	}

	program := tea.NewProgram(
		newModel(sess, formatter),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
	)

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("editor failed: %w", err)
	}
	return nil
}
