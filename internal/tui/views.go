package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/marchbank/pennywort/internal/cli"
	"github.com/marchbank/pennywort/internal/session"
)

var (
	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(cli.PrimaryColor)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(cli.SubtleColor)

	overBudgetStyle = lipgloss.NewStyle().
			Foreground(cli.ErrorColor)
)

// View renders the UI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return statusBarStyle.Render("Loading budget...")
	}

	switch m.mode {
	case modeHelp:
		return m.renderHelp()
	case modeAdd:
		return m.renderForm("Add category")
	case modeEdit:
		return m.renderForm("Edit category")
	case modeDelete:
		return m.renderDelete()
	default:
		return m.renderTable()
	}
}

// renderTable is the main month view.
func (m Model) renderTable() string {
	var b strings.Builder

	month := time.Month(m.session.Month()).String()
	b.WriteString(cli.FormatTitle(fmt.Sprintf("%s %d", month, m.session.Year())))
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString(cli.SubtleStyle.Render("No categories budgeted this month. Press 'a' to add one."))
		b.WriteString("\n")
	} else {
		header := fmt.Sprintf("  %-28s %12s %12s", "Category", "Budgeted", "Spent")
		b.WriteString(cli.TableHeaderStyle.Render(header))
		b.WriteString("\n")

		for i, r := range m.rows {
			line := fmt.Sprintf("%-28s %12s %12s",
				truncate(r.name, 28),
				m.formatter.Format(r.amount),
				m.formatter.Format(r.spent))

			switch {
			case i == m.cursor:
				b.WriteString(selectedStyle.Render("> " + line))
			case r.spent > r.amount:
				b.WriteString("  " + overBudgetStyle.Render(line))
			default:
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}

		b.WriteString("\n")
		total := fmt.Sprintf("  %-28s %12s", "Total", m.formatter.Format(m.session.TotalForMonth(m.session.Month())))
		b.WriteString(cli.BoldStyle.Render(total))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

// renderStatusBar shows save state, propagation, and errors.
func (m Model) renderStatusBar() string {
	var parts []string

	if m.session.HasUnsavedChanges() {
		parts = append(parts, cli.WarningStyle.Render("unsaved changes"))
	} else {
		parts = append(parts, "saved")
	}

	if m.propagate {
		parts = append(parts, "propagate: on")
	} else {
		parts = append(parts, "propagate: off")
	}

	if m.session.ViewState() == session.StateError && m.session.LastError() != nil {
		parts = append(parts, cli.ErrorStyle.Render(m.session.LastError().Error()))
	} else if errs := m.session.ValidationErrors(); len(errs) > 0 {
		for _, msg := range errs {
			parts = append(parts, cli.WarningStyle.Render(msg))
			break
		}
	}

	parts = append(parts, "? for help")
	return statusBarStyle.Render(strings.Join(parts, "  ·  "))
}

// renderForm is the add/edit input view.
func (m Model) renderForm(title string) string {
	var b strings.Builder
	b.WriteString(cli.FormatTitle(title))
	b.WriteString("\n\n")
	b.WriteString("Name:   " + m.nameInput.View() + "\n")
	b.WriteString("Amount: " + m.amtInput.View() + "\n\n")

	if m.propagate {
		b.WriteString(cli.SubtleStyle.Render("Applies to this and all later months (p toggles)"))
	} else {
		b.WriteString(cli.SubtleStyle.Render("Applies to this month only (p toggles)"))
	}
	b.WriteString("\n\n")
	b.WriteString(statusBarStyle.Render("tab switch field  ·  enter confirm  ·  esc cancel"))
	return b.String()
}

// renderDelete is the delete confirmation view.
func (m Model) renderDelete() string {
	name := m.rows[m.cursor].name
	scope := "this month"
	if m.propagate {
		scope = "this and all later months"
	}
	content := fmt.Sprintf("Delete %q for %s?\n\n%s",
		name, scope,
		statusBarStyle.Render("y confirm  ·  n cancel"))
	return cli.RenderBox("Confirm delete", content)
}

// renderHelp lists the key bindings.
func (m Model) renderHelp() string {
	help := strings.Join([]string{
		"↑/k ↓/j     move between categories",
		"←/h →/l     previous / next month",
		"a           add category",
		"e/enter     edit selected category",
		"d           delete selected category",
		"p           toggle propagation to later months",
		"s           save immediately",
		"q           quit",
	}, "\n")
	return cli.RenderBox("Key bindings", help)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-1] + "…"
}
