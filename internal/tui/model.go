// Package tui is the interactive month editor built on bubbletea. It drives
// a budget session: every edit goes through the session so validation,
// persistence, and auto-save behave exactly as they do everywhere else.
package tui

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/marchbank/pennywort/internal/currency"
	"github.com/marchbank/pennywort/internal/session"
)

// mode is the editor's input mode.
type mode int

const (
	modeBrowse mode = iota
	modeAdd
	modeEdit
	modeDelete
	modeHelp
)

// row is one category line in the table.
type row struct {
	name   string
	amount float64
	spent  float64
}

// Model holds the editor state.
type Model struct {
	session   *session.Session
	formatter *currency.Formatter
	keymap    KeyMap
	rows      []row
	nameInput textinput.Model
	amtInput  textinput.Model
	editName  string
	mode      mode
	cursor    int
	focusAmt  bool
	propagate bool
	width     int
	height    int
	quitting  bool
	ready     bool
	lastErr   error
}

// newModel creates an editor bound to a session.
func newModel(sess *session.Session, formatter *currency.Formatter) Model {
	name := textinput.New()
	name.Placeholder = "Category name"
	name.CharLimit = 64

	amt := textinput.New()
	amt.Placeholder = "0.00"
	amt.CharLimit = 12

	return Model{
		session:   sess,
		formatter: formatter,
		keymap:    DefaultKeyMap(),
		nameInput: name,
		amtInput:  amt,
		propagate: true,
	}
}

// Init starts the initial load.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		func() tea.Msg {
			return loadDoneMsg{err: m.session.Load(context.Background())}
		},
	)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadDoneMsg:
		m.ready = true
		m.lastErr = msg.err
		m.refreshRows()
		return m, nil

	case opDoneMsg, saveDoneMsg:
		switch done := msg.(type) {
		case opDoneMsg:
			m.lastErr = done.err
		case saveDoneMsg:
			m.lastErr = done.err
		}
		m.refreshRows()
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeBrowse:
			return m.updateBrowse(msg)
		case modeAdd, modeEdit:
			return m.updateForm(msg)
		case modeDelete:
			return m.updateDelete(msg)
		case modeHelp:
			if key.Matches(msg, m.keymap.Help) || key.Matches(msg, m.keymap.Cancel) {
				m.mode = modeBrowse
			}
			return m, nil
		}
	}

	return m, nil
}

// updateBrowse handles keys in the table view.
func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		m.session.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Help):
		m.mode = modeHelp

	case key.Matches(msg, m.keymap.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keymap.Down):
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keymap.PrevMonth):
		if month := m.session.Month(); month > 1 {
			m.session.SetMonth(month - 1)
			m.refreshRows()
		}

	case key.Matches(msg, m.keymap.NextMonth):
		if month := m.session.Month(); month < 12 {
			m.session.SetMonth(month + 1)
			m.refreshRows()
		}

	case key.Matches(msg, m.keymap.Propagate):
		m.propagate = !m.propagate

	case key.Matches(msg, m.keymap.Add):
		m.mode = modeAdd
		m.editName = ""
		m.nameInput.SetValue("")
		m.amtInput.SetValue("")
		m.focusAmt = false
		m.nameInput.Focus()
		m.amtInput.Blur()

	case key.Matches(msg, m.keymap.Edit):
		if len(m.rows) == 0 {
			break
		}
		current := m.rows[m.cursor]
		m.mode = modeEdit
		m.editName = current.name
		m.nameInput.SetValue(current.name)
		m.amtInput.SetValue(strconv.FormatFloat(current.amount, 'f', 2, 64))
		m.focusAmt = true
		m.nameInput.Blur()
		m.amtInput.Focus()

	case key.Matches(msg, m.keymap.Delete):
		if len(m.rows) > 0 {
			m.mode = modeDelete
		}

	case key.Matches(msg, m.keymap.Save):
		return m, func() tea.Msg {
			return saveDoneMsg{err: m.session.Save(context.Background())}
		}
	}

	return m, nil
}

// updateForm handles keys while adding or editing a category.
func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Cancel):
		m.mode = modeBrowse
		return m, nil

	case msg.String() == "tab":
		m.focusAmt = !m.focusAmt
		if m.focusAmt {
			m.nameInput.Blur()
			m.amtInput.Focus()
		} else {
			m.amtInput.Blur()
			m.nameInput.Focus()
		}
		return m, nil

	case key.Matches(msg, m.keymap.Confirm):
		return m.submitForm()
	}

	var cmd tea.Cmd
	if m.focusAmt {
		m.amtInput, cmd = m.amtInput.Update(msg)
	} else {
		m.nameInput, cmd = m.nameInput.Update(msg)
	}
	return m, cmd
}

// submitForm runs the add or rename through the session.
func (m Model) submitForm() (tea.Model, tea.Cmd) {
	name := strings.TrimSpace(m.nameInput.Value())
	amount, err := strconv.ParseFloat(strings.TrimSpace(m.amtInput.Value()), 64)
	if err != nil {
		m.lastErr = err
		return m, nil
	}

	wasAdd := m.mode == modeAdd
	oldName := m.editName
	month := m.session.Month()
	propagate := m.propagate
	sess := m.session

	m.mode = modeBrowse
	return m, func() tea.Msg {
		ctx := context.Background()
		if wasAdd {
			return opDoneMsg{err: sess.AddCategory(ctx, month, name, amount, propagate)}
		}
		if name == oldName {
			return opDoneMsg{err: sess.UpdateCategory(ctx, month, name, amount)}
		}
		return opDoneMsg{err: sess.RenameCategory(ctx, month, oldName, name, amount, propagate)}
	}
}

// updateDelete handles the delete confirmation.
func (m Model) updateDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		name := m.rows[m.cursor].name
		month := m.session.Month()
		propagate := m.propagate
		sess := m.session
		m.mode = modeBrowse
		return m, func() tea.Msg {
			return opDoneMsg{err: sess.DeleteCategory(context.Background(), name, month, propagate)}
		}
	case "n", "esc":
		m.mode = modeBrowse
	}
	return m, nil
}

// refreshRows rebuilds the table from the session's current month.
func (m *Model) refreshRows() {
	snapshot := m.session.MonthSnapshot(m.session.Month())
	spent := m.session.SpentByCategory()

	rows := make([]row, 0, len(snapshot))
	for name, amount := range snapshot {
		rows = append(rows, row{name: name, amount: amount, spent: spent[name]})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].name < rows[j].name })
	m.rows = rows

	if m.cursor >= len(rows) {
		m.cursor = len(rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}
