// Package tui implements the interactive service selection menu shown by
// `stackctl install` when no services are named on the command line. It is
// presentation glue only: the selected ids are handed back to the CLI,
// which runs the same pipeline as a non-interactive invocation.
package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"stackctl/internal/catalog"
)

// keyMap defines the menu keybindings.
type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Toggle  key.Binding
	All     key.Binding
	None    key.Binding
	Confirm key.Binding
	Abort   key.Binding
}

var keys = keyMap{
	Up:      key.NewBinding(key.WithKeys("up", "k")),
	Down:    key.NewBinding(key.WithKeys("down", "j")),
	Toggle:  key.NewBinding(key.WithKeys(" ")),
	All:     key.NewBinding(key.WithKeys("a")),
	None:    key.NewBinding(key.WithKeys("n")),
	Confirm: key.NewBinding(key.WithKeys("enter")),
	Abort:   key.NewBinding(key.WithKeys("q", "esc", "ctrl+c")),
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"})
	categoryStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"})
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"})
	checkedStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"})
	helpStyle     = lipgloss.NewStyle().Faint(true)
)

// row is one selectable line. Category headers are not selectable and are
// represented separately during rendering.
type row struct {
	id       string
	image    string
	category catalog.Category
}

// Model is the bubbletea model for the selection menu.
type Model struct {
	rows     []row
	cursor   int
	selected map[string]bool
	width    int

	// confirmed is set when the operator accepts the selection; aborted
	// when the menu is quit without confirming.
	confirmed bool
	aborted   bool
}

// NewModel builds the menu from the catalog, grouped by category.
func NewModel(cat *catalog.Catalog, preselected []string) Model {
	byCategory := make(map[catalog.Category][]row)
	for _, id := range cat.AllIDs() {
		d, _ := cat.Lookup(id)
		byCategory[d.Category] = append(byCategory[d.Category], row{
			id:       d.ID,
			image:    d.Image,
			category: d.Category,
		})
	}

	categories := make([]catalog.Category, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })

	var rows []row
	for _, c := range categories {
		rows = append(rows, byCategory[c]...)
	}

	selected := make(map[string]bool)
	for _, id := range preselected {
		selected[id] = true
	}

	return Model{rows: rows, selected: selected, width: 80}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Abort):
			m.aborted = true
			return m, tea.Quit
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.rows)-1 {
				m.cursor++
			}
		case key.Matches(msg, keys.Toggle):
			id := m.rows[m.cursor].id
			m.selected[id] = !m.selected[id]
		case key.Matches(msg, keys.All):
			for _, r := range m.rows {
				m.selected[r.id] = true
			}
		case key.Matches(msg, keys.None):
			m.selected = make(map[string]bool)
		case key.Matches(msg, keys.Confirm):
			m.confirmed = true
			return m, tea.Quit
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Select services to install"))
	b.WriteString("\n\n")

	var lastCategory catalog.Category
	for i, r := range m.rows {
		if r.category != lastCategory {
			if lastCategory != "" {
				b.WriteString("\n")
			}
			b.WriteString(categoryStyle.Render(string(r.category)))
			b.WriteString("\n")
			lastCategory = r.category
		}

		cursor := "  "
		if i == m.cursor {
			cursor = cursorStyle.Render("> ")
		}
		check := "[ ]"
		if m.selected[r.id] {
			check = checkedStyle.Render("[x]")
		}

		label := fmt.Sprintf("%-16s %s", r.id, r.image)
		maxWidth := m.width - 8
		if maxWidth > 0 {
			label = runewidth.Truncate(label, maxWidth, "…")
		}
		fmt.Fprintf(&b, "%s%s %s\n", cursor, check, label)
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("space: toggle • a: all • n: none • enter: confirm • q: abort"))
	b.WriteString("\n")
	return b.String()
}

// Selection returns the confirmed ids in lexicographic order, or ok=false
// if the menu was aborted.
func (m Model) Selection() (ids []string, ok bool) {
	if m.aborted || !m.confirmed {
		return nil, false
	}
	for id, on := range m.selected {
		if on {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, true
}

// Run shows the menu and blocks until the operator confirms or aborts.
func Run(cat *catalog.Catalog, preselected []string) ([]string, bool, error) {
	program := tea.NewProgram(NewModel(cat, preselected))
	final, err := program.Run()
	if err != nil {
		return nil, false, fmt.Errorf("selection menu failed: %w", err)
	}
	model, ok := final.(Model)
	if !ok {
		return nil, false, fmt.Errorf("unexpected model type %T", final)
	}
	ids, confirmed := model.Selection()
	return ids, confirmed, nil
}
