package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stackctl/internal/catalog"
)

func menuCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]catalog.ServiceDescriptor{
		{ID: "sonarr", Image: "example/sonarr:1.0.0", Category: catalog.CategoryMediaManagement},
		{ID: "radarr", Image: "example/radarr:1.0.0", Category: catalog.CategoryMediaManagement},
		{ID: "postgres", Image: "postgres:16.6-alpine", Category: catalog.CategoryDatabase},
	})
	require.NoError(t, err)
	return c
}

func keyPress(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	if s == "enter" {
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		var ok bool
		m, ok = next.(Model)
		require.True(t, ok)
	}
	return m
}

func TestModel_ToggleAndConfirm(t *testing.T) {
	m := NewModel(menuCatalog(t), nil)

	// First row is postgres (database sorts before media-management).
	m = update(t, m, keyPress(" "), keyPress("enter"))

	ids, ok := m.Selection()
	require.True(t, ok)
	assert.Equal(t, []string{"postgres"}, ids)
}

func TestModel_AbortReturnsNothing(t *testing.T) {
	m := NewModel(menuCatalog(t), nil)
	m = update(t, m, keyPress(" "), keyPress("q"))

	_, ok := m.Selection()
	assert.False(t, ok)
}

func TestModel_SelectAllAndNone(t *testing.T) {
	m := NewModel(menuCatalog(t), nil)

	m = update(t, m, keyPress("a"), keyPress("enter"))
	ids, ok := m.Selection()
	require.True(t, ok)
	assert.Equal(t, []string{"postgres", "radarr", "sonarr"}, ids)

	m = NewModel(menuCatalog(t), []string{"sonarr"})
	m = update(t, m, keyPress("n"), keyPress("enter"))
	ids, ok = m.Selection()
	require.True(t, ok)
	assert.Empty(t, ids)
}

func TestModel_PreselectedKept(t *testing.T) {
	m := NewModel(menuCatalog(t), []string{"radarr"})
	m = update(t, m, keyPress("enter"))

	ids, ok := m.Selection()
	require.True(t, ok)
	assert.Equal(t, []string{"radarr"}, ids)
}

func TestModel_ViewShowsCategoriesAndHelp(t *testing.T) {
	m := NewModel(menuCatalog(t), nil)
	view := m.View()
	assert.Contains(t, view, "database")
	assert.Contains(t, view, "media-management")
	assert.Contains(t, view, "sonarr")
	assert.Contains(t, view, "enter: confirm")
}
