package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"qigraph/internal/instgraph"
	"qigraph/internal/qi"
)

func key(id uint64) qi.Key { return qi.Key{ID: id} }

// a -> b -> c, a -> c
func sampleGraph() *instgraph.Graph {
	names := map[qi.Key]string{key(1): "alpha", key(2): "beta", key(3): "gamma"}
	return instgraph.Assemble(names, []instgraph.Edge{
		{From: key(1), To: key(2)},
		{From: key(1), To: key(3)},
		{From: key(2), To: key(3)},
	})
}

func press(t *testing.T, m *Explorer, keys ...string) {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "backspace":
			msg = tea.KeyMsg{Type: tea.KeyBackspace}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		model, _ := m.Update(msg)
		if model != m {
			t.Fatalf("Update returned a different model")
		}
	}
}

func TestExplorerOrdersByOutDegree(t *testing.T) {
	m := NewExplorer(sampleGraph())
	want := []qi.Key{key(1), key(2), key(3)}
	for i, k := range want {
		if m.all[i] != k {
			t.Fatalf("order = %v, want %v", m.all, want)
		}
	}
	if !strings.Contains(m.View(), "3 nodes, 3 edges") {
		t.Fatalf("view:\n%s", m.View())
	}
}

func TestExplorerFollowAndBack(t *testing.T) {
	m := NewExplorer(sampleGraph())

	press(t, m, "enter")
	if !m.focused || m.focus != key(1) {
		t.Fatalf("focus = %v (%v)", m.focus, m.focused)
	}
	// consumers of alpha: beta, gamma
	press(t, m, "down", "enter")
	if m.focus != key(3) || len(m.history) != 1 {
		t.Fatalf("after follow: focus %v history %v", m.focus, m.history)
	}

	press(t, m, "tab")
	if m.pane != paneProducers {
		t.Fatalf("pane = %v", m.pane)
	}
	view := m.View()
	if !strings.Contains(view, "alpha") || !strings.Contains(view, "beta") || !strings.Contains(view, "via alpha") {
		t.Fatalf("producer pane view:\n%s", view)
	}

	press(t, m, "backspace")
	if m.focus != key(1) || len(m.history) != 0 {
		t.Fatalf("after back: focus %v history %v", m.focus, m.history)
	}
	press(t, m, "backspace")
	if m.focused {
		t.Fatalf("second back must return to the list")
	}
}

func TestExplorerFilter(t *testing.T) {
	m := NewExplorer(sampleGraph())
	press(t, m, "/")
	if !m.filtering {
		t.Fatalf("filter not active")
	}
	press(t, m, "g", "a", "m")
	if len(m.visible) != 1 || m.visible[0] != key(3) {
		t.Fatalf("visible = %v", m.visible)
	}
	press(t, m, "enter")
	if m.filtering {
		t.Fatalf("enter must close the filter")
	}
	press(t, m, "enter")
	if m.focus != key(3) {
		t.Fatalf("focus = %v", m.focus)
	}

	press(t, m, "backspace", "/", "esc")
	if len(m.visible) != 3 {
		t.Fatalf("esc must clear the filter, visible = %v", m.visible)
	}
}

func TestExplorerQuit(t *testing.T) {
	m := NewExplorer(sampleGraph())
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatalf("q must quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("q returned %T", cmd())
	}
}

func TestExplorerEmptyGraph(t *testing.T) {
	m := NewExplorer(instgraph.Assemble(nil, nil))
	press(t, m, "down", "enter", "tab", "backspace")
	if m.focused {
		t.Fatalf("empty graph cannot focus")
	}
	if !strings.Contains(m.View(), "0 nodes") {
		t.Fatalf("view:\n%s", m.View())
	}
}
