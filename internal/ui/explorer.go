package ui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"qigraph/internal/instgraph"
	"qigraph/internal/qi"
)

type pane uint8

const (
	paneConsumers pane = iota // nodes the focused node triggered
	paneProducers             // nodes that triggered the focused node
)

func (p pane) String() string {
	if p == paneProducers {
		return "triggered by"
	}
	return "triggers"
}

var (
	explorerTitle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	explorerSelected = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("6"))
	explorerDim      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	explorerPane     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
)

// Explorer is a Bubble Tea model for browsing the causal graph.
//
// Without a focused node it shows every node ordered by out-degree. Focusing a
// node lists its consumers and producers; following an edge pushes the
// previous focus on a history stack.
type Explorer struct {
	g     *instgraph.Graph
	indeg map[qi.Key]int

	all     []qi.Key // out-degree desc, then key
	visible []qi.Key // all, narrowed by the filter
	cursor  int

	focused   bool
	focus     qi.Key
	history   []qi.Key
	pane      pane
	neighbour int

	filter    textinput.Model
	filtering bool

	width  int
	height int
}

// NewExplorer prepares an explorer over g.
func NewExplorer(g *instgraph.Graph) *Explorer {
	all := g.SortedNodes()
	slices.SortStableFunc(all, func(a, b qi.Key) int {
		return len(g.Edges[b]) - len(g.Edges[a])
	})

	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "quantifier name"
	ti.CharLimit = 128

	return &Explorer{
		g:       g,
		indeg:   g.InDegrees(),
		all:     all,
		visible: all,
		filter:  ti,
		width:   80,
		height:  24,
	}
}

// RunExplorer opens the explorer full-screen and blocks until the user quits.
func RunExplorer(g *instgraph.Graph) error {
	_, err := tea.NewProgram(NewExplorer(g), tea.WithAltScreen()).Run()
	return err
}

func (m *Explorer) Init() tea.Cmd { return nil }

func (m *Explorer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.filtering {
			return m.updateFilter(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m *Explorer) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.filtering = false
		m.filter.Blur()
		return m, nil
	case tea.KeyEsc:
		m.filtering = false
		m.filter.Blur()
		m.filter.SetValue("")
		m.applyFilter()
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m *Explorer) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		m.move(-1)
	case "down", "j":
		m.move(1)
	case "tab":
		if m.focused {
			m.pane ^= 1
			m.neighbour = 0
		}
	case "enter":
		m.enter()
	case "backspace":
		m.back()
	case "/":
		if !m.focused {
			m.filtering = true
			return m, m.filter.Focus()
		}
	}
	return m, nil
}

func (m *Explorer) move(delta int) {
	if m.focused {
		m.neighbour = clamp(m.neighbour+delta, len(m.neighbours()))
		return
	}
	m.cursor = clamp(m.cursor+delta, len(m.visible))
}

func (m *Explorer) enter() {
	if !m.focused {
		if len(m.visible) == 0 {
			return
		}
		m.focusOn(m.visible[m.cursor])
		return
	}
	ns := m.neighbours()
	if len(ns) == 0 {
		return
	}
	m.history = append(m.history, m.focus)
	m.focusOn(ns[m.neighbour])
}

func (m *Explorer) back() {
	if !m.focused {
		return
	}
	if n := len(m.history); n > 0 {
		prev := m.history[n-1]
		m.history = m.history[:n-1]
		m.focusOn(prev)
		return
	}
	m.focused = false
}

func (m *Explorer) focusOn(k qi.Key) {
	m.focused = true
	m.focus = k
	m.pane = paneConsumers
	m.neighbour = 0
}

func (m *Explorer) neighbours() []qi.Key {
	if m.pane == paneProducers {
		return m.g.Predecessors(m.focus)
	}
	return m.g.Successors(m.focus)
}

func (m *Explorer) applyFilter() {
	needle := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	if needle == "" {
		m.visible = m.all
	} else {
		m.visible = make([]qi.Key, 0, len(m.all))
		for _, k := range m.all {
			if strings.Contains(strings.ToLower(m.g.Names[k]), needle) {
				m.visible = append(m.visible, k)
			}
		}
	}
	m.cursor = clamp(m.cursor, len(m.visible))
}

func (m *Explorer) View() string {
	var b strings.Builder
	if m.focused {
		m.viewFocus(&b)
	} else {
		m.viewList(&b)
	}
	return b.String()
}

func (m *Explorer) viewList(b *strings.Builder) {
	b.WriteString(explorerTitle.Render(fmt.Sprintf("instantiation graph: %d nodes, %d edges", len(m.g.Nodes), m.g.EdgeCount())))
	b.WriteString("\n")
	if m.filtering || m.filter.Value() != "" {
		b.WriteString(m.filter.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")
	m.writeRows(b, m.visible, m.cursor, m.height-6)
	b.WriteString("\n")
	b.WriteString(explorerDim.Render("enter focus  / filter  q quit"))
}

func (m *Explorer) viewFocus(b *strings.Builder) {
	b.WriteString(explorerTitle.Render(m.row(m.focus)))
	b.WriteString("\n")
	if len(m.history) > 0 {
		trail := make([]string, 0, len(m.history))
		for _, k := range m.history {
			trail = append(trail, m.g.Names[k])
		}
		b.WriteString(explorerDim.Render(truncate("via "+strings.Join(trail, " > "), m.width)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	for _, p := range []pane{paneConsumers, paneProducers} {
		label := p.String()
		if p == m.pane {
			label = explorerPane.Render("> " + label)
		} else {
			label = explorerDim.Render("  " + label)
		}
		b.WriteString(label)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	ns := m.neighbours()
	if len(ns) == 0 {
		b.WriteString(explorerDim.Render("  (none)"))
		b.WriteString("\n")
	}
	m.writeRows(b, ns, m.neighbour, m.height-10)
	b.WriteString("\n")
	b.WriteString(explorerDim.Render("enter follow  tab switch  backspace back  q quit"))
}

// writeRows renders keys, scrolled so that the cursor stays visible.
func (m *Explorer) writeRows(b *strings.Builder, keys []qi.Key, cursor, rows int) {
	rows = max(rows, 3)
	start := 0
	if cursor >= rows {
		start = cursor - rows + 1
	}
	end := min(start+rows, len(keys))
	for i := start; i < end; i++ {
		line := truncate(m.row(keys[i]), m.width-2)
		if i == cursor {
			b.WriteString(explorerSelected.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	if end < len(keys) {
		b.WriteString(explorerDim.Render(fmt.Sprintf("  ... %d more", len(keys)-end)))
		b.WriteString("\n")
	}
}

func (m *Explorer) row(k qi.Key) string {
	return fmt.Sprintf("%s %s  out %d  in %d", m.g.Names[k], k, len(m.g.Edges[k]), m.indeg[k])
}

func clamp(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
