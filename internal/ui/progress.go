package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"qigraph/internal/z3log"
)

type progressModel struct {
	title   string
	path    string
	events  <-chan z3log.Event
	spinner spinner.Model
	prog    progress.Model
	printer *message.Printer
	last    z3log.Event
	width   int
	done    bool

	interrupted bool // quit before reading finished
}

type eventMsg z3log.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders log reading
// progress. The model quits when events is closed.
func NewProgressModel(title, path string, events <-chan z3log.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	return &progressModel{
		title:   title,
		path:    path,
		events:  events,
		spinner: sp,
		prog:    prog,
		printer: message.NewPrinter(language.English),
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		ev := z3log.Event(msg)
		m.last = ev
		return m, tea.Batch(m.prog.SetPercent(ev.Fraction()), m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.interrupted = true
			return m, tea.Quit
		}
		return m, nil
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		progressModel, cmd := m.prog.Update(msg)
		m.prog = progressModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

// Interrupted reports whether the user quit the view before reading finished.
func (m *progressModel) Interrupted() bool { return m.interrupted }

func (m *progressModel) View() string {
	stage := m.last.Stage
	if m.done {
		stage = z3log.StageDone
	}
	mark := m.spinner.View()
	if m.done {
		mark = stageStyles[z3log.StageDone].Render("✓")
	}

	var b strings.Builder
	label := stageStyles[stage].Render(fmt.Sprintf("%-8s", stageLabel(stage)))
	pathWidth := max(m.width-lipgloss.Width(m.title)-14, 16)
	fmt.Fprintf(&b, "%s %s %s %s\n", mark, progressTitle.Render(m.title), label, truncatePath(m.path, pathWidth))

	counts := m.printer.Sprintf("%d lines", m.last.Lines)
	if m.last.Total > 0 {
		counts += m.printer.Sprintf(", %d of %d KiB", m.last.Bytes>>10, m.last.Total>>10)
	}
	b.WriteString(progressDim.Render("  " + counts))
	b.WriteString("\n")

	if m.done {
		b.WriteString(m.prog.ViewAs(1))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

var (
	progressTitle = lipgloss.NewStyle().Bold(true)
	progressDim   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	stageStyles   = map[z3log.Stage]lipgloss.Style{
		0:               lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
		z3log.StageRead: lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		z3log.StageDone: lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	}
)

func stageLabel(stage z3log.Stage) string {
	switch stage {
	case z3log.StageRead:
		return "reading"
	case z3log.StageDone:
		return "done"
	}
	return "queued"
}

// truncate cuts value on the right to fit width cells.
func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}

// truncatePath keeps the end of a path, where the file name is.
func truncatePath(path string, width int) string {
	if width <= 3 || runewidth.StringWidth(path) <= width {
		return path
	}
	rs := []rune(path)
	w := 3 // "..."
	i := len(rs)
	for i > 0 {
		rw := runewidth.RuneWidth(rs[i-1])
		if w+rw > width {
			break
		}
		w += rw
		i--
	}
	return "..." + string(rs[i:])
}
