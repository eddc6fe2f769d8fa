package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"linecheck/internal/suite"
)

type progressModel struct {
	title   string
	events  <-chan suite.Event
	spinner spinner.Model
	prog    progress.Model
	items   []fixtureItem
	index   map[string]int
	passed  int
	failed  int
	cached  int
	width   int
	done    bool
}

type fixtureItem struct {
	name   string
	status suite.Status
	detail string
}

type eventMsg suite.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders suite progress
// for the named fixtures. It quits when events is closed.
func NewProgressModel(title string, fixtures []string, events <-chan suite.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	items := make([]fixtureItem, 0, len(fixtures))
	index := make(map[string]int, len(fixtures))
	for i, name := range fixtures {
		items = append(items, fixtureItem{name: name, status: suite.StatusQueued})
		index[name] = i
	}
	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   items,
		index:   index,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(suite.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
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
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *progressModel) View() string {
	if len(m.items) == 0 {
		return ""
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := fmt.Sprintf("%s (%d/%d)", m.title, m.passed+m.failed, len(m.items))
	if m.done {
		header = fmt.Sprintf("done: %s", header)
	} else {
		header = fmt.Sprintf("%s %s", m.spinner.View(), header)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	statusWidth := 12
	nameWidth := max(m.width-statusWidth-4, 20)

	for _, item := range m.items {
		label := string(item.status)
		if item.detail != "" {
			label = item.detail
		}
		statusStyled := styleStatus(item.status).Render(fmt.Sprintf("%12s", truncate(label, statusWidth)))
		fmt.Fprintf(&b, "  %s %s\n", statusStyled, truncate(item.name, nameWidth))
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%d passed, %d failed, %d cached\n", m.passed, m.failed, m.cached)

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

func (m *progressModel) applyEvent(ev suite.Event) tea.Cmd {
	idx, ok := m.index[ev.Fixture]
	if !ok {
		return nil
	}
	item := &m.items[idx]
	if item.status.Done() {
		return nil
	}
	item.status = ev.Status
	switch ev.Status {
	case suite.StatusPassed:
		m.passed++
	case suite.StatusFailed:
		m.failed++
		item.detail = ev.Kind.String()
	case suite.StatusError:
		m.failed++
	}
	if ev.Cached {
		m.cached++
		if ev.Status == suite.StatusPassed {
			item.detail = "cached"
		}
	}

	total := 0.0
	for _, it := range m.items {
		total += progressFromStatus(it.status)
	}
	return m.prog.SetPercent(total / float64(len(m.items)))
}

func progressFromStatus(status suite.Status) float64 {
	switch status {
	case suite.StatusWorking:
		return 0.5
	case suite.StatusPassed, suite.StatusFailed, suite.StatusError:
		return 1.0
	default:
		return 0.0
	}
}

func styleStatus(status suite.Status) lipgloss.Style {
	switch status {
	case suite.StatusPassed:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case suite.StatusFailed, suite.StatusError:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case suite.StatusWorking:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
