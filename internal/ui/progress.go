// Package ui holds the terminal progress view shown while a trace is
// processed.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"tracetree/internal/pipeline"
)

type progressModel struct {
	title   string
	item    string
	events  <-chan pipeline.Event
	spinner spinner.Model
	prog    progress.Model
	rows    []stageRow
	index   map[pipeline.Stage]int
	failure error
	width   int
	done    bool
}

type stageRow struct {
	stage   pipeline.Stage
	status  string
	elapsed string
}

type eventMsg pipeline.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders one row per
// pipeline stage for item. The model quits once events is closed.
func NewProgressModel(title, item string, events <-chan pipeline.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76 // Default width

	rows := make([]stageRow, 0, len(pipeline.Stages))
	index := make(map[pipeline.Stage]int, len(pipeline.Stages))
	for i, stage := range pipeline.Stages {
		rows = append(rows, stageRow{stage: stage, status: "queued"})
		index[stage] = i
	}
	return &progressModel{
		title:   title,
		item:    item,
		events:  events,
		spinner: sp,
		prog:    prog,
		rows:    rows,
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
		cmd := m.applyEvent(pipeline.Event(msg))
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
	}
	return m, nil
}

func (m *progressModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if m.item != "" {
		header = fmt.Sprintf("%s %s", header, truncate(m.item, max(m.width-len(header)-6, 10)))
	}
	if m.done {
		header = fmt.Sprintf("done: %s", header)
	} else {
		header = fmt.Sprintf("%s %s", m.spinner.View(), header)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	for _, row := range m.rows {
		statusStyled := styleStatus(row.status).Render(fmt.Sprintf("%12s", row.status))
		line := fmt.Sprintf("  %s %-6s %s", statusStyled, row.stage, row.elapsed)
		b.WriteString(strings.TrimRight(line, " "))
		b.WriteString("\n")
	}
	if m.failure != nil {
		b.WriteString("\n")
		b.WriteString(styleStatus("error").Render(truncate(m.failure.Error(), m.width-2)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
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

func (m *progressModel) applyEvent(ev pipeline.Event) tea.Cmd {
	idx, ok := m.index[ev.Stage]
	if !ok {
		return nil
	}
	if label := statusLabel(ev.Stage, ev.Status); label != "" {
		m.rows[idx].status = label
	}
	if ev.Elapsed > 0 {
		m.rows[idx].elapsed = fmt.Sprintf("%.1f ms", float64(ev.Elapsed.Microseconds())/1000)
	}
	if ev.Err != nil {
		m.failure = ev.Err
	}
	return m.prog.SetPercent(m.percent())
}

// percent counts finished stages; a running stage counts for half.
func (m *progressModel) percent() float64 {
	total := 0.0
	for _, row := range m.rows {
		switch row.status {
		case "done", "skipped", "error":
			total += 1.0
		case "queued":
		default:
			total += 0.5
		}
	}
	return total / float64(len(m.rows))
}

func statusLabel(stage pipeline.Stage, status pipeline.Status) string {
	switch status {
	case pipeline.StatusQueued:
		return "queued"
	case pipeline.StatusDone:
		return "done"
	case pipeline.StatusSkipped:
		return "skipped"
	case pipeline.StatusError:
		return "error"
	case pipeline.StatusWorking:
		return stageLabel(stage)
	default:
		return ""
	}
}

func stageLabel(stage pipeline.Stage) string {
	switch stage {
	case pipeline.StageRead:
		return "reading"
	case pipeline.StageBuild:
		return "building"
	case pipeline.StageText, pipeline.StageDot:
		return "writing"
	default:
		return ""
	}
}

func styleStatus(status string) lipgloss.Style {
	switch status {
	case "done":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case "error":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case "reading", "building", "writing":
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
