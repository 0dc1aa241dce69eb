package tui

import (
	"context"
	"time"

	"github.com/CosmoTheDev/ctrlgrade/internal/store"
	"github.com/CosmoTheDev/ctrlgrade/models"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// AnalysesModel is a browsable, status-filtered job list.
type AnalysesModel struct {
	src     Source
	jobs    []models.AnalysisJob
	filter  string // "" or a job status
	cursor  int
	width   int
	height  int
	err     error
	loading bool
}

type analysesLoadedMsg struct {
	filter string
	jobs   []models.AnalysisJob
	err    error
}

// openReportMsg asks the App to show the report for a job.
type openReportMsg struct{ jobID int64 }

// NewAnalysesModel creates an AnalysesModel.
func NewAnalysesModel(src Source) AnalysesModel {
	return AnalysesModel{src: src, loading: true}
}

func (m AnalysesModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m AnalysesModel) loadCmd() tea.Cmd {
	src, filter := m.src, m.filter
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		jobs, err := src.ListJobs(ctx, store.ListOptions{Status: filter, Limit: 200})
		return analysesLoadedMsg{filter: filter, jobs: jobs, err: err}
	}
}

func (m AnalysesModel) Update(msg tea.Msg) (AnalysesModel, tea.Cmd) {
	switch msg := msg.(type) {
	case analysesLoadedMsg:
		if msg.filter != m.filter {
			return m, nil
		}
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.jobs = msg.jobs
		}
	case tea.KeyMsg:
		switch msg.String() {
		case "j", "down":
			m.cursor++
		case "k", "up":
			m.cursor--
		case "g", "home":
			m.cursor = 0
		case "G", "end":
			m.cursor = len(m.jobs) - 1
		case "a":
			return m.setFilter("")
		case "p":
			return m.setFilter(models.JobPending)
		case "c":
			return m.setFilter(models.JobCompleted)
		case "f":
			return m.setFilter(models.JobFailed)
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "enter":
			if j, ok := m.selected(); ok {
				return m, func() tea.Msg { return openReportMsg{jobID: j.ID} }
			}
		}
	}
	m.cursor = min(max(m.cursor, 0), max(len(m.jobs)-1, 0))
	return m, nil
}

func (m AnalysesModel) setFilter(status string) (AnalysesModel, tea.Cmd) {
	m.filter = status
	m.cursor = 0
	m.loading = true
	return m, m.loadCmd()
}

func (m AnalysesModel) selected() (models.AnalysisJob, bool) {
	if m.cursor < 0 || m.cursor >= len(m.jobs) {
		return models.AnalysisJob{}, false
	}
	return m.jobs[m.cursor], true
}

func (m *AnalysesModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

func (m AnalysesModel) View() string {
	filter := m.filter
	if filter == "" {
		filter = "all"
	}
	header := lipgloss.JoinHorizontal(lipgloss.Left,
		panelHeaderStyle.Render("Analyses"), "  ", mutedBadgeStyle.Render(filter),
	)

	lineLimit := max(5, m.height-8)
	start := 0
	if m.cursor >= lineLimit {
		start = m.cursor - lineLimit + 1
	}
	rows := []string{header, jobHeader()}
	switch {
	case m.err != nil:
		rows = append(rows, criticalStyle.Render("load failed: "+m.err.Error()))
	case m.loading && len(m.jobs) == 0:
		rows = append(rows, dimStyle.Render("Loading..."))
	case len(m.jobs) == 0:
		rows = append(rows, dimStyle.Render("No analyses match this filter."))
	}
	for i := start; i < len(m.jobs) && i < start+lineLimit; i++ {
		rows = append(rows, jobRow(m.jobs[i], i == m.cursor))
	}
	rows = append(rows, "", dimStyle.Render("enter report  a all  p pending  c completed  f failed  r refresh"))

	return panelStyle.Width(max(20, m.width-2)).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
