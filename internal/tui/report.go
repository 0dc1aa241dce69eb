package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/CosmoTheDev/ctrlgrade/internal/store"
	"github.com/CosmoTheDev/ctrlgrade/models"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ReportModel renders one stored report with vertical scrolling.
type ReportModel struct {
	src    Source
	jobID  int64
	report *models.AnalysisReport
	err    error
	offset int
	width  int
	height int
}

type reportLoadedMsg struct {
	jobID  int64
	report *models.AnalysisReport
	err    error
}

// NewReportModel creates an empty ReportModel.
func NewReportModel(src Source) ReportModel {
	return ReportModel{src: src}
}

// Load switches the view to jobID and fetches its report.
func (m ReportModel) Load(jobID int64) (ReportModel, tea.Cmd) {
	m.jobID = jobID
	m.report = nil
	m.err = nil
	m.offset = 0
	src := m.src
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		r, err := src.GetReport(ctx, jobID)
		return reportLoadedMsg{jobID: jobID, report: r, err: err}
	}
}

func (m ReportModel) Update(msg tea.Msg) (ReportModel, tea.Cmd) {
	switch msg := msg.(type) {
	case reportLoadedMsg:
		if msg.jobID == m.jobID {
			m.report = msg.report
			m.err = msg.err
		}
	case tea.KeyMsg:
		switch msg.String() {
		case "j", "down":
			m.offset++
		case "k", "up":
			m.offset--
		case "pgdown", " ":
			m.offset += max(1, m.height-4)
		case "pgup":
			m.offset -= max(1, m.height-4)
		case "g", "home":
			m.offset = 0
		}
		m.offset = max(m.offset, 0)
	}
	return m, nil
}

func (m *ReportModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

func (m ReportModel) View() string {
	var body string
	switch {
	case m.jobID == 0:
		body = dimStyle.Render("Select an analysis on the Analyses tab and press enter.")
	case errors.Is(m.err, store.ErrNotFound):
		body = dimStyle.Render(fmt.Sprintf("Analysis #%d has no report yet.", m.jobID))
	case m.err != nil:
		body = criticalStyle.Render("load failed: " + m.err.Error())
	case m.report == nil:
		body = dimStyle.Render("Loading report...")
	default:
		body = RenderReport(m.report, m.width-6)
	}

	lines := strings.Split(body, "\n")
	visible := max(3, m.height-4)
	offset := min(m.offset, max(len(lines)-visible, 0))
	end := min(offset+visible, len(lines))
	return panelStyle.Width(max(20, m.width-2)).Render(
		lipgloss.JoinVertical(lipgloss.Left, lines[offset:end]...),
	)
}
