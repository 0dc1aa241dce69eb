package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/CosmoTheDev/ctrlgrade/internal/store"
	"github.com/CosmoTheDev/ctrlgrade/models"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// DashboardModel shows job counts and the most recent analyses.
type DashboardModel struct {
	src      Source
	jobs     []models.AnalysisJob
	counts   map[string]int
	err      error
	width    int
	height   int
	lastLoad time.Time
	loading  bool
}

type dashLoadedMsg struct {
	jobs   []models.AnalysisJob
	counts map[string]int
	err    error
}

type dashTickMsg struct{}

// NewDashboardModel creates a DashboardModel.
func NewDashboardModel(src Source) DashboardModel {
	return DashboardModel{src: src, loading: true}
}

func (d DashboardModel) Init() tea.Cmd {
	return d.loadCmd()
}

func (d DashboardModel) loadCmd() tea.Cmd {
	src := d.src
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		counts, err := src.CountJobs(ctx)
		if err != nil {
			return dashLoadedMsg{err: err}
		}
		jobs, err := src.ListJobs(ctx, store.ListOptions{Limit: 20})
		return dashLoadedMsg{jobs: jobs, counts: counts, err: err}
	}
}

func (d DashboardModel) Update(msg tea.Msg) (DashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case dashLoadedMsg:
		d.loading = false
		d.err = msg.err
		if msg.err == nil {
			d.jobs = msg.jobs
			d.counts = msg.counts
			d.lastLoad = time.Now()
		}
		return d, tea.Tick(10*time.Second, func(time.Time) tea.Msg { return dashTickMsg{} })
	case dashTickMsg:
		return d, d.loadCmd()
	case tea.KeyMsg:
		if msg.String() == "r" {
			d.loading = true
			return d, d.loadCmd()
		}
	}
	return d, nil
}

func (d *DashboardModel) SetSize(w, h int) {
	d.width = w
	d.height = h
}

func (d DashboardModel) View() string {
	if d.loading && len(d.jobs) == 0 {
		return panelStyle.Width(max(20, d.width-2)).Render("Loading analyses...")
	}

	cardW := 16
	if d.width >= 100 {
		cardW = 20
	}
	summary := lipgloss.JoinHorizontal(lipgloss.Top,
		renderCounter("Pending", d.counts[models.JobPending], lowStyle, cardW),
		renderCounter("Running", d.counts[models.JobRunning], mediumStyle, cardW),
		renderCounter("Completed", d.counts[models.JobCompleted], okStyle, cardW),
		renderCounter("Failed", d.counts[models.JobFailed], criticalStyle, cardW),
	)

	lineLimit := max(5, d.height-12)
	var rows strings.Builder
	for i, j := range d.jobs {
		if i >= lineLimit {
			break
		}
		rows.WriteString(jobRow(j, false) + "\n")
	}
	if len(d.jobs) == 0 {
		rows.WriteString(dimStyle.Render("No analyses yet. Run: ctrlgrade analyze <url>") + "\n")
	}

	footer := []string{keycapStyle.Render("r"), " ", dimStyle.Render("refresh"), "   "}
	if d.err != nil {
		footer = append(footer, criticalStyle.Render("load failed: "+d.err.Error()))
	} else {
		updated := "never"
		if !d.lastLoad.IsZero() {
			updated = d.lastLoad.Format("15:04:05")
		}
		footer = append(footer, dimStyle.Render("updated "+updated))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Padding(0, 1).Render(summary),
		panelStyle.Width(max(20, d.width-2)).Render(
			lipgloss.JoinVertical(lipgloss.Left,
				panelHeaderStyle.Render("Recent Analyses"),
				jobHeader(),
				rows.String(),
				lipgloss.JoinHorizontal(lipgloss.Left, footer...),
			),
		),
	)
}

func jobHeader() string {
	return dimStyle.Render(fmt.Sprintf("%-6s %-40s %-12s %-7s %s", "ID", "Target", "Status", "Score", "Verdict"))
}

func jobRow(j models.AnalysisJob, selected bool) string {
	score := dimStyle.Render("  -")
	if j.Status == models.JobCompleted {
		score = scoreStyle(j.Overall).Render(fmt.Sprintf("%3d", j.Overall))
	}
	verdict := j.Verdict
	if j.Status == models.JobFailed {
		verdict = j.ErrorMsg
	}
	row := lipgloss.JoinHorizontal(lipgloss.Left,
		lipgloss.NewStyle().Width(7).Foreground(slate).Render(fmt.Sprintf("#%d", j.ID)),
		lipgloss.NewStyle().Width(41).Foreground(ink).Render(truncate(strings.TrimPrefix(j.URL, "https://"), 39)),
		lipgloss.NewStyle().Width(13).Render(statusBadge(j.Status)),
		lipgloss.NewStyle().Width(8).Render(score),
		dimStyle.Render(truncate(verdict, 36)),
	)
	if selected {
		return selectedRowStyle.Render(row)
	}
	return row
}

func renderCounter(label string, count int, style lipgloss.Style, width int) string {
	return boxStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Center,
			style.Bold(true).Render(fmt.Sprintf("%d", count)),
			dimStyle.Render(strings.ToUpper(label)),
		),
	) + "  "
}
