package tui

import (
	"context"
	"fmt"

	"github.com/CosmoTheDev/ctrlgrade/internal/config"
	"github.com/CosmoTheDev/ctrlgrade/internal/store"
	"github.com/CosmoTheDev/ctrlgrade/models"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Source is the read side of the store the TUI needs.
type Source interface {
	ListJobs(ctx context.Context, opts store.ListOptions) ([]models.AnalysisJob, error)
	CountJobs(ctx context.Context) (map[string]int, error)
	GetReport(ctx context.Context, jobID int64) (*models.AnalysisReport, error)
}

// Tab represents a TUI navigation tab.
type Tab int

const (
	TabDashboard Tab = iota
	TabAnalyses
	TabReport
)

var tabNames = []string{"Dashboard", "Analyses", "Report"}
var tabCompactNames = []string{"Dash", "List", "Report"}
var tabTinyNames = []string{"D", "A", "R"}

// App is the root bubbletea model.
type App struct {
	cfg       *config.Config
	width     int
	height    int
	activeTab Tab
	dashboard DashboardModel
	analyses  AnalysesModel
	report    ReportModel
}

// NewApp creates the TUI application.
func NewApp(cfg *config.Config, src Source) *App {
	return &App{
		cfg:       cfg,
		dashboard: NewDashboardModel(src),
		analyses:  NewAnalysesModel(src),
		report:    NewReportModel(src),
	}
}

// Run starts the bubbletea program.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.dashboard.Init(),
		a.analyses.Init(),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		contentW := max(20, msg.Width-2)
		contentH := max(8, msg.Height-7)
		a.dashboard.SetSize(contentW, contentH)
		a.analyses.SetSize(contentW, contentH)
		a.report.SetSize(contentW, contentH)
		return a, nil

	case openReportMsg:
		a.activeTab = TabReport
		var cmd tea.Cmd
		a.report, cmd = a.report.Load(msg.jobID)
		return a, cmd

	// Async results always go to their owner, whichever tab is showing.
	case dashLoadedMsg, dashTickMsg:
		var cmd tea.Cmd
		a.dashboard, cmd = a.dashboard.Update(msg)
		return a, cmd
	case analysesLoadedMsg:
		var cmd tea.Cmd
		a.analyses, cmd = a.analyses.Update(msg)
		return a, cmd
	case reportLoadedMsg:
		var cmd tea.Cmd
		a.report, cmd = a.report.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return a, tea.Quit
		case "1":
			a.activeTab = TabDashboard
			return a, nil
		case "2":
			a.activeTab = TabAnalyses
			return a, nil
		case "3":
			a.activeTab = TabReport
			return a, nil
		case "tab":
			a.activeTab = (a.activeTab + 1) % Tab(len(tabNames))
			return a, nil
		case "shift+tab":
			a.activeTab--
			if a.activeTab < 0 {
				a.activeTab = Tab(len(tabNames) - 1)
			}
			return a, nil
		case "esc":
			if a.activeTab == TabReport {
				a.activeTab = TabAnalyses
				return a, nil
			}
		}
	}

	var cmd tea.Cmd
	switch a.activeTab {
	case TabDashboard:
		a.dashboard, cmd = a.dashboard.Update(msg)
	case TabAnalyses:
		a.analyses, cmd = a.analyses.Update(msg)
	case TabReport:
		a.report, cmd = a.report.Update(msg)
	}
	return a, cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	var content string
	switch a.activeTab {
	case TabDashboard:
		content = a.dashboard.View()
	case TabAnalyses:
		content = a.analyses.View()
	case TabReport:
		content = a.report.View()
	}

	contentBox := lipgloss.NewStyle().
		Width(a.width).
		Padding(0, 1).
		MaxHeight(max(1, a.height-4)).
		Render(content)

	status := lipgloss.NewStyle().
		Width(a.width).
		Padding(0, 1).
		Foreground(slateDim).
		Render("tab next  shift+tab prev  1-3 jump  esc back  q quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		a.renderHeader(),
		a.renderTabs(),
		contentBox,
		status,
	)
}

func (a *App) renderHeader() string {
	row := lipgloss.JoinHorizontal(lipgloss.Left,
		titleStyle.Render("ctrlgrade"),
		"  ",
		dimStyle.Render("repository and deployment readiness scores"),
		"  ",
		mutedBadgeStyle.Render(" "+tabNames[a.activeTab]+" "),
	)
	return lipgloss.NewStyle().
		BorderBottom(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(line).
		Width(a.width).
		Padding(0, 1).
		Render(row)
}

func (a *App) renderTabs() string {
	rendered := a.renderTabLabels(tabNames)
	maxWidth := max(10, a.width-2)
	if lipgloss.Width(rendered) > maxWidth {
		rendered = a.renderTabLabels(tabCompactNames)
	}
	if lipgloss.Width(rendered) > maxWidth {
		rendered = a.renderTabLabels(tabTinyNames)
	}

	return lipgloss.NewStyle().
		Width(a.width).
		Padding(0, 1).
		Foreground(slate).
		Render(rendered)
}

func (a *App) renderTabLabels(labels []string) string {
	parts := make([]string, 0, len(labels))
	for i, name := range labels {
		label := fmt.Sprintf("%d:%s", i+1, name)
		if Tab(i) == a.activeTab {
			parts = append(parts, lipgloss.NewStyle().Bold(true).Foreground(accent).Render(label))
		} else {
			parts = append(parts, dimStyle.Render(label))
		}
		if i < len(labels)-1 {
			parts = append(parts, dimStyle.Render("  ·  "))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Left, parts...)
}
