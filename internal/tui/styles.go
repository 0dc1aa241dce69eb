package tui

import (
	"github.com/CosmoTheDev/ctrlgrade/models"
	"github.com/charmbracelet/lipgloss"
)

var (
	accent   = lipgloss.Color("#14B8A6") // teal
	orange   = lipgloss.Color("#F97316")
	green    = lipgloss.Color("#22C55E")
	yellow   = lipgloss.Color("#F59E0B")
	red      = lipgloss.Color("#EF4444")
	blue     = lipgloss.Color("#38BDF8")
	slate    = lipgloss.Color("#94A3B8")
	slateDim = lipgloss.Color("#64748B")
	panelBg  = lipgloss.Color("#111827")
	bgDark   = lipgloss.Color("#0B1220")
	line     = lipgloss.Color("#1F2937")
	ink      = lipgloss.Color("#E5E7EB")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ink).
			Background(bgDark).
			BorderStyle(lipgloss.ThickBorder()).
			BorderLeft(true).
			BorderTop(false).
			BorderRight(false).
			BorderBottom(false).
			BorderForeground(accent).
			Padding(0, 1)

	criticalStyle = lipgloss.NewStyle().Bold(true).Foreground(red)
	highStyle     = lipgloss.NewStyle().Bold(true).Foreground(yellow)
	mediumStyle   = lipgloss.NewStyle().Foreground(blue)
	lowStyle      = lipgloss.NewStyle().Foreground(slate)
	okStyle       = lipgloss.NewStyle().Foreground(green)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(line).
			Background(panelBg).
			Padding(1, 2)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(line).
			Background(panelBg).
			Padding(1, 1)

	panelHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ink)

	mutedBadgeStyle = lipgloss.NewStyle().
			Foreground(slate).
			Background(bgDark).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(line).
			Padding(0, 1)

	keycapStyle = lipgloss.NewStyle().
			Foreground(ink).
			Background(lipgloss.Color("#1E293B")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(line).
			Padding(0, 1)

	selectedRowStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("#0F172A")).
				BorderStyle(lipgloss.NormalBorder()).
				BorderLeft(true).
				BorderForeground(accent)

	dimStyle = lipgloss.NewStyle().Foreground(slateDim)
)

func verdictStyle(color string) lipgloss.Style {
	switch color {
	case "green":
		return okStyle
	case "blue":
		return mediumStyle
	case "yellow":
		return highStyle
	case "orange":
		return lipgloss.NewStyle().Bold(true).Foreground(orange)
	case "red":
		return criticalStyle
	default:
		return lowStyle
	}
}

func priorityStyle(p models.Priority) lipgloss.Style {
	switch p {
	case models.PriorityCritical:
		return criticalStyle
	case models.PriorityHigh:
		return highStyle
	case models.PriorityMedium:
		return mediumStyle
	default:
		return lowStyle
	}
}

// scoreStyle colors a 0-100 value the same way the verdict ladder does.
func scoreStyle(overall int) lipgloss.Style {
	switch {
	case overall >= 85:
		return okStyle
	case overall >= 70:
		return mediumStyle
	case overall >= 50:
		return highStyle
	default:
		return criticalStyle
	}
}

func statusBadge(status string) string {
	bg := lipgloss.Color("")
	switch status {
	case models.JobCompleted:
		bg = green
	case models.JobFailed:
		bg = red
	case models.JobRunning:
		bg = blue
	default:
		return mutedBadgeStyle.Render(status)
	}
	return lipgloss.NewStyle().Foreground(bgDark).Background(bg).Padding(0, 1).Render(status)
}
