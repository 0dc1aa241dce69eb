package tui

import (
	"fmt"
	"strings"

	"github.com/CosmoTheDev/ctrlgrade/models"
	"github.com/charmbracelet/lipgloss"
)

const barWidth = 20

// RenderReport formats a report as a styled, static block. It backs both the
// Report tab and `ctrlgrade analyze --output table`.
func RenderReport(r *models.AnalysisReport, width int) string {
	if r == nil {
		return dimStyle.Render("No report.")
	}
	width = max(40, width)

	title := lipgloss.JoinHorizontal(lipgloss.Left,
		titleStyle.Render(r.Target.FullName()),
		"  ",
		mutedBadgeStyle.Render(string(r.Target.Kind)),
	)
	if r.Failed() {
		return lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			criticalStyle.Render("Analysis failed"),
			dimStyle.Render(r.Error),
		)
	}

	score := lipgloss.JoinHorizontal(lipgloss.Center,
		boxStyle.Render(lipgloss.JoinVertical(lipgloss.Center,
			scoreStyle(r.Score.Overall).Bold(true).Render(fmt.Sprintf("%d/100", r.Score.Overall)),
			dimStyle.Render("OVERALL"),
		)),
		"  ",
		lipgloss.JoinVertical(lipgloss.Left,
			verdictStyle(r.Verdict.Color).Bold(true).Render(strings.TrimSpace(r.Verdict.Emoji+" "+r.Verdict.Label)),
			dimStyle.Render(r.Verdict.Reason),
			dimStyle.Render(fmt.Sprintf("confidence %s · type %s · %dms", r.Confidence, r.RepoType, r.DurationMs)),
		),
	)

	var cats []string
	for _, c := range r.Score.Categories() {
		cats = append(cats, renderCategory(c))
	}
	if r.Score.Multiplier > 0 && r.Score.Multiplier != 1 {
		cats = append(cats, dimStyle.Render(fmt.Sprintf("raw %d × %.2f", r.Score.RawTotal, r.Score.Multiplier)))
	}

	sections := []string{
		title,
		"",
		score,
		"",
		panelHeaderStyle.Render("Categories"),
		strings.Join(cats, "\n"),
	}

	if len(r.Actions) > 0 {
		var rows []string
		for _, a := range r.Actions {
			row := fmt.Sprintf("%d. %s", a.Priority, a.Title)
			meta := strings.Join(nonEmpty(a.Urgency, a.TimeEstimate, a.Impact), " · ")
			rows = append(rows, lipgloss.NewStyle().Foreground(ink).Render(truncate(row, width-4)))
			if meta != "" {
				rows = append(rows, "   "+dimStyle.Render(meta))
			}
			if a.Command != "" {
				rows = append(rows, "   "+keycapStyle.Render(truncate(a.Command, width-10)))
			}
		}
		sections = append(sections, "", panelHeaderStyle.Render("Priority actions"), strings.Join(rows, "\n"))
	}

	if len(r.Suggestions) > 0 {
		var rows []string
		for _, s := range r.Suggestions {
			badge := priorityStyle(s.Priority).Render(fmt.Sprintf("%-8s", strings.ToUpper(string(s.Priority))))
			rows = append(rows, badge+" "+truncate(s.Title, width-14))
			if s.Description != "" {
				rows = append(rows, "         "+dimStyle.Render(truncate(s.Description, width-14)))
			}
		}
		sections = append(sections, "", panelHeaderStyle.Render("Suggestions"), strings.Join(rows, "\n"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderCategory(c models.Category) string {
	filled := 0
	if c.Max > 0 {
		filled = c.Earned * barWidth / c.Max
	}
	filled = min(max(filled, 0), barWidth)
	pct := 0
	if c.Max > 0 {
		pct = c.Earned * 100 / c.Max
	}
	bar := scoreStyle(pct).Render(strings.Repeat("█", filled)) +
		dimStyle.Render(strings.Repeat("░", barWidth-filled))
	return fmt.Sprintf("%-14s %s %s", c.Label, bar, lipgloss.NewStyle().Foreground(ink).Render(fmt.Sprintf("%2d/%d", c.Earned, c.Max)))
}

func nonEmpty(vals ...string) []string {
	out := vals[:0:0]
	for _, v := range vals {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if n < 2 || len([]rune(s)) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
