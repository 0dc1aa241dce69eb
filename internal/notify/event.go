package notify

import (
	"fmt"
	"strings"

	"github.com/CosmoTheDev/ctrlgrade/models"
)

// CompletedEvent summarises a scored report.
func CompletedEvent(jobID int64, r *models.AnalysisReport) Event {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s (confidence %s)\n", r.Verdict.Emoji, r.Verdict.Label, r.Confidence)
	if r.Verdict.Reason != "" {
		fmt.Fprintf(&b, "%s\n", r.Verdict.Reason)
	}
	for _, c := range r.Score.Categories() {
		fmt.Fprintf(&b, "%s: %d/%d\n", c.Label, c.Earned, c.Max)
	}
	if len(r.Actions) > 0 {
		fmt.Fprintf(&b, "Next: %s", r.Actions[0].Title)
	}
	return Event{
		Type:    EventCompleted,
		Title:   fmt.Sprintf("%s scored %d/100", r.Target.FullName(), r.Score.Overall),
		Body:    strings.TrimRight(b.String(), "\n"),
		URL:     r.Target.URL,
		JobID:   jobID,
		Overall: r.Score.Overall,
		Color:   r.Verdict.Color,

		Kind:       string(r.Target.Kind),
		Verdict:    r.Verdict.Label,
		Reason:     r.Verdict.Reason,
		Confidence: string(r.Confidence),
	}
}

// FailedEvent reports an analysis that produced no score.
func FailedEvent(job models.AnalysisJob, err error) Event {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Event{
		Type:  EventFailed,
		Title: "Analysis failed: " + job.URL,
		Body:  msg,
		URL:   job.URL,
		JobID: job.ID,
		Color: "red",
	}
}
