package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/CosmoTheDev/ctrlgrade/internal/config"
)

// SlackChannel posts analysis results to a Slack incoming webhook as one
// colored attachment with score, verdict and confidence fields.
type SlackChannel struct {
	cfg    config.SlackNotifyConfig
	client *http.Client
}

// NewSlack creates a SlackChannel from cfg.
func NewSlack(cfg config.SlackNotifyConfig) *SlackChannel {
	return &SlackChannel{cfg: cfg, client: &http.Client{Timeout: 5 * time.Second}}
}

func (s *SlackChannel) Name() string        { return "slack" }
func (s *SlackChannel) IsConfigured() bool { return s.cfg.WebhookURL != "" }

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type slackAttachment struct {
	Fallback  string       `json:"fallback"`
	Color     string       `json:"color"`
	Title     string       `json:"title"`
	TitleLink string       `json:"title_link,omitempty"`
	Text      string       `json:"text,omitempty"`
	Fields    []slackField `json:"fields,omitempty"`
	Footer    string       `json:"footer"`
	Ts        int64        `json:"ts"`
}

type slackMessage struct {
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments"`
}

// slackMessageFor lays out an event. Completed analyses get short fields;
// failures carry the error as the attachment text.
func slackMessageFor(evt Event, now time.Time) slackMessage {
	att := slackAttachment{
		Fallback:  evt.Title,
		Color:     verdictColor(evt.Color),
		Title:     evt.Title,
		TitleLink: evt.URL,
		Footer:    "ctrlgrade · job #" + strconv.FormatInt(evt.JobID, 10),
		Ts:        now.Unix(),
	}
	switch evt.Type {
	case EventCompleted:
		att.Fields = []slackField{
			{Title: "Score", Value: fmt.Sprintf("%d/100", evt.Overall), Short: true},
			{Title: "Verdict", Value: evt.Verdict, Short: true},
			{Title: "Confidence", Value: evt.Confidence, Short: true},
			{Title: "Target", Value: evt.Kind, Short: true},
		}
		if evt.Reason != "" {
			att.Fields = append(att.Fields, slackField{Title: "Why", Value: evt.Reason})
		}
		att.Text = evt.Body
	default:
		att.Text = "```" + evt.Body + "```"
	}
	return slackMessage{Text: evt.Title, Attachments: []slackAttachment{att}}
}

func (s *SlackChannel) Send(ctx context.Context, evt Event) error {
	b, err := json.Marshal(slackMessageFor(evt, time.Now()))
	if err != nil {
		return fmt.Errorf("encoding slack message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.WebhookURL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req) // #nosec G107 -- WebhookURL is a user-configured Slack incoming webhook URL
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned %d", resp.StatusCode)
	}
	return nil
}

// verdictColor maps verdict ladder colors to Slack attachment hex colors.
func verdictColor(c string) string {
	switch c {
	case "green":
		return "#2EB67D"
	case "blue":
		return "#1D9BD1"
	case "yellow":
		return "#ECB22E"
	case "orange":
		return "#F2711C"
	case "red":
		return "#E01E5A"
	default:
		return "#868686"
	}
}
