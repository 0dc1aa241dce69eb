package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/CosmoTheDev/ctrlgrade/internal/config"
	"github.com/CosmoTheDev/ctrlgrade/models"
	"golang.org/x/time/rate"
)

// DefaultPageSpeedEndpoint is the PageSpeed Insights v5 API.
const DefaultPageSpeedEndpoint = "https://www.googleapis.com/pagespeedonline/v5/runPagespeed"

// maxOpportunities bounds the ranked opportunity list.
const maxOpportunities = 5

// PageSpeedClient queries the page-speed service. Requests pass through a
// token bucket so concurrent analyses stay inside the API quota.
type PageSpeedClient struct {
	client   *http.Client
	endpoint string
	apiKey   string
	limiter  *rate.Limiter
}

// NewPageSpeedClient builds a client from config. endpoint may be empty.
func NewPageSpeedClient(cfg config.PageSpeedConfig, endpoint string) *PageSpeedClient {
	if endpoint == "" {
		endpoint = DefaultPageSpeedEndpoint
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 20
	}
	return &PageSpeedClient{
		client:   &http.Client{Timeout: config.Seconds(cfg.Timeout, 90)},
		endpoint: endpoint,
		apiKey:   cfg.APIKey,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
	}
}

type psiResponse struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	LighthouseResult *struct {
		Categories map[string]struct {
			Score *float64 `json:"score"`
		} `json:"categories"`
		Audits map[string]psiAudit `json:"audits"`
	} `json:"lighthouseResult"`
}

type psiAudit struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	NumericValue *float64 `json:"numericValue"`
	Details      *struct {
		Type             string  `json:"type"`
		OverallSavingsMs float64 `json:"overallSavingsMs"`
	} `json:"details"`
}

// ParsePageSpeed validates a PageSpeed API response. The performance
// category score is required.
func ParsePageSpeed(data []byte) (*models.PageSpeedEvidence, error) {
	var r psiResponse
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing page-speed JSON: %w", err)
	}
	if r.Error != nil {
		return nil, fmt.Errorf("page-speed API error %d: %s", r.Error.Code, r.Error.Message)
	}
	if r.LighthouseResult == nil {
		return nil, fmt.Errorf("page-speed response has no lighthouseResult")
	}
	perf, ok := r.LighthouseResult.Categories["performance"]
	if !ok || perf.Score == nil {
		return nil, fmt.Errorf("page-speed response has no performance score")
	}

	score := func(key string) int {
		c, ok := r.LighthouseResult.Categories[key]
		if !ok || c.Score == nil {
			return 0
		}
		return int(math.Round(*c.Score * 100))
	}
	audits := r.LighthouseResult.Audits
	metric := func(id string) float64 {
		if a, ok := audits[id]; ok && a.NumericValue != nil {
			return *a.NumericValue
		}
		return 0
	}

	ev := &models.PageSpeedEvidence{
		Analyzed:      true,
		Performance:   score("performance"),
		Accessibility: score("accessibility"),
		BestPractices: score("best-practices"),
		SEO:           score("seo"),
		Vitals: models.WebVitals{
			LCPMs:        metric("largest-contentful-paint"),
			FCPMs:        metric("first-contentful-paint"),
			CLS:          metric("cumulative-layout-shift"),
			TBTMs:        metric("total-blocking-time"),
			SpeedIndexMs: metric("speed-index"),
			TTIMs:        metric("interactive"),
		},
	}

	for id, a := range audits {
		if a.Details == nil || a.Details.Type != "opportunity" || a.Details.OverallSavingsMs <= 0 {
			continue
		}
		if a.ID != "" {
			id = a.ID
		}
		ev.Opportunities = append(ev.Opportunities, models.Opportunity{
			ID:        id,
			Title:     a.Title,
			SavingsMs: math.Round(a.Details.OverallSavingsMs),
		})
	}
	sort.Slice(ev.Opportunities, func(i, j int) bool {
		oi, oj := ev.Opportunities[i], ev.Opportunities[j]
		if oi.SavingsMs != oj.SavingsMs {
			return oi.SavingsMs > oj.SavingsMs
		}
		return oi.ID < oj.ID
	})
	if len(ev.Opportunities) > maxOpportunities {
		ev.Opportunities = ev.Opportunities[:maxOpportunities]
	}
	return ev, nil
}

// Run assesses target with the given strategy ("mobile" or "desktop").
func (c *PageSpeedClient) Run(ctx context.Context, target, strategy string) *models.PageSpeedEvidence {
	if strategy != "desktop" {
		strategy = "mobile"
	}
	fail := func(msg string) *models.PageSpeedEvidence {
		slog.Warn("Page-speed assessment failed", "url", target, "collector", "pagespeed", "error", msg)
		return &models.PageSpeedEvidence{Strategy: strategy, Error: msg}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fail(fmt.Sprintf("waiting for rate limit: %v", err))
	}

	q := url.Values{}
	q.Set("url", target)
	q.Set("strategy", strategy)
	for _, cat := range []string{"performance", "accessibility", "best-practices", "seo"} {
		q.Add("category", cat)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return fail("building page-speed request failed")
	}
	if c.apiKey != "" {
		req.Header.Set("X-Goog-Api-Key", c.apiKey)
	}
	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		// *url.Error embeds the full request URL; report only the cause.
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return fail(fmt.Sprintf("requesting page-speed API: %v", err))
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return fail(fmt.Sprintf("reading response: %v", err))
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return fail("page-speed API quota exceeded")
	}

	ev, err := ParsePageSpeed(data)
	if err != nil {
		return fail(err.Error())
	}
	ev.Strategy = strategy
	slog.Info("Page-speed assessment completed", "url", target, "performance", ev.Performance,
		"duration", time.Since(start).Round(time.Millisecond))
	return ev
}
