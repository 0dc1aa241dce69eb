package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/CosmoTheDev/ctrlgrade/models"
)

// Deployment targets reuse the five repository slots with their own labels
// and maxima.
const (
	DeploySecurityMax        = 30
	DeployPerformanceMax     = 25
	DeployReliabilityMax     = 20
	DeployDiscoverabilityMax = 10
	DeployContentMax         = 10

	maxPageBytes = 2 << 20
)

func probe(in *Input) *models.DeploymentEvidence {
	if in.Evidence.Deployment == nil {
		return &models.DeploymentEvidence{}
	}
	return in.Evidence.Deployment
}

func reachable(in *Input) bool { return probe(in).Analyzed && probe(in).Reachable }

func html(in *Input) bool { return reachable(in) && probe(in).HTMLParsed }

func psi(in *Input) *models.PageSpeedEvidence {
	if in.Evidence.PageSpeed == nil {
		return &models.PageSpeedEvidence{}
	}
	return in.Evidence.PageSpeed
}

func psiRan(in *Input) bool { return psi(in).Analyzed }

// scaled maps a 0-100 score onto [0, max].
func scaled(score, max int) int {
	return int(math.Round(float64(score) * float64(max) / 100))
}

func headerRule(name string) Rule {
	return Rule{
		Name:   "header-" + strings.ToLower(name),
		When:   func(in *Input) bool { return reachable(in) && probe(in).SecurityHeaders[name] },
		Op:     Add,
		Points: 4,
		Detail: text(name + " header set"),
	}
}

// psiRule awards a page-speed category score scaled onto max points.
func psiRule(name, label string, max int, score func(*models.PageSpeedEvidence) int) Rule {
	return Rule{
		Name:   name,
		When:   psiRan,
		Op:     Add,
		Amount: func(in *Input) int { return scaled(score(psi(in)), max) },
		Detail: func(in *Input) string {
			return fmt.Sprintf("PageSpeed %s %d/100", label, score(psi(in)))
		},
	}
}

var deploymentSecurity = Rubric{
	Key: "security", Label: "Security", Max: DeploySecurityMax,
	Rules: []Rule{
		{
			Name:   "unreachable",
			When:   func(in *Input) bool { return !reachable(in) },
			Op:     Floor,
			Points: 5,
			Detail: func(in *Input) string {
				if e := probe(in).Error; e != "" {
					return "Deployment could not be probed: " + e
				}
				return "Deployment could not be probed"
			},
		},
		{
			Name:   "https",
			When:   func(in *Input) bool { return reachable(in) && probe(in).HTTPS },
			Op:     Add,
			Points: 10,
			Detail: text("Served over HTTPS"),
		},
		headerRule("Strict-Transport-Security"),
		headerRule("Content-Security-Policy"),
		headerRule("X-Frame-Options"),
		headerRule("X-Content-Type-Options"),
		headerRule("Referrer-Policy"),
		{
			Name: "missing-headers",
			When: func(in *Input) bool { return reachable(in) && len(probe(in).MissingSecurityHeaders()) > 0 },
			Op:   Note,
			Detail: func(in *Input) string {
				return "Missing headers: " + strings.Join(probe(in).MissingSecurityHeaders(), ", ")
			},
		},
		{
			Name:   "no-https-cap",
			When:   func(in *Input) bool { return reachable(in) && !probe(in).HTTPS },
			Op:     Cap,
			Points: 10,
			Detail: text("Not served over HTTPS"),
		},
	},
}

var deploymentPerformance = Rubric{
	Key: "performance", Label: "Performance", Max: DeployPerformanceMax,
	Rules: []Rule{
		psiRule("psi-performance", "performance", 15, func(p *models.PageSpeedEvidence) int { return p.Performance }),
		psiRule("psi-best-practices", "best practices", 10, func(p *models.PageSpeedEvidence) int { return p.BestPractices }),
		{
			Name:   "fast-response",
			When:   func(in *Input) bool { return !psiRan(in) && reachable(in) && probe(in).ResponseTimeMs < 500 },
			Op:     Add,
			Points: 10,
			Detail: func(in *Input) string { return fmt.Sprintf("Response in %dms", probe(in).ResponseTimeMs) },
		},
		{
			Name: "ok-response",
			When: func(in *Input) bool {
				ms := probe(in).ResponseTimeMs
				return !psiRan(in) && reachable(in) && ms >= 500 && ms < 1500
			},
			Op:     Add,
			Points: 5,
			Detail: func(in *Input) string { return fmt.Sprintf("Response in %dms", probe(in).ResponseTimeMs) },
		},
		{
			Name:   "compression",
			When:   func(in *Input) bool { return !psiRan(in) && reachable(in) && probe(in).HasCompression },
			Op:     Add,
			Points: 5,
			Detail: func(in *Input) string { return "Compressed response (" + probe(in).Compression + ")" },
		},
		{
			Name:   "caching",
			When:   func(in *Input) bool { return !psiRan(in) && reachable(in) && probe(in).HasCaching },
			Op:     Add,
			Points: 5,
			Detail: text("Caching headers present"),
		},
		{
			Name:   "no-measurement",
			When:   func(in *Input) bool { return !psiRan(in) && !reachable(in) },
			Op:     Floor,
			Points: 5,
			Detail: text("Performance could not be measured"),
		},
	},
}

var deploymentReliability = Rubric{
	Key: "reliability", Label: "Reliability", Max: DeployReliabilityMax,
	Rules: []Rule{
		{
			Name: "status-2xx",
			When: func(in *Input) bool {
				c := probe(in).StatusCode
				return reachable(in) && c >= 200 && c < 300
			},
			Op:     Add,
			Points: 10,
			Detail: func(in *Input) string { return fmt.Sprintf("HTTP %d", probe(in).StatusCode) },
		},
		{
			Name: "status-error",
			When: func(in *Input) bool {
				c := probe(in).StatusCode
				return reachable(in) && (c < 200 || c >= 300)
			},
			Op:     Note,
			Detail: func(in *Input) string { return fmt.Sprintf("HTTP %d (+0)", probe(in).StatusCode) },
		},
		{
			Name:   "few-redirects",
			When:   func(in *Input) bool { return reachable(in) && probe(in).Redirects <= 1 },
			Op:     Add,
			Points: 5,
			Detail: func(in *Input) string { return fmt.Sprintf("%d redirects", probe(in).Redirects) },
		},
		{
			Name:   "responsive",
			When:   func(in *Input) bool { return reachable(in) && probe(in).ResponseTimeMs < 3000 },
			Op:     Add,
			Points: 5,
			Detail: text("Responded within 3s"),
		},
		{
			Name:   "unreachable",
			When:   func(in *Input) bool { return !reachable(in) },
			Op:     Note,
			Detail: text("Deployment unreachable (+0)"),
		},
	},
}

var deploymentDiscoverability = Rubric{
	Key: "discoverability", Label: "Discoverability", Max: DeployDiscoverabilityMax,
	Rules: []Rule{
		psiRule("psi-seo", "SEO", 5, func(p *models.PageSpeedEvidence) int { return p.SEO }),
		psiRule("psi-accessibility", "accessibility", 5, func(p *models.PageSpeedEvidence) int { return p.Accessibility }),
		{
			Name:   "title",
			When:   func(in *Input) bool { return !psiRan(in) && html(in) && probe(in).HasTitle() },
			Op:     Add,
			Points: 3,
			Detail: text("Page title set"),
		},
		{
			Name:   "viewport",
			When:   func(in *Input) bool { return !psiRan(in) && html(in) && probe(in).HasViewport },
			Op:     Add,
			Points: 2,
			Detail: text("Viewport meta tag set"),
		},
	},
}

var deploymentContent = Rubric{
	Key: "content", Label: "Content", Max: DeployContentMax,
	Rules: []Rule{
		{Name: "title", When: func(in *Input) bool { return html(in) && probe(in).HasTitle() }, Op: Add, Points: 2, Detail: func(in *Input) string { return fmt.Sprintf("Title %q", probe(in).Title) }},
		{Name: "viewport", When: func(in *Input) bool { return html(in) && probe(in).HasViewport }, Op: Add, Points: 2, Detail: text("Viewport meta tag")},
		{Name: "meta-description", When: func(in *Input) bool { return html(in) && probe(in).HasMetaDescription }, Op: Add, Points: 2, Detail: text("Meta description")},
		{
			Name:   "page-size",
			When:   func(in *Input) bool { return reachable(in) && probe(in).PageSizeBytes < maxPageBytes },
			Op:     Add,
			Points: 2,
			Detail: func(in *Input) string { return fmt.Sprintf("Page size %d KB", probe(in).PageSizeBytes/1024) },
		},
		{
			Name:   "content-type",
			When:   func(in *Input) bool { return reachable(in) && probe(in).ContentType != "" },
			Op:     Add,
			Points: 2,
			Detail: func(in *Input) string { return "Content-Type " + probe(in).ContentType },
		},
		{
			Name:   "not-html",
			When:   func(in *Input) bool { return reachable(in) && !probe(in).HTMLParsed },
			Op:     Note,
			Detail: text("Response was not parsed as HTML (+0)"),
		},
	},
}
