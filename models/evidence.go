package models

// VulnCounts is a severity breakdown of audit findings.
type VulnCounts struct {
	Critical int `json:"critical" yaml:"critical"`
	High     int `json:"high"     yaml:"high"`
	Moderate int `json:"moderate" yaml:"moderate"`
	Low      int `json:"low"      yaml:"low"`
	Total    int `json:"total"    yaml:"total"`
}

// Add returns the element-wise sum of c and o.
func (c VulnCounts) Add(o VulnCounts) VulnCounts {
	return VulnCounts{
		Critical: c.Critical + o.Critical,
		High:     c.High + o.High,
		Moderate: c.Moderate + o.Moderate,
		Low:      c.Low + o.Low,
		Total:    c.Total + o.Total,
	}
}

// VulnFinding is one vulnerable package reported by the audit.
type VulnFinding struct {
	Package      string        `json:"package"       yaml:"package"`
	Severity     SeverityLevel `json:"severity"      yaml:"severity"`
	Title        string        `json:"title"         yaml:"title"`
	FixAvailable bool          `json:"fix_available" yaml:"fix_available"`
	URL          string        `json:"url,omitempty" yaml:"url,omitempty"`
	// DevOnly is set when the package does not appear in the production-only audit.
	DevOnly bool `json:"dev_only" yaml:"dev_only"`
}

// SecurityEvidence holds dependency-audit results. Analyzed distinguishes
// "zero vulnerabilities" from "the audit could not run".
type SecurityEvidence struct {
	Analyzed           bool          `json:"analyzed"            yaml:"analyzed"`
	All                VulnCounts    `json:"all"                 yaml:"all"`
	Production         VulnCounts    `json:"production"          yaml:"production"`
	ProductionAnalyzed bool          `json:"production_analyzed" yaml:"production_analyzed"`
	Findings           []VulnFinding `json:"findings,omitempty"  yaml:"findings,omitempty"`
	Error              string        `json:"error,omitempty"     yaml:"error,omitempty"`
}

// OutdatedPackage is one entry from the outdated-dependency check.
type OutdatedPackage struct {
	Name    string `json:"name"    yaml:"name"`
	Current string `json:"current" yaml:"current"`
	Wanted  string `json:"wanted"  yaml:"wanted"`
	Latest  string `json:"latest"  yaml:"latest"`
}

// DependencyEvidence holds the outdated-dependency check.
type DependencyEvidence struct {
	Analyzed       bool              `json:"analyzed"           yaml:"analyzed"`
	PackageManager string            `json:"package_manager"    yaml:"package_manager"`
	Total          int               `json:"total"              yaml:"total"`
	Outdated       int               `json:"outdated"           yaml:"outdated"`
	Packages       []OutdatedPackage `json:"packages,omitempty" yaml:"packages,omitempty"`
	Error          string            `json:"error,omitempty"    yaml:"error,omitempty"`
}

// LintIssue is one annotated lint message.
type LintIssue struct {
	File     string        `json:"file"              yaml:"file"`
	Line     int           `json:"line"              yaml:"line"`
	Message  string        `json:"message"           yaml:"message"`
	RuleID   string        `json:"rule_id,omitempty" yaml:"rule_id,omitempty"`
	Severity SeverityLevel `json:"severity"          yaml:"severity"`
}

// CodeQualityEvidence holds the lint run.
type CodeQualityEvidence struct {
	Analyzed     bool        `json:"analyzed"         yaml:"analyzed"`
	HasConfig    bool        `json:"has_config"       yaml:"has_config"`
	UsedFallback bool        `json:"used_fallback"    yaml:"used_fallback"`
	Errors       int         `json:"errors"           yaml:"errors"`
	Warnings     int         `json:"warnings"         yaml:"warnings"`
	Issues       []LintIssue `json:"issues,omitempty" yaml:"issues,omitempty"`
	Error        string      `json:"error,omitempty"  yaml:"error,omitempty"`
}

// TypeCheckEvidence holds the type-checker run.
type TypeCheckEvidence struct {
	Configured bool   `json:"configured"      yaml:"configured"`
	Analyzed   bool   `json:"analyzed"        yaml:"analyzed"`
	Errors     int    `json:"errors"          yaml:"errors"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
}

// StackEvidence describes the detected language, framework and project hygiene.
type StackEvidence struct {
	Language          string   `json:"language"                  yaml:"language"`
	Framework         string   `json:"framework,omitempty"       yaml:"framework,omitempty"`
	PackageManager    string   `json:"package_manager,omitempty" yaml:"package_manager,omitempty"`
	Manifests         []string `json:"manifests,omitempty"       yaml:"manifests,omitempty"`
	HasTypeScript     bool     `json:"has_typescript"            yaml:"has_typescript"`
	HasLinting        bool     `json:"has_linting"               yaml:"has_linting"`
	HasTesting        bool     `json:"has_testing"               yaml:"has_testing"`
	TestFramework     string   `json:"test_framework,omitempty"  yaml:"test_framework,omitempty"`
	HasCI             bool     `json:"has_ci"                    yaml:"has_ci"`
	CIRunsTests       bool     `json:"ci_runs_tests"             yaml:"ci_runs_tests"`
	HasReadme         bool     `json:"has_readme"                yaml:"has_readme"`
	HasLicense        bool     `json:"has_license"               yaml:"has_license"`
	HasEnvExample     bool     `json:"has_env_example"           yaml:"has_env_example"`
	HasStandardLayout bool     `json:"has_standard_layout"       yaml:"has_standard_layout"`
	LayoutDirs        []string `json:"layout_dirs,omitempty"     yaml:"layout_dirs,omitempty"`
	// Coarse marks a project outside the primary ecosystem (no manifest found).
	Coarse bool `json:"coarse" yaml:"coarse"`
}

// DeploymentEvidence holds the HTTP probe of a live deployment.
type DeploymentEvidence struct {
	Analyzed           bool            `json:"analyzed"             yaml:"analyzed"`
	Reachable          bool            `json:"reachable"            yaml:"reachable"`
	StatusCode         int             `json:"status_code"          yaml:"status_code"`
	ResponseTimeMs     int64           `json:"response_time_ms"     yaml:"response_time_ms"`
	Redirects          int             `json:"redirects"            yaml:"redirects"`
	FinalURL           string          `json:"final_url,omitempty"  yaml:"final_url,omitempty"`
	ContentType        string          `json:"content_type"         yaml:"content_type"`
	HTTPS              bool            `json:"https"                yaml:"https"`
	SecurityHeaders    map[string]bool `json:"security_headers"     yaml:"security_headers"`
	HasCaching         bool            `json:"has_caching"          yaml:"has_caching"`
	HasCompression     bool            `json:"has_compression"      yaml:"has_compression"`
	Compression        string          `json:"compression,omitempty" yaml:"compression,omitempty"`
	HTMLParsed         bool            `json:"html_parsed"          yaml:"html_parsed"`
	Title              string          `json:"title,omitempty"      yaml:"title,omitempty"`
	HasViewport        bool            `json:"has_viewport"         yaml:"has_viewport"`
	HasMetaDescription bool            `json:"has_meta_description" yaml:"has_meta_description"`
	PageSizeBytes      int64           `json:"page_size_bytes"      yaml:"page_size_bytes"`
	Error              string          `json:"error,omitempty"      yaml:"error,omitempty"`
}

// HasTitle reports whether the page declared a non-empty <title>.
func (d *DeploymentEvidence) HasTitle() bool {
	return d != nil && d.Title != ""
}

// MissingSecurityHeaders lists the checked security headers that were absent.
func (d *DeploymentEvidence) MissingSecurityHeaders() []string {
	if d == nil {
		return nil
	}
	var out []string
	for _, h := range SecurityHeaderNames {
		if !d.SecurityHeaders[h] {
			out = append(out, h)
		}
	}
	return out
}

// SecurityHeaderNames is the fixed set of response headers checked by the probe.
var SecurityHeaderNames = []string{
	"Strict-Transport-Security",
	"Content-Security-Policy",
	"X-Frame-Options",
	"X-Content-Type-Options",
	"Referrer-Policy",
}

// WebVitals are lab measurements from the page-speed service.
type WebVitals struct {
	LCPMs        float64 `json:"lcp_ms"         yaml:"lcp_ms"`
	FCPMs        float64 `json:"fcp_ms"         yaml:"fcp_ms"`
	CLS          float64 `json:"cls"            yaml:"cls"`
	TBTMs        float64 `json:"tbt_ms"         yaml:"tbt_ms"`
	SpeedIndexMs float64 `json:"speed_index_ms" yaml:"speed_index_ms"`
	TTIMs        float64 `json:"tti_ms"         yaml:"tti_ms"`
}

// Opportunity is a ranked page-speed improvement.
type Opportunity struct {
	ID        string  `json:"id"         yaml:"id"`
	Title     string  `json:"title"      yaml:"title"`
	SavingsMs float64 `json:"savings_ms" yaml:"savings_ms"`
}

// PageSpeedEvidence holds the page-speed assessment.
type PageSpeedEvidence struct {
	Analyzed      bool          `json:"analyzed"                yaml:"analyzed"`
	Strategy      string        `json:"strategy"                yaml:"strategy"`
	Performance   int           `json:"performance"             yaml:"performance"`
	Accessibility int           `json:"accessibility"           yaml:"accessibility"`
	BestPractices int           `json:"best_practices"          yaml:"best_practices"`
	SEO           int           `json:"seo"                     yaml:"seo"`
	Vitals        WebVitals     `json:"vitals"                  yaml:"vitals"`
	Opportunities []Opportunity `json:"opportunities,omitempty" yaml:"opportunities,omitempty"`
	Error         string        `json:"error,omitempty"         yaml:"error,omitempty"`
}

// Evidence aggregates every collector's output for one run. A nil field
// means the collector does not apply to the target kind.
type Evidence struct {
	Security    *SecurityEvidence    `json:"security,omitempty"     yaml:"security,omitempty"`
	Dependency  *DependencyEvidence  `json:"dependency,omitempty"   yaml:"dependency,omitempty"`
	CodeQuality *CodeQualityEvidence `json:"code_quality,omitempty" yaml:"code_quality,omitempty"`
	TypeCheck   *TypeCheckEvidence   `json:"type_check,omitempty"   yaml:"type_check,omitempty"`
	Stack       *StackEvidence       `json:"stack,omitempty"        yaml:"stack,omitempty"`
	Deployment  *DeploymentEvidence  `json:"deployment,omitempty"   yaml:"deployment,omitempty"`
	PageSpeed   *PageSpeedEvidence   `json:"page_speed,omitempty"   yaml:"page_speed,omitempty"`
}
