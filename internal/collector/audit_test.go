package collector

import (
	"context"
	"testing"

	"github.com/CosmoTheDev/ctrlgrade/models"
)

const auditWithDevVulns = `{
  "auditReportVersion": 2,
  "vulnerabilities": {
    "minimist": {
      "name": "minimist",
      "severity": "critical",
      "via": [{"source": 1, "title": "Prototype Pollution in minimist", "url": "https://github.com/advisories/GHSA-xvch-5gv4-984h", "severity": "critical"}],
      "fixAvailable": true
    },
    "mkdirp": {
      "name": "mkdirp",
      "severity": "critical",
      "via": ["minimist"],
      "fixAvailable": {"name": "mkdirp", "version": "1.0.4", "isSemVerMajor": true}
    },
    "lodash": {
      "name": "lodash",
      "severity": "high",
      "via": [{"title": "Command Injection in lodash", "url": "https://github.com/advisories/GHSA-35jh-r3h4-6jhm"}],
      "fixAvailable": false
    }
  },
  "metadata": {
    "vulnerabilities": {"info": 0, "low": 0, "moderate": 0, "high": 1, "critical": 2, "total": 3}
  }
}`

const auditProdOnly = `{
  "vulnerabilities": {
    "lodash": {"name": "lodash", "severity": "high", "via": [{"title": "Command Injection in lodash"}], "fixAvailable": false}
  },
  "metadata": {"vulnerabilities": {"info": 0, "low": 0, "moderate": 0, "high": 1, "critical": 0, "total": 1}}
}`

func TestParseAudit(t *testing.T) {
	counts, findings, err := ParseAudit([]byte(auditWithDevVulns))
	if err != nil {
		t.Fatalf("ParseAudit: %v", err)
	}
	want := models.VulnCounts{Critical: 2, High: 1, Total: 3}
	if counts != want {
		t.Fatalf("counts = %+v, want %+v", counts, want)
	}
	if len(findings) != 3 {
		t.Fatalf("expected 3 findings, got %d", len(findings))
	}
	// Sorted by severity then name.
	if findings[0].Package != "minimist" || findings[1].Package != "mkdirp" || findings[2].Package != "lodash" {
		t.Fatalf("unexpected order: %+v", findings)
	}
	if findings[0].Title != "Prototype Pollution in minimist" || !findings[0].FixAvailable {
		t.Fatalf("unexpected minimist finding: %+v", findings[0])
	}
	if !findings[1].FixAvailable || findings[1].Title == "" {
		t.Fatalf("mkdirp should carry object fixAvailable and a fallback title: %+v", findings[1])
	}
	if findings[2].FixAvailable {
		t.Fatalf("lodash fixAvailable should be false")
	}
}

func TestParseAuditRejectsUntrustedOutput(t *testing.T) {
	cases := map[string]string{
		"empty":            "",
		"not json":         "npm ERR! something broke",
		"missing metadata": `{"vulnerabilities": {}}`,
		"error object":     `{"error": {"code": "ENOLOCK", "summary": "This command requires an existing lockfile."}}`,
	}
	for name, out := range cases {
		t.Run(name, func(t *testing.T) {
			if _, _, err := ParseAudit([]byte(out)); err == nil {
				t.Fatalf("expected error for %q", out)
			}
		})
	}
}

func TestParseAuditSkipsBanner(t *testing.T) {
	out := "npm WARN config something\n" + auditProdOnly
	counts, _, err := ParseAudit([]byte(out))
	if err != nil {
		t.Fatalf("ParseAudit: %v", err)
	}
	if counts.High != 1 {
		t.Fatalf("expected 1 high, got %+v", counts)
	}
}

func TestAuditMarksDevOnlyFindings(t *testing.T) {
	dir := t.TempDir()
	r := newFakeRunner().
		// Non-zero exit with valid JSON is the normal "vulnerabilities found" case.
		on("npm audit --json", Result{Stdout: []byte(auditWithDevVulns), ExitCode: 1}).
		on("npm audit --json --omit=dev", Result{Stdout: []byte(auditProdOnly), ExitCode: 1})

	ev := testToolchain(r).Audit(context.Background(), dir)
	if !ev.Analyzed || !ev.ProductionAnalyzed {
		t.Fatalf("expected both audits analyzed: %+v", ev)
	}
	if ev.All.Critical != 2 || ev.Production.Critical != 0 || ev.Production.High != 1 {
		t.Fatalf("unexpected counts all=%+v prod=%+v", ev.All, ev.Production)
	}
	for _, f := range ev.Findings {
		wantDev := f.Package != "lodash"
		if f.DevOnly != wantDev {
			t.Fatalf("%s DevOnly = %v, want %v", f.Package, f.DevOnly, wantDev)
		}
	}
}

func TestAuditToolMissingIsNotAnalyzed(t *testing.T) {
	ev := testToolchain(newFakeRunner()).Audit(context.Background(), t.TempDir())
	if ev.Analyzed {
		t.Fatal("expected Analyzed=false when npm is unavailable")
	}
	if ev.Error == "" {
		t.Fatal("expected an error message")
	}
}

func TestAuditProductionFailureKeepsFullResult(t *testing.T) {
	r := newFakeRunner().on("npm audit --json", Result{Stdout: []byte(auditProdOnly), ExitCode: 1})
	ev := testToolchain(r).Audit(context.Background(), t.TempDir())
	if !ev.Analyzed || ev.ProductionAnalyzed {
		t.Fatalf("expected full audit only: %+v", ev)
	}
	for _, f := range ev.Findings {
		if f.DevOnly {
			t.Fatalf("findings must not be marked dev-only without a production audit: %+v", f)
		}
	}
}
