package recommend

import (
	"fmt"

	"github.com/CosmoTheDev/ctrlgrade/internal/scoring"
	"github.com/CosmoTheDev/ctrlgrade/models"
)

// Actions returns concrete next steps in fixed precedence, at most one per
// concern. It is never empty.
func Actions(in Input) []models.PriorityAction {
	var out []models.PriorityAction
	add := func(urgency, title, command, estimate, impact string) {
		out = append(out, models.PriorityAction{
			Priority:     len(out) + 1,
			Urgency:      urgency,
			Title:        title,
			Command:      command,
			TimeEstimate: estimate,
			Impact:       impact,
		})
	}

	if in.Kind == models.TargetDeployment {
		deploymentActions(in, add)
	} else {
		repositoryActions(in, add)
	}

	if len(out) == 0 {
		cmd := "npm outdated && npm audit"
		if in.Kind == models.TargetDeployment {
			cmd = "ctrlgrade analyze " + deploymentURL(in)
		}
		add("low", "Maintain regular updates", cmd, "15 minutes weekly",
			"Keeps the current score from decaying as dependencies age")
	}
	return out
}

func repositoryActions(in Input, add func(urgency, title, command, estimate, impact string)) {
	ev := in.Evidence
	policy := scoring.PolicyFor(in.RepoType)

	if sec := ev.Security; sec != nil && sec.Analyzed {
		v := policy.Vulns(sec)
		if v.Critical > 0 || v.High > 0 {
			urgency := "high"
			if v.Critical > 0 {
				urgency = "critical"
			}
			cmd := "npm audit fix"
			if policy.UsesProductionCounts(sec) {
				cmd = "npm audit fix --omit=dev"
			}
			add(urgency,
				fmt.Sprintf("Fix %d critical and %d high vulnerabilities", v.Critical, v.High),
				cmd, "30 minutes",
				fmt.Sprintf("Up to +%d security points", scoring.SecurityMax-in.Score.Security.Earned))
		}
	}

	if ev.Stack == nil || !ev.Stack.HasTesting {
		add("high", "Add a test suite", "npm install --save-dev vitest && npx vitest run", "2-4 hours",
			fmt.Sprintf("Up to +%d testing points", scoring.TestingMax-in.Score.Testing.Earned))
	}

	lintConfigured := (ev.Stack != nil && ev.Stack.HasLinting) || (ev.CodeQuality != nil && ev.CodeQuality.HasConfig)
	if !lintConfigured {
		add("medium", "Set up linting", "npm init @eslint/config@latest", "15 minutes",
			fmt.Sprintf("Up to +%d code quality points", scoring.CodeQualityMax-in.Score.CodeQuality.Earned))
	}

	if d := ev.Dependency; d != nil && d.Analyzed && policy.OutdatedPoints(d.Outdated) < 4 {
		add("medium", fmt.Sprintf("Update %d outdated dependencies", d.Outdated),
			"npx npm-check-updates --target minor -u && npm install", "1 hour",
			"Smaller upgrade steps later, fewer inherited advisories")
	}
}

func deploymentActions(in Input, add func(urgency, title, command, estimate, impact string)) {
	d := in.Evidence.Deployment
	if d == nil || !d.Analyzed || !d.Reachable {
		return
	}
	if !d.HTTPS {
		add("critical", "Enable HTTPS", "certbot --nginx", "30 minutes",
			"Lifts the security cap and protects every request")
	}
	if missing := d.MissingSecurityHeaders(); len(missing) > 0 {
		add("high", fmt.Sprintf("Add %d security headers", len(missing)),
			"curl -sI "+deploymentURL(in), "1 hour",
			fmt.Sprintf("Up to +%d security points", 4*len(missing)))
	}
	psi := in.Evidence.PageSpeed
	slow := d.ResponseTimeMs >= 1500 || !d.HasCompression
	if psi != nil && psi.Analyzed {
		slow = psi.Performance < 90
	}
	if slow {
		add("medium", "Improve page performance",
			"npx lighthouse "+deploymentURL(in)+" --only-categories=performance", "2-4 hours",
			fmt.Sprintf("Up to +%d performance points", scoring.DeployPerformanceMax-in.Score.CodeQuality.Earned))
	}
}

func deploymentURL(in Input) string {
	if d := in.Evidence.Deployment; d != nil && d.FinalURL != "" {
		return d.FinalURL
	}
	return in.URL
}
