package cmd

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/CosmoTheDev/ctrlgrade/internal/collector"
	"github.com/CosmoTheDev/ctrlgrade/internal/config"
	"github.com/CosmoTheDev/ctrlgrade/internal/database"
	"github.com/CosmoTheDev/ctrlgrade/internal/repository"
	"github.com/CosmoTheDev/ctrlgrade/models"
	"github.com/spf13/cobra"
)

var doctorCheckAPI bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Verify tools, credentials, and system health",
	Long: `Checks that the database can be reached, that the node tooling used by
the collectors (npm, npx, eslint, tsc) resolves locally or through docker,
and which optional credentials are configured.

Use --check-api to make a live metadata request with each configured token.`,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorCheckAPI, "check-api", false,
		"Verify hosting-provider tokens with a live API request")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	allOK := true

	fmt.Println("=== ctrlgrade doctor ===")
	fmt.Println()

	fmt.Print("Database ................. ")
	db, err := database.New(cfg.Database)
	if err != nil {
		fmt.Printf("FAIL (%s)\n", err)
		allOK = false
	} else {
		if err := db.Ping(ctx); err != nil {
			fmt.Printf("FAIL (%s)\n", err)
			allOK = false
		} else {
			where := cfg.Database.Path
			if db.Driver() == "mysql" {
				where = "dsn configured"
			}
			fmt.Printf("OK (%s: %s)\n", db.Driver(), where)
		}
		db.Close()
	}

	fmt.Print("GitHub token ............. ")
	if len(cfg.Git.GitHub) == 0 || cfg.Git.GitHub[0].Token == "" {
		fmt.Println("not configured (public repos only, 60 API requests/hour)")
	} else {
		fmt.Printf("OK (%s)\n", hostOr(cfg.Git.GitHub[0].Host, "github.com"))
		if doctorCheckAPI {
			allOK = checkMetadata(ctx, cfg, "github", hostOr(cfg.Git.GitHub[0].Host, "github.com"), "octocat", "Hello-World") && allOK
		}
	}

	fmt.Print("GitLab token ............. ")
	if len(cfg.Git.GitLab) == 0 || cfg.Git.GitLab[0].Token == "" {
		fmt.Println("not configured (optional)")
	} else {
		fmt.Printf("OK (%s)\n", hostOr(cfg.Git.GitLab[0].Host, "gitlab.com"))
		if doctorCheckAPI {
			allOK = checkMetadata(ctx, cfg, "gitlab", hostOr(cfg.Git.GitLab[0].Host, "gitlab.com"), "gitlab-org", "gitlab-foss") && allOK
		}
	}

	fmt.Print("PageSpeed ................ ")
	switch {
	case !cfg.PageSpeed.Enabled:
		fmt.Println("disabled (deployments are scored from the HTTP probe only)")
	case cfg.PageSpeed.APIKey == "":
		fmt.Println("enabled without API key (shared quota, may be rate limited)")
	default:
		fmt.Printf("OK (%s, %d req/min)\n", cfg.PageSpeed.Strategy, cfg.PageSpeed.RequestsPerMinute)
	}

	fmt.Print("Notifications ............ ")
	var channels []string
	if cfg.Notify.Slack.WebhookURL != "" {
		channels = append(channels, "slack")
	}
	if cfg.Notify.Telegram.BotToken != "" && cfg.Notify.Telegram.ChatID != "" {
		channels = append(channels, "telegram")
	}
	if cfg.Notify.Webhook.URL != "" {
		channels = append(channels, "webhook")
	}
	if len(channels) == 0 {
		fmt.Println("none (optional)")
	} else {
		fmt.Printf("OK (%s)\n", strings.Join(channels, ", "))
	}

	fmt.Println()
	fmt.Println("Collector tools:")
	runner := collector.NewExecRunner(cfg.Analysis.BinDir, cfg.Analysis.PreferDocker, cfg.Analysis.NodeImage)
	dockerOK := runner.DockerAvailable()
	tools := []struct {
		name     string
		required bool
		purpose  string
	}{
		{"node", true, "runtime"},
		{"npm", true, "install, audit, outdated"},
		{"npx", false, "eslint fallback"},
		{"eslint", false, "lint (npx fallback)"},
		{"tsc", false, "type checking"},
		{"git", false, "not required, clones use go-git"},
	}
	for _, t := range tools {
		fmt.Printf("  %-10s ... ", t.name)
		switch {
		case runner.Available(t.name):
			fmt.Printf("OK (%s)\n", t.purpose)
		case dockerOK && t.name != "git":
			fmt.Printf("via docker %s (%s)\n", cfg.Analysis.NodeImage, t.purpose)
		case t.required:
			fmt.Printf("MISSING (%s)\n", t.purpose)
			allOK = false
		default:
			fmt.Printf("missing (%s)\n", t.purpose)
		}
	}

	fmt.Print("\nDocker ................... ")
	if _, err := exec.LookPath("docker"); err != nil {
		fmt.Println("NOT FOUND (optional, local binaries preferred)")
	} else if !dockerOK {
		fmt.Println("NOT RUNNING (optional)")
	} else {
		fmt.Printf("OK (image %s)\n", cfg.Analysis.NodeImage)
	}

	fmt.Println()
	if allOK {
		fmt.Println(successStyle.Render("All checks passed. ctrlgrade is ready."))
	} else {
		fmt.Println(warnStyle.Render("Some checks failed. Run 'ctrlgrade onboard' or install the missing tools."))
	}

	return nil
}

func hostOr(host, def string) string {
	if host == "" {
		return def
	}
	return host
}

// checkMetadata fetches a well-known public repository with the configured
// token to prove the credential works.
func checkMetadata(ctx context.Context, cfg *config.Config, provider, host, owner, repo string) bool {
	fmt.Printf("  %-22s ... ", provider+" API")
	p := repository.MetadataFor(cfg, models.AnalysisTarget{
		Kind: models.TargetRepository, Provider: provider, Host: host, Owner: owner, Repo: repo,
	})
	if p == nil {
		fmt.Println("FAIL (no client)")
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if _, err := p.Fetch(ctx, owner, repo); err != nil {
		fmt.Printf("FAIL (%s)\n", err)
		return false
	}
	fmt.Println("OK")
	return true
}
