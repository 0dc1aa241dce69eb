package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/CosmoTheDev/ctrlgrade/internal/config"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Interactive setup wizard for ctrlgrade",
	Long: `Walks you through configuring ctrlgrade:
  - Git provider credentials (GitHub, GitLab) for private clones and metadata
  - Storage backend and worker concurrency
  - PageSpeed assessment for live deployments
  - Notifications for the gateway (Slack, Telegram, signed webhook)

Every step is optional; public repositories and deployments work with the
defaults.`,
	RunE: runOnboard,
}

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#14B8A6")).
	MarginBottom(1)

var successStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#10B981"))

var warnStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#F59E0B"))

var dimStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#6B7280"))

func runOnboard(cmd *cobra.Command, args []string) error {
	fmt.Println()
	fmt.Println(headerStyle.Render("  ctrlgrade · repository and deployment readiness scores"))

	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Println(warnStyle.Render("  Existing config could not be read; starting from defaults."))
		cfg = &config.Config{}
	}

	if err := config.EnsureDir(); err != nil {
		return fmt.Errorf("creating ctrlgrade directories: %w", err)
	}

	// --- Step 1: GitHub ---
	fmt.Println(headerStyle.Render("  Step 1/5 · GitHub Credentials (optional)"))
	fmt.Println(dimStyle.Render("  A token lifts the metadata rate limit and allows private clones.\n"))

	var githubToken string
	githubHost := "github.com"
	if len(cfg.Git.GitHub) > 0 {
		githubToken = cfg.Git.GitHub[0].Token
		if cfg.Git.GitHub[0].Host != "" {
			githubHost = cfg.Git.GitHub[0].Host
		}
	}
	ghForm := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("GitHub Personal Access Token").
				Description("Read-only repository access is enough. Leave blank for public repositories only.").
				Placeholder("ghp_...").
				EchoMode(huh.EchoModePassword).
				Value(&githubToken),
			huh.NewInput().
				Title("GitHub host").
				Description("Use 'github.com' for public GitHub or your enterprise hostname").
				Value(&githubHost),
		),
	)
	if err := ghForm.Run(); err != nil {
		return err
	}
	cfg.Git.GitHub = nil
	if strings.TrimSpace(githubToken) != "" {
		cfg.Git.GitHub = []config.GitHubConfig{{Token: strings.TrimSpace(githubToken), Host: strings.TrimSpace(githubHost)}}
	}

	// --- Step 2: GitLab ---
	fmt.Println(headerStyle.Render("\n  Step 2/5 · GitLab Credentials (optional)"))
	addGitLab := len(cfg.Git.GitLab) > 0
	if err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title("Configure a GitLab token?").
			Value(&addGitLab),
	)).Run(); err != nil {
		return err
	}
	if addGitLab {
		var glToken string
		glHost := "gitlab.com"
		if len(cfg.Git.GitLab) > 0 {
			glToken = cfg.Git.GitLab[0].Token
			if cfg.Git.GitLab[0].Host != "" {
				glHost = cfg.Git.GitLab[0].Host
			}
		}
		if err := huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("GitLab token").Placeholder("glpat-...").EchoMode(huh.EchoModePassword).Value(&glToken),
			huh.NewInput().Title("GitLab host").Value(&glHost),
		)).Run(); err != nil {
			return err
		}
		cfg.Git.GitLab = []config.GitLabConfig{{Token: strings.TrimSpace(glToken), Host: strings.TrimSpace(glHost)}}
	} else {
		cfg.Git.GitLab = nil
	}

	// --- Step 3: Storage and workers ---
	fmt.Println(headerStyle.Render("\n  Step 3/5 · Storage and Workers"))
	driver := cfg.Database.Driver
	if driver == "" {
		driver = "sqlite"
	}
	dsn := cfg.Database.DSN
	workers := strconv.Itoa(max(cfg.Agent.Workers, 1))
	preferDocker := cfg.Analysis.PreferDocker
	if err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Database").
				Options(
					huh.NewOption("SQLite (single file, no setup)", "sqlite"),
					huh.NewOption("MySQL (shared by several gateways)", "mysql"),
				).
				Value(&driver),
			huh.NewInput().
				Title("Concurrent analyses").
				Description("Each analysis clones and installs a project; 2-4 suits most machines.").
				Validate(validatePositiveInt).
				Value(&workers),
			huh.NewConfirm().
				Title("Always run node tooling in docker?").
				Description("When off, local npm/eslint/tsc are used and docker is only a fallback.").
				Value(&preferDocker),
		),
	).Run(); err != nil {
		return err
	}
	if driver == "mysql" {
		if err := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title("MySQL DSN").
				Placeholder("user:pass@tcp(127.0.0.1:3306)/ctrlgrade").
				EchoMode(huh.EchoModePassword).
				Value(&dsn),
		)).Run(); err != nil {
			return err
		}
	}
	cfg.Database.Driver = driver
	cfg.Database.DSN = strings.TrimSpace(dsn)
	cfg.Agent.Workers, _ = strconv.Atoi(strings.TrimSpace(workers))
	cfg.Analysis.PreferDocker = preferDocker

	// --- Step 4: PageSpeed ---
	fmt.Println(headerStyle.Render("\n  Step 4/5 · PageSpeed for Deployments"))
	psEnabled := cfg.PageSpeed.Enabled
	psKey := cfg.PageSpeed.APIKey
	strategy := cfg.PageSpeed.Strategy
	if strategy == "" {
		strategy = "mobile"
	}
	if err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title("Run a PageSpeed assessment when analysing a live deployment?").
			Value(&psEnabled),
		huh.NewInput().
			Title("PageSpeed Insights API key (optional)").
			Description("Without a key requests share a small anonymous quota.").
			EchoMode(huh.EchoModePassword).
			Value(&psKey),
		huh.NewSelect[string]().
			Title("Strategy").
			Options(huh.NewOption("mobile", "mobile"), huh.NewOption("desktop", "desktop")).
			Value(&strategy),
	)).Run(); err != nil {
		return err
	}
	cfg.PageSpeed.Enabled = psEnabled
	cfg.PageSpeed.APIKey = strings.TrimSpace(psKey)
	cfg.PageSpeed.Strategy = strategy

	// --- Step 5: Notifications ---
	fmt.Println(headerStyle.Render("\n  Step 5/5 · Gateway Notifications (optional)"))
	slackURL := cfg.Notify.Slack.WebhookURL
	tgToken := cfg.Notify.Telegram.BotToken
	tgChat := cfg.Notify.Telegram.ChatID
	hookURL := cfg.Notify.Webhook.URL
	hookSecret := cfg.Notify.Webhook.Secret
	below := ""
	if cfg.Notify.BelowOverall > 0 {
		below = strconv.Itoa(cfg.Notify.BelowOverall)
	}
	if err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Slack incoming webhook URL").Placeholder("https://hooks.slack.com/services/...").Value(&slackURL),
			huh.NewInput().Title("Telegram bot token").EchoMode(huh.EchoModePassword).Value(&tgToken),
			huh.NewInput().Title("Telegram chat ID").Value(&tgChat),
		),
		huh.NewGroup(
			huh.NewInput().Title("Generic webhook URL").Value(&hookURL),
			huh.NewInput().
				Title("Webhook signing secret").
				Description("Requests carry an HMAC-SHA256 signature of the body when set.").
				EchoMode(huh.EchoModePassword).
				Value(&hookSecret),
			huh.NewInput().
				Title("Only notify for scores below").
				Description("Leave blank to notify for every completed analysis.").
				Validate(validateOptionalScore).
				Value(&below),
		),
	).Run(); err != nil {
		return err
	}
	cfg.Notify.Slack.WebhookURL = strings.TrimSpace(slackURL)
	cfg.Notify.Telegram.BotToken = strings.TrimSpace(tgToken)
	cfg.Notify.Telegram.ChatID = strings.TrimSpace(tgChat)
	cfg.Notify.Webhook.URL = strings.TrimSpace(hookURL)
	cfg.Notify.Webhook.Secret = strings.TrimSpace(hookSecret)
	cfg.Notify.BelowOverall, _ = strconv.Atoi(strings.TrimSpace(below))

	cfgPath, err := config.ConfigPath(cfgFile)
	if err != nil {
		return err
	}
	if err := config.Save(cfg, cfgPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Println(headerStyle.Render("  Setup complete!"))
	fmt.Printf("  Config saved to: %s\n", dimStyle.Render(cfgPath))
	if cfg.Database.Driver == "sqlite" {
		fmt.Printf("  Database:        %s\n", dimStyle.Render(filepath.Clean(cfg.Database.Path)))
	}
	fmt.Println()
	fmt.Println(dimStyle.Render("  Next steps:"))
	fmt.Println(dimStyle.Render("    ctrlgrade doctor              verify tools and credentials"))
	fmt.Println(dimStyle.Render("    ctrlgrade analyze <url>       score a repository or deployment"))
	fmt.Println(dimStyle.Render("    ctrlgrade gateway             run the API, queue and schedules"))
	fmt.Println(dimStyle.Render("    ctrlgrade ui                  browse stored analyses"))
	fmt.Println()
	return nil
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return fmt.Errorf("enter a whole number of at least 1")
	}
	return nil
}

func validateOptionalScore(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 100 {
		return fmt.Errorf("enter a score between 1 and 100, or leave blank")
	}
	return nil
}
