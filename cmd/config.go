package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"github.com/CosmoTheDev/ctrlgrade/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and manage ctrlgrade configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current configuration (secrets redacted)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		redactSecrets(cfg)
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the path to the config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := config.ConfigPath(cfgFile)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), p)
		return nil
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := config.ConfigPath(cfgFile)
		if err != nil {
			return err
		}
		if _, err := os.Stat(p); os.IsNotExist(err) {
			cfg, lerr := config.Load(cfgFile)
			if lerr != nil {
				return lerr
			}
			if err := config.Save(cfg, p); err != nil {
				return fmt.Errorf("writing default config: %w", err)
			}
		}
		editor := os.Getenv("EDITOR")
		if editor == "" {
			editor = "nano"
		}
		fmt.Printf("Opening %s with %s...\n", p, editor)
		c := exec.Command(editor, p) // #nosec G204 -- editor is from $EDITOR env var, intentional user-controlled binary
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		return c.Run()
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configPathCmd, configEditCmd)
}

// redactSecrets masks every credential in place.
func redactSecrets(cfg *config.Config) {
	mask := func(s *string, placeholder string) {
		if *s != "" {
			*s = placeholder
		}
	}
	mask(&cfg.Database.DSN, "***")
	mask(&cfg.PageSpeed.APIKey, "AIza-***")
	for i := range cfg.Git.GitHub {
		mask(&cfg.Git.GitHub[i].Token, "ghp-***")
	}
	for i := range cfg.Git.GitLab {
		mask(&cfg.Git.GitLab[i].Token, "glpat-***")
	}
	mask(&cfg.Notify.Slack.WebhookURL, "https://hooks.slack.com/***")
	mask(&cfg.Notify.Telegram.BotToken, "tg-***")
	mask(&cfg.Notify.Webhook.Secret, "***")
}
