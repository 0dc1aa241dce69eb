package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/CosmoTheDev/ctrlgrade/internal/config"
	"github.com/CosmoTheDev/ctrlgrade/internal/database"
	"github.com/CosmoTheDev/ctrlgrade/internal/store"
	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	cfgFile string
	verbose bool
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ctrlgrade",
	Short: "Score repositories and live deployments for production readiness",
	Long: `ctrlgrade analyses a hosted git repository or a live deployment and
produces a scored, explainable report: security, code quality, testing,
dependencies and hygiene, with a verdict and a prioritised list of next steps.

Get started:
  ctrlgrade onboard            Interactive setup wizard
  ctrlgrade doctor             Verify tools and credentials
  ctrlgrade analyze <url>      Analyse one repository or deployment
  ctrlgrade gateway            Start the REST + SSE daemon with cron schedules
  ctrlgrade jobs               Inspect stored analyses
  ctrlgrade ui                 Launch the terminal UI`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ~/.ctrlgrade/config.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable verbose/debug output")

	rootCmd.Version = Version
	rootCmd.AddCommand(
		onboardCmd,
		analyzeCmd,
		gatewayCmd,
		jobsCmd,
		uiCmd,
		configCmd,
		doctorCmd,
	)
}

func initLogging() {
	if verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
		slog.Debug("Verbose logging enabled")
	}
}

// openStore opens and migrates the configured database. The returned close
// function releases the connection.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, func(), error) {
	db, err := database.New(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}
	return store.New(db), func() { _ = db.Close() }, nil
}
