package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/CosmoTheDev/ctrlgrade/internal/analyzer"
	"github.com/CosmoTheDev/ctrlgrade/internal/config"
	"github.com/CosmoTheDev/ctrlgrade/internal/store"
	"github.com/CosmoTheDev/ctrlgrade/internal/tui"
	"github.com/CosmoTheDev/ctrlgrade/models"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
)

var (
	analyzeOutputFmt string
	analyzeSave      bool
	analyzeFailUnder int
	analyzeQuiet     bool
)

// errScoreBelowThreshold makes `analyze --fail-under` exit non-zero.
var errScoreBelowThreshold = errors.New("score below threshold")

var analyzeCmd = &cobra.Command{
	Use:   "analyze <url>",
	Short: "Analyse a repository or live deployment",
	Long: `Resolves the URL, collects evidence, and prints a scored report.

Repository URLs (github.com, gitlab.com, bitbucket.org, or any *.git URL) are
shallow-cloned, installed and audited. Any other http(s) URL is treated as a
live deployment and probed over HTTP.

Examples:
  ctrlgrade analyze https://github.com/example/shop
  ctrlgrade analyze https://shop.example.com --output json
  ctrlgrade analyze github.com/example/lib --save --fail-under 70`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeOutputFmt, "output", "o", "table", "Output format: table|json|yaml")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "Store the report in the database (visible in 'ctrlgrade jobs' and the UI)")
	analyzeCmd.Flags().IntVar(&analyzeFailUnder, "fail-under", 0, "Exit non-zero when the overall score is below this value")
	analyzeCmd.Flags().BoolVarP(&analyzeQuiet, "quiet", "q", false, "Suppress progress output")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	switch analyzeOutputFmt {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("invalid output format %q (valid: table, json, yaml)", analyzeOutputFmt)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	a := analyzer.New(cfg)
	if !analyzeQuiet {
		stderr := cmd.ErrOrStderr()
		a = a.WithProgress(func(stage, detail string) {
			fmt.Fprintln(stderr, dimStyle.Render(progressLine(stage, detail)))
		})
	}

	report, err := a.Analyze(ctx, args[0])
	if report == nil {
		return err
	}
	var acqErr *analyzer.AcquisitionError
	if err != nil && !errors.As(err, &acqErr) {
		return err
	}

	if analyzeSave {
		if serr := saveReport(ctx, cfg, report); serr != nil {
			slog.Warn("Saving report failed", "error", serr)
		}
	}

	if werr := writeReport(cmd.OutOrStdout(), report, analyzeOutputFmt); werr != nil {
		return werr
	}
	if err != nil {
		return err
	}
	if analyzeFailUnder > 0 && report.Score.Overall < analyzeFailUnder {
		return fmt.Errorf("%w: %d < %d", errScoreBelowThreshold, report.Score.Overall, analyzeFailUnder)
	}
	return nil
}

func saveReport(ctx context.Context, cfg *config.Config, report *models.AnalysisReport) error {
	st, closeDB, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB()
	job, err := st.Record(ctx, report, store.SourceCLI)
	if err != nil {
		return err
	}
	slog.Info("Report saved", "job", job.ID)
	return nil
}

func progressLine(stage, detail string) string {
	if detail == "" {
		return "  → " + stage
	}
	return fmt.Sprintf("  → %s %s", stage, detail)
}

// writeReport renders report to w in the requested format.
func writeReport(w io.Writer, report *models.AnalysisReport, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	case "table", "":
		_, err := fmt.Fprintln(w, tui.RenderReport(report, 100))
		return err
	default:
		return fmt.Errorf("invalid output format %q", format)
	}
}
