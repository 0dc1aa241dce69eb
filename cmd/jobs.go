package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/CosmoTheDev/ctrlgrade/internal/agent"
	"github.com/CosmoTheDev/ctrlgrade/internal/analyzer"
	"github.com/CosmoTheDev/ctrlgrade/internal/config"
	"github.com/CosmoTheDev/ctrlgrade/internal/repository"
	"github.com/CosmoTheDev/ctrlgrade/internal/store"
	"github.com/CosmoTheDev/ctrlgrade/models"
	"github.com/spf13/cobra"
)

var (
	jobsStatus    string
	jobsLimit     int
	jobsOutputFmt string
	jobsWorkers   int
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and run stored analyses",
	Long: `Works directly against the database, with or without a running gateway.

  ctrlgrade jobs list --status failed
  ctrlgrade jobs show 12 --output json
  ctrlgrade jobs add https://github.com/example/shop
  ctrlgrade jobs run --workers 4
  ctrlgrade jobs delete 12`,
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List analyses, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		switch jobsStatus {
		case "", models.JobPending, models.JobRunning, models.JobCompleted, models.JobFailed:
		default:
			return fmt.Errorf("invalid status %q", jobsStatus)
		}
		return withStore(cmd.Context(), func(ctx context.Context, _ *config.Config, st *store.Store) error {
			jobs, err := st.ListJobs(ctx, store.ListOptions{Status: jobsStatus, Limit: jobsLimit})
			if err != nil {
				return err
			}
			printJobs(cmd.OutOrStdout(), jobs)
			return nil
		})
	},
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print the stored report for an analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseJobID(args[0])
		if err != nil {
			return err
		}
		return withStore(cmd.Context(), func(ctx context.Context, _ *config.Config, st *store.Store) error {
			report, err := st.GetReport(ctx, id)
			if errors.Is(err, store.ErrNotFound) {
				job, jerr := st.GetJob(ctx, id)
				if jerr != nil {
					return jerr
				}
				if job.ErrorMsg != "" {
					return fmt.Errorf("analysis %d is %s: %s", id, job.Status, job.ErrorMsg)
				}
				return fmt.Errorf("analysis %d is %s and has no report", id, job.Status)
			}
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), report, jobsOutputFmt)
		})
	},
}

var jobsAddCmd = &cobra.Command{
	Use:   "add <url>...",
	Short: "Queue analyses for the gateway or 'jobs run'",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, _ *config.Config, st *store.Store) error {
			for _, raw := range args {
				target, err := repository.ResolveTarget(raw)
				if err != nil {
					return err
				}
				job, err := st.Enqueue(ctx, target.URL, target.Kind, store.SourceCLI)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "queued #%d %s (%s)\n", job.ID, job.URL, job.Kind)
			}
			return nil
		})
	},
}

var jobsRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every pending analysis, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return withStore(ctx, func(ctx context.Context, cfg *config.Config, st *store.Store) error {
			if n, err := st.RequeueRunning(ctx); err != nil {
				return err
			} else if n > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "requeued %d interrupted analyses\n", n)
			}
			workers := cfg.Agent.Workers
			if jobsWorkers > 0 {
				workers = jobsWorkers
			}
			out := cmd.OutOrStdout()
			// Callbacks run on worker goroutines.
			var mu sync.Mutex
			var done, failed int
			pool := agent.NewPool(st, analyzer.New(cfg), agent.PoolOptions{
				Workers: workers,
				Callbacks: agent.Callbacks{
					OnStarted: func(j models.AnalysisJob) {
						mu.Lock()
						defer mu.Unlock()
						fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("  → #%d %s", j.ID, j.URL)))
					},
					OnCompleted: func(j models.AnalysisJob, r *models.AnalysisReport) {
						mu.Lock()
						defer mu.Unlock()
						done++
						fmt.Fprintf(out, "  %s #%d %s %d/100 %s\n", successStyle.Render("✓"), j.ID, j.URL, r.Score.Overall, r.Verdict.Label)
					},
					OnFailed: func(j models.AnalysisJob, err error) {
						mu.Lock()
						defer mu.Unlock()
						failed++
						fmt.Fprintf(out, "  %s #%d %s %s\n", warnStyle.Render("✗"), j.ID, j.URL, err)
					},
				},
			})
			if err := pool.Drain(ctx); err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%d completed, %d failed\n", done, failed)
			return nil
		})
	},
}

var jobsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an analysis and its report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseJobID(args[0])
		if err != nil {
			return err
		}
		return withStore(cmd.Context(), func(ctx context.Context, _ *config.Config, st *store.Store) error {
			if err := st.DeleteJob(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted #%d\n", id)
			return nil
		})
	},
}

func init() {
	jobsListCmd.Flags().StringVar(&jobsStatus, "status", "", "Filter by status: pending|running|completed|failed")
	jobsListCmd.Flags().IntVar(&jobsLimit, "limit", 50, "Maximum rows to print")
	jobsShowCmd.Flags().StringVarP(&jobsOutputFmt, "output", "o", "table", "Output format: table|json|yaml")
	jobsRunCmd.Flags().IntVar(&jobsWorkers, "workers", 0, "Maximum concurrent analyses (overrides config)")
	jobsCmd.AddCommand(jobsListCmd, jobsShowCmd, jobsAddCmd, jobsRunCmd, jobsDeleteCmd)
}

// withStore loads config, opens the store and runs fn.
func withStore(ctx context.Context, fn func(context.Context, *config.Config, *store.Store) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	st, closeDB, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB()
	return fn(ctx, cfg, st)
}

func parseJobID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(raw, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid analysis id %q", raw)
	}
	return id, nil
}

func printJobs(w io.Writer, jobs []models.AnalysisJob) {
	if len(jobs) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No analyses found."))
		return
	}
	fmt.Fprintf(w, "%-6s %-10s %-44s %-10s %5s  %s\n", "ID", "KIND", "URL", "STATUS", "SCORE", "VERDICT")
	for _, j := range jobs {
		score := "-"
		if j.Status == models.JobCompleted {
			score = strconv.Itoa(j.Overall)
		}
		verdict := j.Verdict
		if j.Status == models.JobFailed {
			verdict = j.ErrorMsg
		}
		fmt.Fprintf(w, "%-6d %-10s %-44s %-10s %5s  %s\n", j.ID, j.Kind, j.URL, j.Status, score, verdict)
	}
}
