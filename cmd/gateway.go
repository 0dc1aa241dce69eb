package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/CosmoTheDev/ctrlgrade/internal/analyzer"
	"github.com/CosmoTheDev/ctrlgrade/internal/config"
	"github.com/CosmoTheDev/ctrlgrade/internal/gateway"
	"github.com/spf13/cobra"
)

var gatewayPort int
var gatewayLogDir string
var gatewayWorkers int

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start the ctrlgrade gateway daemon",
	Long: `Starts the ctrlgrade gateway: a long-running daemon that drains a queue
of analyses with a bounded worker pool and exposes a local REST + SSE API
(default: http://127.0.0.1:6090).

Analyses are queued through the API or by cron schedules, run at most
agent.workers at a time, and are stored with their full report. Completed
and failed analyses can notify Slack, Telegram or a signed webhook.

Example schedules:
  "0 2 * * *"   every night at 02:00
  "@every 6h"   every 6 hours
  "@daily"      once per day at midnight

Quick API reference:
  GET    /health                          liveness check
  GET    /api/status                      pool status snapshot
  POST   /api/analyses                    queue an analysis (body: {"url":"..."})
  GET    /api/analyses                    list analyses (?status=&kind=&page=)
  GET    /api/analyses/{id}               one analysis
  GET    /api/analyses/{id}/report        full report
  DELETE /api/analyses/{id}               delete an analysis
  GET    /api/schedules                   list cron schedules
  POST   /api/schedules                   create a schedule
  DELETE /api/schedules/{id}              delete a schedule
  POST   /api/schedules/{id}/trigger      run a schedule immediately
  GET    /events                          SSE stream of live events`,
	RunE: runGateway,
}

func init() {
	gatewayCmd.Flags().IntVar(&gatewayPort, "port", 0,
		"HTTP port to listen on (default 6090, overrides config)")
	gatewayCmd.Flags().StringVar(&gatewayLogDir, "log-dir", "logs",
		"directory to write gateway logs for later inspection")
	gatewayCmd.Flags().IntVar(&gatewayWorkers, "workers", 0,
		"maximum concurrent analyses (overrides config)")
}

func runGateway(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		fmt.Println("\nShutting down gateway gracefully...")
		cancel()
	}()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	effectiveCfgPath, _ := config.ConfigPath(cfgFile)

	logFilePath, closeLog, err := setupGatewayFileLogger(gatewayLogDir)
	if err != nil {
		return fmt.Errorf("initialising gateway logger: %w", err)
	}
	defer closeLog()

	if gatewayPort > 0 {
		cfg.Gateway.Port = gatewayPort
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = config.DefaultPort
	}
	if gatewayWorkers > 0 {
		cfg.Agent.Workers = gatewayWorkers
	}
	if cfg.Agent.Workers < 1 {
		return fmt.Errorf("invalid agent.workers %d (must be at least 1)", cfg.Agent.Workers)
	}

	st, closeDB, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	fmt.Printf("ctrlgrade gateway starting\n")
	fmt.Printf("  Workers    : %d\n", cfg.Agent.Workers)
	fmt.Printf("  API        : http://127.0.0.1:%d\n", cfg.Gateway.Port)
	fmt.Printf("  Events     : http://127.0.0.1:%d/events\n", cfg.Gateway.Port)
	fmt.Printf("  Logs       : %s\n\n", logFilePath)
	fmt.Println("Press Ctrl+C to stop gracefully.")
	fmt.Println("Queue analyses via POST /api/analyses or cron schedules.")
	fmt.Println()

	slog.Info("gateway logger initialised", "file", logFilePath)
	gw := gateway.New(cfg, st, analyzer.New(cfg))
	gw.SetConfigPath(effectiveCfgPath)
	gw.SetLogDir(gatewayLogDir)
	return gw.Start(ctx)
}

func setupGatewayFileLogger(logDir string) (string, func(), error) {
	if logDir == "" {
		logDir = "logs"
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return "", nil, fmt.Errorf("creating log dir %s: %w", logDir, err)
	}

	ts := time.Now().UTC().Format("20060102-150405")
	runLogPath := filepath.Join(logDir, fmt.Sprintf("gateway-%s.log", ts))
	runFile, err := os.OpenFile(runLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", nil, fmt.Errorf("opening run log file: %w", err)
	}

	latestPath := filepath.Join(logDir, "gateway.log")
	latestFile, err := os.OpenFile(latestPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		_ = runFile.Close()
		return "", nil, fmt.Errorf("opening latest log file: %w", err)
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(io.MultiWriter(os.Stdout, runFile, latestFile), &slog.HandlerOptions{
		Level:     level,
		AddSource: verbose,
	})
	slog.SetDefault(slog.New(handler))
	slog.SetLogLoggerLevel(level)

	cleanup := func() {
		_ = latestFile.Close()
		_ = runFile.Close()
	}
	return runLogPath, cleanup, nil
}
