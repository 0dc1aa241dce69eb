// Package gateway is the long-running ctrlgrade daemon: a REST + SSE API in
// front of the analysis queue, a pool that drains it, and a cron scheduler
// that re-enqueues analyses.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/CosmoTheDev/ctrlgrade/internal/agent"
	"github.com/CosmoTheDev/ctrlgrade/internal/config"
	"github.com/CosmoTheDev/ctrlgrade/internal/notify"
	"github.com/CosmoTheDev/ctrlgrade/internal/repository"
	"github.com/CosmoTheDev/ctrlgrade/internal/store"
	"github.com/CosmoTheDev/ctrlgrade/models"
)

// Gateway combines:
//   - the analysis Pool (draining the job queue)
//   - a cron Scheduler (enqueueing re-analyses)
//   - a REST + SSE HTTP server
type Gateway struct {
	cfg         *config.Config
	configPath  string
	logDir      string
	store       *store.Store
	pool        *agent.Pool
	scheduler   *Scheduler
	broadcaster *Broadcaster
	notifier    *notify.Dispatcher
	heartbeat   *HeartbeatMonitor

	mu             sync.RWMutex
	running        bool
	lastTriggerAt  string
	lastActivityAt time.Time
	startedAt      time.Time
}

// New creates a Gateway. runner performs the analyses; it is normally an
// *analyzer.Analyzer. Call Start() to begin serving.
func New(cfg *config.Config, st *store.Store, runner agent.Runner) *Gateway {
	gw := &Gateway{
		cfg:         cfg,
		logDir:      "logs",
		store:       st,
		broadcaster: newBroadcaster(),
		notifier:    notify.NewDispatcher(cfg.Notify),
		startedAt:   time.Now(),
	}
	gw.pool = agent.NewPool(st, runner, agent.PoolOptions{
		Workers:      cfg.Agent.Workers,
		PollInterval: config.Seconds(cfg.Agent.PollInterval, 5*time.Second),
		Callbacks: agent.Callbacks{
			OnStarted:   gw.onAnalysisStarted,
			OnCompleted: gw.onAnalysisCompleted,
			OnFailed:    gw.onAnalysisFailed,
		},
	})
	gw.scheduler = newScheduler(st, gw.enqueueSchedule, gw.broadcaster.send)
	gw.heartbeat = newHeartbeatMonitor(gw)
	return gw
}

// SetConfigPath stores the CLI-resolved config path reported by GET /api/config.
func (gw *Gateway) SetConfigPath(path string) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.configPath = path
}

// SetLogDir stores the CLI-resolved log directory so log APIs read the same files being written.
func (gw *Gateway) SetLogDir(path string) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if path == "" {
		path = "logs"
	}
	gw.logDir = path
}

func (gw *Gateway) touch() {
	gw.mu.Lock()
	gw.lastActivityAt = time.Now()
	gw.mu.Unlock()
}

func (gw *Gateway) onAnalysisStarted(job models.AnalysisJob) {
	gw.touch()
	gw.broadcaster.send(SSEEvent{Type: EventAnalysisStarted, Payload: map[string]any{"id": job.ID, "url": job.URL}})
}

func (gw *Gateway) onAnalysisCompleted(job models.AnalysisJob, r *models.AnalysisReport) {
	gw.touch()
	gw.broadcaster.send(SSEEvent{Type: EventAnalysisCompleted, Payload: map[string]any{
		"id":         job.ID,
		"url":        job.URL,
		"overall":    r.Score.Overall,
		"confidence": r.Confidence,
		"verdict":    r.Verdict.Label,
	}})
	gw.notifier.Notify(context.Background(), notify.CompletedEvent(job.ID, r))
}

func (gw *Gateway) onAnalysisFailed(job models.AnalysisJob, err error) {
	gw.touch()
	gw.broadcaster.send(SSEEvent{Type: EventAnalysisFailed, Payload: map[string]any{
		"id": job.ID, "url": job.URL, "error": err.Error(),
	}})
	gw.notifier.Notify(context.Background(), notify.FailedEvent(job, err))
}

// enqueue validates rawURL, records a pending job and wakes the pool.
func (gw *Gateway) enqueue(ctx context.Context, rawURL, source string) (*models.AnalysisJob, error) {
	target, err := repository.ResolveTarget(rawURL)
	if err != nil {
		return nil, err
	}
	job, err := gw.store.Enqueue(ctx, target.URL, target.Kind, source)
	if err != nil {
		return nil, err
	}
	gw.pool.Trigger()

	now := time.Now().UTC().Format(time.RFC3339)
	gw.mu.Lock()
	gw.lastTriggerAt = now
	gw.mu.Unlock()
	gw.broadcaster.send(SSEEvent{Type: EventAnalysisQueued, Payload: map[string]any{
		"id": job.ID, "url": job.URL, "kind": job.Kind, "source": source,
	}})
	return job, nil
}

func (gw *Gateway) enqueueSchedule(ctx context.Context, sched models.Schedule) error {
	_, err := gw.enqueue(ctx, sched.URL, store.SourceSchedule)
	return err
}

// Start runs the gateway until ctx is cancelled. It:
//  1. Requeues jobs interrupted by a previous shutdown
//  2. Loads and starts the cron scheduler
//  3. Starts the analysis pool in a background goroutine
//  4. Starts the stats ticker and heartbeat monitor
//  5. Binds the HTTP server (blocks until shutdown)
func (gw *Gateway) Start(ctx context.Context) error {
	port := gw.cfg.Gateway.Port
	if port == 0 {
		port = config.DefaultPort
	}
	addr := fmt.Sprintf("127.0.0.1:%d", port)

	if n, err := gw.store.RequeueRunning(ctx); err != nil {
		return err
	} else if n > 0 {
		slog.Info("gateway: requeued interrupted analyses", "count", n)
	}

	if err := gw.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}

	go func() {
		gw.mu.Lock()
		gw.running = true
		gw.mu.Unlock()

		if err := gw.pool.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("gateway: analysis pool error", "error", err)
		}

		gw.mu.Lock()
		gw.running = false
		gw.mu.Unlock()
		gw.broadcaster.send(SSEEvent{Type: EventPoolStopped})
	}()

	go gw.runStatsTicker(ctx)
	go gw.heartbeat.run(ctx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           buildHandler(gw),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		gw.scheduler.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("gateway: listening", "addr", "http://"+addr)
	gw.broadcaster.send(SSEEvent{
		Type:    EventGatewayStarted,
		Payload: map[string]string{"addr": "http://" + addr},
	})

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// runStatsTicker broadcasts a "status.update" SSE event every 5 seconds
// while at least one client is connected.
func (gw *Gateway) runStatsTicker(ctx context.Context) {
	t := time.NewTicker(5 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if gw.broadcaster.subscribers() == 0 {
				continue
			}
			gw.broadcaster.send(SSEEvent{Type: EventStatusUpdate, Payload: gw.currentStatus(ctx)})
		}
	}
}

func (gw *Gateway) currentStatus(ctx context.Context) PoolStatus {
	counts, err := gw.store.CountJobs(ctx)
	if err != nil {
		slog.Warn("gateway: counting jobs failed", "error", err)
	}
	active := gw.pool.Active()

	gw.mu.RLock()
	s := PoolStatus{
		Running:       gw.running,
		Workers:       gw.pool.Workers(),
		Active:        active,
		Pending:       counts[models.JobPending],
		Completed:     counts[models.JobCompleted],
		Failed:        counts[models.JobFailed],
		LastTriggerAt: gw.lastTriggerAt,
		UptimeSeconds: int64(time.Since(gw.startedAt).Seconds()),
	}
	gw.mu.RUnlock()
	s.Health = gw.heartbeat.computeStatus(active)
	return s
}
