// Package agent runs queued analyses in the background with bounded
// concurrency.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/CosmoTheDev/ctrlgrade/models"
)

// Runner produces a report for one URL. *analyzer.Analyzer satisfies it.
type Runner interface {
	Analyze(ctx context.Context, rawURL string) (*models.AnalysisReport, error)
}

// Queue is the slice of the store the pool needs.
type Queue interface {
	ClaimNext(ctx context.Context) (*models.AnalysisJob, error)
	SaveReport(ctx context.Context, jobID int64, report *models.AnalysisReport) error
	MarkFailed(ctx context.Context, jobID int64, msg string) error
}

// Callbacks are invoked from worker goroutines. Any of them may be nil.
type Callbacks struct {
	OnStarted   func(job models.AnalysisJob)
	OnCompleted func(job models.AnalysisJob, report *models.AnalysisReport)
	OnFailed    func(job models.AnalysisJob, err error)
}

// PoolOptions configures a Pool.
type PoolOptions struct {
	// Workers is the maximum number of concurrent analyses (default 2).
	Workers int
	// PollInterval is how often the queue is checked without a Trigger (default 5s).
	PollInterval time.Duration
	// JobTimeout bounds a single analysis (0 = no limit).
	JobTimeout time.Duration
	Callbacks  Callbacks
}

// WorkerStatus is a live snapshot of one in-flight analysis.
type WorkerStatus struct {
	JobID     int64  `json:"job_id"`
	URL       string `json:"url"`
	StartedAt string `json:"started_at"`
}

// Pool claims pending jobs from a Queue and runs at most Workers of them at
// a time. Each run uses its own Runner call, so runs share no state.
type Pool struct {
	queue    Queue
	runner   Runner
	sem      *semaphore.Weighted
	workers  int
	interval time.Duration
	timeout  time.Duration
	cb       Callbacks

	triggerCh chan struct{}
	wg        sync.WaitGroup

	mu     sync.Mutex
	active map[int64]WorkerStatus
}

// NewPool creates a Pool.
func NewPool(queue Queue, runner Runner, opts PoolOptions) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	return &Pool{
		queue:     queue,
		runner:    runner,
		sem:       semaphore.NewWeighted(int64(opts.Workers)),
		workers:   opts.Workers,
		interval:  opts.PollInterval,
		timeout:   opts.JobTimeout,
		cb:        opts.Callbacks,
		triggerCh: make(chan struct{}, 1),
		active:    make(map[int64]WorkerStatus),
	}
}

// Workers returns the concurrency limit.
func (p *Pool) Workers() int { return p.workers }

// Trigger wakes the pool immediately instead of waiting for the next poll.
// At most one pending trigger is kept.
func (p *Pool) Trigger() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
}

// Active returns the in-flight analyses ordered by job id.
func (p *Pool) Active() []WorkerStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]WorkerStatus, 0, len(p.active))
	for _, s := range p.active {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JobID < out[j].JobID })
	return out
}

// Run dispatches jobs until ctx is cancelled, then waits for in-flight
// analyses to return.
func (p *Pool) Run(ctx context.Context) error {
	slog.Info("Analysis pool starting", "workers", p.workers, "poll_interval", p.interval)
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		p.dispatch(ctx)
		select {
		case <-ctx.Done():
			slog.Info("Analysis pool received shutdown signal")
			p.wg.Wait()
			return nil
		case <-p.triggerCh:
		case <-t.C:
		}
	}
}

// Drain runs every pending job and returns once the queue is empty and all
// started analyses have finished.
func (p *Pool) Drain(ctx context.Context) error {
	defer p.wg.Wait()
	for {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			return err
		}
		job, err := p.queue.ClaimNext(ctx)
		if err != nil || job == nil {
			p.sem.Release(1)
			return err
		}
		p.start(ctx, *job)
	}
}

// dispatch claims as many jobs as there are free slots.
func (p *Pool) dispatch(ctx context.Context) {
	for ctx.Err() == nil {
		if !p.sem.TryAcquire(1) {
			return
		}
		job, err := p.queue.ClaimNext(ctx)
		if err != nil {
			p.sem.Release(1)
			if ctx.Err() == nil {
				slog.Error("Claiming next analysis failed", "error", err)
			}
			return
		}
		if job == nil {
			p.sem.Release(1)
			return
		}
		p.start(ctx, *job)
	}
}

// start runs job in its own goroutine. The caller holds one semaphore slot,
// which the goroutine releases.
func (p *Pool) start(ctx context.Context, job models.AnalysisJob) {
	p.wg.Add(1)
	p.mu.Lock()
	p.active[job.ID] = WorkerStatus{JobID: job.ID, URL: job.URL, StartedAt: time.Now().UTC().Format(time.RFC3339)}
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		defer func() {
			p.mu.Lock()
			delete(p.active, job.ID)
			p.mu.Unlock()
			p.Trigger()
		}()
		p.run(ctx, job)
	}()
}

func (p *Pool) run(ctx context.Context, job models.AnalysisJob) {
	if p.cb.OnStarted != nil {
		p.cb.OnStarted(job)
	}
	runCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	slog.Info("Analysis started", "job_id", job.ID, "url", job.URL)
	report, err := p.runner.Analyze(runCtx, job.URL)

	if errors.Is(ctx.Err(), context.Canceled) {
		// Left running; RequeueRunning picks it up on the next start.
		slog.Info("Analysis interrupted by shutdown", "job_id", job.ID, "url", job.URL)
		return
	}
	// The parent may be done by now; persistence still has to happen.
	saveCtx := context.WithoutCancel(ctx)

	if report == nil {
		if err == nil {
			err = fmt.Errorf("analysis of %s returned no report", job.URL)
		}
		p.fail(saveCtx, job, err)
		return
	}
	if serr := p.queue.SaveReport(saveCtx, job.ID, report); serr != nil {
		slog.Error("Saving report failed", "job_id", job.ID, "error", serr)
		p.fail(saveCtx, job, serr)
		return
	}
	if report.Failed() {
		if err == nil {
			err = errors.New(report.Error)
		}
		slog.Warn("Analysis could not acquire target", "job_id", job.ID, "url", job.URL, "error", err)
		if p.cb.OnFailed != nil {
			p.cb.OnFailed(job, err)
		}
		return
	}

	slog.Info("Analysis completed",
		"job_id", job.ID,
		"url", job.URL,
		"overall", report.Score.Overall,
		"confidence", report.Confidence,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	if p.cb.OnCompleted != nil {
		p.cb.OnCompleted(job, report)
	}
}

func (p *Pool) fail(ctx context.Context, job models.AnalysisJob, err error) {
	slog.Error("Analysis failed", "job_id", job.ID, "url", job.URL, "error", err)
	if merr := p.queue.MarkFailed(ctx, job.ID, err.Error()); merr != nil {
		slog.Error("Recording failed analysis", "job_id", job.ID, "error", merr)
	}
	if p.cb.OnFailed != nil {
		p.cb.OnFailed(job, err)
	}
}
