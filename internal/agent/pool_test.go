package agent

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/CosmoTheDev/ctrlgrade/models"
)

type memQueue struct {
	mu      sync.Mutex
	pending []models.AnalysisJob
	saved   map[int64]*models.AnalysisReport
	failed  map[int64]string
}

func newMemQueue(urls ...string) *memQueue {
	q := &memQueue{saved: map[int64]*models.AnalysisReport{}, failed: map[int64]string{}}
	for _, u := range urls {
		q.push(u)
	}
	return q
}

func (q *memQueue) push(url string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	id := int64(len(q.pending) + len(q.saved) + len(q.failed) + 1)
	q.pending = append(q.pending, models.AnalysisJob{ID: id, URL: url, Status: models.JobPending})
}

func (q *memQueue) ClaimNext(context.Context) (*models.AnalysisJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil, nil
	}
	job := q.pending[0]
	q.pending = q.pending[1:]
	job.Status = models.JobRunning
	return &job, nil
}

func (q *memQueue) SaveReport(_ context.Context, id int64, r *models.AnalysisReport) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.saved[id] = r
	return nil
}

func (q *memQueue) MarkFailed(_ context.Context, id int64, msg string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.failed[id] = msg
	return nil
}

type fakeRunner struct {
	delay   time.Duration
	current atomic.Int32
	peak    atomic.Int32
	results map[string]func() (*models.AnalysisReport, error)
}

func (f *fakeRunner) Analyze(ctx context.Context, url string) (*models.AnalysisReport, error) {
	n := f.current.Add(1)
	defer f.current.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if fn, ok := f.results[url]; ok {
		return fn()
	}
	return &models.AnalysisReport{
		Target: models.AnalysisTarget{URL: url},
		Score:  models.ScoreBreakdown{Overall: 75},
	}, nil
}

func TestDrainRespectsWorkerLimit(t *testing.T) {
	q := newMemQueue("u1", "u2", "u3", "u4", "u5", "u6")
	r := &fakeRunner{delay: 20 * time.Millisecond}
	var completed atomic.Int32
	p := NewPool(q, r, PoolOptions{
		Workers: 2,
		Callbacks: Callbacks{
			OnCompleted: func(models.AnalysisJob, *models.AnalysisReport) { completed.Add(1) },
		},
	})

	if err := p.Drain(context.Background()); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if got := r.peak.Load(); got > 2 || got < 1 {
		t.Errorf("peak concurrency = %d, want 1..2", got)
	}
	if completed.Load() != 6 || len(q.saved) != 6 {
		t.Errorf("completed = %d, saved = %d, want 6", completed.Load(), len(q.saved))
	}
	if len(p.Active()) != 0 {
		t.Errorf("Active after Drain = %v", p.Active())
	}
}

func TestFailurePaths(t *testing.T) {
	q := newMemQueue("ftp://nope", "https://github.com/acme/gone", "https://example.com")
	r := &fakeRunner{results: map[string]func() (*models.AnalysisReport, error){
		"ftp://nope": func() (*models.AnalysisReport, error) {
			return nil, errors.New("unsupported analysis target")
		},
		"https://github.com/acme/gone": func() (*models.AnalysisReport, error) {
			return &models.AnalysisReport{Error: "acquiring: not found"}, errors.New("acquiring: not found")
		},
	}}

	var mu sync.Mutex
	var failed []int64
	var started int
	p := NewPool(q, r, PoolOptions{Workers: 1, Callbacks: Callbacks{
		OnStarted: func(models.AnalysisJob) { mu.Lock(); started++; mu.Unlock() },
		OnFailed: func(j models.AnalysisJob, _ error) {
			mu.Lock()
			failed = append(failed, j.ID)
			mu.Unlock()
		},
	}})
	if err := p.Drain(context.Background()); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	if started != 3 {
		t.Errorf("started = %d, want 3", started)
	}
	if len(failed) != 2 || failed[0] != 1 || failed[1] != 2 {
		t.Errorf("failed = %v, want [1 2]", failed)
	}
	if q.failed[1] != "unsupported analysis target" {
		t.Errorf("MarkFailed msg = %q", q.failed[1])
	}
	// Acquisition failures keep their report.
	if q.saved[2] == nil || !q.saved[2].Failed() {
		t.Errorf("job 2 report = %+v", q.saved[2])
	}
	if q.saved[3] == nil || q.saved[3].Score.Overall != 75 {
		t.Errorf("job 3 report = %+v", q.saved[3])
	}
}

func TestRunPicksUpTriggeredWork(t *testing.T) {
	q := newMemQueue()
	done := make(chan int64, 1)
	p := NewPool(q, &fakeRunner{}, PoolOptions{
		Workers:      1,
		PollInterval: time.Hour,
		Callbacks: Callbacks{
			OnCompleted: func(j models.AnalysisJob, _ *models.AnalysisReport) { done <- j.ID },
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		_ = p.Run(ctx)
		close(stopped)
	}()

	q.push("https://example.com")
	p.Trigger()

	select {
	case id := <-done:
		if id != 1 {
			t.Errorf("completed job %d, want 1", id)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("triggered job never completed")
	}

	cancel()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestShutdownLeavesJobUnrecorded(t *testing.T) {
	q := newMemQueue("https://slow.example.com")
	p := NewPool(q, &fakeRunner{delay: time.Hour}, PoolOptions{Workers: 1, PollInterval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		_ = p.Run(ctx)
		close(stopped)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for len(p.Active()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("job never started")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-stopped

	if len(q.saved) != 0 || len(q.failed) != 0 {
		t.Errorf("saved = %v, failed = %v; want nothing recorded", q.saved, q.failed)
	}
}
