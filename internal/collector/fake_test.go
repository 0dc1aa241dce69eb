package collector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// fakeRunner returns canned results keyed by Command.String().
type fakeRunner struct {
	mu      sync.Mutex
	results map[string]Result
	calls   []Command
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{results: map[string]Result{}}
}

func (f *fakeRunner) on(cmd string, res Result) *fakeRunner {
	f.results[cmd] = res
	return f
}

func (f *fakeRunner) Run(_ context.Context, c Command) Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	if res, ok := f.results[c.String()]; ok {
		return res
	}
	return Result{ExitCode: -1, Err: fmt.Errorf("%w: %s", ErrToolNotFound, c.Name)}
}

func (f *fakeRunner) ran(cmd string) bool {
	for _, c := range f.calls {
		if c.String() == cmd {
			return true
		}
	}
	return false
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func testToolchain(r CommandRunner) *Toolchain {
	return NewToolchain(r, Timeouts{}, 20)
}
