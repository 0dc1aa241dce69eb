package collector

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/CosmoTheDev/ctrlgrade/models"
)

const tscOutput = `src/a.ts(3,7): error TS2322: Type 'string' is not assignable to type 'number'.
src/b.ts(10,1): error TS2304: Cannot find name 'foo'.
`

func TestCountTypeErrors(t *testing.T) {
	if n := CountTypeErrors([]byte(tscOutput)); n != 2 {
		t.Fatalf("got %d, want 2", n)
	}
	if n := CountTypeErrors(nil); n != 0 {
		t.Fatalf("got %d, want 0", n)
	}
}

func TestTypeCheck(t *testing.T) {
	cmd := "tsc --noEmit --pretty false"
	tests := []struct {
		name         string
		tsconfig     bool
		res          Result
		wantAnalyzed bool
		wantErrors   int
	}{
		{name: "not configured", tsconfig: false},
		{name: "clean", tsconfig: true, res: Result{}, wantAnalyzed: true},
		{name: "errors", tsconfig: true, res: Result{Stdout: []byte(tscOutput), ExitCode: 2}, wantAnalyzed: true, wantErrors: 2},
		{name: "crash without diagnostics", tsconfig: true, res: Result{Stderr: []byte("error: unknown compiler option"), ExitCode: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.tsconfig {
				writeFile(t, filepath.Join(dir, "tsconfig.json"), "{}")
			}
			r := newFakeRunner().on(cmd, tt.res)
			ev := testToolchain(r).TypeCheck(context.Background(), &models.PackageManifest{Dir: dir})
			if ev.Configured != tt.tsconfig {
				t.Fatalf("Configured = %v", ev.Configured)
			}
			if ev.Analyzed != tt.wantAnalyzed || ev.Errors != tt.wantErrors {
				t.Fatalf("got analyzed=%v errors=%d, want %v/%d", ev.Analyzed, ev.Errors, tt.wantAnalyzed, tt.wantErrors)
			}
			if !tt.tsconfig && r.ran(cmd) {
				t.Fatal("tsc must not run without a tsconfig")
			}
		})
	}
}
