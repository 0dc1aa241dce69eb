package collector

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestDockerProbeIgnoresCallerCancellation(t *testing.T) {
	calls := 0
	r := NewExecRunner("", true, "")
	r.probeDocker = func(ctx context.Context) error {
		calls++
		return ctx.Err()
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := r.Run(ctx, Command{Name: "ctrlgrade-missing-tool"})
	if res.Err == nil {
		t.Fatal("expected the cancelled run to fail")
	}
	if !r.DockerAvailable() {
		t.Fatal("docker probe result was pinned by a cancelled caller")
	}
	if calls != 1 {
		t.Fatalf("probe ran %d times, want 1", calls)
	}
}

func TestDockerProbeFailure(t *testing.T) {
	r := NewExecRunner("", false, "")
	r.probeDocker = func(context.Context) error { return errors.New("cannot connect to the docker daemon") }
	if r.DockerAvailable() {
		t.Fatal("expected docker to be unavailable")
	}
	res := r.Run(context.Background(), Command{Name: "ctrlgrade-missing-tool"})
	if !errors.Is(res.Err, ErrToolNotFound) {
		t.Fatalf("err = %v, want ErrToolNotFound", res.Err)
	}
}

func TestDockerRunPassesEnv(t *testing.T) {
	cmd := dockerRun(context.Background(), "node:20-alpine", "/src", "eslint", []string{"."}, []string{"ESLINT_USE_FLAT_CONFIG=true"})
	got := strings.Join(cmd.Args[1:], " ")
	want := "run --rm -v /src:/work -w /work -e ESLINT_USE_FLAT_CONFIG=true node:20-alpine eslint ."
	if got != want {
		t.Fatalf("docker args = %q, want %q", got, want)
	}
}
