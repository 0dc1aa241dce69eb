package collector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ErrToolNotFound is reported when a command is neither installed locally
// nor runnable through the docker fallback.
var ErrToolNotFound = errors.New("tool not available")

// Command is one external tool invocation scoped to a directory.
type Command struct {
	Dir     string
	Name    string
	Args    []string
	Env     []string // extra KEY=VALUE pairs
	Timeout time.Duration
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result is the outcome of a Command. Err is nil whenever the process ran to
// completion, whatever its exit code; tools such as npm audit exit non-zero
// while still producing valid output.
type Result struct {
	Stdout    []byte
	Stderr    []byte
	ExitCode  int
	Duration  time.Duration
	ViaDocker bool
	Err       error
}

// TimedOut reports whether the command was killed by its deadline.
func (r Result) TimedOut() bool {
	return errors.Is(r.Err, context.DeadlineExceeded)
}

// CommandRunner executes external tools. The analyzer tests swap in a fake.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) Result
}

// ExecRunner runs tools as local processes, preferring the project's own
// node_modules/.bin, then BinDir, then PATH. When no local binary exists
// (or PreferDocker is set) it runs the tool inside NodeImage with the
// working directory mounted.
type ExecRunner struct {
	BinDir       string
	PreferDocker bool
	NodeImage    string

	dockerOnce  sync.Once
	dockerOK    bool
	probeDocker func(ctx context.Context) error
}

// NewExecRunner returns an ExecRunner with the given resolution settings.
func NewExecRunner(binDir string, preferDocker bool, nodeImage string) *ExecRunner {
	if nodeImage == "" {
		nodeImage = "node:20-alpine"
	}
	return &ExecRunner{BinDir: binDir, PreferDocker: preferDocker, NodeImage: nodeImage}
}

func (r *ExecRunner) Run(ctx context.Context, c Command) Result {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	var cmd *exec.Cmd
	viaDocker := false
	bin, found := r.resolve(c.Name, c.Dir)
	switch {
	case found && !r.PreferDocker:
		// nosemgrep: go.lang.security.audit.dangerous-exec-command.dangerous-exec-command
		cmd = exec.CommandContext(ctx, bin, c.Args...)
		cmd.Dir = c.Dir
	case r.dockerAvailable():
		cmd = dockerRun(ctx, r.NodeImage, c.Dir, c.Name, c.Args, c.Env)
		viaDocker = true
	default:
		return Result{ExitCode: -1, Err: fmt.Errorf("%w: %s", ErrToolNotFound, c.Name)}
	}
	cmd.Env = append(os.Environ(), "CI=true", "NO_COLOR=1", "FORCE_COLOR=0", "NPM_CONFIG_UPDATE_NOTIFIER=false")
	cmd.Env = append(cmd.Env, c.Env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("Running tool", "cmd", c.String(), "dir", c.Dir, "docker", viaDocker)
	start := time.Now()
	err := cmd.Run()
	res := Result{
		Stdout:    stdout.Bytes(),
		Stderr:    stderr.Bytes(),
		Duration:  time.Since(start),
		ViaDocker: viaDocker,
	}

	switch {
	case ctx.Err() != nil:
		res.ExitCode = -1
		res.Err = fmt.Errorf("%s: %w", c.Name, ctx.Err())
	case err == nil:
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
			res.Err = fmt.Errorf("executing %s: %w", c.Name, err)
		}
	}
	return res
}

// resolve looks for name in <dir>/node_modules/.bin, BinDir and PATH.
func (r *ExecRunner) resolve(name, dir string) (string, bool) {
	var candidates []string
	if dir != "" {
		candidates = append(candidates, filepath.Join(dir, "node_modules", ".bin", name))
	}
	if r.BinDir != "" {
		candidates = append(candidates, filepath.Join(r.BinDir, name))
	}
	for _, c := range candidates {
		if p, err := exec.LookPath(c); err == nil {
			return p, true
		}
	}
	if p, err := exec.LookPath(name); err == nil {
		return p, true
	}
	return name, false
}

// dockerProbeTimeout bounds the one-time `docker info` check.
const dockerProbeTimeout = 10 * time.Second

// dockerAvailable probes once per runner. The probe has its own context so
// a cancelled caller cannot pin the result to false.
func (r *ExecRunner) dockerAvailable() bool {
	r.dockerOnce.Do(func() {
		probe := r.probeDocker
		if probe == nil {
			probe = func(ctx context.Context) error {
				return exec.CommandContext(ctx, "docker", "info", "--format", "{{.ServerVersion}}").Run()
			}
		}
		ctx, cancel := context.WithTimeout(context.Background(), dockerProbeTimeout)
		defer cancel()
		r.dockerOK = probe(ctx) == nil
		if !r.dockerOK {
			slog.Debug("Docker not available for tool fallback")
		}
	})
	return r.dockerOK
}

// dockerRun builds a docker invocation with dir mounted read-write at /work.
// Installs write node_modules into the mount, so it cannot be read-only.
func dockerRun(ctx context.Context, image, dir, name string, args, env []string) *exec.Cmd {
	dockerArgs := []string{
		"run", "--rm",
		"-v", dir + ":/work",
		"-w", "/work",
	}
	for _, kv := range env {
		dockerArgs = append(dockerArgs, "-e", kv)
	}
	dockerArgs = append(dockerArgs, image, name)
	dockerArgs = append(dockerArgs, args...)
	// nosemgrep: go.lang.security.audit.dangerous-exec-command.dangerous-exec-command
	return exec.CommandContext(ctx, "docker", dockerArgs...)
}

// Available reports whether name resolves to a local binary.
func (r *ExecRunner) Available(name string) bool {
	_, ok := r.resolve(name, "")
	return ok
}

// DockerAvailable reports whether the docker fallback can be used.
func (r *ExecRunner) DockerAvailable() bool {
	return r.dockerAvailable()
}

// failure converts an unusable Result into the message stored on Evidence.
func failure(c Command, res Result) string {
	if res.TimedOut() {
		return fmt.Sprintf("%s timed out after %s", c.Name, c.Timeout)
	}
	if res.Err != nil {
		return res.Err.Error()
	}
	msg := strings.TrimSpace(string(res.Stderr))
	if len(msg) > 300 {
		msg = msg[:300] + "..."
	}
	if msg == "" {
		return fmt.Sprintf("%s exited with code %d and no usable output", c.Name, res.ExitCode)
	}
	return fmt.Sprintf("%s exited with code %d: %s", c.Name, res.ExitCode, msg)
}
