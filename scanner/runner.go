package scanner

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// Runner executes an external command and returns its combined standard
// output. Everything the agent shells out to (arp-scan, iptables,
// hostapd_cli) goes through this interface so tests can substitute a fake
// instead of invoking real system binaries.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands via os/exec with a per-invocation timeout.
type ExecRunner struct {
	// Timeout bounds a single command; zero means no bound beyond ctx.
	Timeout time.Duration
}

// Run executes the command and returns stdout. A non-zero exit or timeout
// is returned as an error; stderr is folded into the error message.
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok && len(ee.Stderr) > 0 {
			return out, fmt.Errorf("%s: %w: %s", name, err, string(ee.Stderr))
		}
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// RunnerFunc adapts a function to the Runner interface, mirroring
// http.HandlerFunc. Used heavily by tests.
type RunnerFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Run calls the wrapped function.
func (f RunnerFunc) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return f(ctx, name, args...)
}
