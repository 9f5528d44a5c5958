// Package command runs external tools (git, uv, python, dask) with captured
// output.
package command

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// StopGrace is how long Stream waits after interrupting a process.
var StopGrace = 5 * time.Second

// Spec describes one invocation.
type Spec struct {
	Name string
	Args []string
	Dir  string
	Env  []string // appended to the current environment
}

func (s Spec) String() string {
	return strings.TrimSpace(s.Name + " " + strings.Join(s.Args, " "))
}

// Result holds captured output. ExitCode is -1 when the process never ran.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes a Spec. Run is the default; tests substitute fakes.
type Runner func(ctx context.Context, spec Spec) (Result, error)

// Run executes spec and captures stdout and stderr separately. A non-zero
// exit is returned as an error alongside the captured output.
func Run(ctx context.Context, spec Spec) (Result, error) {
	cmd := exec.CommandContext(ctx, spec.Name, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: -1,
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}
	if err != nil {
		return result, errors.Wrapf(err, "%s", spec)
	}
	return result, nil
}

// Output runs spec and returns trimmed stdout. Failures include stderr.
func Output(ctx context.Context, run Runner, spec Spec) (string, error) {
	if run == nil {
		run = Run
	}
	result, err := run(ctx, spec)
	if err != nil {
		if msg := strings.TrimSpace(result.Stderr); msg != "" {
			return "", errors.Wrap(err, msg)
		}
		return "", err
	}
	return strings.TrimSpace(result.Stdout), nil
}

// Stream runs spec until it exits or ctx is done, copying its output to
// stdout and stderr. Cancellation interrupts the process and kills it if it
// has not exited after StopGrace.
func Stream(ctx context.Context, spec Spec, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, spec.Name, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = StopGrace

	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "%s", spec)
	}
	return nil
}

// ExitCode extracts the exit status from an error returned by Run or Stream.
// It is 0 for nil and -1 when the process never ran.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
