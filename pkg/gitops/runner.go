package gitops

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Runner invokes the version-control tool with an argument vector and
// returns its captured standard output.
type Runner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// SubprocessError is returned when the tool exits non-zero or cannot start.
type SubprocessError struct {
	Binary   string
	Args     []string
	ExitCode int
	Output   string
	Err      error
}

func (e *SubprocessError) Error() string {
	cmd := strings.TrimSpace(e.Binary + " " + strings.Join(e.Args, " "))
	if e.Output == "" {
		return fmt.Sprintf("%s: %v", cmd, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", cmd, e.Err, e.Output)
}

func (e *SubprocessError) Unwrap() error { return e.Err }

type ExecRunner struct {
	Binary string
	Dir    string
	log    *zap.Logger
}

func NewExecRunner(binary, dir string, log *zap.Logger) *ExecRunner {
	if binary == "" {
		binary = "git"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ExecRunner{Binary: binary, Dir: dir, log: log}
}

func (r *ExecRunner) Run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, r.Binary, args...)
	cmd.Dir = r.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.log.Debug("exec", zap.String("binary", r.Binary), zap.Strings("args", args), zap.String("dir", r.Dir))
	if err := cmd.Run(); err != nil {
		exitCode := -1
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			exitCode = ee.ExitCode()
		}
		// git reports some failures (e.g. "nothing to commit") on stdout only.
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}
		return "", &SubprocessError{
			Binary:   r.Binary,
			Args:     args,
			ExitCode: exitCode,
			Output:   msg,
			Err:      err,
		}
	}
	return strings.TrimSpace(stdout.String()), nil
}

// DryRunner records argument vectors without executing anything.
type DryRunner struct {
	Calls [][]string
	log   *zap.Logger
}

func NewDryRunner(log *zap.Logger) *DryRunner {
	if log == nil {
		log = zap.NewNop()
	}
	return &DryRunner{log: log}
}

func (d *DryRunner) Run(_ context.Context, args ...string) (string, error) {
	d.Calls = append(d.Calls, append([]string(nil), args...))
	d.log.Warn("dry-run: skipping git", zap.Strings("args", args))
	return "", nil
}
