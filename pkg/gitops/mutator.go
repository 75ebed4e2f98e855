// Package gitops performs the local and remote git steps of a version bump
// and the pin rewrite of the build file.
package gitops

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
)

// Plan holds the names derived from a selected version.
type Plan struct {
	Version       string `json:"version"`
	Branch        string `json:"branch"`
	Tag           string `json:"tag"`
	CommitMessage string `json:"commit_message"`
}

func NewPlan(version, branchPrefix, tagSuffix string) Plan {
	branch := branchPrefix + version
	return Plan{
		Version:       version,
		Branch:        branch,
		Tag:           branch + tagSuffix,
		CommitMessage: fmt.Sprintf("Update VectorChord to %s", version),
	}
}

// Mutator wraps each git step around a single Runner. Every method returns
// the captured output on success.
type Mutator struct {
	run    Runner
	remote string
	dir    string
	dryRun bool
	log    *zap.Logger
}

type MutatorOptions struct {
	Remote string
	// Dir resolves relative file paths; it should match the runner's
	// working directory.
	Dir    string
	DryRun bool
	Logger *zap.Logger
}

func NewMutator(run Runner, opts MutatorOptions) *Mutator {
	remote := opts.Remote
	if remote == "" {
		remote = "origin"
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Mutator{run: run, remote: remote, dir: opts.Dir, dryRun: opts.DryRun, log: log}
}

func (m *Mutator) CheckoutBranch(ctx context.Context, name string) (string, error) {
	return m.run.Run(ctx, "checkout", name)
}

func (m *Mutator) CreateBranch(ctx context.Context, name string) (string, error) {
	return m.run.Run(ctx, "checkout", "-b", name)
}

func (m *Mutator) RewritePin(path, version string) (string, error) {
	full := m.resolve(path)
	if err := RewritePin(full, version, !m.dryRun); err != nil {
		return "", err
	}
	m.log.Debug("rewrote pin", zap.String("path", full), zap.String("version", version), zap.Bool("dry_run", m.dryRun))
	return fmt.Sprintf("VECTORCHORD version set to %s in %s", version, path), nil
}

func (m *Mutator) Stage(ctx context.Context, path string) (string, error) {
	return m.run.Run(ctx, "add", path)
}

func (m *Mutator) Commit(ctx context.Context, message string) (string, error) {
	return m.run.Run(ctx, "commit", "-m", message)
}

func (m *Mutator) CreateTag(ctx context.Context, name string) (string, error) {
	return m.run.Run(ctx, "tag", name)
}

func (m *Mutator) PushBranch(ctx context.Context, name string) (string, error) {
	return m.run.Run(ctx, "push", "-u", m.remote, name)
}

func (m *Mutator) PushTag(ctx context.Context, name string) (string, error) {
	return m.run.Run(ctx, "push", m.remote, name)
}

func (m *Mutator) resolve(path string) string {
	if m.dir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(m.dir, path)
}
