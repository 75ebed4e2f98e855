package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vectorchord-updater/pkg/gitops"
	"github.com/vectorchord-updater/pkg/releases"
	"github.com/vectorchord-updater/pkg/reporter"
	"github.com/vectorchord-updater/pkg/selector"
)

const dockerfile = "ARG PGVERSION=17\nARG VECTORCHORD=\"0.3.0\"\nFROM ubuntu:22.04\n"

type fakeLister struct {
	versions []string
	err      error
	calls    int
}

func (f *fakeLister) List(_ context.Context, _, _ string) ([]string, error) {
	f.calls++
	return f.versions, f.err
}

// fakeGit fails the first invocation whose argv starts with failOn.
type fakeGit struct {
	calls  [][]string
	failOn string
}

func (g *fakeGit) Run(_ context.Context, args ...string) (string, error) {
	g.calls = append(g.calls, args)
	if g.failOn != "" && strings.HasPrefix(strings.Join(args, " "), g.failOn) {
		return "", &gitops.SubprocessError{
			Binary:   "git",
			Args:     args,
			ExitCode: 1,
			Output:   "fatal: simulated",
			Err:      errors.New("exit status 1"),
		}
	}
	return "", nil
}

type fixture struct {
	dir    string
	path   string
	git    *fakeGit
	lister *fakeLister
	out    *bytes.Buffer
	logs   *observer.ObservedLogs
}

func newFixture(t *testing.T, content string) *fixture {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "postgres-appliance"), 0o755))
	path := filepath.Join(dir, "postgres-appliance", "Dockerfile")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return &fixture{
		dir:    dir,
		path:   path,
		git:    &fakeGit{},
		lister: &fakeLister{versions: []string{"1.2.0", "1.1.0", "1.0.0"}},
		out:    &bytes.Buffer{},
	}
}

func (f *fixture) run(t *testing.T, sel selector.Selector, dryRun bool) Result {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	f.logs = logs
	log := zap.New(core)

	var runner gitops.Runner = f.git
	if dryRun {
		runner = gitops.NewDryRunner(log)
	}
	repo := gitops.NewMutator(runner, gitops.MutatorOptions{Remote: "origin", Dir: f.dir, DryRun: dryRun, Logger: log})
	o := New(f.lister, sel, repo, reporter.New("text"), Settings{
		Owner:        "tensorchord",
		Repo:         "VectorChord",
		BaseBranch:   "main",
		Dockerfile:   "postgres-appliance/Dockerfile",
		Remote:       "origin",
		BranchPrefix: "4.0-master-vectorchord-",
		TagSuffix:    "-1",
		DryRun:       dryRun,
		Out:          f.out,
		Logger:       log,
	})
	return o.Run(context.Background())
}

func (f *fixture) file(t *testing.T) string {
	t.Helper()
	b, err := os.ReadFile(f.path)
	require.NoError(t, err)
	return string(b)
}

func TestRunEndToEnd(t *testing.T) {
	f := newFixture(t, dockerfile)
	var promptOut bytes.Buffer
	sel := selector.NewPrompter(strings.NewReader("1\n"), &promptOut, "VectorChord")

	res := f.run(t, sel, false)
	require.NoError(t, res.Err)
	assert.Equal(t, Done, res.State)
	assert.Equal(t, 0, res.ExitCode())
	assert.Equal(t, gitops.Plan{
		Version:       "1.2.0",
		Branch:        "4.0-master-vectorchord-1.2.0",
		Tag:           "4.0-master-vectorchord-1.2.0-1",
		CommitMessage: "Update VectorChord to 1.2.0",
	}, res.Plan)

	assert.Equal(t, [][]string{
		{"checkout", "main"},
		{"checkout", "-b", "4.0-master-vectorchord-1.2.0"},
		{"add", "postgres-appliance/Dockerfile"},
		{"commit", "-m", "Update VectorChord to 1.2.0"},
		{"tag", "4.0-master-vectorchord-1.2.0-1"},
		{"push", "-u", "origin", "4.0-master-vectorchord-1.2.0"},
		{"push", "origin", "4.0-master-vectorchord-1.2.0-1"},
	}, f.git.calls)

	assert.Equal(t, "ARG PGVERSION=17\nARG VECTORCHORD=\"1.2.0\"\nFROM ubuntu:22.04\n", f.file(t))

	out := f.out.String()
	assert.Contains(t, out, "Successfully updated VectorChord to version 1.2.0")
	assert.Contains(t, out, "Branch: 4.0-master-vectorchord-1.2.0")
	assert.Contains(t, out, "Tag: 4.0-master-vectorchord-1.2.0-1")
}

func TestRunFetchFailureHaltsBeforeBranch(t *testing.T) {
	f := newFixture(t, dockerfile)
	f.lister.versions = nil
	f.lister.err = fmt.Errorf("%w: 500 Internal Server Error", releases.ErrNetwork)

	res := f.run(t, selector.Fixed{Latest: true}, false)
	assert.Equal(t, Failed, res.State)
	assert.Equal(t, BranchChecked, res.LastGood)
	assert.ErrorIs(t, res.Err, releases.ErrNetwork)
	assert.NotEqual(t, 0, res.ExitCode())
	assert.Equal(t, [][]string{{"checkout", "main"}}, f.git.calls)
	assert.Equal(t, dockerfile, f.file(t))

	errs := f.logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, errs, 1)
	assert.Equal(t, "update halted", errs[0].Message)
}

func TestRunMalformedPayloadFails(t *testing.T) {
	f := newFixture(t, dockerfile)
	f.lister.versions = nil
	f.lister.err = fmt.Errorf("%w: empty releases payload for o/r", releases.ErrMalformedResponse)

	res := f.run(t, selector.Fixed{Latest: true}, false)
	assert.Equal(t, Failed, res.State)
	assert.ErrorIs(t, res.Err, releases.ErrMalformedResponse)
	assert.Equal(t, 1, res.ExitCode())
	assert.NotContains(t, f.out.String(), "exiting")
	assert.Len(t, f.logs.FilterLevelExact(zapcore.ErrorLevel).All(), 1)
}

func TestRunCheckoutFailure(t *testing.T) {
	f := newFixture(t, dockerfile)
	f.git.failOn = "checkout main"

	res := f.run(t, selector.Fixed{Latest: true}, false)
	assert.Equal(t, Failed, res.State)
	assert.Equal(t, Start, res.LastGood)
	assert.Zero(t, f.lister.calls)

	var se *gitops.SubprocessError
	require.ErrorAs(t, res.Err, &se)
	assert.Contains(t, f.out.String(), "fatal: simulated")
}

func TestRunPatternNotFoundHaltsBeforeStaging(t *testing.T) {
	content := "FROM ubuntu:22.04\nRUN true\n"
	f := newFixture(t, content)

	res := f.run(t, selector.Fixed{Version: "1.1.0"}, false)
	assert.Equal(t, Failed, res.State)
	assert.Equal(t, BranchCreated, res.LastGood)

	var pnf *gitops.PatternNotFoundError
	require.ErrorAs(t, res.Err, &pnf)
	assert.Equal(t, content, f.file(t))
	for _, c := range f.git.calls {
		assert.NotEqual(t, "add", c[0])
	}
}

func TestRunAlreadyPinnedHaltsBeforeStaging(t *testing.T) {
	f := newFixture(t, dockerfile)
	f.lister.versions = []string{"0.3.0"}

	res := f.run(t, selector.Fixed{Latest: true}, false)
	assert.Equal(t, Failed, res.State)
	assert.Equal(t, BranchCreated, res.LastGood)

	var ape *gitops.AlreadyPinnedError
	require.ErrorAs(t, res.Err, &ape)
	for _, c := range f.git.calls {
		assert.NotEqual(t, "add", c[0])
	}
}

func TestRunCancelled(t *testing.T) {
	f := newFixture(t, dockerfile)
	var promptOut bytes.Buffer
	sel := selector.NewPrompter(strings.NewReader(""), &promptOut, "VectorChord")

	res := f.run(t, sel, false)
	assert.Equal(t, Cancelled, res.State)
	assert.ErrorIs(t, res.Err, selector.ErrCancelled)
	assert.Equal(t, 1, res.ExitCode())
	assert.Contains(t, f.out.String(), "No version selected, exiting")
	assert.Equal(t, [][]string{{"checkout", "main"}}, f.git.calls)
	assert.Empty(t, f.logs.FilterLevelExact(zapcore.ErrorLevel).All())
}

func TestRunNoCandidatesStops(t *testing.T) {
	f := newFixture(t, dockerfile)
	f.lister.versions = nil
	f.lister.err = releases.ErrNoCandidates

	res := f.run(t, selector.Fixed{Latest: true}, false)
	assert.Equal(t, Cancelled, res.State)
	assert.Equal(t, 1, res.ExitCode())
}

func TestRunUnknownFixedVersionFails(t *testing.T) {
	f := newFixture(t, dockerfile)

	res := f.run(t, selector.Fixed{Version: "9.9.9"}, false)
	assert.Equal(t, Failed, res.State)
	assert.ErrorIs(t, res.Err, selector.ErrNotAvailable)
}

func TestRunPushTagFailure(t *testing.T) {
	f := newFixture(t, dockerfile)
	f.git.failOn = "push origin"

	res := f.run(t, selector.Fixed{Latest: true}, false)
	assert.Equal(t, Failed, res.State)
	assert.Equal(t, BranchPushed, res.LastGood)
	assert.NotContains(t, f.out.String(), "Successfully updated")
}

func TestRunDryRun(t *testing.T) {
	f := newFixture(t, dockerfile)

	res := f.run(t, selector.Fixed{Latest: true}, true)
	require.NoError(t, res.Err)
	assert.Equal(t, Done, res.State)
	assert.Empty(t, f.git.calls)
	assert.Equal(t, dockerfile, f.file(t))
	out := f.out.String()
	assert.Contains(t, out, "Dry run complete")
	assert.Contains(t, out, "Would push branch: 4.0-master-vectorchord-1.2.0")
	assert.Contains(t, out, "Would create tag: 4.0-master-vectorchord-1.2.0-1")
	assert.NotContains(t, out, "Pushed branch:")
	assert.NotContains(t, out, "Created tag:")
}

func TestRunSummaryGoesToSummaryOut(t *testing.T) {
	f := newFixture(t, dockerfile)
	var summary bytes.Buffer
	repo := gitops.NewMutator(f.git, gitops.MutatorOptions{Remote: "origin", Dir: f.dir})
	o := New(f.lister, selector.Fixed{Latest: true}, repo, reporter.New("json"), Settings{
		Owner:        "tensorchord",
		Repo:         "VectorChord",
		BaseBranch:   "main",
		Dockerfile:   "postgres-appliance/Dockerfile",
		Remote:       "origin",
		BranchPrefix: "4.0-master-vectorchord-",
		TagSuffix:    "-1",
		Out:          f.out,
		SummaryOut:   &summary,
	})

	res := o.Run(context.Background())
	require.Equal(t, Done, res.State)

	var got reporter.Summary
	require.NoError(t, json.Unmarshal(summary.Bytes(), &got))
	assert.Equal(t, "4.0-master-vectorchord-1.2.0-1", got.Plan.Tag)
	assert.Contains(t, f.out.String(), "Pushed tag:")
	assert.NotContains(t, f.out.String(), `"plan"`)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "version-selected", VersionSelected.String())
	assert.Equal(t, "unknown", State(99).String())
	assert.True(t, Cancelled.Terminal())
	assert.False(t, Tagged.Terminal())
}
