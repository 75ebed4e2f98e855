// Package orchestrator sequences the release lookup, the version choice and
// the git steps of a VectorChord bump as a linear state machine. The first
// failing step halts the run; nothing is retried or rolled back.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/vectorchord-updater/pkg/gitops"
	"github.com/vectorchord-updater/pkg/releases"
	"github.com/vectorchord-updater/pkg/reporter"
	"github.com/vectorchord-updater/pkg/selector"
)

// Repository is the set of git steps the orchestrator drives.
// *gitops.Mutator implements it.
type Repository interface {
	CheckoutBranch(ctx context.Context, name string) (string, error)
	CreateBranch(ctx context.Context, name string) (string, error)
	RewritePin(path, version string) (string, error)
	Stage(ctx context.Context, path string) (string, error)
	Commit(ctx context.Context, message string) (string, error)
	CreateTag(ctx context.Context, name string) (string, error)
	PushBranch(ctx context.Context, name string) (string, error)
	PushTag(ctx context.Context, name string) (string, error)
}

type Settings struct {
	Owner        string
	Repo         string
	BaseBranch   string
	Dockerfile   string
	Remote       string
	BranchPrefix string
	TagSuffix    string
	DryRun       bool

	// Out receives the step log; SummaryOut the final report. SummaryOut
	// defaults to Out.
	Out        io.Writer
	SummaryOut io.Writer
	Logger     *zap.Logger
}

// Result is the outcome of a run. LastGood is the last state whose step
// succeeded, which tells the operator how far the repository got.
type Result struct {
	State    State
	LastGood State
	Plan     gitops.Plan
	Err      error
}

func (r Result) ExitCode() int {
	if r.State == Done {
		return 0
	}
	return 1
}

type Orchestrator struct {
	lister   releases.Lister
	selector selector.Selector
	repo     Repository
	reporter reporter.Reporter
	s        Settings
	log      *zap.Logger
	p        *progress
}

func New(lister releases.Lister, sel selector.Selector, repo Repository, rep reporter.Reporter, s Settings) *Orchestrator {
	if s.Out == nil {
		s.Out = os.Stdout
	}
	if s.SummaryOut == nil {
		s.SummaryOut = s.Out
	}
	log := s.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if rep == nil {
		rep = reporter.New("text")
	}
	return &Orchestrator{
		lister:   lister,
		selector: sel,
		repo:     repo,
		reporter: rep,
		s:        s,
		log:      log.With(zap.String("repository", s.Owner+"/"+s.Repo)),
		p:        &progress{w: s.Out},
	}
}

func (o *Orchestrator) Run(ctx context.Context) Result {
	res := Result{State: Start, LastGood: Start}
	o.p.title("VectorChord Version Update Script")
	if o.s.DryRun {
		o.p.info("dry-run mode: no git command will be executed and no file will be written")
	}

	o.p.step("Checking out %s branch...", o.s.BaseBranch)
	if !o.advance(ctx, &res, BranchChecked, "check out "+o.s.BaseBranch, func() (string, error) {
		return o.repo.CheckoutBranch(ctx, o.s.BaseBranch)
	}) {
		return res
	}
	o.done("Successfully checked out %s branch", "Would check out %s branch", o.s.BaseBranch)

	o.p.step("Fetching VectorChord releases from GitHub...")
	versions, err := o.lister.List(ctx, o.s.Owner, o.s.Repo)
	if errors.Is(err, releases.ErrNoCandidates) {
		return o.cancel(&res, err, "No published VectorChord releases found, exiting")
	}
	if err != nil {
		return o.fail(&res, fmt.Errorf("fetch releases: %w", err))
	}
	o.transition(&res, ReleasesFetched)
	o.p.ok("Found %d VectorChord releases", len(versions))

	version, err := o.selector.Select(ctx, versions)
	if errors.Is(err, selector.ErrCancelled) || errors.Is(err, selector.ErrNoSelection) {
		return o.cancel(&res, err, "No version selected, exiting")
	}
	if err != nil {
		return o.fail(&res, fmt.Errorf("select version: %w", err))
	}
	res.Plan = gitops.NewPlan(version, o.s.BranchPrefix, o.s.TagSuffix)
	o.transition(&res, VersionSelected)
	o.p.ok("Selected VectorChord version: %s", version)

	plan := res.Plan
	o.p.step("Creating branch: %s", plan.Branch)
	if !o.advance(ctx, &res, BranchCreated, "create branch", func() (string, error) {
		return o.repo.CreateBranch(ctx, plan.Branch)
	}) {
		return res
	}
	o.done("Created and switched to branch: %s", "Would create and switch to branch: %s", plan.Branch)

	o.p.step("Updating Dockerfile...")
	if !o.advance(ctx, &res, FileUpdated, "update "+o.s.Dockerfile, func() (string, error) {
		return o.repo.RewritePin(o.s.Dockerfile, plan.Version)
	}) {
		return res
	}
	o.done("Updated Dockerfile: VECTORCHORD version set to %s", "Would set VECTORCHORD version in Dockerfile to %s", plan.Version)

	o.p.step("Committing changes...")
	if !o.advance(ctx, &res, Staged, "stage "+o.s.Dockerfile, func() (string, error) {
		return o.repo.Stage(ctx, o.s.Dockerfile)
	}) {
		return res
	}
	if !o.advance(ctx, &res, Committed, "commit", func() (string, error) {
		return o.repo.Commit(ctx, plan.CommitMessage)
	}) {
		return res
	}
	o.done("Committed changes: %s", "Would commit changes: %s", plan.CommitMessage)

	o.p.step("Creating tag: %s", plan.Tag)
	if !o.advance(ctx, &res, Tagged, "create tag", func() (string, error) {
		return o.repo.CreateTag(ctx, plan.Tag)
	}) {
		return res
	}
	o.done("Created tag: %s", "Would create tag: %s", plan.Tag)

	o.p.step("Pushing branch and tag to %s...", o.s.Remote)
	if !o.advance(ctx, &res, BranchPushed, "push branch", func() (string, error) {
		return o.repo.PushBranch(ctx, plan.Branch)
	}) {
		return res
	}
	o.done("Pushed branch: %s", "Would push branch: %s", plan.Branch)
	if !o.advance(ctx, &res, TagPushed, "push tag", func() (string, error) {
		return o.repo.PushTag(ctx, plan.Tag)
	}) {
		return res
	}
	o.done("Pushed tag: %s", "Would push tag: %s", plan.Tag)

	o.transition(&res, Done)
	summary := reporter.Summary{
		Repository: o.s.Owner + "/" + o.s.Repo,
		Dockerfile: o.s.Dockerfile,
		Remote:     o.s.Remote,
		DryRun:     o.s.DryRun,
		Plan:       plan,
	}
	if err := o.reporter.Report(o.s.SummaryOut, summary); err != nil {
		o.log.Warn("render summary", zap.Error(err))
	}
	return res
}

// done reports a finished git step, worded as hypothetical in dry-run mode.
func (o *Orchestrator) done(format, dryFormat string, args ...any) {
	if o.s.DryRun {
		o.p.ok(dryFormat, args...)
		return
	}
	o.p.ok(format, args...)
}

// advance runs one step and moves to next on success. On failure the result
// becomes Failed and false is returned.
func (o *Orchestrator) advance(ctx context.Context, res *Result, next State, what string, fn func() (string, error)) bool {
	if err := ctx.Err(); err != nil {
		o.fail(res, fmt.Errorf("%s: %w", what, err))
		return false
	}
	out, err := fn()
	if err != nil {
		o.fail(res, fmt.Errorf("%s: %w", what, err))
		return false
	}
	if out != "" {
		o.log.Debug("step output", zap.Stringer("state", next), zap.String("output", out))
	}
	o.transition(res, next)
	return true
}

func (o *Orchestrator) transition(res *Result, next State) {
	o.log.Debug("transition", zap.Stringer("from", res.State), zap.Stringer("to", next))
	res.State = next
	res.LastGood = next
}

func (o *Orchestrator) fail(res *Result, err error) Result {
	o.log.Error("update halted",
		zap.Stringer("last_good", res.LastGood),
		zap.String("version", res.Plan.Version),
		zap.Error(err))
	res.State = Failed
	res.Err = err
	o.p.fail(err)
	return *res
}

func (o *Orchestrator) cancel(res *Result, err error, msg string) Result {
	o.log.Info("update stopped", zap.Stringer("last_good", res.LastGood), zap.Error(err))
	res.State = Cancelled
	res.Err = err
	o.p.info(msg)
	return *res
}
