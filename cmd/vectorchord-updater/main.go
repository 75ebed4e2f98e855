package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/vectorchord-updater/pkg/config"
	"github.com/vectorchord-updater/pkg/gitops"
	"github.com/vectorchord-updater/pkg/logging"
	"github.com/vectorchord-updater/pkg/orchestrator"
	"github.com/vectorchord-updater/pkg/releases"
	"github.com/vectorchord-updater/pkg/reporter"
	"github.com/vectorchord-updater/pkg/selector"
)

var (
	version = "dev"
	commit  = "none"
)

// exitError carries the exit status of a run that got past argument parsing.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vectorchord-updater",
		Short: "Bump the VectorChord version pinned in the Spilo Dockerfile",
		Long: `Lists published VectorChord releases, asks which one to use, then creates a
release branch, rewrites ARG VECTORCHORD in the Dockerfile, commits, tags and
pushes both the branch and the tag.`,
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	rootCmd.Flags().String("config", ".vectorchord-updater.yml", "Path to config file")
	rootCmd.Flags().String("repo", "", "GitHub repo (owner/repo) to read releases from")
	rootCmd.Flags().String("api-url", "", "GitHub API base URL")
	rootCmd.Flags().String("github-token", "", "GitHub token for API access (falls back to $GITHUB_TOKEN)")
	rootCmd.Flags().String("base-branch", "", "Branch to start the release branch from")
	rootCmd.Flags().String("dockerfile", "", "Build file holding the ARG VECTORCHORD pin")
	rootCmd.Flags().String("remote", "", "Git remote to push to")
	rootCmd.Flags().String("workdir", "", "Git working tree (defaults to the current directory)")
	rootCmd.Flags().Int("limit", config.DefaultLimit, "Maximum number of releases to offer")
	rootCmd.Flags().Duration("timeout", config.DefaultTimeout, "Timeout for the releases request")
	rootCmd.Flags().String("release", "", "Use this release instead of prompting")
	rootCmd.Flags().Bool("latest", false, "Use the newest release instead of prompting")
	rootCmd.Flags().Bool("force-prompt", false, "Prompt even when stdin is not a terminal")
	rootCmd.Flags().Bool("dry-run", false, "Print what would happen without running git or writing files")
	rootCmd.Flags().String("output", "", "Summary format: text | table | json")
	rootCmd.Flags().String("log-level", "", "Log level: debug | info | warn | error")

	return rootCmd
}

func run(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		if cmd.Flags().Changed("config") || !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "warning: could not load config file: %v (using defaults)\n", err)
		}
		cfg = config.Default()
	}
	cfg = config.MergeFlags(cfg, cmd.Flags())
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logging.New(cfg.LogLevel, os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	owner, repo, err := releases.ParseGitHubRepo(cfg.Repository)
	if err != nil {
		return err
	}

	// Keep stdout parseable when the summary is JSON.
	progress := cmd.OutOrStdout()
	if cfg.Output == "json" {
		progress = cmd.ErrOrStderr()
	}

	sel, err := newSelector(cfg, cmd, progress)
	if err != nil {
		return err
	}

	lister, err := releases.NewGitHubLister(releases.Options{
		APIURL:  cfg.APIURL,
		Token:   cfg.Token,
		Timeout: cfg.Timeout,
		Limit:   cfg.Limit,
		Logger:  log.Named("releases"),
	})
	if err != nil {
		return err
	}

	var runner gitops.Runner = gitops.NewExecRunner(cfg.GitBinary, cfg.Workdir, log.Named("git"))
	if cfg.DryRun {
		runner = gitops.NewDryRunner(log.Named("git"))
	}
	mutator := gitops.NewMutator(runner, gitops.MutatorOptions{
		Remote: cfg.Remote,
		Dir:    cfg.Workdir,
		DryRun: cfg.DryRun,
		Logger: log.Named("gitops"),
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	o := orchestrator.New(lister, sel, mutator, reporter.New(cfg.Output), orchestrator.Settings{
		Owner:        owner,
		Repo:         repo,
		BaseBranch:   cfg.BaseBranch,
		Dockerfile:   cfg.Dockerfile,
		Remote:       cfg.Remote,
		BranchPrefix: cfg.BranchPrefix,
		TagSuffix:    cfg.TagSuffix,
		DryRun:       cfg.DryRun,
		Out:          progress,
		SummaryOut:   cmd.OutOrStdout(),
		Logger:       log,
	})
	res := o.Run(ctx)
	log.Debug("run finished", zap.Stringer("state", res.State), zap.Int("exit_code", res.ExitCode()))
	if code := res.ExitCode(); code != 0 {
		return &exitError{code: code}
	}
	return nil
}

func newSelector(cfg *config.Config, cmd *cobra.Command, out io.Writer) (selector.Selector, error) {
	if cfg.Release != "" || cfg.Latest {
		return selector.Fixed{Version: cfg.Release, Latest: cfg.Latest}, nil
	}
	if !cfg.ForcePrompt && !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, fmt.Errorf("stdin is not a terminal; pass --release, --latest or --force-prompt")
	}
	return selector.NewPrompter(cmd.InOrStdin(), out, "VectorChord"), nil
}

var _ orchestrator.Repository = (*gitops.Mutator)(nil)
