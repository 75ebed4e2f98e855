package releases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v60/github"
	"go.uber.org/zap"
)

type GitHubLister struct {
	client *github.Client
	limit  int
	log    *zap.Logger
}

type Options struct {
	// APIURL overrides https://api.github.com/, e.g. for GitHub Enterprise.
	APIURL  string
	Token   string
	Timeout time.Duration
	Limit   int
	Logger  *zap.Logger
}

func NewGitHubLister(opts Options) (*GitHubLister, error) {
	client := github.NewClient(&http.Client{Timeout: opts.Timeout})
	if opts.Token != "" {
		client = client.WithAuthToken(opts.Token)
	}
	if opts.APIURL != "" {
		base := opts.APIURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("parse api url %q: %w", opts.APIURL, err)
		}
		client.BaseURL = u
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &GitHubLister{client: client, limit: opts.Limit, log: log}, nil
}

// Fetch issues a single GET against the releases listing endpoint.
func (g *GitHubLister) Fetch(ctx context.Context, owner, repo string) ([]Release, error) {
	g.log.Debug("fetching releases",
		zap.String("base_url", g.client.BaseURL.String()),
		zap.String("owner", owner),
		zap.String("repo", repo))

	opts := &github.ListOptions{PerPage: 100}
	rels, _, err := g.client.Repositories.ListReleases(ctx, owner, repo, opts)
	if err != nil {
		if isDecodeError(err) {
			return nil, fmt.Errorf("%w: decode releases for %s/%s: %w", ErrMalformedResponse, owner, repo, err)
		}
		return nil, fmt.Errorf("%w: list releases for %s/%s: %w", ErrNetwork, owner, repo, err)
	}
	// An empty body or "null" decodes without error; only "[]" means no releases.
	if rels == nil {
		return nil, fmt.Errorf("%w: empty releases payload for %s/%s", ErrMalformedResponse, owner, repo)
	}

	out := make([]Release, 0, len(rels))
	for i, r := range rels {
		if r == nil || r.TagName == nil {
			return nil, fmt.Errorf("%w: release #%d has no tag_name", ErrMalformedResponse, i)
		}
		out = append(out, Release{
			Tag:        r.GetTagName(),
			Prerelease: r.GetPrerelease(),
			Draft:      r.GetDraft(),
		})
	}
	g.log.Debug("fetched releases", zap.Int("count", len(out)))
	return out, nil
}

func (g *GitHubLister) List(ctx context.Context, owner, repo string) ([]string, error) {
	rels, err := g.Fetch(ctx, owner, repo)
	if err != nil {
		return nil, err
	}
	versions := Candidates(rels, g.limit)
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w in %s/%s", ErrNoCandidates, owner, repo)
	}
	return versions, nil
}

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF)
}

func ParseGitHubRepo(repoURL string) (owner, repo string, err error) {
	repoURL = strings.TrimSpace(repoURL)
	repoURL = strings.TrimPrefix(repoURL, "https://")
	repoURL = strings.TrimPrefix(repoURL, "http://")
	repoURL = strings.TrimPrefix(repoURL, "github.com/")
	repoURL = strings.TrimSuffix(repoURL, "/")
	repoURL = strings.TrimSuffix(repoURL, ".git")

	parts := strings.SplitN(repoURL, "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("cannot parse GitHub repo from %q", repoURL)
	}
	return parts[0], parts[1], nil
}
