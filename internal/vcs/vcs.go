// Package vcs fetches merged changes from GitHub and shapes them into the
// change records the rest of the pipeline consumes. Listing walks the closed
// pull requests newest first, keeps only merged ones, and pulls the raw diff
// for each; a single failed diff fetch skips that pull request rather than
// failing the whole listing.
package vcs

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/fyrsmithlabs/relnotesd/internal/notes"
)

const (
	// DefaultPerPage is the GitHub page size used when listing.
	DefaultPerPage = 50
	// DefaultMaxPages bounds how many pages a single listing walks.
	DefaultMaxPages = 4
	// DefaultLimit is the record cap applied when the caller passes none.
	DefaultLimit = 20
)

// Config selects the repository and authentication for a client.
type Config struct {
	// Token is a GitHub personal access token. Unauthenticated access works
	// for public repositories at a much lower rate limit.
	Token string
	Owner string
	Repo  string
	// BaseURL points at a GitHub Enterprise instance. Empty means github.com.
	BaseURL string
	// PerPage overrides DefaultPerPage when positive.
	PerPage int
	// MaxPages overrides DefaultMaxPages when positive.
	MaxPages int
}

// Validate checks that the repository coordinates are present.
func (c Config) Validate() error {
	if c.Owner == "" {
		return fmt.Errorf("github owner is required")
	}
	if c.Repo == "" {
		return fmt.Errorf("github repo is required")
	}
	return nil
}

// pullLister is the slice of go-github's PullRequestsService the client
// uses, split out so tests can script responses.
type pullLister interface {
	List(ctx context.Context, owner, repo string, opts *github.PullRequestListOptions) ([]*github.PullRequest, *github.Response, error)
	GetRaw(ctx context.Context, owner, repo string, number int, opts github.RawOptions) (string, *github.Response, error)
}

// Client lists merged changes for one repository.
type Client struct {
	pulls    pullLister
	owner    string
	repo     string
	perPage  int
	maxPages int
	logger   *zap.Logger
}

// New builds a GitHub-backed client. The token, when present, is carried via
// an oauth2 static source.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := oauth2.NewClient(context.Background(), nil)
	if cfg.Token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = oauth2.NewClient(context.Background(), src)
	}

	gh := github.NewClient(httpClient)
	if cfg.BaseURL != "" {
		var err error
		gh, err = gh.WithEnterpriseURLs(cfg.BaseURL, cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("configure github base url: %w", err)
		}
	}

	return newClient(gh.PullRequests, cfg, logger), nil
}

func newClient(pulls pullLister, cfg Config, logger *zap.Logger) *Client {
	if cfg.PerPage <= 0 {
		cfg.PerPage = DefaultPerPage
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	return &Client{
		pulls:    pulls,
		owner:    cfg.Owner,
		repo:     cfg.Repo,
		perPage:  cfg.PerPage,
		maxPages: cfg.MaxPages,
		logger:   logger,
	}
}

// ListMergedChanges returns up to limit merged pull requests as change
// records, newest activity first. Pull requests whose diff cannot be fetched
// are skipped with a warning.
func (c *Client) ListMergedChanges(ctx context.Context, limit int) ([]notes.ChangeRecord, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	opts := &github.PullRequestListOptions{
		State:       "closed",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: c.perPage},
	}

	records := make([]notes.ChangeRecord, 0, limit)
	for page := 0; page < c.maxPages; page++ {
		prs, resp, err := c.pulls.List(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("list pull requests: %w", err)
		}

		for _, pr := range prs {
			if pr.MergedAt == nil {
				continue
			}

			diff, _, err := c.pulls.GetRaw(ctx, c.owner, c.repo, pr.GetNumber(), github.RawOptions{Type: github.Diff})
			if err != nil {
				c.logger.Warn("skipping pull request, diff fetch failed",
					zap.Int("number", pr.GetNumber()),
					zap.Error(err))
				continue
			}

			records = append(records, notes.ChangeRecord{
				ID:          strconv.Itoa(pr.GetNumber()),
				Description: describe(pr),
				DiffText:    diff,
				SourceURL:   pr.GetHTMLURL(),
			})
			if len(records) >= limit {
				return records, nil
			}
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return records, nil
}

// describe joins the title and body. The title stays first so title-anchored
// relevance keywords keep working.
func describe(pr *github.PullRequest) string {
	title := pr.GetTitle()
	body := pr.GetBody()
	if body == "" {
		return title
	}
	return title + "\n\n" + body
}
