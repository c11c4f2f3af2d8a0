// Package githost talks to the GitHub REST API: it reads pull request
// metadata and diffs and publishes digest comments.
package githost

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/roivaz/pr-digest/internal/digest"
	"github.com/roivaz/pr-digest/internal/logging"
)

type Attribution string

const (
	AttributionBot    Attribution = "bot"
	AttributionAuthor Attribution = "author"
)

// ParseAttribution validates the attribution mode. An empty value means bot.
func ParseAttribution(v string) (Attribution, error) {
	switch Attribution(strings.ToLower(strings.TrimSpace(v))) {
	case AttributionBot, "":
		return AttributionBot, nil
	case AttributionAuthor:
		return AttributionAuthor, nil
	default:
		return "", fmt.Errorf("invalid attribution mode %q (must be bot or author)", v)
	}
}

type Config struct {
	Token       string
	AuthorToken string
	// APIURL overrides the REST endpoint, e.g. for GitHub Enterprise.
	APIURL string
	Logger logr.Logger
}

type Client struct {
	bot    *github.Client
	author *github.Client
	log    logging.Logger
}

func NewGitHubClient(token, apiURL string) (*github.Client, error) {
	var c *github.Client
	if token == "" {
		c = github.NewClient(&http.Client{Timeout: 30 * time.Second})
	} else {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		tc := oauth2.NewClient(context.Background(), ts)
		tc.Timeout = 30 * time.Second
		c = github.NewClient(tc)
	}
	if apiURL = strings.TrimSpace(apiURL); apiURL != "" {
		u, err := url.Parse(strings.TrimSuffix(apiURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parse github api url: %w", err)
		}
		c.BaseURL = u
	}
	return c, nil
}

func New(cfg Config) (*Client, error) {
	bot, err := NewGitHubClient(cfg.Token, cfg.APIURL)
	if err != nil {
		return nil, err
	}
	c := &Client{bot: bot, log: logging.New(cfg.Logger).WithName("github")}
	if cfg.AuthorToken != "" {
		if c.author, err = NewGitHubClient(cfg.AuthorToken, cfg.APIURL); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// PullRequest fetches the pull request metadata and its full commit list
// concurrently.
func (c *Client) PullRequest(ctx context.Context, owner, repo string, number int) (digest.PullRequest, error) {
	var (
		pr      *github.PullRequest
		commits []digest.Commit
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, _, err := c.bot.PullRequests.Get(gctx, owner, repo, number)
		if err != nil {
			return fmt.Errorf("get pull request %s/%s#%d: %w", owner, repo, number, err)
		}
		pr = p
		return nil
	})
	g.Go(func() error {
		var err error
		commits, err = c.listCommits(gctx, owner, repo, number)
		return err
	})
	if err := g.Wait(); err != nil {
		return digest.PullRequest{}, err
	}

	return digest.PullRequest{
		Owner:       owner,
		Repo:        repo,
		Number:      number,
		Title:       pr.GetTitle(),
		Description: pr.GetBody(),
		Author:      pr.GetUser().GetLogin(),
		Commits:     commits,
	}, nil
}

func (c *Client) listCommits(ctx context.Context, owner, repo string, number int) ([]digest.Commit, error) {
	opts := &github.ListOptions{PerPage: 100}
	var out []digest.Commit
	for {
		page, resp, err := c.bot.PullRequests.ListCommits(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("list commits %s/%s#%d: %w", owner, repo, number, err)
		}
		for _, rc := range page {
			out = append(out, digest.Commit{SHA: rc.GetSHA(), Message: rc.GetCommit().GetMessage()})
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

// Diff returns the unified diff of the pull request.
func (c *Client) Diff(ctx context.Context, owner, repo string, number int) (string, error) {
	raw, _, err := c.bot.PullRequests.GetRaw(ctx, owner, repo, number, github.RawOptions{Type: github.Diff})
	if err != nil {
		return "", fmt.Errorf("get diff %s/%s#%d: %w", owner, repo, number, err)
	}
	return raw, nil
}

// Publish posts body as a comment on the pull request. In author mode the
// comment is posted with the author token when one is configured; otherwise
// it is posted by the bot with a footer naming the author.
func (c *Client) Publish(ctx context.Context, pr digest.PullRequest, body string, mode Attribution) error {
	client := c.bot
	if mode == AttributionAuthor {
		if c.author != nil {
			client = c.author
		} else if pr.Author != "" {
			body = strings.TrimRight(body, "\n") + "\n\n" + authorFooter(pr.Author)
		}
	}

	comment, _, err := client.Issues.CreateComment(ctx, pr.Owner, pr.Repo, pr.Number, &github.IssueComment{Body: github.String(body)})
	if err != nil {
		return fmt.Errorf("create comment on %s/%s#%d: %w", pr.Owner, pr.Repo, pr.Number, err)
	}
	c.log.Info("comment published", "owner", pr.Owner, "repo", pr.Repo, "pr", pr.Number, "id", comment.GetID(), "attribution", string(mode))
	return nil
}

func authorFooter(author string) string {
	return fmt.Sprintf("<sub>Digest posted on behalf of @%s.</sub>\n", author)
}
