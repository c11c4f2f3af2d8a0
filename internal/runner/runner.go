// Package runner drives one digest run end to end: resolve the pull
// request, fetch its diff, run the pipeline and publish the report.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-logr/logr"

	"github.com/roivaz/pr-digest/internal/digest"
	"github.com/roivaz/pr-digest/internal/event"
	"github.com/roivaz/pr-digest/internal/githost"
	"github.com/roivaz/pr-digest/internal/logging"
)

type Outcome string

const (
	OutcomePublished   Outcome = "published"
	OutcomePrinted     Outcome = "printed"
	OutcomeNoDiff      Outcome = "no_diff"
	OutcomeNoNarrative Outcome = "no_narrative"
	OutcomeSkipped     Outcome = "skipped"
)

// Host is the source host capability the runner needs.
type Host interface {
	PullRequest(ctx context.Context, owner, repo string, number int) (digest.PullRequest, error)
	Diff(ctx context.Context, owner, repo string, number int) (string, error)
	Publish(ctx context.Context, pr digest.PullRequest, body string, mode githost.Attribution) error
}

type Digester interface {
	Run(ctx context.Context, pr digest.PullRequest, diffText string) (*digest.Report, error)
}

type Options struct {
	Host        Host
	Pipeline    Digester
	Attribution githost.Attribution
	// DryRun prints the report to Output instead of publishing it.
	DryRun bool
	Output io.Writer
	Logger logr.Logger
}

type Runner struct {
	opts Options
	log  logging.Logger
}

func New(opts Options) *Runner {
	if opts.Output == nil {
		opts.Output = io.Discard
	}
	return &Runner{opts: opts, log: logging.New(opts.Logger).WithName("runner")}
}

// RunEvent resolves the Actions event at path and digests its pull request.
// Unsupported events end the run with OutcomeSkipped and no error.
func (r *Runner) RunEvent(ctx context.Context, path, name string) (Outcome, error) {
	ev, err := event.Load(path, name)
	if errors.Is(err, event.ErrUnsupportedEvent) {
		r.log.Info("event does not trigger a digest", "event", ev.Name, "action", ev.Action, "reason", err.Error())
		return OutcomeSkipped, nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve event: %w", err)
	}
	r.log.Info("digesting pull request", "event", ev.String())
	return r.RunPullRequest(ctx, ev.Owner, ev.Repo, ev.Number)
}

// RunPullRequest fetches the pull request and its diff from the host and
// digests them.
func (r *Runner) RunPullRequest(ctx context.Context, owner, repo string, number int) (Outcome, error) {
	if r.opts.Host == nil {
		return "", errors.New("no source host configured")
	}
	pr, err := r.opts.Host.PullRequest(ctx, owner, repo, number)
	if err != nil {
		return "", err
	}
	r.log.Info("pull request loaded", "pr", number, "title", pr.Title, "commits", len(pr.Commits))

	diffText, err := r.opts.Host.Diff(ctx, owner, repo, number)
	if err != nil {
		r.log.Warn(err, "diff unavailable, nothing to digest", "pr", number)
		return OutcomeNoDiff, nil
	}
	return r.Digest(ctx, pr, diffText)
}

// Digest runs the pipeline over an already resolved change set and publishes
// or prints the report.
func (r *Runner) Digest(ctx context.Context, pr digest.PullRequest, diffText string) (Outcome, error) {
	if strings.TrimSpace(diffText) == "" {
		r.log.Info("no diff found", "pr", pr.Number)
		return OutcomeNoDiff, nil
	}

	report, err := r.opts.Pipeline.Run(ctx, pr, diffText)
	if err != nil {
		return "", err
	}
	if report == nil {
		return OutcomeNoNarrative, nil
	}

	body := report.Markdown()
	if r.opts.DryRun {
		if _, err := io.WriteString(r.opts.Output, body); err != nil {
			return "", fmt.Errorf("write report: %w", err)
		}
		return OutcomePrinted, nil
	}
	if r.opts.Host == nil {
		return "", errors.New("no source host configured for publishing")
	}
	if err := r.opts.Host.Publish(ctx, pr, body, r.opts.Attribution); err != nil {
		return "", err
	}
	return OutcomePublished, nil
}
