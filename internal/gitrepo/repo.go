package gitrepo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

type RepoConfig struct {
	Path    string
	Timeout time.Duration // default: 2m
}

type Repo struct {
	cfg    RepoConfig
	runner Runner
}

func New(cfg RepoConfig) *Repo {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &Repo{cfg: cfg, runner: Runner{Timeout: cfg.Timeout}}
}

type Runner struct {
	Timeout time.Duration
}

func (r Runner) Git(ctx context.Context, dir string, args ...string) (string, error) {
	c := exec.CommandContext(ctx, "git", args...)
	c.Dir = dir
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	if err := c.Start(); err != nil {
		return "", formatGitError(args, err, stderr.String())
	}
	done := make(chan error, 1)
	go func() { done <- c.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			return "", formatGitError(args, err, stderr.String())
		}
		return stdout.String(), nil
	case <-time.After(r.Timeout):
		_ = c.Process.Kill()
		<-done
		return "", formatGitTimeoutError(args, r.Timeout, stderr.String())
	case <-ctx.Done():
		_ = c.Process.Kill()
		<-done
		return "", formatGitContextError(args, ctx.Err(), stderr.String())
	}
}

func formatGitError(args []string, cause error, stderr string) error {
	cmd := strings.Join(args, " ")
	stderr = strings.TrimSpace(stderr)
	if stderr != "" {
		return fmt.Errorf("git %s: %w: %s", cmd, cause, stderr)
	}
	return fmt.Errorf("git %s: %w", cmd, cause)
}

func formatGitTimeoutError(args []string, timeout time.Duration, stderr string) error {
	return formatGitError(args, fmt.Errorf("command timed out after %s", timeout), stderr)
}

func formatGitContextError(args []string, cause error, stderr string) error {
	if cause == nil {
		cause = errors.New("context canceled")
	}
	return formatGitError(args, cause, stderr)
}

const (
	fieldSep  = "\x1f"
	recordSep = "\x1e"
)

type Commit struct {
	SHA     string
	Message string
}

// ParseRange splits "base..head" (or "base...head") into its two refs. A
// missing head defaults to HEAD.
func ParseRange(rangeArg string) (base, head string, err error) {
	sep := ".."
	if strings.Contains(rangeArg, "...") {
		sep = "..."
	}
	parts := strings.SplitN(strings.TrimSpace(rangeArg), sep, 2)
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
		return "", "", fmt.Errorf("invalid git range %q (want base..head)", rangeArg)
	}
	base, head = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if head == "" {
		head = "HEAD"
	}
	return base, head, nil
}

// Diff returns the unified diff between the merge base of base and head, and
// head, the same view a pull request shows.
func (r *Repo) Diff(ctx context.Context, base, head string) (string, error) {
	return r.runner.Git(ctx, r.cfg.Path, "diff", "--no-color", "--no-ext-diff", "--find-renames", base+"..."+head)
}

// Commits lists the commits reachable from head but not base, oldest first.
func (r *Repo) Commits(ctx context.Context, base, head string) ([]Commit, error) {
	out, err := r.runner.Git(ctx, r.cfg.Path, "log", "--reverse", "--no-color",
		"--format=%H"+fieldSep+"%B"+recordSep, base+".."+head)
	if err != nil {
		return nil, err
	}
	var commits []Commit
	for _, rec := range strings.Split(out, recordSep) {
		rec = strings.TrimLeft(rec, "\n")
		if strings.TrimSpace(rec) == "" {
			continue
		}
		sha, msg, ok := strings.Cut(rec, fieldSep)
		if !ok {
			continue
		}
		commits = append(commits, Commit{SHA: strings.TrimSpace(sha), Message: strings.TrimSpace(msg)})
	}
	return commits, nil
}
