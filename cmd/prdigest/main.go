package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/roivaz/pr-digest/internal/config"
	"github.com/roivaz/pr-digest/internal/digest"
	"github.com/roivaz/pr-digest/internal/githost"
	"github.com/roivaz/pr-digest/internal/gitrepo"
	"github.com/roivaz/pr-digest/internal/logging"
	mcpserver "github.com/roivaz/pr-digest/internal/mcp"
	"github.com/roivaz/pr-digest/internal/runner"
)

var rootCmd = &cobra.Command{
	Use:          "prdigest",
	Short:        "Evidence-grounded narrative digests for pull requests",
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Digest the pull request of the current GitHub Actions event and comment on it",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := runner.LoadConfig()
		if err != nil {
			return err
		}
		logger := newLogger()

		host, err := runner.NewHost(cfg, logger)
		if err != nil {
			return err
		}
		pipeline, err := runner.NewPipeline(cfg, logger)
		if err != nil {
			return err
		}

		r := runner.New(runner.Options{
			Host:        host,
			Pipeline:    pipeline,
			Attribution: cfg.Attribution,
			Logger:      logger,
		})
		outcome, err := r.RunEvent(cmd.Context(), cfg.EventPath, cfg.EventName)
		if err != nil {
			return err
		}
		logger.Info("run finished", "outcome", string(outcome))
		return nil
	},
}

var summarizeOpts struct {
	diffFile string
	gitRange string
	repoPath string
	title    string
	repoURL  string
	owner    string
	repo     string
	number   int
	publish  bool
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Digest a diff file, a local git range or a GitHub pull request and print the report",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := runner.LoadConfig()
		if err != nil {
			return err
		}
		logger := newLogger()
		ctx := cmd.Context()

		var (
			host     *githost.Client
			pr       digest.PullRequest
			diffText string
		)
		switch {
		case summarizeOpts.repoURL != "" || summarizeOpts.number > 0:
			owner, repo := summarizeOpts.owner, summarizeOpts.repo
			if summarizeOpts.repoURL != "" {
				if owner, repo, err = githost.ParseRepoURL(summarizeOpts.repoURL); err != nil {
					return err
				}
			}
			if owner == "" || repo == "" || summarizeOpts.number <= 0 {
				return errors.New("a pull request needs --repo-url or --owner/--repo, and --number")
			}
			if host, err = runner.NewHost(cfg, logger); err != nil {
				return err
			}
			if pr, err = host.PullRequest(ctx, owner, repo, summarizeOpts.number); err != nil {
				return err
			}
			if diffText, err = host.Diff(ctx, owner, repo, summarizeOpts.number); err != nil {
				return err
			}
		case summarizeOpts.gitRange != "":
			pr, diffText, err = loadGitRange(ctx, summarizeOpts.repoPath, summarizeOpts.gitRange, summarizeOpts.title)
			if err != nil {
				return err
			}
		default:
			if diffText, err = readDiff(cmd.InOrStdin(), summarizeOpts.diffFile); err != nil {
				return err
			}
			pr = digest.PullRequest{Title: summarizeOpts.title}
		}

		if summarizeOpts.publish && host == nil {
			return errors.New("--publish needs a GitHub pull request (--repo-url or --owner/--repo with --number)")
		}

		pipeline, err := runner.NewPipeline(cfg, logger)
		if err != nil {
			return err
		}
		r := runner.New(runner.Options{
			Host:        host,
			Pipeline:    pipeline,
			Attribution: cfg.Attribution,
			DryRun:      !summarizeOpts.publish,
			Output:      cmd.OutOrStdout(),
			Logger:      logger,
		})
		outcome, err := r.Digest(ctx, pr, diffText)
		if err != nil {
			return err
		}
		logger.Info("summarize finished", "outcome", string(outcome))
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the digest tools over MCP (streamable HTTP)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := runner.LoadConfig()
		if err != nil {
			return err
		}
		logger := newLogger()

		mcpCfg, err := mcpserver.DefaultConfig(cfg, logger)
		if err != nil {
			return err
		}
		srv := mcpserver.New(mcpCfg)

		httpServer := &http.Server{
			Addr:              cfg.MCPListenAddr,
			Handler:           srv.Handler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		errCh := make(chan error, 1)
		go func() { errCh <- httpServer.ListenAndServe() }()
		logger.Info("mcp server listening", "addr", cfg.MCPListenAddr, "path", mcpserver.EndpointPath)

		select {
		case err := <-errCh:
			return err
		case <-cmd.Context().Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		}
	},
}

func newLogger() logr.Logger {
	return logging.Build(config.LogLevel(), logging.Format(config.LogFormat()))
}

func loadGitRange(ctx context.Context, repoPath, rangeArg, title string) (digest.PullRequest, string, error) {
	base, head, err := gitrepo.ParseRange(rangeArg)
	if err != nil {
		return digest.PullRequest{}, "", err
	}
	repo := gitrepo.New(gitrepo.RepoConfig{Path: repoPath})
	diffText, err := repo.Diff(ctx, base, head)
	if err != nil {
		return digest.PullRequest{}, "", err
	}
	commits, err := repo.Commits(ctx, base, head)
	if err != nil {
		return digest.PullRequest{}, "", err
	}

	pr := digest.PullRequest{Title: title}
	for _, c := range commits {
		pr.Commits = append(pr.Commits, digest.Commit{SHA: c.SHA, Message: c.Message})
	}
	if pr.Title == "" && len(commits) > 0 {
		pr.Title, _, _ = strings.Cut(commits[len(commits)-1].Message, "\n")
	}
	return pr, diffText, nil
}

func readDiff(stdin io.Reader, path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read diff from stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read diff file: %w", err)
	}
	return string(data), nil
}

func main() {
	flags := rootCmd.PersistentFlags()
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("log-format", "", "Log encoding (console, json)")
	flags.String("llm-provider", "", "Text-generation provider (openai or ollama)")
	flags.String("llm-model", "", "Model name")
	flags.String("openai-base-url", "", "OpenAI-compatible API base URL")
	flags.String("ollama-url", "", "Ollama server URL")
	flags.String("llm-call-timeout", "", "Timeout for each generative call (e.g. 2m)")
	flags.Int("max-prompt-tokens", 0, "Token budget for the diff excerpt given to the evidence stage")
	flags.String("exclude", "", "Comma-separated glob patterns of files to leave out of the digest")
	flags.Bool("skip-generated", false, "Also leave out lock files and other generated files")
	flags.String("evidence-prompt-version", "", "Evidence prompt version (default from the prompt registry)")
	flags.String("narrative-prompt-version", "", "Narrative prompt version (default from the prompt registry)")
	flags.String("prompts-file", "", "YAML file adding or overriding prompt versions")
	flags.String("mcp-listen-addr", "", "Listen address for serve")

	sf := summarizeCmd.Flags()
	sf.StringVar(&summarizeOpts.diffFile, "diff-file", "", "Unified diff file to digest ('-' or empty reads stdin)")
	sf.StringVar(&summarizeOpts.gitRange, "git-range", "", "Local git range to digest (base..head)")
	sf.StringVar(&summarizeOpts.repoPath, "repo-path", ".", "Local repository for --git-range")
	sf.StringVar(&summarizeOpts.title, "title", "", "Title used for local diffs")
	sf.StringVar(&summarizeOpts.repoURL, "repo-url", "", "GitHub repository URL")
	sf.StringVar(&summarizeOpts.owner, "owner", "", "GitHub repository owner")
	sf.StringVar(&summarizeOpts.repo, "repo", "", "GitHub repository name")
	sf.IntVar(&summarizeOpts.number, "number", 0, "Pull request number")
	sf.BoolVar(&summarizeOpts.publish, "publish", false, "Post the report as a pull request comment")

	// Bind config/env for all subcommands
	config.Init(rootCmd)
	rootCmd.AddCommand(runCmd, summarizeCmd, serveCmd)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() { <-sigs; cancel() }()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatalf("prdigest: %v", err)
	}
}
