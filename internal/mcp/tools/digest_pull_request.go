package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/roivaz/pr-digest/internal/digest"
	"github.com/roivaz/pr-digest/internal/githost"
)

type PullRequestSource interface {
	PullRequest(ctx context.Context, owner, repo string, number int) (digest.PullRequest, error)
	Diff(ctx context.Context, owner, repo string, number int) (string, error)
}

type Digester interface {
	Run(ctx context.Context, pr digest.PullRequest, diffText string) (*digest.Report, error)
}

// DigestPullRequestHandler returns the markdown digest of a pull request
// without publishing it.
type DigestPullRequestHandler struct {
	Source   PullRequestSource
	Pipeline Digester
}

func (h *DigestPullRequestHandler) ToolAdapter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	owner, repo := stringArgument(args, "owner"), stringArgument(args, "repo")
	if url := stringArgument(args, "repo_url"); url != "" {
		var err error
		if owner, repo, err = githost.ParseRepoURL(url); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	if owner == "" || repo == "" {
		return mcp.NewToolResultError("owner and repo (or repo_url) are required"), nil
	}
	number, err := positiveIntArgument(args, "pr_number")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	pr, err := h.Source.PullRequest(ctx, owner, repo, number)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	diffText, err := h.Source.Diff(ctx, owner, repo, number)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("diff unavailable: %v", err)), nil
	}

	report, err := h.Pipeline.Run(ctx, pr, diffText)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return mcp.NewToolResultText(fmt.Sprintf("No digest produced for %s/%s#%d: the diff is empty or no narrative was generated.", owner, repo, number)), nil
	}
	return mcp.NewToolResultText(report.Markdown()), nil
}
