package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	ToolDigestPullRequest = "digest_pull_request"
	ToolDescribeDiff      = "describe_diff"
)

type ToolAdapter interface {
	ToolAdapter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

type Server struct {
	MCP  *server.MCPServer
	HTTP *server.StreamableHTTPServer
	// Handler routes the MCP endpoint and the health check.
	Handler http.Handler
}

func New(cfg Config) *Server {
	mcpServer := server.NewMCPServer(
		"pr-digest",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	toolDefinitions := map[string]mcp.Tool{
		ToolDigestPullRequest: mcp.NewTool(ToolDigestPullRequest,
			mcp.WithDescription("Generate the narrative digest of a GitHub pull request: an evidence-grounded paragraph describing what changed, plus a per-file change list for larger changes. The digest is returned as markdown and never posted."),
			mcp.WithString("owner",
				mcp.Description("Repository owner (e.g., 'kubernetes')"),
			),
			mcp.WithString("repo",
				mcp.Description("Repository name (e.g., 'kubernetes')"),
			),
			mcp.WithString("repo_url",
				mcp.Description("Optional: repository URL, used instead of owner/repo"),
			),
			mcp.WithNumber("pr_number",
				mcp.Required(),
				mcp.Description("The pull request number (e.g., 1234)"),
			),
		),
		ToolDescribeDiff: mcp.NewTool(ToolDescribeDiff,
			mcp.WithDescription("Parse a unified diff and list every file with its change kind (added, deleted, renamed, modified), line counts and whether the exclusion patterns filter it out."),
			mcp.WithString("diff",
				mcp.Required(),
				mcp.Description("Unified diff text, as produced by git diff"),
			),
			mcp.WithString("exclude",
				mcp.Description("Optional: comma-separated glob patterns to exclude (e.g., 'docs/**,*.lock')"),
			),
			mcp.WithBoolean("skip_generated",
				mcp.Description("Also exclude lock files and other generated files (default: false)"),
			),
		),
	}

	for name, adapter := range cfg.ToolAdapters {
		tool, ok := toolDefinitions[name]
		if !ok {
			continue
		}
		mcpServer.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return adapter.ToolAdapter(ctx, req)
		})
	}

	httpServer := server.NewStreamableHTTPServer(mcpServer, cfg.Options...)

	return &Server{
		MCP:     mcpServer,
		HTTP:    httpServer,
		Handler: newRouter(httpServer),
	}
}

func newRouter(mcpHandler http.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":    "healthy",
			"timestamp": time.Now().UTC(),
			"service":   "pr-digest",
		})
	})
	r.Handle(EndpointPath, mcpHandler)
	return r
}
