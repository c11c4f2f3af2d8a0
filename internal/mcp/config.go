package mcp

import (
	"github.com/go-logr/logr"
	"github.com/mark3labs/mcp-go/server"

	"github.com/roivaz/pr-digest/internal/logging"
	"github.com/roivaz/pr-digest/internal/mcp/tools"
	"github.com/roivaz/pr-digest/internal/runner"
)

const EndpointPath = "/mcp/jsonrpc"

type Config struct {
	ToolAdapters map[string]ToolAdapter
	Options      []server.StreamableHTTPOption
}

// DefaultConfig wires the tools to the GitHub host and digest pipeline
// described by cfg.
func DefaultConfig(cfg runner.Config, log logr.Logger) (Config, error) {
	host, err := runner.NewHost(cfg, log)
	if err != nil {
		return Config{}, err
	}
	pipeline, err := runner.NewPipeline(cfg, log)
	if err != nil {
		return Config{}, err
	}

	return Config{
		ToolAdapters: map[string]ToolAdapter{
			ToolDigestPullRequest: &tools.DigestPullRequestHandler{Source: host, Pipeline: pipeline},
			ToolDescribeDiff:      &tools.DescribeDiffHandler{Log: logging.New(log.WithName("describe"))},
		},
		Options: []server.StreamableHTTPOption{
			server.WithEndpointPath(EndpointPath),
			server.WithStateLess(true),
		},
	}, nil
}
