package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/roivaz/pr-digest/internal/digest"
	"github.com/roivaz/pr-digest/internal/logging"
	"github.com/roivaz/pr-digest/internal/pathfilter"
)

// DescribeDiffHandler reports the files of a unified diff with their change
// kind and exclusion verdict. It makes no generative calls.
type DescribeDiffHandler struct {
	Log logging.Logger
}

func (h *DescribeDiffHandler) ToolAdapter(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	diffText, _ := args["diff"].(string)
	if diffText == "" {
		return mcp.NewToolResultError("diff parameter is required"), nil
	}
	skipGenerated, _ := args["skip_generated"].(bool)
	filter := pathfilter.New(pathfilter.ParsePatterns(stringArgument(args, "exclude")), skipGenerated)

	files := digest.Describe(diffText, filter, h.Log)
	response := struct {
		Files    []digest.FileSummary `json:"files"`
		Total    int                  `json:"total"`
		Excluded int                  `json:"excluded"`
	}{Files: files, Total: len(files)}
	for _, f := range files {
		if f.Excluded {
			response.Excluded++
		}
	}
	return mcp.NewToolResultJSON(response)
}
