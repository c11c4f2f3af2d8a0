package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/roivaz/pr-digest/internal/digest"
	"github.com/roivaz/pr-digest/internal/logging"
)

const twoFileDiff = `diff --git a/docs/a.md b/docs/a.md
new file mode 100644
index 0000000..1111111
--- /dev/null
+++ b/docs/a.md
@@ -0,0 +1,1 @@
+hello
diff --git a/main.go b/main.go
index 2222222..3333333 100644
--- a/main.go
+++ b/main.go
@@ -1,2 +1,2 @@
 package main
-var v = 1
+var v = 2
`

func request(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Name: name, Arguments: args}}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatalf("empty tool result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", res.Content[0])
	}
	return text.Text
}

type stubSource struct {
	diff    string
	diffErr error
	gotRepo string
}

func (s *stubSource) PullRequest(_ context.Context, owner, repo string, number int) (digest.PullRequest, error) {
	s.gotRepo = owner + "/" + repo
	return digest.PullRequest{Owner: owner, Repo: repo, Number: number, Title: "t"}, nil
}

func (s *stubSource) Diff(context.Context, string, string, int) (string, error) {
	return s.diff, s.diffErr
}

type stubDigester struct {
	report *digest.Report
	got    string
}

func (d *stubDigester) Run(_ context.Context, _ digest.PullRequest, diffText string) (*digest.Report, error) {
	d.got = diffText
	return d.report, nil
}

func TestDigestPullRequest(t *testing.T) {
	src := &stubSource{diff: twoFileDiff}
	dg := &stubDigester{report: &digest.Report{Narrative: "Narrative.", FileAnnotations: []string{}}}
	h := &DigestPullRequestHandler{Source: src, Pipeline: dg}

	res, err := h.ToolAdapter(context.Background(), request("digest_pull_request", map[string]any{
		"repo_url":  "https://github.com/acme/svc",
		"pr_number": float64(7),
	}))
	if err != nil {
		t.Fatalf("ToolAdapter returned error: %v", err)
	}
	if res.IsError || resultText(t, res) != "Narrative.\n" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if src.gotRepo != "acme/svc" || dg.got != twoFileDiff {
		t.Fatalf("unexpected wiring: repo=%s", src.gotRepo)
	}
}

func TestDigestPullRequestNoReport(t *testing.T) {
	h := &DigestPullRequestHandler{Source: &stubSource{}, Pipeline: &stubDigester{}}
	res, err := h.ToolAdapter(context.Background(), request("digest_pull_request", map[string]any{
		"owner": "acme", "repo": "svc", "pr_number": float64(7),
	}))
	if err != nil || res.IsError {
		t.Fatalf("expected informational result, got %+v, %v", res, err)
	}
	if !strings.Contains(resultText(t, res), "No digest produced for acme/svc#7") {
		t.Fatalf("unexpected text %q", resultText(t, res))
	}
}

func TestDigestPullRequestArgumentErrors(t *testing.T) {
	h := &DigestPullRequestHandler{Source: &stubSource{diffErr: errors.New("boom")}, Pipeline: &stubDigester{}}
	for name, args := range map[string]map[string]any{
		"missing repo":   {"owner": "acme", "pr_number": float64(1)},
		"missing number": {"owner": "acme", "repo": "svc"},
		"zero number":    {"owner": "acme", "repo": "svc", "pr_number": float64(0)},
		"diff failure":   {"owner": "acme", "repo": "svc", "pr_number": float64(1)},
	} {
		res, err := h.ToolAdapter(context.Background(), request("digest_pull_request", args))
		if err != nil || !res.IsError {
			t.Fatalf("%s: expected tool error result, got %+v, %v", name, res, err)
		}
	}
}

func TestDescribeDiff(t *testing.T) {
	h := &DescribeDiffHandler{Log: logging.New(logr.Discard())}
	res, err := h.ToolAdapter(context.Background(), request("describe_diff", map[string]any{
		"diff":    twoFileDiff,
		"exclude": "docs/**",
	}))
	if err != nil {
		t.Fatalf("ToolAdapter returned error: %v", err)
	}

	var payload struct {
		Files    []digest.FileSummary `json:"files"`
		Total    int                  `json:"total"`
		Excluded int                  `json:"excluded"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &payload); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if payload.Total != 2 || payload.Excluded != 1 {
		t.Fatalf("unexpected counts: %+v", payload)
	}
	if payload.Files[0].Kind != "added" || !payload.Files[0].Excluded || payload.Files[1].Kind != "modified" {
		t.Fatalf("unexpected files: %+v", payload.Files)
	}
}

func TestDescribeDiffRequiresDiff(t *testing.T) {
	h := &DescribeDiffHandler{Log: logging.New(logr.Discard())}
	res, err := h.ToolAdapter(context.Background(), request("describe_diff", map[string]any{}))
	if err != nil || !res.IsError {
		t.Fatalf("expected tool error, got %+v, %v", res, err)
	}
}

func TestPositiveIntArgument(t *testing.T) {
	cases := []struct {
		value   any
		want    int
		wantErr bool
	}{
		{value: float64(12), want: 12},
		{value: 7, want: 7},
		{value: " 42 ", want: 42},
		{value: float64(1.5), wantErr: true},
		{value: float64(0), wantErr: true},
		{value: "abc", wantErr: true},
		{value: nil, wantErr: true},
		{value: true, wantErr: true},
	}
	for _, tc := range cases {
		got, err := positiveIntArgument(map[string]any{"pr_number": tc.value}, "pr_number")
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%v: expected error, got %d", tc.value, got)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("%v: got %d, %v; want %d", tc.value, got, err, tc.want)
		}
	}
}
