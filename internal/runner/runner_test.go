package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-logr/logr"

	"github.com/roivaz/pr-digest/internal/digest"
	"github.com/roivaz/pr-digest/internal/githost"
	"github.com/roivaz/pr-digest/internal/llm"
)

const testDiff = `diff --git a/main.go b/main.go
index 1111111..2222222 100644
--- a/main.go
+++ b/main.go
@@ -1,2 +1,3 @@
 package main
+import "log"
 func main() {}
`

const testEvidence = `{"timeline":[{"phase":"Logging","goal":"Trace","changes":["main.go"]}],"modulesTouched":["main"],"notablePatterns":["import"],"validatedChanges":[]}`

type fakeHost struct {
	pr        digest.PullRequest
	prErr     error
	diff      string
	diffErr   error
	published []string
	modes     []githost.Attribution
	calls     int
}

func (h *fakeHost) PullRequest(_ context.Context, owner, repo string, number int) (digest.PullRequest, error) {
	h.calls++
	if h.prErr != nil {
		return digest.PullRequest{}, h.prErr
	}
	pr := h.pr
	pr.Owner, pr.Repo, pr.Number = owner, repo, number
	return pr, nil
}

func (h *fakeHost) Diff(context.Context, string, string, int) (string, error) {
	return h.diff, h.diffErr
}

func (h *fakeHost) Publish(_ context.Context, _ digest.PullRequest, body string, mode githost.Attribution) error {
	h.published = append(h.published, body)
	h.modes = append(h.modes, mode)
	return nil
}

type cannedGenerator struct {
	replies []string
	errs    []error
	n       int
}

func (g *cannedGenerator) Generate(context.Context, llm.Request) (string, error) {
	i := g.n
	g.n++
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if i >= len(g.replies) {
		return "", errors.New("unexpected call")
	}
	return g.replies[i], nil
}

func newRunner(t *testing.T, host *fakeHost, gen llm.Generator, opts Options) *Runner {
	t.Helper()
	p, err := NewPipelineWithGenerator(Config{}, gen, logr.Discard())
	if err != nil {
		t.Fatalf("NewPipelineWithGenerator: %v", err)
	}
	opts.Host = host
	opts.Pipeline = p
	opts.Logger = logr.Discard()
	return New(opts)
}

func TestRunPullRequestPublishes(t *testing.T) {
	host := &fakeHost{pr: digest.PullRequest{Title: "Add logging", Author: "octocat"}, diff: testDiff}
	gen := &cannedGenerator{replies: []string{testEvidence, "Request logging was added to main."}}
	r := newRunner(t, host, gen, Options{Attribution: githost.AttributionAuthor})

	outcome, err := r.RunPullRequest(context.Background(), "acme", "svc", 7)
	if err != nil {
		t.Fatalf("RunPullRequest returned error: %v", err)
	}
	if outcome != OutcomePublished {
		t.Fatalf("expected published, got %s", outcome)
	}
	if len(host.published) != 1 || host.published[0] != "Request logging was added to main.\n" {
		t.Fatalf("unexpected published bodies: %q", host.published)
	}
	if host.modes[0] != githost.AttributionAuthor {
		t.Fatalf("expected author attribution, got %s", host.modes[0])
	}
}

func TestNarrativeFailurePublishesNothing(t *testing.T) {
	host := &fakeHost{diff: testDiff}
	gen := &cannedGenerator{
		replies: []string{testEvidence, ""},
		errs:    []error{nil, errors.New("API returned unexpected status code: 500")},
	}
	r := newRunner(t, host, gen, Options{})

	outcome, err := r.RunPullRequest(context.Background(), "acme", "svc", 7)
	if err != nil {
		t.Fatalf("RunPullRequest returned error: %v", err)
	}
	if outcome != OutcomeNoNarrative {
		t.Fatalf("expected no_narrative, got %s", outcome)
	}
	if len(host.published) != 0 {
		t.Fatalf("nothing should be published, got %q", host.published)
	}
}

func TestDiffFailureIsNotFatal(t *testing.T) {
	host := &fakeHost{diffErr: errors.New("502 bad gateway")}
	gen := &cannedGenerator{}
	r := newRunner(t, host, gen, Options{})

	outcome, err := r.RunPullRequest(context.Background(), "acme", "svc", 7)
	if err != nil || outcome != OutcomeNoDiff {
		t.Fatalf("expected no_diff without error, got %s, %v", outcome, err)
	}
	if gen.n != 0 {
		t.Fatalf("generator must not be called without a diff")
	}
}

func TestEmptyDiff(t *testing.T) {
	host := &fakeHost{diff: "  \n"}
	r := newRunner(t, host, &cannedGenerator{}, Options{})

	outcome, err := r.RunPullRequest(context.Background(), "acme", "svc", 7)
	if err != nil || outcome != OutcomeNoDiff {
		t.Fatalf("expected no_diff, got %s, %v", outcome, err)
	}
}

func TestMetadataFailureIsFatal(t *testing.T) {
	host := &fakeHost{prErr: errors.New("404 Not Found")}
	r := newRunner(t, host, &cannedGenerator{}, Options{})

	if _, err := r.RunPullRequest(context.Background(), "acme", "svc", 7); err == nil {
		t.Fatalf("expected metadata failure to be returned")
	}
}

func TestDryRunPrints(t *testing.T) {
	var out bytes.Buffer
	host := &fakeHost{diff: testDiff}
	gen := &cannedGenerator{replies: []string{testEvidence, "Request logging was added to main."}}
	r := newRunner(t, host, gen, Options{DryRun: true, Output: &out})

	outcome, err := r.Digest(context.Background(), digest.PullRequest{Title: "Add logging"}, testDiff)
	if err != nil || outcome != OutcomePrinted {
		t.Fatalf("expected printed, got %s, %v", outcome, err)
	}
	if !strings.Contains(out.String(), "Request logging was added to main.") {
		t.Fatalf("unexpected output %q", out.String())
	}
	if len(host.published) != 0 {
		t.Fatalf("dry run must not publish")
	}
}

func writeEvent(t *testing.T, action string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "event.json")
	payload := `{"action":"` + action + `","pull_request":{"number":7,"user":{"login":"octocat"}},"repository":{"name":"svc","owner":{"login":"acme"}}}`
	if err := os.WriteFile(path, []byte(payload), 0o600); err != nil {
		t.Fatalf("write event: %v", err)
	}
	return path
}

func TestRunEvent(t *testing.T) {
	host := &fakeHost{diff: testDiff}
	gen := &cannedGenerator{replies: []string{testEvidence, "Request logging was added to main."}}
	r := newRunner(t, host, gen, Options{})

	outcome, err := r.RunEvent(context.Background(), writeEvent(t, "synchronize"), "pull_request")
	if err != nil || outcome != OutcomePublished {
		t.Fatalf("expected published, got %s, %v", outcome, err)
	}
}

func TestRunEventUnsupportedIsSkipped(t *testing.T) {
	host := &fakeHost{diff: testDiff}
	r := newRunner(t, host, &cannedGenerator{}, Options{})

	outcome, err := r.RunEvent(context.Background(), writeEvent(t, "closed"), "pull_request")
	if err != nil || outcome != OutcomeSkipped {
		t.Fatalf("expected skipped, got %s, %v", outcome, err)
	}
	if host.calls != 0 {
		t.Fatalf("host must not be contacted for unsupported events")
	}
}

func TestRunEventMissingPayloadIsFatal(t *testing.T) {
	r := newRunner(t, &fakeHost{}, &cannedGenerator{}, Options{})
	if _, err := r.RunEvent(context.Background(), filepath.Join(t.TempDir(), "none.json"), "pull_request"); err == nil {
		t.Fatalf("expected error for missing event payload")
	}
}
