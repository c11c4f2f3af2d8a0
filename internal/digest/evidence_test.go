package digest

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/roivaz/pr-digest/internal/logging"
	"github.com/roivaz/pr-digest/internal/prompts"
)

var sampleInputs = Inputs{
	CommitMessages: "- add logging\n- wire logger",
	FileList:       "main.go, log.go",
	DiffDigest:     "main.go: 1 change(s) detected.\nlog.go: 2 change(s) detected.\n",
}

func TestExtractValidTrace(t *testing.T) {
	gen := &scriptedGenerator{replies: []reply{{text: "```json\n" + goodEvidence + "\n```"}}}
	e := NewExtractor(gen, strategy(t, prompts.StageEvidence), quiet())

	trace := e.Extract(context.Background(), sampleInputs)
	if trace.Fallback {
		t.Fatalf("expected parsed trace, got fallback")
	}
	if len(trace.Timeline) != 1 || trace.Timeline[0].Phase != "Logging" {
		t.Fatalf("unexpected timeline: %+v", trace.Timeline)
	}
	if !reflect.DeepEqual(trace.ModulesTouched, []string{"main"}) {
		t.Fatalf("unexpected modules: %v", trace.ModulesTouched)
	}

	if len(gen.calls) != 1 {
		t.Fatalf("expected exactly one call, got %d", len(gen.calls))
	}
	req := gen.calls[0]
	if !req.JSON || req.Seed != 69 || req.MaxTokens <= 0 || req.Temperature > 0.3 {
		t.Fatalf("unexpected request options: %+v", req)
	}
	if !strings.Contains(req.User, "- wire logger") || !strings.Contains(req.User, "log.go: 2 change(s) detected.") {
		t.Fatalf("user prompt missing inputs: %s", req.User)
	}
}

func TestExtractFallbackCases(t *testing.T) {
	cases := map[string]struct {
		reply    reply
		warnings int
	}{
		"service error":     {reply{err: errors.New("status code: 500")}, 1},
		"not json":          {reply{text: "Here is what changed: lots."}, 1},
		"timeline object":   {reply{text: `{"timeline": {"phase": "x"}, "modulesTouched": ["a"], "notablePatterns": ["b"]}`}, 1},
		"empty timeline":    {reply{text: `{"timeline": [], "modulesTouched": ["a"], "notablePatterns": ["b"]}`}, 0},
		"missing patterns":  {reply{text: `{"timeline": [{"phase": "p", "changes": ["c"]}], "modulesTouched": ["a"]}`}, 0},
		"empty modules":     {reply{text: `{"timeline": [{"phase": "p"}], "modulesTouched": [], "notablePatterns": ["b"]}`}, 0},
		"only empty phases": {reply{text: `{"timeline": [{"phase": " "}, 3], "modulesTouched": ["a"], "notablePatterns": ["b"]}`}, 0},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			base, logs := observedLogger()
			gen := &scriptedGenerator{replies: []reply{tc.reply}}
			e := NewExtractor(gen, strategy(t, prompts.StageEvidence), logging.New(base))

			trace := e.Extract(context.Background(), sampleInputs)
			assertFallback(t, trace, sampleInputs)
			if got := warnings(logs); got != tc.warnings {
				t.Fatalf("expected %d warnings, got %d", tc.warnings, got)
			}
		})
	}
}

func assertFallback(t *testing.T, trace EvidenceTrace, in Inputs) {
	t.Helper()
	if !trace.Fallback {
		t.Fatalf("expected fallback trace")
	}
	if trace.Timeline == nil || trace.ModulesTouched == nil || trace.NotablePatterns == nil || trace.ValidatedChanges == nil {
		t.Fatalf("fallback trace has nil collections: %+v", trace)
	}
	if len(trace.Timeline) != 1 || len(trace.Timeline[0].Changes) != 1 {
		t.Fatalf("fallback trace must have one phase with one change entry: %+v", trace.Timeline)
	}
	changes := trace.Timeline[0].Changes[0]
	for _, part := range []string{in.CommitMessages, in.FileList, in.DiffDigest} {
		if !strings.Contains(changes, part) {
			t.Fatalf("fallback changes missing %q", part)
		}
	}
}

func TestParseEvidenceNormalizesSets(t *testing.T) {
	trace, err := parseEvidence(`noise {"timeline":[{"phase":" A ","goal":"g","changes":["x","x",1," y "]}],
		"modulesTouched":"core","notablePatterns":["p","p"],"validatedChanges":null} trailing`)
	if err != nil {
		t.Fatalf("parseEvidence returned error: %v", err)
	}
	if trace.Timeline[0].Phase != "A" || !reflect.DeepEqual(trace.Timeline[0].Changes, []string{"x", "y"}) {
		t.Fatalf("unexpected phase: %+v", trace.Timeline[0])
	}
	if !reflect.DeepEqual(trace.ModulesTouched, []string{"core"}) {
		t.Fatalf("lone string should become a one-element set, got %v", trace.ModulesTouched)
	}
	if !reflect.DeepEqual(trace.NotablePatterns, []string{"p"}) {
		t.Fatalf("expected de-duplicated patterns, got %v", trace.NotablePatterns)
	}
	if trace.ValidatedChanges == nil || len(trace.ValidatedChanges) != 0 {
		t.Fatalf("expected empty, non-nil validated changes, got %#v", trace.ValidatedChanges)
	}
}

func TestParseEvidenceRejectsNonObjects(t *testing.T) {
	for _, text := range []string{"", "[1,2]", "{broken", `{"a": }`} {
		if _, err := parseEvidence(text); err == nil {
			t.Fatalf("expected error for %q", text)
		}
	}
}
