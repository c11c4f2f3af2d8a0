package digest

import (
	"context"
	"errors"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/roivaz/pr-digest/internal/llm"
	"github.com/roivaz/pr-digest/internal/logging"
	"github.com/roivaz/pr-digest/internal/prompts"
)

const fallbackPhase = "Unstructured change summary"

var errMalformedEvidence = errors.New("evidence response is not a valid trace object")

// Extractor runs the evidence stage: one generative call whose JSON answer is
// validated into an EvidenceTrace.
type Extractor struct {
	gen      llm.Generator
	strategy *prompts.Strategy
	log      logging.Logger
}

func NewExtractor(gen llm.Generator, strategy *prompts.Strategy, log logging.Logger) *Extractor {
	return &Extractor{gen: gen, strategy: strategy, log: log.WithName("evidence")}
}

// Extract always returns a complete trace. Service failures and malformed
// answers are logged as warnings and replaced by the fallback trace.
func (e *Extractor) Extract(ctx context.Context, in Inputs) EvidenceTrace {
	system, user, err := e.strategy.Render(prompts.EvidenceInput{
		CommitMessages: in.CommitMessages,
		FileList:       in.FileList,
		DiffDigest:     in.DiffDigest,
		DiffExcerpt:    in.DiffExcerpt,
	})
	if err != nil {
		e.log.Warn(err, "render evidence prompt failed, using fallback trace")
		return fallbackTrace(in)
	}

	out, err := e.gen.Generate(ctx, llm.Request{
		System:      system,
		User:        user,
		Temperature: e.strategy.Temperature,
		MaxTokens:   e.strategy.MaxTokens,
		Seed:        e.strategy.Seed,
		JSON:        e.strategy.JSON,
	})
	if err != nil {
		_, category := llm.FailureDetails(err)
		e.log.Warn(err, "evidence extraction failed, using fallback trace", "category", category, "version", e.strategy.Version)
		return fallbackTrace(in)
	}

	trace, err := parseEvidence(out)
	if err != nil {
		e.log.Warn(err, "evidence response malformed, using fallback trace", "chars", len(out))
		return fallbackTrace(in)
	}
	if trace.degenerate() {
		e.log.Info("evidence trace degenerate, using fallback trace",
			"phases", len(trace.Timeline),
			"modules", len(trace.ModulesTouched),
			"patterns", len(trace.NotablePatterns),
		)
		return fallbackTrace(in)
	}

	e.log.Debug("evidence extracted", "phases", len(trace.Timeline), "validated", len(trace.ValidatedChanges))
	return trace
}

// fallbackTrace embeds the raw commit messages, file list and digest in a
// single phase.
func fallbackTrace(in Inputs) EvidenceTrace {
	trace := newTrace()
	trace.Timeline = []Phase{{
		Phase:   fallbackPhase,
		Goal:    "",
		Changes: []string{in.CommitMessages + "\n\n" + in.FileList + "\n\n" + in.DiffDigest},
	}}
	trace.Fallback = true
	return trace
}

func parseEvidence(text string) (EvidenceTrace, error) {
	body := jsonObject(text)
	if body == "" || !gjson.Valid(body) {
		return EvidenceTrace{}, errMalformedEvidence
	}
	root := gjson.Parse(body)
	if !root.IsObject() {
		return EvidenceTrace{}, errMalformedEvidence
	}

	trace := newTrace()
	timeline := root.Get("timeline")
	if timeline.Exists() && !timeline.IsArray() {
		return EvidenceTrace{}, errMalformedEvidence
	}
	timeline.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		p := Phase{
			Phase:   stringValue(item.Get("phase")),
			Goal:    stringValue(item.Get("goal")),
			Changes: stringSet(item.Get("changes")),
		}
		if p.Phase == "" && p.Goal == "" && len(p.Changes) == 0 {
			return true
		}
		trace.Timeline = append(trace.Timeline, p)
		return true
	})

	trace.ModulesTouched = stringSet(root.Get("modulesTouched"))
	trace.NotablePatterns = stringSet(root.Get("notablePatterns"))
	trace.ValidatedChanges = stringSet(root.Get("validatedChanges"))
	return trace, nil
}

// jsonObject strips code fences and returns the outermost {...} span.
func jsonObject(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return ""
	}
	return text[start : end+1]
}

func stringValue(r gjson.Result) string {
	if r.Type != gjson.String {
		return ""
	}
	return strings.TrimSpace(r.Str)
}

// stringSet accepts an array of strings or a lone string. Non-string items and
// duplicates are dropped.
func stringSet(r gjson.Result) []string {
	out := []string{}
	seen := map[string]struct{}{}
	add := func(v gjson.Result) {
		s := stringValue(v)
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	switch {
	case r.IsArray():
		r.ForEach(func(_, v gjson.Result) bool {
			add(v)
			return true
		})
	case r.Type == gjson.String:
		add(r)
	}
	return out
}
