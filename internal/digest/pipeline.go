// Package digest turns a pull request and its diff into a published narrative
// report in two generative stages.
package digest

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/roivaz/pr-digest/internal/changeset"
	"github.com/roivaz/pr-digest/internal/llm"
	"github.com/roivaz/pr-digest/internal/logging"
	"github.com/roivaz/pr-digest/internal/pathfilter"
	"github.com/roivaz/pr-digest/internal/prompts"
)

type Config struct {
	Generator        llm.Generator
	Prompts          *prompts.Registry
	EvidenceVersion  string
	NarrativeVersion string
	Filter           pathfilter.Filter
	MaxPromptTokens  int
	Logger           logr.Logger
}

type Pipeline struct {
	filter    pathfilter.Filter
	maxTokens int
	extractor *Extractor
	narrator  *Synthesizer
	log       logging.Logger
}

func NewPipeline(cfg Config) (*Pipeline, error) {
	if cfg.Generator == nil {
		return nil, fmt.Errorf("digest pipeline requires a generator")
	}
	registry := cfg.Prompts
	if registry == nil {
		var err error
		if registry, err = prompts.Builtin(); err != nil {
			return nil, err
		}
	}
	evidence, err := registry.Lookup(prompts.StageEvidence, cfg.EvidenceVersion)
	if err != nil {
		return nil, fmt.Errorf("evidence prompt: %w", err)
	}
	narrative, err := registry.Lookup(prompts.StageNarrative, cfg.NarrativeVersion)
	if err != nil {
		return nil, fmt.Errorf("narrative prompt: %w", err)
	}

	log := logging.New(cfg.Logger).WithName("digest")
	return &Pipeline{
		filter:    cfg.Filter,
		maxTokens: cfg.MaxPromptTokens,
		extractor: NewExtractor(cfg.Generator, evidence, log),
		narrator:  NewSynthesizer(cfg.Generator, narrative, log),
		log:       log,
	}, nil
}

// Run digests one pull request. A nil report with a nil error means there is
// nothing to publish: the diff was empty or no narrative was produced. Only
// context cancellation is returned as an error.
func (p *Pipeline) Run(ctx context.Context, pr PullRequest, diffText string) (*Report, error) {
	log := p.log.WithValues("owner", pr.Owner, "repo", pr.Repo, "pr", pr.Number)

	files := changeset.Parse(diffText, log)
	if len(files) == 0 {
		log.Info("diff has no file changes, nothing to do")
		return nil, nil
	}

	kept := p.filter.Apply(files)
	for path, reason := range p.filter.Excluded(files) {
		log.Debug("file excluded", "path", path, "reason", reason)
	}

	in := BuildInputs(pr, kept, p.maxTokens)
	log.Info("diff prepared",
		"files_total", len(files),
		"files_included", len(kept),
		"commits", len(pr.Commits),
		"excerpt_truncated", in.ExcerptTruncated,
	)

	trace := p.extractor.Extract(ctx, in)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	narrative := p.narrator.Synthesize(ctx, pr, in, trace)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if narrative == "" {
		log.Info("no narrative available, nothing to publish", "fallback_trace", trace.Fallback)
		return nil, nil
	}

	return FormatReport(narrative, files), nil
}

// FileSummary describes one changed file without any generative call.
type FileSummary struct {
	Path       string `json:"path"`
	FromPath   string `json:"fromPath,omitempty"`
	ToPath     string `json:"toPath,omitempty"`
	Kind       string `json:"kind"`
	Chunks     int    `json:"chunks"`
	Added      int    `json:"added"`
	Removed    int    `json:"removed"`
	Excluded   bool   `json:"excluded"`
	Reason     string `json:"reason,omitempty"`
	Annotation string `json:"annotation"`
}

// Describe parses diffText and reports every file with its kind, size and
// filter verdict. It makes no generative calls.
func Describe(diffText string, filter pathfilter.Filter, log logging.Logger) []FileSummary {
	files := changeset.Parse(diffText, log)
	out := make([]FileSummary, 0, len(files))
	for _, f := range files {
		added, removed := f.Stats()
		excluded, reason := filter.Match(f)
		out = append(out, FileSummary{
			Path:       displayPath(f.Path()),
			FromPath:   f.FromPath,
			ToPath:     f.ToPath,
			Kind:       string(f.Kind()),
			Chunks:     len(f.Chunks),
			Added:      added,
			Removed:    removed,
			Excluded:   excluded,
			Reason:     reason,
			Annotation: Annotate(f),
		})
	}
	return out
}
