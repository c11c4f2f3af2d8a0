package digest

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/roivaz/pr-digest/internal/llm"
	"github.com/roivaz/pr-digest/internal/logging"
	"github.com/roivaz/pr-digest/internal/prompts"
)

var (
	headingLine    = regexp.MustCompile(`^(#{1,6}\s|#{1,6}$|[-*_]{3,}$|={3,}$)`)
	listMarker     = regexp.MustCompile(`^(?:[-*+>]\s+|\d+[.)]\s+)`)
	emphasis       = regexp.MustCompile(`\*\*|__`)
	inlineLink     = regexp.MustCompile(`!?\[([^\]]*)\]\([^)]*\)`)
	codeSpan       = regexp.MustCompile("`+([^`]*)`+")
	starEmphasis   = regexp.MustCompile(`(^|[^\w*])\*([^*\s](?:[^*]*[^*\s])?)\*([^\w*]|$)`)
	underEmphasis  = regexp.MustCompile(`(^|\W)_([^_\s](?:[^_]*[^_\s])?)_(\W|$)`)
	sentenceEnd    = regexp.MustCompile(`[.!?]+["')\]]*(?:\s+|$)`)
	dashSeparators = strings.NewReplacer(" — ", ", ", "—", ", ", " – ", ", ")
)

// Synthesizer runs the narrative stage.
type Synthesizer struct {
	gen      llm.Generator
	strategy *prompts.Strategy
	log      logging.Logger
}

func NewSynthesizer(gen llm.Generator, strategy *prompts.Strategy, log logging.Logger) *Synthesizer {
	return &Synthesizer{gen: gen, strategy: strategy, log: log.WithName("narrative")}
}

// Synthesize returns the cleaned narrative, or "" when none is available.
// It makes exactly one call and never retries.
func (s *Synthesizer) Synthesize(ctx context.Context, pr PullRequest, in Inputs, trace EvidenceTrace) string {
	evidence, err := json.MarshalIndent(trace, "", "  ")
	if err != nil {
		s.log.Warn(err, "encode evidence trace failed")
		return ""
	}

	system, user, err := s.strategy.Render(prompts.NarrativeInput{
		Title:          pr.Title,
		Description:    pr.Description,
		DiffDigest:     in.DiffDigest,
		Evidence:       string(evidence),
		ForbiddenWords: s.strategy.ForbiddenWords,
	})
	if err != nil {
		s.log.Warn(err, "render narrative prompt failed")
		return ""
	}

	out, err := s.gen.Generate(ctx, llm.Request{
		System:      system,
		User:        user,
		Temperature: s.strategy.Temperature,
		MaxTokens:   s.strategy.MaxTokens,
		Seed:        s.strategy.Seed,
		JSON:        s.strategy.JSON,
	})
	if err != nil {
		_, category := llm.FailureDetails(err)
		s.log.Warn(err, "narrative synthesis failed", "category", category, "version", s.strategy.Version)
		return ""
	}

	narrative := sanitizeNarrative(out, s.strategy.ForbiddenWords)
	if narrative == "" {
		s.log.Warn(errors.New("nothing left after cleanup"), "narrative response unusable", "chars", len(out))
		return ""
	}
	return narrative
}

// sanitizeNarrative removes markdown structure and any sentence that uses a
// forbidden word.
func sanitizeNarrative(text string, forbidden []string) string {
	banned := forbiddenPattern(forbidden)

	var paragraphs []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || headingLine.MatchString(line) {
			continue
		}
		line = listMarker.ReplaceAllString(line, "")
		line = stripInlineMarkdown(line)
		line = dashSeparators.Replace(line)

		var kept []string
		for _, sentence := range splitSentences(line) {
			if banned != nil && banned.MatchString(sentence) {
				continue
			}
			kept = append(kept, sentence)
		}
		if len(kept) > 0 {
			paragraphs = append(paragraphs, strings.Join(kept, " "))
		}
	}
	return strings.Join(paragraphs, "\n")
}

// stripInlineMarkdown unwraps links, code spans and emphasis, keeping their
// text. Underscores inside identifiers such as snake_case are left alone.
func stripInlineMarkdown(line string) string {
	line = inlineLink.ReplaceAllString(line, "$1")
	line = codeSpan.ReplaceAllString(line, "$1")
	line = strings.ReplaceAll(line, "`", "")
	line = emphasis.ReplaceAllString(line, "")
	// Adjacent spans share a boundary character, so repeat until stable.
	for _, re := range []*regexp.Regexp{starEmphasis, underEmphasis} {
		for {
			next := re.ReplaceAllString(line, "${1}${2}${3}")
			if next == line {
				break
			}
			line = next
		}
	}
	return line
}

func splitSentences(line string) []string {
	var out []string
	start := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(line, -1) {
		if s := strings.TrimSpace(line[start:loc[1]]); s != "" {
			out = append(out, s)
		}
		start = loc[1]
	}
	if s := strings.TrimSpace(line[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

func forbiddenPattern(words []string) *regexp.Regexp {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			quoted = append(quoted, regexp.QuoteMeta(w))
		}
	}
	if len(quoted) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}
