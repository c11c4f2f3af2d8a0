package digest

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/roivaz/pr-digest/internal/changeset"
	"github.com/roivaz/pr-digest/internal/llm"
)

const (
	unknownFile   = "unknown file"
	charsPerToken = 4
	maxPieceChars = 2048
)

var estimateTokens = llm.EstimateTokens

// Inputs are the textual views of a change set shared by both stages.
type Inputs struct {
	CommitMessages string
	FileList       string
	DiffDigest     string
	DiffExcerpt    string
	// ExcerptTruncated reports whether DiffExcerpt hit the token budget.
	ExcerptTruncated bool
}

// BuildInputs renders the commit list, the changed file list, the per-file
// chunk counts and a diff excerpt bounded to maxTokens.
func BuildInputs(pr PullRequest, files []changeset.FileChange, maxTokens int) Inputs {
	commits := make([]string, 0, len(pr.Commits))
	for _, c := range pr.Commits {
		commits = append(commits, "- "+c.Message)
	}

	paths := make([]string, 0, len(files))
	var digest strings.Builder
	for _, f := range files {
		if f.ToPath != "" {
			paths = append(paths, f.ToPath)
		}
		fmt.Fprintf(&digest, "%s: %d change(s) detected.\n", displayPath(f.Path()), len(f.Chunks))
	}

	excerpt, truncated := boundExcerpt(renderExcerpt(files), maxTokens)

	return Inputs{
		CommitMessages:   strings.Join(commits, "\n"),
		FileList:         strings.Join(paths, ", "),
		DiffDigest:       digest.String(),
		DiffExcerpt:      excerpt,
		ExcerptTruncated: truncated,
	}
}

func renderExcerpt(files []changeset.FileChange) string {
	var b strings.Builder
	for _, f := range files {
		fmt.Fprintf(&b, "=== %s (%s)\n", displayPath(f.Path()), f.Kind())
		for _, chunk := range f.Chunks {
			b.WriteString(chunk.Header)
			b.WriteByte('\n')
			for _, line := range chunk.Lines {
				switch line.Kind {
				case changeset.LineAdded:
					b.WriteByte('+')
				case changeset.LineRemoved:
					b.WriteByte('-')
				default:
					b.WriteByte(' ')
				}
				b.WriteString(line.Text)
				b.WriteByte('\n')
			}
		}
	}
	return b.String()
}

// boundExcerpt keeps whole leading pieces of text (split on file, hunk and
// line boundaries) that fit in maxTokens. A non-positive budget keeps
// everything.
func boundExcerpt(text string, maxTokens int) (string, bool) {
	if maxTokens <= 0 || text == "" || estimateTokens(text) <= maxTokens {
		return text, false
	}

	size := maxTokens * charsPerToken / 2
	if size > maxPieceChars {
		size = maxPieceChars
	}
	if size < 64 {
		size = 64
	}
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithSeparators([]string{"\n=== ", "\n@@", "\n", ""}),
		textsplitter.WithChunkSize(size),
		textsplitter.WithChunkOverlap(0),
		textsplitter.WithKeepSeparator(true),
	)
	parts, err := splitter.SplitText(text)
	if err != nil || len(parts) == 0 {
		return llm.Truncate(text, maxTokens)
	}

	var b strings.Builder
	used := 0
	for _, part := range parts {
		n := estimateTokens(part)
		if used+n > maxTokens {
			break
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.TrimPrefix(part, "\n"))
		used += n
	}
	if b.Len() == 0 {
		return llm.Truncate(parts[0], maxTokens)
	}
	return b.String(), true
}

func displayPath(p string) string {
	if p == "" {
		return unknownFile
	}
	return p
}
