package digest

import (
	"fmt"
	"strings"

	"github.com/roivaz/pr-digest/internal/changeset"
)

// annotationThreshold is the file count at or below which the per-file block
// is omitted.
const annotationThreshold = 3

type Report struct {
	Narrative       string   `json:"narrative"`
	FileAnnotations []string `json:"fileAnnotations"`
}

// FormatReport builds the report from the narrative and every changed file,
// including excluded ones. A blank narrative yields nil.
func FormatReport(narrative string, files []changeset.FileChange) *Report {
	var paragraphs []string
	for _, line := range strings.Split(narrative, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			paragraphs = append(paragraphs, line)
		}
	}
	if len(paragraphs) == 0 {
		return nil
	}

	annotations := []string{}
	if len(files) > annotationThreshold {
		for _, f := range files {
			annotations = append(annotations, Annotate(f))
		}
	}
	return &Report{
		Narrative:       strings.Join(paragraphs, "\n\n"),
		FileAnnotations: annotations,
	}
}

// Annotate renders one file as a markdown list item tagged with its change
// kind.
func Annotate(f changeset.FileChange) string {
	switch f.Kind() {
	case changeset.KindDeleted:
		return fmt.Sprintf("- `%s` 🗑️ (deleted)", displayPath(f.FromPath))
	case changeset.KindAdded:
		return fmt.Sprintf("- `%s` ✨ (new)", displayPath(f.ToPath))
	case changeset.KindRenamed:
		return fmt.Sprintf("- `%s` ➜ `%s` 📝 (renamed)", f.FromPath, f.ToPath)
	default:
		return fmt.Sprintf("- `%s` 📝 (modified)", displayPath(f.ToPath))
	}
}

// Markdown serializes the report for publishing.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString(r.Narrative)
	b.WriteString("\n")
	if len(r.FileAnnotations) > 0 {
		b.WriteString("\n#### Files Changed\n")
		b.WriteString(strings.Join(r.FileAnnotations, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}
