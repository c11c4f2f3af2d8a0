package pathfilter

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/roivaz/pr-digest/internal/changeset"
)

// Filter drops file changes whose resolved path matches an exclusion glob.
type Filter struct {
	Patterns []string
	// SkipGenerated additionally drops lock files and generated sources.
	SkipGenerated bool
}

// New builds a Filter from raw patterns, discarding blank entries.
func New(patterns []string, skipGenerated bool) Filter {
	cleaned := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return Filter{Patterns: cleaned, SkipGenerated: skipGenerated}
}

// ParsePatterns splits a comma-separated exclusion list.
func ParsePatterns(csv string) []string {
	return New(strings.Split(csv, ","), false).Patterns
}

// Apply returns the files that survive the filter, in input order.
func (f Filter) Apply(files []changeset.FileChange) []changeset.FileChange {
	kept := make([]changeset.FileChange, 0, len(files))
	for _, file := range files {
		if excluded, _ := f.Match(file); !excluded {
			kept = append(kept, file)
		}
	}
	return kept
}

// Excluded returns the files Apply would drop together with the rule that
// matched each one.
func (f Filter) Excluded(files []changeset.FileChange) map[string]string {
	out := map[string]string{}
	for _, file := range files {
		if excluded, rule := f.Match(file); excluded {
			out[file.Path()] = rule
		}
	}
	return out
}

// Match reports whether file is excluded and by which pattern. Files without a
// resolvable path never match.
func (f Filter) Match(file changeset.FileChange) (bool, string) {
	path := file.Path()
	if path == "" {
		return false, ""
	}
	for _, pattern := range f.Patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		// Invalid patterns report an error and are treated as non-matching.
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true, pattern
		}
	}
	if f.SkipGenerated {
		if ok, reason := changeset.IsGenerated(path); ok {
			return true, "generated:" + reason
		}
	}
	return false, ""
}
