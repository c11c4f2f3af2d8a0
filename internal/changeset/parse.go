package changeset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"

	"github.com/roivaz/pr-digest/internal/logging"
)

var diffHeaderRegexp = regexp.MustCompile(`(?m)^diff --git `)

// Parse turns unified diff text into file changes in source order. Sections
// that cannot be parsed, or that carry no hunk and are not pure renames, are
// skipped. Empty input yields an empty result.
func Parse(diffText string, log logging.Logger) []FileChange {
	if strings.TrimSpace(diffText) == "" {
		return []FileChange{}
	}

	sections := splitSections(diffText)
	if len(sections) == 0 {
		return parsePlain(diffText, log)
	}

	files := make([]FileChange, 0, len(sections))
	for _, section := range sections {
		fd, err := godiff.ParseFileDiff([]byte(section))
		if err != nil {
			log.Debug("skip unparsable diff section", "section", preview(section), "error", err.Error())
			continue
		}
		file, ok := fromFileDiff(fd)
		if !ok {
			log.Debug("skip diff section without hunks", "section", preview(section))
			continue
		}
		files = append(files, file)
	}
	return files
}

func splitSections(diffText string) []string {
	matches := diffHeaderRegexp.FindAllStringIndex(diffText, -1)
	if len(matches) == 0 {
		return nil
	}
	sections := make([]string, 0, len(matches))
	for i, loc := range matches {
		end := len(diffText)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		// Only line breaks are trimmed; a final " " context line is content.
		section := strings.TrimRight(diffText[loc[0]:end], "\r\n")
		if strings.TrimSpace(section) != "" {
			sections = append(sections, section+"\n")
		}
	}
	return sections
}

// parsePlain handles diffs without git headers (plain `diff -u` output). It
// keeps everything parsed before the first malformed fragment.
func parsePlain(diffText string, log logging.Logger) []FileChange {
	files := []FileChange{}
	r := godiff.NewMultiFileDiffReader(strings.NewReader(diffText))
	for {
		fd, err := r.ReadFile()
		if errors.Is(err, io.EOF) {
			return files
		}
		if err != nil {
			log.Debug("stop at unparsable diff fragment", "error", err.Error(), "parsed", len(files))
			return files
		}
		if file, ok := fromFileDiff(fd); ok {
			files = append(files, file)
		}
	}
}

func fromFileDiff(fd *godiff.FileDiff) (FileChange, bool) {
	file := FileChange{
		FromPath: cleanPath(fd.OrigName, "a/"),
		ToPath:   cleanPath(fd.NewName, "b/"),
		Chunks:   make([]Chunk, 0, len(fd.Hunks)),
	}
	for _, h := range fd.Hunks {
		file.Chunks = append(file.Chunks, chunkFromHunk(h))
	}
	if len(file.Chunks) == 0 && !isPureRename(fd) {
		return FileChange{}, false
	}
	if file.FromPath == "" && file.ToPath == "" {
		return FileChange{}, false
	}
	return file, true
}

func isPureRename(fd *godiff.FileDiff) bool {
	var from, to bool
	for _, ext := range fd.Extended {
		switch {
		case strings.HasPrefix(ext, "rename from "):
			from = true
		case strings.HasPrefix(ext, "rename to "):
			to = true
		}
	}
	return from && to
}

func cleanPath(name, prefix string) string {
	name = strings.TrimSpace(name)
	if name == "" || name == DevNull {
		return ""
	}
	return strings.TrimPrefix(name, prefix)
}

func chunkFromHunk(h *godiff.Hunk) Chunk {
	header := fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.OrigStartLine, h.OrigLines, h.NewStartLine, h.NewLines)
	if h.Section != "" {
		header += " " + h.Section
	}

	oldLine := int(h.OrigStartLine)
	newLine := int(h.NewStartLine)
	body := bytes.TrimSuffix(h.Body, []byte("\n"))
	if len(body) == 0 {
		return Chunk{Header: header, Lines: []Line{}}
	}
	lines := make([]Line, 0, bytes.Count(body, []byte("\n"))+1)
	for _, raw := range strings.Split(string(body), "\n") {
		if raw == "" {
			// A blank context line loses its leading space in some generators.
			lines = append(lines, Line{Kind: LineContext, Number: newLine})
			oldLine++
			newLine++
			continue
		}
		switch raw[0] {
		case '+':
			lines = append(lines, Line{Kind: LineAdded, Number: newLine, Text: raw[1:]})
			newLine++
		case '-':
			lines = append(lines, Line{Kind: LineRemoved, Number: oldLine, Text: raw[1:]})
			oldLine++
		case '\\':
			continue
		default:
			lines = append(lines, Line{Kind: LineContext, Number: newLine, Text: raw[1:]})
			oldLine++
			newLine++
		}
	}
	return Chunk{Header: header, Lines: lines}
}

func preview(s string) string {
	if len(s) > 80 {
		return s[:80]
	}
	return s
}
