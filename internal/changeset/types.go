package changeset

// DevNull is the path git reports for the missing side of an added or
// deleted file.
const DevNull = "/dev/null"

type Kind string

const (
	KindAdded    Kind = "added"
	KindDeleted  Kind = "deleted"
	KindRenamed  Kind = "renamed"
	KindModified Kind = "modified"
)

type LineKind string

const (
	LineContext LineKind = "context"
	LineAdded   LineKind = "added"
	LineRemoved LineKind = "removed"
)

// Line is one line of a hunk body. Number is the new-side line number for
// added and context lines and the old-side number for removed lines; zero
// means the diff did not carry one.
type Line struct {
	Kind   LineKind
	Number int
	Text   string
}

// Chunk is a contiguous hunk of changed lines.
type Chunk struct {
	Header string
	Lines  []Line
}

// FileChange is one file touched by a diff. An empty FromPath or ToPath means
// that side is absent (the file was added or deleted).
type FileChange struct {
	FromPath string
	ToPath   string
	Chunks   []Chunk
}

// Kind derives the change kind. Deleted wins over added, which wins over
// renamed; everything else is a modification.
func (f FileChange) Kind() Kind {
	switch {
	case f.ToPath == "":
		return KindDeleted
	case f.FromPath == "":
		return KindAdded
	case f.FromPath != f.ToPath:
		return KindRenamed
	default:
		return KindModified
	}
}

// Path returns the path a file is known by after the change, falling back to
// its original path for deletions. It is empty only when neither side is set.
func (f FileChange) Path() string {
	if f.ToPath != "" {
		return f.ToPath
	}
	return f.FromPath
}

// Stats counts added and removed lines across all chunks.
func (f FileChange) Stats() (added, removed int) {
	for _, c := range f.Chunks {
		for _, l := range c.Lines {
			switch l.Kind {
			case LineAdded:
				added++
			case LineRemoved:
				removed++
			}
		}
	}
	return added, removed
}
