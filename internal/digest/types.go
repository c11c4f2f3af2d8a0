package digest

type Commit struct {
	SHA     string `json:"sha"`
	Message string `json:"message"`
}

// PullRequest is the metadata of the change under review. It is read-only
// for the duration of a run.
type PullRequest struct {
	Owner       string   `json:"owner"`
	Repo        string   `json:"repo"`
	Number      int      `json:"number"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Author      string   `json:"author"`
	Commits     []Commit `json:"commits"`
}

type Phase struct {
	Phase   string   `json:"phase"`
	Goal    string   `json:"goal"`
	Changes []string `json:"changes"`
}

// EvidenceTrace is the validated output of the evidence stage. Collections
// are never nil.
type EvidenceTrace struct {
	Timeline         []Phase  `json:"timeline"`
	ModulesTouched   []string `json:"modulesTouched"`
	NotablePatterns  []string `json:"notablePatterns"`
	ValidatedChanges []string `json:"validatedChanges"`

	// Fallback marks a trace synthesized from raw inputs.
	Fallback bool `json:"-"`
}

func newTrace() EvidenceTrace {
	return EvidenceTrace{
		Timeline:         []Phase{},
		ModulesTouched:   []string{},
		NotablePatterns:  []string{},
		ValidatedChanges: []string{},
	}
}

func (t EvidenceTrace) degenerate() bool {
	return len(t.Timeline) == 0 || len(t.ModulesTouched) == 0 || len(t.NotablePatterns) == 0
}
