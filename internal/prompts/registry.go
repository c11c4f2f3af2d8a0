// Package prompts holds the versioned instruction templates used by the two
// generative stages of the digest pipeline.
package prompts

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/template"

	"sigs.k8s.io/yaml"
)

type Stage string

const (
	StageEvidence  Stage = "evidence"
	StageNarrative Stage = "narrative"
)

var ErrUnknownStrategy = errors.New("unknown prompt strategy")

//go:embed builtin.yaml
var builtinYAML []byte

// Strategy is one version of the instructions for a stage, plus its sampling
// settings.
type Strategy struct {
	Stage          Stage    `json:"stage"`
	Version        string   `json:"version"`
	Description    string   `json:"description,omitempty"`
	System         string   `json:"system"`
	User           string   `json:"user"`
	Temperature    float64  `json:"temperature"`
	MaxTokens      int      `json:"maxTokens"`
	Seed           int      `json:"seed"`
	JSON           bool     `json:"json"`
	ForbiddenWords []string `json:"forbiddenWords,omitempty"`

	system *template.Template
	user   *template.Template
}

// EvidenceInput is the template data for the evidence stage.
type EvidenceInput struct {
	CommitMessages string
	FileList       string
	DiffDigest     string
	DiffExcerpt    string
}

// NarrativeInput is the template data for the narrative stage.
type NarrativeInput struct {
	Title          string
	Description    string
	DiffDigest     string
	Evidence       string
	ForbiddenWords []string
}

type document struct {
	Defaults   map[Stage]string `json:"defaults"`
	Strategies []Strategy       `json:"strategies"`
}

type Registry struct {
	defaults   map[Stage]string
	strategies map[Stage]map[string]*Strategy
}

var funcs = template.FuncMap{"join": strings.Join}

// Builtin returns a registry populated with the embedded strategies.
func Builtin() (*Registry, error) {
	r := &Registry{
		defaults:   map[Stage]string{},
		strategies: map[Stage]map[string]*Strategy{},
	}
	if err := r.Merge(builtinYAML); err != nil {
		return nil, fmt.Errorf("load builtin prompts: %w", err)
	}
	return r, nil
}

// Load returns the builtin registry overlaid with the strategies in path. An
// empty path yields the builtin registry.
func Load(path string) (*Registry, error) {
	r, err := Builtin()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(path) == "" {
		return r, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts file: %w", err)
	}
	if err := r.Merge(data); err != nil {
		return nil, fmt.Errorf("load prompts file %s: %w", path, err)
	}
	return r, nil
}

// Merge parses a YAML document and adds or replaces the strategies and
// defaults it declares.
func (r *Registry) Merge(data []byte) error {
	var doc document
	if err := yaml.UnmarshalStrict(data, &doc); err != nil {
		return fmt.Errorf("parse prompts: %w", err)
	}

	for i := range doc.Strategies {
		s := doc.Strategies[i]
		if err := s.compile(); err != nil {
			return err
		}
		if r.strategies[s.Stage] == nil {
			r.strategies[s.Stage] = map[string]*Strategy{}
		}
		r.strategies[s.Stage][s.Version] = &s
	}
	for stage, version := range doc.Defaults {
		if _, ok := r.strategies[stage][version]; !ok {
			return fmt.Errorf("default %s/%s: %w", stage, version, ErrUnknownStrategy)
		}
		r.defaults[stage] = version
	}
	return nil
}

// Lookup returns the strategy for stage at version, or the stage default when
// version is empty.
func (r *Registry) Lookup(stage Stage, version string) (*Strategy, error) {
	version = strings.TrimSpace(version)
	if version == "" {
		version = r.defaults[stage]
	}
	s, ok := r.strategies[stage][version]
	if !ok {
		return nil, fmt.Errorf("%s/%s (available: %s): %w", stage, version, strings.Join(r.Versions(stage), ", "), ErrUnknownStrategy)
	}
	return s, nil
}

// Versions lists the known versions of a stage in sorted order.
func (r *Registry) Versions(stage Stage) []string {
	out := make([]string, 0, len(r.strategies[stage]))
	for v := range r.strategies[stage] {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Render executes the strategy's templates against data.
func (s *Strategy) Render(data any) (system, user string, err error) {
	var b strings.Builder
	if err := s.system.Execute(&b, data); err != nil {
		return "", "", fmt.Errorf("render %s/%s system prompt: %w", s.Stage, s.Version, err)
	}
	system = strings.TrimSpace(b.String())

	b.Reset()
	if err := s.user.Execute(&b, data); err != nil {
		return "", "", fmt.Errorf("render %s/%s user prompt: %w", s.Stage, s.Version, err)
	}
	return system, strings.TrimSpace(b.String()), nil
}

func (s *Strategy) compile() error {
	switch s.Stage {
	case StageEvidence, StageNarrative:
	default:
		return fmt.Errorf("strategy %q: unsupported stage %q", s.Version, s.Stage)
	}
	if strings.TrimSpace(s.Version) == "" {
		return fmt.Errorf("strategy for stage %s has no version", s.Stage)
	}
	name := string(s.Stage) + "/" + s.Version
	var err error
	if s.system, err = template.New(name + "/system").Funcs(funcs).Parse(s.System); err != nil {
		return fmt.Errorf("parse %s system template: %w", name, err)
	}
	if s.user, err = template.New(name + "/user").Funcs(funcs).Parse(s.User); err != nil {
		return fmt.Errorf("parse %s user template: %w", name, err)
	}
	return nil
}
