package runner

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/roivaz/pr-digest/internal/config"
	"github.com/roivaz/pr-digest/internal/digest"
	"github.com/roivaz/pr-digest/internal/githost"
	"github.com/roivaz/pr-digest/internal/llm"
	"github.com/roivaz/pr-digest/internal/logging"
	"github.com/roivaz/pr-digest/internal/pathfilter"
	"github.com/roivaz/pr-digest/internal/prompts"
)

type Config struct {
	GitHubToken  string
	AuthorToken  string
	GitHubAPIURL string
	EventPath    string
	EventName    string

	LLM             llm.Config
	MaxPromptTokens int

	Exclude       []string
	SkipGenerated bool
	Attribution   githost.Attribution

	EvidencePromptVersion  string
	NarrativePromptVersion string
	PromptsFile            string

	MCPListenAddr string
}

func LoadConfig() (Config, error) {
	cfg := Config{
		GitHubToken:  config.GitHubToken(),
		AuthorToken:  config.AuthorToken(),
		GitHubAPIURL: config.GitHubAPIURL(),
		EventPath:    config.EventPath(),
		EventName:    config.EventName(),
		LLM: llm.Config{
			Provider:  config.LLMProvider(),
			Model:     config.LLMModel(),
			APIKey:    config.OpenAIKey(),
			BaseURL:   config.OpenAIBaseURL(),
			OllamaURL: config.OllamaURL(),
			Logger:    logr.Logger{},
		},
		MaxPromptTokens:        config.MaxPromptTokens(),
		Exclude:                pathfilter.ParsePatterns(config.Exclude()),
		SkipGenerated:          config.SkipGenerated(),
		EvidencePromptVersion:  config.EvidencePromptVersion(),
		NarrativePromptVersion: config.NarrativePromptVersion(),
		PromptsFile:            config.PromptsFile(),
		MCPListenAddr:          config.MCPListenAddr(),
	}

	timeout, err := parseDuration(config.LLMCallTimeout(), 2*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid llm_call_timeout: %w", err)
	}
	cfg.LLM.CallTimeout = timeout

	if cfg.Attribution, err = githost.ParseAttribution(config.Attribution()); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// NewPipeline wires the generative client, prompt registry and path filter
// described by cfg.
func NewPipeline(cfg Config, log logr.Logger) (*digest.Pipeline, error) {
	llmCfg := cfg.LLM
	llmCfg.Logger = log
	gen, err := llm.New(llmCfg)
	if err != nil {
		return nil, err
	}
	logging.New(log).WithName("runner").Info("text generation client ready", "model", gen.Name())
	return NewPipelineWithGenerator(cfg, gen, log)
}

func NewPipelineWithGenerator(cfg Config, gen llm.Generator, log logr.Logger) (*digest.Pipeline, error) {
	registry, err := prompts.Load(cfg.PromptsFile)
	if err != nil {
		return nil, err
	}
	return digest.NewPipeline(digest.Config{
		Generator:        gen,
		Prompts:          registry,
		EvidenceVersion:  cfg.EvidencePromptVersion,
		NarrativeVersion: cfg.NarrativePromptVersion,
		Filter:           pathfilter.New(cfg.Exclude, cfg.SkipGenerated),
		MaxPromptTokens:  cfg.MaxPromptTokens,
		Logger:           log,
	})
}

// NewHost builds the GitHub client from cfg.
func NewHost(cfg Config, log logr.Logger) (*githost.Client, error) {
	return githost.New(githost.Config{
		Token:       cfg.GitHubToken,
		AuthorToken: cfg.AuthorToken,
		APIURL:      cfg.GitHubAPIURL,
		Logger:      log,
	})
}

func parseDuration(value string, fallback time.Duration) (time.Duration, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, err
	}
	return d, nil
}
