package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/roivaz/pr-digest/internal/logging"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// ErrEmptyResponse is returned when the service answers without any content.
var ErrEmptyResponse = errors.New("empty completion")

// Request is a single system/user instruction pair plus sampling options.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
	Seed        int
	// JSON asks the provider to constrain output to a JSON document.
	JSON bool
}

// Generator is the capability the digest stages need from a text-generation
// service.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

type Config struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	OllamaURL   string
	CallTimeout time.Duration
	Logger      logr.Logger
}

// Client adapts a langchaingo model to Generator.
type Client struct {
	model llms.Model
	name  string
	log   logging.Logger
	to    time.Duration
}

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("llm model name is required")
	}

	var (
		model llms.Model
		err   error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderOpenAI, "":
		opts := []openai.Option{
			openai.WithModel(cfg.Model),
			openai.WithHTTPClient(&http.Client{}),
		}
		if cfg.APIKey != "" {
			opts = append(opts, openai.WithToken(cfg.APIKey))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err = openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create openai client: %w", err)
		}
	case ProviderOllama:
		opts := []ollama.Option{
			ollama.WithModel(cfg.Model),
			ollama.WithKeepAlive("5m"),
		}
		if trimmed := strings.TrimSpace(cfg.OllamaURL); trimmed != "" {
			opts = append(opts, ollama.WithServerURL(trimmed))
		}
		model, err = ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create ollama client: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown llm provider: %s (must be openai or ollama)", cfg.Provider)
	}

	return NewWithModel(model, cfg), nil
}

// NewWithModel wraps an already constructed langchaingo model.
func NewWithModel(model llms.Model, cfg Config) *Client {
	name := cfg.Provider
	if name == "" {
		name = ProviderOpenAI
	}
	return &Client{
		model: model,
		name:  name + "/" + cfg.Model,
		log:   logging.New(cfg.Logger).WithName("llm"),
		to:    cfg.CallTimeout,
	}
}

// Name identifies the provider and model, e.g. "openai/gpt-4o".
func (c *Client) Name() string { return c.name }

func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, req.System),
		llms.TextParts(llms.ChatMessageTypeHuman, req.User),
	}
	opts := []llms.CallOption{
		llms.WithTemperature(req.Temperature),
		llms.WithSeed(req.Seed),
	}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.JSON {
		opts = append(opts, llms.WithJSONMode())
	}

	start := time.Now()
	resp, err := c.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", c.annotateError(err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	content := strings.TrimSpace(resp.Choices[0].Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	c.log.Debug("completion received", "model", c.name, "elapsed", time.Since(start).String(), "chars", len(content))
	return content, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.to <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.to)
}

func (c *Client) annotateError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("llm call timed out after %s: %w", c.to, err)
	}
	return fmt.Errorf("llm call failed: %w", err)
}
