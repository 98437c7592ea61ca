// Package content resolves CRE social content from static templates or a chat model.
package content

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/leeaandrob/crecontent/internal/llm"
	"github.com/leeaandrob/crecontent/internal/models"
	"github.com/rs/zerolog/log"
)

var (
	// ErrMissingCredential is reported when a generation is attempted without an API key.
	ErrMissingCredential = errors.New("missing API credential")

	// ErrEmptyCompletion is reported when the model answers with blank content.
	ErrEmptyCompletion = errors.New("empty completion")

	// ErrNoClient is reported when the generator has no client factory.
	ErrNoClient = errors.New("no chat client configured")
)

// Completer performs one chat completion.
type Completer interface {
	Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error)
}

// ClientFactory builds a Completer bound to a credential.
type ClientFactory func(apiKey string) Completer

// OpenAIClientFactory returns a factory producing llm clients that share cfg
// except for the API key.
func OpenAIClientFactory(cfg llm.Config) ClientFactory {
	return func(apiKey string) Completer {
		c := cfg
		c.APIKey = apiKey
		return llm.NewClient(c)
	}
}

// GeneratorConfig holds generation settings.
type GeneratorConfig struct {
	Temperature    float32
	ShortMaxTokens int
	LongMaxTokens  int
	Timeout        time.Duration
}

// DefaultGeneratorConfig returns the stock generation settings.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Temperature:    0.7,
		ShortMaxTokens: 500,
		LongMaxTokens:  2000,
		Timeout:        llm.DefaultTimeout,
	}
}

// MaxTokens returns the output budget for a content type.
func (c GeneratorConfig) MaxTokens(ct models.ContentType) int {
	if ct == models.ContentTypeLong {
		return c.LongMaxTokens
	}
	return c.ShortMaxTokens
}

// Outcome is the result of one generation attempt. Text is never empty for a
// known content type; FellBack is set whenever Text came from a template.
type Outcome struct {
	Text     string
	FellBack bool
	Err      error
}

// PromptedGenerator asks a chat model for content and falls back to the
// template renderer on any failure. It never retries.
type PromptedGenerator struct {
	newClient ClientFactory
	templates *TemplateRenderer
	cfg       GeneratorConfig
}

// NewPromptedGenerator creates a generator.
func NewPromptedGenerator(factory ClientFactory, templates *TemplateRenderer, cfg GeneratorConfig) *PromptedGenerator {
	def := DefaultGeneratorConfig()
	if cfg.ShortMaxTokens <= 0 {
		cfg.ShortMaxTokens = def.ShortMaxTokens
	}
	if cfg.LongMaxTokens <= 0 {
		cfg.LongMaxTokens = def.LongMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	return &PromptedGenerator{
		newClient: factory,
		templates: templates,
		cfg:       cfg,
	}
}

// Generate requests content for req. Every failure (transport, status,
// malformed body, timeout, blank content) is absorbed into a template fallback.
func (g *PromptedGenerator) Generate(ctx context.Context, req Request) Outcome {
	if strings.TrimSpace(req.APIKey) == "" {
		return g.fallback(req, ErrMissingCredential)
	}
	if g.newClient == nil {
		return g.fallback(req, ErrNoClient)
	}

	prompt := BuildPrompt(req.Type, req.Topic, req.Market, req.News)

	callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.newClient(req.APIKey).Chat(callCtx, llm.ChatRequest{
		SystemPrompt: prompt.System,
		UserPrompt:   prompt.User,
		Temperature:  g.cfg.Temperature,
		MaxTokens:    g.cfg.MaxTokens(req.Type),
	})
	if err != nil {
		return g.fallback(req, err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return g.fallback(req, ErrEmptyCompletion)
	}

	log.Debug().
		Str("type", string(req.Type)).
		Str("topic", string(req.Topic)).
		Int("tokens", resp.TokensUsed.TotalTokens).
		Dur("took", time.Since(start)).
		Msg("Generated content with AI")

	return Outcome{Text: resp.Content}
}

func (g *PromptedGenerator) fallback(req Request, reason error) Outcome {
	log.Warn().
		Err(reason).
		Str("type", string(req.Type)).
		Str("topic", string(req.Topic)).
		Msg("AI generation failed, using template")

	return Outcome{
		Text:     g.templates.RenderFallback(req.Type, req.Topic, req.Market),
		FellBack: true,
		Err:      reason,
	}
}
