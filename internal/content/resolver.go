package content

import (
	"context"
	"strings"

	"github.com/leeaandrob/crecontent/internal/models"
	"github.com/rs/zerolog/log"
)

// Route records which path the resolver took.
type Route string

const (
	RouteAIAttempted  Route = "ai_attempted"
	RouteTemplateOnly Route = "template_only"
)

// Request is one content resolution request.
type Request struct {
	Type   models.ContentType
	Topic  models.Topic
	Market models.MarketContext
	News   []models.NewsItem
	APIKey string
}

// Result is the resolved text plus how it was produced.
type Result struct {
	Text           string
	Route          Route
	FellBack       bool
	FallbackReason error
}

// Reason returns the fallback reason as a string, or "".
func (r Result) Reason() string {
	if r.FallbackReason == nil {
		return ""
	}
	return r.FallbackReason.Error()
}

// Resolver picks the template or AI path for each request.
// It is safe for concurrent use.
type Resolver struct {
	templates *TemplateRenderer
	generator *PromptedGenerator
}

// NewResolver builds a resolver whose generator and template path share registry.
func NewResolver(registry *Registry, factory ClientFactory, cfg GeneratorConfig) *Resolver {
	templates := NewTemplateRenderer(registry)
	return &Resolver{
		templates: templates,
		generator: NewPromptedGenerator(factory, templates, cfg),
	}
}

// Templates returns the renderer used for the template path.
func (r *Resolver) Templates() *TemplateRenderer {
	return r.templates
}

// Resolve returns content for req. Only the presence of a non-blank credential
// selects the AI path; no other input influences routing.
func (r *Resolver) Resolve(ctx context.Context, req Request) Result {
	if strings.TrimSpace(req.APIKey) == "" {
		log.Debug().
			Str("type", string(req.Type)).
			Str("topic", string(req.Topic)).
			Msg("No credential, rendering template")

		return Result{
			Text:  r.templates.Render(req.Type, req.Topic, req.Market),
			Route: RouteTemplateOnly,
		}
	}

	out := r.generator.Generate(ctx, req)
	return Result{
		Text:           out.Text,
		Route:          RouteAIAttempted,
		FellBack:       out.FellBack,
		FallbackReason: out.Err,
	}
}
