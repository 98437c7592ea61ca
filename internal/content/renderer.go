package content

import (
	"fmt"
	"strings"

	"github.com/leeaandrob/crecontent/internal/models"
)

// TemplateRenderer produces content from the template registry without any API call.
type TemplateRenderer struct {
	registry *Registry
}

// NewTemplateRenderer creates a renderer over a registry.
func NewTemplateRenderer(registry *Registry) *TemplateRenderer {
	if registry == nil {
		registry = NewRegistry(nil)
	}
	return &TemplateRenderer{registry: registry}
}

// Registry returns the registry the renderer reads from.
func (r *TemplateRenderer) Registry() *Registry {
	return r.registry
}

// Render looks up the template for (ct, topic) and substitutes the market digest.
// A missing template yields a diagnostic string instead of an error.
func (r *TemplateRenderer) Render(ct models.ContentType, topic models.Topic, market models.MarketContext) string {
	body, ok := r.registry.Lookup(ct, topic)
	if !ok {
		return MissingTemplateText(ct, topic)
	}
	return fill(ct, body, market)
}

// RenderFallback is Render for the AI fallback path: a topic without its own
// template gets the generic body for ct, titled with the topic's display name.
func (r *TemplateRenderer) RenderFallback(ct models.ContentType, topic models.Topic, market models.MarketContext) string {
	if r.registry.Has(ct, topic) {
		return r.Render(ct, topic, market)
	}
	body, ok := genericTemplates[ct]
	if !ok {
		return MissingTemplateText(ct, topic)
	}
	return fill(ct, strings.ReplaceAll(body, TopicPlaceholder, topic.DisplayName()), market)
}

func fill(ct models.ContentType, body string, market models.MarketContext) string {
	data := market.Digest()
	if data == "" {
		data = MarketDataSentinel
	}

	out := strings.TrimSpace(strings.ReplaceAll(body, MarketDataPlaceholder, data))

	if ct == models.ContentTypeShort && !strings.HasSuffix(out, models.Disclaimer) {
		out += "\n\n" + models.Disclaimer
	}

	return out
}

// MissingTemplateText is the diagnostic returned for an unregistered key.
func MissingTemplateText(ct models.ContentType, topic models.Topic) string {
	return fmt.Sprintf("[no template registered for content type %q and topic %q]", ct, topic)
}
