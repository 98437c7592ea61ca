package content

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/leeaandrob/crecontent/internal/models"
	"gopkg.in/yaml.v3"
)

// MarketDataPlaceholder is the single token a template body may carry.
const MarketDataPlaceholder = "{market_data}"

// MarketDataSentinel replaces the placeholder when no market context is available.
const MarketDataSentinel = "market data loading..."

// TemplateKey identifies a template in the registry.
type TemplateKey struct {
	Type  models.ContentType
	Topic models.Topic
}

// Registry is an immutable mapping from (ContentType, Topic) to a template body.
// It is built once at startup and shared read-only.
type Registry struct {
	templates map[TemplateKey]string
}

// NewRegistry copies entries into a new registry.
func NewRegistry(entries map[TemplateKey]string) *Registry {
	templates := make(map[TemplateKey]string, len(entries))
	for k, v := range entries {
		templates[k] = v
	}
	return &Registry{templates: templates}
}

// Lookup returns the body registered for the key.
func (r *Registry) Lookup(ct models.ContentType, topic models.Topic) (string, bool) {
	body, ok := r.templates[TemplateKey{Type: ct, Topic: topic}]
	return body, ok
}

// Has reports whether a template is registered for the key.
func (r *Registry) Has(ct models.ContentType, topic models.Topic) bool {
	_, ok := r.templates[TemplateKey{Type: ct, Topic: topic}]
	return ok
}

// Topics returns the topics with a template for ct, sorted by slug.
func (r *Registry) Topics(ct models.ContentType) []models.Topic {
	var topics []models.Topic
	for k := range r.templates {
		if k.Type == ct {
			topics = append(topics, k.Topic)
		}
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i] < topics[j] })
	return topics
}

// Len returns the number of registered templates.
func (r *Registry) Len() int {
	return len(r.templates)
}

// templateFile is the YAML overlay format.
type templateFile struct {
	Templates []struct {
		Type  string `yaml:"type"`
		Topic string `yaml:"topic"`
		Body  string `yaml:"body"`
	} `yaml:"templates"`
}

// LoadRegistryFile reads a YAML overlay and returns a new registry containing
// base's templates with the file's entries added or replaced.
func LoadRegistryFile(path string, base *Registry) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates file: %w", err)
	}
	return ParseRegistryYAML(data, base)
}

// ParseRegistryYAML parses a YAML overlay on top of base (which may be nil).
func ParseRegistryYAML(data []byte, base *Registry) (*Registry, error) {
	var file templateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse templates file: %w", err)
	}

	entries := make(map[TemplateKey]string)
	if base != nil {
		for k, v := range base.templates {
			entries[k] = v
		}
	}

	for i, t := range file.Templates {
		ct, err := models.ParseContentType(t.Type)
		if err != nil {
			return nil, fmt.Errorf("template %d: %w", i, err)
		}
		topic, err := models.ParseTopic(t.Topic)
		if err != nil {
			return nil, fmt.Errorf("template %d: %w", i, err)
		}
		body := strings.TrimSpace(t.Body)
		if body == "" {
			return nil, fmt.Errorf("template %d (%s/%s): empty body", i, ct, topic)
		}
		if ct == models.ContentTypeLong && !isArticleLayout(body) {
			return nil, fmt.Errorf("template %d (%s/%s): long-form body must start with a title line and an executive summary", i, ct, topic)
		}
		if n := strings.Count(body, MarketDataPlaceholder); n > 1 {
			return nil, fmt.Errorf("template %d (%s/%s): %d placeholders, at most one allowed", i, ct, topic, n)
		}
		entries[TemplateKey{Type: ct, Topic: topic}] = body
	}

	return NewRegistry(entries), nil
}

func isArticleLayout(body string) bool {
	lines := strings.SplitN(body, "\n", 2)
	if !strings.HasPrefix(lines[0], "# ") || len(lines) < 2 {
		return false
	}
	return strings.HasPrefix(strings.TrimSpace(lines[1]), "**Executive Summary")
}

// DefaultRegistry returns the built-in template catalog.
func DefaultRegistry() *Registry {
	return NewRegistry(builtinTemplates)
}

// TopicPlaceholder is replaced by the topic's display name in generic templates.
const TopicPlaceholder = "{topic}"

// genericTemplates back the AI fallback for topics without their own template.
var genericTemplates = map[models.ContentType]string{
	models.ContentTypeShort: `**{topic} continues to reshape the multifamily landscape.**

Where the market stands:
{market_data}

Investor preferences are shifting, with institutional capital increasingly focused on markets that kept construction discipline through the last development cycle.

Selective deployment is replacing broad-based strategies as every deal becomes location and story specific. This environment rewards deep market knowledge and surgical capital allocation.

What markets are you watching that others might be overlooking?

Views are my own; not investment advice.`,

	models.ContentTypeLong: `# {topic}: Market Analysis

**Executive Summary**
- Market dynamics continue evolving with geographic selectivity
- Institutional capital flows reflect new risk assessment frameworks
- Regional performance variations create opportunities for informed investors

## Current Market Environment

{market_data}

The commercial real estate landscape is going through a fundamental shift in how capital views risk and opportunity across markets and asset classes.

## Investment Implications

For institutional investors and CRE professionals, understanding these dynamics is central to deploying capital well in today's environment.

What are your thoughts on these market dynamics?

Views are my own; not investment advice.`,
}

var builtinTemplates = map[TemplateKey]string{
	// Short-form posts

	{Type: models.ContentTypeShort, Topic: models.TopicMultifamily}: `**Multifamily fundamentals are quietly outperforming the headlines.**

The numbers behind the story:
{market_data}

Occupancy has held up better than most forecasts from a year ago, and renters are staying put longer as the cost of ownership stays elevated. That is translating into steadier renewals and fewer concessions outside the markets still absorbing new deliveries.

For operators, the edge right now is execution: retention, expense control and disciplined capital plans matter more than top-line rent growth.

Which operating lever is doing the most work in your portfolio this year?

Views are my own; not investment advice.`,

	{Type: models.ContentTypeShort, Topic: models.TopicMidwestMultifamily}: `**The Midwest is having its multifamily moment.**

Macro backdrop:
{market_data}

Markets like Chicago, Minneapolis and Columbus avoided the 2021-2022 building spree, and that construction discipline is paying off. Vacancy is tight, rent growth is steady rather than spectacular, and going-in yields still clear the cost of debt more comfortably than in many coastal metros.

Institutional buyers who once dismissed the region as "flyover" are now underwriting it as a defensive allocation.

Is the Midwest premium sustainable once the Sun Belt pipeline clears?

Views are my own; not investment advice.`,

	{Type: models.ContentTypeShort, Topic: models.TopicGatewayMarkets}: `**Gateway markets are back on institutional shortlists.**

Where the macro stands:
{market_data}

Boston, New York and Miami never lost their demand drivers: deep employment bases, high barriers to new supply and renter households that keep growing. With vacancy in the low single digits, capital that chased yield elsewhere is rotating back toward proven liquidity.

The trade-off is entry pricing. Winning deals requires conviction on long-term rent growth rather than near-term cap rate compression.

Are gateway markets a safe harbor or a crowded trade in this cycle?

Views are my own; not investment advice.`,

	{Type: models.ContentTypeShort, Topic: models.TopicSunBeltSupply}: `**The Sun Belt supply wave is still working its way through.**

Context:
{market_data}

Phoenix, Austin and Dallas are absorbing record deliveries from projects started when capital was cheap. Demand is real, but lease-up concessions and softer effective rents will persist until the pipeline thins.

The opportunity for patient capital: well-located assets from sponsors facing refinancing deadlines before stabilization.

How long do you expect Sun Belt concessions to last?

Views are my own; not investment advice.`,

	{Type: models.ContentTypeShort, Topic: models.TopicInterestRates}: `**Interest rates continue to reshape CRE investment strategies.**

Current rate environment:
{market_data}

Every basis point in the cost of capital is showing up in underwriting. Buyers are demanding wider spreads, sellers are holding out for yesterday's pricing, and the bid-ask gap is narrowing only where debt maturities force the conversation.

For CRE professionals, this environment rewards surgical capital allocation over broad-based acquisition strategies.

At what rate level do you see transaction volume meaningfully returning?

Views are my own; not investment advice.`,

	{Type: models.ContentTypeShort, Topic: models.TopicCapitalFlows}: `**Capital is moving, just more selectively than before.**

Macro signals:
{market_data}

Institutional investors are concentrating on markets with proven fundamentals. Large transactions now require compelling risk-adjusted returns, and liquidity is pooling around assets with clean capital stacks and clear business plans.

Where there is dislocation, there is opportunity, but only for those with certainty of execution.

Where are you seeing capital flow that others might be overlooking?

Views are my own; not investment advice.`,

	{Type: models.ContentTypeShort, Topic: models.TopicRentGrowth}: `**Rent growth has normalized. That is not the same as stalled.**

Latest readings:
{market_data}

After the double-digit run of 2021-2022, effective rent growth has settled into low single digits nationally, with a wide spread between supply-constrained metros and those working through new deliveries. Renewal spreads are holding better than new-lease pricing.

Underwriting flat-to-modest rent growth is no longer conservative; it is baseline.

What rent growth assumption are you using for the next three years?

Views are my own; not investment advice.`,

	{Type: models.ContentTypeShort, Topic: models.TopicDebtMarkets}: `**The debt markets are where this cycle gets decided.**

Rate backdrop:
{market_data}

A wall of floating-rate bridge loans written in 2021-2022 is coming due. Agency lenders remain active, but proceeds are constrained by higher debt service coverage requirements, leaving equity gaps that rescue capital is eager to fill.

Sponsors with maturities in the next 18 months should be having lender conversations now, not later.

Are you seeing more extensions, recapitalizations or outright sales in your market?

Views are my own; not investment advice.`,

	{Type: models.ContentTypeShort, Topic: models.TopicConstructionCosts}: `**Construction costs are rewriting development math.**

Backdrop:
{market_data}

Materials, labor and insurance have all reset higher, and they are not coming back down. Projects that penciled at 2021 costs and 2021 rates now need rents the market cannot support, which is why new starts have fallen sharply.

Today's cost environment is tomorrow's supply shortage, and that sets up existing assets for stronger pricing power later this decade.

How are rising construction costs changing your development or acquisition strategy?

Views are my own; not investment advice.`,

	// Long-form articles

	{Type: models.ContentTypeLong, Topic: models.TopicMultifamily}: `# Multifamily Market Fundamentals: Market Analysis

**Executive Summary**
- Occupancy has proven more resilient than forecast as renter households keep forming
- Rent growth has normalized, with renewals outperforming new leases
- Operational execution is now the primary driver of returns

## Current Market Environment

{market_data}

Multifamily entered this cycle with strong demand tailwinds: elevated home ownership costs, household formation among younger cohorts and steady job growth. Those drivers remain intact even as the supply pipeline delivers record unit counts in select regions.

## Regional Analysis

Performance is diverging by geography. Supply-constrained Midwest and gateway markets are posting tight vacancy and steady renewals, while high-delivery Sun Belt metros are leaning on concessions to drive lease-up.

## Investment Implications

Acquisition underwriting should assume modest rent growth and focus on expense discipline, resident retention and capital plans that protect net operating income.

## Forward-Looking Perspective

As new starts decline, the supply overhang should burn off, setting up a tighter market later in the decade for well-positioned assets.

What are your thoughts on these market dynamics?

Views are my own; not investment advice.`,

	{Type: models.ContentTypeLong, Topic: models.TopicInterestRates}: `# Interest Rates and CRE: Market Analysis

**Executive Summary**
- The cost of capital remains the single largest driver of CRE pricing
- Transaction volume is recovering only where debt maturities force price discovery
- Selective deployment is replacing broad-based acquisition strategies

## Current Market Environment

{market_data}

The rate environment has reset the math on nearly every deal. Cap rates have expanded, but not enough in many cases to restore positive leverage, and the bid-ask spread between buyers and sellers remains wide.

## Regional Analysis

Markets with stronger rent growth prospects are better able to absorb higher financing costs. Supply-heavy regions face a double squeeze of softer rents and higher debt service.

## Investment Implications

Investors should underwrite to today's rates rather than hoped-for cuts, stress test refinancing assumptions and favor assets where operational upside does not depend on cap rate compression.

## Forward-Looking Perspective

Even modest easing would unlock pent-up transaction volume, but the era of near-zero rates is not returning. Strategies built for a higher-for-longer environment will be the ones that endure.

What are your thoughts on these market dynamics?

Views are my own; not investment advice.`,

	{Type: models.ContentTypeLong, Topic: models.TopicGatewayMarkets}: `# The Gateway Market Renaissance: Market Analysis

**Executive Summary**
- Gateway metros retain the deepest demand drivers and highest barriers to supply
- Institutional capital is rotating back toward proven liquidity
- Entry pricing requires long-term conviction rather than near-term yield

## Current Market Environment

{market_data}

After several years in which capital chased growth in secondary and Sun Belt markets, Boston, New York and Miami are back on institutional shortlists, supported by low vacancy and limited new construction.

## Regional Analysis

Boston benefits from life sciences and higher education employment, New York from its unmatched renter base, and Miami from sustained in-migration and international capital.

## Investment Implications

Core and core-plus strategies fit these markets best. Value-add opportunities exist in older vintage stock, but regulatory risk must be underwritten carefully.

## Forward-Looking Perspective

Gateway markets should outperform on a risk-adjusted basis as supply-heavy regions work through their pipelines.

What are your thoughts on these market dynamics?

Views are my own; not investment advice.`,

	{Type: models.ContentTypeLong, Topic: models.TopicCapitalFlows}: `# Capital Flows and Liquidity Trends: Market Analysis

**Executive Summary**
- Capital remains available but is concentrating on fewer, higher-conviction deals
- Liquidity favors clean capital stacks and clear business plans
- Rescue and preferred equity are filling gaps left by tighter senior debt

## Current Market Environment

{market_data}

Transaction volume remains below its peak, but the composition of buyers has shifted toward well-capitalized institutions and private capital targeting dislocation.

## Regional Analysis

Markets with proven fundamentals are attracting the majority of institutional allocations, while secondary markets with heavy supply see thinner bidder pools.

## Investment Implications

Certainty of execution is a competitive advantage. Sponsors with committed capital can negotiate favorable terms in a market where many buyers cannot close.

## Forward-Looking Perspective

As price discovery continues, expect transaction volume to recover first in multifamily and industrial, with capital flowing toward assets that can demonstrate durable cash flow.

What are your thoughts on these market dynamics?

Views are my own; not investment advice.`,

	{Type: models.ContentTypeLong, Topic: models.TopicConstructionCosts}: `# Construction Cost Impacts: Market Analysis

**Executive Summary**
- Materials, labor and insurance costs have reset permanently higher
- New multifamily starts have fallen sharply as projects stop penciling
- Today's cost environment is setting up tomorrow's supply shortage

## Current Market Environment

{market_data}

Development feasibility depends on the spread between yield-on-cost and market cap rates. Higher hard costs and higher financing costs have compressed that spread to the point where many planned projects are on hold.

## Regional Analysis

Markets with lower land and labor costs retain some development activity, while high-cost coastal metros have seen starts fall the most.

## Investment Implications

Existing assets benefit as replacement cost rises. Acquisitions below replacement cost offer a margin of safety that new development cannot match today.

## Forward-Looking Perspective

The decline in starts will show up as a supply gap in two to three years, supporting rent growth and occupancy for well-located existing product.

What are your thoughts on these market dynamics?

Views are my own; not investment advice.`,
}
