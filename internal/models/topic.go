// Package models defines the core data structures for the CRE content engine.
package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownTopic is returned when a topic slug is not in the catalog.
var ErrUnknownTopic = errors.New("unknown topic")

// Topic is a subject tag selecting which template or prompt variant to use.
type Topic string

const (
	TopicMultifamily          Topic = "multifamily"
	TopicMidwestMultifamily   Topic = "midwest-multifamily"
	TopicGatewayMarkets       Topic = "gateway-markets"
	TopicSunBeltSupply        Topic = "sun-belt-supply"
	TopicInterestRates        Topic = "interest-rates"
	TopicCapitalFlows         Topic = "capital-flows"
	TopicDevelopmentPipeline  Topic = "development-pipeline"
	TopicRegionalSpotlights   Topic = "regional-spotlights"
	TopicInvestmentStrategy   Topic = "investment-strategy"
	TopicBrokerageDynamics    Topic = "brokerage-dynamics"
	TopicDebtMarkets          Topic = "debt-markets"
	TopicInstitutionalCapital Topic = "institutional-capital"
	TopicSupplyDemand         Topic = "supply-demand"
	TopicRentGrowth           Topic = "rent-growth"
	TopicConstructionCosts    Topic = "construction-cost-impacts"
	TopicCRETechnology        Topic = "cre-technology"
)

// TopicInfo describes a catalog topic.
type TopicInfo struct {
	Slug     Topic    `json:"slug"`
	Name     string   `json:"name"`
	Themes   string   `json:"themes"`
	Keywords []string `json:"keywords"`
}

// TopicCatalog is the fixed set of topics the persona writes about.
var TopicCatalog = []TopicInfo{
	{
		Slug:     TopicMultifamily,
		Name:     "Multifamily market fundamentals",
		Themes:   "Occupancy, rent levels, absorption and investor demand for apartment assets",
		Keywords: []string{"multifamily", "apartment", "rental", "renter"},
	},
	{
		Slug:     TopicMidwestMultifamily,
		Name:     "Midwest multifamily market surge",
		Themes:   "Construction discipline, stable occupancy and yield spreads in Chicago, Minneapolis and secondary Midwest metros",
		Keywords: []string{"midwest", "chicago", "minneapolis", "columbus", "indianapolis"},
	},
	{
		Slug:     TopicGatewayMarkets,
		Name:     "Gateway market renaissance",
		Themes:   "Institutional capital returning to Boston, New York and Miami on proven demand",
		Keywords: []string{"gateway", "boston", "new york", "manhattan", "miami"},
	},
	{
		Slug:     TopicSunBeltSupply,
		Name:     "Sun Belt oversupply challenges",
		Themes:   "Delivery waves, concessions and lease-up risk in Phoenix, Austin and Dallas",
		Keywords: []string{"sun belt", "phoenix", "austin", "dallas", "atlanta", "oversupply"},
	},
	{
		Slug:     TopicInterestRates,
		Name:     "Interest rate impact on CRE",
		Themes:   "Cost of capital, cap rate expansion and refinancing pressure",
		Keywords: []string{"interest rate", "fed", "federal reserve", "treasury", "cap rate"},
	},
	{
		Slug:     TopicCapitalFlows,
		Name:     "Capital flows and liquidity trends",
		Themes:   "Transaction volume, bid-ask spreads and where institutional money is moving",
		Keywords: []string{"capital", "liquidity", "transaction volume", "fundraising"},
	},
	{
		Slug:     TopicDevelopmentPipeline,
		Name:     "Development pipeline analysis",
		Themes:   "Starts, permits, deliveries and the supply cliff ahead",
		Keywords: []string{"development", "pipeline", "housing starts", "permits", "deliveries"},
	},
	{
		Slug:     TopicRegionalSpotlights,
		Name:     "Regional market spotlights",
		Themes:   "City-level vacancy, rent and employment trends",
		Keywords: []string{"metro", "regional", "vacancy", "employment"},
	},
	{
		Slug:     TopicInvestmentStrategy,
		Name:     "Investment strategy shifts",
		Themes:   "Value-add versus core, underwriting discipline and hold periods",
		Keywords: []string{"investment", "strategy", "underwriting", "value-add"},
	},
	{
		Slug:     TopicBrokerageDynamics,
		Name:     "Brokerage market dynamics",
		Themes:   "Listing activity, pricing discovery and deal velocity",
		Keywords: []string{"brokerage", "listing", "broker", "deal"},
	},
	{
		Slug:     TopicDebtMarkets,
		Name:     "Debt markets evolution",
		Themes:   "Agency lending, bridge debt, CMBS and maturity walls",
		Keywords: []string{"debt", "lending", "cmbs", "loan", "refinancing"},
	},
	{
		Slug:     TopicInstitutionalCapital,
		Name:     "Institutional capital allocation",
		Themes:   "Pension, REIT and private equity allocation to real estate",
		Keywords: []string{"institutional", "pension", "reit", "private equity"},
	},
	{
		Slug:     TopicSupplyDemand,
		Name:     "Supply-demand imbalances",
		Themes:   "Household formation versus new supply across regions",
		Keywords: []string{"supply", "demand", "household formation", "absorption"},
	},
	{
		Slug:     TopicRentGrowth,
		Name:     "Rent growth trajectories",
		Themes:   "Effective rent growth, concessions and renewal spreads",
		Keywords: []string{"rent growth", "rents", "concessions", "renewal"},
	},
	{
		Slug:     TopicConstructionCosts,
		Name:     "Construction cost impacts",
		Themes:   "Materials, labor and insurance costs reshaping development feasibility",
		Keywords: []string{"construction cost", "materials", "labor", "lumber", "tariff"},
	},
	{
		Slug:     TopicCRETechnology,
		Name:     "Technology in CRE",
		Themes:   "Proptech, data-driven asset management and AI in operations",
		Keywords: []string{"proptech", "technology", "ai", "software"},
	},
}

// GetTopic returns the catalog entry for a slug.
func GetTopic(slug Topic) *TopicInfo {
	for _, t := range TopicCatalog {
		if t.Slug == slug {
			return &t
		}
	}
	return nil
}

// ParseTopic validates a slug against the catalog.
func ParseTopic(s string) (Topic, error) {
	slug := Topic(strings.ToLower(strings.TrimSpace(s)))
	if GetTopic(slug) == nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownTopic, s)
	}
	return slug, nil
}

// AllTopics returns every catalog slug in catalog order.
func AllTopics() []Topic {
	topics := make([]Topic, len(TopicCatalog))
	for i, t := range TopicCatalog {
		topics[i] = t.Slug
	}
	return topics
}

// DisplayName returns the human name for the topic, or the slug itself.
func (t Topic) DisplayName() string {
	if info := GetTopic(t); info != nil {
		return info.Name
	}
	return string(t)
}
