package models

import "time"

// ScoreDimension names one sub-score of the composite investment score.
type ScoreDimension string

const (
	DimensionValuation ScoreDimension = "valuation"
	DimensionMomentum  ScoreDimension = "momentum"
	DimensionSentiment ScoreDimension = "sentiment"
	DimensionInsider   ScoreDimension = "insider"
)

// ScoreContribution traces how one dimension entered the composite.
// Weight is the renormalized weight actually applied, so contributions of
// present dimensions always sum to the composite.
type ScoreContribution struct {
	Dimension ScoreDimension `json:"dimension"`
	SubScore  float64        `json:"sub_score"` // bounded to [0, 100]
	Weight    float64        `json:"weight"`
	Weighted  float64        `json:"weighted"`
}

// InvestmentScore is the composite score for a symbol. Its as-of date equals
// the freshest input it was computed from, never later. Strengths and Risks
// name the dimensions pulling the composite up or down.
type InvestmentScore struct {
	Symbol         string              `json:"symbol"`
	AsOf           time.Time           `json:"as_of"`
	Composite      float64             `json:"composite"`
	Recommendation string              `json:"recommendation"`
	WeightsVersion string              `json:"weights_version"`
	Contributions  []ScoreContribution `json:"contributions"`
	Strengths      []string            `json:"strengths,omitempty"`
	Risks          []string            `json:"risks,omitempty"`
}

// Bundle is the aggregated entity set for one symbol. A section a provider
// failed to deliver is recorded in Missing with its failure class; it is
// never zero-filled.
type Bundle struct {
	Symbol              string                  `json:"symbol"`
	Profile             *CompanyProfile         `json:"profile,omitempty"`
	Statements          []FinancialStatement    `json:"statements,omitempty"`
	Metrics             []ValuationMetric       `json:"metrics,omitempty"`
	Indicators          []TechnicalIndicator    `json:"indicators,omitempty"`
	Recommendations     []AnalystRecommendation `json:"recommendations,omitempty"`
	InsiderTransactions []InsiderTransaction    `json:"insider_transactions,omitempty"`
	News                []NewsArticle           `json:"news,omitempty"`
	Score               *InvestmentScore        `json:"score,omitempty"`
	Missing             map[Category]string     `json:"missing,omitempty"` // category -> failure class
	AsOf                time.Time               `json:"as_of"`
}

// Partial reports whether at least one section failed to aggregate.
func (b *Bundle) Partial() bool { return len(b.Missing) > 0 }
