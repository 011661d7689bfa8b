package finnhub

import "EquityLens/internal/domain/models"

// RecommendationTrend is one month of Finnhub analyst rating counts.
type RecommendationTrend struct {
	Symbol     string `json:"symbol"`
	Period     string `json:"period"` // YYYY-MM-DD
	StrongBuy  int    `json:"strongBuy"`
	Buy        int    `json:"buy"`
	Hold       int    `json:"hold"`
	Sell       int    `json:"sell"`
	StrongSell int    `json:"strongSell"`
}

// RecommendationTrends wraps the recommendation endpoint's array response.
type RecommendationTrends struct {
	Symbol string
	Trends []RecommendationTrend
}

func (*RecommendationTrends) Source() string            { return "finnhub" }
func (*RecommendationTrends) Category() models.Category { return models.CategoryRecommendations }

// NewsItem is one company news row. Datetime is unix seconds; Sentiment is
// only present on some plans.
type NewsItem struct {
	Headline  string   `json:"headline"`
	Source    string   `json:"source"`
	URL       string   `json:"url"`
	Datetime  int64    `json:"datetime"`
	Sentiment *float64 `json:"sentiment"`
}

// CompanyNews wraps the company-news endpoint's array response.
type CompanyNews struct {
	Symbol string
	Items  []NewsItem
}

func (*CompanyNews) Source() string            { return "finnhub" }
func (*CompanyNews) Category() models.Category { return models.CategoryNews }
