package models

import "time"

// Category identifies a class of provider data fetched during aggregation.
type Category string

const (
	CategoryProfile         Category = "profile"
	CategoryPrices          Category = "prices"
	CategoryFinancials      Category = "financials"
	CategoryInsiders        Category = "insiders"
	CategoryRecommendations Category = "recommendations"
	CategoryNews            Category = "news"
	CategoryEconomic        Category = "economic"
)

// SymbolCategories lists the per-symbol categories fetched by one pipeline run.
// Economic series refresh independently of symbol dashboards.
func SymbolCategories() []Category {
	return []Category{
		CategoryProfile,
		CategoryPrices,
		CategoryFinancials,
		CategoryInsiders,
		CategoryRecommendations,
		CategoryNews,
	}
}

// RawPayload is an untyped provider response. Each provider package defines
// its own concrete payload variants; the normalizer maps them into the
// unified entity set so downstream logic never branches on provider identity.
type RawPayload interface {
	Source() string
	Category() Category
}

// CompanyProfile describes a listed company. Keyed by symbol and refreshed
// wholesale; optional fields are pointers and stay absent when a provider
// does not report them.
type CompanyProfile struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Sector        *string `json:"sector,omitempty"`
	Industry      *string `json:"industry,omitempty"`
	Exchange      *string `json:"exchange,omitempty"`
	Description   *string `json:"description,omitempty"`
	Country       *string `json:"country,omitempty"`
	Website       *string `json:"website,omitempty"`
	EmployeeCount *int64  `json:"employee_count,omitempty"`
	MarketCap     *int64  `json:"market_cap,omitempty"`
}

// Merge fills absent optional fields from other. Existing values win, so a
// primary source keeps precedence over a fallback provider.
func (p *CompanyProfile) Merge(other *CompanyProfile) {
	if other == nil {
		return
	}
	if p.Name == "" {
		p.Name = other.Name
	}
	if p.Sector == nil {
		p.Sector = other.Sector
	}
	if p.Industry == nil {
		p.Industry = other.Industry
	}
	if p.Exchange == nil {
		p.Exchange = other.Exchange
	}
	if p.Description == nil {
		p.Description = other.Description
	}
	if p.Country == nil {
		p.Country = other.Country
	}
	if p.Website == nil {
		p.Website = other.Website
	}
	if p.EmployeeCount == nil {
		p.EmployeeCount = other.EmployeeCount
	}
	if p.MarketCap == nil {
		p.MarketCap = other.MarketCap
	}
}

// StatementKind distinguishes financial statement types.
type StatementKind string

const (
	StatementIncome    StatementKind = "income"
	StatementBalance   StatementKind = "balance"
	StatementCashFlow  StatementKind = "cash_flow"
	StatementUnlabeled StatementKind = "filing"
)

// FinancialStatement holds one reported statement, keyed by
// (symbol, period, kind). LineItems maps reported line-item names to values.
type FinancialStatement struct {
	Symbol    string             `json:"symbol"`
	Period    string             `json:"period"` // e.g. "2025-Q2", "2024-FY"
	Kind      StatementKind      `json:"kind"`
	FiledAt   time.Time          `json:"filed_at"`
	LineItems map[string]float64 `json:"line_items"`
	SourceURL *string            `json:"source_url,omitempty"`
}

// ValuationMetric carries named ratios for a symbol as of a date.
type ValuationMetric struct {
	Symbol string             `json:"symbol"`
	AsOf   time.Time          `json:"as_of"`
	Ratios map[string]float64 `json:"ratios"`
}

// Ratio names used across the normalizer and score engine.
const (
	RatioProfitMargin = "profit_margin"
	RatioROE          = "roe"
	RatioROA          = "roa"
	RatioDebtToEquity = "debt_to_equity"
	RatioPE           = "pe_ratio"
	RatioPB           = "pb_ratio"
)

// PriceBar is one OHLCV point of a daily price series, ascending by date.
// Bars only feed indicator computation; they are not warehoused.
type PriceBar struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// TechnicalIndicator is always derived from a stored price series, never
// fetched. Window is zero for windowless indicators such as MACD.
type TechnicalIndicator struct {
	Symbol string    `json:"symbol"`
	AsOf   time.Time `json:"as_of"`
	Name   string    `json:"name"`
	Window int       `json:"window,omitempty"`
	Value  float64   `json:"value"`
}

// AnalystRecommendation records one analyst rating for a symbol.
type AnalystRecommendation struct {
	Symbol      string    `json:"symbol"`
	Source      string    `json:"source"`
	Rating      string    `json:"rating"` // strong_buy, buy, hold, sell, strong_sell
	PriceTarget *float64  `json:"price_target,omitempty"`
	Date        time.Time `json:"date"`
}

// InsiderTransaction records one insider filing entry.
type InsiderTransaction struct {
	Symbol        string    `json:"symbol"`
	Filer         string    `json:"filer"`
	Kind          string    `json:"kind"` // buy, sell, or the raw filing code
	Shares        *float64  `json:"shares,omitempty"`
	PricePerShare *float64  `json:"price_per_share,omitempty"`
	Date          time.Time `json:"date"`
}

// EconomicIndicator is one macro observation; symbol-independent and global.
type EconomicIndicator struct {
	SeriesID string    `json:"series_id"`
	Kind     string    `json:"kind,omitempty"`
	Date     time.Time `json:"date"`
	Value    float64   `json:"value"`
}

// seriesKinds labels the well-known macro series; unknown ids stay unlabeled.
var seriesKinds = map[string]string{
	"DFF":      "interest_rate",
	"UNRATE":   "unemployment",
	"CPIAUCSL": "inflation",
	"GDP":      "gdp",
	"T10Y2Y":   "yield_curve",
}

// SeriesKind returns the label for a macro series id, or "" when unknown.
func SeriesKind(id string) string { return seriesKinds[id] }

// NewsArticle is one headline, optionally tied to a symbol, optionally with
// a provider-supplied sentiment in [-1, 1].
type NewsArticle struct {
	Symbol    *string   `json:"symbol,omitempty"`
	Headline  string    `json:"headline"`
	Source    string    `json:"source"`
	URL       *string   `json:"url,omitempty"`
	Date      time.Time `json:"date"`
	Sentiment *float64  `json:"sentiment,omitempty"`
}

// SearchResult is the lightweight company lookup row returned by Search.
type SearchResult struct {
	Symbol   string  `json:"symbol"`
	Name     string  `json:"name"`
	Exchange *string `json:"exchange,omitempty"`
	Locale   *string `json:"locale,omitempty"`
}

// ValidationFailure reports a single dropped record during normalization.
// The rest of the batch still normalizes.
type ValidationFailure struct {
	Source   string   `json:"source"`
	Category Category `json:"category"`
	Field    string   `json:"field"`
	Reason   string   `json:"reason"`
}
