package polygon

import "EquityLens/internal/domain/models"

// Raw payload variants as Polygon returns them. The normalizer owns the
// mapping into the unified entity set.

// TickerDetails is the v3 reference ticker response.
type TickerDetails struct {
	Results struct {
		Ticker          string   `json:"ticker"`
		Name            string   `json:"name"`
		Market          string   `json:"market"`
		Locale          string   `json:"locale"`
		PrimaryExchange string   `json:"primary_exchange"`
		Description     string   `json:"description"`
		SICDescription  string   `json:"sic_description"`
		HomepageURL     string   `json:"homepage_url"`
		TotalEmployees  *int64   `json:"total_employees"`
		MarketCap       *float64 `json:"market_cap"`
	} `json:"results"`
	Status string `json:"status"`
}

func (*TickerDetails) Source() string            { return "polygon" }
func (*TickerDetails) Category() models.Category { return models.CategoryProfile }

// Aggs is the v2 daily aggregates response. Timestamps are unix millis.
type Aggs struct {
	Ticker  string `json:"ticker"`
	Results []struct {
		T int64   `json:"t"`
		O float64 `json:"o"`
		H float64 `json:"h"`
		L float64 `json:"l"`
		C float64 `json:"c"`
		V float64 `json:"v"`
	} `json:"results"`
	ResultsCount int    `json:"resultsCount"`
	Status       string `json:"status"`
}

func (*Aggs) Source() string            { return "polygon" }
func (*Aggs) Category() models.Category { return models.CategoryPrices }

// InsiderTransactions is the experimental insider transactions response.
type InsiderTransactions struct {
	Results []struct {
		InsiderName     string   `json:"insider_name"`
		Position        string   `json:"insider_position"`
		TransactionType string   `json:"transaction_type"`
		TransactionDate string   `json:"transaction_date"`
		Shares          *float64 `json:"shares"`
		SharePrice      *float64 `json:"share_price"`
	} `json:"results"`
	Status string `json:"status"`
}

func (*InsiderTransactions) Source() string            { return "polygon" }
func (*InsiderTransactions) Category() models.Category { return models.CategoryInsiders }

// TickerSearch is the v3 reference tickers listing used by Search.
type TickerSearch struct {
	Results []struct {
		Ticker          string `json:"ticker"`
		Name            string `json:"name"`
		PrimaryExchange string `json:"primary_exchange"`
		Locale          string `json:"locale"`
	} `json:"results"`
	Count  int    `json:"count"`
	Status string `json:"status"`
}

func (*TickerSearch) Source() string            { return "polygon" }
func (*TickerSearch) Category() models.Category { return models.CategoryProfile }
