package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EquityLens/internal/domain/models"
	"EquityLens/internal/service/edgar"
	"EquityLens/internal/service/finnhub"
	"EquityLens/internal/service/fred"
	"EquityLens/internal/service/polygon"
)

func TestPayloadUnknownVariant(t *testing.T) {
	_, err := Payload(nil)
	require.Error(t, err)
}

func TestPolygonProfileRequiresName(t *testing.T) {
	p := &polygon.TickerDetails{}
	p.Results.Ticker = "AAPL"

	res, err := Payload(p)
	require.NoError(t, err)
	assert.Nil(t, res.Profile)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "polygon", res.Failures[0].Source)
	assert.Equal(t, "name", res.Failures[0].Field)
}

func TestPolygonProfileOptionalFields(t *testing.T) {
	mc := 2.5e12
	p := &polygon.TickerDetails{}
	p.Results.Ticker = "aapl"
	p.Results.Name = "Apple Inc."
	p.Results.Locale = "us"
	p.Results.MarketCap = &mc

	res, err := Payload(p)
	require.NoError(t, err)
	require.NotNil(t, res.Profile)
	assert.Equal(t, "AAPL", res.Profile.Symbol)
	assert.Equal(t, "US", *res.Profile.Country)
	assert.Equal(t, int64(2.5e12), *res.Profile.MarketCap)
	assert.Nil(t, res.Profile.Sector, "absent fields stay nil")
	assert.Nil(t, res.Profile.Website)
}

func TestPolygonBarsDropMissingTimestamp(t *testing.T) {
	p := &polygon.Aggs{Ticker: "MSFT"}
	p.Results = append(p.Results, struct {
		T int64   `json:"t"`
		O float64 `json:"o"`
		H float64 `json:"h"`
		L float64 `json:"l"`
		C float64 `json:"c"`
		V float64 `json:"v"`
	}{T: 1719792000000, C: 450.1}, struct {
		T int64   `json:"t"`
		O float64 `json:"o"`
		H float64 `json:"h"`
		L float64 `json:"l"`
		C float64 `json:"c"`
		V float64 `json:"v"`
	}{T: 0, C: 449.0})

	res, err := Payload(p)
	require.NoError(t, err)
	require.Len(t, res.Bars, 1)
	assert.Equal(t, "MSFT", res.Bars[0].Symbol)
	assert.Equal(t, 450.1, res.Bars[0].Close)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, models.CategoryPrices, res.Failures[0].Category)
}

func TestEdgarFinancialsDeriveRatios(t *testing.T) {
	facts := &edgar.CompanyFacts{
		Symbol:     "AAPL",
		Kind:       models.CategoryFinancials,
		EntityName: "Apple Inc.",
		Facts: map[string]map[string]edgar.Fact{
			"us-gaap": {
				"Revenues": {Units: map[string][]edgar.FactUnit{
					"USD": {{End: "2024-09-28", Val: 391000, FY: 2024, FP: "FY", Filed: "2024-11-01"}},
				}},
				"NetIncomeLoss": {Units: map[string][]edgar.FactUnit{
					"USD": {{End: "2024-09-28", Val: 93700, FY: 2024, FP: "FY", Filed: "2024-11-01"}},
				}},
				"Assets": {Units: map[string][]edgar.FactUnit{
					"USD": {{End: "2024-09-28", Val: 364980, FY: 2024, FP: "FY", Filed: "2024-11-01"}},
				}},
				"Liabilities": {Units: map[string][]edgar.FactUnit{
					"USD": {{End: "2024-09-28", Val: 308030, FY: 2024, FP: "FY", Filed: "2024-11-01"}},
				}},
				"StockholdersEquity": {Units: map[string][]edgar.FactUnit{
					"USD": {{End: "2024-09-28", Val: 56950, FY: 2024, FP: "FY", Filed: "2024-11-01"}},
				}},
			},
		},
	}

	res, err := Payload(facts)
	require.NoError(t, err)
	require.Len(t, res.Statements, 2, "income and balance for the period")
	assert.Equal(t, "2024-FY", res.Statements[0].Period)

	require.Len(t, res.Metrics, 1)
	ratios := res.Metrics[0].Ratios
	assert.InDelta(t, 93700.0/391000.0, ratios[models.RatioProfitMargin], 1e-9)
	assert.InDelta(t, 93700.0/56950.0, ratios[models.RatioROE], 1e-9)
	assert.InDelta(t, 308030.0/56950.0, ratios[models.RatioDebtToEquity], 1e-9)
}

func TestEdgarFinancialsZeroDenominatorOmitsRatio(t *testing.T) {
	facts := &edgar.CompanyFacts{
		Symbol:     "NEWCO",
		Kind:       models.CategoryFinancials,
		EntityName: "NewCo",
		Facts: map[string]map[string]edgar.Fact{
			"us-gaap": {
				"NetIncomeLoss": {Units: map[string][]edgar.FactUnit{
					"USD": {{End: "2024-12-31", Val: -10, FY: 2024, FP: "FY", Filed: "2025-02-01"}},
				}},
				"Assets": {Units: map[string][]edgar.FactUnit{
					"USD": {{End: "2024-12-31", Val: 100, FY: 2024, FP: "FY", Filed: "2025-02-01"}},
				}},
			},
		},
	}

	res, err := Payload(facts)
	require.NoError(t, err)
	require.Len(t, res.Metrics, 1)
	_, hasMargin := res.Metrics[0].Ratios[models.RatioProfitMargin]
	assert.False(t, hasMargin, "missing revenue must not default to zero")
	assert.Contains(t, res.Metrics[0].Ratios, models.RatioROA)
}

func TestEdgarFinancialsIdempotent(t *testing.T) {
	facts := &edgar.CompanyFacts{
		Symbol:     "AAPL",
		Kind:       models.CategoryFinancials,
		EntityName: "Apple Inc.",
		Facts: map[string]map[string]edgar.Fact{
			"us-gaap": {
				"Revenues": {Units: map[string][]edgar.FactUnit{
					"USD": {
						{End: "2024-09-28", Val: 391000, FY: 2024, FP: "FY", Filed: "2024-11-01"},
						{End: "2025-06-28", Val: 94000, FY: 2025, FP: "Q3", Filed: "2025-08-01"},
					},
				}},
			},
		},
	}

	first, err := Payload(facts)
	require.NoError(t, err)
	second, err := Payload(facts)
	require.NoError(t, err)
	assert.Equal(t, first.Statements, second.Statements)
}

func TestEdgarInsidersFormFourOnly(t *testing.T) {
	subs := &edgar.Submissions{Symbol: "AAPL"}
	subs.Filings.Recent.Form = []string{"10-K", "4", "8-K", "4"}
	subs.Filings.Recent.FilingDate = []string{"2025-01-10", "2025-01-09", "2025-01-08", "2025-01-07"}
	subs.Filings.Recent.ReportDate = []string{"2024-09-28", "2025-01-07", "", "2025-01-05"}

	res, err := Payload(subs)
	require.NoError(t, err)
	require.Len(t, res.Insiders, 2)
	assert.Equal(t, "filing", res.Insiders[0].Kind)
	assert.Equal(t, time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC), res.Insiders[0].Date)
	assert.Nil(t, res.Insiders[0].Shares, "unparsed counts stay absent")
}

func TestFinnhubConsensusRating(t *testing.T) {
	p := &finnhub.RecommendationTrends{
		Symbol: "aapl",
		Trends: []finnhub.RecommendationTrend{
			{Period: "2025-08-01", StrongBuy: 12, Buy: 20, Hold: 8, Sell: 1},
			{Period: "2025-07-01"},
		},
	}

	res, err := Payload(p)
	require.NoError(t, err)
	require.Len(t, res.Recommendations, 1)
	assert.Equal(t, "AAPL", res.Recommendations[0].Symbol)
	assert.Equal(t, "buy", res.Recommendations[0].Rating)
	require.Len(t, res.Failures, 1, "empty month is dropped and reported")
	assert.Equal(t, "counts", res.Failures[0].Field)
}

func TestFinnhubNewsRequiresHeadline(t *testing.T) {
	s := 0.42
	p := &finnhub.CompanyNews{
		Symbol: "AAPL",
		Items: []finnhub.NewsItem{
			{Headline: "Apple ships", Source: "wire", Datetime: 1756300000, Sentiment: &s},
			{Headline: "", Source: "wire", Datetime: 1756300001},
		},
	}

	res, err := Payload(p)
	require.NoError(t, err)
	require.Len(t, res.News, 1)
	assert.Equal(t, 0.42, *res.News[0].Sentiment)
	require.Len(t, res.Failures, 1)
}

func TestFredSeriesSkipsMissingMarker(t *testing.T) {
	p := &fred.Observations{SeriesID: "DFF"}
	p.Observations = append(p.Observations,
		struct {
			Date  string `json:"date"`
			Value string `json:"value"`
		}{Date: "2025-08-25", Value: "4.33"},
		struct {
			Date  string `json:"date"`
			Value string `json:"value"`
		}{Date: "2025-08-26", Value: "."},
		struct {
			Date  string `json:"date"`
			Value string `json:"value"`
		}{Date: "2025-08-27", Value: "not-a-number"},
	)

	res, err := Payload(p)
	require.NoError(t, err)
	require.Len(t, res.Economic, 1)
	assert.Equal(t, "DFF", res.Economic[0].SeriesID)
	assert.Equal(t, "interest_rate", res.Economic[0].Kind)
	assert.Equal(t, 4.33, res.Economic[0].Value)
	require.Len(t, res.Failures, 1, "the dot marker is not a failure; garbage is")
}

func TestProfileMergeKeepsPrimaryValues(t *testing.T) {
	sector := "Technology"
	primary := &models.CompanyProfile{Symbol: "AAPL", Name: "Apple Inc.", Sector: &sector}
	exchange := "XNAS"
	otherName := "APPLE INC"
	secondary := &models.CompanyProfile{Symbol: "AAPL", Name: otherName, Exchange: &exchange}

	primary.Merge(secondary)
	assert.Equal(t, "Apple Inc.", primary.Name)
	assert.Equal(t, "Technology", *primary.Sector)
	assert.Equal(t, "XNAS", *primary.Exchange)
}
