package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EquityLens/internal/domain/models"
	"EquityLens/internal/indicators"
)

var day = time.Date(2025, 8, 27, 0, 0, 0, 0, time.UTC)

func strongBundle() *models.Bundle {
	s := 0.5
	return &models.Bundle{
		Symbol: "AAPL",
		Metrics: []models.ValuationMetric{{
			Symbol: "AAPL", AsOf: day,
			Ratios: map[string]float64{
				models.RatioProfitMargin: 0.25,
				models.RatioROE:          0.30,
				models.RatioROA:          0.10,
				models.RatioDebtToEquity: 0.40,
			},
		}},
		Indicators: []models.TechnicalIndicator{
			{Symbol: "AAPL", AsOf: day, Name: indicators.NameSMA, Window: 20, Value: 230},
			{Symbol: "AAPL", AsOf: day, Name: indicators.NameSMA, Window: 50, Value: 220},
			{Symbol: "AAPL", AsOf: day, Name: indicators.NameSMA, Window: 200, Value: 200},
			{Symbol: "AAPL", AsOf: day, Name: indicators.NameMACDHistogram, Value: 1.2},
			{Symbol: "AAPL", AsOf: day, Name: indicators.NameRSI, Window: 14, Value: 55},
		},
		News: []models.NewsArticle{
			{Headline: "record quarter", Source: "wire", Date: day, Sentiment: &s},
		},
		Recommendations: []models.AnalystRecommendation{
			{Symbol: "AAPL", Source: "finnhub", Rating: "strong_buy", Date: day},
		},
		InsiderTransactions: []models.InsiderTransaction{
			{Symbol: "AAPL", Filer: "a", Kind: "buy", Date: day},
			{Symbol: "AAPL", Filer: "b", Kind: "buy", Date: day},
			{Symbol: "AAPL", Filer: "c", Kind: "sell", Date: day},
		},
	}
}

func TestScoreAllDimensionsPresent(t *testing.T) {
	e := NewEngine("v1", nil)
	score, ok := e.Score(strongBundle())
	require.True(t, ok)

	require.Len(t, score.Contributions, 4)
	var weightSum, weightedSum float64
	for _, c := range score.Contributions {
		weightSum += c.Weight
		weightedSum += c.Weighted
		assert.GreaterOrEqual(t, c.SubScore, 0.0)
		assert.LessOrEqual(t, c.SubScore, 100.0)
	}
	assert.InDelta(t, 1.0, weightSum, 1e-9)
	assert.InDelta(t, score.Composite, weightedSum, 1e-9)
	assert.Equal(t, "v1", score.WeightsVersion)
	assert.Equal(t, day, score.AsOf)
	assert.Equal(t, RecommendStrongBuy, score.Recommendation)
}

func TestScoreRenormalizesAbsentDimensions(t *testing.T) {
	b := strongBundle()
	b.News = nil
	b.Recommendations = nil
	b.InsiderTransactions = nil

	e := NewEngine("v1", nil)
	score, ok := e.Score(b)
	require.True(t, ok)
	require.Len(t, score.Contributions, 2)

	var weightSum float64
	for _, c := range score.Contributions {
		weightSum += c.Weight
	}
	assert.InDelta(t, 1.0, weightSum, 1e-9, "present weights renormalize to 1")
	// valuation 0.40 and momentum 0.25 scale to 8/13 and 5/13.
	assert.InDelta(t, 0.40/0.65, score.Contributions[0].Weight, 1e-9)
}

func TestScoreEmptyBundleOmitted(t *testing.T) {
	e := NewEngine("v1", nil)
	_, ok := e.Score(&models.Bundle{Symbol: "AAPL"})
	assert.False(t, ok, "no data means no score, not a neutral 50")
}

func TestScoreDirectionlessInsidersOmitDimension(t *testing.T) {
	b := &models.Bundle{
		Symbol: "AAPL",
		InsiderTransactions: []models.InsiderTransaction{
			{Filer: "Form 4 filer", Kind: "filing", Date: day},
		},
	}
	e := NewEngine("v1", nil)
	_, ok := e.Score(b)
	assert.False(t, ok)
}

func TestScoreAsOfNeverLaterThanInputs(t *testing.T) {
	older := day.AddDate(0, 0, -30)
	b := strongBundle()
	for i := range b.Indicators {
		b.Indicators[i].AsOf = older
	}
	b.Metrics[0].AsOf = older
	b.News[0].Date = older
	b.Recommendations[0].Date = older
	b.InsiderTransactions = nil

	e := NewEngine("v1", nil)
	score, ok := e.Score(b)
	require.True(t, ok)
	assert.Equal(t, older, score.AsOf)
}

func TestRecommendationThresholds(t *testing.T) {
	cases := []struct {
		composite float64
		want      string
	}{
		{85, RecommendStrongBuy},
		{80, RecommendStrongBuy},
		{79.9, RecommendBuy},
		{60, RecommendBuy},
		{59.9, RecommendHold},
		{41, RecommendHold},
		{40, RecommendSell},
		{20.1, RecommendSell},
		{20, RecommendStrongSell},
		{0, RecommendStrongSell},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Recommendation(tc.composite), "composite %.1f", tc.composite)
	}
}

func TestInsiderScoreBuyShare(t *testing.T) {
	b := &models.Bundle{
		Symbol: "AAPL",
		InsiderTransactions: []models.InsiderTransaction{
			{Filer: "a", Kind: "buy", Date: day},
			{Filer: "b", Kind: "sell", Date: day},
			{Filer: "c", Kind: "sell", Date: day},
			{Filer: "d", Kind: "sell", Date: day},
		},
	}
	e := NewEngine("v1", nil)
	score, ok := e.Score(b)
	require.True(t, ok)
	require.Len(t, score.Contributions, 1)
	assert.InDelta(t, 25, score.Contributions[0].SubScore, 1e-9)
	assert.Equal(t, RecommendSell, score.Recommendation)
}

func TestNewEngineDropsNonPositiveWeights(t *testing.T) {
	e := NewEngine("v2", map[models.ScoreDimension]float64{
		models.DimensionValuation: 1,
		models.DimensionMomentum:  0,
	})
	b := strongBundle()
	score, ok := e.Score(b)
	require.True(t, ok)
	require.Len(t, score.Contributions, 1)
	assert.Equal(t, models.DimensionValuation, score.Contributions[0].Dimension)
}

func TestScoreCallouts(t *testing.T) {
	strengths, risks := callouts([]models.ScoreContribution{
		{Dimension: models.DimensionValuation, SubScore: 82},
		{Dimension: models.DimensionMomentum, SubScore: 55},
		{Dimension: models.DimensionInsider, SubScore: 12},
	})
	assert.Equal(t, []string{"valuation"}, strengths)
	assert.Equal(t, []string{"insider"}, risks)
}
