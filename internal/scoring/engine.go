// Package scoring computes the composite investment score from a symbol's
// aggregated bundle. Dimensions with no underlying data are omitted and the
// remaining weights renormalize, so a thin bundle still scores honestly
// instead of being dragged toward a fake neutral.
package scoring

import (
	"math"
	"sort"
	"time"

	"EquityLens/internal/domain/models"
	"EquityLens/internal/indicators"
)

// Recommendation labels derived from the composite.
const (
	RecommendStrongBuy  = "strong_buy"
	RecommendBuy        = "buy"
	RecommendHold       = "hold"
	RecommendSell       = "sell"
	RecommendStrongSell = "strong_sell"
)

// DefaultWeights is the v1 weighting scheme.
var DefaultWeights = map[models.ScoreDimension]float64{
	models.DimensionValuation: 0.40,
	models.DimensionMomentum:  0.25,
	models.DimensionSentiment: 0.20,
	models.DimensionInsider:   0.15,
}

// Engine scores bundles under one versioned weighting scheme. Weights are
// fixed at construction; a new scheme means a new engine.
type Engine struct {
	weights map[models.ScoreDimension]float64
	version string
}

// NewEngine validates and normalizes the weighting scheme. A nil or empty
// weights map falls back to DefaultWeights.
func NewEngine(version string, weights map[models.ScoreDimension]float64) *Engine {
	if len(weights) == 0 {
		weights = DefaultWeights
	}
	normalized := make(map[models.ScoreDimension]float64, len(weights))
	var total float64
	for _, w := range weights {
		total += w
	}
	for dim, w := range weights {
		if w > 0 && total > 0 {
			normalized[dim] = w / total
		}
	}
	return &Engine{weights: normalized, version: version}
}

// Version returns the weighting scheme version stamped on every score.
func (e *Engine) Version() string { return e.version }

// Score computes the composite for a bundle. It returns ok=false when no
// dimension has data, which also means the bundle carries no score at all.
// The as-of date is the freshest input actually used, never the clock.
func (e *Engine) Score(b *models.Bundle) (*models.InvestmentScore, bool) {
	type dimResult struct {
		dim   models.ScoreDimension
		score float64
		asOf  time.Time
	}
	var present []dimResult

	if v, asOf, ok := valuationScore(b.Metrics); ok {
		present = append(present, dimResult{models.DimensionValuation, v, asOf})
	}
	if v, asOf, ok := momentumScore(b.Indicators); ok {
		present = append(present, dimResult{models.DimensionMomentum, v, asOf})
	}
	if v, asOf, ok := sentimentScore(b.News, b.Recommendations); ok {
		present = append(present, dimResult{models.DimensionSentiment, v, asOf})
	}
	if v, asOf, ok := insiderScore(b.InsiderTransactions); ok {
		present = append(present, dimResult{models.DimensionInsider, v, asOf})
	}
	if len(present) == 0 {
		return nil, false
	}

	// A dimension weighted out of the scheme contributes nothing even when
	// its data is present.
	weighted := present[:0]
	var weightSum float64
	for _, d := range present {
		if w := e.weights[d.dim]; w > 0 {
			weighted = append(weighted, d)
			weightSum += w
		}
	}
	present = weighted
	if weightSum == 0 {
		return nil, false
	}

	score := &models.InvestmentScore{
		Symbol:         b.Symbol,
		WeightsVersion: e.version,
	}
	for _, d := range present {
		w := e.weights[d.dim] / weightSum
		score.Contributions = append(score.Contributions, models.ScoreContribution{
			Dimension: d.dim,
			SubScore:  d.score,
			Weight:    w,
			Weighted:  w * d.score,
		})
		score.Composite += w * d.score
		if d.asOf.After(score.AsOf) {
			score.AsOf = d.asOf
		}
	}
	score.Composite = clamp(score.Composite)
	score.Recommendation = Recommendation(score.Composite)
	SortContributions(score.Contributions)
	score.Strengths, score.Risks = callouts(score.Contributions)
	return score, true
}

// callouts names the dimensions pulling the composite up or down. A sub
// score of 70 or better reads as a strength, 30 or worse as a risk.
func callouts(cs []models.ScoreContribution) (strengths, risks []string) {
	for _, c := range cs {
		switch {
		case c.SubScore >= 70:
			strengths = append(strengths, string(c.Dimension))
		case c.SubScore <= 30:
			risks = append(risks, string(c.Dimension))
		}
	}
	return strengths, risks
}

// Recommendation maps a composite score to its label.
func Recommendation(composite float64) string {
	switch {
	case composite >= 80:
		return RecommendStrongBuy
	case composite >= 60:
		return RecommendBuy
	case composite <= 20:
		return RecommendStrongSell
	case composite <= 40:
		return RecommendSell
	default:
		return RecommendHold
	}
}

// valuationScore grades the freshest ratio set. Each ratio shifts a neutral
// 50 and missing ratios simply do not contribute.
func valuationScore(metrics []models.ValuationMetric) (float64, time.Time, bool) {
	if len(metrics) == 0 {
		return 0, time.Time{}, false
	}
	latest := metrics[0]
	for _, m := range metrics[1:] {
		if m.AsOf.After(latest.AsOf) {
			latest = m
		}
	}
	if len(latest.Ratios) == 0 {
		return 0, time.Time{}, false
	}

	score := 50.0
	if margin, ok := latest.Ratios[models.RatioProfitMargin]; ok {
		switch {
		case margin >= 0.20:
			score += 15
		case margin >= 0.10:
			score += 10
		case margin > 0:
			score += 5
		default:
			score -= 15
		}
	}
	if roe, ok := latest.Ratios[models.RatioROE]; ok {
		switch {
		case roe >= 0.15:
			score += 15
		case roe > 0:
			score += 5
		default:
			score -= 10
		}
	}
	if roa, ok := latest.Ratios[models.RatioROA]; ok {
		switch {
		case roa >= 0.05:
			score += 10
		case roa < 0:
			score -= 5
		}
	}
	if de, ok := latest.Ratios[models.RatioDebtToEquity]; ok {
		switch {
		case de < 0.5:
			score += 10
		case de < 1.0:
			score += 5
		case de > 2.0:
			score -= 10
		}
	}
	return clamp(score), latest.AsOf, true
}

// momentumScore grades trend and oscillator posture from derived
// indicators; it never reaches back to raw prices.
func momentumScore(inds []models.TechnicalIndicator) (float64, time.Time, bool) {
	if len(inds) == 0 {
		return 0, time.Time{}, false
	}
	sma := map[int]float64{}
	var (
		rsi, hist   float64
		hasRSI      bool
		hasHist     bool
		asOf        time.Time
		anyRelevant bool
	)
	for _, ind := range inds {
		if ind.AsOf.After(asOf) {
			asOf = ind.AsOf
		}
		switch ind.Name {
		case indicators.NameSMA:
			sma[ind.Window] = ind.Value
			anyRelevant = true
		case indicators.NameRSI:
			rsi, hasRSI = ind.Value, true
			anyRelevant = true
		case indicators.NameMACDHistogram:
			hist, hasHist = ind.Value, true
			anyRelevant = true
		}
	}
	if !anyRelevant {
		return 0, time.Time{}, false
	}

	score := 50.0
	if s20, ok20 := sma[20]; ok20 {
		if s50, ok50 := sma[50]; ok50 {
			if s20 > s50 {
				score += 10
			} else {
				score -= 10
			}
		}
		if s200, ok200 := sma[200]; ok200 {
			if s20 > s200 {
				score += 10
			} else {
				score -= 10
			}
		}
	}
	if hasHist {
		if hist > 0 {
			score += 10
		} else {
			score -= 10
		}
	}
	if hasRSI {
		switch {
		case rsi < 30:
			score += 10
		case rsi > 70:
			score -= 10
		default:
			score += 5
		}
	}
	return clamp(score), asOf, true
}

// sentimentScore blends provider supplied news sentiment with the latest
// analyst consensus. Headlines without sentiment count toward coverage but
// not toward the average.
func sentimentScore(news []models.NewsArticle, recs []models.AnalystRecommendation) (float64, time.Time, bool) {
	if len(news) == 0 && len(recs) == 0 {
		return 0, time.Time{}, false
	}

	score := 50.0
	var asOf time.Time

	var sum float64
	var n int
	for _, article := range news {
		if article.Date.After(asOf) {
			asOf = article.Date
		}
		if article.Sentiment != nil {
			sum += *article.Sentiment
			n++
		}
	}
	if n > 0 {
		// Average sentiment in [-1, 1] swings up to 30 points.
		score += (sum / float64(n)) * 30
	}

	if len(recs) > 0 {
		latest := recs[0]
		for _, r := range recs[1:] {
			if r.Date.After(latest.Date) {
				latest = r
			}
		}
		if latest.Date.After(asOf) {
			asOf = latest.Date
		}
		switch latest.Rating {
		case RecommendStrongBuy:
			score += 20
		case RecommendBuy:
			score += 10
		case RecommendSell:
			score -= 10
		case RecommendStrongSell:
			score -= 20
		}
	}
	return clamp(score), asOf, true
}

// insiderScore grades the buy share of directional insider activity.
// Directionless filing stubs carry no signal, so a symbol with only those
// omits the dimension entirely.
func insiderScore(txs []models.InsiderTransaction) (float64, time.Time, bool) {
	var buys, sells int
	var asOf time.Time
	for _, tx := range txs {
		switch tx.Kind {
		case "buy":
			buys++
		case "sell":
			sells++
		default:
			continue
		}
		if tx.Date.After(asOf) {
			asOf = tx.Date
		}
	}
	total := buys + sells
	if total == 0 {
		return 0, time.Time{}, false
	}
	return clamp(float64(buys) / float64(total) * 100), asOf, true
}

func clamp(v float64) float64 {
	return math.Min(100, math.Max(0, v))
}

// SortContributions orders contributions by descending weight for stable
// presentation.
func SortContributions(cs []models.ScoreContribution) {
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].Weight > cs[j].Weight })
}
