// Package normalize maps raw provider payloads into the unified entity set.
// Mapping is pure: the same payload always yields the same entities, so
// re-normalizing an identical fetch is idempotent. Records failing required
// field validation are dropped individually and reported; the rest of the
// batch still normalizes.
package normalize

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"EquityLens/internal/domain/models"
	"EquityLens/internal/service/edgar"
	"EquityLens/internal/service/finnhub"
	"EquityLens/internal/service/fred"
	"EquityLens/internal/service/polygon"
	"EquityLens/pkg/util"
)

// Result collects the entities one payload normalized into, plus any dropped
// records.
type Result struct {
	Profile         *models.CompanyProfile
	Bars            []models.PriceBar
	Statements      []models.FinancialStatement
	Metrics         []models.ValuationMetric
	Recommendations []models.AnalystRecommendation
	Insiders        []models.InsiderTransaction
	News            []models.NewsArticle
	Economic        []models.EconomicIndicator
	Failures        []models.ValidationFailure
}

// Payload dispatches to the explicit per-provider mapping for the payload's
// concrete variant. Downstream logic consumes only Result and never branches
// on provider identity.
func Payload(p models.RawPayload) (*Result, error) {
	switch v := p.(type) {
	case *polygon.TickerDetails:
		return polygonProfile(v), nil
	case *polygon.Aggs:
		return polygonBars(v), nil
	case *polygon.InsiderTransactions:
		return polygonInsiders(v), nil
	case *edgar.CompanyFacts:
		if v.Kind == models.CategoryFinancials {
			return edgarFinancials(v), nil
		}
		return edgarProfile(v), nil
	case *edgar.Submissions:
		return edgarInsiders(v), nil
	case *finnhub.RecommendationTrends:
		return finnhubRecommendations(v), nil
	case *finnhub.CompanyNews:
		return finnhubNews(v), nil
	case *fred.Observations:
		return fredSeries(v), nil
	default:
		return nil, fmt.Errorf("normalize: no mapping for payload %T", p)
	}
}

func polygonProfile(p *polygon.TickerDetails) *Result {
	res := &Result{}
	r := p.Results
	if r.Name == "" {
		res.fail(p.Source(), p.Category(), "name", "required field missing")
		return res
	}

	profile := &models.CompanyProfile{Symbol: strings.ToUpper(r.Ticker), Name: r.Name}
	profile.Industry = optStr(r.SICDescription)
	profile.Exchange = optStr(r.PrimaryExchange)
	profile.Description = optStr(r.Description)
	profile.Website = optStr(r.HomepageURL)
	if r.Locale != "" {
		profile.Country = optStr(strings.ToUpper(r.Locale))
	}
	profile.EmployeeCount = r.TotalEmployees
	if r.MarketCap != nil {
		mc := int64(*r.MarketCap)
		profile.MarketCap = &mc
	}
	res.Profile = profile
	return res
}

func polygonBars(p *polygon.Aggs) *Result {
	res := &Result{}
	symbol := strings.ToUpper(p.Ticker)
	for _, r := range p.Results {
		if r.T <= 0 {
			res.fail(p.Source(), p.Category(), "t", "missing timestamp")
			continue
		}
		res.Bars = append(res.Bars, models.PriceBar{
			Symbol: symbol,
			Date:   time.UnixMilli(r.T).UTC().Truncate(24 * time.Hour),
			Open:   r.O,
			High:   r.H,
			Low:    r.L,
			Close:  r.C,
			Volume: r.V,
		})
	}
	sort.Slice(res.Bars, func(i, j int) bool { return res.Bars[i].Date.Before(res.Bars[j].Date) })
	return res
}

func polygonInsiders(p *polygon.InsiderTransactions) *Result {
	res := &Result{}
	for _, r := range p.Results {
		if r.InsiderName == "" {
			res.fail(p.Source(), p.Category(), "insider_name", "required field missing")
			continue
		}
		date, ok := parseDay(r.TransactionDate)
		if !ok {
			res.fail(p.Source(), p.Category(), "transaction_date", "unparseable date")
			continue
		}
		res.Insiders = append(res.Insiders, models.InsiderTransaction{
			Filer:         r.InsiderName,
			Kind:          insiderKind(r.TransactionType),
			Shares:        r.Shares,
			PricePerShare: r.SharePrice,
			Date:          date,
		})
	}
	return res
}

// sectorBySIC maps leading SIC digits to a coarse sector label.
var sectorBySIC = map[string]string{
	"737": "Technology", "357": "Technology", "367": "Technology",
	"283": "Healthcare", "384": "Healthcare", "801": "Healthcare",
	"291": "Energy", "131": "Energy",
	"602": "Finance", "603": "Finance", "621": "Finance",
	"541": "Consumer", "581": "Consumer",
	"371": "Manufacturing", "335": "Manufacturing",
}

func edgarProfile(p *edgar.CompanyFacts) *Result {
	res := &Result{}
	if p.EntityName == "" {
		res.fail(p.Source(), models.CategoryProfile, "entityName", "required field missing")
		return res
	}

	profile := &models.CompanyProfile{Symbol: p.Symbol, Name: p.EntityName}
	profile.Country = optStr("US")
	profile.Industry = optStr(p.SICDescription)
	if len(p.SIC) >= 3 {
		if sector, ok := sectorBySIC[p.SIC[:3]]; ok {
			profile.Sector = optStr(sector)
		}
	}
	if n, ok := latestFact(p, "NumberOfEmployees", "pure"); ok {
		cnt := int64(n.Val)
		profile.EmployeeCount = &cnt
	}
	if mc, ok := latestFact(p, "MarketCapitalization", "USD"); ok {
		v := int64(mc.Val)
		profile.MarketCap = &v
	}
	res.Profile = profile
	return res
}

// Income and balance sheet tags extracted from company facts.
var incomeTags = []string{"Revenues", "RevenueFromContractWithCustomerExcludingAssessedTax", "NetIncomeLoss"}
var balanceTags = []string{"Assets", "Liabilities", "StockholdersEquity"}

func edgarFinancials(p *edgar.CompanyFacts) *Result {
	res := &Result{}
	gaap := p.Facts["us-gaap"]
	if len(gaap) == 0 {
		res.fail(p.Source(), models.CategoryFinancials, "facts.us-gaap", "required field missing")
		return res
	}

	type periodData struct {
		income  map[string]float64
		balance map[string]float64
		end     time.Time
		filed   time.Time
	}
	periods := make(map[string]*periodData)

	collect := func(tags []string, into func(*periodData) map[string]float64) {
		for _, tag := range tags {
			fact, ok := gaap[tag]
			if !ok {
				continue
			}
			for _, u := range fact.Units["USD"] {
				if u.FY == 0 || u.FP == "" {
					continue
				}
				end, ok := parseDay(u.End)
				if !ok {
					res.fail(p.Source(), models.CategoryFinancials, "end", "unparseable date")
					continue
				}
				key := fmt.Sprintf("%d-%s", u.FY, u.FP)
				pd := periods[key]
				if pd == nil {
					pd = &periodData{income: map[string]float64{}, balance: map[string]float64{}}
					periods[key] = pd
				}
				into(pd)[lineItemName(tag)] = u.Val
				if end.After(pd.end) {
					pd.end = end
				}
				if filed, ok := parseDay(u.Filed); ok && filed.After(pd.filed) {
					pd.filed = filed
				}
			}
		}
	}
	collect(incomeTags, func(pd *periodData) map[string]float64 { return pd.income })
	collect(balanceTags, func(pd *periodData) map[string]float64 { return pd.balance })

	keys := make([]string, 0, len(periods))
	for k := range periods {
		keys = append(keys, k)
	}
	// Newest period last so the valuation metric uses the freshest filing.
	sort.Slice(keys, func(i, j int) bool { return periods[keys[i]].end.Before(periods[keys[j]].end) })
	if len(keys) > 4 {
		keys = keys[len(keys)-4:]
	}

	for _, key := range keys {
		pd := periods[key]
		if len(pd.income) > 0 {
			res.Statements = append(res.Statements, models.FinancialStatement{
				Symbol: p.Symbol, Period: key, Kind: models.StatementIncome,
				FiledAt: pd.filed, LineItems: pd.income,
			})
		}
		if len(pd.balance) > 0 {
			res.Statements = append(res.Statements, models.FinancialStatement{
				Symbol: p.Symbol, Period: key, Kind: models.StatementBalance,
				FiledAt: pd.filed, LineItems: pd.balance,
			})
		}
	}

	if len(keys) > 0 {
		if metric, ok := deriveRatios(p.Symbol, periods[keys[len(keys)-1]].end,
			periods[keys[len(keys)-1]].income, periods[keys[len(keys)-1]].balance); ok {
			res.Metrics = append(res.Metrics, metric)
		}
	}
	return res
}

// deriveRatios computes named ratios from one period's line items. Ratios
// whose denominator is missing or zero stay absent, never defaulted.
func deriveRatios(symbol string, asOf time.Time, income, balance map[string]float64) (models.ValuationMetric, bool) {
	ratios := make(map[string]float64)
	revenue := income["revenue"]
	netIncome, hasNI := income["net_income"]
	equity := balance["equity"]
	assets := balance["assets"]
	liabilities := balance["liabilities"]

	if hasNI && revenue != 0 {
		ratios[models.RatioProfitMargin] = netIncome / revenue
	}
	if hasNI && equity != 0 {
		ratios[models.RatioROE] = netIncome / equity
	}
	if hasNI && assets != 0 {
		ratios[models.RatioROA] = netIncome / assets
	}
	if equity != 0 && liabilities != 0 {
		ratios[models.RatioDebtToEquity] = liabilities / equity
	}
	if len(ratios) == 0 {
		return models.ValuationMetric{}, false
	}
	return models.ValuationMetric{Symbol: symbol, AsOf: asOf, Ratios: ratios}, true
}

func lineItemName(tag string) string {
	switch tag {
	case "Revenues", "RevenueFromContractWithCustomerExcludingAssessedTax":
		return "revenue"
	case "NetIncomeLoss":
		return "net_income"
	case "Assets":
		return "assets"
	case "Liabilities":
		return "liabilities"
	case "StockholdersEquity":
		return "equity"
	default:
		return tag
	}
}

func edgarInsiders(p *edgar.Submissions) *Result {
	res := &Result{}
	recent := p.Filings.Recent
	for i, form := range recent.Form {
		if form != "4" {
			continue
		}
		if i >= len(recent.FilingDate) {
			break
		}
		dateStr := recent.FilingDate[i]
		if i < len(recent.ReportDate) && recent.ReportDate[i] != "" {
			dateStr = recent.ReportDate[i]
		}
		date, ok := parseDay(dateStr)
		if !ok {
			res.fail(p.Source(), p.Category(), "filingDate", "unparseable date")
			continue
		}
		// Share counts live inside the form document, which is not parsed;
		// the fields stay absent rather than zero.
		res.Insiders = append(res.Insiders, models.InsiderTransaction{
			Symbol: p.Symbol,
			Filer:  "Form 4 filer",
			Kind:   "filing",
			Date:   date,
		})
		if len(res.Insiders) >= 10 {
			break
		}
	}
	return res
}

func finnhubRecommendations(p *finnhub.RecommendationTrends) *Result {
	res := &Result{}
	for i, t := range p.Trends {
		if i >= 4 {
			break
		}
		date, ok := parseDay(t.Period)
		if !ok {
			res.fail(p.Source(), p.Category(), "period", "unparseable date")
			continue
		}
		total := t.StrongBuy + t.Buy + t.Hold + t.Sell + t.StrongSell
		if total == 0 {
			res.fail(p.Source(), p.Category(), "counts", "no analyst counts")
			continue
		}
		res.Recommendations = append(res.Recommendations, models.AnalystRecommendation{
			Symbol: strings.ToUpper(p.Symbol),
			Source: p.Source(),
			Rating: consensusRating(t),
			Date:   date,
		})
	}
	return res
}

// consensusRating picks the rating class with the highest analyst count;
// ties resolve toward the more cautious rating.
func consensusRating(t finnhub.RecommendationTrend) string {
	type pair struct {
		rating string
		count  int
	}
	ordered := []pair{
		{"strong_sell", t.StrongSell},
		{"sell", t.Sell},
		{"hold", t.Hold},
		{"buy", t.Buy},
		{"strong_buy", t.StrongBuy},
	}
	best := ordered[0]
	for _, p := range ordered[1:] {
		if p.count > best.count {
			best = p
		}
	}
	return best.rating
}

func finnhubNews(p *finnhub.CompanyNews) *Result {
	res := &Result{}
	symbol := strings.ToUpper(p.Symbol)
	for _, item := range p.Items {
		if item.Headline == "" {
			res.fail(p.Source(), p.Category(), "headline", "required field missing")
			continue
		}
		if item.Datetime <= 0 {
			res.fail(p.Source(), p.Category(), "datetime", "missing timestamp")
			continue
		}
		sym := symbol
		res.News = append(res.News, models.NewsArticle{
			Symbol:    &sym,
			Headline:  item.Headline,
			Source:    item.Source,
			URL:       optStr(item.URL),
			Date:      time.Unix(item.Datetime, 0).UTC(),
			Sentiment: item.Sentiment,
		})
	}
	return res
}

func fredSeries(p *fred.Observations) *Result {
	res := &Result{}
	for _, obs := range p.Observations {
		if obs.Value == "." {
			// FRED's marker for "no observation"; not a malformed record.
			continue
		}
		date, ok := parseDay(obs.Date)
		if !ok {
			res.fail(p.Source(), p.Category(), "date", "unparseable date")
			continue
		}
		v, err := strconv.ParseFloat(obs.Value, 64)
		if err != nil {
			res.fail(p.Source(), p.Category(), "value", "unparseable value")
			continue
		}
		res.Economic = append(res.Economic, models.EconomicIndicator{
			SeriesID: p.SeriesID,
			Kind:     models.SeriesKind(p.SeriesID),
			Date:     date,
			Value:    v,
		})
	}
	return res
}

func (r *Result) fail(source string, category models.Category, field, reason string) {
	r.Failures = append(r.Failures, models.ValidationFailure{
		Source: source, Category: category, Field: field, Reason: reason,
	})
}

func insiderKind(raw string) string {
	switch lower := strings.ToLower(raw); {
	case strings.Contains(lower, "buy"), strings.HasPrefix(lower, "p"):
		return "buy"
	case strings.Contains(lower, "sell"), strings.HasPrefix(lower, "s"):
		return "sell"
	case raw == "":
		return "unknown"
	default:
		return lower
	}
}

func latestFact(p *edgar.CompanyFacts, tag, unit string) (edgar.FactUnit, bool) {
	fact, ok := p.Facts["us-gaap"][tag]
	if !ok {
		return edgar.FactUnit{}, false
	}
	units := fact.Units[unit]
	if len(units) == 0 {
		return edgar.FactUnit{}, false
	}
	return units[len(units)-1], true
}

func parseDay(s string) (time.Time, bool) { return util.ParseDay(s) }

func optStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
