package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EquityLens/internal/domain/models"
	drepo "EquityLens/internal/domain/repository"
	"EquityLens/internal/scoring"
	"EquityLens/internal/service/edgar"
	"EquityLens/internal/service/finnhub"
	"EquityLens/internal/service/fred"
	"EquityLens/internal/service/polygon"
	"EquityLens/internal/service/provider"
	"EquityLens/internal/service/retry"
	"EquityLens/internal/store"
)

type fakeProvider struct {
	name  string
	cats  []models.Category
	fetch func(ctx context.Context, category models.Category, key string) (models.RawPayload, error)
	calls int64
}

func (f *fakeProvider) Name() string                  { return f.name }
func (f *fakeProvider) Categories() []models.Category { return f.cats }
func (f *fakeProvider) Fetch(ctx context.Context, category models.Category, key string) (models.RawPayload, error) {
	atomic.AddInt64(&f.calls, 1)
	return f.fetch(ctx, category, key)
}

func noWaitSupervisor() *retry.Supervisor {
	return retry.New(retry.WithSleeper(func(ctx context.Context, d time.Duration) error { return nil }))
}

func detailsPayload(symbol, name string) *polygon.TickerDetails {
	p := &polygon.TickerDetails{}
	p.Results.Ticker = symbol
	p.Results.Name = name
	return p
}

func aggsPayload(symbol string, n int) *polygon.Aggs {
	p := &polygon.Aggs{Ticker: symbol}
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		p.Results = append(p.Results, struct {
			T int64   `json:"t"`
			O float64 `json:"o"`
			H float64 `json:"h"`
			L float64 `json:"l"`
			C float64 `json:"c"`
			V float64 `json:"v"`
		}{T: base.AddDate(0, 0, i).UnixMilli(), C: 100 + float64(i)})
	}
	return p
}

func newsPayload(symbol string) *finnhub.CompanyNews {
	s := 0.3
	return &finnhub.CompanyNews{
		Symbol: symbol,
		Items: []finnhub.NewsItem{
			{Headline: "earnings beat", Source: "wire", Datetime: 1756200000, Sentiment: &s},
		},
	}
}

func happyProvider(calls map[models.Category]*int64) *fakeProvider {
	return &fakeProvider{
		name: "fake",
		cats: models.SymbolCategories(),
		fetch: func(ctx context.Context, category models.Category, key string) (models.RawPayload, error) {
			if c, ok := calls[category]; ok {
				atomic.AddInt64(c, 1)
			}
			switch category {
			case models.CategoryProfile:
				return detailsPayload(key, "Apple Inc."), nil
			case models.CategoryPrices:
				return aggsPayload(key, 60), nil
			case models.CategoryNews:
				return newsPayload(key), nil
			case models.CategoryInsiders:
				p := &polygon.InsiderTransactions{}
				p.Results = append(p.Results, struct {
					InsiderName     string   `json:"insider_name"`
					Position        string   `json:"insider_position"`
					TransactionType string   `json:"transaction_type"`
					TransactionDate string   `json:"transaction_date"`
					Shares          *float64 `json:"shares"`
					SharePrice      *float64 `json:"share_price"`
				}{InsiderName: "Jane Roe", TransactionType: "P - Purchase", TransactionDate: "2025-08-01"})
				return p, nil
			case models.CategoryRecommendations:
				return &finnhub.RecommendationTrends{
					Symbol: key,
					Trends: []finnhub.RecommendationTrend{{Period: "2025-08-01", Buy: 10, Hold: 3}},
				}, nil
			case models.CategoryFinancials:
				return &edgar.CompanyFacts{
					Symbol:     key,
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
						},
					},
				}, nil
			}
			return nil, provider.Wrap("fake", category, 404, provider.ErrNotFound)
		},
	}
}

func chainsFor(p drepo.ProviderClient) map[models.Category][]drepo.ProviderClient {
	chains := make(map[models.Category][]drepo.ProviderClient)
	for _, c := range p.Categories() {
		chains[c] = []drepo.ProviderClient{p}
	}
	return chains
}

func newAggregator(chains map[models.Category][]drepo.ProviderClient, opts ...Option) *Aggregator {
	return New(
		chains,
		nil,
		noWaitSupervisor(),
		store.NewBundleStore(15*time.Minute),
		store.NewEconomicStore(time.Hour, nil),
		scoring.NewEngine("v1", nil),
		opts...,
	)
}

func TestDashboardBuildsFullBundle(t *testing.T) {
	a := newAggregator(chainsFor(happyProvider(nil)))

	b, err := a.Dashboard(context.Background(), &models.DashboardRequest{Symbol: "aapl"})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", b.Symbol)
	require.NotNil(t, b.Profile)
	assert.Equal(t, "Apple Inc.", b.Profile.Name)
	assert.NotEmpty(t, b.Indicators)
	assert.NotEmpty(t, b.Statements)
	assert.NotEmpty(t, b.Recommendations)
	assert.NotEmpty(t, b.News)
	require.Len(t, b.InsiderTransactions, 1)
	assert.Equal(t, "AAPL", b.InsiderTransactions[0].Symbol)
	assert.Nil(t, b.Missing)
	assert.False(t, b.Partial())
	require.NotNil(t, b.Score)
	assert.Equal(t, "v1", b.Score.WeightsVersion)
}

func TestDashboardPartialWhenOneCategoryFails(t *testing.T) {
	happy := happyProvider(nil)
	inner := happy.fetch
	happy.fetch = func(ctx context.Context, category models.Category, key string) (models.RawPayload, error) {
		if category == models.CategoryNews {
			return nil, provider.Wrap("fake", category, 401, provider.ErrUnauthorized)
		}
		return inner(ctx, category, key)
	}
	a := newAggregator(chainsFor(happy))

	b, err := a.Dashboard(context.Background(), &models.DashboardRequest{Symbol: "AAPL"})
	require.NoError(t, err, "a single failed section never fails the run")
	assert.True(t, b.Partial())
	assert.Equal(t, "unauthorized", b.Missing[models.CategoryNews])
	assert.Empty(t, b.News, "failed sections stay absent, not zero-filled")
	assert.NotNil(t, b.Profile)
}

func TestDashboardUnknownSymbol(t *testing.T) {
	p := &fakeProvider{
		name: "fake",
		cats: models.SymbolCategories(),
		fetch: func(ctx context.Context, category models.Category, key string) (models.RawPayload, error) {
			return nil, provider.Wrap("fake", category, 404, provider.ErrNotFound)
		},
	}
	a := newAggregator(chainsFor(p))

	_, err := a.Dashboard(context.Background(), &models.DashboardRequest{Symbol: "ZZZZ"})
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestDashboardNoProviderResponded(t *testing.T) {
	p := &fakeProvider{
		name: "fake",
		cats: models.SymbolCategories(),
		fetch: func(ctx context.Context, category models.Category, key string) (models.RawPayload, error) {
			return nil, provider.Wrap("fake", category, 503, provider.ErrUnavailable)
		},
	}
	a := newAggregator(chainsFor(p))

	_, err := a.Dashboard(context.Background(), &models.DashboardRequest{Symbol: "AAPL"})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestDashboardCoalescesConcurrentRequests(t *testing.T) {
	calls := map[models.Category]*int64{}
	for _, c := range models.SymbolCategories() {
		calls[c] = new(int64)
	}
	release := make(chan struct{})
	happy := happyProvider(calls)
	inner := happy.fetch
	happy.fetch = func(ctx context.Context, category models.Category, key string) (models.RawPayload, error) {
		<-release
		return inner(ctx, category, key)
	}
	a := newAggregator(chainsFor(happy))

	const workers = 6
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = a.Dashboard(context.Background(), &models.DashboardRequest{Symbol: "AAPL"})
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
	}
	for category, c := range calls {
		assert.Equal(t, int64(1), atomic.LoadInt64(c), "category %s fetched once", category)
	}
}

func TestProfileMergePrimaryKeepsPrecedence(t *testing.T) {
	primary := &fakeProvider{
		name: "edgar",
		cats: []models.Category{models.CategoryProfile},
		fetch: func(ctx context.Context, category models.Category, key string) (models.RawPayload, error) {
			return &edgar.CompanyFacts{
				Symbol:         key,
				Kind:           models.CategoryProfile,
				EntityName:     "Apple Inc.",
				SIC:            "3571",
				SICDescription: "Electronic Computers",
			}, nil
		},
	}
	secondary := &fakeProvider{
		name: "polygon",
		cats: []models.Category{models.CategoryProfile},
		fetch: func(ctx context.Context, category models.Category, key string) (models.RawPayload, error) {
			p := detailsPayload(key, "APPLE INC")
			p.Results.HomepageURL = "https://apple.com"
			return p, nil
		},
	}
	chains := map[models.Category][]drepo.ProviderClient{
		models.CategoryProfile: {primary, secondary},
	}
	a := newAggregator(chains)

	b, err := a.Dashboard(context.Background(), &models.DashboardRequest{Symbol: "AAPL"})
	require.NoError(t, err)
	require.NotNil(t, b.Profile)
	assert.Equal(t, "Apple Inc.", b.Profile.Name, "primary name wins")
	require.NotNil(t, b.Profile.Website)
	assert.Equal(t, "https://apple.com", *b.Profile.Website, "fallback fills gaps")
	assert.Equal(t, "Technology", *b.Profile.Sector)
}

func TestInsiderFallbackChain(t *testing.T) {
	down := &fakeProvider{
		name: "polygon",
		cats: []models.Category{models.CategoryInsiders},
		fetch: func(ctx context.Context, category models.Category, key string) (models.RawPayload, error) {
			return nil, provider.Wrap("polygon", category, 503, provider.ErrUnavailable)
		},
	}
	backup := &fakeProvider{
		name: "edgar",
		cats: []models.Category{models.CategoryInsiders},
		fetch: func(ctx context.Context, category models.Category, key string) (models.RawPayload, error) {
			subs := &edgar.Submissions{Symbol: key}
			subs.Filings.Recent.Form = []string{"4"}
			subs.Filings.Recent.FilingDate = []string{"2025-08-20"}
			subs.Filings.Recent.ReportDate = []string{"2025-08-19"}
			return subs, nil
		},
	}
	chains := map[models.Category][]drepo.ProviderClient{
		models.CategoryInsiders: {down, backup},
	}
	a := newAggregator(chains)

	b, err := a.Dashboard(context.Background(), &models.DashboardRequest{Symbol: "AAPL"})
	require.NoError(t, err)
	require.Len(t, b.InsiderTransactions, 1)
	assert.Equal(t, int64(4), atomic.LoadInt64(&down.calls), "unavailable exhausts the retry budget")
	assert.Equal(t, int64(1), atomic.LoadInt64(&backup.calls))
}

func TestRefreshBypassesFreshSnapshot(t *testing.T) {
	calls := map[models.Category]*int64{}
	for _, c := range models.SymbolCategories() {
		calls[c] = new(int64)
	}
	a := newAggregator(chainsFor(happyProvider(calls)))

	_, err := a.Dashboard(context.Background(), &models.DashboardRequest{Symbol: "AAPL"})
	require.NoError(t, err)
	_, err = a.Refresh(context.Background(), &models.RefreshRequest{Symbol: "AAPL"})
	require.NoError(t, err)

	for category, c := range calls {
		assert.Equal(t, int64(2), atomic.LoadInt64(c), "category %s refetched on forced refresh", category)
	}
}

func TestRefreshCoalescesConcurrentCalls(t *testing.T) {
	calls := map[models.Category]*int64{}
	for _, c := range models.SymbolCategories() {
		calls[c] = new(int64)
	}
	release := make(chan struct{})
	happy := happyProvider(calls)
	inner := happy.fetch
	happy.fetch = func(ctx context.Context, category models.Category, key string) (models.RawPayload, error) {
		<-release
		return inner(ctx, category, key)
	}
	a := newAggregator(chainsFor(happy))

	const workers = 2
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = a.Refresh(context.Background(), &models.RefreshRequest{Symbol: "AAPL"})
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
	}
	for category, c := range calls {
		assert.Equal(t, int64(1), atomic.LoadInt64(c), "category %s fetched once across forced refreshes", category)
	}
}

type fakeMetrics struct {
	mu      sync.Mutex
	lookups map[string][]bool
}

func newFakeMetrics() *fakeMetrics { return &fakeMetrics{lookups: map[string][]bool{}} }

func (m *fakeMetrics) RecordProviderRequest(string, models.Category, string) {}
func (m *fakeMetrics) RecordRetryWait(string, float64)                       {}
func (m *fakeMetrics) RecordCacheLookup(kind string, hit bool) {
	m.mu.Lock()
	m.lookups[kind] = append(m.lookups[kind], hit)
	m.mu.Unlock()
}
func (m *fakeMetrics) RecordValidationFailure(string)       {}
func (m *fakeMetrics) RecordPipelineDuration(float64)       {}
func (m *fakeMetrics) RecordCompositeScore(string, float64) {}

func TestDashboardRecordsCacheLookups(t *testing.T) {
	m := newFakeMetrics()
	a := newAggregator(chainsFor(happyProvider(nil)), WithMetrics(m))

	_, err := a.Dashboard(context.Background(), &models.DashboardRequest{Symbol: "AAPL"})
	require.NoError(t, err)
	_, err = a.Dashboard(context.Background(), &models.DashboardRequest{Symbol: "AAPL"})
	require.NoError(t, err)

	assert.Equal(t, []bool{false, true}, m.lookups["bundle"], "miss then hit")
}

func fredPayload(seriesID string) *fred.Observations {
	p := &fred.Observations{SeriesID: seriesID}
	p.Observations = append(p.Observations, struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	}{Date: "2025-08-26", Value: "4.33"})
	return p
}

func TestEconomicSnapshotPartial(t *testing.T) {
	p := &fakeProvider{
		name: "fred",
		cats: []models.Category{models.CategoryEconomic},
		fetch: func(ctx context.Context, category models.Category, key string) (models.RawPayload, error) {
			if key == "GDP" {
				return nil, provider.Wrap("fred", category, 503, provider.ErrUnavailable)
			}
			return fredPayload(key), nil
		},
	}
	chains := map[models.Category][]drepo.ProviderClient{
		models.CategoryEconomic: {p},
	}
	a := newAggregator(chains, WithEconomicSeries([]string{"DFF", "GDP"}))

	snap, err := a.Economic(context.Background(), &models.EconomicSnapshotRequest{})
	require.NoError(t, err)
	assert.Contains(t, snap.Series, "DFF")
	assert.Equal(t, 4.33, snap.Series["DFF"].Value)
	assert.Equal(t, "unavailable", snap.Missing["GDP"])
}

func TestEconomicSnapshotServesStoredFreshSeries(t *testing.T) {
	p := &fakeProvider{
		name: "fred",
		cats: []models.Category{models.CategoryEconomic},
		fetch: func(ctx context.Context, category models.Category, key string) (models.RawPayload, error) {
			return fredPayload(key), nil
		},
	}
	chains := map[models.Category][]drepo.ProviderClient{
		models.CategoryEconomic: {p},
	}
	a := newAggregator(chains, WithEconomicSeries([]string{"DFF"}))

	_, err := a.Economic(context.Background(), &models.EconomicSnapshotRequest{})
	require.NoError(t, err)
	_, err = a.Economic(context.Background(), &models.EconomicSnapshotRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), atomic.LoadInt64(&p.calls), "fresh series is not refetched")
}

func TestEconomicSnapshotRecordsCacheLookups(t *testing.T) {
	p := &fakeProvider{
		name: "fred",
		cats: []models.Category{models.CategoryEconomic},
		fetch: func(ctx context.Context, category models.Category, key string) (models.RawPayload, error) {
			return fredPayload(key), nil
		},
	}
	chains := map[models.Category][]drepo.ProviderClient{
		models.CategoryEconomic: {p},
	}
	m := newFakeMetrics()
	a := newAggregator(chains, WithEconomicSeries([]string{"DFF"}), WithMetrics(m))

	_, err := a.Economic(context.Background(), &models.EconomicSnapshotRequest{})
	require.NoError(t, err)
	_, err = a.Economic(context.Background(), &models.EconomicSnapshotRequest{})
	require.NoError(t, err)

	assert.Equal(t, []bool{false, true}, m.lookups["economic"], "miss then hit")
}
