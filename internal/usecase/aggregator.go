// Package usecase orchestrates the aggregation engine: fan-out across
// provider chains, retry supervision, normalization, indicator derivation,
// scoring, and snapshot publication.
package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"EquityLens/internal/domain/models"
	drepo "EquityLens/internal/domain/repository"
	"EquityLens/internal/indicators"
	"EquityLens/internal/normalize"
	"EquityLens/internal/scoring"
	"EquityLens/internal/service/provider"
	"EquityLens/internal/service/retry"
	"EquityLens/internal/store"
	"EquityLens/pkg/logger"
)

var (
	// ErrUnknownSymbol is returned when every provider reports the symbol
	// does not exist.
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrNoData is returned when no provider delivered any section at all.
	ErrNoData = errors.New("no provider responded")
)

// SymbolSearcher resolves free-text queries to candidate symbols.
type SymbolSearcher interface {
	Search(ctx context.Context, term string, limit int) ([]models.SearchResult, error)
}

// EconomicSnapshot is the macro view assembled from stored series.
type EconomicSnapshot struct {
	Series  map[string]models.EconomicIndicator `json:"series"`
	Missing map[string]string                   `json:"missing,omitempty"`
	AsOf    time.Time                           `json:"as_of"`
}

// Aggregator implements the dashboard, search, refresh and economic
// snapshot operations. Provider chains are ordered per category; a later
// provider is consulted only when the earlier one fails, except for the
// profile category where every chain member contributes and earlier sources
// keep precedence.
type Aggregator struct {
	chains     map[models.Category][]drepo.ProviderClient
	searcher   SymbolSearcher
	supervisor *retry.Supervisor
	bundles    *store.BundleStore
	economic   *store.EconomicStore
	engine     *scoring.Engine

	series  []string
	history drepo.ScoreHistory
	events  drepo.EventPublisher
	metrics drepo.Metrics
	now     func() time.Time
	l       *logger.Logger
}

// Option configures Aggregator.
type Option func(*Aggregator)

// WithScoreHistory enables score archiving after each successful run.
func WithScoreHistory(h drepo.ScoreHistory) Option {
	return func(a *Aggregator) { a.history = h }
}

// WithEventPublisher enables bundle-updated events.
func WithEventPublisher(p drepo.EventPublisher) Option {
	return func(a *Aggregator) { a.events = p }
}

// WithMetrics enables operational metrics.
func WithMetrics(m drepo.Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// WithEconomicSeries sets the macro series refreshed by default.
func WithEconomicSeries(series []string) Option {
	return func(a *Aggregator) { a.series = series }
}

// WithLogger sets the aggregator logger.
func WithLogger(l *logger.Logger) Option {
	return func(a *Aggregator) { a.l = l }
}

// WithNow injects the clock, mainly for tests.
func WithNow(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// New creates an Aggregator over the given provider chains.
func New(
	chains map[models.Category][]drepo.ProviderClient,
	searcher SymbolSearcher,
	supervisor *retry.Supervisor,
	bundles *store.BundleStore,
	economic *store.EconomicStore,
	engine *scoring.Engine,
	opts ...Option,
) *Aggregator {
	a := &Aggregator{
		chains:     chains,
		searcher:   searcher,
		supervisor: supervisor,
		bundles:    bundles,
		economic:   economic,
		engine:     engine,
		series:     []string{"DFF", "UNRATE", "CPIAUCSL", "GDP", "T10Y2Y"},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Dashboard returns the bundle for a symbol, refreshing it when the stored
// snapshot is stale or absent. Concurrent requests for the same symbol
// share one pipeline run.
func (a *Aggregator) Dashboard(ctx context.Context, req *models.DashboardRequest) (*models.Bundle, error) {
	symbol := strings.ToUpper(req.Symbol)
	if a.metrics != nil {
		_, fresh := a.bundles.Get(symbol)
		a.metrics.RecordCacheLookup("bundle", fresh)
	}
	snap, err := a.bundles.Fill(ctx, symbol, func(ctx context.Context) (*models.Bundle, error) {
		return a.refresh(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}
	return snap.Bundle, nil
}

// Refresh forces a full pipeline run for a symbol, bypassing staleness.
// Overlapping refreshes for the same symbol coalesce into one run.
func (a *Aggregator) Refresh(ctx context.Context, req *models.RefreshRequest) (*models.Bundle, error) {
	symbol := strings.ToUpper(req.Symbol)
	snap, err := a.bundles.ForceFill(ctx, symbol, func(ctx context.Context) (*models.Bundle, error) {
		return a.refresh(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}
	return snap.Bundle, nil
}

// Search resolves a free-text query to candidate symbols.
func (a *Aggregator) Search(ctx context.Context, req *models.SearchRequest) ([]models.SearchResult, error) {
	return retry.Do(ctx, a.supervisor, func(ctx context.Context) ([]models.SearchResult, error) {
		return a.searcher.Search(ctx, req.Query, req.Limit)
	})
}

// categoryOutcome is one category's result after walking its chain.
type categoryOutcome struct {
	res   *normalize.Result
	class string
}

// refresh runs the full aggregation pipeline for one symbol. Categories
// fetch concurrently; a failed category is marked missing and never aborts
// the others. The run errors only when nothing succeeded.
func (a *Aggregator) refresh(ctx context.Context, symbol string) (*models.Bundle, error) {
	start := a.now()
	categories := models.SymbolCategories()
	outcomes := make(map[models.Category]*categoryOutcome, len(categories))
	var mu sync.Mutex

	var g errgroup.Group
	for _, category := range categories {
		category := category
		g.Go(func() error {
			out := a.fetchCategory(ctx, category, symbol)
			mu.Lock()
			outcomes[category] = out
			mu.Unlock()
			return nil
		})
	}
	// Goroutines never return errors; failures live in the outcomes.
	_ = g.Wait()

	bundle, err := a.assemble(symbol, categories, outcomes)
	if a.metrics != nil {
		a.metrics.RecordPipelineDuration(a.now().Sub(start).Seconds())
	}
	if err != nil {
		return nil, err
	}

	a.publish(ctx, bundle)
	return bundle, nil
}

// fetchCategory walks the category's provider chain. The profile category
// merges every successful provider with earlier sources keeping precedence;
// all other categories stop at the first success.
func (a *Aggregator) fetchCategory(ctx context.Context, category models.Category, symbol string) *categoryOutcome {
	chain := a.chains[category]
	if len(chain) == 0 {
		return &categoryOutcome{class: "unconfigured"}
	}

	var merged *normalize.Result
	var lastErr error
	for _, client := range chain {
		payload, err := retry.Do(ctx, a.supervisor, func(ctx context.Context) (models.RawPayload, error) {
			return client.Fetch(ctx, category, symbol)
		})
		if a.metrics != nil {
			a.metrics.RecordProviderRequest(client.Name(), category, outcomeLabel(err))
		}
		if err != nil {
			lastErr = err
			if a.l != nil {
				a.l.Warn("provider fetch failed",
					logger.String("provider", client.Name()),
					logger.String("category", string(category)),
					logger.String("symbol", symbol),
					logger.Error(err),
				)
			}
			continue
		}

		res, err := normalize.Payload(payload)
		if err != nil {
			lastErr = err
			continue
		}
		for range res.Failures {
			if a.metrics != nil {
				a.metrics.RecordValidationFailure(client.Name())
			}
		}

		if merged == nil {
			merged = res
		} else {
			mergeResults(merged, res)
		}
		if category != models.CategoryProfile {
			break
		}
	}

	if merged == nil {
		return &categoryOutcome{class: failureClass(lastErr)}
	}
	return &categoryOutcome{res: merged}
}

// assemble builds the bundle from per-category outcomes and scores it.
// Missing sections are marked, never zero-filled.
func (a *Aggregator) assemble(symbol string, categories []models.Category, outcomes map[models.Category]*categoryOutcome) (*models.Bundle, error) {
	bundle := &models.Bundle{Symbol: symbol, Missing: map[models.Category]string{}}
	succeeded := 0
	notFound := 0

	for _, category := range categories {
		out := outcomes[category]
		if out == nil || out.res == nil {
			class := "unavailable"
			if out != nil && out.class != "" {
				class = out.class
			}
			bundle.Missing[category] = class
			if class == "not_found" {
				notFound++
			}
			continue
		}
		succeeded++

		res := out.res
		switch category {
		case models.CategoryProfile:
			bundle.Profile = res.Profile
		case models.CategoryPrices:
			bundle.Indicators = indicators.Compute(symbol, res.Bars)
		case models.CategoryFinancials:
			bundle.Statements = res.Statements
			bundle.Metrics = res.Metrics
		case models.CategoryInsiders:
			for i := range res.Insiders {
				if res.Insiders[i].Symbol == "" {
					res.Insiders[i].Symbol = symbol
				}
			}
			bundle.InsiderTransactions = res.Insiders
		case models.CategoryRecommendations:
			bundle.Recommendations = res.Recommendations
		case models.CategoryNews:
			bundle.News = res.News
		}
	}

	if succeeded == 0 {
		if notFound == len(categories) {
			return nil, ErrUnknownSymbol
		}
		return nil, ErrNoData
	}
	if len(bundle.Missing) == 0 {
		bundle.Missing = nil
	}

	if score, ok := a.engine.Score(bundle); ok {
		bundle.Score = score
		bundle.AsOf = score.AsOf
	}
	if bundle.AsOf.IsZero() {
		bundle.AsOf = a.now()
	}
	return bundle, nil
}

// publish emits the side effects of a successful run. History and event
// failures are logged, never propagated; the bundle is already good.
func (a *Aggregator) publish(ctx context.Context, bundle *models.Bundle) {
	if bundle.Score != nil {
		if a.metrics != nil {
			a.metrics.RecordCompositeScore(bundle.Symbol, bundle.Score.Composite)
		}
		if a.history != nil {
			if err := a.history.Record(ctx, bundle.Score); err != nil && a.l != nil {
				a.l.Error("score history write failed",
					logger.String("symbol", bundle.Symbol),
					logger.Error(err),
				)
			}
		}
	}
	if a.events != nil {
		if err := a.events.BundleUpdated(ctx, bundle); err != nil && a.l != nil {
			a.l.Error("bundle event publish failed",
				logger.String("symbol", bundle.Symbol),
				logger.Error(err),
			)
		}
	}
}

// EconomicSeries lists the series refreshed by default.
func (a *Aggregator) EconomicSeries() []string { return a.series }

// Economic assembles the macro snapshot, refreshing stale series on demand.
// A series whose provider fails is marked missing while the rest still
// return; stale stored values are preferred over nothing.
func (a *Aggregator) Economic(ctx context.Context, req *models.EconomicSnapshotRequest) (*EconomicSnapshot, error) {
	series := req.Series
	if len(series) == 0 {
		series = a.series
	}

	snap := &EconomicSnapshot{
		Series:  make(map[string]models.EconomicIndicator, len(series)),
		Missing: map[string]string{},
		AsOf:    a.now(),
	}
	for _, id := range series {
		id = strings.ToUpper(id)
		latest, fresh := a.economic.Latest(ctx, id)
		if a.metrics != nil {
			a.metrics.RecordCacheLookup("economic", fresh)
		}
		if !fresh {
			if err := a.RefreshEconomic(ctx, id); err != nil {
				if latest.SeriesID != "" {
					// Keep serving the stale value alongside the marker.
					snap.Series[id] = latest
				}
				snap.Missing[id] = failureClass(err)
				continue
			}
			latest, _ = a.economic.Latest(ctx, id)
		}
		if latest.SeriesID == "" {
			snap.Missing[id] = "not_found"
			continue
		}
		snap.Series[id] = latest
	}
	if len(snap.Missing) == 0 {
		snap.Missing = nil
	}
	if len(snap.Series) == 0 {
		return nil, ErrNoData
	}
	return snap, nil
}

// RefreshEconomic fetches one macro series and replaces its stored window.
func (a *Aggregator) RefreshEconomic(ctx context.Context, seriesID string) error {
	chain := a.chains[models.CategoryEconomic]
	if len(chain) == 0 {
		return ErrNoData
	}

	var lastErr error
	for _, client := range chain {
		payload, err := retry.Do(ctx, a.supervisor, func(ctx context.Context) (models.RawPayload, error) {
			return client.Fetch(ctx, models.CategoryEconomic, seriesID)
		})
		if a.metrics != nil {
			a.metrics.RecordProviderRequest(client.Name(), models.CategoryEconomic, outcomeLabel(err))
		}
		if err != nil {
			lastErr = err
			continue
		}
		res, err := normalize.Payload(payload)
		if err != nil {
			lastErr = err
			continue
		}
		if len(res.Economic) == 0 {
			lastErr = provider.Wrap(client.Name(), models.CategoryEconomic, 0, provider.ErrNotFound)
			continue
		}
		a.economic.Put(ctx, seriesID, res.Economic)
		return nil
	}
	return lastErr
}

// mergeResults folds other into dst for the profile category. Profiles
// merge field by field; entity slices from a later provider only fill
// sections the earlier one left empty.
func mergeResults(dst, other *normalize.Result) {
	if dst.Profile == nil {
		dst.Profile = other.Profile
	} else {
		dst.Profile.Merge(other.Profile)
	}
	dst.Failures = append(dst.Failures, other.Failures...)
}

// failureClass maps a pipeline error to the marker stored in Missing.
func failureClass(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, retry.ErrRateLimitExceeded):
		return "rate_limit_exceeded"
	case errors.Is(err, provider.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, provider.ErrNotFound):
		return "not_found"
	default:
		return "unavailable"
	}
}

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return failureClass(err)
}
