package polygon

import (
	"context"
	"fmt"
	"time"

	"EquityLens/internal/domain/models"
	drepo "EquityLens/internal/domain/repository"
	"EquityLens/internal/service/provider"
	"EquityLens/pkg/util"
)

const defaultBaseURL = "https://api.polygon.io"

var _ drepo.ProviderClient = (*Client)(nil)

// Client fetches company details, daily price aggregates, insider
// transactions and ticker search results from Polygon. Transport and
// authentication only; no retries, no caching.
type Client struct {
	apiKey       string
	baseURL      string
	transport    *provider.Transport
	lookbackDays int
	now          func() time.Time
}

// Option configures Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithLookbackDays sets how much daily price history is requested.
func WithLookbackDays(days int) Option {
	return func(c *Client) { c.lookbackDays = days }
}

// New creates a Polygon client pacing requests at requestsPerSec.
func New(apiKey string, requestsPerSec float64, opts ...Option) *Client {
	c := &Client{
		apiKey:       apiKey,
		baseURL:      defaultBaseURL,
		transport:    provider.NewTransport("polygon", requestsPerSec, nil),
		lookbackDays: 365,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string { return "polygon" }

func (c *Client) Categories() []models.Category {
	return []models.Category{
		models.CategoryProfile,
		models.CategoryPrices,
		models.CategoryInsiders,
	}
}

// Fetch retrieves the raw payload for one category and key. The search
// category abuses key as the query string; everything else keys by symbol.
func (c *Client) Fetch(ctx context.Context, category models.Category, key string) (models.RawPayload, error) {
	switch category {
	case models.CategoryProfile:
		return c.tickerDetails(ctx, key)
	case models.CategoryPrices:
		return c.dailyAggs(ctx, key)
	case models.CategoryInsiders:
		return c.insiderTransactions(ctx, key)
	default:
		return nil, provider.Wrap(c.Name(), category, 0, provider.ErrNotFound)
	}
}

func (c *Client) tickerDetails(ctx context.Context, symbol string) (models.RawPayload, error) {
	var payload TickerDetails
	url := fmt.Sprintf("%s/v3/reference/tickers/%s", c.baseURL, symbol)
	if err := c.transport.GetJSON(ctx, models.CategoryProfile, url, c.auth(nil), &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) dailyAggs(ctx context.Context, symbol string) (models.RawPayload, error) {
	from, to := util.DayWindow(c.now(), c.lookbackDays)
	var payload Aggs
	url := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/day/%s/%s",
		c.baseURL, symbol, from, to)
	query := c.auth(map[string]string{"adjusted": "true", "sort": "asc", "limit": "366"})
	if err := c.transport.GetJSON(ctx, models.CategoryPrices, url, query, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) insiderTransactions(ctx context.Context, symbol string) (models.RawPayload, error) {
	var payload InsiderTransactions
	url := fmt.Sprintf("%s/vX/reference/insider-transactions", c.baseURL)
	query := c.auth(map[string]string{"ticker": symbol, "limit": "10"})
	if err := c.transport.GetJSON(ctx, models.CategoryInsiders, url, query, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Search looks tickers up by free text. It stays outside Fetch because the
// query façade uses it without the aggregation pipeline.
func (c *Client) Search(ctx context.Context, term string, limit int) ([]models.SearchResult, error) {
	var payload TickerSearch
	url := fmt.Sprintf("%s/v3/reference/tickers", c.baseURL)
	// No explicit sort: the provider orders search results by relevance,
	// which is what the façade promises.
	query := c.auth(map[string]string{
		"search": term,
		"active": "true",
		"market": "stocks",
		"limit":  fmt.Sprintf("%d", limit),
	})
	if err := c.transport.GetJSON(ctx, models.CategoryProfile, url, query, &payload); err != nil {
		return nil, err
	}

	out := make([]models.SearchResult, 0, len(payload.Results))
	for _, r := range payload.Results {
		res := models.SearchResult{Symbol: r.Ticker, Name: r.Name}
		if r.PrimaryExchange != "" {
			exch := r.PrimaryExchange
			res.Exchange = &exch
		}
		if r.Locale != "" {
			locale := r.Locale
			res.Locale = &locale
		}
		out = append(out, res)
	}
	return out, nil
}

func (c *Client) auth(q map[string]string) map[string]string {
	if q == nil {
		q = make(map[string]string, 1)
	}
	q["apiKey"] = c.apiKey
	return q
}
