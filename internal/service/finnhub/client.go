package finnhub

import (
	"context"
	"time"

	"EquityLens/internal/domain/models"
	drepo "EquityLens/internal/domain/repository"
	"EquityLens/internal/service/provider"
	"EquityLens/pkg/util"
)

const defaultBaseURL = "https://finnhub.io/api/v1"

// Client fetches analyst recommendation trends and company news from the
// Finnhub REST API.
type Client struct {
	apiKey    string
	baseURL   string
	transport *provider.Transport
	newsDays  int
	now       func() time.Time
}

// Option configures Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// New creates a Finnhub client pacing requests at requestsPerSec.
func New(apiKey string, requestsPerSec float64, opts ...Option) drepo.ProviderClient {
	c := &Client{
		apiKey:    apiKey,
		baseURL:   defaultBaseURL,
		transport: provider.NewTransport("finnhub", requestsPerSec, nil),
		newsDays:  14,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string { return "finnhub" }

func (c *Client) Categories() []models.Category {
	return []models.Category{models.CategoryRecommendations, models.CategoryNews}
}

func (c *Client) Fetch(ctx context.Context, category models.Category, key string) (models.RawPayload, error) {
	switch category {
	case models.CategoryRecommendations:
		return c.recommendations(ctx, key)
	case models.CategoryNews:
		return c.companyNews(ctx, key)
	default:
		return nil, provider.Wrap(c.Name(), category, 0, provider.ErrNotFound)
	}
}

func (c *Client) recommendations(ctx context.Context, symbol string) (models.RawPayload, error) {
	var rows []RecommendationTrend
	query := map[string]string{"symbol": symbol, "token": c.apiKey}
	if err := c.transport.GetJSON(ctx, models.CategoryRecommendations, c.baseURL+"/stock/recommendation", query, &rows); err != nil {
		return nil, err
	}
	return &RecommendationTrends{Symbol: symbol, Trends: rows}, nil
}

func (c *Client) companyNews(ctx context.Context, symbol string) (models.RawPayload, error) {
	from, to := util.DayWindow(c.now(), c.newsDays)
	var rows []NewsItem
	query := map[string]string{
		"symbol": symbol,
		"from":   from,
		"to":     to,
		"token":  c.apiKey,
	}
	if err := c.transport.GetJSON(ctx, models.CategoryNews, c.baseURL+"/company-news", query, &rows); err != nil {
		return nil, err
	}
	return &CompanyNews{Symbol: symbol, Items: rows}, nil
}
