package fred

import (
	"context"
	"time"

	"EquityLens/internal/domain/models"
	drepo "EquityLens/internal/domain/repository"
	"EquityLens/internal/service/provider"
	"EquityLens/pkg/util"
)

const defaultBaseURL = "https://api.stlouisfed.org/fred"

// Client fetches macroeconomic series observations from FRED. The fetch key
// is the FRED series id (DFF, UNRATE, CPIAUCSL, GDP, T10Y2Y, ...).
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

// New creates a FRED client pacing requests at requestsPerSec.
func New(apiKey string, requestsPerSec float64, opts ...Option) drepo.ProviderClient {
	c := &Client{
		apiKey:       apiKey,
		baseURL:      defaultBaseURL,
		transport:    provider.NewTransport("fred", requestsPerSec, nil),
		lookbackDays: 365,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string { return "fred" }

func (c *Client) Categories() []models.Category {
	return []models.Category{models.CategoryEconomic}
}

func (c *Client) Fetch(ctx context.Context, category models.Category, key string) (models.RawPayload, error) {
	if category != models.CategoryEconomic {
		return nil, provider.Wrap(c.Name(), category, 0, provider.ErrNotFound)
	}

	from, to := util.DayWindow(c.now(), c.lookbackDays)
	var payload Observations
	query := map[string]string{
		"series_id":         key,
		"api_key":           c.apiKey,
		"file_type":         "json",
		"observation_start": from,
		"observation_end":   to,
	}
	if err := c.transport.GetJSON(ctx, category, c.baseURL+"/series/observations", query, &payload); err != nil {
		return nil, err
	}
	payload.SeriesID = key
	return &payload, nil
}
