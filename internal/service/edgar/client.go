package edgar

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"EquityLens/internal/domain/models"
	drepo "EquityLens/internal/domain/repository"
	"EquityLens/internal/service/provider"
)

const defaultBaseURL = "https://data.sec.gov"

// Client fetches company facts, filings and Form 4 insider activity from SEC
// EDGAR. EDGAR keys everything by CIK; the client resolves symbols through
// the public ticker table and keeps the mapping for the process lifetime
// (the table changes rarely and is large).
type Client struct {
	baseURL   string
	transport *provider.Transport

	mu   sync.Mutex
	ciks map[string]string // upper-case symbol -> zero-padded CIK
}

// Option configures Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// New creates an EDGAR client. SEC requires a descriptive User-Agent with a
// contact address; requests are paced at requestsPerSec.
func New(userAgent string, requestsPerSec float64, opts ...Option) drepo.ProviderClient {
	c := &Client{
		baseURL: defaultBaseURL,
		transport: provider.NewTransport("edgar", requestsPerSec, map[string]string{
			"User-Agent":      userAgent,
			"Accept-Encoding": "gzip, deflate",
		}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string { return "edgar" }

func (c *Client) Categories() []models.Category {
	return []models.Category{
		models.CategoryProfile,
		models.CategoryFinancials,
		models.CategoryInsiders,
	}
}

func (c *Client) Fetch(ctx context.Context, category models.Category, key string) (models.RawPayload, error) {
	cik, err := c.resolveCIK(ctx, key)
	if err != nil {
		return nil, err
	}

	switch category {
	case models.CategoryProfile, models.CategoryFinancials:
		return c.companyFacts(ctx, key, cik, category)
	case models.CategoryInsiders:
		return c.insiderFilings(ctx, key, cik)
	default:
		return nil, provider.Wrap(c.Name(), category, 0, provider.ErrNotFound)
	}
}

func (c *Client) companyFacts(ctx context.Context, symbol, cik string, category models.Category) (models.RawPayload, error) {
	var payload CompanyFacts
	url := fmt.Sprintf("%s/api/xbrl/companyfacts/CIK%s.json", c.baseURL, cik)
	if err := c.transport.GetJSON(ctx, category, url, nil, &payload); err != nil {
		return nil, err
	}
	payload.Symbol = strings.ToUpper(symbol)
	payload.Kind = category
	return &payload, nil
}

func (c *Client) insiderFilings(ctx context.Context, symbol, cik string) (models.RawPayload, error) {
	var payload Submissions
	url := fmt.Sprintf("%s/submissions/CIK%s.json", c.baseURL, cik)
	if err := c.transport.GetJSON(ctx, models.CategoryInsiders, url, nil, &payload); err != nil {
		return nil, err
	}
	payload.Symbol = strings.ToUpper(symbol)
	return &payload, nil
}

// resolveCIK maps a ticker symbol to its zero-padded CIK using the public
// company ticker table, fetched once per process. Concurrent category
// fetches for one symbol share the mapping under the lock.
func (c *Client) resolveCIK(ctx context.Context, symbol string) (string, error) {
	upper := strings.ToUpper(symbol)
	c.mu.Lock()
	cik, ok := c.ciks[upper]
	c.mu.Unlock()
	if ok {
		return cik, nil
	}

	var table map[string]struct {
		CIK    int64  `json:"cik_str"`
		Ticker string `json:"ticker"`
		Title  string `json:"title"`
	}
	if err := c.transport.GetJSON(ctx, models.CategoryProfile,
		"https://www.sec.gov/files/company_tickers.json", nil, &table); err != nil {
		return "", err
	}

	c.mu.Lock()
	if c.ciks == nil {
		c.ciks = make(map[string]string, len(table))
	}
	for _, row := range table {
		c.ciks[strings.ToUpper(row.Ticker)] = fmt.Sprintf("%010d", row.CIK)
	}
	cik, ok = c.ciks[upper]
	c.mu.Unlock()

	if !ok {
		return "", provider.Wrap(c.Name(), models.CategoryProfile, 0, provider.ErrNotFound)
	}
	return cik, nil
}
