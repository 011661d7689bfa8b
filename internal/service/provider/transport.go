package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"EquityLens/internal/domain/models"
	xhttp "EquityLens/pkg/http"

	"golang.org/x/time/rate"
)

// Transport performs paced JSON GETs on behalf of a provider client and maps
// transport failures onto the shared failure classes. It never retries; the
// retry supervisor owns that policy.
type Transport struct {
	name    string
	client  *xhttp.Client
	limiter *rate.Limiter
	headers map[string]string
}

// NewTransport creates a transport pacing requests at requestsPerSec.
func NewTransport(name string, requestsPerSec float64, headers map[string]string) *Transport {
	if requestsPerSec <= 0 {
		requestsPerSec = 1
	}
	return &Transport{
		name:    name,
		client:  xhttp.NewClient(xhttp.WithTimeout(30 * time.Second)),
		limiter: rate.NewLimiter(rate.Limit(requestsPerSec), 1),
		headers: headers,
	}
}

// GetJSON fetches url with pacing applied and decodes the body into dest.
// Non-2xx statuses come back as classified provider errors.
func (t *Transport) GetJSON(ctx context.Context, category models.Category, url string, query map[string]string, dest interface{}) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("pacing wait: %w", err)
	}

	opts := &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     url,
		Headers: t.headers,
	}
	if len(query) > 0 {
		opts.QueryParams = make(map[string][]string, len(query))
		for k, v := range query {
			opts.QueryParams[k] = []string{v}
		}
	}

	resp, err := t.client.SendRequest(ctx, opts)
	if err != nil {
		// Network-level failures count as Unavailable.
		return Wrap(t.name, category, 0, ErrUnavailable)
	}
	defer resp.Body.Close()

	if class := ClassifyStatus(resp.StatusCode); class != nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Wrap(t.name, category, resp.StatusCode, class)
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode %s response: %w", t.name, err)
	}
	return nil
}
