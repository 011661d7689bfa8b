package repository

import (
	"context"
	"time"

	"EquityLens/internal/domain/models"
)

// ProviderClient is a transport adapter for one external data source.
// Clients never retry internally; retry policy belongs to the supervisor.
type ProviderClient interface {
	Name() string
	Categories() []models.Category
	Fetch(ctx context.Context, category models.Category, key string) (models.RawPayload, error)
}

// ScoreHistory appends completed composite scores for later inspection.
type ScoreHistory interface {
	Record(ctx context.Context, score *models.InvestmentScore) error
	Close() error
}

// EventPublisher emits a compact event after each successful aggregation.
type EventPublisher interface {
	BundleUpdated(ctx context.Context, b *models.Bundle) error
	Close() error
}

// SnapshotCache persists the latest bundle per symbol and the latest
// observation per economic series across restarts.
type SnapshotCache interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
}

// Metrics records operational measurements for the aggregation engine.
type Metrics interface {
	RecordProviderRequest(provider string, category models.Category, outcome string)
	RecordRetryWait(provider string, seconds float64)
	RecordCacheLookup(kind string, hit bool)
	RecordValidationFailure(provider string)
	RecordPipelineDuration(seconds float64)
	RecordCompositeScore(symbol string, value float64)
}
