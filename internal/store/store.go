// Package store holds the in-memory snapshot state served to readers.
// Bundles replace atomically per symbol, readers never observe a half
// refreshed mix, and concurrent fills for the same symbol coalesce into one
// upstream pipeline run.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"EquityLens/internal/domain/models"
	drepo "EquityLens/internal/domain/repository"
	"EquityLens/pkg/cache"
	"EquityLens/pkg/logger"
)

// Snapshot wraps one published bundle with its publication time. Staleness
// is judged against UpdatedAt, not the bundle's as-of date.
type Snapshot struct {
	Bundle    *models.Bundle `json:"bundle"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// BundleStore keeps the latest bundle per symbol.
type BundleStore struct {
	mu        sync.RWMutex
	snapshots map[string]*Snapshot

	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	cache drepo.SnapshotCache
	l     *logger.Logger
}

// BundleOption configures BundleStore.
type BundleOption func(*BundleStore)

// WithNow injects the clock used for staleness checks.
func WithNow(now func() time.Time) BundleOption {
	return func(s *BundleStore) { s.now = now }
}

// WithSnapshotCache enables write-through persistence of published bundles.
func WithSnapshotCache(c drepo.SnapshotCache) BundleOption {
	return func(s *BundleStore) { s.cache = c }
}

// WithLogger sets the store logger.
func WithLogger(l *logger.Logger) BundleOption {
	return func(s *BundleStore) { s.l = l }
}

// NewBundleStore creates a store whose snapshots go stale after ttl.
func NewBundleStore(ttl time.Duration, opts ...BundleOption) *BundleStore {
	s := &BundleStore{
		snapshots: make(map[string]*Snapshot),
		ttl:       ttl,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the snapshot for symbol and whether it is still fresh. A
// missing symbol returns nil, false.
func (s *BundleStore) Get(symbol string) (*Snapshot, bool) {
	s.mu.RLock()
	snap := s.snapshots[symbol]
	s.mu.RUnlock()
	if snap == nil {
		return nil, false
	}
	return snap, s.now().Sub(snap.UpdatedAt) < s.ttl
}

// Put atomically publishes a new bundle for its symbol. The previous
// snapshot stays visible to readers until this replacement lands.
func (s *BundleStore) Put(ctx context.Context, b *models.Bundle) {
	snap := &Snapshot{Bundle: b, UpdatedAt: s.now()}
	s.mu.Lock()
	s.snapshots[b.Symbol] = snap
	s.mu.Unlock()

	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, bundleKey(b.Symbol), snap, s.ttl); err != nil && s.l != nil {
		s.l.Warn("snapshot cache write failed",
			logger.String("symbol", b.Symbol),
			logger.Error(err),
		)
	}
}

// Fill returns a fresh snapshot, running fetch at most once no matter how
// many callers ask for the same symbol at the same time. Late arrivals
// share the first caller's result, error included.
func (s *BundleStore) Fill(ctx context.Context, symbol string, fetch func(context.Context) (*models.Bundle, error)) (*Snapshot, error) {
	if snap, fresh := s.Get(symbol); fresh {
		return snap, nil
	}

	v, err, _ := s.group.Do(symbol, func() (interface{}, error) {
		// Re-check under the flight: a just-finished fill may have
		// published while this caller was queued.
		if snap, fresh := s.Get(symbol); fresh {
			return snap, nil
		}
		if s.cache != nil {
			if snap := s.loadCached(ctx, symbol); snap != nil {
				return snap, nil
			}
		}
		b, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		s.Put(ctx, b)
		snap, _ := s.Get(symbol)
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// ForceFill runs fetch regardless of snapshot freshness. It holds the
// same per-symbol flight as Fill, so a forced refresh overlapping
// another forced refresh or a miss-triggered fill still runs one
// pipeline whose result every caller shares.
func (s *BundleStore) ForceFill(ctx context.Context, symbol string, fetch func(context.Context) (*models.Bundle, error)) (*Snapshot, error) {
	v, err, _ := s.group.Do(symbol, func() (interface{}, error) {
		b, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		s.Put(ctx, b)
		snap, _ := s.Get(symbol)
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// loadCached restores a persisted snapshot if it is present and still
// fresh. Cache errors degrade to a live fetch.
func (s *BundleStore) loadCached(ctx context.Context, symbol string) *Snapshot {
	var snap Snapshot
	if err := s.cache.Get(ctx, bundleKey(symbol), &snap); err != nil {
		return nil
	}
	if snap.Bundle == nil || s.now().Sub(snap.UpdatedAt) >= s.ttl {
		return nil
	}
	s.mu.Lock()
	s.snapshots[symbol] = &snap
	s.mu.Unlock()
	return &snap
}

// Symbols lists every symbol currently holding a snapshot, sorted.
func (s *BundleStore) Symbols() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.snapshots))
	for sym := range s.snapshots {
		out = append(out, sym)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}

func bundleKey(symbol string) string {
	return cache.GenerateKey("bundle", symbol)
}

// EconomicStore keeps the latest observation window per macro series.
type EconomicStore struct {
	mu     sync.RWMutex
	series map[string]economicEntry

	ttl   time.Duration
	now   func() time.Time
	cache drepo.SnapshotCache
	l     *logger.Logger
}

type economicEntry struct {
	observations []models.EconomicIndicator
	updatedAt    time.Time
}

// economicRecord is the persisted form of one series window.
type economicRecord struct {
	Observations []models.EconomicIndicator `json:"observations"`
	UpdatedAt    time.Time                  `json:"updated_at"`
}

// NewEconomicStore creates a store whose series go stale after ttl.
func NewEconomicStore(ttl time.Duration, now func() time.Time) *EconomicStore {
	if now == nil {
		now = time.Now
	}
	return &EconomicStore{
		series: make(map[string]economicEntry),
		ttl:    ttl,
		now:    now,
	}
}

// SetSnapshotCache enables write-through persistence of series windows.
func (s *EconomicStore) SetSnapshotCache(c drepo.SnapshotCache) { s.cache = c }

// SetLogger injects a structured logger.
func (s *EconomicStore) SetLogger(l *logger.Logger) { s.l = l }

// Put replaces the observation window for one series.
func (s *EconomicStore) Put(ctx context.Context, seriesID string, obs []models.EconomicIndicator) {
	updated := s.now()
	s.mu.Lock()
	s.series[seriesID] = economicEntry{observations: obs, updatedAt: updated}
	s.mu.Unlock()

	if s.cache == nil {
		return
	}
	rec := economicRecord{Observations: obs, UpdatedAt: updated}
	if err := s.cache.Set(ctx, economicKey(seriesID), rec, s.ttl); err != nil && s.l != nil {
		s.l.Warn("series cache write failed",
			logger.String("series", seriesID),
			logger.Error(err),
		)
	}
}

// Latest returns the newest observation for a series and whether the
// series is still fresh. An unknown series falls back to the persisted
// window before reporting a miss.
func (s *EconomicStore) Latest(ctx context.Context, seriesID string) (models.EconomicIndicator, bool) {
	s.mu.RLock()
	entry, ok := s.series[seriesID]
	s.mu.RUnlock()
	if !ok && s.cache != nil {
		entry, ok = s.loadCachedSeries(ctx, seriesID)
	}
	if !ok || len(entry.observations) == 0 {
		return models.EconomicIndicator{}, false
	}
	latest := entry.observations[0]
	for _, o := range entry.observations[1:] {
		if o.Date.After(latest.Date) {
			latest = o
		}
	}
	return latest, s.now().Sub(entry.updatedAt) < s.ttl
}

func (s *EconomicStore) loadCachedSeries(ctx context.Context, seriesID string) (economicEntry, bool) {
	var rec economicRecord
	if err := s.cache.Get(ctx, economicKey(seriesID), &rec); err != nil {
		return economicEntry{}, false
	}
	entry := economicEntry{observations: rec.Observations, updatedAt: rec.UpdatedAt}
	s.mu.Lock()
	s.series[seriesID] = entry
	s.mu.Unlock()
	return entry, true
}

func economicKey(seriesID string) string {
	return cache.GenerateKeyWithParams("economic", "series", seriesID)
}
