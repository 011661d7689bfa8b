package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EquityLens/internal/domain/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 8, 27, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (c *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.entries[key] = data
	c.mu.Unlock()
	return nil
}

func (c *fakeCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	data, ok := c.entries[key]
	c.mu.Unlock()
	if !ok {
		return errors.New("cache miss")
	}
	return json.Unmarshal(data, dest)
}

func TestBundleStorePutGetRoundTrip(t *testing.T) {
	clock := newFakeClock()
	s := NewBundleStore(15*time.Minute, WithNow(clock.Now))

	_, fresh := s.Get("AAPL")
	assert.False(t, fresh)

	s.Put(context.Background(), &models.Bundle{Symbol: "AAPL"})
	snap, fresh := s.Get("AAPL")
	require.NotNil(t, snap)
	assert.True(t, fresh)
	assert.Equal(t, "AAPL", snap.Bundle.Symbol)
	assert.Equal(t, clock.Now(), snap.UpdatedAt)
}

func TestBundleStoreStaleAfterTTL(t *testing.T) {
	clock := newFakeClock()
	s := NewBundleStore(15*time.Minute, WithNow(clock.Now))
	s.Put(context.Background(), &models.Bundle{Symbol: "AAPL"})

	clock.Advance(14 * time.Minute)
	_, fresh := s.Get("AAPL")
	assert.True(t, fresh)

	clock.Advance(2 * time.Minute)
	snap, fresh := s.Get("AAPL")
	require.NotNil(t, snap, "stale snapshots stay readable")
	assert.False(t, fresh)
}

func TestFillCoalescesConcurrentCallers(t *testing.T) {
	clock := newFakeClock()
	s := NewBundleStore(15*time.Minute, WithNow(clock.Now))

	var calls int64
	release := make(chan struct{})
	fetch := func(ctx context.Context) (*models.Bundle, error) {
		atomic.AddInt64(&calls, 1)
		<-release
		return &models.Bundle{Symbol: "AAPL"}, nil
	}

	const workers = 8
	var wg sync.WaitGroup
	snaps := make([]*Snapshot, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snaps[i], errs[i] = s.Fill(context.Background(), "AAPL", fetch)
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&calls), "one pipeline run for all callers")
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, snaps[i])
		assert.Equal(t, "AAPL", snaps[i].Bundle.Symbol)
	}
}

func TestFillSharesErrorAcrossCallers(t *testing.T) {
	clock := newFakeClock()
	s := NewBundleStore(15*time.Minute, WithNow(clock.Now))

	want := errors.New("upstream down")
	release := make(chan struct{})
	var calls int64
	fetch := func(ctx context.Context) (*models.Bundle, error) {
		atomic.AddInt64(&calls, 1)
		<-release
		return nil, want
	}

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Fill(context.Background(), "AAPL", fetch)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
	for i := 0; i < 4; i++ {
		assert.ErrorIs(t, errs[i], want)
	}
}

func TestFillFreshSnapshotSkipsFetch(t *testing.T) {
	clock := newFakeClock()
	s := NewBundleStore(15*time.Minute, WithNow(clock.Now))
	s.Put(context.Background(), &models.Bundle{Symbol: "AAPL"})

	snap, err := s.Fill(context.Background(), "AAPL", func(ctx context.Context) (*models.Bundle, error) {
		t.Fatal("fetch must not run for a fresh snapshot")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", snap.Bundle.Symbol)
}

func TestForceFillRefetchesDespiteFreshSnapshot(t *testing.T) {
	clock := newFakeClock()
	s := NewBundleStore(15*time.Minute, WithNow(clock.Now))
	s.Put(context.Background(), &models.Bundle{Symbol: "AAPL"})

	var calls int
	snap, err := s.ForceFill(context.Background(), "AAPL", func(ctx context.Context) (*models.Bundle, error) {
		calls++
		return &models.Bundle{Symbol: "AAPL", AsOf: clock.Now()}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "forced fill ignores freshness")
	assert.Equal(t, clock.Now(), snap.UpdatedAt)
}

func TestForceFillCoalescesConcurrentCallers(t *testing.T) {
	clock := newFakeClock()
	s := NewBundleStore(15*time.Minute, WithNow(clock.Now))
	s.Put(context.Background(), &models.Bundle{Symbol: "AAPL"})

	var calls int64
	release := make(chan struct{})
	fetch := func(ctx context.Context) (*models.Bundle, error) {
		atomic.AddInt64(&calls, 1)
		<-release
		return &models.Bundle{Symbol: "AAPL"}, nil
	}

	const workers = 4
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.ForceFill(context.Background(), "AAPL", fetch)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&calls), "one pipeline run for all forced callers")
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
	}
}

func TestFillRefetchesAfterStaleness(t *testing.T) {
	clock := newFakeClock()
	s := NewBundleStore(15*time.Minute, WithNow(clock.Now))
	s.Put(context.Background(), &models.Bundle{Symbol: "AAPL"})
	clock.Advance(16 * time.Minute)

	var calls int
	snap, err := s.Fill(context.Background(), "AAPL", func(ctx context.Context) (*models.Bundle, error) {
		calls++
		return &models.Bundle{Symbol: "AAPL", AsOf: clock.Now()}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, clock.Now(), snap.UpdatedAt)
}

func TestBundleStoreSymbolsSorted(t *testing.T) {
	s := NewBundleStore(time.Minute)
	s.Put(context.Background(), &models.Bundle{Symbol: "MSFT"})
	s.Put(context.Background(), &models.Bundle{Symbol: "AAPL"})
	assert.Equal(t, []string{"AAPL", "MSFT"}, s.Symbols())
}

func TestEconomicStoreLatestAndStaleness(t *testing.T) {
	clock := newFakeClock()
	ctx := context.Background()
	s := NewEconomicStore(30*time.Minute, clock.Now)

	_, fresh := s.Latest(ctx, "DFF")
	assert.False(t, fresh)

	s.Put(ctx, "DFF", []models.EconomicIndicator{
		{SeriesID: "DFF", Date: time.Date(2025, 8, 25, 0, 0, 0, 0, time.UTC), Value: 4.30},
		{SeriesID: "DFF", Date: time.Date(2025, 8, 26, 0, 0, 0, 0, time.UTC), Value: 4.33},
	})

	latest, fresh := s.Latest(ctx, "DFF")
	assert.True(t, fresh)
	assert.Equal(t, 4.33, latest.Value)

	clock.Advance(31 * time.Minute)
	latest, fresh = s.Latest(ctx, "DFF")
	assert.False(t, fresh)
	assert.Equal(t, 4.33, latest.Value, "stale data stays readable")
}

func TestEconomicStoreRestoresFromCache(t *testing.T) {
	clock := newFakeClock()
	ctx := context.Background()
	c := newFakeCache()

	warm := NewEconomicStore(30*time.Minute, clock.Now)
	warm.SetSnapshotCache(c)
	warm.Put(ctx, "UNRATE", []models.EconomicIndicator{
		{SeriesID: "UNRATE", Date: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), Value: 4.1},
	})

	// A fresh store with the same cache sees the persisted window.
	cold := NewEconomicStore(30*time.Minute, clock.Now)
	cold.SetSnapshotCache(c)
	latest, fresh := cold.Latest(ctx, "UNRATE")
	assert.True(t, fresh)
	assert.Equal(t, 4.1, latest.Value)

	_, ok := cold.Latest(ctx, "GDP")
	assert.False(t, ok)
}
