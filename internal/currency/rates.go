package currency

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultCacheTTL is how long a current-rate snapshot stays fresh.
const DefaultCacheTTL = 6 * time.Hour

// Provider fetches a rate table for a base currency. An empty date means
// current rates; otherwise date is an ISO date (YYYY-MM-DD) for historical
// rates. Providers may be slow or networked, which is why results are
// cached.
type Provider interface {
	// FetchRates returns units of each currency per one unit of the base.
	FetchRates(ctx context.Context, baseCurrency, date string) (Rates, error)
	// Source names the provider for snapshot bookkeeping.
	Source() string
}

// Snapshot is a rate table pinned to a point in time.
type Snapshot struct {
	BaseCurrency string    `json:"base_currency"`
	Rates        Rates     `json:"rates"`
	Timestamp    time.Time `json:"timestamp"`
	Source       string    `json:"source"`
	IsHistorical bool      `json:"is_historical"`
	Date         string    `json:"date,omitempty"`
}

// SnapshotStore persists historical snapshots across restarts. Implemented
// by the document database; optional.
type SnapshotStore interface {
	SaveRateSnapshot(snapshot *Snapshot) error
	GetRateSnapshot(date string) (*Snapshot, error)
}

// RateCache caches one current snapshot with a TTL plus historical
// snapshots keyed by date, which live for the process lifetime (and beyond,
// when a store is attached). It is safe for concurrent use.
type RateCache struct {
	mu         sync.Mutex
	provider   Provider
	store      SnapshotStore
	ttl        time.Duration
	clock      func() time.Time
	current    *Snapshot
	historical map[string]*Snapshot
}

// NewRateCache creates a cache over the given provider. A non-positive ttl
// selects DefaultCacheTTL.
func NewRateCache(provider Provider, ttl time.Duration) *RateCache {
	return NewRateCacheWithDeps(provider, ttl, nil, time.Now)
}

// NewRateCacheWithDeps creates a cache with an optional persistent store
// and a custom clock for testing.
func NewRateCacheWithDeps(provider Provider, ttl time.Duration, store SnapshotStore, clock func() time.Time) *RateCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if clock == nil {
		clock = time.Now
	}
	return &RateCache{
		provider:   provider,
		store:      store,
		ttl:        ttl,
		clock:      clock,
		historical: make(map[string]*Snapshot),
	}
}

// Rates returns the rate table for the given date ("" for current rates),
// fetching from the provider on a cache miss.
func (c *RateCache) Rates(ctx context.Context, date string) (Rates, error) {
	snapshot, err := c.Get(ctx, date)
	if err != nil {
		return nil, err
	}
	return snapshot.Rates, nil
}

// Get returns the snapshot for the given date ("" for current rates).
func (c *RateCache) Get(ctx context.Context, date string) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()

	if date != "" {
		if s, ok := c.historical[date]; ok {
			slog.Debug("Using cached historical rates", "date", date)
			return s, nil
		}
		if c.store != nil {
			if s, err := c.store.GetRateSnapshot(date); err == nil && s != nil {
				c.historical[date] = s
				return s, nil
			}
		}
	} else if c.current != nil && now.Sub(c.current.Timestamp) < c.ttl {
		slog.Debug("Using cached current rates")
		return c.current, nil
	}

	slog.Info("Fetching exchange rates", "historical", date != "", "date", date)

	rates, err := c.provider.FetchRates(ctx, BaseCurrency, date)
	if err != nil {
		return nil, fmt.Errorf("fetching exchange rates: %w", err)
	}

	snapshot := &Snapshot{
		BaseCurrency: BaseCurrency,
		Rates:        rates,
		Timestamp:    now,
		IsHistorical: date != "",
		Date:         date,
	}

	if date != "" {
		snapshot.Source = c.provider.Source() + "-historical"
		c.historical[date] = snapshot
		if c.store != nil {
			if err := c.store.SaveRateSnapshot(snapshot); err != nil {
				slog.Warn("Failed to persist rate snapshot", "date", date, "error", err)
			}
		}
	} else {
		snapshot.Source = c.provider.Source() + "-current"
		c.current = snapshot
	}

	return snapshot, nil
}

// SimulatedProvider generates deterministic rate tables from the static
// default table, perturbing historical rates by up to ±3% based on the day
// of month. It stands in for a real FX history source and can be swapped
// out without touching the cache or converter.
type SimulatedProvider struct{}

// Source identifies the simulated provider.
func (SimulatedProvider) Source() string { return "simulation" }

// FetchRates returns the default table, perturbed when a date is given.
func (SimulatedProvider) FetchRates(_ context.Context, baseCurrency, date string) (Rates, error) {
	rates := DefaultRates.Clone()
	if date == "" {
		return rates, nil
	}

	parts := strings.Split(date, "-")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid date %q, want YYYY-MM-DD", date)
	}
	day, err := strconv.Atoi(parts[2])
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	// Vary by ±3% depending on the day of month, deterministically.
	dayValue := float64(day) / 31
	variation := 1 + (dayValue*0.06 - 0.03)
	for code := range rates {
		if code != baseCurrency {
			rates[code] *= variation
		}
	}
	return rates, nil
}
