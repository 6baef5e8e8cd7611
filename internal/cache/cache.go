// Package cache holds every restaurant known to the process together with
// the search indices built from them. Records and indices are published as
// one generation: readers always see a record for every indexed ID, and a
// rebuild never exposes a half-built index.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/restaurant"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/search/builder"
	apperrors "github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/tracing"
	"golang.org/x/sync/singleflight"
)

// Loader is the part of the record store a rebuild needs.
type Loader interface {
	FindAll(ctx context.Context) ([]*restaurant.Restaurant, error)
}

type Cache struct {
	loader  Loader
	metrics *metrics.Metrics
	logger  *slog.Logger

	current atomic.Pointer[generation]
	group   singleflight.Group

	// mu orders publication and reset against upserts that arrive while a
	// rebuild is running.
	mu      sync.Mutex
	epoch   uint64
	pending map[uint64]map[string]*restaurant.Restaurant

	rebuilds    atomic.Int64
	lastBuildNs atomic.Int64
}

// New creates an empty cache. m may be nil.
func New(loader Loader, m *metrics.Metrics) *Cache {
	return &Cache{
		loader:  loader,
		metrics: m,
		logger:  slog.Default().With("component", "restaurant-cache"),
		pending: make(map[uint64]map[string]*restaurant.Restaurant),
	}
}

// Loaded reports whether a generation is currently published.
func (c *Cache) Loaded() bool {
	return c.current.Load() != nil
}

// EnsureReady returns the published generation, building one from the
// store when the cache is empty. Concurrent callers that find the cache
// empty share a single rebuild. The rebuild itself is not bound to ctx:
// once started it runs to completion even if every waiter gives up.
func (c *Cache) EnsureReady(ctx context.Context) (*View, error) {
	if g := c.current.Load(); g != nil {
		return &View{g: g}, nil
	}

	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()

	ch := c.group.DoChan(strconv.FormatUint(epoch, 10), func() (any, error) {
		return c.rebuild(context.WithoutCancel(ctx), epoch)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return &View{g: res.Val.(*generation)}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) rebuild(ctx context.Context, epoch uint64) (*generation, error) {
	if g := c.current.Load(); g != nil {
		return g, nil
	}

	c.mu.Lock()
	if c.epoch == epoch {
		c.pending[epoch] = make(map[string]*restaurant.Restaurant)
	}
	c.mu.Unlock()

	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "cache.rebuild")
	g, err := c.load(ctx)
	span.End(err)
	span.Log(c.logger)

	c.mu.Lock()
	defer c.mu.Unlock()
	queued := c.pending[epoch]
	delete(c.pending, epoch)
	if err != nil {
		c.observeRebuild("error", start)
		return nil, err
	}
	for _, r := range queued {
		g.apply(r)
	}
	if c.epoch == epoch {
		c.current.Store(g)
	}
	c.observeRebuild("success", start)
	c.setSize(len(g.records))
	c.logger.Info("restaurant cache rebuilt",
		"restaurants", len(g.records),
		"dishes", g.indices.DishVocabulary(),
		"replayed_upserts", len(queued),
		"duration", time.Since(start),
	)
	return g, nil
}

func (c *Cache) load(ctx context.Context) (*generation, error) {
	fetchCtx, fetch := tracing.StartChildSpan(ctx, "store.fetch")
	records, err := c.loader.FindAll(fetchCtx)
	fetch.SetAttr("records", len(records))
	fetch.End(err)
	if err != nil {
		c.logger.Error("fetching restaurants failed", "error", err)
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperrors.Newf(apperrors.ErrStoreUnavailable, http.StatusServiceUnavailable, "loading restaurants: %v", err)
	}

	buildCtx, build := tracing.StartChildSpan(ctx, "index.build")
	indices, err := builder.Build(buildCtx, records)
	build.End(err)
	if err != nil {
		c.logger.Error("building indices failed", "error", err)
		return nil, apperrors.Newf(apperrors.ErrIndexNotReady, http.StatusServiceUnavailable, "%v", err)
	}
	return newGeneration(records, indices), nil
}

// Upsert replaces r in the published generation and re-indexes it. With no
// generation published the record is dropped, since the next rebuild reads
// it from the store; during a rebuild it is queued and replayed onto the new
// generation before that generation is published.
func (c *Cache) Upsert(ctx context.Context, r *restaurant.Restaurant) error {
	if r == nil || r.ID == "" {
		return apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "restaurant id is required")
	}
	c.mu.Lock()
	g := c.current.Load()
	if g == nil {
		if queue, building := c.pending[c.epoch]; building {
			queue[r.ID] = r.Clone()
			c.mu.Unlock()
			c.countUpsert("deferred")
			return nil
		}
		c.mu.Unlock()
		c.countUpsert("skipped")
		return nil
	}
	c.mu.Unlock()

	g.apply(r.Clone())
	c.countUpsert("applied")
	c.setSize(g.size())
	return nil
}

// Reset discards the published generation. The next EnsureReady rebuilds
// from the store; a rebuild already running is not published.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.epoch++
	c.current.Store(nil)
	c.mu.Unlock()
	if c.metrics != nil {
		c.metrics.CacheResetsTotal.Inc()
	}
	c.setSize(0)
	c.logger.Info("restaurant cache reset")
}

// GetAll returns cached restaurants in store order, rebuilding first when
// the cache is empty or forceReset is set.
func (c *Cache) GetAll(ctx context.Context, onlyActive, forceReset bool) ([]*restaurant.Restaurant, error) {
	if forceReset {
		c.Reset()
	}
	v, err := c.EnsureReady(ctx)
	if err != nil {
		return nil, err
	}
	return v.All(onlyActive), nil
}

// Get returns the cached restaurant with the given id.
func (c *Cache) Get(ctx context.Context, id string) (*restaurant.Restaurant, error) {
	v, err := c.EnsureReady(ctx)
	if err != nil {
		return nil, err
	}
	r, ok := v.Get(id)
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrNotFound, http.StatusNotFound, "restaurant %s not found", id)
	}
	return r, nil
}

type Stats struct {
	Loaded          bool      `json:"loaded"`
	Restaurants     int       `json:"restaurants"`
	NameEntries     int       `json:"nameEntries"`
	CombinedEntries int       `json:"combinedEntries"`
	DishNames       int       `json:"dishNames"`
	BuiltAt         time.Time `json:"builtAt,omitzero"`
	Rebuilds        int64     `json:"rebuilds"`
	LastRebuild     string    `json:"lastRebuild,omitempty"`
}

func (c *Cache) Stats() Stats {
	s := Stats{Rebuilds: c.rebuilds.Load()}
	if ns := c.lastBuildNs.Load(); ns > 0 {
		s.LastRebuild = time.Duration(ns).Round(time.Millisecond).String()
	}
	g := c.current.Load()
	if g == nil {
		return s
	}
	s.Loaded = true
	s.Restaurants = g.size()
	s.NameEntries = g.indices.Names.Len()
	s.CombinedEntries = g.indices.Combined.Len()
	s.DishNames = g.indices.Dishes.Len()
	s.BuiltAt = g.builtAt
	return s
}

func (c *Cache) observeRebuild(status string, start time.Time) {
	elapsed := time.Since(start)
	if status == "success" {
		c.rebuilds.Add(1)
		c.lastBuildNs.Store(int64(elapsed))
	}
	if c.metrics == nil {
		return
	}
	c.metrics.CacheRebuildsTotal.WithLabelValues(status).Inc()
	c.metrics.CacheRebuildDuration.Observe(elapsed.Seconds())
}

func (c *Cache) countUpsert(status string) {
	if c.metrics != nil {
		c.metrics.IndexUpsertsTotal.WithLabelValues(status).Inc()
	}
}

func (c *Cache) setSize(n int) {
	if c.metrics != nil {
		c.metrics.CacheRestaurants.Set(float64(n))
	}
}
