// Package query answers directory lookups: name and dish suggestions,
// boosted restaurant search, proximity search and listing. Every lookup
// runs against one cache generation so index hits always resolve.
package query

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/geo"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/restaurant"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/search/builder"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/search/index"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/metrics"
)

// Basis selects which field of the combined index a search favours.
type Basis string

const (
	BasisDish       Basis = "byDish"
	BasisRestaurant Basis = "byRestaurant"
)

type Suggestions struct {
	DishNames       []string `json:"dishNames"`
	RestaurantNames []string `json:"restaurantNames"`
}

// Nearby is a restaurant annotated with its distance from the query point
// in kilometres, rounded to two decimals.
type Nearby struct {
	*restaurant.Restaurant
	Distance float64 `json:"distance"`
}

type Engine struct {
	cache   *cache.Cache
	cfg     config.SearchConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates an Engine. m may be nil.
func New(c *cache.Cache, cfg config.SearchConfig, m *metrics.Metrics) *Engine {
	return &Engine{
		cache:   c,
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default().With("component", "query-engine"),
	}
}

func normalizeText(text string) (string, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return "", apperrors.New(apperrors.ErrInvalidQuery, http.StatusBadRequest, "searchText is required")
	}
	return text, nil
}

func activeOnly(d index.Document) bool {
	return d.Active
}

// Suggest returns up to SuggestionLimit restaurant names and, independently,
// up to SuggestionLimit dish names matching text.
func (e *Engine) Suggest(ctx context.Context, text string, onlyActive bool) (res *Suggestions, err error) {
	start := time.Now()
	defer func() { e.observe("suggest", start, suggestionCount(res), err) }()

	text, err = normalizeText(text)
	if err != nil {
		return nil, err
	}
	v, err := e.cache.EnsureReady(ctx)
	if err != nil {
		return nil, err
	}

	nameQuery := index.Query{Text: text, Prefix: e.cfg.PrefixSuggestions, Limit: e.cfg.SuggestionLimit}
	if onlyActive {
		nameQuery.Filter = activeOnly
	}
	dishQuery := index.Query{Text: text, Prefix: e.cfg.PrefixSuggestions, Limit: e.cfg.SuggestionLimit}

	res = &Suggestions{DishNames: []string{}, RestaurantNames: []string{}}
	err = v.Read(func(r cache.Reader) error {
		for _, h := range r.Indices().Names.Search(nameQuery) {
			res.RestaurantNames = append(res.RestaurantNames, h.Doc.Value(builder.FieldName))
		}
		for _, h := range r.Indices().Dishes.Search(dishQuery) {
			res.DishNames = append(res.DishNames, h.Doc.Value(builder.FieldDishName))
		}
		return nil
	})
	return res, err
}

// Search ranks restaurants on the combined index and resolves the top
// ResultLimit hits to full records.
func (e *Engine) Search(ctx context.Context, text string, basis Basis, onlyActive bool) (out []*restaurant.Restaurant, err error) {
	start := time.Now()
	defer func() { e.observe("search", start, len(out), err) }()

	text, err = normalizeText(text)
	if err != nil {
		return nil, err
	}
	v, err := e.cache.EnsureReady(ctx)
	if err != nil {
		return nil, err
	}

	q := index.Query{Text: text, Limit: e.cfg.ResultLimit}
	switch basis {
	case BasisDish:
		q.Boost = map[string]float64{builder.FieldDishes: e.cfg.BoostFactor}
	case BasisRestaurant:
		q.Boost = map[string]float64{builder.FieldName: e.cfg.BoostFactor}
	}
	if onlyActive {
		q.Filter = activeOnly
	}

	err = v.Read(func(r cache.Reader) error {
		out, err = resolve(r.Indices().Combined.Search(q), r.Get)
		return err
	})
	if err != nil {
		logger.FromContext(ctx).Error("search failed",
			"component", "query-engine",
			"query", text,
			"error", err,
		)
		return nil, err
	}
	return out, nil
}

// resolve maps hits to records in rank order. A hit with no record means
// the cache and index disagree, which fails the whole request.
func resolve(hits []index.Hit, lookup func(id string) (*restaurant.Restaurant, bool)) ([]*restaurant.Restaurant, error) {
	out := make([]*restaurant.Restaurant, 0, len(hits))
	for _, h := range hits {
		rec, ok := lookup(h.ID)
		if !ok {
			return nil, apperrors.Newf(apperrors.ErrConsistencyViolation, http.StatusInternalServerError,
				"restaurant %s is indexed but not cached", h.ID)
		}
		out = append(out, rec)
	}
	return out, nil
}

// ByLocation returns active restaurants within radiusKm of point, nearest
// first. A non-positive radius uses DefaultRadiusKm.
func (e *Engine) ByLocation(ctx context.Context, point geo.Point, radiusKm float64) (out []Nearby, err error) {
	start := time.Now()
	defer func() { e.observe("nearby", start, len(out), err) }()

	if err := point.Validate(); err != nil {
		return nil, err
	}
	if radiusKm <= 0 {
		radiusKm = e.cfg.DefaultRadiusKm
	}
	if e.cfg.MaxRadiusKm > 0 && radiusKm > e.cfg.MaxRadiusKm {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
			"radius %.1f km exceeds the %.1f km limit", radiusKm, e.cfg.MaxRadiusKm)
	}

	all, err := e.cache.GetAll(ctx, true, false)
	if err != nil {
		return nil, err
	}
	out = []Nearby{}
	for _, r := range all {
		d := geo.DistanceKm(point, geo.Point{Latitude: r.Location.Latitude, Longitude: r.Location.Longitude})
		if d > radiusKm {
			continue
		}
		out = append(out, Nearby{Restaurant: r, Distance: d})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	for i := range out {
		out[i].Distance = geo.RoundKm(out[i].Distance)
	}
	return out, nil
}

// ListAll returns every cached restaurant in store order.
func (e *Engine) ListAll(ctx context.Context, onlyActive bool) ([]*restaurant.Restaurant, error) {
	return e.cache.GetAll(ctx, onlyActive, false)
}

func (e *Engine) observe(operation string, start time.Time, results int, err error) {
	if e.metrics == nil {
		return
	}
	outcome := "hit"
	switch {
	case err != nil:
		outcome = "error"
	case results == 0:
		outcome = "zero_result"
	}
	e.metrics.SearchQueriesTotal.WithLabelValues(operation, outcome).Inc()
	e.metrics.SearchLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err == nil {
		e.metrics.SearchResultsCount.WithLabelValues(operation).Observe(float64(results))
	}
}

func suggestionCount(s *Suggestions) int {
	if s == nil {
		return 0
	}
	return len(s.DishNames) + len(s.RestaurantNames)
}
