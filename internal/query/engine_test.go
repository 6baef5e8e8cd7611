package query

import (
	"context"
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/geo"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/restaurant"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/search/index"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var origin = geo.Point{Latitude: 12.9716, Longitude: 77.5946}

const kmPerDegree = 6371.0 * math.Pi / 180

func rec(id, name string, active bool, kmNorth float64, dishes ...string) *restaurant.Restaurant {
	r := &restaurant.Restaurant{
		ID:   id,
		Name: name,
		Location: restaurant.Location{
			Latitude:  origin.Latitude + kmNorth/kmPerDegree,
			Longitude: origin.Longitude,
		},
	}
	r.Metadata.IsActive = active
	for _, d := range dishes {
		r.Dishes = append(r.Dishes, restaurant.Dish{Name: d})
	}
	return r
}

func fixtures() []*restaurant.Restaurant {
	return []*restaurant.Restaurant{
		rec("r1", "Biryani Palace", true, 1, "Dosa", "Idli"),
		rec("r2", "Royal Kitchen", true, 5, "Chicken Biryani", "Mutton Biryani", "Veg Biryani"),
		rec("r3", "Biryani Blues", false, 15, "Hyderabadi Biryani"),
		rec("r4", "Chai Point", true, 20, "Masala Chai", "Bun Maska"),
	}
}

func newEngine(t *testing.T, records ...*restaurant.Restaurant) (*Engine, *restaurant.MemoryStore, *cache.Cache) {
	t.Helper()
	store := restaurant.NewMemoryStore(records...)
	c := cache.New(store, nil)
	return New(c, config.Default().Search, nil), store, c
}

func restaurantIDs(rs []*restaurant.Restaurant) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

func TestEmptyTextRejected(t *testing.T) {
	e, _, _ := newEngine(t, fixtures()...)
	if _, err := e.Suggest(context.Background(), "", false); !errors.Is(err, apperrors.ErrInvalidQuery) {
		t.Errorf("suggest(\"\") = %v, want ErrInvalidQuery", err)
	}
	if _, err := e.Search(context.Background(), "   ", BasisDish, false); !errors.Is(err, apperrors.ErrInvalidQuery) {
		t.Errorf("search(\"   \") = %v, want ErrInvalidQuery", err)
	}
}

func TestSuggestReturnsNamesAndDishes(t *testing.T) {
	e, _, _ := newEngine(t, fixtures()...)
	s, err := e.Suggest(context.Background(), "  BIRYANI ", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.RestaurantNames) != 2 {
		t.Errorf("expected both biryani restaurants, got %v", s.RestaurantNames)
	}
	for _, n := range s.RestaurantNames {
		if n != "biryani palace" && n != "biryani blues" {
			t.Errorf("unexpected name %q", n)
		}
	}
	if len(s.DishNames) != 4 {
		t.Errorf("expected four biryani dishes, got %v", s.DishNames)
	}

	active, err := e.Suggest(context.Background(), "biryani", true)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(active.RestaurantNames, []string{"biryani palace"}) {
		t.Errorf("inactive restaurant leaked into suggestions: %v", active.RestaurantNames)
	}
	if len(active.DishNames) != 4 {
		t.Errorf("dish suggestions are not filtered by restaurant state, got %v", active.DishNames)
	}
}

func TestSuggestPrefix(t *testing.T) {
	e, _, _ := newEngine(t, fixtures()...)
	s, err := e.Suggest(context.Background(), "mas", false)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Contains(s.DishNames, "masala chai") || !slices.Contains(s.DishNames, "bun maska") {
		t.Errorf("prefix suggestions missing: %v", s.DishNames)
	}
}

func TestSuggestLimit(t *testing.T) {
	var records []*restaurant.Restaurant
	for i := 0; i < 25; i++ {
		records = append(records, rec(string(rune('a'+i)), "Dhaba", true, 0, "Tea"))
	}
	e, _, _ := newEngine(t, records...)
	s, err := e.Suggest(context.Background(), "dhaba", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.RestaurantNames) != 10 {
		t.Errorf("expected 10 suggestions, got %d", len(s.RestaurantNames))
	}
}

func TestEveryDishIsSuggestedAfterRebuild(t *testing.T) {
	e, _, _ := newEngine(t, fixtures()...)
	for _, r := range fixtures() {
		for _, d := range r.Dishes {
			name := restaurant.Normalize(&restaurant.Restaurant{Dishes: []restaurant.Dish{d}}).Dishes[0]
			s, err := e.Suggest(context.Background(), name, false)
			if err != nil {
				t.Fatal(err)
			}
			if !slices.Contains(s.DishNames, name) {
				t.Errorf("dish %q not among suggestions %v", name, s.DishNames)
			}
		}
	}
}

func TestSearchBasisBoost(t *testing.T) {
	e, _, _ := newEngine(t, fixtures()...)
	rank := func(basis Basis, id string) int {
		res, err := e.Search(context.Background(), "biryani", basis, true)
		if err != nil {
			t.Fatal(err)
		}
		return slices.Index(restaurantIDs(res), id)
	}
	byDish, byName := rank(BasisDish, "r2"), rank(BasisRestaurant, "r2")
	if byDish < 0 || byName < 0 {
		t.Fatalf("r2 missing from results: byDish=%d byName=%d", byDish, byName)
	}
	if byDish > byName {
		t.Errorf("dish-heavy restaurant ranked lower with byDish (%d) than byRestaurant (%d)", byDish, byName)
	}
	if byDish != 0 {
		t.Errorf("expected r2 first with byDish, got position %d", byDish)
	}
	if rank(BasisRestaurant, "r1") != 0 {
		t.Error("expected name match first with byRestaurant")
	}
}

func TestSearchOnlyActive(t *testing.T) {
	e, _, _ := newEngine(t, fixtures()...)
	all, err := e.Search(context.Background(), "biryani blues", "other", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) == 0 || all[0].ID != "r3" {
		t.Fatalf("exact name should rank first, got %v", restaurantIDs(all))
	}
	active, err := e.Search(context.Background(), "biryani blues", "other", true)
	if err != nil {
		t.Fatal(err)
	}
	if slices.Contains(restaurantIDs(active), "r3") {
		t.Errorf("inactive restaurant returned: %v", restaurantIDs(active))
	}
}

func TestUpsertThenSearchByExactName(t *testing.T) {
	e, store, c := newEngine(t, fixtures()...)
	w := cache.NewWriter(store, c)
	if _, err := e.ListAll(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	saved, err := w.Save(context.Background(), rec("", "Meghana Foods", false, 2, "Boneless Biryani"))
	if err != nil {
		t.Fatal(err)
	}
	res, err := e.Search(context.Background(), "meghana foods", "", false)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Contains(restaurantIDs(res), saved.ID) {
		t.Fatalf("upserted restaurant not found: %v", restaurantIDs(res))
	}
}

func TestSearchAfterResetRebuildsFirst(t *testing.T) {
	e, _, c := newEngine(t, fixtures()...)
	if _, err := c.GetAll(context.Background(), false, false); err != nil {
		t.Fatal(err)
	}
	c.Reset()
	if _, err := c.GetAll(context.Background(), false, false); err != nil {
		t.Fatal(err)
	}
	res, err := e.Search(context.Background(), "chai point", BasisRestaurant, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) == 0 || res[0].ID != "r4" {
		t.Fatalf("expected r4 after reset, got %v", restaurantIDs(res))
	}
}

func TestSearchResultLimit(t *testing.T) {
	var records []*restaurant.Restaurant
	for i := 0; i < 60; i++ {
		records = append(records, rec(string(rune(0x4e00+i)), "Tiffin Centre", true, 0))
	}
	e, _, _ := newEngine(t, records...)
	res, err := e.Search(context.Background(), "tiffin", BasisRestaurant, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 50 {
		t.Errorf("expected 50 results, got %d", len(res))
	}
}

func TestResolveConsistencyViolation(t *testing.T) {
	known := rec("r1", "x", true, 0)
	lookup := func(id string) (*restaurant.Restaurant, bool) {
		if id == "r1" {
			return known, true
		}
		return nil, false
	}
	_, err := resolve([]index.Hit{{ID: "r1"}, {ID: "ghost"}}, lookup)
	if !errors.Is(err, apperrors.ErrConsistencyViolation) {
		t.Fatalf("expected ErrConsistencyViolation, got %v", err)
	}
	out, err := resolve([]index.Hit{{ID: "r1"}}, lookup)
	if err != nil || len(out) != 1 || out[0] != known {
		t.Fatalf("unexpected resolve result %v, %v", out, err)
	}
}

func TestByLocation(t *testing.T) {
	e, _, _ := newEngine(t,
		rec("far", "Far Away", true, 15),
		rec("near", "Near By", true, 5),
		rec("closed", "Closed Shop", false, 1),
		rec("nearest", "Next Door", true, 0.4),
	)
	res, err := e.ByLocation(context.Background(), origin, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 2 {
		t.Fatalf("expected two restaurants inside 10 km, got %d", len(res))
	}
	if res[0].ID != "nearest" || res[1].ID != "near" {
		t.Errorf("expected ascending distance, got %s, %s", res[0].ID, res[1].ID)
	}
	if res[1].Distance != 5.00 || res[0].Distance != 0.4 {
		t.Errorf("unexpected distances %v, %v", res[0].Distance, res[1].Distance)
	}

	if res, _ := e.ByLocation(context.Background(), origin, 0); len(res) != 2 {
		t.Errorf("default radius should be 10 km, got %d results", len(res))
	}
	if _, err := e.ByLocation(context.Background(), geo.Point{Latitude: 100}, 10); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("expected invalid point error, got %v", err)
	}
	if _, err := e.ByLocation(context.Background(), origin, 1000); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("expected radius limit error, got %v", err)
	}
}

func TestStoreUnavailablePropagates(t *testing.T) {
	c := cache.New(failingLoader{}, nil)
	e := New(c, config.Default().Search, nil)
	if _, err := e.Search(context.Background(), "dosa", BasisDish, false); !errors.Is(err, apperrors.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

type failingLoader struct{}

func (failingLoader) FindAll(context.Context) ([]*restaurant.Restaurant, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func TestMetricsRecordOutcome(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	c := cache.New(restaurant.NewMemoryStore(fixtures()...), m)
	e := New(c, config.Default().Search, m)

	e.Search(context.Background(), "biryani", BasisDish, false)
	e.Search(context.Background(), "pizza", BasisDish, false)
	e.Search(context.Background(), "", BasisDish, false)

	for outcome, want := range map[string]float64{"hit": 1, "zero_result": 1, "error": 1} {
		if got := testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("search", outcome)); got != want {
			t.Errorf("%s = %v, want %v", outcome, got, want)
		}
	}
}
