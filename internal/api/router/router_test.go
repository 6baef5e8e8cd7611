package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/api/handler"
	apimw "github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/api/middleware"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/api/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/geo"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/partner"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/query"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/restaurant"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/user"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

const mapLink = "https://maps.app.goo.gl/x"

type stubGeocoder struct{}

func (stubGeocoder) Resolve(ctx context.Context, link string) (geo.Point, error) {
	if link != mapLink {
		return geo.Point{}, apperrors.New(apperrors.ErrUpstreamUnavailable, http.StatusBadGateway, "map link did not resolve")
	}
	return geo.Point{Latitude: 12.9716, Longitude: 77.5946}, nil
}

type testServer struct {
	handler http.Handler
	cache   *cache.Cache
}

func newTestServer(t *testing.T, limiter *ratelimit.Limiter) *testServer {
	t.Helper()
	biryani := &restaurant.Restaurant{
		ID:       "r1",
		Name:     "Biryani Palace",
		Location: restaurant.Location{Latitude: 12.98, Longitude: 77.5946},
		Dishes:   []restaurant.Dish{{Name: "Chicken Biryani"}},
	}
	biryani.Metadata.SetState(restaurant.StateActive)
	store := restaurant.NewMemoryStore(biryani)

	c := cache.New(store, nil)
	users := user.NewService(user.NewMemoryStore(
		&user.User{ID: "owner", UID: "uid-owner", Name: "Owner", PhoneNumber: "+911"},
		&user.User{ID: "admin", UID: "uid-admin", Name: "Ops", PhoneNumber: "+912", IsAdmin: true},
	))
	partners := partner.NewService(partner.NewMemoryEditStore(), cache.NewWriter(store, c), stubGeocoder{})

	h := handler.New(handler.Deps{
		Engine:   query.New(c, config.Default().Search, nil),
		Cache:    c,
		Users:    users,
		Partners: partners,
	})
	checker := health.NewChecker()
	checker.Register("cache", func(ctx context.Context) health.ComponentHealth {
		if !c.Loaded() {
			return health.ComponentHealth{Status: health.StatusDown, Message: "indices not built"}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	return &testServer{
		handler: New(h, Options{
			Users:          users,
			Limiter:        limiter,
			Health:         checker,
			Metrics:        metrics.NewWithRegistry(prometheus.NewRegistry()),
			AllowOrigins:   []string{"https://partner.example.com"},
			RequestTimeout: 5 * time.Second,
		}),
		cache: c,
	}
}

func (s *testServer) do(t *testing.T, method, target, userID string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	if userID != "" {
		req.Header.Set(apimw.UserHeader, userID)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestSuggestAndSearch(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/api/v1/restaurants/suggest?searchText=biry", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("suggest status = %d, body %s", rec.Code, rec.Body)
	}
	sugg := decodeBody[query.Suggestions](t, rec)
	if len(sugg.RestaurantNames) != 1 || sugg.RestaurantNames[0] != "Biryani Palace" {
		t.Errorf("restaurant names = %v", sugg.RestaurantNames)
	}
	if len(sugg.DishNames) != 1 || sugg.DishNames[0] != "Chicken Biryani" {
		t.Errorf("dish names = %v", sugg.DishNames)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/restaurants/search?searchText=biryani&searchBasis=byDish&onlyActive=true", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("search status = %d, body %s", rec.Code, rec.Body)
	}
	if got := decodeBody[[]restaurant.Restaurant](t, rec); len(got) != 1 || got[0].ID != "r1" {
		t.Errorf("search results = %+v", got)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID on response")
	}
}

func TestSearchRequiresText(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, http.MethodGet, "/api/v1/restaurants/search?searchText=%20", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body := decodeBody[map[string]string](t, rec); body["error"] == "" {
		t.Error("expected an error message")
	}
}

func TestNearby(t *testing.T) {
	s := newTestServer(t, nil)

	if rec := s.do(t, http.MethodGet, "/api/v1/restaurants/nearby", "", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("missing headers: status = %d, want 400", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/api/v1/restaurants/nearby", "", nil, "latitude", "north", "longitude", "77.59"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad latitude: status = %d, want 400", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/api/v1/restaurants/nearby?radiusKm=far", "", nil, "latitude", "12.9716", "longitude", "77.5946"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad radius: status = %d, want 400", rec.Code)
	}

	rec := s.do(t, http.MethodGet, "/api/v1/restaurants/nearby?radiusKm=5", "", nil, "latitude", "12.9716", "longitude", "77.5946")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	got := decodeBody[[]json.RawMessage](t, rec)
	if len(got) != 1 {
		t.Fatalf("nearby results = %d, want 1", len(got))
	}
}

func TestGetRestaurant(t *testing.T) {
	s := newTestServer(t, nil)
	if rec := s.do(t, http.MethodGet, "/api/v1/restaurants/r1", "", nil); rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/api/v1/restaurants/missing", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCacheResetRequiresAdmin(t *testing.T) {
	s := newTestServer(t, nil)
	if _, err := s.cache.EnsureReady(context.Background()); err != nil {
		t.Fatal(err)
	}

	if rec := s.do(t, http.MethodPost, "/api/v1/cache/reset", "", nil); rec.Code != http.StatusForbidden {
		t.Errorf("anonymous: status = %d, want 403", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/api/v1/cache/reset", "owner", nil); rec.Code != http.StatusForbidden {
		t.Errorf("owner: status = %d, want 403", rec.Code)
	}
	if !s.cache.Loaded() {
		t.Fatal("rejected reset must not clear the cache")
	}

	rec := s.do(t, http.MethodPost, "/api/v1/cache/reset", "admin", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin: status = %d, body %s", rec.Code, rec.Body)
	}
	if s.cache.Loaded() {
		t.Error("cache should be unloaded after reset")
	}

	rec = s.do(t, http.MethodPost, "/api/v1/cache/reset?warm=true", "admin", nil)
	if stats := decodeBody[cache.Stats](t, rec); !stats.Loaded || stats.Restaurants != 1 {
		t.Errorf("warm reset stats = %+v", stats)
	}
}

func TestUserRoutes(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/user", "", user.CreateInput{UID: "uid-new", Name: "New", PhoneNumber: "+913"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body %s", rec.Code, rec.Body)
	}
	if rec := s.do(t, http.MethodPost, "/user", "", user.CreateInput{UID: "uid-new", Name: "Dup", PhoneNumber: "+914"}); rec.Code != http.StatusConflict {
		t.Errorf("duplicate uid: status = %d, want 409", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/user/uid-new", "", nil); rec.Code != http.StatusOK {
		t.Errorf("get: status = %d, want 200", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/user/isnewuser", "", map[string]string{"phoneNumber": "+911"})
	existing := decodeBody[map[string]any](t, rec)
	if existing["isNewUser"] != false || existing["id"] != "owner" {
		t.Errorf("existing user response = %v", existing)
	}
	rec = s.do(t, http.MethodPost, "/user/isnewuser", "", map[string]string{"phoneNumber": "+999"})
	fresh := decodeBody[map[string]any](t, rec)
	if fresh["isNewUser"] != true {
		t.Errorf("new user response = %v", fresh)
	}
	if _, ok := fresh["id"]; ok {
		t.Errorf("new user response should carry no account: %v", fresh)
	}
}

func TestPartnerWorkflow(t *testing.T) {
	s := newTestServer(t, nil)

	if rec := s.do(t, http.MethodGet, "/partner/restaurant", "", nil); rec.Code != http.StatusForbidden {
		t.Errorf("no user header: status = %d, want 403", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/partner/restaurant", "ghost", nil); rec.Code != http.StatusForbidden {
		t.Errorf("unknown user: status = %d, want 403", rec.Code)
	}

	draft := restaurant.Restaurant{Name: "Dosa Corner", Location: restaurant.Location{GmapLink: mapLink, AreaName: "Indiranagar"}}
	rec := s.do(t, http.MethodPost, "/partner/restaurant", "owner", draft)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body %s", rec.Code, rec.Body)
	}

	rec = s.do(t, http.MethodGet, "/partner/restaurant", "owner", nil)
	edits := decodeBody[[]partner.Edit](t, rec)
	if len(edits) != 1 || edits[0].State != restaurant.StateInReview {
		t.Fatalf("edits = %+v", edits)
	}
	editURL := "/partner/restaurant/" + edits[0].ID

	if rec := s.do(t, http.MethodGet, editURL, "admin", nil); rec.Code != http.StatusOK {
		t.Errorf("admin get: status = %d, want 200", rec.Code)
	}

	menu := map[string]any{"menu": []restaurant.Dish{{Name: "Masala Dosa", Price: 90}}}
	if rec := s.do(t, http.MethodPost, editURL+"/menu", "owner", menu); rec.Code != http.StatusOK {
		t.Fatalf("menu: status = %d, body %s", rec.Code, rec.Body)
	}

	activate := partner.StateChange{State: restaurant.StateActive}
	if rec := s.do(t, http.MethodPost, editURL+"/state", "owner", activate); rec.Code != http.StatusForbidden {
		t.Errorf("owner state change: status = %d, want 403", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, editURL+"/state", "admin", activate); rec.Code != http.StatusOK {
		t.Fatalf("admin state change: status = %d, body %s", rec.Code, rec.Body)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/restaurants/search?searchText=dosa&onlyActive=true", "", nil)
	if got := decodeBody[[]restaurant.Restaurant](t, rec); len(got) != 1 || got[0].Name != "Dosa Corner" {
		t.Errorf("activated restaurant not searchable: %+v", got)
	}

	rec = s.do(t, http.MethodDelete, editURL, "owner", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: status = %d, body %s", rec.Code, rec.Body)
	}
	if remaining := decodeBody[[]partner.Edit](t, rec); len(remaining) != 0 {
		t.Errorf("remaining edits = %d, want 0", len(remaining))
	}
}

func TestPartnerCreateRejectsBadBody(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/partner/restaurant", bytes.NewBufferString("{not json"))
	req.Header.Set(apimw.UserHeader, "owner")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSearchRateLimited(t *testing.T) {
	limiter := ratelimit.New(1, time.Minute)
	defer limiter.Close()
	s := newTestServer(t, limiter)

	if rec := s.do(t, http.MethodGet, "/api/v1/restaurants/suggest?searchText=biryani", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("first request: status = %d", rec.Code)
	}
	rec := s.do(t, http.MethodGet, "/api/v1/restaurants/suggest?searchText=biryani", "", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
	if rec := s.do(t, http.MethodGet, "/api/v1/restaurants/r1", "", nil); rec.Code != http.StatusOK {
		t.Errorf("lookup is not rate limited: status = %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, http.MethodOptions, "/partner/restaurant", "", nil, "Origin", "https://partner.example.com")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://partner.example.com" {
		t.Errorf("allow origin = %q", got)
	}
}

func TestHealthReadyTracksCache(t *testing.T) {
	s := newTestServer(t, nil)
	if rec := s.do(t, http.MethodGet, "/health/ready", "", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("cold cache: status = %d, want 503", rec.Code)
	}
	if _, err := s.cache.EnsureReady(context.Background()); err != nil {
		t.Fatal(err)
	}
	if rec := s.do(t, http.MethodGet, "/health/ready", "", nil); rec.Code != http.StatusOK {
		t.Errorf("warm cache: status = %d, want 200", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/health/live", "", nil); rec.Code != http.StatusOK {
		t.Errorf("live: status = %d, want 200", rec.Code)
	}
}
