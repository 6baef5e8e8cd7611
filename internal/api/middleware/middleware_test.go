package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/api/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/user"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func newUsers(t *testing.T) *user.Service {
	t.Helper()
	return user.NewService(user.NewMemoryStore(
		&user.User{ID: "u1", UID: "fb-1", Name: "Owner"},
		&user.User{ID: "u2", UID: "fb-2", Name: "Ops", IsAdmin: true},
	))
}

func TestAuth(t *testing.T) {
	var seen *user.User
	h := Auth(newUsers(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserFromContext(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusForbidden},
		{"unknown user", "nope", http.StatusForbidden},
		{"known user", "u1", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/partner/restaurant", nil)
			if tt.header != "" {
				req.Header.Set(UserHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
	if seen == nil || seen.ID != "u1" {
		t.Errorf("user not stored in context: %+v", seen)
	}
}

func TestRequireAdmin(t *testing.T) {
	h := Auth(newUsers(t))(RequireAdmin(ok))
	for id, want := range map[string]int{"u1": http.StatusForbidden, "u2": http.StatusOK} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cache/reset", nil)
		req.Header.Set(UserHeader, id)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("user %s: status = %d, want %d", id, rec.Code, want)
		}
	}

	rec := httptest.NewRecorder()
	RequireAdmin(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(context.Background()))
	if rec.Code != http.StatusForbidden {
		t.Errorf("no user: status = %d", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	h := CORS(DefaultCORSConfig([]string{"https://partner.aslimenu.com"}))(ok)

	req := httptest.NewRequest(http.MethodOptions, "/partner/restaurant", nil)
	req.Header.Set("Origin", "https://partner.aslimenu.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "https://partner.aslimenu.com" {
		t.Errorf("preflight: %d %v", rec.Code, rec.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/partner/restaurant", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("disallowed origin received CORS headers")
	}
}

func TestRateLimit(t *testing.T) {
	limiter := ratelimit.New(1, time.Minute)
	defer limiter.Close()
	h := RateLimit(limiter)(ok)

	send := func(addr, fwd string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/restaurants/search", nil)
		req.RemoteAddr = addr
		if fwd != "" {
			req.Header.Set("X-Forwarded-For", fwd)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := send("10.0.0.1:5000", ""); rec.Code != http.StatusOK {
		t.Fatalf("first request: %d", rec.Code)
	}
	rec := send("10.0.0.1:5001", "")
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("second request: %d retry-after=%q", rec.Code, rec.Header().Get("Retry-After"))
	}
	if rec := send("10.0.0.1:5002", "203.0.113.9, 10.0.0.1"); rec.Code != http.StatusOK {
		t.Fatalf("forwarded client should have its own bucket: %d", rec.Code)
	}
}
