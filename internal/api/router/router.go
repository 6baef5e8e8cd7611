// Package router wires the directory's HTTP routes and applies the
// middleware chain (RequestID → CORS → Metrics → Timeout).
package router

import (
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/api/handler"
	apimw "github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/api/middleware"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/api/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/metrics"
	pkgmw "github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/middleware"
)

// Options configures the cross-cutting parts of the router. Limiter may be
// nil to disable rate limiting.
type Options struct {
	Users          apimw.Authenticator
	Limiter        *ratelimit.Limiter
	Health         *health.Checker
	Metrics        *metrics.Metrics
	AllowOrigins   []string
	RequestTimeout time.Duration
}

// New builds the directory HTTP handler.
//
// Route table:
//
//	GET    /api/v1/restaurants/suggest        public, rate limited
//	GET    /api/v1/restaurants/search         public, rate limited
//	GET    /api/v1/restaurants/nearby         public, rate limited
//	GET    /api/v1/restaurants                public
//	GET    /api/v1/restaurants/{id}           public
//	GET    /api/v1/cache/stats                public
//	POST   /api/v1/cache/reset                admin
//	POST   /user                              public
//	GET    /user/{uid}                        public
//	POST   /user/isnewuser                    public
//	GET    /partner/restaurant                user
//	POST   /partner/restaurant                user
//	GET    /partner/restaurant/{id}           owner or admin
//	POST   /partner/restaurant/{id}           owner or admin
//	DELETE /partner/restaurant/{id}           owner or admin
//	POST   /partner/restaurant/{id}/menu      owner or admin
//	POST   /partner/restaurant/{id}/state     admin
//	GET    /health/live, /health/ready
func New(h *handler.Handler, opts Options) http.Handler {
	mux := http.NewServeMux()

	limited := func(fn http.HandlerFunc) http.Handler {
		if opts.Limiter == nil {
			return fn
		}
		return apimw.RateLimit(opts.Limiter)(fn)
	}
	authed := func(fn http.HandlerFunc) http.Handler {
		return apimw.Auth(opts.Users)(fn)
	}
	admin := func(fn http.HandlerFunc) http.Handler {
		return apimw.Auth(opts.Users)(apimw.RequireAdmin(fn))
	}

	// Health
	mux.HandleFunc("GET /health/live", opts.Health.LiveHandler())
	mux.HandleFunc("GET /health/ready", opts.Health.ReadyHandler())

	// Directory
	mux.Handle("GET /api/v1/restaurants/suggest", limited(h.Suggest))
	mux.Handle("GET /api/v1/restaurants/search", limited(h.Search))
	mux.Handle("GET /api/v1/restaurants/nearby", limited(h.Nearby))
	mux.HandleFunc("GET /api/v1/restaurants", h.ListRestaurants)
	mux.HandleFunc("GET /api/v1/restaurants/{id}", h.GetRestaurant)

	// Cache
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.Handle("POST /api/v1/cache/reset", admin(h.ResetCache))

	// Users
	mux.HandleFunc("POST /user", h.CreateUser)
	mux.HandleFunc("POST /user/isnewuser", h.IsNewUser)
	mux.HandleFunc("GET /user/{uid}", h.GetUser)

	// Partner workflow
	mux.Handle("GET /partner/restaurant", authed(h.ListEdits))
	mux.Handle("POST /partner/restaurant", authed(h.CreateRestaurant))
	mux.Handle("GET /partner/restaurant/{id}", authed(h.GetEdit))
	mux.Handle("POST /partner/restaurant/{id}", authed(h.UpdateDetails))
	mux.Handle("DELETE /partner/restaurant/{id}", authed(h.DeleteEdit))
	mux.Handle("POST /partner/restaurant/{id}/menu", authed(h.UpdateMenu))
	mux.Handle("POST /partner/restaurant/{id}/state", admin(h.SetState))

	// request → RequestID → CORS → Metrics → Timeout → mux
	var chain http.Handler = mux
	if opts.RequestTimeout > 0 {
		chain = pkgmw.Timeout(opts.RequestTimeout)(chain)
	}
	if opts.Metrics != nil {
		chain = pkgmw.Metrics(opts.Metrics)(chain)
	}
	chain = apimw.CORS(apimw.DefaultCORSConfig(opts.AllowOrigins))(chain)
	chain = pkgmw.RequestID(chain)
	return chain
}
