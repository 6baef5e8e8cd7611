package geo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/resilience"
)

// maxPageBytes bounds how much of a maps page is read while looking for the
// coordinates payload.
const maxPageBytes = 4 << 20

var initStatePattern = regexp.MustCompile(`window\.APP_INITIALIZATION_STATE=\[\[\[-?\d+\.?\d*,(-?\d+\.\d+),(-?\d+\.\d+)`)

var errUnresolvable = errors.New("no coordinates in maps page")

// Resolver turns a map share link into coordinates.
type Resolver interface {
	Resolve(ctx context.Context, link string) (Point, error)
}

// LinkResolver fetches Google Maps links and reads the coordinates embedded
// in the page's initialization state. Calls go through a circuit breaker so
// an unreachable maps host fails fast.
type LinkResolver struct {
	client  *http.Client
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
}

func NewLinkResolver(client *http.Client, breaker *resilience.CircuitBreaker) *LinkResolver {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &LinkResolver{
		client:  client,
		breaker: breaker,
		logger:  slog.Default().With("component", "geo-resolver"),
	}
}

func (r *LinkResolver) Resolve(ctx context.Context, link string) (Point, error) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Point{}, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "invalid map link %q", link)
	}

	var page []byte
	err = r.breaker.Execute(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return err
		}
		resp, err := r.client.Do(req)
		if err != nil {
			return fmt.Errorf("fetching map link: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("fetching map link: status %d", resp.StatusCode)
		}
		page, err = io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
		return err
	})
	if err != nil {
		r.logger.Warn("map link fetch failed", "link", link, "error", err)
		return Point{}, apperrors.Newf(apperrors.ErrUpstreamUnavailable, http.StatusBadGateway, "resolving map link: %v", err)
	}

	p, err := ParseInitState(page)
	if err != nil {
		return Point{}, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "map link %q: %v", link, err)
	}
	return p, nil
}

// ParseInitState extracts the coordinates from a maps page body. The second
// and third numbers of the first initialization tuple are taken as latitude
// and longitude.
func ParseInitState(page []byte) (Point, error) {
	m := initStatePattern.FindSubmatch(page)
	if m == nil {
		return Point{}, errUnresolvable
	}
	lat, err := strconv.ParseFloat(string(m[1]), 64)
	if err != nil {
		return Point{}, fmt.Errorf("parsing latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(string(m[2]), 64)
	if err != nil {
		return Point{}, fmt.Errorf("parsing longitude: %w", err)
	}
	p := Point{Latitude: lat, Longitude: lon}
	return p, p.Validate()
}
