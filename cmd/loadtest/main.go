// Command loadtest drives a running directory with a weighted mix of
// suggest, search and nearby requests and prints per-endpoint latency
// percentiles.
//
// Usage:
//
//	go run ./cmd/loadtest [-url http://localhost:6000] [-concurrency 10] [-duration 30s]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

var terms = []string{
	"biryani", "dosa", "masala", "paneer", "chai", "thali",
	"kitchen", "palace", "idli", "naan", "tikka", "coffee",
}

// Bengaluru-ish bounding box for nearby requests.
var (
	latRange = [2]float64{12.85, 13.10}
	lngRange = [2]float64{77.45, 77.75}
)

type endpoint struct {
	name   string
	weight int
	build  func(base string, rng *rand.Rand) (*http.Request, error)
}

var endpoints = []endpoint{
	{"suggest", 5, func(base string, rng *rand.Rand) (*http.Request, error) {
		t := terms[rng.IntN(len(terms))]
		prefix := t[:max(2, rng.IntN(len(t))+1)]
		return http.NewRequest(http.MethodGet, base+"/api/v1/restaurants/suggest?searchText="+url.QueryEscape(prefix), nil)
	}},
	{"search", 3, func(base string, rng *rand.Rand) (*http.Request, error) {
		q := url.Values{}
		q.Set("searchText", terms[rng.IntN(len(terms))])
		q.Set("searchBasis", []string{"byDish", "byRestaurant"}[rng.IntN(2)])
		q.Set("onlyActive", "true")
		return http.NewRequest(http.MethodGet, base+"/api/v1/restaurants/search?"+q.Encode(), nil)
	}},
	{"nearby", 2, func(base string, rng *rand.Rand) (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, base+"/api/v1/restaurants/nearby", nil)
		if err != nil {
			return nil, err
		}
		lat := latRange[0] + rng.Float64()*(latRange[1]-latRange[0])
		lng := lngRange[0] + rng.Float64()*(lngRange[1]-lngRange[0])
		req.Header.Set("latitude", strconv.FormatFloat(lat, 'f', 6, 64))
		req.Header.Set("longitude", strconv.FormatFloat(lng, 'f', 6, 64))
		return req, nil
	}},
}

// pick chooses an endpoint with probability proportional to its weight.
func pick(rng *rand.Rand) endpoint {
	total := 0
	for _, e := range endpoints {
		total += e.weight
	}
	n := rng.IntN(total)
	for _, e := range endpoints {
		if n < e.weight {
			return e
		}
		n -= e.weight
	}
	return endpoints[len(endpoints)-1]
}

type endpointStats struct {
	latencies []time.Duration
	errors    int
	codes     map[int]int
}

type Stats struct {
	mu         sync.Mutex
	byEndpoint map[string]*endpointStats
}

func NewStats() *Stats {
	return &Stats{byEndpoint: make(map[string]*endpointStats)}
}

func (s *Stats) Record(name string, d time.Duration, status int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	es, ok := s.byEndpoint[name]
	if !ok {
		es = &endpointStats{codes: make(map[int]int)}
		s.byEndpoint[name] = es
	}
	if err != nil {
		es.errors++
		return
	}
	es.codes[status]++
	if status < 200 || status >= 300 {
		es.errors++
		return
	}
	es.latencies = append(es.latencies, d)
}

func main() {
	baseURL := flag.String("url", "http://localhost:6000", "base URL of the directory")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	flag.Parse()

	fmt.Println("=== Restaurant Directory Load Test ===")
	fmt.Printf("Target:      %s\n", *baseURL)
	fmt.Printf("Concurrency: %d\n", *concurrency)
	fmt.Printf("Duration:    %s\n", *duration)
	fmt.Println()

	stats, err := run(*baseURL, *concurrency, *duration)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load test failed: %v\n", err)
		os.Exit(1)
	}
	if total := printReport(stats, *duration); total == 0 {
		fmt.Println("WARNING: No requests completed. Is the directory running?")
		os.Exit(1)
	}
}

func run(base string, concurrency int, duration time.Duration) (*Stats, error) {
	stats := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        concurrency * 2,
			MaxIdleConnsPerHost: concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for w := range concurrency {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(uint64(w), uint64(time.Now().UnixNano())))
			for ctx.Err() == nil {
				ep := pick(rng)
				req, err := ep.build(base, rng)
				if err != nil {
					return fmt.Errorf("building %s request: %w", ep.name, err)
				}
				start := time.Now()
				resp, err := client.Do(req.WithContext(ctx))
				elapsed := time.Since(start)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					stats.Record(ep.name, elapsed, 0, err)
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats.Record(ep.name, elapsed, resp.StatusCode, nil)
			}
			return nil
		})
	}
	return stats, g.Wait()
}

func printReport(stats *Stats, duration time.Duration) int {
	stats.mu.Lock()
	defer stats.mu.Unlock()

	names := make([]string, 0, len(stats.byEndpoint))
	for name := range stats.byEndpoint {
		names = append(names, name)
	}
	slices.Sort(names)

	total := 0
	for _, name := range names {
		es := stats.byEndpoint[name]
		n := len(es.latencies) + es.errors
		total += n
		fmt.Printf("=== %s ===\n", name)
		fmt.Printf("Requests:     %d (%.2f/s)\n", n, float64(n)/duration.Seconds())
		fmt.Printf("Errors:       %d\n", es.errors)
		if len(es.latencies) > 0 {
			slices.Sort(es.latencies)
			fmt.Printf("P50:          %s\n", percentile(es.latencies, 50))
			fmt.Printf("P95:          %s\n", percentile(es.latencies, 95))
			fmt.Printf("P99:          %s\n", percentile(es.latencies, 99))
			fmt.Printf("Max:          %s\n", es.latencies[len(es.latencies)-1])
		}
		codes := make([]int, 0, len(es.codes))
		for code := range es.codes {
			codes = append(codes, code)
		}
		slices.Sort(codes)
		for _, code := range codes {
			fmt.Printf("  %d: %d\n", code, es.codes[code])
		}
		fmt.Println()
	}
	return total
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[max(0, min(idx, len(sorted)-1))]
}
