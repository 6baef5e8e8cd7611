package analytics

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/kafka"
)

const maxLatencySamples = 10000

type AggregatedStats struct {
	TotalQueries      int64            `json:"total_queries"`
	QueriesByType     map[string]int64 `json:"queries_by_type"`
	TotalViews        int64            `json:"total_views"`
	FailedQueries     int64            `json:"failed_queries"`
	ZeroResultCount   int64            `json:"zero_result_count"`
	AvgLatencyMs      float64          `json:"avg_latency_ms"`
	P50LatencyMs      int64            `json:"p50_latency_ms"`
	P95LatencyMs      int64            `json:"p95_latency_ms"`
	P99LatencyMs      int64            `json:"p99_latency_ms"`
	TopQueries        []Count          `json:"top_queries"`
	ZeroResultQueries []Count          `json:"zero_result_queries"`
	MostViewed        []Count          `json:"most_viewed"`
	QueriesPerMinute  float64          `json:"queries_per_minute"`
}

// Count pairs a query text or restaurant ID with how often it was seen.
type Count struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// Aggregator folds events into running totals. Latencies are kept for the
// most recent maxLatencySamples queries.
type Aggregator struct {
	mu          sync.RWMutex
	byType      map[EventType]int64
	failed      int64
	zeroResults int64
	latencies   []int64
	next        int
	queries     map[string]int64
	zeroQueries map[string]int64
	views       map[string]int64
	startTime   time.Time
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		byType:      make(map[EventType]int64),
		latencies:   make([]int64, 0, 1024),
		queries:     make(map[string]int64),
		zeroQueries: make(map[string]int64),
		views:       make(map[string]int64),
		startTime:   time.Now(),
	}
}

// HandleEvent adapts agg to a Kafka consumer. Messages that cannot be
// decoded are skipped so they do not block the partition.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		event, err := kafka.DecodeJSON[Event](msg.Value)
		if err != nil {
			return err
		}
		if event.Type == "" {
			event.Type = EventType(msg.Type)
		}
		if event.Type == "" {
			return fmt.Errorf("%w: event %q has no type", kafka.ErrSkip, msg.Key)
		}
		agg.Record(event)
		return nil
	}
}

func (a *Aggregator) Record(e Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.byType[e.Type]++
	if e.Type == EventView {
		if e.RestaurantID != "" {
			a.views[e.RestaurantID]++
		}
		return
	}

	if e.Failed {
		a.failed++
		return
	}
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, e.LatencyMs)
	} else {
		a.latencies[a.next] = e.LatencyMs
		a.next = (a.next + 1) % maxLatencySamples
	}
	if e.Query != "" {
		a.queries[e.Query]++
	}
	if e.Results == 0 {
		a.zeroResults++
		if e.Query != "" {
			a.zeroQueries[e.Query]++
		}
	}
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		QueriesByType:   make(map[string]int64, len(a.byType)),
		FailedQueries:   a.failed,
		ZeroResultCount: a.zeroResults,
		TotalViews:      a.byType[EventView],
	}
	for t, n := range a.byType {
		if t == EventView {
			continue
		}
		stats.QueriesByType[string(t)] = n
		stats.TotalQueries += n
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queries, 10)
	stats.ZeroResultQueries = topN(a.zeroQueries, 10)
	stats.MostViewed = topN(a.views, 10)
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalQueries) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count descending, then key, and keeps the first n.
func topN(counts map[string]int64, n int) []Count {
	result := make([]Count, 0, len(counts))
	for key, count := range counts {
		result = append(result, Count{Key: key, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Key < result[j].Key
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
