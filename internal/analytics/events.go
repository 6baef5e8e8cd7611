// Package analytics tracks how the directory is used. The directory service
// publishes query and view events to Kafka through a Collector and counts
// restaurant views in Redis; the analytics service consumes the topic and
// aggregates the events for dashboards.
package analytics

import "time"

type EventType string

const (
	EventSuggest EventType = "suggest"
	EventSearch  EventType = "search"
	EventNearby  EventType = "nearby"
	EventView    EventType = "view"
)

// Event is one tracked interaction. Query fields are empty for views and
// RestaurantID is empty for queries.
type Event struct {
	Type         EventType `json:"type"`
	Query        string    `json:"query,omitempty"`
	Basis        string    `json:"basis,omitempty"`
	OnlyActive   bool      `json:"only_active,omitempty"`
	Results      int       `json:"results"`
	LatencyMs    int64     `json:"latency_ms"`
	RestaurantID string    `json:"restaurant_id,omitempty"`
	Failed       bool      `json:"failed,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	RequestID    string    `json:"request_id,omitempty"`
}

// key spreads view events by restaurant and groups query events by type.
func (e Event) key() string {
	if e.RestaurantID != "" {
		return e.RestaurantID
	}
	return string(e.Type)
}
