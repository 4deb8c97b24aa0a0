// Package stats collects and aggregates search analytics. Handlers
// track events into a buffered collector that publishes them to Kafka;
// an aggregator consumes the topic and serves rolled-up statistics.
package stats

import "time"

// EventType discriminates the analytics event payloads.
type EventType string

const (
	EventSearch   EventType = "search"
	EventFallback EventType = "fallback"
	EventIndex    EventType = "index"
	EventRemove   EventType = "remove"
)

// SearchEvent describes one answered search request.
type SearchEvent struct {
	Type       EventType `json:"type"`
	Query      string    `json:"query"`
	Terms      []string  `json:"terms"`
	Combinator string    `json:"combinator"`
	TotalHits  int       `json:"total_hits"`
	Returned   int       `json:"returned"`
	LatencyMs  int64     `json:"latency_ms"`
	CacheHit   bool      `json:"cache_hit"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id"`
}

// IndexEvent describes one index mutation (index or remove).
type IndexEvent struct {
	Type      EventType `json:"type"`
	DocID     string    `json:"doc_id"`
	TermCount int       `json:"term_count"`
	Timestamp time.Time `json:"timestamp"`
}
