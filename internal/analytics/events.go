// Package analytics records what users search for. The search handler
// tracks one SearchEvent per request through the Collector, which publishes
// to Kafka; the Aggregator consumes the same topic and keeps rolling stats
// for the /api/v1/analytics endpoint.
package analytics

import "time"

type EventType string

const (
	EventSearch       EventType = "search"
	EventZeroResult   EventType = "zero_result"
	EventInvalidQuery EventType = "invalid_query"
	EventSearchError  EventType = "search_error"
)

// SearchEvent describes one search request. Compiled and the term sets are
// empty for invalid queries; Error then holds the validation message.
type SearchEvent struct {
	Type         EventType `json:"type"`
	Query        string    `json:"query"`
	Compiled     string    `json:"compiled,omitempty"`
	IncludeTerms []string  `json:"include_terms,omitempty"`
	ExcludeTerms []string  `json:"exclude_terms,omitempty"`
	TotalHits    int       `json:"total_hits"`
	Returned     int       `json:"returned"`
	LatencyMs    int64     `json:"latency_ms"`
	CacheHit     bool      `json:"cache_hit"`
	Error        string    `json:"error,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	RequestID    string    `json:"request_id,omitempty"`
}
