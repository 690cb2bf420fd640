// Package analytics records what users search for and how the query
// compiler and evaluator responded: evaluation status, the stop-words that
// were dropped and the lexemes that matched.
package analytics

import "time"

type EventType string

const (
	EventCacheHit   EventType = "cache_hit"
	EventCacheMiss  EventType = "cache_miss"
	EventRejected   EventType = "rejected"
	EventZeroResult EventType = "zero_result"
)

// SearchEventType is the Kafka event-type header of a SearchEvent.
const SearchEventType = "search.event"

type SearchEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	Plan      string    `json:"plan"`
	Status    string    `json:"status"`
	Stopwords []string  `json:"stopwords,omitempty"`
	Lexemes   []string  `json:"lexemes,omitempty"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}
