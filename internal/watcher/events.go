package watcher

import "time"

// MatchEventType is the Kafka event-type header of a MatchEvent.
const MatchEventType = "query.match"

// MatchEvent announces that a document matched a saved query. FailOpen is
// set when the query could not be evaluated and was reported as matching.
type MatchEvent struct {
	QueryID    string    `json:"query_id"`
	DocumentID string    `json:"document_id"`
	FailOpen   bool      `json:"fail_open,omitempty"`
	MatchedAt  time.Time `json:"matched_at"`
}
