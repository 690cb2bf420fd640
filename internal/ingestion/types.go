// Package ingestion defines the Kafka event schema shared by every service
// that consumes newly submitted documents.
package ingestion

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/section"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/tokenizer"
)

// SectionText is the text of one named document section. Section accepts
// either the short or the full section name.
type SectionText struct {
	Section string `json:"section"`
	Text    string `json:"text"`
}

// IngestEventType is the Kafka event-type header of an IngestEvent.
const IngestEventType = "document.ingest"

// IngestEvent is the Kafka message payload announcing a document that is
// ready for indexing and saved-query matching.
type IngestEvent struct {
	DocumentID string        `json:"document_id"`
	Sections   []SectionText `json:"sections"`
	IngestedAt time.Time     `json:"ingested_at"`
}

// Document resolves the event's section names and returns the indexable
// document. Unknown sections are reported by Validate, not here.
func (e IngestEvent) Document(sections *section.Registry) indexer.Document {
	doc := indexer.Document{ID: e.DocumentID, Fields: make([]tokenizer.Field, 0, len(e.Sections))}
	for _, s := range e.Sections {
		id, ok := sections.Resolve(s.Section)
		if !ok {
			continue
		}
		doc.Fields = append(doc.Fields, tokenizer.Field{Section: id, Text: s.Text})
	}
	return doc
}
