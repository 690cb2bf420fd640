// Package validator checks ingest events before they reach an index or
// the watcher. It returns per-field error details.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/section"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/ingestion"
)

const (
	maxDocumentIDLength = 255
	maxSectionLength    = 1048576
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// ValidateIngestEvent checks the document id, that at least one section
// carries text, and that every section name is registered.
func ValidateIngestEvent(event *ingestion.IngestEvent, sections *section.Registry) error {
	errs := make(map[string]string)

	id := strings.TrimSpace(event.DocumentID)
	if id == "" {
		errs["document_id"] = "document id is required"
	} else if len(id) > maxDocumentIDLength {
		errs["document_id"] = fmt.Sprintf("document id must be at most %d characters", maxDocumentIDLength)
	}
	if len(event.Sections) == 0 {
		errs["sections"] = "at least one section is required"
	}
	empty := true
	for i, s := range event.Sections {
		key := fmt.Sprintf("sections[%d]", i)
		if _, ok := sections.Resolve(s.Section); !ok {
			errs[key] = fmt.Sprintf("unknown section %q", s.Section)
			continue
		}
		if len(s.Text) > maxSectionLength {
			errs[key] = fmt.Sprintf("section text must be at most %d characters", maxSectionLength)
			continue
		}
		if strings.TrimSpace(s.Text) != "" {
			empty = false
		}
	}
	if len(event.Sections) > 0 && empty {
		if _, set := errs["sections"]; !set {
			errs["sections"] = "document has no text"
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
