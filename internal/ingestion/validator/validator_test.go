package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/section"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/ingestion"
)

func TestValidateIngestEvent(t *testing.T) {
	sections := section.Default()
	tests := []struct {
		name      string
		event     ingestion.IngestEvent
		wantField string
	}{
		{
			name: "valid",
			event: ingestion.IngestEvent{DocumentID: "doc-1", Sections: []ingestion.SectionText{
				{Section: "ti", Text: "title"},
				{Section: "body", Text: "text"},
			}},
		},
		{
			name:      "missing id",
			event:     ingestion.IngestEvent{Sections: []ingestion.SectionText{{Section: "ti", Text: "x"}}},
			wantField: "document_id",
		},
		{
			name:      "id too long",
			event:     ingestion.IngestEvent{DocumentID: strings.Repeat("x", 256), Sections: []ingestion.SectionText{{Section: "ti", Text: "x"}}},
			wantField: "document_id",
		},
		{
			name:      "no sections",
			event:     ingestion.IngestEvent{DocumentID: "doc-1"},
			wantField: "sections",
		},
		{
			name:      "unknown section",
			event:     ingestion.IngestEvent{DocumentID: "doc-1", Sections: []ingestion.SectionText{{Section: "ti", Text: "x"}, {Section: "footer", Text: "y"}}},
			wantField: "sections[1]",
		},
		{
			name:      "only blank text",
			event:     ingestion.IngestEvent{DocumentID: "doc-1", Sections: []ingestion.SectionText{{Section: "ti", Text: "   "}}},
			wantField: "sections",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIngestEvent(&tt.event, sections)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error = %v, want *ValidationError", err)
			}
			if _, ok := verr.Fields[tt.wantField]; !ok {
				t.Errorf("fields = %v, want an entry for %q", verr.Fields, tt.wantField)
			}
		})
	}
}

func TestValidationErrorIsSorted(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"b": "second", "a": "first"}}
	if got := err.Error(); got != "a:first; b:second" {
		t.Errorf("Error() = %q", got)
	}
}
