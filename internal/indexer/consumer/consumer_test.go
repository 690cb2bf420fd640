package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/section"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeIndexer struct {
	docs []indexer.Document
	err  error
}

func (f *fakeIndexer) Index(doc indexer.Document) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.docs = append(f.docs, doc)
	return 1, nil
}

func encode(t *testing.T, event ingestion.IngestEvent) []byte {
	t.Helper()
	data, err := json.Marshal(event)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func validEvent() ingestion.IngestEvent {
	return ingestion.IngestEvent{
		DocumentID: "doc-1",
		Sections: []ingestion.SectionText{
			{Section: "title", Text: "quick fox"},
			{Section: "ab", Text: "jumps high"},
		},
	}
}

func TestHandleMessageIndexes(t *testing.T) {
	idx := &fakeIndexer{}
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	handle := HandleMessage(idx, section.Default(), m)

	if err := handle(context.Background(), []byte("doc-1"), encode(t, validEvent())); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(idx.docs) != 1 {
		t.Fatalf("indexed %d documents, want 1", len(idx.docs))
	}
	doc := idx.docs[0]
	if doc.ID != "doc-1" || len(doc.Fields) != 2 || doc.Fields[0].Section != 1 || doc.Fields[1].Section != 2 {
		t.Errorf("indexed document = %+v", doc)
	}
	if got := testutil.ToFloat64(m.DocsIndexedTotal); got != 1 {
		t.Errorf("DocsIndexedTotal = %v, want 1", got)
	}
}

func TestHandleMessageSkips(t *testing.T) {
	invalid := validEvent()
	invalid.Sections[0].Section = "footer"

	tests := []struct {
		name  string
		value []byte
		err   error
	}{
		{"malformed json", []byte("{not json"), nil},
		{"invalid event", encode(t, invalid), nil},
		{"duplicate", encode(t, validEvent()), fmt.Errorf("shard 1: %w", apperrors.ErrDocumentExists)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := &fakeIndexer{err: tt.err}
			handle := HandleMessage(idx, section.Default(), nil)
			if err := handle(context.Background(), nil, tt.value); err != nil {
				t.Errorf("handle returned %v, want nil so the message is committed", err)
			}
			if len(idx.docs) != 0 {
				t.Errorf("indexed %d documents", len(idx.docs))
			}
		})
	}
}

func TestHandleMessageReturnsIndexFailure(t *testing.T) {
	boom := errors.New("disk full")
	handle := HandleMessage(&fakeIndexer{err: boom}, section.Default(), nil)
	if err := handle(context.Background(), nil, encode(t, validEvent())); !errors.Is(err, boom) {
		t.Errorf("handle returned %v, want %v", err, boom)
	}
}
