// Package watcher checks every newly ingested document against a set of
// saved queries and publishes a MatchEvent for each hit. Documents are
// never indexed here: each one is packed into a throwaway token table and
// the compiled queries run over it with the match evaluator.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/packed"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/section"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/query"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/resilience"
)

type compiledQuery struct {
	id   string
	plan *query.Plan
}

// Watcher holds the compiled saved queries. Reload swaps the whole set
// atomically, so matching never sees a half-loaded set.
type Watcher struct {
	source    Source
	publisher kafka.Publisher
	sections  *section.Registry
	vocab     *packed.Vocabulary
	compiler  *query.Compiler
	matcher   *query.Matcher
	metrics   *metrics.Metrics
	retry     resilience.RetryConfig
	maxVocab  int
	logger    *slog.Logger

	queries   atomic.Pointer[[]compiledQuery]
	vocabFull atomic.Bool
	matchMu   sync.Mutex
}

// New creates a Watcher. m may be nil.
func New(source Source, publisher kafka.Publisher, sections *section.Registry, search config.SearchConfig, cfg config.WatcherConfig, m *metrics.Metrics) *Watcher {
	vocab := packed.NewVocabulary()
	w := &Watcher{
		source:    source,
		publisher: publisher,
		sections:  sections,
		vocab:     vocab,
		matcher:   query.NewMatcher(vocab, sections),
		metrics:   m,
		maxVocab:  cfg.MaxVocabulary,
		retry:     resilience.RetryConfig{MaxAttempts: 5, InitialDelay: 200 * time.Millisecond},
		logger:    slog.Default().With("component", "watcher"),
	}
	w.compiler = query.NewCompiler(tokenizer.Analyzer{}, query.ExpanderFunc(func(pattern string) []string {
		return vocab.Expand(pattern, search.MaxWildcardExpansion)
	}))
	w.queries.Store(&[]compiledQuery{})
	return w
}

// Reload fetches and compiles the saved queries. Queries that fail to
// compile are skipped and logged. Wildcards expand against the terms seen
// in documents so far, and every term a query searches for is added to the
// vocabulary so documents can be matched against it once the vocabulary
// stops learning.
func (w *Watcher) Reload(ctx context.Context) error {
	var saved []SavedQuery
	err := resilience.Retry(ctx, "load saved queries", w.retry, func() error {
		var err error
		saved, err = w.source.List(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("reloading saved queries: %w", err)
	}
	compiled := make([]compiledQuery, 0, len(saved))
	for _, sq := range saved {
		plan, err := w.compiler.Compile(sq.Query)
		if err != nil {
			w.logger.Warn("skipping saved query that does not compile",
				"query_id", sq.ID,
				"query", sq.Query,
				"error", err,
			)
			continue
		}
		for _, in := range plan.Postfix.Instrs {
			if in.Kind == query.KindTerm && w.vocab.IsIndexable(in.Text) {
				w.vocab.Intern(in.Text)
			}
		}
		compiled = append(compiled, compiledQuery{id: sq.ID, plan: plan})
	}
	w.queries.Store(&compiled)
	if w.metrics != nil {
		w.metrics.SavedQueries.Set(float64(len(compiled)))
	}
	w.logger.Info("saved queries loaded", "loaded", len(compiled), "skipped", len(saved)-len(compiled))
	return nil
}

// StartReloadLoop reloads the saved queries every interval until ctx is
// cancelled.
func (w *Watcher) StartReloadLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := w.Reload(ctx); err != nil {
					w.logger.Error("periodic reload failed", "error", err)
				}
			}
		}
	}()
}

// QueryCount returns the number of compiled saved queries.
func (w *Watcher) QueryCount() int {
	return len(*w.queries.Load())
}

// Match runs every saved query over doc and returns one event per match.
// A document with positions beyond the packed code range cannot be
// evaluated faithfully, so every query fails open for it.
func (w *Watcher) Match(doc indexer.Document) []MatchEvent {
	tokens := tokenizer.Tokenize(doc.Fields)
	table, dropped := w.buildTable(tokens)
	truncated := dropped > 0
	if truncated {
		w.logger.Warn("document positions exceed packed code range, failing open",
			"doc_id", doc.ID,
			"dropped_tokens", dropped,
		)
	}

	w.matchMu.Lock()
	defer w.matchMu.Unlock()
	now := time.Now().UTC()
	var events []MatchEvent
	for _, cq := range *w.queries.Load() {
		var failOpen bool
		if truncated {
			failOpen = w.matcher.FailOpen()
		} else {
			before := w.matcher.FailOpenCount()
			if !w.matcher.Matches(cq.plan.Postfix, table) {
				continue
			}
			failOpen = w.matcher.FailOpenCount() > before
		}
		if failOpen && w.metrics != nil {
			w.metrics.WatcherFailOpenTotal.Inc()
		}
		events = append(events, MatchEvent{
			QueryID:    cq.id,
			DocumentID: doc.ID,
			FailOpen:   failOpen,
			MatchedAt:  now,
		})
	}
	if w.metrics != nil {
		w.metrics.WatcherDocsTotal.Inc()
		w.metrics.WatcherMatchesTotal.Add(float64(len(events)))
	}
	return events
}

// buildTable packs tokens, learning new terms until the vocabulary reaches
// its cap.
func (w *Watcher) buildTable(tokens []tokenizer.Token) (*packed.Table, int) {
	if w.maxVocab <= 0 || w.vocab.Len() < w.maxVocab {
		return packed.BuildTable(tokens, w.vocab)
	}
	if w.vocabFull.CompareAndSwap(false, true) {
		w.logger.Warn("watcher vocabulary is full, new document terms are no longer learned",
			"terms", w.vocab.Len(),
			"max_vocabulary", w.maxVocab,
		)
	}
	return packed.BuildKnownTable(tokens, w.vocab)
}

// HandleMessage returns a Kafka MessageHandler that matches each ingest
// event and publishes the resulting MatchEvents. A publish failure after
// retries is returned so the message is redelivered.
func (w *Watcher) HandleMessage() kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.IngestEvent](value)
		if err != nil {
			w.logger.Error("failed to decode ingest event", "error", err, "key", string(key))
			return nil
		}
		if err := validator.ValidateIngestEvent(&event, w.sections); err != nil {
			w.logger.Warn("ignoring invalid ingest event", "doc_id", event.DocumentID, "error", err)
			return nil
		}
		matches := w.Match(event.Document(w.sections))
		if len(matches) == 0 {
			return nil
		}
		batch := make([]kafka.Event, len(matches))
		for i, m := range matches {
			batch[i] = kafka.Event{Key: m.QueryID, Type: MatchEventType, Value: m}
		}
		err = resilience.Retry(ctx, "publish matches", w.retry, func() error {
			return w.publisher.PublishBatch(ctx, batch)
		})
		if err != nil {
			return fmt.Errorf("publishing %d matches for %s: %w", len(batch), event.DocumentID, err)
		}
		w.logger.Info("document matched saved queries",
			"doc_id", event.DocumentID,
			"matches", len(matches),
		)
		return nil
	}
}
