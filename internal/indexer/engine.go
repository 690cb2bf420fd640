// Package indexer owns the positional inverted index of one shard: an
// in-memory index that absorbs new documents and a set of immutable
// on-disk segments it is periodically flushed into.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/packed"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/section"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/errors"
)

// Document is one unit of indexing: an external id and its sectioned text.
type Document struct {
	ID     string
	Fields []tokenizer.Field
}

type Engine struct {
	// memIndex takes new documents. flushing is the index being written to
	// a segment and stays readable until that segment is open. Both fields
	// and readers are guarded by readerMu.
	memIndex     *index.MemoryIndex
	flushing     *index.MemoryIndex
	writer       *segment.Writer
	readers      []*segment.Reader
	loaded       map[string]struct{}
	readerMu     sync.RWMutex
	flushMu      sync.Mutex
	cfg          config.IndexerConfig
	maxExpansion int
	sections     *section.Registry
	vocab        *packed.Vocabulary
	logger       *slog.Logger

	docsMu      sync.RWMutex
	docs        map[uint32]index.DocInfo
	byID        map[string]uint32
	nextOrd     uint32
	totalTokens int64
}

// NewEngine opens (or creates) the index stored in cfg.DataDir.
func NewEngine(cfg config.IndexerConfig, search config.SearchConfig, sections *section.Registry) (*Engine, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating index data directory: %w", err)
	}
	e := &Engine{
		memIndex:     index.NewMemoryIndex(),
		writer:       segment.NewWriter(cfg.DataDir),
		loaded:       make(map[string]struct{}),
		cfg:          cfg,
		maxExpansion: search.MaxWildcardExpansion,
		sections:     sections,
		vocab:        packed.NewVocabulary(),
		logger:       slog.Default().With("component", "indexer", "data_dir", cfg.DataDir),
		docs:         make(map[uint32]index.DocInfo),
		byID:         make(map[string]uint32),
	}
	if err := e.loadExistingSegments(); err != nil {
		return nil, fmt.Errorf("loading existing segments: %w", err)
	}
	return e, nil
}

// IndexDocument tokenizes doc and adds it to the in-memory index, flushing
// when the memory threshold is reached.
func (e *Engine) IndexDocument(doc Document) error {
	if doc.ID == "" {
		return fmt.Errorf("%w: document id is required", apperrors.ErrInvalidInput)
	}
	for _, f := range doc.Fields {
		if _, ok := e.sections.Lookup(f.Section); !ok {
			return fmt.Errorf("%w: document %s uses unknown section %d", apperrors.ErrInvalidInput, doc.ID, f.Section)
		}
	}
	tokens := tokenizer.Tokenize(doc.Fields)

	e.docsMu.Lock()
	if _, exists := e.byID[doc.ID]; exists {
		e.docsMu.Unlock()
		return fmt.Errorf("%w: %s", apperrors.ErrDocumentExists, doc.ID)
	}
	ord := e.nextOrd
	e.nextOrd++
	info := index.DocInfo{Ord: ord, ID: doc.ID, Length: len(tokens)}
	e.docs[ord] = info
	e.byID[doc.ID] = ord
	e.totalTokens += int64(len(tokens))
	e.docsMu.Unlock()

	// Holding the read lock keeps Flush from swapping the index out from
	// under an add in progress.
	e.readerMu.RLock()
	e.memIndex.AddDocument(ord, doc.ID, tokens, e.vocab)
	size := e.memIndex.Size()
	e.readerMu.RUnlock()

	e.logger.Debug("document indexed in memory",
		"doc_id", doc.ID,
		"ord", ord,
		"token_count", len(tokens),
		"mem_size", size,
	)
	if size >= e.cfg.SegmentMaxSize {
		e.logger.Info("memory index reached max size, flushing to disk",
			"size", size,
			"threshold", e.cfg.SegmentMaxSize,
		)
		if err := e.Flush(); err != nil {
			return fmt.Errorf("flushing memory index: %w", err)
		}
	}
	return nil
}

// Flush writes the in-memory index to a new segment. Documents indexed
// while the segment is written go to a fresh in-memory index. Flushes are
// serialized, and a failed flush is retried by the next one.
func (e *Engine) Flush() error {
	e.flushMu.Lock()
	defer e.flushMu.Unlock()

	e.readerMu.Lock()
	if e.flushing == nil {
		if e.memIndex.DocCount() == 0 {
			e.readerMu.Unlock()
			return nil
		}
		e.flushing = e.memIndex
		e.memIndex = index.NewMemoryIndex()
	}
	pending := e.flushing
	e.readerMu.Unlock()

	records, docs := pending.Snapshot()
	if len(records) == 0 {
		e.readerMu.Lock()
		e.flushing = nil
		e.readerMu.Unlock()
		return nil
	}
	segmentName, err := e.writer.Write(records, docs)
	if err != nil {
		return fmt.Errorf("writing segment: %w", err)
	}

	segPath := filepath.Join(e.cfg.DataDir, segmentName)
	reader, err := segment.OpenReader(segPath)
	if err != nil {
		if rmErr := os.Remove(segPath); rmErr != nil {
			e.logger.Error("removing unreadable segment", "segment", segmentName, "error", rmErr)
		}
		return fmt.Errorf("opening new segment for reading: %w", err)
	}
	e.readerMu.Lock()
	e.readers = append(e.readers, reader)
	e.loaded[segmentName] = struct{}{}
	e.flushing = nil
	active := len(e.readers)
	e.readerMu.Unlock()
	e.logger.Info("segment flushed",
		"segment", segmentName,
		"terms", reader.Terms(),
		"docs", reader.DocCount(),
		"active_segments", active,
	)
	return nil
}

// Lookup gathers the postings of a normalized term from memory and every
// segment and scores each posting with BM25.
func (e *Engine) Lookup(term string) (*index.Record, bool) {
	var rec *index.Record
	mems, readers := e.snapshot()
	for _, mem := range mems {
		memRec, ok := mem.Lookup(term)
		if !ok {
			continue
		}
		if rec == nil {
			rec = memRec
			continue
		}
		rec.Postings = append(rec.Postings, memRec.Postings...)
	}
	for _, reader := range readers {
		segRec, err := reader.Lookup(term)
		if err != nil {
			e.logger.Error("segment lookup failed",
				"segment", reader.Path(),
				"term", term,
				"error", err,
			)
			continue
		}
		if segRec == nil {
			continue
		}
		if rec == nil {
			rec = segRec
			continue
		}
		rec.Postings = append(rec.Postings, segRec.Postings...)
	}
	if rec == nil {
		return nil, false
	}
	rec.Postings = deduplicatePostings(rec.Postings)
	e.score(rec.Postings)
	return rec, len(rec.Postings) > 0
}

func (e *Engine) score(postings index.PostingList) {
	e.docsMu.RLock()
	defer e.docsMu.RUnlock()
	stats := e.statsLocked()
	for i := range postings {
		length := e.docs[postings[i].DocID].Length
		postings[i].Score = ranker.Weight(postings[i].Frequency(), length, len(postings), stats)
	}
}

// Expand lists the vocabulary terms matching a wildcard pattern in sorted
// order, capped at the configured expansion limit.
func (e *Engine) Expand(pattern string) []string {
	if _, err := path.Match(pattern, ""); err != nil {
		e.logger.Warn("invalid wildcard pattern", "pattern", pattern, "error", err)
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	consider := func(term string) {
		if _, dup := seen[term]; dup {
			return
		}
		if ok, _ := path.Match(pattern, term); ok {
			seen[term] = struct{}{}
			out = append(out, term)
		}
	}
	mems, readers := e.snapshot()
	for _, mem := range mems {
		for _, term := range mem.Terms() {
			consider(term)
		}
	}
	for _, reader := range readers {
		for _, entry := range reader.Dictionary() {
			consider(entry.Term)
		}
	}
	sort.Strings(out)
	if e.maxExpansion > 0 && len(out) > e.maxExpansion {
		e.logger.Debug("wildcard expansion truncated",
			"pattern", pattern,
			"matches", len(out),
			"limit", e.maxExpansion,
		)
		out = out[:e.maxExpansion]
	}
	return out
}

// IsIndexable reports whether term can appear in the index at all.
func (e *Engine) IsIndexable(term string) bool {
	return tokenizer.IsIndexable(term)
}

// Sections returns the section registry documents are indexed against.
func (e *Engine) Sections() *section.Registry {
	return e.sections
}

// Vocabulary returns the engine's term-id table.
func (e *Engine) Vocabulary() *packed.Vocabulary {
	return e.vocab
}

// DocName returns the external id of the document with ordinal ord.
func (e *Engine) DocName(ord uint32) (string, bool) {
	e.docsMu.RLock()
	defer e.docsMu.RUnlock()
	info, ok := e.docs[ord]
	return info.ID, ok
}

// Stats returns the corpus statistics used for scoring.
func (e *Engine) Stats() ranker.CorpusStats {
	e.docsMu.RLock()
	defer e.docsMu.RUnlock()
	return e.statsLocked()
}

func (e *Engine) statsLocked() ranker.CorpusStats {
	stats := ranker.CorpusStats{TotalDocs: int64(len(e.docs))}
	if stats.TotalDocs > 0 {
		stats.AvgDocLength = float64(e.totalTokens) / float64(stats.TotalDocs)
	}
	return stats
}

// DocCount returns the number of documents known to the engine.
func (e *Engine) DocCount() int {
	e.docsMu.RLock()
	defer e.docsMu.RUnlock()
	return len(e.docs)
}

func (e *Engine) StartFlushLoop(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.FlushInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				e.logger.Info("flush loop stopping, performing final flush")
				if err := e.Flush(); err != nil {
					e.logger.Error("final flush failed", "error", err)
				}
				return
			case <-ticker.C:
				if e.pendingDocs() > 0 {
					if err := e.Flush(); err != nil {
						e.logger.Error("periodic flush failed", "error", err)
					}
				}
			}
		}
	}()
}

// ReloadSegments opens segment files written to the data directory since
// the last scan, typically by a separate indexer process. It returns the
// number of segments added.
func (e *Engine) ReloadSegments() int {
	names, err := e.segmentFiles()
	if err != nil {
		e.logger.Error("scanning for new segments failed", "error", err)
		return 0
	}
	added := 0
	for _, name := range names {
		e.readerMu.RLock()
		_, known := e.loaded[name]
		e.readerMu.RUnlock()
		if known {
			continue
		}
		if err := e.openSegment(name); err != nil {
			e.logger.Error("failed to open segment, skipping", "segment", name, "error", err)
			continue
		}
		added++
	}
	if added > 0 {
		e.logger.Info("reloaded segments", "added", added)
	}
	return added
}

func (e *Engine) Close() error {
	if err := e.Flush(); err != nil {
		e.logger.Error("final flush on close failed", "error", err)
	}
	e.readerMu.Lock()
	defer e.readerMu.Unlock()
	for _, reader := range e.readers {
		if err := reader.Close(); err != nil {
			e.logger.Error("closing segment reader", "error", err)
		}
	}
	e.readers = nil
	return nil
}

// snapshot returns the in-memory indexes and segment readers that together
// hold every indexed document.
func (e *Engine) snapshot() ([]*index.MemoryIndex, []*segment.Reader) {
	e.readerMu.RLock()
	defer e.readerMu.RUnlock()
	mems := []*index.MemoryIndex{e.memIndex}
	if e.flushing != nil {
		mems = append(mems, e.flushing)
	}
	readers := make([]*segment.Reader, len(e.readers))
	copy(readers, e.readers)
	return mems, readers
}

// pendingDocs counts documents not yet written to a segment.
func (e *Engine) pendingDocs() int {
	mems, _ := e.snapshot()
	n := 0
	for _, mem := range mems {
		n += mem.DocCount()
	}
	return n
}

func (e *Engine) segmentFiles() ([]string, error) {
	entries, err := os.ReadDir(e.cfg.DataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading data directory: %w", err)
	}
	names := make([]string, 0)
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), segment.Extension) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// openSegment registers a segment's readers, documents and vocabulary.
func (e *Engine) openSegment(name string) error {
	reader, err := segment.OpenReader(filepath.Join(e.cfg.DataDir, name))
	if err != nil {
		return err
	}
	for _, entry := range reader.Dictionary() {
		e.vocab.Restore(entry.Term, entry.Order)
	}
	e.docsMu.Lock()
	for _, info := range reader.Docs() {
		if _, dup := e.docs[info.Ord]; dup {
			continue
		}
		e.docs[info.Ord] = info
		e.byID[info.ID] = info.Ord
		e.totalTokens += int64(info.Length)
		if info.Ord >= e.nextOrd {
			e.nextOrd = info.Ord + 1
		}
	}
	e.docsMu.Unlock()

	e.readerMu.Lock()
	e.readers = append(e.readers, reader)
	e.loaded[name] = struct{}{}
	e.readerMu.Unlock()
	e.logger.Info("loaded segment",
		"segment", name,
		"terms", reader.Terms(),
		"docs", reader.DocCount(),
	)
	return nil
}

func (e *Engine) loadExistingSegments() error {
	names, err := e.segmentFiles()
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := e.openSegment(name); err != nil {
			e.logger.Error("failed to open segment, skipping",
				"segment", name,
				"error", err,
			)
		}
	}
	e.logger.Info("segment recovery complete", "segments_loaded", len(e.readers))
	return nil
}

// deduplicatePostings keeps the first posting per document and sorts by
// document ordinal.
func deduplicatePostings(postings index.PostingList) index.PostingList {
	if len(postings) <= 1 {
		return postings
	}
	seen := make(map[uint32]struct{}, len(postings))
	result := make(index.PostingList, 0, len(postings))
	for _, p := range postings {
		if _, exists := seen[p.DocID]; exists {
			continue
		}
		seen[p.DocID] = struct{}{}
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DocID < result[j].DocID
	})
	return result
}
