package index

import (
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/tokenizer"
)

// Interner assigns vocabulary order numbers to terms.
type Interner interface {
	Intern(term string) uint32
}

type memTerm struct {
	order uint32
	docs  map[uint32]*Posting
}

// MemoryIndex is the mutable in-memory part of an engine's index. It is
// flushed to an immutable segment and reset when it grows too large.
type MemoryIndex struct {
	mu    sync.RWMutex
	index map[string]*memTerm
	docs  []DocInfo
	size  int64
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		index: make(map[string]*memTerm),
	}
}

// AddDocument stores the tokens of the document with ordinal ord.
func (m *MemoryIndex) AddDocument(ord uint32, docID string, tokens []tokenizer.Token, vocab Interner) {
	termData := make(map[string]*Posting)
	orders := make(map[string]uint32)
	for _, tok := range tokens {
		p, exists := termData[tok.Term]
		if !exists {
			orders[tok.Term] = vocab.Intern(tok.Term)
			p = &Posting{
				DocID:   ord,
				Offsets: make([]Offset, 0, 4),
			}
			termData[tok.Term] = p
		}
		p.Offsets = append(p.Offsets, Offset{
			Offset:   tok.Offset,
			Sentence: tok.Sentence,
			Order:    tok.Order,
			Section:  tok.Section,
			Term:     orders[tok.Term],
		})
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for term, posting := range termData {
		mt, exists := m.index[term]
		if !exists {
			mt = &memTerm{order: orders[term], docs: make(map[uint32]*Posting)}
			m.index[term] = mt
		}
		mt.docs[ord] = posting
		m.size += int64(len(term) + 8 + len(posting.Offsets)*17 + 64)
	}
	m.docs = append(m.docs, DocInfo{Ord: ord, ID: docID, Length: len(tokens)})
}

// Lookup returns the record of term, or false when the term is absent.
func (m *MemoryIndex) Lookup(term string) (*Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mt, exists := m.index[term]
	if !exists {
		return nil, false
	}
	return mt.record(term), true
}

func (mt *memTerm) record(term string) *Record {
	postings := make(PostingList, 0, len(mt.docs))
	for _, posting := range mt.docs {
		postings = append(postings, *posting)
	}
	sort.Slice(postings, func(i, j int) bool {
		return postings[i].DocID < postings[j].DocID
	})
	return &Record{Term: term, Order: mt.order, Postings: postings}
}

// Terms returns the vocabulary in sorted order.
func (m *MemoryIndex) Terms() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	terms := make([]string, 0, len(m.index))
	for term := range m.index {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

// Snapshot returns all records sorted by term together with the documents
// they reference.
func (m *MemoryIndex) Snapshot() ([]Record, []DocInfo) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	records := make([]Record, 0, len(m.index))
	for term, mt := range m.index {
		records = append(records, *mt.record(term))
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Term < records[j].Term
	})
	docs := make([]DocInfo, len(m.docs))
	copy(docs, m.docs)
	return records, docs
}

func (m *MemoryIndex) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

func (m *MemoryIndex) DocCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func (m *MemoryIndex) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = make(map[string]*memTerm)
	m.docs = nil
	m.size = 0
}
