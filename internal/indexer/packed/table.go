package packed

import (
	"fmt"
	"path"
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/tokenizer"
)

// Vocabulary assigns stable integer ids to terms. It is safe for
// concurrent use.
type Vocabulary struct {
	mu   sync.RWMutex
	ids  map[string]uint32
	next uint32
}

// NewVocabulary creates an empty Vocabulary.
func NewVocabulary() *Vocabulary {
	return &Vocabulary{ids: make(map[string]uint32)}
}

// Intern returns the id of term, assigning the next free id if needed.
func (v *Vocabulary) Intern(term string) uint32 {
	v.mu.RLock()
	id, ok := v.ids[term]
	v.mu.RUnlock()
	if ok {
		return id
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if id, ok := v.ids[term]; ok {
		return id
	}
	id = v.next
	v.ids[term] = id
	v.next++
	return id
}

// Restore records a term id read back from storage. Later Intern calls
// never reuse it.
func (v *Vocabulary) Restore(term string, id uint32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ids[term] = id
	if id >= v.next {
		v.next = id + 1
	}
}

// ID returns the id of a known term.
func (v *Vocabulary) ID(term string) (uint32, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	id, ok := v.ids[term]
	return id, ok
}

// IsIndexable defers to the document tokenizer's stop-word rules.
func (v *Vocabulary) IsIndexable(term string) bool {
	return tokenizer.IsIndexable(term)
}

// Terms returns every interned term in sorted order.
func (v *Vocabulary) Terms() []string {
	v.mu.RLock()
	terms := make([]string, 0, len(v.ids))
	for term := range v.ids {
		terms = append(terms, term)
	}
	v.mu.RUnlock()
	sort.Strings(terms)
	return terms
}

// Expand returns the sorted terms matching a glob pattern, at most limit of
// them when limit is positive. A malformed pattern matches nothing.
func (v *Vocabulary) Expand(pattern string, limit int) []string {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil
	}
	var out []string
	for _, term := range v.Terms() {
		if ok, _ := path.Match(pattern, term); ok {
			out = append(out, term)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out
}

// Len returns the number of interned terms.
func (v *Vocabulary) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.ids)
}

// Table maps term ids to the sorted packed positions of a batch of
// documents.
type Table struct {
	codes map[uint32][]Code
}

// Codes returns the positions of termID, or nil.
func (t *Table) Codes(termID uint32) []Code {
	return t.codes[termID]
}

// Terms returns the number of distinct terms in the table.
func (t *Table) Terms() int {
	return len(t.codes)
}

// Add packs the tokens of one document into the table under slot doc.
// Tokens whose fields do not fit the code layout are dropped and counted.
func (t *Table) Add(doc uint32, tokens []tokenizer.Token, vocab *Vocabulary) (dropped int, err error) {
	return t.add(doc, tokens, func(term string) (uint32, bool) {
		return vocab.Intern(term), true
	})
}

// AddKnown is Add without interning: tokens whose term has no id in vocab
// are skipped and not counted as dropped.
func (t *Table) AddKnown(doc uint32, tokens []tokenizer.Token, vocab *Vocabulary) (dropped int, err error) {
	return t.add(doc, tokens, vocab.ID)
}

func (t *Table) add(doc uint32, tokens []tokenizer.Token, termID func(string) (uint32, bool)) (dropped int, err error) {
	if doc > MaxDoc {
		return 0, fmt.Errorf("document slot %d exceeds %d", doc, MaxDoc)
	}
	for _, tok := range tokens {
		code, err := Encode(doc, tok.Offset, tok.Order, tok.Sentence, tok.Section)
		if err != nil {
			dropped++
			continue
		}
		id, ok := termID(tok.Term)
		if !ok {
			continue
		}
		t.codes[id] = append(t.codes[id], code)
	}
	for id, list := range t.codes {
		if !sort.SliceIsSorted(list, func(i, j int) bool { return list[i] < list[j] }) {
			sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
			t.codes[id] = list
		}
	}
	return dropped, nil
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{codes: make(map[uint32][]Code)}
}

// BuildTable packs a single document into a new table at slot 0.
func BuildTable(tokens []tokenizer.Token, vocab *Vocabulary) (*Table, int) {
	t := NewTable()
	dropped, _ := t.Add(0, tokens, vocab)
	return t, dropped
}

// BuildKnownTable packs a single document at slot 0 without growing vocab.
func BuildKnownTable(tokens []tokenizer.Token, vocab *Vocabulary) (*Table, int) {
	t := NewTable()
	dropped, _ := t.AddKnown(0, tokens, vocab)
	return t, dropped
}
