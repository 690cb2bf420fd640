package query

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/packed"
)

// Vocabulary maps terms to the ids used as TokenTable keys.
type Vocabulary interface {
	ID(term string) (uint32, bool)
	IsIndexable(term string) bool
}

// TokenTable holds the packed positions of each term of the documents
// being matched, sorted ascending.
type TokenTable interface {
	Codes(termID uint32) []packed.Code
}

// Matcher answers whether a compiled query matches freshly tokenized
// documents. Failures fail open: a query that cannot be evaluated is
// reported as matching.
type Matcher struct {
	vocab    Vocabulary
	sections Sections
	logger   *slog.Logger

	mu  sync.RWMutex
	ids map[string]uint32

	failOpen atomic.Int64
}

// NewMatcher creates a Matcher. The term id cache lives as long as the
// Matcher.
func NewMatcher(vocab Vocabulary, sections Sections) *Matcher {
	return &Matcher{
		vocab:    vocab,
		sections: sections,
		logger:   slog.Default().With("component", "query-matcher"),
		ids:      make(map[string]uint32),
	}
}

// Matches reports whether p leaves a non-empty operand when evaluated over
// table.
func (m *Matcher) Matches(p *Postfix, table TokenTable) (matched bool) {
	defer func() {
		if r := recover(); r != nil {
			m.failOpen.Add(1)
			m.logger.Warn("match evaluation panicked, treating as match", "plan", p.String(), "panic", fmt.Sprint(r))
			matched = true
		}
	}()
	top, err := run[[]packed.Code](p, &matchEvaluation{Matcher: m, table: table})
	if err != nil {
		m.failOpen.Add(1)
		m.logger.Warn("match evaluation failed, treating as match", "plan", p.String(), "error", err)
		return true
	}
	return len(top) > 0
}

// FailOpen records an evaluation the caller could not run faithfully, for
// example over a table missing some of the document's positions, and
// reports it as a match.
func (m *Matcher) FailOpen() bool {
	m.failOpen.Add(1)
	return true
}

// FailOpenCount returns how many evaluations failed and were reported as
// matches.
func (m *Matcher) FailOpenCount() int64 {
	return m.failOpen.Load()
}

func (m *Matcher) termID(term string) (uint32, bool) {
	m.mu.RLock()
	id, ok := m.ids[term]
	m.mu.RUnlock()
	if ok {
		return id, true
	}
	id, ok = m.vocab.ID(term)
	if !ok {
		return 0, false
	}
	m.mu.Lock()
	m.ids[term] = id
	m.mu.Unlock()
	return id, true
}

type matchEvaluation struct {
	*Matcher
	table TokenTable
}

func (me *matchEvaluation) isStop([]packed.Code) bool { return false }

func (me *matchEvaluation) term(text string) []packed.Code {
	if !me.vocab.IsIndexable(text) {
		return nil
	}
	id, ok := me.termID(text)
	if !ok {
		return nil
	}
	return me.table.Codes(id)
}

func (me *matchEvaluation) section(name string, codes []packed.Code) ([]packed.Code, error) {
	id, ok := me.sections.ResolveShort(name)
	if !ok {
		id, ok = me.sections.ResolveFull(name)
	}
	if !ok {
		return nil, &sectionError{name: name}
	}
	var out []packed.Code
	for _, c := range codes {
		if c.SectionID() == id {
			out = append(out, c)
		}
	}
	return out, nil
}

func (me *matchEvaluation) combine(kind Kind, left, right []packed.Code) []packed.Code {
	req, needsProximity := required(kind)
	if !needsProximity {
		return unionCodes(left, right)
	}
	var out []packed.Code
	l, r := docRuns(left), docRuns(right)
	i, j := 0, 0
	for i < len(l) && j < len(r) {
		ld, rd := l[i][0].DocID(), r[j][0].DocID()
		switch {
		case ld < rd:
			i++
		case ld > rd:
			j++
		default:
			if Estimate(l[i], r[j]).Satisfies(req) {
				if req == ProximityPhrase {
					out = append(out, phrasePairs(l[i], r[j])...)
				} else {
					out = append(out, mergePositions(l[i], r[j])...)
				}
			}
			i++
			j++
		}
	}
	return out
}

// unionCodes merges two sorted code lists, dropping duplicates.
func unionCodes(a, b []packed.Code) []packed.Code {
	out := make([]packed.Code, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

// docRuns splits a sorted code list into per-document runs.
func docRuns(codes []packed.Code) [][]packed.Code {
	var runs [][]packed.Code
	start := 0
	for k := 1; k <= len(codes); k++ {
		if k == len(codes) || codes[k].DocID() != codes[start].DocID() {
			runs = append(runs, codes[start:k])
			start = k
		}
	}
	return runs
}
