package query

import (
	"errors"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/index"
)

// Index is the read-only inverted index consulted by the Evaluator.
type Index interface {
	Lookup(term string) (*index.Record, bool)
	IsIndexable(term string) bool
}

// Sections resolves section names to the ids stored in offsets.
type Sections interface {
	ResolveShort(name string) (uint8, bool)
	ResolveFull(name string) (uint8, bool)
}

// Entry is one matching document.
type Entry struct {
	DocID     uint32
	Score     float64
	Proximity Proximity
	Offsets   []index.Offset
}

// Result is the outcome of evaluating one plan.
type Result struct {
	Entries   []Entry
	Status    Status
	Stopwords []string
	Lexemes   []string
}

// Evaluator runs postfix plans against an index and returns ranked
// entries. It holds no per-query state and may be shared across
// goroutines.
type Evaluator struct {
	index    Index
	sections Sections
}

// NewEvaluator creates an Evaluator over idx and the given section registry.
func NewEvaluator(idx Index, sections Sections) *Evaluator {
	return &Evaluator{index: idx, sections: sections}
}

// Evaluate runs p to completion. Semantic problems are reported through
// Result.Status; a non-nil error means the plan itself was malformed.
func (e *Evaluator) Evaluate(p *Postfix) (*Result, error) {
	ev := &evaluation{
		Evaluator: e,
		seenStop:  make(map[string]struct{}),
		seenLex:   make(map[string]struct{}),
		lookups:   make(map[string]*entrySet),
	}
	res := &Result{Status: StatusOK}
	top, err := run[*entrySet](p, ev)
	res.Stopwords = ev.stopwords
	res.Lexemes = ev.lexemes
	if err != nil {
		var se *sectionError
		if errors.As(err, &se) {
			res.Status = StatusIllegalSectionName
			return res, nil
		}
		res.Status = StatusIllegalQuerySyntax
		return res, err
	}
	if top == nil || top.stop {
		return res, nil
	}
	entries := top.entries
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].DocID < entries[j].DocID
	})
	res.Entries = entries
	return res, nil
}

// entrySet is an operand: a doc-sorted entry list or the stop-word marker.
// A nil *entrySet is the null operand.
type entrySet struct {
	stop    bool
	entries []Entry
}

var stopMarker = &entrySet{stop: true}

// evaluation carries the state of a single Evaluate call.
type evaluation struct {
	*Evaluator
	stopwords []string
	lexemes   []string
	seenStop  map[string]struct{}
	seenLex   map[string]struct{}
	lookups   map[string]*entrySet
}

func (ev *evaluation) isStop(x *entrySet) bool {
	return x != nil && x.stop
}

func (ev *evaluation) term(text string) *entrySet {
	if !ev.index.IsIndexable(text) {
		if _, ok := ev.seenStop[text]; !ok {
			ev.seenStop[text] = struct{}{}
			ev.stopwords = append(ev.stopwords, text)
		}
		return stopMarker
	}
	if set, ok := ev.lookups[text]; ok {
		return set
	}
	var set *entrySet
	if rec, ok := ev.index.Lookup(text); ok && len(rec.Postings) > 0 {
		if _, seen := ev.seenLex[text]; !seen {
			ev.seenLex[text] = struct{}{}
			ev.lexemes = append(ev.lexemes, text)
		}
		entries := make([]Entry, len(rec.Postings))
		for i, p := range rec.Postings {
			entries[i] = Entry{
				DocID:     p.DocID,
				Score:     p.Score,
				Proximity: ProximityDocument,
				Offsets:   p.Offsets,
			}
		}
		set = &entrySet{entries: entries}
	}
	ev.lookups[text] = set
	return set
}

func (ev *evaluation) section(name string, x *entrySet) (*entrySet, error) {
	id, ok := ev.sections.ResolveShort(name)
	if !ok {
		id, ok = ev.sections.ResolveFull(name)
	}
	if !ok {
		return nil, &sectionError{name: name}
	}
	if x == nil {
		return nil, nil
	}
	var out []Entry
	for _, en := range x.entries {
		var offs []index.Offset
		for _, o := range en.Offsets {
			if o.Section == id {
				offs = append(offs, o)
			}
		}
		if len(offs) == 0 {
			continue
		}
		out = append(out, Entry{
			DocID:     en.DocID,
			Score:     en.Score,
			Proximity: en.Proximity,
			Offsets:   offs,
		})
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &entrySet{entries: out}, nil
}

func (ev *evaluation) combine(kind Kind, left, right *entrySet) *entrySet {
	req, needsProximity := required(kind)
	if !needsProximity {
		switch {
		case left == nil:
			return right
		case right == nil:
			return left
		}
		return union(left.entries, right.entries)
	}
	if left == nil || right == nil {
		return nil
	}
	return intersect(left.entries, right.entries, req)
}

func union(a, b []Entry) *entrySet {
	out := make([]Entry, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].DocID < b[j].DocID:
			out = append(out, a[i])
			i++
		case a[i].DocID > b[j].DocID:
			out = append(out, b[j])
			j++
		default:
			out = append(out, Entry{
				DocID:     a[i].DocID,
				Score:     a[i].Score + b[j].Score,
				Proximity: ProximityDocument,
				Offsets:   mergePositions(a[i].Offsets, b[j].Offsets),
			})
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return &entrySet{entries: out}
}

func intersect(a, b []Entry, req Proximity) *entrySet {
	var out []Entry
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].DocID < b[j].DocID:
			i++
		case a[i].DocID > b[j].DocID:
			j++
		default:
			measured := Estimate(a[i].Offsets, b[j].Offsets)
			if measured.Satisfies(req) {
				var offs []index.Offset
				if req == ProximityPhrase {
					offs = phrasePairs(a[i].Offsets, b[j].Offsets)
				} else {
					offs = mergePositions(a[i].Offsets, b[j].Offsets)
				}
				if len(offs) > 0 {
					out = append(out, Entry{
						DocID:     a[i].DocID,
						Score:     a[i].Score + b[j].Score,
						Proximity: measured,
						Offsets:   offs,
					})
				}
			}
			i++
			j++
		}
	}
	if len(out) == 0 {
		return nil
	}
	return &entrySet{entries: out}
}
