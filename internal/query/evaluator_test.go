package query

import (
	"errors"
	"reflect"
	"sort"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/section"
)

const (
	secTitle uint8 = 1
	secBody  uint8 = 2
)

// memIndex is a hand-built index: term -> doc -> occurrences.
type memIndex struct {
	postings map[string][]index.Posting
	stop     map[string]bool
	lookups  int
}

func newMemIndex() *memIndex {
	return &memIndex{
		postings: make(map[string][]index.Posting),
		stop:     map[string]bool{"the": true, "of": true},
	}
}

// add records one occurrence. Occurrences must be added in offset order
// per document.
func (m *memIndex) add(term string, doc uint32, score float64, o index.Offset) {
	list := m.postings[term]
	for i := range list {
		if list[i].DocID == doc {
			list[i].Offsets = append(list[i].Offsets, o)
			list[i].Score += score
			return
		}
	}
	list = append(list, index.Posting{DocID: doc, Score: score, Offsets: []index.Offset{o}})
	sort.Slice(list, func(i, j int) bool { return list[i].DocID < list[j].DocID })
	m.postings[term] = list
}

func (m *memIndex) Lookup(term string) (*index.Record, bool) {
	m.lookups++
	list, ok := m.postings[term]
	if !ok {
		return nil, false
	}
	return &index.Record{Term: term, Postings: list}, true
}

func (m *memIndex) IsIndexable(term string) bool {
	return !m.stop[term]
}

func at(offset, sentence, order uint32, sec uint8) index.Offset {
	return index.Offset{Offset: offset, Sentence: sentence, Order: order, Section: sec}
}

// proximityCorpus holds cat and dog at decreasing closeness:
//
//	doc 1: "cat dog" adjacent
//	doc 2: cat and dog in one sentence with a gap
//	doc 3: cat and dog in different sentences
//	doc 4: cat only
func proximityCorpus() *memIndex {
	m := newMemIndex()
	m.add("cat", 1, 1.0, at(3, 0, 3, secBody))
	m.add("dog", 1, 1.0, at(7, 0, 4, secBody))

	m.add("cat", 2, 1.0, at(0, 0, 0, secBody))
	m.add("dog", 2, 1.0, at(20, 0, 4, secBody))

	m.add("cat", 3, 1.0, at(0, 0, 0, secBody))
	m.add("dog", 3, 1.0, at(30, 1, 7, secBody))

	m.add("cat", 4, 1.0, at(0, 0, 0, secTitle))
	return m
}

func evaluate(t *testing.T, idx Index, q string) *Result {
	t.Helper()
	plan, err := newTestCompiler(nil).Compile(q)
	if err != nil {
		t.Fatalf("Compile(%q): %v", q, err)
	}
	res, err := NewEvaluator(idx, section.Default()).Evaluate(plan.Postfix)
	if err != nil {
		t.Fatalf("Evaluate(%q): %v", q, err)
	}
	return res
}

func docIDs(res *Result) []uint32 {
	ids := make([]uint32, len(res.Entries))
	for i, e := range res.Entries {
		ids[i] = e.DocID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func TestEvaluatePhraseOrder(t *testing.T) {
	m := newMemIndex()
	m.add("cat", 1, 1.0, at(3, 0, 3, secBody))
	m.add("dog", 1, 1.0, at(4, 0, 4, secBody))

	res := evaluate(t, m, `"cat dog"`)
	if got := docIDs(res); !reflect.DeepEqual(got, []uint32{1}) {
		t.Fatalf(`"cat dog" matched %v, want [1]`, got)
	}
	if res.Entries[0].Proximity != ProximityPhrase {
		t.Errorf("proximity = %s, want phrase", res.Entries[0].Proximity)
	}

	res = evaluate(t, m, `"dog cat"`)
	if len(res.Entries) != 0 {
		t.Errorf(`"dog cat" matched %v, want nothing`, docIDs(res))
	}
	if res.Status != StatusOK {
		t.Errorf("status = %s, want ok", res.Status)
	}
}

func TestEvaluateUnknownTerm(t *testing.T) {
	res := evaluate(t, proximityCorpus(), "unknownterm")
	if len(res.Entries) != 0 || res.Status != StatusOK {
		t.Errorf("got %d entries, status %s; want none, ok", len(res.Entries), res.Status)
	}
	if len(res.Lexemes) != 0 {
		t.Errorf("lexemes = %v, want none for an absent term", res.Lexemes)
	}
}

func TestEvaluateIllegalSection(t *testing.T) {
	for _, q := range []string{"cat[nosuchsection]", "unknownterm[nosuchsection]", "(cat and dog)[nosuchsection]"} {
		t.Run(q, func(t *testing.T) {
			res := evaluate(t, proximityCorpus(), q)
			if res.Status != StatusIllegalSectionName {
				t.Errorf("status = %s, want illegal_section_name", res.Status)
			}
			if len(res.Entries) != 0 {
				t.Errorf("got %d entries, want none", len(res.Entries))
			}
		})
	}
}

func TestEvaluateSectionNames(t *testing.T) {
	corpus := proximityCorpus()
	for _, q := range []string{"cat[ti]", "cat[title]", "cat[TITLE]"} {
		t.Run(q, func(t *testing.T) {
			if got := docIDs(evaluate(t, corpus, q)); !reflect.DeepEqual(got, []uint32{4}) {
				t.Errorf("%s matched %v, want [4]", q, got)
			}
		})
	}
	if got := docIDs(evaluate(t, corpus, "cat[ab]")); !reflect.DeepEqual(got, []uint32{1, 2, 3}) {
		t.Errorf("cat[ab] matched %v, want [1 2 3]", got)
	}
}

func TestEvaluateProximityIsMonotonic(t *testing.T) {
	corpus := proximityCorpus()
	tests := []struct {
		query string
		want  []uint32
	}{
		{`"cat dog"`, []uint32{1}},
		{"cat near dog", []uint32{1, 2}},
		{"dog near cat", []uint32{1, 2}},
		{"cat and dog", []uint32{1, 2, 3}},
		{"cat or dog", []uint32{1, 2, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := docIDs(evaluate(t, corpus, tt.query)); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("%s matched %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestEvaluateReportsMeasuredProximity(t *testing.T) {
	res := evaluate(t, proximityCorpus(), "cat and dog")
	want := map[uint32]Proximity{1: ProximityPhrase, 2: ProximitySentence, 3: ProximityDocument}
	for _, e := range res.Entries {
		if e.Proximity != want[e.DocID] {
			t.Errorf("doc %d proximity = %s, want %s", e.DocID, e.Proximity, want[e.DocID])
		}
	}
}

func TestEvaluateOrIsCommutative(t *testing.T) {
	m := newMemIndex()
	m.add("apple", 1, 2.0, at(0, 0, 0, secBody))
	m.add("apple", 3, 0.5, at(0, 0, 0, secBody))
	m.add("pear", 2, 1.0, at(0, 0, 0, secBody))
	m.add("pear", 3, 0.75, at(10, 0, 2, secBody))

	ab := evaluate(t, m, "apple or pear")
	ba := evaluate(t, m, "pear or apple")
	if len(ab.Entries) != 3 || len(ba.Entries) != 3 {
		t.Fatalf("got %d and %d entries, want 3", len(ab.Entries), len(ba.Entries))
	}
	for i := range ab.Entries {
		if ab.Entries[i].DocID != ba.Entries[i].DocID || ab.Entries[i].Score != ba.Entries[i].Score {
			t.Errorf("entry %d differs: %+v vs %+v", i, ab.Entries[i], ba.Entries[i])
		}
	}
	for _, e := range ab.Entries {
		if e.DocID == 3 {
			if e.Score != 1.25 {
				t.Errorf("doc 3 score = %v, want summed 1.25", e.Score)
			}
			if len(e.Offsets) != 2 {
				t.Errorf("doc 3 offsets = %d, want both occurrences", len(e.Offsets))
			}
			if e.Proximity != ProximityDocument {
				t.Errorf("doc 3 proximity = %s, want document", e.Proximity)
			}
		}
	}
}

func TestEvaluateRanking(t *testing.T) {
	m := newMemIndex()
	m.add("fox", 5, 1.0, at(0, 0, 0, secBody))
	m.add("fox", 2, 3.0, at(0, 0, 0, secBody))
	m.add("fox", 9, 1.0, at(0, 0, 0, secBody))
	m.add("fox", 7, 2.0, at(0, 0, 0, secBody))

	res := evaluate(t, m, "fox")
	var got []uint32
	for _, e := range res.Entries {
		got = append(got, e.DocID)
	}
	want := []uint32{2, 7, 5, 9}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ranked order = %v, want %v (score desc, doc id asc)", got, want)
	}
}

func TestEvaluateStopwordAnnihilation(t *testing.T) {
	m := newMemIndex()
	m.add("apple", 1, 1.0, at(4, 0, 1, secBody))
	m.add("apple", 2, 2.0, at(0, 0, 0, secBody))

	plain := evaluate(t, m, "apple")
	for _, q := range []string{"the and apple", "the apple", "apple of", `"the apple"`, "the[ti] apple"} {
		t.Run(q, func(t *testing.T) {
			res := evaluate(t, m, q)
			if !reflect.DeepEqual(docIDs(res), docIDs(plain)) {
				t.Errorf("%s matched %v, want %v", q, docIDs(res), docIDs(plain))
			}
			if len(res.Stopwords) != 1 {
				t.Errorf("stopwords = %v, want one", res.Stopwords)
			}
			if !reflect.DeepEqual(res.Lexemes, []string{"apple"}) {
				t.Errorf("lexemes = %v, want [apple]", res.Lexemes)
			}
		})
	}
}

func TestEvaluateOnlyStopwords(t *testing.T) {
	res := evaluate(t, newMemIndex(), "the of the")
	if len(res.Entries) != 0 || res.Status != StatusOK {
		t.Errorf("got %d entries, status %s; want none, ok", len(res.Entries), res.Status)
	}
	if !reflect.DeepEqual(res.Stopwords, []string{"the", "of"}) {
		t.Errorf("stopwords = %v, want deduplicated [the of]", res.Stopwords)
	}
}

func TestEvaluateSectionPropagation(t *testing.T) {
	m := newMemIndex()
	m.add("alpha", 1, 1.0, at(0, 0, 0, secTitle))
	m.add("beta", 1, 1.0, at(6, 0, 1, secTitle))
	m.add("alpha", 2, 1.0, at(0, 0, 0, secTitle))
	m.add("beta", 2, 1.0, at(30, 1, 5, secBody))

	grouped := evaluate(t, m, "(alpha and beta)[ti]")
	spelled := evaluate(t, m, "alpha[ti] and beta[ti]")
	if !reflect.DeepEqual(docIDs(grouped), []uint32{1}) {
		t.Errorf("grouped matched %v, want [1]", docIDs(grouped))
	}
	if !reflect.DeepEqual(docIDs(grouped), docIDs(spelled)) {
		t.Errorf("grouped %v != spelled %v", docIDs(grouped), docIDs(spelled))
	}
}

func TestEvaluatePhraseKeepsOnlyAdjacentOffsets(t *testing.T) {
	m := newMemIndex()
	m.add("new", 1, 1.0, at(0, 0, 0, secBody))
	m.add("york", 1, 1.0, at(4, 0, 1, secBody))
	m.add("new", 1, 1.0, at(40, 2, 9, secBody))

	res := evaluate(t, m, `"new york"`)
	if len(res.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(res.Entries))
	}
	if got := len(res.Entries[0].Offsets); got != 2 {
		t.Errorf("phrase kept %d offsets, want the adjacent pair only", got)
	}
}

func TestEvaluateLooksUpEachTermOnce(t *testing.T) {
	m := proximityCorpus()
	evaluate(t, m, "cat and (cat or dog) and cat")
	if m.lookups != 2 {
		t.Errorf("index consulted %d times, want one lookup per distinct term", m.lookups)
	}
}

func TestEvaluateIllegalStatement(t *testing.T) {
	tests := []struct {
		name   string
		instrs []Instr
	}{
		{"operator without operands", []Instr{{Kind: KindAnd}}},
		{"operator with one operand", []Instr{{Kind: KindTerm, Text: "cat"}, {Kind: KindOr}}},
		{"section without operand", []Instr{{Kind: KindSection, Text: "ti"}}},
		{"two operands left", []Instr{{Kind: KindTerm, Text: "cat"}, {Kind: KindTerm, Text: "dog"}}},
		{"empty plan", nil},
	}
	ev := NewEvaluator(proximityCorpus(), section.Default())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ev.Evaluate(&Postfix{Instrs: tt.instrs})
			if !errors.Is(err, ErrIllegalStatement) {
				t.Fatalf("error = %v, want ErrIllegalStatement", err)
			}
			if res.Status != StatusIllegalQuerySyntax {
				t.Errorf("status = %s, want illegal_query_syntax", res.Status)
			}
		})
	}
}

func TestEvaluateRoundTrip(t *testing.T) {
	corpus := proximityCorpus()
	queries := []string{
		"cat",
		"cat dog",
		`"cat dog" or cat[ti]`,
		"(cat near dog)[ab] and the",
		"((cat)) or ((dog))",
		"cat-dog",
		"the",
	}
	ev := NewEvaluator(corpus, section.Default())
	c := newTestCompiler(nil)
	for _, q := range queries {
		plan, err := c.Compile(q)
		if err != nil {
			t.Fatalf("Compile(%q): %v", q, err)
		}
		res, err := ev.Evaluate(plan.Postfix)
		if err != nil {
			t.Errorf("Evaluate(%q): %v", q, err)
			continue
		}
		if res.Status != StatusOK {
			t.Errorf("Evaluate(%q) status = %s", q, res.Status)
		}
	}
}

func TestEvaluatorIsSafeForConcurrentUse(t *testing.T) {
	corpus := proximityCorpus()
	plan, err := newTestCompiler(nil).Compile("the cat near dog")
	if err != nil {
		t.Fatal(err)
	}
	ev := NewEvaluator(staticIndex{corpus}, section.Default())
	done := make(chan *Result)
	for range 8 {
		go func() {
			res, _ := ev.Evaluate(plan.Postfix)
			done <- res
		}()
	}
	for range 8 {
		res := <-done
		if !reflect.DeepEqual(res.Stopwords, []string{"the"}) {
			t.Errorf("stopwords = %v, want [the]", res.Stopwords)
		}
		if len(res.Entries) != 2 {
			t.Errorf("got %d entries, want 2", len(res.Entries))
		}
	}
}

// staticIndex hides the lookup counter so concurrent tests do not race.
type staticIndex struct{ m *memIndex }

func (s staticIndex) Lookup(term string) (*index.Record, bool) {
	list, ok := s.m.postings[term]
	if !ok {
		return nil, false
	}
	return &index.Record{Term: term, Postings: list}, true
}

func (s staticIndex) IsIndexable(term string) bool { return s.m.IsIndexable(term) }
