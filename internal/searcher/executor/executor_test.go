package executor

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/section"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/query"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/errors"
)

func newEngine(t *testing.T, dir string) *indexer.Engine {
	t.Helper()
	cfg := config.IndexerConfig{DataDir: dir, SegmentMaxSize: 1 << 30, FlushInterval: time.Hour}
	e, err := indexer.NewEngine(cfg, config.SearchConfig{MaxWildcardExpansion: 16}, section.Default())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func index(t *testing.T, e *indexer.Engine, id, title, body string) {
	t.Helper()
	err := e.IndexDocument(indexer.Document{ID: id, Fields: []tokenizer.Field{
		{Section: 1, Text: title},
		{Section: 2, Text: body},
	}})
	if err != nil {
		t.Fatalf("IndexDocument(%s): %v", id, err)
	}
}

func hitIDs(sr *SearchResult) []string {
	ids := make([]string, len(sr.Results))
	for i, r := range sr.Results {
		ids[i] = r.DocID
	}
	sort.Strings(ids)
	return ids
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func corpus(t *testing.T, engines ...*indexer.Engine) {
	t.Helper()
	docs := [][3]string{
		{"d1", "quick brown fox", "the dog sleeps"},
		{"d2", "brown dog", "a quick fox. brown again"},
		{"d3", "lazy cat", "quick start"},
	}
	for i, d := range docs {
		index(t, engines[i%len(engines)], d[0], d[1], d[2])
	}
}

var searchCases = []struct {
	query  string
	status string
	want   []string
}{
	{`"brown fox"`, "ok", []string{"d1"}},
	{"quick fox", "ok", []string{"d1", "d2"}},
	{"quick or cat", "ok", []string{"d1", "d2", "d3"}},
	{"qui*", "ok", []string{"d1", "d2", "d3"}},
	{"fox[ti]", "ok", []string{"d1"}},
	{"zebra", "ok", []string{}},
	{"fox[nosuch]", query.StatusIllegalSectionName.String(), []string{}},
}

func TestExecutorSearch(t *testing.T) {
	e := newEngine(t, t.TempDir())
	corpus(t, e)
	exec := New(e)
	for _, tt := range searchCases {
		t.Run(tt.query, func(t *testing.T) {
			plan, err := exec.Compile(tt.query)
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			sr, err := exec.Execute(context.Background(), plan, 0)
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if sr.Status != tt.status {
				t.Errorf("Status = %s, want %s", sr.Status, tt.status)
			}
			if got := hitIDs(sr); !equal(got, tt.want) {
				t.Errorf("hits = %v, want %v", got, tt.want)
			}
			if sr.TotalHits != len(tt.want) {
				t.Errorf("TotalHits = %d, want %d", sr.TotalHits, len(tt.want))
			}
		})
	}
}

func TestShardedMatchesSingleEngine(t *testing.T) {
	root := t.TempDir()
	shards := map[int]*indexer.Engine{
		0: newEngine(t, filepath.Join(root, "shard-0")),
		1: newEngine(t, filepath.Join(root, "shard-1")),
	}
	corpus(t, shards[0], shards[1])
	exec := NewSharded(shards, 16)
	for _, tt := range searchCases {
		t.Run(tt.query, func(t *testing.T) {
			plan, err := exec.Compile(tt.query)
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			sr, err := exec.Execute(context.Background(), plan, 0)
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if sr.Status != tt.status {
				t.Errorf("Status = %s, want %s", sr.Status, tt.status)
			}
			if got := hitIDs(sr); !equal(got, tt.want) {
				t.Errorf("hits = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExecuteLimitAndMatches(t *testing.T) {
	e := newEngine(t, t.TempDir())
	corpus(t, e)
	exec := New(e)
	plan, err := exec.Compile("quick or cat")
	if err != nil {
		t.Fatal(err)
	}
	sr, err := exec.Execute(context.Background(), plan, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(sr.Results) != 2 || sr.TotalHits != 3 {
		t.Errorf("results = %d, total = %d; want 2 of 3", len(sr.Results), sr.TotalHits)
	}
	for _, r := range sr.Results {
		if len(r.Matches) == 0 {
			t.Errorf("%s has no match locations", r.DocID)
		}
		for _, m := range r.Matches {
			if m.Section != "title" && m.Section != "body" {
				t.Errorf("%s match in section %q", r.DocID, m.Section)
			}
		}
	}
	if sr.Results[0].Score < sr.Results[1].Score {
		t.Errorf("results not ranked: %v", sr.Results)
	}
}

func TestCompileRejectsEmptyQuery(t *testing.T) {
	exec := New(newEngine(t, t.TempDir()))
	_, err := exec.Compile("   ")
	if !errors.Is(err, apperrors.ErrInvalidQuery) || !errors.Is(err, query.ErrNoQuery) {
		t.Errorf("Compile error = %v", err)
	}
	if got := apperrors.HTTPStatusCode(err); got != 400 {
		t.Errorf("status code = %d, want 400", got)
	}
}

func TestShardExpanderUnionAndLimit(t *testing.T) {
	root := t.TempDir()
	a := newEngine(t, filepath.Join(root, "a"))
	b := newEngine(t, filepath.Join(root, "b"))
	index(t, a, "x", "apple apply", "")
	index(t, b, "y", "apply approve", "")
	exp := &shardExpander{engines: []*indexer.Engine{a, b}}
	if got := exp.Expand("app*"); !equal(got, []string{"apple", "apply", "approve"}) {
		t.Errorf("Expand = %v", got)
	}
	exp.limit = 2
	if got := exp.Expand("app*"); !equal(got, []string{"apple", "apply"}) {
		t.Errorf("limited Expand = %v", got)
	}
}

func TestPhraseWithStopWord(t *testing.T) {
	e := newEngine(t, t.TempDir())
	index(t, e, "d1", "earnings", "the bank of america reported profits")
	index(t, e, "d2", "travel", "a bank on the coast of america")
	exec := New(e)

	tests := []struct {
		query string
		want  []string
	}{
		{`"bank of america"`, []string{"d1"}},
		{`"bank america"`, []string{"d1"}},
		{`"the bank of america reported"`, []string{"d1"}},
		{`"america of bank"`, []string{}},
		{"bank america", []string{"d1", "d2"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			plan, err := exec.Compile(tt.query)
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			sr, err := exec.Execute(context.Background(), plan, 0)
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if got := hitIDs(sr); !equal(got, tt.want) {
				t.Errorf("hits = %v, want %v (plan %s)", got, tt.want, sr.Plan)
			}
		})
	}
}
