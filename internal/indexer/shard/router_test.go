package shard

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/section"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/errors"
)

func newTestRouter(t *testing.T, shards int) *Router {
	t.Helper()
	cfg := config.IndexerConfig{
		DataDir:        t.TempDir(),
		NumShards:      shards,
		SegmentMaxSize: 1 << 30,
		FlushInterval:  time.Hour,
	}
	r, err := NewRouter(cfg, config.SearchConfig{}, section.Default())
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestShardForIsDeterministic(t *testing.T) {
	counts := make(map[int]int)
	for i := 0; i < 1000; i++ {
		id := fmt.Sprintf("doc-%d", i)
		s := ShardFor(id, 4)
		if s < 0 || s >= 4 {
			t.Fatalf("ShardFor(%q) = %d out of range", id, s)
		}
		if again := ShardFor(id, 4); again != s {
			t.Fatalf("ShardFor(%q) changed from %d to %d", id, s, again)
		}
		counts[s]++
	}
	for s := 0; s < 4; s++ {
		if counts[s] < 150 {
			t.Errorf("shard %d got only %d of 1000 documents", s, counts[s])
		}
	}
}

func TestNewRouterRejectsZeroShards(t *testing.T) {
	_, err := NewRouter(config.IndexerConfig{DataDir: t.TempDir()}, config.SearchConfig{}, section.Default())
	if err == nil {
		t.Error("expected an error")
	}
}

func TestIndexRoutesByID(t *testing.T) {
	r := newTestRouter(t, 3)
	if r.NumShards() != 3 || len(r.GetAllEngines()) != 3 {
		t.Fatalf("NumShards = %d, engines = %d", r.NumShards(), len(r.GetAllEngines()))
	}
	for i := 0; i < 12; i++ {
		d := indexer.Document{
			ID:     fmt.Sprintf("doc-%d", i),
			Fields: []tokenizer.Field{{Section: 1, Text: "routing test"}},
		}
		got, err := r.Index(d)
		if err != nil {
			t.Fatalf("Index(%s): %v", d.ID, err)
		}
		if want := ShardFor(d.ID, 3); got != want {
			t.Errorf("Index(%s) went to shard %d, want %d", d.ID, got, want)
		}
		engine, err := r.Route(got)
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := engine.Lookup("routing"); !ok {
			t.Errorf("shard %d cannot find its document", got)
		}
	}

	total := 0
	for _, e := range r.GetAllEngines() {
		total += e.DocCount()
	}
	if total != 12 {
		t.Errorf("documents across shards = %d, want 12", total)
	}

	dup := indexer.Document{ID: "doc-0", Fields: []tokenizer.Field{{Section: 1, Text: "again"}}}
	if _, err := r.Index(dup); !errors.Is(err, apperrors.ErrDocumentExists) {
		t.Errorf("duplicate Index error = %v", err)
	}
}

func TestRouteUnknownShard(t *testing.T) {
	r := newTestRouter(t, 2)
	if _, err := r.Route(5); err == nil {
		t.Error("expected an error for shard 5")
	}
}

func TestFlushAllThenReload(t *testing.T) {
	r := newTestRouter(t, 2)
	for i := 0; i < 6; i++ {
		d := indexer.Document{ID: fmt.Sprintf("d%d", i), Fields: []tokenizer.Field{{Section: 2, Text: "flushed words"}}}
		if _, err := r.Index(d); err != nil {
			t.Fatal(err)
		}
	}
	if err := r.FlushAll(); err != nil {
		t.Fatalf("FlushAll: %v", err)
	}
	if got := r.ReloadAll(); got != 0 {
		t.Errorf("ReloadAll = %d, want 0 for segments the router wrote itself", got)
	}
}
