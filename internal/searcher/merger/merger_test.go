package merger

import (
	"testing"

	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/searcher/ranker"
)

func ids(docs []ranker.ScoredDoc) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.DocID
	}
	return out
}

func TestMerge(t *testing.T) {
	shards := [][]ranker.ScoredDoc{
		{{DocID: "s0-a", Score: 9}, {DocID: "s0-b", Score: 4}},
		{{DocID: "s1-a", Score: 7}, {DocID: "s1-b", Score: 4}, {DocID: "s1-c", Score: 1}},
		nil,
		{{DocID: "s3-a", Score: 8}},
	}
	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{"top three", 3, []string{"s0-a", "s3-a", "s1-a"}},
		{"ties by id", 5, []string{"s0-a", "s3-a", "s1-a", "s0-b", "s1-b"}},
		{"limit above total", 50, []string{"s0-a", "s3-a", "s1-a", "s0-b", "s1-b", "s1-c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Merge(shards, tt.limit))
			if len(got) != len(tt.want) {
				t.Fatalf("Merge = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("Merge = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestMergeEmpty(t *testing.T) {
	if got := Merge(nil, 10); len(got) != 0 {
		t.Errorf("Merge(nil) = %v", got)
	}
}

func TestMergeDefaultLimit(t *testing.T) {
	var docs []ranker.ScoredDoc
	for i := 0; i < 25; i++ {
		docs = append(docs, ranker.ScoredDoc{DocID: string(rune('a' + i)), Score: float64(i)})
	}
	if got := Merge([][]ranker.ScoredDoc{docs}, 0); len(got) != 10 || got[0].DocID != "y" {
		t.Errorf("Merge with limit 0 = %v", ids(got))
	}
}
