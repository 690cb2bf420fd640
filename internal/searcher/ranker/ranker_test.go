package ranker

import (
	"math"
	"testing"
)

func TestWeight(t *testing.T) {
	stats := CorpusStats{TotalDocs: 100, AvgDocLength: 50}

	rare := Weight(1, 50, 1, stats)
	common := Weight(1, 50, 90, stats)
	if rare <= common {
		t.Errorf("rare term weight %v should exceed common term weight %v", rare, common)
	}

	once := Weight(1, 50, 10, stats)
	thrice := Weight(3, 50, 10, stats)
	if thrice <= once {
		t.Errorf("higher frequency weight %v should exceed %v", thrice, once)
	}

	short := Weight(2, 20, 10, stats)
	long := Weight(2, 200, 10, stats)
	if short <= long {
		t.Errorf("short document weight %v should exceed long document weight %v", short, long)
	}
}

func TestWeightEdgeCases(t *testing.T) {
	tests := []struct {
		name  string
		tf    int
		dl    int
		df    int
		stats CorpusStats
	}{
		{"empty corpus", 1, 10, 1, CorpusStats{}},
		{"df above total", 1, 10, 20, CorpusStats{TotalDocs: 5, AvgDocLength: 10}},
		{"zero length", 1, 0, 1, CorpusStats{TotalDocs: 5, AvgDocLength: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := Weight(tt.tf, tt.dl, tt.df, tt.stats)
			if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
				t.Errorf("Weight = %v", w)
			}
		})
	}
}

func TestRound(t *testing.T) {
	if got := Round(1.234567); got != 1.2346 {
		t.Errorf("Round = %v", got)
	}
}

func TestSort(t *testing.T) {
	docs := []ScoredDoc{
		{DocID: "c", Score: 1},
		{DocID: "b", Score: 2},
		{DocID: "a", Score: 1},
		{DocID: "d", Score: 3},
	}
	Sort(docs)
	want := []string{"d", "b", "a", "c"}
	for i, id := range want {
		if docs[i].DocID != id {
			t.Errorf("position %d = %s, want %s", i, docs[i].DocID, id)
		}
	}
}
