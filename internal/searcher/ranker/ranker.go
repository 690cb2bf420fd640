// Package ranker computes the BM25 weight of a term in a document. The
// query evaluator sums these weights across the terms of a match.
package ranker

import (
	"math"
	"sort"
)

const (
	k1 = 1.2
	b  = 0.75
)

// ScoredDoc is one ranked search hit.
type ScoredDoc struct {
	DocID     string  `json:"doc_id"`
	Score     float64 `json:"score"`
	Proximity string  `json:"proximity"`
	Matches   []Match `json:"matches,omitempty"`
}

// Match locates one matched term occurrence for highlighting.
type Match struct {
	Section string `json:"section"`
	Offset  uint32 `json:"offset"`
	Term    uint32 `json:"term"`
}

// CorpusStats describes the collection a weight is computed against.
type CorpusStats struct {
	TotalDocs    int64
	AvgDocLength float64
}

// Weight returns the BM25 contribution of a term occurring termFreq times
// in a document of docLength tokens, when docFreq documents contain it.
func Weight(termFreq, docLength, docFreq int, stats CorpusStats) float64 {
	idf := computeIDF(stats.TotalDocs, int64(docFreq))
	tf := computeTFNorm(float64(termFreq), float64(docLength), stats.AvgDocLength)
	return idf * tf
}

// Round trims a score to four decimals for presentation.
func Round(score float64) float64 {
	return math.Round(score*10000) / 10000
}

// Sort orders hits by descending score, then ascending document id.
func Sort(docs []ScoredDoc) {
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Score != docs[j].Score {
			return docs[i].Score > docs[j].Score
		}
		return docs[i].DocID < docs[j].DocID
	})
}

func computeIDF(totalDocs int64, docFreq int64) float64 {
	numerator := float64(totalDocs) - float64(docFreq)
	denominator := float64(docFreq) + 0.5
	if numerator < 0 {
		numerator = 0
	}
	return math.Log(numerator/denominator + 1)
}

func computeTFNorm(termFreq float64, docLength float64, avgDocLength float64) float64 {
	if avgDocLength == 0 {
		return 0
	}
	lengthRatio := docLength / avgDocLength
	denominator := termFreq + k1*(1-b+b*lengthRatio)
	return (termFreq * (k1 + 1)) / denominator
}
