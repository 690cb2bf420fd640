package query

import (
	"testing"

	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/index"
)

func off(offset, sentence, order uint32) index.Offset {
	return index.Offset{Offset: offset, Sentence: sentence, Order: order}
}

func TestEstimate(t *testing.T) {
	tests := []struct {
		name        string
		left, right []index.Offset
		want        Proximity
	}{
		{
			name:  "adjacent in order",
			left:  []index.Offset{off(10, 0, 2)},
			right: []index.Offset{off(16, 0, 3)},
			want:  ProximityPhrase,
		},
		{
			name:  "reversed adjacency is only sentence",
			left:  []index.Offset{off(16, 0, 3)},
			right: []index.Offset{off(10, 0, 2)},
			want:  ProximitySentence,
		},
		{
			name:  "same sentence with a gap",
			left:  []index.Offset{off(0, 1, 0)},
			right: []index.Offset{off(20, 1, 4)},
			want:  ProximitySentence,
		},
		{
			name:  "different sentences",
			left:  []index.Offset{off(0, 0, 0)},
			right: []index.Offset{off(30, 1, 6)},
			want:  ProximityDocument,
		},
		{
			name:  "later occurrence forms the phrase",
			left:  []index.Offset{off(0, 0, 0), off(40, 2, 8)},
			right: []index.Offset{off(20, 1, 4), off(45, 2, 9)},
			want:  ProximityPhrase,
		},
		{
			name:  "empty side",
			left:  nil,
			right: []index.Offset{off(0, 0, 0)},
			want:  ProximityDocument,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Estimate(tt.left, tt.right); got != tt.want {
				t.Errorf("Estimate = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEstimateSentenceIsSymmetric(t *testing.T) {
	a := []index.Offset{off(0, 0, 0), off(50, 3, 9)}
	b := []index.Offset{off(30, 3, 6)}
	if Estimate(a, b) != Estimate(b, a) {
		t.Errorf("Estimate(a, b) = %s, Estimate(b, a) = %s", Estimate(a, b), Estimate(b, a))
	}
}

func TestProximitySatisfies(t *testing.T) {
	tests := []struct {
		measured, required Proximity
		want               bool
	}{
		{ProximityPhrase, ProximityPhrase, true},
		{ProximityPhrase, ProximitySentence, true},
		{ProximityPhrase, ProximityDocument, true},
		{ProximitySentence, ProximityPhrase, false},
		{ProximitySentence, ProximityDocument, true},
		{ProximityDocument, ProximitySentence, false},
	}
	for _, tt := range tests {
		if got := tt.measured.Satisfies(tt.required); got != tt.want {
			t.Errorf("%s.Satisfies(%s) = %t, want %t", tt.measured, tt.required, got, tt.want)
		}
	}
}

func TestPhrasePairs(t *testing.T) {
	left := []index.Offset{off(0, 0, 0), off(20, 0, 4), off(60, 2, 11)}
	right := []index.Offset{off(5, 0, 1), off(40, 1, 8)}
	got := phrasePairs(left, right)
	want := []index.Offset{off(0, 0, 0), off(5, 0, 1)}
	if len(got) != len(want) {
		t.Fatalf("phrasePairs = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pair %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
