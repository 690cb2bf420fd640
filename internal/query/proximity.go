package query

// Proximity classifies how close two term occurrences are. Lower values are
// tighter.
type Proximity int

const (
	ProximityPhrase Proximity = iota
	ProximitySentence
	ProximityDocument
)

func (p Proximity) String() string {
	switch p {
	case ProximityPhrase:
		return "phrase"
	case ProximitySentence:
		return "sentence"
	default:
		return "document"
	}
}

// Satisfies reports whether a measured proximity meets the required one.
func (p Proximity) Satisfies(required Proximity) bool {
	return p <= required
}

// required returns the proximity an operator demands. Or demands none.
func required(k Kind) (Proximity, bool) {
	switch k {
	case KindAnd:
		return ProximityDocument, true
	case KindNear:
		return ProximitySentence, true
	case KindPhraseNear:
		return ProximityPhrase, true
	}
	return ProximityDocument, false
}

// Position is an occurrence carrying a linear offset, a sentence index and
// a token order. Both index offsets and packed codes implement it.
type Position interface {
	Linear() uint32
	SentenceIndex() uint32
	TokenOrder() uint32
}

// Estimate walks two offset-sorted position lists and returns the tightest
// proximity observed between them. Phrase requires the left occurrence to
// directly precede the right one.
func Estimate[P Position](left, right []P) Proximity {
	best := ProximityDocument
	i, j := 0, 0
	for i < len(left) && j < len(right) {
		a, b := left[i], right[j]
		if a.SentenceIndex() == b.SentenceIndex() {
			best = ProximitySentence
			if int64(a.TokenOrder())-int64(b.TokenOrder()) == -1 {
				return ProximityPhrase
			}
		}
		if a.Linear() < b.Linear() {
			i++
		} else {
			j++
		}
	}
	return best
}

// phrasePairs keeps the positions of both lists that form an adjacent
// (left directly before right) pair, merged in offset order.
func phrasePairs[P Position](left, right []P) []P {
	keepL := make([]bool, len(left))
	keepR := make([]bool, len(right))
	i, j := 0, 0
	for i < len(left) && j < len(right) {
		a, b := left[i], right[j]
		want := int64(a.TokenOrder()) + 1
		got := int64(b.TokenOrder())
		switch {
		case got == want && a.SentenceIndex() == b.SentenceIndex():
			keepL[i], keepR[j] = true, true
			i++
			j++
		case got < want:
			j++
		default:
			i++
		}
	}
	var l, r []P
	for k, keep := range keepL {
		if keep {
			l = append(l, left[k])
		}
	}
	for k, keep := range keepR {
		if keep {
			r = append(r, right[k])
		}
	}
	return mergePositions(l, r)
}

// mergePositions merges two offset-sorted lists into one.
func mergePositions[P Position](a, b []P) []P {
	out := make([]P, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].Linear() <= b[j].Linear() {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}
