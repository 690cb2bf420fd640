package index

// Offset is one occurrence of a term inside a document.
type Offset struct {
	Offset   uint32 `json:"o"`
	Sentence uint32 `json:"s"`
	Order    uint32 `json:"n"`
	Section  uint8  `json:"c"`
	// Term is the vocabulary order of the term that produced the offset.
	Term uint32 `json:"t"`
}

func (o Offset) Linear() uint32        { return o.Offset }
func (o Offset) SentenceIndex() uint32 { return o.Sentence }
func (o Offset) TokenOrder() uint32    { return o.Order }

// Posting lists the occurrences of one term in one document. Score is
// filled in at lookup time.
type Posting struct {
	DocID   uint32   `json:"d"`
	Score   float64  `json:"-"`
	Offsets []Offset `json:"p"`
}

// Frequency is the number of occurrences.
func (p Posting) Frequency() int {
	return len(p.Offsets)
}

// PostingList is sorted by DocID.
type PostingList []Posting

// Record is everything the index knows about one vocabulary term.
type Record struct {
	Term     string
	Order    uint32
	Postings PostingList
}

// DocInfo describes one indexed document.
type DocInfo struct {
	Ord    uint32 `json:"ord"`
	ID     string `json:"id"`
	Length int    `json:"len"`
}
