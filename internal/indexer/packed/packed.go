// Package packed encodes token positions into single 64-bit codes for the
// streaming match path, and builds per-document token tables from them.
//
// Layout, most significant field first:
//
//	doc:12 | offset:20 | order:16 | sentence:12 | section:4
//
// Offsets grow with token order and sentence index inside a document, so
// comparing raw codes compares (document, offset).
package packed

import (
	"fmt"
)

const (
	sectionBits  = 4
	sentenceBits = 12
	orderBits    = 16
	offsetBits   = 20
	docBits      = 12

	sentenceShift = sectionBits
	orderShift    = sentenceShift + sentenceBits
	offsetShift   = orderShift + orderBits
	docShift      = offsetShift + offsetBits
)

// Field limits.
const (
	MaxDoc      = 1<<docBits - 1
	MaxOffset   = 1<<offsetBits - 1
	MaxOrder    = 1<<orderBits - 1
	MaxSentence = 1<<sentenceBits - 1
	MaxSection  = 1<<sectionBits - 1
)

// Code is one packed token position.
type Code uint64

// Encode packs the fields of one position. It fails if any field exceeds
// its width.
func Encode(doc, offset, order, sentence uint32, section uint8) (Code, error) {
	switch {
	case doc > MaxDoc:
		return 0, fmt.Errorf("doc %d exceeds %d", doc, MaxDoc)
	case offset > MaxOffset:
		return 0, fmt.Errorf("offset %d exceeds %d", offset, MaxOffset)
	case order > MaxOrder:
		return 0, fmt.Errorf("order %d exceeds %d", order, MaxOrder)
	case sentence > MaxSentence:
		return 0, fmt.Errorf("sentence %d exceeds %d", sentence, MaxSentence)
	case section > MaxSection:
		return 0, fmt.Errorf("section %d exceeds %d", section, MaxSection)
	}
	return Code(uint64(doc)<<docShift |
		uint64(offset)<<offsetShift |
		uint64(order)<<orderShift |
		uint64(sentence)<<sentenceShift |
		uint64(section)), nil
}

func (c Code) DocID() uint32         { return uint32(c>>docShift) & MaxDoc }
func (c Code) Linear() uint32        { return uint32(c>>offsetShift) & MaxOffset }
func (c Code) TokenOrder() uint32    { return uint32(c>>orderShift) & MaxOrder }
func (c Code) SentenceIndex() uint32 { return uint32(c>>sentenceShift) & MaxSentence }
func (c Code) SectionID() uint8      { return uint8(c & MaxSection) }

func (c Code) String() string {
	return fmt.Sprintf("doc=%d off=%d ord=%d sent=%d sec=%d",
		c.DocID(), c.Linear(), c.TokenOrder(), c.SentenceIndex(), c.SectionID())
}
