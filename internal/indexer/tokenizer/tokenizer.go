// Package tokenizer provides text tokenisation for the search engine.
// It case-folds input, splits on non-alphanumeric boundaries, tracks
// sentence and token-order positions, and drops stop-words. The query
// compiler uses the same delimiter and normalisation rules through
// Analyzer so that query terms line up with indexed terms.
package tokenizer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {},
}

// Field is one section of a document.
type Field struct {
	Section uint8
	Text    string
}

// Token is a single indexable term occurrence.
type Token struct {
	Term string
	// Offset is the rune offset of the token across all fields.
	Offset uint32
	// Sentence counts sentence breaks before the token; a new field always
	// starts a new sentence.
	Sentence uint32
	// Order is the ordinal among indexable tokens. Stop-words take no
	// ordinal, so a phrase whose stop-words drop out at query time still
	// lines up. Fields are separated by one unused ordinal, so phrases never
	// span them.
	Order   uint32
	Section uint8
}

// IsDelimiter reports whether r separates words.
func IsDelimiter(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// Normalize applies NFKC composition and Unicode case folding.
func Normalize(word string) string {
	return cases.Fold().String(norm.NFKC.String(word))
}

// IsIndexable reports whether a normalised term is stored in the index.
func IsIndexable(term string) bool {
	if utf8.RuneCountInString(term) < 2 {
		return false
	}
	_, stop := stopWords[term]
	return !stop
}

// Tokenize breaks the fields of one document into indexable tokens.
func Tokenize(fields []Field) []Token {
	tokens := make([]Token, 0, 64)
	var offset, sentence, order uint32
	for fi, f := range fields {
		if fi > 0 {
			offset++
			order++
			sentence++
		}
		runes := []rune(f.Text)
		sawWord := false
		for i := 0; i < len(runes); {
			r := runes[i]
			if IsDelimiter(r) {
				if sawWord && isSentenceEnd(runes, i) {
					sentence++
					sawWord = false
				}
				i++
				offset++
				continue
			}
			start := i
			for i < len(runes) && !IsDelimiter(runes[i]) {
				i++
			}
			term := Normalize(string(runes[start:i]))
			if IsIndexable(term) {
				tokens = append(tokens, Token{
					Term:     term,
					Offset:   offset,
					Sentence: sentence,
					Order:    order,
					Section:  f.Section,
				})
				order++
			}
			offset += uint32(i - start)
			sawWord = true
		}
	}
	return tokens
}

// TokenizeText tokenizes a single unsectioned text.
func TokenizeText(text string) []Token {
	return Tokenize([]Field{{Text: text}})
}

// isSentenceEnd reports whether the punctuation at i closes a sentence:
// '.', '!' or '?' followed by whitespace or the end of the text.
func isSentenceEnd(runes []rune, i int) bool {
	if !strings.ContainsRune(".!?", runes[i]) {
		return false
	}
	return i+1 == len(runes) || unicode.IsSpace(runes[i+1])
}

// Analyzer exposes the tokenizer rules to the query compiler.
type Analyzer struct{}

func (Analyzer) IsDelimiter(r rune) bool       { return IsDelimiter(r) }
func (Analyzer) Normalize(token string) string { return Normalize(token) }
func (Analyzer) IsIndexable(term string) bool  { return IsIndexable(term) }
