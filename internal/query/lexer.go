package query

import "unicode"

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokWord
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokOpenQuote
	tokCloseQuote
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of query"
	case tokWord:
		return "word"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokLBracket:
		return "'['"
	case tokRBracket:
		return "']'"
	case tokOpenQuote:
		return "opening quote"
	case tokCloseQuote:
		return "closing quote"
	}
	return "token"
}

type token struct {
	kind tokenKind
	text string
	pos  int
}

// lexer splits a lowercased query into tokens with one token of pushback.
type lexer struct {
	src    []rune
	pos    int
	pushed *token
}

func newLexer(s string) *lexer {
	return &lexer{src: []rune(s)}
}

func (l *lexer) pushBack(t token) {
	if l.pushed != nil {
		panic("query: lexer pushback buffer already holds a token")
	}
	l.pushed = &t
}

func (l *lexer) next() token {
	if l.pushed != nil {
		t := *l.pushed
		l.pushed = nil
		return t
	}
	for l.pos < len(l.src) && unicode.IsSpace(l.src[l.pos]) {
		l.pos++
	}
	start := l.pos
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: start}
	}
	switch l.src[l.pos] {
	case '(':
		l.pos++
		return token{kind: tokLParen, text: "(", pos: start}
	case ')':
		l.pos++
		return token{kind: tokRParen, text: ")", pos: start}
	case '[':
		l.pos++
		return token{kind: tokLBracket, text: "[", pos: start}
	case ']':
		l.pos++
		return token{kind: tokRBracket, text: "]", pos: start}
	case '"':
		l.pos++
		if l.opensQuote(start) {
			return token{kind: tokOpenQuote, text: `"`, pos: start}
		}
		return token{kind: tokCloseQuote, text: `"`, pos: start}
	}
	return l.word()
}

// opensQuote classifies the quote at i. A quote opens a phrase when it
// follows start/space/'(' and precedes a non-space; every other quote,
// including one with space on both sides, closes.
func (l *lexer) opensQuote(i int) bool {
	before := i == 0 || unicode.IsSpace(l.src[i-1]) || l.src[i-1] == '('
	after := i+1 < len(l.src) && !unicode.IsSpace(l.src[i+1])
	return before && after
}

func (l *lexer) word() token {
	start := l.pos
	depth := 0
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if unicode.IsSpace(c) || c == '"' {
			break
		}
		if c == '(' {
			depth++
		} else if c == ')' {
			if depth > 0 {
				depth--
			} else if l.boundaryAfter(l.pos) {
				break
			}
		} else if c == ']' && l.boundaryAfter(l.pos) {
			break
		} else if c == '[' && l.sectionSuffixAt(l.pos) {
			break
		}
		l.pos++
	}
	return token{kind: tokWord, text: string(l.src[start:l.pos]), pos: start}
}

// boundaryAfter reports whether the character following i ends a word.
func (l *lexer) boundaryAfter(i int) bool {
	if i+1 >= len(l.src) {
		return true
	}
	switch c := l.src[i+1]; {
	case unicode.IsSpace(c):
		return true
	case c == ')' || c == '[' || c == ']' || c == '"':
		return true
	}
	return false
}

// sectionSuffixAt reports whether a '[' at i starts a "[name]" suffix that
// ends on a word boundary.
func (l *lexer) sectionSuffixAt(i int) bool {
	for j := i + 1; j < len(l.src); j++ {
		c := l.src[j]
		if c == ']' {
			return j > i+1 && l.boundaryAfter(j)
		}
		if unicode.IsSpace(c) || c == '[' || c == '"' {
			return false
		}
	}
	return false
}
