package query

import (
	"fmt"
	"strings"
)

// Analyzer supplies the text rules shared with the document tokenizer.
type Analyzer interface {
	IsDelimiter(r rune) bool
	Normalize(token string) string
}

// Expander lists vocabulary terms matching a wildcard pattern.
type Expander interface {
	Expand(pattern string) []string
}

// ExpanderFunc adapts a function to the Expander interface.
type ExpanderFunc func(pattern string) []string

func (f ExpanderFunc) Expand(pattern string) []string { return f(pattern) }

// Plan is a compiled query: the normalized tree and its postfix form.
type Plan struct {
	Query   string
	Tree    *Node
	Postfix *Postfix
}

// Compiler turns query strings into plans. It is safe for concurrent use
// when its Analyzer and Expander are.
type Compiler struct {
	analyzer Analyzer
	expander Expander
}

// NewCompiler creates a Compiler. expander may be nil to disable wildcard
// expansion.
func NewCompiler(analyzer Analyzer, expander Expander) *Compiler {
	return &Compiler{analyzer: analyzer, expander: expander}
}

// Compile parses, normalizes and linearizes a query. Any syntax error is
// reported as ErrNoQuery wrapping a *ParseError.
func (c *Compiler) Compile(query string) (*Plan, error) {
	tree, err := c.Parse(query)
	if err != nil {
		return nil, err
	}
	tree = PropagateSections(tree)
	return &Plan{
		Query:   query,
		Tree:    tree,
		Postfix: Linearize(tree),
	}, nil
}

// Parse builds the expression tree without normalizing it.
func (c *Compiler) Parse(query string) (*Node, error) {
	p := &parser{
		lex:      newLexer(strings.ToLower(query)),
		analyzer: c.analyzer,
		expander: c.expander,
	}
	root, err := p.expr(false)
	if err == nil {
		if t := p.lex.next(); t.kind != tokEOF {
			err = &ParseError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %s", t.kind)}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoQuery, err)
	}
	return root, nil
}

type parser struct {
	lex      *lexer
	analyzer Analyzer
	expander Expander
}

func (p *parser) expr(phrase bool) (*Node, error) {
	left, err := p.term(phrase)
	if err != nil {
		return nil, err
	}
	t := p.lex.next()
	var kind Kind
	switch {
	case t.kind == tokEOF:
		return left, nil
	case t.kind == tokRParen || t.kind == tokRBracket || t.kind == tokCloseQuote:
		p.lex.pushBack(t)
		return left, nil
	case t.kind == tokWord && t.text == "and":
		kind = KindAnd
	case t.kind == tokWord && t.text == "or":
		kind = KindOr
	case t.kind == tokWord && t.text == "near":
		kind = KindNear
	default:
		p.lex.pushBack(t)
		kind = KindAnd
		if phrase {
			kind = KindPhraseNear
		}
	}
	right, err := p.expr(phrase)
	if err != nil {
		return nil, err
	}
	return Op(kind, left, right), nil
}

func (p *parser) term(phrase bool) (*Node, error) {
	primary, err := p.primary(phrase)
	if err != nil {
		return nil, err
	}
	t := p.lex.next()
	if t.kind != tokLBracket {
		p.lex.pushBack(t)
		return primary, nil
	}
	name, err := p.expect(tokWord)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRBracket); err != nil {
		return nil, err
	}
	return Section(name.text, primary), nil
}

func (p *parser) primary(phrase bool) (*Node, error) {
	t := p.lex.next()
	switch t.kind {
	case tokLParen:
		inner, err := p.expr(phrase)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return inner, nil
	case tokOpenQuote:
		inner, err := p.expr(true)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokCloseQuote); err != nil {
			return nil, err
		}
		return inner, nil
	case tokWord:
		return p.word(t.text), nil
	}
	return nil, &ParseError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %s", t.kind)}
}

func (p *parser) expect(kind tokenKind) (token, error) {
	t := p.lex.next()
	if t.kind != kind {
		return t, &ParseError{Pos: t.pos, Msg: fmt.Sprintf("expected %s, got %s", kind, t.kind)}
	}
	return t, nil
}

// word turns one raw query word into a term, a phrase chain over its
// sub-words, or a disjunction over wildcard expansions.
func (p *parser) word(raw string) *Node {
	pieces := strings.FieldsFunc(raw, func(r rune) bool {
		return r != '*' && r != '?' && p.analyzer.IsDelimiter(r)
	})
	if len(pieces) == 0 {
		return Term(p.analyzer.Normalize(raw))
	}
	nodes := make([]*Node, len(pieces))
	for i, piece := range pieces {
		nodes[i] = p.subWord(piece)
	}
	return chain(KindPhraseNear, nodes)
}

func (p *parser) subWord(piece string) *Node {
	norm := p.analyzer.Normalize(piece)
	if p.expander != nil && (strings.HasSuffix(norm, "*") || strings.HasSuffix(norm, "?")) {
		if expanded := p.expander.Expand(norm); len(expanded) > 0 {
			terms := make([]*Node, len(expanded))
			for i, e := range expanded {
				terms[i] = Term(e)
			}
			return chain(KindOr, terms)
		}
	}
	return Term(norm)
}

// chain nests nodes right to left: [a b c] becomes kind(a, kind(b, c)).
func chain(kind Kind, nodes []*Node) *Node {
	n := nodes[len(nodes)-1]
	for i := len(nodes) - 2; i >= 0; i-- {
		n = Op(kind, nodes[i], n)
	}
	return n
}
