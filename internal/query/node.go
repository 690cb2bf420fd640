// Package query compiles boolean/proximity query strings into postfix plans
// and evaluates them against an inverted index (ranked) or against the
// token table of a single new document (boolean match).
package query

import (
	"strings"
)

// Kind identifies the variant of a Node.
type Kind int

const (
	KindTerm Kind = iota
	KindAnd
	KindOr
	KindNear
	KindPhraseNear
	KindSection
)

func (k Kind) String() string {
	switch k {
	case KindTerm:
		return "term"
	case KindAnd:
		return "and"
	case KindOr:
		return "or"
	case KindNear:
		return "near"
	case KindPhraseNear:
		return "phrase"
	case KindSection:
		return "section"
	default:
		return "unknown"
	}
}

// IsOperator reports whether the kind combines two operands.
func (k Kind) IsOperator() bool {
	switch k {
	case KindAnd, KindOr, KindNear, KindPhraseNear:
		return true
	}
	return false
}

// Node is one vertex of an expression tree. Text holds the term for
// KindTerm and the section name for KindSection. Nodes are never mutated
// after construction.
type Node struct {
	Kind     Kind
	Text     string
	Children []*Node
}

// Term returns a leaf node for a literal term.
func Term(text string) *Node {
	return &Node{Kind: KindTerm, Text: text}
}

// Op returns a binary operator node.
func Op(kind Kind, left, right *Node) *Node {
	return &Node{Kind: kind, Children: []*Node{left, right}}
}

// Section restricts child to the named document section.
func Section(name string, child *Node) *Node {
	return &Node{Kind: KindSection, Text: name, Children: []*Node{child}}
}

// String renders the tree in a prefix form such as and(cat, section:ti(dog)).
func (n *Node) String() string {
	var sb strings.Builder
	n.write(&sb)
	return sb.String()
}

func (n *Node) write(sb *strings.Builder) {
	switch n.Kind {
	case KindTerm:
		sb.WriteString(n.Text)
		return
	case KindSection:
		sb.WriteString("section:")
		sb.WriteString(n.Text)
	default:
		sb.WriteString(n.Kind.String())
	}
	sb.WriteByte('(')
	for i, c := range n.Children {
		if i > 0 {
			sb.WriteString(", ")
		}
		c.write(sb)
	}
	sb.WriteByte(')')
}
