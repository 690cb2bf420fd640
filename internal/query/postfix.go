package query

import (
	"strconv"
	"strings"
)

// Instr is one postfix instruction: a term to resolve, a section filter,
// or a binary operator.
type Instr struct {
	Kind Kind
	Text string
}

// Postfix is a tree flattened into children-before-parent order.
type Postfix struct {
	Instrs []Instr
	// Terms counts the KindTerm instructions.
	Terms int
}

// Linearize flattens a tree depth first.
func Linearize(root *Node) *Postfix {
	p := &Postfix{}
	p.append(root)
	return p
}

func (p *Postfix) append(n *Node) {
	for _, c := range n.Children {
		p.append(c)
	}
	if n.Kind == KindTerm {
		p.Terms++
	}
	p.Instrs = append(p.Instrs, Instr{Kind: n.Kind, Text: n.Text})
}

// String renders the sequence space separated, e.g. "cat dog PHRASE".
// Two plans with the same string evaluate identically: a term that could
// be read as an operator or a section, or that holds a space, is quoted.
func (p *Postfix) String() string {
	parts := make([]string, len(p.Instrs))
	for i, in := range p.Instrs {
		switch in.Kind {
		case KindTerm:
			parts[i] = renderTerm(in.Text)
		case KindSection:
			parts[i] = "[" + in.Text + "]"
		default:
			parts[i] = strings.ToUpper(in.Kind.String())
		}
	}
	return strings.Join(parts, " ")
}

var operatorNames = map[string]struct{}{
	strings.ToUpper(KindAnd.String()):        {},
	strings.ToUpper(KindOr.String()):         {},
	strings.ToUpper(KindNear.String()):       {},
	strings.ToUpper(KindPhraseNear.String()): {},
}

func renderTerm(text string) string {
	if _, op := operatorNames[text]; op || text == "" || strings.ContainsAny(text, " \t\n\"\\[") {
		return strconv.Quote(text)
	}
	return text
}
