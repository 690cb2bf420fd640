package query

// PropagateSections pushes every section restriction down to the leaves of
// the subtree it wraps, so (a and b)[ti] becomes a[ti] and b[ti]. The root
// may be replaced; callers must use the returned node.
func PropagateSections(n *Node) *Node {
	switch {
	case n.Kind == KindTerm:
		return n
	case n.Kind == KindSection:
		child := PropagateSections(n.Children[0])
		if !child.Kind.IsOperator() {
			if child == n.Children[0] {
				return n
			}
			return Section(n.Text, child)
		}
		pushed := make([]*Node, len(child.Children))
		for i, grandchild := range child.Children {
			pushed[i] = PropagateSections(Section(n.Text, grandchild))
		}
		return &Node{Kind: child.Kind, Children: pushed}
	default:
		children := make([]*Node, len(n.Children))
		changed := false
		for i, c := range n.Children {
			children[i] = PropagateSections(c)
			changed = changed || children[i] != c
		}
		if !changed {
			return n
		}
		return &Node{Kind: n.Kind, Text: n.Text, Children: children}
	}
}
