package node

// Matcher tests a node during a search.
type Matcher func(n *Node) bool

// NextOptions control Tree.Next and Tree.Prev.
type NextOptions struct {
	// IncludeParent also tests each ancestor while escalating.
	IncludeParent bool
	// Skip prunes a subtree from the search.
	Skip Matcher
}

// Preorder visits n and its descendants, parents before children.
// A node for which skip returns true is not visited, nor is its subtree.
// The walk stops when visit returns false; Preorder then returns false.
func Preorder(n *Node, visit Matcher, skip Matcher) bool {
	if skip != nil && skip(n) {
		return true
	}
	if !visit(n) {
		return false
	}
	for _, c := range n.children {
		if !Preorder(c, visit, skip) {
			return false
		}
	}
	return true
}

// Postorder visits n and its descendants, children before parents.
func Postorder(n *Node, visit Matcher, skip Matcher) bool {
	if skip != nil && skip(n) {
		return true
	}
	for _, c := range n.children {
		if !Postorder(c, visit, skip) {
			return false
		}
	}
	return visit(n)
}

// Next finds the first node after n in document order that matches.
// n's own subtree is not searched. Each following sibling's subtree is
// searched once; only when all are exhausted does the search move to the
// parent's following siblings.
func (t *Tree) Next(n *Node, match Matcher, opts NextOptions) (*Node, bool) {
	cur := n
	for {
		p, ok := t.Parent(cur)
		if !ok {
			return nil, false
		}
		for _, sib := range p.children[t.Index(cur)+1:] {
			if found, ok := first(sib, match, opts.Skip); ok {
				return found, true
			}
		}
		if opts.IncludeParent && match(p) {
			return p, true
		}
		cur = p
	}
}

// Prev finds the nearest node before n in document order that matches.
func (t *Tree) Prev(n *Node, match Matcher, opts NextOptions) (*Node, bool) {
	cur := n
	for {
		p, ok := t.Parent(cur)
		if !ok {
			return nil, false
		}
		siblings := p.children[:t.Index(cur)]
		for i := len(siblings) - 1; i >= 0; i-- {
			if found, ok := last(siblings[i], match, opts.Skip); ok {
				return found, true
			}
		}
		if opts.IncludeParent && match(p) {
			return p, true
		}
		cur = p
	}
}

// First returns the first node of n's subtree in document order that matches.
func First(n *Node, match Matcher, skip Matcher) (*Node, bool) {
	return first(n, match, skip)
}

// Last returns the last node of n's subtree in document order that matches.
func Last(n *Node, match Matcher, skip Matcher) (*Node, bool) {
	return last(n, match, skip)
}

func first(n *Node, match, skip Matcher) (*Node, bool) {
	var found *Node
	Preorder(n, func(c *Node) bool {
		if match(c) {
			found = c
			return false
		}
		return true
	}, skip)
	return found, found != nil
}

// last walks in reverse preorder: children last to first, then the node.
func last(n *Node, match, skip Matcher) (*Node, bool) {
	if skip != nil && skip(n) {
		return nil, false
	}
	for i := len(n.children) - 1; i >= 0; i-- {
		if found, ok := last(n.children[i], match, skip); ok {
			return found, true
		}
	}
	if match(n) {
		return n, true
	}
	return nil, false
}
