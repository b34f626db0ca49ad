package toc

// OutlineNode is a heading plus the headings nested beneath it.
type OutlineNode struct {
	Entry    HeadingEntry   `json:"entry"`
	Children []*OutlineNode `json:"children"`
}

// Build nests entries by level. Each entry becomes a child of the nearest
// preceding entry with a smaller level, or a root when there is none.
// Sibling order follows document order.
func Build(entries []HeadingEntry) []*OutlineNode {
	var roots []*OutlineNode
	var stack []*OutlineNode

	for _, e := range entries {
		node := &OutlineNode{Entry: e, Children: []*OutlineNode{}}

		// Pop stack until we find a parent with lower level.
		for len(stack) > 0 && stack[len(stack)-1].Entry.Level >= e.Level {
			stack = stack[:len(stack)-1]
		}

		if len(stack) == 0 {
			roots = append(roots, node)
		} else {
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, node)
		}
		stack = append(stack, node)
	}
	return roots
}

// Walk visits nodes depth-first in document order.
func Walk(nodes []*OutlineNode, fn func(n *OutlineNode, depth int)) {
	var visit func([]*OutlineNode, int)
	visit = func(ns []*OutlineNode, depth int) {
		for _, n := range ns {
			fn(n, depth)
			visit(n.Children, depth+1)
		}
	}
	visit(nodes, 0)
}
