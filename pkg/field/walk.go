package field

// Walk visits n and its descendants depth-first, parents before children.
// Returning false from fn skips the node's children.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	if c, ok := n.(*Composite); ok {
		for _, ch := range c.children {
			Walk(ch, fn)
		}
	}
}

// Count returns the number of nodes in the subtree rooted at n.
func Count(n Node) int {
	total := 0
	Walk(n, func(Node) bool {
		total++
		return true
	})
	return total
}

// Leaves returns the non-composite nodes of the subtree in visiting order.
func Leaves(n Node) []Node {
	var out []Node
	Walk(n, func(x Node) bool {
		if x.Kind() != KindComposite {
			out = append(out, x)
		}
		return true
	})
	return out
}
