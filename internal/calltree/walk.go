package calltree

// Action tells Walk whether to enter a node's children.
type Action uint8

const (
	// Descend visits the node's children.
	Descend Action = iota
	// Prune skips the node's subtree; siblings are still visited.
	Prune
)

// Visitor is called once per node with the node's depth (root = 0).
type Visitor func(id NodeID, depth int) Action

// Walk visits the tree depth first in pre-order starting at the root.
// Children are visited in insertion order.
func (t *Tree[T]) Walk(visit Visitor) {
	t.WalkFrom(Root, visit)
}

// WalkFrom visits the subtree rooted at start. Reported depths are absolute.
func (t *Tree[T]) WalkFrom(start NodeID, visit Visitor) {
	type frame struct {
		id   NodeID
		next int
	}
	if visit(start, t.at(start).depth) == Prune {
		return
	}
	stack := []frame{{id: start}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		children := t.nodes[top.id].children
		if top.next >= len(children) {
			stack = stack[:len(stack)-1]
			continue
		}
		child := children[top.next]
		top.next++
		if visit(child, t.nodes[child].depth) == Descend {
			stack = append(stack, frame{id: child})
		}
	}
}
