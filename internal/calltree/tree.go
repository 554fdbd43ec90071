// Package calltree is an append-only arena tree.
//
// Nodes live in a single slice and refer to each other by NodeID, so the
// ids are stable for the lifetime of the tree and can double as names in
// rendered output. Node 0 is the sentinel root; it carries the zero value.
package calltree

import (
	"fmt"

	"fortio.org/safecast"
)

// NodeID indexes a node in its tree.
type NodeID uint32

// Root is the id of the sentinel root node.
const Root NodeID = 0

type node[T any] struct {
	value    T
	parent   NodeID
	depth    int
	children []NodeID
}

// Tree owns every node, transitively through the root.
type Tree[T any] struct {
	nodes []node[T]
}

// New returns a tree holding only the root sentinel.
func New[T any]() *Tree[T] {
	return &Tree[T]{nodes: make([]node[T], 1, 64)}
}

// Append adds v as the last child of parent and returns the new node's id.
func (t *Tree[T]) Append(parent NodeID, v T) NodeID {
	p := t.at(parent)
	n, err := safecast.Conv[uint32](len(t.nodes))
	if err != nil {
		panic(fmt.Errorf("calltree: node id overflow: %w", err))
	}
	id := NodeID(n)
	depth := p.depth + 1
	p.children = append(p.children, id)
	t.nodes = append(t.nodes, node[T]{value: v, parent: parent, depth: depth})
	return id
}

func (t *Tree[T]) at(id NodeID) *node[T] {
	if int(id) >= len(t.nodes) {
		panic(fmt.Sprintf("calltree: unknown node %d", id))
	}
	return &t.nodes[id]
}

// Len returns the number of nodes including the root.
func (t *Tree[T]) Len() int { return len(t.nodes) }

// Value returns the value stored at id. The pointer is only valid until the
// next Append.
func (t *Tree[T]) Value(id NodeID) *T { return &t.at(id).value }

// Parent returns the parent of id. The root is its own parent.
func (t *Tree[T]) Parent(id NodeID) NodeID { return t.at(id).parent }

// Children returns the children of id in insertion order. The slice must not
// be modified.
func (t *Tree[T]) Children(id NodeID) []NodeID { return t.at(id).children }

// Depth returns the distance of id from the root.
func (t *Tree[T]) Depth(id NodeID) int { return t.at(id).depth }

// Ancestor returns the ancestor of id at the given depth. Depths at or below
// zero yield the root; depths at or beyond the node's own yield id.
func (t *Tree[T]) Ancestor(id NodeID, depth int) NodeID {
	if depth <= 0 {
		return Root
	}
	for t.at(id).depth > depth {
		id = t.at(id).parent
	}
	return id
}
