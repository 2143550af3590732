// Package arena provides an append-only tree whose nodes are addressed by
// stable integer ids instead of pointers.
//
// An Arena owns every node. Nodes are never removed, so a NodeID stays valid
// for the lifetime of the arena and parent/child links can only refer to
// nodes that already exist. Callers get borrowed access through Node and
// Data; the returned pointers are valid until the next CreateNode, which may
// grow the backing slice.
package arena

import (
	"errors"
	"fmt"
)

// NodeID is the position of a node in its arena.
type NodeID int

// NoParent is the parent of a root node.
const NoParent NodeID = -1

// ErrInvalidLink is returned by Link for a parent/child pair that would break
// the tree.
var ErrInvalidLink = errors.New("arena: invalid link")

// Node is one tree node. Children are kept in insertion order, which is the
// traversal order.
type Node[T any] struct {
	Data     T
	parent   NodeID
	children []NodeID
}

// Parent returns the parent id and whether the node has one.
func (n *Node[T]) Parent() (NodeID, bool) {
	return n.parent, n.parent != NoParent
}

// Children returns the child ids in insertion order. The slice is owned by
// the arena and must not be modified.
func (n *Node[T]) Children() []NodeID {
	return n.children
}

// Arena is an append-only store of nodes.
type Arena[T any] struct {
	nodes []Node[T]
}

// New returns an empty arena.
func New[T any]() *Arena[T] {
	return &Arena[T]{}
}

// NewWithCapacity returns an empty arena with room for n nodes.
func NewWithCapacity[T any](n int) *Arena[T] {
	return &Arena[T]{nodes: make([]Node[T], 0, n)}
}

// Len returns the number of nodes created so far.
func (a *Arena[T]) Len() int { return len(a.nodes) }

// CreateNode appends a parentless, childless node holding data and returns
// its id. Ids are assigned 0, 1, 2, ... in creation order.
func (a *Arena[T]) CreateNode(data T) NodeID {
	id := NodeID(len(a.nodes))
	a.nodes = append(a.nodes, Node[T]{Data: data, parent: NoParent})
	return id
}

// Node returns the node with the given id. It panics if id was not created
// by this arena.
func (a *Arena[T]) Node(id NodeID) *Node[T] {
	a.mustContain(id)
	return &a.nodes[id]
}

// Data returns a pointer to the payload of id, which may be modified in
// place. It panics if id was not created by this arena.
func (a *Arena[T]) Data(id NodeID) *T {
	return &a.Node(id).Data
}

// SetParent records parent as the parent of child. It does not touch
// parent's child list; use Link to update both sides together. It panics on
// unknown ids.
func (a *Arena[T]) SetParent(child, parent NodeID) {
	a.mustContain(parent)
	a.Node(child).parent = parent
}

// AddChild appends child to the children of parent without setting the
// child's parent. It panics on unknown ids.
func (a *Arena[T]) AddChild(parent, child NodeID) {
	a.mustContain(child)
	n := a.Node(parent)
	n.children = append(n.children, child)
}

// Link makes child the last child of parent and sets its parent, as one
// step. It rejects unknown ids, self links, children that already have a
// parent, and links that would close a cycle, leaving the arena unchanged.
func (a *Arena[T]) Link(parent, child NodeID) error {
	if !a.contains(parent) || !a.contains(child) {
		return fmt.Errorf("%w: %d -> %d with %d nodes", ErrInvalidLink, parent, child, len(a.nodes))
	}
	if parent == child {
		return fmt.Errorf("%w: node %d cannot be its own child", ErrInvalidLink, child)
	}
	if p := a.nodes[child].parent; p != NoParent {
		return fmt.Errorf("%w: node %d already has parent %d", ErrInvalidLink, child, p)
	}
	// A childless node cannot be anyone's ancestor.
	if len(a.nodes[child].children) > 0 && a.isAncestor(child, parent) {
		return fmt.Errorf("%w: node %d is an ancestor of %d", ErrInvalidLink, child, parent)
	}
	a.nodes[child].parent = parent
	a.nodes[parent].children = append(a.nodes[parent].children, child)
	return nil
}

// Roots returns the ids of all parentless nodes in creation order.
func (a *Arena[T]) Roots() []NodeID {
	var roots []NodeID
	for i := range a.nodes {
		if a.nodes[i].parent == NoParent {
			roots = append(roots, NodeID(i))
		}
	}
	return roots
}

// Validate checks that every parent/child link is recorded on both sides
// (each child lists its parent, each parent lists each of its children
// exactly once), that nothing points outside the arena, and that no parent
// chain loops.
func (a *Arena[T]) Validate() error {
	for i := range a.nodes {
		id := NodeID(i)
		n := &a.nodes[i]
		if n.parent != NoParent {
			if !a.contains(n.parent) {
				return fmt.Errorf("arena: node %d has unknown parent %d", id, n.parent)
			}
			if count(a.nodes[n.parent].children, id) != 1 {
				return fmt.Errorf("arena: node %d is not listed once by its parent %d", id, n.parent)
			}
			if a.isAncestor(id, n.parent) {
				return fmt.Errorf("arena: node %d is its own ancestor", id)
			}
		}
		for _, c := range n.children {
			if !a.contains(c) {
				return fmt.Errorf("arena: node %d has unknown child %d", id, c)
			}
			if a.nodes[c].parent != id {
				return fmt.Errorf("arena: child %d of node %d has parent %d", c, id, a.nodes[c].parent)
			}
		}
	}
	return nil
}

// isAncestor reports whether anc is on the parent chain of id. The walk is
// bounded by the arena size so a corrupted chain cannot loop forever.
func (a *Arena[T]) isAncestor(anc, id NodeID) bool {
	for steps := 0; id != NoParent && a.contains(id) && steps <= len(a.nodes); steps++ {
		if id == anc {
			return true
		}
		id = a.nodes[id].parent
	}
	return false
}

func count(ids []NodeID, id NodeID) int {
	n := 0
	for _, x := range ids {
		if x == id {
			n++
		}
	}
	return n
}

func (a *Arena[T]) contains(id NodeID) bool {
	return id >= 0 && int(id) < len(a.nodes)
}

func (a *Arena[T]) mustContain(id NodeID) {
	if !a.contains(id) {
		panic(fmt.Sprintf("arena: node %d out of range [0, %d)", id, len(a.nodes)))
	}
}
