package arena

import "iter"

// frame is a cursor on one node of the current root-to-leaf path: the node
// and the index of its next child to visit.
type frame struct {
	node NodeID
	next int
}

// Walker produces the nodes of a subtree in pre-order: a node before its
// descendants, children in insertion order. It keeps one frame per level of
// the current path, so memory grows with depth, not with tree size, and it
// only looks at a subtree once the walk reaches it.
//
// A Walker is single-use and not safe for concurrent use. Modifying the
// arena during a walk gives unspecified results.
type Walker[T any] struct {
	arena   *Arena[T]
	root    NodeID
	stack   []frame
	started bool
	depth   int
}

// Walk returns a Walker over the subtree rooted at root. Nothing is visited
// until the first call to Next. It panics if root is unknown.
func (a *Arena[T]) Walk(root NodeID) *Walker[T] {
	a.mustContain(root)
	return &Walker[T]{arena: a, root: root}
}

// Next advances to the next node and returns its id. It returns false once
// the subtree is exhausted.
func (w *Walker[T]) Next() (NodeID, bool) {
	if !w.started {
		w.started = true
		w.stack = append(w.stack, frame{node: w.root})
		w.depth = 0
		return w.root, true
	}
	for len(w.stack) > 0 {
		top := &w.stack[len(w.stack)-1]
		children := w.arena.nodes[top.node].children
		if top.next < len(children) {
			child := children[top.next]
			top.next++
			w.stack = append(w.stack, frame{node: child})
			w.depth = len(w.stack) - 1
			return child, true
		}
		w.stack = w.stack[:len(w.stack)-1]
	}
	return 0, false
}

// Depth returns the depth, relative to the walk's root, of the node last
// returned by Next.
func (w *Walker[T]) Depth() int { return w.depth }

// Value returns the payload of id. It is shorthand for the arena's Data.
func (w *Walker[T]) Value(id NodeID) *T { return w.arena.Data(id) }

// All returns the pre-order walk of the subtree at root as an iterator of
// ids and payload pointers. Breaking out of the loop stops the walk; nothing
// needs cleaning up.
func (a *Arena[T]) All(root NodeID) iter.Seq2[NodeID, *T] {
	return func(yield func(NodeID, *T) bool) {
		w := a.Walk(root)
		for id, ok := w.Next(); ok; id, ok = w.Next() {
			if !yield(id, &a.nodes[id].Data) {
				return
			}
		}
	}
}
