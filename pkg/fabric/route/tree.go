// Package route provides the mutable per-net routing tree that routers
// build on top of the fabric device graph.
//
// A Tree value is one node of a rooted, single-parent tree: the root has no
// inbound connection, every other node carries exactly the connection that
// drives its wire. Trees are per-net, single-writer structures; callers own
// disjoint trees and may read an unmodified tree from any number of
// goroutines.
package route

import (
	"errors"
	"fmt"

	"github.com/OpenTraceLab/OpenTraceFabric/pkg/fabric"
)

var (
	// ErrAttached is returned when attaching a node that already has a parent.
	ErrAttached = errors.New("route: node already attached")
	// ErrWireMismatch is returned when a connection's sink wire is not the
	// wire of the node being attached.
	ErrWireMismatch = errors.New("route: connection sink does not match node wire")
	// ErrNotChild is returned when detaching a node that is not a child of
	// the receiver.
	ErrNotChild = errors.New("route: node is not a child")
)

// Tree is one node of a routing tree.
type Tree struct {
	wire     fabric.Wire
	inbound  fabric.Connection // zero at the root
	parent   *Tree
	children []*Tree
}

// NewTree returns an unrouted root for the given wire.
func NewTree(w fabric.Wire) *Tree {
	return &Tree{wire: w}
}

// Wire returns the wire this node sits on.
func (t *Tree) Wire() fabric.Wire { return t.wire }

// Connection returns the inbound connection driving this node. It is the
// zero Connection at a root.
func (t *Tree) Connection() fabric.Connection { return t.inbound }

// Parent returns the parent node, nil at a root.
func (t *Tree) Parent() *Tree { return t.parent }

// Children returns the node's children. The returned slice is the tree's
// own backing store; callers must not modify it.
func (t *Tree) Children() []*Tree { return t.children }

// Root walks parent links to the tree's root.
func (t *Tree) Root() *Tree {
	for t.parent != nil {
		t = t.parent
	}
	return t
}

// IsRoot reports whether the node has no inbound connection.
func (t *Tree) IsRoot() bool { return t.parent == nil }

// AddConnection creates a child node for c's sink wire and attaches it
// under t. c's source wire must be t's wire.
func (t *Tree) AddConnection(c fabric.Connection) (*Tree, error) {
	if c.Source() != t.wire {
		return nil, fmt.Errorf("%w: connection %v does not leave %v", ErrWireMismatch, c, t.wire)
	}
	child := &Tree{wire: c.Sink(), inbound: c, parent: t}
	t.children = append(t.children, child)
	return child, nil
}

// AttachConnection attaches a pre-built unrouted node under t via c. The
// node must not already have a parent, and c's sink wire must be the node's
// wire. The tree is left unmodified on error.
func (t *Tree) AttachConnection(c fabric.Connection, node *Tree) error {
	if node.parent != nil {
		return fmt.Errorf("%w: %v", ErrAttached, node.wire)
	}
	if c.Source() != t.wire || c.Sink() != node.wire {
		return fmt.Errorf("%w: %v against node %v", ErrWireMismatch, c, node.wire)
	}
	node.inbound = c
	node.parent = t
	t.children = append(t.children, node)
	return nil
}

// RemoveConnection detaches the child attached via c, returning it to the
// unrouted state.
func (t *Tree) RemoveConnection(c fabric.Connection) (*Tree, error) {
	for i, ch := range t.children {
		if ch.inbound == c {
			t.detachAt(i)
			return ch, nil
		}
	}
	return nil, fmt.Errorf("%w: no child via %v", ErrNotChild, c)
}

// Disconnect detaches the given child node.
func (t *Tree) Disconnect(node *Tree) error {
	for i, ch := range t.children {
		if ch == node {
			t.detachAt(i)
			return nil
		}
	}
	return fmt.Errorf("%w: %v", ErrNotChild, node.wire)
}

// DisconnectWire detaches the first child sitting on w.
func (t *Tree) DisconnectWire(w fabric.Wire) (*Tree, error) {
	for i, ch := range t.children {
		if ch.wire == w {
			t.detachAt(i)
			return ch, nil
		}
	}
	return nil, fmt.Errorf("%w: no child on %v", ErrNotChild, w)
}

func (t *Tree) detachAt(i int) {
	ch := t.children[i]
	ch.parent = nil
	ch.inbound = fabric.Connection{}
	t.children = append(t.children[:i], t.children[i+1:]...)
}

// Prune contracts the tree post-order against keep: a subtree survives iff
// its wire, or a descendant's, is in keep. It reports whether the receiver
// itself survived; when it did not, the caller should discard the tree.
// Pruning twice with the same set is a no-op the second time.
func (t *Tree) Prune(keep map[fabric.Wire]bool) bool {
	kept := t.children[:0]
	for _, ch := range t.children {
		if ch.Prune(keep) {
			kept = append(kept, ch)
		} else {
			ch.parent = nil
			ch.inbound = fabric.Connection{}
		}
	}
	t.children = kept
	return len(t.children) > 0 || keep[t.wire]
}

// Walk visits the subtree preorder, parent before children, until fn
// returns false.
func (t *Tree) Walk(fn func(*Tree) bool) bool {
	if !fn(t) {
		return false
	}
	for _, ch := range t.children {
		if !ch.Walk(fn) {
			return false
		}
	}
	return true
}

// Preorder returns the subtree's nodes in preorder.
func (t *Tree) Preorder() []*Tree {
	var out []*Tree
	t.Walk(func(n *Tree) bool {
		out = append(out, n)
		return true
	})
	return out
}

// AllPIPs collects, from the tree's root, every traversed connection
// flagged configurable as a PIP. This is the bridge to the logical layer,
// which only cares which switches are set.
func (t *Tree) AllPIPs() []fabric.PIP {
	var out []fabric.PIP
	t.Root().Walk(func(n *Tree) bool {
		if n.parent != nil && n.inbound.IsConfigurable() {
			out = append(out, n.inbound.PIP())
		}
		return true
	})
	return out
}

// DeepCopy clones the subtree's shape and per-node wire and connection
// identities. The copy's root carries no inbound connection.
func (t *Tree) DeepCopy() *Tree {
	cp := &Tree{wire: t.wire}
	for _, ch := range t.children {
		c := ch.deepCopyInto(cp)
		cp.children = append(cp.children, c)
	}
	return cp
}

func (t *Tree) deepCopyInto(parent *Tree) *Tree {
	cp := &Tree{wire: t.wire, inbound: t.inbound, parent: parent}
	for _, ch := range t.children {
		cp.children = append(cp.children, ch.deepCopyInto(cp))
	}
	return cp
}
