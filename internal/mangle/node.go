package mangle

import (
	"strings"
	"sync/atomic"
)

var nextNodeID uint64

// Node is an immutable element of a demangled tree. Two independent
// demanglings of the same mangled string may produce distinct Node values
// (distinct identity); callers that need identity-based loop-breaking must
// use ID, while callers that need a stable map key across separately
// demangled trees must use the structural Hash/Equal pair below.
type Node struct {
	id       uint64
	Kind     Kind
	Text     string // defined only for identifier/operator/module terminals
	Children []*Node
	Parent   *Node // non-owning; set by the builder, never mutated after
}

// NewNode constructs a Node and assigns it a process-unique identity token.
func NewNode(kind Kind, text string, children ...*Node) *Node {
	n := &Node{
		id:       atomic.AddUint64(&nextNodeID, 1),
		Kind:     kind,
		Text:     text,
		Children: children,
	}
	for _, c := range children {
		if c != nil && c.Parent == nil {
			c.Parent = n
		}
	}
	return n
}

// ID returns the opaque identity token assigned at construction. Two nodes
// with the same ID are the same object; nodes with different IDs may still
// be structurally equal.
func (n *Node) ID() uint64 {
	if n == nil {
		return 0
	}
	return n.id
}

// Child returns the i'th child, or nil if out of range.
func (n *Node) Child(i int) *Node {
	if n == nil || i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// FirstChild is a convenience for Child(0).
func (n *Node) FirstChild() *Node { return n.Child(0) }

// IsFirstChildOf reports whether parent's first child is n, by identity.
func (n *Node) IsFirstChildOf(parent *Node) bool {
	return n != nil && parent != nil && parent.FirstChild() == n
}

// ContainsKind reports whether n or any descendant has the given kind. Used
// to detect e.g. a `.weak` modifier anywhere under a type's node tree.
func (n *Node) ContainsKind(k Kind) bool {
	if n == nil {
		return false
	}
	if n.Kind == k {
		return true
	}
	for _, c := range n.Children {
		if c.ContainsKind(k) {
			return true
		}
	}
	return false
}

// DescendantOfKind returns the first descendant (depth-first, including n
// itself) with the given kind, or nil.
func (n *Node) DescendantOfKind(k Kind) *Node {
	if n == nil {
		return nil
	}
	if n.Kind == k {
		return n
	}
	for _, c := range n.Children {
		if d := c.DescendantOfKind(k); d != nil {
			return d
		}
	}
	return nil
}

// Hash returns a structural hash suitable for use as a map key component.
// Equal nodes (by Equal) always produce the same Hash; unequal nodes may
// collide, so Hash is meant to be combined with Equal, never used alone for
// a correctness-sensitive comparison.
func (n *Node) Hash() uint64 {
	if n == nil {
		return 0
	}
	h := uint64(fnvOffset)
	h = fnvMix(h, uint64(n.Kind))
	for _, b := range []byte(n.Text) {
		h = fnvMix(h, uint64(b))
	}
	for _, c := range n.Children {
		h = fnvMix(h, c.Hash())
	}
	return h
}

const (
	fnvOffset = 14695981039346656037
	fnvPrime  = 1099511628211
)

func fnvMix(h, v uint64) uint64 {
	h ^= v
	h *= fnvPrime
	return h
}

// Equal reports whether n and other are structurally equal: same kind,
// same text, same children recursively. Identity (pointer/ID) is
// irrelevant.
func (n *Node) Equal(other *Node) bool {
	if n == other {
		return true
	}
	if n == nil || other == nil {
		return false
	}
	if n.Kind != other.Kind || n.Text != other.Text {
		return false
	}
	if len(n.Children) != len(other.Children) {
		return false
	}
	for i := range n.Children {
		if !n.Children[i].Equal(other.Children[i]) {
			return false
		}
	}
	return true
}

// StructuralKey renders a compact, deterministic string encoding of the
// tree's structure; it is suitable as a Go map key when a *Node can't be
// used directly (two distinct-identity, structurally-equal trees must
// produce the same key).
func (n *Node) StructuralKey() string {
	var b strings.Builder
	n.writeKey(&b)
	return b.String()
}

func (n *Node) writeKey(b *strings.Builder) {
	if n == nil {
		b.WriteString("∅")
		return
	}
	b.WriteByte('(')
	b.WriteString(n.Kind.String())
	if n.Text != "" {
		b.WriteByte(':')
		b.WriteString(n.Text)
	}
	for _, c := range n.Children {
		b.WriteByte(' ')
		c.writeKey(b)
	}
	b.WriteByte(')')
}
