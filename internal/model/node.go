package model

import (
	"fmt"
	"slices"
	"strings"

	"github.com/agentic-research/viewdef/api"
)

// PathSeparator joins node ids in PathString.
const PathSeparator = "/"

// Node is one element of the document tree, the equivalent of one tag.
// Links to parent and siblings are arena ids resolved through the owning Tree.
type Node struct {
	tree      *Tree
	nid       NodeID
	id        string
	tag       string
	modelType string
	isRoot    bool
	destroyed bool

	props     []*Property
	propIndex map[string]int
	content   *Property
	slots     []api.Slot
	// template is the structure template of a root, nil elsewhere.
	template *api.TemplateSpec
	// sequences holds the child tags that serialize as a sequence even
	// with a single child.
	sequences map[string]bool

	parent   NodeID
	prev     NodeID
	next     NodeID
	children []NodeID
}

// ID returns the path segment of the node ("tag-N", "root" for the root).
func (n *Node) ID() string { return n.id }

// NodeID returns the arena id.
func (n *Node) NodeID() NodeID { return n.nid }

// Tag returns the node's tag name.
func (n *Node) Tag() string { return n.tag }

// ModelType returns the document type the node was created for.
func (n *Node) ModelType() string { return n.modelType }

// Tree returns the owning arena.
func (n *Node) Tree() *Tree { return n.tree }

// IsRoot reports whether the node is a document root.
func (n *Node) IsRoot() bool { return n.isRoot }

// Destroyed reports whether the node has been destroyed.
func (n *Node) Destroyed() bool { return n.destroyed }

// Slots returns a copy of the child slot rules.
func (n *Node) Slots() []api.Slot { return slices.Clone(n.slots) }

// Slot returns the slot declared for tag.
func (n *Node) Slot(tag string) (api.Slot, bool) {
	for _, s := range n.slots {
		if s.Tag == tag {
			return s, true
		}
	}
	return api.Slot{}, false
}

func (n *Node) ref(id NodeID) *Node {
	if id == 0 {
		return nil
	}
	return n.tree.nodes[id]
}

// Parent returns the parent node, nil for roots and detached nodes.
func (n *Node) Parent() *Node { return n.ref(n.parent) }

// PreviousSibling returns the preceding sibling.
func (n *Node) PreviousSibling() *Node { return n.ref(n.prev) }

// NextSibling returns the following sibling.
func (n *Node) NextSibling() *Node { return n.ref(n.next) }

// FirstChild returns the first child.
func (n *Node) FirstChild() *Node {
	if len(n.children) == 0 {
		return nil
	}
	return n.ref(n.children[0])
}

// LastChild returns the last child.
func (n *Node) LastChild() *Node {
	if len(n.children) == 0 {
		return nil
	}
	return n.ref(n.children[len(n.children)-1])
}

// Children returns a snapshot of the child list.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	for i, id := range n.children {
		out[i] = n.ref(id)
	}
	return out
}

// ChildCount returns the number of children.
func (n *Node) ChildCount() int { return len(n.children) }

// HasChildNodes reports whether the node has children.
func (n *Node) HasChildNodes() bool { return len(n.children) > 0 }

// Item returns the child at index i, nil when out of range.
func (n *Node) Item(i int) *Node {
	if i < 0 || i >= len(n.children) {
		return nil
	}
	return n.ref(n.children[i])
}

// IndexOf returns the position of child, -1 when it is not a child.
func (n *Node) IndexOf(child *Node) int {
	if child == nil {
		return -1
	}
	return slices.Index(n.children, child.nid)
}

// IsFirst reports whether the node is its parent's first child.
func (n *Node) IsFirst() bool {
	p := n.Parent()
	return p == nil || p.FirstChild() == n
}

// IsLast reports whether the node is its parent's last child.
func (n *Node) IsLast() bool {
	p := n.Parent()
	return p == nil || p.LastChild() == n
}

// Depth returns the number of ancestors.
func (n *Node) Depth() int {
	d := 0
	for p := n.Parent(); p != nil; p = p.Parent() {
		d++
	}
	return d
}

// RootNode returns the topmost ancestor, n itself when it has no parent.
func (n *Node) RootNode() *Node {
	r := n
	for p := r.Parent(); p != nil; p = p.Parent() {
		r = p
	}
	return r
}

// IsDirectRootChild reports whether the parent is a document root.
func (n *Node) IsDirectRootChild() bool {
	p := n.Parent()
	return p != nil && p.isRoot
}

// IsAncestor reports whether node is an ancestor of n.
func (n *Node) IsAncestor(node *Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p == node {
			return true
		}
	}
	return false
}

// Contains reports whether node is a descendant of n.
func (n *Node) Contains(node *Node) bool {
	return node != nil && node.IsAncestor(n)
}

// Ancestors returns the chain from the topmost ancestor down to n inclusive.
func (n *Node) Ancestors() []*Node {
	var chain []*Node
	for p := n; p != nil; p = p.Parent() {
		chain = append(chain, p)
	}
	slices.Reverse(chain)
	return chain
}

// Path returns the ids from the topmost ancestor down to n.
func (n *Node) Path() []string {
	chain := n.Ancestors()
	out := make([]string, len(chain))
	for i, p := range chain {
		out[i] = p.id
	}
	return out
}

// PathString returns Path joined with PathSeparator, with a leading separator.
func (n *Node) PathString() string {
	return PathSeparator + strings.Join(n.Path(), PathSeparator)
}

// StructuralData returns the slot the parent declares for this node's tag.
func (n *Node) StructuralData() (api.Slot, bool) {
	p := n.Parent()
	if p == nil {
		return api.Slot{}, false
	}
	return p.Slot(n.tag)
}

// IsRequired reports whether the node fills a required slot. Roots are required.
func (n *Node) IsRequired() bool {
	if n.Depth() == 0 {
		return true
	}
	s, ok := n.StructuralData()
	return ok && s.Required
}

// HasMany reports whether the node's slot accepts siblings of the same tag.
func (n *Node) HasMany() bool {
	s, ok := n.StructuralData()
	return ok && s.HasMany
}

// IsSimilar reports whether other is a different node with the same tag.
func (n *Node) IsSimilar(other *Node) bool {
	return other != nil && other != n && other.tag == n.tag
}

// IsSequence reports whether children of tag serialize as a sequence. A tag
// becomes one when it is loaded from a sequence or gets a second child, and
// stays one when children are removed.
func (n *Node) IsSequence(tag string) bool { return n.sequences[tag] }

func (n *Node) markSequence(tag string) {
	if n.sequences == nil {
		n.sequences = make(map[string]bool)
	}
	n.sequences[tag] = true
}

// HasChildWithTag reports whether a direct child carries tag.
func (n *Node) HasChildWithTag(tag string) bool {
	for _, id := range n.children {
		if c := n.ref(id); c != nil && c.tag == tag {
			return true
		}
	}
	return false
}

// EachChild calls fn for every child until fn returns false.
// The child list is snapshotted first, so fn may mutate the tree.
func (n *Node) EachChild(fn func(*Node) bool) {
	for _, c := range n.Children() {
		if !fn(c) {
			return
		}
	}
}

// Cascade calls fn on n and its descendants in pre-order. Returning false
// skips the subtree of the current node.
func (n *Node) Cascade(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children() {
		c.Cascade(fn)
	}
}

// Bubble calls fn on n and each ancestor until fn returns false.
func (n *Node) Bubble(fn func(*Node) bool) {
	for p := n; p != nil; p = p.Parent() {
		if !fn(p) {
			return
		}
	}
}

// FilterChildren returns the direct children carrying tag.
func (n *Node) FilterChildren(tag string) []*Node {
	return n.FilterChildrenBy(func(c *Node) bool { return c.tag == tag })
}

// FilterChildrenBy returns the direct children satisfying fn.
func (n *Node) FilterChildrenBy(fn func(*Node) bool) []*Node {
	var out []*Node
	for _, c := range n.Children() {
		if fn(c) {
			out = append(out, c)
		}
	}
	return out
}

// FindChildBy returns the first node satisfying fn in pre-order, looking
// only at direct children unless deep is set.
func (n *Node) FindChildBy(fn func(*Node) bool, deep bool) *Node {
	for _, c := range n.Children() {
		if fn(c) {
			return c
		}
		if deep {
			if found := c.FindChildBy(fn, true); found != nil {
				return found
			}
		}
	}
	return nil
}

// FindChild returns the first child with tag whose property equals value.
// Empty property values never match.
func (n *Node) FindChild(tag, property string, value any, deep bool) *Node {
	return n.FindChildBy(func(c *Node) bool {
		if c.tag != tag {
			return false
		}
		v := c.PropertyValue(property)
		return !isEmpty(v) && SameValue(v, value)
	}, deep)
}

// FindChildByID returns the child with the given id. With byPattern the id
// may carry a numeric "-N" suffix, so a tag finds any node of that tag.
// Pattern matching ignores case.
func (n *Node) FindChildByID(id string, deep, byPattern bool) *Node {
	return n.FindChildBy(func(c *Node) bool {
		if byPattern {
			return matchesID(c.id, id)
		}
		return c.id == id
	}, deep)
}

// matchesID reports whether candidate is id, optionally followed by "-N".
func matchesID(candidate, id string) bool {
	if len(candidate) < len(id) || !strings.EqualFold(candidate[:len(id)], id) {
		return false
	}
	rest := candidate[len(id):]
	if rest == "" {
		return true
	}
	digits, ok := strings.CutPrefix(rest, "-")
	if !ok || digits == "" {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (n *Node) String() string {
	var data any
	if n.content != nil {
		data = n.content.Effective()
	}
	return fmt.Sprintf("[model.Node: %q, ID: %q, data: %v]", n.tag, n.id, data)
}
