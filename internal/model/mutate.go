package model

import (
	"errors"
	"slices"
	"sort"

	"github.com/RoaringBitmap/roaring"
)

// AppendChild attaches child as the last child. A child that already has a
// parent is moved: before-move fires on it, it is detached from the old
// parent (firing remove events), attached here, then the move event fires.
func (n *Node) AppendChild(child *Node) error {
	if err := n.checkAttach(child); err != nil {
		return err
	}
	t := n.tree
	index := len(n.children)
	if !t.fire(&Event{Kind: BeforeAppend, Parent: n, Node: child, Index: index}) {
		return ErrVetoed
	}
	oldParent := child.Parent()
	if oldParent != n {
		if err := n.Admit(child); err != nil {
			t.log.Warn().Err(err).Str("parent", n.id).Str("tag", child.tag).Msg("child rejected")
			return err
		}
	}
	if oldParent != nil {
		if !t.fire(&Event{Kind: BeforeMove, Node: child, OldParent: oldParent, Parent: n, Index: index}) {
			return ErrVetoed
		}
		if err := oldParent.RemoveChild(child, false); err != nil {
			return err
		}
	}
	index = len(n.children)
	n.link(child, index)
	t.log.Debug().Str("parent", n.id).Str("node", child.id).Int("index", index).Msg("node appended")
	t.fire(&Event{Kind: Append, Parent: n, Node: child, Index: index})
	if oldParent != nil {
		t.fire(&Event{Kind: Move, Node: child, OldParent: oldParent, Parent: n, Index: index})
	}
	return nil
}

// InsertBefore attaches child immediately before ref. A nil ref appends.
func (n *Node) InsertBefore(child, ref *Node) error {
	if ref == nil {
		return n.AppendChild(child)
	}
	if child == ref {
		return ErrSameNode
	}
	if err := n.checkAttach(child); err != nil {
		return err
	}
	if ref.parent != n.nid || n.IndexOf(ref) < 0 {
		return ErrNotChild
	}
	t := n.tree
	index := n.IndexOf(ref)
	if !t.fire(&Event{Kind: BeforeInsert, Parent: n, Node: child, Ref: ref, Index: index}) {
		return ErrVetoed
	}
	oldParent := child.Parent()
	if oldParent != n {
		if err := n.Admit(child); err != nil {
			t.log.Warn().Err(err).Str("parent", n.id).Str("tag", child.tag).Msg("child rejected")
			return err
		}
	}
	if oldParent != nil {
		if !t.fire(&Event{Kind: BeforeMove, Node: child, OldParent: oldParent, Parent: n, Ref: ref, Index: index}) {
			return ErrVetoed
		}
		if err := oldParent.RemoveChild(child, false); err != nil {
			return err
		}
	}
	// positions shift when the child was detached from this same parent
	index = n.IndexOf(ref)
	n.link(child, index)
	t.log.Debug().Str("parent", n.id).Str("node", child.id).Int("index", index).Msg("node inserted")
	t.fire(&Event{Kind: Insert, Parent: n, Node: child, Ref: ref, Index: index})
	if oldParent != nil {
		t.fire(&Event{Kind: Move, Node: child, OldParent: oldParent, Parent: n, Ref: ref, Index: index})
	}
	return nil
}

// RemoveChild detaches child. With destroy the child and its descendants are
// destroyed; otherwise the child remains a valid detached subtree root.
func (n *Node) RemoveChild(child *Node, destroy bool) error {
	index := n.IndexOf(child)
	if index < 0 || child.parent != n.nid {
		return ErrNotChild
	}
	t := n.tree
	if !t.fire(&Event{Kind: BeforeRemove, Parent: n, Node: child, Index: index, Destroy: destroy}) {
		return ErrVetoed
	}
	n.unlink(child, index)
	t.log.Debug().Str("parent", n.id).Str("node", child.id).Bool("destroy", destroy).Msg("node removed")
	t.fire(&Event{Kind: Remove, Parent: n, Node: child, Index: index, Destroy: destroy})
	if destroy {
		child.destroy()
	}
	return nil
}

// Remove detaches n from its parent.
func (n *Node) Remove(destroy bool) error {
	p := n.Parent()
	if p == nil {
		if destroy {
			n.destroy()
		}
		return nil
	}
	return p.RemoveChild(n, destroy)
}

// RemoveAll removes every child, stopping at the first vetoed removal.
func (n *Node) RemoveAll(destroy bool) error {
	for len(n.children) > 0 {
		if err := n.RemoveChild(n.FirstChild(), destroy); err != nil {
			return err
		}
	}
	return nil
}

// Destroy removes n from its parent and releases it and its descendants.
func (n *Node) Destroy() error {
	return n.Remove(true)
}

// ReplaceChild puts newChild where oldChild is and detaches oldChild.
// newChild is admitted as if oldChild were already gone. When attaching
// newChild fails after oldChild was removed, oldChild is put back.
func (n *Node) ReplaceChild(newChild, oldChild *Node) error {
	index := n.IndexOf(oldChild)
	if index < 0 {
		return ErrNotChild
	}
	if newChild == oldChild {
		return ErrSameNode
	}
	if err := n.checkAttach(newChild); err != nil {
		return err
	}
	if newChild.Parent() != n {
		if err := n.admit(newChild, oldChild); err != nil {
			n.tree.log.Warn().Err(err).Str("parent", n.id).Str("tag", newChild.tag).Msg("replacement rejected")
			return err
		}
	}
	if err := n.RemoveChild(oldChild, false); err != nil {
		return err
	}
	ref := n.Item(index)
	if ref == newChild {
		return nil
	}
	if err := n.InsertBefore(newChild, ref); err != nil {
		if rerr := n.InsertBefore(oldChild, n.Item(index)); rerr != nil {
			return errors.Join(err, rerr)
		}
		return err
	}
	return nil
}

// ReplaceChildPreserveContent replaces oldChild and moves its children under newChild.
func (n *Node) ReplaceChildPreserveContent(newChild, oldChild *Node) error {
	moved := oldChild.Children()
	if err := n.ReplaceChild(newChild, oldChild); err != nil {
		return err
	}
	for _, c := range moved {
		if err := newChild.AppendChild(c); err != nil {
			return err
		}
	}
	return nil
}

// Sort reorders the children with less and relinks siblings. No events fire.
func (n *Node) Sort(less func(a, b *Node) bool) {
	kids := n.Children()
	sort.SliceStable(kids, func(i, j int) bool { return less(kids[i], kids[j]) })
	for i, c := range kids {
		n.children[i] = c.nid
	}
	n.relink()
}

// checkAttach rejects nils, foreign, destroyed and cyclic attachments.
func (n *Node) checkAttach(child *Node) error {
	switch {
	case child == nil:
		return malformed("nil child")
	case n.destroyed || child.destroyed:
		return ErrDestroyed
	case child.tree != n.tree:
		return ErrForeignNode
	case child == n || n.IsAncestor(child):
		return ErrCycle
	}
	return nil
}

func (n *Node) link(child *Node, index int) {
	n.children = slices.Insert(n.children, index, child.nid)
	child.parent = n.nid
	n.relink()
	if !n.IsSequence(child.tag) && len(n.FilterChildren(child.tag)) > 1 {
		n.markSequence(child.tag)
	}
}

func (n *Node) unlink(child *Node, index int) {
	n.children = slices.Delete(n.children, index, index+1)
	child.parent, child.prev, child.next = 0, 0, 0
	n.relink()
}

// relink restores sibling links from the child order.
func (n *Node) relink() {
	for i, id := range n.children {
		c := n.tree.nodes[id]
		c.prev, c.next = 0, 0
		if i > 0 {
			c.prev = n.children[i-1]
		}
		if i < len(n.children)-1 {
			c.next = n.children[i+1]
		}
	}
}

// dropChildren destroys every child without consulting observers; remove
// events still fire so listeners can follow.
func (n *Node) dropChildren() {
	for len(n.children) > 0 {
		child := n.FirstChild()
		n.unlink(child, 0)
		n.tree.fire(&Event{Kind: Remove, Parent: n, Node: child, Index: 0, Destroy: true})
		child.destroy()
	}
}

// destroy releases n and its descendants from the arena and severs all links.
func (n *Node) destroy() {
	if n.destroyed {
		return
	}
	ids := roaring.New()
	n.Cascade(func(d *Node) bool {
		ids.Add(uint32(d.nid))
		return true
	})
	var nodes []*Node
	it := ids.Iterator()
	for it.HasNext() {
		if d := n.tree.nodes[NodeID(it.Next())]; d != nil {
			nodes = append(nodes, d)
		}
	}
	n.tree.release(ids)
	for _, d := range nodes {
		d.destroyed = true
		d.parent, d.prev, d.next = 0, 0, 0
		d.children = nil
		d.props = nil
		d.propIndex = map[string]int{}
		d.content = nil
	}
}
