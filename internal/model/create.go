package model

import (
	"maps"
	"slices"

	"github.com/agentic-research/viewdef/api"
)

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

// CreateNode builds a child for tag from a definition fragment and appends
// it. BeforeCreate fires before the node exists, Create after it is built
// but before it is attached; either may veto. Admission failures are
// returned as *AdmissionError and the new node is destroyed.
func (n *Node) CreateNode(tag string, def any) (*Node, error) {
	if n.destroyed {
		return nil, ErrDestroyed
	}
	t := n.tree
	if !t.fire(&Event{Kind: BeforeCreate, Parent: n, Tag: tag}) {
		return nil, ErrVetoed
	}
	child, err := t.NewNodeFor(n.modelType, tag)
	if err != nil {
		return nil, err
	}
	if err := child.ApplyDefinition(def); err != nil {
		child.destroy()
		return nil, err
	}
	if !t.fire(&Event{Kind: Create, Parent: n, Node: child}) {
		child.destroy()
		return nil, ErrVetoed
	}
	if err := n.AppendChild(child); err != nil {
		child.destroy()
		return nil, err
	}
	return child, nil
}

// ApplyDefinition loads a definition fragment into n with events suspended.
//
// A map fragment carries attributes under api.AttributesKey, scalar content
// under api.ContentKey and one key per child tag, where a sequence creates
// one child per element. A scalar fragment is the node's content. Children
// that cannot be built or admitted are skipped and recorded on the tree
// (see Tree.Rejected); only malformed attributes fail the call.
func (n *Node) ApplyDefinition(def any) error {
	if n.destroyed {
		return ErrDestroyed
	}
	t := n.tree
	t.Suspend()
	defer t.Resume()

	m, ok := def.(map[string]any)
	if !ok {
		if def != nil {
			n.loadContent(def)
		}
		return nil
	}
	if raw, ok := m[api.AttributesKey]; ok && raw != nil {
		attrs, ok := raw.(map[string]any)
		if !ok {
			return malformed("%s: %s must be a map, got %T", n.tag, api.AttributesKey, raw)
		}
		n.loadProperties(attrs)
	}
	if c, ok := m[api.ContentKey]; ok {
		n.loadContent(c)
		for _, k := range sortedKeys(m) {
			if k != api.AttributesKey && k != api.ContentKey {
				t.reject(malformed("%s: child %q ignored next to %s", n.tag, k, api.ContentKey))
			}
		}
		return nil
	}
	for _, k := range sortedKeys(m) {
		if k == api.AttributesKey {
			continue
		}
		if items, ok := m[k].([]any); ok {
			n.markSequence(k)
			for _, item := range items {
				n.loadChild(k, item)
			}
			continue
		}
		n.loadChild(k, m[k])
	}
	return nil
}

func (n *Node) loadChild(tag string, fragment any) {
	t := n.tree
	child, err := t.NewNodeFor(n.modelType, tag)
	if err != nil {
		t.reject(err)
		return
	}
	if err := child.ApplyDefinition(fragment); err != nil {
		child.destroy()
		t.reject(err)
		return
	}
	if err := n.AppendChild(child); err != nil {
		child.destroy()
		t.reject(err)
	}
}

func (n *Node) loadContent(v any) {
	if n.content == nil {
		n.content = NewProperty(api.PropertySpec{Name: api.ContentKey})
	}
	n.content.load(v)
}
