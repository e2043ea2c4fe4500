package definition

import (
	"github.com/agentic-research/viewdef/api"
	"github.com/agentic-research/viewdef/internal/model"
)

// Location is where the entry of a node lives inside the definition.
// The root entry is the definition itself and has a nil Container.
type Location struct {
	Container map[string]any
	Key       string
	// Index is the position inside a sequence, -1 when Key holds a single entry.
	Index int
	// Exists is false when the node has no entry yet. Writing to such a
	// location creates the entry; it is not an error.
	Exists bool
}

// IsRoot reports whether the location is the document root.
func (l Location) IsRoot() bool { return l.Container == nil && l.Exists }

// step is one node on the way down from the root, with its position among
// same-tag siblings.
type step struct {
	node    *model.Node
	ordinal int
}

func ordinal(n *model.Node) int {
	p := n.Parent()
	if p == nil {
		return 0
	}
	return ordinalAt(p, n.Tag(), p.IndexOf(n))
}

// ordinalAt counts the children of p carrying tag before index.
func ordinalAt(p *model.Node, tag string, index int) int {
	c := 0
	for i, s := range p.Children() {
		if i >= index {
			break
		}
		if s.Tag() == tag {
			c++
		}
	}
	return c
}

// locate walks steps from the root entry. override replaces property values
// of the last node while matching, so an entry can be found by the values it
// held before a change. With create, missing or scalar intermediate entries
// are turned into maps.
func (m *Mapper) locate(path string, steps []step, override map[string]any, create bool) (Location, error) {
	container := m.data
	for i, s := range steps {
		last := i == len(steps)-1
		key := s.node.Tag()
		v, ok := container[key]
		if !ok {
			if last {
				return Location{Container: container, Key: key, Index: -1}, nil
			}
			if !create {
				return Location{}, &ResolveError{Path: path, Err: ErrEntityNotFound}
			}
			v = map[string]any{}
			container[key] = v
		}

		var ov map[string]any
		if last {
			ov = override
		}
		loc := Location{Container: container, Key: key, Index: -1, Exists: true}
		if seq, isSeq := v.([]any); isSeq {
			idx, err := m.match(seq, s, ov)
			if err != nil {
				return Location{}, &ResolveError{Path: path, Err: err}
			}
			loc.Index = idx
			v = seq[idx]
		} else if !matches(v, s.node, ov) {
			return Location{}, &ResolveError{Path: path, Err: ErrEntityNotFound}
		}
		if last {
			return loc, nil
		}

		next, isMap := v.(map[string]any)
		if !isMap {
			if !create {
				if i+1 == len(steps)-1 {
					return Location{Key: steps[i+1].node.Tag(), Index: -1}, nil
				}
				return Location{}, &ResolveError{Path: path, Err: ErrEntityNotFound}
			}
			next = asMap(v)
			m.store(loc, next)
		}
		container = next
	}
	return Location{Index: -1, Exists: true}, nil
}

// match picks the entry of seq backing the node of s. Among the entries
// compatible with the node, the one at the node's sibling position wins,
// otherwise the first.
func (m *Mapper) match(seq []any, s step, override map[string]any) (int, error) {
	var candidates []int
	for i, e := range seq {
		if matches(e, s.node, override) {
			candidates = append(candidates, i)
		}
	}
	switch len(candidates) {
	case 0:
		return -1, ErrEntityNotFound
	case 1:
		return candidates[0], nil
	}
	for _, c := range candidates {
		if c == s.ordinal {
			return c, nil
		}
	}
	if m.strict {
		return -1, ErrAmbiguous
	}
	return candidates[0], nil
}

// matches compares an entry with the live values of n. Empty values on
// either side match anything.
func matches(entry any, n *model.Node, override map[string]any) bool {
	props := n.PropertiesHash(false)
	content := n.ContentValue()
	for k, v := range override {
		if k == api.ContentKey {
			content = v
		} else {
			props[k] = v
		}
	}
	switch e := entry.(type) {
	case nil:
		return true
	case map[string]any:
		attrs, _ := e[api.AttributesKey].(map[string]any)
		for k, v := range attrs {
			if !compatible(v, props[k]) {
				return false
			}
		}
		if c, ok := e[api.ContentKey]; ok {
			return compatible(c, content)
		}
		return true
	default:
		return compatible(e, content)
	}
}

func compatible(a, b any) bool {
	return model.IsEmpty(a) || model.IsEmpty(b) || model.SameValue(a, b)
}

// entryAt returns the entry at loc, nil when it does not exist.
func (m *Mapper) entryAt(loc Location) any {
	switch {
	case !loc.Exists:
		return nil
	case loc.Container == nil:
		return m.data
	case loc.Index >= 0:
		return loc.Container[loc.Key].([]any)[loc.Index]
	default:
		return loc.Container[loc.Key]
	}
}

// store replaces the entry at loc.
func (m *Mapper) store(loc Location, v any) {
	switch {
	case loc.Container == nil && loc.Exists:
		m.data = asMap(v)
	case loc.Container == nil:
		// the parent entry is a scalar and cannot hold children
	case loc.Index >= 0:
		loc.Container[loc.Key].([]any)[loc.Index] = v
	default:
		loc.Container[loc.Key] = v
	}
}
