package definition

import (
	"github.com/agentic-research/viewdef/api"
	"github.com/agentic-research/viewdef/internal/model"
)

// SerializeNode builds the entry of n without its children.
//
// Explicit attributes go under api.AttributesKey. Used content goes under
// api.ContentKey, or becomes the whole entry when there are no attributes.
// A node with neither serializes to an empty map so children can still be
// attached below it.
func SerializeNode(n *model.Node) any {
	attrs := n.PropertiesHash(false)
	content, hasContent := usedContent(n)
	if len(attrs) == 0 {
		if hasContent {
			return content
		}
		return map[string]any{}
	}
	entry := map[string]any{api.AttributesKey: attrs}
	if hasContent {
		entry[api.ContentKey] = content
	}
	return entry
}

// Serialize builds the entry of n including its subtree. Children of the
// same tag become a sequence in child order, and so does a single child
// whose tag n keeps as a sequence (see model.Node.IsSequence).
func Serialize(n *model.Node) any {
	entry := SerializeNode(n)
	if !n.HasChildNodes() {
		return entry
	}
	m := asMap(entry)
	for _, c := range n.Children() {
		addTo(m, c.Tag(), Serialize(c), -1)
	}
	for _, c := range n.Children() {
		v := m[c.Tag()]
		if _, isSeq := v.([]any); !isSeq && n.IsSequence(c.Tag()) {
			m[c.Tag()] = []any{v}
		}
	}
	return m
}

// SerializeRoot returns the definition object of a whole document.
func SerializeRoot(r *model.Root) api.Definition {
	return asMap(Serialize(r.Node))
}

func usedContent(n *model.Node) (any, bool) {
	if !n.IsContentUsed() || !n.Content().IsSet() {
		return nil, false
	}
	return n.ContentValue(), true
}

// asMap turns an entry into a map entry. Scalars move under api.ContentKey.
func asMap(entry any) map[string]any {
	switch e := entry.(type) {
	case map[string]any:
		return e
	case nil:
		return map[string]any{}
	default:
		return map[string]any{api.ContentKey: e}
	}
}

// compact folds a map holding only content back into the scalar form.
func compact(entry map[string]any) any {
	if len(entry) != 1 {
		return entry
	}
	if c, ok := entry[api.ContentKey]; ok {
		return c
	}
	return entry
}

// addTo stores v under key, promoting a single entry to a sequence when the
// key is already taken. A negative at appends.
func addTo(m map[string]any, key string, v any, at int) {
	existing, ok := m[key]
	if !ok {
		m[key] = v
		return
	}
	seq, isSeq := existing.([]any)
	if !isSeq {
		seq = []any{existing}
	}
	if at < 0 || at > len(seq) {
		at = len(seq)
	}
	seq = append(seq, nil)
	copy(seq[at+1:], seq[at:])
	seq[at] = v
	m[key] = seq
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = deepCopy(x)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = deepCopy(x)
		}
		return out
	default:
		return v
	}
}
