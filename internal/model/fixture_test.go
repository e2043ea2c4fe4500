package model

import (
	"testing"

	"github.com/agentic-research/viewdef/api"
	"github.com/stretchr/testify/require"
)

type templateMap map[string]api.TemplateSpec

func (m templateMap) Template(name string) (api.TemplateSpec, bool) {
	t, ok := m[name]
	return t, ok
}

func testRegistry() *Registry {
	r := NewRegistry("layout")
	r.Register("", api.VariantSpec{
		Tag: "fields",
		Slots: []api.Slot{
			{Tag: "field", Required: true, HasMany: true, UniqueBy: "name"},
			{Tag: "button", HasMany: true},
		},
	})
	r.Register("", api.VariantSpec{
		Tag: "field",
		Properties: []api.PropertySpec{
			{Name: "name", Type: TypeToken, Required: true},
			{Name: "label", Type: TypeString},
			{Name: "type", Type: "enum:input|checkbox|combo", Default: "input", Reconfigure: map[string][]api.Slot{
				"combo": {{Tag: "option", Required: true, HasMany: true}},
			}},
			{Name: "visible", Type: TypeBoolean, Default: "true"},
		},
	})
	r.Register("", api.VariantSpec{
		Tag:        "option",
		Properties: []api.PropertySpec{{Name: "value", Type: TypeString}},
		Content:    &api.PropertySpec{Type: TypeString},
	})
	r.Register("", api.VariantSpec{
		Tag:     "title",
		Content: &api.PropertySpec{Type: TypeString, Required: true},
	})
	r.Register("", api.VariantSpec{
		Tag:        "button",
		Properties: []api.PropertySpec{{Name: "label"}, {Name: "url", Type: TypeURL}},
	})
	r.Register(WidgetScope, api.VariantSpec{
		Tag:        "description",
		Properties: []api.PropertySpec{{Name: "url", Type: TypeURL}},
		Content:    &api.PropertySpec{},
	})
	return r
}

func testTemplates() templateMap {
	return templateMap{
		"edit": {Name: "edit", Type: "edit", Structure: []api.Slot{
			{Tag: "title", Required: true},
			{Tag: "fields", Required: true},
			{Tag: "description"},
		}},
		"list": {Name: "list", Type: "list", Structure: []api.Slot{
			{Tag: "title"},
			{Tag: "field", HasMany: true, UniqueBy: "name"},
		}},
	}
}

func newTestTree(opts ...Option) *Tree {
	return NewTree(append([]Option{WithResolver(testRegistry()), WithTemplates(testTemplates())}, opts...)...)
}

func loadTest(t *testing.T, def map[string]any, opts ...Option) *Root {
	t.Helper()
	r, err := newTestTree(opts...).NewRoot(def, "")
	require.NoError(t, err)
	return r
}

func listDoc(children map[string]any) map[string]any {
	def := map[string]any{api.AttributesKey: map[string]any{"type": "list"}}
	for k, v := range children {
		def[k] = v
	}
	return def
}

// assertLinks checks parent, sibling and child-list consistency of n's subtree.
func assertLinks(t *testing.T, n *Node) {
	t.Helper()
	kids := n.Children()
	if len(kids) == 0 {
		require.Nil(t, n.FirstChild())
		require.Nil(t, n.LastChild())
		return
	}
	require.Same(t, kids[0], n.FirstChild())
	require.Same(t, kids[len(kids)-1], n.LastChild())
	for i, c := range kids {
		require.Same(t, n, c.Parent())
		if i > 0 {
			require.Same(t, kids[i-1], c.PreviousSibling())
		} else {
			require.Nil(t, c.PreviousSibling())
		}
		if i < len(kids)-1 {
			require.Same(t, kids[i+1], c.NextSibling())
		} else {
			require.Nil(t, c.NextSibling())
		}
		assertLinks(t, c)
	}
}
