package definition

import (
	"testing"

	"github.com/agentic-research/viewdef/api"
	"github.com/agentic-research/viewdef/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type templates map[string]api.TemplateSpec

func (m templates) Template(name string) (api.TemplateSpec, bool) {
	t, ok := m[name]
	return t, ok
}

func testOptions() []model.Option {
	r := model.NewRegistry()
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
			{Name: "name", Type: model.TypeToken},
			{Name: "label"},
			{Name: "type", Type: "enum:input|combo", Default: "input", Reconfigure: map[string][]api.Slot{
				"combo": {{Tag: "option", HasMany: true}},
			}},
			{Name: "visible", Type: model.TypeBoolean, Default: "true"},
		},
	})
	r.Register("", api.VariantSpec{
		Tag:        "option",
		Properties: []api.PropertySpec{{Name: "value"}},
		Content:    &api.PropertySpec{},
	})
	r.Register("", api.VariantSpec{Tag: "title", Content: &api.PropertySpec{Type: model.TypeString}})
	r.Register("", api.VariantSpec{Tag: "button", Properties: []api.PropertySpec{{Name: "label"}}})
	r.Register("", api.VariantSpec{
		Tag:        "description",
		Properties: []api.PropertySpec{{Name: "url", Type: model.TypeURL}},
		Content:    &api.PropertySpec{},
	})
	tpl := templates{
		"edit": {Name: "edit", Structure: []api.Slot{{Tag: "title"}, {Tag: "fields", Required: true}, {Tag: "description"}}},
		"list": {Name: "list", Structure: []api.Slot{{Tag: "title"}, {Tag: "field", HasMany: true, UniqueBy: "name"}}},
	}
	return []model.Option{model.WithResolver(r), model.WithTemplates(tpl)}
}

func attrs(kv ...string) map[string]any {
	m := map[string]any{}
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i]] = kv[i+1]
	}
	return map[string]any{api.AttributesKey: m}
}

func listDef(children map[string]any) api.Definition {
	def := api.Definition{api.AttributesKey: map[string]any{"type": "list"}}
	for k, v := range children {
		def[k] = v
	}
	return def
}

func build(t *testing.T, def api.Definition) (*model.Root, *Mapper) {
	t.Helper()
	root, m, err := Build(def, testOptions()...)
	require.NoError(t, err)
	require.Empty(t, root.Tree().Rejected())
	return root, m
}

func TestMapper_SecondChildPromotesToSequence(t *testing.T) {
	root, m := build(t, listDef(map[string]any{"field": attrs("name", "x")}))

	_, err := root.CreateNode("field", attrs("name", "y"))
	require.NoError(t, err)

	assert.Equal(t, []any{attrs("name", "x"), attrs("name", "y")}, m.Definition()["field"])
	assert.Equal(t, m.Definition(), SerializeRoot(root))
	assert.Empty(t, m.Errors())
}

func TestMapper_DefaultValueAddsNoAttribute(t *testing.T) {
	root, m := build(t, listDef(map[string]any{"field": attrs("name", "x")}))
	f := root.FirstChild()

	_, err := f.SetProperty("visible", "true")
	require.NoError(t, err)
	assert.Equal(t, attrs("name", "x"), m.Definition()["field"])

	_, err = f.SetProperty("visible", false)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"attributes": map[string]any{"name": "x", "visible": false},
	}, m.Definition()["field"])
}

func TestMapper_RemovingSoleChildDeletesKey(t *testing.T) {
	root, m := build(t, listDef(map[string]any{"field": attrs("name", "x")}))

	require.NoError(t, root.RemoveChild(root.FirstChild(), true))
	_, ok := m.Definition()["field"]
	assert.False(t, ok)
	assert.Empty(t, m.Errors())
}

func TestMapper_RemovalKeepsSequenceUntilEmpty(t *testing.T) {
	root, m := build(t, listDef(map[string]any{
		"field": []any{attrs("name", "a"), attrs("name", "b")},
	}))

	require.NoError(t, root.FirstChild().Destroy())
	assert.Equal(t, []any{attrs("name", "b")}, m.Definition()["field"])
	assert.Equal(t, m.Definition(), SerializeRoot(root))

	require.NoError(t, root.FirstChild().Destroy())
	assert.NotContains(t, m.Definition(), "field")
	assert.Equal(t, m.Definition(), SerializeRoot(root))
}

func TestMapper_RoundTrip(t *testing.T) {
	def := api.Definition{
		"attributes": map[string]any{"type": "edit"},
		"title":      "Customer",
		"description": map[string]any{
			"attributes": map[string]any{"url": "https://example.com/help"},
			"_content":   "Fill in the form",
		},
		"fields": map[string]any{
			"field": []any{
				attrs("name", "a", "label", "A"),
				attrs("name", "b"),
			},
			"button": attrs("label", "Save"),
		},
	}
	root, m := build(t, def)

	assert.Equal(t, def, SerializeRoot(root))
	assert.Equal(t, def, m.Definition())
	assert.Nil(t, root.Validate())
}

func TestMapper_RoundTripShapes(t *testing.T) {
	tests := []struct {
		name string
		def  api.Definition
		// serialized is what SerializeRoot gives; the mapper keeps def as is.
		serialized api.Definition
	}{
		{
			name:       "one-element sequence stays a sequence",
			def:        listDef(map[string]any{"field": []any{attrs("name", "x")}}),
			serialized: listDef(map[string]any{"field": []any{attrs("name", "x")}}),
		},
		{
			name: "nested one-element sequence",
			def: api.Definition{
				"attributes": map[string]any{"type": "edit"},
				"fields":     map[string]any{"field": []any{attrs("name", "x")}},
			},
			serialized: api.Definition{
				"attributes": map[string]any{"type": "edit"},
				"fields":     map[string]any{"field": []any{attrs("name", "x")}},
			},
		},
		{
			name:       "single entry stays single",
			def:        listDef(map[string]any{"field": attrs("name", "x")}),
			serialized: listDef(map[string]any{"field": attrs("name", "x")}),
		},
		{
			name:       "null entry serializes as empty map",
			def:        listDef(map[string]any{"title": nil}),
			serialized: listDef(map[string]any{"title": map[string]any{}}),
		},
		{
			name:       "empty attributes map is dropped by the serializer",
			def:        listDef(map[string]any{"field": map[string]any{"attributes": map[string]any{}}}),
			serialized: listDef(map[string]any{"field": map[string]any{}}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, m := build(t, tt.def)
			assert.Equal(t, tt.def, m.Definition())
			assert.Equal(t, tt.serialized, SerializeRoot(root))
		})
	}
}

func TestMapper_OneElementSequenceEdits(t *testing.T) {
	root, m := build(t, listDef(map[string]any{"field": []any{attrs("name", "x")}}))

	_, err := root.FirstChild().SetProperty("label", "X")
	require.NoError(t, err)
	assert.Equal(t, []any{attrs("name", "x", "label", "X")}, m.Definition()["field"])

	_, err = root.CreateNode("field", attrs("name", "y"))
	require.NoError(t, err)
	require.NoError(t, root.FirstChild().Destroy())
	assert.Equal(t, []any{attrs("name", "y")}, m.Definition()["field"])

	require.NoError(t, root.FirstChild().Destroy())
	assert.NotContains(t, m.Definition(), "field")
	_, err = root.CreateNode("field", attrs("name", "z"))
	require.NoError(t, err)
	assert.Equal(t, []any{attrs("name", "z")}, m.Definition()["field"])
	assert.Equal(t, m.Definition(), SerializeRoot(root))
	assert.Empty(t, m.Errors())
}

func TestMapper_NullAndEmptyEntriesTakeWrites(t *testing.T) {
	root, m := build(t, listDef(map[string]any{
		"title": nil,
		"field": map[string]any{"attributes": map[string]any{}},
	}))

	require.NoError(t, root.ImmediateModelNode("title").SetContent("Hi"))
	_, err := root.ImmediateModelNode("field").SetProperty("name", "x")
	require.NoError(t, err)

	assert.Equal(t, listDef(map[string]any{"title": "Hi", "field": attrs("name", "x")}), m.Definition())
	assert.Empty(t, m.Errors())
}

func TestMapper_InsertEntityBefore(t *testing.T) {
	load := func(t *testing.T) (*model.Root, *Mapper, *model.Node) {
		root, m := build(t, api.Definition{
			"attributes": map[string]any{"type": "edit"},
			"fields": map[string]any{
				"button": attrs("label", "Save"),
				"field":  []any{attrs("name", "a"), attrs("name", "b")},
			},
		})
		return root, m, root.ImmediateModelNode("fields")
	}
	newField := func(t *testing.T, root *model.Root) *model.Node {
		n, err := root.Tree().NewNodeFor("edit", "field")
		require.NoError(t, err)
		_, err = n.SetProperty("name", "new")
		require.NoError(t, err)
		return n
	}
	fieldsOf := func(m *Mapper) any {
		return m.Definition()["fields"].(map[string]any)["field"]
	}

	t.Run("before a ref of another tag", func(t *testing.T) {
		root, m, fields := load(t)
		button := fields.Item(0)
		require.Equal(t, "button", button.Tag())

		require.NoError(t, m.InsertEntityBefore(fields, newField(t, root), button))
		assert.Equal(t, []any{attrs("name", "new"), attrs("name", "a"), attrs("name", "b")}, fieldsOf(m))
	})

	t.Run("before a same-tag ref", func(t *testing.T) {
		root, m, fields := load(t)
		require.NoError(t, m.InsertEntityBefore(fields, newField(t, root), fields.Item(2)))
		assert.Equal(t, []any{attrs("name", "a"), attrs("name", "new"), attrs("name", "b")}, fieldsOf(m))
	})

	t.Run("nil ref appends", func(t *testing.T) {
		root, m, fields := load(t)
		require.NoError(t, m.InsertEntityBefore(fields, newField(t, root), nil))
		assert.Equal(t, []any{attrs("name", "a"), attrs("name", "b"), attrs("name", "new")}, fieldsOf(m))
	})

	t.Run("ref of another parent", func(t *testing.T) {
		root, m, fields := load(t)
		err := m.InsertEntityBefore(fields, newField(t, root), fields)
		assert.ErrorIs(t, err, model.ErrNotChild)
	})
}

func TestMapper_ReplaceChildFollowsTree(t *testing.T) {
	root, m := build(t, listDef(map[string]any{
		"field": []any{attrs("name", "a"), attrs("name", "b")},
	}))
	repl, err := root.Tree().NewNodeFor("list", "field")
	require.NoError(t, err)
	_, err = repl.SetProperty("name", "z")
	require.NoError(t, err)
	button, err := root.Tree().NewNodeFor("list", "button")
	require.NoError(t, err)

	require.Error(t, root.ReplaceChild(button, root.FirstChild()))
	assert.Equal(t, []any{attrs("name", "a"), attrs("name", "b")}, m.Definition()["field"])

	require.NoError(t, root.ReplaceChild(repl, root.FirstChild()))
	assert.Equal(t, []any{attrs("name", "z"), attrs("name", "b")}, m.Definition()["field"])
	assert.Equal(t, SerializeRoot(root), m.Definition())
	assert.Empty(t, m.Errors())
}

func TestMapper_DocumentTypeChange(t *testing.T) {
	root, m := build(t, api.Definition{
		"attributes": map[string]any{"type": "edit"},
		"title":      "Customer",
		"fields":     map[string]any{"field": attrs("name", "a")},
	})

	_, err := root.SetProperty("type", "list")
	require.NoError(t, err)
	assert.Equal(t, listDef(nil), m.Definition())
	assert.Empty(t, m.Errors())
}

func TestMapper_PropertyChangeInSequence(t *testing.T) {
	root, m := build(t, api.Definition{
		"attributes": map[string]any{"type": "edit"},
		"fields": map[string]any{"field": []any{
			attrs("name", "a"), attrs("name", "b"),
		}},
	})
	fields := root.ImmediateModelNode("fields")
	a, b := fields.Item(0), fields.Item(1)

	_, err := b.SetProperty("label", "B")
	require.NoError(t, err)
	_, err = a.SetProperty("name", "z")
	require.NoError(t, err)
	_, err = a.SetProperty("label", "")
	require.NoError(t, err)

	got := m.Definition()["fields"].(map[string]any)["field"]
	assert.Equal(t, []any{attrs("name", "z"), attrs("name", "b", "label", "B")}, got)
	assert.Empty(t, m.Errors())
}

func TestMapper_IdenticalSiblingsUseSiblingPosition(t *testing.T) {
	root, m := build(t, listDef(map[string]any{"field": []any{map[string]any{}, map[string]any{}}}))

	_, err := root.Item(1).SetProperty("label", "second")
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{}, attrs("label", "second")}, m.Definition()["field"])
}

func TestMapper_ReorderFollowsTree(t *testing.T) {
	root, m := build(t, listDef(map[string]any{
		"field": []any{attrs("name", "a"), attrs("name", "b"), attrs("name", "c")},
	}))

	require.NoError(t, root.InsertBefore(root.Item(2), root.Item(0)))
	assert.Equal(t, []any{attrs("name", "c"), attrs("name", "a"), attrs("name", "b")}, m.Definition()["field"])
	assert.Equal(t, SerializeRoot(root), m.Definition())
}

func TestMapper_ContentChange(t *testing.T) {
	root, m := build(t, listDef(map[string]any{"title": "Old"}))
	title := root.ImmediateModelNode("title")

	require.NoError(t, title.SetContent("New"))
	assert.Equal(t, "New", m.Definition()["title"])

	require.NoError(t, title.SetContent(""))
	assert.Equal(t, map[string]any{}, m.Definition()["title"])
}

func TestMapper_ReconfigureDropsChildEntries(t *testing.T) {
	root, m := build(t, listDef(map[string]any{"field": attrs("name", "a")}))
	f := root.FirstChild()

	_, err := f.SetProperty("type", "combo")
	require.NoError(t, err)
	_, err = f.CreateNode("option", "One")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"attributes": map[string]any{"name": "a", "type": "combo"},
		"option":     "One",
	}, m.Definition()["field"])

	_, err = f.SetProperty("type", "combo")
	require.NoError(t, err)
	assert.Equal(t, attrs("name", "a", "type", "combo"), m.Definition()["field"])
	assert.Empty(t, m.Errors())
}

func TestMapper_LocateFirstWriteAndFailures(t *testing.T) {
	root, err := model.Load(listDef(map[string]any{
		"field": []any{attrs("name", "a"), attrs("label", "L")},
	}), testOptions()...)
	require.NoError(t, err)
	second := root.Item(1)

	t.Run("first write", func(t *testing.T) {
		m := NewMapper(root, listDef(nil))
		loc, err := m.Locate(second)
		require.NoError(t, err)
		assert.False(t, loc.Exists)

		require.NoError(t, m.SetAttribute(second, "label", "L"))
		assert.Equal(t, attrs("label", "L"), m.Definition()["field"])
	})

	t.Run("not found", func(t *testing.T) {
		m := NewMapper(root, listDef(map[string]any{"field": attrs("name", "zz")}))
		_, err := m.Locate(root.Item(0))
		var re *ResolveError
		require.ErrorAs(t, err, &re)
		assert.ErrorIs(t, err, ErrEntityNotFound)
		assert.Equal(t, root.Item(0).PathString(), re.Path)
	})

	t.Run("ambiguous", func(t *testing.T) {
		data := listDef(map[string]any{"field": []any{
			attrs("label", "L"), attrs("label", "M"), attrs("label", "L"),
		}})
		loc, err := NewMapper(root, data).Locate(second)
		require.NoError(t, err)
		assert.Equal(t, 0, loc.Index, "first match wins")

		_, err = NewMapper(root, data, Strict()).Locate(second)
		assert.ErrorIs(t, err, ErrAmbiguous)
	})

	t.Run("detached", func(t *testing.T) {
		n, err := root.Tree().NewNodeFor("list", "field")
		require.NoError(t, err)
		_, err = NewMapper(root, nil).Locate(n)
		assert.ErrorIs(t, err, ErrDetached)
	})
}

func TestMapper_RecordsSyncErrors(t *testing.T) {
	root, err := model.Load(listDef(map[string]any{"field": attrs("name", "a")}), testOptions()...)
	require.NoError(t, err)
	m := NewMapper(root, listDef(nil))
	m.Attach()
	defer m.Detach()

	require.NoError(t, root.RemoveChild(root.FirstChild(), true))
	require.Len(t, m.Errors(), 1)
	assert.ErrorIs(t, m.Errors()[0], ErrEntityNotFound)

	m.Resync()
	assert.Empty(t, m.Errors())
	assert.Equal(t, SerializeRoot(root), m.Definition())
}

func TestMapper_EntityIsACopy(t *testing.T) {
	root, m := build(t, listDef(map[string]any{"field": attrs("name", "a")}))
	e, err := m.Entity(root.FirstChild())
	require.NoError(t, err)
	e.(map[string]any)[api.AttributesKey].(map[string]any)["name"] = "changed"
	assert.Equal(t, attrs("name", "a"), m.Definition()["field"])
}

func TestQuery(t *testing.T) {
	_, m := build(t, api.Definition{
		"attributes": map[string]any{"type": "edit"},
		"fields": map[string]any{"field": []any{
			attrs("name", "a"), attrs("name", "b"),
		}},
	})
	got, err := m.Query("$.fields.field[*].attributes.name")
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, got)

	vals := Values(got)
	assert.Equal(t, map[string]any{"value": "a"}, vals[0])

	_, err = Query(m.Definition(), "$['unterminated")
	assert.Error(t, err)
}
