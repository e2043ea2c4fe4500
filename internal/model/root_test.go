package model

import (
	"testing"

	"github.com/agentic-research/viewdef/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoot_LoadUsesTemplateOfType(t *testing.T) {
	root := loadTest(t, map[string]any{
		"attributes": map[string]any{"type": "edit"},
		"title":      "Customer",
	})
	assert.Equal(t, "edit", root.ModelType())
	assert.True(t, root.IsRoot())
	tpl, ok := root.Template()
	require.True(t, ok)
	assert.Equal(t, "edit", tpl.Name)

	title := root.ImmediateModelNode("title")
	require.NotNil(t, title)
	assert.Equal(t, "Customer", title.ContentValue())
	assert.Equal(t, "edit", title.ModelType())
}

func TestRoot_ExplicitTemplateName(t *testing.T) {
	tree := newTestTree()
	root, err := tree.NewRoot(map[string]any{"attributes": map[string]any{"type": "show"}}, "list")
	require.NoError(t, err)
	_, ok := root.Slot("field")
	assert.True(t, ok)

	_, err = newTestTree().NewRoot(nil, "missing")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestRoot_MalformedInput(t *testing.T) {
	_, err := newTestTree().NewRoot([]any{1}, "")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = newTestTree().NewRoot(map[string]any{"attributes": "type=edit"}, "")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = newTestTree().NewNode(testRegistry().Resolve("", ""), "")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestRoot_ContentIgnoresChildren(t *testing.T) {
	root := loadTest(t, listDoc(map[string]any{
		"title": map[string]any{"_content": "Hi", "field": field("x")},
	}))
	title := root.ImmediateModelNode("title")
	require.NotNil(t, title)
	assert.Zero(t, title.ChildCount())
	assert.Equal(t, "Hi", title.ContentValue())
	assert.Len(t, root.Tree().Rejected(), 1)
}

func TestRoot_WidgetScopeSkippedForCommonOnlyTypes(t *testing.T) {
	reg := testRegistry()
	assert.Equal(t, []string{"url"}, propertyNames(reg.Resolve("edit", "description")))
	assert.Empty(t, propertyNames(reg.Resolve("layout", "description")), "layout documents fall back")
	assert.NotNil(t, reg.Resolve("layout", "description").Content)
}

func propertyNames(v api.VariantSpec) []string {
	var out []string
	for _, p := range v.Properties {
		out = append(out, p.Name)
	}
	return out
}

func TestRoot_NewDocumentScaffoldsRequiredSlots(t *testing.T) {
	root, err := NewDocument("edit", WithResolver(testRegistry()), WithTemplates(testTemplates()))
	require.NoError(t, err)

	assert.NotNil(t, root.ImmediateModelNode("title"))
	fields := root.ImmediateModelNode("fields")
	require.NotNil(t, fields)
	require.Equal(t, 1, fields.ChildCount())
	assert.Equal(t, "field", fields.FirstChild().Tag())
	assert.Nil(t, root.ImmediateModelNode("description"), "optional slots stay empty")
	assertLinks(t, root.Node)
}

func TestRoot_NewDocumentRejectsBadType(t *testing.T) {
	_, err := NewDocument("spreadsheet")
	var pe *PropertyError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "type", pe.Name)

	_, err = NewDocument("")
	require.ErrorAs(t, err, &pe)
}

func TestRoot_TypeChangeUpdatesModelType(t *testing.T) {
	root := loadTest(t, listDoc(nil))
	_, err := root.SetProperty("type", "show")
	require.NoError(t, err)
	assert.Equal(t, "show", root.ModelType())
}

func TestRoot_TypeChangeInstallsTemplate(t *testing.T) {
	root := loadTest(t, map[string]any{
		"attributes": map[string]any{"type": "edit"},
		"title":      "Customer",
	})
	var kinds []EventKind
	root.Tree().Sink().Subscribe(func(ev *Event) bool {
		kinds = append(kinds, ev.Kind)
		return true
	})

	_, err := root.SetProperty("type", "list")
	require.NoError(t, err)
	assert.Equal(t, "list", root.ModelType())
	tpl, ok := root.Template()
	require.True(t, ok)
	assert.Equal(t, "list", tpl.Name)
	assert.Zero(t, root.ChildCount())
	_, ok = root.Slot("field")
	assert.True(t, ok)
	_, ok = root.Slot("fields")
	assert.False(t, ok)
	assert.Contains(t, kinds, Reconfigure)

	kinds = nil
	_, err = root.SetProperty("type", "show")
	require.NoError(t, err)
	assert.Equal(t, "show", root.ModelType())
	tpl, _ = root.Template()
	assert.Equal(t, "list", tpl.Name, "a type without template keeps the slots")
	assert.NotContains(t, kinds, Reconfigure)
}
