package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func field(name string) map[string]any {
	return map[string]any{"attributes": map[string]any{"name": name}}
}

func TestAdmission_UniqueNameRejectsSecondEmail(t *testing.T) {
	root := loadTest(t, listDoc(nil))

	_, err := root.CreateNode("field", field("email"))
	require.NoError(t, err)

	dup, err := root.CreateNode("field", field("email"))
	assert.Nil(t, dup)
	var ae *AdmissionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, NotUnique, ae.Kind)
	assert.Equal(t, "field property name should be unique (email)", ae.Error())

	assert.Len(t, root.FilterChildren("field"), 1)
	assert.Len(t, root.Tree().NodesByTag("field"), 1, "rejected node is released")
}

func TestAdmission_EmptyUniqueValuesNeverClash(t *testing.T) {
	root := loadTest(t, listDoc(nil))
	_, err := root.CreateNode("field", nil)
	require.NoError(t, err)
	_, err = root.CreateNode("field", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, root.ChildCount())
}

func TestAdmission_OnlyOneAndNotPermitted(t *testing.T) {
	root := loadTest(t, listDoc(nil))

	_, err := root.CreateNode("title", "Customers")
	require.NoError(t, err)

	_, err = root.CreateNode("title", "Again")
	var ae *AdmissionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, OnlyOne, ae.Kind)
	assert.Equal(t, "root can contain only one title child node", ae.Error())

	_, err = root.CreateNode("button", nil)
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, NotPermitted, ae.Kind)
	assert.Equal(t, "root cannot contain button child node", ae.Error())

	for _, slot := range root.Slots() {
		if !slot.HasMany {
			assert.LessOrEqual(t, len(root.FilterChildren(slot.Tag)), 1)
		}
	}
}

func TestAdmission_MoveIsReadmitted(t *testing.T) {
	root := loadTest(t, map[string]any{
		"attributes": map[string]any{"type": "edit"},
		"fields": map[string]any{"field": field("a")},
	})
	fields := root.ImmediateModelNode("fields")
	f := fields.FirstChild()

	// the root of an edit document has no field slot
	err := root.AppendChild(f)
	var ae *AdmissionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, NotPermitted, ae.Kind)
	assert.Same(t, fields, f.Parent(), "failed move leaves the node in place")
}

func TestAdmission_SetPropertyKeepsUniqueness(t *testing.T) {
	root := loadTest(t, listDoc(nil))
	a, err := root.CreateNode("field", field("a"))
	require.NoError(t, err)
	b, err := root.CreateNode("field", field("b"))
	require.NoError(t, err)

	_, err = b.SetProperty("name", "a")
	var ae *AdmissionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, NotUnique, ae.Kind)
	assert.Equal(t, "b", b.PropertyValue("name"))

	_, err = a.SetProperty("name", "a")
	assert.NoError(t, err, "a node does not clash with itself")
}

func TestAdmission_LoadRecordsRejections(t *testing.T) {
	root := loadTest(t, listDoc(map[string]any{
		"field": []any{field("x"), field("x"), field("y")},
		"bogus": map[string]any{},
	}))

	assert.Len(t, root.FilterChildren("field"), 2)
	rejected := root.Tree().Rejected()
	require.Len(t, rejected, 2)
	for _, err := range rejected {
		var ae *AdmissionError
		assert.ErrorAs(t, err, &ae)
	}
	assert.Empty(t, root.Tree().Rejected(), "Rejected drains")
}
