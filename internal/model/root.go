package model

import (
	"github.com/agentic-research/viewdef/api"
)

const (
	// RootID is the id and tag of every document root.
	RootID = "root"

	rootTypeProperty = "type"
)

// Root is the entry point of a document. Its slots come from the structure
// template of the document type, and its model type is the value of its
// "type" property. Setting "type" to another document type installs that
// type's template and destroys the children, like a reconfigure.
type Root struct {
	*Node
}

// Load builds a document tree from a definition object.
func Load(def any, opts ...Option) (*Root, error) {
	return NewTree(opts...).NewRoot(def, "")
}

// NewRoot builds the root of t from a definition object. The structure
// template is looked up by templateName, or by the document type when the
// name is empty. Children are loaded after the template slots are installed.
func (t *Tree) NewRoot(def any, templateName string) (*Root, error) {
	var m map[string]any
	switch d := def.(type) {
	case nil:
	case map[string]any:
		m = d
	default:
		return nil, malformed("root: definition must be a map, got %T", def)
	}

	n := &Node{
		tree:      t,
		id:        RootID,
		tag:       RootID,
		isRoot:    true,
		propIndex: make(map[string]int, 1),
	}
	n.addProperty(api.PropertySpec{Name: rootTypeProperty, Type: TypeView, Required: true})
	t.register(n)
	r := &Root{Node: n}

	t.Suspend()
	defer t.Resume()

	if raw, ok := m[api.AttributesKey]; ok && raw != nil {
		attrs, ok := raw.(map[string]any)
		if !ok {
			n.destroy()
			return nil, malformed("root: %s must be a map, got %T", api.AttributesKey, raw)
		}
		n.loadProperties(attrs)
	}
	if err := r.installTemplate(templateName); err != nil {
		n.destroy()
		return nil, err
	}
	if err := n.ApplyDefinition(m); err != nil {
		n.destroy()
		return nil, err
	}
	t.log.Debug().Str("type", n.modelType).Str("template", n.templateName()).Int("nodes", t.Len()).Msg("document loaded")
	return r, nil
}

func (r *Root) installTemplate(name string) error {
	t := r.tree
	explicit := name != ""
	if !explicit {
		name = r.modelType
	}
	if t.templates == nil || name == "" {
		return nil
	}
	tpl, ok := t.templates.Template(name)
	if !ok {
		if explicit {
			return malformed("root: unknown template %q", name)
		}
		t.log.Warn().Str("type", name).Msg("no structure template for document type")
		return nil
	}
	slots, err := checkSlots(RootID, tpl.Structure)
	if err != nil {
		return err
	}
	r.template = &tpl
	r.slots = slots
	return nil
}

// retemplate follows a change of the document type. A type with its own
// template replaces the root's slots and children; otherwise the current
// template stays.
func (n *Node) retemplate() {
	t := n.tree
	if t.templates == nil {
		return
	}
	tpl, ok := t.templates.Template(n.modelType)
	if !ok {
		t.log.Warn().Str("type", n.modelType).Msg("no structure template for document type, keeping slots")
		return
	}
	if n.template != nil && n.template.Name == tpl.Name {
		return
	}
	if n.reconfigure(tpl.Structure) {
		n.template = &tpl
	}
}

func (n *Node) templateName() string {
	if n.template == nil {
		return ""
	}
	return n.template.Name
}

// NewDocument returns an empty document of docType whose required template
// slots are filled with empty nodes, recursively.
func NewDocument(docType string, opts ...Option) (*Root, error) {
	if docType == "" {
		return nil, &PropertyError{Name: rootTypeProperty, Reasons: []string{"required value is missing"}}
	}
	if reasons := checkType(TypeView, docType); len(reasons) > 0 {
		return nil, &PropertyError{Name: rootTypeProperty, Value: docType, Reasons: reasons}
	}
	t := NewTree(opts...)
	r, err := t.NewRoot(map[string]any{
		api.AttributesKey: map[string]any{rootTypeProperty: docType},
	}, "")
	if err != nil {
		return nil, err
	}
	t.Suspend()
	defer t.Resume()
	if err := r.scaffold(r.Node); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Root) scaffold(n *Node) error {
	for _, s := range n.slots {
		if !s.Required || n.HasChildWithTag(s.Tag) || tagOnPath(n, s.Tag) {
			continue
		}
		child, err := r.tree.NewNodeFor(r.modelType, s.Tag)
		if err != nil {
			return err
		}
		if err := n.AppendChild(child); err != nil {
			child.destroy()
			return err
		}
		if err := r.scaffold(child); err != nil {
			return err
		}
	}
	return nil
}

// tagOnPath reports whether tag already occurs between n and the root, which
// stops scaffolding of self-requiring variants.
func tagOnPath(n *Node, tag string) bool {
	found := false
	n.Bubble(func(a *Node) bool {
		found = a.tag == tag
		return !found
	})
	return found
}

// Template returns the structure template in use.
func (r *Root) Template() (api.TemplateSpec, bool) {
	if r.template == nil {
		return api.TemplateSpec{}, false
	}
	return *r.template, true
}

// ModelNode finds a descendant by exact id.
func (r *Root) ModelNode(id string) *Node {
	if id == RootID {
		return r.Node
	}
	return r.FindChildByID(id, true, false)
}

// ImmediateModelNode finds a direct child by id or by tag, where a tag
// matches any "tag-N" id.
func (r *Root) ImmediateModelNode(id string) *Node {
	return r.FindChildByID(id, false, true)
}
