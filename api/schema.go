package api

// Reserved keys of a definition entry.
const (
	// AttributesKey holds a node's property values.
	AttributesKey = "attributes"
	// ContentKey holds a node's scalar content when the entry is a map.
	ContentKey = "_content"
)

// Definition is the nested key/value form of a view document.
// Each key is a child tag; a repeated tag maps to a []any of entries.
type Definition = map[string]any

// Slot declares a child tag a node may hold.
type Slot struct {
	// Tag of the permitted child.
	Tag string `json:"tag" yaml:"tag"`
	// Required marks the slot as mandatory for validation.
	Required bool `json:"required,omitempty" yaml:"required,omitempty"`
	// HasMany permits more than one child with this tag.
	HasMany bool `json:"hasMany,omitempty" yaml:"hasMany,omitempty"`
	// UniqueBy names a property whose value must differ between siblings of this tag.
	UniqueBy string `json:"unique,omitempty" yaml:"unique,omitempty"`
}

// PropertySpec describes one typed attribute of a node.
type PropertySpec struct {
	Name     string `json:"name" yaml:"name"`
	Type     string `json:"type,omitempty" yaml:"type,omitempty"`
	Default  any    `json:"default,omitempty" yaml:"default,omitempty"`
	Required bool   `json:"required,omitempty" yaml:"required,omitempty"`
	// Reconfigure replaces the owner's slots when the property takes one of the keyed values.
	Reconfigure map[string][]Slot `json:"reconfigure,omitempty" yaml:"reconfigure,omitempty"`
}

// VariantSpec is the declarative shape of a node for one tag.
type VariantSpec struct {
	Tag        string         `json:"tag" yaml:"tag"`
	Properties []PropertySpec `json:"properties,omitempty" yaml:"properties,omitempty"`
	// Content is the scalar value property; nil means the node holds no content.
	Content *PropertySpec `json:"content,omitempty" yaml:"content,omitempty"`
	Slots   []Slot        `json:"slots,omitempty" yaml:"slots,omitempty"`
}

// TemplateSpec is the structure template applied to a Root for one document type.
type TemplateSpec struct {
	Name string `json:"name" yaml:"name"`
	// Type is the document (model) type the template serves.
	Type string `json:"type" yaml:"type"`
	// Structure lists the top-level slots of the document.
	Structure []Slot `json:"structure" yaml:"structure"`
}

// Catalog bundles variants and templates.
type Catalog struct {
	Version string `json:"version" yaml:"version"`
	// Widget variants apply to every model type except the common-only ones.
	Widget []VariantSpec `json:"widget,omitempty" yaml:"widget,omitempty"`
	// Common variants apply to all model types.
	Common []VariantSpec `json:"common,omitempty" yaml:"common,omitempty"`
	// Types holds variants that apply to one model type only and take
	// precedence over the widget and common ones.
	Types map[string][]VariantSpec `json:"types,omitempty" yaml:"types,omitempty"`
	// CommonOnly lists model types that skip the widget namespace.
	CommonOnly []string       `json:"commonOnly,omitempty" yaml:"commonOnly,omitempty"`
	Templates  []TemplateSpec `json:"templates,omitempty" yaml:"templates,omitempty"`
}
