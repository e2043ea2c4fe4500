package model

import (
	"slices"

	"github.com/agentic-research/viewdef/api"
)

// Resolver supplies the node variant for a tag within a model type.
type Resolver interface {
	Resolve(modelType, tag string) api.VariantSpec
}

// TemplateProvider supplies the structure template of a document type.
type TemplateProvider interface {
	Template(name string) (api.TemplateSpec, bool)
}

// WidgetScope registers a variant for every model type that is not common-only.
const WidgetScope = "*"

type variantKey struct {
	scope string
	tag   string
}

// Registry dispatches (modelType, tag) to a variant. Lookup order is the
// exact model type, the widget scope (unless the model type is common-only),
// the common scope "", then the fallback.
type Registry struct {
	variants   map[variantKey]api.VariantSpec
	commonOnly map[string]bool
	fallback   api.VariantSpec
}

// DefaultVariant is a leaf holding untyped scalar content.
func DefaultVariant() api.VariantSpec {
	return api.VariantSpec{Content: &api.PropertySpec{Name: api.ContentKey}}
}

// NewRegistry returns a registry using DefaultVariant as fallback.
func NewRegistry(commonOnly ...string) *Registry {
	r := &Registry{
		variants:   make(map[variantKey]api.VariantSpec),
		commonOnly: make(map[string]bool, len(commonOnly)),
		fallback:   DefaultVariant(),
	}
	for _, mt := range commonOnly {
		r.commonOnly[mt] = true
	}
	return r
}

// Register binds spec to its tag within scope.
func (r *Registry) Register(scope string, spec api.VariantSpec) {
	r.variants[variantKey{scope: scope, tag: spec.Tag}] = spec
}

// SetFallback replaces the variant used for unknown tags.
func (r *Registry) SetFallback(spec api.VariantSpec) {
	r.fallback = spec
}

// Resolve implements Resolver.
func (r *Registry) Resolve(modelType, tag string) api.VariantSpec {
	scopes := []string{modelType}
	if modelType != "" && !r.commonOnly[modelType] {
		scopes = append(scopes, WidgetScope)
	}
	scopes = append(scopes, "")
	for _, scope := range scopes {
		if v, ok := r.variants[variantKey{scope: scope, tag: tag}]; ok {
			return cloneVariant(v)
		}
	}
	v := cloneVariant(r.fallback)
	v.Tag = tag
	return v
}

// Tags lists the tags registered in scope.
func (r *Registry) Tags(scope string) []string {
	var tags []string
	for k := range r.variants {
		if k.scope == scope {
			tags = append(tags, k.tag)
		}
	}
	slices.Sort(tags)
	return tags
}

func cloneVariant(v api.VariantSpec) api.VariantSpec {
	out := api.VariantSpec{
		Tag:        v.Tag,
		Properties: slices.Clone(v.Properties),
		Slots:      slices.Clone(v.Slots),
	}
	if v.Content != nil {
		c := *v.Content
		out.Content = &c
	}
	return out
}
