package model

import (
	"fmt"
	"maps"
	"slices"

	"github.com/agentic-research/viewdef/api"
)

// Property is a named, typed value owned by a Node.
// An unset property takes its Default as effective value.
type Property struct {
	Name     string
	Type     string
	Default  any
	Required bool
	// Reconfigure maps a value (in textual form) to a replacement slot list.
	Reconfigure map[string][]api.Slot

	value any
	set   bool
}

// NewProperty builds a property from its declaration.
func NewProperty(spec api.PropertySpec) *Property {
	p := &Property{
		Name:     spec.Name,
		Type:     spec.Type,
		Default:  spec.Default,
		Required: spec.Required,
	}
	if len(spec.Reconfigure) > 0 {
		p.Reconfigure = make(map[string][]api.Slot, len(spec.Reconfigure))
		for k, slots := range spec.Reconfigure {
			p.Reconfigure[k] = slices.Clone(slots)
		}
	}
	return p
}

// Value returns the explicitly stored value, nil when unset.
func (p *Property) Value() any { return p.value }

// IsSet reports whether an explicit value is stored.
func (p *Property) IsSet() bool { return p.set }

// Effective returns the stored value, or the default when unset.
func (p *Property) Effective() any {
	if p.set {
		return p.value
	}
	return p.Default
}

// Validate returns the type-rule failures for a candidate value.
func (p *Property) Validate(v any) []string {
	return checkType(p.Type, v)
}

// Errors returns the failures of the current effective value.
func (p *Property) Errors() []string {
	v := p.Effective()
	if isEmpty(v) {
		if p.Required {
			return []string{"required value is missing"}
		}
		return nil
	}
	return p.Validate(v)
}

// IsValid reports whether Errors is empty.
func (p *Property) IsValid() bool { return len(p.Errors()) == 0 }

// ReconfigureFor returns the slot list declared for value v.
func (p *Property) ReconfigureFor(v any) ([]api.Slot, bool) {
	if p.Reconfigure == nil || v == nil {
		return nil, false
	}
	slots, ok := p.Reconfigure[fmt.Sprint(v)]
	if !ok {
		return nil, false
	}
	return slices.Clone(slots), true
}

// Spec returns the declaration of the property.
func (p *Property) Spec() api.PropertySpec {
	return api.PropertySpec{
		Name:        p.Name,
		Type:        p.Type,
		Default:     p.Default,
		Required:    p.Required,
		Reconfigure: maps.Clone(p.Reconfigure),
	}
}

// assign stores v. An empty value with no default unsets the property, and a
// value equal to the default leaves a never-set property unset, so only
// deliberate overrides are reported as explicit.
func (p *Property) assign(v any) {
	switch {
	case isEmpty(v) && isEmpty(p.Default):
		p.value, p.set = nil, false
	case !p.set && !isEmpty(p.Default) && SameValue(v, p.Default):
		p.value, p.set = nil, false
	default:
		p.value, p.set = v, true
	}
}

// load stores a value read from a definition verbatim.
func (p *Property) load(v any) {
	p.value, p.set = v, v != nil
}
