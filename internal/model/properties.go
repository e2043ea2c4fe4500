package model

import (
	"errors"
	"fmt"
	"slices"

	"github.com/agentic-research/viewdef/api"
)

// Property returns the declared property name, nil when absent.
func (n *Node) Property(name string) *Property {
	i, ok := n.propIndex[name]
	if !ok {
		return nil
	}
	return n.props[i]
}

// Properties returns the properties in declaration order.
func (n *Node) Properties() []*Property { return slices.Clone(n.props) }

// PropertyValue returns the effective value of a property, nil when absent.
func (n *Node) PropertyValue(name string) any {
	if p := n.Property(name); p != nil {
		return p.Effective()
	}
	return nil
}

// PropertiesHash returns the explicitly stored values, or every non-empty
// effective value when withDefaults is set.
func (n *Node) PropertiesHash(withDefaults bool) map[string]any {
	out := make(map[string]any, len(n.props))
	for _, p := range n.props {
		switch {
		case withDefaults && !isEmpty(p.Effective()):
			out[p.Name] = p.Effective()
		case !withDefaults && p.set:
			out[p.Name] = p.value
		}
	}
	return out
}

// PropertiesSource returns the declarations of all properties, including
// content when the node uses it.
func (n *Node) PropertiesSource() map[string]api.PropertySpec {
	out := make(map[string]api.PropertySpec, len(n.props)+1)
	for _, p := range n.props {
		out[p.Name] = p.Spec()
	}
	if n.IsContentUsed() {
		out[api.ContentKey] = n.content.Spec()
	}
	return out
}

// Content returns the content property, nil when the node holds none.
func (n *Node) Content() *Property { return n.content }

// ContentValue returns the explicitly stored content.
func (n *Node) ContentValue() any {
	if n.content == nil {
		return nil
	}
	return n.content.Value()
}

// IsContentUsed reports whether the node serializes its content, which it
// does only when it declares no child slots.
func (n *Node) IsContentUsed() bool {
	return n.content != nil && len(n.slots) == 0
}

// SetProperty validates and stores a property value. Observers may veto the
// change. A value listed in the property's reconfigure table replaces the
// node's slots and destroys its children.
func (n *Node) SetProperty(name string, value any) (*Property, error) {
	if n.destroyed {
		return nil, ErrDestroyed
	}
	p := n.Property(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %s on %s", ErrUnknownProperty, name, n.tag)
	}
	if reasons := p.Validate(value); len(reasons) > 0 {
		return p, &PropertyError{Name: name, Value: value, Reasons: reasons}
	}
	if err := n.checkUnique(name, value); err != nil {
		n.tree.log.Warn().Err(err).Str("node", n.id).Msg("property change rejected")
		return p, err
	}
	if err := n.changeProperty(p, name, value); err != nil {
		return p, err
	}
	if slots, ok := p.ReconfigureFor(value); ok {
		n.reconfigure(slots)
	} else if n.isRoot && name == rootTypeProperty {
		n.retemplate()
	}
	return p, nil
}

// SetContent stores the scalar content of the node.
func (n *Node) SetContent(value any) error {
	if n.destroyed {
		return ErrDestroyed
	}
	if n.content == nil {
		return ErrNoContent
	}
	return n.changeProperty(n.content, api.ContentKey, value)
}

func (n *Node) changeProperty(p *Property, name string, value any) error {
	old := p.Value()
	ev := &Event{Kind: BeforePropertyChange, Node: n, Property: name, Value: value, OldValue: old}
	if !n.tree.fire(ev) {
		return ErrVetoed
	}
	p.assign(value)
	if n.isRoot && name == rootTypeProperty {
		n.modelType = fmt.Sprint(p.Effective())
	}
	n.tree.log.Debug().Str("node", n.id).Str("property", name).Interface("value", value).Msg("property changed")
	n.tree.fire(&Event{Kind: PropertyChange, Node: n, Property: name, Value: value, OldValue: old})
	return nil
}

// ApplyProperties sets declared properties through SetProperty and adds an
// untyped property for every undeclared key. Keys are applied in sorted order.
func (n *Node) ApplyProperties(props map[string]any) error {
	if n.destroyed {
		return ErrDestroyed
	}
	var errs []error
	for _, k := range sortedKeys(props) {
		v := props[k]
		if n.Property(k) != nil {
			if _, err := n.SetProperty(k, v); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		if err := n.checkUnique(k, v); err != nil {
			errs = append(errs, err)
			continue
		}
		n.addProperty(api.PropertySpec{Name: k})
		if err := n.changeProperty(n.Property(k), k, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AddProperty declares an additional property.
func (n *Node) AddProperty(spec api.PropertySpec) error {
	if spec.Name == "" {
		return malformed("%s: property without name", n.tag)
	}
	if n.Property(spec.Name) != nil {
		return malformed("%s: duplicate property %q", n.tag, spec.Name)
	}
	n.addProperty(spec)
	return nil
}

func (n *Node) addProperty(spec api.PropertySpec) {
	n.propIndex[spec.Name] = len(n.props)
	n.props = append(n.props, NewProperty(spec))
}

// loadProperties stores definition attributes without type checks or events,
// so that invalid stored values survive to be reported by Validate.
func (n *Node) loadProperties(attrs map[string]any) {
	for _, k := range sortedKeys(attrs) {
		p := n.Property(k)
		if p == nil {
			n.addProperty(api.PropertySpec{Name: k})
			p = n.Property(k)
		}
		p.load(attrs[k])
		if n.isRoot && k == rootTypeProperty {
			n.modelType = fmt.Sprint(p.Effective())
		}
	}
}

// reconfigure destroys all children and installs slots. The decision is
// taken by Property.ReconfigureFor; this is the effect. It reports whether
// the slots were installed.
func (n *Node) reconfigure(slots []api.Slot) bool {
	checked, err := checkSlots(n.tag, slots)
	if err != nil {
		n.tree.log.Error().Err(err).Str("node", n.id).Msg("reconfigure skipped")
		return false
	}
	n.dropChildren()
	n.slots = checked
	n.tree.log.Debug().Str("node", n.id).Int("slots", len(checked)).Msg("node reconfigured")
	n.tree.fire(&Event{Kind: Reconfigure, Node: n})
	return true
}
