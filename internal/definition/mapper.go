package definition

import (
	"errors"
	"slices"

	"github.com/agentic-research/viewdef/api"
	"github.com/agentic-research/viewdef/internal/model"
	"github.com/rs/zerolog"
)

// ErrDetached is returned for nodes outside the mapped document.
var ErrDetached = errors.New("node is not part of the document")

// Mapper keeps a definition object in step with a document tree. Once
// attached it follows the tree's post-mutation events; every change is
// applied in place to the definition.
type Mapper struct {
	root   *model.Root
	data   api.Definition
	log    zerolog.Logger
	strict bool
	errs   []error
	cancel func()
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithLogger sets the logger used for resolution failures.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Mapper) { m.log = l }
}

// Strict makes locating fail with ErrAmbiguous when several sequence
// entries match a node and none sits at the node's sibling position.
func Strict() Option {
	return func(m *Mapper) { m.strict = true }
}

// NewMapper maps root onto a copy of data. A nil data serializes the tree.
func NewMapper(root *model.Root, data api.Definition, opts ...Option) *Mapper {
	m := &Mapper{root: root, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(m)
	}
	if data == nil {
		m.data = SerializeRoot(root)
	} else {
		m.data = deepCopy(data).(map[string]any)
	}
	return m
}

// Adopt maps root onto the definition it was loaded from, so edits are
// applied to a copy of def and everything the tree does not model (null
// entries, empty attribute maps) keeps its form. When loading rejected parts
// of def the definition is rebuilt from the tree instead.
func Adopt(root *model.Root, def api.Definition, opts ...Option) *Mapper {
	if def == nil || root.Tree().RejectedCount() > 0 {
		return NewMapper(root, nil, opts...)
	}
	return NewMapper(root, def, opts...)
}

// Build loads a document and returns it with an attached mapper.
func Build(def api.Definition, opts ...model.Option) (*model.Root, *Mapper, error) {
	root, err := model.Load(def, opts...)
	if err != nil {
		return nil, nil, err
	}
	m := Adopt(root, def, WithLogger(root.Tree().Logger()))
	m.Attach()
	return root, m, nil
}

// Attach subscribes the mapper to the tree's events.
func (m *Mapper) Attach() {
	if m.cancel == nil {
		m.cancel = m.root.Tree().Sink().Subscribe(m.observe)
	}
}

// Detach stops following the tree.
func (m *Mapper) Detach() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

// Root returns the mapped document.
func (m *Mapper) Root() *model.Root { return m.root }

// Definition returns a copy of the current definition object.
func (m *Mapper) Definition() api.Definition {
	return deepCopy(m.data).(map[string]any)
}

// Errors returns the resolution failures observed while following events.
func (m *Mapper) Errors() []error { return slices.Clone(m.errs) }

// Resync rebuilds the definition from the tree and clears recorded errors.
func (m *Mapper) Resync() {
	m.data = SerializeRoot(m.root)
	m.errs = nil
}

// Locate returns where the entry of n lives.
func (m *Mapper) Locate(n *model.Node) (Location, error) {
	steps, err := m.steps(n)
	if err != nil {
		return Location{}, err
	}
	return m.locate(n.PathString(), steps, nil, false)
}

// Entity returns a copy of the entry backing n, nil when it has none yet.
func (m *Mapper) Entity(n *model.Node) (any, error) {
	loc, err := m.Locate(n)
	if err != nil {
		return nil, err
	}
	return deepCopy(m.entryAt(loc)), nil
}

// SetAttribute writes one attribute, or the content when name is
// api.ContentKey, creating the entry on first write. An empty attribute
// value without a declared default removes the attribute.
func (m *Mapper) SetAttribute(n *model.Node, name string, value any) error {
	remove := false
	if name != api.ContentKey && model.IsEmpty(value) {
		p := n.Property(name)
		remove = p == nil || model.IsEmpty(p.Default)
	}
	return m.setAttribute(n, name, value, remove, nil)
}

func (m *Mapper) setAttribute(n *model.Node, name string, value any, remove bool, override map[string]any) error {
	steps, err := m.steps(n)
	if err != nil {
		return err
	}
	loc, err := m.locate(n.PathString(), steps, override, !remove)
	if err != nil {
		return err
	}
	entry := m.entryAt(loc)
	if remove {
		if !loc.Exists {
			return nil
		}
		e, isMap := entry.(map[string]any)
		switch {
		case name == api.ContentKey && isMap:
			delete(e, api.ContentKey)
		case name == api.ContentKey:
			m.store(loc, map[string]any{})
		case isMap:
			if attrs, ok := e[api.AttributesKey].(map[string]any); ok {
				delete(attrs, name)
				if len(attrs) == 0 {
					delete(e, api.AttributesKey)
				}
			}
		}
		return nil
	}

	if name == api.ContentKey {
		if e, isMap := entry.(map[string]any); isMap && len(e) > 0 {
			e[api.ContentKey] = value
			m.store(loc, compact(e))
		} else {
			m.store(loc, value)
		}
		return nil
	}
	e := asMap(entry)
	attrs, _ := e[api.AttributesKey].(map[string]any)
	if attrs == nil {
		attrs = map[string]any{}
		e[api.AttributesKey] = attrs
	}
	attrs[name] = value
	m.store(loc, e)
	return nil
}

// AddEntity appends the entry of n, with its subtree, under the entry of
// parent. A second entry of the same tag turns the key into a sequence.
func (m *Mapper) AddEntity(parent, n *model.Node) error {
	return m.insertEntity(parent, n, -1)
}

// InsertEntityBefore adds the entry of n before the entry of ref. When n
// is already attached to parent its position among same-tag siblings is
// used. Otherwise n takes the place of the first same-tag sibling at or
// after ref; a nil ref appends.
func (m *Mapper) InsertEntityBefore(parent, n, ref *model.Node) error {
	switch {
	case n.Parent() == parent:
		return m.insertEntity(parent, n, ordinal(n))
	case ref == nil:
		return m.AddEntity(parent, n)
	case parent.IndexOf(ref) < 0:
		return &ResolveError{Path: ref.PathString(), Err: model.ErrNotChild}
	case ref.Tag() != n.Tag():
		return m.insertEntity(parent, n, ordinalAt(parent, n.Tag(), parent.IndexOf(ref)))
	}
	loc, err := m.Locate(ref)
	if err != nil {
		return err
	}
	at := 0
	if loc.Index >= 0 {
		at = loc.Index
	}
	return m.insertEntity(parent, n, at)
}

func (m *Mapper) insertEntity(parent, n *model.Node, at int) error {
	steps, err := m.steps(parent)
	if err != nil {
		return err
	}
	loc, err := m.locate(parent.PathString(), steps, nil, true)
	if err != nil {
		return err
	}
	pe := asMap(m.entryAt(loc))
	m.store(loc, pe)
	if _, taken := pe[n.Tag()]; !taken && parent.IsSequence(n.Tag()) {
		pe[n.Tag()] = []any{Serialize(n)}
		return nil
	}
	addTo(pe, n.Tag(), Serialize(n), at)
	return nil
}

// RemoveEntity deletes the entry of n. A sequence keeps its form down to a
// single entry; an emptied key is deleted.
func (m *Mapper) RemoveEntity(n *model.Node) error {
	steps, err := m.steps(n)
	if err != nil {
		return err
	}
	return m.removeAt(n.PathString(), steps)
}

func (m *Mapper) removeAt(path string, steps []step) error {
	if len(steps) == 0 {
		return &ResolveError{Path: path, Err: ErrEntityNotFound}
	}
	loc, err := m.locate(path, steps, nil, false)
	if err != nil {
		return err
	}
	if !loc.Exists || loc.Container == nil {
		return &ResolveError{Path: path, Err: ErrEntityNotFound}
	}
	if loc.Index < 0 {
		delete(loc.Container, loc.Key)
		return nil
	}
	seq := slices.Delete(loc.Container[loc.Key].([]any), loc.Index, loc.Index+1)
	if len(seq) == 0 {
		delete(loc.Container, loc.Key)
		return nil
	}
	loc.Container[loc.Key] = seq
	return nil
}

func (m *Mapper) steps(n *model.Node) ([]step, error) {
	chain := n.Ancestors()
	if chain[0] != m.root.Node {
		return nil, &ResolveError{Path: n.PathString(), Err: ErrDetached}
	}
	out := make([]step, 0, len(chain)-1)
	for _, a := range chain[1:] {
		out = append(out, step{node: a, ordinal: ordinal(a)})
	}
	return out, nil
}

func (m *Mapper) owns(n *model.Node) bool {
	return n != nil && !n.Destroyed() && n.RootNode() == m.root.Node
}

func (m *Mapper) observe(ev *model.Event) bool {
	var err error
	switch ev.Kind {
	case model.Append, model.Insert:
		if m.owns(ev.Parent) {
			err = m.InsertEntityBefore(ev.Parent, ev.Node, ev.Ref)
		}
	case model.Remove:
		if m.owns(ev.Parent) {
			err = m.removeChildEntity(ev.Parent, ev.Node, ev.Index)
		}
	case model.PropertyChange:
		if m.owns(ev.Node) {
			err = m.syncProperty(ev.Node, ev.Property, ev.OldValue)
		}
	}
	if err != nil {
		m.errs = append(m.errs, err)
		m.log.Warn().Err(err).Str("event", ev.Kind.String()).Msg("definition out of sync")
	}
	return true
}

// removeChildEntity removes the entry of a child that has already been
// detached from parent at index.
func (m *Mapper) removeChildEntity(parent, child *model.Node, index int) error {
	steps, err := m.steps(parent)
	if err != nil {
		return err
	}
	steps = append(steps, step{node: child, ordinal: ordinalAt(parent, child.Tag(), index)})
	return m.removeAt(parent.PathString()+model.PathSeparator+child.ID(), steps)
}

// syncProperty mirrors a property change. The entry is located with the
// value the property held before the change.
func (m *Mapper) syncProperty(n *model.Node, name string, old any) error {
	var p *model.Property
	if name == api.ContentKey {
		if !n.IsContentUsed() {
			return nil
		}
		p = n.Content()
	} else {
		p = n.Property(name)
	}
	if p == nil {
		return nil
	}
	return m.setAttribute(n, name, p.Value(), !p.IsSet(), map[string]any{name: old})
}
