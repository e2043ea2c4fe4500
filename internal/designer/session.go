// Package designer implements an editing session over one view definition:
// the document tree, its attached definition mapper, change tracking and the
// load/save cycle through a store.
package designer

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/agentic-research/viewdef/api"
	"github.com/agentic-research/viewdef/internal/catalog"
	"github.com/agentic-research/viewdef/internal/definition"
	"github.com/agentic-research/viewdef/internal/model"
	"github.com/agentic-research/viewdef/internal/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrConflict is returned by Save when the stored document changed since
	// the session loaded or last saved it.
	ErrConflict = errors.New("document changed in store")
	// ErrInvalid is returned by Save when the document fails validation.
	ErrInvalid = errors.New("document is invalid")
	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("session closed")
)

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger; the tree and mapper inherit it.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithStrictMapping makes the mapper refuse ambiguous entries.
func WithStrictMapping() Option {
	return func(s *Session) { s.strict = true }
}

// AllowInvalid lets Save store documents that fail validation.
func AllowInvalid() Option {
	return func(s *Session) { s.allowInvalid = true }
}

// Session owns one document. It is not safe for concurrent use.
type Session struct {
	id           string
	name         string
	catalog      *catalog.Catalog
	store        store.Store
	log          zerolog.Logger
	strict       bool
	allowInvalid bool

	root     *model.Root
	mapper   *definition.Mapper
	revision string
	dirty    bool
	unwatch  func()
	closed   bool
}

func newSession(cat *catalog.Catalog, st store.Store, name string, opts []Option) *Session {
	s := &Session{
		id:      uuid.NewString(),
		name:    name,
		catalog: cat,
		store:   st,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("session", s.id[:8]).Str("document", name).Logger()
	return s
}

// Create starts a session on a new scaffolded document of docType. Nothing
// is written until Save.
func Create(cat *catalog.Catalog, st store.Store, name, docType string, opts ...Option) (*Session, error) {
	s := newSession(cat, st, name, opts)
	root, err := model.NewDocument(docType, s.treeOptions()...)
	if err != nil {
		return nil, fmt.Errorf("new %s document: %w", docType, err)
	}
	s.attach(root, nil)
	s.dirty = true
	s.log.Info().Str("type", docType).Msg("document created")
	return s, nil
}

// Open starts a session on a stored document.
func Open(ctx context.Context, cat *catalog.Catalog, st store.Store, name string, opts ...Option) (*Session, error) {
	def, info, err := st.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	s := newSession(cat, st, name, opts)
	if err := s.load(def); err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	s.revision = info.Revision
	s.log.Info().Str("revision", info.Revision).Int("nodes", s.root.Tree().Len()).Msg("document opened")
	return s, nil
}

// FromDefinition starts a session on a definition that does not come from
// the store yet, such as an imported file.
func FromDefinition(cat *catalog.Catalog, st store.Store, name string, def api.Definition, opts ...Option) (*Session, error) {
	s := newSession(cat, st, name, opts)
	if err := s.load(def); err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	s.dirty = true
	return s, nil
}

func (s *Session) treeOptions() []model.Option {
	return append(s.catalog.Options(), model.WithLogger(s.log))
}

// load builds the tree and maps it onto def. A definition that loses parts
// while loading (rejected children, dropped keys) marks the session dirty,
// since saving it would change the stored document.
func (s *Session) load(def api.Definition) error {
	root, err := model.Load(def, s.treeOptions()...)
	if err != nil {
		return err
	}
	s.attach(root, def)
	for _, rej := range root.Tree().Rejected() {
		s.log.Warn().Err(rej).Msg("definition part rejected")
	}
	s.dirty = !reflect.DeepEqual(map[string]any(def), map[string]any(s.mapper.Definition()))
	return nil
}

// attach maps root onto def, or onto its own serialization when def is nil.
func (s *Session) attach(root *model.Root, def api.Definition) {
	opts := []definition.Option{definition.WithLogger(s.log)}
	if s.strict {
		opts = append(opts, definition.Strict())
	}
	s.root = root
	s.mapper = definition.Adopt(root, def, opts...)
	s.mapper.Attach()
	s.unwatch = root.Tree().Sink().Subscribe(s.track)
}

// track marks the session dirty after every applied mutation.
func (s *Session) track(ev *model.Event) bool {
	switch ev.Kind {
	case model.Append, model.Insert, model.Remove, model.Move, model.PropertyChange, model.Reconfigure:
		s.dirty = true
	}
	return true
}

// ID is the random identifier of the session.
func (s *Session) ID() string { return s.id }

// Name is the store key of the document.
func (s *Session) Name() string { return s.name }

// Root returns the document tree.
func (s *Session) Root() *model.Root { return s.root }

// Mapper returns the definition mapper following the tree.
func (s *Session) Mapper() *definition.Mapper { return s.mapper }

// Definition returns a copy of the current definition object.
func (s *Session) Definition() api.Definition { return s.mapper.Definition() }

// Dirty reports unsaved changes.
func (s *Session) Dirty() bool { return s.dirty }

// Revision is the store revision the session is based on, empty for
// documents never saved.
func (s *Session) Revision() string { return s.revision }

// Validate runs the validator over the whole document.
func (s *Session) Validate() *model.Report { return s.root.Validate() }

// Save writes the definition to the store under the session name. It fails
// with ErrConflict when another writer replaced the stored document in the
// meantime and with ErrInvalid when validation fails, unless AllowInvalid
// was given.
func (s *Session) Save(ctx context.Context) (store.Info, error) {
	return s.save(ctx, true)
}

// ForceSave writes the definition without the conflict check.
func (s *Session) ForceSave(ctx context.Context) (store.Info, error) {
	return s.save(ctx, false)
}

func (s *Session) save(ctx context.Context, checkConflict bool) (store.Info, error) {
	if s.closed {
		return store.Info{}, ErrClosed
	}
	if !s.allowInvalid {
		if rep := s.Validate(); rep != nil {
			return store.Info{}, fmt.Errorf("%w: %w", ErrInvalid, rep)
		}
	}
	if checkConflict {
		if err := s.checkRevision(ctx); err != nil {
			return store.Info{}, err
		}
	}
	if errs := s.mapper.Errors(); len(errs) > 0 {
		s.log.Warn().Int("errors", len(errs)).Msg("definition out of step with tree, resyncing before save")
		s.mapper.Resync()
	}
	info, err := s.store.Put(ctx, s.name, s.mapper.Definition())
	if err != nil {
		return store.Info{}, err
	}
	s.revision = info.Revision
	s.dirty = false
	s.log.Info().Str("revision", info.Revision).Msg("document saved")
	return info, nil
}

func (s *Session) checkRevision(ctx context.Context) error {
	_, cur, err := s.store.Get(ctx, s.name)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if s.revision != "" {
			return fmt.Errorf("%w: %s was deleted", ErrConflict, s.name)
		}
		return nil
	case err != nil:
		return err
	case cur.Revision != s.revision:
		return fmt.Errorf("%w: %s is at revision %s, session has %q", ErrConflict, s.name, cur.Revision, s.revision)
	}
	return nil
}

// Revert discards unsaved changes by reloading the stored document.
func (s *Session) Revert(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	def, info, err := s.store.Get(ctx, s.name)
	if err != nil {
		return err
	}
	s.release()
	if err := s.load(def); err != nil {
		return err
	}
	s.revision = info.Revision
	return nil
}

func (s *Session) release() {
	if s.unwatch != nil {
		s.unwatch()
		s.unwatch = nil
	}
	if s.mapper != nil {
		s.mapper.Detach()
	}
}

// Close detaches the session from its tree. Unsaved changes are lost.
func (s *Session) Close() {
	if s.closed {
		return
	}
	if s.dirty {
		s.log.Warn().Msg("closing session with unsaved changes")
	}
	s.release()
	s.closed = true
}
