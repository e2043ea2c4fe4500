// Package store persists definition documents by name.
//
// Two backends exist: a SQLite document table and a directory of JSON or
// YAML files behind a billy filesystem. Both store the nested definition
// shape unchanged; neither knows about tags or templates.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/agentic-research/viewdef/api"
	"github.com/agentic-research/viewdef/internal/ingest"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/rs/zerolog"
)

var (
	// ErrNotFound is returned when no document has the requested name.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidName is returned for names that cannot be used as keys or file names.
	ErrInvalidName = errors.New("invalid document name")
	// ErrUnknownDriver is returned by Open for an unsupported driver.
	ErrUnknownDriver = errors.New("unknown store driver")
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// Info describes a stored document.
type Info struct {
	Name      string
	Revision  string
	Format    ingest.Format
	Size      int64
	UpdatedAt time.Time
}

// Store is a named collection of definition documents.
type Store interface {
	Put(ctx context.Context, name string, def api.Definition) (Info, error)
	Get(ctx context.Context, name string) (api.Definition, Info, error)
	List(ctx context.Context) ([]Info, error)
	Delete(ctx context.Context, name string) error
	Close() error
}

// Config selects and parameterizes a backend.
type Config struct {
	Driver string // "sqlite" or "file"
	DSN    string
	Dir    string
	Format ingest.Format
	Indent int
}

// Option configures a backend.
type Option func(*options)

type options struct {
	log zerolog.Logger
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

func buildOptions(opts []Option) options {
	o := options{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Open creates the backend named by cfg.Driver.
func Open(cfg Config, opts ...Option) (Store, error) {
	switch cfg.Driver {
	case "sqlite":
		return NewSQLiteStore(cfg.DSN, opts...)
	case "file":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("file store: empty directory")
		}
		return NewFileStore(osfs.New(cfg.Dir), cfg.Format, cfg.Indent, opts...)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
}

func checkName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
