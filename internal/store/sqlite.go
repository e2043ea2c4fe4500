package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/agentic-research/viewdef/api"
	"github.com/agentic-research/viewdef/internal/ingest"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

const documentSchema = `
CREATE TABLE IF NOT EXISTS documents (
	name TEXT PRIMARY KEY,
	revision TEXT NOT NULL,
	size INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	body JSON NOT NULL
);
`

// SQLiteStore keeps documents as JSON rows. Every Put assigns a new random
// revision.
type SQLiteStore struct {
	db  *sql.DB
	log zerolog.Logger
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the database at dsn and ensures the
// documents table exists.
func NewSQLiteStore(dsn string, opts ...Option) (*SQLiteStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("sqlite store: empty dsn")
	}
	o := buildOptions(opts)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(documentSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db, log: o.log, now: time.Now}, nil
}

// Put inserts or replaces the document.
func (s *SQLiteStore) Put(ctx context.Context, name string, def api.Definition) (Info, error) {
	if err := checkName(name); err != nil {
		return Info{}, err
	}
	body, err := ingest.Encode(def, ingest.FormatJSON, 0)
	if err != nil {
		return Info{}, err
	}
	info := Info{
		Name:      name,
		Revision:  uuid.NewString(),
		Format:    ingest.FormatJSON,
		Size:      int64(len(body)),
		UpdatedAt: s.now().UTC().Truncate(time.Millisecond),
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO documents (name, revision, size, updated_at, body)
		VALUES (?, ?, ?, ?, ?)`,
		info.Name, info.Revision, info.Size, info.UpdatedAt.UnixMilli(), string(body))
	if err != nil {
		return Info{}, fmt.Errorf("put %s: %w", name, err)
	}
	s.log.Debug().Str("name", name).Str("revision", info.Revision).Int64("size", info.Size).Msg("document stored")
	return info, nil
}

// Get returns the document and its metadata.
func (s *SQLiteStore) Get(ctx context.Context, name string) (api.Definition, Info, error) {
	if err := checkName(name); err != nil {
		return nil, Info{}, err
	}
	var (
		body    string
		updated int64
	)
	info := Info{Name: name, Format: ingest.FormatJSON}
	err := s.db.QueryRowContext(ctx,
		`SELECT revision, size, updated_at, body FROM documents WHERE name = ?`, name,
	).Scan(&info.Revision, &info.Size, &updated, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, Info{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, Info{}, fmt.Errorf("get %s: %w", name, err)
	}
	info.UpdatedAt = time.UnixMilli(updated).UTC()

	def, err := ingest.Decode([]byte(body), ingest.FormatJSON)
	if err != nil {
		return nil, Info{}, fmt.Errorf("decode %s: %w", name, err)
	}
	return def, info, nil
}

// List returns metadata for every document, ordered by name.
func (s *SQLiteStore) List(ctx context.Context) ([]Info, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, revision, size, updated_at FROM documents ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	var out []Info
	for rows.Next() {
		info := Info{Format: ingest.FormatJSON}
		var updated int64
		if err := rows.Scan(&info.Name, &info.Revision, &info.Size, &updated); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		info.UpdatedAt = time.UnixMilli(updated).UTC()
		out = append(out, info)
	}
	return out, rows.Err()
}

// Delete removes the document.
func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	s.log.Debug().Str("name", name).Msg("document deleted")
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
