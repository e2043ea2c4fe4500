package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/agentic-research/viewdef/api"
	"github.com/agentic-research/viewdef/internal/ingest"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func editDoc(title string) api.Definition {
	return api.Definition{
		"attributes": map[string]any{"type": "edit"},
		"i:title":    title,
		"i:fields": map[string]any{"i:field": []any{
			map[string]any{"attributes": map[string]any{"name": "email", "type": "email"}},
			map[string]any{"attributes": map[string]any{"name": "phone"}},
		}},
	}
}

func backends(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := NewSQLiteStore(filepath.Join(t.TempDir(), "docs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sq.Close() })

	js, err := NewFileStore(memfs.New(), ingest.FormatJSON, 2)
	require.NoError(t, err)
	ys, err := NewFileStore(memfs.New(), ingest.FormatYAML, 2)
	require.NoError(t, err)

	return map[string]Store{"sqlite": sq, "file-json": js, "file-yaml": ys}
}

func TestStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, _, err := s.Get(ctx, "customer")
			require.ErrorIs(t, err, ErrNotFound)

			info, err := s.Put(ctx, "customer", editDoc("Customer"))
			require.NoError(t, err)
			assert.Equal(t, "customer", info.Name)
			assert.NotEmpty(t, info.Revision)
			assert.Positive(t, info.Size)

			def, got, err := s.Get(ctx, "customer")
			require.NoError(t, err)
			assert.Equal(t, editDoc("Customer"), def)
			assert.Equal(t, info.Revision, got.Revision)

			changed, err := s.Put(ctx, "customer", editDoc("Client"))
			require.NoError(t, err)
			assert.NotEqual(t, info.Revision, changed.Revision)

			_, err = s.Put(ctx, "orders", editDoc("Orders"))
			require.NoError(t, err)

			list, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "customer", list[0].Name)
			assert.Equal(t, "orders", list[1].Name)

			require.NoError(t, s.Delete(ctx, "customer"))
			assert.ErrorIs(t, s.Delete(ctx, "customer"), ErrNotFound)
			list, err = s.List(ctx)
			require.NoError(t, err)
			assert.Len(t, list, 1)
		})
	}
}

func TestStore_InvalidNames(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, bad := range []string{"", "../etc", "a/b", ".hidden"} {
				_, err := s.Put(ctx, bad, editDoc("x"))
				assert.ErrorIs(t, err, ErrInvalidName, bad)
			}
		})
	}
}

func TestFileStore_StableRevisionAndLayout(t *testing.T) {
	ctx := context.Background()
	fs := memfs.New()
	s, err := NewFileStore(fs, ingest.FormatYAML, 2)
	require.NoError(t, err)

	a, err := s.Put(ctx, "customer", editDoc("Customer"))
	require.NoError(t, err)
	b, err := s.Put(ctx, "customer", editDoc("Customer"))
	require.NoError(t, err)
	assert.Equal(t, a.Revision, b.Revision)

	entries, err := fs.ReadDir(".")
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not survive a write")
	assert.Equal(t, "customer.yaml", entries[0].Name())
}

func TestFileStore_ReadsAlternateExtensionAndSkipsJunk(t *testing.T) {
	ctx := context.Background()
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "menu.yml", []byte("attributes: {type: menu}\n"), 0o644))
	require.NoError(t, util.WriteFile(fs, ".viewdef-123", []byte("partial"), 0o644))
	require.NoError(t, util.WriteFile(fs, "notes.txt", []byte("x"), 0o644))

	s, err := NewFileStore(fs, ingest.FormatYAML, 0)
	require.NoError(t, err)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "menu", list[0].Name)

	def, _, err := s.Get(ctx, "menu")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"type": "menu"}, def[api.AttributesKey])

	require.NoError(t, s.Delete(ctx, "menu"))
	_, err = fs.Stat("menu.yml")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	s, err := Open(Config{Driver: "file", Dir: t.TempDir(), Format: ingest.FormatJSON})
	require.NoError(t, err)
	_, err = s.Put(context.Background(), "a", editDoc("A"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(Config{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(Config{Driver: "redis"})
	assert.ErrorIs(t, err, ErrUnknownDriver)

	_, err = NewFileStore(memfs.New(), ingest.Format("xml"), 0)
	assert.ErrorIs(t, err, ingest.ErrUnknownFormat)
}
