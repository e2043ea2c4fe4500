package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/agentic-research/viewdef/api"
	"github.com/agentic-research/viewdef/internal/ingest"
	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const tempPrefix = ".viewdef-"

// revisionSpace namespaces content-derived revisions of file documents.
var revisionSpace = uuid.MustParse("6f1c0c5e-4f7a-4a43-9d0e-3b0c5c1b7e21")

// FileStore keeps one file per document in the root of a billy filesystem.
// Revisions are derived from the file content, so an unchanged document keeps
// its revision across processes.
type FileStore struct {
	fs     billy.Filesystem
	format ingest.Format
	indent int
	log    zerolog.Logger
}

// NewFileStore writes documents in format. Files of the same format with
// another accepted extension (".yml") are read as well.
func NewFileStore(fs billy.Filesystem, format ingest.Format, indent int, opts ...Option) (*FileStore, error) {
	if _, err := ingest.ParseFormat(string(format)); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	return &FileStore{fs: fs, format: format, indent: indent, log: o.log}, nil
}

func (s *FileStore) extensions() []string {
	if s.format == ingest.FormatYAML {
		return []string{".yaml", ".yml"}
	}
	return []string{".json"}
}

// find returns the existing file for name, or "" when there is none.
func (s *FileStore) find(name string) (string, os.FileInfo, error) {
	for _, ext := range s.extensions() {
		fi, err := s.fs.Stat(name + ext)
		if err == nil {
			return name + ext, fi, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", nil, err
		}
	}
	return "", nil, nil
}

// Put writes the document through a temporary file and a rename.
func (s *FileStore) Put(ctx context.Context, name string, def api.Definition) (Info, error) {
	if err := checkName(name); err != nil {
		return Info{}, err
	}
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}
	body, err := ingest.Encode(def, s.format, s.indent)
	if err != nil {
		return Info{}, err
	}
	target := name + s.extensions()[0]
	if err := s.writeAtomic(target, body); err != nil {
		return Info{}, err
	}
	fi, err := s.fs.Stat(target)
	if err != nil {
		return Info{}, fmt.Errorf("stat %s: %w", target, err)
	}
	info := s.info(name, fi, body)
	s.log.Debug().Str("name", name).Str("file", target).Str("revision", info.Revision).Msg("document stored")
	return info, nil
}

func (s *FileStore) writeAtomic(target string, body []byte) error {
	tmp, err := util.TempFile(s.fs, ".", tempPrefix)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName) // best-effort cleanup
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName) // best-effort cleanup
		return fmt.Errorf("close temp: %w", err)
	}
	if err := s.fs.Rename(tmpName, target); err != nil {
		_ = s.fs.Remove(tmpName) // best-effort cleanup
		return fmt.Errorf("rename temp to %s: %w", target, err)
	}
	return nil
}

// Get reads and decodes the document.
func (s *FileStore) Get(ctx context.Context, name string) (api.Definition, Info, error) {
	if err := checkName(name); err != nil {
		return nil, Info{}, err
	}
	if err := ctx.Err(); err != nil {
		return nil, Info{}, err
	}
	file, fi, err := s.find(name)
	if err != nil {
		return nil, Info{}, err
	}
	if file == "" {
		return nil, Info{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	body, err := util.ReadFile(s.fs, file)
	if err != nil {
		return nil, Info{}, fmt.Errorf("read %s: %w", file, err)
	}
	def, err := ingest.Decode(body, s.format)
	if err != nil {
		return nil, Info{}, fmt.Errorf("decode %s: %w", file, err)
	}
	return def, s.info(name, fi, body), nil
}

// List returns every document of the store's format, ordered by name. Hidden
// files, including leftovers of interrupted writes, are skipped.
func (s *FileStore) List(ctx context.Context) ([]Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := s.fs.ReadDir(".")
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	seen := make(map[string]bool)
	var out []Info
	for _, fi := range entries {
		if fi.IsDir() || strings.HasPrefix(fi.Name(), ".") {
			continue
		}
		name, ok := s.documentName(fi.Name())
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		body, err := util.ReadFile(s.fs, fi.Name())
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fi.Name(), err)
		}
		out = append(out, s.info(name, fi, body))
	}
	return out, nil
}

func (s *FileStore) documentName(file string) (string, bool) {
	for _, ext := range s.extensions() {
		if name, ok := strings.CutSuffix(file, ext); ok && checkName(name) == nil {
			return name, true
		}
	}
	return "", false
}

// Delete removes every file holding the document.
func (s *FileStore) Delete(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	removed := false
	for _, ext := range s.extensions() {
		err := s.fs.Remove(name + ext)
		if err == nil {
			removed = true
			continue
		}
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("delete %s: %w", name+ext, err)
		}
	}
	if !removed {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	s.log.Debug().Str("name", name).Msg("document deleted")
	return nil
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) info(name string, fi os.FileInfo, body []byte) Info {
	return Info{
		Name:      name,
		Revision:  uuid.NewSHA1(revisionSpace, body).String(),
		Format:    s.format,
		Size:      fi.Size(),
		UpdatedAt: fi.ModTime(),
	}
}
