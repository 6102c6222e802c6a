// Package mirror implements the incremental mirror synchronization engine:
// folder resolution, idempotent artifact writes, and manifest-based
// reconciliation of decks that vanished or moved upstream.
package mirror

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Location is an opaque handle to a folder in the mirror's storage backend.
// Locations are produced only by a Store; the engine never constructs them.
type Location string

// Store is the storage collaborator the engine writes artifacts through.
type Store interface {
	// Root returns the location of the mirror root.
	Root() Location

	// FindOrCreateFolder returns the location of the named child folder
	// under parent, creating it if absent.
	FindOrCreateFolder(parent Location, name string) (Location, error)

	// ReadFile returns the content of the named file and whether it exists.
	ReadFile(loc Location, name string) ([]byte, bool, error)

	// WriteFile creates or replaces the named file.
	WriteFile(loc Location, name string, content []byte) error

	// DeleteFile removes the named file. Deleting a file that does not
	// exist is a no-op, not an error.
	DeleteFile(loc Location, name string) error
}

// WriteIfChanged writes content only when it differs byte-for-byte from what
// is already stored, so unchanged artifacts keep their metadata untouched.
// It reports whether a write happened.
func WriteIfChanged(store Store, loc Location, name string, content []byte) (bool, error) {
	current, exists, err := store.ReadFile(loc, name)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if exists && bytes.Equal(current, content) {
		return false, nil
	}
	if err := store.WriteFile(loc, name, content); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", name, err)
	}
	return true, nil
}

// DirStore is a Store backed by a directory tree on an afero filesystem.
// Locations are slash-separated paths relative to the root directory, which
// keeps them stable across runs so the manifest can record them.
type DirStore struct {
	fs   afero.Fs
	root string
}

// NewDirStore creates a DirStore rooted at dir, creating dir if needed.
func NewDirStore(fs afero.Fs, dir string) (*DirStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("mirror root directory is required")
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create mirror root %s: %w", dir, err)
	}
	return &DirStore{fs: fs, root: dir}, nil
}

// Root returns the location of the mirror root.
func (s *DirStore) Root() Location {
	return Location(".")
}

// FindOrCreateFolder returns the child folder location, creating the
// directory if absent. Path separators in the remote display name are
// flattened so a folder cannot escape its parent.
func (s *DirStore) FindOrCreateFolder(parent Location, name string) (Location, error) {
	name = safeFolderName(name)
	loc := Location(filepath.ToSlash(filepath.Join(string(parent), name)))
	if err := s.fs.MkdirAll(s.path(loc, ""), 0o755); err != nil {
		return "", fmt.Errorf("failed to create folder %s: %w", loc, err)
	}
	return loc, nil
}

// ReadFile returns the file content and whether the file exists.
func (s *DirStore) ReadFile(loc Location, name string) ([]byte, bool, error) {
	data, err := afero.ReadFile(s.fs, s.path(loc, name))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// WriteFile creates or replaces the file, creating parent directories as
// needed. A location loaded from an old manifest may point at a directory
// that no longer exists.
func (s *DirStore) WriteFile(loc Location, name string, content []byte) error {
	if err := s.fs.MkdirAll(s.path(loc, ""), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(s.fs, s.path(loc, name), content, 0o644)
}

// DeleteFile removes the file if present.
func (s *DirStore) DeleteFile(loc Location, name string) error {
	err := s.fs.Remove(s.path(loc, name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *DirStore) path(loc Location, name string) string {
	return filepath.Join(s.root, filepath.FromSlash(string(loc)), name)
}

func safeFolderName(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		name = "_"
	}
	return name
}
