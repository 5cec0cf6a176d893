package asset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/prappser/gallery_server/internal/apperr"
)

const incomingDir = ".incoming"

// Store is the on-disk asset tree: {root}/{state}/{owner}/{file}. The
// directory layout is the only index.
type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	if root == "" {
		root = "./images"
	}

	s := &Store{root: root}
	for _, state := range States {
		if err := os.MkdirAll(s.StateDir(state), 0755); err != nil {
			return nil, fmt.Errorf("failed to create state directory %s: %w", state, err)
		}
	}
	if err := os.MkdirAll(s.IncomingDir(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create incoming directory: %w", err)
	}

	return s, nil
}

func (s *Store) Root() string {
	return s.root
}

func (s *Store) StateDir(state State) string {
	return filepath.Join(s.root, string(state))
}

func (s *Store) OwnerDir(state State, owner string) string {
	return filepath.Join(s.root, string(state), owner)
}

func (s *Store) Path(a Asset) string {
	return filepath.Join(s.root, string(a.State), a.Owner, a.Filename)
}

// IncomingDir holds uploads while they are being written. It lives on the
// same filesystem as the state folders so that publishing is a rename.
func (s *Store) IncomingDir() string {
	return filepath.Join(s.root, incomingDir)
}

// Stat returns the file info of an asset, reporting NotFound when either the
// owner folder or the file is missing.
func (s *Store) Stat(a Asset) (os.FileInfo, error) {
	if err := s.requireDir(s.OwnerDir(a.State, a.Owner), "folder %q does not exist in %s", a.Owner, a.State); err != nil {
		return nil, err
	}

	info, err := os.Stat(s.Path(a))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.NotFound("file %q does not exist", a.Filename)
		}
		return nil, apperr.IO(err, "failed to stat file %q", a.Filename)
	}
	if info.IsDir() {
		return nil, apperr.NotFound("file %q does not exist", a.Filename)
	}
	return info, nil
}

func (s *Store) ReadFile(a Asset) ([]byte, error) {
	data, err := os.ReadFile(s.Path(a))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.NotFound("file %q does not exist", a.Filename)
		}
		return nil, apperr.IO(err, "failed to read file %q", a.Filename)
	}
	return data, nil
}

func (s *Store) requireDir(dir, format string, args ...any) error {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return apperr.NotFound(format, args...)
		}
		return apperr.IO(err, "failed to stat %s", dir)
	}
	if !info.IsDir() {
		return apperr.NotFound(format, args...)
	}
	return nil
}
