// Package blob is the markup store: one serialized document per clone,
// addressed by a ref derived deterministically from the clone id. Artifacts
// are bounded in size, so every write is a whole-file overwrite.
package blob

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hazyhaar/miroir/horosafe"
)

// Store keeps clone artifacts under a base directory.
type Store struct {
	base string
}

// New creates a Store rooted at dataDir, creating the clones directory.
func New(dataDir string) (*Store, error) {
	base, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("blob: resolve base: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(base, "clones"), 0o755); err != nil {
		return nil, fmt.Errorf("blob: mkdir: %w", err)
	}
	return &Store{base: base}, nil
}

// Ref derives the artifact ref for a clone id. The ref doubles as the
// public URL path of the served artifact.
func Ref(cloneID string) string {
	return "clones/" + cloneID + "/index.html"
}

// Write stores text at ref, creating parent directories and overwriting any
// previous content.
func (s *Store) Write(ref, text string) error {
	path, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("blob: mkdir %s: %w", ref, err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("blob: write %s: %w", ref, err)
	}
	return nil
}

// Read returns the artifact content at ref.
func (s *Store) Read(ref string) (string, error) {
	path, err := s.resolve(ref)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("blob: read %s: %w", ref, err)
	}
	return string(data), nil
}

// Exists reports whether an artifact is present at ref.
func (s *Store) Exists(ref string) bool {
	path, err := s.resolve(ref)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Remove deletes the artifact and its containing clone directory.
// Removing a non-existent ref is not an error.
func (s *Store) Remove(ref string) error {
	path, err := s.resolve(ref)
	if err != nil {
		return err
	}
	// The artifact lives alone in its per-clone directory; drop the whole
	// directory so no empty dirs accumulate.
	if err := os.RemoveAll(filepath.Dir(path)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("blob: remove %s: %w", ref, err)
	}
	return nil
}

// Path resolves ref to the absolute filesystem path, for callers that serve
// artifacts directly.
func (s *Store) Path(ref string) (string, error) {
	return s.resolve(ref)
}

func (s *Store) resolve(ref string) (string, error) {
	path, err := horosafe.SafePath(s.base, ref)
	if err != nil {
		return "", fmt.Errorf("blob: ref %q: %w", ref, err)
	}
	return path, nil
}
