// Package artifacts persists synthesized audio under an application
// documents directory.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/tmm22/voicedeck/internal/ttypes"
)

// FileStore implements ttypes.ArtifactStore on the local filesystem.
type FileStore struct {
	root string
}

var _ ttypes.ArtifactStore = (*FileStore)(nil)

// NewFileStore creates a store rooted at root. A leading ~ is expanded
// and an empty root selects DefaultRoot.
func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		r, err := DefaultRoot()
		if err != nil {
			return nil, err
		}
		root = r
	}
	expanded, err := homedir.Expand(root)
	if err != nil {
		return nil, fmt.Errorf("failed to expand %s: %w", root, err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", expanded, err)
	}
	return &FileStore{root: abs}, nil
}

// DefaultRoot returns ~/Documents when it exists, otherwise the user data
// directory for the application.
func DefaultRoot() (string, error) {
	if home, err := homedir.Dir(); err == nil {
		docs := filepath.Join(home, "Documents")
		if info, err := os.Stat(docs); err == nil && info.IsDir() {
			return docs, nil
		}
	}
	dirs, err := gap.NewScope(gap.User, "voicedeck").DataDirs()
	if err != nil || len(dirs) == 0 {
		return "", fmt.Errorf("failed to locate a documents directory: %w", err)
	}
	return dirs[0], nil
}

// Root returns the absolute store root.
func (s *FileStore) Root() string {
	return s.root
}

// Path resolves rel inside the root without touching the filesystem.
func (s *FileStore) Path(rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if rel == "" || clean == "." || !filepath.IsLocal(clean) {
		return "", fmt.Errorf("artifact path %q escapes the store root", rel)
	}
	return filepath.Join(s.root, clean), nil
}

// WriteFile implements ttypes.ArtifactStore. Parent directories are
// created on demand.
func (s *FileStore) WriteFile(rel string, data []byte) (string, error) {
	path, err := s.Path(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
