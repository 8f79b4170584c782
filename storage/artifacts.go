package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ArtifactStore holds raw bytes that do not belong in the key-value store:
// source documents referenced by jobs and page images extracted from them.
type ArtifactStore interface {
	// ReadDocument returns the raw bytes of a source document.
	// Returns ErrNotFound if the reference does not resolve.
	ReadDocument(ctx context.Context, ref string) ([]byte, error)

	// WriteImage stores extracted image bytes under the given reference.
	WriteImage(ctx context.Context, ref string, data []byte) error

	// ReadImage returns previously stored image bytes.
	// Returns ErrNotFound if the reference does not resolve.
	ReadImage(ctx context.Context, ref string) ([]byte, error)
}

// FSArtifactStore is an ArtifactStore backed by the local filesystem.
// Document refs are paths relative to the documents root; image refs are
// paths relative to the images root. Refs escaping their root are rejected.
type FSArtifactStore struct {
	documentsRoot string
	imagesRoot    string
}

var _ ArtifactStore = (*FSArtifactStore)(nil)

// NewFSArtifactStore creates a filesystem artifact store.
// The images root is created if it does not exist.
func NewFSArtifactStore(documentsRoot, imagesRoot string) (ArtifactStore, error) {
	if documentsRoot == "" {
		return nil, errors.New("documents root is required")
	}
	if imagesRoot == "" {
		return nil, errors.New("images root is required")
	}
	if err := os.MkdirAll(imagesRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create images root: %w", err)
	}
	return &FSArtifactStore{documentsRoot: documentsRoot, imagesRoot: imagesRoot}, nil
}

func (s *FSArtifactStore) ReadDocument(_ context.Context, ref string) ([]byte, error) {
	path, err := resolveRef(s.documentsRoot, ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: document %q", ErrNotFound, ref)
	}
	return data, err
}

func (s *FSArtifactStore) WriteImage(_ context.Context, ref string, data []byte) error {
	path, err := resolveRef(s.imagesRoot, ref)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create image dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *FSArtifactStore) ReadImage(_ context.Context, ref string) ([]byte, error) {
	path, err := resolveRef(s.imagesRoot, ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: image %q", ErrNotFound, ref)
	}
	return data, err
}

func resolveRef(root, ref string) (string, error) {
	if ref == "" {
		return "", errors.New("empty artifact ref")
	}
	cleaned := filepath.Clean(filepath.FromSlash(ref))
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("artifact ref escapes root: %q", ref)
	}
	return filepath.Join(root, cleaned), nil
}
