package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"narrator/internal/domain"
)

// FileStore keeps pipeline artifacts in a flat output directory. Every stage
// writes through it so names cannot escape the directory.
type FileStore struct {
	basePath string
}

// NewFileStore initializes a FileStore rooted at basePath, creating the
// directory if needed. Calling it again for the same path is harmless.
func NewFileStore(basePath string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if !filepath.IsAbs(basePath) {
		if abs, err := filepath.Abs(basePath); err == nil {
			basePath = abs
		}
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// BasePath returns the configured root directory.
func (s *FileStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

// Path returns the absolute path for an artifact name. The name is not
// validated; use Resolve for names that come from a client.
func (s *FileStore) Path(name string) string {
	return filepath.Join(s.basePath, name)
}

// ArtifactPath returns the absolute path for a job's artifact.
func (s *FileStore) ArtifactPath(jobID string, kind domain.ArtifactKind, ext string) string {
	return s.Path(domain.ArtifactName(jobID, kind, ext))
}

// Write persists data under name and returns the absolute path. The data is
// written to a hidden temporary file and renamed into place, so readers never
// see a partial artifact under its final name.
func (s *FileStore) Write(ctx context.Context, name string, data []byte) (string, error) {
	if s == nil {
		return "", errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean, err := sanitizeName(name)
	if err != nil {
		return "", err
	}
	fullPath := s.Path(clean)
	tmp, err := os.CreateTemp(s.basePath, "."+clean+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("storage: create temp: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("storage: chmod: %w", err)
	}
	if err := os.Rename(tmpPath, fullPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("storage: publish file: %w", err)
	}
	return fullPath, nil
}

// Resolve maps a client-supplied file name to an existing regular file in the
// store. Missing files and names that would leave the directory report
// domain.ErrNotFound.
func (s *FileStore) Resolve(name string) (string, fs.FileInfo, error) {
	clean, err := sanitizeName(name)
	if err != nil {
		return "", nil, domain.ErrNotFound
	}
	full := s.Path(clean)
	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil, domain.ErrNotFound
		}
		return "", nil, fmt.Errorf("storage: stat: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", nil, domain.ErrNotFound
	}
	return full, info, nil
}

// FindArtifact returns the first artifact of kind that exists for jobID,
// trying exts in order.
func (s *FileStore) FindArtifact(jobID string, kind domain.ArtifactKind, exts []string) (string, bool) {
	for _, ext := range exts {
		name := domain.ArtifactName(jobID, kind, ext)
		if _, _, err := s.Resolve(name); err == nil {
			return name, true
		}
	}
	return "", false
}

// sanitizeName accepts only bare file names: the output directory is flat.
func sanitizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("storage: name is required")
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return "", errors.New("storage: invalid name")
	}
	if name == "." || name == ".." {
		return "", errors.New("storage: invalid name")
	}
	return name, nil
}
