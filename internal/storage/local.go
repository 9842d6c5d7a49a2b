package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage writes blobs below a directory served at publicBase.
type LocalStorage struct {
	basePath   string
	publicBase string
}

func NewLocalStorage(basePath, publicBase string) *LocalStorage {
	if basePath == "" {
		basePath = "./uploads"
	}
	if publicBase == "" {
		publicBase = "/uploads"
	}
	return &LocalStorage{basePath: basePath, publicBase: strings.TrimSuffix(publicBase, "/")}
}

// Root is the directory blobs are written to.
func (s *LocalStorage) Root() string { return s.basePath }

// PublicBase is the URL prefix blobs are served under.
func (s *LocalStorage) PublicBase() string { return s.publicBase }

func (s *LocalStorage) Upload(_ context.Context, body io.Reader, key, _ string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	out, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, body); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return s.publicBase + "/" + key, nil
}

func (s *LocalStorage) Delete(_ context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(key))

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	s.removeEmptyDirs(filepath.Dir(fullPath))
	return nil
}

func (s *LocalStorage) KeyForURL(url string) (string, bool) {
	return keyFromPrefix(url, s.publicBase)
}

// removeEmptyDirs removes empty parent directories up to basePath
func (s *LocalStorage) removeEmptyDirs(dir string) {
	rel, err := filepath.Rel(s.basePath, dir)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return
	}

	if err := os.Remove(dir); err == nil {
		s.removeEmptyDirs(filepath.Dir(dir))
	}
}
