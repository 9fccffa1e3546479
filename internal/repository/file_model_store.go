package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"CourtCast/internal/domain/repository"
)

const artifactExt = ".json"

// FileModelStore persists model artifacts as JSON files under a directory.
// Writes go to a temp file first and are renamed into place, so a concurrent
// reader never sees a partial artifact.
type FileModelStore struct {
	dir string
}

func NewFileModelStore(dir string) (repository.ModelStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("model dir %s: %w", dir, err)
	}
	return &FileModelStore{dir: dir}, nil
}

func (s *FileModelStore) Read(_ context.Context, id string) ([]byte, error) {
	b, err := os.ReadFile(s.path(id))
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", id, err)
	}
	return b, nil
}

func (s *FileModelStore) Write(_ context.Context, id string, b []byte) error {
	tmp, err := os.CreateTemp(s.dir, id+".tmp-*")
	if err != nil {
		return fmt.Errorf("temp artifact %s: %w", id, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write artifact %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close artifact %s: %w", id, err)
	}
	if err := os.Rename(tmp.Name(), s.path(id)); err != nil {
		return fmt.Errorf("commit artifact %s: %w", id, err)
	}
	return nil
}

func (s *FileModelStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, artifactExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, artifactExt))
	}
	return ids, nil
}

func (s *FileModelStore) path(id string) string {
	return filepath.Join(s.dir, id+artifactExt)
}
