package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"Rectifex/internal/domain/models"
	drepo "Rectifex/internal/domain/repository"
)

// UniverseStore persists universe lists as JSON documents, one file per
// universe name, with the fetch time embedded in the document. Writes use
// the same temp-file-and-rename discipline as the price store.
type UniverseStore struct {
	dir string
}

// NewUniverseStore creates the universes directory under the cache base.
func NewUniverseStore(baseDir string) (*UniverseStore, error) {
	dir := filepath.Join(baseDir, "universes")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create universes dir: %w", err)
	}
	return &UniverseStore{dir: dir}, nil
}

// Load returns the cached list for name, ErrNotFound when absent.
func (s *UniverseStore) Load(name string) (*models.UniverseList, error) {
	b, err := os.ReadFile(s.pathFor(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("universe %s: %w", name, drepo.ErrNotFound)
		}
		return nil, fmt.Errorf("read universe %s: %w", name, err)
	}

	var list models.UniverseList
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, fmt.Errorf("parse universe %s: %w", name, err)
	}
	return &list, nil
}

// Save durably persists the list.
func (s *UniverseStore) Save(list *models.UniverseList) error {
	b, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal universe %s: %w", list.Name, err)
	}

	path := s.pathFor(list.Name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write universe %s: %w", list.Name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace universe %s: %w", list.Name, err)
	}
	return nil
}

func (s *UniverseStore) pathFor(name string) string {
	return filepath.Join(s.dir, name+".json")
}
