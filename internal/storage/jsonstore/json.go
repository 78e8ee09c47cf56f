package jsonstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/drakos74/goldmind/internal/storage"
)

// BlobStorage persists values as one json file per key.
// table has the same schema, shard is a logical split.
type BlobStorage struct {
	path  string
	table string
	shard string
}

// New creates a json blob storage under the default storage dir.
func New(table, shard string) *BlobStorage {
	return &BlobStorage{
		path:  storage.DefaultDir,
		table: table,
		shard: shard,
	}
}

// BlobShard creates a shard constructor for the given table.
func BlobShard(table string) storage.Shard {
	return func(shard string) (storage.Persistence, error) {
		return New(table, shard), nil
	}
}

// Store writes the value under the key path, creating directories as needed.
func (s *BlobStorage) Store(k storage.Key, value interface{}) error {
	dir := filepath.Join(s.path, s.table, s.shard)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("could not make dir %s: %w", dir, err)
	}

	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("could not marshal value for '%+v': %w", k, err)
	}

	f := filepath.Join(dir, fmt.Sprintf("%s.json", k.Path()))
	if err := os.WriteFile(f, b, 0644); err != nil {
		return fmt.Errorf("could not write file '%s': %w", f, err)
	}
	return nil
}

// Load reads the value stored under the key path.
func (s *BlobStorage) Load(k storage.Key, value interface{}) error {
	f := filepath.Join(s.path, s.table, s.shard, fmt.Sprintf("%s.json", k.Path()))

	data, err := os.ReadFile(f)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("could not find '%s': %w", f, storage.ErrNotFound)
		}
		return fmt.Errorf("could not read file '%s': %w", f, err)
	}

	if err := json.Unmarshal(data, value); err != nil {
		return fmt.Errorf("could not unmarshal '%s': %v: %w", f, err, storage.ErrCouldNotLoad)
	}
	return nil
}
