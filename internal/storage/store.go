package storage

import (
	"errors"
	"fmt"
)

const (
	// LedgerDir is the table holding trade ledgers.
	LedgerDir = "ledger"
	// ScoresDir is the table holding persona score tallies.
	ScoresDir = "scores"
)

// DefaultDir is the root of the file backed storage.
var DefaultDir = "file-storage"

var (
	ErrNotFound      = errors.New("not found")
	ErrCouldNotLoad  = errors.New("could not load")
	ErrUnrecoverable = errors.New("unrecoverable error")
)

// Key is the storage key for a general implementation.
type Key struct {
	Account string `json:"account"`
	Label   string `json:"label"`
}

// Path builds the relative file path for the key.
func (k Key) Path() string {
	return fmt.Sprintf("%s_%s", k.Account, k.Label)
}

// Persistence stores and loads single values by key.
type Persistence interface {
	Store(k Key, value interface{}) error
	Load(k Key, value interface{}) error
}

// Shard creates a new storage implementation for the given shard.
type Shard func(shard string) (Persistence, error)

// VoidStorage ignores all writes and finds nothing.
type VoidStorage struct{}

// NewVoidStorage creates a dummy persistence, useful for tests and dry runs.
func NewVoidStorage() *VoidStorage {
	return &VoidStorage{}
}

// VoidShard wraps the void storage into a shard constructor.
func VoidShard() Shard {
	return func(shard string) (Persistence, error) {
		return NewVoidStorage(), nil
	}
}

func (v VoidStorage) Store(k Key, value interface{}) error {
	return nil
}

func (v VoidStorage) Load(k Key, value interface{}) error {
	return fmt.Errorf("no value for '%v': %w", k, ErrNotFound)
}
