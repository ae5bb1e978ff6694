// Package kvstore provides the durable string-valued key-value storage used to
// keep favorites, the last resolved location and the signed-in user between
// runs.
package kvstore

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/benmeehan/qtracker/pkg/file"
)

// ErrNotFound is returned by Get when the key has never been written or was deleted.
var ErrNotFound = errors.New("kvstore: key not found")

// Store is a string-valued key-value store that survives restarts.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
	Close() error
}

// Backend names accepted by New.
const (
	BackendBolt   = "bolt"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// New opens the store for the named backend. path is ignored for the memory backend.
func New(backend, path string, fileOps file.FileOperations) (Store, error) {
	switch backend {
	case BackendBolt:
		return NewBoltStore(path)
	case BackendFile:
		return NewFileStore(path, fileOps)
	case BackendMemory, "":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

// GetJSON reads key and decodes its JSON value into v.
func GetJSON(s Store, key string, v any) error {
	raw, err := s.Get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// SetJSON encodes v as JSON and stores it under key.
func SetJSON(s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(key, string(raw))
}
