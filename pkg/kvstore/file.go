package kvstore

import (
	"sync"

	"github.com/benmeehan/qtracker/pkg/file"
)

// FileStore keeps every key in one JSON document, rewritten atomically on each mutation.
type FileStore struct {
	path    string
	fileOps file.FileOperations

	mu     sync.Mutex
	values map[string]string
}

// NewFileStore loads the JSON document at path, starting empty if it does not exist.
func NewFileStore(path string, fileOps file.FileOperations) (*FileStore, error) {
	fs := &FileStore{
		path:    path,
		fileOps: fileOps,
		values:  make(map[string]string),
	}

	exists, err := fileOps.IsFileExists(path)
	if err != nil {
		return nil, err
	}
	if exists {
		if err := fileOps.ReadJsonFile(path, &fs.values); err != nil {
			return nil, err
		}
		if fs.values == nil {
			fs.values = make(map[string]string)
		}
	}

	return fs, nil
}

// Get returns the value stored under key.
func (f *FileStore) Get(key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, ok := f.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set stores value under key and flushes the document.
func (f *FileStore) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, had := f.values[key]
	f.values[key] = value
	if err := f.fileOps.WriteJsonFile(f.path, f.values); err != nil {
		if had {
			f.values[key] = prev
		} else {
			delete(f.values, key)
		}
		return err
	}
	return nil
}

// Delete removes key and flushes the document.
func (f *FileStore) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, had := f.values[key]
	if !had {
		return nil
	}
	delete(f.values, key)
	if err := f.fileOps.WriteJsonFile(f.path, f.values); err != nil {
		f.values[key] = prev
		return err
	}
	return nil
}

// Close is a no-op; every mutation is already on disk.
func (f *FileStore) Close() error {
	return nil
}
