package sessionclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	// StorageKeyAuth holds the persisted session.
	StorageKeyAuth = "auth"
	// StorageKeyFavorites is owned by the favorites feature and preserved untouched.
	StorageKeyFavorites = "favorites"
)

var (
	// ErrEmptyStoragePath indicates a FileStorage without a path.
	ErrEmptyStoragePath = errors.New("session.storage.empty_path")
)

// Storage is durable key/value storage surviving process restarts.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// MemoryStorage keeps values for the lifetime of the process; used in tests.
type MemoryStorage struct {
	mutex  sync.Mutex
	values map[string][]byte
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string][]byte)}
}

// Get returns a copy of the stored value.
func (storage *MemoryStorage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	storage.mutex.Lock()
	defer storage.mutex.Unlock()
	value, ok := storage.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

// Set stores a copy of value.
func (storage *MemoryStorage) Set(ctx context.Context, key string, value []byte) error {
	storage.mutex.Lock()
	defer storage.mutex.Unlock()
	storage.values[key] = append([]byte(nil), value...)
	return nil
}

// FileStorage keeps every key in one JSON object on disk.
// Writes go to a temporary file renamed over the target so a crash never leaves a torn file.
type FileStorage struct {
	mutex sync.Mutex
	path  string
}

// NewFileStorage creates the parent directory of path if needed.
func NewFileStorage(path string) (*FileStorage, error) {
	if path == "" {
		return nil, ErrEmptyStoragePath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("session.storage.mkdir: %w", err)
	}
	return &FileStorage{path: path}, nil
}

// Get reads key from the JSON document.
func (storage *FileStorage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	storage.mutex.Lock()
	defer storage.mutex.Unlock()
	document, err := storage.readLocked()
	if err != nil {
		return nil, false, err
	}
	value, ok := document[key]
	if !ok {
		return nil, false, nil
	}
	return []byte(value), true, nil
}

// Set replaces key and rewrites the document, keeping other keys.
func (storage *FileStorage) Set(ctx context.Context, key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("session.storage.set.%s: value is not valid JSON", key)
	}
	storage.mutex.Lock()
	defer storage.mutex.Unlock()
	document, err := storage.readLocked()
	if err != nil {
		return err
	}
	document[key] = json.RawMessage(append([]byte(nil), value...))
	encoded, encodeErr := json.Marshal(document)
	if encodeErr != nil {
		return fmt.Errorf("session.storage.encode: %w", encodeErr)
	}
	temporary, createErr := os.CreateTemp(filepath.Dir(storage.path), ".session-*.tmp")
	if createErr != nil {
		return fmt.Errorf("session.storage.create_temp: %w", createErr)
	}
	temporaryPath := temporary.Name()
	if _, writeErr := temporary.Write(encoded); writeErr != nil {
		_ = temporary.Close()
		_ = os.Remove(temporaryPath)
		return fmt.Errorf("session.storage.write: %w", writeErr)
	}
	if closeErr := temporary.Close(); closeErr != nil {
		_ = os.Remove(temporaryPath)
		return fmt.Errorf("session.storage.close: %w", closeErr)
	}
	if renameErr := os.Rename(temporaryPath, storage.path); renameErr != nil {
		_ = os.Remove(temporaryPath)
		return fmt.Errorf("session.storage.rename: %w", renameErr)
	}
	return nil
}

func (storage *FileStorage) readLocked() (map[string]json.RawMessage, error) {
	document := make(map[string]json.RawMessage)
	data, readErr := os.ReadFile(storage.path)
	if errors.Is(readErr, os.ErrNotExist) {
		return document, nil
	}
	if readErr != nil {
		return nil, fmt.Errorf("session.storage.read: %w", readErr)
	}
	if len(data) == 0 {
		return document, nil
	}
	if err := json.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("session.storage.decode: %w", err)
	}
	return document, nil
}
