package client

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

var ErrKeyNotFound = errors.New("no value stored under this key")

// Storage is the durable key-value store behind the session. Implementations
// decide the backing mechanism (plain file, keychain, encrypted store); the
// session layer only relies on this contract.
type Storage interface {
	Read(key string) (string, error)
	Write(key, value string) error
	Clear() error
}

// FileStorage keeps all keys in one JSON file, rewritten atomically via a
// temp file and rename.
type FileStorage struct {
	Path string

	mu sync.Mutex
}

func NewFileStorage(dir string) *FileStorage {
	return &FileStorage{Path: filepath.Join(dir, "session.json")}
}

func (v *FileStorage) load() (map[string]string, error) {
	raw, err := os.ReadFile(v.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}

	data := map[string]string{}
	if err := jsoniter.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (v *FileStorage) Read(key string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	data, err := v.load()
	if err != nil {
		return "", err
	}
	value, ok := data[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return value, nil
}

func (v *FileStorage) Write(key, value string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	data, err := v.load()
	if err != nil {
		return err
	}
	data[key] = value

	raw, err := jsoniter.Marshal(data)
	if err != nil {
		return err
	}

	tmp := v.Path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, v.Path)
}

func (v *FileStorage) Clear() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := os.Remove(v.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// MemoryStorage is a non-durable Storage, mostly useful in tests.
type MemoryStorage struct {
	mu   sync.Mutex
	data map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: map[string]string{}}
}

func (v *MemoryStorage) Read(key string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	value, ok := v.data[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return value, nil
}

func (v *MemoryStorage) Write(key, value string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.data[key] = value
	return nil
}

func (v *MemoryStorage) Clear() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.data = map[string]string{}
	return nil
}
