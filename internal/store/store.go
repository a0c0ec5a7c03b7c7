// Package store provides the small durable key/value layer that settlement
// state survives restarts through.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// KV is the persistence contract for pending-trade state. Put must be durable
// before it returns.
type KV interface {
	Put(key string, value []byte) error
	Get(key string) ([]byte, bool, error)
	Remove(key string) error
}

// Memory keeps values in a map. Used by tests and ephemeral runs.
type Memory struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	m.data[key] = cp
	return nil
}

func (m *Memory) Get(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, true, nil
}

func (m *Memory) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// FileStore persists keys as one JSON document per namespace, rewritten via a
// temp file and rename so a crash never leaves a torn file behind.
type FileStore struct {
	mu   sync.Mutex
	path string
	data map[string]json.RawMessage
}

// NewFileStore opens (or creates) the backing file under dir and loads any
// existing state.
func NewFileStore(dir, namespace string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	fs := &FileStore{
		path: filepath.Join(dir, namespace+".json"),
		data: make(map[string]json.RawMessage),
	}
	raw, err := os.ReadFile(fs.path)
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, &fs.data); err != nil {
			return nil, fmt.Errorf("decode store file %s: %w", fs.path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("read store file %s: %w", fs.path, err)
	}
	return fs, nil
}

// Path returns the location of the backing file.
func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Put(key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make(json.RawMessage, len(value))
	copy(cp, value)
	f.data[key] = cp
	return f.flushLocked()
}

func (f *FileStore) Get(key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, true, nil
}

func (f *FileStore) Remove(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; !ok {
		return nil
	}
	delete(f.data, key)
	return f.flushLocked()
}

func (f *FileStore) flushLocked() error {
	raw, err := json.MarshalIndent(f.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write store file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}
