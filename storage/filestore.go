package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

var _ Store = (*FileStore)(nil)

// FileStore is a Store backed by a single JSON file. The whole key space is
// held in memory and flushed to disk on every mutation with an atomic
// write (temp file + rename), so a crash never leaves a half-written file.
type FileStore struct {
	path   string
	lock   sync.RWMutex
	values map[string]json.RawMessage
}

// NewFileStore opens (or creates) the store at path. Parent directories are
// created as needed. An unreadable or corrupt file is an error rather than
// silent data loss.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "[NewFileStore] os.MkdirAll")
	}

	fs := &FileStore{
		path:   path,
		values: make(map[string]json.RawMessage),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fs, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[NewFileStore] os.ReadFile")
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &fs.values); err != nil {
			return nil, errors.Wrap(err, "[NewFileStore] corrupt store file")
		}
	}
	return fs, nil
}

func (fs *FileStore) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "[FileStore.Set] marshal %q", key)
	}

	fs.lock.Lock()
	defer fs.lock.Unlock()

	fs.values[key] = raw
	return fs.persist()
}

func (fs *FileStore) Get(key string, out any) (bool, error) {
	fs.lock.RLock()
	raw, ok := fs.values[key]
	fs.lock.RUnlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, errors.Wrapf(err, "[FileStore.Get] unmarshal %q", key)
	}
	return true, nil
}

func (fs *FileStore) Remove(key string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if _, ok := fs.values[key]; !ok {
		return nil
	}
	delete(fs.values, key)
	return fs.persist()
}

func (fs *FileStore) Contains(key string) bool {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	_, ok := fs.values[key]
	return ok
}

// persist flushes the in-memory map to disk. Callers must hold the write lock.
func (fs *FileStore) persist() error {
	data, err := json.MarshalIndent(fs.values, "", "  ")
	if err != nil {
		return errors.Wrap(err, "[FileStore.persist] marshal")
	}

	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrap(err, "[FileStore.persist] write temp file")
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		return errors.Wrap(err, "[FileStore.persist] rename")
	}
	return nil
}
