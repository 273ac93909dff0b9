package storefakes

import (
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/storefrontapp/authkit/storage"
)

var _ storage.Store = (*FakeStore)(nil)

// FakeStore is an in-memory Store for tests. Individual keys can be made to
// fail on Set or Remove to exercise best-effort paths.
type FakeStore struct {
	values    map[string]json.RawMessage
	setErrs   map[string]error
	removeErr map[string]error
	lock      sync.RWMutex
}

func NewFakeStore() *FakeStore {
	return &FakeStore{
		values:    make(map[string]json.RawMessage),
		setErrs:   make(map[string]error),
		removeErr: make(map[string]error),
	}
}

// FailSet makes every subsequent Set of key return err.
func (fs *FakeStore) FailSet(key string, err error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.setErrs[key] = err
}

// FailRemove makes every subsequent Remove of key return err.
func (fs *FakeStore) FailRemove(key string, err error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.removeErr[key] = err
}

func (fs *FakeStore) Set(key string, value any) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if err, ok := fs.setErrs[key]; ok {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "[FakeStore.Set] marshal %q", key)
	}
	fs.values[key] = raw
	return nil
}

func (fs *FakeStore) Get(key string, out any) (bool, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	raw, ok := fs.values[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, errors.Wrapf(err, "[FakeStore.Get] unmarshal %q", key)
	}
	return true, nil
}

func (fs *FakeStore) Remove(key string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if err, ok := fs.removeErr[key]; ok {
		return err
	}
	delete(fs.values, key)
	return nil
}

func (fs *FakeStore) Contains(key string) bool {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	_, ok := fs.values[key]
	return ok
}

// Len reports the number of stored keys.
func (fs *FakeStore) Len() int {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return len(fs.values)
}
