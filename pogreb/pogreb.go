// Package pogreb puts a [dirshelf.Filer] in front of a pogreb embedded key-value store.
package pogreb

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/akrylysov/pogreb"

	"git.tcp.direct/tcp.direct/dirshelf"
	"git.tcp.direct/tcp.direct/dirshelf/kv"
)

var _ dirshelf.Filer = (*Store)(nil)

// Store is an implmentation of a Filer using pogreb.
type Store struct {
	*pogreb.DB
	path    string
	opts    *WrappedOptions
	closed  *atomic.Bool
	metrics *pogreb.Metrics
}

type CombinedMetrics struct {
	Puts           int64 `json:"puts"`
	Dels           int64 `json:"dels"`
	Gets           int64 `json:"gets"`
	HashCollisions int64 `json:"hash_collisions"`
}

func CombineMetrics(metrics ...*pogreb.Metrics) *CombinedMetrics {
	var c = &CombinedMetrics{}
	for _, m := range metrics {
		if m == nil {
			continue
		}
		c.Puts += m.Puts.Value()
		c.Dels += m.Dels.Value()
		c.Gets += m.Gets.Value()
		c.HashCollisions += m.HashCollisions.Value()
	}
	return c
}

func (cm *CombinedMetrics) Equal(other *CombinedMetrics) bool {
	return cm.Puts == other.Puts && cm.Dels == other.Dels && cm.Gets == other.Gets && cm.HashCollisions == other.HashCollisions
}

// Open will either open an existing pogreb store at the given directory, or it will create a new one.
func Open(path string, opts ...Option) (*Store, error) {
	pogrebopts := &WrappedOptions{}
	if defaultPogrebOptions != nil {
		*pogrebopts = *defaultPogrebOptions
	}
	for _, opt := range opts {
		opt(pogrebopts)
	}
	return open(path, pogrebopts)
}

func open(path string, pogrebOpts *WrappedOptions) (*Store, error) {
	if _, err := os.Stat(filepath.Join(path, "lock")); !os.IsNotExist(err) && !pogrebOpts.AllowRecovery {
		return nil, fmt.Errorf("%w: %s seems to be in use... "+
			"Please close it first, or use AllowRecovery", ErrStoreLocked, path)
	}
	c, err := pogreb.Open(path, pogrebOpts.Options)
	if err != nil {
		return nil, kv.IOError("open", path, err)
	}
	return &Store{DB: c, path: path, opts: pogrebOpts, closed: &atomic.Bool{}}, nil
}

// Backend returns the underlying pogreb instance.
func (pstore *Store) Backend() any {
	return pstore.DB
}

// Path returns the directory holding the pogreb index and segments.
func (pstore *Store) Path() string {
	return pstore.path
}

// Metrics returns a snapshot of pogreb's operation counters, which survives Close.
func (pstore *Store) Metrics() *CombinedMetrics {
	if pstore.DB != nil && pstore.closed != nil && !pstore.closed.Load() {
		pstore.metrics = pstore.DB.Metrics()
	}
	return CombineMetrics(pstore.metrics)
}

func (pstore *Store) check() error {
	if pstore.closed == nil || pstore.DB == nil {
		return ErrBogusStore
	}
	if pstore.closed.Load() {
		return kv.ErrStoreClosed
	}
	return nil
}

func (pstore *Store) Has(key string) (bool, error) {
	if err := pstore.check(); err != nil {
		return false, err
	}
	if err := kv.ValidateKey(key); err != nil {
		return false, err
	}
	ok, err := pstore.DB.Has([]byte(key))
	return ok, kv.IOError("stat", key, err)
}

// Get is a wrapper for pogreb's Get function to regularize errors when keys do not exist.
func (pstore *Store) Get(key string) ([]byte, error) {
	if err := pstore.check(); err != nil {
		return nil, err
	}
	if err := kv.ValidateKey(key); err != nil {
		return nil, err
	}
	ret, err := pstore.DB.Get([]byte(key))
	if err != nil {
		return nil, kv.IOError("read", key, err)
	}
	if err = kv.RegularizeKVError(key, ret, nil); err != nil {
		// pogreb hands back nil for an empty value, so ask again before calling it missing.
		if ok, _ := pstore.DB.Has([]byte(key)); ok {
			return []byte{}, nil
		}
		return nil, err
	}
	return ret, nil
}

func (pstore *Store) Put(key string, value []byte) error {
	if err := pstore.check(); err != nil {
		return err
	}
	if err := kv.ValidateKey(key); err != nil {
		return err
	}
	return kv.IOError("write", key, pstore.DB.Put([]byte(key), value))
}

// Delete removes key; pogreb does not complain about keys it never saw, so existence is checked first.
func (pstore *Store) Delete(key string) error {
	if err := pstore.check(); err != nil {
		return err
	}
	if err := kv.ValidateKey(key); err != nil {
		return err
	}
	ok, err := pstore.DB.Has([]byte(key))
	if err != nil {
		return kv.IOError("delete", key, err)
	}
	if !ok {
		return kv.NewNonExistentKeyError(key, nil)
	}
	return kv.IOError("delete", key, pstore.DB.Delete([]byte(key)))
}

// Keys will return all keys in the store, in pogreb's hash order.
func (pstore *Store) Keys() ([]string, error) {
	if err := pstore.check(); err != nil {
		return nil, err
	}
	iter := pstore.DB.Items()
	ks := make([]string, 0, pstore.DB.Count())
	for {
		k, _, err := iter.Next()
		if errors.Is(err, pogreb.ErrIterationDone) {
			break
		}
		if err != nil {
			return nil, kv.IOError("walk", pstore.path, err)
		}
		ks = append(ks, string(k))
	}
	return ks, nil
}

// Sync is a simple shim for pogreb's Sync function.
func (pstore *Store) Sync() error {
	if err := pstore.check(); err != nil {
		return err
	}
	return namedErr(pstore.path, pstore.DB.Sync())
}

// Close is a simple shim for pogreb's Close function.
func (pstore *Store) Close() error {
	if err := pstore.check(); err != nil {
		return err
	}
	pstore.closed.Store(true)
	pstore.metrics = pstore.DB.Metrics()
	return namedErr(pstore.path, pstore.DB.Close())
}
