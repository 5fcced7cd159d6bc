// Package bitcask puts a [dirshelf.Filer] in front of a bitcask log-structured store.
// Keys and values land in bitcask data files under the given path rather than one file per key.
package bitcask

import (
	"errors"
	"sync/atomic"

	"git.tcp.direct/Mirrors/bitcask-mirror"

	"git.tcp.direct/tcp.direct/dirshelf"
	"git.tcp.direct/tcp.direct/dirshelf/kv"
)

var _ dirshelf.Filer = (*Store)(nil)

// Store is an implmentation of a Filer using Bitcask.
type Store struct {
	*bitcask.Bitcask
	path   string
	closed *atomic.Bool
}

var defaultBitcaskOptions = []bitcask.Option{
	bitcask.WithMaxKeySize(1024),
	bitcask.WithMaxValueSize(1 << 24),
}

// SetDefaultBitcaskOptions options will set the options used for all subsequent bitcask stores that are opened.
func SetDefaultBitcaskOptions(bitcaskopts ...bitcask.Option) {
	defaultBitcaskOptions = append(defaultBitcaskOptions, bitcaskopts...)
}

// WithMaxDatafileSize is a shim for bitcask's WithMaxDataFileSize function.
func WithMaxDatafileSize(size int) bitcask.Option {
	return bitcask.WithMaxDatafileSize(size)
}

// WithMaxKeySize is a shim for bitcask's WithMaxKeySize function.
func WithMaxKeySize(size uint32) bitcask.Option {
	return bitcask.WithMaxKeySize(size)
}

// WithMaxValueSize is a shim for bitcask's WithMaxValueSize function.
func WithMaxValueSize(size uint64) bitcask.Option {
	return bitcask.WithMaxValueSize(size)
}

// Open will either open an existing bitcask store at the given directory, or it will create a new one.
func Open(path string, opts ...bitcask.Option) (*Store, error) {
	bitcaskopts := make([]bitcask.Option, 0, len(defaultBitcaskOptions)+len(opts))
	bitcaskopts = append(bitcaskopts, defaultBitcaskOptions...)
	bitcaskopts = append(bitcaskopts, opts...)
	c, err := bitcask.Open(path, bitcaskopts...)
	if err != nil {
		return nil, kv.IOError("open", path, err)
	}
	return &Store{Bitcask: c, path: path, closed: &atomic.Bool{}}, nil
}

// Backend returns the underlying bitcask instance.
func (s *Store) Backend() any {
	return s.Bitcask
}

// Path returns the directory holding the bitcask data files.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) check() error {
	if s.closed == nil || s.Bitcask == nil {
		return ErrBogusStore
	}
	if s.closed.Load() {
		return kv.ErrStoreClosed
	}
	return nil
}

func (s *Store) Has(key string) (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}
	if err := kv.ValidateKey(key); err != nil {
		return false, err
	}
	return s.Bitcask.Has([]byte(key)), nil
}

// Get is a wrapper for bitcask's Get function to regularize errors when keys do not exist.
func (s *Store) Get(key string) ([]byte, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if err := kv.ValidateKey(key); err != nil {
		return nil, err
	}
	ret, err := s.Bitcask.Get([]byte(key))
	switch {
	case errors.Is(err, bitcask.ErrKeyNotFound):
		return nil, kv.NewNonExistentKeyError(key, err)
	case err != nil:
		return nil, kv.IOError("read", key, err)
	}
	return ret, kv.RegularizeKVError(key, ret, nil)
}

func (s *Store) Put(key string, value []byte) error {
	if err := s.check(); err != nil {
		return err
	}
	if err := kv.ValidateKey(key); err != nil {
		return err
	}
	return kv.IOError("write", key, s.Bitcask.Put([]byte(key), value))
}

// Delete removes key; bitcask itself happily deletes keys it never saw, so existence is checked first.
func (s *Store) Delete(key string) error {
	if err := s.check(); err != nil {
		return err
	}
	if err := kv.ValidateKey(key); err != nil {
		return err
	}
	if !s.Bitcask.Has([]byte(key)) {
		return kv.NewNonExistentKeyError(key, nil)
	}
	return kv.IOError("delete", key, s.Bitcask.Delete([]byte(key)))
}

// Keys will return all keys in the store.
func (s *Store) Keys() ([]string, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	keys := make([]string, 0, s.Bitcask.Len())
	for key := range s.Bitcask.Keys() {
		keys = append(keys, string(key))
	}
	return keys, nil
}

// Sync is a simple shim for bitcask's Sync function.
func (s *Store) Sync() error {
	if err := s.check(); err != nil {
		return err
	}
	return namedErr(s.path, s.Bitcask.Sync())
}

// Close is a simple shim for bitcask's Close function.
func (s *Store) Close() error {
	if err := s.check(); err != nil {
		return err
	}
	s.closed.Store(true)
	return namedErr(s.path, s.Bitcask.Close())
}
