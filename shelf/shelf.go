// Package shelf implements [dirshelf.Store]: a typed, cached mapping from logical keys to values,
// persisted one key at a time through a [dirshelf.Filer].
//
// In write-back mode every value loaded from the Filer is fingerprinted. Sync re-encodes the
// cached values, compares fingerprints, and writes only what changed, so values mutated in
// place after Get are persisted without calling Set again.
package shelf

import (
	"errors"
	"slices"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"git.tcp.direct/tcp.direct/dirshelf"
	"git.tcp.direct/tcp.direct/dirshelf/codec"
	"git.tcp.direct/tcp.direct/dirshelf/dir"
	"git.tcp.direct/tcp.direct/dirshelf/kv"
)

var _ dirshelf.Store[any] = (*Shelf[any])(nil)

// baselineEntry is what a key looked like on disk the last time we knew.
// The zero value means "no fingerprint": the key is written on the next Sync regardless of content.
type baselineEntry struct {
	sum    codec.Sum
	loaded bool
}

type Shelf[V any] struct {
	mu       sync.Mutex
	filer    dirshelf.Filer
	codec    codec.Codec[V]
	mode     dirshelf.Mode
	cache    map[string]V
	baseline map[string]baselineEntry
	closed   bool
	log      zerolog.Logger
}

// Open returns a Shelf over a directory Filer rooted at root, encoding values as JSON.
// root is created if it does not exist.
func Open[V any](root string, opts ...Option) (*Shelf[V], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	dirOpts := append([]dir.Option{dir.WithLogger(o.log)}, o.dirOpts...)
	f, err := dir.Open(root, dirOpts...)
	if err != nil {
		return nil, err
	}
	return New[V](f, codec.JSON[V]{}, opts...), nil
}

// New returns a Shelf over an already opened Filer. The Shelf owns filer from here on and closes it on Close.
func New[V any](filer dirshelf.Filer, c codec.Codec[V], opts ...Option) *Shelf[V] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	s := &Shelf[V]{
		filer:    filer,
		codec:    c,
		mode:     o.mode,
		cache:    make(map[string]V),
		baseline: make(map[string]baselineEntry),
		log:      o.log.With().Str("caller", "shelf").Str("mode", o.mode.String()).Logger(),
	}
	s.log.Debug().Str("path", filer.Path()).Msg("opened")
	return s
}

// Mode reports whether the Shelf writes through or writes back.
func (s *Shelf[V]) Mode() dirshelf.Mode {
	return s.mode
}

// Path returns the root of the underlying Filer, or an empty string once closed.
func (s *Shelf[V]) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ""
	}
	return s.filer.Path()
}

// Filer returns the underlying Filer.
func (s *Shelf[V]) Filer() dirshelf.Filer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filer
}

// ioErr classifies err coming back from the Filer: taxonomy errors pass through, anything else is ErrIO.
func ioErr(op, key string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, kv.ErrNotFound), errors.Is(err, kv.ErrIO), errors.Is(err, kv.ErrInvalidKey):
		return err
	default:
		return kv.IOError(op, key, err)
	}
}

func (s *Shelf[V]) Get(key string) (V, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(key)
}

func (s *Shelf[V]) get(key string) (V, error) {
	var zero V
	if s.closed {
		return zero, kv.ErrStoreClosed
	}
	if err := kv.ValidateKey(key); err != nil {
		return zero, err
	}
	if v, ok := s.cache[key]; ok {
		return v, nil
	}
	data, err := s.filer.Get(key)
	if err != nil {
		return zero, ioErr("read", key, err)
	}
	v, err := s.codec.Unmarshal(data)
	if err != nil {
		return zero, kv.SerializationError("decode", key, err)
	}
	s.cache[key] = v
	if s.mode == dirshelf.WriteBack {
		s.baseline[key] = baselineEntry{sum: codec.Fingerprint(data), loaded: true}
	}
	s.log.Debug().Str("key", key).Int("size", len(data)).Msg("loaded")
	return v, nil
}

// Set caches value under key. In write-through mode it is also encoded and written before Set returns;
// a failed write leaves the new value cached but not persisted.
func (s *Shelf[V]) Set(key string, value V) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return kv.ErrStoreClosed
	}
	if err := kv.ValidateKey(key); err != nil {
		return err
	}
	s.cache[key] = value
	if s.mode == dirshelf.WriteBack {
		s.baseline[key] = baselineEntry{}
		return nil
	}
	delete(s.baseline, key)
	data, err := s.codec.Marshal(value)
	if err != nil {
		return kv.SerializationError("encode", key, err)
	}
	return ioErr("write", key, s.filer.Put(key, data))
}

// Delete removes key from the Filer and then from the cache.
// A key that was never persisted is only forgiven in write-back mode, and only if it is cached.
func (s *Shelf[V]) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return kv.ErrStoreClosed
	}
	if err := kv.ValidateKey(key); err != nil {
		return err
	}
	err := s.filer.Delete(key)
	_, cached := s.cache[key]
	switch {
	case err == nil:
	case kv.IsNonExistentKey(err) && s.mode == dirshelf.WriteBack && cached:
		s.log.Debug().Str("key", key).Msg("deleting key that was never synced")
	default:
		return ioErr("delete", key, err)
	}
	delete(s.cache, key)
	delete(s.baseline, key)
	return nil
}

func (s *Shelf[V]) Has(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, kv.ErrStoreClosed
	}
	if err := kv.ValidateKey(key); err != nil {
		return false, err
	}
	if _, ok := s.cache[key]; ok {
		return true, nil
	}
	ok, err := s.filer.Has(key)
	return ok, ioErr("stat", key, err)
}

// Keys returns cached keys that the Filer does not know about yet, sorted, followed by the Filer's keys in its own order.
func (s *Shelf[V]) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys()
}

func (s *Shelf[V]) keys() ([]string, error) {
	if s.closed {
		return nil, kv.ErrStoreClosed
	}
	stored, err := s.filer.Keys()
	if err != nil {
		return nil, ioErr("keys", s.filer.Path(), err)
	}
	seen := make(map[string]struct{}, len(stored)+len(s.cache))
	persisted := make([]string, 0, len(stored))
	for _, key := range stored {
		if _, dupe := seen[key]; dupe {
			continue
		}
		seen[key] = struct{}{}
		persisted = append(persisted, key)
	}
	cacheOnly := make([]string, 0)
	for key := range s.cache {
		if _, ok := seen[key]; !ok {
			cacheOnly = append(cacheOnly, key)
		}
	}
	sort.Strings(cacheOnly)
	return append(cacheOnly, persisted...), nil
}

func (s *Shelf[V]) Len() (int, error) {
	keys, err := s.Keys()
	return len(keys), err
}

// Range calls fn with every key and its value, loading values as needed, until fn returns false.
// The lock is not held while fn runs, so fn may use the Shelf. Keys deleted in the meantime are skipped.
func (s *Shelf[V]) Range(fn func(key string, value V) bool) error {
	keys, err := s.Keys()
	if err != nil {
		return err
	}
	for _, key := range keys {
		v, err := s.Get(key)
		switch {
		case kv.IsNonExistentKey(err):
			continue
		case err != nil:
			return err
		}
		if !fn(key, v) {
			return nil
		}
	}
	return nil
}

// Sync writes every pending key whose encoded form differs from what was loaded, then syncs the Filer.
// It returns the keys that were written. A key that fails to encode or write stays pending
// and is reported in the returned error; the other keys are still attempted.
func (s *Shelf[V]) Sync() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sync()
}

func (s *Shelf[V]) sync() ([]string, error) {
	if s.closed {
		return nil, kv.ErrStoreClosed
	}
	written := make([]string, 0)
	if s.mode == dirshelf.WriteThrough {
		return written, ioErr("sync", s.filer.Path(), s.filer.Sync())
	}

	pending := make([]string, 0, len(s.baseline))
	for key := range s.baseline {
		pending = append(pending, key)
	}
	slices.Sort(pending)

	var errs []error
	failed := make(map[string]baselineEntry)
	for _, key := range pending {
		entry := s.baseline[key]
		data, err := s.codec.Marshal(s.cache[key])
		if err != nil {
			errs = append(errs, kv.SerializationError("encode", key, err))
			failed[key] = entry
			continue
		}
		if entry.loaded && entry.sum == codec.Fingerprint(data) {
			continue
		}
		s.log.Debug().Str("key", key).Msg("syncing key")
		if err = s.filer.Put(key, data); err != nil {
			s.log.Warn().Str("key", key).Err(err).Msg("sync failed")
			errs = append(errs, ioErr("write", key, err))
			failed[key] = entry
			continue
		}
		written = append(written, key)
	}
	s.baseline = failed

	if err := s.filer.Sync(); err != nil {
		errs = append(errs, ioErr("sync", s.filer.Path(), err))
	}
	return written, errors.Join(errs...)
}

// Close syncs and then releases the Filer. If the sync fails the Shelf stays open so nothing pending is lost.
func (s *Shelf[V]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.sync(); err != nil {
		return err
	}
	s.closed = true
	s.cache = nil
	s.baseline = nil
	err := s.filer.Close()
	s.log.Debug().Err(err).Msg("closed")
	return ioErr("close", s.filer.Path(), err)
}
