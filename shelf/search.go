package shelf

import (
	"bytes"
	"strings"

	"git.tcp.direct/kayos/common"

	"git.tcp.direct/tcp.direct/dirshelf/kv"
)

// raw returns the encoded form of key: the cached value re-encoded if present, else the stored bytes.
func (s *Shelf[V]) raw(key string) ([]byte, error) {
	if v, ok := s.cache[key]; ok {
		data, err := s.codec.Marshal(v)
		if err != nil {
			return nil, kv.SerializationError("encode", key, err)
		}
		return data, nil
	}
	data, err := s.filer.Get(key)
	return data, ioErr("read", key, err)
}

func (s *Shelf[V]) scan(match func(key string, raw []byte) bool, keyFilter func(key string) bool) ([]kv.KeyValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys, err := s.keys()
	if err != nil {
		return nil, err
	}
	res := make([]kv.KeyValue, 0)
	for _, key := range keys {
		if keyFilter != nil && !keyFilter(key) {
			continue
		}
		raw, err := s.raw(key)
		if err != nil {
			return res, err
		}
		if match == nil || match(key, raw) {
			res = append(res, kv.NewKeyValueFromBytes(key, raw))
		}
	}
	return res, nil
}

// PrefixScan returns every key starting with prefix, along with the encoded form of its value.
func (s *Shelf[V]) PrefixScan(prefix string) ([]kv.KeyValue, error) {
	return s.scan(nil, func(key string) bool {
		return strings.HasPrefix(key, prefix)
	})
}

// Search returns every key whose encoded value contains query.
// Note that query is matched against the encoded form, e.g. JSON with its quoting.
func (s *Shelf[V]) Search(query string) ([]kv.KeyValue, error) {
	needle := []byte(query)
	return s.scan(func(_ string, raw []byte) bool {
		return bytes.Contains(raw, needle)
	}, nil)
}

// ValueExists will check for the existence of a value anywhere within the keyspace;
// returning the first Key found and true if found, or an empty string and false if not.
func (s *Shelf[V]) ValueExists(value V) (key string, ok bool) {
	needle, err := s.codec.Marshal(value)
	if err != nil {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	keys, err := s.keys()
	if err != nil {
		return "", false
	}
	for _, key = range keys {
		raw, err := s.raw(key)
		if err != nil {
			continue
		}
		if common.CompareChecksums(needle, raw) {
			return key, true
		}
	}
	return "", false
}
