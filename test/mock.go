// Package test holds an in-memory Filer with failure injection, plus cross-backend conformance tests.
package test

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"git.tcp.direct/tcp.direct/dirshelf"
	"git.tcp.direct/tcp.direct/dirshelf/kv"
	"git.tcp.direct/tcp.direct/dirshelf/registry"
)

var _ dirshelf.Filer = (*MockFiler)(nil)

type MockOpt string

const (
	// OptReadOnly makes every Put and Delete fail.
	OptReadOnly MockOpt = "read-only"
	// OptFailSync makes every Sync fail.
	OptFailSync MockOpt = "fail-sync"
)

var (
	ErrBadOptions = errors.New("bad mock filer options")
	ErrInjected   = errors.New("injected failure")
)

// MockFiler keeps values in a map. Failures can be injected per key with FailPut and FailGet.
type MockFiler struct {
	path    string
	values  map[string][]byte
	closed  bool
	Opts    []MockOpt
	failPut map[string]error
	failGet map[string]error
	puts    []string
	mu      sync.RWMutex
}

// NewMockFiler returns an empty MockFiler. opts may be MockOpt values or plain strings.
func NewMockFiler(path string, opts ...any) (*MockFiler, error) {
	m := &MockFiler{
		path:    path,
		values:  make(map[string][]byte),
		failPut: make(map[string]error),
		failGet: make(map[string]error),
	}
	for _, opt := range opts {
		if strOpt, strOK := opt.(string); strOK {
			opt = MockOpt(strOpt)
		}
		mockOpt, ok := opt.(MockOpt)
		if !ok {
			return nil, fmt.Errorf("%w: (%T): %v", ErrBadOptions, opt, opt)
		}
		m.Opts = append(m.Opts, mockOpt)
	}
	return m, nil
}

// RegisterMock makes the mock available from the registry under name.
func RegisterMock(name string) {
	registry.RegisterFiler(name, func(path string, opts ...any) (dirshelf.Filer, error) {
		m, err := NewMockFiler(path, opts...)
		if err != nil {
			return nil, err
		}
		return m, nil
	})
}

// FailPut makes every Put of key return err until cleared with a nil err.
func (m *MockFiler) FailPut(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failPut, key)
		return
	}
	m.failPut[key] = err
}

// FailGet makes every Get of key return err until cleared with a nil err.
func (m *MockFiler) FailGet(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failGet, key)
		return
	}
	m.failGet[key] = err
}

// Puts returns every key written so far, in order, including rewrites.
func (m *MockFiler) Puts() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.puts)
}

// Raw returns the bytes stored under key without any checks.
func (m *MockFiler) Raw(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *MockFiler) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

func (m *MockFiler) Backend() any {
	return m.values
}

func (m *MockFiler) Path() string {
	return m.path
}

func (m *MockFiler) Has(key string) (bool, error) {
	if err := kv.ValidateKey(key); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return false, kv.ErrStoreClosed
	}
	_, ok := m.values[key]
	return ok, nil
}

func (m *MockFiler) Get(key string) ([]byte, error) {
	if err := kv.ValidateKey(key); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, kv.ErrStoreClosed
	}
	if err, ok := m.failGet[key]; ok {
		return nil, kv.IOError("read", key, err)
	}
	val, ok := m.values[key]
	if !ok {
		return nil, kv.NewNonExistentKeyError(key, nil)
	}
	return slices.Clone(val), nil
}

func (m *MockFiler) Put(key string, value []byte) error {
	if err := kv.ValidateKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return kv.ErrStoreClosed
	}
	if err, ok := m.failPut[key]; ok {
		return kv.IOError("write", key, err)
	}
	if slices.Contains(m.Opts, OptReadOnly) {
		return kv.IOError("write", key, ErrInjected)
	}
	m.values[key] = slices.Clone(value)
	m.puts = append(m.puts, key)
	return nil
}

func (m *MockFiler) Delete(key string) error {
	if err := kv.ValidateKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return kv.ErrStoreClosed
	}
	if slices.Contains(m.Opts, OptReadOnly) {
		return kv.IOError("delete", key, ErrInjected)
	}
	if _, ok := m.values[key]; !ok {
		return kv.NewNonExistentKeyError(key, nil)
	}
	delete(m.values, key)
	return nil
}

// Keys returns every key in sorted order, standing in for a deterministic walk.
func (m *MockFiler) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, kv.ErrStoreClosed
	}
	k := make([]string, 0, len(m.values))
	for key := range m.values {
		k = append(k, key)
	}
	slices.Sort(k)
	return k, nil
}

func (m *MockFiler) Sync() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return kv.ErrStoreClosed
	}
	if slices.Contains(m.Opts, OptFailSync) {
		return ErrInjected
	}
	return nil
}

func (m *MockFiler) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return kv.ErrStoreClosed
	}
	m.closed = true
	return nil
}
