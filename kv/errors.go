package kv

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrNotFound is matched by every "absent" condition: missing keys and closed stores.
	ErrNotFound = errors.New("not found")
	// ErrIO marks filesystem failures unrelated to existence (permissions, disk full, path too long).
	ErrIO = errors.New("i/o failure")
	// ErrSerialization marks values that could not be encoded or bytes that could not be decoded.
	ErrSerialization = errors.New("serialization failure")
	// ErrInvalidKey is returned for empty keys and keys that would escape the store root.
	ErrInvalidKey = errors.New("invalid key")
	// ErrStoreClosed is returned by every operation on a closed store.
	// It matches both ErrNotFound and fs.ErrClosed.
	ErrStoreClosed error = closedError{}
)

type closedError struct{}

func (closedError) Error() string {
	return "store closed"
}

func (closedError) Is(target error) bool {
	return target == ErrNotFound || target == fs.ErrClosed
}

// NonExistentKeyError is an error type for when a key does not exist or has no value.
// This allows us to maintain consistency in error handling across different key-value stores.
// See [RegularizeKVError] for more information.
type NonExistentKeyError struct {
	Key        string
	Underlying error
}

func (neke *NonExistentKeyError) Error() string {
	if neke.Underlying != nil {
		return fmt.Sprintf("key %s does not exist or has no value: %s", neke.Key, neke.Underlying)
	}
	return fmt.Sprintf("key %s does not exist or has no value", neke.Key)
}

// Unwrap returns the underlying error, if any. This implements the errors.Wrapper interface.
func (neke *NonExistentKeyError) Unwrap() error {
	return neke.Underlying
}

// Is makes every NonExistentKeyError match [ErrNotFound].
func (neke *NonExistentKeyError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNonExistentKeyError is syntactic sugar for &NonExistentKeyError{Key: key, Underlying: underlying}.
func NewNonExistentKeyError(key string, underlying error) *NonExistentKeyError {
	return &NonExistentKeyError{Key: key, Underlying: underlying}
}

// RegularizeKVError returns a regularized error for a key-value store.
// This exists because some key-value stores return nil for a value and nil for an error when a key does not exist.
func RegularizeKVError(key string, value []byte, err error) error {
	neke := &NonExistentKeyError{}
	switch {
	case err == nil && value != nil:
		return nil
	case err == nil: // && value == nil
		neke.Key = key
		return neke
	case value == nil: // && err != nil
		neke.Key = key
		neke.Underlying = err
		return neke
	default: // err != nil && value != nil
		return err
	}
}

// IsNonExistentKey returns true if the error is a [NonExistentKeyError]. This is syntactic sugar.
func IsNonExistentKey(err error) bool {
	neke := &NonExistentKeyError{}
	return errors.As(err, &neke)
}

// OpError records a failed operation on a key along with the kind of failure
// ([ErrIO] or [ErrSerialization]) and its cause. errors.Is matches both.
type OpError struct {
	Op   string
	Key  string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s %s: %s: %s", e.Op, e.Key, e.Kind, e.Err)
}

func (e *OpError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// IOError wraps err as an [ErrIO] failure of op on key.
func IOError(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Key: key, Kind: ErrIO, Err: err}
}

// SerializationError wraps err as an [ErrSerialization] failure of op on key.
func SerializationError(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Key: key, Kind: ErrSerialization, Err: err}
}
