package kv

import (
	"bytes"
	"fmt"
	"strings"
)

// KeyValue represents a logical key and the serialized form of its value.
type KeyValue struct {
	Key   *Key
	Value *Value
}

// Key represents a logical, '/' separated key.
type Key struct {
	s string
}

// NewKey creates a new Key from a logical key string.
func NewKey(key string) *Key {
	return &Key{s: key}
}

// NewValue creates a new Value from a byte slice.
func NewValue(data []byte) *Value {
	v := Value{b: data}
	return &v
}

// NewKeyValue creates a new KeyValue from a key and value.
func NewKeyValue(k *Key, v *Value) *KeyValue {
	return &KeyValue{Key: k, Value: v}
}

// NewKeyValueFromBytes is syntactic sugar for NewKeyValue(NewKey(key), NewValue(value)).
func NewKeyValueFromBytes(key string, value []byte) KeyValue {
	return KeyValue{Key: NewKey(key), Value: NewValue(value)}
}

func (kv *KeyValue) String() string {
	return kv.Key.String() + ":" + kv.Value.String()
}

// Equal determines if two key/value pairs are equal.
func (kv *KeyValue) Equal(kv2 *KeyValue) bool {
	return kv.Key.Equal(kv2.Key) && kv.Value.Equal(kv2.Value)
}

// Bytes returns the raw byte slice form of the Key.
func (k *Key) Bytes() []byte {
	return []byte(k.s)
}

// String returns the string form of the Key.
func (k *Key) String() string {
	return k.s
}

// Segments splits the Key on its logical separator.
func (k *Key) Segments() []string {
	return strings.Split(k.s, "/")
}

// Equal determines if two keys are equal, i.e. their segment sequences are equal.
func (k *Key) Equal(k2 *Key) bool {
	return k.s == k2.s
}

// Value represents the serialized form of a value.
type Value struct {
	b []byte
}

// Bytes returns the raw byte slice form of the Value.
func (v *Value) Bytes() []byte {
	return v.b
}

// String returns the string form of the Value.
func (v *Value) String() string {
	return string(v.b)
}

// Equal determines if two values are equal.
func (v *Value) Equal(v2 *Value) bool {
	return bytes.Equal(v.Bytes(), v2.Bytes())
}

// ValidateKey checks that key is a non-empty sequence of '/' separated segments
// that stays below the store root: no leading separator, no empty, "." or ".." segments,
// no backslashes and no NUL bytes.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	if strings.ContainsAny(key, "\\\x00") {
		return fmt.Errorf("%w: %q contains a forbidden character", ErrInvalidKey, key)
	}
	for _, seg := range strings.Split(key, "/") {
		switch seg {
		case "":
			return fmt.Errorf("%w: %q has an empty segment", ErrInvalidKey, key)
		case ".", "..":
			return fmt.Errorf("%w: %q escapes the store root", ErrInvalidKey, key)
		}
	}
	return nil
}
