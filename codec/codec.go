// Package codec turns values into the opaque bytes a Filer stores, and fingerprints those bytes.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// Codec converts a value to bytes and back.
//
// Marshal must be deterministic: encoding an unchanged value twice has to produce
// identical bytes, otherwise write-back dirty detection degrades into rewriting every loaded key.
type Codec[V any] interface {
	Marshal(value V) ([]byte, error)
	Unmarshal(data []byte) (V, error)
}

// JSON encodes values with encoding/json. Map keys are emitted sorted, which keeps the output stable.
// Numbers decoded into interface values become json.Number, so integers beyond 2^53 survive
// a decode/encode cycle byte for byte.
type JSON[V any] struct{}

var ErrTrailingData = errors.New("trailing data after JSON value")

func (JSON[V]) Marshal(value V) ([]byte, error) {
	return json.Marshal(value)
}

func (JSON[V]) Unmarshal(data []byte) (V, error) {
	var v V
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return v, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return v, ErrTrailingData
	}
	return v, nil
}

var ErrNilBytes = errors.New("nil byte slice")

// Bytes is the identity codec for raw []byte values.
type Bytes struct{}

func (Bytes) Marshal(value []byte) ([]byte, error) {
	if value == nil {
		return nil, ErrNilBytes
	}
	return value, nil
}

func (Bytes) Unmarshal(data []byte) ([]byte, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
