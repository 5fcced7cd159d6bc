package codec

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Sum is the fingerprint of a serialized value. It is only an equality oracle.
type Sum [blake2b.Size256]byte

func (s Sum) String() string {
	return hex.EncodeToString(s[:])
}

// Fingerprint returns the blake2b-256 digest of data.
func Fingerprint(data []byte) Sum {
	return blake2b.Sum256(data)
}
