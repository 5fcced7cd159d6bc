package backup

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
)

var (
	ErrUnsupportedFormat   = errors.New("unsupported backup format")
	ErrUnsupportedChecksum = errors.New("unsupported checksum type")
	ErrChecksumMismatch    = errors.New("checksums do not match")
)

var checksumHashes = map[string]func() hash.Hash{
	"sha256": sha256.New,
	"sha512": sha512.New,
	"sha1":   sha1.New,
	"md5":    md5.New,
}

// VerifyBackup hashes the archive at path and compares it against the checksum recorded in metadata.
func VerifyBackup(metadata BackupMetadata, path string) error {
	if metadata.Format() != string(FormatTarGz) {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, metadata.Format())
	}
	newHash, ok := checksumHashes[metadata.Checksum.Type]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedChecksum, metadata.Checksum.Type)
	}
	archive, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening backup file: %w", err)
	}
	defer func() {
		_ = archive.Close()
	}()

	h := newHash()
	n, err := io.Copy(h, archive)
	if err != nil {
		return fmt.Errorf("error hashing backup file: %w", err)
	}
	if metadata.Size > 0 && n != metadata.Size {
		return fmt.Errorf("%w: %s is %d bytes, recorded %d", ErrChecksumMismatch, path, n, metadata.Size)
	}
	if got := hex.EncodeToString(h.Sum(nil)); got != metadata.Checksum.Value {
		return fmt.Errorf("%w: %s", ErrChecksumMismatch, path)
	}
	return nil
}
