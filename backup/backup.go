// Package backup snapshots a store's root directory into a gzipped tarball and restores it again.
package backup

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

type Format string

const (
	FormatTarGz Format = "tar.gz"
	FormatTar   Format = "tar"
	FormatZip   Format = "zip"
)

// Backup describes a finished archive.
type Backup interface {
	Metadata() BackupMetadata
	Format() string
	Path() string
}

var _ Backup = &TarGzBackup{}

type Checksum struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type BackupMetadata struct {
	Date       time.Time `json:"timestamp"`
	FileFormat string    `json:"format"`
	FilePath   string    `json:"path"`
	Keys       []string  `json:"keys,omitempty"`
	Checksum   Checksum  `json:"checksum,omitempty"`
	Size       int64     `json:"size,omitempty"`
}

func (bm BackupMetadata) MarshalJSON() ([]byte, error) {
	mdat := map[string]interface{}{
		"timestamp": bm.Date,
		"format":    bm.FileFormat,
		"path":      bm.FilePath,
		"keys":      bm.Keys,
		"checksum":  bm.Checksum,
	}
	if bm.Size > 0 {
		mdat["size"] = bm.Size
	}
	return json.Marshal(mdat)
}

func (bm BackupMetadata) Type() string {
	return bm.FileFormat
}

func (bm BackupMetadata) Timestamp() time.Time {
	return bm.Date
}

func (bm BackupMetadata) Format() string {
	return bm.FileFormat
}

func (bm BackupMetadata) Path() string {
	return bm.FilePath
}

type TarGzBackup struct {
	path      string
	size      int64
	keys      []string
	checksum  Checksum
	timestamp time.Time
}

func (tgz *TarGzBackup) Format() string {
	return string(FormatTarGz)
}

func (tgz *TarGzBackup) Path() string {
	return tgz.path
}

func (tgz *TarGzBackup) Metadata() BackupMetadata {
	return BackupMetadata{
		FileFormat: tgz.Format(),
		FilePath:   tgz.path,
		Keys:       tgz.keys,
		Checksum:   tgz.checksum,
		Size:       tgz.size,
		Date:       tgz.timestamp,
	}
}

// ErrArchiveInsideTree is returned when the archive would be written into the tree being archived.
var ErrArchiveInsideTree = errors.New("backup archive path is inside the directory being backed up")

// countingHash hashes everything written through it and counts the bytes.
type countingHash struct {
	hash.Hash
	n int64
}

func (c *countingHash) Write(p []byte) (int, error) {
	n, err := c.Hash.Write(p)
	c.n += int64(n)
	return n, err
}

// within reports whether path is root itself or lies below it.
func within(root, path string) (bool, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false, err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return false, nil
	}
	return filepath.IsLocal(rel) || rel == ".", nil
}

// NewTarGzBackup streams the directory tree at inPath into a gzipped tarball at outPath. If outPath
// is a directory the archive is named after inPath. Every entry of keys must be archived as a regular
// file (keys use '/' separators, the same as tar entry names), otherwise nothing is left at outPath.
// The archive is written to a sibling file first and renamed into place once complete.
func NewTarGzBackup(inPath string, outPath string, keys []string, extraData ...[]byte) (BackupMetadata, error) {
	nilBackup := BackupMetadata{}
	stat, err := os.Stat(inPath)
	if err != nil {
		return nilBackup, fmt.Errorf("error collecting files to backup: %w", err)
	}
	if !stat.IsDir() {
		return nilBackup, fmt.Errorf("error collecting files to backup, not a directory: %s", stat.Name())
	}
	if stat, err = os.Stat(outPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nilBackup, fmt.Errorf("error checking backup path: %w", err)
	}
	if stat != nil && stat.IsDir() {
		outPath = filepath.Join(outPath, filepath.Base(filepath.Clean(inPath))+".tar.gz")
	}
	inside, err := within(inPath, outPath)
	if err != nil {
		return nilBackup, fmt.Errorf("error checking backup path: %w", err)
	}
	if inside {
		return nilBackup, fmt.Errorf("%w: %s", ErrArchiveInsideTree, outPath)
	}

	partial := outPath + ".partial"
	f, err := os.Create(partial)
	if err != nil {
		return nilBackup, fmt.Errorf("error creating backup file: %w", err)
	}
	done := false
	defer func() {
		_ = f.Close()
		if !done {
			_ = os.Remove(partial)
		}
	}()

	sum := &countingHash{Hash: sha256.New()}
	gz := gzip.NewWriter(io.MultiWriter(f, sum))
	gz.Comment = "git.tcp.direct/tcp.direct/dirshelf backup archive"
	for _, data := range extraData {
		gz.Comment += "\n" + string(data)
	}
	tw := tar.NewWriter(gz)

	archived := make(map[string]struct{})
	err = filepath.WalkDir(inPath, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(inPath, p)
		if err != nil || rel == "." {
			return err
		}
		name := filepath.ToSlash(rel)
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !d.IsDir() && !info.Mode().IsRegular() {
			return fmt.Errorf("cannot back up %s: not a regular file", name)
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = name
		if d.IsDir() {
			hdr.Name += "/"
		}
		if err = tw.WriteHeader(hdr); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		archived[name] = struct{}{}
		return copyInto(tw, p)
	})
	if err != nil {
		return nilBackup, fmt.Errorf("error adding files to backup: %w", err)
	}
	for _, key := range keys {
		if _, ok := archived[key]; !ok {
			return nilBackup, fmt.Errorf("key %s not found in backup", key)
		}
	}
	if err = tw.Close(); err != nil {
		return nilBackup, fmt.Errorf("error closing backup tar stream: %w", err)
	}
	if err = gz.Close(); err != nil {
		return nilBackup, fmt.Errorf("error closing backup gzip stream: %w", err)
	}
	if err = f.Sync(); err != nil {
		return nilBackup, fmt.Errorf("error syncing backup file: %w", err)
	}
	if err = os.Rename(partial, outPath); err != nil {
		return nilBackup, fmt.Errorf("error moving backup into place: %w", err)
	}
	done = true

	tgz := &TarGzBackup{
		path:      outPath,
		size:      sum.n,
		keys:      keys,
		timestamp: time.Now(),
		checksum: Checksum{
			Type:  "sha256",
			Value: fmt.Sprintf("%x", sum.Sum(nil)),
		},
	}
	return tgz.Metadata(), nil
}

func copyInto(w io.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = src.Close()
	}()
	_, err = io.Copy(w, src)
	return err
}

// RestoreTarGzBackup unpacks the archive at inPath below outPath, refusing entries that would escape it.
func RestoreTarGzBackup(inPath string, outPath string) error {
	stat, err := os.Stat(inPath)
	if err != nil {
		return fmt.Errorf("error checking backup file: %w", err)
	}
	if stat.IsDir() {
		return fmt.Errorf("error checking backup file, not a file: %s", stat.Name())
	}
	f, ferr := os.Open(inPath)
	if ferr != nil {
		return fmt.Errorf("error opening backup file: %w", ferr)
	}
	defer func() {
		_ = f.Close()
	}()

	gz, gerr := gzip.NewReader(f)
	if gerr != nil {
		return fmt.Errorf("error creating gzip reader: %w", gerr)
	}

	buf := make([]byte, 1024)

	tfr := tar.NewReader(gz)
	var entry *tar.Header

	for {
		entry, err = tfr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("error reading tar file: %w", err)
		}
		if !filepath.IsLocal(entry.Name) {
			return fmt.Errorf("tar file contains invalid path: %s", entry.Name)
		}
		target := filepath.Join(outPath, filepath.FromSlash(entry.Name))
		switch entry.Typeflag {
		case tar.TypeDir:
			if err = os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("error creating directory: %w", err)
			}
		case tar.TypeReg:
			if err = restoreFile(target, tfr, buf); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unsupported tar file type: %c", entry.Typeflag)
		}
	}

	return nil
}

func restoreFile(target string, r io.Reader, buf []byte) error {
	dirStat, dirErr := os.Stat(filepath.Dir(target))
	switch {
	case errors.Is(dirErr, os.ErrNotExist):
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return fmt.Errorf("error creating directory: %w", err)
		}
	case dirErr != nil:
		return fmt.Errorf("error checking output directory: %w", dirErr)
	case !dirStat.IsDir():
		return fmt.Errorf("directory in backup exists in outpath as a file: %s", filepath.Dir(target))
	}
	file, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("error creating file %s: %w", target, err)
	}
	if _, err = io.CopyBuffer(file, r, buf); err != nil {
		_ = file.Close()
		return fmt.Errorf("error writing file: %w", err)
	}
	if err = file.Close(); err != nil {
		return fmt.Errorf("error closing file (%s): %w", file.Name(), err)
	}
	return nil
}
