// Package dir implements the canonical [dirshelf.Filer]: one file per key under a root directory,
// with key segments mapped onto nested subdirectories. The directory tree is the index.
package dir

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"syscall"

	"github.com/rs/zerolog"

	"git.tcp.direct/tcp.direct/dirshelf"
	"git.tcp.direct/tcp.direct/dirshelf/kv"
)

var _ dirshelf.Filer = (*Filer)(nil)

const (
	DefaultDirPerm  fs.FileMode = 0o755
	DefaultFilePerm fs.FileMode = 0o644
)

type Option func(*Filer)

// WithPerms sets the permissions used for created directories and files.
func WithPerms(dirPerm, filePerm fs.FileMode) Option {
	return func(f *Filer) {
		f.dirPerm = dirPerm
		f.filePerm = filePerm
	}
}

// WithSyncWrites makes every Put fsync the file before closing it.
func WithSyncWrites() Option {
	return func(f *Filer) {
		f.syncWrites = true
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(f *Filer) {
		f.log = l
	}
}

// Filer keeps each value in its own file below root.
type Filer struct {
	root       string
	dirPerm    fs.FileMode
	filePerm   fs.FileMode
	syncWrites bool
	closed     *atomic.Bool
	log        zerolog.Logger
}

// Open returns a Filer rooted at the absolute, symlink-resolved form of root, creating it if needed.
func Open(root string, opts ...Option) (*Filer, error) {
	f := &Filer{
		dirPerm:  DefaultDirPerm,
		filePerm: DefaultFilePerm,
		closed:   &atomic.Bool{},
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, kv.IOError("open", root, err)
	}
	if err = os.MkdirAll(abs, f.dirPerm); err != nil && !errors.Is(err, fs.ErrExist) {
		return nil, kv.IOError("open", root, fmt.Errorf("error creating root directory: %w", err))
	}
	if abs, err = filepath.EvalSymlinks(abs); err != nil {
		return nil, kv.IOError("open", root, err)
	}
	stat, err := os.Stat(abs)
	if err != nil {
		return nil, kv.IOError("open", root, err)
	}
	if !stat.IsDir() {
		return nil, kv.IOError("open", root, fmt.Errorf("%s is not a directory", abs))
	}
	f.root = abs
	f.log.Debug().Str("root", abs).Msg("opened directory filer")
	return f, nil
}

// Backend returns the root directory.
func (f *Filer) Backend() any {
	return f.root
}

// Path returns the root directory.
func (f *Filer) Path() string {
	return f.root
}

// path maps key onto a file below root without touching the filesystem.
func (f *Filer) path(key string) (string, error) {
	if err := kv.ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(f.root, filepath.FromSlash(key)), nil
}

// Resolve maps key onto a file below root and makes sure its parent directories exist.
func (f *Filer) Resolve(key string) (string, error) {
	return resolve(f.root, key, f.dirPerm)
}

// Resolve maps key onto an absolute file path below root, creating every missing
// intermediate directory. A directory that already exists, including one created
// concurrently by someone else, is not an error.
func Resolve(root, key string) (string, error) {
	return resolve(root, key, DefaultDirPerm)
}

func resolve(root, key string, perm fs.FileMode) (string, error) {
	if err := kv.ValidateKey(key); err != nil {
		return "", err
	}
	p := filepath.Join(root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(p), perm); err != nil && !errors.Is(err, fs.ErrExist) {
		return "", kv.IOError("resolve", key, err)
	}
	return p, nil
}

func (f *Filer) Has(key string) (bool, error) {
	if f.closed.Load() {
		return false, kv.ErrStoreClosed
	}
	p, err := f.path(key)
	if err != nil {
		return false, err
	}
	stat, err := os.Stat(p)
	switch {
	case err == nil:
		return !stat.IsDir(), nil
	case isMissing(err):
		return false, nil
	default:
		return false, kv.IOError("stat", key, err)
	}
}

func (f *Filer) Get(key string) ([]byte, error) {
	if f.closed.Load() {
		return nil, kv.ErrStoreClosed
	}
	p, err := f.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err == nil {
		return data, nil
	}
	if isMissing(err) || isDir(p) {
		return nil, kv.NewNonExistentKeyError(key, err)
	}
	return nil, kv.IOError("read", key, err)
}

func (f *Filer) Put(key string, value []byte) (err error) {
	if f.closed.Load() {
		return kv.ErrStoreClosed
	}
	p, err := f.Resolve(key)
	if err != nil {
		return err
	}
	file, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.filePerm)
	if err != nil {
		return kv.IOError("write", key, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = kv.IOError("write", key, closeErr)
		}
	}()
	if _, err = file.Write(value); err != nil {
		return kv.IOError("write", key, err)
	}
	if f.syncWrites {
		if err = file.Sync(); err != nil {
			return kv.IOError("write", key, err)
		}
	}
	return nil
}

func (f *Filer) Delete(key string) error {
	if f.closed.Load() {
		return kv.ErrStoreClosed
	}
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if isDir(p) {
		return kv.NewNonExistentKeyError(key, nil)
	}
	err = os.Remove(p)
	switch {
	case err == nil:
		return nil
	case isMissing(err):
		return kv.NewNonExistentKeyError(key, err)
	default:
		return kv.IOError("delete", key, err)
	}
}

// Keys walks root recursively and returns every regular file as a logical key, in walk order.
func (f *Filer) Keys() ([]string, error) {
	if f.closed.Load() {
		return nil, kv.ErrStoreClosed
	}
	var keys []string
	err := filepath.WalkDir(f.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if isMissing(err) && path == f.root {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(f.root, path)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, kv.IOError("walk", f.root, err)
	}
	return keys, nil
}

// Sync is a no-op: every Put has already reached the filesystem when it returns.
func (f *Filer) Sync() error {
	if f.closed.Load() {
		return kv.ErrStoreClosed
	}
	return nil
}

func (f *Filer) Close() error {
	if f.closed.Swap(true) {
		return kv.ErrStoreClosed
	}
	f.log.Debug().Str("root", f.root).Msg("closed directory filer")
	return nil
}

// isMissing also covers ENOTDIR, i.e. a lookup of "a/b" when "a" is a regular file.
func isMissing(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

func isDir(p string) bool {
	stat, err := os.Stat(p)
	return err == nil && stat.IsDir()
}
