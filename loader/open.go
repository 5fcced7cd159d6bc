// Package loader opens a shelf on any backend registered with the registry package.
// Importing it registers the dir, bitcask and pogreb backends.
package loader

import (
	"fmt"

	"git.tcp.direct/tcp.direct/dirshelf"
	_ "git.tcp.direct/tcp.direct/dirshelf/bitcask" // register bitcask
	"git.tcp.direct/tcp.direct/dirshelf/codec"
	_ "git.tcp.direct/tcp.direct/dirshelf/dir" // register dir
	_ "git.tcp.direct/tcp.direct/dirshelf/pogreb" // register pogreb
	"git.tcp.direct/tcp.direct/dirshelf/registry"
	"git.tcp.direct/tcp.direct/dirshelf/shelf"
)

// OpenFiler opens the Filer registered as backend at path, passing opts through to it.
func OpenFiler(backend, path string, opts ...any) (dirshelf.Filer, error) {
	var filerCreator dirshelf.FilerCreator
	if filerCreator = registry.GetFiler(backend); filerCreator == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, backend)
	}
	filer, err := filerCreator(path, opts...)
	if err != nil {
		return nil, fmt.Errorf("error substantiating %s filer: %w", backend, err)
	}
	return filer, nil
}

// Open opens a JSON encoded shelf on the backend registered as backend.
func Open[V any](backend, path string, opts ...shelf.Option) (*shelf.Shelf[V], error) {
	return OpenWith[V](backend, path, nil, opts...)
}

// OpenWith is Open with backend specific options, e.g. bitcask.WithMaxKeySize or pogreb.AllowRecovery.
func OpenWith[V any](backend, path string, filerOpts []any, opts ...shelf.Option) (*shelf.Shelf[V], error) {
	filer, err := OpenFiler(backend, path, filerOpts...)
	if err != nil {
		return nil, err
	}
	return shelf.New[V](filer, codec.JSON[V]{}, opts...), nil
}
