package dirshelf

import "errors"

// FilerCreator opens a [Filer] rooted at path. Implementations register one with the registry package.
type FilerCreator func(path string, opt ...any) (Filer, error)

var ErrNotStore = errors.New("provided Mapping does not implement Store")

func IsStore[V any](m Mapping[V]) bool {
	_, ok := m.(Store[V])
	return ok
}

func ToStore[V any](m Mapping[V]) (Store[V], error) {
	if s, ok := m.(Store[V]); ok {
		return s, nil
	}
	return nil, ErrNotStore
}
