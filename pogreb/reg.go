package pogreb

import (
	"git.tcp.direct/tcp.direct/dirshelf"
	"git.tcp.direct/tcp.direct/dirshelf/registry"
)

// Name is the registry name of the pogreb backend.
const Name = "pogreb"

func init() {
	registry.RegisterFiler(Name, func(path string, opt ...any) (dirshelf.Filer, error) {
		pogrebopts := normalizeOptions(opt...)
		if pogrebopts == nil {
			return nil, ErrBadOptions
		}
		s, err := open(path, pogrebopts)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}
