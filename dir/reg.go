package dir

import (
	"fmt"

	"git.tcp.direct/tcp.direct/dirshelf"
	"git.tcp.direct/tcp.direct/dirshelf/registry"
)

// Name is the registry name of the directory backend.
const Name = "dir"

func init() {
	registry.RegisterFiler(Name, func(path string, opt ...any) (dirshelf.Filer, error) {
		opts := make([]Option, 0, len(opt))
		for _, o := range opt {
			dopt, ok := o.(Option)
			if !ok {
				return nil, fmt.Errorf("invalid dir option type: %T", o)
			}
			opts = append(opts, dopt)
		}
		f, err := Open(path, opts...)
		if err != nil {
			return nil, err
		}
		return f, nil
	})
}
