package bitcask

import (
	"git.tcp.direct/Mirrors/bitcask-mirror"

	"git.tcp.direct/tcp.direct/dirshelf"
	"git.tcp.direct/tcp.direct/dirshelf/registry"
)

// Name is the registry name of the bitcask backend.
const Name = "bitcask"

func init() {
	registry.RegisterFiler(Name, func(path string, opt ...any) (dirshelf.Filer, error) {
		var bitcaskopts []bitcask.Option
		for _, o := range opt {
			bopt, ok := o.(bitcask.Option)
			if !ok {
				return nil, ErrBadOptions
			}
			bitcaskopts = append(bitcaskopts, bopt)
		}
		f, err := Open(path, bitcaskopts...)
		if err != nil {
			return nil, err
		}
		return f, nil
	})
}
