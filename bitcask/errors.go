package bitcask

import (
	"errors"
	"fmt"
)

//goland:noinspection GoExportedElementShouldHaveComment
var (
	ErrBogusStore = errors.New("bogus store backend")
	ErrBadOptions = errors.New("invalid bitcask option type")
)

func namedErr(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}
