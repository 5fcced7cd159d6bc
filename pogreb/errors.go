package pogreb

import (
	"errors"
	"fmt"
)

//goland:noinspection GoExportedElementShouldHaveComment
var (
	ErrBogusStore  = errors.New("bogus store backend")
	ErrBadOptions  = errors.New("invalid pogreb options")
	ErrStoreLocked = errors.New("store is locked")
)

func namedErr(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}
