package loader

import "errors"

var ErrUnknownBackend = errors.New("backend not found in registry")
