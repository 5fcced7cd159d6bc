package shelf

import (
	"github.com/rs/zerolog"

	"git.tcp.direct/tcp.direct/dirshelf"
	"git.tcp.direct/tcp.direct/dirshelf/dir"
)

type options struct {
	mode    dirshelf.Mode
	log     zerolog.Logger
	dirOpts []dir.Option
}

func defaultOptions() *options {
	return &options{
		mode: dirshelf.WriteThrough,
		log:  zerolog.Nop(),
	}
}

type Option func(*options)

// WithWriteBack defers persistence until Sync or Close.
func WithWriteBack() Option {
	return WithMode(dirshelf.WriteBack)
}

func WithMode(mode dirshelf.Mode) Option {
	return func(o *options) {
		o.mode = mode
	}
}

// WithLogger sets the sink for debug and warning events. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithDirOptions passes options to the directory Filer created by Open. New ignores them.
func WithDirOptions(opts ...dir.Option) Option {
	return func(o *options) {
		o.dirOpts = append(o.dirOpts, opts...)
	}
}
