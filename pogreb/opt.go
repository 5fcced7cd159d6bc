package pogreb

import (
	"encoding/json"

	"github.com/akrylysov/pogreb"
)

type Option func(*WrappedOptions)

var OptionAllowRecovery = func(opts *WrappedOptions) {
	opts.AllowRecovery = true
}

// AllowRecovery lets Open proceed when a lock file from an unclean shutdown is found.
func AllowRecovery() Option {
	return OptionAllowRecovery
}

func SetPogrebOptions(options pogreb.Options) Option {
	return func(opts *WrappedOptions) {
		opts.Options = &options
	}
}

type WrappedOptions struct {
	*pogreb.Options
	// AllowRecovery allows the database to be recovered if a lockfile is detected upon running Open.
	AllowRecovery bool
}

func (w *WrappedOptions) MarshalJSON() ([]byte, error) {
	optData, err := json.Marshal(w.Options)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Options       json.RawMessage `json:"options"`
		AllowRecovery bool            `json:"allow_recovery"`
	}{
		Options:       optData,
		AllowRecovery: w.AllowRecovery,
	})
}

var defaultPogrebOptions = &WrappedOptions{
	Options:       nil,
	AllowRecovery: false,
}

// SetDefaultPogrebOptions options will set the options used for all subsequent pogreb stores that are opened.
func SetDefaultPogrebOptions(pogrebopts ...any) {
	inner, pgoptOk := pogrebopts[0].(pogreb.Options)
	innerPtr, pgoptPtrOk := pogrebopts[0].(*pogreb.Options)
	wrapped, pgoptWrappedOk := pogrebopts[0].(*WrappedOptions)
	wrappedLiteral, pgoptWrappedLiteralOk := pogrebopts[0].(WrappedOptions)
	//goland:noinspection GoDfaConstantCondition
	switch {
	case !pgoptOk && !pgoptWrappedOk && !pgoptPtrOk && !pgoptWrappedLiteralOk:
		panic("invalid pogreb options")
	case pgoptOk:
		defaultPogrebOptions = &WrappedOptions{
			Options:       &inner,
			AllowRecovery: false,
		}
	case pgoptPtrOk:
		defaultPogrebOptions = &WrappedOptions{
			Options:       innerPtr,
			AllowRecovery: false,
		}
	case pgoptWrappedLiteralOk:
		defaultPogrebOptions = &wrappedLiteral
	case pgoptWrappedOk:
		defaultPogrebOptions = wrapped
	}
}

// normalizeOptions folds registry style options into a WrappedOptions, starting from the defaults.
// It returns nil if any of opts is not something pogreb understands.
func normalizeOptions(opts ...any) *WrappedOptions {
	pogrebopts := &WrappedOptions{}
	if defaultPogrebOptions != nil {
		*pogrebopts = *defaultPogrebOptions
	}
	for _, o := range opts {
		switch opt := o.(type) {
		case pogreb.Options:
			pogrebopts.Options = &opt
		case *pogreb.Options:
			pogrebopts.Options = opt
		case WrappedOptions:
			*pogrebopts = opt
		case *WrappedOptions:
			*pogrebopts = *opt
		case Option:
			opt(pogrebopts)
		case func(*WrappedOptions):
			opt(pogrebopts)
		default:
			return nil
		}
	}
	return pogrebopts
}
