package dirshelf

// Mapping is an associative container over logical keys, persisting each value through a [Filer].
//
// Values placed into a Mapping belong to it until deleted; callers may keep references,
// and in write-back mode in-place mutation of those references is picked up by Sync.
type Mapping[V any] interface {
	// Get returns the value for key, loading it from the Filer on first access.
	Get(key string) (V, error)
	// Set stores value under key. Depending on [Mode] it is written immediately or on the next Sync.
	Set(key string, value V) error
	// Delete removes key from both the cache and the Filer.
	Delete(key string) error
	// Has reports whether key is cached or persisted.
	Has(key string) (bool, error)
	// Keys returns the union of cached and persisted keys, each exactly once.
	Keys() ([]string, error)
	// Len returns len(Keys()).
	Len() (int, error)
	// Range calls fn for every key and its value until fn returns false.
	Range(fn func(key string, value V) bool) error
	// Sync flushes pending write-back changes and returns the keys actually written.
	Sync() ([]string, error)
	// Close syncs and then renders the Mapping unusable.
	Close() error
}

// Store is an implementation of a Mapping and a Searcher.
type Store[V any] interface {
	Mapping[V]
	Searcher[V]
}
