package dirshelf

import "git.tcp.direct/tcp.direct/dirshelf/kv"

// Searcher must be able to search through a Mapping with strings.
type Searcher[V any] interface {
	// PrefixScan must return every key starting with prefix along with its serialized value.
	PrefixScan(prefix string) ([]kv.KeyValue, error)
	// Search must return every key whose serialized value contains query.
	Search(query string) ([]kv.KeyValue, error)
	// ValueExists searches for an exact match of the given value and returns the key that contains it.
	ValueExists(value V) (key string, ok bool)
}
