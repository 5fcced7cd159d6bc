package dirshelf

// Filer is the byte level persistence boundary a [Mapping] is written against.
// Keys are logical, '/' separated paths; values are opaque byte slices.
//
// The canonical implementation lives in the dir package and keeps one file per key,
// but any of the popular golang key/value libraries can sit behind it (see the bitcask and pogreb packages).
type Filer interface {
	// Backend should return the underlying store, e.g. the root path or a *pogreb.DB.
	Backend() any
	// Path should return the directory the Filer persists to.
	Path() string
	// Has should return true if the given key has an associated value.
	Has(key string) (bool, error)
	// Get should retrieve the bytes stored under key. A missing key must
	// produce an error satisfying kv.IsNonExistentKey.
	Get(key string) ([]byte, error)
	// Put should insert value so that it can be retrieved by the given key.
	Put(key string, value []byte) error
	// Delete should remove key. A missing key must produce an error satisfying kv.IsNonExistentKey.
	Delete(key string) error
	// Keys should enumerate every persisted key.
	Keys() ([]string, error)
	// Sync should take any volatile data and solidify it. (ram to disk in most cases)
	Sync() error
	// Close should release any handles held by the Filer.
	Close() error
}
