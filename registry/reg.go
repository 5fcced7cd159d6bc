package registry

import (
	"sort"
	"sync"

	"git.tcp.direct/tcp.direct/dirshelf"
)

var (
	filerIndex = make(map[string]dirshelf.FilerCreator)
	regMu      = &sync.RWMutex{}
)

// RegisterFiler registers a new [dirshelf.FilerCreator];
// a function that opens a [dirshelf.Filer] backend,
// under the given name in the global registry.
func RegisterFiler(name string, creator dirshelf.FilerCreator) {
	regMu.Lock()
	filerIndex[name] = creator
	regMu.Unlock()
}

// GetFiler retrieves a [dirshelf.FilerCreator] from the global registry by name.
func GetFiler(name string) dirshelf.FilerCreator {
	regMu.RLock()
	f := filerIndex[name]
	regMu.RUnlock()
	return f
}

// AllFilers returns the sorted names of all registered [dirshelf.Filer] backends.
func AllFilers() []string {
	regMu.RLock()
	names := make([]string, 0, len(filerIndex))
	for k := range filerIndex {
		names = append(names, k)
	}
	regMu.RUnlock()
	sort.Strings(names)
	return names
}
