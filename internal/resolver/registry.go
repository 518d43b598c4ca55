package resolver

import (
	"sort"
	"sync"
)

// Global registry of ecosystem resolvers keyed by ecosystem id
var (
	resolvers = make(map[string]Resolver)
	mu        sync.RWMutex
)

// Register adds a resolver to the registry. Registering the same id twice
// replaces the earlier resolver.
func Register(r Resolver) {
	mu.Lock()
	defer mu.Unlock()
	resolvers[r.Name()] = r
}

// Get returns the resolver registered for id
func Get(id string) (Resolver, bool) {
	mu.RLock()
	defer mu.RUnlock()
	r, ok := resolvers[id]
	return r, ok
}

// Registered returns the ids of all registered resolvers in lexical order
func Registered() []string {
	mu.RLock()
	defer mu.RUnlock()
	ids := make([]string, 0, len(resolvers))
	for id := range resolvers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
