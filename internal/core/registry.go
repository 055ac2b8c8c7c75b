package core

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[FileKind]FileSpec)
	registryMu sync.RWMutex
)

// Register adds a file spec to the registry.
// Panics if a spec with the same kind is already registered.
func Register(spec FileSpec) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[spec.Kind]; exists {
		panic(fmt.Sprintf("file kind already registered: %s", spec.Kind))
	}
	registry[spec.Kind] = spec
}

// Get returns a file spec by kind.
// Returns false if not found.
func Get(kind FileKind) (FileSpec, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	spec, ok := registry[kind]
	return spec, ok
}

// MustGet is Get for kinds registered by this package.
func MustGet(kind FileKind) FileSpec {
	spec, ok := Get(kind)
	if !ok {
		panic(fmt.Sprintf("file kind not registered: %s", kind))
	}
	return spec
}

// All returns all registered specs in run order.
func All() []FileSpec {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]FileSpec, 0, len(registry))
	for _, spec := range registry {
		result = append(result, spec)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Order != result[j].Order {
			return result[i].Order < result[j].Order
		}
		return result[i].Kind < result[j].Kind
	})

	return result
}

// KindCount returns the number of registered file kinds.
func KindCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}
