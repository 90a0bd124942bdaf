package scenario

import (
	"sort"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = map[string]Func{}
)

// Register adds a named scenario to the global registry so CLIs and
// bootstrap code can select it by name. Panics if the name is taken.
func Register(name string, fn Func) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; exists {
		panic("scenario: duplicate registration for " + name)
	}
	registry[name] = fn
}

// Lookup returns the scenario registered under name, if any.
func Lookup(name string) (Func, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	fn, ok := registry[name]
	return fn, ok
}

// RegisteredNames returns the sorted names of all registered scenarios.
// Useful for validation and documentation.
func RegisteredNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
