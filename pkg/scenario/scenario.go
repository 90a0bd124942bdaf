// Package scenario defines the contract for scenario functions: named
// units that populate a handler set to represent one coherent mocked
// backend behavior. A scenario depends only on engine.HandlerRegistrar,
// so the same function configures the in-process adapter in tests and
// the live proxy in a running application.
package scenario

import "github.com/mockwire/mockwire/pkg/engine"

// Func populates a handler set through the registrar. Implementations
// must only append handlers during the call: never retain the registrar,
// never mutate handlers already registered. Calling a Func twice is
// harmless given reverse-order first-match precedence.
type Func func(r engine.HandlerRegistrar)

// Compose returns a scenario that applies each given scenario in order.
// Later scenarios shadow earlier ones where patterns overlap.
func Compose(fns ...Func) Func {
	return func(r engine.HandlerRegistrar) {
		for _, fn := range fns {
			fn(r)
		}
	}
}

// Apply runs each scenario against the registrar.
func Apply(r engine.HandlerRegistrar, fns ...Func) {
	for _, fn := range fns {
		fn(r)
	}
}
