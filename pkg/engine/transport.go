package engine

import (
	"context"
	"net/http"
)

// UnhandledPolicy decides what happens to a request no handler matches.
type UnhandledPolicy int

const (
	// UnhandledError fails the request with api.ErrNoHandlerMatched.
	// This is the test-context policy: a missing mock must surface as a
	// test failure, never as a hang or a silent default.
	UnhandledError UnhandledPolicy = iota

	// UnhandledPassthrough forwards the request to the real network.
	// This is the live-context policy so unrelated real endpoints
	// (assets, analytics) stay reachable.
	UnhandledPassthrough
)

func (p UnhandledPolicy) String() string {
	if p == UnhandledPassthrough {
		return "passthrough"
	}
	return "error"
}

// Dispatcher is the engine-side surface a transport delivers intercepted
// requests to.
type Dispatcher interface {
	Resolve(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Transport gives the engine a place to intercept requests in one
// execution context. The engine core is written once and parameterized by
// a Transport; matching logic is never duplicated per adapter.
type Transport interface {
	// Start activates interception and must not return before the
	// transport is ready to observe requests, so callers can issue
	// mocked requests immediately after Listen returns.
	Start(ctx context.Context, d Dispatcher) error

	// Passthrough forwards an intercepted request to the real network.
	// Transports without a real network must fail loudly with
	// api.ErrNoRealNetwork instead of attempting a connection.
	Passthrough(ctx context.Context, req *http.Request) (*http.Response, error)

	// Unhandled reports the transport's policy for unmatched requests.
	Unhandled() UnhandledPolicy

	// Close releases the interception hook. Must be idempotent.
	Close() error
}
