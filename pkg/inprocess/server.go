// Package inprocess is the test-context runtime adapter. It intercepts at
// the http.RoundTripper boundary the application's client already uses, so
// no socket, DNS, or TLS work happens. Requests no handler matches fail
// loudly instead of touching the network: in a test an unmatched request
// almost always means a missing mock.
package inprocess

import (
	"context"
	"net/http"

	"github.com/mockwire/mockwire/internal/errx"
	"github.com/mockwire/mockwire/pkg/api"
	"github.com/mockwire/mockwire/pkg/engine"
	"github.com/mockwire/mockwire/pkg/mock"
)

// Server drives one interception engine over the in-process transport.
// It implements http.RoundTripper: inject it (or Client()) into the code
// under test.
type Server struct {
	engine *engine.Engine
}

// NewServer creates a server. Engine options (baseline handlers, logger,
// emitter) are passed through unchanged.
func NewServer(opts ...engine.Option) *Server {
	return &Server{engine: engine.New(&transport{}, opts...)}
}

// Listen activates interception. Returns api.ErrAlreadyRunning when
// called twice without a Close in between.
func (s *Server) Listen() error {
	return s.engine.Listen(context.Background())
}

// Use appends handlers to the active set; the newest matching handler
// wins, so overrides layered on a baseline take effect immediately.
func (s *Server) Use(handlers ...mock.Handler) {
	s.engine.Use(handlers...)
}

// ResetHandlers restores the baseline set, isolating test cases.
func (s *Server) ResetHandlers() {
	s.engine.ResetHandlers()
}

// Close stops interception. Idempotent.
func (s *Server) Close() error {
	return s.engine.Close()
}

// Engine exposes the underlying engine, mainly for assertions in tests.
func (s *Server) Engine() *engine.Engine {
	return s.engine
}

// RoundTrip resolves the request against the active handler set. The
// result is indistinguishable from a response read off the wire.
func (s *Server) RoundTrip(req *http.Request) (*http.Response, error) {
	return s.engine.Resolve(req.Context(), req)
}

// Client returns an http.Client whose transport is this server. Hand it
// to the code under test in place of http.DefaultClient.
func (s *Server) Client() *http.Client {
	return &http.Client{Transport: s}
}

// transport is the in-process interception strategy: there is nothing
// real to hook, and no real network exists for passthrough.
type transport struct{}

func (t *transport) Start(ctx context.Context, d engine.Dispatcher) error { return nil }

func (t *transport) Passthrough(ctx context.Context, req *http.Request) (*http.Response, error) {
	return nil, errx.With(api.ErrNoRealNetwork, " %s %s", req.Method, req.URL)
}

func (t *transport) Unhandled() engine.UnhandledPolicy { return engine.UnhandledError }

func (t *transport) Close() error { return nil }

var _ engine.HandlerRegistrar = (*Server)(nil)
var _ http.RoundTripper = (*Server)(nil)
