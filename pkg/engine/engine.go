// Package engine implements the interception core: an ordered, mutable
// handler set, the matching algorithm, and the lifecycle shared by every
// runtime adapter. An Engine is constructed once per test case or
// application bootstrap and passed explicitly wherever it is needed;
// there is no package-level instance.
package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mockwire/mockwire/internal/errx"
	"github.com/mockwire/mockwire/pkg/api"
	"github.com/mockwire/mockwire/pkg/logging"
	"github.com/mockwire/mockwire/pkg/mock"
)

// HandlerRegistrar is the capability scenario functions depend on.
// Both runtime adapters and the engine itself implement it.
type HandlerRegistrar interface {
	Use(handlers ...mock.Handler)
}

type lifecycle int

const (
	stateIdle lifecycle = iota
	stateRunning
	stateClosed
)

func (s lifecycle) String() string {
	switch s {
	case stateRunning:
		return "running"
	case stateClosed:
		return "closed"
	default:
		return "idle"
	}
}

// Engine owns the active handler set and matches every intercepted
// request against it. One engine instance is exclusively bound to one
// transport; never share a handler set across engines.
type Engine struct {
	id        string
	transport Transport
	logger    *slog.Logger
	emitter   *logging.Emitter

	mu       sync.RWMutex
	state    lifecycle
	baseline []mock.Handler
	active   []mock.Handler
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithID overrides the generated engine ID, so callers that stamp the ID
// onto external systems (event sinks) can mint it first.
func WithID(id string) Option {
	return func(e *Engine) {
		if id != "" {
			e.id = id
		}
	}
}

// WithLogger sets the slog logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithEmitter attaches a structured event emitter. Nil is allowed and
// disables event emission.
func WithEmitter(emitter *logging.Emitter) Option {
	return func(e *Engine) { e.emitter = emitter }
}

// WithBaseline installs handlers that survive ResetHandlers. They are
// active from Listen onward and restored exactly on every reset.
func WithBaseline(handlers ...mock.Handler) Option {
	return func(e *Engine) { e.baseline = append(e.baseline, handlers...) }
}

// New creates an engine bound to the given transport.
func New(transport Transport, opts ...Option) *Engine {
	e := &Engine{
		id:        "eng-" + uuid.New().String()[:8],
		transport: transport,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "engine", "engine_id", e.id)
	e.active = append([]mock.Handler(nil), e.baseline...)
	return e
}

// ID returns the unique identifier of this engine instance.
func (e *Engine) ID() string { return e.id }

// Listen transitions the engine into the running state and activates the
// transport's interception hook. Listen does not return before the
// transport is ready, so requests issued afterwards cannot escape
// unmocked. Calling Listen on a running engine returns
// api.ErrAlreadyRunning; on a closed engine, api.ErrEngineClosed.
func (e *Engine) Listen(ctx context.Context) error {
	e.mu.Lock()
	switch e.state {
	case stateRunning:
		e.mu.Unlock()
		return api.ErrAlreadyRunning
	case stateClosed:
		e.mu.Unlock()
		return api.ErrEngineClosed
	}

	// The lock is held across Start so concurrent Listen calls
	// serialize: exactly one activates the transport, the rest see
	// stateRunning. Transports must not call back into Resolve during
	// Start.
	if err := e.transport.Start(ctx, e); err != nil {
		e.mu.Unlock()
		return err
	}
	e.state = stateRunning
	handlers := len(e.active)
	e.mu.Unlock()

	e.logger.Info("engine listening", "handlers", handlers)
	e.emitLifecycle("listening")
	return nil
}

// Close stops interception and releases the transport hook. In-flight
// responses already synthesized are still delivered; new requests fail
// with api.ErrNotRunning. Close is idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.state == stateClosed {
		e.mu.Unlock()
		return nil
	}
	e.state = stateClosed
	e.active = nil
	e.mu.Unlock()

	err := e.transport.Close()
	e.logger.Info("engine closed")
	e.emitLifecycle("closed")
	return err
}

// Use appends handlers to the active set. Later handlers shadow earlier
// ones for the same pattern; duplicates are legal. Handlers without a
// responder are skipped with a warning. Use on a closed engine is a no-op.
func (e *Engine) Use(handlers ...mock.Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == stateClosed {
		e.logger.Warn("use ignored on closed engine")
		return
	}
	for _, h := range handlers {
		if !h.Valid() {
			e.logger.Warn("handler without responder skipped",
				"method", h.Method(), "pattern", h.Pattern())
			continue
		}
		e.active = append(e.active, h)
	}
}

// ResetHandlers restores the active set to exactly the baseline,
// discarding everything added via Use since Listen or the last reset.
// It is idempotent and a no-op on a closed engine.
func (e *Engine) ResetHandlers() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == stateClosed {
		return
	}
	e.active = append([]mock.Handler(nil), e.baseline...)
}

// Handlers returns a copy of the active handler set in insertion order.
func (e *Engine) Handlers() []mock.Handler {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]mock.Handler(nil), e.active...)
}

// Resolve matches an intercepted request against the handler set current
// at this moment and returns either a synthesized response, the
// transport's passthrough result, or an error per the transport's
// unhandled policy. The most recently added matching handler wins, so
// overrides layered with Use take precedence over the baseline without
// removing it.
func (e *Engine) Resolve(ctx context.Context, req *http.Request) (*http.Response, error) {
	e.mu.RLock()
	state := e.state
	handlers := e.active
	e.mu.RUnlock()

	if state != stateRunning {
		return nil, errx.With(api.ErrNotRunning, " cannot resolve %s %s", req.Method, req.URL)
	}

	areq, err := buildRequest(req)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("request intercepted",
		"request_id", areq.ID, "method", areq.Method, "url", areq.URL)
	if e.emitter != nil {
		_ = e.emitter.Emit(logging.EventRequestIntercepted,
			fmt.Sprintf("%s %s", areq.Method, areq.URL),
			nil,
			&logging.RequestData{RequestID: areq.ID.String(), Method: areq.Method, URL: areq.URL.String()})
	}

	start := time.Now()

	for i := len(handlers) - 1; i >= 0; i-- {
		h := handlers[i]
		if !h.Matches(areq.Method, areq.URL) {
			continue
		}

		stub, err := h.Respond(ctx, areq)
		if err != nil {
			e.logger.Warn("responder failed",
				"request_id", areq.ID, "pattern", h.Pattern(), "error", err)
			return nil, errx.Wrap(api.ErrResponderFailed, err)
		}
		if stub.IsPassthrough() {
			return e.passthrough(ctx, req, areq)
		}

		resp := synthesize(req, stub)
		e.logger.Info("handler matched",
			"request_id", areq.ID,
			"method", areq.Method,
			"url", areq.URL,
			"pattern", h.Pattern(),
			"status", resp.StatusCode,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		if e.emitter != nil {
			_ = e.emitter.Emit(logging.EventHandlerMatched,
				fmt.Sprintf("%s %s -> %d", areq.Method, areq.URL, resp.StatusCode),
				nil,
				&logging.MatchData{
					RequestID:  areq.ID.String(),
					Method:     areq.Method,
					URL:        areq.URL.String(),
					Pattern:    h.Pattern(),
					StatusCode: resp.StatusCode,
					DurationMS: time.Since(start).Milliseconds(),
				})
		}
		return resp, nil
	}

	policy := e.transport.Unhandled()
	e.logger.Debug("no handler matched",
		"request_id", areq.ID, "method", areq.Method, "url", areq.URL, "policy", policy.String())
	if e.emitter != nil {
		_ = e.emitter.Emit(logging.EventUnhandled,
			fmt.Sprintf("%s %s unhandled (%s)", areq.Method, areq.URL, policy),
			nil,
			&logging.UnhandledData{
				RequestID: areq.ID.String(),
				Method:    areq.Method,
				URL:       areq.URL.String(),
				Policy:    policy.String(),
			})
	}

	if policy == UnhandledPassthrough {
		return e.passthrough(ctx, req, areq)
	}
	return nil, errx.With(api.ErrNoHandlerMatched, " %s %s", areq.Method, areq.URL)
}

func (e *Engine) passthrough(ctx context.Context, req *http.Request, areq *api.Request) (*http.Response, error) {
	// The body was consumed while buffering; restore it for the wire.
	req.Body = io.NopCloser(bytes.NewReader(areq.Body))
	req.ContentLength = int64(len(areq.Body))

	resp, err := e.transport.Passthrough(ctx, req)
	if err != nil {
		return nil, err
	}
	e.logger.Info("passthrough",
		"request_id", areq.ID, "method", areq.Method, "url", areq.URL, "status", resp.StatusCode)
	if e.emitter != nil {
		_ = e.emitter.Emit(logging.EventPassthrough,
			fmt.Sprintf("%s %s -> %d (real network)", areq.Method, areq.URL, resp.StatusCode),
			nil,
			&logging.PassthroughData{
				RequestID:  areq.ID.String(),
				Method:     areq.Method,
				URL:        areq.URL.String(),
				StatusCode: resp.StatusCode,
			})
	}
	return resp, nil
}

func (e *Engine) emitLifecycle(state string) {
	if e.emitter == nil {
		return
	}
	_ = e.emitter.Emit(logging.EventLifecycle, "engine "+state, nil,
		&logging.LifecycleData{State: state})
}

// buildRequest buffers the request body and captures the fields handlers
// are allowed to see.
func buildRequest(req *http.Request) (*api.Request, error) {
	var body []byte
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, err
		}
		body = b
	}
	return &api.Request{
		ID:     uuid.New(),
		Method: req.Method,
		URL:    req.URL,
		Header: req.Header.Clone(),
		Body:   body,
	}, nil
}

// synthesize turns a response descriptor into an *http.Response shaped
// exactly like one read off the wire.
func synthesize(req *http.Request, stub *api.Response) *http.Response {
	status := stub.StatusCode
	if status == 0 {
		status = http.StatusOK
	}

	header := http.Header{}
	for k, vs := range stub.Header {
		for _, v := range vs {
			header.Add(k, v)
		}
	}
	header.Set("Content-Length", strconv.Itoa(len(stub.Body)))

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(stub.Body)),
		ContentLength: int64(len(stub.Body)),
		Request:       req,
	}
}
