// Package net is the live-context runtime adapter: a forward HTTP proxy
// with a real network stack. Requests a handler matches are answered from
// the handler set and never leave the process; unmatched requests are
// forwarded upstream so unrelated real endpoints stay reachable.
package net

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/mockwire/mockwire/internal/errx"
	"github.com/mockwire/mockwire/pkg/api"
	"github.com/mockwire/mockwire/pkg/engine"
	"github.com/mockwire/mockwire/pkg/mock"
)

// ProxyConfig configures the live adapter.
type ProxyConfig struct {
	// BindAddr is the host:port to listen on. Port 0 picks a free port.
	// Defaults to "127.0.0.1:0".
	BindAddr string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Proxy drives one interception engine over a real TCP listener.
type Proxy struct {
	engine    *engine.Engine
	transport *proxyTransport
}

// NewProxy creates a live-context adapter. Engine options (baseline
// handlers, emitter) are passed through unchanged.
func NewProxy(cfg *ProxyConfig, opts ...engine.Option) *Proxy {
	if cfg == nil {
		cfg = &ProxyConfig{}
	}
	bindAddr := cfg.BindAddr
	if bindAddr == "" {
		bindAddr = "127.0.0.1:0"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	t := &proxyTransport{
		bindAddr: bindAddr,
		logger:   logger.With("component", "net"),
		upstream: &http.Transport{},
	}
	opts = append([]engine.Option{engine.WithLogger(logger)}, opts...)
	return &Proxy{
		engine:    engine.New(t, opts...),
		transport: t,
	}
}

// Start binds the listener and activates interception. It does not
// return before the proxy is accepting connections, so there is no
// window where a first request escapes unmocked.
func (p *Proxy) Start(ctx context.Context) error {
	return p.engine.Listen(ctx)
}

// Addr returns the bound listen address. Empty before Start.
func (p *Proxy) Addr() string {
	return p.transport.addr()
}

// URL returns the proxy URL clients should route through. Nil before Start.
func (p *Proxy) URL() *url.URL {
	addr := p.Addr()
	if addr == "" {
		return nil
	}
	return &url.URL{Scheme: "http", Host: addr}
}

// Client returns an http.Client routed through this proxy.
func (p *Proxy) Client() *http.Client {
	proxyURL := p.URL()
	return &http.Client{
		Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
	}
}

// Use appends handlers to the active set.
func (p *Proxy) Use(handlers ...mock.Handler) {
	p.engine.Use(handlers...)
}

// ResetHandlers restores the baseline set.
func (p *Proxy) ResetHandlers() {
	p.engine.ResetHandlers()
}

// Stop closes the listener and stops interception. Idempotent.
func (p *Proxy) Stop() error {
	return p.engine.Close()
}

// Engine exposes the underlying engine.
func (p *Proxy) Engine() *engine.Engine {
	return p.engine
}

var _ engine.HandlerRegistrar = (*Proxy)(nil)

// proxyTransport is the real-network interception strategy.
type proxyTransport struct {
	bindAddr string
	logger   *slog.Logger
	upstream *http.Transport

	mu         sync.Mutex
	listener   net.Listener
	dispatcher engine.Dispatcher
	closed     bool
}

func (t *proxyTransport) Start(ctx context.Context, d engine.Dispatcher) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrProxyClosed
	}
	if t.listener != nil {
		return api.ErrAlreadyRunning
	}

	ln, err := net.Listen("tcp", t.bindAddr)
	if err != nil {
		return errx.Wrap(ErrListen, err)
	}
	t.listener = ln
	t.dispatcher = d
	t.logger.Info("proxy listening", "addr", ln.Addr().String())

	go t.acceptLoop(ln)
	return nil
}

func (t *proxyTransport) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			t.mu.Lock()
			closed := t.closed
			t.mu.Unlock()
			if closed {
				return
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}
		go t.handleConn(conn)
	}
}

func (t *proxyTransport) handleConn(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	for {
		req, err := http.ReadRequest(reader)
		if err != nil {
			return
		}

		if req.Method == http.MethodConnect {
			writeHTTPError(conn, http.StatusNotImplemented, ErrTLSNotSupported.Error())
			return
		}

		normalizeProxyURL(req)

		t.mu.Lock()
		d := t.dispatcher
		t.mu.Unlock()
		if d == nil {
			writeHTTPError(conn, http.StatusServiceUnavailable, api.ErrNotRunning.Error())
			return
		}

		resp, err := d.Resolve(context.Background(), req)
		if err != nil {
			t.logger.Warn("resolve failed",
				"method", req.Method, "url", req.URL, "error", err)
			writeHTTPError(conn, statusForError(err), err.Error())
			return
		}

		if err := writeResponse(conn, resp); err != nil {
			return
		}
		if req.Close || resp.Close {
			return
		}
	}
}

func (t *proxyTransport) Passthrough(ctx context.Context, req *http.Request) (*http.Response, error) {
	out := req.Clone(ctx)
	out.RequestURI = ""

	resp, err := t.upstream.RoundTrip(out)
	if err != nil {
		return nil, errx.Wrap(ErrUpstreamFailed, err)
	}

	// Buffer the body so the synthesized and forwarded paths deliver
	// responses with identical framing.
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, errx.Wrap(ErrUpstreamFailed, err)
	}
	resp.Body = io.NopCloser(strings.NewReader(string(body)))
	resp.ContentLength = int64(len(body))
	resp.TransferEncoding = nil
	resp.Header.Del("Transfer-Encoding")
	resp.Header.Set("Content-Length", fmt.Sprintf("%d", len(body)))
	return resp, nil
}

func (t *proxyTransport) Unhandled() engine.UnhandledPolicy {
	return engine.UnhandledPassthrough
}

func (t *proxyTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.upstream.CloseIdleConnections()
	if t.listener != nil {
		return t.listener.Close()
	}
	return nil
}

func (t *proxyTransport) addr() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listener == nil {
		return ""
	}
	return t.listener.Addr().String()
}

// normalizeProxyURL fills in scheme and host for origin-form requests so
// handler patterns see an absolute URL either way.
func normalizeProxyURL(req *http.Request) {
	if req.URL.Scheme == "" {
		req.URL.Scheme = "http"
	}
	if req.URL.Host == "" {
		req.URL.Host = req.Host
	}
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, api.ErrResponderFailed), errors.Is(err, ErrUpstreamFailed):
		return http.StatusBadGateway
	case errors.Is(err, api.ErrNotRunning):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func writeHTTPError(conn net.Conn, status int, message string) {
	resp := fmt.Sprintf("HTTP/1.1 %d %s\r\nContent-Length: %d\r\nConnection: close\r\n\r\n%s",
		status, http.StatusText(status), len(message), message)
	io.WriteString(conn, resp)
}

func writeResponse(conn net.Conn, resp *http.Response) error {
	bw := bufio.NewWriterSize(conn, 64*1024)
	if err := resp.Write(bw); err != nil {
		return err
	}
	return bw.Flush()
}
