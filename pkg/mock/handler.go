// Package mock defines the declarative handler model: a request matcher
// (method + URL glob) paired with a responder that produces a response
// descriptor or signals passthrough to the real network.
package mock

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/mockwire/mockwire/pkg/api"
)

// Responder produces the response for an intercepted request.
// Returning api.Passthrough() forwards the request to the real network.
// Responders may block (e.g. to simulate latency) and must honor ctx.
type Responder func(ctx context.Context, req *api.Request) (*api.Response, error)

// Handler is one immutable interception rule. Construct via Handle or the
// per-method builders; never mutate a Handler after registering it.
type Handler struct {
	method  string
	pattern string
	respond Responder
}

// Handle builds a handler for an arbitrary HTTP method. The method is
// normalized to upper case; "*" and "" both mean any method and are
// stored as "". The pattern supports "*" wildcards anywhere
// ("*/api/submit", "/api/*", "https://api.example.com/v1/*").
func Handle(method, pattern string, respond Responder) Handler {
	m := strings.ToUpper(strings.TrimSpace(method))
	if m == "*" {
		m = ""
	}
	return Handler{
		method:  m,
		pattern: strings.TrimSpace(pattern),
		respond: respond,
	}
}

func Get(pattern string, respond Responder) Handler {
	return Handle(http.MethodGet, pattern, respond)
}

func Post(pattern string, respond Responder) Handler {
	return Handle(http.MethodPost, pattern, respond)
}

func Put(pattern string, respond Responder) Handler {
	return Handle(http.MethodPut, pattern, respond)
}

func Patch(pattern string, respond Responder) Handler {
	return Handle(http.MethodPatch, pattern, respond)
}

func Delete(pattern string, respond Responder) Handler {
	return Handle(http.MethodDelete, pattern, respond)
}

func Head(pattern string, respond Responder) Handler {
	return Handle(http.MethodHead, pattern, respond)
}

func Options(pattern string, respond Responder) Handler {
	return Handle(http.MethodOptions, pattern, respond)
}

// Method returns the normalized method this handler matches ("" for any).
func (h Handler) Method() string { return h.method }

// Pattern returns the URL pattern this handler matches.
func (h Handler) Pattern() string { return h.pattern }

// Valid reports whether the handler carries a responder.
func (h Handler) Valid() bool { return h.respond != nil }

// Matches reports whether the handler matches the given method and URL.
func (h Handler) Matches(method string, u *url.URL) bool {
	if h.method != "" && !strings.EqualFold(h.method, method) {
		return false
	}
	return matchTarget(h.pattern, u)
}

// Respond invokes the handler's responder.
func (h Handler) Respond(ctx context.Context, req *api.Request) (*api.Response, error) {
	return h.respond(ctx, req)
}
