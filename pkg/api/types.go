// Package api holds the shared request/response model and sentinel errors
// for the interception engine and its runtime adapters.
package api

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/google/uuid"
)

// Request is an intercepted outbound HTTP request, body already buffered.
// Handlers receive it read-only; mutating it has no effect on matching.
type Request struct {
	ID     uuid.UUID
	Method string
	URL    *url.URL
	Header http.Header
	Body   []byte
}

// JSON unmarshals the buffered request body into v.
func (r *Request) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Response describes the synthesized response a handler produces.
// A zero StatusCode is normalized to 200 by the engine.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	passthrough bool
}

// Passthrough returns the sentinel response that tells the engine to
// forward the request to the real network instead of synthesizing one.
func Passthrough() *Response {
	return &Response{passthrough: true}
}

// IsPassthrough reports whether this response is the passthrough sentinel.
func (r *Response) IsPassthrough() bool {
	return r != nil && r.passthrough
}
