package mock

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/mockwire/mockwire/pkg/api"
)

// Forward is the responder that signals passthrough: the engine hands the
// request to the active transport's real network path instead of
// synthesizing a response.
var Forward Responder = func(ctx context.Context, req *api.Request) (*api.Response, error) {
	return api.Passthrough(), nil
}

// Status responds with the given status code and an empty body.
func Status(code int) Responder {
	return func(ctx context.Context, req *api.Request) (*api.Response, error) {
		return &api.Response{StatusCode: code}, nil
	}
}

// Text responds with a text/plain body.
func Text(code int, body string) Responder {
	return Bytes(code, "text/plain; charset=utf-8", []byte(body))
}

// JSON marshals v as the response body with an application/json content type.
// Marshaling happens per request so responders stay pure values.
func JSON(code int, v any) Responder {
	return func(ctx context.Context, req *api.Request) (*api.Response, error) {
		body, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return &api.Response{
			StatusCode: code,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       body,
		}, nil
	}
}

// Bytes responds with a fixed body and content type.
func Bytes(code int, contentType string, body []byte) Responder {
	return func(ctx context.Context, req *api.Request) (*api.Response, error) {
		h := http.Header{}
		if contentType != "" {
			h.Set("Content-Type", contentType)
		}
		return &api.Response{StatusCode: code, Header: h, Body: body}, nil
	}
}

// Respond wraps a fixed response descriptor as a responder.
func Respond(resp *api.Response) Responder {
	return func(ctx context.Context, req *api.Request) (*api.Response, error) {
		return resp, nil
	}
}

// Delay waits d before invoking next, simulating network latency.
// Cancellation of ctx aborts the wait.
func Delay(d time.Duration, next Responder) Responder {
	return func(ctx context.Context, req *api.Request) (*api.Response, error) {
		if d > 0 {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-t.C:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return next(ctx, req)
	}
}
