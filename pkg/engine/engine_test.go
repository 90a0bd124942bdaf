package engine

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockwire/mockwire/pkg/api"
	"github.com/mockwire/mockwire/pkg/logging"
	"github.com/mockwire/mockwire/pkg/mock"
)

// fakeTransport is a controllable stand-in for a runtime adapter.
type fakeTransport struct {
	policy           UnhandledPolicy
	passthrough      func(req *http.Request) (*http.Response, error)
	startDelay       time.Duration
	startCalls       int
	closeCalls       int
	passthroughCalls int
}

func (t *fakeTransport) Start(ctx context.Context, d Dispatcher) error {
	t.startCalls++
	time.Sleep(t.startDelay)
	return nil
}

func (t *fakeTransport) Passthrough(ctx context.Context, req *http.Request) (*http.Response, error) {
	t.passthroughCalls++
	if t.passthrough == nil {
		return nil, api.ErrNoRealNetwork
	}
	return t.passthrough(req)
}

func (t *fakeTransport) Unhandled() UnhandledPolicy { return t.policy }

func (t *fakeTransport) Close() error {
	t.closeCalls++
	return nil
}

func newRunning(t *testing.T, tr *fakeTransport, opts ...Option) *Engine {
	t.Helper()
	e := New(tr, opts...)
	require.NoError(t, e.Listen(context.Background()))
	return e
}

func submitReq(t *testing.T, body string) *http.Request {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(http.MethodPost, "https://api.example.com/api/submit", r)
	// httptest leaves RequestURI set; outbound requests never carry it.
	req.RequestURI = ""
	return req
}

func TestEngine_MostRecentHandlerWins(t *testing.T) {
	e := newRunning(t, &fakeTransport{},
		WithBaseline(mock.Post("*/api/submit", mock.Status(http.StatusOK))))
	e.Use(mock.Post("*/api/submit", mock.Status(http.StatusInternalServerError)))

	resp, err := e.Resolve(context.Background(), submitReq(t, "{}"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestEngine_ResetRestoresBaseline(t *testing.T) {
	e := newRunning(t, &fakeTransport{},
		WithBaseline(mock.Post("*/api/submit", mock.Status(http.StatusOK))))
	e.Use(mock.Post("*/api/submit", mock.Status(http.StatusInternalServerError)))

	e.ResetHandlers()

	resp, err := e.Resolve(context.Background(), submitReq(t, "{}"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, e.Handlers(), 1)
}

func TestEngine_ResetIdempotent(t *testing.T) {
	e := newRunning(t, &fakeTransport{},
		WithBaseline(mock.Get("/x", mock.Status(200))))
	e.ResetHandlers()
	e.ResetHandlers()
	assert.Len(t, e.Handlers(), 1)
}

func TestEngine_UnhandledErrorPolicy(t *testing.T) {
	e := newRunning(t, &fakeTransport{policy: UnhandledError})

	_, err := e.Resolve(context.Background(), submitReq(t, ""))
	require.ErrorIs(t, err, api.ErrNoHandlerMatched)
}

func TestEngine_UnhandledPassthroughPolicy(t *testing.T) {
	tr := &fakeTransport{
		policy: UnhandledPassthrough,
		passthrough: func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusAccepted,
				Body:       io.NopCloser(strings.NewReader("real")),
			}, nil
		},
	}
	e := newRunning(t, tr)

	resp, err := e.Resolve(context.Background(), submitReq(t, "{}"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, 1, tr.passthroughCalls)
}

func TestEngine_PassthroughSentinelFromHandler(t *testing.T) {
	tr := &fakeTransport{
		policy: UnhandledError,
		passthrough: func(req *http.Request) (*http.Response, error) {
			// The buffered body must be restored before forwarding.
			body, err := io.ReadAll(req.Body)
			require.NoError(t, err)
			assert.Equal(t, `{"name":"ada"}`, string(body))
			return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
		},
	}
	e := newRunning(t, tr, WithBaseline(mock.Post("*/api/submit", mock.Forward)))

	resp, err := e.Resolve(context.Background(), submitReq(t, `{"name":"ada"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, tr.passthroughCalls)
}

func TestEngine_ResponderFailurePropagates(t *testing.T) {
	boom := errors.New("boom")
	e := newRunning(t, &fakeTransport{}, WithBaseline(
		mock.Post("*/api/submit", func(ctx context.Context, req *api.Request) (*api.Response, error) {
			return nil, boom
		})))

	_, err := e.Resolve(context.Background(), submitReq(t, "{}"))
	require.ErrorIs(t, err, api.ErrResponderFailed)
	require.ErrorIs(t, err, boom)
}

func TestEngine_ListenTwice(t *testing.T) {
	tr := &fakeTransport{}
	e := newRunning(t, tr)
	err := e.Listen(context.Background())
	require.ErrorIs(t, err, api.ErrAlreadyRunning)
	assert.Equal(t, 1, tr.startCalls)
}

func TestEngine_ResolveBeforeListen(t *testing.T) {
	e := New(&fakeTransport{})
	_, err := e.Resolve(context.Background(), submitReq(t, ""))
	require.ErrorIs(t, err, api.ErrNotRunning)
}

func TestEngine_CloseIdempotent(t *testing.T) {
	tr := &fakeTransport{}
	e := newRunning(t, tr)
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	assert.Equal(t, 1, tr.closeCalls)
}

func TestEngine_ResolveAfterClose(t *testing.T) {
	e := newRunning(t, &fakeTransport{})
	require.NoError(t, e.Close())
	_, err := e.Resolve(context.Background(), submitReq(t, ""))
	require.ErrorIs(t, err, api.ErrNotRunning)
}

func TestEngine_ListenAfterClose(t *testing.T) {
	e := newRunning(t, &fakeTransport{})
	require.NoError(t, e.Close())
	err := e.Listen(context.Background())
	require.ErrorIs(t, err, api.ErrEngineClosed)
}

func TestEngine_UseSkipsInvalidHandler(t *testing.T) {
	e := newRunning(t, &fakeTransport{})
	e.Use(mock.Handle("GET", "/x", nil))
	assert.Empty(t, e.Handlers())
}

func TestEngine_UseAfterCloseIgnored(t *testing.T) {
	e := newRunning(t, &fakeTransport{})
	require.NoError(t, e.Close())
	e.Use(mock.Get("/x", mock.Status(200)))
	assert.Empty(t, e.Handlers())
}

func TestEngine_ResponseShape(t *testing.T) {
	e := newRunning(t, &fakeTransport{}, WithBaseline(
		mock.Post("*/api/submit", mock.JSON(http.StatusOK, map[string]any{"ok": true}))))

	resp, err := e.Resolve(context.Background(), submitReq(t, "{}"))
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1", resp.Proto)
	assert.Equal(t, "200 OK", resp.Status)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, int64(len(body)), resp.ContentLength)
}

func TestEngine_ConcurrentListen(t *testing.T) {
	tr := &fakeTransport{startDelay: 10 * time.Millisecond}
	e := New(tr)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- e.Listen(context.Background())
		}()
	}
	wg.Wait()
	close(errs)

	var ok, alreadyRunning int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, api.ErrAlreadyRunning):
			alreadyRunning++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, alreadyRunning)
	assert.Equal(t, 1, tr.startCalls)
}

// captureSink records emitted events in memory.
type captureSink struct {
	mu     sync.Mutex
	events []*logging.Event
}

func (s *captureSink) Write(event *logging.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *captureSink) Close() error { return nil }

func (s *captureSink) byType(eventType string) *logging.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range s.events {
		if ev.EventType == eventType {
			return ev
		}
	}
	return nil
}

func TestEngine_EmitsEventsWithIDs(t *testing.T) {
	const engineID = "eng-feed0000"
	sink := &captureSink{}
	emitter := logging.NewEmitter(logging.EmitterConfig{EngineID: engineID}, sink)

	e := New(&fakeTransport{},
		WithID(engineID),
		WithEmitter(emitter),
		WithBaseline(mock.Post("*/api/submit", mock.Status(http.StatusCreated))))
	require.NoError(t, e.Listen(context.Background()))
	defer e.Close()

	resp, err := e.Resolve(context.Background(), submitReq(t, `{"name":"ada"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	lifecycle := sink.byType(logging.EventLifecycle)
	require.NotNil(t, lifecycle)
	var state logging.LifecycleData
	require.NoError(t, json.Unmarshal(lifecycle.Data, &state))
	assert.Equal(t, "listening", state.State)

	intercepted := sink.byType(logging.EventRequestIntercepted)
	require.NotNil(t, intercepted)
	var reqData logging.RequestData
	require.NoError(t, json.Unmarshal(intercepted.Data, &reqData))
	assert.NotEmpty(t, reqData.RequestID)
	assert.Equal(t, "POST", reqData.Method)

	matched := sink.byType(logging.EventHandlerMatched)
	require.NotNil(t, matched)
	var matchData logging.MatchData
	require.NoError(t, json.Unmarshal(matched.Data, &matchData))
	assert.Equal(t, reqData.RequestID, matchData.RequestID)
	assert.Equal(t, "*/api/submit", matchData.Pattern)
	assert.Equal(t, http.StatusCreated, matchData.StatusCode)

	// Every event carries the engine's identity.
	for _, ev := range sink.events {
		assert.Equal(t, engineID, ev.EngineID)
	}
}

func TestEngine_EmitsUnhandledEvent(t *testing.T) {
	sink := &captureSink{}
	emitter := logging.NewEmitter(logging.EmitterConfig{EngineID: "eng-x"}, sink)

	e := New(&fakeTransport{policy: UnhandledError}, WithID("eng-x"), WithEmitter(emitter))
	require.NoError(t, e.Listen(context.Background()))
	defer e.Close()

	_, err := e.Resolve(context.Background(), submitReq(t, ""))
	require.ErrorIs(t, err, api.ErrNoHandlerMatched)

	unhandled := sink.byType(logging.EventUnhandled)
	require.NotNil(t, unhandled)
	var data logging.UnhandledData
	require.NoError(t, json.Unmarshal(unhandled.Data, &data))
	assert.Equal(t, "error", data.Policy)
}

func TestEngine_HandlerSeesRequestBody(t *testing.T) {
	e := newRunning(t, &fakeTransport{}, WithBaseline(
		mock.Post("*/api/submit", func(ctx context.Context, req *api.Request) (*api.Response, error) {
			var payload struct {
				Name string `json:"name"`
			}
			if err := req.JSON(&payload); err != nil {
				return nil, err
			}
			return &api.Response{StatusCode: 200, Body: []byte(payload.Name)}, nil
		})))

	resp, err := e.Resolve(context.Background(), submitReq(t, `{"name":"ada"}`))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "ada", string(body))
}
