package logging

import (
	"encoding/json"
	"time"
)

// Event is the canonical structured record of engine activity.
// Required fields: Timestamp, EngineID, EventType, Summary.
type Event struct {
	Timestamp time.Time       `json:"ts"`
	EngineID  string          `json:"engine_id"`
	EventType string          `json:"event_type"`
	Summary   string          `json:"summary"`
	Tags      []string        `json:"tags,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Event type constants.
const (
	EventRequestIntercepted = "request_intercepted"
	EventHandlerMatched     = "handler_matched"
	EventPassthrough        = "passthrough"
	EventUnhandled          = "unhandled_request"
	EventLifecycle          = "lifecycle"
)

// RequestData is the data payload for request_intercepted events.
type RequestData struct {
	RequestID string `json:"request_id"`
	Method    string `json:"method"`
	URL       string `json:"url"`
}

// MatchData is the data payload for handler_matched events.
type MatchData struct {
	RequestID  string `json:"request_id"`
	Method     string `json:"method"`
	URL        string `json:"url"`
	Pattern    string `json:"pattern"`
	StatusCode int    `json:"status_code"`
	DurationMS int64  `json:"duration_ms"`
}

// PassthroughData is the data payload for passthrough events.
type PassthroughData struct {
	RequestID  string `json:"request_id"`
	Method     string `json:"method"`
	URL        string `json:"url"`
	StatusCode int    `json:"status_code,omitempty"`
}

// UnhandledData is the data payload for unhandled_request events.
type UnhandledData struct {
	RequestID string `json:"request_id"`
	Method    string `json:"method"`
	URL       string `json:"url"`
	Policy    string `json:"policy"`
}

// LifecycleData is the data payload for lifecycle events.
type LifecycleData struct {
	State string `json:"state"`
}
