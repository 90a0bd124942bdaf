package logging

// Sink receives every event an engine emits. The emitter fans out to all
// configured sinks in registration order. Implementations must be safe
// for concurrent use and must not retain or modify the event.
type Sink interface {
	Write(event *Event) error

	// Close flushes buffered data and releases the destination.
	Close() error
}
