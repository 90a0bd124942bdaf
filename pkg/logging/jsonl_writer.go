package logging

import (
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/mockwire/mockwire/internal/errx"
)

// JSONLWriter appends one JSON object per line to a stream, so an
// interception session can be tailed while it runs or replayed after.
// It implements Sink and is safe for concurrent use.
type JSONLWriter struct {
	mu  sync.Mutex
	out io.WriteCloser
	enc *json.Encoder
}

// NewJSONLWriter appends to the file at path, creating it if needed.
// The parent directory must already exist.
func NewJSONLWriter(path string) (*JSONLWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errx.Wrap(ErrCreateLogFile, err)
	}
	return NewJSONLStream(f), nil
}

// NewJSONLStream writes to an arbitrary stream (pipe, test buffer).
// The stream is closed together with the writer.
func NewJSONLStream(out io.WriteCloser) *JSONLWriter {
	return &JSONLWriter{out: out, enc: json.NewEncoder(out)}
}

// Write serializes one event as a single line.
func (w *JSONLWriter) Write(event *Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(event); err != nil {
		return errx.Wrap(ErrWriteEvent, err)
	}
	return nil
}

// Close closes the stream, syncing first when it is a file.
func (w *JSONLWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if f, ok := w.out.(*os.File); ok {
		_ = f.Sync()
	}
	if err := w.out.Close(); err != nil {
		return errx.Wrap(ErrCloseWriter, err)
	}
	return nil
}
