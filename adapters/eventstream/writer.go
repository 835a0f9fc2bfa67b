package eventstream

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrTerminated is returned for writes attempted after a terminal frame.
var ErrTerminated = errors.New("eventstream: terminal frame already written")

// Writer encodes stream events as self-delimiting frames on a long-lived
// response stream. Every frame is flushed immediately so consumer latency
// tracks backend latency. At most one terminal frame is ever written.
type Writer struct {
	w        io.Writer
	flusher  http.Flusher
	terminal bool
}

// NewWriter wraps w. When w implements http.Flusher (echo's response writer
// does), each frame is flushed as it is written.
func NewWriter(w io.Writer) *Writer {
	ew := &Writer{w: w}
	if f, ok := w.(http.Flusher); ok {
		ew.flusher = f
	}
	return ew
}

// Token writes one incremental token frame.
func (w *Writer) Token(token string) error {
	return w.write(Frame{Token: token})
}

// Done writes the terminal success frame.
func (w *Writer) Done() error {
	if err := w.write(Frame{Done: true}); err != nil {
		return err
	}
	w.terminal = true
	return nil
}

// Error writes the terminal error frame.
func (w *Writer) Error(message string) error {
	if err := w.write(Frame{Error: message}); err != nil {
		return err
	}
	w.terminal = true
	return nil
}

func (w *Writer) write(f Frame) error {
	if w.terminal {
		return ErrTerminated
	}
	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("eventstream: marshal frame: %w", err)
	}
	if _, err := fmt.Fprintf(w.w, "%s %s\n\n", dataPrefix, payload); err != nil {
		return fmt.Errorf("eventstream: write frame: %w", err)
	}
	if w.flusher != nil {
		w.flusher.Flush()
	}
	return nil
}
