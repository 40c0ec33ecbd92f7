// Package sse implements the data-only server-sent events framing used by
// the release-notes stream. Every frame carries one JSON document in its
// data field; event names, ids, and retry hints are not used.
package sse

import (
	"bytes"
	"fmt"
	"net/http"
)

// Writer emits SSE frames on an HTTP response and flushes after each one so
// clients observe events as they happen.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter prepares a response for event streaming. It fails when the
// underlying writer cannot flush, since buffered SSE defeats the point.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")

	return &Writer{w: w, flusher: flusher}, nil
}

// WriteFrame sends one frame. Embedded newlines become additional data
// lines, per the SSE wire format.
func (w *Writer) WriteFrame(data []byte) error {
	var buf bytes.Buffer
	for _, line := range bytes.Split(data, []byte("\n")) {
		buf.WriteString("data: ")
		buf.Write(line)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')

	if _, err := w.w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	w.flusher.Flush()
	return nil
}
