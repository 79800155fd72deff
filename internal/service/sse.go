package service

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// SSEWriter writes Server-Sent Events to an http.ResponseWriter.
// Call Init once before writing any events to set the required headers.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter creates a new SSEWriter wrapping the given ResponseWriter.
// Without http.Flusher support writes still succeed but may be buffered.
func NewSSEWriter(w http.ResponseWriter) *SSEWriter {
	f, _ := w.(http.Flusher)
	return &SSEWriter{
		w:       w,
		flusher: f,
	}
}

// Init sets the SSE response headers and flushes them to the client.
// Call this exactly once before the first WriteEvent call.
func (sw *SSEWriter) Init() {
	h := sw.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	if sw.flusher != nil {
		sw.flusher.Flush()
	}
}

// WriteEvent serializes the StreamEvent as JSON and writes it as one
// "data: {json}\n\n" frame, flushing so the client receives it immediately.
func (sw *SSEWriter) WriteEvent(event StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("sse: marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(sw.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("sse: write event: %w", err)
	}
	if sw.flusher != nil {
		sw.flusher.Flush()
	}
	return nil
}

// ReadEvents parses SSE frames from body and delivers them on the returned
// channel. The channel is closed when the body is exhausted, a read fails,
// or ctx is cancelled; the body is closed when reading finishes. Malformed
// JSON payloads produce a StreamEvent with Err set and reading continues.
func ReadEvents(ctx context.Context, body io.ReadCloser) <-chan StreamEvent {
	ch := make(chan StreamEvent)
	go func() {
		defer close(ch)
		defer body.Close()

		scanner := bufio.NewScanner(body)
		var dataBuf strings.Builder

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			if !scanner.Scan() {
				// Flush any data accumulated before the stream ended.
				if dataBuf.Len() > 0 {
					emit(ctx, ch, dataBuf.String())
				}
				return
			}

			line := scanner.Text()
			if line == "" {
				// Blank line terminates the event.
				if dataBuf.Len() > 0 {
					emit(ctx, ch, dataBuf.String())
					dataBuf.Reset()
				}
				continue
			}
			if strings.HasPrefix(line, ":") {
				// SSE comment.
				continue
			}
			if payload, ok := strings.CutPrefix(line, "data:"); ok {
				// Multi-line data fields join with newlines per the SSE spec.
				if dataBuf.Len() > 0 {
					dataBuf.WriteByte('\n')
				}
				dataBuf.WriteString(strings.TrimPrefix(payload, " "))
			}
			// Other SSE fields (event, id, retry) are not used by this
			// service and are ignored.
		}
	}()
	return ch
}

// emit unmarshals raw into a StreamEvent and sends it on ch, setting Err
// instead when unmarshaling fails.
func emit(ctx context.Context, ch chan<- StreamEvent, raw string) {
	var ev StreamEvent
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		ev = StreamEvent{Err: fmt.Errorf("sse: unmarshal event: %w", err)}
	}
	select {
	case ch <- ev:
	case <-ctx.Done():
	}
}
