package service

import (
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/gdgraph/internal/analyzer"
)

// ---------------------------------------------------------------------------
// SSE streaming tests
// ---------------------------------------------------------------------------

func TestSSEWriter_WritesValidSSEFormat(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewSSEWriter(rec)
	w.Init()

	events := []StreamEvent{
		{TaskID: "t1", Status: &TaskStatus{State: TaskStateWorking}},
		{TaskID: "t1", Progress: &analyzer.ProgressEvent{Stage: analyzer.StageScan, Status: analyzer.ProgressWorking}},
		{TaskID: "t1", Status: &TaskStatus{State: TaskStateCompleted}},
	}

	for _, ev := range events {
		require.NoError(t, w.WriteEvent(ev))
	}

	// Verify SSE headers.
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "keep-alive", rec.Header().Get("Connection"))

	// Verify the body contains 3 SSE frames: "data: {json}\n\n".
	frames := strings.Split(rec.Body.String(), "\n\n")
	nonEmpty := make([]string, 0, len(frames))
	for _, f := range frames {
		if strings.TrimSpace(f) != "" {
			nonEmpty = append(nonEmpty, f)
		}
	}
	require.Len(t, nonEmpty, 3, "expected 3 SSE frames")

	for _, frame := range nonEmpty {
		assert.True(t, strings.HasPrefix(frame, "data: "), "each frame must start with 'data: ', got: %s", frame)
		payload := strings.TrimPrefix(frame, "data: ")
		require.NotEmpty(t, payload)
		assert.Equal(t, byte('{'), payload[0], "payload must be a JSON object, got: %s", payload)
	}
}

func TestSSEReader_ParsesEvents(t *testing.T) {
	pr, pw := io.Pipe()
	go func() {
		defer pw.Close()
		fmt.Fprint(pw, "data: {\"taskId\":\"t1\",\"status\":{\"state\":\"working\"}}\n\n")
		fmt.Fprint(pw, "data: {\"taskId\":\"t2\",\"status\":{\"state\":\"completed\"}}\n\n")
	}()

	ch := ReadEvents(context.Background(), pr)

	ev1 := <-ch
	require.NoError(t, ev1.Err)
	require.NotNil(t, ev1.Status)
	assert.Equal(t, "t1", ev1.TaskID)
	assert.Equal(t, TaskStateWorking, ev1.Status.State)

	ev2 := <-ch
	require.NoError(t, ev2.Err)
	require.NotNil(t, ev2.Status)
	assert.Equal(t, "t2", ev2.TaskID)
	assert.Equal(t, TaskStateCompleted, ev2.Status.State)

	_, open := <-ch
	assert.False(t, open, "channel should be closed after body is exhausted")
}

func TestSSEReader_ProgressEvent(t *testing.T) {
	pr, pw := io.Pipe()
	go func() {
		defer pw.Close()
		fmt.Fprint(pw, "data: {\"taskId\":\"t-p\",\"progress\":{\"Stage\":\"scan\",\"Path\":\"res://scripts/main.gd\",\"Status\":\"complete\"}}\n\n")
	}()

	ch := ReadEvents(context.Background(), pr)
	ev := <-ch

	require.NoError(t, ev.Err)
	require.NotNil(t, ev.Progress, "Progress must be set")
	assert.Nil(t, ev.Status, "Status must be nil")

	assert.Equal(t, "t-p", ev.TaskID)
	assert.Equal(t, analyzer.StageScan, ev.Progress.Stage)
	assert.Equal(t, "res://scripts/main.gd", ev.Progress.Path)
	assert.Equal(t, analyzer.ProgressComplete, ev.Progress.Status)
}

func TestSSEReader_ContextCancellation(t *testing.T) {
	pr, pw := io.Pipe()
	// Keep the pipe open so the reader blocks on input.
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := ReadEvents(ctx, pr)

	cancel()

	select {
	case _, open := <-ch:
		assert.False(t, open, "channel should be closed after context cancellation")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for channel to close after context cancellation")
	}
}

func TestSSEReader_MalformedSSEData(t *testing.T) {
	pr, pw := io.Pipe()
	go func() {
		defer pw.Close()
		fmt.Fprint(pw, "data: {not valid json!!!}\n\n")
		fmt.Fprint(pw, "data: {\"taskId\":\"t-ok\",\"status\":{\"state\":\"working\"}}\n\n")
	}()

	ch := ReadEvents(context.Background(), pr)

	ev1 := <-ch
	assert.Error(t, ev1.Err, "malformed JSON should produce an error event")
	assert.Contains(t, ev1.Err.Error(), "unmarshal")

	// The reader continues past the malformed frame.
	ev2 := <-ch
	require.NoError(t, ev2.Err)
	assert.Equal(t, "t-ok", ev2.TaskID)

	_, open := <-ch
	assert.False(t, open, "channel should be closed after body is exhausted")
}

func TestSSEWriter_RoundTrip(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewSSEWriter(rec)
	w.Init()

	sent := []StreamEvent{
		{TaskID: "rt-1", Status: &TaskStatus{State: TaskStateWorking, Timestamp: time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)}},
		{TaskID: "rt-1", Progress: &analyzer.ProgressEvent{Stage: analyzer.StageExtract, Path: "res://scenes/main.tscn", Status: analyzer.ProgressComplete}},
		{TaskID: "rt-1", Status: &TaskStatus{State: TaskStateCompleted, Timestamp: time.Date(2026, 8, 20, 9, 0, 5, 0, time.UTC)}},
	}

	for _, ev := range sent {
		require.NoError(t, w.WriteEvent(ev))
	}

	body := io.NopCloser(strings.NewReader(rec.Body.String()))
	ch := ReadEvents(context.Background(), body)

	var received []StreamEvent
	for ev := range ch {
		require.NoError(t, ev.Err)
		received = append(received, ev)
	}

	require.Len(t, received, 3)

	require.NotNil(t, received[0].Status)
	assert.Equal(t, TaskStateWorking, received[0].Status.State)

	require.NotNil(t, received[1].Progress)
	assert.Equal(t, analyzer.StageExtract, received[1].Progress.Stage)
	assert.Equal(t, "res://scenes/main.tscn", received[1].Progress.Path)

	require.NotNil(t, received[2].Status)
	assert.Equal(t, TaskStateCompleted, received[2].Status.State)
	assert.Equal(t, sent[2].Status.Timestamp, received[2].Status.Timestamp)
}

func TestSSEReader_CommentsIgnored(t *testing.T) {
	pr, pw := io.Pipe()
	go func() {
		defer pw.Close()
		fmt.Fprint(pw, ": stream opened\n")
		fmt.Fprint(pw, "data: {\"taskId\":\"t-c\",\"status\":{\"state\":\"submitted\"}}\n\n")
	}()

	ch := ReadEvents(context.Background(), pr)
	ev := <-ch
	require.NoError(t, ev.Err)
	assert.Equal(t, "t-c", ev.TaskID)
}

func TestSSEReader_DataNoSpace(t *testing.T) {
	// "data:" with no space after the colon is valid SSE.
	pr, pw := io.Pipe()
	go func() {
		defer pw.Close()
		fmt.Fprint(pw, "data:{\"taskId\":\"t-ns\",\"status\":{\"state\":\"working\"}}\n\n")
	}()

	ch := ReadEvents(context.Background(), pr)
	ev := <-ch
	require.NoError(t, ev.Err)
	assert.Equal(t, "t-ns", ev.TaskID)
}

func TestSSEReader_MultiLineData(t *testing.T) {
	// Data fields split across multiple lines join with newlines.
	pr, pw := io.Pipe()
	go func() {
		defer pw.Close()
		fmt.Fprint(pw, "data: {\"taskId\":\"t-ml\",\n")
		fmt.Fprint(pw, "data: \"status\":{\"state\":\"completed\"}}\n\n")
	}()

	ch := ReadEvents(context.Background(), pr)
	ev := <-ch
	require.NoError(t, ev.Err)
	require.NotNil(t, ev.Status)
	assert.Equal(t, "t-ml", ev.TaskID)
	assert.Equal(t, TaskStateCompleted, ev.Status.State)
}
