package service

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// startTestServer boots a Server on a free localhost port and returns its
// base URL. The server is stopped via t.Cleanup.
func startTestServer(t *testing.T) (string, *Service) {
	t.Helper()

	svc := NewService(DefaultCard("test"))
	srv := NewServer(svc)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	require.NoError(t, srv.Start(context.Background(), addr, CORSConfig{}))

	// Wait for the server to accept connections.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			conn.Close()
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Stop(ctx)
	})

	return "http://" + addr, svc
}

// postJSONRPC posts a raw body to the /rpc endpoint and decodes the JSON-RPC
// response envelope.
func postJSONRPC(t *testing.T, baseURL, body string) *JSONRPCResponse {
	t.Helper()

	resp, err := http.Post(baseURL+"/rpc", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rpcResp JSONRPCResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rpcResp))
	return &rpcResp
}

// pollTask polls tasks/get over HTTP until the task reaches the wanted
// state or the deadline passes.
func pollTask(t *testing.T, client *HTTPClient, baseURL, id string, want TaskState) *Task {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		task, err := client.GetTask(context.Background(), baseURL, GetTaskRequest{ID: id})
		require.NoError(t, err)
		if task.Status.State == want {
			return task
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("task %s did not reach state %s within deadline", id, want)
	return nil
}

// ---------------------------------------------------------------------------
// Manifest endpoint
// ---------------------------------------------------------------------------

func TestServer_Card(t *testing.T) {
	baseURL, _ := startTestServer(t)

	resp, err := http.Get(baseURL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var card Card
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&card))
	assert.Equal(t, "gdgraph-analysis", card.Name)
	assert.Equal(t, "test", card.Version)
	assert.True(t, card.Streaming)
}

func TestHTTPClient_DiscoverCard(t *testing.T) {
	baseURL, _ := startTestServer(t)
	client := NewHTTPClient()

	card, err := client.DiscoverCard(context.Background(), baseURL)
	require.NoError(t, err)
	assert.Equal(t, "gdgraph-analysis", card.Name)
	assert.Contains(t, card.Methods, MethodStartAnalysis)
}

// ---------------------------------------------------------------------------
// JSON-RPC round trips
// ---------------------------------------------------------------------------

func TestServer_AnalysisRoundTrip(t *testing.T) {
	baseURL, _ := startTestServer(t)
	client := NewHTTPClient()
	root := serviceProject(t)

	task, err := client.StartAnalysis(context.Background(), baseURL, AnalysisRequest{Root: root})
	require.NoError(t, err)
	require.NotEmpty(t, task.ID)

	done := pollTask(t, client, baseURL, task.ID, TaskStateCompleted)
	require.NotNil(t, done.Report)
	assert.Equal(t, "Crawler", done.Report.ProjectName)
	assert.Equal(t, []string{"Global"}, done.Report.Autoloads)

	list, err := client.ListTasks(context.Background(), baseURL, ListTasksRequest{Status: "completed"})
	require.NoError(t, err)
	require.Len(t, list.Tasks, 1)
	assert.Equal(t, task.ID, list.Tasks[0].ID)
}

func TestServer_CancelTerminalTask(t *testing.T) {
	baseURL, _ := startTestServer(t)
	client := NewHTTPClient()
	root := serviceProject(t)

	task, err := client.StartAnalysis(context.Background(), baseURL, AnalysisRequest{Root: root})
	require.NoError(t, err)
	pollTask(t, client, baseURL, task.ID, TaskStateCompleted)

	_, err = client.CancelTask(context.Background(), baseURL, CancelTaskRequest{ID: task.ID})
	require.Error(t, err)

	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, ErrCodeTaskNotCancelable, rpcErr.Code)
}

// ---------------------------------------------------------------------------
// JSON-RPC error handling
// ---------------------------------------------------------------------------

func TestServer_JSONRPCErrors(t *testing.T) {
	baseURL, _ := startTestServer(t)

	t.Run("parse error", func(t *testing.T) {
		resp := postJSONRPC(t, baseURL, `{not json`)
		require.NotNil(t, resp.Error)
		assert.Equal(t, ErrCodeParse, resp.Error.Code)
		assert.Contains(t, resp.Error.Message, "Parse error")
	})

	t.Run("wrong jsonrpc version", func(t *testing.T) {
		resp := postJSONRPC(t, baseURL, `{"jsonrpc":"1.0","id":1,"method":"tasks/get"}`)
		require.NotNil(t, resp.Error)
		assert.Equal(t, ErrCodeInvalidRequest, resp.Error.Code)
		assert.Contains(t, resp.Error.Message, `jsonrpc must be "2.0"`)
	})

	t.Run("method not found", func(t *testing.T) {
		resp := postJSONRPC(t, baseURL, `{"jsonrpc":"2.0","id":2,"method":"tasks/destroy"}`)
		require.NotNil(t, resp.Error)
		assert.Equal(t, ErrCodeMethodNotFound, resp.Error.Code)
		assert.Contains(t, resp.Error.Message, "tasks/destroy")
	})

	t.Run("invalid params", func(t *testing.T) {
		resp := postJSONRPC(t, baseURL, `{"jsonrpc":"2.0","id":3,"method":"tasks/get","params":"not-an-object"}`)
		require.NotNil(t, resp.Error)
		assert.Equal(t, ErrCodeInvalidParams, resp.Error.Code)
		assert.Contains(t, resp.Error.Message, "Invalid params")
	})

	t.Run("task not found", func(t *testing.T) {
		resp := postJSONRPC(t, baseURL, `{"jsonrpc":"2.0","id":4,"method":"tasks/get","params":{"id":"ghost"}}`)
		require.NotNil(t, resp.Error)
		assert.Equal(t, ErrCodeTaskNotFound, resp.Error.Code)
	})

	t.Run("missing root", func(t *testing.T) {
		resp := postJSONRPC(t, baseURL, `{"jsonrpc":"2.0","id":5,"method":"analysis/start","params":{}}`)
		require.NotNil(t, resp.Error)
		assert.Equal(t, ErrCodeInternal, resp.Error.Code)
		assert.Contains(t, resp.Error.Message, "root is required")
	})
}

// ---------------------------------------------------------------------------
// SSE streaming
// ---------------------------------------------------------------------------

func TestServer_SubscribeToTask(t *testing.T) {
	baseURL, _ := startTestServer(t)
	client := NewHTTPClient()
	root := serviceProject(t)

	task, err := client.StartAnalysis(context.Background(), baseURL, AnalysisRequest{Root: root})
	require.NoError(t, err)

	ch, err := client.SubscribeToTask(context.Background(), baseURL, task.ID)
	require.NoError(t, err)

	events := collectEvents(t, ch)
	require.NotEmpty(t, events)

	for _, ev := range events {
		require.NoError(t, ev.Err)
		assert.Equal(t, task.ID, ev.TaskID)
	}

	last := events[len(events)-1]
	require.NotNil(t, last.Status, "stream must end with a status frame")
	assert.Equal(t, TaskStateCompleted, last.Status.State)
}

func TestServer_SubscribeToTask_UnknownTask(t *testing.T) {
	baseURL, _ := startTestServer(t)
	client := NewHTTPClient()

	ch, err := client.SubscribeToTask(context.Background(), baseURL, "ghost")
	require.Error(t, err)
	assert.Nil(t, ch)
	assert.Contains(t, err.Error(), "HTTP 404")
}

// ---------------------------------------------------------------------------
// RPCError formatting
// ---------------------------------------------------------------------------

func TestRPCError_Error(t *testing.T) {
	err := &RPCError{Method: MethodGetTask, Code: ErrCodeTaskNotFound, Message: "task not found"}
	assert.Equal(t, `service: tasks/get: rpc error -32001: task not found`, err.Error())

	withData := &RPCError{
		Method:  MethodCancelTask,
		Code:    ErrCodeTaskNotCancelable,
		Message: "not cancelable",
		Data:    json.RawMessage(`{"state":"completed"}`),
	}
	assert.Equal(t, `service: tasks/cancel: rpc error -32002: not cancelable (data: {"state":"completed"})`, withData.Error())

	var target *RPCError
	assert.True(t, errors.As(error(withData), &target))
}
