package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// HTTPClient talks to a Server over HTTP/JSON-RPC.
type HTTPClient struct {
	http      *http.Client
	requestID atomic.Int64
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets the HTTP client timeout for RPC calls.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.http.Timeout = d
	}
}

// WithHTTPClient replaces the underlying *http.Client entirely.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.http = hc
	}
}

// NewHTTPClient creates a new service HTTP client.
func NewHTTPClient(opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartAnalysis starts a task via the analysis/start JSON-RPC method.
func (c *HTTPClient) StartAnalysis(ctx context.Context, baseURL string, req AnalysisRequest) (*Task, error) {
	var task Task
	if err := c.call(ctx, baseURL, MethodStartAnalysis, req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// GetTask retrieves a task by ID via the tasks/get JSON-RPC method.
func (c *HTTPClient) GetTask(ctx context.Context, baseURL string, req GetTaskRequest) (*Task, error) {
	var task Task
	if err := c.call(ctx, baseURL, MethodGetTask, req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// ListTasks queries tasks via the tasks/list JSON-RPC method.
func (c *HTTPClient) ListTasks(ctx context.Context, baseURL string, req ListTasksRequest) (*ListTasksResponse, error) {
	var resp ListTasksResponse
	if err := c.call(ctx, baseURL, MethodListTasks, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CancelTask cancels a running task via the tasks/cancel JSON-RPC method.
func (c *HTTPClient) CancelTask(ctx context.Context, baseURL string, req CancelTaskRequest) (*Task, error) {
	var task Task
	if err := c.call(ctx, baseURL, MethodCancelTask, req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// SubscribeToTask opens the task's SSE stream. The returned channel closes
// when the task finishes, the connection drops, or ctx is cancelled.
func (c *HTTPClient) SubscribeToTask(ctx context.Context, baseURL, taskID string) (<-chan StreamEvent, error) {
	url := fmt.Sprintf("%s/tasks/%s/events", strings.TrimRight(baseURL, "/"), taskID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("service: create request: %w", err)
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	// Streams outlive the RPC timeout, so the subscription uses a client
	// without one.
	stream := &http.Client{Transport: c.http.Transport}
	resp, err := stream.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("service: subscribe to task: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("service: subscribe to task: HTTP %d: %s", resp.StatusCode, string(body))
	}

	return ReadEvents(ctx, resp.Body), nil
}

// DiscoverCard fetches the service manifest from the root endpoint.
func (c *HTTPClient) DiscoverCard(ctx context.Context, baseURL string) (*Card, error) {
	url := strings.TrimRight(baseURL, "/") + "/"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("service: create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("service: discover card: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("service: discover card: HTTP %d: %s", resp.StatusCode, string(body))
	}

	var card Card
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return nil, fmt.Errorf("service: decode card: %w", err)
	}
	return &card, nil
}

// nextID returns a monotonically increasing request ID for JSON-RPC calls.
func (c *HTTPClient) nextID() int64 {
	return c.requestID.Add(1)
}

// call performs a JSON-RPC 2.0 call against the server's /rpc endpoint.
func (c *HTTPClient) call(ctx context.Context, baseURL, method string, params any, result any) error {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("service: marshal params: %w", err)
	}

	rpcReq := JSONRPCRequest{
		JSONRPC: JSONRPCVersion,
		ID:      c.nextID(),
		Method:  method,
		Params:  paramsJSON,
	}

	body, err := json.Marshal(rpcReq)
	if err != nil {
		return fmt.Errorf("service: marshal request: %w", err)
	}

	url := strings.TrimRight(baseURL, "/") + "/rpc"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("service: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("service: %s: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("service: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service: %s: HTTP %d: %s", method, resp.StatusCode, string(respBody))
	}

	var rpcResp JSONRPCResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("service: decode response: %w", err)
	}

	if rpcResp.Error != nil {
		return &RPCError{
			Method:  method,
			Code:    rpcResp.Error.Code,
			Message: rpcResp.Error.Message,
			Data:    rpcResp.Error.Data,
		}
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("service: decode result: %w", err)
		}
	}

	return nil
}

// RPCError represents a JSON-RPC error returned by the service.
type RPCError struct {
	Method  string
	Code    int
	Message string
	Data    json.RawMessage
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("service: %s: rpc error %d: %s (data: %s)", e.Method, e.Code, e.Message, string(e.Data))
	}
	return fmt.Sprintf("service: %s: rpc error %d: %s", e.Method, e.Code, e.Message)
}
