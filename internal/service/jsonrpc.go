package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

// JSONRPCVersion is the JSON-RPC protocol version.
const JSONRPCVersion = "2.0"

// JSONRPCRequest is a JSON-RPC 2.0 request envelope.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse is a JSON-RPC 2.0 response envelope.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError is a JSON-RPC 2.0 error object.
type JSONRPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Standard JSON-RPC error codes.
const (
	ErrCodeParse          = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternal       = -32603

	// Service-specific error codes.
	ErrCodeTaskNotFound      = -32001
	ErrCodeTaskNotCancelable = -32002
)

// Method names.
const (
	MethodStartAnalysis = "analysis/start"
	MethodGetTask       = "tasks/get"
	MethodListTasks     = "tasks/list"
	MethodCancelTask    = "tasks/cancel"
)

// dispatch unmarshals the request params into P, invokes the service method,
// and writes the result or a mapped error. All four RPC methods share this
// shape.
func dispatch[P, R any](ctx context.Context, w http.ResponseWriter, req *JSONRPCRequest, call func(context.Context, P) (R, error)) {
	var params P
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeJSONRPCError(w, req.ID, ErrCodeInvalidParams, "Invalid params: "+err.Error())
		return
	}

	result, err := call(ctx, params)
	if err != nil {
		writeJSONRPCError(w, req.ID, errCode(err), err.Error())
		return
	}

	writeJSONRPCResult(w, req.ID, result)
}

// errCode maps service errors onto JSON-RPC error codes.
func errCode(err error) int {
	switch {
	case errors.Is(err, ErrTaskNotFound):
		return ErrCodeTaskNotFound
	case errors.Is(err, ErrTaskNotCancelable):
		return ErrCodeTaskNotCancelable
	default:
		return ErrCodeInternal
	}
}

// writeJSONRPCResult writes a successful JSON-RPC response.
func writeJSONRPCResult(w http.ResponseWriter, id any, result any) {
	data, err := json.Marshal(result)
	if err != nil {
		writeJSONRPCError(w, id, ErrCodeInternal, "Failed to marshal result: "+err.Error())
		return
	}

	resp := JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Result:  data,
	}

	json.NewEncoder(w).Encode(resp)
}

// writeJSONRPCError writes a JSON-RPC error response.
func writeJSONRPCError(w http.ResponseWriter, id any, code int, message string) {
	resp := JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
		},
	}

	json.NewEncoder(w).Encode(resp)
}
