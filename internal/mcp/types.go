// Package mcp implements the tool-call protocol: the wire markers embedded
// in model output, and the line-delimited JSON-RPC spoken with the local
// tool server subprocess.
package mcp

import (
	"encoding/json"
	"errors"
)

// ToolCall is a structured directive extracted from model output.
type ToolCall struct {
	Tool   string          `json:"tool"`
	Params json.RawMessage `json:"params"`
}

// JSON-RPC 2.0 error codes used by the tool server.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// RPCError is the error member of a JSON-RPC response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string { return e.Message }

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      uint64 `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      uint64          `json:"id"`
}

var (
	// ErrNotConnected is returned when calling a closed client.
	ErrNotConnected = errors.New("tool server not connected")

	// ErrConnectionClosed is returned when the subprocess pipe breaks
	// mid-exchange.
	ErrConnectionClosed = errors.New("tool server connection closed")

	// ErrEmptyResult is returned for a response with neither result nor error.
	ErrEmptyResult = errors.New("no result in response")
)
