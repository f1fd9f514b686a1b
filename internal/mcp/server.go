package mcp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
)

// Server implements the tool-server side of the line protocol: one JSON
// request per line on the reader, one JSON response per line on the writer.
// Methods: list_tools, exec{command}, remote_exec{host, command}.
type Server struct {
	// runCommand is swappable for tests; defaults to sh -c / ssh execution.
	runCommand func(name string, args ...string) ([]byte, []byte, int, error)
}

// NewServer returns a server executing commands on the local machine.
func NewServer() *Server {
	return &Server{runCommand: runLocal}
}

// serverRequest mirrors rpcRequest but keeps the id opaque so malformed
// requests can still be answered with id null.
type serverRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type serverResponse struct {
	ID      json.RawMessage `json:"id"`
	JSONRPC string          `json:"jsonrpc"`
	Result  any             `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// Serve processes requests until the reader is exhausted.
func (s *Server) Serve(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		resp := s.Handle(line)
		data, err := json.Marshal(resp)
		if err != nil {
			return fmt.Errorf("failed to marshal response: %w", err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
	}
	return scanner.Err()
}

// Handle answers a single request line.
func (s *Server) Handle(line []byte) serverResponse {
	var req serverRequest
	if err := json.Unmarshal(line, &req); err != nil {
		return errorResponse(json.RawMessage("null"), CodeParseError, fmt.Sprintf("Parse error: %v", err))
	}
	id := req.ID
	if id == nil {
		id = json.RawMessage("null")
	}

	switch req.Method {
	case "list_tools":
		return serverResponse{ID: id, JSONRPC: "2.0", Result: toolCatalogue()}
	case "exec":
		return s.handleExec(id, req.Params)
	case "remote_exec":
		return s.handleRemoteExec(id, req.Params)
	default:
		return errorResponse(id, CodeMethodNotFound, "Method not found")
	}
}

func (s *Server) handleExec(id json.RawMessage, params json.RawMessage) serverResponse {
	var p struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal(params, &p); err != nil || p.Command == "" {
		return errorResponse(id, CodeInvalidParams, "Missing or invalid 'command' parameter")
	}
	return s.runToResponse(id, "sh", "-c", p.Command)
}

func (s *Server) handleRemoteExec(id json.RawMessage, params json.RawMessage) serverResponse {
	var p struct {
		Host    string `json:"host"`
		Command string `json:"command"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return errorResponse(id, CodeInvalidParams, "Invalid params")
	}
	if p.Host == "" {
		return errorResponse(id, CodeInvalidParams, "Missing 'host' parameter")
	}
	if p.Command == "" {
		return errorResponse(id, CodeInvalidParams, "Missing 'command' parameter")
	}
	return s.runToResponse(id, "ssh", p.Host, p.Command)
}

func (s *Server) runToResponse(id json.RawMessage, name string, args ...string) serverResponse {
	stdout, stderr, status, err := s.runCommand(name, args...)
	if err != nil {
		return errorResponse(id, CodeInternalError, fmt.Sprintf("Failed to execute command: %v", err))
	}
	return serverResponse{
		ID:      id,
		JSONRPC: "2.0",
		Result: map[string]any{
			"stdout": string(stdout),
			"stderr": string(stderr),
			"status": status,
		},
	}
}

func errorResponse(id json.RawMessage, code int, msg string) serverResponse {
	return serverResponse{ID: id, JSONRPC: "2.0", Error: &RPCError{Code: code, Message: msg}}
}

// runLocal executes a command, distinguishing spawn failure (err) from a
// non-zero exit (reported through status with captured output).
func runLocal(name string, args ...string) ([]byte, []byte, int, error) {
	cmd := exec.Command(name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, nil, 0, err
		}
	}
	return stdout.Bytes(), stderr.Bytes(), cmd.ProcessState.ExitCode(), nil
}

func toolCatalogue() []map[string]any {
	return []map[string]any{
		{
			"name":        "exec",
			"description": "Execute a shell command on the local machine.",
			"parameters": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"command": map[string]any{
						"type":        "string",
						"description": "The shell command to execute.",
					},
				},
				"required": []string{"command"},
			},
		},
		{
			"name":        "remote_exec",
			"description": "Execute a non-interactive shell command on a remote host via SSH.",
			"parameters": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"host": map[string]any{
						"type":        "string",
						"description": "The remote host to connect to, e.g. 'user@hostname'.",
					},
					"command": map[string]any{
						"type":        "string",
						"description": "The command to execute on the remote host.",
					},
				},
				"required": []string{"host", "command"},
			},
		},
	}
}
