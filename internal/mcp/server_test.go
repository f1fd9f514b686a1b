package mcp

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func testServer() *Server {
	return &Server{runCommand: func(name string, args ...string) ([]byte, []byte, int, error) {
		return []byte("out:" + name + " " + strings.Join(args, " ")), nil, 0, nil
	}}
}

func TestHandleParseError(t *testing.T) {
	resp := testServer().Handle([]byte("{not json"))
	if resp.Error == nil || resp.Error.Code != CodeParseError {
		t.Fatalf("expected parse error -32700, got %+v", resp.Error)
	}
	if string(resp.ID) != "null" {
		t.Errorf("parse error must answer with id null, got %s", resp.ID)
	}
}

func TestHandleMethodNotFound(t *testing.T) {
	resp := testServer().Handle([]byte(`{"jsonrpc":"2.0","method":"reboot","params":{},"id":7}`))
	if resp.Error == nil || resp.Error.Code != CodeMethodNotFound {
		t.Fatalf("expected -32601, got %+v", resp.Error)
	}
	if string(resp.ID) != "7" {
		t.Errorf("id = %s, want 7", resp.ID)
	}
}

func TestHandleExecMissingCommand(t *testing.T) {
	resp := testServer().Handle([]byte(`{"jsonrpc":"2.0","method":"exec","params":{},"id":1}`))
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Fatalf("expected -32602, got %+v", resp.Error)
	}
}

func TestHandleRemoteExecMissingHost(t *testing.T) {
	resp := testServer().Handle([]byte(`{"jsonrpc":"2.0","method":"remote_exec","params":{"command":"uptime"},"id":2}`))
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Fatalf("expected -32602, got %+v", resp.Error)
	}
}

func TestHandleExecSuccess(t *testing.T) {
	resp := testServer().Handle([]byte(`{"jsonrpc":"2.0","method":"exec","params":{"command":"ls"},"id":3}`))
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]any)
	if !ok {
		t.Fatalf("result type %T", resp.Result)
	}
	if result["stdout"] != "out:sh -c ls" {
		t.Errorf("stdout = %q", result["stdout"])
	}
	if result["status"] != 0 {
		t.Errorf("status = %v, want 0", result["status"])
	}
}

func TestHandleRemoteExecRunsSSH(t *testing.T) {
	resp := testServer().Handle([]byte(`{"jsonrpc":"2.0","method":"remote_exec","params":{"host":"user@box","command":"uptime"},"id":4}`))
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	result := resp.Result.(map[string]any)
	if result["stdout"] != "out:ssh user@box uptime" {
		t.Errorf("stdout = %q", result["stdout"])
	}
}

func TestHandleListTools(t *testing.T) {
	resp := testServer().Handle([]byte(`{"jsonrpc":"2.0","method":"list_tools","id":5}`))
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	tools, ok := resp.Result.([]map[string]any)
	if !ok || len(tools) != 2 {
		t.Fatalf("expected 2 tools, got %T %v", resp.Result, resp.Result)
	}
	if tools[0]["name"] != "exec" || tools[1]["name"] != "remote_exec" {
		t.Errorf("unexpected catalogue order: %v, %v", tools[0]["name"], tools[1]["name"])
	}
}

func TestServeLineProtocol(t *testing.T) {
	in := strings.Join([]string{
		`{"jsonrpc":"2.0","method":"list_tools","id":1}`,
		``,
		`{"jsonrpc":"2.0","method":"exec","params":{"command":"true"},"id":2}`,
	}, "\n") + "\n"

	var out bytes.Buffer
	if err := testServer().Serve(strings.NewReader(in), &out); err != nil {
		t.Fatalf("Serve failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 response lines, got %d: %q", len(lines), out.String())
	}
	for i, line := range lines {
		var resp map[string]any
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			t.Errorf("line %d not JSON: %v", i, err)
		}
	}
}
