package mcp

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"
)

// fakeServer echoes canned handler responses over in-memory pipes, driving
// the client exactly like a subprocess would.
func startFakeServer(t *testing.T, handle func(req serverRequest) serverResponse) *Client {
	t.Helper()

	clientToServer, clientIn := io.Pipe()
	serverToClient, serverOut := io.Pipe()

	go func() {
		dec := json.NewDecoder(clientToServer)
		enc := json.NewEncoder(serverOut)
		for {
			var req serverRequest
			if err := dec.Decode(&req); err != nil {
				return
			}
			if err := enc.Encode(handle(req)); err != nil {
				return
			}
		}
	}()

	c := newPipeClient(clientIn, serverToClient)
	t.Cleanup(func() {
		_ = clientIn.Close()
		_ = serverOut.Close()
	})
	return c
}

func echoHandler(req serverRequest) serverResponse {
	return serverResponse{
		ID:      req.ID,
		JSONRPC: "2.0",
		Result:  map[string]string{"method": req.Method},
	}
}

func TestCallIDsStrictlyIncrease(t *testing.T) {
	var seen []uint64
	c := startFakeServer(t, func(req serverRequest) serverResponse {
		var id uint64
		_ = json.Unmarshal(req.ID, &id)
		seen = append(seen, id)
		return echoHandler(req)
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := c.Call(ctx, "list_tools", nil); err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
	}

	if len(seen) != 3 {
		t.Fatalf("server saw %d requests, want 3", len(seen))
	}
	for i := 1; i < len(seen); i++ {
		if seen[i] <= seen[i-1] {
			t.Errorf("ids not strictly increasing: %v", seen)
		}
	}
}

func TestCallMatchesResponseByID(t *testing.T) {
	c := startFakeServer(t, func(req serverRequest) serverResponse {
		var id uint64
		_ = json.Unmarshal(req.ID, &id)
		return serverResponse{
			ID:      req.ID,
			JSONRPC: "2.0",
			Result:  map[string]uint64{"echo_id": id},
		}
	})

	ctx := context.Background()
	for want := uint64(1); want <= 2; want++ {
		raw, err := c.Call(ctx, "exec", map[string]string{"command": "true"})
		if err != nil {
			t.Fatalf("call failed: %v", err)
		}
		var result struct {
			EchoID uint64 `json:"echo_id"`
		}
		if err := json.Unmarshal(raw, &result); err != nil {
			t.Fatalf("bad result: %v", err)
		}
		if result.EchoID != want {
			t.Errorf("response matched to id %d, want %d", result.EchoID, want)
		}
	}
}

func TestCallSurfacesServerError(t *testing.T) {
	c := startFakeServer(t, func(req serverRequest) serverResponse {
		return serverResponse{
			ID:      req.ID,
			JSONRPC: "2.0",
			Error:   &RPCError{Code: CodeMethodNotFound, Message: "Method not found"},
		}
	})

	_, err := c.Call(context.Background(), "nonsense", nil)
	if err == nil {
		t.Fatal("expected error for method-not-found response")
	}
}

func TestCallHonorsContextDeadline(t *testing.T) {
	// A server that never answers: the call must return on ctx expiry.
	c := startFakeServer(t, func(req serverRequest) serverResponse {
		time.Sleep(10 * time.Second)
		return echoHandler(req)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Call(ctx, "exec", map[string]string{"command": "sleep 60"})
	if err == nil {
		t.Fatal("expected context deadline error")
	}
}

func TestCallAfterClose(t *testing.T) {
	c := startFakeServer(t, echoHandler)
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := c.Call(context.Background(), "list_tools", nil); err == nil {
		t.Fatal("expected error calling a closed client")
	}
}
