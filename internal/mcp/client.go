package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"lucius/internal/logging"
)

// Client speaks line-delimited JSON-RPC with one long-lived tool server
// subprocess. The pipe carries a single in-flight exchange at a time:
// pipeMu serializes the blocking write/read pair, which runs on its own
// goroutine so a hung server stalls only callers, never the async runtime.
type Client struct {
	mu     sync.Mutex // guards nextID and closed
	nextID uint64
	closed bool

	pipeMu sync.Mutex // guards stdin/stdout; one exchange at a time
	stdin  io.WriteCloser
	stdout *bufio.Reader

	cmd *exec.Cmd
}

// NewClient spawns the tool server from a command line such as
// "shell-mcp" or "python3 tools/server.py".
func NewClient(command string) (*Client, error) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty tool server command")
	}

	cmd := exec.Command(parts[0], parts[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", parts[0], err)
	}

	logging.Tools("spawned tool server: %s (pid %d)", command, cmd.Process.Pid)
	return &Client{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
		nextID: 1,
	}, nil
}

// newPipeClient wires a client over raw reader/writer pairs. Used by tests
// to exercise the exchange without a subprocess.
func newPipeClient(w io.WriteCloser, r io.Reader) *Client {
	return &Client{stdin: w, stdout: bufio.NewReader(r), nextID: 1}
}

// Call sends one request and blocks for its response, bounded by ctx.
// Requests carry strictly increasing ids; responses are matched by id and
// stale lines (responses to a previously abandoned call) are skipped.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	id := c.nextID
	c.nextID++
	c.mu.Unlock()

	req := rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: id}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	type outcome struct {
		resp *rpcResponse
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		// pipeMu is taken here, not in Call, so an abandoned exchange
		// finishes draining its response before the next one starts.
		c.pipeMu.Lock()
		defer c.pipeMu.Unlock()
		resp, err := c.exchange(data, id)
		done <- outcome{resp: resp, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, out.err
		}
		if out.resp.Error != nil {
			return nil, fmt.Errorf("tool server error %d: %s", out.resp.Error.Code, out.resp.Error.Message)
		}
		if out.resp.Result == nil {
			return nil, ErrEmptyResult
		}
		return out.resp.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// exchange performs the blocking write-then-read for one request id.
// Callers must hold pipeMu.
func (c *Client) exchange(line []byte, id uint64) (*rpcResponse, error) {
	if _, err := c.stdin.Write(append(line, '\n')); err != nil {
		return nil, fmt.Errorf("failed to write request: %w", err)
	}

	for {
		raw, err := c.stdout.ReadBytes('\n')
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConnectionClosed, err)
		}
		var resp rpcResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			logging.Get(logging.CategoryTools).Warnf("skipping malformed response line: %v", err)
			continue
		}
		if resp.ID != id {
			logging.Get(logging.CategoryTools).Debugf("skipping stale response id=%d want=%d", resp.ID, id)
			continue
		}
		return &resp, nil
	}
}

// ListTools returns the server's tool catalogue.
func (c *Client) ListTools(ctx context.Context) (json.RawMessage, error) {
	return c.Call(ctx, "list_tools", nil)
}

// Execute runs a detected tool call through the server. The raw JSON result
// is returned as the tool result text.
func (c *Client) Execute(ctx context.Context, call ToolCall) (string, error) {
	result, err := c.Call(ctx, call.Tool, call.Params)
	if err != nil {
		return "", err
	}
	return string(result), nil
}

// Close terminates the subprocess and waits for it to exit.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	if c.stdin != nil {
		_ = c.stdin.Close()
	}
	if c.cmd != nil && c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
		_ = c.cmd.Wait()
	}
	logging.Tools("tool server closed")
	return nil
}
