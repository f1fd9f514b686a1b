// Package dispatch routes detected tool calls to whichever execution
// transport is available: a local tool server subprocess, the Redis task
// queue, or nothing at all.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"lucius/internal/config"
	"lucius/internal/logging"
	"lucius/internal/mcp"
	"lucius/internal/queue"
)

// ErrNoExecutor means no execution transport could be reached at startup.
var ErrNoExecutor = errors.New("no tool execution transport available")

// ErrDenied means the user declined a gated tool call.
var ErrDenied = errors.New("tool call denied")

// ToolExecutor runs one detected tool call and returns its textual result.
type ToolExecutor interface {
	// Name identifies the transport for status display and logs.
	Name() string
	Execute(ctx context.Context, call mcp.ToolCall) (string, error)
	Close() error
}

// RPCExecutor dispatches calls to a local tool server subprocess.
type RPCExecutor struct {
	client *mcp.Client
}

// NewRPCExecutor spawns the tool server and verifies it answers list_tools.
func NewRPCExecutor(ctx context.Context, command string) (*RPCExecutor, error) {
	client, err := mcp.NewClient(command)
	if err != nil {
		return nil, err
	}
	if _, err := client.ListTools(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("tool server not responding: %w", err)
	}
	return &RPCExecutor{client: client}, nil
}

func (e *RPCExecutor) Name() string { return "local RPC" }

func (e *RPCExecutor) Execute(ctx context.Context, call mcp.ToolCall) (string, error) {
	return e.client.Execute(ctx, call)
}

func (e *RPCExecutor) Close() error { return e.client.Close() }

// QueueExecutor dispatches calls through the Redis task queue.
type QueueExecutor struct {
	broker *queue.Broker
}

// NewQueueExecutor connects to Redis and verifies it answers a ping.
func NewQueueExecutor(ctx context.Context, addr string) (*QueueExecutor, error) {
	broker := queue.NewBroker(addr)
	if err := broker.Ping(ctx); err != nil {
		_ = broker.Close()
		return nil, fmt.Errorf("redis unreachable: %w", err)
	}
	return &QueueExecutor{broker: broker}, nil
}

func (e *QueueExecutor) Name() string { return "redis queue" }

func (e *QueueExecutor) Execute(ctx context.Context, call mcp.ToolCall) (string, error) {
	return e.broker.Execute(ctx, call)
}

func (e *QueueExecutor) Close() error { return e.broker.Close() }

// Unavailable rejects every call. It stands in when neither transport came
// up, so tool-calling turns degrade to an explanatory result instead of a
// crash.
type Unavailable struct{}

func (Unavailable) Name() string { return "unavailable" }

func (Unavailable) Execute(ctx context.Context, call mcp.ToolCall) (string, error) {
	return "", fmt.Errorf("%w: cannot run tool %q", ErrNoExecutor, call.Tool)
}

func (Unavailable) Close() error { return nil }

// Gate decides whether a tool call may run. Implementations block until the
// user answers or ctx expires.
type Gate func(ctx context.Context, call mcp.ToolCall) (bool, error)

// ConfirmingExecutor asks the gate before forwarding each call.
type ConfirmingExecutor struct {
	Next ToolExecutor
	Gate Gate
}

func (e *ConfirmingExecutor) Name() string { return e.Next.Name() + " (confirmed)" }

func (e *ConfirmingExecutor) Execute(ctx context.Context, call mcp.ToolCall) (string, error) {
	ok, err := e.Gate(ctx, call)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrDenied, call.Tool)
	}
	return e.Next.Execute(ctx, call)
}

func (e *ConfirmingExecutor) Close() error { return e.Next.Close() }

// Select picks the execution transport once at startup: the local tool
// server if it spawns and answers, otherwise the Redis queue if it pings,
// otherwise Unavailable.
func Select(ctx context.Context, cfg config.Config) ToolExecutor {
	if cfg.MCPServerCommand != "" {
		if exec, err := NewRPCExecutor(ctx, cfg.MCPServerCommand); err == nil {
			logging.Tools("dispatch transport: local RPC (%s)", cfg.MCPServerCommand)
			return exec
		} else {
			logging.Tools("local tool server unavailable: %v", err)
		}
	}
	if cfg.RedisAddr != "" {
		if exec, err := NewQueueExecutor(ctx, cfg.RedisAddr); err == nil {
			logging.Tools("dispatch transport: redis queue (%s)", cfg.RedisAddr)
			return exec
		} else {
			logging.Tools("redis queue unavailable: %v", err)
		}
	}
	logging.Tools("no dispatch transport available")
	return Unavailable{}
}
