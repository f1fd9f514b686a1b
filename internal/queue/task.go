// Package queue dispatches tool calls through a Redis task queue instead of
// a local subprocess: the client pushes tasks, remote workers pop them,
// execute, and publish prefixed results under a per-task key.
package queue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"lucius/internal/mcp"
)

const (
	// TaskQueueKey is the shared list all workers block on.
	TaskQueueKey = "mcp::tasks::all"
	// ResultKeyPrefix plus the task id names the per-task result list.
	ResultKeyPrefix = "mcp::result::"
	// ResultTTL bounds how long an unclaimed result lingers.
	ResultTTL = time.Hour
	// PollTimeout bounds one blocking wait for a result or a task.
	PollTimeout = 30 * time.Second
)

// Task type values as they appear on the wire.
const (
	TaskTypeShell  = "SHELL"
	TaskTypeDocker = "DOCKER"
)

// Result prefixes workers stamp on the published text.
const (
	ResultPrefixSuccess = "SUCCESS:"
	ResultPrefixError   = "ERROR:"
)

// Task is one queued unit of work.
type Task struct {
	ID         string `json:"id"`
	TargetHost string `json:"target_host,omitempty"`
	TaskType   string `json:"task_type"`
	Details    string `json:"details"`
}

// ResultKey names the list a worker publishes this task's result to.
func (t Task) ResultKey() string {
	return ResultKeyPrefix + t.ID
}

// ClassifyTool maps a tool name to a task type. Anything unrecognized runs
// as a shell task.
func ClassifyTool(tool string) string {
	switch strings.ToLower(tool) {
	case "docker":
		return TaskTypeDocker
	default:
		return TaskTypeShell
	}
}

// NewTask builds a queued task from a detected tool call. The call's params
// must carry a command; host is optional and routes the task to a remote
// target.
func NewTask(call mcp.ToolCall) (Task, error) {
	var p struct {
		Command string `json:"command"`
		Host    string `json:"host"`
	}
	if err := json.Unmarshal(call.Params, &p); err != nil {
		return Task{}, fmt.Errorf("invalid tool params: %w", err)
	}
	if p.Command == "" {
		return Task{}, fmt.Errorf("tool %q has no command to queue", call.Tool)
	}
	return Task{
		ID:         uuid.NewString(),
		TargetHost: p.Host,
		TaskType:   ClassifyTool(call.Tool),
		Details:    p.Command,
	}, nil
}
