package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"lucius/internal/llm"
	"lucius/internal/mcp"
)

// scriptedClient returns canned results in order, recording the history it
// was handed for each call.
type scriptedClient struct {
	script    []llm.TurnResult
	histories [][]llm.Message
	err       error
}

func (c *scriptedClient) StreamChat(ctx context.Context, model string, history []llm.Message, preamble string) (llm.TurnResult, error) {
	snapshot := make([]llm.Message, len(history))
	copy(snapshot, history)
	c.histories = append(c.histories, snapshot)
	if c.err != nil {
		return llm.TurnResult{}, c.err
	}
	if len(c.script) == 0 {
		return llm.TurnResult{Final: "out of script"}, nil
	}
	next := c.script[0]
	c.script = c.script[1:]
	return next, nil
}

type recordingExecutor struct {
	calls  []mcp.ToolCall
	result string
	err    error
}

func (e *recordingExecutor) Name() string { return "recording" }

func (e *recordingExecutor) Execute(ctx context.Context, call mcp.ToolCall) (string, error) {
	e.calls = append(e.calls, call)
	return e.result, e.err
}

func (e *recordingExecutor) Close() error { return nil }

func toolTurn(command string) llm.TurnResult {
	return llm.TurnResult{Call: &mcp.ToolCall{
		Tool:   "exec",
		Params: json.RawMessage(`{"command":"` + command + `"}`),
	}}
}

func TestTurnPlainAnswer(t *testing.T) {
	client := &scriptedClient{script: []llm.TurnResult{{Final: "hello"}}}
	o := &Orchestrator{Client: client, Executor: &recordingExecutor{}, MaxToolRounds: 10}

	final, err := o.Turn(context.Background(), []llm.Message{llm.UserMessage("hi")}, "m", "")
	if err != nil {
		t.Fatalf("Turn failed: %v", err)
	}
	if final != "hello" {
		t.Errorf("final = %q", final)
	}
}

func TestTurnExecutesToolAndFeedsResultBack(t *testing.T) {
	client := &scriptedClient{script: []llm.TurnResult{
		toolTurn("uptime"),
		{Final: "the box is up"},
	}}
	exec := &recordingExecutor{result: "SUCCESS: up 3 days"}
	o := &Orchestrator{Client: client, Executor: exec, MaxToolRounds: 10}

	final, err := o.Turn(context.Background(), []llm.Message{llm.UserMessage("is it up?")}, "m", "")
	if err != nil {
		t.Fatalf("Turn failed: %v", err)
	}
	if final != "the box is up" {
		t.Errorf("final = %q", final)
	}
	if len(exec.calls) != 1 || exec.calls[0].Tool != "exec" {
		t.Fatalf("executor calls: %+v", exec.calls)
	}

	// The second model call must see the tool-call record and its result
	// appended after the original history.
	if len(client.histories) != 2 {
		t.Fatalf("model called %d times, want 2", len(client.histories))
	}
	second := client.histories[1]
	if len(second) != 3 {
		t.Fatalf("second history has %d entries, want 3: %+v", len(second), second)
	}
	if second[1].Kind != llm.KindToolCallRecord || second[2].Kind != llm.KindToolResult {
		t.Errorf("appended kinds = %v, %v", second[1].Kind, second[2].Kind)
	}
	if second[2].Text != "SUCCESS: up 3 days" {
		t.Errorf("tool result text = %q", second[2].Text)
	}
}

func TestTurnDoesNotMutateCallerHistory(t *testing.T) {
	history := make([]llm.Message, 1, 8)
	history[0] = llm.UserMessage("check disk")

	client := &scriptedClient{script: []llm.TurnResult{
		toolTurn("df -h"),
		{Final: "plenty of space"},
	}}
	o := &Orchestrator{Client: client, Executor: &recordingExecutor{result: "ok"}, MaxToolRounds: 10}

	if _, err := o.Turn(context.Background(), history, "m", ""); err != nil {
		t.Fatalf("Turn failed: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("caller history grew to %d entries", len(history))
	}
	if history[0].Text != "check disk" {
		t.Errorf("caller history mutated: %+v", history[0])
	}
}

func TestTurnExecutorFailureBecomesToolResult(t *testing.T) {
	client := &scriptedClient{script: []llm.TurnResult{
		toolTurn("badcmd"),
		{Final: "that command does not exist"},
	}}
	exec := &recordingExecutor{err: errors.New("exit status 127")}
	o := &Orchestrator{Client: client, Executor: exec, MaxToolRounds: 10}

	final, err := o.Turn(context.Background(), []llm.Message{llm.UserMessage("run badcmd")}, "m", "")
	if err != nil {
		t.Fatalf("executor failure must not abort the turn: %v", err)
	}
	if final != "that command does not exist" {
		t.Errorf("final = %q", final)
	}
	second := client.histories[1]
	got := second[len(second)-1].Text
	if !strings.HasPrefix(got, "ERROR:") || !strings.Contains(got, "exit status 127") {
		t.Errorf("tool result = %q, want an ERROR: text", got)
	}
}

func TestTurnRoundLimit(t *testing.T) {
	// A model that always wants another tool.
	script := make([]llm.TurnResult, 0, 8)
	for i := 0; i < 8; i++ {
		script = append(script, toolTurn("loop"))
	}
	client := &scriptedClient{script: script}
	exec := &recordingExecutor{result: "ok"}
	o := &Orchestrator{Client: client, Executor: exec, MaxToolRounds: 3}

	_, err := o.Turn(context.Background(), []llm.Message{llm.UserMessage("go")}, "m", "")
	if !errors.Is(err, ErrRoundLimit) {
		t.Fatalf("err = %v, want ErrRoundLimit", err)
	}
	if len(exec.calls) != 3 {
		t.Errorf("executor ran %d times, want 3", len(exec.calls))
	}
}

func TestTurnObserversFire(t *testing.T) {
	client := &scriptedClient{script: []llm.TurnResult{
		toolTurn("uptime"),
		{Final: "done"},
	}}
	var seenCalls []string
	var seenResults []string
	o := &Orchestrator{
		Client:        client,
		Executor:      &recordingExecutor{result: "up"},
		MaxToolRounds: 10,
		OnToolCall:    func(call mcp.ToolCall) { seenCalls = append(seenCalls, call.Tool) },
		OnToolResult:  func(result string) { seenResults = append(seenResults, result) },
	}

	if _, err := o.Turn(context.Background(), []llm.Message{llm.UserMessage("x")}, "m", ""); err != nil {
		t.Fatalf("Turn failed: %v", err)
	}
	if len(seenCalls) != 1 || seenCalls[0] != "exec" {
		t.Errorf("OnToolCall saw %v", seenCalls)
	}
	if len(seenResults) != 1 || seenResults[0] != "up" {
		t.Errorf("OnToolResult saw %v", seenResults)
	}
}

func TestTurnModelErrorSurfaces(t *testing.T) {
	client := &scriptedClient{err: errors.New("connection refused")}
	o := &Orchestrator{Client: client, Executor: &recordingExecutor{}}

	_, err := o.Turn(context.Background(), []llm.Message{llm.UserMessage("x")}, "m", "")
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("err = %v", err)
	}
}
