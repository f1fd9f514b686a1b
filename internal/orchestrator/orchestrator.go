// Package orchestrator runs the chat turn loop: stream a model response,
// execute any tool call it emits, feed the result back, and repeat until the
// model answers in prose.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"lucius/internal/dispatch"
	"lucius/internal/llm"
	"lucius/internal/logging"
	"lucius/internal/mcp"
)

// ErrRoundLimit means the model kept requesting tools past the configured cap.
var ErrRoundLimit = errors.New("tool round limit reached")

// ChatClient is the model-facing half of the loop.
type ChatClient interface {
	StreamChat(ctx context.Context, model string, history []llm.Message, preamble string) (llm.TurnResult, error)
}

// Orchestrator drives one user turn to completion.
type Orchestrator struct {
	Client   ChatClient
	Executor dispatch.ToolExecutor

	// MaxToolRounds caps tool executions per turn. Zero means unbounded.
	MaxToolRounds int

	// OnToolCall and OnToolResult, when set, observe tool activity as it
	// happens so the caller can surface it before the turn completes.
	OnToolCall   func(call mcp.ToolCall)
	OnToolResult func(result string)
}

// Turn runs the loop for one user turn. The history is read, never mutated:
// tool-call records and tool results live only in this turn's working copy,
// so the persistent history keeps just user prompts and final answers.
func (o *Orchestrator) Turn(ctx context.Context, history []llm.Message, model, preamble string) (string, error) {
	working := make([]llm.Message, len(history))
	copy(working, history)

	for round := 0; ; round++ {
		if o.MaxToolRounds > 0 && round >= o.MaxToolRounds {
			logging.Tools("turn aborted after %d tool rounds", round)
			return "", fmt.Errorf("%w after %d rounds", ErrRoundLimit, round)
		}

		result, err := o.Client.StreamChat(ctx, model, working, preamble)
		if err != nil {
			return "", err
		}
		if !result.ToolCallDetected() {
			return result.Final, nil
		}

		call := *result.Call
		if o.OnToolCall != nil {
			o.OnToolCall(call)
		}

		record, err := json.Marshal(call)
		if err != nil {
			return "", fmt.Errorf("failed to serialize tool call: %w", err)
		}
		working = append(working, llm.ToolCallMessage(string(record)))

		toolResult := o.execute(ctx, call)
		if o.OnToolResult != nil {
			o.OnToolResult(toolResult)
		}
		working = append(working, llm.ToolResultMessage(toolResult))
	}
}

// execute runs one tool call. Failures become result text so the model can
// react to them; only ctx cancellation escapes as an error upstream, and it
// does so on the next StreamChat call.
func (o *Orchestrator) execute(ctx context.Context, call mcp.ToolCall) string {
	logging.Tools("executing %s via %s", call.Tool, o.Executor.Name())
	result, err := o.Executor.Execute(ctx, call)
	if err != nil {
		logging.Tools("tool %s failed: %v", call.Tool, err)
		return fmt.Sprintf("ERROR: %v", err)
	}
	return result
}
