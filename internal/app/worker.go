package app

import (
	"context"
	"fmt"

	"lucius/internal/dispatch"
	"lucius/internal/llm"
	"lucius/internal/logging"
	"lucius/internal/mcp"
	"lucius/internal/orchestrator"
)

// ModelClient is the endpoint surface the worker needs.
type ModelClient interface {
	Ping(ctx context.Context) error
	Models(ctx context.Context) ([]llm.Model, error)
	StreamChat(ctx context.Context, model string, history []llm.Message, preamble string) (llm.TurnResult, error)
}

// TranscriptStore persists finished conversations. Optional.
type TranscriptStore interface {
	SaveTranscript(ctx context.Context, model string, msgs []llm.Message) error
}

// Worker processes actions one at a time. It is the only writer of State,
// and it releases the state lock across every network call, so the UI's
// snapshots stay cheap while a turn is in flight.
type Worker struct {
	State    *State
	Queue    *Queue
	Client   ModelClient
	Executor dispatch.ToolExecutor
	Store    TranscriptStore

	Preamble      string
	MaxToolRounds int

	// NewClient rebuilds the model client when the endpoint changes.
	NewClient func(endpoint string) ModelClient
}

// Run services the action queue until ctx is cancelled. It refreshes server
// state once on entry so the UI comes up populated.
func (w *Worker) Run(ctx context.Context) error {
	w.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case action := <-w.Queue.Actions():
			w.handle(ctx, action)
		}
	}
}

func (w *Worker) handle(ctx context.Context, action Action) {
	logging.Worker("handling action %s", action.actionName())
	switch a := action.(type) {
	case Refresh:
		w.refresh(ctx)
	case SendMessage:
		w.sendMessage(ctx, a.Text)
	case ClearHistory:
		w.State.clearConversation()
	case SelectModel:
		w.State.setModel(a.Name)
	case SetEndpoint:
		w.setEndpoint(ctx, a.URL)
	}
}

// refresh probes the endpoint and refetches the model catalogue.
func (w *Worker) refresh(ctx context.Context) {
	w.State.setBusy(true, "checking server...")
	defer w.State.setBusy(false, "")

	if err := w.Client.Ping(ctx); err != nil {
		logging.API("endpoint offline: %v", err)
		w.State.setServerStatus(StatusOffline, nil)
		return
	}

	models, err := w.Client.Models(ctx)
	if err != nil {
		logging.API("model list failed: %v", err)
		w.State.setServerStatus(StatusOnline, nil)
		return
	}
	w.State.setServerStatus(StatusOnline, models)
}

// sendMessage runs one full orchestrated turn. The lock is not held across
// the turn: the conversation may be cleared meanwhile, and the outcome is
// appended to whatever the history is afterwards.
func (w *Worker) sendMessage(ctx context.Context, text string) {
	if text == "" {
		return
	}

	snap := w.State.Snapshot()
	if snap.Model == "" {
		w.State.SetStatus("no model selected")
		return
	}

	userMsg := llm.UserMessage(text)
	w.State.appendHistory(userMsg)
	w.State.appendDisplay(userMsg)
	w.State.setBusy(true, "thinking...")
	defer w.State.setBusy(false, "")

	history := w.State.History()

	o := &orchestrator.Orchestrator{
		Client:        w.Client,
		Executor:      w.Executor,
		MaxToolRounds: w.MaxToolRounds,
		OnToolCall: func(call mcp.ToolCall) {
			w.State.appendDisplay(llm.ToolCallMessage(fmt.Sprintf("%s %s", call.Tool, call.Params)))
			w.State.SetStatus(fmt.Sprintf("running %s...", call.Tool))
		},
		OnToolResult: func(result string) {
			w.State.appendDisplay(llm.ToolResultMessage(result))
			w.State.SetStatus("thinking...")
		},
	}

	final, err := o.Turn(ctx, history, snap.Model, w.Preamble)
	if err != nil {
		logging.Worker("turn failed: %v", err)
		w.State.appendDisplay(llm.AssistantMessage(fmt.Sprintf("error: %v", err)))
		return
	}

	answer := llm.AssistantMessage(final)
	w.State.appendHistory(answer)
	w.State.appendDisplay(answer)

	if w.Store != nil {
		if err := w.Store.SaveTranscript(ctx, snap.Model, w.State.History()); err != nil {
			logging.Worker("transcript save failed: %v", err)
		}
	}
}

// ConfirmGate is a dispatch.Gate that parks the call in state and waits for
// the UI to resolve it.
func (w *Worker) ConfirmGate(ctx context.Context, call mcp.ToolCall) (bool, error) {
	c := w.State.beginConfirmation(call)
	defer w.State.endConfirmation()

	select {
	case approved := <-c.Answer():
		return approved, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// setEndpoint rebuilds the client against a new base URL and refreshes.
func (w *Worker) setEndpoint(ctx context.Context, url string) {
	if url == "" || w.NewClient == nil {
		return
	}
	w.Client = w.NewClient(url)
	w.State.setEndpoint(url)
	w.refresh(ctx)
}
