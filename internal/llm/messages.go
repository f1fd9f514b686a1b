// Package llm talks to an Ollama-compatible model endpoint: model listing,
// reachability probes, and the streaming chat call that watches for tool
// directives mid-stream.
package llm

import "lucius/internal/mcp"

// Kind tags a conversation entry. The history is append-only; entries are
// never mutated in place.
type Kind int

const (
	// KindUser is a prompt typed by the user.
	KindUser Kind = iota
	// KindAssistant is final assistant prose.
	KindAssistant
	// KindToolCallRecord is the serialized tool call the model emitted.
	KindToolCallRecord
	// KindToolResult is the text a tool execution produced.
	KindToolResult
)

// Message is one role-tagged conversation entry.
type Message struct {
	Kind Kind
	Text string
}

// UserMessage builds a user entry.
func UserMessage(text string) Message { return Message{Kind: KindUser, Text: text} }

// AssistantMessage builds an assistant entry.
func AssistantMessage(text string) Message { return Message{Kind: KindAssistant, Text: text} }

// ToolCallMessage builds a tool-call record entry.
func ToolCallMessage(serialized string) Message {
	return Message{Kind: KindToolCallRecord, Text: serialized}
}

// ToolResultMessage builds a tool-result entry.
func ToolResultMessage(text string) Message { return Message{Kind: KindToolResult, Text: text} }

// Model is one entry of the endpoint's model catalogue.
type Model struct {
	Name string `json:"name"`
}

// TurnResult is the outcome of one streaming chat call: either final
// assistant text, or a tool call detected before the stream finished.
type TurnResult struct {
	// Call is non-nil when a tool directive was detected mid-stream.
	Call *mcp.ToolCall
	// Final holds the accumulated assistant text when Call is nil.
	Final string
}

// ToolCallDetected reports whether the turn stopped on a tool directive.
func (r TurnResult) ToolCallDetected() bool { return r.Call != nil }

// chatMessage is the provider's wire message shape.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// toWire maps history entries to the provider's role vocabulary, preserving
// order. The optional preamble becomes a leading system message. Entries
// with an unknown kind are dropped.
func toWire(history []Message, preamble string) []chatMessage {
	out := make([]chatMessage, 0, len(history)+1)
	if preamble != "" {
		out = append(out, chatMessage{Role: "system", Content: preamble})
	}
	for _, m := range history {
		switch m.Kind {
		case KindUser:
			out = append(out, chatMessage{Role: "user", Content: m.Text})
		case KindAssistant, KindToolCallRecord:
			out = append(out, chatMessage{Role: "assistant", Content: m.Text})
		case KindToolResult:
			out = append(out, chatMessage{Role: "tool", Content: m.Text})
		}
	}
	return out
}
