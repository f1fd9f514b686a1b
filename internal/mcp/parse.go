package mcp

import (
	"encoding/json"
	"strings"
)

// Markers wrapping a tool-call JSON object inside assistant text.
const (
	ToolCallOpen  = "[TOOL_CALL]"
	ToolCallClose = "[END_TOOL_CALL]"
)

// ParseToolCall scans text for the first complete marker pair and decodes
// the enclosed JSON object. The markers may be separated by any content,
// including newlines. Returns false for text without a complete pair or
// with a payload that does not (yet) decode; callers re-parse a growing
// buffer after each streamed fragment, so an incomplete payload is an
// expected state, not an error. Anything after the closing marker is
// ignored. Re-parsing unchanged text yields the same result.
func ParseToolCall(text string) (ToolCall, bool) {
	start := strings.Index(text, ToolCallOpen)
	if start < 0 {
		return ToolCall{}, false
	}
	rest := text[start+len(ToolCallOpen):]
	end := strings.Index(rest, ToolCallClose)
	if end < 0 {
		return ToolCall{}, false
	}

	payload := strings.TrimSpace(rest[:end])
	var call ToolCall
	if err := json.Unmarshal([]byte(payload), &call); err != nil {
		return ToolCall{}, false
	}
	if call.Tool == "" {
		return ToolCall{}, false
	}
	return call, true
}
