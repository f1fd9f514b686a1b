package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"lucius/internal/logging"
	"lucius/internal/mcp"
)

// Client talks to an Ollama-compatible HTTP endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the given base URL, e.g.
// "http://127.0.0.1:11434". Streaming turns can run long, so the timeout is
// generous; callers bound individual requests with ctx.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Minute},
	}
}

// Ping probes the endpoint root. Any HTTP response counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("model endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Models fetches the endpoint's model catalogue from /api/tags.
func (c *Client) Models(ctx context.Context) ([]Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch models: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model list request failed: %s", resp.Status)
	}

	var payload struct {
		Models []Model `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode model list: %w", err)
	}
	logging.API("fetched %d models from %s", len(payload.Models), c.baseURL)
	return payload.Models, nil
}

// chatRequest is the streaming chat call body.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// chatChunk is one NDJSON line of the streaming response.
type chatChunk struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// StreamChat runs one model turn against /api/chat, accumulating streamed
// fragments. After every fragment the buffer is scanned for a complete tool
// directive; on the first match the stream is abandoned and the call is
// returned immediately. Otherwise the accumulated text is the final answer.
func (c *Client) StreamChat(ctx context.Context, model string, history []Message, preamble string) (TurnResult, error) {
	body, err := json.Marshal(chatRequest{
		Model:    model,
		Messages: toWire(history, preamble),
		Stream:   true,
	})
	if err != nil {
		return TurnResult{}, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return TurnResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return TurnResult{}, fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return TurnResult{}, fmt.Errorf("chat request failed: %s", resp.Status)
	}

	var accumulated bytes.Buffer
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var chunk chatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			logging.API("skipping malformed stream line: %v", err)
			continue
		}
		accumulated.WriteString(chunk.Message.Content)

		if call, ok := mcp.ParseToolCall(accumulated.String()); ok {
			logging.API("tool call detected mid-stream: %s", call.Tool)
			return TurnResult{Call: &call}, nil
		}
		if chunk.Done {
			return TurnResult{Final: accumulated.String()}, nil
		}
	}
	if err := scanner.Err(); err != nil {
		// Keep whatever arrived before the stream broke if it holds a
		// complete directive; otherwise surface the transport error.
		if call, ok := mcp.ParseToolCall(accumulated.String()); ok {
			return TurnResult{Call: &call}, nil
		}
		return TurnResult{}, fmt.Errorf("chat stream interrupted: %w", err)
	}

	// Stream ended without a done marker. Treat the accumulated text as
	// final after one last directive scan.
	if call, ok := mcp.ParseToolCall(accumulated.String()); ok {
		return TurnResult{Call: &call}, nil
	}
	return TurnResult{Final: accumulated.String()}, nil
}
