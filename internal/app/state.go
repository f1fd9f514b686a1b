// Package app holds the shared application state and the background worker
// that mutates it. The UI reads snapshots and enqueues actions; the worker
// owns all network traffic and all writes.
package app

import (
	"sync"

	"lucius/internal/llm"
	"lucius/internal/mcp"
)

// Mode is the UI's current interaction mode.
type Mode int

const (
	ModeChat Mode = iota
	ModeSettings
	ModeHelp
	ModeConfirmation
)

// ServerStatus is the last observed reachability of the model endpoint.
type ServerStatus int

const (
	StatusUnknown ServerStatus = iota
	StatusOnline
	StatusOffline
)

func (s ServerStatus) String() string {
	switch s {
	case StatusOnline:
		return "online"
	case StatusOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// Confirmation is a pending tool call awaiting a user verdict. Resolve is
// safe to call more than once; only the first verdict counts.
type Confirmation struct {
	Call mcp.ToolCall

	once   sync.Once
	answer chan bool
}

// NewConfirmation builds a pending confirmation for the given call.
func NewConfirmation(call mcp.ToolCall) *Confirmation {
	return &Confirmation{Call: call, answer: make(chan bool, 1)}
}

// Resolve records the user's verdict. Later calls are ignored.
func (c *Confirmation) Resolve(approved bool) {
	c.once.Do(func() { c.answer <- approved })
}

// Answer exposes the verdict channel to the waiting gate.
func (c *Confirmation) Answer() <-chan bool { return c.answer }

// State is the single shared application state. All fields are guarded by
// mu. The worker takes mu for writes; the render path uses TrySnapshot so a
// held lock skips a frame instead of blocking the UI.
type State struct {
	mu sync.Mutex

	mode         Mode
	endpoint     string
	serverStatus ServerStatus
	models       []llm.Model
	model        string
	busy         bool
	statusLine   string

	// history holds user prompts and final answers only. display also
	// carries the per-turn tool records and results for rendering.
	history []llm.Message
	display []llm.Message

	confirmation *Confirmation
}

// NewState builds a state seeded with the configured endpoint and model.
func NewState(endpoint, model string) *State {
	return &State{mode: ModeChat, endpoint: endpoint, model: model}
}

// Snapshot is an immutable copy of everything the UI renders.
type Snapshot struct {
	Mode         Mode
	Endpoint     string
	ServerStatus ServerStatus
	Models       []llm.Model
	Model        string
	Busy         bool
	StatusLine   string
	Display      []llm.Message
	Confirmation *Confirmation
}

// TrySnapshot copies the state without blocking. It fails only while the
// worker holds the lock, which is momentary since the lock is released
// across network calls.
func (s *State) TrySnapshot() (Snapshot, bool) {
	if !s.mu.TryLock() {
		return Snapshot{}, false
	}
	defer s.mu.Unlock()
	return s.snapshotLocked(), true
}

// Snapshot blocks for the lock. Used off the render path.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *State) snapshotLocked() Snapshot {
	return Snapshot{
		Mode:         s.mode,
		Endpoint:     s.endpoint,
		ServerStatus: s.serverStatus,
		Models:       append([]llm.Model(nil), s.models...),
		Model:        s.model,
		Busy:         s.busy,
		StatusLine:   s.statusLine,
		Display:      append([]llm.Message(nil), s.display...),
		Confirmation: s.confirmation,
	}
}

// SetMode switches the interaction mode.
func (s *State) SetMode(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
}

// Mode returns the current interaction mode.
func (s *State) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// History returns a copy of the persistent conversation.
func (s *State) History() []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]llm.Message(nil), s.history...)
}

// SetStatus publishes a transient status line. Exported for the UI, which
// reports dropped actions and clipboard results through it.
func (s *State) SetStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusLine = status
}

// SeedConversation replaces the conversation wholesale. Used at boot to
// restore the last saved transcript.
func (s *State) SeedConversation(msgs []llm.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append([]llm.Message(nil), msgs...)
	s.display = append([]llm.Message(nil), msgs...)
}

func (s *State) appendHistory(msgs ...llm.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, msgs...)
}

func (s *State) clearConversation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.display = nil
	s.statusLine = ""
}

// setServerStatus records reachability and replaces the model catalogue
// wholesale. Failure paths pass nil so a stale catalogue never outlives an
// unreachable endpoint. When no model is selected yet the first listed
// becomes current.
func (s *State) setServerStatus(status ServerStatus, models []llm.Model) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serverStatus = status
	s.models = models
	if s.model == "" && len(models) > 0 {
		s.model = models[0].Name
	}
}

func (s *State) setModel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name != "" {
		s.model = name
	}
}

func (s *State) setEndpoint(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endpoint = url
	s.serverStatus = StatusUnknown
	s.models = nil
}

func (s *State) setBusy(busy bool, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = busy
	s.statusLine = status
}

func (s *State) appendDisplay(msgs ...llm.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.display = append(s.display, msgs...)
}

// beginConfirmation parks a pending tool call and flips to confirmation
// mode. The returned confirmation is what the gate waits on.
func (s *State) beginConfirmation(call mcp.ToolCall) *Confirmation {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := NewConfirmation(call)
	s.confirmation = c
	s.mode = ModeConfirmation
	return c
}

// endConfirmation clears the pending call and returns to chat mode.
func (s *State) endConfirmation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmation = nil
	if s.mode == ModeConfirmation {
		s.mode = ModeChat
	}
}
