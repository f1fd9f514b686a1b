package app

// Action is a unit of work the UI hands to the background worker.
type Action interface{ actionName() string }

// Refresh re-probes the model endpoint and refetches the model list.
type Refresh struct{}

func (Refresh) actionName() string { return "refresh" }

// SendMessage submits a user prompt for a full orchestrated turn.
type SendMessage struct {
	Text string
}

func (SendMessage) actionName() string { return "send_message" }

// ClearHistory drops the conversation and its display.
type ClearHistory struct{}

func (ClearHistory) actionName() string { return "clear_history" }

// SelectModel switches the active model.
type SelectModel struct {
	Name string
}

func (SelectModel) actionName() string { return "select_model" }

// SetEndpoint repoints the client at a different server and refreshes.
type SetEndpoint struct {
	URL string
}

func (SetEndpoint) actionName() string { return "set_endpoint" }

// actionQueueSize bounds pending actions. The UI drops actions past this
// rather than blocking a keystroke.
const actionQueueSize = 16

// Queue is the bounded UI-to-worker action channel.
type Queue struct {
	ch chan Action
}

// NewQueue builds the action queue.
func NewQueue() *Queue {
	return &Queue{ch: make(chan Action, actionQueueSize)}
}

// Enqueue submits an action without blocking. It reports false when the
// queue is full and the action was dropped.
func (q *Queue) Enqueue(a Action) bool {
	select {
	case q.ch <- a:
		return true
	default:
		return false
	}
}

// Actions exposes the receive side to the worker.
func (q *Queue) Actions() <-chan Action { return q.ch }
