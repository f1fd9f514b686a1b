// Package chat provides the interactive TUI for Lucius.
// The implementation is split across files:
//   - model.go: types, Init, Update loop
//   - commands.go: /command handling
//   - view.go: rendering functions
package chat

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"lucius/cmd/lucius/ui"
	"lucius/internal/app"
	"lucius/internal/logging"
)

// snapshotInterval is how often the view polls shared state. Polls use
// TryLock, so a busy worker costs a skipped frame, never a stall.
const snapshotInterval = 100 * time.Millisecond

// tickMsg drives the snapshot poll.
type tickMsg time.Time

// Model is the bubbletea model for the chat interface.
type Model struct {
	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	styles   ui.Styles
	renderer *glamour.TermRenderer

	state *app.State
	queue *app.Queue

	// snap is the last successful state snapshot; rendering always works
	// from this copy.
	snap app.Snapshot

	settingsCursor int
	displayLen     int
	width          int
	height         int
	ready          bool
	quitting       bool
}

// New builds the chat model over the shared state and action queue.
func New(state *app.State, queue *app.Queue) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask anything, or /help for commands"
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		renderer = nil
	}

	return Model{
		textarea: ta,
		spinner:  sp,
		styles:   ui.NewStyles(ui.DetectTheme()),
		renderer: renderer,
		state:    state,
		queue:    queue,
		snap:     state.Snapshot(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick, tick())
}

func tick() tea.Cmd {
	return tea.Tick(snapshotInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.resize(msg), nil

	case tickMsg:
		if snap, ok := m.state.TrySnapshot(); ok {
			m = m.applySnapshot(snap)
		}
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m Model) resize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height

	headerHeight := 2
	footerHeight := 2
	inputHeight := m.textarea.Height() + 1
	vpHeight := msg.Height - headerHeight - footerHeight - inputHeight
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = vpHeight
	}
	m.textarea.SetWidth(msg.Width)
	m.viewport.SetContent(m.renderHistory())
	return m
}

// applySnapshot takes a fresh state copy and refreshes the transcript view
// when it grew, keeping the viewport pinned to the newest entry.
func (m Model) applySnapshot(snap app.Snapshot) Model {
	m.snap = snap
	if len(snap.Display) != m.displayLen {
		m.displayLen = len(snap.Display)
		if m.ready {
			m.viewport.SetContent(m.renderHistory())
			m.viewport.GotoBottom()
		}
	}
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.quitting = true
		return m, tea.Quit
	}

	switch m.snap.Mode {
	case app.ModeConfirmation:
		return m.handleConfirmationKey(msg)
	case app.ModeSettings:
		return m.handleSettingsKey(msg)
	case app.ModeHelp:
		if msg.Type == tea.KeyEsc || msg.String() == "q" {
			m.state.SetMode(app.ModeChat)
			m.snap.Mode = app.ModeChat
		}
		return m, nil
	default:
		return m.handleChatKey(msg)
	}
}

func (m Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		input := strings.TrimSpace(m.textarea.Value())
		m.textarea.Reset()
		if input == "" {
			return m, nil
		}
		if strings.HasPrefix(input, "/") {
			return m.handleCommand(input)
		}
		m.enqueue(app.SendMessage{Text: input})
		return m, nil

	case tea.KeyPgUp:
		m.viewport.HalfViewUp()
		return m, nil
	case tea.KeyPgDown:
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m Model) handleSettingsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		m.state.SetMode(app.ModeChat)
		m.snap.Mode = app.ModeChat
	case "up", "k":
		if m.settingsCursor > 0 {
			m.settingsCursor--
		}
	case "down", "j":
		if m.settingsCursor < len(m.snap.Models)-1 {
			m.settingsCursor++
		}
	case "enter":
		if m.settingsCursor < len(m.snap.Models) {
			m.enqueue(app.SelectModel{Name: m.snap.Models[m.settingsCursor].Name})
			m.state.SetMode(app.ModeChat)
			m.snap.Mode = app.ModeChat
		}
	case "r":
		m.enqueue(app.Refresh{})
	}
	return m, nil
}

func (m Model) handleConfirmationKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := m.snap.Confirmation
	if c == nil {
		return m, nil
	}
	switch msg.String() {
	case "y", "Y", "enter":
		logging.UI("tool call %s approved", c.Call.Tool)
		c.Resolve(true)
	case "n", "N", "esc":
		logging.UI("tool call %s denied", c.Call.Tool)
		c.Resolve(false)
	}
	return m, nil
}
