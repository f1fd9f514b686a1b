package chat

import (
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"lucius/internal/app"
	"lucius/internal/llm"
	"lucius/internal/logging"
)

// handleCommand dispatches a /command typed at the prompt.
func (m Model) handleCommand(input string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(input)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/quit", "/exit":
		m.quitting = true
		return m, tea.Quit

	case "/help":
		logging.UI("mode -> help")
		m.state.SetMode(app.ModeHelp)
		m.snap.Mode = app.ModeHelp

	case "/settings":
		logging.UI("mode -> settings")
		m.settingsCursor = m.selectedModelIndex()
		m.state.SetMode(app.ModeSettings)
		m.snap.Mode = app.ModeSettings

	case "/clear":
		m.enqueue(app.ClearHistory{})

	case "/refresh":
		m.enqueue(app.Refresh{})

	case "/model":
		if len(args) > 0 {
			m.enqueue(app.SelectModel{Name: args[0]})
		}

	case "/endpoint":
		if len(args) > 0 {
			m.enqueue(app.SetEndpoint{URL: args[0]})
		}

	case "/copy":
		m.copyLastResponse()
	}
	return m, nil
}

// enqueue hands an action to the worker, reporting a drop on the status
// line instead of blocking the keystroke.
func (m Model) enqueue(a app.Action) {
	if !m.queue.Enqueue(a) {
		m.state.SetStatus("busy, action dropped")
	}
}

// copyLastResponse puts the newest assistant answer on the clipboard.
func (m Model) copyLastResponse() {
	for i := len(m.snap.Display) - 1; i >= 0; i-- {
		if m.snap.Display[i].Kind != llm.KindAssistant {
			continue
		}
		if err := clipboard.WriteAll(m.snap.Display[i].Text); err != nil {
			m.state.SetStatus("clipboard unavailable")
		} else {
			m.state.SetStatus("copied last response")
		}
		return
	}
	m.state.SetStatus("nothing to copy")
}

// selectedModelIndex finds the current model in the catalogue so the
// settings cursor starts on it.
func (m Model) selectedModelIndex() int {
	for i, model := range m.snap.Models {
		if model.Name == m.snap.Model {
			return i
		}
	}
	return 0
}
