package chat

import (
	"encoding/json"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"lucius/internal/app"
	"lucius/internal/llm"
	"lucius/internal/mcp"
)

func newTestModel() Model {
	state := app.NewState("http://127.0.0.1:11434", "llama3:8b")
	return New(state, app.NewQueue())
}

func drainOne(t *testing.T, q *app.Queue) app.Action {
	t.Helper()
	select {
	case a := <-q.Actions():
		return a
	default:
		t.Fatal("expected an action on the queue")
		return nil
	}
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestEnterSendsMessage(t *testing.T) {
	m := newTestModel()
	m.textarea.SetValue("hello there")

	updated, _ := m.handleChatKey(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)

	a := drainOne(t, m.queue)
	send, ok := a.(app.SendMessage)
	if !ok || send.Text != "hello there" {
		t.Fatalf("action = %#v", a)
	}
	if m.textarea.Value() != "" {
		t.Error("input not cleared after send")
	}
}

func TestEnterIgnoresBlankInput(t *testing.T) {
	m := newTestModel()
	m.textarea.SetValue("   ")

	updated, _ := m.handleChatKey(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)

	select {
	case a := <-m.queue.Actions():
		t.Fatalf("blank input enqueued %#v", a)
	default:
	}
}

func TestSlashCommands(t *testing.T) {
	tests := []struct {
		input string
		check func(t *testing.T, m Model)
	}{
		{"/clear", func(t *testing.T, m Model) {
			if _, ok := drainOne(t, m.queue).(app.ClearHistory); !ok {
				t.Error("expected ClearHistory")
			}
		}},
		{"/refresh", func(t *testing.T, m Model) {
			if _, ok := drainOne(t, m.queue).(app.Refresh); !ok {
				t.Error("expected Refresh")
			}
		}},
		{"/model qwen2.5:7b", func(t *testing.T, m Model) {
			sel, ok := drainOne(t, m.queue).(app.SelectModel)
			if !ok || sel.Name != "qwen2.5:7b" {
				t.Errorf("action = %#v", sel)
			}
		}},
		{"/endpoint http://other:11434", func(t *testing.T, m Model) {
			set, ok := drainOne(t, m.queue).(app.SetEndpoint)
			if !ok || set.URL != "http://other:11434" {
				t.Errorf("action = %#v", set)
			}
		}},
		{"/help", func(t *testing.T, m Model) {
			if m.state.Mode() != app.ModeHelp {
				t.Error("mode did not switch to help")
			}
		}},
		{"/settings", func(t *testing.T, m Model) {
			if m.state.Mode() != app.ModeSettings {
				t.Error("mode did not switch to settings")
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			m := newTestModel()
			updated, _ := m.handleCommand(tt.input)
			tt.check(t, updated.(Model))
		})
	}
}

func TestQuitCommand(t *testing.T) {
	m := newTestModel()
	updated, cmd := m.handleCommand("/quit")
	if !updated.(Model).quitting {
		t.Error("quitting flag not set")
	}
	if cmd == nil {
		t.Error("expected tea.Quit command")
	}
}

func TestConfirmationKeys(t *testing.T) {
	for _, tt := range []struct {
		key  string
		want bool
	}{
		{"y", true},
		{"n", false},
	} {
		m := newTestModel()
		c := app.NewConfirmation(mcp.ToolCall{
			Tool:   "exec",
			Params: json.RawMessage(`{"command":"ls"}`),
		})
		m.snap.Mode = app.ModeConfirmation
		m.snap.Confirmation = c

		m.handleConfirmationKey(keyMsg(tt.key))

		select {
		case got := <-c.Answer():
			if got != tt.want {
				t.Errorf("key %q resolved %v, want %v", tt.key, got, tt.want)
			}
		default:
			t.Errorf("key %q did not resolve the confirmation", tt.key)
		}
	}
}

func TestSettingsNavigation(t *testing.T) {
	m := newTestModel()
	m.snap.Mode = app.ModeSettings
	m.snap.Models = []llm.Model{{Name: "a"}, {Name: "b"}}

	updated, _ := m.handleSettingsKey(keyMsg("j"))
	m = updated.(Model)
	if m.settingsCursor != 1 {
		t.Errorf("cursor = %d after down, want 1", m.settingsCursor)
	}
	updated, _ = m.handleSettingsKey(keyMsg("j"))
	m = updated.(Model)
	if m.settingsCursor != 1 {
		t.Errorf("cursor = %d, must stop at last entry", m.settingsCursor)
	}

	updated, _ = m.handleSettingsKey(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	sel, ok := drainOne(t, m.queue).(app.SelectModel)
	if !ok || sel.Name != "b" {
		t.Errorf("action = %#v, want SelectModel b", sel)
	}
	if m.state.Mode() != app.ModeChat {
		t.Error("settings did not return to chat after selection")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	long := truncate("aaaaaaaaaaaa", 4)
	if long != "aaaa..." {
		t.Errorf("truncate = %q", long)
	}
}
