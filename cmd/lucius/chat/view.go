package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"lucius/internal/app"
	"lucius/internal/llm"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Initializing..."
	}

	switch m.snap.Mode {
	case app.ModeHelp:
		return m.renderHelp()
	case app.ModeSettings:
		return m.renderSettings()
	case app.ModeConfirmation:
		return m.renderConfirmation()
	default:
		return lipgloss.JoinVertical(lipgloss.Left,
			m.renderHeader(),
			m.viewport.View(),
			m.textarea.View(),
			m.renderFooter(),
		)
	}
}

func (m Model) renderHeader() string {
	status := m.styles.Offline.Render("● " + m.snap.ServerStatus.String())
	if m.snap.ServerStatus == app.StatusOnline {
		status = m.styles.Online.Render("● online")
	}
	title := fmt.Sprintf("Lucius  %s  %s", m.snap.Endpoint, status)
	return m.styles.Header.Width(m.width).Render(title)
}

func (m Model) renderFooter() string {
	left := fmt.Sprintf("model: %s", m.snap.Model)
	if m.snap.Model == "" {
		left = "model: (none)"
	}
	right := "/help for commands"
	if m.snap.Busy {
		right = m.spinner.View() + " " + m.snap.StatusLine
	} else if m.snap.StatusLine != "" {
		right = m.snap.StatusLine
	}
	return m.styles.Footer.Width(m.width).Render(left + "  |  " + right)
}

// renderHistory formats the display transcript, including per-turn tool
// traffic.
func (m Model) renderHistory() string {
	var sb strings.Builder
	for _, msg := range m.snap.Display {
		switch msg.Kind {
		case llm.KindUser:
			sb.WriteString(m.styles.UserLabel.Render("You") + "\n")
			sb.WriteString(msg.Text)
			sb.WriteString("\n\n")
		case llm.KindToolCallRecord:
			sb.WriteString(m.styles.ToolLine.Render("→ tool: "+msg.Text) + "\n")
		case llm.KindToolResult:
			sb.WriteString(m.styles.ToolLine.Render("← "+truncate(msg.Text, 500)) + "\n\n")
		default:
			sb.WriteString(m.styles.BotLabel.Render("Lucius") + "\n")
			sb.WriteString(m.safeRenderMarkdown(msg.Text))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// safeRenderMarkdown renders markdown with panic recovery.
func (m Model) safeRenderMarkdown(content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = content
		}
	}()
	if m.renderer != nil && content != "" {
		if rendered, err := m.renderer.Render(content); err == nil {
			return rendered
		}
	}
	return content
}

func (m Model) renderSettings() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Header.Render(" Settings ") + "\n\n")
	sb.WriteString(fmt.Sprintf("Endpoint: %s (%s)\n\n", m.snap.Endpoint, m.snap.ServerStatus))

	if len(m.snap.Models) == 0 {
		sb.WriteString(m.styles.Muted.Render("No models available. Press r to refresh.") + "\n")
	} else {
		sb.WriteString("Models:\n")
		for i, model := range m.snap.Models {
			cursor := "  "
			line := model.Name
			if model.Name == m.snap.Model {
				line += " (current)"
			}
			if i == m.settingsCursor {
				cursor = "> "
				line = m.styles.Selected.Render(line)
			}
			sb.WriteString(cursor + line + "\n")
		}
	}

	sb.WriteString("\n" + m.styles.Muted.Render("enter select · r refresh · esc back"))
	return sb.String()
}

func (m Model) renderHelp() string {
	rows := []string{
		"/help       show this screen",
		"/settings   endpoint status and model selection",
		"/model N    switch to model N",
		"/endpoint U point at a different server",
		"/copy       copy the last answer to the clipboard",
		"/clear      wipe the conversation",
		"/refresh    re-probe the server",
		"/quit       leave",
		"",
		"pgup/pgdn   scroll the transcript",
		"ctrl+c      leave immediately",
	}
	return m.styles.Header.Render(" Help ") + "\n\n" +
		strings.Join(rows, "\n") + "\n\n" +
		m.styles.Muted.Render("esc to return")
}

func (m Model) renderConfirmation() string {
	c := m.snap.Confirmation
	if c == nil {
		return ""
	}
	body := fmt.Sprintf("The model wants to run a tool:\n\n  %s %s\n\nAllow? (y/n)",
		c.Call.Tool, truncate(string(c.Call.Params), 200))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		m.styles.Dialog.Render(body))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
