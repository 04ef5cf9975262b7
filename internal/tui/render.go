package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"agents-chat/internal/types"
)

var (
	headerStyle     = lipgloss.NewStyle().Bold(true)
	footerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("160"))
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	noticeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	confirmStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	userLabelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	agentLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("170")).Bold(true)
	inputBackground = lipgloss.AdaptiveColor{Light: "252", Dark: "236"}
	msgBoxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Background(inputBackground)
	focusBoxStyle   = msgBoxStyle.BorderForeground(lipgloss.Color("62"))
)

func newRenderer(width int) *glamour.TermRenderer {
	if width < 20 {
		width = 20
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return renderer
}

// renderConversation lays out the transcript oldest first. Assistant content goes through
// glamour; user content is wrapped as typed.
func renderConversation(msgs []types.Message, agentName string, width int, renderer *glamour.TermRenderer) string {
	if width <= 0 {
		width = 80
	}
	if len(msgs) == 0 {
		return dimStyle.Render(fmt.Sprintf("No messages yet. Say hello to %s.", agentName))
	}
	blocks := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		blocks = append(blocks, renderMessage(msg, agentName, width, renderer))
	}
	return strings.Join(blocks, "\n\n")
}

func renderMessage(msg types.Message, agentName string, width int, renderer *glamour.TermRenderer) string {
	stamp := time.UnixMilli(msg.Timestamp).Format("15:04:05")
	var label, body string
	switch msg.Role {
	case types.RoleUser:
		label = userLabelStyle.Render("You")
		body = lipgloss.NewStyle().Width(width).Render(msg.Content)
	default:
		label = agentLabelStyle.Render(agentName)
		body = renderMarkdown(msg.Content, width, renderer)
	}
	header := truncate(label+" "+dimStyle.Render(stamp), width)
	return header + "\n" + body
}

func renderMarkdown(content string, width int, renderer *glamour.TermRenderer) string {
	if renderer != nil {
		if out, err := renderer.Render(content); err == nil {
			return strings.Trim(out, "\n")
		}
	}
	return lipgloss.NewStyle().Width(width).Render(content)
}

func truncate(line string, width int) string {
	if width <= 0 {
		return line
	}
	return ansi.Truncate(line, width, "…")
}
