package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"agents-chat/internal/hub"
	"agents-chat/internal/session"
	"agents-chat/internal/types"
)

type selectedMsg struct {
	agentID  int
	messages []types.Message
	state    session.State
}

// conversationMsg carries a session update pushed from outside the program loop.
type conversationMsg struct {
	update session.Update
	state  session.State
}

type submittedMsg struct {
	agentID int
	result  hub.SubmitResult
}

type clearedMsg struct{ agentID int }

type errMsg struct {
	err    error
	source string
}

func selectCmd(caller *hub.LocalCaller, agentID int) tea.Cmd {
	return func() tea.Msg {
		var sel hub.Selection
		if err := caller.Invoke(context.Background(), "selection/select", map[string]int{"agentId": agentID}, &sel); err != nil {
			return errMsg{err: err, source: "select"}
		}
		var view hub.ConversationView
		if err := caller.Invoke(context.Background(), "conversation/load", map[string]int{"agentId": agentID}, &view); err != nil {
			return errMsg{err: err, source: "select"}
		}
		return selectedMsg{agentID: agentID, messages: view.Messages, state: view.State}
	}
}

func deselectCmd(caller *hub.LocalCaller) tea.Cmd {
	return func() tea.Msg {
		if err := caller.Invoke(context.Background(), "selection/clear", nil, nil); err != nil {
			return errMsg{err: err, source: "select"}
		}
		return nil
	}
}

func submitCmd(caller *hub.LocalCaller, agentID int, text string) tea.Cmd {
	return func() tea.Msg {
		var res hub.SubmitResult
		params := map[string]any{"agentId": agentID, "text": text}
		if err := caller.Invoke(context.Background(), "session/submit", params, &res); err != nil {
			return errMsg{err: err, source: "send"}
		}
		return submittedMsg{agentID: agentID, result: res}
	}
}

func clearCmd(caller *hub.LocalCaller, agentID int) tea.Cmd {
	return func() tea.Msg {
		if err := caller.Invoke(context.Background(), "conversation/clear", map[string]int{"agentId": agentID}, nil); err != nil {
			return errMsg{err: err, source: "clear"}
		}
		return clearedMsg{agentID: agentID}
	}
}
