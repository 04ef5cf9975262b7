// Package tui is the terminal chat front end: an agent sidebar grouped by category, the
// conversation of the selected agent and an input box.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"agents-chat/internal/catalog"
	"agents-chat/internal/hub"
	"agents-chat/internal/session"
	"agents-chat/internal/types"
	"agents-chat/internal/utils"
)

type focusArea int

const (
	focusAgents focusArea = iota
	focusInput
	focusChat
)

const inputHeight = 3

type model struct {
	server *hub.Server
	caller *hub.LocalCaller
	logger *utils.Logger

	width  int
	height int
	focus  focusArea

	agentsList list.Model
	chat       viewport.Model
	input      textarea.Model
	spinner    spinner.Model
	help       help.Model
	keys       keyMap

	renderer      *glamour.TermRenderer
	rendererWidth int

	agents   map[int]catalog.Agent
	active   int
	messages []types.Message
	pending  map[int]bool
	lastSeq  map[int]uint64
	spinning bool

	confirmClear bool
	showHelp     bool
	notice       string
	errMsg       string
}

// Run starts the program on the terminal and blocks until the user quits.
func Run(server *hub.Server) error {
	m := newModel(server)
	p := tea.NewProgram(m, tea.WithAltScreen())
	server.Session().OnUpdate(func(u session.Update) {
		p.Send(conversationMsg{update: u, state: server.Session().State(u.AgentID)})
	})
	_, err := p.Run()
	return err
}

func newModel(server *hub.Server) model {
	input := textarea.New()
	input.Placeholder = "Type a message"
	input.Prompt = ""
	input.ShowLineNumbers = false
	input.SetHeight(inputHeight)
	input.KeyMap.InsertNewline = defaultKeyMap.Newline
	input.FocusedStyle.Base = input.FocusedStyle.Base.Background(inputBackground)
	input.BlurredStyle.Base = input.BlurredStyle.Base.Background(inputBackground)
	input.FocusedStyle.CursorLine = input.FocusedStyle.CursorLine.Background(inputBackground)
	input.BlurredStyle.CursorLine = input.BlurredStyle.CursorLine.Background(inputBackground)

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = dimStyle

	agents := make(map[int]catalog.Agent)
	for _, agent := range server.Catalog().ListAgents("") {
		agents[agent.ID] = agent
	}

	m := model{
		server:     server,
		caller:     server.Caller(),
		logger:     server.Logger().Named("tui"),
		focus:      focusAgents,
		agentsList: newListModel(),
		chat:       viewport.New(0, 0),
		input:      input,
		spinner:    spin,
		help:       help.New(),
		keys:       defaultKeyMap,
		agents:     agents,
		pending:    make(map[int]bool),
		lastSeq:    make(map[int]uint64),
	}
	m.agentsList.SetSize(30, 20)
	m.agentsList.SetItems(buildAgentItems(server.Catalog().Grouped(), m.pending))
	if id, ok := server.LastAgent(); ok {
		if idx := itemIndex(m.agentsList.Items(), id); idx >= 0 {
			m.agentsList.Select(idx)
		}
	}
	return m
}

func newListModel() list.Model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowFilter(true)
	l.SetShowHelp(false)
	return l
}

func (m model) Init() tea.Cmd {
	if id, ok := m.server.LastAgent(); ok {
		return selectCmd(m.caller, id)
	}
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil
	case selectedMsg:
		m.active = msg.agentID
		m.messages = msg.messages
		m.errMsg = ""
		m.notice = ""
		m.confirmClear = false
		m.setFocus(focusInput)
		cmd := m.setPending(msg.agentID, msg.state == session.StateReplyPending)
		m.syncChat()
		return m, cmd
	case conversationMsg:
		u := msg.update
		// snapshots are sent outside the session lock and can arrive out of order
		if u.Seq <= m.lastSeq[u.AgentID] {
			return m, nil
		}
		m.lastSeq[u.AgentID] = u.Seq
		cmd := m.setPending(u.AgentID, msg.state == session.StateReplyPending)
		if u.AgentID == m.active {
			m.messages = u.Messages
			if u.Reason == session.ReasonCleared {
				m.notice = "History cleared"
			}
			m.syncChat()
		}
		return m, cmd
	case submittedMsg:
		if msg.result.Skipped {
			return m, nil
		}
		m.errMsg = ""
		m.notice = ""
		return m, m.setPending(msg.agentID, msg.result.State == session.StateReplyPending)
	case clearedMsg:
		m.confirmClear = false
		if msg.agentID == m.active {
			m.notice = "History cleared"
		}
		return m, nil
	case errMsg:
		m.errMsg = msg.err.Error()
		m.confirmClear = false
		m.logger.Errorf("%s: %v", msg.source, msg.err)
		return m, nil
	case spinner.TickMsg:
		if !m.anyPending() {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.MouseMsg:
		if msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown {
			var cmd tea.Cmd
			m.chat, cmd = m.chat.Update(msg)
			return m, cmd
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	if m.confirmClear {
		switch {
		case key.Matches(msg, m.keys.Confirm):
			m.confirmClear = false
			return m, clearCmd(m.caller, m.active)
		case key.Matches(msg, m.keys.Deny):
			m.confirmClear = false
		}
		return m, nil
	}
	if m.focus == focusAgents && m.agentsList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.agentsList, cmd = m.agentsList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Help) && m.focus != focusInput:
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		m.layout()
		return m, nil
	case key.Matches(msg, m.keys.Focus):
		m.cycleFocus()
		return m, nil
	case key.Matches(msg, m.keys.Clear):
		if m.active != 0 {
			m.confirmClear = true
			m.notice = ""
		}
		return m, nil
	case key.Matches(msg, m.keys.Back):
		if m.showHelp {
			m.showHelp = false
			m.help.ShowAll = false
			m.layout()
			return m, nil
		}
		if m.agentsList.FilterState() == list.FilterApplied {
			m.agentsList.ResetFilter()
			return m, nil
		}
		if m.active == 0 {
			return m, nil
		}
		m.active = 0
		m.messages = nil
		m.notice = ""
		m.setFocus(focusAgents)
		m.syncChat()
		return m, deselectCmd(m.caller)
	}

	var cmd tea.Cmd
	switch m.focus {
	case focusAgents:
		if key.Matches(msg, m.keys.Open) {
			if item, ok := m.agentsList.SelectedItem().(agentItem); ok {
				return m, selectCmd(m.caller, item.agent.ID)
			}
			return m, nil
		}
		m.agentsList, cmd = m.agentsList.Update(msg)
	case focusInput:
		if key.Matches(msg, m.keys.Send) {
			text := m.input.Value()
			if strings.TrimSpace(text) == "" || m.active == 0 {
				return m, nil
			}
			m.input.Reset()
			return m, submitCmd(m.caller, m.active, text)
		}
		m.input, cmd = m.input.Update(msg)
	case focusChat:
		m.chat, cmd = m.chat.Update(msg)
	}
	return m, cmd
}

func (m *model) cycleFocus() {
	if m.active == 0 {
		m.setFocus(focusAgents)
		return
	}
	switch m.focus {
	case focusAgents:
		m.setFocus(focusInput)
	case focusInput:
		m.setFocus(focusChat)
	default:
		m.setFocus(focusAgents)
	}
}

func (m *model) setFocus(f focusArea) {
	m.focus = f
	if f == focusInput {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

// setPending records the reply state of an agent and starts the spinner when the first
// reply becomes pending.
func (m *model) setPending(agentID int, pending bool) tea.Cmd {
	if m.pending[agentID] != pending {
		if pending {
			m.pending[agentID] = true
		} else {
			delete(m.pending, agentID)
		}
		m.agentsList.SetItems(buildAgentItems(m.server.Catalog().Grouped(), m.pending))
	}
	if m.anyPending() && !m.spinning {
		m.spinning = true
		return m.spinner.Tick
	}
	return nil
}

func (m model) anyPending() bool {
	return len(m.pending) > 0
}

func (m model) activeName() string {
	if agent, ok := m.agents[m.active]; ok {
		return agent.Name
	}
	return ""
}

func (m *model) layout() {
	left, right, height := m.paneSizes()
	m.agentsList.SetSize(left, height)
	m.input.SetWidth(right - 2)
	chatHeight := height - inputHeight - 3
	if chatHeight < 3 {
		chatHeight = 3
	}
	m.chat.Width = right
	m.chat.Height = chatHeight
	if m.renderer == nil || m.rendererWidth != right {
		m.renderer = newRenderer(right - 2)
		m.rendererWidth = right
	}
	m.syncChat()
}

func (m *model) syncChat() {
	if m.active == 0 {
		m.chat.SetContent(dimStyle.Render("Pick an agent to start chatting."))
		return
	}
	m.chat.SetContent(renderConversation(m.messages, m.activeName(), m.chat.Width, m.renderer))
	m.chat.GotoBottom()
}

// paneSizes splits the body into the sidebar and the chat column.
func (m model) paneSizes() (int, int, int) {
	width := m.width
	height := m.height - 4
	if m.showHelp {
		height -= 3
	}
	if height < 8 {
		height = 8
	}
	if width <= 0 {
		return 30, 50, height
	}
	left := int(float64(width) * 0.32)
	if left < 24 {
		left = 24
	}
	if left > width-30 {
		left = width / 2
	}
	return left, width - left - 2, height
}

func (m model) View() string {
	left, right, height := m.paneSizes()

	header := headerStyle.Render("agents-chat")
	if name := m.activeName(); name != "" {
		agent := m.agents[m.active]
		category, _ := m.server.Catalog().Category(agent.Category)
		header += dimStyle.Render(fmt.Sprintf("  %s · %s", name, category.Name))
	}

	sidebar := lipgloss.NewStyle().Width(left).Height(height).Render(m.agentsList.View())

	box := msgBoxStyle
	if m.focus == focusInput {
		box = focusBoxStyle
	}
	chatColumn := lipgloss.JoinVertical(lipgloss.Left,
		m.chat.View(),
		m.statusLine(right),
		box.Width(right-2).Render(m.input.View()),
	)
	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, "  ", lipgloss.NewStyle().Width(right).Render(chatColumn))

	footer := footerStyle.Render(m.help.View(m.keys))
	if m.confirmClear {
		footer = confirmStyle.Render(fmt.Sprintf("Clear history with %s? (y/n)", m.activeName()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, truncate(header, m.width), body, footer)
}

func (m model) statusLine(width int) string {
	var line string
	switch {
	case m.errMsg != "":
		line = errStyle.Render("error: " + m.errMsg)
	case m.pending[m.active]:
		line = m.spinner.View() + dimStyle.Render(fmt.Sprintf(" %s is typing…", m.activeName()))
	case m.notice != "":
		line = noticeStyle.Render(m.notice)
	}
	return truncate(line, width)
}
