package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Tyrowin/chatroom/internal/chat"
	"github.com/Tyrowin/chatroom/internal/client"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	timeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	senderStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	selfStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	typingStyle  = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("244"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	onlineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	statusStyles = map[client.State]lipgloss.Style{
		client.StateConnecting:   lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		client.StateConnected:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		client.StateReconnecting: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		client.StateDisconnected: lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	}
)

// Rows taken by everything except the message viewport.
const chromeHeight = 5

type viewUpdatedMsg struct{}

type sessionClosedMsg struct{}

// model is the bubbletea program around one client.Session.
type model struct {
	session  *client.Session
	input    textinput.Model
	viewport viewport.Model
	view     client.View
	notice   string
	ready    bool
}

func newModel(session *client.Session) model {
	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.Prompt = "> "
	input.CharLimit = 500
	input.Focus()

	return model{
		session: session,
		input:   input,
		view:    session.View(),
	}
}

// waitForUpdate blocks until the session view changes.
func waitForUpdate(updates <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-updates; !ok {
			return sessionClosedMsg{}
		}
		return viewUpdatedMsg{}
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForUpdate(m.session.Updates()))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		height := max(msg.Height-chromeHeight, 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.input.Width = max(msg.Width-4, 10)
		m.refresh()
		return m, nil

	case viewUpdatedMsg:
		m.view = m.session.View()
		m.refresh()
		return m, waitForUpdate(m.session.Updates())

	case sessionClosedMsg:
		return m, tea.Quit

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		return m, tea.Quit

	case tea.KeyCtrlL:
		m.session.ClearMessages()
		m.notice = ""
		return m, nil

	case tea.KeyEnter:
		if err := m.session.SendMessage(m.input.Value()); err != nil {
			m.notice = err.Error()
			return m, nil
		}
		m.notice = ""
		m.input.Reset()
		return m, nil

	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if after := m.input.Value(); after != before {
		m.session.SetComposing(after)
	}
	return m, cmd
}

// refresh re-renders the message list into the viewport.
func (m *model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(renderMessages(m.view.Messages, m.view.Identity))
	m.viewport.GotoBottom()
}

func renderMessages(messages []chat.Message, self string) string {
	if len(messages) == 0 {
		return helpStyle.Render("No messages yet.")
	}

	var b strings.Builder
	for i, msg := range messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		sender := senderStyle.Render(msg.Sender)
		if msg.Sender == self {
			sender = selfStyle.Render("You")
		}
		fmt.Fprintf(&b, "%s %s: %s", timeStyle.Render(chat.FormatClock(msg.SentAt)), sender, msg.Body)
	}
	return b.String()
}

func renderOnline(online chat.OnlineView) string {
	label := fmt.Sprintf("%d online", online.Count)
	if len(online.Users) > 0 {
		label += ": " + strings.Join(online.Users, ", ")
	}
	return onlineStyle.Render(label)
}

func (m model) View() string {
	if !m.ready {
		return "Starting..."
	}

	status := statusStyles[m.view.State].Render(m.view.State.String())
	header := fmt.Sprintf("%s  %s  %s", titleStyle.Render("Chat Room"), status, renderOnline(m.view.Online))

	footer := typingStyle.Render(client.TypingLabel(m.view.Typing, m.view.Identity))
	if m.notice != "" {
		footer = noticeStyle.Render(m.notice)
	}

	help := helpStyle.Render(fmt.Sprintf("signed in as %s | enter send | ctrl+l clear | pgup/pgdn scroll | esc quit", m.view.Identity))

	return strings.Join([]string{header, m.viewport.View(), footer, m.input.View(), help}, "\n")
}
