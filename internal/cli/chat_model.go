package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/capitalize-ai/conversational-client/internal/app"
	"github.com/capitalize-ai/conversational-client/internal/conversation"
	"github.com/capitalize-ai/conversational-client/internal/model"
	"github.com/capitalize-ai/conversational-client/internal/validate"
)

// UI configuration constants
const (
	defaultWidth         = 80
	defaultHistoryHeight = 10
	inputCharLimit       = 4000
	reservedRows         = 4
	minHistoryHeight     = 3
)

var (
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
)

// Message type definitions
type (
	// outputMsg carries the rendered result of one input line.
	outputMsg struct {
		text    string
		refresh bool   // the current conversation may have changed
		restore string // text to put back in the input after a failed send
	}
	noticeMsg         string
	idleMsg           struct{}
	sessionExpiredMsg struct{}
	inputClosedMsg    struct{}
)

func idle() tea.Msg { return idleMsg{} }

// chatModel runs one input line at a time. Lines typed while a call is in
// flight are queued, so output always appears in input order.
type chatModel struct {
	ctx context.Context
	app *app.App

	input   textinput.Model
	history viewport.Model

	queue       []string
	pending     []string // notices not yet printed
	busy        bool
	quitting    bool
	inputClosed bool
}

func newChatModel(ctx context.Context, a *app.App) chatModel {
	input := textinput.New()
	input.Placeholder = "Type a message or /help"
	input.Focus()
	input.CharLimit = inputCharLimit
	input.Width = defaultWidth - 3
	input.Prompt = ""

	m := chatModel{
		ctx:     ctx,
		app:     a,
		input:   input,
		history: viewport.New(defaultWidth, defaultHistoryHeight),
	}
	m.refreshHistory()
	return m
}

// Init initializes the model (Bubble Tea interface)
func (m chatModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update processes messages and updates the model (Bubble Tea interface)
func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			m.quitting = true
			return m, m.emit("", tea.Quit)
		case tea.KeyEnter, tea.KeyCtrlJ:
			if line := strings.TrimSpace(m.input.Value()); line != "" {
				m.queue = append(m.queue, line)
			}
			m.input.Reset()
			return m, m.next()
		case tea.KeyUp:
			m.history.LineUp(1)
			return m, nil
		case tea.KeyDown:
			m.history.LineDown(1)
			return m, nil
		case tea.KeyPgUp:
			m.history.ViewUp()
			return m, nil
		case tea.KeyPgDown:
			m.history.ViewDown()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.history.Width = msg.Width
		m.history.Height = max(msg.Height-reservedRows, minHistoryHeight)
		m.input.Width = msg.Width - 3
		m.refreshHistory()
		return m, nil

	case noticeMsg:
		m.pending = append(m.pending, string(msg))
		return m, nil

	case outputMsg:
		if msg.refresh {
			m.refreshHistory()
		}
		if msg.restore != "" && m.input.Value() == "" {
			m.input.SetValue(msg.restore)
			m.input.CursorEnd()
		}
		return m, m.emit(msg.text, idle)

	case idleMsg:
		m.busy = false
		return m, m.next()

	case inputClosedMsg:
		m.inputClosed = true
		return m, m.next()

	case sessionExpiredMsg:
		m.quitting = true
		return m, m.emit("", tea.Quit)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// next starts the oldest queued line unless a call is already running.
func (m *chatModel) next() tea.Cmd {
	if m.busy || m.quitting {
		return nil
	}
	if len(m.queue) == 0 {
		if m.inputClosed {
			m.quitting = true
			return m.emit("", tea.Quit)
		}
		return nil
	}

	line := m.queue[0]
	m.queue = m.queue[1:]
	m.busy = true

	if strings.HasPrefix(line, "/") {
		return m.command(line)
	}
	return m.send(line)
}

// emit prints pending notices and text above the view, then runs then.
func (m *chatModel) emit(text string, then tea.Cmd) tea.Cmd {
	lines := m.pending
	m.pending = nil
	if text = strings.TrimRight(text, "\n"); text != "" {
		lines = append(lines, text)
	}
	if len(lines) == 0 {
		return then
	}
	return tea.Sequence(tea.Println(strings.Join(lines, "\n")), then)
}

// render formats output synchronously with the CLI printer.
func render(fn func(out printer)) string {
	var b strings.Builder
	fn(printer{out: &b})
	return b.String()
}

// runCall executes a store call off the event loop and reports what it printed.
func runCall(fn func(out printer) bool) tea.Cmd {
	return func() tea.Msg {
		var b strings.Builder
		refresh := fn(printer{out: &b})
		return outputMsg{text: b.String(), refresh: refresh}
	}
}

func (m *chatModel) send(text string) tea.Cmd {
	if err := validate.MessageContent(text); err != nil {
		return m.emit(render(func(out printer) { out.errorf("%v", err) }), idle)
	}

	ctx, convs := m.ctx, m.app.Conversations
	return func() tea.Msg {
		var b strings.Builder
		out := printer{out: &b}

		res, err := convs.Send(ctx, "", text)
		switch {
		case errors.Is(err, conversation.ErrNotDispatched):
			out.info("Open or create a conversation first: /open <id> or /new")
			return outputMsg{text: b.String(), restore: text}
		case err != nil:
			out.info("Not sent. Your message is back in the input.")
			return outputMsg{text: b.String(), restore: text}
		}

		out.message(model.RoleUser, res.UserMessage.Content)
		out.message(model.RoleAssistant, res.Reply)
		return outputMsg{text: b.String(), refresh: true}
	}
}

// command runs a slash command.
func (m *chatModel) command(line string) tea.Cmd {
	ctx, convs := m.ctx, m.app.Conversations

	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/quit", "/exit":
		m.quitting = true
		return m.emit("", tea.Quit)

	case "/help":
		return m.emit(chatHelp, idle)

	case "/history":
		return m.emit(render(func(out printer) {
			if c := convs.Current(); c != nil {
				out.history(c)
				return
			}
			out.info("No conversation open")
		}), idle)

	case "/list":
		return runCall(func(out printer) bool {
			if convs.List(ctx) != nil {
				return false
			}
			cur := ""
			if c := convs.Current(); c != nil {
				cur = c.ConversationID
			}
			out.conversations(convs.Conversations(), cur)
			return false
		})

	case "/new":
		if err := validate.Title(arg); err != nil {
			return m.emit(render(func(out printer) { out.errorf("%v", err) }), idle)
		}
		return runCall(func(out printer) bool {
			c, err := convs.Create(ctx, arg)
			if err != nil {
				return false
			}
			out.info("Now chatting in %s", c.ConversationID)
			_ = convs.List(ctx)
			return true
		})

	case "/open":
		if err := validate.ID(arg); err != nil {
			return m.emit(render(func(out printer) { out.errorf("%v", err) }), idle)
		}
		return runCall(func(out printer) bool {
			if convs.Fetch(ctx, arg) != nil {
				return false
			}
			out.info("Now chatting in %s", arg)
			return true
		})

	case "/delete":
		if err := validate.ID(arg); err != nil {
			return m.emit(render(func(out printer) { out.errorf("%v", err) }), idle)
		}
		return runCall(func(out printer) bool {
			return convs.Delete(ctx, arg) == nil
		})
	}

	return m.emit(render(func(out printer) { out.errorf("unknown command %s, try /help", name) }), idle)
}

func (m *chatModel) refreshHistory() {
	c := m.app.Conversations.Current()
	if c == nil {
		m.history.SetContent(dimStyle.Render("No conversation open. Use /new or /open <id>."))
		return
	}

	var b strings.Builder
	out := printer{out: &b}
	for _, msg := range c.Messages {
		out.message(msg.Role, msg.Content)
	}
	m.history.SetContent(strings.TrimRight(b.String(), "\n"))
	m.history.GotoBottom()
}

// View renders the UI (Bubble Tea interface)
func (m chatModel) View() string {
	if m.quitting {
		return ""
	}

	status := dimStyle.Render("no conversation")
	if c := m.app.Conversations.Current(); c != nil {
		status = titleStyle.Render(c.Title) + dimStyle.Render(fmt.Sprintf("  %s, %d messages", c.ConversationID, len(c.Messages)))
	}
	if m.busy {
		status += dimStyle.Render(" • waiting for the assistant...")
	}

	prompt := promptStyle.Render("› ") + m.input.View()
	help := dimStyle.Render("Enter send • ↑↓ scroll • /help commands • Esc quit")

	return lipgloss.JoinVertical(lipgloss.Left, status, m.history.View(), prompt, help)
}
