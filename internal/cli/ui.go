package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/capitalize-ai/conversational-client/internal/model"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
	boldColor    = color.New(color.Bold)
	dimColor     = color.New(color.Faint)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("42")).
			Padding(0, 1).
			Width(60)

	bannerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("86")).
			Padding(0, 2).
			Bold(true)
)

// printer writes command output to one writer.
type printer struct {
	out io.Writer
}

func (p printer) success(format string, args ...interface{}) {
	successColor.Fprintf(p.out, "✓ %s\n", fmt.Sprintf(format, args...))
}

func (p printer) errorf(format string, args ...interface{}) {
	errorColor.Fprintf(p.out, "✗ %s\n", fmt.Sprintf(format, args...))
}

func (p printer) info(format string, args ...interface{}) {
	infoColor.Fprintf(p.out, "ℹ %s\n", fmt.Sprintf(format, args...))
}

func (p printer) line(format string, args ...interface{}) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

func (p printer) box(title, content string) {
	fmt.Fprintln(p.out, boxStyle.Render(successColor.Sprint(title)+"\n\n"+content))
}

func (p printer) banner(text string) {
	fmt.Fprintln(p.out, bannerStyle.Render(text))
}

func (p printer) user(u *model.User) {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	content := fmt.Sprintf("Username:  %s\nUser ID:   %s", u.Username, u.ID)
	if name != "" {
		content += "\nName:      " + name
	}
	if u.Email != "" {
		content += "\nEmail:     " + u.Email
	}
	p.box("Signed in", content)
}

func (p printer) conversations(list []model.Conversation, currentID string) {
	if len(list) == 0 {
		p.info("No conversations yet. Create one with 'chatctl create <title>'.")
		return
	}
	for _, c := range list {
		marker := " "
		if c.ConversationID == currentID {
			marker = "*"
		}
		fmt.Fprintf(p.out, "%s %s  %s  %s\n",
			marker,
			boldColor.Sprint(c.ConversationID),
			c.Title,
			dimColor.Sprint(c.UpdatedAt.Local().Format(time.DateTime)),
		)
	}
}

func (p printer) history(c *model.Conversation) {
	boldColor.Fprintf(p.out, "%s\n", c.Title)
	dimColor.Fprintf(p.out, "%s, %d messages\n\n", c.ConversationID, len(c.Messages))
	for _, m := range c.Messages {
		p.message(m.Role, m.Content)
	}
}

func (p printer) message(role model.Role, content string) {
	switch role {
	case model.RoleAssistant:
		infoColor.Fprint(p.out, "assistant› ")
	default:
		boldColor.Fprint(p.out, "you› ")
	}
	fmt.Fprintln(p.out, content)
}
