package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-chi/chi/v5"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/capitalize-ai/conversational-client/internal/app"
	"github.com/capitalize-ai/conversational-client/internal/transport"
)

const chatHelp = `Commands:
  /list            list conversations
  /new [title]     start a conversation
  /open <id>       switch to a conversation
  /history         show the current conversation
  /delete <id>     delete a conversation
  /quit            leave
Anything else is sent to the current conversation.`

func newChatCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "chat [conversation-id]",
		Short: "start an interactive chat session",
		Long: `Start an interactive session. Without an id the most recent conversation
is opened, or a new one is started when there are none.

` + chatHelp,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			// Banners are printed above the chat view once it is running.
			notices := &noticeWriter{fallback: e.errOut}
			e.notices = notices

			a, err := e.authenticated(ctx)
			if err != nil {
				return err
			}

			expired := make(chan struct{})
			var once sync.Once
			a.OnExpired(func(transport.SessionExpired) {
				once.Do(func() { close(expired) })
			})
			go a.Run(ctx)

			if e.cfg.MetricsAddr != "" {
				stop := startDebugServer(e, a)
				defer stop()
			}

			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			e.out.banner("Chat, signed in as " + a.Session.User().Username)
			e.out.line("%s\n", chatHelp)
			if err := openConversation(ctx, e.out, a, id); err != nil {
				return err
			}

			in := newInputReader(e.in)
			program := tea.NewProgram(newChatModel(ctx, a), tea.WithInput(in.r), tea.WithOutput(e.out.out))
			notices.attach(program)

			done := make(chan struct{})
			go forwardSignals(program, expired, in.closed, done)

			_, err = program.Run()
			close(done)
			notices.detach()
			if err != nil {
				return fmt.Errorf("failed to run chat: %w", err)
			}

			select {
			case <-expired:
				e.out.errorf("your session has expired")
				e.out.line("\nRun 'chatctl login' to sign in again.")
				return errSilent
			default:
			}
			return nil
		},
	}
}

// openConversation selects id, or the most recent conversation, or a new one.
func openConversation(ctx context.Context, out printer, a *app.App, id string) error {
	convs := a.Conversations
	if id == "" {
		if err := convs.List(ctx); err != nil {
			return errSilent
		}
		if list := convs.Conversations(); len(list) > 0 {
			id = list[0].ConversationID
		}
	}
	if id == "" {
		if _, err := convs.Create(ctx, ""); err != nil {
			return errSilent
		}
		return nil
	}
	if err := convs.Fetch(ctx, id); err != nil {
		return errSilent
	}
	out.history(convs.Current())
	return nil
}

// forwardSignals turns session expiry and end of input into program messages.
func forwardSignals(p *tea.Program, expired, inputClosed <-chan struct{}, done <-chan struct{}) {
	for {
		select {
		case <-expired:
			p.Send(sessionExpiredMsg{})
			return
		case <-inputClosed:
			p.Send(inputClosedMsg{})
			inputClosed = nil
		case <-done:
			return
		}
	}
}

// inputReader reports when piped input runs out. Terminals are passed through
// untouched so the program can switch them to raw mode.
type inputReader struct {
	r      io.Reader
	closed chan struct{}
}

func newInputReader(r io.Reader) *inputReader {
	if f, ok := r.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return &inputReader{r: f}
	}

	in := &inputReader{closed: make(chan struct{})}
	var once sync.Once
	in.r = eofReader{r: r, onEOF: func() { once.Do(func() { close(in.closed) }) }}
	return in
}

type eofReader struct {
	r     io.Reader
	onEOF func()
}

func (r eofReader) Read(b []byte) (int, error) {
	n, err := r.r.Read(b)
	if errors.Is(err, io.EOF) {
		r.onEOF()
	}
	return n, err
}

// noticeWriter hands complete lines to the running program and writes to
// fallback before it starts and after it exits.
type noticeWriter struct {
	mu       sync.Mutex
	fallback io.Writer
	program  *tea.Program
	buf      []byte
}

func (w *noticeWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.program == nil {
		return w.fallback.Write(b)
	}

	w.buf = append(w.buf, b...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		line := string(w.buf[:i])
		w.buf = w.buf[i+1:]
		w.program.Send(noticeMsg(line))
	}
	return len(b), nil
}

func (w *noticeWriter) attach(p *tea.Program) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.program = p
}

func (w *noticeWriter) detach() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) > 0 {
		_, _ = w.fallback.Write(append(w.buf, '\n'))
		w.buf = nil
	}
	w.program = nil
}

// startDebugServer exposes /metrics and /health on CHAT_METRICS_ADDR while the session runs.
func startDebugServer(e *env, a *app.App) func() {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if a.Session.IsAuthenticated() {
			w.Write([]byte(`{"status":"authenticated"}`))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unauthenticated"}`))
	})

	server := &http.Server{Addr: e.cfg.MetricsAddr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.log.Warn("debug server stopped", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}
