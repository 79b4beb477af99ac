// Package cli is the chatctl command line: account commands, one-shot
// conversation commands, an interactive chat and the local reference server.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/capitalize-ai/conversational-client/internal/app"
	"github.com/capitalize-ai/conversational-client/internal/config"
	"github.com/capitalize-ai/conversational-client/internal/session"
	"github.com/capitalize-ai/conversational-client/pkg/logger"
)

const version = "0.1.0"

// errSilent is returned after the failure has already been printed.
var errSilent = errors.New("command failed")

// env carries the parsed flags and the lazily built App for one invocation.
type env struct {
	server   string
	timeout  time.Duration
	logLevel string
	quiet    bool

	in     io.Reader
	out    printer
	errOut io.Writer

	// notices receives notification banners; errOut when nil.
	notices io.Writer

	cfg *config.Config
	log *logger.Logger
	app *app.App
}

// NewRootCommand builds the chatctl command tree.
func NewRootCommand() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:     "chatctl",
		Short:   "Conversational chat client",
		Version: version,
		Long: `A command-line client for the conversational chat service. Sign in once,
then list, create and delete conversations, send messages, or open an
interactive chat session.`,
		Example: `  # Create an account and sign in
  $ chatctl register -u alice -e alice@example.com --first-name Alice

  # Start a conversation and talk to the assistant
  $ chatctl create "Trip planning"
  $ chatctl chat

  # Run the reference server locally
  $ chatctl mockserver --addr :8080`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return e.close()
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringVarP(&e.server, "server", "s", "", "API base URL (overrides CHAT_API_URL)")
	flags.DurationVar(&e.timeout, "timeout", 0, "per-request timeout (overrides CHAT_API_TIMEOUT)")
	flags.StringVar(&e.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")
	flags.BoolVarP(&e.quiet, "quiet", "q", false, "only show failure notifications")

	root.AddCommand(
		newLoginCommand(e),
		newRegisterCommand(e),
		newLogoutCommand(e),
		newWhoamiCommand(e),
		newListCommand(e),
		newShowCommand(e),
		newCreateCommand(e),
		newSendCommand(e),
		newDeleteCommand(e),
		newChatCommand(e),
		newMockServerCommand(e),
	)
	return root
}

// Execute runs chatctl with the process arguments. Errors not already shown are printed to stderr.
func Execute() error {
	root := NewRootCommand()
	err := root.Execute()
	if err != nil && !errors.Is(err, errSilent) {
		printer{out: root.ErrOrStderr()}.errorf("%v", err)
	}
	return err
}

func (e *env) setup(cmd *cobra.Command) error {
	e.in = cmd.InOrStdin()
	e.out = printer{out: cmd.OutOrStdout()}
	e.errOut = cmd.ErrOrStderr()

	e.cfg = config.Load()
	if e.server != "" {
		e.cfg.APIBaseURL = e.server
	}
	if e.timeout > 0 {
		e.cfg.APITimeout = e.timeout
	}
	if e.logLevel != "" {
		e.cfg.LogLevel = e.logLevel
	}

	var err error
	if e.cfg.IsDevelopment() {
		e.log, err = logger.NewDevelopment()
	} else {
		e.log, err = logger.New(e.cfg.LogLevel)
	}
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	logger.SetGlobal(e.log)
	return nil
}

// open builds the App on first use.
func (e *env) open(ctx context.Context) (*app.App, error) {
	if e.app != nil {
		return e.app, nil
	}
	notices := e.notices
	if notices == nil {
		notices = e.errOut
	}
	a, err := app.New(ctx, e.cfg, e.log, app.WithOutput(notices), app.WithQuiet(e.quiet))
	if err != nil {
		e.out.errorf("%v", err)
		return nil, errSilent
	}
	e.app = a
	return a, nil
}

// authenticated opens the App and restores the persisted session.
func (e *env) authenticated(ctx context.Context) (*app.App, error) {
	a, err := e.open(ctx)
	if err != nil {
		return nil, err
	}

	switch err := a.Session.Restore(ctx); {
	case err == nil:
		return a, nil
	case errors.Is(err, session.ErrNoSession):
		e.out.errorf("not logged in")
		e.out.line("\nRun 'chatctl login' to authenticate.")
	case errors.Is(err, session.ErrSessionExpired):
		e.out.errorf("your session has expired")
		e.out.line("\nRun 'chatctl login' to sign in again.")
	default:
		// the notifier has already reported the classified failure
	}
	return nil, errSilent
}

func (e *env) close() error {
	if e.app != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.app.Close(ctx); err != nil {
			return err
		}
	}
	if e.log != nil {
		_ = e.log.Sync()
	}
	return nil
}
