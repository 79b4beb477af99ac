// Package app assembles the client: one credential store, one transport, the
// session and conversation stores, and the notifier. The App handle is passed
// explicitly to whatever needs the stores.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/capitalize-ai/conversational-client/internal/config"
	"github.com/capitalize-ai/conversational-client/internal/conversation"
	"github.com/capitalize-ai/conversational-client/internal/credential"
	natsclient "github.com/capitalize-ai/conversational-client/internal/nats"
	"github.com/capitalize-ai/conversational-client/internal/notify"
	"github.com/capitalize-ai/conversational-client/internal/session"
	"github.com/capitalize-ai/conversational-client/internal/transport"
	"github.com/capitalize-ai/conversational-client/pkg/logger"
	"github.com/capitalize-ai/conversational-client/pkg/tracing"
)

const serviceName = "chatctl"

type options struct {
	out       io.Writer
	quiet     bool
	creds     credential.Store
	transport []transport.Option
	notifiers []notify.Notifier
}

// Option customizes New.
type Option func(*options)

// WithOutput sets where console banners go. Defaults to stderr.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithQuiet hides success banners on the console.
func WithQuiet(quiet bool) Option {
	return func(o *options) { o.quiet = quiet }
}

// WithCredentials replaces the file credential store.
func WithCredentials(s credential.Store) Option {
	return func(o *options) { o.creds = s }
}

// WithTransportOptions passes options through to the transport client.
func WithTransportOptions(opts ...transport.Option) Option {
	return func(o *options) { o.transport = append(o.transport, opts...) }
}

// WithNotifier adds a notifier alongside the console and log ones.
func WithNotifier(n notify.Notifier) Option {
	return func(o *options) { o.notifiers = append(o.notifiers, n) }
}

// App is the assembled client.
type App struct {
	Config        *config.Config
	Logger        *logger.Logger
	Credentials   credential.Store
	Transport     *transport.Client
	Session       *session.Store
	Conversations *conversation.Store
	Notifier      notify.Notifier

	nats   *natsclient.Client
	tracer *sdktrace.TracerProvider

	mu        sync.Mutex
	onExpired func(transport.SessionExpired)
}

// New builds the client from cfg. NATS and tracing are optional and only
// started when configured; failing to reach them is logged, not fatal.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, opts ...Option) (*App, error) {
	o := options{out: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg, Logger: log}

	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, serviceName, cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			a.tracer = tp
		}
	}

	a.Credentials = o.creds
	if a.Credentials == nil {
		fs, err := credential.NewFileStore(cfg.CredentialFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open credential store: %w", err)
		}
		a.Credentials = fs
	}

	client, err := transport.New(transport.Config{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.APITimeout,
	}, a.Credentials, log, o.transport...)
	if err != nil {
		return nil, err
	}
	a.Transport = client
	log.Debug("transport ready", zap.String("base_url", client.BaseURL()))

	notifiers := notify.Multi{
		notify.NewConsole(o.out, o.quiet),
		notify.NewLog(log),
	}
	if cfg.NATSURL != "" {
		n, nc, err := notify.ConnectNATS(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Warn("outcome publishing disabled", zap.Error(err))
		} else {
			a.nats = nc
			notifiers = append(notifiers, n)
		}
	}
	notifiers = append(notifiers, o.notifiers...)
	a.Notifier = notifiers

	a.Session = session.New(client, a.Credentials, a.Notifier, log)
	a.Conversations = conversation.New(client, a.Session, a.Notifier, log)

	return a, nil
}

// OnExpired registers the callback Run invokes once per session expiry,
// typically to send the user back to login.
func (a *App) OnExpired(fn func(transport.SessionExpired)) {
	a.mu.Lock()
	a.onExpired = fn
	a.mu.Unlock()
}

// Run is the single listener for session-expired signals. It blocks until ctx is done.
func (a *App) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-a.Transport.Expired():
			if !a.Session.Expire(ctx) {
				continue
			}
			a.Conversations.Reset()

			a.mu.Lock()
			fn := a.onExpired
			a.mu.Unlock()
			if fn != nil {
				fn(ev)
			}
		}
	}
}

// Close releases NATS and flushes traces.
func (a *App) Close(ctx context.Context) error {
	if a.nats != nil {
		a.nats.Close()
	}
	if a.tracer != nil {
		if err := tracing.Shutdown(ctx, a.tracer); err != nil {
			return err
		}
	}
	return nil
}
