// Package mockserver is an in-memory implementation of the chat REST contract,
// used by tests and by `chatctl mockserver` for local work.
package mockserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/capitalize-ai/conversational-client/internal/handler"
	"github.com/capitalize-ai/conversational-client/internal/middleware"
	"github.com/capitalize-ai/conversational-client/internal/service"
	"github.com/capitalize-ai/conversational-client/pkg/logger"
)

// APIPrefix is where the REST routes are mounted.
const APIPrefix = "/api"

// Config holds server settings.
type Config struct {
	JWTSecret string
	TokenTTL  time.Duration
	// RateLimitRequests of zero disables rate limiting.
	RateLimitRequests int
	RateLimitWindow   time.Duration
	// Responder answers chat messages; nil echoes them.
	Responder service.Responder
}

// Server is the reference chat server.
type Server struct {
	router    chi.Router
	assistant string
	users     *service.UserService
	convs     *service.ConversationService
	faults    *faults
	logger    *logger.Logger
}

// New builds the router and its in-memory services.
func New(cfg Config, log *logger.Logger) *Server {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	log = log.Named("mockserver")

	users := service.NewUserService(log)
	convs := service.NewConversationService(log)
	msgs := service.NewMessageService(convs, cfg.Responder, log)

	healthHandler := handler.NewHealthHandler()
	authHandler := handler.NewAuthHandler(users, cfg.JWTSecret, cfg.TokenTTL, log)
	conversationHandler := handler.NewConversationHandler(convs, log)
	messageHandler := handler.NewMessageHandler(msgs, log)

	s := &Server{
		assistant: assistantName(cfg.Responder),
		users:     users,
		convs:     convs,
		faults:    newFaults(),
		logger:    log,
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS())

	r.Get("/health", healthHandler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route(APIPrefix, func(r chi.Router) {
		r.Use(s.faults.middleware)

		// Public
		r.Group(func(r chi.Router) {
			if cfg.RateLimitRequests > 0 {
				r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
			}
			r.Post("/auth/signin", authHandler.SignIn)
			r.Post("/auth/signup", authHandler.SignUp)
		})

		// Authenticated
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret, users))
			if cfg.RateLimitRequests > 0 {
				r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
			}

			r.Post("/auth/logout", authHandler.Logout)
			r.Get("/auth/me", authHandler.Me)

			r.Get("/history/conversations", conversationHandler.List)
			r.Get("/history/conversations/{id}", conversationHandler.Get)
			r.Post("/chat/create-chat", conversationHandler.Create)
			r.Post("/chat/send", messageHandler.Send)
			r.Delete("/chats/{id}", conversationHandler.Delete)
		})
	})

	s.router = r
	return s
}

// assistantName describes r for logs: the LLM provider, or echo.
func assistantName(r service.Responder) string {
	if p, ok := r.(interface{ Provider() string }); ok {
		return p.Provider()
	}
	return "echo"
}

// Assistant names what answers chat messages.
func (s *Server) Assistant() string {
	return s.assistant
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// FailNext makes the next request matching method and path (relative to
// APIPrefix) fail with status and a {"message": message} body.
func (s *Server) FailNext(method, path string, status int, message string) {
	s.faults.add(method, path, status, message)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", addr), zap.String("assistant", s.assistant))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("server forced to shutdown", zap.Error(err))
		return err
	}

	s.logger.Info("server stopped")
	return nil
}
