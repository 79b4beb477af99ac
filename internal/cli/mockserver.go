package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/capitalize-ai/conversational-client/internal/llm"
	"github.com/capitalize-ai/conversational-client/internal/mockserver"
)

func newMockServerCommand(e *env) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "mockserver",
		Short: "run the in-memory reference chat server",
		Long: `Run an in-memory server implementing the chat REST API under /api,
with an echo assistant. State is lost on exit.

Setting ANTHROPIC_API_KEY or OPENAI_API_KEY answers with that provider instead;
DEFAULT_LLM picks one when both are set and LLM_MODEL overrides its model.`,
		Example: `  $ chatctl mockserver --addr :8080
  $ CHAT_API_URL=http://localhost:8080/api chatctl register -u alice -e alice@example.com --first-name Alice`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = e.cfg.MockAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			responder, err := llm.ResponderFromConfig(e.cfg, e.log)
			if err != nil {
				return err
			}

			srv := mockserver.New(mockserver.Config{
				JWTSecret:         e.cfg.JWTSecret,
				TokenTTL:          e.cfg.JWTExpiration,
				RateLimitRequests: e.cfg.RateLimitRequests,
				RateLimitWindow:   e.cfg.RateLimitWindow,
				Responder:         responder,
			}, e.log)

			e.out.info("Serving the chat API on %s%s", addr, mockserver.APIPrefix)
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides MOCK_ADDR)")
	return cmd
}
