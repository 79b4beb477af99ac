package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/capitalize-ai/conversational-client/internal/model"
	"github.com/capitalize-ai/conversational-client/internal/validate"
)

func newListCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "list your conversations",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := e.authenticated(ctx)
			if err != nil {
				return err
			}
			if err := a.Conversations.List(ctx); err != nil {
				return errSilent
			}
			e.out.conversations(a.Conversations.Conversations(), "")
			return nil
		},
	}
}

func newShowCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show <conversation-id>",
		Short: "show a conversation and its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validate.ID(args[0]); err != nil {
				e.out.errorf("%v", err)
				return errSilent
			}

			ctx := context.Background()
			a, err := e.authenticated(ctx)
			if err != nil {
				return err
			}
			if err := a.Conversations.Fetch(ctx, args[0]); err != nil {
				return errSilent
			}
			e.out.history(a.Conversations.Current())
			return nil
		},
	}
}

func newCreateCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "create [title]",
		Short:   "start a new conversation",
		Example: `  $ chatctl create "Trip planning"`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := ""
			if len(args) == 1 {
				title = strings.TrimSpace(args[0])
			}
			if err := validate.Title(title); err != nil {
				e.out.errorf("%v", err)
				return errSilent
			}

			ctx := context.Background()
			a, err := e.authenticated(ctx)
			if err != nil {
				return err
			}
			conv, err := a.Conversations.Create(ctx, title)
			if err != nil {
				return errSilent
			}
			e.out.line("%s", conv.ConversationID)
			return nil
		},
	}
}

func newDeleteCommand(e *env) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <conversation-id>",
		Short: "delete a conversation",
		Long: `Delete a conversation and its history.

By default you will be asked to confirm. Use --force to skip the prompt.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if err := validate.ID(id); err != nil {
				e.out.errorf("%v", err)
				return errSilent
			}

			if !force {
				confirmed := false
				prompt := &survey.Confirm{Message: fmt.Sprintf("Delete conversation %s?", id)}
				if err := survey.AskOne(prompt, &confirmed); err != nil {
					return fmt.Errorf("failed to read confirmation: %w", err)
				}
				if !confirmed {
					e.out.info("Deletion cancelled")
					return nil
				}
			}

			ctx := context.Background()
			a, err := e.authenticated(ctx)
			if err != nil {
				return err
			}
			if err := a.Conversations.Delete(ctx, id); err != nil {
				return errSilent
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation prompt")
	return cmd
}

func newSendCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "send <conversation-id> <message...>",
		Short:   "send one message and print the reply",
		Example: `  $ chatctl send 0190a1b2-... "What should I pack for Oslo in March?"`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			text := strings.Join(args[1:], " ")
			if err := validate.ID(id); err != nil {
				e.out.errorf("%v", err)
				return errSilent
			}
			if err := validate.MessageContent(text); err != nil {
				e.out.errorf("%v", err)
				return errSilent
			}

			ctx := context.Background()
			a, err := e.authenticated(ctx)
			if err != nil {
				return err
			}
			// Send needs a current conversation.
			if err := a.Conversations.Fetch(ctx, id); err != nil {
				return errSilent
			}
			res, err := a.Conversations.Send(ctx, id, text)
			if err != nil {
				return errSilent
			}
			e.out.message(model.RoleAssistant, res.Reply)
			return nil
		},
	}
}
