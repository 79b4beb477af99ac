package cli

import (
	"context"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/capitalize-ai/conversational-client/internal/model"
	"github.com/capitalize-ai/conversational-client/internal/validate"
)

func newLoginCommand(e *env) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "sign in and save the credential locally",
		Long: `Sign in with username and password. The token is stored in
~/.chatctl/credentials.json (or CHAT_CREDENTIAL_FILE) and used by every
subsequent command until it expires or you log out.`,
		Example: `  # Prompt for username and password
  $ chatctl login

  # Prompt for the password only
  $ chatctl login -u alice`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				if err := survey.AskOne(&survey.Input{Message: "Username:"}, &username, survey.WithValidator(survey.Required)); err != nil {
					return fmt.Errorf("failed to read username: %w", err)
				}
			}
			if password == "" {
				if err := survey.AskOne(&survey.Password{Message: "Password:"}, &password, survey.WithValidator(survey.Required)); err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
			}
			if err := validate.Credentials(username, password); err != nil {
				e.out.errorf("%v", err)
				return errSilent
			}

			ctx := context.Background()
			a, err := e.open(ctx)
			if err != nil {
				return err
			}

			if err := a.Session.Login(ctx, username, password); err != nil {
				return errSilent
			}
			e.out.user(a.Session.User())
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")
	return cmd
}

func newRegisterCommand(e *env) *cobra.Command {
	var req model.RegisterRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "create an account and sign in",
		Example: `  $ chatctl register -u alice -e alice@example.com --first-name Alice
  $ chatctl register -u bob -e bob@example.com --first-name Bob --last-name Ng --dob 1990-02-03`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Password == "" {
				if err := survey.AskOne(&survey.Password{Message: "Choose a password:"}, &req.Password, survey.WithValidator(survey.MinLength(6))); err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
			}
			if err := validate.Registration(req); err != nil {
				e.out.errorf("%v", err)
				return errSilent
			}

			ctx := context.Background()
			a, err := e.open(ctx)
			if err != nil {
				return err
			}

			if err := a.Session.Register(ctx, req); err != nil {
				return errSilent
			}
			e.out.user(a.Session.User())
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&req.Username, "username", "u", "", "username (required)")
	f.StringVarP(&req.Email, "email", "e", "", "email address (required)")
	f.StringVarP(&req.Password, "password", "p", "", "password, at least 6 characters (prompted when omitted)")
	f.StringVar(&req.FirstName, "first-name", "", "first name (required)")
	f.StringVar(&req.LastName, "last-name", "", "last name")
	f.StringVar(&req.PhoneNumber, "phone", "", "phone number")
	f.StringVar(&req.DateOfBirth, "dob", "", "date of birth, YYYY-MM-DD")
	f.StringVar(&req.Address, "address", "", "postal address")
	return cmd
}

func newLogoutCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "sign out and forget the saved credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := e.open(ctx)
			if err != nil {
				return err
			}
			return a.Session.Logout(ctx)
		},
	}
}

func newWhoamiCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := e.authenticated(context.Background())
			if err != nil {
				return err
			}
			e.out.user(a.Session.User())
			return nil
		},
	}
}
