package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/brightline-agency/agency/internal/cli/session"
	"github.com/brightline-agency/agency/internal/models"
)

// NewLoginCmd creates the login command
func NewLoginCmd(app *App) *cobra.Command {
	var email, password, redirect string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the agency API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, app, email, password, redirect)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set "+EnvEmail+")")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set "+EnvPassword+", will prompt if not provided)")
	cmd.Flags().StringVar(&redirect, "redirect", "", "Route to continue with after signing in")

	return cmd
}

func runLogin(cmd *cobra.Command, app *App, email, password, redirect string) error {
	ctx := cmd.Context()
	h := session.FromContext(ctx)
	out := cmd.OutOrStdout()

	email, password, err := credentials(email, password)
	if err != nil {
		return err
	}

	// Let validation of a previous session settle before replacing it
	if err := h.WaitReady(ctx); err != nil {
		return err
	}

	fmt.Fprintf(out, "Logging in to %s...\n", app.Transport.BaseURL())

	resp, err := app.API.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if err := h.LoginAndRedirect(resp.AccessToken, &resp.User, app.redirectTarget(redirect)); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	printWelcome(out, "✓ Login successful!", &resp.User)
	return nil
}

func printWelcome(out io.Writer, headline string, user *models.UserProfile) {
	fmt.Fprintln(out, headline)
	fmt.Fprintf(out, "  User: %s (%s)\n", user.Name, user.Email)
	if user.IsAdmin() {
		fmt.Fprintln(out, "  Role: Admin")
	}
}
