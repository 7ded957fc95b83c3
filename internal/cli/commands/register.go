package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brightline-agency/agency/internal/cli/prompt"
	"github.com/brightline-agency/agency/internal/cli/session"
	"github.com/brightline-agency/agency/internal/models"
)

// NewRegisterCmd creates the register command
func NewRegisterCmd(app *App) *cobra.Command {
	var req models.RegisterRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(cmd, app, req)
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Full name")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address (or set "+EnvEmail+")")
	cmd.Flags().StringVar(&req.Phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&req.Password, "password", "", "Password (or set "+EnvPassword+", will prompt if not provided)")

	return cmd
}

func runRegister(cmd *cobra.Command, app *App, req models.RegisterRequest) error {
	ctx := cmd.Context()
	h := session.FromContext(ctx)

	if req.Name == "" {
		name, err := prompt.Text("Name", "")
		if err != nil {
			if errors.Is(err, prompt.ErrNotInteractive) {
				return fmt.Errorf("name is required (use --name flag)")
			}
			return err
		}
		req.Name = name
	}

	email, password, err := credentials(req.Email, req.Password)
	if err != nil {
		return err
	}
	req.Email = email
	req.Password = password

	if len(req.Password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	if err := h.WaitReady(ctx); err != nil {
		return err
	}

	resp, err := app.API.Register(ctx, req)
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	// New accounts land on their profile unless a guard sent them here
	target := app.redirectTarget("")
	if target == RouteRoot {
		target = RouteProfile
	}

	if err := h.LoginAndRedirect(resp.AccessToken, &resp.User, target); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	printWelcome(cmd.OutOrStdout(), "✓ Account created!", &resp.User)
	return nil
}
