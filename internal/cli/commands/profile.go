package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/brightline-agency/agency/internal/cli/guard"
	"github.com/brightline-agency/agency/internal/cli/prompt"
	"github.com/brightline-agency/agency/internal/cli/session"
	"github.com/brightline-agency/agency/internal/models"
)

// NewProfileCmd creates the profile command group
func NewProfileCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "View and edit your profile",
	}

	cmd.AddCommand(newProfileShowCmd())
	cmd.AddCommand(newProfileRefreshCmd())
	cmd.AddCommand(newProfileUpdateCmd())
	cmd.AddCommand(newProfileWatchCmd(app))

	return cmd
}

func newProfileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show your profile",
		RunE: guard.RequireAuth(RouteProfile, func(cmd *cobra.Command, args []string) error {
			printProfile(cmd.OutOrStdout(), session.FromContext(cmd.Context()).User())
			return nil
		}),
	}
}

func newProfileRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Reload your profile from the API",
		RunE: guard.RequireAuth(RouteProfile, func(cmd *cobra.Command, args []string) error {
			h := session.FromContext(cmd.Context())
			if err := h.RefreshUserData(cmd.Context()); err != nil {
				return err
			}
			printProfile(cmd.OutOrStdout(), h.User())
			return nil
		}),
	}
}

func newProfileUpdateCmd() *cobra.Command {
	var name, email, phone string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update your name, email or phone",
		RunE: guard.RequireAuth(RouteProfile, func(cmd *cobra.Command, args []string) error {
			h := session.FromContext(cmd.Context())

			var update models.ProfileUpdate
			if cmd.Flags().Changed("name") {
				update.Name = &name
			}
			if cmd.Flags().Changed("email") {
				update.Email = &email
			}
			if cmd.Flags().Changed("phone") {
				update.Phone = &phone
			}

			if update.Empty() {
				prompted, err := promptProfileUpdate(h.User())
				if err != nil {
					return err
				}
				update = prompted
			}
			if update.Empty() {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to update.")
				return nil
			}

			user, err := h.UpdateUser(cmd.Context(), update)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "✓ Profile updated")
			printProfile(cmd.OutOrStdout(), user)
			return nil
		}),
	}

	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&email, "email", "", "New email address")
	cmd.Flags().StringVar(&phone, "phone", "", "New phone number")

	return cmd
}

// promptProfileUpdate asks for each field, keeping only the changed ones
func promptProfileUpdate(current *models.UserProfile) (models.ProfileUpdate, error) {
	var update models.ProfileUpdate

	name, err := prompt.Text("Name", current.Name)
	if err != nil {
		if errors.Is(err, prompt.ErrNotInteractive) {
			return update, fmt.Errorf("no changes given (use --name, --email or --phone)")
		}
		return update, err
	}
	email, err := prompt.Email("Email", current.Email)
	if err != nil {
		return update, err
	}
	phone, err := prompt.Optional("Phone", current.Phone)
	if err != nil {
		return update, err
	}

	if name != current.Name {
		update.Name = &name
	}
	if email != current.Email {
		update.Email = &email
	}
	if phone != current.Phone {
		update.Phone = &phone
	}
	return update, nil
}

func newProfileWatchCmd(app *App) *cobra.Command {
	var schedule string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep your profile fresh, printing every change",
		RunE: guard.RequireAuth(RouteProfile, func(cmd *cobra.Command, args []string) error {
			if schedule == "" {
				schedule = app.Config.Session.RefreshSchedule
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return watchProfile(ctx, cmd.OutOrStdout(), app, schedule)
		}),
	}

	cmd.Flags().StringVar(&schedule, "schedule", "", "Cron schedule for refreshes (default from config, e.g. \"@every 1m\")")

	return cmd
}

// watchProfile refreshes on schedule until ctx is done or the session ends
func watchProfile(ctx context.Context, out io.Writer, app *App, schedule string) error {
	h := session.FromContext(ctx)

	refresher, err := session.NewRefresher(ctx, app.Session, schedule, app.Logger)
	if err != nil {
		return err
	}

	var (
		mu       sync.Mutex
		last     = h.User()
		ended    = make(chan struct{})
		endOnce  sync.Once
		startMsg = fmt.Sprintf("Watching profile of %s (schedule %s). Press Ctrl+C to stop.", last.Email, schedule)
	)
	cancel := h.Subscribe(func(s session.State) {
		if !s.IsAuthenticated() {
			endOnce.Do(func() { close(ended) })
			return
		}

		mu.Lock()
		defer mu.Unlock()
		if !sameProfile(last, s.User) {
			fmt.Fprintf(out, "Profile changed: %s (%s), role %s\n", s.User.Name, s.User.Email, s.User.Role)
			last = s.User
		}
	})
	defer cancel()

	fmt.Fprintln(out, startMsg)
	refresher.Start()
	defer refresher.Stop()

	select {
	case <-ctx.Done():
		fmt.Fprintln(out, "Stopped.")
		return nil
	case <-ended:
		return fmt.Errorf("session ended while watching")
	}
}

func sameProfile(a, b *models.UserProfile) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID && a.Name == b.Name && a.Email == b.Email &&
		a.Phone == b.Phone && a.Role == b.Role && a.CreatedAt.Equal(b.CreatedAt)
}

func printProfile(out io.Writer, user *models.UserProfile) {
	if user == nil {
		return
	}

	fmt.Fprintf(out, "ID:      %s\n", user.ID)
	fmt.Fprintf(out, "Name:    %s\n", user.Name)
	fmt.Fprintf(out, "Email:   %s\n", user.Email)
	if user.Phone != "" {
		fmt.Fprintf(out, "Phone:   %s\n", user.Phone)
	}
	fmt.Fprintf(out, "Role:    %s\n", user.Role)
	if !user.CreatedAt.IsZero() {
		fmt.Fprintf(out, "Joined:  %s\n", user.CreatedAt.Format("2006-01-02"))
	}
}
