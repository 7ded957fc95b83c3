package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/brightline-agency/agency/internal/cli/session"
)

// NewStatusCmd creates the status command, the root view
func NewStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, app, time.Now())
		},
	}
}

func runStatus(cmd *cobra.Command, app *App, now time.Time) error {
	ctx := cmd.Context()
	h := session.FromContext(ctx)
	out := cmd.OutOrStdout()

	if h.Loading() {
		fmt.Fprintln(cmd.ErrOrStderr(), "Checking session...")
		if err := h.WaitReady(ctx); err != nil {
			return err
		}
	}

	s := h.State()
	fmt.Fprintf(out, "API:         %s\n", app.Transport.BaseURL())
	fmt.Fprintf(out, "Credentials: %s\n", app.Config.Credentials.Backend)
	fmt.Fprintf(out, "Session:     %s\n", s.Phase())

	if s.IsAuthenticated() {
		fmt.Fprintf(out, "User:        %s (%s)\n", s.User.Name, s.User.Email)
		fmt.Fprintf(out, "Role:        %s\n", s.User.Role)
		printTokenExpiry(out, s.Token, now)
	} else {
		fmt.Fprintln(out, "\nSign in with: agency login")
	}

	if s.Err != "" {
		fmt.Fprintf(out, "\nLast error:  %s\n", s.Err)
		h.ClearError()
	}

	return nil
}

// printTokenExpiry shows the exp claim when the bearer token happens to be a
// JWT. The claims are not verified and do not influence the session.
func printTokenExpiry(out io.Writer, token string, now time.Time) {
	exp, ok := tokenExpiry(token)
	if !ok {
		return
	}

	if exp.Before(now) {
		fmt.Fprintf(out, "Token:       expired %s ago\n", now.Sub(exp).Round(time.Second))
		return
	}
	fmt.Fprintf(out, "Token:       expires in %s (%s)\n", exp.Sub(now).Round(time.Second), exp.Local().Format(time.RFC1123))
}

func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
