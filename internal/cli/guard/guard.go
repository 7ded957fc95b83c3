// Package guard gates views on the session state.
//
// Authenticated and Admin are pure policies over a session snapshot. The
// Require* helpers adapt them to cobra commands: they wait out hydration,
// then either run the view or navigate away.
package guard

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/brightline-agency/agency/internal/cli/navigate"
	"github.com/brightline-agency/agency/internal/cli/session"
)

// ErrRedirected is returned by a guarded command that navigated away instead of running
var ErrRedirected = errors.New("redirected")

// Action is what a guard decided
type Action int

const (
	// Wait renders a neutral waiting state while the session hydrates
	Wait Action = iota
	// Render lets the view run
	Render
	// Redirect navigates to Decision.To
	Redirect
)

func (a Action) String() string {
	switch a {
	case Wait:
		return "wait"
	case Render:
		return "render"
	default:
		return "redirect"
	}
}

// Decision is a guard's verdict for one render
type Decision struct {
	Action Action
	To     navigate.Location
}

// Authenticated lets authenticated sessions through and sends everyone else
// to the login view, remembering requested for the way back.
func Authenticated(s session.State, requested string) Decision {
	if s.Loading {
		return Decision{Action: Wait}
	}
	if !s.IsAuthenticated() {
		return Decision{Action: Redirect, To: navigate.Login(requested)}
	}
	return Decision{Action: Render}
}

// Admin lets admins through. Signed-in users without the role go back to the
// root, not to the login view.
func Admin(s session.State, requested string) Decision {
	if s.Loading {
		return Decision{Action: Wait}
	}
	if s.User == nil || s.Token == "" {
		return Decision{Action: Redirect, To: navigate.Login(requested)}
	}
	if !s.User.IsAdmin() {
		return Decision{Action: Redirect, To: navigate.Root()}
	}
	return Decision{Action: Render}
}

// Policy is a guard function
type Policy func(s session.State, requested string) Decision

// RunE is a cobra RunE
type RunE func(cmd *cobra.Command, args []string) error

// RequireAuth wraps run behind the Authenticated policy for route
func RequireAuth(route string, run RunE) RunE {
	return Require(Authenticated, route, run)
}

// RequireAdmin wraps run behind the Admin policy for route
func RequireAdmin(route string, run RunE) RunE {
	return Require(Admin, route, run)
}

// Require wraps run behind policy. The session comes from the command context.
func Require(policy Policy, route string, run RunE) RunE {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		h, ok := session.Lookup(ctx)
		if !ok {
			return fmt.Errorf("%s: %w", route, session.ErrNoProvider)
		}

		d, err := Evaluate(ctx, h, policy, route, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		if d.Action == Redirect {
			h.Navigate(d.To)
			return ErrRedirected
		}
		return run(cmd, args)
	}
}

// Evaluate applies policy, printing a waiting line to out and blocking on the
// session's ready signal while it hydrates.
func Evaluate(ctx context.Context, h *session.Handle, policy Policy, route string, out io.Writer) (Decision, error) {
	d := policy(h.State(), route)
	if d.Action != Wait {
		return d, nil
	}

	fmt.Fprintln(out, "Checking session...")
	if err := h.WaitReady(ctx); err != nil {
		return Decision{}, fmt.Errorf("waiting for session: %w", err)
	}

	return policy(h.State(), route), nil
}
