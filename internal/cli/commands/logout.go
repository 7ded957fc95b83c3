package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brightline-agency/agency/internal/cli/session"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			h := session.FromContext(cmd.Context())

			wasAuthenticated := h.Token() != ""
			h.Logout()

			if wasAuthenticated {
				fmt.Fprintln(cmd.OutOrStdout(), "✓ Logged out")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
			}
			return nil
		},
	}
}
