package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/brightline-agency/agency/internal/cli/guard"
)

// NewAdminCmd creates the admin command group
func NewAdminCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Back-office views (admins only)",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "users",
		Short: "List all accounts",
		RunE: guard.RequireAdmin(RouteAdminUsers, func(cmd *cobra.Command, args []string) error {
			users, err := app.API.ListUsers(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(users) == 0 {
				fmt.Fprintln(out, "No users found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tEMAIL\tROLE\tJOINED")
			fmt.Fprintln(w, "────\t─────\t────\t──────")
			for _, u := range users {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.Name, u.Email, u.Role, u.CreatedAt.Format("2006-01-02"))
			}
			return w.Flush()
		}),
	})

	return cmd
}
