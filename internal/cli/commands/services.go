package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewServicesCmd creates the services command. The catalog is public.
func NewServicesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "List the agency's services",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := app.API.ListServices(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(services) == 0 {
				fmt.Fprintln(out, "No services found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TITLE\tSLUG\tDESCRIPTION")
			fmt.Fprintln(w, "─────\t────\t───────────")
			for _, s := range services {
				fmt.Fprintf(w, "%s\t%s\t%s\n", s.Title, s.Slug, s.Description)
			}
			return w.Flush()
		},
	}
}
