package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/brightline-agency/agency/internal/cli/commands"
	"github.com/brightline-agency/agency/internal/cli/guard"
	"github.com/brightline-agency/agency/internal/config"
	"github.com/brightline-agency/agency/internal/logger"
	"github.com/brightline-agency/agency/internal/metrics"
)

var version = "dev" // Will be set during build

var (
	app         = &commands.App{}
	verbose     bool
	dumpMetrics bool
	apiURL      string
)

var rootCmd = &cobra.Command{
	Use:   "agency",
	Short: "Agency - client for the agency API",
	Long: `Agency CLI - Sign in to the agency API, manage your profile and browse
the service catalog. Admins get the back-office views.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// version needs no session
		if cmd.Name() == "version" {
			return nil
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if apiURL != "" {
			cfg.API.BaseURL = apiURL
			if err := cfg.Validate(); err != nil {
				return err
			}
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}

		log := logger.Init(cfg.Logging.Level, cfg.Logging.Format)
		if err := app.Init(cfg, metrics.New(), log, cmd.OutOrStdout()); err != nil {
			return err
		}

		cmd.SetContext(app.Start(cmd.Context()))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&dumpMetrics, "metrics", false, "Print client metrics on exit")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "API base URL (overrides AGENCY_API_URL)")

	// Add version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "agency version %s\n", version)
		},
	})

	// Add all subcommands
	rootCmd.AddCommand(commands.NewLoginCmd(app))
	rootCmd.AddCommand(commands.NewRegisterCmd(app))
	rootCmd.AddCommand(commands.NewLogoutCmd())
	rootCmd.AddCommand(commands.NewStatusCmd(app))
	rootCmd.AddCommand(commands.NewProfileCmd(app))
	rootCmd.AddCommand(commands.NewServicesCmd(app))
	rootCmd.AddCommand(commands.NewAdminCmd(app))
}

// Execute runs the root command
func Execute() error {
	err := rootCmd.Execute()

	if app.Initialized() {
		app.Close()
		if dumpMetrics {
			if dumpErr := app.Metrics.Dump(os.Stderr); dumpErr != nil {
				fmt.Fprintf(os.Stderr, "Error: failed to print metrics: %v\n", dumpErr)
			}
		}
	}

	if err != nil {
		// The navigation hint was already printed
		if !errors.Is(err, guard.ErrRedirected) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return err
	}
	return nil
}
