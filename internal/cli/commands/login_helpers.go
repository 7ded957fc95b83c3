package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/brightline-agency/agency/internal/cli/prompt"
)

// Environment variables read when a flag is not given (useful for CI/CD)
const (
	EnvEmail    = "AGENCY_EMAIL"
	EnvPassword = "AGENCY_PASSWORD"
)

const minPasswordLength = 8

// credentials resolves email and password from flags, then the environment,
// then interactive prompts.
func credentials(email, password string) (string, string, error) {
	if email == "" {
		email = os.Getenv(EnvEmail)
	}
	if password == "" {
		password = os.Getenv(EnvPassword)
	}

	if email == "" {
		v, err := prompt.Email("Email", "")
		if err != nil {
			if errors.Is(err, prompt.ErrNotInteractive) {
				return "", "", fmt.Errorf("email is required (use --email flag or %s env var)", EnvEmail)
			}
			return "", "", err
		}
		email = v
	}

	if password == "" {
		v, err := prompt.Password("Password", 1)
		if err != nil {
			if errors.Is(err, prompt.ErrNotInteractive) {
				return "", "", fmt.Errorf("password is required in non-interactive mode (use --password flag or %s env var)", EnvPassword)
			}
			return "", "", err
		}
		password = v
	}

	return email, password, nil
}

// redirectTarget is where a successful login goes: an explicit destination,
// else the location a guard bounced from, else the root.
func (a *App) redirectTarget(explicit string) string {
	if explicit != "" {
		return explicit
	}

	location, err := a.State.TakePendingRedirect()
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to read pending redirect")
		return RouteRoot
	}
	if location == "" {
		return RouteRoot
	}
	return location
}
