// Package prompt asks the operator for input on an interactive terminal
package prompt

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"

	"github.com/brightline-agency/agency/internal/models"
)

// ErrNotInteractive is returned when input is needed but stdin is not a terminal
var ErrNotInteractive = errors.New("input required in non-interactive mode")

// IsInteractive reports whether stdin is a terminal
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Email prompts for an email address, validated as it is typed
func Email(label, def string) (string, error) {
	return run(promptui.Prompt{
		Label:    label,
		Default:  def,
		Validate: validateEmail,
	})
}

// Text prompts for a non-empty line
func Text(label, def string) (string, error) {
	return run(promptui.Prompt{
		Label:    label,
		Default:  def,
		Validate: validateRequired,
	})
}

// Optional prompts for a line that may be left empty
func Optional(label, def string) (string, error) {
	return run(promptui.Prompt{
		Label:   label,
		Default: def,
	})
}

// Password prompts for a masked secret of at least min characters
func Password(label string, min int) (string, error) {
	return run(promptui.Prompt{
		Label: label,
		Mask:  '*',
		Validate: func(input string) error {
			if len(input) < min {
				return fmt.Errorf("must be at least %d characters", min)
			}
			return nil
		},
	})
}

// Confirm asks a yes/no question
func Confirm(label string) (bool, error) {
	if !IsInteractive() {
		return false, ErrNotInteractive
	}

	p := promptui.Prompt{Label: label, IsConfirm: true}
	if _, err := p.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, fmt.Errorf("prompt cancelled: %w", err)
	}
	return true, nil
}

func run(p promptui.Prompt) (string, error) {
	if !IsInteractive() {
		return "", ErrNotInteractive
	}

	value, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("prompt cancelled: %w", err)
	}
	return strings.TrimSpace(value), nil
}

func validateRequired(input string) error {
	if strings.TrimSpace(input) == "" {
		return errors.New("required")
	}
	return nil
}

func validateEmail(input string) error {
	value := strings.TrimSpace(input)
	return models.Validate(struct {
		Email string `validate:"required,email"`
	}{Email: value})
}
