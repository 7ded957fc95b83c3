package commands

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightline-agency/agency/internal/cli/credstore"
)

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, NewLoginCmd, "--email", testAdminEmail, "--password", testAdminPassword)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Login successful!")
	assert.Contains(t, out, "Role: Admin")
	assert.Contains(t, out, "→ Back to: agency status")

	// Credentials were persisted for the next invocation
	backend := credstore.NewFileBackend(env.cfg.Credentials.Dir)
	token, err := backend.Get(credstore.KeyToken)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	info, err := os.Stat(filepath.Join(env.cfg.Credentials.Dir, "credentials.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestLogin_FromEnvironment(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv(EnvEmail, testAdminEmail)
	t.Setenv(EnvPassword, testAdminPassword)

	out, err := env.run(t, NewLoginCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Login successful!")
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, NewLoginCmd, "--email", testAdminEmail, "--password", "wrong-password")
	require.Error(t, err)

	assert.Contains(t, err.Error(), "login failed")
	assert.Contains(t, err.Error(), "Invalid email or password")
	assert.NotContains(t, out, "Sign in required", "a rejected login is not a session invalidation")

	_, err = credstore.NewFileBackend(env.cfg.Credentials.Dir).Get(credstore.KeyToken)
	assert.ErrorIs(t, err, credstore.ErrNotFound)
}

func TestLogin_MissingEmailNonInteractive(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, NewLoginCmd, "--password", "whatever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email is required")
}

func TestLogin_MissingPasswordNonInteractive(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, NewLoginCmd, "--email", testAdminEmail)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password is required in non-interactive mode")
}

func TestLogin_ExplicitRedirect(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, NewLoginCmd,
		"--email", testAdminEmail,
		"--password", testAdminPassword,
		"--redirect", RouteAdminUsers,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "→ Continue with: agency admin users")
}

func TestRegister_Success(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, NewRegisterCmd,
		"--name", "Jane Client",
		"--email", "jane@example.com",
		"--password", "long-enough",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Account created!")
	assert.Contains(t, out, "Jane Client (jane@example.com)")
	assert.Contains(t, out, "→ Continue with: agency profile show")
}

func TestRegister_ShortPassword(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, NewRegisterCmd,
		"--name", "Jane Client",
		"--email", "jane@example.com",
		"--password", "short",
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 8 characters")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, NewRegisterCmd,
		"--name", "Impostor",
		"--email", testAdminEmail,
		"--password", "long-enough",
	)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "Email already registered"), err.Error())
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, testAdminEmail, testAdminPassword)

	out, err := env.run(t, logoutCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Logged out")
	assert.Contains(t, out, "→ Sign in required. Run: agency login")

	// Logging out again is harmless
	out, err = env.run(t, logoutCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in.")
}
