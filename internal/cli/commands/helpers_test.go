package commands

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/brightline-agency/agency/internal/config"
	"github.com/brightline-agency/agency/internal/metrics"
	"github.com/brightline-agency/agency/internal/server"
)

const (
	testAdminEmail    = "admin@example.com"
	testAdminPassword = "admin-password"
)

// syncBuffer is a goroutine-safe output sink
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// testEnv is a stub API plus a credential directory shared by every
// invocation, like consecutive runs of the CLI on one machine
type testEnv struct {
	cfg *config.Config
	api *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	// Keep credentials out of the environment
	t.Setenv(EnvEmail, "")
	t.Setenv(EnvPassword, "")

	cfg := config.Default()
	cfg.MockAPI.DatabaseURL = filepath.Join(t.TempDir(), "agency.db")
	cfg.MockAPI.JWTSecret = "test-secret"
	cfg.MockAPI.AdminEmail = testAdminEmail
	cfg.MockAPI.AdminPassword = testAdminPassword
	cfg.MockAPI.TokenTTL = time.Hour

	srv, err := server.New(cfg, zerolog.Nop(), "test")
	if err != nil {
		t.Fatalf("failed to create stub API: %v", err)
	}
	api := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		api.Close()
		srv.Close()
	})

	cfg.API.BaseURL = api.URL
	cfg.Credentials.Backend = config.BackendFile
	cfg.Credentials.Dir = t.TempDir()

	return &testEnv{cfg: cfg, api: api}
}

// newApp wires a fresh application, as a new CLI process would
func (e *testEnv) newApp(t *testing.T, out *syncBuffer) *App {
	t.Helper()

	app := &App{}
	if err := app.Init(e.cfg, metrics.New(), zerolog.Nop(), out); err != nil {
		t.Fatalf("failed to init app: %v", err)
	}
	return app
}

// run executes one command in a fresh application and returns everything it printed
func (e *testEnv) run(t *testing.T, build func(app *App) *cobra.Command, args ...string) (string, error) {
	t.Helper()

	out := &syncBuffer{}
	app := e.newApp(t, out)
	defer app.Close()

	ctx := app.Start(context.Background())

	cmd := build(app)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func (e *testEnv) login(t *testing.T, email, password string) {
	t.Helper()

	if _, err := e.run(t, NewLoginCmd, "--email", email, "--password", password); err != nil {
		t.Fatalf("login failed: %v", err)
	}
}

func (e *testEnv) registerUser(t *testing.T, email string) {
	t.Helper()

	_, err := e.run(t, NewRegisterCmd,
		"--name", "Jane Client",
		"--email", email,
		"--password", "long-enough",
	)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
}

func logoutCmd(*App) *cobra.Command { return NewLogoutCmd() }
