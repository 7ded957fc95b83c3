package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/brightline-agency/agency/internal/cli/client"
	"github.com/brightline-agency/agency/internal/cli/credstore"
	"github.com/brightline-agency/agency/internal/cli/navigate"
	"github.com/brightline-agency/agency/internal/cli/session"
	"github.com/brightline-agency/agency/internal/cli/transport"
	"github.com/brightline-agency/agency/internal/cli/userconfig"
	"github.com/brightline-agency/agency/internal/config"
	"github.com/brightline-agency/agency/internal/metrics"
)

// Routes of the views reachable by navigation
const (
	RouteRoot       = navigate.RootPath
	RouteLogin      = navigate.LoginPath
	RouteRegister   = "/register"
	RouteProfile    = "/profile"
	RouteServices   = "/services"
	RouteAdminUsers = "/admin/users"
)

// App holds everything a command needs. The root command fills it in before
// any subcommand runs.
type App struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Metrics   *metrics.Metrics
	Backend   credstore.Backend
	Store     *credstore.Store
	Transport *transport.Client
	API       *client.Client
	State     *userconfig.Store
	Navigator *navigate.Terminal
	Session   *session.Controller
}

// Init wires the application from cfg. Navigation hints are written to out.
func (a *App) Init(cfg *config.Config, m *metrics.Metrics, logger zerolog.Logger, out io.Writer) error {
	backend, err := newBackend(cfg.Credentials)
	if err != nil {
		return err
	}

	a.Config = cfg
	a.Logger = logger
	a.Metrics = m
	a.Backend = backend
	a.Store = credstore.New(backend, logger)

	a.Transport = transport.New(transport.Options{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Logger:  logger,
		Metrics: m,
	})
	a.Transport.UseRequest(transport.BearerAuth(a.Store))
	a.Transport.UseRequest(transport.RequestID())
	a.API = client.New(a.Transport)

	a.State = userconfig.New(cfg.Credentials.Dir)
	a.Navigator = navigate.NewTerminal(out, a.State, logger)
	registerRoutes(a.Navigator)

	a.Session = session.NewController(session.Options{
		Store:     a.Store,
		HTTP:      a.Transport,
		API:       a.API,
		Navigator: a.Navigator,
		Logger:    logger,
		Metrics:   m,
	})

	return nil
}

// Start begins validating the persisted session and mounts it on ctx
func (a *App) Start(ctx context.Context) context.Context {
	a.Session.Start(ctx)
	return session.NewContext(ctx, a.Session)
}

// Close releases the session
func (a *App) Close() {
	if a.Session != nil {
		a.Session.Close()
	}
}

// Initialized reports whether Init ran
func (a *App) Initialized() bool {
	return a.Session != nil
}

func newBackend(cfg config.CredentialsConfig) (credstore.Backend, error) {
	switch cfg.Backend {
	case config.BackendKeyring:
		return credstore.NewKeyringBackend(cfg.KeyringService), nil
	case config.BackendFile:
		return credstore.NewFileBackend(cfg.Dir), nil
	default:
		return nil, fmt.Errorf("unknown credential backend %q", cfg.Backend)
	}
}

func registerRoutes(nav *navigate.Terminal) {
	nav.Register(RouteRoot, "agency status")
	nav.Register(RouteLogin, "agency login")
	nav.Register(RouteRegister, "agency register")
	nav.Register(RouteProfile, "agency profile show")
	nav.Register(RouteServices, "agency services")
	nav.Register(RouteAdminUsers, "agency admin users")
}
