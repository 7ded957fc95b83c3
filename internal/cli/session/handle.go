package session

import (
	"context"
	"errors"

	"github.com/brightline-agency/agency/internal/cli/navigate"
	"github.com/brightline-agency/agency/internal/models"
)

// ErrNoProvider is the panic value of FromContext when no controller is mounted
var ErrNoProvider = errors.New("session: handle used outside of a session provider")

type ctxKey struct{}

// NewContext mounts c as the session provider for everything derived from ctx
func NewContext(ctx context.Context, c *Controller) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromContext returns the session handle of the mounted provider.
// It panics with ErrNoProvider when none is mounted.
func FromContext(ctx context.Context) *Handle {
	h, ok := Lookup(ctx)
	if !ok {
		panic(ErrNoProvider)
	}
	return h
}

// Lookup is FromContext without the panic
func Lookup(ctx context.Context) (*Handle, bool) {
	if ctx == nil {
		return nil, false
	}
	c, ok := ctx.Value(ctxKey{}).(*Controller)
	if !ok || c == nil {
		return nil, false
	}
	return &Handle{c: c}, true
}

// Handle is the interface views use to read and act on the session
type Handle struct {
	c *Controller
}

func (h *Handle) State() State { return h.c.State() }

func (h *Handle) Token() string { return h.c.State().Token }

func (h *Handle) User() *models.UserProfile { return h.c.State().User }

func (h *Handle) IsAuthenticated() bool { return h.c.State().IsAuthenticated() }

func (h *Handle) Loading() bool { return h.c.State().Loading }

func (h *Handle) Err() string { return h.c.State().Err }

func (h *Handle) Ready() <-chan struct{} { return h.c.Ready() }

func (h *Handle) WaitReady(ctx context.Context) error { return h.c.WaitReady(ctx) }

func (h *Handle) Login(token string, user *models.UserProfile) error {
	return h.c.Login(token, user)
}

func (h *Handle) Logout() { h.c.Logout() }

func (h *Handle) RefreshUserData(ctx context.Context) error {
	return h.c.RefreshUserData(ctx)
}

func (h *Handle) UpdateUser(ctx context.Context, update models.ProfileUpdate) (*models.UserProfile, error) {
	return h.c.UpdateUser(ctx, update)
}

func (h *Handle) ClearError() { h.c.ClearError() }

func (h *Handle) Subscribe(fn func(State)) (cancel func()) { return h.c.Subscribe(fn) }

func (h *Handle) Navigate(loc navigate.Location) { h.c.Navigate(loc) }

// LoginAndRedirect logs in and navigates to destination, or to the root
func (h *Handle) LoginAndRedirect(token string, user *models.UserProfile, destination string) error {
	if err := h.c.Login(token, user); err != nil {
		return err
	}
	h.c.Navigate(navigate.To(destination))
	return nil
}

// RequireAuth reports whether the caller may proceed, waiting for hydration
// first. When it may not, it navigates to the login view carrying
// destination for the redirect back.
func (h *Handle) RequireAuth(ctx context.Context, destination string) (bool, error) {
	if err := h.c.WaitReady(ctx); err != nil {
		return false, err
	}
	if h.c.State().IsAuthenticated() {
		return true, nil
	}
	h.c.Navigate(navigate.Login(destination))
	return false, nil
}
