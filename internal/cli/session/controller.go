// Package session owns the authoritative authentication state of the client.
//
// A Controller hydrates from the credential store when constructed, validates
// the persisted session against the API once started, and is the single
// writer of the credential store and of the shared client's bearer header.
// Every 401 observed by the shared client goes through one invalidation
// routine, which tears the session down at most once per token.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/brightline-agency/agency/internal/cli/navigate"
	"github.com/brightline-agency/agency/internal/cli/transport"
	"github.com/brightline-agency/agency/internal/metrics"
	"github.com/brightline-agency/agency/internal/models"
)

var (
	// ErrNotAuthenticated is returned by operations that need a session
	ErrNotAuthenticated = errors.New("not authenticated. Please run 'agency login' first")
	// ErrSessionChanged is returned when the session changed while a call was in flight
	ErrSessionChanged = errors.New("session changed while the request was in flight")
	// ErrInvalidLogin is returned when Login is called without a token or user
	ErrInvalidLogin = errors.New("login requires both a token and a user")
)

// CredentialStore is the durable mirror of the session
type CredentialStore interface {
	SetToken(token string)
	GetToken() string
	RemoveToken()
	SetUser(user *models.UserProfile)
	GetUser() *models.UserProfile
	RemoveUser()
}

// HTTPClient is the part of the shared client the controller drives
type HTTPClient interface {
	UseResponse(fn transport.ResponseInterceptor) transport.InterceptorID
	EjectResponse(id transport.InterceptorID) bool
	ReplaceResponse(old transport.InterceptorID, fn transport.ResponseInterceptor) transport.InterceptorID
	SetHeader(key, value string)
	DeleteHeader(key string)
}

// ProfileAPI fetches and updates the current user's profile
type ProfileAPI interface {
	Profile(ctx context.Context) (*models.UserProfile, error)
	UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.UserProfile, error)
}

// Options wires a Controller
type Options struct {
	Store     CredentialStore
	HTTP      HTTPClient
	API       ProfileAPI
	Navigator navigate.Navigator
	Logger    zerolog.Logger
	Metrics   *metrics.Metrics
}

// Controller is the session state machine
type Controller struct {
	store   CredentialStore
	http    HTTPClient
	api     ProfileAPI
	nav     navigate.Navigator
	logger  zerolog.Logger
	metrics *metrics.Metrics

	mu          sync.Mutex
	state       State
	interceptor transport.InterceptorID
	installed   bool
	started     bool
	closed      bool
	ready       chan struct{}
	subscribers map[int]func(State)
	nextSub     int
}

// NewController hydrates synchronously from the credential store and installs
// the response interceptor bound to the hydrated token.
func NewController(opts Options) *Controller {
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	nav := opts.Navigator
	if nav == nil {
		nav = navigate.Func(func(navigate.Location) {})
	}

	c := &Controller{
		store:       opts.Store,
		http:        opts.HTTP,
		api:         opts.API,
		nav:         nav,
		logger:      opts.Logger.With().Str("component", "session").Logger(),
		metrics:     m,
		ready:       make(chan struct{}),
		subscribers: map[int]func(State){},
	}

	token := c.store.GetToken()
	var user *models.UserProfile
	if token != "" {
		// A profile without a token is stale and ignored; a token without a
		// profile stays unauthenticated until the hydrating refresh settles
		user = c.store.GetUser()
	}

	c.mu.Lock()
	c.state = State{Token: token, User: user, Loading: true}
	if token != "" {
		c.http.SetHeader(transport.AuthorizationHeader, transport.BearerValue(token))
	}
	c.reregisterLocked()
	c.mu.Unlock()

	c.logger.Debug().
		Bool("has_token", token != "").
		Bool("has_user", user != nil).
		Msg("Session hydrated from credential store")

	return c
}

// Start validates the hydrated session in the background. Loading turns
// false once validation settles, whatever its outcome.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	token := c.state.Token
	c.mu.Unlock()

	go c.hydrate(ctx, token)
}

func (c *Controller) hydrate(ctx context.Context, token string) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Interface("panic", r).Msg("Session validation panicked")
		}
		c.finishLoading()
	}()

	if token == "" {
		return
	}

	if err := c.RefreshUserData(ctx); err != nil {
		c.logger.Debug().Err(err).Msg("Session validation failed")
	}
}

// Ready is closed once the initial hydrate-and-validate phase is over
func (c *Controller) Ready() <-chan struct{} {
	return c.ready
}

// WaitReady blocks until hydration settles or ctx is done
func (c *Controller) WaitReady(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns a snapshot of the session
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Login records an already issued token and its profile. The interceptor, the
// in-memory state and the store are updated in one critical section.
// Login does not navigate.
func (c *Controller) Login(token string, user *models.UserProfile) error {
	if token == "" || user == nil {
		return ErrInvalidLogin
	}

	c.mu.Lock()
	c.state.Token = token
	c.state.User = user.Clone()
	c.state.Err = ""

	// The interceptor for token is live before any request can read token
	// from the store
	c.reregisterLocked()
	c.http.SetHeader(transport.AuthorizationHeader, transport.BearerValue(token))

	c.store.SetToken(token)
	c.store.SetUser(user)
	snapshot := c.state.clone()
	c.mu.Unlock()

	c.metrics.Logins.Inc()
	c.logger.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("Session started")
	c.notify(snapshot)
	return nil
}

// Logout clears the session and navigates to the login view. Calling it
// while already logged out only navigates.
func (c *Controller) Logout() {
	c.mu.Lock()
	wasAuthenticated := c.state.Token != ""
	c.teardownLocked()
	snapshot := c.state.clone()
	c.mu.Unlock()

	if wasAuthenticated {
		c.metrics.Logouts.Inc()
		c.logger.Info().Msg("Session ended")
	}
	c.notify(snapshot)
	c.nav.Navigate(navigate.Login(""))
}

// invalidate is the single teardown path for 401 responses. It only acts
// while token is still the current token, so a burst of 401s for one
// session produces one logout and one navigation, and a late 401 for an old
// token never ends a newer session.
func (c *Controller) invalidate(token string) bool {
	c.mu.Lock()
	if token == "" || c.state.Token != token {
		c.mu.Unlock()
		return false
	}
	c.teardownLocked()
	snapshot := c.state.clone()
	c.mu.Unlock()

	c.metrics.Invalidations.Inc()
	c.metrics.Logouts.Inc()
	c.logger.Warn().Msg("Session rejected by the API, signing out")
	c.notify(snapshot)
	c.nav.Navigate(navigate.Login(""))
	return true
}

// RefreshUserData reloads the profile for the current token. A 401 ends the
// session; other failures are recorded in Err and returned untouched.
func (c *Controller) RefreshUserData(ctx context.Context) error {
	token := c.currentToken()
	if token == "" {
		return nil
	}

	user, err := c.api.Profile(ctx)
	if err != nil {
		if transport.IsAuthInvalid(err) {
			c.metrics.Refreshes.WithLabelValues("invalid").Inc()
			c.invalidate(token)
			return err
		}
		c.metrics.Refreshes.WithLabelValues("error").Inc()
		c.recordError(token, err)
		return fmt.Errorf("failed to refresh profile: %w", err)
	}

	c.mu.Lock()
	if c.closed || c.state.Token != token {
		c.mu.Unlock()
		c.logger.Debug().Msg("Dropping profile refresh for a session that is gone")
		return nil
	}
	c.store.SetUser(user)
	c.state.User = user.Clone()
	snapshot := c.state.clone()
	c.mu.Unlock()

	c.metrics.Refreshes.WithLabelValues("ok").Inc()
	c.notify(snapshot)
	return nil
}

// UpdateUser sends a partial profile update and adopts the server's response.
// A failure other than 401 is returned and leaves the session untouched.
func (c *Controller) UpdateUser(ctx context.Context, update models.ProfileUpdate) (*models.UserProfile, error) {
	token := c.currentToken()
	if token == "" {
		return nil, ErrNotAuthenticated
	}

	user, err := c.api.UpdateProfile(ctx, update)
	if err != nil {
		if transport.IsAuthInvalid(err) {
			c.invalidate(token)
			return nil, err
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	c.mu.Lock()
	if c.closed || c.state.Token != token {
		c.mu.Unlock()
		return nil, ErrSessionChanged
	}
	c.store.SetUser(user)
	c.state.User = user.Clone()
	snapshot := c.state.clone()
	c.mu.Unlock()

	c.notify(snapshot)
	return user.Clone(), nil
}

// ClearError forgets the last recorded error
func (c *Controller) ClearError() {
	c.mu.Lock()
	if c.state.Err == "" {
		c.mu.Unlock()
		return
	}
	c.state.Err = ""
	snapshot := c.state.clone()
	c.mu.Unlock()

	c.notify(snapshot)
}

// Subscribe registers fn to receive every state change; call cancel to stop
func (c *Controller) Subscribe(fn func(State)) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextSub++
	id := c.nextSub
	c.subscribers[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscribers, id)
	}
}

// Navigate forwards to the controller's navigator
func (c *Controller) Navigate(loc navigate.Location) {
	c.nav.Navigate(loc)
}

// Close ejects the interceptor and ends the loading phase. Results of calls
// still in flight are dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	if c.installed {
		c.http.EjectResponse(c.interceptor)
		c.installed = false
	}
	c.finishLoadingLocked()
}

func (c *Controller) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Token
}

// teardownLocked clears store, memory and header, then swaps the interceptor.
// Logging out during hydration ends the loading phase.
func (c *Controller) teardownLocked() {
	c.store.RemoveToken()
	c.store.RemoveUser()

	c.state.Token = ""
	c.state.User = nil
	c.state.Err = ""

	c.http.DeleteHeader(transport.AuthorizationHeader)
	c.reregisterLocked()
	c.finishLoadingLocked()
}

// reregisterLocked swaps the live response interceptor for one bound to the
// current token
func (c *Controller) reregisterLocked() {
	if c.closed {
		return
	}
	fn := c.unauthorizedInterceptor(c.state.Token)
	if c.installed {
		c.interceptor = c.http.ReplaceResponse(c.interceptor, fn)
		return
	}
	c.interceptor = c.http.UseResponse(fn)
	c.installed = true
}

func (c *Controller) unauthorizedInterceptor(token string) transport.ResponseInterceptor {
	return func(req *http.Request, resp *http.Response, err error) error {
		if !transport.IsAuthInvalid(err) {
			return err
		}

		sent := transport.BearerToken(req)
		if token == "" || sent != token {
			c.logger.Debug().
				Bool("had_credential", sent != "").
				Msg("Ignoring 401 for a request outside the current session")
			return err
		}

		c.invalidate(token)
		return err
	}
}

// recordError keeps err as the session's last error, unless the session the
// call ran under is gone
func (c *Controller) recordError(token string, err error) {
	c.mu.Lock()
	if c.closed || c.state.Token != token {
		c.mu.Unlock()
		return
	}
	c.state.Err = err.Error()
	snapshot := c.state.clone()
	c.mu.Unlock()

	c.notify(snapshot)
}

func (c *Controller) finishLoading() {
	c.mu.Lock()
	changed := c.finishLoadingLocked()
	snapshot := c.state.clone()
	c.mu.Unlock()

	if changed {
		c.notify(snapshot)
	}
}

func (c *Controller) finishLoadingLocked() bool {
	if !c.state.Loading {
		return false
	}
	c.state.Loading = false
	close(c.ready)
	return true
}

func (c *Controller) notify(s State) {
	c.mu.Lock()
	subs := make([]func(State), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
}
