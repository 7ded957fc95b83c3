package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/zalando/go-keyring"

	"github.com/brightline-agency/agency/internal/cli/client"
	"github.com/brightline-agency/agency/internal/cli/credstore"
	"github.com/brightline-agency/agency/internal/cli/navigate"
	"github.com/brightline-agency/agency/internal/cli/transport"
	"github.com/brightline-agency/agency/internal/metrics"
	"github.com/brightline-agency/agency/internal/models"
)

// fakeAPI is a scriptable agency API
type fakeAPI struct {
	mu           sync.Mutex
	unauthorized bool
	failStatus   int
	profile      models.UserProfile
	gate         chan struct{}
	profileCalls int
	tokensSeen   []string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.tokensSeen = append(f.tokensSeen, strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	unauthorized := f.unauthorized
	failStatus := f.failStatus
	gate := f.gate
	f.mu.Unlock()

	if r.URL.Path == client.PathProfile && gate != nil {
		<-gate
	}

	if unauthorized {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Invalid or expired token"}`))
		return
	}
	if failStatus != 0 {
		w.WriteHeader(failStatus)
		w.Write([]byte(`{"message":"backend unavailable"}`))
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == client.PathProfile:
		f.mu.Lock()
		f.profileCalls++
		profile := f.profile
		f.mu.Unlock()
		json.NewEncoder(w).Encode(profile)

	case r.Method == http.MethodPatch && r.URL.Path == client.PathUpdateProfile:
		var update models.ProfileUpdate
		json.NewDecoder(r.Body).Decode(&update)

		f.mu.Lock()
		if update.Name != nil {
			// The server normalizes names; the client must adopt its version
			f.profile.Name = strings.ToUpper(*update.Name)
		}
		if update.Phone != nil {
			f.profile.Phone = *update.Phone
		}
		profile := f.profile
		f.mu.Unlock()
		json.NewEncoder(w).Encode(profile)

	case r.Method == http.MethodGet && r.URL.Path == client.PathServices:
		json.NewEncoder(w).Encode([]models.Service{{ID: "s1", Title: "Branding", Slug: "branding"}})

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeAPI) set(fn func(f *fakeAPI)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profileCalls
}

func (f *fakeAPI) seen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tokensSeen)
}

func (f *fakeAPI) lastToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.tokensSeen) == 0 {
		return ""
	}
	return f.tokensSeen[len(f.tokensSeen)-1]
}

type harness struct {
	api       *fakeAPI
	srv       *httptest.Server
	backend   credstore.Backend
	store     *credstore.Store
	transport *transport.Client
	client    *client.Client
	nav       *navigate.Recorder
	metrics   *metrics.Metrics
	ctrl      *Controller
}

func testUser(role models.Role) *models.UserProfile {
	return &models.UserProfile{
		ID:        "user-123",
		Name:      "Test User",
		Email:     "test@example.com",
		Phone:     "+1 555 0100",
		Role:      role,
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

// newHarness wires a controller against a fake API. seed runs against the
// credential store before the controller hydrates.
func newHarness(t *testing.T, seed func(s *credstore.Store)) *harness {
	t.Helper()
	keyring.MockInit()

	api := &fakeAPI{profile: *testUser(models.RoleUser)}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	h := &harness{
		api:     api,
		srv:     srv,
		backend: credstore.NewKeyringBackend("agency-session-test"),
		nav:     &navigate.Recorder{},
		metrics: metrics.New(),
	}
	h.store = credstore.New(h.backend, zerolog.Nop())
	if seed != nil {
		seed(h.store)
	}

	h.transport = transport.New(transport.Options{BaseURL: srv.URL, Logger: zerolog.Nop(), Metrics: h.metrics})
	h.transport.UseRequest(transport.BearerAuth(h.store))
	h.client = client.New(h.transport)

	h.ctrl = h.newController()
	t.Cleanup(h.ctrl.Close)
	return h
}

func (h *harness) newController() *Controller {
	return NewController(Options{
		Store:     h.store,
		HTTP:      h.transport,
		API:       h.client,
		Navigator: h.nav,
		Logger:    zerolog.Nop(),
		Metrics:   h.metrics,
	})
}

func (h *harness) start(t *testing.T) {
	t.Helper()

	h.ctrl.Start(context.Background())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.ctrl.WaitReady(ctx); err != nil {
		t.Fatalf("session did not settle: %v", err)
	}
}
