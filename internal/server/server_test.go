package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightline-agency/agency/internal/auth"
	"github.com/brightline-agency/agency/internal/config"
	"github.com/brightline-agency/agency/internal/models"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "admin-password"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := config.Default()
	cfg.MockAPI.DatabaseURL = filepath.Join(t.TempDir(), "agency.db")
	cfg.MockAPI.JWTSecret = "test-secret"
	cfg.MockAPI.AdminEmail = adminEmail
	cfg.MockAPI.AdminPassword = adminPassword
	cfg.MockAPI.TokenTTL = time.Hour

	srv, err := New(cfg, zerolog.Nop(), "test")
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, srv *Server, email, password string) models.AuthResponse {
	t.Helper()

	rec := doJSON(t, srv, http.MethodPost, "/auth/login", "", models.LoginRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp models.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func register(t *testing.T, srv *Server, email string) models.AuthResponse {
	t.Helper()

	rec := doJSON(t, srv, http.MethodPost, "/auth/register", "", models.RegisterRequest{
		Name:     "Jane Client",
		Email:    email,
		Password: "long-enough",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp models.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestLogin_SeededAdmin(t *testing.T) {
	srv := newTestServer(t)

	resp := login(t, srv, adminEmail, adminPassword)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)
	assert.Len(t, resp.User.ID, 26, "IDs are ULIDs")
	assert.NoError(t, models.Validate(resp.User))
}

func TestLogin_WrongPassword(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/auth/login", "", models.LoginRequest{Email: adminEmail, Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid email or password")
}

func TestLogin_BadRequest(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/auth/login", "", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegister(t *testing.T) {
	srv := newTestServer(t)

	resp := register(t, srv, "Jane@Example.com")
	assert.Equal(t, "jane@example.com", resp.User.Email)
	assert.Equal(t, models.RoleUser, resp.User.Role)

	rec := doJSON(t, srv, http.MethodPost, "/auth/register", "", models.RegisterRequest{
		Name:     "Again",
		Email:    "jane@example.com",
		Password: "long-enough",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestProfile(t *testing.T) {
	srv := newTestServer(t)
	resp := register(t, srv, "jane@example.com")

	rec := doJSON(t, srv, http.MethodGet, "/auth/profile", resp.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var profile models.UserProfile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, resp.User.ID, profile.ID)
}

func TestProfile_Unauthorized(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name  string
		token string
	}{
		{name: "missing token", token: ""},
		{name: "garbage token", token: "garbage"},
		{name: "foreign signature", token: foreignToken(t)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodGet, "/auth/profile", tt.token, nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func foreignToken(t *testing.T) string {
	t.Helper()
	token, err := auth.NewIssuer("someone-else", time.Hour).GenerateToken(&models.Account{
		BaseModel: models.BaseModel{ID: "01HZX0000000000000000000AA"},
		Role:      models.RoleAdmin,
	})
	require.NoError(t, err)
	return token
}

func TestUpdateProfile(t *testing.T) {
	srv := newTestServer(t)
	resp := register(t, srv, "jane@example.com")

	name := "  Jane Q. Client "
	rec := doJSON(t, srv, http.MethodPatch, "/user/profile", resp.AccessToken, models.ProfileUpdate{Name: &name})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var profile models.UserProfile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, "Jane Q. Client", profile.Name, "the stored, trimmed value is returned")
	assert.Equal(t, "jane@example.com", profile.Email, "untouched fields are kept")
}

func TestUpdateProfile_EmailConflict(t *testing.T) {
	srv := newTestServer(t)
	resp := register(t, srv, "jane@example.com")

	email := adminEmail
	rec := doJSON(t, srv, http.MethodPatch, "/user/profile", resp.AccessToken, models.ProfileUpdate{Email: &email})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateProfile_Empty(t *testing.T) {
	srv := newTestServer(t)
	resp := register(t, srv, "jane@example.com")

	rec := doJSON(t, srv, http.MethodPatch, "/user/profile", resp.AccessToken, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListUsers_AdminOnly(t *testing.T) {
	srv := newTestServer(t)
	user := register(t, srv, "jane@example.com")
	admin := login(t, srv, adminEmail, adminPassword)

	rec := doJSON(t, srv, http.MethodGet, "/users", user.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/users", admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var users []models.UserProfile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	assert.Len(t, users, 2)
}

func TestListServices_Public(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/services", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var services []models.Service
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &services))
	require.Len(t, services, 3)
	assert.Equal(t, "Brand Strategy", services[0].Title)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "agency-api")
}
