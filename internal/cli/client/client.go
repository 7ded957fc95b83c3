package client

import (
	"context"
	"fmt"

	"github.com/brightline-agency/agency/internal/cli/transport"
	"github.com/brightline-agency/agency/internal/models"
)

// API endpoint paths
const (
	PathLogin         = "/auth/login"
	PathRegister      = "/auth/register"
	PathProfile       = "/auth/profile"
	PathUpdateProfile = "/user/profile"
	PathServices      = "/services"
	PathUsers         = "/users"
)

// Client is the typed agency API over the shared transport
type Client struct {
	t *transport.Client
}

// New creates an API client using the shared transport
func New(t *transport.Client) *Client {
	return &Client{t: t}
}

// Transport returns the shared transport
func (c *Client) Transport() *transport.Client {
	return c.t
}

// Login exchanges credentials for an access token and profile
func (c *Client) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	req := models.LoginRequest{
		Email:    email,
		Password: password,
	}
	if err := models.Validate(req); err != nil {
		return nil, err
	}

	var resp models.AuthResponse
	if err := c.t.Post(ctx, PathLogin, req, &resp); err != nil {
		return nil, err
	}
	if err := validateAuth(&resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates an account and returns its access token and profile
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	if err := models.Validate(req); err != nil {
		return nil, err
	}

	var resp models.AuthResponse
	if err := c.t.Post(ctx, PathRegister, req, &resp); err != nil {
		return nil, err
	}
	if err := validateAuth(&resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Profile fetches the profile of the token's owner
func (c *Client) Profile(ctx context.Context) (*models.UserProfile, error) {
	var user models.UserProfile
	if err := c.t.Get(ctx, PathProfile, &user); err != nil {
		return nil, err
	}
	if err := models.Validate(user); err != nil {
		return nil, fmt.Errorf("server returned an invalid profile: %w", err)
	}
	return &user, nil
}

// UpdateProfile sends a partial update and returns the server's canonical profile
func (c *Client) UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.UserProfile, error) {
	if update.Empty() {
		return nil, fmt.Errorf("nothing to update")
	}
	if err := models.Validate(update); err != nil {
		return nil, err
	}

	var user models.UserProfile
	if err := c.t.Patch(ctx, PathUpdateProfile, update, &user); err != nil {
		return nil, err
	}
	if err := models.Validate(user); err != nil {
		return nil, fmt.Errorf("server returned an invalid profile: %w", err)
	}
	return &user, nil
}

// ListServices returns the public service catalog
func (c *Client) ListServices(ctx context.Context) ([]models.Service, error) {
	var services []models.Service
	if err := c.t.Get(ctx, PathServices, &services); err != nil {
		return nil, err
	}
	return services, nil
}

// ListUsers returns all accounts (admin only)
func (c *Client) ListUsers(ctx context.Context) ([]models.UserProfile, error) {
	var users []models.UserProfile
	if err := c.t.Get(ctx, PathUsers, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func validateAuth(resp *models.AuthResponse) error {
	// Nested User is validated as part of the struct
	if err := models.Validate(resp); err != nil {
		return fmt.Errorf("server returned an invalid auth response: %w", err)
	}
	return nil
}
