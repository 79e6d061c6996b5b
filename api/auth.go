package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// Login role path segments: /auth/login/<role>.
const (
	LoginRoleUser          = "user"
	LoginRoleRestaurant    = "restaurant"
	LoginRoleDeliveryAgent = "delivery-agent"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Message     string `json:"message"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Profile is the authenticated identity from /users/me. ID is raw because
// the backend returns an int for users and restaurants but a string agent
// id for delivery agents.
type Profile struct {
	ID        json.RawMessage `json:"id"`
	Email     string          `json:"email"`
	FirstName string          `json:"first_name"`
	Name      string          `json:"name"`
	Role      string          `json:"role"`
	UserType  string          `json:"user_type"`
}

// UserID returns the numeric id for user and restaurant profiles, 0 otherwise.
func (p *Profile) UserID() int {
	var id int
	if err := json.Unmarshal(p.ID, &id); err != nil {
		return 0
	}
	return id
}

// AgentID returns the string agent id for delivery-agent profiles.
func (p *Profile) AgentID() string {
	var id string
	if err := json.Unmarshal(p.ID, &id); err != nil {
		return strings.Trim(string(p.ID), `"`)
	}
	return id
}

// Login authenticates against the role-specific endpoint and returns the
// session cookie to replay on subsequent calls via WithCookie.
func (c *Client) Login(ctx context.Context, role string, req LoginRequest) (string, error) {
	if err := c.validate.Struct(req); err != nil {
		return "", err
	}
	// Login needs header access for Set-Cookie, so it goes through the
	// transport directly rather than do().
	var resp loginResponse
	cookie, err := c.postForCookie(ctx, "/auth/login/"+role, req, &resp)
	if err != nil {
		return "", err
	}
	return cookie, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, "Failed to log out")
}

// Me returns the identity behind the session cookie; call it on a client
// built with WithCookie.
func (c *Client) Me(ctx context.Context) (*Profile, error) {
	var p Profile
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, &p, "Failed to load profile"); err != nil {
		return nil, err
	}
	return &p, nil
}
