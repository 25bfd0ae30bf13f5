package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ganot/taskdeck/internal/domain/session"
)

// SignupRequest is the new-account form. The wire format wraps it in a
// {user: {...}} envelope.
type SignupRequest struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
	Gender               string `json:"gender,omitempty"`
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	body := map[string]string{"email": email, "password": password}
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/login", nil, body, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", fmt.Errorf("login response carried no token")
	}
	return resp.Token, nil
}

// Signup registers a new account. Validation failures come back as an
// *Error carrying the server's message list verbatim.
func (c *Client) Signup(ctx context.Context, req SignupRequest) error {
	body := map[string]SignupRequest{"user": req}
	return c.do(ctx, http.MethodPost, "/signup", nil, body, nil)
}

// Me resolves the principal behind the current credential.
func (c *Client) Me(ctx context.Context) (*session.Principal, error) {
	var principal session.Principal
	if err := c.do(ctx, http.MethodGet, "/me", nil, nil, &principal); err != nil {
		return nil, err
	}
	return &principal, nil
}

// DeleteAccount permanently deletes the authenticated account.
func (c *Client) DeleteAccount(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/account", nil, nil, nil)
}
