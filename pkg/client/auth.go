package client

import (
	"context"
	"net/http"

	"github.com/ItIsGreg/Raki-sub002/pkg/api"
	"github.com/ItIsGreg/Raki-sub002/pkg/models"
)

// Register creates an account. A taken email reports constants.ErrConflict.
func (c *Client) Register(ctx context.Context, email, password, fullName string) (*models.User, error) {
	req := api.RegisterRequest{Email: email, Password: password, FullName: fullName}
	var user models.User
	if err := c.call(ctx, http.MethodPost, api.AuthPrefix+"/register", nil, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login exchanges credentials for a token. Wrong credentials report
// constants.ErrUnauthorized. The token is returned, not installed.
func (c *Client) Login(ctx context.Context, email, password string) (*api.TokenResponse, error) {
	req := api.LoginRequest{Email: email, Password: password}
	var result api.TokenResponse
	if err := c.call(ctx, http.MethodPost, api.AuthPrefix+"/login", nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Logout invalidates the current token on the server.
func (c *Client) Logout(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, api.AuthPrefix+"/logout", nil, nil, nil)
}

// Me returns the user the current token belongs to.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.call(ctx, http.MethodGet, api.AuthPrefix+"/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteAccount deletes the current user and all of their cloud data.
func (c *Client) DeleteAccount(ctx context.Context) error {
	return c.call(ctx, http.MethodDelete, api.AuthPrefix+"/me", nil, nil, nil)
}

// Refresh exchanges the current token for a fresh one.
func (c *Client) Refresh(ctx context.Context) (*api.TokenResponse, error) {
	var result api.TokenResponse
	if err := c.call(ctx, http.MethodPost, api.AuthPrefix+"/refresh", nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	req := api.ChangePasswordRequest{CurrentPassword: current, NewPassword: next}
	return c.call(ctx, http.MethodPost, api.AuthPrefix+"/change-password", nil, req, nil)
}
