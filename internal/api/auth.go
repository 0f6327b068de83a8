package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/nhle/todoctl/internal/model"
)

// Auth endpoints are not intercepted: their callers decide what a 401 or a
// 400 means for the user.

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, email, password string) (model.TokenResponse, error) {
	var out model.TokenResponse
	err := c.send(ctx, request{
		method: http.MethodPost,
		path:   "/api/auth/login",
		form:   url.Values{"username": {email}, "password": {password}},
	}, &out)
	return out, err
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, email, password string) (model.User, error) {
	var out model.User
	err := c.send(ctx, request{
		method: http.MethodPost,
		path:   "/api/auth/register",
		body:   model.Credentials{Email: email, Password: password},
	}, &out)
	return out, err
}

// Me fetches the profile of the user owning token.
func (c *Client) Me(ctx context.Context, token string) (model.User, error) {
	var out model.User
	err := c.send(ctx, request{
		method: http.MethodGet,
		path:   "/api/auth/me",
		token:  token,
	}, &out)
	return out, err
}
