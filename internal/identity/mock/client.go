// Package identitymock provides an in-memory stand-in for the identity
// client used by manager and handler tests.
package identitymock

import (
	"context"

	"github.com/opsdemo/cognito-gateway/internal/identity"
	"github.com/opsdemo/cognito-gateway/internal/serviceerr"
)

type ClientOption func(*Client)

// Client implements the identity operations against a fixed set of
// users. Errors can be injected per operation.
type Client struct {
	users    map[string]User
	profiles map[string]identity.Profile // keyed by access token

	authenticateErr   error
	resolveProfileErr error
}

type User struct {
	Password string
	Tokens   identity.TokenBundle
	Profile  identity.Profile
}

func WithUser(username string, user User) ClientOption {
	return func(c *Client) {
		c.users[username] = user
		if user.Tokens.AccessToken != "" {
			c.profiles[user.Tokens.AccessToken] = user.Profile
		}
	}
}

func WithAuthenticateError(err error) ClientOption {
	return func(c *Client) { c.authenticateErr = err }
}

func WithResolveProfileError(err error) ClientOption {
	return func(c *Client) { c.resolveProfileErr = err }
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		users:    make(map[string]User),
		profiles: make(map[string]identity.Profile),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

func (c *Client) Authenticate(_ context.Context, username, password string) (identity.TokenBundle, error) {
	if c.authenticateErr != nil {
		return identity.TokenBundle{}, c.authenticateErr
	}
	if username == "" || password == "" {
		return identity.TokenBundle{}, serviceerr.ErrInvalidRequest.WithDescription("username and password are required")
	}

	user, ok := c.users[username]
	if !ok || user.Password != password {
		return identity.TokenBundle{}, serviceerr.ErrInvalidCredentials
	}

	return user.Tokens, nil
}

func (c *Client) ResolveProfile(_ context.Context, accessToken string) (identity.Profile, error) {
	if c.resolveProfileErr != nil {
		return identity.Profile{}, c.resolveProfileErr
	}

	profile, ok := c.profiles[accessToken]
	if !ok {
		return identity.Profile{}, serviceerr.ErrUnauthorized
	}

	return profile, nil
}
