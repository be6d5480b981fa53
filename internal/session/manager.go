// Package session implements the cookie-keyed session store contract and
// the authorization-code handshake that moves a session from anonymous to
// authenticated.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/opsdemo/cognito-gateway/internal/config"
	"github.com/opsdemo/cognito-gateway/internal/identity"
	"github.com/opsdemo/cognito-gateway/internal/serviceerr"
)

const defaultRedirect = "/"

// IdentityClient is the slice of the identity provider the manager needs.
type IdentityClient interface {
	Authenticate(ctx context.Context, username, password string) (identity.TokenBundle, error)
	ResolveProfile(ctx context.Context, accessToken string) (identity.Profile, error)
}

type Manager struct {
	identity IdentityClient
	sessions Repository
	source   Source

	sessionTTL     time.Duration
	cookieTemplate config.CookieTemplate
}

func NewManager(cfg *config.Config, identityClient IdentityClient, sessions Repository) *Manager {
	return &Manager{
		identity:       identityClient,
		sessions:       sessions,
		sessionTTL:     cfg.SessionStore.TTL,
		cookieTemplate: cfg.Gateway.SessionCookieTemplate,
	}
}

// CreateOrLoad is deterministic: a present, unexpired cookie yields its
// existing session; absence or expiry yields a freshly created empty one.
// The second return value reports whether a new cookie must be set.
func (m *Manager) CreateOrLoad(ctx context.Context, cookieValue string) (Session, bool, error) {
	if cookieValue != "" {
		s, err := m.sessions.LoadSession(ctx, cookieValue)
		switch {
		case err == nil && !s.Expired(time.Now()):
			return s, false, nil
		case err == nil:
			// lazily purge the expired entry before replacing it
			if err := m.sessions.DeleteSession(ctx, s); err != nil && !errors.Is(err, serviceerr.ErrNotFound) {
				slogctx.Warn(ctx, "Could not purge expired session", "error", err)
			}
		case !errors.Is(err, serviceerr.ErrNotFound):
			return Session{}, false, fmt.Errorf("loading session: %w", err)
		}
	}

	now := time.Now()
	s := Session{
		ID:        m.source.SessionID(),
		CreatedAt: now,
		Expiry:    now.Add(m.sessionTTL),
	}
	if err := m.sessions.StoreSession(ctx, s); err != nil {
		return Session{}, false, fmt.Errorf("storing new session: %w", err)
	}

	return s, true, nil
}

// Save persists in-place mutations and refreshes the sliding expiry.
// Idempotent; last write wins for concurrent requests sharing a cookie.
func (m *Manager) Save(ctx context.Context, s *Session) error {
	s.Expiry = time.Now().Add(m.sessionTTL)
	if err := m.sessions.StoreSession(ctx, *s); err != nil {
		return fmt.Errorf("storing session: %w", err)
	}

	return nil
}

// StartHandshake generates a fresh state value and stores it with the
// redirect target on the session, overwriting any prior in-flight attempt.
func (m *Manager) StartHandshake(ctx context.Context, s *Session, redirectTarget string) (string, error) {
	if redirectTarget == "" {
		redirectTarget = defaultRedirect
	}

	state := m.source.State()
	s.PendingState = state
	s.PendingRedirect = redirectTarget
	s.Pending = nil

	if err := m.Save(ctx, s); err != nil {
		return "", err
	}

	slogctx.Info(ctx, "Handshake started", "redirect", redirectTarget)

	return state, nil
}

// Authenticate performs the provider calls without touching any session:
// password authentication, then profile resolution when a usable access
// token came back. Profile-resolution failure is non-fatal; the returned
// profile is nil in that case and the condition is logged as a warning.
func (m *Manager) Authenticate(ctx context.Context, username, password string) (identity.TokenBundle, *identity.Profile, error) {
	tokens, err := m.identity.Authenticate(ctx, username, password)
	if err != nil {
		return identity.TokenBundle{}, nil, err
	}

	if !tokens.HasAccessToken() {
		return tokens, nil, nil
	}

	profile, err := m.identity.ResolveProfile(ctx, tokens.AccessToken)
	if err != nil {
		slogctx.Warn(ctx, "Could not resolve user profile", "username", username, "error", err)
		return tokens, nil, nil
	}

	return tokens, &profile, nil
}

// SubmitCredentials authenticates and stores the result as the session's
// pending result. The session is not yet authenticated; the callback leg
// promotes it after the state check.
func (m *Manager) SubmitCredentials(ctx context.Context, s *Session, username, password string) (*PendingResult, error) {
	tokens, profile, err := m.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	pending := &PendingResult{
		Username: username,
		Tokens:   tokens,
		User:     profile,
	}
	s.Pending = pending

	if err := m.Save(ctx, s); err != nil {
		return nil, err
	}

	return pending, nil
}

// Login authenticates and promotes the session immediately, bypassing the
// callback leg. Used by the direct test-session endpoint.
func (m *Manager) Login(ctx context.Context, s *Session, username, password string) error {
	tokens, profile, err := m.Authenticate(ctx, username, password)
	if err != nil {
		return err
	}

	m.promote(s, &PendingResult{Username: username, Tokens: tokens, User: profile})

	return m.Save(ctx, s)
}

// Callback completes the handshake. A supplied state that does not match
// the session's pending state fails with state_mismatch and leaves the
// session untouched, except on a session whose handshake already
// completed: promotion clears the pending state, so a replayed callback
// fails with no_pending_result instead. A matching state without a
// pending result also fails with no_pending_result. On success the
// session is promoted, all pending fields are cleared and the stored
// redirect target is returned.
func (m *Manager) Callback(ctx context.Context, s *Session, state string) (string, error) {
	if state != "" && state != s.PendingState {
		replayed := s.Authenticated && s.PendingState == ""
		if !replayed {
			return "", serviceerr.ErrStateMismatch
		}
	}

	if s.Pending == nil {
		return "", serviceerr.ErrNoPendingResult
	}

	redirect := s.PendingRedirect
	if redirect == "" {
		redirect = defaultRedirect
	}

	m.promote(s, s.Pending)

	if err := m.Save(ctx, s); err != nil {
		return "", err
	}

	slogctx.Info(ctx, "Session authenticated", "user", s.Identifier(), "redirect", redirect)

	return redirect, nil
}

// promote marks the session authenticated. A session is never promoted
// without a user: when no profile was resolved, a minimal one is
// synthesized from the submitted username (the pool uses the email
// address as the username).
func (m *Manager) promote(s *Session, result *PendingResult) {
	user := result.User
	if user == nil {
		user = &identity.Profile{
			Username: result.Username,
			Email:    result.Username,
		}
	}

	s.Authenticated = true
	s.User = user
	tokens := result.Tokens
	s.Tokens = &tokens
	s.PendingState = ""
	s.PendingRedirect = ""
	s.Pending = nil
}

// Verify is a pure read: whether the session is authenticated and, if so,
// the principal's stable identifier.
func (m *Manager) Verify(s *Session) (bool, string) {
	if !s.Authenticated || s.User == nil {
		return false, ""
	}

	return true, s.User.Identifier()
}

// SignOut removes the session from the store. Errors are reported, not
// swallowed, but the caller completes the client-visible sign-out
// regardless; the in-memory copy is reset either way.
func (m *Manager) SignOut(ctx context.Context, s *Session) error {
	err := m.sessions.DeleteSession(ctx, *s)
	if err != nil && !errors.Is(err, serviceerr.ErrNotFound) {
		slogctx.Error(ctx, "Could not destroy session", "error", err)
		err = fmt.Errorf("destroying session: %w", err)
	} else {
		err = nil
	}

	*s = Session{}

	return err
}

// MakeSessionCookie renders the session cookie from the configured
// template.
func (m *Manager) MakeSessionCookie(ctx context.Context, value string) *http.Cookie {
	cookie := m.cookieTemplate.ToCookie(value)

	if !cookie.HttpOnly {
		slogctx.Warn(ctx, "Session cookie is not marked as HttpOnly; this is not recommended")
	}

	return cookie
}

// MakeExpiredSessionCookie renders the cookie that clears the session
// cookie on sign-out.
func (m *Manager) MakeExpiredSessionCookie() *http.Cookie {
	return m.cookieTemplate.ToExpiredCookie()
}

// CookieName returns the configured session cookie name.
func (m *Manager) CookieName() string {
	return m.cookieTemplate.Name
}
