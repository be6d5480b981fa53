package session_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdemo/cognito-gateway/internal/config"
	"github.com/opsdemo/cognito-gateway/internal/identity"
	identitymock "github.com/opsdemo/cognito-gateway/internal/identity/mock"
	"github.com/opsdemo/cognito-gateway/internal/serviceerr"
	"github.com/opsdemo/cognito-gateway/internal/session"
	sessionmock "github.com/opsdemo/cognito-gateway/internal/session/mock"
)

const (
	testUsername = "u@example.com"
	testPassword = "Secret1!"
)

func testConfig() *config.Config {
	return &config.Config{
		SessionStore: config.SessionStore{TTL: time.Hour},
		Gateway: config.Gateway{
			SessionCookieTemplate: config.CookieTemplate{
				Name:     "cognito-gateway-session",
				MaxAge:   86400,
				Path:     "/",
				HTTPOnly: true,
				SameSite: config.CookieSameSiteLax,
			},
		},
	}
}

func testIdentity(opts ...identitymock.ClientOption) *identitymock.Client {
	base := []identitymock.ClientOption{
		identitymock.WithUser(testUsername, identitymock.User{
			Password: testPassword,
			Tokens:   identity.TokenBundle{AccessToken: "access", IDToken: "id", RefreshToken: "refresh"},
			Profile: identity.Profile{
				Username:   testUsername,
				Email:      testUsername,
				GivenName:  "Test",
				FamilyName: "User",
			},
		}),
	}

	return identitymock.NewClient(append(base, opts...)...)
}

// requireInvariant checks that an authenticated session always carries a
// user, after every transition.
func requireInvariant(t *testing.T, s *session.Session) {
	t.Helper()
	if s.Authenticated {
		require.NotNil(t, s.User)
	}
}

func TestManager_CreateOrLoad(t *testing.T) {
	ctx := t.Context()

	t.Run("no cookie creates a fresh session", func(t *testing.T) {
		m := session.NewManager(testConfig(), testIdentity(), sessionmock.NewInMemRepository())

		s, isNew, err := m.CreateOrLoad(ctx, "")
		require.NoError(t, err)
		assert.True(t, isNew)
		assert.NotEmpty(t, s.ID)
		assert.False(t, s.Authenticated)
		assert.Nil(t, s.User)
	})

	t.Run("valid cookie loads the existing session", func(t *testing.T) {
		m := session.NewManager(testConfig(), testIdentity(), sessionmock.NewInMemRepository())

		first, _, err := m.CreateOrLoad(ctx, "")
		require.NoError(t, err)

		second, isNew, err := m.CreateOrLoad(ctx, first.ID)
		require.NoError(t, err)
		assert.False(t, isNew)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("unknown cookie creates a fresh session", func(t *testing.T) {
		m := session.NewManager(testConfig(), testIdentity(), sessionmock.NewInMemRepository())

		s, isNew, err := m.CreateOrLoad(ctx, "does-not-exist")
		require.NoError(t, err)
		assert.True(t, isNew)
		assert.NotEqual(t, "does-not-exist", s.ID)
	})

	t.Run("expired session is purged and replaced", func(t *testing.T) {
		expired := session.Session{
			ID:     "old-session",
			Expiry: time.Now().Add(-time.Minute),
		}
		repo := sessionmock.NewInMemRepository(sessionmock.WithSession(expired))
		m := session.NewManager(testConfig(), testIdentity(), repo)

		s, isNew, err := m.CreateOrLoad(ctx, "old-session")
		require.NoError(t, err)
		assert.True(t, isNew)
		assert.NotEqual(t, "old-session", s.ID)

		_, err = repo.LoadSession(ctx, "old-session")
		assert.ErrorIs(t, err, serviceerr.ErrNotFound)
	})

	t.Run("store failure surfaces", func(t *testing.T) {
		repo := sessionmock.NewInMemRepository(sessionmock.WithStoreSessionError(errors.New("store down")))
		m := session.NewManager(testConfig(), testIdentity(), repo)

		_, _, err := m.CreateOrLoad(ctx, "")
		assert.Error(t, err)
	})
}

func TestManager_Handshake(t *testing.T) {
	ctx := t.Context()

	t.Run("full flow promotes the session and returns the stored redirect", func(t *testing.T) {
		m := session.NewManager(testConfig(), testIdentity(), sessionmock.NewInMemRepository())
		s, _, err := m.CreateOrLoad(ctx, "")
		require.NoError(t, err)

		state, err := m.StartHandshake(ctx, &s, "/dashboard")
		require.NoError(t, err)
		require.NotEmpty(t, state)
		requireInvariant(t, &s)

		pending, err := m.SubmitCredentials(ctx, &s, testUsername, testPassword)
		require.NoError(t, err)
		require.NotNil(t, pending.User)
		assert.Equal(t, testUsername, pending.User.Email)
		assert.False(t, s.Authenticated)
		requireInvariant(t, &s)

		redirect, err := m.Callback(ctx, &s, state)
		require.NoError(t, err)
		assert.Equal(t, "/dashboard", redirect)
		assert.True(t, s.Authenticated)
		require.NotNil(t, s.User)
		assert.Equal(t, testUsername, s.User.Email)
		require.NotNil(t, s.Tokens)
		assert.Equal(t, "access", s.Tokens.AccessToken)
		assert.Empty(t, s.PendingState)
		assert.Empty(t, s.PendingRedirect)
		assert.Nil(t, s.Pending)
		requireInvariant(t, &s)
	})

	t.Run("state mismatch leaves the session unauthenticated", func(t *testing.T) {
		m := session.NewManager(testConfig(), testIdentity(), sessionmock.NewInMemRepository())
		s, _, err := m.CreateOrLoad(ctx, "")
		require.NoError(t, err)

		_, err = m.StartHandshake(ctx, &s, "/dashboard")
		require.NoError(t, err)
		_, err = m.SubmitCredentials(ctx, &s, testUsername, testPassword)
		require.NoError(t, err)

		_, err = m.Callback(ctx, &s, "forged")
		assert.ErrorIs(t, err, serviceerr.ErrStateMismatch)
		assert.False(t, s.Authenticated)
		assert.NotNil(t, s.Pending) // no partial promotion
		requireInvariant(t, &s)
	})

	t.Run("callback is not replayable", func(t *testing.T) {
		m := session.NewManager(testConfig(), testIdentity(), sessionmock.NewInMemRepository())
		s, _, err := m.CreateOrLoad(ctx, "")
		require.NoError(t, err)

		state, err := m.StartHandshake(ctx, &s, "")
		require.NoError(t, err)
		_, err = m.SubmitCredentials(ctx, &s, testUsername, testPassword)
		require.NoError(t, err)

		_, err = m.Callback(ctx, &s, state)
		require.NoError(t, err)

		// promotion cleared the pending state, so replaying the
		// previously valid state reports the missing result
		_, err = m.Callback(ctx, &s, state)
		assert.ErrorIs(t, err, serviceerr.ErrNoPendingResult)

		_, err = m.Callback(ctx, &s, "")
		assert.ErrorIs(t, err, serviceerr.ErrNoPendingResult)
		assert.True(t, s.Authenticated)
	})

	t.Run("forged state during a renewed handshake fails with state_mismatch", func(t *testing.T) {
		m := session.NewManager(testConfig(), testIdentity(), sessionmock.NewInMemRepository())
		s, _, err := m.CreateOrLoad(ctx, "")
		require.NoError(t, err)

		state, err := m.StartHandshake(ctx, &s, "")
		require.NoError(t, err)
		_, err = m.SubmitCredentials(ctx, &s, testUsername, testPassword)
		require.NoError(t, err)
		_, err = m.Callback(ctx, &s, state)
		require.NoError(t, err)

		// an authenticated session opening a second handshake carries a
		// pending state again, so a diverging state is a mismatch
		_, err = m.StartHandshake(ctx, &s, "/again")
		require.NoError(t, err)
		_, err = m.Callback(ctx, &s, "forged")
		assert.ErrorIs(t, err, serviceerr.ErrStateMismatch)
	})

	t.Run("second start discards the first pending state", func(t *testing.T) {
		m := session.NewManager(testConfig(), testIdentity(), sessionmock.NewInMemRepository())
		s, _, err := m.CreateOrLoad(ctx, "")
		require.NoError(t, err)

		firstState, err := m.StartHandshake(ctx, &s, "/one")
		require.NoError(t, err)
		secondState, err := m.StartHandshake(ctx, &s, "/two")
		require.NoError(t, err)
		require.NotEqual(t, firstState, secondState)

		_, err = m.SubmitCredentials(ctx, &s, testUsername, testPassword)
		require.NoError(t, err)

		_, err = m.Callback(ctx, &s, firstState)
		assert.ErrorIs(t, err, serviceerr.ErrStateMismatch)
		assert.False(t, s.Authenticated)

		redirect, err := m.Callback(ctx, &s, secondState)
		require.NoError(t, err)
		assert.Equal(t, "/two", redirect)
	})

	t.Run("callback without matching result fails with no_pending_result", func(t *testing.T) {
		m := session.NewManager(testConfig(), testIdentity(), sessionmock.NewInMemRepository())
		s, _, err := m.CreateOrLoad(ctx, "")
		require.NoError(t, err)

		state, err := m.StartHandshake(ctx, &s, "/dashboard")
		require.NoError(t, err)

		_, err = m.Callback(ctx, &s, state)
		assert.ErrorIs(t, err, serviceerr.ErrNoPendingResult)
		assert.False(t, s.Authenticated)
	})

	t.Run("forged callback without a prior start is a state mismatch", func(t *testing.T) {
		m := session.NewManager(testConfig(), testIdentity(), sessionmock.NewInMemRepository())
		s, _, err := m.CreateOrLoad(ctx, "")
		require.NoError(t, err)

		_, err = m.Callback(ctx, &s, "forged")
		assert.ErrorIs(t, err, serviceerr.ErrStateMismatch)
		assert.False(t, s.Authenticated)
		requireInvariant(t, &s)
	})

	t.Run("wrong password stores no pending result", func(t *testing.T) {
		m := session.NewManager(testConfig(), testIdentity(), sessionmock.NewInMemRepository())
		s, _, err := m.CreateOrLoad(ctx, "")
		require.NoError(t, err)

		_, err = m.StartHandshake(ctx, &s, "/dashboard")
		require.NoError(t, err)

		_, err = m.SubmitCredentials(ctx, &s, testUsername, "wrong")
		assert.ErrorIs(t, err, serviceerr.ErrInvalidCredentials)
		assert.False(t, s.Authenticated)
		assert.Nil(t, s.Pending)
	})

	t.Run("empty redirect defaults to the service root", func(t *testing.T) {
		m := session.NewManager(testConfig(), testIdentity(), sessionmock.NewInMemRepository())
		s, _, err := m.CreateOrLoad(ctx, "")
		require.NoError(t, err)

		state, err := m.StartHandshake(ctx, &s, "")
		require.NoError(t, err)
		_, err = m.SubmitCredentials(ctx, &s, testUsername, testPassword)
		require.NoError(t, err)

		redirect, err := m.Callback(ctx, &s, state)
		require.NoError(t, err)
		assert.Equal(t, "/", redirect)
	})

	t.Run("profile resolution failure is non-fatal", func(t *testing.T) {
		ident := testIdentity(identitymock.WithResolveProfileError(errors.New("GetUser: connection reset")))
		m := session.NewManager(testConfig(), ident, sessionmock.NewInMemRepository())
		s, _, err := m.CreateOrLoad(ctx, "")
		require.NoError(t, err)

		state, err := m.StartHandshake(ctx, &s, "/dashboard")
		require.NoError(t, err)

		pending, err := m.SubmitCredentials(ctx, &s, testUsername, testPassword)
		require.NoError(t, err)
		assert.Nil(t, pending.User)

		redirect, err := m.Callback(ctx, &s, state)
		require.NoError(t, err)
		assert.Equal(t, "/dashboard", redirect)
		assert.True(t, s.Authenticated)

		// the invariant holds via the synthesized minimal profile
		require.NotNil(t, s.User)
		assert.Equal(t, testUsername, s.User.Email)
		requireInvariant(t, &s)
	})

	t.Run("challenge response yields a pending result without profile", func(t *testing.T) {
		ident := identitymock.NewClient(identitymock.WithUser("mfa@example.com", identitymock.User{
			Password: testPassword,
			Tokens:   identity.TokenBundle{ChallengeName: "SMS_MFA", Session: "challenge-session"},
		}))
		m := session.NewManager(testConfig(), ident, sessionmock.NewInMemRepository())
		s, _, err := m.CreateOrLoad(ctx, "")
		require.NoError(t, err)

		pending, err := m.SubmitCredentials(ctx, &s, "mfa@example.com", testPassword)
		require.NoError(t, err)
		assert.Nil(t, pending.User)
		assert.Equal(t, "SMS_MFA", pending.Tokens.ChallengeName)
		assert.False(t, pending.Tokens.HasAccessToken())
	})
}

func TestManager_Login(t *testing.T) {
	ctx := t.Context()

	t.Run("promotes the session directly", func(t *testing.T) {
		m := session.NewManager(testConfig(), testIdentity(), sessionmock.NewInMemRepository())
		s, _, err := m.CreateOrLoad(ctx, "")
		require.NoError(t, err)

		require.NoError(t, m.Login(ctx, &s, testUsername, testPassword))
		assert.True(t, s.Authenticated)
		require.NotNil(t, s.User)
		assert.Equal(t, testUsername, s.User.Email)
		requireInvariant(t, &s)
	})

	t.Run("invalid credentials leave the session anonymous", func(t *testing.T) {
		m := session.NewManager(testConfig(), testIdentity(), sessionmock.NewInMemRepository())
		s, _, err := m.CreateOrLoad(ctx, "")
		require.NoError(t, err)

		err = m.Login(ctx, &s, testUsername, "wrong")
		assert.ErrorIs(t, err, serviceerr.ErrInvalidCredentials)
		assert.False(t, s.Authenticated)
	})
}

func TestManager_Verify(t *testing.T) {
	m := session.NewManager(testConfig(), testIdentity(), sessionmock.NewInMemRepository())

	t.Run("anonymous", func(t *testing.T) {
		s := session.Session{ID: "s1"}
		ok, id := m.Verify(&s)
		assert.False(t, ok)
		assert.Empty(t, id)
	})

	t.Run("authenticated", func(t *testing.T) {
		s := session.Session{
			ID:            "s2",
			Authenticated: true,
			User:          &identity.Profile{Username: testUsername, Email: testUsername},
		}
		ok, id := m.Verify(&s)
		assert.True(t, ok)
		assert.Equal(t, testUsername, id)
	})
}

func TestManager_SignOut(t *testing.T) {
	ctx := t.Context()

	t.Run("sign-out then verify reports unauthenticated, even with the old cookie", func(t *testing.T) {
		m := session.NewManager(testConfig(), testIdentity(), sessionmock.NewInMemRepository())
		s, _, err := m.CreateOrLoad(ctx, "")
		require.NoError(t, err)
		oldID := s.ID

		state, err := m.StartHandshake(ctx, &s, "")
		require.NoError(t, err)
		_, err = m.SubmitCredentials(ctx, &s, testUsername, testPassword)
		require.NoError(t, err)
		_, err = m.Callback(ctx, &s, state)
		require.NoError(t, err)
		require.True(t, s.Authenticated)

		require.NoError(t, m.SignOut(ctx, &s))
		ok, _ := m.Verify(&s)
		assert.False(t, ok)

		// the old cookie now resolves to a fresh anonymous session
		reloaded, isNew, err := m.CreateOrLoad(ctx, oldID)
		require.NoError(t, err)
		assert.True(t, isNew)
		ok, _ = m.Verify(&reloaded)
		assert.False(t, ok)
	})

	t.Run("store failure is reported but the session copy is reset", func(t *testing.T) {
		repo := sessionmock.NewInMemRepository(sessionmock.WithDeleteSessionError(errors.New("store down")))
		m := session.NewManager(testConfig(), testIdentity(), repo)

		s := session.Session{ID: "s1", Authenticated: true, User: &identity.Profile{Email: testUsername}}
		err := m.SignOut(ctx, &s)
		assert.Error(t, err)
		assert.False(t, s.Authenticated)
	})

	t.Run("already-deleted session is not an error", func(t *testing.T) {
		m := session.NewManager(testConfig(), testIdentity(), sessionmock.NewInMemRepository())
		s := session.Session{ID: "never-stored"}
		assert.NoError(t, m.SignOut(ctx, &s))
	})
}

func TestManager_CleanupExpiredSessions(t *testing.T) {
	ctx := t.Context()

	live := session.Session{ID: "live", Expiry: time.Now().Add(time.Hour)}
	dead := session.Session{ID: "dead", Expiry: time.Now().Add(-time.Hour)}
	repo := sessionmock.NewInMemRepository(
		sessionmock.WithSession(live),
		sessionmock.WithSession(dead),
	)
	m := session.NewManager(testConfig(), testIdentity(), repo)

	require.NoError(t, m.CleanupExpiredSessions(ctx))

	_, err := repo.LoadSession(ctx, "live")
	assert.NoError(t, err)
	_, err = repo.LoadSession(ctx, "dead")
	assert.ErrorIs(t, err, serviceerr.ErrNotFound)
}

func TestManager_Cookies(t *testing.T) {
	m := session.NewManager(testConfig(), testIdentity(), sessionmock.NewInMemRepository())

	cookie := m.MakeSessionCookie(t.Context(), "session-id")
	assert.Equal(t, "cognito-gateway-session", cookie.Name)
	assert.Equal(t, "session-id", cookie.Value)
	assert.True(t, cookie.HttpOnly)

	expired := m.MakeExpiredSessionCookie()
	assert.Equal(t, -1, expired.MaxAge)
	assert.Empty(t, expired.Value)

	assert.Equal(t, "cognito-gateway-session", m.CookieName())
}
