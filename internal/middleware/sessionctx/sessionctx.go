// Package sessionctx provides utilities to inject and retrieve the
// request's session in and from the context.
package sessionctx

import (
	"context"
	"errors"
	"net/http"

	slogctx "github.com/veqryn/slog-context"

	"github.com/opsdemo/cognito-gateway/internal/session"
)

// Using an unexported type prevents key collisions from other packages.
type contextKey string

// SessionKey is the context key used to store the request's session.
const SessionKey contextKey = "session"

// SessionMiddleware is an http.Handler middleware that resolves the
// session cookie to a session, creating a fresh one when the cookie is
// missing or stale, and injects it into the context for later handlers
// to access. A freshly created session is announced to the client via a
// Set-Cookie header before the wrapped handler runs.
func SessionMiddleware(manager *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var cookieValue string
			if cookie, err := r.Cookie(manager.CookieName()); err == nil {
				cookieValue = cookie.Value
			}

			s, isNew, err := manager.CreateOrLoad(ctx, cookieValue)
			if err != nil {
				slogctx.Error(ctx, "Could not establish session", "error", err)
				http.Error(w, "session store unavailable", http.StatusInternalServerError)
				return
			}

			if isNew {
				http.SetCookie(w, manager.MakeSessionCookie(ctx, s.ID))
			}

			ctx = context.WithValue(ctx, SessionKey, &s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext is a helper function that retrieves the session
// from the context.
func SessionFromContext(ctx context.Context) (*session.Session, error) {
	s, ok := ctx.Value(SessionKey).(*session.Session)
	if !ok {
		return nil, errors.New("session not found in context")
	}
	return s, nil
}
