package session

import (
	"time"

	"github.com/opsdemo/cognito-gateway/internal/identity"
)

// Session is the cookie-keyed record for one browser. It starts anonymous
// and is promoted to authenticated by the handshake's callback leg.
//
// Invariant: Authenticated implies User is non-nil.
type Session struct {
	ID            string                `json:"id"`
	Authenticated bool                  `json:"authenticated"`
	User          *identity.Profile     `json:"user,omitempty"`
	Tokens        *identity.TokenBundle `json:"tokens,omitempty"`

	// PendingState and PendingRedirect are the transient handshake pair
	// set by the start leg; Pending holds the not-yet-promoted result of
	// a successful credential submission. Only one in-flight attempt is
	// supported per session.
	PendingState    string         `json:"pendingState,omitempty"`
	PendingRedirect string         `json:"pendingRedirect,omitempty"`
	Pending         *PendingResult `json:"pending,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	Expiry    time.Time `json:"expiry"`
}

// PendingResult is the token/profile pair stored mid-handshake. Username
// is the name the credentials were submitted under; it backs the fallback
// profile when resolution failed.
type PendingResult struct {
	Username string                `json:"username"`
	Tokens   identity.TokenBundle  `json:"tokens"`
	User     *identity.Profile     `json:"user,omitempty"`
}

// Identifier returns the stable identifier of the authenticated principal,
// or the empty string for anonymous sessions.
func (s *Session) Identifier() string {
	if !s.Authenticated || s.User == nil {
		return ""
	}

	return s.User.Identifier()
}

func (s *Session) Expired(now time.Time) bool {
	return now.After(s.Expiry)
}
