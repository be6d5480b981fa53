package session

import "context"

// Repository is the session store. Implementations report a missing or
// expired entry as serviceerr.ErrNotFound.
type Repository interface {
	LoadSession(ctx context.Context, sessionID string) (Session, error)
	StoreSession(ctx context.Context, session Session) error
	DeleteSession(ctx context.Context, session Session) error
	ListSessions(ctx context.Context) ([]Session, error)
}
