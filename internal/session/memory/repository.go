// Package sessionmemory is the default session repository: a process-local
// cache whose janitor purges expired entries in the background. Sessions
// do not survive a process restart.
package sessionmemory

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/opsdemo/cognito-gateway/internal/serviceerr"
	"github.com/opsdemo/cognito-gateway/internal/session"
)

type Repository struct {
	cache *gocache.Cache
}

var _ = session.Repository(&Repository{})

func NewRepository(ttl, cleanupInterval time.Duration) *Repository {
	return &Repository{
		cache: gocache.New(ttl, cleanupInterval),
	}
}

func (r *Repository) LoadSession(_ context.Context, sessionID string) (session.Session, error) {
	value, ok := r.cache.Get(sessionID)
	if !ok {
		return session.Session{}, serviceerr.ErrNotFound
	}

	s, ok := value.(session.Session)
	if !ok {
		return session.Session{}, serviceerr.ErrNotFound
	}

	// the janitor runs on an interval, so entries can outlive their expiry
	if s.Expired(time.Now()) {
		r.cache.Delete(s.ID)
		return session.Session{}, serviceerr.ErrNotFound
	}

	return s, nil
}

func (r *Repository) StoreSession(_ context.Context, s session.Session) error {
	// cache TTL follows the session's own expiry so the sliding window
	// set by Save carries through
	r.cache.Set(s.ID, s, time.Until(s.Expiry))

	return nil
}

func (r *Repository) DeleteSession(_ context.Context, s session.Session) error {
	if _, ok := r.cache.Get(s.ID); !ok {
		return serviceerr.ErrNotFound
	}
	r.cache.Delete(s.ID)

	return nil
}

func (r *Repository) ListSessions(_ context.Context) ([]session.Session, error) {
	items := r.cache.Items()
	sessions := make([]session.Session, 0, len(items))
	for _, item := range items {
		if s, ok := item.Object.(session.Session); ok {
			sessions = append(sessions, s)
		}
	}

	return sessions, nil
}
