// Package sessionvalkey is the valkey-backed session repository, for
// deployments running more than one gateway replica behind the proxy.
package sessionvalkey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/opsdemo/cognito-gateway/internal/serviceerr"
	"github.com/opsdemo/cognito-gateway/internal/session"
)

type ObjectType string

const objectTypeSession ObjectType = "session"

var (
	ErrGetSession   = errors.New("getting session from store")
	ErrGetSessions  = errors.New("getting sessions from store")
	ErrStoreSession = errors.New("setting session into storage")
)

type Repository struct {
	store *store
}

var _ = session.Repository(&Repository{})

func NewRepository(valkeyClient valkey.Client, prefix string) *Repository {
	return &Repository{
		store: newStore(valkeyClient, prefix),
	}
}

func (r *Repository) LoadSession(ctx context.Context, sessionID string) (session.Session, error) {
	var s session.Session
	if err := r.store.Get(ctx, objectTypeSession, sessionID, &s); err != nil {
		if errors.Is(err, serviceerr.ErrNotFound) {
			return session.Session{}, err
		}

		return session.Session{}, errors.Join(ErrGetSession, err)
	}

	return s, nil
}

func (r *Repository) StoreSession(ctx context.Context, s session.Session) error {
	ttl := time.Until(s.Expiry)
	if err := r.store.Set(ctx, objectTypeSession, s.ID, s, ttl); err != nil {
		return errors.Join(ErrStoreSession, err)
	}

	return nil
}

func (r *Repository) DeleteSession(ctx context.Context, s session.Session) error {
	if err := r.store.Destroy(ctx, objectTypeSession, s.ID); err != nil {
		return fmt.Errorf("deleting session from store: %w", err)
	}

	return nil
}

func (r *Repository) ListSessions(ctx context.Context) ([]session.Session, error) {
	var sessions []session.Session
	if err := getStoreObjects(ctx, r.store, objectTypeSession, "*", &sessions); err != nil {
		return nil, errors.Join(ErrGetSessions, err)
	}

	return sessions, nil
}
