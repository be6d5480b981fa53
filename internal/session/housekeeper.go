package session

import (
	"context"
	"time"

	slogctx "github.com/veqryn/slog-context"
)

// CleanupExpiredSessions deletes sessions whose TTL has lapsed. Both store
// backends expire entries on their own; the sweep exists so abandoned
// entries do not linger until their next read.
func (m *Manager) CleanupExpiredSessions(ctx context.Context) error {
	sessions, err := m.sessions.ListSessions(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, s := range sessions {
		if !s.Expired(now) {
			continue
		}
		if err := m.sessions.DeleteSession(ctx, s); err != nil {
			slogctx.Warn(ctx, "Could not delete expired session", "error", err)
			continue
		}
		slogctx.Info(ctx, "Deleted expired session")
	}

	return nil
}
