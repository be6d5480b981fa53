package business

import (
	"context"
	"fmt"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/opsdemo/cognito-gateway/internal/config"
)

// HousekeeperMain runs the periodic session cleanup until the context
// is cancelled. The memory backend purges on its own; this job matters
// for the valkey backend, where stale sessions would otherwise linger
// until their key TTL fires.
func HousekeeperMain(ctx context.Context, cfg *config.Config) error {
	gateway, closeFn, err := initGateway(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialising the gateway: %w", err)
	}
	defer closeFn()

	c := time.Tick(cfg.SessionStore.CleanupInterval)
	for {
		slogctx.Info(ctx, "Triggering expired session cleanup")
		if err := gateway.sessionManager.CleanupExpiredSessions(ctx); err != nil {
			slogctx.Error(ctx, "Error during session cleanup", "error", err)
		}

		select {
		case <-c:
			continue
		case <-ctx.Done():
			return nil
		}
	}
}
