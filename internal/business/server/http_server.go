package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/samber/oops"

	slogctx "github.com/veqryn/slog-context"

	"github.com/opsdemo/cognito-gateway/internal/awsdemo"
	"github.com/opsdemo/cognito-gateway/internal/config"
	"github.com/opsdemo/cognito-gateway/internal/identity"
	"github.com/opsdemo/cognito-gateway/internal/middleware/forwardauth"
	"github.com/opsdemo/cognito-gateway/internal/middleware/sessionctx"
	"github.com/opsdemo/cognito-gateway/internal/session"
)

// createHTTPServer assembles the route tree with the session and
// forward-auth middlewares applied to every route.
func createHTTPServer(_ context.Context, cfg *config.Config, api *gatewayAPI) *http.Server {
	router := chi.NewRouter()

	router.Use(requestMetricsMiddleware(cfg))
	router.Use(recoverMiddleware)
	router.Use(sessionctx.SessionMiddleware(api.sessionManager))
	router.Use(forwardauth.ForwardAuthMiddleware(cfg.Gateway.Roles))

	router.Get("/", api.handleRoot)
	router.Get("/health", api.handleHealth)
	router.Get("/user", api.handleUser)

	router.Get("/oauth2/start", api.handleOAuth2Start)
	router.Get("/oauth2/callback", api.handleOAuth2Callback)
	router.Get("/oauth2/sign_out", api.handleOAuth2SignOut)

	router.Get("/auth/verify", api.handleAuthVerify)
	router.Post("/auth/login", api.handleAuthLogin)
	router.Post("/auth/test-session", api.handleAuthTestSession)
	router.Get("/auth/login-form", api.handleAuthLoginForm)
	router.Get("/auth/config", api.handleAuthConfig)

	router.Get("/aws/status", api.handleAWSStatus)
	router.Get("/aws/s3", api.handleAWSS3Demo)
	router.Get("/aws/dynamodb", api.handleAWSDynamoDemo)

	router.NotFound(api.handleNotFound)

	return &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}
}

// StartHTTPServer starts the HTTP server using the given config and
// blocks until the context is cancelled, then shuts down gracefully.
func StartHTTPServer(
	ctx context.Context,
	cfg *config.Config,
	sessionManager *session.Manager,
	demoService *awsdemo.Service,
	directory *identity.Directory,
) error {
	if err := initMeters(ctx, cfg); err != nil {
		return err
	}

	api := newGatewayAPI(cfg, sessionManager, demoService, directory)
	server := createHTTPServer(ctx, cfg, api)

	slogctx.Info(ctx, "Starting a listener", "address", server.Addr)

	// Parse network if the address is provided in the format of
	// network://address. Otherwise use tcp network by default. Binding to a
	// unix socket makes some integration setups easier since no free TCP
	// port has to be discovered.
	network := "tcp"
	if idx := strings.IndexRune(server.Addr, ':'); idx != -1 && len(server.Addr) > idx+3 && server.Addr[idx:idx+3] == "://" {
		network = server.Addr[:idx]
		server.Addr = server.Addr[idx+3:]
	}

	listener, err := new(net.ListenConfig).Listen(ctx, network, server.Addr)
	if err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "Failed to create a listener")
	}

	slogctx.Info(ctx, "A listener started", "address", listener.Addr().String())

	go func() {
		slogctx.Info(ctx, "Serving an HTTP server", "address", listener.Addr().String())
		err := server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogctx.Error(ctx, "Failed to serve an HTTP server", "error", err)
		}

		slogctx.Info(ctx, "Stopped an HTTP server")
	}()

	<-ctx.Done()

	shutdownCtx, shutdownRelease := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
	defer shutdownRelease()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "Failed shutting down HTTP server")
	}

	slogctx.Info(ctx, "Completed graceful shutdown of HTTP server")

	return nil
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slogctx.Error(r.Context(), "Recovered from panic in handler", "panic", rec, "path", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"unknown"}`))
			}
		}()

		next.ServeHTTP(w, r)
	})
}
