package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/opsdemo/cognito-gateway/internal/awsdemo"
	"github.com/opsdemo/cognito-gateway/internal/config"
	"github.com/opsdemo/cognito-gateway/internal/identity"
	"github.com/opsdemo/cognito-gateway/internal/middleware/forwardauth"
	"github.com/opsdemo/cognito-gateway/internal/middleware/sessionctx"
	"github.com/opsdemo/cognito-gateway/internal/provision"
	"github.com/opsdemo/cognito-gateway/internal/serviceerr"
	"github.com/opsdemo/cognito-gateway/internal/session"
)

// mockAuthCode is the placeholder code handed to the callback leg. The
// emulator cannot issue real authorization codes, so the pending result
// stored on the session stands in for the code exchange.
const mockAuthCode = "mock_auth_code"

// anonymousUser is the placeholder identity forward-auth proxies send
// for unauthenticated requests.
const anonymousUser = "unknown"

type gatewayAPI struct {
	sessionManager *session.Manager
	demoService    *awsdemo.Service
	directory      *identity.Directory

	loginURL   string
	region     string
	endpoint   string
	userPoolID string
	clientID   string

	startedAt time.Time
}

func newGatewayAPI(
	cfg *config.Config,
	sessionManager *session.Manager,
	demoService *awsdemo.Service,
	directory *identity.Directory,
) *gatewayAPI {
	userPoolID, _ := cfg.Cognito.UserPoolID.Resolve()
	clientID, _ := cfg.Cognito.ClientID.Resolve()

	return &gatewayAPI{
		sessionManager: sessionManager,
		demoService:    demoService,
		directory:      directory,
		loginURL:       cfg.Gateway.LoginURL,
		region:         cfg.AWS.Region,
		endpoint:       cfg.AWS.EndpointURL,
		userPoolID:     userPoolID,
		clientID:       clientID,
		startedAt:      time.Now(),
	}
}

type errorModel struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func toErrorModel(err error) (errorModel, int) {
	var serviceErr *serviceerr.Error
	if !errors.As(err, &serviceErr) {
		serviceErr = serviceerr.ErrUnknown
	}

	return errorModel{
		Error:            string(serviceErr.Err),
		ErrorDescription: serviceErr.Description,
	}, serviceErr.HTTPStatus()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	body, status := toErrorModel(err)
	writeJSON(w, status, body)
}

func (a *gatewayAPI) currentSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := sessionctx.SessionFromContext(r.Context())
	if err != nil {
		slogctx.Error(r.Context(), "No session in request context", "error", err)
		writeError(w, serviceerr.ErrUnknown)

		return nil, false
	}

	return s, true
}

func (a *gatewayAPI) handleRoot(w http.ResponseWriter, r *http.Request) {
	s, ok := a.currentSession(w, r)
	if !ok {
		return
	}

	authenticated, _ := a.sessionManager.Verify(s)

	var user *identity.Profile
	if authenticated {
		user = s.User
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "demo backend behind the authenticating gateway",
		"user":          user,
		"authenticated": authenticated,
		"timestamp":     time.Now().UTC(),
		"oauth2_links": map[string]string{
			"login":  "/oauth2/start",
			"logout": "/oauth2/sign_out",
		},
		"endpoints": map[string]string{
			"health":        "/health",
			"user":          "/user",
			"aws_status":    "/aws/status",
			"s3_demo":       "/aws/s3",
			"dynamodb_demo": "/aws/dynamodb",
		},
	})
}

func (a *gatewayAPI) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(a.startedAt).Seconds(),
	})
}

func (a *gatewayAPI) handleUser(w http.ResponseWriter, r *http.Request) {
	s, ok := a.currentSession(w, r)
	if !ok {
		return
	}

	// forward-auth headers from a fronting proxy count as authentication
	// too, so the endpoint works both behind the gateway and standalone;
	// proxies send the anonymousUser placeholder for unauthenticated
	// requests, which does not count
	headerUser := r.Header.Get(forwardauth.HeaderUser)
	headerEmail := r.Header.Get(forwardauth.HeaderEmail)
	headerAuthenticated := headerUser != "" && headerUser != anonymousUser && headerEmail != ""

	authenticated, _ := a.sessionManager.Verify(s)
	if !authenticated && !headerAuthenticated {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"error":        "authentication required",
			"oauth2_login": a.loginURL,
		})

		return
	}

	source := "session"
	user := s.User
	if user == nil {
		source = "headers"
		user = &identity.Profile{Username: headerUser, Email: headerEmail}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":                  user,
		"authentication_source": source,
		"session_active":        authenticated,
		"headers": map[string]string{
			"x-auth-request-user":  headerUser,
			"x-auth-request-email": headerEmail,
		},
	})
}

func (a *gatewayAPI) handleOAuth2Start(w http.ResponseWriter, r *http.Request) {
	s, ok := a.currentSession(w, r)
	if !ok {
		return
	}

	redirectTarget := r.URL.Query().Get("rd")

	state, err := a.sessionManager.StartHandshake(r.Context(), s, redirectTarget)
	if err != nil {
		slogctx.Error(r.Context(), "Failed to start the handshake", "error", err)
		writeError(w, err)

		return
	}

	formURL := fmt.Sprintf("/auth/login-form?state=%s&redirect_uri=%s",
		url.QueryEscape(state), url.QueryEscape(s.PendingRedirect))
	http.Redirect(w, r, formURL, http.StatusFound)
}

func (a *gatewayAPI) handleOAuth2Callback(w http.ResponseWriter, r *http.Request) {
	s, ok := a.currentSession(w, r)
	if !ok {
		return
	}

	state := r.URL.Query().Get("state")

	redirectTarget, err := a.sessionManager.Callback(r.Context(), s, state)
	if err != nil {
		slogctx.Error(r.Context(), "Failed to complete the handshake", "error", err)
		writeError(w, err)

		return
	}

	http.Redirect(w, r, redirectTarget, http.StatusFound)
}

func (a *gatewayAPI) handleOAuth2SignOut(w http.ResponseWriter, r *http.Request) {
	s, ok := a.currentSession(w, r)
	if !ok {
		return
	}

	if err := a.sessionManager.SignOut(r.Context(), s); err != nil {
		slogctx.Error(r.Context(), "Failed to destroy the session", "error", err)
	}

	http.SetCookie(w, a.sessionManager.MakeExpiredSessionCookie())
	http.Redirect(w, r, "/", http.StatusFound)
}

func (a *gatewayAPI) handleAuthVerify(w http.ResponseWriter, r *http.Request) {
	s, ok := a.currentSession(w, r)
	if !ok {
		return
	}

	authenticated, user := a.sessionManager.Verify(s)
	if !authenticated {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"authenticated": false,
			"login_url":     a.loginURL,
		})

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          user,
	})
}

type loginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	OAuth2Flow string `json:"oauth2_flow"`
}

func (a *gatewayAPI) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	s, ok := a.currentSession(w, r)
	if !ok {
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, serviceerr.ErrInvalidRequest.WithDescription("request body must be JSON"))

		return
	}

	if req.Username == "" || req.Password == "" {
		writeError(w, serviceerr.ErrInvalidRequest.WithDescription("username and password are required"))

		return
	}

	if req.OAuth2Flow == "true" {
		a.handleOAuth2FlowLogin(w, r, s, req)

		return
	}

	tokens, profile, err := a.sessionManager.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		slogctx.Warn(r.Context(), "Authentication failed", "username", req.Username, "error", err)
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"message":        "authentication succeeded",
		"tokens":         tokens,
		"user_info":      profile,
		"challenge_name": tokens.ChallengeName,
	})
}

// handleOAuth2FlowLogin is the credential leg of the handshake: the
// result is parked on the session and the client is pointed at the
// callback with the state it started with.
func (a *gatewayAPI) handleOAuth2FlowLogin(w http.ResponseWriter, r *http.Request, s *session.Session, req loginRequest) {
	_, err := a.sessionManager.SubmitCredentials(r.Context(), s, req.Username, req.Password)
	if err != nil {
		slogctx.Warn(r.Context(), "Authentication failed", "username", req.Username, "error", err)
		writeError(w, err)

		return
	}

	callbackURL := fmt.Sprintf("/oauth2/callback?code=%s&state=%s",
		mockAuthCode, url.QueryEscape(s.PendingState))

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "authentication succeeded",
		"redirect": callbackURL,
	})
}

func (a *gatewayAPI) handleAuthTestSession(w http.ResponseWriter, r *http.Request) {
	s, ok := a.currentSession(w, r)
	if !ok {
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, serviceerr.ErrInvalidRequest.WithDescription("request body must be JSON"))

		return
	}

	if req.Username == "" || req.Password == "" {
		writeError(w, serviceerr.ErrInvalidRequest.WithDescription("username and password are required"))

		return
	}

	if err := a.sessionManager.Login(r.Context(), s, req.Username, req.Password); err != nil {
		slogctx.Warn(r.Context(), "Authentication failed", "username", req.Username, "error", err)
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"message":    "session authenticated",
		"user":       s.User,
		"session_id": s.ID,
	})
}

func (a *gatewayAPI) handleAuthConfig(w http.ResponseWriter, r *http.Request) {
	info := a.directory.Describe(r.Context())

	writeJSON(w, http.StatusOK, map[string]any{
		"cognito_config": map[string]string{
			"user_pool_id": a.userPoolID,
			"client_id":    a.clientID,
			"region":       a.region,
			"endpoint":     a.endpoint,
		},
		"user_pools": info.UserPools,
		"clients":    info.Clients,
		"test_user": map[string]string{
			"username": provision.TestUsername,
			"password": provision.TestPassword,
		},
	})
}

func (a *gatewayAPI) handleAWSStatus(w http.ResponseWriter, r *http.Request) {
	report, err := a.demoService.Status(r.Context())
	if err != nil {
		slogctx.Error(r.Context(), "AWS status check failed", "error", err)
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (a *gatewayAPI) handleAWSS3Demo(w http.ResponseWriter, r *http.Request) {
	report, err := a.demoService.RunS3Demo(r.Context(), a.demoUser(r))
	if err != nil {
		slogctx.Error(r.Context(), "S3 demo failed", "error", err)
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (a *gatewayAPI) handleAWSDynamoDemo(w http.ResponseWriter, r *http.Request) {
	report, err := a.demoService.RunDynamoDemo(r.Context(), a.demoUser(r))
	if err != nil {
		slogctx.Error(r.Context(), "DynamoDB demo failed", "error", err)
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, report)
}

// demoUser tags demo artifacts with the caller's identity when known.
func (a *gatewayAPI) demoUser(r *http.Request) string {
	if user := r.Header.Get(forwardauth.HeaderUser); user != "" {
		return user
	}

	if s, err := sessionctx.SessionFromContext(r.Context()); err == nil {
		if _, user := a.sessionManager.Verify(s); user != "" {
			return user
		}
	}

	return anonymousUser
}

func (a *gatewayAPI) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorModel{
		Error:            string(serviceerr.ErrNotFound.Err),
		ErrorDescription: fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path),
	})
}
