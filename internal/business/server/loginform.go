package server

import (
	_ "embed"
	"html/template"
	"net/http"

	slogctx "github.com/veqryn/slog-context"

	"github.com/opsdemo/cognito-gateway/internal/provision"
	"github.com/opsdemo/cognito-gateway/internal/serviceerr"
)

//go:embed login.html
var loginFormHTML string

var loginFormTemplate = template.Must(template.New("login").Parse(loginFormHTML))

type loginFormData struct {
	OAuth2Flow   bool
	State        string
	RedirectURI  string
	TestUsername string
	TestPassword string
}

// handleAuthLoginForm serves the embedded login page. When state and
// redirect_uri are present the page runs the handshake's credential leg
// and follows the returned callback URL.
func (a *gatewayAPI) handleAuthLoginForm(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	state := query.Get("state")
	redirectURI := query.Get("redirect_uri")

	data := loginFormData{
		OAuth2Flow:   state != "" && redirectURI != "",
		State:        state,
		RedirectURI:  redirectURI,
		TestUsername: provision.TestUsername,
		TestPassword: provision.TestPassword,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := loginFormTemplate.Execute(w, data); err != nil {
		slogctx.Error(r.Context(), "Failed to render the login form", "error", err)
		writeError(w, serviceerr.ErrUnknown)
	}
}
