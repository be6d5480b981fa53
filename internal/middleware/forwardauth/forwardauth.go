// Package forwardauth decorates requests from authenticated sessions
// with the identity headers a fronting proxy forwards to upstreams.
package forwardauth

import (
	"net/http"

	"github.com/opsdemo/cognito-gateway/internal/middleware/sessionctx"
)

// Identity headers in the forward-auth convention.
const (
	HeaderEmail      = "X-Auth-Request-Email"
	HeaderUser       = "X-Auth-Request-User"
	HeaderGivenName  = "X-Auth-Request-Given-Name"
	HeaderFamilyName = "X-Auth-Request-Family-Name"
	HeaderRoles      = "X-Auth-Request-Roles"
)

// ForwardAuthMiddleware sets the X-Auth-Request-* headers on both the
// inbound request (for handlers acting as upstreams) and the response
// (for proxies copying headers from an auth subrequest). Anonymous
// requests pass through untouched. The roles value is a static
// deployment-wide claim; the demo pool carries no group memberships.
func ForwardAuthMiddleware(roles string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := sessionctx.SessionFromContext(r.Context())
			if err != nil || !s.Authenticated || s.User == nil {
				next.ServeHTTP(w, r)
				return
			}

			identifier := s.Identifier()
			set := func(header, value string) {
				r.Header.Set(header, value)
				w.Header().Set(header, value)
			}

			set(HeaderEmail, s.User.Email)
			set(HeaderUser, identifier)
			set(HeaderGivenName, s.User.GivenName)
			set(HeaderFamilyName, s.User.FamilyName)
			set(HeaderRoles, roles)

			next.ServeHTTP(w, r)
		})
	}
}
