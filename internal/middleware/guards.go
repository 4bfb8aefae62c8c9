package middleware

import (
	"net/http"

	"github.com/vkuksa/supermarkets/internal/session"
)

// Navigation guards. Each is a stateless predicate over the current
// session, evaluated before the guarded page renders: either the request
// proceeds unmodified or it is redirected. Neither makes a network call.

// RequireAuth returns a guard that redirects unauthenticated requests to
// the login page.
func RequireAuth(loginPath string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := session.FromContext(r.Context()); !ok {
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireGuest returns a guard that redirects authenticated requests to
// the dashboard. Used for pages that only make sense when logged out,
// such as the login page.
func RequireGuest(dashboardPath string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := session.FromContext(r.Context()); ok {
				http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
