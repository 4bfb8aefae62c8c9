package middleware

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/vkuksa/supermarkets/internal/session"
)

// Session returns a middleware that resolves the session cookie into a
// context user. Requests without a valid session pass through
// unauthenticated; rejecting or redirecting is left to the guards and
// handlers downstream.
func Session(manager *session.Manager, logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := manager.UserFromRequest(r)
			if err != nil {
				if errors.Is(err, session.ErrSessionExpired) {
					logger.Debug("session expired",
						zap.String("path", r.URL.Path),
						zap.String("request_id", getRequestID(r)),
					)
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := session.WithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
