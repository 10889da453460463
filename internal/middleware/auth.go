package middleware

import (
	"crypto/subtle"
	"net/http"

	"cybermarket/internal/handler"
	"cybermarket/pkg/apierror"
)

// LoginKeyHeader carries the admin key.
const LoginKeyHeader = "X-Login-Key"

// NewLoginKeyMiddleware guards admin routes with a shared key. An empty key
// leaves the routes open.
func NewLoginKeyMiddleware(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(LoginKeyHeader)
			if got == "" {
				handler.WriteError(w, apierror.Unauthorized("Authentication required. Use X-Login-Key header."))
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				handler.WriteError(w, apierror.Unauthorized("Invalid login key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
