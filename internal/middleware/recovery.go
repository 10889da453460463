package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"cybermarket/internal/handler"
	"cybermarket/pkg/apierror"
)

// Recovery is a middleware that recovers from panics.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[Admin] PANIC: %v\n%s", err, debug.Stack())
				handler.WriteError(w, apierror.InternalError("internal server error"))
			}
		}()

		next.ServeHTTP(w, r)
	})
}
