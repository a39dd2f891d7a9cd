package controller

import (
	"bills/pkg/logger"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"
)

// internalProblem is the body written when a handler panics. It matches the
// problem shape produced by the API handlers for infrastructure failures.
const internalProblem = `{"type":"about:blank","title":"An unexpected error occurred.","status":500}`

// WithRecover returns a middleware that recovers from panics in next, logs
// them with the stack trace and answers 500 with a problem body. Panics with
// http.ErrAbortHandler are re-raised so net/http can abort the connection.
func WithRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			p := recover()
			if p == nil {
				return
			}
			if p == http.ErrAbortHandler { //nolint: errorlint
				panic(p)
			}

			logger.Error(r.Context(), "recovered from handler panic",
				zap.Any("panic", p),
				zap.ByteString("stack", debug.Stack()))

			w.Header().Set("Content-Type", "application/problem+json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(internalProblem))
		}()

		next.ServeHTTP(w, r)
	})
}
