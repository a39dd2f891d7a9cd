package controller

import (
	"net/http"
	"time"
)

// timeoutProblem is answered when a request outlives its deadline.
// http.TimeoutHandler always replies 503, so the body reports 503 as well.
const timeoutProblem = `{"type":"about:blank","title":"Request timed out.","status":503}`

// WithTimeout bounds next with http.TimeoutHandler. A request that runs out
// of time is answered 503 with a problem body typed application/problem+json.
func WithTimeout(next http.Handler, timeout time.Duration) http.Handler {
	th := http.TimeoutHandler(next, timeout, timeoutProblem)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		th.ServeHTTP(&timeoutWriter{ResponseWriter: w}, r)
	})
}

// timeoutWriter types the body http.TimeoutHandler writes on expiry, which
// comes without headers. Responses of next carry their own Content-Type.
type timeoutWriter struct {
	http.ResponseWriter
}

func (w *timeoutWriter) WriteHeader(code int) {
	if code == http.StatusServiceUnavailable && w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/problem+json")
	}
	w.ResponseWriter.WriteHeader(code)
}
