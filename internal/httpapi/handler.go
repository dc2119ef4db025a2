package httpapi

import (
	"net/http"
	"time"

	"github.com/xiaohuirong/txt2sub/internal/logger"
)

// NewHandler returns the production handler (mux + observability middleware).
//
// Tests can still use NewMux directly to avoid noisy logs unless needed.
func NewHandler(opt Options) http.Handler {
	return withObservability(NewMux(opt))
}

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func (w *statusWriter) WriteHeader(statusCode int) {
	w.status = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}

func withObservability(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)

		status := sw.status
		if status == 0 {
			status = http.StatusOK
		}

		// Keep it low-cardinality, and never log the raw path or query:
		// the subscription token lives in the path.
		pattern := r.Pattern
		if pattern == "" {
			pattern = r.Method + " (unmatched)"
		}

		metricsIncRequest(pattern, status)

		// Minimal access log. The URL path and query stay out of the log
		// because both may carry the subscription token.
		if r.URL.Path != "/healthz" && r.URL.Path != "/metrics" {
			dur := time.Since(start).Round(time.Millisecond)
			logger.Infof("http %s pattern=%q status=%d dur=%s bytes=%d", r.Method, pattern, status, dur, sw.bytes)
		}
	})
}
