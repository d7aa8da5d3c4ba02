package httpapi

import (
	"log/slog"
	"net/http"
	"time"
)

// RequestObserver records one served request. route is the matched mux
// pattern, or "unmatched".
type RequestObserver interface {
	ObserveRequest(method, route string, status int, d time.Duration)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func requestLogger(next http.Handler, observer RequestObserver) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sr, r)
		elapsed := time.Since(start)

		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sr.status,
			"duration_ms", elapsed.Milliseconds(),
		)

		if observer != nil {
			// ServeMux fills r.Pattern in place; raw paths would explode label cardinality
			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			observer.ObserveRequest(r.Method, route, sr.status, elapsed)
		}
	})
}
