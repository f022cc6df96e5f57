package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"gasroute/internal/metrics"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware wraps the mux with rate limiting, request logging, and the
// Prometheus request metrics.
func (s *Server) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			writeProblem(w, http.StatusTooManyRequests, "Rate limit exceeded", "", r.URL.Path)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		dur := time.Since(start)

		path := metricPath(r.URL.Path)
		status := strconv.Itoa(rec.status)
		metrics.HTTPRequests.WithLabelValues(r.Method, path, status).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, path, status).Observe(dur.Seconds())

		s.Log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", dur).
			Str("remote", r.RemoteAddr).
			Msg("request")
	})
}

// metricPath collapses date path segments so the label set stays bounded.
func metricPath(p string) string {
	if rest, ok := strings.CutPrefix(p, "/v1/schedules/"); ok {
		parts := strings.SplitN(strings.Trim(rest, "/"), "/", 2)
		if len(parts) == 2 {
			return "/v1/schedules/{date}/" + parts[1]
		}
		if parts[0] != "" && parts[0] != "generate" && parts[0] != "apply" {
			return "/v1/schedules/{date}"
		}
	}
	return p
}
