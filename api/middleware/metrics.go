package middleware

import (
	"net/http"
	"time"
)

type httpRecorder interface {
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
}

// Metrics records request count and latency by chi route pattern, so
// path parameters do not explode label cardinality.
func Metrics(rec httpRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rec == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sr := &statusRecorder{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(sr, r)
			status := sr.status
			if status == 0 {
				status = http.StatusOK
			}
			route := routePattern(r)
			if route == r.URL.Path && route != "/" {
				route = "unmatched"
			}
			rec.ObserveHTTP(r.Method, route, status, time.Since(start))
		})
	}
}
