package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// Metrics records a request counter and a latency histogram per route,
// method and status, in the default VictoriaMetrics set:
//
//	bookify_http_requests_total{route="/api/books/{id}",method="GET",status="200"}
//	bookify_http_request_duration_seconds{route="/api/books/{id}",method="GET"}
//
// The route label is the chi pattern, never the raw path, so ids in URLs do
// not create new series.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := wrap(w)

		next.ServeHTTP(wrapped, r)

		route := routePattern(r)
		metrics.GetOrCreateCounter(fmt.Sprintf(`bookify_http_requests_total{route=%q,method=%q,status="%s"}`,
			route, r.Method, strconv.Itoa(wrapped.statusCode))).Inc()
		metrics.GetOrCreateHistogram(fmt.Sprintf(`bookify_http_request_duration_seconds{route=%q,method=%q}`,
			route, r.Method)).UpdateDuration(start)
	})
}

// MetricsHandler exposes every registered metric in Prometheus text format,
// plus Go runtime and process metrics.
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	metrics.WritePrometheus(w, true)
}
