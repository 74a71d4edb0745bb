package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Requests that match no route share one label value.
const noRoute = "unmatched"

var (
	requestCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "podfree_http_requests_total",
		Help: "API requests served, by route and status.",
	}, []string{"method", "path", "status"})

	requestSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "podfree_http_request_duration_seconds",
		Help:    "API request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	toolAvailable = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "podfree_tool_available",
		Help: "1 if ffmpeg, ffprobe or the script interpreter was runnable at the last tools check.",
	}, []string{"tool"})
)

func init() {
	prometheus.MustRegister(requestCount, requestSeconds, toolAvailable)
}

// metricsMiddleware labels by chi route pattern, so /v1/jobs/{id} is one
// series however many jobs exist.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		began := time.Now()
		next.ServeHTTP(ww, r)

		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		route := noRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		requestCount.WithLabelValues(r.Method, route, strconv.Itoa(code)).Inc()
		requestSeconds.WithLabelValues(r.Method, route).Observe(time.Since(began).Seconds())
	})
}

func metricsHandler() http.Handler {
	return promhttp.Handler()
}
