// metrics.go — HTTP-метрики реестра в Prometheus:
// ar_http_requests_total, ar_http_request_duration_seconds, ar_http_requests_in_flight.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ar_http_requests_total",
			Help: "Запросы к API реестра по маршруту и статусу",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ar_http_request_duration_seconds",
			Help:    "Время обработки запроса к API реестра",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "route"},
	)

	httpInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ar_http_requests_in_flight",
		Help: "Запросы к API реестра в обработке",
	})
)

// MetricsMiddleware считает запросы и время ответа.
// Лейбл route — шаблон chi ("/api/v1/archive-units/{id}"); для
// запросов мимо маршрутов путь нормализуется normalizePath.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			httpInFlight.Inc()
			defer httpInFlight.Dec()

			start := time.Now()
			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			route := routeLabel(r)
			httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return strings.ReplaceAll(pattern, "/*/", "/")
		}
	}
	return normalizePath(r.URL.Path)
}

// normalizePath заменяет коды классификации на {code} (в том числе
// числовые, вроде 000), прочие числовые идентификаторы на {id}.
// /api/v1/archive-units/42/status → /api/v1/archive-units/{id}/status
func normalizePath(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		switch {
		case seg == "":
		case i > 0 && segments[i-1] == "classification-codes" && seg != "tree":
			segments[i] = "{code}"
		case isNumeric(seg):
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}
