package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	applogger "SignalEngine/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"route", "method", "status"},
	)

	inFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "Current number of in-flight HTTP requests",
		},
		[]string{"route", "method"},
	)

	responseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: []float64{200, 500, 1_000, 5_000, 10_000, 50_000, 100_000, 1_000_000},
		},
		[]string{"route", "method", "status"},
	)

	registerOnce sync.Once
)

// Metrics records request count, latency, response size, and in-flight gauge
// per route. Requests slower than slowThreshold are logged as warnings and
// 5xx responses as errors.
func Metrics(l *applogger.Logger, slowThreshold time.Duration) func(http.Handler) http.Handler {
	registerOnce.Do(func() {
		prometheus.MustRegister(requestsTotal, requestDuration, inFlight, responseSize)
	})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := r.URL.Path
			method := r.Method

			inFlight.WithLabelValues(route, method).Inc()
			start := time.Now()

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			elapsed := time.Since(start)
			status := strconv.Itoa(rec.status)

			requestsTotal.WithLabelValues(route, method, status).Inc()
			requestDuration.WithLabelValues(route, method, status).Observe(elapsed.Seconds())
			responseSize.WithLabelValues(route, method, status).Observe(float64(rec.written))
			inFlight.WithLabelValues(route, method).Dec()

			if l == nil {
				return
			}
			switch {
			case rec.status >= 500:
				l.Error("http request failed",
					applogger.String("route", route),
					applogger.String("method", method),
					applogger.String("status", status),
					applogger.Duration("duration", elapsed),
					applogger.Int("bytes", rec.written),
				)
			case slowThreshold > 0 && elapsed >= slowThreshold:
				l.Warn("http request slow",
					applogger.String("route", route),
					applogger.String("method", method),
					applogger.String("status", status),
					applogger.Duration("duration", elapsed),
					applogger.Int("bytes", rec.written),
				)
			}
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.written += n
	return n, err
}
