package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// unmatchedRoute метка для запросов, не попавших ни в один маршрут
const unmatchedRoute = "unmatched"

// Metrics собирает счетчики и длительность HTTP запросов каталога
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	panics   prometheus.Counter
}

// NewMetrics создает метрики и регистрирует их в reg
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "shopkeeper",
				Subsystem: "catalog",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests served by the catalog server.",
			},
			[]string{"method", "route", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "shopkeeper",
				Subsystem: "catalog",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		panics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shopkeeper",
			Subsystem: "catalog",
			Name:      "panics_total",
			Help:      "Handler panics recovered by the catalog server.",
		}),
	}

	for _, c := range []prometheus.Collector{m.requests, m.duration, m.panics} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// RecordPanic is passed to RecoveryMiddleware
func (m *Metrics) RecordPanic() {
	m.panics.Inc()
}

// Middleware считает запросы по шаблону маршрута ServeMux, а не по сырому пути
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := wrap(w)

		next.ServeHTTP(wrapped, r)

		// ServeMux проставляет Pattern в тот же *http.Request, поэтому
		// middleware между этим и mux не должны копировать запрос
		route := r.Pattern
		if route == "" {
			route = unmatchedRoute
		}

		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
