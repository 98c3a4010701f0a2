package obs

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	authFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "byund_auth_failures_total",
			Help: "Rejected credentials by mechanism and reason.",
		},
		[]string{"mechanism", "reason"},
	)

	linksCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "byund_payment_links_created_total",
			Help: "Payment links created.",
		},
		[]string{"environment", "mode"},
	)

	paymentStatus = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "byund_payment_status_total",
			Help: "Payments entering each status.",
		},
		[]string{"environment", "status"},
	)

	ready = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "byund_ready",
		Help: "1 when the service passes its readiness probe.",
	})
)

// Init registers collectors with the default registry. Safe to call twice.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration,
			authFailures, linksCreated, paymentStatus, ready,
		)
	})
}

// Handler serves the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records RPS, latency and in-flight requests.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)

		httpInFlight.Inc()
		defer httpInFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		status := strconv.Itoa(sw.code)
		httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
	})
}

// AuthFailure counts a rejected credential.
func AuthFailure(mechanism, reason string) {
	authFailures.WithLabelValues(mechanism, reason).Inc()
}

// LinkCreated counts a new payment link.
func LinkCreated(env, mode string) {
	linksCreated.WithLabelValues(env, mode).Inc()
}

// PaymentStatus counts a payment entering status.
func PaymentStatus(env, status string) {
	paymentStatus.WithLabelValues(env, status).Inc()
}

// SetReady publishes the readiness probe result.
func SetReady(ok bool) {
	if ok {
		ready.Set(1)
		return
	}
	ready.Set(0)
}

// routes lists path templates whose ":id" segments are collapsed for labels.
var routes = [][]string{
	{"v1", "payment-links", ":id"},
	{"v1", "api-keys", ":id", "revoke"},
	{"v1", "api", "payments", ":id"},
	{"v1", "public", "links", ":id"},
	{"v1", "public", "links", ":id", "payments"},
	{"v1", "public", "payments", ":id"},
	{"v1", "public", "payments", ":id", "cancel"},
	{"v1", "public", "payments", ":id", "events"},
}

// CanonicalPath replaces identifiers in known routes so metric cardinality stays bounded.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for _, tmpl := range routes {
		if len(tmpl) != len(parts) {
			continue
		}
		match := true
		for i, seg := range tmpl {
			if seg != ":id" && seg != parts[i] {
				match = false
				break
			}
		}
		if match {
			return "/" + strings.Join(tmpl, "/")
		}
	}
	return path
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// Flush keeps SSE responses streaming through the instrumented writer.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
