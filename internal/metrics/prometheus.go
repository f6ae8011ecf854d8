// Package metrics contains middlewares and counters for metrics gathering.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	SweepSucceeded = "succeeded"
	SweepSkipped   = "skipped"
	SweepLocked    = "locked"
	SweepFailed    = "failed"
)

// HTTP Requests total counter
var totalRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP Requests.",
	},
	[]string{"path", "method", "status"},
)

// HTTP Response duration
var duration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name: "http_duration_seconds",
		Help: "HTTP Requests Duration",
	},
	[]string{"path", "method"},
)

var sweepRuns = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "clinic_sweeper_runs_total",
		Help: "Missed appointments sweeps by outcome.",
	},
	[]string{"outcome"},
)

var sweptAppointments = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "clinic_sweeper_appointments_marked_total",
		Help: "Appointments moved to No-show by the sweeper.",
	},
)

var bookingConflicts = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "clinic_booking_conflicts_total",
		Help: "Appointment creations rejected because the time slot was taken.",
	},
)

func init() {
	prometheus.MustRegister(totalRequests, duration, sweepRuns, sweptAppointments, bookingConflicts)
}

// routePattern returns the chi route pattern, so that path parameters don't explode the label set.
func routePattern(r *http.Request) string {
	routeCtx := chi.RouteContext(r.Context())
	if routeCtx == nil || routeCtx.RoutePattern() == "" {
		return "unmatched"
	}
	return routeCtx.RoutePattern()
}

// PrometheusMiddleware instruments the given request and register metrics.
func PrometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		timer := prometheus.NewTimer(prometheus.ObserverFunc(func(seconds float64) {
			duration.WithLabelValues(routePattern(r), r.Method).Observe(seconds)
		}))
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		totalRequests.WithLabelValues(routePattern(r), r.Method, strconv.Itoa(status)).Inc()
		timer.ObserveDuration()
	})
}

// Handler exposes the registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveSweep records the outcome of a sweep and how many appointments it changed.
func ObserveSweep(outcome string, modified int64) {
	sweepRuns.WithLabelValues(outcome).Inc()
	if modified > 0 {
		sweptAppointments.Add(float64(modified))
	}
}

// IncBookingConflict records a booking rejected by the slot conflict guard.
func IncBookingConflict() {
	bookingConflicts.Inc()
}
