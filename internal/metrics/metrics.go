// Package metrics collects Prometheus metrics for the client core. The
// embedding host decides whether and where to expose them.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector is shared by the REST layer and the stores. A nil *Collector is
// safe to call, so components can be built without metrics in tests.
type Collector struct {
	serviceRequests  *prometheus.CounterVec
	serviceFailures  *prometheus.CounterVec
	mutationRefusals prometheus.Counter
	notifications    *prometheus.CounterVec
	sessionEvents    prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		serviceRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codeshare_service_requests_total",
			Help: "Calls issued to the remote identity & data service, by operation.",
		}, []string{"operation"}),
		serviceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codeshare_service_failures_total",
			Help: "Failed service calls, by operation and HTTP status.",
		}, []string{"operation", "status"}),
		mutationRefusals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codeshare_guarded_mutation_refusals_total",
			Help: "Mutations refused locally before any network call (root profile guard).",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codeshare_notifications_total",
			Help: "Notifications published to the bus, by kind.",
		}, []string{"kind"}),
		sessionEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codeshare_session_events_total",
			Help: "Session-change events applied by the session store.",
		}),
	}

	reg.MustRegister(
		c.serviceRequests,
		c.serviceFailures,
		c.mutationRefusals,
		c.notifications,
		c.sessionEvents,
	)

	return c
}

// RecordServiceRequest counts a call issued to the remote service.
func (c *Collector) RecordServiceRequest(operation string) {
	if c == nil {
		return
	}
	c.serviceRequests.WithLabelValues(operation).Inc()
}

// RecordServiceFailure counts a failed service call.
func (c *Collector) RecordServiceFailure(operation string, statusCode int) {
	if c == nil {
		return
	}
	c.serviceFailures.WithLabelValues(operation, strconv.Itoa(statusCode)).Inc()
}

// RecordMutationRefusal counts a mutation rejected by the root-profile guard.
func (c *Collector) RecordMutationRefusal() {
	if c == nil {
		return
	}
	c.mutationRefusals.Inc()
}

// RecordNotification counts a published notification.
func (c *Collector) RecordNotification(kind string) {
	if c == nil {
		return
	}
	c.notifications.WithLabelValues(kind).Inc()
}

// RecordSessionEvent counts a session-change event applied by the store.
func (c *Collector) RecordSessionEvent() {
	if c == nil {
		return
	}
	c.sessionEvents.Inc()
}

// Handler returns an HTTP handler the host can mount to expose the metrics.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
