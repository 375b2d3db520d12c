package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/codeshare/appcore/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNilCollectorIsSafe(t *testing.T) {
	var c *metrics.Collector

	require.NotPanics(t, func() {
		c.RecordServiceRequest("posts.list_recent")
		c.RecordServiceFailure("posts.list_recent", 500)
		c.RecordMutationRefusal()
		c.RecordNotification("success")
		c.RecordSessionEvent()
	})
}

func TestCollectorExposesCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.RecordServiceRequest("profiles.get")
	c.RecordServiceRequest("profiles.get")
	c.RecordServiceFailure("profiles.get", 404)
	c.RecordMutationRefusal()
	c.RecordNotification("error")
	c.RecordSessionEvent()

	families, err := reg.Gather()
	require.NoError(t, err)

	byName := make(map[string]float64)
	for _, mf := range families {
		var total float64
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
		byName[mf.GetName()] = total
	}

	require.Equal(t, float64(2), byName["codeshare_service_requests_total"])
	require.Equal(t, float64(1), byName["codeshare_service_failures_total"])
	require.Equal(t, float64(1), byName["codeshare_guarded_mutation_refusals_total"])
	require.Equal(t, float64(1), byName["codeshare_notifications_total"])
	require.Equal(t, float64(1), byName["codeshare_session_events_total"])
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)
	c.RecordSessionEvent()

	rec := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "codeshare_session_events_total 1")
}
