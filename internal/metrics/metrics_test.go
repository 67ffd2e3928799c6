package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewWith(reg, reg)

	m.ObserveHTTP("GET", "/api/v1/posts/all", 200, 20*time.Millisecond)
	m.ObserveHTTP("GET", "/api/v1/posts/all", 200, 30*time.Millisecond)
	m.Auth("login_failure")
	m.Notification("like")
	m.PublishFailed()
	m.SetStoreUp(true)

	require.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/v1/posts/all", "200")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.AuthEvents.WithLabelValues("login_failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("like")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.PublishFailures))
	require.Equal(t, 1.0, testutil.ToFloat64(m.StoreUp))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "chirper_auth_events_total")
}

func TestMetrics_NilSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	require.NotPanics(t, func() {
		m.ObserveHTTP("GET", "/", 200, time.Millisecond)
		m.InFlight(1)
		m.Auth("signup")
		m.Notification("follow")
		m.PublishFailed()
		m.SetStoreUp(false)
	})
}
