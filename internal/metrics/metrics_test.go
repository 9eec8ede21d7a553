package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestMetrics(t *testing.T) {
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncHTTP("/api/v1/state", 200)
		ObserveBackend("listings", "ok", 15*time.Millisecond)
		IncPaymentStep("sign", "failed")
		IncCache(true)
	})

	before := counterValue(t, actionsDispatched.WithLabelValues("[Auth] Logout"))
	IncAction("[Auth] Logout")
	assert.Equal(t, before+1, counterValue(t, actionsDispatched.WithLabelValues("[Auth] Logout")))

	IncHTTP("/x", 503)
	assert.Equal(t, 1.0, counterValue(t, httpRequests.WithLabelValues("/x", "5xx")))
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(204))
	assert.Equal(t, "3xx", statusClass(302))
	assert.Equal(t, "4xx", statusClass(429))
	assert.Equal(t, "5xx", statusClass(500))
}
