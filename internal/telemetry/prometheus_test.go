package telemetry

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusExporter_Observe(t *testing.T) {
	exp := NewPrometheusExporter("svc", "node", "replica-1")
	started := time.Unix(1_700_000_000, 0)

	exp.Observe(Attempt{Outcome: "succeeded", Latency: 200 * time.Millisecond, StartedAt: started, NextDelay: 30 * time.Second, CPU: 0.5, RAM: 0.25})
	exp.Observe(Attempt{Outcome: "rejected", Failed: true, Latency: time.Second, StartedAt: started.Add(time.Minute), NextDelay: 15 * time.Second, CPU: 0.7, RAM: 0.3})

	t.Run("counts attempts per outcome", func(t *testing.T) {
		assert.Equal(t, 1.0, testutil.ToFloat64(exp.attempts.WithLabelValues("succeeded")))
		assert.Equal(t, 1.0, testutil.ToFloat64(exp.attempts.WithLabelValues("rejected")))
	})

	t.Run("last success ignores failures", func(t *testing.T) {
		assert.Equal(t, float64(started.Unix()), testutil.ToFloat64(exp.lastSuccess))
	})

	t.Run("gauges hold the latest attempt", func(t *testing.T) {
		assert.Equal(t, 15.0, testutil.ToFloat64(exp.nextDelay))
		assert.Equal(t, 0.7, testutil.ToFloat64(exp.load.WithLabelValues("cpu")))
		assert.Equal(t, 0.3, testutil.ToFloat64(exp.load.WithLabelValues("ram")))
	})

	t.Run("latency histogram collected", func(t *testing.T) {
		assert.Equal(t, 1, testutil.CollectAndCount(exp.latency))
	})
}

func TestPrometheusExporter_Handler(t *testing.T) {
	exp := NewPrometheusExporter("svc", "node", "replica-1")
	exp.Observe(Attempt{Outcome: "succeeded", StartedAt: time.Now()})

	server := httptest.NewServer(exp.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `statusreporter_attempts_total{node_id="node",outcome="succeeded",replica_id="replica-1",service_id="svc"} 1`)
	assert.Contains(t, string(body), "statusreporter_attempt_duration_seconds_bucket")
}
