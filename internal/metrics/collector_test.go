package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c *Collector, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := c.Gatherer().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metric:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metric
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestRecordOperation(t *testing.T) {
	c := New()
	c.RecordOperation("delete", 5*time.Millisecond, "")
	c.RecordOperation("delete", 5*time.Millisecond, "NOT_FOUND")

	ops := counterValue(t, c, "s3vfs_operations_total", map[string]string{"operation": "delete"})
	assert.Equal(t, 2.0, ops)

	fails := counterValue(t, c, "s3vfs_operation_failures_total",
		map[string]string{"operation": "delete", "code": "NOT_FOUND"})
	assert.Equal(t, 1.0, fails)
}

func TestHistogramObserved(t *testing.T) {
	c := New()
	c.RecordOperation("copy", 10*time.Millisecond, "")

	families, err := c.Gatherer().Gather()
	require.NoError(t, err)
	var hist *dto.Histogram
	for _, mf := range families {
		if mf.GetName() == "s3vfs_operation_duration_seconds" {
			hist = mf.GetMetric()[0].GetHistogram()
		}
	}
	require.NotNil(t, hist)
	assert.Equal(t, uint64(1), hist.GetSampleCount())
}

func TestNopCollectorIsSafe(t *testing.T) {
	c := Nop()
	c.RecordOperation("anything", time.Millisecond, "TRANSPORT_ERROR")

	families, err := c.Gatherer().Gather()
	require.NoError(t, err)
	assert.Empty(t, families)
}

func TestHandlerServesExposition(t *testing.T) {
	c := New()
	c.RecordOperation("exists", time.Millisecond, "")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "s3vfs_operations_total")
}
