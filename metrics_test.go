package reqsched

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicMetrics(t *testing.T) {
	var m AtomicMetrics
	m.IncSubmitted()
	m.IncSubmitted()
	m.IncPromoted()
	m.IncResolved(OutcomeSuccess)
	m.IncResolved(OutcomeTimeout)
	m.IncResolved(OutcomeTimeout)
	m.SetActive(3)
	m.SetActive(1)
	m.SetPending(7)

	assert.Equal(t, uint64(2), m.Submitted())
	assert.Equal(t, uint64(1), m.Promoted())
	assert.Equal(t, uint64(1), m.Resolved(OutcomeSuccess))
	assert.Equal(t, uint64(2), m.Resolved(OutcomeTimeout))
	assert.Equal(t, uint64(0), m.Resolved(OutcomeAborted))
	assert.Equal(t, int64(1), m.Active())
	assert.Equal(t, int64(3), m.PeakActive())
	assert.Equal(t, int64(7), m.Pending())
}

func gathered(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, fam := range families {
		out[fam.GetName()] = fam
	}
	return out
}

func TestPromMetricsThroughScheduler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewPromMetrics("reqsched", reg)
	require.NoError(t, err)

	s, err := New(context.Background(), fastConfig(), &stubTransport{autoStatus: http.StatusOK}, m)
	require.NoError(t, err)
	defer func() { _ = s.Stop(context.Background()) }()

	for range 3 {
		f, err := s.Get(context.Background(), "http://example.test/m", nil)
		require.NoError(t, err)
		_, err = f.Result()
		require.NoError(t, err)
	}
	waitUntil(t, time.Second, func() bool { return s.ActiveLen() == 0 })

	fams := gathered(t, reg)
	require.Contains(t, fams, "reqsched_requests_submitted_total")
	assert.Equal(t, 3.0, fams["reqsched_requests_submitted_total"].GetMetric()[0].GetCounter().GetValue())

	resolved := fams["reqsched_requests_resolved_total"]
	require.NotNil(t, resolved)
	require.Len(t, resolved.GetMetric(), 1)
	assert.Equal(t, OutcomeSuccess, resolved.GetMetric()[0].GetLabel()[0].GetValue())
	assert.Equal(t, 3.0, resolved.GetMetric()[0].GetCounter().GetValue())

	assert.Contains(t, fams, "reqsched_requests_pending")
	assert.Contains(t, fams, "reqsched_requests_active")
}

func TestPromMetricsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPromMetrics("dup", reg)
	require.NoError(t, err)
	_, err = NewPromMetrics("dup", reg)
	assert.Error(t, err)
}
