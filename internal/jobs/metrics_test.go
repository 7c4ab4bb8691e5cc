package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	assert.NoError(t, m.Track("reports:warmup").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("reports:warmup").End(boom), boom)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("reports:warmup", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("reports:warmup", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("reports:warmup")))
}

func TestWarmedAndFXGauge(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.AddWarmed("monthly-pl", 12)
	m.AddWarmed("monthly-pl", 0)
	m.SetFXRates(4)

	assert.Equal(t, 12.0, testutil.ToFloat64(m.warmed.WithLabelValues("monthly-pl")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.fxRates))
}

func TestNilMetricsTrackerPassesErrorThrough(t *testing.T) {
	var m *Metrics
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("x").End(boom), boom)
}
