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

	assert.NoError(t, m.Track("moderation:digest").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("moderation:digest").End(boom), boom)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("moderation:digest", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("moderation:digest", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("moderation:digest")))
}

func TestSetPending(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.SetPending(12)
	m.SetPending(-1)
	assert.Equal(t, 12.0, testutil.ToFloat64(m.pending))

	var nilMetrics *Metrics
	nilMetrics.SetPending(3)
	assert.NoError(t, nilMetrics.Track("x").End(nil))
}
