package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollector(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()

	collector := NewCollector()

	assert.NotNil(t, collector, "NewCollector should return a non-nil collector")
	assert.NotNil(t, collector.jobsCreated, "jobsCreated counter should be initialized")
	assert.NotNil(t, collector.jobsSubmitted, "jobsSubmitted counter should be initialized")
	assert.NotNil(t, collector.jobsCompleted, "jobsCompleted counter should be initialized")
	assert.NotNil(t, collector.jobsCanceled, "jobsCanceled counter should be initialized")
	assert.NotNil(t, collector.jobWaitSeconds, "jobWaitSeconds histogram should be initialized")
	assert.NotNil(t, collector.jobRunSeconds, "jobRunSeconds histogram should be initialized")
	assert.NotNil(t, collector.queueDepth, "queueDepth gauge vec should be initialized")
	assert.NotNil(t, collector.bufferPoolInUse, "bufferPoolInUse gauge should be initialized")
	assert.NotNil(t, collector.contextPoolInUse, "contextPoolInUse gauge should be initialized")
}

func TestRecordCreated(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	assert.NotPanics(t, func() {
		collector.RecordCreated()
	}, "RecordCreated should not panic")

	for i := 0; i < 5; i++ {
		collector.RecordCreated()
	}
}

func TestRecordSubmitted(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	assert.NotPanics(t, func() {
		collector.RecordSubmitted()
	}, "RecordSubmitted should not panic")

	for i := 0; i < 10; i++ {
		collector.RecordSubmitted()
	}
}

func TestRecordCompleted(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	runTimes := []float64{0.001, 0.01, 0.1, 1.0, 5.0}

	for _, rt := range runTimes {
		assert.NotPanics(t, func() {
			collector.RecordCompleted(rt)
		}, "RecordCompleted should not panic with run time %f", rt)
	}
}

func TestRecordCanceled(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	assert.NotPanics(t, func() {
		collector.RecordCanceled()
	}, "RecordCanceled should not panic")

	for i := 0; i < 3; i++ {
		collector.RecordCanceled()
	}
}

func TestRecordWait(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	waitTimes := []float64{0.001, 0.5, 1.5, 3.0}

	for _, wt := range waitTimes {
		assert.NotPanics(t, func() {
			collector.RecordWait(wt)
		}, "RecordWait should not panic with wait time %f", wt)
	}
}

func TestSetQueueDepth(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	testCases := []struct {
		name    string
		queueID uint32
		depth   int
	}{
		{"zero depth", 0, 0},
		{"normal depth", 1, 5},
		{"high depth", 2, 100},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				collector.SetQueueDepth(tc.queueID, tc.depth)
			}, "SetQueueDepth should not panic")
		})
	}
}

func TestSetPoolStats(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	assert.NotPanics(t, func() {
		collector.SetPoolStats(10, 5)
		collector.SetPoolStats(0, 0)
	}, "SetPoolStats should not panic")
}

func TestConcurrentMetricUpdates(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	done := make(chan bool, 100)

	for i := 0; i < 100; i++ {
		go func() {
			collector.RecordCreated()
			collector.RecordSubmitted()
			collector.RecordCompleted(0.1)
			collector.SetQueueDepth(0, 5)
			done <- true
		}()
	}

	for i := 0; i < 100; i++ {
		<-done
	}
}

func TestCollectorIsolation(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()

	collector1 := NewCollector()
	require.NotNil(t, collector1)

	// A second collector registered against the same registry panics on
	// duplicate registration; one collector per process is expected.
	assert.Panics(t, func() {
		NewCollector()
	}, "creating a second collector against the same registry should panic")
}

func TestMetricOperationSequence(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	assert.NotPanics(t, func() {
		collector.RecordCreated()
		collector.RecordSubmitted()
		collector.SetQueueDepth(0, 1)

		collector.RecordWait(0.05)
		collector.SetQueueDepth(0, 0)

		collector.RecordCompleted(0.5)
	}, "a full create/submit/run/complete sequence should not panic")
}

func TestZeroAndNegativeValues(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	assert.NotPanics(t, func() {
		collector.RecordCompleted(0.0)
		collector.RecordWait(0.0)
		collector.SetQueueDepth(0, 0)
		collector.SetPoolStats(-1, -1) // shouldn't happen, must not panic
	}, "edge case values should not panic")
}
