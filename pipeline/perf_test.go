package pipeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPerfTrackerMean(t *testing.T) {
	tracker := NewPerfTracker(200)
	tracker.Record(0.010)
	tracker.Record(0.030)

	assert.Equal(t, 2, tracker.Len())
	assert.InDelta(t, 20.0, tracker.MeanMillis(), 1e-9)
	assert.InDelta(t, 50.0, tracker.FPS(), 1e-9)
}

func TestPerfTrackerEvictsOldestBeyondCapacity(t *testing.T) {
	tracker := NewPerfTracker(200)

	// 250 samples; only the most recent 200 may count.
	for i := 0; i < 250; i++ {
		tracker.Record(float64(i) / 1000.0)
	}

	assert.Equal(t, 200, tracker.Len())

	sum := 0.0
	for i := 50; i < 250; i++ {
		sum += float64(i) / 1000.0
	}
	want := sum / 200.0 * 1000.0
	assert.InDelta(t, want, tracker.MeanMillis(), 1e-9)
}

func TestPerfTrackerEmptyWindow(t *testing.T) {
	tracker := NewPerfTracker(200)

	assert.True(t, math.IsInf(tracker.MeanMillis(), 1))
	// 1000 / +Inf: defined, no division fault.
	assert.Equal(t, 0.0, tracker.FPS())
}

func TestPerfTrackerDefaultCapacity(t *testing.T) {
	tracker := NewPerfTracker(0)
	for i := 0; i < 300; i++ {
		tracker.Record(0.001)
	}
	assert.Equal(t, 200, tracker.Len())
}
