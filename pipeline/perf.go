package pipeline

import "math"

// PerfTracker maintains a bounded FIFO window of per-frame inference
// latencies so the reported throughput reflects recent behavior, not
// full-run history. Not safe for concurrent use; the loop is the only
// writer.
type PerfTracker struct {
	capacity int
	samples  []float64 // seconds
}

const defaultPerfCapacity = 200

func NewPerfTracker(capacity int) *PerfTracker {
	if capacity <= 0 {
		capacity = defaultPerfCapacity
	}
	return &PerfTracker{
		capacity: capacity,
		samples:  make([]float64, 0, capacity),
	}
}

// Record appends a sample, evicting the oldest when the window is full.
func (t *PerfTracker) Record(elapsedSeconds float64) {
	if len(t.samples) == t.capacity {
		copy(t.samples, t.samples[1:])
		t.samples = t.samples[:t.capacity-1]
	}
	t.samples = append(t.samples, elapsedSeconds)
}

// MeanMillis returns the arithmetic mean of the window in milliseconds,
// or +Inf when the window is empty.
func (t *PerfTracker) MeanMillis() float64 {
	if len(t.samples) == 0 {
		return math.Inf(1)
	}
	sum := 0.0
	for _, s := range t.samples {
		sum += s
	}
	return sum / float64(len(t.samples)) * 1000
}

// FPS derives throughput from the window mean. An empty window yields
// 0, never a division fault.
func (t *PerfTracker) FPS() float64 {
	return 1000 / t.MeanMillis()
}

func (t *PerfTracker) Len() int {
	return len(t.samples)
}
