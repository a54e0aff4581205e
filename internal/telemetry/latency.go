package telemetry

import (
	"math"
	"sort"
)

// latencySamples is the capacity of a LatencyWindow.
const latencySamples = 100

// LatencyWindow is a fixed ring of latency samples in milliseconds. It is a
// plain value: copy it, add to the copy and publish the copy through an
// atomic.Pointer to share it without locks.
type LatencyWindow struct {
	Samples [latencySamples]float64
	Index   int
	Count   int
}

// AddSample records one latency, overwriting the oldest when full.
func (w *LatencyWindow) AddSample(ms float64) {
	w.Samples[w.Index] = ms
	w.Index = (w.Index + 1) % len(w.Samples)
	if w.Count < len(w.Samples) {
		w.Count++
	}
}

// GetStats returns mean, 95th percentile and max of the recorded samples,
// or zeros when empty.
func (w *LatencyWindow) GetStats() (mean, p95, max float64) {
	if w.Count == 0 {
		return 0, 0, 0
	}

	sorted := make([]float64, w.Count)
	copy(sorted, w.Samples[:w.Count])
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean = sum / float64(w.Count)

	idx := int(math.Ceil(0.95*float64(w.Count))) - 1
	if idx < 0 {
		idx = 0
	}
	return mean, sorted[idx], sorted[w.Count-1]
}
