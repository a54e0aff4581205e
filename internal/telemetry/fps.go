// Package telemetry measures the presentation rate of the preview.
package telemetry

import (
	"math"
	"sync"
	"time"
)

const (
	// A rate is stable when instantaneous fps stddev stays under 15% of the
	// mean and mean jitter under 20% of the expected interval.
	fpsStabilityThreshold    = 0.15
	jitterStabilityThreshold = 0.20

	minStableFrames = 3

	// DefaultWindow is the number of frame times kept by a FrameClock.
	DefaultWindow = 120
)

// FPSStats summarizes a series of frame timestamps.
type FPSStats struct {
	Frames       int
	Span         time.Duration
	FPSMean      float64
	FPSStdDev    float64
	FPSMin       float64
	FPSMax       float64
	JitterMean   float64
	JitterStdDev float64
	JitterMax    float64
	IsStable     bool
}

// Calculate computes FPSStats over ordered frame times.
func Calculate(times []time.Time) FPSStats {
	n := len(times)
	stats := FPSStats{Frames: n}
	if n < 2 {
		return stats
	}

	stats.Span = times[n-1].Sub(times[0])
	if stats.Span <= 0 {
		return stats
	}
	stats.FPSMean = float64(n-1) / stats.Span.Seconds()

	intervals := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		intervals = append(intervals, times[i].Sub(times[i-1]).Seconds())
	}

	var inst []float64
	for _, iv := range intervals {
		if iv > 0 {
			inst = append(inst, 1/iv)
		}
	}
	if len(inst) > 0 {
		stats.FPSMin, stats.FPSMax = inst[0], inst[0]
		for _, f := range inst {
			stats.FPSMin = math.Min(stats.FPSMin, f)
			stats.FPSMax = math.Max(stats.FPSMax, f)
		}
		stats.FPSStdDev = stddev(inst, stats.FPSMean)
	}

	expected := 1 / stats.FPSMean
	jitters := make([]float64, len(intervals))
	for i, iv := range intervals {
		jitters[i] = math.Abs(iv - expected)
		stats.JitterMax = math.Max(stats.JitterMax, jitters[i])
	}
	stats.JitterMean = mean(jitters)
	stats.JitterStdDev = stddev(jitters, stats.JitterMean)

	stats.IsStable = n >= minStableFrames &&
		stats.FPSStdDev < stats.FPSMean*fpsStabilityThreshold &&
		stats.JitterMean < expected*jitterStabilityThreshold
	return stats
}

func mean(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

func stddev(v []float64, m float64) float64 {
	var sq float64
	for _, x := range v {
		sq += (x - m) * (x - m)
	}
	return math.Sqrt(sq / float64(len(v)))
}

// FrameClock keeps the most recent frame times in a fixed ring.
type FrameClock struct {
	mu    sync.Mutex
	times []time.Time
	next  int
	count int
	last  time.Time
}

// NewFrameClock returns a clock remembering size frames.
func NewFrameClock(size int) *FrameClock {
	if size < 2 {
		size = DefaultWindow
	}
	return &FrameClock{times: make([]time.Time, size)}
}

// Tick records a frame at t.
func (c *FrameClock) Tick(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.times[c.next] = t
	c.next = (c.next + 1) % len(c.times)
	if c.count < len(c.times) {
		c.count++
	}
	c.last = t
}

// Last returns the time of the latest frame.
func (c *FrameClock) Last() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Reset forgets every recorded frame.
func (c *FrameClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next, c.count = 0, 0
	c.last = time.Time{}
}

// Stats summarizes the frames currently in the window.
func (c *FrameClock) Stats() FPSStats {
	c.mu.Lock()
	ordered := make([]time.Time, 0, c.count)
	start := (c.next - c.count + len(c.times)) % len(c.times)
	for i := 0; i < c.count; i++ {
		ordered = append(ordered, c.times[(start+i)%len(c.times)])
	}
	c.mu.Unlock()

	return Calculate(ordered)
}
