package telemetry

import (
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"testing/quick"
)

func TestLatencyWindow_Properties(t *testing.T) {
	t.Run("bounded growth", func(t *testing.T) {
		w := &LatencyWindow{}
		for i := 0; i < 500; i++ {
			w.AddSample(float64(i))
			if w.Count > len(w.Samples) || w.Index < 0 || w.Index >= len(w.Samples) {
				t.Fatalf("ring out of bounds at i=%d: Count=%d Index=%d", i, w.Count, w.Index)
			}
		}
		if w.Count != len(w.Samples) {
			t.Errorf("Count = %d after overflow, want %d", w.Count, len(w.Samples))
		}
	})

	t.Run("mean <= p95 <= max for skewed samples", func(t *testing.T) {
		w := &LatencyWindow{}
		for i := 0; i < 90; i++ {
			w.AddSample(5 + float64(i%10))
		}
		for i := 0; i < 10; i++ {
			w.AddSample(50 + float64(i*5))
		}
		mean, p95, max := w.GetStats()
		if mean > p95 || p95 > max {
			t.Errorf("mean=%.2f p95=%.2f max=%.2f out of order", mean, p95, max)
		}
	})

	t.Run("empty window", func(t *testing.T) {
		w := &LatencyWindow{}
		if mean, p95, max := w.GetStats(); mean != 0 || p95 != 0 || max != 0 {
			t.Errorf("empty stats = %v %v %v", mean, p95, max)
		}
	})

	t.Run("single sample", func(t *testing.T) {
		w := &LatencyWindow{}
		w.AddSample(42.5)
		if mean, p95, max := w.GetStats(); mean != 42.5 || p95 != 42.5 || max != 42.5 {
			t.Errorf("single sample stats = %v %v %v", mean, p95, max)
		}
	})

	t.Run("overwrite keeps newest", func(t *testing.T) {
		w := &LatencyWindow{}
		for i := 0; i < 100; i++ {
			w.AddSample(float64(i))
		}
		mean1, _, max1 := w.GetStats()
		for i := 0; i < 50; i++ {
			w.AddSample(1000 + float64(i))
		}
		mean2, _, max2 := w.GetStats()
		if max2 <= max1 || mean2 <= mean1 {
			t.Errorf("after overwrite max %.1f→%.1f mean %.1f→%.1f", max1, max2, mean1, mean2)
		}
	})

	t.Run("quick: max bounds every sample", func(t *testing.T) {
		f := func(raw []uint16) bool {
			w := &LatencyWindow{}
			for _, r := range raw {
				w.AddSample(float64(r) / 10)
			}
			mean, p95, max := w.GetStats()
			if w.Count == 0 {
				return mean == 0 && p95 == 0 && max == 0
			}
			return mean <= max+1e-9 && p95 <= max
		}
		if err := quick.Check(f, &quick.Config{MaxCount: 200}); err != nil {
			t.Errorf("property violated: %v", err)
		}
	})
}

func TestLatencyWindow_P95(t *testing.T) {
	ascending := func(n int) []float64 {
		s := make([]float64, n)
		for i := range s {
			s[i] = float64(i + 1)
		}
		return s
	}
	split := make([]float64, 100)
	for i := range split {
		split[i] = 10
		if i >= 90 {
			split[i] = 100
		}
	}

	tests := []struct {
		name    string
		samples []float64
		want    float64
	}{
		{"20 ascending", ascending(20), 19},
		{"95 ascending", ascending(95), 91},
		{"uniform", []float64{50, 50, 50, 50, 50}, 50},
		{"90 low 10 high", split, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &LatencyWindow{}
			for _, s := range tt.samples {
				w.AddSample(s)
			}
			if _, p95, _ := w.GetStats(); math.Abs(p95-tt.want) > 1e-9 {
				t.Errorf("p95 = %v, want %v", p95, tt.want)
			}
		})
	}
}

func TestLatencyWindow_CopyOnWrite(t *testing.T) {
	var ptr atomic.Pointer[LatencyWindow]
	ptr.Store(&LatencyWindow{})

	var mu sync.Mutex
	add := func(ms float64) {
		mu.Lock()
		defer mu.Unlock()
		next := *ptr.Load()
		next.AddSample(ms)
		ptr.Store(&next)
	}

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < 20; i++ {
				add(rng.Float64() * 30)
				_, _, _ = ptr.Load().GetStats()
			}
		}(int64(g))
	}
	wg.Wait()

	if got := ptr.Load().Count; got != 80 {
		t.Errorf("Count = %d, want 80", got)
	}
}
