package stats

import (
	"math"
	"testing"
	"time"
)

func TestTiming(t *testing.T) {
	var timing Timing
	if timing.Average() != 0 {
		t.Error("empty timing has a non-zero average")
	}

	timing.Add(2 * time.Millisecond)
	timing.Add(4 * time.Millisecond)
	if timing.Count != 2 || timing.Average() != 3*time.Millisecond {
		t.Errorf("count %d average %v", timing.Count, timing.Average())
	}
}

func TestFPSCounter(t *testing.T) {
	start := 10 * time.Second
	counter := NewFPSCounter(start)

	// 60 frames spread over exactly one second.
	var sample Sample
	var reported int
	for i := 1; i <= 60; i++ {
		s, ok := counter.Frame(start + time.Duration(i)*time.Second/60)
		if ok {
			sample = s
			reported++
		}
	}
	if reported != 1 {
		t.Fatalf("reported %d samples, want 1", reported)
	}
	if math.Abs(sample.FPS-60) > 1e-6 {
		t.Errorf("FPS = %v, want 60", sample.FPS)
	}
	if math.Abs(sample.MillisPerFrame-1000.0/60) > 1e-6 {
		t.Errorf("ms/frame = %v, want %v", sample.MillisPerFrame, 1000.0/60)
	}

	// 30 frames over the next two seconds, reported as two samples of 15.
	next := start + time.Second
	for i := 1; i <= 30; i++ {
		counter.Frame(next + time.Duration(i)*2*time.Second/30)
	}

	avg := counter.Averages()
	if math.Abs(avg.FPS-30) > 1e-6 {
		t.Errorf("average FPS = %v, want 30", avg.FPS)
	}
}

func TestFPSCounterEmpty(t *testing.T) {
	if got := NewFPSCounter(0).Averages(); got != (Sample{}) {
		t.Errorf("Averages() = %+v, want zero", got)
	}
}

func TestTitle(t *testing.T) {
	got := Title("Vulkan Comparison", Sample{FPS: 143.26, MillisPerFrame: 6.9803})
	if want := "Vulkan Comparison [FPS: 143.3] [ms/frame: 6.980]"; got != want {
		t.Errorf("Title() = %q, want %q", got, want)
	}
}
