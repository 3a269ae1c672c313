// Package stats accumulates frame timing for the title bar and the end of
// run summary.
package stats

import (
	"fmt"
	"time"
)

// Timing is a running sum of durations.
type Timing struct {
	Sum   time.Duration
	Count int
}

func (t *Timing) Add(d time.Duration) {
	t.Sum += d
	t.Count++
}

// Average is zero until the first sample.
func (t Timing) Average() time.Duration {
	if t.Count == 0 {
		return 0
	}
	return t.Sum / time.Duration(t.Count)
}

// Sample is one reporting interval.
type Sample struct {
	FPS            float64
	MillisPerFrame float64
}

// FPSCounter counts frames and reports once per interval.
type FPSCounter struct {
	Interval time.Duration

	last   time.Duration
	frames int

	fpsSum  float64
	mspfSum float64
	samples int
}

// NewFPSCounter reports once a second, starting at now.
func NewFPSCounter(now time.Duration) *FPSCounter {
	return &FPSCounter{Interval: time.Second, last: now}
}

// Frame records one frame at now. It returns a sample when at least one
// interval has passed since the previous sample.
func (c *FPSCounter) Frame(now time.Duration) (Sample, bool) {
	c.frames++

	delta := now - c.last
	if delta < c.Interval {
		return Sample{}, false
	}

	seconds := delta.Seconds()
	sample := Sample{
		FPS:            float64(c.frames) / seconds,
		MillisPerFrame: seconds * 1000 / float64(c.frames),
	}

	c.fpsSum += sample.FPS
	c.mspfSum += sample.MillisPerFrame
	c.samples++

	c.frames = 0
	c.last = now
	return sample, true
}

// Averages returns the mean of every reported sample.
func (c *FPSCounter) Averages() Sample {
	if c.samples == 0 {
		return Sample{}
	}
	return Sample{
		FPS:            c.fpsSum / float64(c.samples),
		MillisPerFrame: c.mspfSum / float64(c.samples),
	}
}

// Title formats the window title for a sample.
func Title(base string, s Sample) string {
	return fmt.Sprintf("%s [FPS: %.1f] [ms/frame: %.3f]", base, s.FPS, s.MillisPerFrame)
}
