package telemetry

import "time"

// RemovalCause records why a particle left the active set.
type RemovalCause uint8

const (
	RemovedProgress RemovalCause = iota // progress reached 1
	RemovedBounds                       // origin left the container
	RemovedCleared                      // active set cleared on resize or stop
)

// Collector accumulates events within stats windows and produces WindowStats.
type Collector struct {
	windowTicks uint64
	frame       time.Duration

	windowStartTick uint64

	// Event counters for current window
	spawned         int
	removedProgress int
	removedBounds   int
	cleared         int
	fetchFailures   int
	droppedLate     int
	resizes         int
	hides           int
}

// NewCollector creates a stats collector.
// windowTicks: frames per stats window
// frame: nominal duration of one frame, for tick-to-time conversion
func NewCollector(windowTicks int, frame time.Duration) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{
		windowTicks: uint64(windowTicks),
		frame:       frame,
	}
}

// RecordSpawn records a particle entering the active set.
func (c *Collector) RecordSpawn() {
	c.spawned++
}

// RecordRemoval records a particle leaving the active set.
func (c *Collector) RecordRemoval(cause RemovalCause) {
	switch cause {
	case RemovedProgress:
		c.removedProgress++
	case RemovedBounds:
		c.removedBounds++
	default:
		c.cleared++
	}
}

// RecordFetchFailure records an abandoned spawn.
func (c *Collector) RecordFetchFailure() {
	c.fetchFailures++
}

// RecordDroppedLate records an async spawn discarded after stop or resize.
func (c *Collector) RecordDroppedLate() {
	c.droppedLate++
}

// RecordResize records a resize event.
func (c *Collector) RecordResize() {
	c.resizes++
}

// RecordHide records the container dropping below the visibility threshold.
func (c *Collector) RecordHide() {
	c.hides++
}

// ShouldFlush reports whether tick closes the current window.
func (c *Collector) ShouldFlush(tick uint64) bool {
	return tick-c.windowStartTick >= c.windowTicks
}

// Flush produces the stats for the window ending at tick and starts a new one.
func (c *Collector) Flush(tick uint64, active, inFlight int, progress, opacity []float64) WindowStats {
	p := Summarize(progress)
	o := Summarize(opacity)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   tick,
		SimTimeSec:      (time.Duration(tick) * c.frame).Seconds(),
		Active:          active,
		InFlight:        inFlight,
		Spawned:         c.spawned,
		RemovedProgress: c.removedProgress,
		RemovedBounds:   c.removedBounds,
		Cleared:         c.cleared,
		FetchFailures:   c.fetchFailures,
		DroppedLate:     c.droppedLate,
		Resizes:         c.resizes,
		Hides:           c.hides,
		ProgressMean:    p.Mean,
		ProgressP10:     p.P10,
		ProgressP50:     p.P50,
		ProgressP90:     p.P90,
		OpacityMean:     o.Mean,
		OpacityStd:      o.Std,
	}

	c.reset(tick)
	return stats
}

func (c *Collector) reset(tick uint64) {
	c.windowStartTick = tick
	c.spawned = 0
	c.removedProgress = 0
	c.removedBounds = 0
	c.cleared = 0
	c.fetchFailures = 0
	c.droppedLate = 0
	c.resizes = 0
	c.hides = 0
}
