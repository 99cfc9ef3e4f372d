package effect

import (
	"time"

	"github.com/pthm-cable/fallingobjects/systems"
)

// Viewport translates visibility and resize signals into system
// suspend/resume transitions. Resize events are debounced: the system
// resumes settle after the last one.
type Viewport struct {
	sys       *System
	threshold float64
	settle    time.Duration
	timer     Handle
}

func newViewport(sys *System, threshold float64, settle time.Duration) *Viewport {
	return &Viewport{sys: sys, threshold: threshold, settle: settle}
}

// Intersection reports the visible fraction of the container. Below the
// threshold the system is suspended; at or above it resumes unless the
// caller paused or stopped it.
func (v *Viewport) Intersection(ratio float64) {
	if v.sys.stopped {
		return
	}
	v.sys.setHidden(ratio < v.threshold)
}

// Resize reports a new container size. The active set is cleared on the
// first event of a burst, and the settle timer restarts on every event.
func (v *Viewport) Resize(size systems.Size) {
	if v.sys.stopped {
		return
	}
	v.sys.beginResize(size)
	v.sys.loop.Cancel(v.timer)
	v.timer = v.sys.loop.AfterFunc(v.settle, v.settled)
}

// Settling reports whether a resize burst is still being debounced.
func (v *Viewport) Settling() bool {
	return v.timer != 0
}

func (v *Viewport) settled() {
	v.timer = 0
	v.sys.endResize()
}

func (v *Viewport) stop() {
	if v.timer != 0 {
		v.sys.loop.Cancel(v.timer)
		v.timer = 0
	}
}
