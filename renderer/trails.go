package renderer

import (
	"time"

	"github.com/pthm-cable/fallingobjects/effect"
)

// Ghost is a frozen copy of a particle left behind on update.
type Ghost struct {
	ID     effect.ParticleID
	Visual effect.Visual
	Born   time.Time
}

// Trails keeps the ghost copies a particle leaves behind on each visual
// update. A ghost fades to transparent over transition and is dropped
// after timeout.
type Trails struct {
	timeout    time.Duration
	transition time.Duration
	ghosts     []Ghost
}

// NewTrails creates a trail store. A zero timeout disables trails.
func NewTrails(timeout, transition time.Duration) *Trails {
	return &Trails{timeout: timeout, transition: transition}
}

// Add records a ghost of v at now.
func (t *Trails) Add(id effect.ParticleID, v effect.Visual, now time.Time) {
	if t.timeout <= 0 {
		return
	}
	t.ghosts = append(t.ghosts, Ghost{ID: id, Visual: v, Born: now})
}

// Prune drops ghosts older than the timeout.
func (t *Trails) Prune(now time.Time) {
	kept := t.ghosts[:0]
	for _, g := range t.ghosts {
		if now.Sub(g.Born) < t.timeout {
			kept = append(kept, g)
		}
	}
	t.ghosts = kept
}

// Clear drops every ghost.
func (t *Trails) Clear() {
	t.ghosts = t.ghosts[:0]
}

// Len returns the number of live ghosts.
func (t *Trails) Len() int {
	return len(t.ghosts)
}

// Each calls fn for every live ghost, oldest first, with its current opacity.
func (t *Trails) Each(now time.Time, fn func(g Ghost, opacity float64)) {
	for _, g := range t.ghosts {
		if a := t.Alpha(g, now); a > 0 {
			fn(g, a)
		}
	}
}

// Alpha is the ghost's opacity at now: its particle's opacity when it was
// left, fading linearly to zero over the transition.
func (t *Trails) Alpha(g Ghost, now time.Time) float64 {
	age := now.Sub(g.Born)
	if age >= t.timeout {
		return 0
	}
	if t.transition <= 0 {
		return g.Visual.Opacity
	}
	f := 1 - float64(age)/float64(t.transition)
	if f < 0 {
		f = 0
	}
	return g.Visual.Opacity * f
}
