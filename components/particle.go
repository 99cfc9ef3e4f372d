package components

import "gonum.org/v1/gonum/spatial/r2"

// Identity holds a particle's unique, creation-time identifier.
// Surfaces key their render handles by this ID.
type Identity struct {
	ID uint64
}

// Position is the particle's top-left corner in container pixels.
type Position struct {
	Vec r2.Vec
}

// Motion holds the per-particle step and its per-axis decomposition.
type Motion struct {
	Step  float64 // pixels per throttled update
	Delta r2.Vec  // Step * (cos a, sin a)
}

// Throttle gates how often a particle's visual state is updated.
// An update applies when Counter reaches Delay, then Counter resets.
type Throttle struct {
	Delay   int
	Counter int
}

// Path holds the data both progress policies need.
type Path struct {
	Start    r2.Vec  // spawn position
	End      r2.Vec  // geometry policy: precomputed stopping point
	Duration float64 // geometry policy: |End - Start|
	JitterX  float64 // bounds policy: container width shrink fraction
	JitterY  float64 // bounds policy: container height shrink fraction
	Progress float64 // last computed progress
}

// Appearance holds the sprite's size, gradient, and current opacity.
// Color is not stored; it is derived from progress on every update.
type Appearance struct {
	Asset    int // index into the asset pool
	Gradient int // index into the gradient pool
	Width    float64
	Height   float64
	Opacity  float64
}
