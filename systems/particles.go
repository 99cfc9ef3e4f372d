package systems

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/fallingobjects/components"
)

// Size is a container or object size in pixels.
type Size struct {
	W, H float64
}

// ProgressPolicy selects how a particle's progress is measured.
type ProgressPolicy uint8

const (
	// PolicyBounds measures the far edge of the object against the
	// (jittered) container size.
	PolicyBounds ProgressPolicy = iota
	// PolicyGeometry measures distance traveled against a stopping point
	// precomputed at spawn.
	PolicyGeometry
)

// ParseProgressPolicy maps a config string to a policy. Unknown values map to bounds.
func ParseProgressPolicy(s string) ProgressPolicy {
	if s == "geometry" {
		return PolicyGeometry
	}
	return PolicyBounds
}

// BoundsJitter is the largest fraction the container size is shrunk by in
// bounds progress, so particles do not all stop on one line.
const BoundsJitter = 0.14

// Direction returns the unit movement vector for an angle in radians.
func Direction(angleRad float64) r2.Vec {
	return r2.Vec{X: math.Cos(angleRad), Y: math.Sin(angleRad)}
}

// NewMotion decomposes a step along the movement angle.
func NewMotion(step, angleRad float64) components.Motion {
	return components.Motion{
		Step:  step,
		Delta: r2.Scale(step, Direction(angleRad)),
	}
}

// SampleStep draws a step magnitude uniformly from [lo, hi].
func SampleStep(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// SampleDelay draws an integer throttle delay as floor(lo + r*(hi-lo)), at least 1.
func SampleDelay(rng *rand.Rand, lo, hi int) int {
	d := int(math.Floor(float64(lo) + rng.Float64()*float64(hi-lo)))
	if d < 1 {
		d = 1
	}
	return d
}

// GeometryParams holds the stopping behavior of the geometry policy.
type GeometryParams struct {
	EndPosition float64 // mean fraction of the edge ray to travel
	Delta       float64 // width of the fraction band around EndPosition
	OutViewport float64 // chance to travel the full ray and leave the container
}

// PlanPath prepares a particle's path data at spawn.
// Both jitter fractions are always sampled; End and Duration are only
// filled for the geometry policy.
func PlanPath(rng *rand.Rand, policy ProgressPolicy, start r2.Vec, angleRad float64, container Size, geo GeometryParams) components.Path {
	p := components.Path{
		Start:   start,
		JitterX: rng.Float64() * BoundsJitter,
		JitterY: rng.Float64() * BoundsJitter,
	}
	if policy != PolicyGeometry {
		return p
	}

	dist := EdgeDistance(start, angleRad, container)
	frac := 1.0
	if rng.Float64() >= geo.OutViewport {
		frac = geo.EndPosition - geo.Delta/2 + rng.Float64()*geo.Delta
		frac = math.Min(frac, 1)
		frac = math.Max(frac, 0)
	}

	p.End = r2.Add(start, r2.Scale(dist*frac, Direction(angleRad)))
	p.Duration = r2.Norm(r2.Sub(p.End, start))
	return p
}

// EdgeDistance projects a ray from start along angleRad and returns the
// distance to the nearer of the container's bottom and right edges.
// Axes the ray does not move along are ignored.
func EdgeDistance(start r2.Vec, angleRad float64, container Size) float64 {
	dir := Direction(angleRad)
	dist := math.Inf(1)
	if dir.Y > 1e-9 {
		dist = math.Min(dist, (container.H-start.Y)/dir.Y)
	}
	if dir.X > 1e-9 {
		dist = math.Min(dist, (container.W-start.X)/dir.X)
	}
	if math.IsInf(dist, 1) || dist < 0 {
		return 0
	}
	return dist
}

// BoundsProgress is the larger of the vertical and horizontal fractions the
// object's far edge has covered, measured against the jittered container.
func BoundsProgress(pos r2.Vec, obj Size, container Size, path *components.Path) float64 {
	h := container.H - container.H*path.JitterY
	w := container.W - container.W*path.JitterX
	if h <= 0 || w <= 0 {
		return 1
	}
	return math.Max((pos.Y+obj.H)/h, (pos.X+obj.W)/w)
}

// GeometryProgress is distance traveled over the planned duration.
func GeometryProgress(pos r2.Vec, path *components.Path) float64 {
	if path.Duration <= 0 {
		return 1
	}
	return r2.Norm(r2.Sub(pos, path.Start)) / path.Duration
}

// Opacity eases from initial toward end as progress approaches 1:
// (initial - end) * (1 - p²) + end.
func Opacity(initial, end, progress float64) float64 {
	return (initial-end)*(1-progress*progress) + end
}

// Throttled advances the counter and reports whether this tick applies a
// visual update. The counter resets when it fires.
func Throttled(t *components.Throttle) bool {
	if t.Counter >= t.Delay {
		t.Counter = 1
		return true
	}
	t.Counter++
	return false
}

// Advance moves the particle one step along its motion delta.
func Advance(pos *components.Position, m *components.Motion) {
	pos.Vec = r2.Add(pos.Vec, m.Delta)
}

// Outside reports whether the particle's origin has left the container.
func Outside(pos r2.Vec, container Size) bool {
	return pos.X > container.W || pos.Y > container.H
}

// Step is the outcome of one particle update.
type Step struct {
	Updated  bool    // a throttled visual update was applied
	Removed  bool    // the particle reached its terminal state
	Progress float64 // progress used for this update
}

// UpdateParams carries the shared parameters of a particle update.
type UpdateParams struct {
	Policy         ProgressPolicy
	Container      Size
	InitialOpacity float64
	EndOpacity     float64
}

// UpdateParticle runs one tick of a particle's lifecycle:
// throttle, progress, terminal check, opacity, advance, bounds check.
// Color is left to the caller since it depends on the gradient pool.
func UpdateParticle(p UpdateParams, pos *components.Position, m *components.Motion, t *components.Throttle, path *components.Path, app *components.Appearance) Step {
	var s Step
	if Throttled(t) {
		switch p.Policy {
		case PolicyGeometry:
			s.Progress = GeometryProgress(pos.Vec, path)
		default:
			s.Progress = BoundsProgress(pos.Vec, Size{W: app.Width, H: app.Height}, p.Container, path)
		}
		// Progress never moves backwards, even if the container grew
		s.Progress = math.Max(s.Progress, path.Progress)
		path.Progress = s.Progress

		if s.Progress >= 1 {
			s.Removed = true
			return s
		}

		app.Opacity = Opacity(p.InitialOpacity, p.EndOpacity, s.Progress)
		Advance(pos, m)
		s.Updated = true
	}

	if p.Policy == PolicyBounds && Outside(pos.Vec, p.Container) {
		s.Removed = true
	}
	if s.Progress == 0 {
		s.Progress = path.Progress
	}
	return s
}
