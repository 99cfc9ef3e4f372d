package systems

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/fallingobjects/components"
)

func TestAdvanceFortyFiveDegrees(t *testing.T) {
	pos := components.Position{Vec: r2.Vec{X: -24, Y: 50}}
	m := NewMotion(10, math.Pi/4)
	Advance(&pos, &m)

	wantX := -24 + 10*math.Cos(math.Pi/4)
	wantY := 50 + 10*math.Sin(math.Pi/4)
	if math.Abs(pos.Vec.X-wantX) > 1e-9 || math.Abs(pos.Vec.Y-wantY) > 1e-9 {
		t.Errorf("pos = %v, want (%v, %v)", pos.Vec, wantX, wantY)
	}
	if math.Round(pos.Vec.X) != -17 || math.Round(pos.Vec.Y) != 57 {
		t.Errorf("pos rounds to (%v, %v), want (-17, 57)", math.Round(pos.Vec.X), math.Round(pos.Vec.Y))
	}
}

func TestThrottledEveryDelayTicks(t *testing.T) {
	th := components.Throttle{Delay: 3}
	var fired []int
	for tick := 1; tick <= 10; tick++ {
		if Throttled(&th) {
			fired = append(fired, tick)
		}
	}
	want := []int{4, 7, 10}
	if len(fired) != len(want) {
		t.Fatalf("fired on %v, want %v", fired, want)
	}
	for i := range want {
		if fired[i] != want[i] {
			t.Fatalf("fired on %v, want %v", fired, want)
		}
	}
}

func TestOpacityEasing(t *testing.T) {
	tests := []struct {
		progress float64
		want     float64
	}{
		{0, 0.7},
		{0.5, 0.7 * 0.75},
		{1, 0},
	}
	for _, tt := range tests {
		if got := Opacity(0.7, 0, tt.progress); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Opacity(0.7, 0, %v) = %v, want %v", tt.progress, got, tt.want)
		}
	}

	// Non-zero end opacity is the limit
	if got := Opacity(0.9, 0.2, 1); math.Abs(got-0.2) > 1e-9 {
		t.Errorf("Opacity at progress 1 = %v, want end 0.2", got)
	}
}

func TestEdgeDistance(t *testing.T) {
	container := Size{W: 1000, H: 500}
	tests := []struct {
		name  string
		start r2.Vec
		angle float64
		want  float64
	}{
		{"bottom nearer", r2.Vec{X: 0, Y: 0}, math.Pi / 4, 500 * math.Sqrt2},
		{"right nearer", r2.Vec{X: 900, Y: 0}, math.Pi / 4, 100 * math.Sqrt2},
		{"horizontal", r2.Vec{X: 200, Y: 100}, 0, 800},
		{"already past", r2.Vec{X: 1200, Y: 0}, math.Pi / 4, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EdgeDistance(tt.start, tt.angle, container)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("EdgeDistance = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPlanPathGeometryFraction(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	container := Size{W: 1000, H: 500}
	geo := GeometryParams{EndPosition: 0.6, Delta: 0.2, OutViewport: 0}
	start := r2.Vec{X: -50, Y: 0}
	full := EdgeDistance(start, math.Pi/4, container)

	for i := 0; i < 200; i++ {
		p := PlanPath(rng, PolicyGeometry, start, math.Pi/4, container, geo)
		frac := p.Duration / full
		if frac < 0.5-1e-9 || frac > 0.7+1e-9 {
			t.Fatalf("stop fraction %v outside [0.5, 0.7]", frac)
		}
	}

	// Always out of viewport: full ray
	geo.OutViewport = 1
	p := PlanPath(rng, PolicyGeometry, start, math.Pi/4, container, geo)
	if math.Abs(p.Duration-full) > 1e-9 {
		t.Errorf("out of viewport duration = %v, want %v", p.Duration, full)
	}
}

func TestPlanPathClampsFraction(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	container := Size{W: 400, H: 400}
	geo := GeometryParams{EndPosition: 1, Delta: 0.6}
	start := r2.Vec{X: 0, Y: -10}
	full := EdgeDistance(start, math.Pi/4, container)
	for i := 0; i < 100; i++ {
		p := PlanPath(rng, PolicyGeometry, start, math.Pi/4, container, geo)
		if p.Duration > full+1e-9 {
			t.Fatalf("duration %v exceeds full ray %v", p.Duration, full)
		}
	}
}

func TestUpdateParticleProgressMonotonic(t *testing.T) {
	for _, policy := range []ProgressPolicy{PolicyBounds, PolicyGeometry} {
		rng := rand.New(rand.NewSource(9))
		container := Size{W: 640, H: 480}
		start := r2.Vec{X: -24, Y: 100}
		angle := math.Pi / 4

		pos := components.Position{Vec: start}
		m := NewMotion(12, angle)
		th := components.Throttle{Delay: 2}
		path := PlanPath(rng, policy, start, angle, container, GeometryParams{EndPosition: 0.8, Delta: 0.2})
		app := components.Appearance{Width: 24, Height: 24, Opacity: 0.7}
		params := UpdateParams{Policy: policy, Container: container, InitialOpacity: 0.7, EndOpacity: 0}

		last := -1.0
		lastOpacity := 1.0
		removed := false
		for tick := 0; tick < 1000; tick++ {
			s := UpdateParticle(params, &pos, &m, &th, &path, &app)
			if s.Removed {
				removed = true
				break
			}
			if !s.Updated {
				continue
			}
			if s.Progress < last {
				t.Fatalf("policy %d: progress went from %v to %v", policy, last, s.Progress)
			}
			if app.Opacity > lastOpacity+1e-12 {
				t.Fatalf("policy %d: opacity rose from %v to %v", policy, lastOpacity, app.Opacity)
			}
			last = s.Progress
			lastOpacity = app.Opacity
		}
		if !removed {
			t.Errorf("policy %d: particle never removed", policy)
		}
	}
}

func TestUpdateParticleFirstUpdatePosition(t *testing.T) {
	container := Size{W: 1280, H: 720}
	pos := components.Position{Vec: r2.Vec{X: -24, Y: 50}}
	m := NewMotion(10, math.Pi/4)
	th := components.Throttle{Delay: 1}
	path := components.Path{Start: pos.Vec}
	app := components.Appearance{Width: 24, Height: 24}
	params := UpdateParams{Policy: PolicyBounds, Container: container, InitialOpacity: 0.7}

	// Delay 1: first call primes the counter, second applies the update
	if s := UpdateParticle(params, &pos, &m, &th, &path, &app); s.Updated {
		t.Fatal("first tick should be throttled")
	}
	s := UpdateParticle(params, &pos, &m, &th, &path, &app)
	if !s.Updated || s.Removed {
		t.Fatalf("second tick = %+v, want an update", s)
	}
	if math.Round(pos.Vec.X) != -17 || math.Round(pos.Vec.Y) != 57 {
		t.Errorf("pos = %v, want ~(-17, 57)", pos.Vec)
	}
}

func TestUpdateParticleRemovedOutsideBounds(t *testing.T) {
	container := Size{W: 100, H: 100}
	pos := components.Position{Vec: r2.Vec{X: 101, Y: 10}}
	m := NewMotion(1, 0)
	th := components.Throttle{Delay: 50}
	path := components.Path{}
	app := components.Appearance{Width: 1, Height: 1}

	s := UpdateParticle(UpdateParams{Policy: PolicyBounds, Container: container}, &pos, &m, &th, &path, &app)
	if !s.Removed {
		t.Error("particle past the right edge should be removed without waiting for the throttle")
	}
}
