package systems

import (
	"math/rand"
	"testing"
)

func TestDecideBands(t *testing.T) {
	// Certain chances make the outcome deterministic
	always := NewSpawnController(rand.New(rand.NewSource(1)), 1, 1, SpawnExclusive)
	never := NewSpawnController(rand.New(rand.NewSource(1)), 0, 0, SpawnExclusive)

	tests := []struct {
		name    string
		c       *SpawnController
		current int
		want    SpawnAction
	}{
		{"below min spawns", always, 0, Spawn},
		{"between spawns", always, 2, Spawn},
		{"at max never", always, 3, SpawnNone},
		{"above max never", always, 7, SpawnNone},
		{"zero chance", never, 0, SpawnNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.Decide(tt.current, 1, 3); got != tt.want {
				t.Errorf("Decide(%d, 1, 3) = %v, want %v", tt.current, got, tt.want)
			}
		})
	}
}

func TestDecideUsesBandChance(t *testing.T) {
	// Low band certain, high band impossible: the band picks the chance
	c := NewSpawnController(rand.New(rand.NewSource(1)), 1, 0, SpawnExclusive)
	if c.Decide(0, 2, 5) != Spawn {
		t.Error("below min should use low chance")
	}
	if c.Decide(3, 2, 5) != SpawnNone {
		t.Error("between min and max should use high chance")
	}
}

func TestDecideAllExclusiveAtMostOne(t *testing.T) {
	c := NewSpawnController(rand.New(rand.NewSource(7)), 1, 1, SpawnExclusive)
	for current := 0; current < 5; current++ {
		n := c.DecideAll(current, 2, 4)
		if n > 1 {
			t.Fatalf("exclusive policy spawned %d at count %d", n, current)
		}
	}
}

func TestDecideAllIndependent(t *testing.T) {
	c := NewSpawnController(rand.New(rand.NewSource(7)), 1, 1, SpawnIndependent)

	if n := c.DecideAll(0, 2, 4); n != 2 {
		t.Errorf("below min with certain chances = %d, want 2", n)
	}
	// One slot left: second trial must not overshoot max
	if n := c.DecideAll(0, 2, 1); n != 1 {
		t.Errorf("one slot below max = %d, want 1", n)
	}
	if n := c.DecideAll(4, 2, 4); n != 0 {
		t.Errorf("at max = %d, want 0", n)
	}
}

func TestSpawnRateMatchesChance(t *testing.T) {
	c := NewSpawnController(rand.New(rand.NewSource(42)), DefaultLowChance, DefaultHighChance, SpawnExclusive)

	const trials = 20000
	low, high := 0, 0
	for i := 0; i < trials; i++ {
		if c.Decide(0, 1, 3) == Spawn {
			low++
		}
		if c.Decide(2, 1, 3) == Spawn {
			high++
		}
	}
	lowRate := float64(low) / trials
	highRate := float64(high) / trials
	if lowRate < 0.18 || lowRate > 0.22 {
		t.Errorf("low band rate = %.3f, want ~0.20", lowRate)
	}
	if highRate < 0.04 || highRate > 0.06 {
		t.Errorf("high band rate = %.3f, want ~0.05", highRate)
	}
}

func TestSpawnPositionOnEdges(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	container := Size{W: 800, H: 600}
	objW, objH := 24.0, 30.0

	left, top := 0, 0
	for i := 0; i < 5000; i++ {
		p := SpawnPosition(rng, container, objW, objH)
		switch {
		case p.X == -objW:
			left++
			if p.Y < 0 || p.Y >= container.H {
				t.Fatalf("left edge spawn y=%v out of [0, %v)", p.Y, container.H)
			}
		case p.Y == -objH:
			top++
			if p.X < 0 || p.X >= container.W {
				t.Fatalf("top edge spawn x=%v out of [0, %v)", p.X, container.W)
			}
		default:
			t.Fatalf("spawn %v is on neither edge", p)
		}
	}

	// Left edge owns 600 of the 1400 perimeter pixels
	ratio := float64(left) / float64(left+top)
	if ratio < 0.39 || ratio > 0.47 {
		t.Errorf("left edge share = %.3f, want ~0.43", ratio)
	}
}
