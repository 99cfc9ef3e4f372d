package systems

import (
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"
)

// SpawnAction is the outcome of a single spawn trial.
type SpawnAction uint8

const (
	SpawnNone SpawnAction = iota
	Spawn
)

// SpawnPolicy selects how the low and high population trials combine.
type SpawnPolicy uint8

const (
	// SpawnExclusive runs only the trial for the current population band.
	SpawnExclusive SpawnPolicy = iota
	// SpawnIndependent runs both trials each tick, allowing two spawns.
	SpawnIndependent
)

// ParseSpawnPolicy maps a config string to a policy. Unknown values map to exclusive.
func ParseSpawnPolicy(s string) SpawnPolicy {
	if s == "independent" {
		return SpawnIndependent
	}
	return SpawnExclusive
}

// Default spawn chances per tick.
const (
	DefaultLowChance  = 0.20
	DefaultHighChance = 0.05
)

// SpawnController makes the stochastic per-tick spawn decision.
type SpawnController struct {
	LowChance  float64 // while current < min
	HighChance float64 // while min <= current < max
	Policy     SpawnPolicy
	rng        *rand.Rand
}

// NewSpawnController creates a controller drawing from rng.
func NewSpawnController(rng *rand.Rand, low, high float64, policy SpawnPolicy) *SpawnController {
	return &SpawnController{
		LowChance:  low,
		HighChance: high,
		Policy:     policy,
		rng:        rng,
	}
}

// Decide runs one trial for the band current falls in.
func (c *SpawnController) Decide(current, minCount, maxCount int) SpawnAction {
	switch {
	case current < minCount:
		return c.trial(c.LowChance)
	case current < maxCount:
		return c.trial(c.HighChance)
	default:
		return SpawnNone
	}
}

// DecideAll returns how many particles to spawn this tick (0, 1 or 2).
// Under SpawnIndependent the high band trial still runs after a low band
// trial, seeing the count including any spawn the first trial produced.
func (c *SpawnController) DecideAll(current, minCount, maxCount int) int {
	if c.Policy == SpawnExclusive {
		if c.Decide(current, minCount, maxCount) == Spawn {
			return 1
		}
		return 0
	}

	n := 0
	if current < minCount && c.trial(c.LowChance) == Spawn {
		n++
	}
	if current+n < maxCount && c.trial(c.HighChance) == Spawn {
		n++
	}
	return n
}

func (c *SpawnController) trial(chance float64) SpawnAction {
	if c.rng.Float64() < chance {
		return Spawn
	}
	return SpawnNone
}

// SpawnPosition picks a start point on the container's left or top edge.
// The offset is uniform over the combined edge length (height + width): the
// first height pixels map down the left edge, the rest along the top edge.
// The object is shifted out by its own size so it starts fully hidden.
func SpawnPosition(rng *rand.Rand, container Size, objW, objH float64) r2.Vec {
	offset := rng.Float64() * (container.H + container.W)
	if offset < container.H {
		return r2.Vec{X: -objW, Y: offset}
	}
	return r2.Vec{X: offset - container.H, Y: -objH}
}
