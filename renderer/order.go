package renderer

import "github.com/pthm-cable/fallingobjects/effect"

// drawOrder keeps particles in attach order for painting. Detach only marks
// the order stale; dropped ids are compacted out in one pass on the next read.
type drawOrder struct {
	ids   []effect.ParticleID
	stale int
}

func (o *drawOrder) add(id effect.ParticleID) {
	o.ids = append(o.ids, id)
}

// drop records that one id left the surface's live set.
func (o *drawOrder) drop() {
	o.stale++
}

// live returns the ids for which attached reports true, in attach order.
func (o *drawOrder) live(attached func(effect.ParticleID) bool) []effect.ParticleID {
	if o.stale == 0 {
		return o.ids
	}
	kept := o.ids[:0]
	for _, id := range o.ids {
		if attached(id) {
			kept = append(kept, id)
		}
	}
	o.ids = kept
	o.stale = 0
	return o.ids
}
