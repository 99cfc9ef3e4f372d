package effect

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/fallingobjects/components"
)

// store holds the active particles as ECS entities. order keeps insertion
// order, which the ECS does not guarantee across removals.
type store struct {
	world *ecs.World

	mapper *ecs.Map6[
		components.Identity,
		components.Position,
		components.Motion,
		components.Throttle,
		components.Path,
		components.Appearance,
	]

	idMap       *ecs.Map1[components.Identity]
	posMap      *ecs.Map1[components.Position]
	motionMap   *ecs.Map1[components.Motion]
	throttleMap *ecs.Map1[components.Throttle]
	pathMap     *ecs.Map1[components.Path]
	appMap      *ecs.Map1[components.Appearance]

	order []ecs.Entity
}

func newStore() *store {
	world := ecs.NewWorld()
	return &store{
		world: world,
		mapper: ecs.NewMap6[
			components.Identity,
			components.Position,
			components.Motion,
			components.Throttle,
			components.Path,
			components.Appearance,
		](world),
		idMap:       ecs.NewMap1[components.Identity](world),
		posMap:      ecs.NewMap1[components.Position](world),
		motionMap:   ecs.NewMap1[components.Motion](world),
		throttleMap: ecs.NewMap1[components.Throttle](world),
		pathMap:     ecs.NewMap1[components.Path](world),
		appMap:      ecs.NewMap1[components.Appearance](world),
	}
}

// particle is the full component set of one entity.
type particle struct {
	id       *components.Identity
	pos      *components.Position
	motion   *components.Motion
	throttle *components.Throttle
	path     *components.Path
	app      *components.Appearance
}

func (s *store) add(id components.Identity, pos components.Position, motion components.Motion,
	throttle components.Throttle, path components.Path, app components.Appearance) ecs.Entity {
	e := s.mapper.NewEntity(&id, &pos, &motion, &throttle, &path, &app)
	s.order = append(s.order, e)
	return e
}

func (s *store) get(e ecs.Entity) particle {
	return particle{
		id:       s.idMap.Get(e),
		pos:      s.posMap.Get(e),
		motion:   s.motionMap.Get(e),
		throttle: s.throttleMap.Get(e),
		path:     s.pathMap.Get(e),
		app:      s.appMap.Get(e),
	}
}

func (s *store) len() int {
	return len(s.order)
}

// remove deletes the given entities in one pass, preserving the order of
// the survivors.
func (s *store) remove(dead []ecs.Entity) {
	if len(dead) == 0 {
		return
	}
	gone := make(map[ecs.Entity]struct{}, len(dead))
	for _, e := range dead {
		gone[e] = struct{}{}
		if s.world.Alive(e) {
			s.world.RemoveEntity(e)
		}
	}

	kept := s.order[:0]
	for _, e := range s.order {
		if _, ok := gone[e]; !ok {
			kept = append(kept, e)
		}
	}
	s.order = kept
}

// clear removes every entity, calling fn on each first in insertion order.
func (s *store) clear(fn func(p particle)) {
	for _, e := range s.order {
		if fn != nil {
			fn(s.get(e))
		}
		s.world.RemoveEntity(e)
	}
	s.order = s.order[:0]
}
