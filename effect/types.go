// Package effect runs the falling objects particle lifecycle: spawning,
// per-tick updates, removal, and the pause, visibility and resize state
// machine around them. Rendering and asset loading are collaborators.
package effect

import (
	"context"
	"errors"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/fallingobjects/assets"
	"github.com/pthm-cable/fallingobjects/systems"
)

var (
	// ErrEmptyAssetPool is returned by New when no asset URLs are configured.
	ErrEmptyAssetPool = errors.New("empty asset pool")
	// ErrEmptyGradientPool is logged once when spawning is disabled for lack of gradients.
	ErrEmptyGradientPool = errors.New("empty gradient pool")
	// ErrStopped is returned by Start after Stop.
	ErrStopped = errors.New("effect stopped")
)

// ParticleID identifies a particle for its whole lifetime. IDs are never reused.
type ParticleID uint64

// Visual is everything a surface needs to draw one particle.
type Visual struct {
	Pos      r2.Vec // top-left corner, container pixels
	Width    float64
	Height   float64
	Opacity  float64
	Color    colorful.Color
	Progress float64
}

// Surface draws particles. Attach is called once per particle before any
// Update, and Detach exactly once when it is removed.
type Surface interface {
	Size() systems.Size
	Attach(id ParticleID, sprite *assets.Sprite, v Visual) error
	Update(id ParticleID, v Visual)
	Detach(id ParticleID)
	Resize(size systems.Size)
}

// ViewportHandler receives visibility and resize notifications.
type ViewportHandler interface {
	Intersection(ratio float64)
	Resize(size systems.Size)
}

// Signals is implemented by surfaces that can report viewport changes.
type Signals interface {
	Subscribe(h ViewportHandler) (unsubscribe func())
}

// AssetSource fetches sprite markup by URL.
type AssetSource interface {
	Fetch(ctx context.Context, url string) (*assets.Sprite, error)
}

// ParticleState is a read-only snapshot of one active particle.
type ParticleState struct {
	ID       ParticleID
	Pos      r2.Vec
	Progress float64
	Opacity  float64
}
