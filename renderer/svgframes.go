package renderer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	svg "github.com/ajstarks/svgo"

	"github.com/pthm-cable/fallingobjects/assets"
	"github.com/pthm-cable/fallingobjects/config"
	"github.com/pthm-cable/fallingobjects/effect"
	"github.com/pthm-cable/fallingobjects/systems"
)

// SVGFrames renders the effect as a sequence of standalone SVG documents,
// one every `every` frames. Each particle becomes a nested <svg> carrying
// the sprite's own markup, filled with the particle color.
type SVGFrames struct {
	dir        string
	every      int
	size       systems.Size
	background string
	trails     *Trails
	now        func() time.Time

	sprites map[effect.ParticleID]*assets.Sprite
	visuals map[effect.ParticleID]effect.Visual
	order   drawOrder

	frame   int
	written int
}

// NewSVGFrames creates the output directory. An empty dir keeps frames in
// memory only (Render still works).
func NewSVGFrames(dir string, every int, size systems.Size, cfg *config.Config, now func() time.Time) (*SVGFrames, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating frames directory: %w", err)
		}
	}
	if now == nil {
		now = time.Now
	}
	trails := NewTrails(0, 0)
	if cfg.Trail.Enabled {
		trails = NewTrails(cfg.Trail.Timeout, cfg.Trail.Transition)
	}
	return &SVGFrames{
		dir:        dir,
		every:      max(every, 1),
		size:       size,
		background: systems.Hex(cfg.Derived.BackgroundColor),
		trails:     trails,
		now:        now,
		sprites:    make(map[effect.ParticleID]*assets.Sprite),
		visuals:    make(map[effect.ParticleID]effect.Visual),
	}, nil
}

// Size returns the fixed frame size.
func (f *SVGFrames) Size() systems.Size { return f.size }

// Attach records the particle's sprite.
func (f *SVGFrames) Attach(id effect.ParticleID, sprite *assets.Sprite, v effect.Visual) error {
	f.sprites[id] = sprite
	f.visuals[id] = v
	f.order.add(id)
	return nil
}

// Update leaves a ghost at the previous state and records the new one.
func (f *SVGFrames) Update(id effect.ParticleID, v effect.Visual) {
	prev, ok := f.visuals[id]
	if !ok {
		return
	}
	f.trails.Add(id, prev, f.now())
	f.visuals[id] = v
}

// Detach drops the particle. Its sprite is kept while ghosts reference it.
func (f *SVGFrames) Detach(id effect.ParticleID) {
	if _, ok := f.visuals[id]; !ok {
		return
	}
	delete(f.visuals, id)
	f.order.drop()
}

func (f *SVGFrames) attached(id effect.ParticleID) bool {
	_, ok := f.visuals[id]
	return ok
}

// Resize changes the frame size for subsequent frames.
func (f *SVGFrames) Resize(size systems.Size) {
	f.size = size
	f.trails.Clear()
}

// Written returns the number of frame files written.
func (f *SVGFrames) Written() int { return f.written }

// Frame advances the frame counter and writes a file when due.
func (f *SVGFrames) Frame() error {
	f.frame++
	f.order.live(f.attached)
	if f.frame%f.every != 0 || f.dir == "" {
		return nil
	}

	path := filepath.Join(f.dir, fmt.Sprintf("frame-%06d.svg", f.frame))
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating frame: %w", err)
	}
	f.Render(file)
	if err := file.Close(); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	f.written++
	return nil
}

// Render writes the current frame as an SVG document.
func (f *SVGFrames) Render(w io.Writer) {
	now := f.now()
	f.trails.Prune(now)

	canvas := svg.New(w)
	width, height := int(f.size.W), int(f.size.H)
	canvas.Start(width, height)
	canvas.Rect(0, 0, width, height, "fill:"+f.background)

	ghosted := make(map[effect.ParticleID]struct{})
	f.trails.Each(now, func(g Ghost, opacity float64) {
		ghosted[g.ID] = struct{}{}
		f.sprite(canvas, f.sprites[g.ID], g.Visual, opacity)
	})
	for _, id := range f.order.live(f.attached) {
		v := f.visuals[id]
		f.sprite(canvas, f.sprites[id], v, v.Opacity)
	}
	canvas.End()

	for id := range f.sprites {
		_, l := f.visuals[id]
		_, g := ghosted[id]
		if !l && !g {
			delete(f.sprites, id)
		}
	}
}

func (f *SVGFrames) sprite(canvas *svg.SVG, s *assets.Sprite, v effect.Visual, opacity float64) {
	if s == nil {
		return
	}
	canvas.Group(fmt.Sprintf(`fill="%s" opacity="%.3f"`, systems.Hex(v.Color), opacity))
	fmt.Fprintf(canvas.Writer, `<svg x="%.2f" y="%.2f" width="%.2f" height="%.2f" viewBox="%s">%s</svg>`+"\n",
		v.Pos.X, v.Pos.Y, v.Width, v.Height, s.ViewBox, s.Inner)
	canvas.Gend()
}
