package renderer

import (
	"fmt"
	"log/slog"
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/pthm-cable/fallingobjects/assets"
	"github.com/pthm-cable/fallingobjects/config"
	"github.com/pthm-cable/fallingobjects/effect"
	"github.com/pthm-cable/fallingobjects/systems"
)

type canvasParticle struct {
	tex rl.Texture2D
	v   effect.Visual
}

// Canvas draws particles into an offscreen render texture that is only
// partially cleared: every opacity_delay frames a translucent background
// wash fades what was drawn before, leaving trails behind moving sprites.
// Must be created after rl.InitWindow.
type Canvas struct {
	logger *slog.Logger

	opacityStep  float32
	opacityDelay int
	background   rl.Color
	retina       bool

	size   systems.Size
	scale  float32
	target rl.RenderTexture2D

	textures  map[string]rl.Texture2D
	particles map[effect.ParticleID]*canvasParticle
	order     drawOrder
	frame     int

	handler   effect.ViewportHandler
	lastRatio float64
}

// NewCanvas creates a canvas sized to the current window.
func NewCanvas(cfg *config.Config, logger *slog.Logger) *Canvas {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Canvas{
		logger:       logger,
		opacityStep:  float32(cfg.Canvas.OpacityStep),
		opacityDelay: max(cfg.Canvas.OpacityDelay, 1),
		background:   toRL(cfg.Derived.BackgroundColor, 1),
		retina:       cfg.Canvas.IsRetina,
		textures:     make(map[string]rl.Texture2D),
		particles:    make(map[effect.ParticleID]*canvasParticle),
		lastRatio:    -1,
	}
	c.Resize(systems.Size{W: float64(rl.GetScreenWidth()), H: float64(rl.GetScreenHeight())})
	return c
}

// Size returns the container size in logical pixels.
func (c *Canvas) Size() systems.Size { return c.size }

// Attach rasterizes the sprite at the particle's size, once per sprite and size.
func (c *Canvas) Attach(id effect.ParticleID, sprite *assets.Sprite, v effect.Visual) error {
	w := int(math.Ceil(v.Width * float64(c.scale)))
	h := int(math.Ceil(v.Height * float64(c.scale)))
	key := fmt.Sprintf("%s@%dx%d", sprite.URL, w, h)

	tex, ok := c.textures[key]
	if !ok {
		mask, err := Mask(sprite, w, h)
		if err != nil {
			return err
		}
		img := rl.NewImageFromImage(WhiteImage(mask))
		tex = rl.LoadTextureFromImage(img)
		rl.UnloadImage(img)
		c.textures[key] = tex
	}

	c.particles[id] = &canvasParticle{tex: tex, v: v}
	c.order.add(id)
	return nil
}

// Update records the particle's new visual state; it is drawn on Render.
func (c *Canvas) Update(id effect.ParticleID, v effect.Visual) {
	if p, ok := c.particles[id]; ok {
		p.v = v
	}
}

// Detach stops drawing the particle. Its texture stays cached.
func (c *Canvas) Detach(id effect.ParticleID) {
	if _, ok := c.particles[id]; !ok {
		return
	}
	delete(c.particles, id)
	c.order.drop()
}

func (c *Canvas) attached(id effect.ParticleID) bool {
	_, ok := c.particles[id]
	return ok
}

// Resize reallocates the backing texture at the new size.
func (c *Canvas) Resize(size systems.Size) {
	c.scale = 1
	if c.retina {
		c.scale = rl.GetWindowScaleDPI().X
	}
	if c.target.ID != 0 {
		rl.UnloadRenderTexture(c.target)
	}
	c.size = size
	c.target = rl.LoadRenderTexture(int32(size.W*float64(c.scale)), int32(size.H*float64(c.scale)))

	rl.BeginTextureMode(c.target)
	rl.ClearBackground(c.background)
	rl.EndTextureMode()
	c.logger.Debug("canvas resized", "width", size.W, "height", size.H, "scale", c.scale)
}

// Subscribe registers the viewport handler fed by Poll.
func (c *Canvas) Subscribe(h effect.ViewportHandler) func() {
	c.handler = h
	return func() { c.handler = nil }
}

// Poll reports window resizes and visibility changes. Call once per frame
// before stepping the loop.
func (c *Canvas) Poll() {
	if c.handler == nil {
		return
	}
	if rl.IsWindowResized() {
		c.handler.Resize(systems.Size{W: float64(rl.GetScreenWidth()), H: float64(rl.GetScreenHeight())})
	}
	if ratio := visibleRatio(); ratio != c.lastRatio {
		c.lastRatio = ratio
		c.handler.Intersection(ratio)
	}
}

// visibleRatio is the fraction of the window inside its monitor, or 0 when
// minimized or hidden.
func visibleRatio() float64 {
	if rl.IsWindowMinimized() || rl.IsWindowHidden() {
		return 0
	}
	w, h := float64(rl.GetScreenWidth()), float64(rl.GetScreenHeight())
	if w <= 0 || h <= 0 {
		return 0
	}
	pos := rl.GetWindowPosition()
	m := rl.GetCurrentMonitor()
	mpos := rl.GetMonitorPosition(m)
	mw, mh := float64(rl.GetMonitorWidth(m)), float64(rl.GetMonitorHeight(m))

	ox := overlap(float64(pos.X), w, float64(mpos.X), mw)
	oy := overlap(float64(pos.Y), h, float64(mpos.Y), mh)
	return (ox * oy) / (w * h)
}

func overlap(a, alen, b, blen float64) float64 {
	return math.Max(0, math.Min(a+alen, b+blen)-math.Max(a, b))
}

// Render draws the frame into the backing texture and blits it to the
// screen. Call between rl.BeginDrawing and rl.EndDrawing.
func (c *Canvas) Render() {
	rl.BeginTextureMode(c.target)
	if c.frame%c.opacityDelay == 0 {
		rl.DrawRectangle(0, 0, c.target.Texture.Width, c.target.Texture.Height, rl.Fade(c.background, c.opacityStep))
	}
	for _, id := range c.order.live(c.attached) {
		p := c.particles[id]
		src := rl.Rectangle{Width: float32(p.tex.Width), Height: float32(p.tex.Height)}
		dst := rl.Rectangle{
			X:      float32(p.v.Pos.X) * c.scale,
			Y:      float32(p.v.Pos.Y) * c.scale,
			Width:  float32(p.v.Width) * c.scale,
			Height: float32(p.v.Height) * c.scale,
		}
		rl.DrawTexturePro(p.tex, src, dst, rl.Vector2{}, 0, toRL(p.v.Color, p.v.Opacity))
	}
	rl.EndTextureMode()
	c.frame++

	// Render textures are stored bottom-up
	tex := c.target.Texture
	src := rl.Rectangle{Width: float32(tex.Width), Height: -float32(tex.Height)}
	dst := rl.Rectangle{Width: float32(c.size.W), Height: float32(c.size.H)}
	rl.DrawTexturePro(tex, src, dst, rl.Vector2{}, 0, rl.White)
}

// Close releases GPU resources.
func (c *Canvas) Close() {
	for _, tex := range c.textures {
		rl.UnloadTexture(tex)
	}
	clear(c.textures)
	if c.target.ID != 0 {
		rl.UnloadRenderTexture(c.target)
		c.target = rl.RenderTexture2D{}
	}
}

func toRL(col colorful.Color, alpha float64) rl.Color {
	r, g, b := col.Clamped().RGB255()
	a := math.Max(0, math.Min(1, alpha))
	return rl.NewColor(r, g, b, uint8(math.Round(a*255)))
}
