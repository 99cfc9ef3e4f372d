package renderer

import (
	"fmt"
	"math"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/pthm-cable/fallingobjects/assets"
	"github.com/pthm-cable/fallingobjects/config"
	"github.com/pthm-cable/fallingobjects/effect"
	"github.com/pthm-cable/fallingobjects/systems"
)

// Command is a user request read from terminal input.
type Command uint8

const (
	CmdNone Command = iota
	CmdQuit
	CmdTogglePause
)

// maskOversample is the mask resolution per cell along each axis.
const maskOversample = 4

// shades maps coverage to block glyphs, lightest first.
var shades = []rune{'░', '▒', '▓', '█'}

type termParticle struct {
	cov [][]float64 // [row][col] coverage
	v   effect.Visual
}

// Terminal draws particles as shaded block cells on a tcell screen. Each
// cell stands for cellW×cellH container pixels.
type Terminal struct {
	screen       tcell.Screen
	cellW, cellH float64
	background   colorful.Color
	bgStyle      tcell.Style
	trails       *Trails
	now          func() time.Time

	masks     map[string][][]float64
	coverage  map[effect.ParticleID][][]float64 // outlives Detach while ghosts remain
	particles map[effect.ParticleID]*termParticle
	order     drawOrder

	handler effect.ViewportHandler
	events  chan tcell.Event
}

// NewTerminal wraps an initialized screen. now timestamps trail ghosts.
func NewTerminal(screen tcell.Screen, cfg *config.Config, now func() time.Time) *Terminal {
	if now == nil {
		now = time.Now
	}
	var trails *Trails
	if cfg.Trail.Enabled {
		trails = NewTrails(cfg.Trail.Timeout, cfg.Trail.Transition)
	} else {
		trails = NewTrails(0, 0)
	}
	bg := cfg.Derived.BackgroundColor
	return &Terminal{
		screen:     screen,
		cellW:      float64(max(cfg.Terminal.CellWidth, 1)),
		cellH:      float64(max(cfg.Terminal.CellHeight, 1)),
		background: bg,
		bgStyle:    tcell.StyleDefault.Background(toTcell(bg)).Foreground(toTcell(bg)),
		trails:     trails,
		now:        now,
		masks:      make(map[string][][]float64),
		coverage:   make(map[effect.ParticleID][][]float64),
		particles:  make(map[effect.ParticleID]*termParticle),
		events:     make(chan tcell.Event, 100),
	}
}

// Size returns the screen size in container pixels.
func (t *Terminal) Size() systems.Size {
	cols, rows := t.screen.Size()
	return systems.Size{W: float64(cols) * t.cellW, H: float64(rows) * t.cellH}
}

// Attach rasterizes the sprite to a cell coverage grid, cached per sprite
// and size.
func (t *Terminal) Attach(id effect.ParticleID, sprite *assets.Sprite, v effect.Visual) error {
	cols := max(int(math.Ceil(v.Width/t.cellW)), 1)
	rows := max(int(math.Ceil(v.Height/t.cellH)), 1)
	key := fmt.Sprintf("%s@%dx%d", sprite.URL, cols, rows)

	cov, ok := t.masks[key]
	if !ok {
		mask, err := Mask(sprite, cols*maskOversample, rows*maskOversample)
		if err != nil {
			return err
		}
		cov = Coverage(mask, cols, rows)
		t.masks[key] = cov
	}

	t.particles[id] = &termParticle{cov: cov, v: v}
	t.coverage[id] = cov
	t.order.add(id)
	return nil
}

// Update leaves a ghost at the previous state and records the new one.
func (t *Terminal) Update(id effect.ParticleID, v effect.Visual) {
	p, ok := t.particles[id]
	if !ok {
		return
	}
	t.trails.Add(id, p.v, t.now())
	p.v = v
}

// Detach stops drawing the particle. Its ghosts fade out on their own.
func (t *Terminal) Detach(id effect.ParticleID) {
	if _, ok := t.particles[id]; !ok {
		return
	}
	delete(t.particles, id)
	t.order.drop()
}

func (t *Terminal) attached(id effect.ParticleID) bool {
	_, ok := t.particles[id]
	return ok
}

// Resize drops ghosts left at the old geometry and repaints.
func (t *Terminal) Resize(systems.Size) {
	t.trails.Clear()
	t.screen.Sync()
}

// Subscribe registers the viewport handler fed by Poll.
func (t *Terminal) Subscribe(h effect.ViewportHandler) func() {
	t.handler = h
	return func() { t.handler = nil }
}

// Start begins polling screen events on a background goroutine. The
// goroutine exits when the screen is finalized.
func (t *Terminal) Start() {
	t.screen.EnableFocus()
	go func() {
		for {
			ev := t.screen.PollEvent()
			if ev == nil {
				return
			}
			t.events <- ev
		}
	}()
}

// Poll handles every queued event without blocking and returns the last
// user command seen.
func (t *Terminal) Poll() Command {
	cmd := CmdNone
	for {
		select {
		case ev := <-t.events:
			if c := t.HandleEvent(ev); c != CmdNone {
				cmd = c
			}
		default:
			return cmd
		}
	}
}

// HandleEvent translates one screen event. Resize and focus changes go to
// the viewport handler; keys become commands.
func (t *Terminal) HandleEvent(ev tcell.Event) Command {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		if t.handler != nil {
			t.handler.Resize(t.Size())
		}
	case *tcell.EventFocus:
		// Terminals cannot report occlusion; focus stands in for it.
		if t.handler != nil {
			ratio := 0.0
			if ev.Focused {
				ratio = 1
			}
			t.handler.Intersection(ratio)
		}
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return CmdQuit
		}
		if ev.Key() == tcell.KeyRune {
			switch ev.Rune() {
			case 'q':
				return CmdQuit
			case 'p', ' ':
				return CmdTogglePause
			}
		}
	}
	return CmdNone
}

// Draw repaints ghosts then live particles and shows the screen.
func (t *Terminal) Draw() {
	now := t.now()
	t.trails.Prune(now)
	t.screen.Fill(' ', t.bgStyle)

	ghosted := make(map[effect.ParticleID]struct{}, len(t.coverage))
	t.trails.Each(now, func(g Ghost, opacity float64) {
		ghosted[g.ID] = struct{}{}
		if cov, ok := t.coverage[g.ID]; ok {
			t.drawCells(cov, g.Visual, opacity)
		}
	})
	for _, id := range t.order.live(t.attached) {
		p := t.particles[id]
		t.drawCells(p.cov, p.v, p.v.Opacity)
	}
	t.screen.Show()

	for id := range t.coverage {
		_, live := t.particles[id]
		_, ghost := ghosted[id]
		if !live && !ghost {
			delete(t.coverage, id)
		}
	}
}

func (t *Terminal) drawCells(cov [][]float64, v effect.Visual, opacity float64) {
	cols, rows := t.screen.Size()
	col0 := int(math.Floor(v.Pos.X / t.cellW))
	row0 := int(math.Floor(v.Pos.Y / t.cellH))

	for r, line := range cov {
		y := row0 + r
		if y < 0 || y >= rows {
			continue
		}
		for c, a := range line {
			x := col0 + c
			if x < 0 || x >= cols {
				continue
			}
			a *= opacity
			if a < 0.05 {
				continue
			}
			glyph := shades[min(int(a*float64(len(shades))), len(shades)-1)]
			fg := t.background.BlendRgb(v.Color, math.Min(1, a))
			t.screen.SetContent(x, y, glyph, nil, t.bgStyle.Foreground(toTcell(fg)))
		}
	}
}

// Close finalizes the screen, which also ends the poll goroutine.
func (t *Terminal) Close() {
	t.screen.Fini()
}

func toTcell(c colorful.Color) tcell.Color {
	r, g, b := c.Clamped().RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}
