package renderer

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/fallingobjects/assets"
	"github.com/pthm-cable/fallingobjects/config"
	"github.com/pthm-cable/fallingobjects/effect"
	"github.com/pthm-cable/fallingobjects/systems"
)

const squareSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10"><rect x="0" y="0" width="10" height="10"/></svg>`

func squareSprite(t *testing.T) *assets.Sprite {
	t.Helper()
	s, err := assets.ParseSprite("square.svg", squareSVG)
	if err != nil {
		t.Fatalf("ParseSprite: %v", err)
	}
	return s
}

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	return cfg
}

func TestMaskAndCoverage(t *testing.T) {
	mask, err := Mask(squareSprite(t), 16, 16)
	if err != nil {
		t.Fatalf("Mask: %v", err)
	}
	if a := mask.AlphaAt(8, 8).A; a != 255 {
		t.Errorf("center alpha = %d, want 255", a)
	}

	cov := Coverage(mask, 4, 2)
	if len(cov) != 2 || len(cov[0]) != 4 {
		t.Fatalf("coverage grid = %dx%d", len(cov[0]), len(cov))
	}
	if math.Abs(cov[1][1]-1) > 0.05 {
		t.Errorf("inner coverage = %v, want ~1", cov[1][1])
	}

	if _, err := Mask(squareSprite(t), 0, 4); err == nil {
		t.Error("expected error for empty size")
	}
}

func TestTrails(t *testing.T) {
	start := time.Unix(0, 0)
	tr := NewTrails(2*time.Second, time.Second)
	g := effect.Visual{Opacity: 0.8}

	tr.Add(1, g, start)
	tests := []struct {
		at   time.Duration
		want float64
	}{
		{0, 0.8},
		{500 * time.Millisecond, 0.4},
		{time.Second, 0},
		{1500 * time.Millisecond, 0},
	}
	for _, tt := range tests {
		got := tr.Alpha(tr.ghosts[0], start.Add(tt.at))
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("alpha at %v = %v, want %v", tt.at, got, tt.want)
		}
	}

	tr.Prune(start.Add(1999 * time.Millisecond))
	if tr.Len() != 1 {
		t.Errorf("ghost pruned before timeout")
	}
	tr.Prune(start.Add(2 * time.Second))
	if tr.Len() != 0 {
		t.Errorf("ghost kept past timeout")
	}

	off := NewTrails(0, 0)
	off.Add(1, g, start)
	if off.Len() != 0 {
		t.Error("disabled trails recorded a ghost")
	}
}

type recordingHandler struct {
	ratios []float64
	sizes  []systems.Size
}

func (r *recordingHandler) Intersection(ratio float64) { r.ratios = append(r.ratios, ratio) }
func (r *recordingHandler) Resize(size systems.Size)   { r.sizes = append(r.sizes, size) }

func newSimTerminal(t *testing.T, cfg *config.Config, now func() time.Time) (*Terminal, tcell.SimulationScreen) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("screen init: %v", err)
	}
	screen.SetSize(80, 24)
	term := NewTerminal(screen, cfg, now)
	t.Cleanup(term.Close)
	return term, screen
}

func TestTerminalDraw(t *testing.T) {
	cfg := loadConfig(t)
	cfg.Trail.Enabled = false
	term, screen := newSimTerminal(t, cfg, nil)

	if size := term.Size(); size.W != 80*8 || size.H != 24*16 {
		t.Fatalf("Size = %+v", size)
	}

	v := effect.Visual{
		Pos:     r2.Vec{X: 80, Y: 80},
		Width:   80,
		Height:  80,
		Opacity: 1,
		Color:   colorful.Color{R: 1, G: 1, B: 1},
	}
	if err := term.Attach(1, squareSprite(t), v); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	term.Draw()

	// 80x80 px at (80,80) covers cols 10-19, rows 5-9
	if r, _, _, _ := screen.GetContent(12, 7); r != '█' {
		t.Errorf("inside cell = %q, want full block", r)
	}
	if r, _, _, _ := screen.GetContent(2, 2); r != ' ' {
		t.Errorf("outside cell = %q, want blank", r)
	}

	term.Detach(1)
	term.Draw()
	if r, _, _, _ := screen.GetContent(12, 7); r != ' ' {
		t.Errorf("detached particle still drawn: %q", r)
	}
}

func TestTerminalGhosts(t *testing.T) {
	cfg := loadConfig(t)
	cfg.Trail.Enabled = true
	cfg.Trail.Timeout = 2 * time.Second
	cfg.Trail.Transition = 2 * time.Second
	now := time.Unix(0, 0)
	term, screen := newSimTerminal(t, cfg, func() time.Time { return now })

	v := effect.Visual{Pos: r2.Vec{X: 0, Y: 0}, Width: 80, Height: 80, Opacity: 1, Color: colorful.Color{R: 1}}
	if err := term.Attach(1, squareSprite(t), v); err != nil {
		t.Fatal(err)
	}
	moved := v
	moved.Pos = r2.Vec{X: 400, Y: 200}
	term.Update(1, moved)
	term.Draw()

	if r, _, _, _ := screen.GetContent(2, 2); r == ' ' {
		t.Error("no ghost at the previous position")
	}

	now = now.Add(3 * time.Second)
	term.Draw()
	if r, _, _, _ := screen.GetContent(2, 2); r != ' ' {
		t.Errorf("ghost outlived timeout: %q", r)
	}
}

func TestTerminalEvents(t *testing.T) {
	cfg := loadConfig(t)
	term, screen := newSimTerminal(t, cfg, nil)
	h := &recordingHandler{}
	unsubscribe := term.Subscribe(h)

	screen.SetSize(100, 30)
	if cmd := term.HandleEvent(tcell.NewEventResize(100, 30)); cmd != CmdNone {
		t.Errorf("resize cmd = %v", cmd)
	}
	if len(h.sizes) != 1 || h.sizes[0].W != 800 || h.sizes[0].H != 480 {
		t.Errorf("sizes = %v", h.sizes)
	}

	term.HandleEvent(tcell.NewEventFocus(false))
	term.HandleEvent(tcell.NewEventFocus(true))
	if len(h.ratios) != 2 || h.ratios[0] != 0 || h.ratios[1] != 1 {
		t.Errorf("ratios = %v", h.ratios)
	}

	keys := []struct {
		ev   *tcell.EventKey
		want Command
	}{
		{tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone), CmdQuit},
		{tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone), CmdQuit},
		{tcell.NewEventKey(tcell.KeyRune, 'p', tcell.ModNone), CmdTogglePause},
		{tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone), CmdNone},
	}
	for _, k := range keys {
		if got := term.HandleEvent(k.ev); got != k.want {
			t.Errorf("key %v = %v, want %v", k.ev.Name(), got, k.want)
		}
	}

	unsubscribe()
	term.HandleEvent(tcell.NewEventResize(80, 24))
	if len(h.sizes) != 1 {
		t.Error("handler called after unsubscribe")
	}
}

func TestSVGFramesRender(t *testing.T) {
	cfg := loadConfig(t)
	cfg.Trail.Enabled = false
	frames, err := NewSVGFrames("", 1, systems.Size{W: 320, H: 200}, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	v := effect.Visual{Pos: r2.Vec{X: 10, Y: 20}, Width: 30, Height: 30, Opacity: 0.7, Color: colorful.Color{R: 1}}
	if err := frames.Attach(1, squareSprite(t), v); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	frames.Render(&buf)
	out := buf.String()
	for _, want := range []string{
		`width="320" height="200"`,
		`fill="#ff0000" opacity="0.700"`,
		`viewBox="0 0 10 10"`,
		`<rect x="0" y="0" width="10" height="10"/>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("frame missing %q:\n%s", want, out)
		}
	}

	frames.Detach(1)
	buf.Reset()
	frames.Render(&buf)
	if strings.Contains(buf.String(), "viewBox") {
		t.Error("detached particle rendered")
	}
}

func TestDrawOrderCompactsDetached(t *testing.T) {
	attached := map[effect.ParticleID]bool{}
	var order drawOrder
	for id := effect.ParticleID(1); id <= 6; id++ {
		attached[id] = true
		order.add(id)
	}
	for _, id := range []effect.ParticleID{2, 3, 5} {
		delete(attached, id)
		order.drop()
	}

	has := func(id effect.ParticleID) bool { return attached[id] }
	got := order.live(has)
	want := []effect.ParticleID{1, 4, 6}
	if len(got) != len(want) {
		t.Fatalf("live = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("live[%d] = %d, want %d", i, got[i], want[i])
		}
	}
	if order.stale != 0 || len(order.ids) != 3 {
		t.Errorf("not compacted: stale=%d ids=%v", order.stale, order.ids)
	}
}

func TestSVGFramesBatchDetach(t *testing.T) {
	cfg := loadConfig(t)
	cfg.Trail.Enabled = false
	frames, err := NewSVGFrames("", 1, systems.Size{W: 320, H: 200}, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	colors := []string{"#ff0000", "#00ff00", "#0000ff", "#ffff00"}
	for i, hex := range colors {
		c, _ := colorful.Hex(hex)
		v := effect.Visual{Pos: r2.Vec{X: float64(10 * i)}, Width: 10, Height: 10, Opacity: 1, Color: c}
		if err := frames.Attach(effect.ParticleID(i+1), squareSprite(t), v); err != nil {
			t.Fatal(err)
		}
	}
	frames.Detach(1)
	frames.Detach(3)
	frames.Detach(3)

	var buf bytes.Buffer
	frames.Render(&buf)
	out := buf.String()
	for _, gone := range []string{"#ff0000", "#0000ff"} {
		if strings.Contains(out, `fill="`+gone) {
			t.Errorf("detached particle %s rendered", gone)
		}
	}
	green := strings.Index(out, `fill="#00ff00"`)
	yellow := strings.Index(out, `fill="#ffff00"`)
	if green < 0 || yellow < 0 || green > yellow {
		t.Errorf("attach order lost: green at %d, yellow at %d", green, yellow)
	}
}

func TestSVGFramesWritesEveryN(t *testing.T) {
	cfg := loadConfig(t)
	dir := filepath.Join(t.TempDir(), "frames")
	frames, err := NewSVGFrames(dir, 3, systems.Size{W: 100, H: 100}, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		if err := frames.Frame(); err != nil {
			t.Fatalf("Frame: %v", err)
		}
	}
	if frames.Written() != 3 {
		t.Errorf("Written = %d, want 3", frames.Written())
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 || entries[0].Name() != "frame-000003.svg" {
		t.Errorf("entries = %v", entries)
	}
}
