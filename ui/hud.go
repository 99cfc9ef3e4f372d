package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Action is a HUD button press.
type Action uint8

const (
	ActionNone Action = iota
	ActionTogglePause
	ActionStop
)

// HUDData holds all the data needed to render the HUD.
type HUDData struct {
	Count        int
	InFlight     int
	MaxCount     int
	Tick         uint64
	FPS          int32
	Paused       bool
	Stopped      bool
	Suspended    bool // hidden or settling after a resize
	ProgressMean float64
	Gradients    [][]rl.Color // a few samples per gradient
	LowChance    float64
	HighChance   float64
}

// HUD renders the heads-up display and its controls.
type HUD struct {
	renderer *Renderer
	x, y     int32
	width    int32
	visible  bool
}

// NewHUD creates a HUD anchored at (x, y).
func NewHUD(x, y, width int32) *HUD {
	return &HUD{renderer: NewRenderer(), x: x, y: y, width: width, visible: true}
}

// Toggle flips HUD visibility and returns the new state.
func (h *HUD) Toggle() bool {
	h.visible = !h.visible
	return h.visible
}

// Draw renders the HUD. It returns the button pressed, if any, and the
// spawn chances after slider edits.
func (h *HUD) Draw(data HUDData) (Action, float64, float64) {
	low, high := data.LowChance, data.HighChance
	if !h.visible {
		return ActionNone, low, high
	}

	r := h.renderer
	pad := r.Theme.Padding
	x, y := h.x+pad, h.y+pad
	height := int32(172 + 16*len(data.Gradients))
	r.DrawPanel(h.x, h.y, h.width, height)

	y = r.DrawSectionHeader(x, y, "Falling Objects")

	status, color := "Running", r.Theme.StatusRunning
	switch {
	case data.Stopped:
		status, color = "STOPPED", rl.Red
	case data.Paused:
		status, color = "PAUSED", r.Theme.StatusPaused
	case data.Suspended:
		status, color = "Suspended", r.Theme.StatusPaused
	}
	rl.DrawText(status, x, y, r.Theme.FontSize, color)
	y += r.Theme.LineHeight

	y = r.DrawLabelValue(x, y, "Particles", fmt.Sprintf("%d/%d (+%d loading)", data.Count, data.MaxCount, data.InFlight))
	y = r.DrawLabelValue(x, y, "Tick", fmt.Sprintf("%d @ %d fps", data.Tick, data.FPS))
	y = r.DrawBar(x, y, "Progress", float32(data.ProgressMean), h.width-2*pad)
	for i, g := range data.Gradients {
		y = r.DrawColorSwatch(x, y, fmt.Sprintf("Gradient %d", i+1), g)
	}

	sliderW := float32(h.width - 2*pad - r.Theme.LabelWidth - 40)
	rl.DrawText("Low:", x, y+2, r.Theme.FontSize, r.Theme.LabelColor)
	low = float64(gui.SliderBar(
		rl.Rectangle{X: float32(x + r.Theme.LabelWidth), Y: float32(y), Width: sliderW, Height: 14},
		"", fmt.Sprintf("%.2f", low),
		float32(low), 0, 1,
	))
	y += r.Theme.LineHeight + 2
	rl.DrawText("High:", x, y+2, r.Theme.FontSize, r.Theme.LabelColor)
	high = float64(gui.SliderBar(
		rl.Rectangle{X: float32(x + r.Theme.LabelWidth), Y: float32(y), Width: sliderW, Height: 14},
		"", fmt.Sprintf("%.2f", high),
		float32(high), 0, 1,
	))
	y += r.Theme.LineHeight + 6

	action := ActionNone
	if data.Stopped {
		return action, low, high
	}
	label := "Pause"
	if data.Paused {
		label = "Resume"
	}
	if gui.Button(rl.Rectangle{X: float32(x), Y: float32(y), Width: 80, Height: 22}, label) {
		action = ActionTogglePause
	}
	if gui.Button(rl.Rectangle{X: float32(x + 90), Y: float32(y), Width: 80, Height: 22}, "Stop") {
		action = ActionStop
	}
	return action, low, high
}

// DrawControls renders the key legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}
