package systems

import (
	"errors"

	"github.com/lucasb-eyer/go-colorful"
)

// ErrInvalidGradient is returned when a gradient has no stops.
var ErrInvalidGradient = errors.New("invalid gradient: no color stops")

// DefaultColor is returned alongside ErrInvalidGradient.
var DefaultColor = colorful.Color{R: 0, G: 0, B: 0}

// GradientStop is one (position, color) pair of a piecewise-linear ramp.
// Position is a percentage in [0, 100].
type GradientStop struct {
	Position float64
	Color    colorful.Color
}

// SampleColor returns the gradient color at progressPercent.
// Values at or below 0 clamp to the first stop, at or above 100 to the last.
// In between, the color is interpolated in RGB between the stop preceding
// the first stop at or past progressPercent and that stop.
func SampleColor(stops []GradientStop, progressPercent float64) (colorful.Color, error) {
	if len(stops) == 0 {
		return DefaultColor, ErrInvalidGradient
	}
	if progressPercent <= 0 {
		return stops[0].Color, nil
	}
	if progressPercent >= 100 {
		return stops[len(stops)-1].Color, nil
	}

	for i, stop := range stops {
		if stop.Position < progressPercent {
			continue
		}
		if i == 0 || stop.Position == progressPercent {
			return stop.Color, nil
		}
		prev := stops[i-1]
		t := (progressPercent - prev.Position) / (stop.Position - prev.Position)
		return prev.Color.BlendRgb(stop.Color, t).Clamped(), nil
	}

	// Last stop sits below 100: hold its color.
	return stops[len(stops)-1].Color, nil
}

// Gradient is a named, pre-parsed stop list.
type Gradient struct {
	Source string // original CSS text, for logs
	Stops  []GradientStop
}

// Sample is SampleColor on the gradient's stops.
func (g Gradient) Sample(progressPercent float64) (colorful.Color, error) {
	return SampleColor(g.Stops, progressPercent)
}

// Hex formats c as #rrggbb, clamping out-of-gamut channels.
func Hex(c colorful.Color) string {
	return c.Clamped().Hex()
}
