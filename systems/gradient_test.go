package systems

import (
	"errors"
	"math"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
)

func mustHex(t *testing.T, s string) colorful.Color {
	t.Helper()
	c, err := colorful.Hex(s)
	if err != nil {
		t.Fatalf("Hex(%q): %v", s, err)
	}
	return c
}

func closeColor(a, b colorful.Color) bool {
	const eps = 1e-6
	return math.Abs(a.R-b.R) < eps && math.Abs(a.G-b.G) < eps && math.Abs(a.B-b.B) < eps
}

func TestSampleColorBlackWhite(t *testing.T) {
	stops := []GradientStop{
		{Position: 0, Color: mustHex(t, "#000000")},
		{Position: 100, Color: mustHex(t, "#ffffff")},
	}

	tests := []struct {
		name string
		p    float64
		want colorful.Color
	}{
		{"below zero", -5, stops[0].Color},
		{"zero", 0, stops[0].Color},
		{"midpoint", 50, colorful.Color{R: 0.5, G: 0.5, B: 0.5}},
		{"quarter", 25, colorful.Color{R: 0.25, G: 0.25, B: 0.25}},
		{"hundred", 100, stops[1].Color},
		{"above", 140, stops[1].Color},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SampleColor(stops, tt.p)
			if err != nil {
				t.Fatalf("SampleColor: %v", err)
			}
			if !closeColor(got, tt.want) {
				t.Errorf("SampleColor(%v) = %v, want %v", tt.p, got.Hex(), tt.want.Hex())
			}
		})
	}
}

func TestSampleColorMidpointHex(t *testing.T) {
	stops := []GradientStop{
		{Position: 0, Color: mustHex(t, "#000000")},
		{Position: 100, Color: mustHex(t, "#ffffff")},
	}
	got, _ := SampleColor(stops, 50)
	// 0.5 * 255 = 127.5, rounds to 0x80
	if Hex(got) != "#808080" {
		t.Errorf("midpoint = %s, want #808080", Hex(got))
	}
}

func TestSampleColorContinuousAtStops(t *testing.T) {
	stops := []GradientStop{
		{Position: 0, Color: mustHex(t, "#ff0000")},
		{Position: 40, Color: mustHex(t, "#00ff00")},
		{Position: 100, Color: mustHex(t, "#0000ff")},
	}

	at, _ := SampleColor(stops, 40)
	if !closeColor(at, stops[1].Color) {
		t.Errorf("at stop = %s, want %s", at.Hex(), stops[1].Color.Hex())
	}

	const eps = 1e-4
	before, _ := SampleColor(stops, 40-eps)
	after, _ := SampleColor(stops, 40+eps)
	if before.DistanceRgb(at) > 1e-3 || after.DistanceRgb(at) > 1e-3 {
		t.Errorf("discontinuity at stop: before=%v at=%v after=%v", before, at, after)
	}
}

func TestSampleColorFirstStopAboveZero(t *testing.T) {
	stops := []GradientStop{
		{Position: 20, Color: mustHex(t, "#112233")},
		{Position: 80, Color: mustHex(t, "#445566")},
	}
	got, err := SampleColor(stops, 10)
	if err != nil {
		t.Fatal(err)
	}
	if !closeColor(got, stops[0].Color) {
		t.Errorf("got %s, want first stop %s", got.Hex(), stops[0].Color.Hex())
	}

	got, _ = SampleColor(stops, 90)
	if !closeColor(got, stops[1].Color) {
		t.Errorf("got %s, want last stop %s", got.Hex(), stops[1].Color.Hex())
	}
}

func TestSampleColorEmpty(t *testing.T) {
	got, err := SampleColor(nil, 50)
	if !errors.Is(err, ErrInvalidGradient) {
		t.Fatalf("err = %v, want ErrInvalidGradient", err)
	}
	if got != DefaultColor {
		t.Errorf("got %v, want DefaultColor", got)
	}
}
