package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load defaults: %v", err)
	}

	if cfg.Effect.MinCount != 3 || cfg.Effect.MaxCount != 10 {
		t.Errorf("counts = %d..%d, want 3..10", cfg.Effect.MinCount, cfg.Effect.MaxCount)
	}
	if cfg.Effect.Speed != [2]float64{10, 20} {
		t.Errorf("speed = %v, want [10 20]", cfg.Effect.Speed)
	}
	if cfg.Viewport.SettleDelay != 400*time.Millisecond {
		t.Errorf("settle_delay = %v, want 400ms", cfg.Viewport.SettleDelay)
	}
	if math.Abs(cfg.Derived.MoveAngleRad-math.Pi/4) > 1e-9 {
		t.Errorf("MoveAngleRad = %v, want pi/4", cfg.Derived.MoveAngleRad)
	}
	if cfg.Derived.FrameDuration != time.Second/60 {
		t.Errorf("FrameDuration = %v", cfg.Derived.FrameDuration)
	}
	if cfg.Effect.ObjectWidth != Px(100) {
		t.Errorf("object_width = %v, want 100px", cfg.Effect.ObjectWidth)
	}
}

func TestLoadMergesUserFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "user.yaml")
	data := []byte(`
effect:
  min_count: 1
  max_count: 3
  object_width: 8vw
spawn:
  policy: independent
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Effect.MinCount != 1 || cfg.Effect.MaxCount != 3 {
		t.Errorf("counts = %d..%d, want 1..3", cfg.Effect.MinCount, cfg.Effect.MaxCount)
	}
	if cfg.Effect.ObjectWidth != (Length{Value: 8, Unit: UnitVW}) {
		t.Errorf("object_width = %v, want 8vw", cfg.Effect.ObjectWidth)
	}
	// Untouched keys keep their defaults
	if cfg.Effect.InitialOpacity != 0.7 {
		t.Errorf("initial_opacity = %v, want default 0.7", cfg.Effect.InitialOpacity)
	}
	if cfg.Spawn.Policy != "independent" {
		t.Errorf("policy = %q", cfg.Spawn.Policy)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"min above max", func(c *Config) { c.Effect.MinCount = 5; c.Effect.MaxCount = 2 }},
		{"zero delay", func(c *Config) { c.Effect.Delay = [2]int{0, 3} }},
		{"opacity above one", func(c *Config) { c.Effect.InitialOpacity = 1.5 }},
		{"unknown policy", func(c *Config) { c.Effect.ProgressPolicy = "spiral" }},
		{"unknown spawn policy", func(c *Config) { c.Spawn.Policy = "both" }},
		{"no assets", func(c *Config) { c.Assets = nil }},
		{"bad background", func(c *Config) { c.Canvas.BackgroundColor = "navy" }},
		{"threshold", func(c *Config) { c.Viewport.Threshold = 2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			if err != nil {
				t.Fatal(err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestLengthResolve(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"100", 100},
		{"100px", 100},
		{"8vw", 80},
		{"10vh", 50},
		{" 12.5 px", 12.5},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			l, err := ParseLength(tt.in)
			if err != nil {
				t.Fatalf("ParseLength(%q): %v", tt.in, err)
			}
			if got := l.Resolve(1000, 500); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Resolve = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := ParseLength("wide"); err == nil {
		t.Error("ParseLength(wide) should fail")
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Effect.ObjectHeight = Length{Value: 10, Unit: UnitVH}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load written config: %v", err)
	}
	if back.Effect.ObjectHeight != cfg.Effect.ObjectHeight {
		t.Errorf("object_height = %v, want %v", back.Effect.ObjectHeight, cfg.Effect.ObjectHeight)
	}
	if back.Trail.Timeout != cfg.Trail.Timeout {
		t.Errorf("trail.timeout = %v, want %v", back.Trail.Timeout, cfg.Trail.Timeout)
	}
}
