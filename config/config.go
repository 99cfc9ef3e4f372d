// Package config provides configuration loading and access for the effect.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid is returned when a loaded configuration fails validation.
var ErrInvalid = errors.New("invalid config")

// Config holds all effect configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	Effect    EffectConfig    `yaml:"effect"`
	Spawn     SpawnConfig     `yaml:"spawn"`
	Trail     TrailConfig     `yaml:"trail"`
	Canvas    CanvasConfig    `yaml:"canvas"`
	Viewport  ViewportConfig  `yaml:"viewport"`
	Terminal  TerminalConfig  `yaml:"terminal"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Assets    []string        `yaml:"assets"`    // SVG URLs or file paths
	Gradients []string        `yaml:"gradients"` // CSS linear-gradient strings

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds window settings for the graphical backends.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// EffectConfig holds the particle motion and population parameters.
type EffectConfig struct {
	Speed            [2]float64 `yaml:"speed"`              // step magnitude range, sampled per particle
	StepSize         float64    `yaml:"step_size"`          // fixed step; overrides Speed when > 0
	MoveAngle        float64    `yaml:"move_angle"`         // degrees, shared by all particles
	Delay            [2]int     `yaml:"delay"`              // ticks between visual updates
	InitialOpacity   float64    `yaml:"initial_opacity"`
	EndOpacity       float64    `yaml:"end_opacity"`
	MinCount         int        `yaml:"min_count"`
	MaxCount         int        `yaml:"max_count"`
	ObjectWidth      Length     `yaml:"object_width"`
	ObjectHeight     Length     `yaml:"object_height"`
	ProgressPolicy   string     `yaml:"progress_policy"`    // bounds | geometry
	EndPosition      float64    `yaml:"end_position"`       // geometry: mean stop fraction of the ray
	EndPositionDelta float64    `yaml:"end_position_delta"` // geometry: width of the stop fraction band
	OutViewport      float64    `yaml:"out_viewport"`       // geometry: chance to travel the whole ray
}

// SpawnConfig holds spawn chance parameters.
type SpawnConfig struct {
	LowChance  float64 `yaml:"low_chance"`  // per tick chance while below min_count
	HighChance float64 `yaml:"high_chance"` // per tick chance between min_count and max_count
	Policy     string  `yaml:"policy"`      // exclusive | independent
}

// TrailConfig holds cosmetic ghost trail timing for the DOM-like backends.
type TrailConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Timeout    time.Duration `yaml:"timeout"`    // ghost lifetime
	Transition time.Duration `yaml:"transition"` // fade to transparent over this span
}

// CanvasConfig holds canvas backend blending parameters.
type CanvasConfig struct {
	OpacityStep     float64 `yaml:"opacity_step"`     // alpha of the background wash
	OpacityDelay    int     `yaml:"opacity_delay"`    // frames between washes
	BackgroundColor string  `yaml:"background_color"` // hex
	IsRetina        bool    `yaml:"is_retina"`
}

// ViewportConfig holds visibility and resize coordination parameters.
type ViewportConfig struct {
	Threshold   float64       `yaml:"threshold"`    // intersection ratio below which the effect pauses
	SettleDelay time.Duration `yaml:"settle_delay"` // pause after the last resize event
}

// TerminalConfig maps terminal cells to container pixels.
type TerminalConfig struct {
	CellWidth  int `yaml:"cell_width"`
	CellHeight int `yaml:"cell_height"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow float64 `yaml:"stats_window"` // seconds per stats window
	PerfLogSec  float64 `yaml:"perf_log_sec"` // seconds between perf log lines (0 = off)
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	MoveAngleRad    float64        // Effect.MoveAngle in radians
	FrameDuration   time.Duration  // 1 / Screen.TargetFPS
	BackgroundColor colorful.Color // parsed Canvas.BackgroundColor
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// Validate checks ranges and enumerations. Errors wrap ErrInvalid.
func (c *Config) Validate() error {
	e := c.Effect
	switch {
	case e.Speed[0] < 0 || e.Speed[1] < e.Speed[0]:
		return fmt.Errorf("%w: effect.speed must be [min, max] with 0 <= min <= max", ErrInvalid)
	case e.StepSize < 0:
		return fmt.Errorf("%w: effect.step_size must not be negative", ErrInvalid)
	case e.Delay[0] < 1 || e.Delay[1] < e.Delay[0]:
		return fmt.Errorf("%w: effect.delay must be [min, max] with 1 <= min <= max", ErrInvalid)
	case !unit(e.InitialOpacity) || !unit(e.EndOpacity):
		return fmt.Errorf("%w: opacities must be within [0, 1]", ErrInvalid)
	case e.MinCount < 0 || e.MaxCount < e.MinCount:
		return fmt.Errorf("%w: need 0 <= min_count <= max_count", ErrInvalid)
	case e.ObjectWidth.Value <= 0 || e.ObjectHeight.Value <= 0:
		return fmt.Errorf("%w: object size must be positive", ErrInvalid)
	case e.ProgressPolicy != "bounds" && e.ProgressPolicy != "geometry":
		return fmt.Errorf("%w: unknown progress_policy %q", ErrInvalid, e.ProgressPolicy)
	case !unit(e.OutViewport) || e.EndPositionDelta < 0:
		return fmt.Errorf("%w: out_viewport must be within [0, 1] and end_position_delta >= 0", ErrInvalid)
	}

	s := c.Spawn
	if !unit(s.LowChance) || !unit(s.HighChance) {
		return fmt.Errorf("%w: spawn chances must be within [0, 1]", ErrInvalid)
	}
	if s.Policy != "exclusive" && s.Policy != "independent" {
		return fmt.Errorf("%w: unknown spawn policy %q", ErrInvalid, s.Policy)
	}

	if !unit(c.Viewport.Threshold) || c.Viewport.SettleDelay < 0 {
		return fmt.Errorf("%w: viewport.threshold must be within [0, 1] and settle_delay >= 0", ErrInvalid)
	}
	if c.Screen.TargetFPS <= 0 {
		return fmt.Errorf("%w: screen.target_fps must be positive", ErrInvalid)
	}
	if c.Terminal.CellWidth <= 0 || c.Terminal.CellHeight <= 0 {
		return fmt.Errorf("%w: terminal cell size must be positive", ErrInvalid)
	}
	if len(c.Assets) == 0 {
		return fmt.Errorf("%w: at least one asset is required", ErrInvalid)
	}
	if _, err := colorful.Hex(c.Canvas.BackgroundColor); err != nil {
		return fmt.Errorf("%w: canvas.background_color: %v", ErrInvalid, err)
	}
	return nil
}

func unit(v float64) bool {
	return v >= 0 && v <= 1
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.MoveAngleRad = c.Effect.MoveAngle * math.Pi / 180
	c.Derived.FrameDuration = time.Second / time.Duration(c.Screen.TargetFPS)
	// Validate already checked the format
	c.Derived.BackgroundColor, _ = colorful.Hex(c.Canvas.BackgroundColor)
}

// StatsWindowTicks converts the telemetry window to frames.
func (c *Config) StatsWindowTicks() int {
	n := int(c.Telemetry.StatsWindow * float64(c.Screen.TargetFPS))
	if n < 1 {
		n = 1
	}
	return n
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
