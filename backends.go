package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/gdamore/tcell/v2"

	"github.com/pthm-cable/fallingobjects/config"
	"github.com/pthm-cable/fallingobjects/effect"
	"github.com/pthm-cable/fallingobjects/renderer"
	"github.com/pthm-cable/fallingobjects/systems"
	"github.com/pthm-cable/fallingobjects/ui"
)

func reachedMax(sys *effect.System, maxTicks int) bool {
	return maxTicks > 0 && sys.Tick() >= uint64(maxTicks)
}

func togglePause(sys *effect.System) {
	if sys.Paused() {
		sys.Resume()
		return
	}
	sys.Pause()
}

// runCanvas drives the effect from the raylib frame loop.
func runCanvas(cfg *config.Config, sys *effect.System, loop *effect.Loop, opts runOptions) error {
	rl.SetConfigFlags(rl.FlagWindowResizable)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Falling Objects")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	canvas := renderer.NewCanvas(cfg, opts.logger)
	defer canvas.Close()
	if err := sys.Start(canvas); err != nil {
		return err
	}
	// Detach everything before the surface goes away
	defer sys.Stop()

	hud := ui.NewHUD(10, 10, 300)
	swatches := gradientSwatches(sys.Gradients())
	bg := cfg.Derived.BackgroundColor
	r, g, b := bg.RGB255()
	clearColor := rl.NewColor(r, g, b, 255)

	for !rl.WindowShouldClose() {
		canvas.Poll()
		if rl.IsKeyPressed(rl.KeySpace) {
			togglePause(sys)
		}
		if rl.IsKeyPressed(rl.KeyH) {
			hud.Toggle()
		}

		loop.Step()

		rl.BeginDrawing()
		rl.ClearBackground(clearColor)
		canvas.Render()

		low, high := sys.SpawnChances()
		action, newLow, newHigh := hud.Draw(ui.HUDData{
			Count:        sys.Count(),
			InFlight:     sys.InFlight(),
			MaxCount:     cfg.Effect.MaxCount,
			Tick:         sys.Tick(),
			FPS:          rl.GetFPS(),
			Paused:       sys.Paused(),
			Stopped:      sys.Stopped(),
			Suspended:    sys.Suspended(),
			ProgressMean: meanProgress(sys.Particles()),
			Gradients:    swatches,
			LowChance:    low,
			HighChance:   high,
		})
		if newLow != low || newHigh != high {
			sys.SetSpawnChances(newLow, newHigh)
		}
		switch action {
		case ui.ActionTogglePause:
			togglePause(sys)
		case ui.ActionStop:
			sys.Stop()
		}
		hud.DrawControls(int32(rl.GetScreenHeight()), "SPACE pause | H hud | ESC quit")
		rl.EndDrawing()

		if reachedMax(sys, opts.maxTicks) {
			opts.logger.Info("max ticks reached", "tick", sys.Tick())
			break
		}
	}
	return nil
}

// runTerminal drives the effect on a ticker and paints with tcell.
func runTerminal(cfg *config.Config, sys *effect.System, loop *effect.Loop, opts runOptions) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("creating screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("initializing screen: %w", err)
	}

	term := renderer.NewTerminal(screen, cfg, time.Now)
	defer term.Close()
	term.Start()
	if err := sys.Start(term); err != nil {
		return err
	}
	defer sys.Stop()

	ctx, cancel := ctxWithInterrupt()
	defer cancel()

	err = loop.Run(ctx, cfg.Derived.FrameDuration, func() bool {
		switch term.Poll() {
		case renderer.CmdQuit:
			return false
		case renderer.CmdTogglePause:
			togglePause(sys)
		}
		term.Draw()
		return !reachedMax(sys, opts.maxTicks)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runSVG renders frames offline, advancing simulated time one frame per step.
func runSVG(cfg *config.Config, sys *effect.System, loop *effect.Loop, clock *effect.ManualClock, opts runOptions) error {
	size := systems.Size{W: float64(cfg.Screen.Width), H: float64(cfg.Screen.Height)}
	frames, err := renderer.NewSVGFrames(opts.framesDir, opts.frameEvery, size, cfg, clock.Now)
	if err != nil {
		return err
	}
	if err := sys.Start(frames); err != nil {
		return err
	}
	defer sys.Stop()

	maxTicks := opts.maxTicks
	if maxTicks <= 0 {
		maxTicks = 600
	}
	for !reachedMax(sys, maxTicks) {
		clock.Advance(cfg.Derived.FrameDuration)
		loop.Step()
		// Keep offline output deterministic: fetches land on the next frame
		if sys.InFlight() > 0 {
			sys.Wait()
		}
		if err := frames.Frame(); err != nil {
			return err
		}
	}
	opts.logger.Info("frames written", "dir", opts.framesDir, "count", frames.Written(), "ticks", sys.Tick())
	return nil
}

func meanProgress(ps []effect.ParticleState) float64 {
	if len(ps) == 0 {
		return 0
	}
	var sum float64
	for _, p := range ps {
		sum += p.Progress
	}
	return sum / float64(len(ps))
}

// gradientSwatches samples each gradient at five evenly spaced stops.
func gradientSwatches(gs []systems.Gradient) [][]rl.Color {
	out := make([][]rl.Color, 0, len(gs))
	for _, g := range gs {
		row := make([]rl.Color, 0, 5)
		for i := 0; i <= 4; i++ {
			c, err := g.Sample(float64(i) * 25)
			if err != nil {
				continue
			}
			r, gr, b := c.Clamped().RGB255()
			row = append(row, rl.NewColor(r, gr, b, 255))
		}
		out = append(out, row)
	}
	return out
}
