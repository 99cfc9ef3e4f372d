package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/pthm-cable/fallingobjects/assets"
	"github.com/pthm-cable/fallingobjects/config"
	"github.com/pthm-cable/fallingobjects/effect"
	"github.com/pthm-cable/fallingobjects/telemetry"
)

func main() {
	os.Exit(runMain(os.Args[1:], os.Stdout))
}

// runMain parses args, runs the chosen backend and returns the process exit
// code. Deferred cleanup runs before main exits.
func runMain(args []string, stdout io.Writer) int {
	// CLI flags
	fs := flag.NewFlagSet("fallingobjects", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config.yaml (empty = use defaults)")
	backend := fs.String("backend", "canvas", "Rendering backend: canvas, terminal or svg")
	assetsRoot := fs.String("assets-root", "", "Directory relative asset paths resolve against")
	logStats := fs.Bool("log-stats", false, "Output stats via slog")
	logFile := fs.String("log-file", "fallingobjects.log", "Log destination for the terminal backend")
	statsWindow := fs.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	outputDir := fs.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	framesDir := fs.String("frames-dir", "frames", "Output directory for the svg backend")
	frameEvery := fs.Int("frame-every", 1, "Write every Nth frame with the svg backend")
	seed := fs.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := fs.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited; svg defaults to 600)")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	// The terminal backend owns stdout
	logOut := stdout
	if *backend == "terminal" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			slog.Error("failed to open log file", "path", *logFile, "error", err)
			return 1
		}
		defer f.Close()
		logOut = f
	}
	logger := slog.New(slog.NewJSONHandler(logOut, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return 1
	}
	if *statsWindow > 0 {
		cfg.Telemetry.StatsWindow = *statsWindow
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	if err := run(cfg, runOptions{
		backend:    *backend,
		assetsRoot: *assetsRoot,
		logStats:   *logStats,
		outputDir:  *outputDir,
		framesDir:  *framesDir,
		frameEvery: *frameEvery,
		seed:       rngSeed,
		maxTicks:   *maxTicks,
		logger:     logger,
	}); err != nil {
		logger.Error("run failed", "error", err)
		return 1
	}
	return 0
}

type runOptions struct {
	backend    string
	assetsRoot string
	logStats   bool
	outputDir  string
	framesDir  string
	frameEvery int
	seed       int64
	maxTicks   int
	logger     *slog.Logger
}

// run wires the effect to its collaborators and drives the chosen backend.
func run(cfg *config.Config, opts runOptions) error {
	logger := opts.logger

	output, err := telemetry.NewOutputManager(opts.outputDir)
	if err != nil {
		return err
	}
	defer output.Close()
	if err := output.WriteConfig(cfg); err != nil {
		return fmt.Errorf("writing config snapshot: %w", err)
	}

	// The svg backend renders offline frames against simulated time
	var clock effect.Clock = effect.RealClock{}
	var manual *effect.ManualClock
	if opts.backend == "svg" {
		manual = effect.NewManualClock(time.Unix(0, 0))
		clock = manual
	}
	loop := effect.NewLoop(clock)

	windowTicks := cfg.StatsWindowTicks()
	sys, err := effect.New(effect.Options{
		Config:    cfg,
		Source:    assets.NewSource(opts.assetsRoot),
		Gradients: assets.ParseGradients(cfg.Gradients, logger),
		Loop:      loop,
		Rand:      rand.New(rand.NewSource(opts.seed)),
		Logger:    logger,
		Collector: telemetry.NewCollector(windowTicks, cfg.Derived.FrameDuration),
		Perf:      telemetry.NewPerfCollector(windowTicks),
		Output:    output,
		LogStats:  opts.logStats,
	})
	if err != nil {
		return err
	}
	defer sys.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := sys.Preload(ctx); err != nil {
		// Missing assets are fetched again on demand
		logger.Warn("preload incomplete", "error", err)
	}
	cancel()

	logger.Info("starting effect",
		"backend", opts.backend,
		"seed", opts.seed,
		"max_ticks", opts.maxTicks,
		"output_dir", output.Dir(),
	)

	switch opts.backend {
	case "canvas":
		return runCanvas(cfg, sys, loop, opts)
	case "terminal":
		return runTerminal(cfg, sys, loop, opts)
	case "svg":
		return runSVG(cfg, sys, loop, manual, opts)
	default:
		return fmt.Errorf("unknown backend %q", opts.backend)
	}
}

func ctxWithInterrupt() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}
