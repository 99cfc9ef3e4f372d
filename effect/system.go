package effect

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/fallingobjects/assets"
	"github.com/pthm-cable/fallingobjects/components"
	"github.com/pthm-cable/fallingobjects/config"
	"github.com/pthm-cable/fallingobjects/systems"
	"github.com/pthm-cable/fallingobjects/telemetry"
)

// Options configures a System.
type Options struct {
	Config    *config.Config
	Source    AssetSource
	Gradients []systems.Gradient
	Loop      *Loop
	Rand      *rand.Rand   // nil = seeded from 42
	Logger    *slog.Logger // nil = slog.Default()

	// Telemetry, all optional
	Collector     *telemetry.Collector
	Perf          *telemetry.PerfCollector
	Output        *telemetry.OutputManager
	LogStats      bool
	StatsCallback func(telemetry.WindowStats)
}

// System owns the active particle set and drives it one frame at a time.
// All methods must be called from the goroutine that steps the Loop.
type System struct {
	cfg     *config.Config
	loop    *Loop
	rng     *rand.Rand
	logger  *slog.Logger
	spawner *systems.SpawnController

	assets    []string
	gradients []systems.Gradient

	params systems.UpdateParams
	geo    systems.GeometryParams

	store    *store
	loader   *loader
	viewport *Viewport

	surface     Surface
	unsubscribe func()

	ctx    context.Context
	cancel context.CancelFunc
	epoch  uint64

	nextID ParticleID
	frame  Handle
	tick   uint64

	started  bool
	stopped  bool
	paused   bool // by the caller
	hidden   bool // below the visibility threshold
	resizing bool // waiting for resize events to settle

	warnedGradients bool

	collector     *telemetry.Collector
	perf          *telemetry.PerfCollector
	output        *telemetry.OutputManager
	logStats      bool
	statsCallback func(telemetry.WindowStats)
	perfLogTicks  uint64
}

// New creates a stopped-until-started system.
func New(opts Options) (*System, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("creating effect: %w", config.ErrInvalid)
	}
	if len(opts.Config.Assets) == 0 {
		return nil, ErrEmptyAssetPool
	}
	if opts.Source == nil {
		return nil, fmt.Errorf("creating effect: nil asset source")
	}
	cfg := opts.Config

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(42))
	}
	loop := opts.Loop
	if loop == nil {
		loop = NewLoop(RealClock{})
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &System{
		cfg:     cfg,
		loop:    loop,
		rng:     rng,
		logger:  logger,
		spawner: systems.NewSpawnController(rng, cfg.Spawn.LowChance, cfg.Spawn.HighChance, systems.ParseSpawnPolicy(cfg.Spawn.Policy)),
		assets:  append([]string(nil), cfg.Assets...),
		params: systems.UpdateParams{
			Policy:         systems.ParseProgressPolicy(cfg.Effect.ProgressPolicy),
			InitialOpacity: cfg.Effect.InitialOpacity,
			EndOpacity:     cfg.Effect.EndOpacity,
		},
		geo: systems.GeometryParams{
			EndPosition: cfg.Effect.EndPosition,
			Delta:       cfg.Effect.EndPositionDelta,
			OutViewport: cfg.Effect.OutViewport,
		},
		store:         newStore(),
		loader:        newLoader(opts.Source, 2*cfg.Effect.MaxCount, logger),
		ctx:           ctx,
		cancel:        cancel,
		collector:     opts.Collector,
		perf:          opts.Perf,
		output:        opts.Output,
		logStats:      opts.LogStats,
		statsCallback: opts.StatsCallback,
	}
	s.SetGradients(opts.Gradients)
	s.viewport = newViewport(s, cfg.Viewport.Threshold, cfg.Viewport.SettleDelay)
	if cfg.Telemetry.PerfLogSec > 0 && cfg.Screen.TargetFPS > 0 {
		s.perfLogTicks = uint64(cfg.Telemetry.PerfLogSec * float64(cfg.Screen.TargetFPS))
	}
	return s, nil
}

// SetGradients replaces the gradient pool. An empty pool disables spawning.
func (s *System) SetGradients(g []systems.Gradient) {
	s.gradients = append([]systems.Gradient(nil), g...)
	s.warnedGradients = false
}

// SetSpawnChances changes the per-frame spawn chances below min_count and
// between min_count and max_count.
func (s *System) SetSpawnChances(low, high float64) {
	s.spawner.LowChance = low
	s.spawner.HighChance = high
}

// SpawnChances returns the current spawn chances.
func (s *System) SpawnChances() (low, high float64) {
	return s.spawner.LowChance, s.spawner.HighChance
}

// Suspended reports whether visibility or a resize is holding frames back.
func (s *System) Suspended() bool { return s.hidden || s.resizing }

// Gradients returns the gradient pool.
func (s *System) Gradients() []systems.Gradient { return s.gradients }

// Preload fetches every configured asset into the cache so spawns
// materialize in the tick that decides them.
func (s *System) Preload(ctx context.Context) error {
	return s.loader.preload(ctx, s.assets)
}

// Viewport returns the coordinator handling visibility and resize signals,
// for drivers whose surface does not implement Signals.
func (s *System) Viewport() *Viewport {
	return s.viewport
}

// Start binds the surface and begins scheduling frames. Calling Start again
// while running does not schedule a second frame; it also clears a caller
// pause. The surface of the first call is kept.
func (s *System) Start(surface Surface) error {
	if s.stopped {
		return ErrStopped
	}
	if !s.started {
		if surface == nil {
			return fmt.Errorf("starting effect: nil surface")
		}
		s.surface = surface
		if sig, ok := surface.(Signals); ok {
			s.unsubscribe = sig.Subscribe(s.viewport)
		}
		s.started = true
		s.logger.Info("effect started", "assets", len(s.assets), "gradients", len(s.gradients))
	}
	s.paused = false
	s.schedule()
	return nil
}

// Pause cancels the pending frame and keeps the particles. Idempotent.
func (s *System) Pause() {
	if s.stopped {
		return
	}
	s.paused = true
	s.cancelFrame()
}

// Resume clears a caller pause and schedules a frame if nothing else
// suspends the system.
func (s *System) Resume() {
	if s.stopped {
		return
	}
	s.paused = false
	s.schedule()
}

// Stop permanently halts the system: pending frames and timers are
// cancelled, in-flight fetches abandoned, and every particle detached.
// Idempotent.
func (s *System) Stop() {
	if s.stopped {
		return
	}
	s.stopped = true
	s.cancelFrame()
	s.viewport.stop()
	s.cancel()
	s.epoch++
	s.loader.abandon()
	s.clear(telemetry.RemovedCleared)
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.logger.Info("effect stopped", "tick", s.tick)
}

// Count returns the number of active particles.
func (s *System) Count() int { return s.store.len() }

// InFlight returns the number of spawns waiting on an asset fetch.
func (s *System) InFlight() int { return s.loader.inFlight(s.epoch) }

// Running reports whether frames are being scheduled.
func (s *System) Running() bool { return s.running() }

// Stopped reports whether Stop was called.
func (s *System) Stopped() bool { return s.stopped }

// Paused reports whether the caller paused the system.
func (s *System) Paused() bool { return s.paused }

// Tick returns the number of frames processed.
func (s *System) Tick() uint64 { return s.tick }

// Particles returns a snapshot of the active particles in insertion order.
func (s *System) Particles() []ParticleState {
	out := make([]ParticleState, 0, s.store.len())
	for _, e := range s.store.order {
		p := s.store.get(e)
		out = append(out, ParticleState{
			ID:       ParticleID(p.id.ID),
			Pos:      p.pos.Vec,
			Progress: p.path.Progress,
			Opacity:  p.app.Opacity,
		})
	}
	return out
}

// Wait blocks until all background fetches have returned. Completed
// spawns are merged on the next frame.
func (s *System) Wait() {
	s.loader.wait()
}

func (s *System) running() bool {
	return s.started && !s.stopped && !s.paused && !s.hidden && !s.resizing
}

// schedule requests a frame unless one is already pending.
func (s *System) schedule() {
	if !s.running() || s.frame != 0 {
		return
	}
	s.frame = s.loop.RequestFrame(s.onFrame)
}

func (s *System) cancelFrame() {
	if s.frame == 0 {
		return
	}
	s.loop.Cancel(s.frame)
	s.frame = 0
}

func (s *System) onFrame() {
	s.frame = 0
	s.step()
	s.schedule()
}

// step runs one frame: update, removal, merge, spawn, telemetry.
func (s *System) step() {
	if !s.running() {
		return
	}
	s.tick++
	if s.perf != nil {
		s.perf.StartTick()
	}

	container := s.surface.Size()
	s.params.Container = container

	s.startPhase(telemetry.PhaseUpdate)
	dead := s.update()

	s.startPhase(telemetry.PhaseCleanup)
	s.store.remove(dead)

	// Fetches completed since the last frame merge before new decisions,
	// so a fetch never lands in the frame that started it.
	s.startPhase(telemetry.PhaseMerge)
	s.merge(container)

	s.startPhase(telemetry.PhaseSpawn)
	s.spawn(container)

	s.startPhase(telemetry.PhaseTelemetry)
	s.flushTelemetry()

	if s.perf != nil {
		s.perf.EndTick()
	}
}

func (s *System) startPhase(phase string) {
	if s.perf != nil {
		s.perf.StartPhase(phase)
	}
}

// update advances every particle in insertion order and returns those that
// reached a terminal state. They are detached here and removed in one batch.
func (s *System) update() []ecs.Entity {
	var dead []ecs.Entity
	for _, e := range s.store.order {
		p := s.store.get(e)
		st := systems.UpdateParticle(s.params, p.pos, p.motion, p.throttle, p.path, p.app)

		if st.Removed {
			cause := telemetry.RemovedBounds
			if st.Progress >= 1 {
				cause = telemetry.RemovedProgress
			}
			s.surface.Detach(ParticleID(p.id.ID))
			s.recordRemoval(cause)
			dead = append(dead, e)
			continue
		}
		if st.Updated {
			s.surface.Update(ParticleID(p.id.ID), s.visual(p))
		}
	}
	return dead
}

func (s *System) visual(p particle) Visual {
	return Visual{
		Pos:      p.pos.Vec,
		Width:    p.app.Width,
		Height:   p.app.Height,
		Opacity:  p.app.Opacity,
		Color:    s.color(p.app.Gradient, p.path.Progress),
		Progress: p.path.Progress,
	}
}

func (s *System) color(gradient int, progress float64) colorful.Color {
	if len(s.gradients) == 0 {
		return systems.DefaultColor
	}
	c, err := s.gradients[gradient%len(s.gradients)].Sample(progress * 100)
	if err != nil {
		return systems.DefaultColor
	}
	return c
}

// spawn makes this frame's spawn decisions. Cached assets materialize now;
// the rest are fetched in the background.
func (s *System) spawn(container systems.Size) {
	if len(s.gradients) == 0 {
		if !s.warnedGradients {
			s.logger.Warn("spawning disabled", "error", ErrEmptyGradientPool)
			s.warnedGradients = true
		}
		return
	}

	current := s.store.len() + s.loader.inFlight(s.epoch)
	n := s.spawner.DecideAll(current, s.cfg.Effect.MinCount, s.cfg.Effect.MaxCount)
	for i := 0; i < n; i++ {
		asset := s.rng.Intn(len(s.assets))
		url := s.assets[asset]
		if sprite, ok := s.loader.lookup(url); ok {
			s.materialize(asset, sprite, container)
			continue
		}
		s.loader.fetch(s.ctx, asset, url, s.epoch)
	}
}

// merge materializes completed background fetches. Results from before the
// last stop or resize, or arriving at a full population, are dropped.
func (s *System) merge(container systems.Size) {
	s.loader.drain(func(r fetchResult) {
		if r.err != nil {
			s.logger.Warn("asset fetch failed", "url", r.url, "error", r.err)
			s.recordFetchFailure()
			return
		}
		if r.epoch != s.epoch || s.store.len() >= s.cfg.Effect.MaxCount {
			s.recordDroppedLate()
			return
		}
		s.materialize(r.asset, r.sprite, container)
	})
}

// materialize creates a particle just outside the container and attaches it.
func (s *System) materialize(asset int, sprite *assets.Sprite, container systems.Size) {
	eff := &s.cfg.Effect
	objW := eff.ObjectWidth.Resolve(container.W, container.H)
	objH := eff.ObjectHeight.Resolve(container.W, container.H)
	angle := s.cfg.Derived.MoveAngleRad

	start := systems.SpawnPosition(s.rng, container, objW, objH)
	step := eff.StepSize
	if step <= 0 {
		step = systems.SampleStep(s.rng, eff.Speed[0], eff.Speed[1])
	}

	s.nextID++
	id := s.nextID
	p := particle{
		id:       &components.Identity{ID: uint64(id)},
		pos:      &components.Position{Vec: start},
		motion:   ptr(systems.NewMotion(step, angle)),
		throttle: &components.Throttle{Delay: systems.SampleDelay(s.rng, eff.Delay[0], eff.Delay[1])},
		path:     ptr(systems.PlanPath(s.rng, s.params.Policy, start, angle, container, s.geo)),
		app: &components.Appearance{
			Asset:    asset,
			Gradient: s.rng.Intn(len(s.gradients)),
			Width:    objW,
			Height:   objH,
			Opacity:  eff.InitialOpacity,
		},
	}

	if err := s.surface.Attach(id, sprite, s.visual(p)); err != nil {
		s.logger.Warn("attach failed", "id", id, "asset", sprite.URL, "error", err)
		s.recordFetchFailure()
		return
	}
	s.store.add(*p.id, *p.pos, *p.motion, *p.throttle, *p.path, *p.app)
	s.recordSpawn()
}

// clear detaches and removes every active particle.
func (s *System) clear(cause telemetry.RemovalCause) {
	s.store.clear(func(p particle) {
		if s.surface != nil {
			s.surface.Detach(ParticleID(p.id.ID))
		}
		s.recordRemoval(cause)
	})
}

// setHidden applies a visibility change.
func (s *System) setHidden(hidden bool) {
	if s.hidden == hidden {
		return
	}
	s.hidden = hidden
	if hidden {
		s.recordHide()
		s.cancelFrame()
		return
	}
	s.schedule()
}

// beginResize suspends the system and drops every particle; positions and
// paths were planned for the old container.
func (s *System) beginResize(size systems.Size) {
	if !s.resizing {
		s.resizing = true
		s.cancelFrame()
		s.epoch++
		s.clear(telemetry.RemovedCleared)
		s.recordResize()
	}
	if s.surface != nil {
		s.surface.Resize(size)
	}
}

// endResize lifts the resize suspension.
func (s *System) endResize() {
	if !s.resizing {
		return
	}
	s.resizing = false
	s.schedule()
}

func ptr[T any](v T) *T { return &v }
