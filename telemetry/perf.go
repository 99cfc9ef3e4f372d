package telemetry

import (
	"log/slog"
	"time"
)

// Phase names for one effect tick.
const (
	PhaseUpdate    = "update"
	PhaseCleanup   = "cleanup"
	PhaseSpawn     = "spawn"
	PhaseMerge     = "merge"
	PhaseTelemetry = "telemetry"
)

var phases = []string{PhaseUpdate, PhaseCleanup, PhaseSpawn, PhaseMerge, PhaseTelemetry}

// PerfSample holds timing data for a single tick.
type PerfSample struct {
	TickDuration time.Duration
	Phases       map[string]time.Duration
}

// PerfCollector tracks tick timing over a rolling window.
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	tickStart     time.Time
	phaseStart    time.Time
	lastPhase     string
}

// NewPerfCollector creates a performance collector averaging over windowSize ticks.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// StartTick begins timing a new tick.
func (p *PerfCollector) StartTick() {
	p.tickStart = time.Now()
	p.currentPhases = make(map[string]time.Duration, len(phases))
	p.lastPhase = ""
}

// StartPhase ends the running phase, if any, and begins timing phase.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndTick finishes timing the current tick and records the sample.
func (p *PerfCollector) EndTick() {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}

	p.samples[p.writeIndex] = PerfSample{
		TickDuration: now.Sub(p.tickStart),
		Phases:       p.currentPhases,
	}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	AvgTickDuration time.Duration
	MaxTickDuration time.Duration
	PhaseAvg        map[string]time.Duration
	Samples         int
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	stats := PerfStats{
		PhaseAvg: make(map[string]time.Duration, len(phases)),
		Samples:  p.sampleCount,
	}
	if p.sampleCount == 0 {
		return stats
	}

	var total time.Duration
	sums := make(map[string]time.Duration, len(phases))
	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		total += s.TickDuration
		if s.TickDuration > stats.MaxTickDuration {
			stats.MaxTickDuration = s.TickDuration
		}
		for phase, d := range s.Phases {
			sums[phase] += d
		}
	}

	n := time.Duration(p.sampleCount)
	stats.AvgTickDuration = total / n
	for phase, sum := range sums {
		stats.PhaseAvg[phase] = sum / n
	}
	return stats
}

// LogStats logs performance statistics.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_tick_us", s.AvgTickDuration.Microseconds(),
		"max_tick_us", s.MaxTickDuration.Microseconds(),
		"samples", s.Samples,
	}
	for _, phase := range phases {
		if d, ok := s.PhaseAvg[phase]; ok {
			attrs = append(attrs, phase+"_us", d.Microseconds())
		}
	}
	slog.Info("perf", attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	WindowEnd   uint64 `csv:"window_end"`
	AvgTickUS   int64  `csv:"avg_tick_us"`
	MaxTickUS   int64  `csv:"max_tick_us"`
	UpdateUS    int64  `csv:"update_us"`
	CleanupUS   int64  `csv:"cleanup_us"`
	SpawnUS     int64  `csv:"spawn_us"`
	MergeUS     int64  `csv:"merge_us"`
	TelemetryUS int64  `csv:"telemetry_us"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(windowEnd uint64) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:   windowEnd,
		AvgTickUS:   s.AvgTickDuration.Microseconds(),
		MaxTickUS:   s.MaxTickDuration.Microseconds(),
		UpdateUS:    s.PhaseAvg[PhaseUpdate].Microseconds(),
		CleanupUS:   s.PhaseAvg[PhaseCleanup].Microseconds(),
		SpawnUS:     s.PhaseAvg[PhaseSpawn].Microseconds(),
		MergeUS:     s.PhaseAvg[PhaseMerge].Microseconds(),
		TelemetryUS: s.PhaseAvg[PhaseTelemetry].Microseconds(),
	}
}
