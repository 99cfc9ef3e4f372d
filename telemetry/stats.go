package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a stats window.
type WindowStats struct {
	WindowStartTick uint64  `csv:"-"`
	WindowEndTick   uint64  `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Population at window end
	Active   int `csv:"active"`
	InFlight int `csv:"in_flight"`

	// Events during window
	Spawned         int `csv:"spawned"`
	RemovedProgress int `csv:"removed_progress"`
	RemovedBounds   int `csv:"removed_bounds"`
	Cleared         int `csv:"cleared"`
	FetchFailures   int `csv:"fetch_failures"`
	DroppedLate     int `csv:"dropped_late"`
	Resizes         int `csv:"resizes"`
	Hides           int `csv:"hides"`

	// Distributions sampled at window end
	ProgressMean float64 `csv:"progress_mean"`
	ProgressP10  float64 `csv:"progress_p10"`
	ProgressP50  float64 `csv:"progress_p50"`
	ProgressP90  float64 `csv:"progress_p90"`
	OpacityMean  float64 `csv:"opacity_mean"`
	OpacityStd   float64 `csv:"opacity_std"`
}

// Summary is the mean, standard deviation and deciles of a sample.
type Summary struct {
	Mean, Std     float64
	P10, P50, P90 float64
}

// Summarize computes a Summary. Returns zeros for an empty sample.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean, std := stat.PopMeanStdDev(sorted, nil)
	return Summary{
		Mean: mean,
		Std:  std,
		P10:  stat.Quantile(0.10, stat.LinInterp, sorted, nil),
		P50:  stat.Quantile(0.50, stat.LinInterp, sorted, nil),
		P90:  stat.Quantile(0.90, stat.LinInterp, sorted, nil),
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("window_start", s.WindowStartTick),
		slog.Uint64("window_end", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("active", s.Active),
		slog.Int("in_flight", s.InFlight),
		slog.Int("spawned", s.Spawned),
		slog.Int("removed_progress", s.RemovedProgress),
		slog.Int("removed_bounds", s.RemovedBounds),
		slog.Int("cleared", s.Cleared),
		slog.Int("fetch_failures", s.FetchFailures),
		slog.Int("dropped_late", s.DroppedLate),
		slog.Int("resizes", s.Resizes),
		slog.Int("hides", s.Hides),
		slog.Float64("progress_mean", s.ProgressMean),
		slog.Float64("progress_p50", s.ProgressP50),
		slog.Float64("opacity_mean", s.OpacityMean),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats", "window", s)
}
