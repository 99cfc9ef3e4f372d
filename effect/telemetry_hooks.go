package effect

import "github.com/pthm-cable/fallingobjects/telemetry"

// flushTelemetry checks if the stats window should be flushed.
func (s *System) flushTelemetry() {
	if s.perf != nil && s.logStats && s.perfLogTicks > 0 && s.tick%s.perfLogTicks == 0 {
		s.perf.Stats().LogStats()
	}
	if s.collector == nil || !s.collector.ShouldFlush(s.tick) {
		return
	}

	progress, opacity := s.sampleDistributions()
	stats := s.collector.Flush(s.tick, s.store.len(), s.loader.inFlight(s.epoch), progress, opacity)

	if s.statsCallback != nil {
		s.statsCallback(stats)
	}
	if s.logStats {
		stats.LogStats()
	}

	if s.output != nil {
		if err := s.output.WriteTelemetry(stats); err != nil {
			s.logger.Error("failed to write telemetry", "error", err)
		}
		if s.perf != nil {
			if err := s.output.WritePerf(s.perf.Stats(), stats.WindowEndTick); err != nil {
				s.logger.Error("failed to write perf", "error", err)
			}
		}
	}
}

// sampleDistributions collects progress and opacity of the active set.
func (s *System) sampleDistributions() (progress, opacity []float64) {
	progress = make([]float64, 0, s.store.len())
	opacity = make([]float64, 0, s.store.len())
	for _, e := range s.store.order {
		p := s.store.get(e)
		progress = append(progress, p.path.Progress)
		opacity = append(opacity, p.app.Opacity)
	}
	return progress, opacity
}

func (s *System) recordSpawn() {
	if s.collector != nil {
		s.collector.RecordSpawn()
	}
}

func (s *System) recordRemoval(cause telemetry.RemovalCause) {
	if s.collector != nil {
		s.collector.RecordRemoval(cause)
	}
}

func (s *System) recordFetchFailure() {
	if s.collector != nil {
		s.collector.RecordFetchFailure()
	}
}

func (s *System) recordDroppedLate() {
	if s.collector != nil {
		s.collector.RecordDroppedLate()
	}
}

func (s *System) recordResize() {
	if s.collector != nil {
		s.collector.RecordResize()
	}
}

func (s *System) recordHide() {
	if s.collector != nil {
		s.collector.RecordHide()
	}
}
