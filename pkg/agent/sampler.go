package agent

import (
	"context"
	"time"

	"github.com/g4youu/MacCleaner/pkg/agent/broadcaster"
	"github.com/g4youu/MacCleaner/pkg/agent/store"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/logging"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/snapshot"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/types"
)

// pruneEvery bounds how often the sampler prunes old samples from the
// store. Pruning on every tick would churn Badger for nothing.
const pruneEvery = time.Hour

// Sampler collects telemetry on a fixed cadence, persists each sample
// and fans it out to subscribers.
type Sampler struct {
	reader      snapshot.Reader
	store       *store.Store
	broadcaster *broadcaster.Broadcaster
	interval    time.Duration
	retention   time.Duration
	log         *logging.Logger
}

// NewSampler creates a sampler. A zero or negative interval falls back
// to 5 seconds; retention zero disables pruning.
func NewSampler(reader snapshot.Reader, s *store.Store, b *broadcaster.Broadcaster, interval, retention time.Duration) *Sampler {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	return &Sampler{
		reader:      reader,
		store:       s,
		broadcaster: b,
		interval:    interval,
		retention:   retention,
		log:         logging.Get("agent"),
	}
}

// Run samples until the context is cancelled. The first sample is
// taken immediately so clients see data before the first tick.
func (s *Sampler) Run(ctx context.Context) {
	s.log.Info("sampler started", "interval", s.interval, "retention", s.retention)

	s.collect(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	lastPrune := time.Now()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sampler stopped")
			return

		case <-ticker.C:
			s.collect(ctx)

			if s.retention > 0 && time.Since(lastPrune) >= pruneEvery {
				s.prune()
				lastPrune = time.Now()
			}
		}
	}
}

// collect takes one sample, persists it and broadcasts it.
func (s *Sampler) collect(ctx context.Context) {
	sample := s.reader.Sample(ctx)

	if err := s.store.Append(sample); err != nil {
		s.log.Error("failed to persist sample", "error", err)
		// Still broadcast; live subscribers care about the reading even
		// when history is broken.
	}

	if s.broadcaster != nil {
		s.broadcaster.NotifySample(sample)
	}

	s.log.Debug("sample collected",
		"used_percent", sample.Memory.UsedPercent,
		"pressure", sample.Pressure.Level)
}

// prune removes samples older than the retention window.
func (s *Sampler) prune() {
	removed, err := s.store.Prune(s.retention)
	if err != nil {
		s.log.Error("failed to prune samples", "error", err)
		return
	}
	if removed > 0 {
		s.log.Info("pruned old samples", "removed", removed)
	}
}

// Latest returns the most recent persisted sample.
func (s *Sampler) Latest() (types.TelemetrySample, error) {
	return s.store.Latest()
}
