package dirlife

import (
	"context"
	"log/slog"
	"time"

	"github.com/omdev04/NodePilot-sub002/internal/metrics"
)

// Sweeper runs Sweep on a fixed interval, independent of request traffic.
type Sweeper struct {
	manager  *Manager
	baseDir  string
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewSweeper constructs a sweeper for the given base directory.
func NewSweeper(manager *Manager, baseDir string, interval time.Duration, logger *slog.Logger, m *metrics.Metrics) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &Sweeper{
		manager:  manager,
		baseDir:  baseDir,
		interval: interval,
		logger:   logger.With("component", "sweeper"),
		metrics:  m,
	}
}

// Run executes sweep passes until the context is cancelled. Each attempt
// holds no lock beyond a single directory's removal, so a pass never starves
// request-serving mutations.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pass(ctx)
		}
	}
}

func (s *Sweeper) pass(ctx context.Context) {
	result := s.manager.Sweep(ctx, s.baseDir)
	s.metrics.SweepPasses.Inc()
	s.metrics.SweepCleaned.Add(float64(len(result.Cleaned)))
	s.metrics.SweepLocked.Add(float64(len(result.StillLocked)))
	if len(result.Cleaned) > 0 || len(result.StillLocked) > 0 {
		s.logger.Info("sweep pass finished",
			"cleaned", len(result.Cleaned),
			"still_locked", result.StillLocked,
		)
	}
}
