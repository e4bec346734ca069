package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/opsmesh/watchtower-backend/logger"
)

// ReportScheduler regenerates the system health report on a fixed
// interval so a report exists even when no errors are flowing.
type ReportScheduler struct {
	monitor  *HealthMonitor
	interval time.Duration
	log      *zap.SugaredLogger
}

// NewReportScheduler creates a scheduler; intervals of zero or less fall
// back to 5 minutes.
func NewReportScheduler(monitor *HealthMonitor, interval time.Duration) *ReportScheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &ReportScheduler{
		monitor:  monitor,
		interval: interval,
		log:      logger.GetLogger(),
	}
}

// Start launches the ticking loop on its own goroutine and returns
// immediately. The loop stops when the context is canceled.
func (s *ReportScheduler) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *ReportScheduler) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Infow("Health report scheduler started", "interval", s.interval)

	for {
		select {
		case <-ticker.C:
			report, err := s.monitor.GetSystemHealthReport(ctx)
			if err != nil {
				s.log.Errorw("Scheduled health report failed", "error", err)
				continue
			}
			if s.monitor.HasCriticalIssues(ctx) {
				s.log.Warnw("Critical issues present in the last hour",
					"overall", report.Overall)
			}

		case <-ctx.Done():
			s.log.Info("Health report scheduler stopped")
			return
		}
	}
}
