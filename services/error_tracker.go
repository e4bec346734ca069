package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/opsmesh/watchtower-backend/logger"
	"github.com/opsmesh/watchtower-backend/store"
	"github.com/opsmesh/watchtower-backend/types"
)

// ErrorTracker categorizes, persists and publishes reported errors, and
// triggers recovery for critical ones. It is deliberately the most
// forgiving component in the system: persistence and publish failures
// are swallowed into the diagnostic log so tracking an error can never
// take a caller down with it.
type ErrorTracker struct {
	store     store.ErrorStore
	publisher types.EventPublisher
	recovery  *RecoveryService
	log       *zap.SugaredLogger
	metrics   *trackerMetrics
}

type trackerMetrics struct {
	loggedErrors  *prometheus.CounterVec
	droppedErrors prometheus.Counter
}

var (
	trackerMetricsOnce sync.Once
	trackerMetricsInst *trackerMetrics
)

func initTrackerMetrics() *trackerMetrics {
	trackerMetricsOnce.Do(func() {
		trackerMetricsInst = &trackerMetrics{
			loggedErrors: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "watchtower_errors_logged_total",
				Help: "Total number of error records logged",
			}, []string{"category", "severity"}),
			droppedErrors: promauto.NewCounter(prometheus.CounterOpts{
				Name: "watchtower_errors_dropped_total",
				Help: "Total number of error reports lost to persistence or publish failures",
			}),
		}
	})
	return trackerMetricsInst
}

// NewErrorTracker constructs a tracker over its collaborators. The
// recovery service may be nil, in which case critical errors are logged
// and published but no recovery is dispatched.
func NewErrorTracker(errorStore store.ErrorStore, publisher types.EventPublisher, recovery *RecoveryService) *ErrorTracker {
	return &ErrorTracker{
		store:     errorStore,
		publisher: publisher,
		recovery:  recovery,
		log:       logger.GetLogger(),
		metrics:   initTrackerMetrics(),
	}
}

// LogError categorizes and records one reported failure. The sequence is
// strictly linear: persist, publish to the stats channel, publish to the
// critical channel (high/critical only), dispatch recovery (critical
// only). Any persistence or publish failure is written to the diagnostic
// log and a nil UUID is returned instead of an error; callers must treat
// uuid.Nil as "accepted but not stored".
func (t *ErrorTracker) LogError(ctx context.Context, report types.ErrorReport) uuid.UUID {
	category, severity := Categorize(report.Message, report.Component, report.Stack)

	record := &types.ErrorRecord{
		Message:   report.Message,
		Stack:     report.Stack,
		Component: report.Component,
		Category:  category,
		Severity:  severity,
		Context:   report.Context,
	}

	if err := t.store.InsertError(ctx, record); err != nil {
		t.metrics.droppedErrors.Inc()
		t.log.Errorw("Failed to persist error record, report dropped",
			"error", err,
			"component", report.Component,
			"category", category,
			"severity", severity,
			"message", report.Message,
		)
		return uuid.Nil
	}

	t.metrics.loggedErrors.WithLabelValues(string(category), string(severity)).Inc()

	event := types.ErrorEvent{
		ID:        record.ID.String(),
		Message:   record.Message,
		Component: record.Component,
		Category:  record.Category,
		Severity:  record.Severity,
		Context:   record.Context,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if err := t.publisher.PublishStats(ctx, event); err != nil {
		t.metrics.droppedErrors.Inc()
		t.log.Errorw("Failed to publish error stats event",
			"error", err, "errorID", record.ID)
		return uuid.Nil
	}

	if severity.AtOrAbove(types.SeverityHigh) {
		if err := t.publisher.PublishCritical(ctx, event); err != nil {
			t.metrics.droppedErrors.Inc()
			t.log.Errorw("Failed to publish critical error event",
				"error", err, "errorID", record.ID)
			return uuid.Nil
		}
	}

	if severity == types.SeverityCritical && t.recovery != nil {
		t.recovery.AttemptRecovery(ctx, record)
	}

	return record.ID
}

// TrackErrorPatterns aggregates errors inside a lookback window into
// counts by category, component and severity plus the top simplified
// messages. Unlike everything else on the tracker this is operator
// facing, so failures are logged and returned rather than swallowed.
func (t *ErrorTracker) TrackErrorPatterns(ctx context.Context, quantity int, unit WindowUnit) (*types.ErrorPatternSummary, error) {
	window, err := WindowDuration(quantity, unit)
	if err != nil {
		t.log.Errorw("Invalid pattern analysis window", "error", err,
			"quantity", quantity, "unit", unit)
		return nil, err
	}

	since := time.Now().UTC().Add(-window)
	records, err := t.store.ListErrorsSince(ctx, since)
	if err != nil {
		t.log.Errorw("Failed to load error records for pattern analysis",
			"error", err, "since", since)
		return nil, err
	}

	return summarizePatterns(records, since), nil
}

// RecentErrors lists up to limit recent records with optional severity
// and category filters. Returns an empty slice on store failure.
func (t *ErrorTracker) RecentErrors(ctx context.Context, severity types.Severity, category types.Category, limit int) []types.ErrorRecord {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	records, err := t.store.ListRecentErrors(ctx, severity, category, limit)
	if err != nil {
		t.log.Errorw("Failed to list recent error records", "error", err)
		return []types.ErrorRecord{}
	}
	return records
}
