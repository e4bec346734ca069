package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/opsmesh/watchtower-backend/logger"
	"github.com/opsmesh/watchtower-backend/store"
	"github.com/opsmesh/watchtower-backend/types"
)

// criticalWindow is the lookback used by HasCriticalIssues and for the
// error summary attached to health reports.
const criticalWindow = time.Hour

// HealthMonitor maintains per-component health and assembles system-wide
// health reports.
type HealthMonitor struct {
	health  store.HealthStore
	errors  store.ErrorStore
	tracker *ErrorTracker
	log     *zap.SugaredLogger
}

// NewHealthMonitor constructs a monitor over the health and error stores.
// The tracker supplies the 1-hour pattern summary embedded in reports.
func NewHealthMonitor(healthStore store.HealthStore, errorStore store.ErrorStore, tracker *ErrorTracker) *HealthMonitor {
	return &HealthMonitor{
		health:  healthStore,
		errors:  errorStore,
		tracker: tracker,
		log:     logger.GetLogger(),
	}
}

// UpdateComponentHealth upserts one component's health. Merge semantics
// and the append-only status history live in the store layer.
func (m *HealthMonitor) UpdateComponentHealth(ctx context.Context, component string, status types.HealthStatus, metrics map[string]interface{}) error {
	if err := m.health.UpsertComponentHealth(ctx, component, status, metrics); err != nil {
		m.log.Errorw("Failed to update component health",
			"error", err, "component", component, "status", status)
		return err
	}
	m.log.Debugw("Component health updated", "component", component, "status", status)
	return nil
}

// GetSystemHealthReport reads all component health entries, folds them
// into the worst-case overall status, attaches a 1-hour error pattern
// summary and persists the resulting report. A failure to persist is
// logged but the assembled report is still returned; a failure to read
// component health is fatal to report generation.
func (m *HealthMonitor) GetSystemHealthReport(ctx context.Context) (*types.HealthReport, error) {
	components, err := m.health.ListComponentHealth(ctx)
	if err != nil {
		m.log.Errorw("Failed to read component health for report", "error", err)
		return nil, err
	}

	statuses := make([]types.HealthStatus, 0, len(components))
	snapshot := make(map[string]types.HealthStatus, len(components))
	for _, component := range components {
		statuses = append(statuses, component.Status)
		snapshot[component.Component] = component.Status
	}

	report := &types.HealthReport{
		Overall:     types.WorstOf(statuses),
		Components:  snapshot,
		GeneratedAt: time.Now().UTC(),
	}

	summary, err := m.tracker.TrackErrorPatterns(ctx, 1, WindowHours)
	if err != nil {
		// The report is still useful without the summary.
		m.log.Warnw("Health report generated without error summary", "error", err)
	} else {
		report.ErrorSummary = summary
	}

	if err := m.health.InsertHealthReport(ctx, report); err != nil {
		m.log.Errorw("Failed to persist health report", "error", err)
	}

	m.log.Infow("System health report generated",
		"overall", report.Overall, "components", len(snapshot))
	return report, nil
}

// HasCriticalIssues reports whether any critical-severity error was
// recorded within the last hour. Store failures degrade to false with a
// diagnostic log entry; this check sits on alerting paths that must not
// themselves fail.
func (m *HealthMonitor) HasCriticalIssues(ctx context.Context) bool {
	since := time.Now().UTC().Add(-criticalWindow)
	count, err := m.errors.CountBySeveritySince(ctx, types.SeverityCritical, since)
	if err != nil {
		m.log.Errorw("Failed to count critical errors", "error", err)
		return false
	}
	return count > 0
}
