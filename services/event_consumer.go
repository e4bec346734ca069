package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/opsmesh/watchtower-backend/logger"
	"github.com/opsmesh/watchtower-backend/store"
	"github.com/opsmesh/watchtower-backend/types"
)

// EventConsumer subscribes to the error event channels and feeds them
// back into health tracking and recovery. Stats events update the
// originating component's health; critical events trigger recovery and a
// fresh system health report.
type EventConsumer struct {
	redisClient *redis.Client
	monitor     *HealthMonitor
	recovery    *RecoveryService
	errors      store.ErrorStore
	log         *zap.SugaredLogger
}

// NewEventConsumer constructs a consumer over the given collaborators.
func NewEventConsumer(redisClient *redis.Client, monitor *HealthMonitor, recovery *RecoveryService, errorStore store.ErrorStore) *EventConsumer {
	return &EventConsumer{
		redisClient: redisClient,
		monitor:     monitor,
		recovery:    recovery,
		errors:      errorStore,
		log:         logger.GetLogger(),
	}
}

// Start subscribes to both error channels and processes messages until
// the context is canceled. The processing loop runs on its own
// goroutine; Start returns once the subscription is established.
func (c *EventConsumer) Start(ctx context.Context) error {
	pubsub := c.redisClient.Subscribe(ctx, TopicErrorStats, TopicCriticalErrors)

	// Force the subscription to be established before returning so a
	// broken Redis connection surfaces at startup.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}

	go c.processMessages(ctx, pubsub)
	return nil
}

func (c *EventConsumer) processMessages(ctx context.Context, pubsub *redis.PubSub) {
	defer func() {
		if err := pubsub.Close(); err != nil {
			c.log.Warnw("Error closing Redis pubsub", "error", err)
		}
	}()

	ch := pubsub.Channel()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				c.log.Info("Error event channel closed")
				return
			}

			var event types.ErrorEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				c.log.Errorw("Failed to unmarshal error event",
					"error", err, "channel", msg.Channel, "payload", msg.Payload)
				continue
			}

			switch msg.Channel {
			case TopicErrorStats:
				c.handleStatsEvent(ctx, event)
			case TopicCriticalErrors:
				c.handleCriticalEvent(ctx, event)
			}

		case <-ctx.Done():
			c.log.Info("Event consumer stopped")
			return
		}
	}
}

// handleStatsEvent folds one error event into the health of the
// component it came from. The derived status is intentionally blunt:
// high/critical errors mark a component unhealthy, medium degrades it,
// low leaves it healthy.
func (c *EventConsumer) handleStatsEvent(ctx context.Context, event types.ErrorEvent) {
	if event.Component == "" {
		c.log.Warnw("Stats event without component, skipping", "errorID", event.ID)
		return
	}

	status := statusForSeverity(event.Severity)
	metrics := map[string]interface{}{
		"last_error_id":       event.ID,
		"last_error_category": string(event.Category),
		"last_error_severity": string(event.Severity),
		"last_error_at":       event.Timestamp,
	}

	if err := c.monitor.UpdateComponentHealth(ctx, event.Component, status, metrics); err != nil {
		c.log.Errorw("Failed to apply stats event to component health",
			"error", err, "component", event.Component)
	}
}

// handleCriticalEvent re-reads the full record and runs recovery for it,
// then regenerates the system health report so the dashboard reflects
// the incident immediately.
func (c *EventConsumer) handleCriticalEvent(ctx context.Context, event types.ErrorEvent) {
	id, err := uuid.Parse(event.ID)
	if err != nil {
		c.log.Errorw("Critical event carried an invalid error ID",
			"error", err, "errorID", event.ID)
		return
	}

	record, err := c.errors.GetError(ctx, id)
	if err != nil {
		c.log.Errorw("Failed to load error record for critical event",
			"error", err, "errorID", id)
		return
	}

	// LogError already dispatches recovery for critical severities; the
	// consumer only picks up high-severity events it should escalate.
	if record.Severity == types.SeverityHigh && record.RecoveryAttempts == 0 {
		c.recovery.AttemptRecovery(ctx, record)
	}

	if _, err := c.monitor.GetSystemHealthReport(ctx); err != nil {
		c.log.Errorw("Failed to regenerate health report after critical event",
			"error", err, "errorID", id)
	}
}

func statusForSeverity(severity types.Severity) types.HealthStatus {
	switch severity {
	case types.SeverityCritical, types.SeverityHigh:
		return types.HealthStatusUnhealthy
	case types.SeverityMedium:
		return types.HealthStatusDegraded
	default:
		return types.HealthStatusHealthy
	}
}
