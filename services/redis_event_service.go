package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/opsmesh/watchtower-backend/logger"
	"github.com/opsmesh/watchtower-backend/types"
)

// Redis channels carrying error events. Every logged error goes to the
// stats topic; high and critical severities additionally go to the
// critical topic, always after the stats publish.
const (
	TopicErrorStats     = "watchtower:error-stats"
	TopicCriticalErrors = "watchtower:critical-errors"
)

// RedisEventService implements types.EventPublisher over Redis Pub/Sub.
type RedisEventService struct {
	redisClient    *redis.Client
	log            *zap.SugaredLogger
	metrics        *EventMetrics
	publishTimeout time.Duration
}

var _ types.EventPublisher = (*RedisEventService)(nil)

type EventMetrics struct {
	publishLatency prometheus.Histogram
	errorCount     prometheus.Counter
	eventCount     *prometheus.CounterVec
}

var (
	eventMetricsOnce sync.Once
	eventMetrics     *EventMetrics
)

// initEventMetrics registers the event metrics once for the process;
// promauto panics on duplicate registration.
func initEventMetrics() *EventMetrics {
	eventMetricsOnce.Do(func() {
		eventMetrics = newEventMetrics()
	})
	return eventMetrics
}

func newEventMetrics() *EventMetrics {
	return &EventMetrics{
		publishLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "watchtower_event_publish_duration_seconds",
			Help:    "Time taken to publish error events",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		errorCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watchtower_event_errors_total",
			Help: "Total number of event publishing failures",
		}),
		eventCount: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "watchtower_events_published_total",
			Help: "Total number of error events published",
		}, []string{"topic"}),
	}
}

// NewRedisEventService returns a new publisher over the given client.
func NewRedisEventService(redisClient *redis.Client, publishTimeout time.Duration) *RedisEventService {
	if publishTimeout <= 0 {
		publishTimeout = 5 * time.Second
	}
	return &RedisEventService{
		redisClient:    redisClient,
		log:            logger.GetLogger(),
		metrics:        initEventMetrics(),
		publishTimeout: publishTimeout,
	}
}

// PublishStats publishes an error event on the general stats channel.
func (r *RedisEventService) PublishStats(ctx context.Context, event types.ErrorEvent) error {
	return r.publish(ctx, TopicErrorStats, event)
}

// PublishCritical publishes an error event on the critical channel.
func (r *RedisEventService) PublishCritical(ctx context.Context, event types.ErrorEvent) error {
	return r.publish(ctx, TopicCriticalErrors, event)
}

func (r *RedisEventService) publish(ctx context.Context, topic string, event types.ErrorEvent) error {
	startTime := time.Now()
	defer func() {
		r.metrics.publishLatency.Observe(time.Since(startTime).Seconds())
	}()

	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	data, err := json.Marshal(event)
	if err != nil {
		r.metrics.errorCount.Inc()
		return fmt.Errorf("failed to marshal error event: %w", err)
	}

	r.log.Debugw("Publishing error event",
		"topic", topic,
		"errorID", event.ID,
		"category", event.Category,
		"severity", event.Severity,
		"payloadSize", len(data),
	)

	publishCtx, cancel := context.WithTimeout(ctx, r.publishTimeout)
	defer cancel()

	if err := r.redisClient.Publish(publishCtx, topic, data).Err(); err != nil {
		r.metrics.errorCount.Inc()
		return fmt.Errorf("failed to publish error event: %w", err)
	}

	r.metrics.eventCount.WithLabelValues(topic).Inc()
	return nil
}

// HealthCheck pings the underlying Redis connection.
func (r *RedisEventService) HealthCheck(ctx context.Context) error {
	if err := r.redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("event service unhealthy: %w", err)
	}
	return nil
}
