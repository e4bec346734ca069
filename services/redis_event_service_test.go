package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsmesh/watchtower-backend/types"
)

func testEvent() types.ErrorEvent {
	return types.ErrorEvent{
		ID:        "550e8400-e29b-41d4-a716-446655440000",
		Message:   "token expired",
		Component: "session",
		Category:  types.CategoryAuthentication,
		Severity:  types.SeverityHigh,
		Timestamp: "2026-08-23T10:00:00Z",
	}
}

func TestPublishStats(t *testing.T) {
	client, mock := redismock.NewClientMock()
	service := NewRedisEventService(client, time.Second)

	event := testEvent()
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	mock.ExpectPublish(TopicErrorStats, payload).SetVal(1)

	err = service.PublishStats(context.Background(), event)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishCritical(t *testing.T) {
	client, mock := redismock.NewClientMock()
	service := NewRedisEventService(client, time.Second)

	event := testEvent()
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	mock.ExpectPublish(TopicCriticalErrors, payload).SetVal(1)

	err = service.PublishCritical(context.Background(), event)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishSurfacesRedisError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	service := NewRedisEventService(client, time.Second)

	event := testEvent()
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	mock.ExpectPublish(TopicErrorStats, payload).SetErr(assert.AnError)

	err = service.PublishStats(context.Background(), event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish error event")
}

func TestHealthCheck(t *testing.T) {
	client, mock := redismock.NewClientMock()
	service := NewRedisEventService(client, time.Second)

	mock.ExpectPing().SetVal("PONG")
	assert.NoError(t, service.HealthCheck(context.Background()))

	mock.ExpectPing().SetErr(assert.AnError)
	assert.Error(t, service.HealthCheck(context.Background()))
}

func TestCheckLimit(t *testing.T) {
	client, mock := redismock.NewClientMock()
	service := NewRateLimitService(client)
	ctx := context.Background()

	key := "ingest:203.0.113.9"
	rKey := "watchtower:rate_limit:" + key

	mock.ExpectIncr(rKey).SetVal(1)
	mock.ExpectExpire(rKey, time.Minute).SetVal(true)

	allowed, _, err := service.CheckLimit(ctx, key, 120, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	mock.ExpectIncr(rKey).SetVal(121)
	mock.ExpectExpire(rKey, time.Minute).SetVal(true)
	mock.ExpectTTL(rKey).SetVal(42 * time.Second)

	allowed, retryAfter, err := service.CheckLimit(ctx, key, 120, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 42*time.Second, retryAfter)

	assert.NoError(t, mock.ExpectationsWereMet())
}
