package services

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/opsmesh/watchtower-backend/logger"
	"github.com/opsmesh/watchtower-backend/types"
)

// Pinger is the slice of pgxpool.Pool the probe needs; declared as an
// interface so tests can substitute a pgxmock pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ProbeService answers the liveness/readiness endpoints by checking the
// service's own infrastructure dependencies. Distinct from the
// HealthMonitor, which tracks the health of *other* systems.
type ProbeService struct {
	dbPool      Pinger
	redisClient *redis.Client
	version     string
	log         *zap.SugaredLogger
}

func NewProbeService(dbPool Pinger, redisClient *redis.Client, version string) *ProbeService {
	return &ProbeService{
		dbPool:      dbPool,
		redisClient: redisClient,
		version:     version,
		log:         logger.GetLogger(),
	}
}

// CheckHealth pings Postgres and Redis and folds the results into an
// overall probe status.
func (p *ProbeService) CheckHealth(ctx context.Context) types.ProbeResult {
	components := make(map[string]types.ProbeComponent)

	components["database"] = p.checkDatabase(ctx)
	components["redis"] = p.checkRedis(ctx)

	statuses := make([]types.HealthStatus, 0, len(components))
	for _, component := range components {
		statuses = append(statuses, component.Status)
	}

	return types.ProbeResult{
		Status:     types.WorstOf(statuses),
		Components: components,
		Version:    p.version,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
}

func (p *ProbeService) checkDatabase(ctx context.Context) types.ProbeComponent {
	if err := p.dbPool.Ping(ctx); err != nil {
		p.log.Errorw("Database health check failed", "error", err)
		return types.ProbeComponent{
			Status:  types.HealthStatusUnhealthy,
			Details: "Database connection failed",
		}
	}
	return types.ProbeComponent{Status: types.HealthStatusHealthy}
}

func (p *ProbeService) checkRedis(ctx context.Context) types.ProbeComponent {
	if err := p.redisClient.Ping(ctx).Err(); err != nil {
		p.log.Errorw("Redis health check failed", "error", err)
		return types.ProbeComponent{
			Status:  types.HealthStatusUnhealthy,
			Details: "Redis connection failed",
		}
	}
	return types.ProbeComponent{Status: types.HealthStatusHealthy}
}
