package types

import (
	"time"

	"github.com/google/uuid"
)

// HealthStatus is a per-component (and system-wide) health tag.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// Valid reports whether s is one of the three known statuses.
func (s HealthStatus) Valid() bool {
	switch s {
	case HealthStatusHealthy, HealthStatusDegraded, HealthStatusUnhealthy:
		return true
	}
	return false
}

// WorstOf folds a set of statuses into the system-wide status: unhealthy
// if any component is unhealthy, else degraded if any is degraded, else
// healthy. A plain worst-case fold, not weighted or time-decayed.
func WorstOf(statuses []HealthStatus) HealthStatus {
	overall := HealthStatusHealthy
	for _, s := range statuses {
		if s == HealthStatusUnhealthy {
			return HealthStatusUnhealthy
		}
		if s == HealthStatusDegraded {
			overall = HealthStatusDegraded
		}
	}
	return overall
}

// StatusChange is one entry in a component's append-only status history.
type StatusChange struct {
	Status    HealthStatus `json:"status"`
	Timestamp time.Time    `json:"timestamp"`
}

// ComponentHealth tracks the health of one named subsystem. Upserts use
// merge semantics: fields not present in the update are preserved, and
// the history only ever grows.
type ComponentHealth struct {
	Component string                 `json:"component"`
	Status    HealthStatus           `json:"status"`
	Metrics   map[string]interface{} `json:"metrics,omitempty"`
	UpdatedAt time.Time              `json:"updated_at"`
	History   []StatusChange         `json:"history"`
}

// HealthReport is a point-in-time snapshot of system health. Never
// mutated after creation.
type HealthReport struct {
	ID           uuid.UUID               `json:"id"`
	Overall      HealthStatus            `json:"overall"`
	Components   map[string]HealthStatus `json:"components"`
	ErrorSummary *ErrorPatternSummary    `json:"error_summary,omitempty"`
	GeneratedAt  time.Time               `json:"generated_at"`
}

// ProbeComponent is the readiness state of one infrastructure dependency
// (Postgres, Redis) as seen by the liveness/readiness endpoints.
type ProbeComponent struct {
	Status  HealthStatus `json:"status"`
	Details string       `json:"details,omitempty"`
}

// ProbeResult is the response body of the health probe endpoints.
type ProbeResult struct {
	Status     HealthStatus              `json:"status"`
	Components map[string]ProbeComponent `json:"components"`
	Version    string                    `json:"version"`
	Timestamp  string                    `json:"timestamp"`
}
