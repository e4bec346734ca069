// Package store defines the persistence interfaces for error records,
// recovery attempts, component health and health reports. Implementations
// live in subpackages (postgres).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/opsmesh/watchtower-backend/types"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrorStore persists error records and recovery attempts. Records are
// append-only; concurrent counter updates rely on the database's own
// per-row atomicity, not on locking in this module.
type ErrorStore interface {
	// InsertError stores a new record and fills in its ID and the
	// server-assigned creation time.
	InsertError(ctx context.Context, record *types.ErrorRecord) error
	GetError(ctx context.Context, id uuid.UUID) (*types.ErrorRecord, error)
	// MarkResolved flips the resolved flag and records how.
	MarkResolved(ctx context.Context, id uuid.UUID, method string) error
	// IncrementRecoveryAttempts bumps the attempt counter atomically.
	IncrementRecoveryAttempts(ctx context.Context, id uuid.UUID) error
	// ListErrorsSince returns all records created at or after the cutoff,
	// newest first.
	ListErrorsSince(ctx context.Context, since time.Time) ([]types.ErrorRecord, error)
	// ListRecentErrors returns up to limit records, optionally filtered
	// by severity and/or category (empty string means no filter).
	ListRecentErrors(ctx context.Context, severity types.Severity, category types.Category, limit int) ([]types.ErrorRecord, error)
	// CountBySeveritySince counts records of the given severity created
	// at or after the cutoff.
	CountBySeveritySince(ctx context.Context, severity types.Severity, since time.Time) (int64, error)

	// InsertRecoveryAttempt stores a new attempt and fills in its ID and
	// start time.
	InsertRecoveryAttempt(ctx context.Context, attempt *types.RecoveryAttempt) error
	// FinalizeRecoveryAttempt completes an attempt exactly once with its
	// verdict and action log.
	FinalizeRecoveryAttempt(ctx context.Context, id uuid.UUID, success bool, actions []string) error
}

// HealthStore persists component health and system health reports.
type HealthStore interface {
	// UpsertComponentHealth creates or updates a component's health with
	// merge semantics: metrics passed as nil leave stored metrics alone,
	// and a status change is appended to the history.
	UpsertComponentHealth(ctx context.Context, component string, status types.HealthStatus, metrics map[string]interface{}) error
	GetComponentHealth(ctx context.Context, component string) (*types.ComponentHealth, error)
	ListComponentHealth(ctx context.Context) ([]types.ComponentHealth, error)
	InsertHealthReport(ctx context.Context, report *types.HealthReport) error
	LatestHealthReport(ctx context.Context) (*types.HealthReport, error)
}
