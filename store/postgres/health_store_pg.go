package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/opsmesh/watchtower-backend/store"
	"github.com/opsmesh/watchtower-backend/types"
	"github.com/pkg/errors"
)

// Ensure pgHealthStore implements store.HealthStore.
var _ store.HealthStore = (*pgHealthStore)(nil)

type pgHealthStore struct {
	pool DB
}

// NewPgHealthStore creates a new PostgreSQL health store.
func NewPgHealthStore(pool DB) store.HealthStore {
	return &pgHealthStore{pool: pool}
}

// UpsertComponentHealth creates or updates a component's health row.
// Merge semantics: nil metrics preserve whatever is stored, and every
// call appends a status entry to the history (the history only grows).
func (s *pgHealthStore) UpsertComponentHealth(ctx context.Context, component string, status types.HealthStatus, metrics map[string]interface{}) error {
	query := `INSERT INTO component_health (component, status, metrics, updated_at, history)
	          VALUES ($1, $2, COALESCE($3::jsonb, '{}'::jsonb), now(),
	                  jsonb_build_array(jsonb_build_object('status', $2::text, 'timestamp', now())))
	          ON CONFLICT (component) DO UPDATE SET
	              status = EXCLUDED.status,
	              metrics = COALESCE($3::jsonb, component_health.metrics),
	              updated_at = now(),
	              history = component_health.history ||
	                        jsonb_build_object('status', $2::text, 'timestamp', now())`

	metricsJSON, err := marshalContext(metrics)
	if err != nil {
		return errors.Wrap(err, "failed to encode component metrics")
	}

	if _, err := s.pool.Exec(ctx, query, component, string(status), metricsJSON); err != nil {
		return errors.Wrap(err, "failed to upsert component health")
	}
	return nil
}

// GetComponentHealth retrieves one component's health by identifier.
func (s *pgHealthStore) GetComponentHealth(ctx context.Context, component string) (*types.ComponentHealth, error) {
	query := `SELECT component, status, metrics, updated_at, history
	          FROM component_health
	          WHERE component = $1`

	health, err := scanComponentHealth(s.pool.QueryRow(ctx, query, component))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("component %s: %w", component, store.ErrNotFound)
		}
		return nil, errors.Wrap(err, "failed to get component health")
	}
	return health, nil
}

// ListComponentHealth returns the health of every tracked component.
func (s *pgHealthStore) ListComponentHealth(ctx context.Context) ([]types.ComponentHealth, error) {
	query := `SELECT component, status, metrics, updated_at, history
	          FROM component_health
	          ORDER BY component`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query component health")
	}
	defer rows.Close()

	components := []types.ComponentHealth{}
	for rows.Next() {
		health, err := scanComponentHealth(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan component health row")
		}
		components = append(components, *health)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error during row iteration for component health")
	}
	return components, nil
}

// InsertHealthReport persists a generated report. Reports are immutable.
func (s *pgHealthStore) InsertHealthReport(ctx context.Context, report *types.HealthReport) error {
	query := `INSERT INTO health_reports (overall, components, error_summary)
	          VALUES ($1, $2, $3)
	          RETURNING id, generated_at`

	componentsJSON, err := json.Marshal(report.Components)
	if err != nil {
		return errors.Wrap(err, "failed to encode report components")
	}

	var summaryJSON []byte
	if report.ErrorSummary != nil {
		summaryJSON, err = json.Marshal(report.ErrorSummary)
		if err != nil {
			return errors.Wrap(err, "failed to encode report error summary")
		}
	}

	err = s.pool.QueryRow(ctx, query,
		string(report.Overall),
		componentsJSON,
		summaryJSON,
	).Scan(&report.ID, &report.GeneratedAt)

	if err != nil {
		return errors.Wrap(err, "failed to insert health report")
	}
	return nil
}

// LatestHealthReport returns the most recently generated report.
func (s *pgHealthStore) LatestHealthReport(ctx context.Context) (*types.HealthReport, error) {
	query := `SELECT id, overall, components, error_summary, generated_at
	          FROM health_reports
	          ORDER BY generated_at DESC
	          LIMIT 1`

	var (
		report         types.HealthReport
		componentsJSON []byte
		summaryJSON    []byte
	)

	err := s.pool.QueryRow(ctx, query).Scan(
		&report.ID, &report.Overall, &componentsJSON, &summaryJSON, &report.GeneratedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("health report: %w", store.ErrNotFound)
		}
		return nil, errors.Wrap(err, "failed to get latest health report")
	}

	if err := json.Unmarshal(componentsJSON, &report.Components); err != nil {
		return nil, errors.Wrap(err, "failed to decode report components")
	}
	if len(summaryJSON) > 0 {
		report.ErrorSummary = &types.ErrorPatternSummary{}
		if err := json.Unmarshal(summaryJSON, report.ErrorSummary); err != nil {
			return nil, errors.Wrap(err, "failed to decode report error summary")
		}
	}
	return &report, nil
}

func scanComponentHealth(row pgx.Row) (*types.ComponentHealth, error) {
	var (
		health      types.ComponentHealth
		metricsJSON []byte
		historyJSON []byte
	)

	err := row.Scan(&health.Component, &health.Status, &metricsJSON, &health.UpdatedAt, &historyJSON)
	if err != nil {
		return nil, err
	}

	if len(metricsJSON) > 0 {
		if err := json.Unmarshal(metricsJSON, &health.Metrics); err != nil {
			return nil, errors.Wrap(err, "failed to decode component metrics")
		}
	}
	if len(historyJSON) > 0 {
		if err := json.Unmarshal(historyJSON, &health.History); err != nil {
			return nil, errors.Wrap(err, "failed to decode component history")
		}
	}
	return &health, nil
}
