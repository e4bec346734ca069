package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/opsmesh/watchtower-backend/store"
	"github.com/opsmesh/watchtower-backend/types"
	"github.com/pkg/errors"
)

// Ensure pgErrorStore implements store.ErrorStore.
var _ store.ErrorStore = (*pgErrorStore)(nil)

type pgErrorStore struct {
	pool DB
}

// NewPgErrorStore creates a new PostgreSQL error store.
func NewPgErrorStore(pool DB) store.ErrorStore {
	return &pgErrorStore{pool: pool}
}

// InsertError stores a new error record. The ID and creation time are
// assigned by the database and written back into the record.
func (s *pgErrorStore) InsertError(ctx context.Context, record *types.ErrorRecord) error {
	query := `INSERT INTO error_records (message, stack, component, category, severity, context)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id, created_at`

	contextJSON, err := marshalContext(record.Context)
	if err != nil {
		return errors.Wrap(err, "failed to encode error context")
	}

	err = s.pool.QueryRow(ctx, query,
		record.Message,
		record.Stack,
		record.Component,
		string(record.Category),
		string(record.Severity),
		contextJSON,
	).Scan(&record.ID, &record.CreatedAt)

	if err != nil {
		return errors.Wrap(err, "failed to insert error record")
	}
	return nil
}

// GetError retrieves an error record by its ID.
func (s *pgErrorStore) GetError(ctx context.Context, id uuid.UUID) (*types.ErrorRecord, error) {
	query := `SELECT id, message, stack, component, category, severity, context,
	                 created_at, resolved, resolution_method, recovery_attempts
	          FROM error_records
	          WHERE id = $1`

	record, err := scanErrorRecord(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("error record %s: %w", id, store.ErrNotFound)
		}
		return nil, errors.Wrap(err, "failed to get error record")
	}
	return record, nil
}

// MarkResolved flips the resolved flag and records the resolution method.
func (s *pgErrorStore) MarkResolved(ctx context.Context, id uuid.UUID, method string) error {
	query := `UPDATE error_records
	          SET resolved = true, resolution_method = $2
	          WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id, method)
	if err != nil {
		return errors.Wrap(err, "failed to mark error resolved")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("error record %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// IncrementRecoveryAttempts bumps the attempt counter. The increment is
// performed in SQL so concurrent recoveries never lose updates.
func (s *pgErrorStore) IncrementRecoveryAttempts(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE error_records
	          SET recovery_attempts = recovery_attempts + 1
	          WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return errors.Wrap(err, "failed to increment recovery attempts")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("error record %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// ListErrorsSince returns all records created at or after the cutoff,
// newest first.
func (s *pgErrorStore) ListErrorsSince(ctx context.Context, since time.Time) ([]types.ErrorRecord, error) {
	query := `SELECT id, message, stack, component, category, severity, context,
	                 created_at, resolved, resolution_method, recovery_attempts
	          FROM error_records
	          WHERE created_at >= $1
	          ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, since)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query error records")
	}
	defer rows.Close()

	return collectErrorRecords(rows)
}

// ListRecentErrors returns up to limit records, optionally filtered by
// severity and/or category.
func (s *pgErrorStore) ListRecentErrors(ctx context.Context, severity types.Severity, category types.Category, limit int) ([]types.ErrorRecord, error) {
	baseQuery := `SELECT id, message, stack, component, category, severity, context,
	                     created_at, resolved, resolution_method, recovery_attempts
	              FROM error_records`
	args := []interface{}{}
	argCount := 0
	conditions := ""

	if severity != "" {
		argCount++
		conditions = fmt.Sprintf(" WHERE severity = $%d", argCount)
		args = append(args, string(severity))
	}
	if category != "" {
		argCount++
		if conditions == "" {
			conditions = fmt.Sprintf(" WHERE category = $%d", argCount)
		} else {
			conditions += fmt.Sprintf(" AND category = $%d", argCount)
		}
		args = append(args, string(category))
	}

	argCount++
	query := baseQuery + conditions + fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argCount)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query recent error records")
	}
	defer rows.Close()

	return collectErrorRecords(rows)
}

// CountBySeveritySince counts records of one severity inside a window.
func (s *pgErrorStore) CountBySeveritySince(ctx context.Context, severity types.Severity, since time.Time) (int64, error) {
	query := `SELECT count(*) FROM error_records
	          WHERE severity = $1 AND created_at >= $2`

	var count int64
	if err := s.pool.QueryRow(ctx, query, string(severity), since).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count error records")
	}
	return count, nil
}

// InsertRecoveryAttempt stores a new attempt. The ID and start time are
// assigned by the database and written back.
func (s *pgErrorStore) InsertRecoveryAttempt(ctx context.Context, attempt *types.RecoveryAttempt) error {
	query := `INSERT INTO recovery_attempts (error_id)
	          VALUES ($1)
	          RETURNING id, started_at`

	err := s.pool.QueryRow(ctx, query, attempt.ErrorID).Scan(&attempt.ID, &attempt.StartedAt)
	if err != nil {
		return errors.Wrap(err, "failed to insert recovery attempt")
	}
	return nil
}

// FinalizeRecoveryAttempt completes an attempt with its verdict and
// action log. Attempts are finalized at most once; a second call is a
// not-found error.
func (s *pgErrorStore) FinalizeRecoveryAttempt(ctx context.Context, id uuid.UUID, success bool, actions []string) error {
	query := `UPDATE recovery_attempts
	          SET success = $2, actions = $3, completed = true, completed_at = now()
	          WHERE id = $1 AND completed = false`

	actionsJSON, err := json.Marshal(actions)
	if err != nil {
		return errors.Wrap(err, "failed to encode recovery actions")
	}

	tag, err := s.pool.Exec(ctx, query, id, success, actionsJSON)
	if err != nil {
		return errors.Wrap(err, "failed to finalize recovery attempt")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("open recovery attempt %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func marshalContext(context map[string]interface{}) ([]byte, error) {
	if context == nil {
		return nil, nil
	}
	return json.Marshal(context)
}

func scanErrorRecord(row pgx.Row) (*types.ErrorRecord, error) {
	var (
		record      types.ErrorRecord
		contextJSON []byte
		method      *string
	)

	err := row.Scan(
		&record.ID, &record.Message, &record.Stack, &record.Component,
		&record.Category, &record.Severity, &contextJSON,
		&record.CreatedAt, &record.Resolved, &method, &record.RecoveryAttempts,
	)
	if err != nil {
		return nil, err
	}

	if method != nil {
		record.ResolutionMethod = *method
	}
	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &record.Context); err != nil {
			return nil, errors.Wrap(err, "failed to decode error context")
		}
	}
	return &record, nil
}

func collectErrorRecords(rows pgx.Rows) ([]types.ErrorRecord, error) {
	records := []types.ErrorRecord{}
	for rows.Next() {
		record, err := scanErrorRecord(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan error record row")
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error during row iteration for error records")
	}
	return records, nil
}
