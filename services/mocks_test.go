package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opsmesh/watchtower-backend/logger"
	"github.com/opsmesh/watchtower-backend/store"
	"github.com/opsmesh/watchtower-backend/types"
)

func init() {
	logger.IsTest = true
}

// fakeErrorStore is an in-memory store.ErrorStore for service tests.
type fakeErrorStore struct {
	mu       sync.Mutex
	records  map[uuid.UUID]*types.ErrorRecord
	attempts map[uuid.UUID]*types.RecoveryAttempt

	failInsert   bool
	failGet      bool
	failList     bool
	failCount    bool
	failFinalize bool
}

func newFakeErrorStore() *fakeErrorStore {
	return &fakeErrorStore{
		records:  make(map[uuid.UUID]*types.ErrorRecord),
		attempts: make(map[uuid.UUID]*types.RecoveryAttempt),
	}
}

func (f *fakeErrorStore) InsertError(_ context.Context, record *types.ErrorRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsert {
		return fmt.Errorf("insert failed")
	}
	record.ID = uuid.New()
	record.CreatedAt = time.Now().UTC()
	stored := *record
	f.records[record.ID] = &stored
	return nil
}

func (f *fakeErrorStore) GetError(_ context.Context, id uuid.UUID) (*types.ErrorRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet {
		return nil, fmt.Errorf("get failed")
	}
	record, ok := f.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (f *fakeErrorStore) MarkResolved(_ context.Context, id uuid.UUID, method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[id]
	if !ok {
		return store.ErrNotFound
	}
	record.Resolved = true
	record.ResolutionMethod = method
	return nil
}

func (f *fakeErrorStore) IncrementRecoveryAttempts(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[id]
	if !ok {
		return store.ErrNotFound
	}
	record.RecoveryAttempts++
	return nil
}

func (f *fakeErrorStore) ListErrorsSince(_ context.Context, since time.Time) ([]types.ErrorRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList {
		return nil, fmt.Errorf("list failed")
	}
	records := []types.ErrorRecord{}
	for _, record := range f.records {
		if !record.CreatedAt.Before(since) {
			records = append(records, *record)
		}
	}
	return records, nil
}

func (f *fakeErrorStore) ListRecentErrors(_ context.Context, severity types.Severity, category types.Category, limit int) ([]types.ErrorRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	records := []types.ErrorRecord{}
	for _, record := range f.records {
		if severity != "" && record.Severity != severity {
			continue
		}
		if category != "" && record.Category != category {
			continue
		}
		if len(records) >= limit {
			break
		}
		records = append(records, *record)
	}
	return records, nil
}

func (f *fakeErrorStore) CountBySeveritySince(_ context.Context, severity types.Severity, since time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCount {
		return 0, fmt.Errorf("count failed")
	}
	var count int64
	for _, record := range f.records {
		if record.Severity == severity && !record.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (f *fakeErrorStore) InsertRecoveryAttempt(_ context.Context, attempt *types.RecoveryAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	attempt.ID = uuid.New()
	attempt.StartedAt = time.Now().UTC()
	stored := *attempt
	f.attempts[attempt.ID] = &stored
	return nil
}

func (f *fakeErrorStore) FinalizeRecoveryAttempt(_ context.Context, id uuid.UUID, success bool, actions []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFinalize {
		return fmt.Errorf("finalize failed")
	}
	attempt, ok := f.attempts[id]
	if !ok || attempt.Completed {
		return store.ErrNotFound
	}
	now := time.Now().UTC()
	attempt.Success = success
	attempt.Actions = actions
	attempt.Completed = true
	attempt.CompletedAt = &now
	return nil
}

func (f *fakeErrorStore) attemptsFor(errorID uuid.UUID) []types.RecoveryAttempt {
	f.mu.Lock()
	defer f.mu.Unlock()
	attempts := []types.RecoveryAttempt{}
	for _, attempt := range f.attempts {
		if attempt.ErrorID == errorID {
			attempts = append(attempts, *attempt)
		}
	}
	return attempts
}

func (f *fakeErrorStore) record(id uuid.UUID) *types.ErrorRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[id]
	if !ok {
		return nil
	}
	copied := *record
	return &copied
}

// fakeHealthStore is an in-memory store.HealthStore for service tests.
type fakeHealthStore struct {
	mu         sync.Mutex
	components map[string]*types.ComponentHealth
	reports    []*types.HealthReport

	failList bool
}

func newFakeHealthStore() *fakeHealthStore {
	return &fakeHealthStore{components: make(map[string]*types.ComponentHealth)}
}

func (f *fakeHealthStore) UpsertComponentHealth(_ context.Context, component string, status types.HealthStatus, metrics map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	existing, ok := f.components[component]
	if !ok {
		existing = &types.ComponentHealth{Component: component}
		f.components[component] = existing
	}
	existing.Status = status
	if metrics != nil {
		existing.Metrics = metrics
	}
	existing.UpdatedAt = now
	existing.History = append(existing.History, types.StatusChange{Status: status, Timestamp: now})
	return nil
}

func (f *fakeHealthStore) GetComponentHealth(_ context.Context, component string) (*types.ComponentHealth, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	health, ok := f.components[component]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *health
	return &copied, nil
}

func (f *fakeHealthStore) ListComponentHealth(_ context.Context) ([]types.ComponentHealth, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList {
		return nil, fmt.Errorf("list failed")
	}
	components := []types.ComponentHealth{}
	for _, health := range f.components {
		components = append(components, *health)
	}
	return components, nil
}

func (f *fakeHealthStore) InsertHealthReport(_ context.Context, report *types.HealthReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	report.ID = uuid.New()
	stored := *report
	f.reports = append(f.reports, &stored)
	return nil
}

func (f *fakeHealthStore) LatestHealthReport(_ context.Context) (*types.HealthReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.reports) == 0 {
		return nil, store.ErrNotFound
	}
	copied := *f.reports[len(f.reports)-1]
	return &copied, nil
}

// fakePublisher records published events in order.
type fakePublisher struct {
	mu       sync.Mutex
	stats    []types.ErrorEvent
	critical []types.ErrorEvent

	failStats    bool
	failCritical bool
}

func (f *fakePublisher) PublishStats(_ context.Context, event types.ErrorEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failStats {
		return fmt.Errorf("stats publish failed")
	}
	f.stats = append(f.stats, event)
	return nil
}

func (f *fakePublisher) PublishCritical(_ context.Context, event types.ErrorEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCritical {
		return fmt.Errorf("critical publish failed")
	}
	f.critical = append(f.critical, event)
	return nil
}

var _ store.ErrorStore = (*fakeErrorStore)(nil)
var _ store.HealthStore = (*fakeHealthStore)(nil)
var _ types.EventPublisher = (*fakePublisher)(nil)
