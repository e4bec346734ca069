package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/opsmesh/watchtower-backend/logger"
	"github.com/opsmesh/watchtower-backend/store"
	"github.com/opsmesh/watchtower-backend/types"
)

// recoveryHandler decides a recovery verdict for one error and narrates
// what it (nominally) did. Handlers are a decision/logging layer only:
// they perform no real remediation, by contract of this service.
type recoveryHandler func(record *types.ErrorRecord, actions *actionLog) bool

// actionLog accumulates the human-readable action trail of one attempt.
type actionLog struct {
	entries []string
}

func (l *actionLog) addf(format string, args ...interface{}) {
	l.entries = append(l.entries, fmt.Sprintf(format, args...))
}

// llmFailoverRing is the fixed 3-provider failover ring used by the LLM
// handler. Unknown providers enter the ring at openai.
var llmFailoverRing = map[string]string{
	"openai":    "anthropic",
	"anthropic": "google",
	"google":    "openai",
}

// RecoveryService runs the per-category recovery decision handlers and
// records their outcomes. Nothing in here propagates an error to the
// caller: every failure path finalizes the attempt as unsuccessful and
// returns false.
type RecoveryService struct {
	store    store.ErrorStore
	log      *zap.SugaredLogger
	handlers map[types.Category]recoveryHandler
}

// NewRecoveryService creates a RecoveryService with the built-in
// category handler table.
func NewRecoveryService(errorStore store.ErrorStore) *RecoveryService {
	s := &RecoveryService{
		store: errorStore,
		log:   logger.GetLogger(),
	}
	s.handlers = map[types.Category]recoveryHandler{
		types.CategoryDatabase:    recoverDatabase,
		types.CategoryNetwork:     recoverNetwork,
		types.CategoryLLM:         recoverLLM,
		types.CategoryAgent:       recoverAgent,
		types.CategoryBlockchain:  recoverBlockchain,
		types.CategoryIntegration: recoverIntegration,
	}
	return s
}

// AttemptRecovery creates a RecoveryAttempt for the record, increments
// the record's attempt counter, dispatches the category handler and
// finalizes the attempt with the verdict. A successful verdict marks the
// originating record resolved. Returns whether recovery succeeded.
func (s *RecoveryService) AttemptRecovery(ctx context.Context, record *types.ErrorRecord) bool {
	attempt := &types.RecoveryAttempt{ErrorID: record.ID}
	if err := s.store.InsertRecoveryAttempt(ctx, attempt); err != nil {
		s.log.Errorw("Failed to create recovery attempt",
			"error", err, "errorID", record.ID)
		return false
	}

	if err := s.store.IncrementRecoveryAttempts(ctx, record.ID); err != nil {
		s.log.Errorw("Failed to increment recovery attempt counter",
			"error", err, "errorID", record.ID)
	}

	actions := &actionLog{}
	success := s.dispatch(record, actions)

	if err := s.store.FinalizeRecoveryAttempt(ctx, attempt.ID, success, actions.entries); err != nil {
		s.log.Errorw("Failed to finalize recovery attempt",
			"error", err, "attemptID", attempt.ID, "errorID", record.ID)
		return false
	}

	if success {
		method := "auto:" + string(record.Category)
		if err := s.store.MarkResolved(ctx, record.ID, method); err != nil {
			s.log.Errorw("Failed to mark error resolved",
				"error", err, "errorID", record.ID)
		}
	}

	s.log.Infow("Recovery attempt completed",
		"errorID", record.ID,
		"category", record.Category,
		"success", success,
		"actions", len(actions.entries),
	)
	return success
}

// dispatch runs the category handler, converting panics into a failed
// verdict with the panic text on the action trail.
func (s *RecoveryService) dispatch(record *types.ErrorRecord, actions *actionLog) (success bool) {
	defer func() {
		if r := recover(); r != nil {
			actions.addf("recovery handler failed: %v", r)
			success = false
		}
	}()

	handler, ok := s.handlers[record.Category]
	if !ok {
		actions.addf("no recovery handler for category %q, nothing attempted", record.Category)
		return false
	}
	return handler(record, actions)
}

func recoverDatabase(record *types.ErrorRecord, actions *actionLog) bool {
	message := strings.ToLower(record.Message)
	switch {
	case strings.Contains(message, "constraint") || strings.Contains(message, "duplicate"):
		actions.addf("database constraint violation detected, not recoverable automatically")
		return false
	case strings.Contains(message, "connection"):
		actions.addf("identified database connection failure")
		actions.addf("marked connection pool for reinitialization")
		return true
	default:
		actions.addf("transient database error, marked for retry")
		return true
	}
}

func recoverNetwork(record *types.ErrorRecord, actions *actionLog) bool {
	message := strings.ToLower(record.Message)
	switch {
	case strings.Contains(message, "timeout"):
		actions.addf("identified recoverable network timeout")
		actions.addf("request marked for retry with extended deadline")
		return true
	case strings.Contains(message, "connection refused") || strings.Contains(message, "econnrefused"):
		actions.addf("upstream connection refused, flagged for operator attention")
		return false
	default:
		actions.addf("no recovery path for network error")
		return false
	}
}

func recoverLLM(record *types.ErrorRecord, actions *actionLog) bool {
	provider := contextString(record, "provider")
	failover, ok := llmFailoverRing[provider]
	if !ok {
		provider = "openai"
		failover = llmFailoverRing[provider]
	}
	actions.addf("llm provider %q failing", provider)
	actions.addf("selected failover provider %q from ring", failover)
	return true
}

func recoverAgent(record *types.ErrorRecord, actions *actionLog) bool {
	message := strings.ToLower(record.Message)
	if strings.Contains(message, "context") {
		actions.addf("agent context corrupted, scheduled context reload")
		return true
	}
	actions.addf("scheduled agent restart")
	return true
}

func recoverBlockchain(record *types.ErrorRecord, actions *actionLog) bool {
	message := strings.ToLower(record.Message)
	switch {
	case strings.Contains(message, "validation"):
		actions.addf("transaction validation failure, not recoverable automatically")
		return false
	case strings.Contains(message, "timeout"):
		actions.addf("transaction timed out, marked for resubmission")
		return true
	default:
		actions.addf("no recovery path for blockchain error")
		return false
	}
}

func recoverIntegration(record *types.ErrorRecord, actions *actionLog) bool {
	message := strings.ToLower(record.Message)
	if strings.Contains(message, "rate limit") || strings.Contains(message, "429") {
		actions.addf("integration rate limited, scheduled retry with backoff")
		return true
	}
	actions.addf("no recovery path for integration error")
	return false
}

func contextString(record *types.ErrorRecord, key string) string {
	if record.Context == nil {
		return ""
	}
	if value, ok := record.Context[key].(string); ok {
		return strings.ToLower(value)
	}
	return ""
}
