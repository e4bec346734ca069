package types

import (
	"time"

	"github.com/google/uuid"
)

// Category classifies a tracked error. Assignment is by ordered keyword
// matching on the error text, not by structural exception type, so
// categories are not mutually exclusive by construction.
type Category string

const (
	CategoryDatabase       Category = "database"
	CategoryNetwork        Category = "network"
	CategoryAuthentication Category = "authentication"
	CategoryValidation     Category = "validation"
	CategoryIntegration    Category = "integration"
	CategoryLLM            Category = "llm"
	CategoryAgent          Category = "agent"
	CategoryBlockchain     Category = "blockchain"
	CategoryUnknown        Category = "unknown"
)

// Severity drives whether a critical-channel publish and/or recovery
// dispatch happens when an error is logged.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AtOrAbove reports whether s is at least the given severity.
func (s Severity) AtOrAbove(min Severity) bool {
	return severityRank(s) >= severityRank(min)
}

func severityRank(s Severity) int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 1
	}
}

// ErrorReport is the caller-supplied description of a failure, before
// categorization.
type ErrorReport struct {
	Message   string                 `json:"message" binding:"required"`
	Component string                 `json:"component" binding:"required"`
	Stack     string                 `json:"stack,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// ErrorRecord is the persisted form of a reported failure. Records are
// append-only: after creation only the resolved flag, resolution method
// and recovery-attempt counter change.
type ErrorRecord struct {
	ID               uuid.UUID              `json:"id"`
	Message          string                 `json:"message"`
	Stack            string                 `json:"stack,omitempty"`
	Component        string                 `json:"component"`
	Category         Category               `json:"category"`
	Severity         Severity               `json:"severity"`
	Context          map[string]interface{} `json:"context,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	Resolved         bool                   `json:"resolved"`
	ResolutionMethod string                 `json:"resolution_method,omitempty"`
	RecoveryAttempts int                    `json:"recovery_attempts"`
}

// RecoveryAttempt records one automated remediation decision for an
// error. The outcome is non-authoritative: handlers decide and narrate,
// they do not remediate. Finalized exactly once.
type RecoveryAttempt struct {
	ID          uuid.UUID  `json:"id"`
	ErrorID     uuid.UUID  `json:"error_id"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Success     bool       `json:"success"`
	Actions     []string   `json:"actions"`
	Completed   bool       `json:"completed"`
}

// MessagePattern is a simplified error message and how often it occurred
// within an analysis window.
type MessagePattern struct {
	Pattern string `json:"pattern"`
	Count   int    `json:"count"`
}

// ErrorPatternSummary aggregates the errors inside a lookback window.
type ErrorPatternSummary struct {
	Since       time.Time        `json:"since"`
	Total       int              `json:"total"`
	ByCategory  map[Category]int `json:"by_category"`
	ByComponent map[string]int   `json:"by_component"`
	BySeverity  map[Severity]int `json:"by_severity"`
	TopPatterns []MessagePattern `json:"top_patterns"`
	GeneratedAt time.Time        `json:"generated_at"`
}
