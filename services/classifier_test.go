package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opsmesh/watchtower-backend/types"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name      string
		message   string
		component string
		stack     string
		category  types.Category
		severity  types.Severity
	}{
		{
			name:      "database error",
			message:   "postgres connection pool exhausted",
			component: "store",
			category:  types.CategoryDatabase,
			severity:  types.SeverityHigh,
		},
		{
			name:      "auth error",
			message:   "token expired",
			component: "session",
			category:  types.CategoryAuthentication,
			severity:  types.SeverityHigh,
		},
		{
			name:      "validation error",
			message:   "invalid payload: field name is required",
			component: "ingest",
			category:  types.CategoryValidation,
			severity:  types.SeverityLow,
		},
		{
			name:      "network timeout",
			message:   "Request timeout after 30s",
			component: "gateway",
			category:  types.CategoryNetwork,
			severity:  types.SeverityMedium,
		},
		{
			name:      "llm error",
			message:   "completion request rejected by model",
			component: "inference",
			category:  types.CategoryLLM,
			severity:  types.SeverityMedium,
		},
		{
			name:      "agent error",
			message:   "copilot session lost",
			component: "orchestrator",
			category:  types.CategoryAgent,
			severity:  types.SeverityMedium,
		},
		{
			name:      "integration error",
			message:   "webhook delivery rejected",
			component: "sync",
			category:  types.CategoryIntegration,
			severity:  types.SeverityMedium,
		},
		{
			name:      "blockchain error",
			message:   "ledger rejected the entry",
			component: "settlement",
			category:  types.CategoryBlockchain,
			severity:  types.SeverityHigh,
		},
		{
			name:      "unmatched error",
			message:   "something odd happened",
			component: "misc",
			category:  types.CategoryUnknown,
			severity:  types.SeverityMedium,
		},
		{
			name:      "component name drives category",
			message:   "unexpected nil",
			component: "database-writer",
			category:  types.CategoryDatabase,
			severity:  types.SeverityHigh,
		},
		{
			name:      "database beats network when both match",
			message:   "sql query timeout",
			component: "store",
			category:  types.CategoryDatabase,
			severity:  types.SeverityHigh,
		},
		{
			name:      "critical escalation keeps category",
			message:   "database critical failure",
			component: "db",
			category:  types.CategoryDatabase,
			severity:  types.SeverityCritical,
		},
		{
			name:      "fatal escalates unknown category",
			message:   "fatal panic in worker",
			component: "worker",
			category:  types.CategoryUnknown,
			severity:  types.SeverityCritical,
		},
		{
			name:      "unhandled rejection bumps low to medium",
			message:   "invalid state",
			component: "ingest",
			stack:     "at process unhandledRejection (node:internal)",
			category:  types.CategoryValidation,
			severity:  types.SeverityMedium,
		},
		{
			name:      "unhandled rejection leaves medium alone",
			message:   "timeout waiting for upstream",
			component: "gateway",
			stack:     "unhandledRejection",
			category:  types.CategoryNetwork,
			severity:  types.SeverityMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			category, severity := Categorize(tt.message, tt.component, tt.stack)
			assert.Equal(t, tt.category, category)
			assert.Equal(t, tt.severity, severity)
		})
	}
}

func TestCategorizeIsDeterministic(t *testing.T) {
	message := "connection refused by upstream 'billing'"
	component := "gateway"
	stack := "net.go:120"

	firstCategory, firstSeverity := Categorize(message, component, stack)
	for i := 0; i < 100; i++ {
		category, severity := Categorize(message, component, stack)
		assert.Equal(t, firstCategory, category)
		assert.Equal(t, firstSeverity, severity)
	}
}
