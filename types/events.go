package types

import "context"

// ErrorEvent mirrors a logged ErrorRecord on the wire, plus an ISO-8601
// timestamp assigned at publish time.
type ErrorEvent struct {
	ID        string                 `json:"id"`
	Message   string                 `json:"message"`
	Component string                 `json:"component"`
	Category  Category               `json:"category"`
	Severity  Severity               `json:"severity"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// EventPublisher publishes error events to the stats and critical
// channels. Within one logged error the stats publish always precedes
// the critical publish; callers rely on that ordering.
type EventPublisher interface {
	PublishStats(ctx context.Context, event ErrorEvent) error
	PublishCritical(ctx context.Context, event ErrorEvent) error
}
