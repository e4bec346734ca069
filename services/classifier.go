package services

import (
	"strings"

	"github.com/opsmesh/watchtower-backend/types"
)

// categoryRule maps a set of keywords to a (category, severity) pair.
// Rules are evaluated in order and the first match wins; the keyword
// sets overlap, so the order is part of the classification contract.
type categoryRule struct {
	category types.Category
	severity types.Severity
	keywords []string
}

var categoryRules = []categoryRule{
	{types.CategoryDatabase, types.SeverityHigh, []string{"database", "sql", "postgres", "firestore"}},
	{types.CategoryAuthentication, types.SeverityHigh, []string{"auth", "token", "permission", "unauthorized"}},
	{types.CategoryValidation, types.SeverityLow, []string{"validation", "invalid", "required"}},
	{types.CategoryNetwork, types.SeverityMedium, []string{"network", "timeout", "connection", "econnrefused"}},
	{types.CategoryLLM, types.SeverityMedium, []string{"llm", "model", "completion", "prompt"}},
	{types.CategoryAgent, types.SeverityMedium, []string{"agent", "copilot", "pilot"}},
	{types.CategoryIntegration, types.SeverityMedium, []string{"integration", "webhook", "api"}},
	{types.CategoryBlockchain, types.SeverityHigh, []string{"blockchain", "transaction", "ledger", "contract"}},
}

// Categorize assigns a (category, severity) pair to an error by ordered
// keyword matching over the message and component name. It is a pure
// function: the same inputs always produce the same pair.
//
// Two overrides run after the rule list:
//   - "critical" or "fatal" anywhere in the message escalates severity
//     to critical regardless of category.
//   - a low-severity error whose stack mentions an unhandled async
//     rejection is bumped to medium, since those were never inspected
//     by a caller.
func Categorize(message, component, stack string) (types.Category, types.Severity) {
	text := strings.ToLower(message + " " + component)

	category := types.CategoryUnknown
	severity := types.SeverityMedium

	for _, rule := range categoryRules {
		if containsAny(text, rule.keywords) {
			category = rule.category
			severity = rule.severity
			break
		}
	}

	lowerMessage := strings.ToLower(message)
	if strings.Contains(lowerMessage, "critical") || strings.Contains(lowerMessage, "fatal") {
		severity = types.SeverityCritical
	} else if severity == types.SeverityLow && strings.Contains(strings.ToLower(stack), "unhandledrejection") {
		severity = types.SeverityMedium
	}

	return category, severity
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
