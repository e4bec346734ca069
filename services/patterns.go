package services

import (
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/opsmesh/watchtower-backend/types"
)

// maxPatternLength bounds a simplified message so a single verbose error
// cannot blow up the pattern table.
const maxPatternLength = 100

var (
	// UUIDs must be collapsed before digit runs, or the digit pass would
	// shred them into meaningless fragments.
	uuidPattern   = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
	quotedPattern = regexp.MustCompile(`'[^']*'|"[^"]*"`)
	digitPattern  = regexp.MustCompile(`[0-9]+`)
)

// SimplifyMessage normalizes an error message so distinct instances with
// embedded variable data (ids, counts, quoted values) collapse into one
// pattern bucket. The substitution is idempotent: simplifying an already
// simplified message returns it unchanged.
func SimplifyMessage(message string) string {
	s := uuidPattern.ReplaceAllString(message, "UUID")
	s = quotedPattern.ReplaceAllString(s, "'X'")
	s = digitPattern.ReplaceAllString(s, "N")
	if len(s) > maxPatternLength {
		s = s[:maxPatternLength]
	}
	return s
}

// WindowUnit is the unit of a pattern-analysis lookback window.
type WindowUnit string

const (
	WindowHours WindowUnit = "hours"
	WindowDays  WindowUnit = "days"
	WindowWeeks WindowUnit = "weeks"
)

// WindowDuration converts a (quantity, unit) lookback expression into a
// duration. Zero or negative quantities fall back to the 24-hour
// default; an unknown unit is an error.
func WindowDuration(quantity int, unit WindowUnit) (time.Duration, error) {
	if quantity <= 0 {
		return 24 * time.Hour, nil
	}
	switch unit {
	case WindowHours, "":
		return time.Duration(quantity) * time.Hour, nil
	case WindowDays:
		return time.Duration(quantity) * 24 * time.Hour, nil
	case WindowWeeks:
		return time.Duration(quantity) * 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown window unit %q", unit)
	}
}

// summarizePatterns folds a slice of error records into per-category,
// per-component and per-severity counts plus the top-10 simplified
// messages by frequency.
func summarizePatterns(records []types.ErrorRecord, since time.Time) *types.ErrorPatternSummary {
	summary := &types.ErrorPatternSummary{
		Since:       since,
		Total:       len(records),
		ByCategory:  make(map[types.Category]int),
		ByComponent: make(map[string]int),
		BySeverity:  make(map[types.Severity]int),
		GeneratedAt: time.Now().UTC(),
	}

	patternCounts := make(map[string]int)
	for _, record := range records {
		summary.ByCategory[record.Category]++
		summary.ByComponent[record.Component]++
		summary.BySeverity[record.Severity]++
		patternCounts[SimplifyMessage(record.Message)]++
	}

	patterns := make([]types.MessagePattern, 0, len(patternCounts))
	for pattern, count := range patternCounts {
		patterns = append(patterns, types.MessagePattern{Pattern: pattern, Count: count})
	}
	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Count != patterns[j].Count {
			return patterns[i].Count > patterns[j].Count
		}
		return patterns[i].Pattern < patterns[j].Pattern
	})
	if len(patterns) > 10 {
		patterns = patterns[:10]
	}
	summary.TopPatterns = patterns

	return summary
}
