package models

import "strings"

// SeverityLevel grades an audit advisory or a lint issue. The values follow
// npm audit's vocabulary.
type SeverityLevel string

const (
	SeverityCritical SeverityLevel = "critical"
	SeverityHigh     SeverityLevel = "high"
	SeverityModerate SeverityLevel = "moderate"
	SeverityLow      SeverityLevel = "low"
	SeverityInfo     SeverityLevel = "info"
	SeverityUnknown  SeverityLevel = "unknown"
)

var severityRank = map[SeverityLevel]int{
	SeverityCritical: 5,
	SeverityHigh:     4,
	SeverityModerate: 3,
	SeverityLow:      2,
	SeverityInfo:     1,
}

// Weight orders severities for sorting; unknown sorts last.
func (s SeverityLevel) Weight() int { return severityRank[s] }

// MapSeverity normalises advisory severities. "medium" is accepted as an
// alias for moderate since some registries report it that way.
func MapSeverity(raw string) SeverityLevel {
	s := SeverityLevel(strings.ToLower(strings.TrimSpace(raw)))
	if s == "medium" {
		return SeverityModerate
	}
	if _, ok := severityRank[s]; ok {
		return s
	}
	return SeverityUnknown
}
