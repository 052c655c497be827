package rules

import "regexp"

// Validation constants applied to extracted metadata.
const (
	MinSummaryLength = 50
	MaxSummaryLength = 500
	MinTopics        = 1
	MaxTopics        = 10
	MaxKeyEntities   = 20

	MinConfidence           = 0.0
	MaxConfidence           = 1.0
	LowConfidenceThreshold  = 0.7
	HighConfidenceThreshold = 0.9

	MaxSectionTopics  = 5
	MaxReferenceLinks = 10
)

var (
	// VersionPattern matches major.minor with an optional patch component.
	VersionPattern = regexp.MustCompile(`^\d+\.\d+(\.\d+)?$`)

	// DatePattern matches ISO dates (YYYY-MM-DD).
	DatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)
