package rules

import (
	"fmt"
	"strings"
)

// requiredFields must all be present in document metadata.
var requiredFields = []string{
	"document_type",
	"department",
	"authority_level",
	"topics",
	"intended_audience",
}

// ValidateCompleteness checks that required metadata fields are present
// and that their values conform to the controlled vocabularies. All
// violations are collected; validation never stops at the first failure.
func ValidateCompleteness(metadata map[string]any) []string {
	var errors []string

	for _, field := range requiredFields {
		if _, ok := metadata[field]; !ok {
			errors = append(errors, fmt.Sprintf("Missing required field: %s", field))
		}
	}

	if v, ok := metadata["document_type"]; ok {
		docType, _ := v.(string)
		if !IsValidDocumentType(docType) {
			errors = append(errors, fmt.Sprintf(
				"Invalid document_type: %v. Must be one of: %s",
				v, strings.Join(DocumentTypes, ", ")))
		}
	}

	if v, ok := metadata["department"]; ok {
		department, _ := v.(string)
		if !IsValidDepartment(department) {
			errors = append(errors, fmt.Sprintf(
				"Invalid department: %v. Must be one of: %s",
				v, strings.Join(Departments, ", ")))
		}
	}

	if v, ok := metadata["authority_level"]; ok {
		level, _ := v.(string)
		if !IsValidAuthorityLevel(level) {
			errors = append(errors, fmt.Sprintf(
				"Invalid authority_level: %v. Must be one of: %s",
				v, strings.Join(AuthorityLevels, ", ")))
		}
	}

	if v, ok := metadata["topics"]; ok {
		topics, ok := toStringSlice(v)
		switch {
		case !ok:
			errors = append(errors, "topics must be an array")
		case len(topics) < MinTopics:
			errors = append(errors, fmt.Sprintf("Must have at least %d topic", MinTopics))
		case len(topics) > MaxTopics:
			errors = append(errors, fmt.Sprintf("Cannot have more than %d topics", MaxTopics))
		}
	}

	if v, ok := metadata["intended_audience"]; ok {
		audiences, ok := toStringSlice(v)
		if !ok {
			errors = append(errors, "intended_audience must be an array")
		} else {
			for _, audience := range audiences {
				if !IsValidAudience(audience) {
					errors = append(errors, fmt.Sprintf("Invalid audience: %s", audience))
				}
			}
		}
	}

	return errors
}

// toStringSlice converts []string or []any-of-strings to a string slice.
// Returns false when the value is not an array of strings.
func toStringSlice(v any) ([]string, bool) {
	switch vals := v.(type) {
	case []string:
		return vals, true
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
