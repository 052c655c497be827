// -----------------------------------------------------------------------
// Package validator checks extracted metadata against the schema and
// business rules, fixing minor issues where it safely can
// -----------------------------------------------------------------------

package validator

import (
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/rules"
)

// Service validates document and chunk metadata. Validation runs in
// three stages: a fix-minor-issues pass, a schema conformance pass, and
// a business rules pass. The two checking passes collect every violation
// rather than stopping at the first.
type Service struct {
	logger arbor.ILogger
}

// NewService creates a metadata validator.
func NewService(logger arbor.ILogger) *Service {
	return &Service{logger: logger}
}

// Options controls validation behavior.
type Options struct {
	// Strict causes Validate to return a ValidationError when any
	// violation remains after fixing.
	Strict bool

	// FixMinorIssues enables the repair pass before checking.
	FixMinorIssues bool
}

// DefaultOptions is strict validation with repairs enabled.
func DefaultOptions() Options {
	return Options{Strict: true, FixMinorIssues: true}
}

// Validate checks document metadata. The returned map is the (possibly
// repaired) metadata; the error slice lists every violation found. In
// strict mode a non-empty error list is also returned as a
// ValidationError.
func (s *Service) Validate(metadata map[string]any, opts Options) (map[string]any, []string, error) {
	s.logger.Debug().
		Bool("strict", opts.Strict).
		Bool("fix", opts.FixMinorIssues).
		Msg("Validating metadata")

	if opts.FixMinorIssues {
		metadata = FixMinorIssues(metadata)
	}

	allErrors := append(s.validateSchema(metadata), s.validateBusinessRules(metadata)...)

	if len(allErrors) > 0 {
		s.logger.Warn().
			Int("error_count", len(allErrors)).
			Str("first_error", allErrors[0]).
			Msg("Metadata validation failed")

		if opts.Strict {
			return metadata, allErrors, models.NewValidationError(allErrors)
		}
	}

	return metadata, allErrors, nil
}

// FixMinorIssues repairs common extraction defects without changing
// meaning: trims strings, lowercases enum values, coerces scalars to
// arrays, dedupes and strips array entries, and drops emptied optionals.
func FixMinorIssues(metadata map[string]any) map[string]any {
	fixed := make(map[string]any, len(metadata))
	for k, v := range metadata {
		fixed[k] = v
	}

	stringFields := []string{
		"document_type",
		"department",
		"authority_level",
		"version",
		"document_summary",
	}
	for _, field := range stringFields {
		if v, ok := fixed[field].(string); ok {
			fixed[field] = strings.TrimSpace(v)
		}
	}

	if v, ok := fixed["authority_level"].(string); ok {
		fixed["authority_level"] = strings.ToLower(v)
	}

	arrayFields := []string{"topics", "intended_audience", "key_entities"}
	for _, field := range arrayFields {
		v, ok := fixed[field]
		if !ok {
			continue
		}
		fixed[field] = cleanArray(v)
	}

	optionalFields := []string{"key_entities", "geographic_scope", "expiration_date"}
	for _, field := range optionalFields {
		if v, ok := fixed[field]; ok && isEmpty(v) {
			delete(fixed, field)
		}
	}

	return fixed
}

// cleanArray coerces a value to an array, trims string entries, and
// removes duplicates and empties while preserving order.
func cleanArray(v any) []any {
	var items []any
	switch vals := v.(type) {
	case []any:
		items = vals
	case []string:
		items = make([]any, len(vals))
		for i, s := range vals {
			items[i] = s
		}
	default:
		items = []any{v}
	}

	seen := make(map[any]bool)
	cleaned := make([]any, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			s = strings.TrimSpace(s)
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			cleaned = append(cleaned, s)
			continue
		}
		if item == nil {
			continue
		}
		cleaned = append(cleaned, item)
	}
	return cleaned
}

// validateSchema checks structural conformance: field types and basic
// shape. Vocabulary membership belongs to the business rules pass.
func (s *Service) validateSchema(metadata map[string]any) []string {
	var errors []string

	stringFields := []string{
		"document_type", "department", "authority_level",
		"version", "document_summary", "effective_date", "expiration_date",
	}
	for _, field := range stringFields {
		if v, ok := metadata[field]; ok {
			if _, isString := v.(string); !isString {
				errors = append(errors, fmt.Sprintf("%s: must be a string", field))
			}
		}
	}

	arrayFields := []string{"topics", "intended_audience", "key_entities", "geographic_scope"}
	for _, field := range arrayFields {
		if v, ok := metadata[field]; ok {
			if !isArray(v) {
				errors = append(errors, fmt.Sprintf("%s: must be an array", field))
			}
		}
	}

	boolFields := []string{"requires_acknowledgment", "compliance_related", "requires_deep_analysis"}
	for _, field := range boolFields {
		if v, ok := metadata[field]; ok {
			if _, isBool := v.(bool); !isBool {
				errors = append(errors, fmt.Sprintf("%s: must be a boolean", field))
			}
		}
	}

	if v, ok := metadata["classification_confidence"]; ok {
		if !isNumber(v) {
			errors = append(errors, "classification_confidence: must be a number")
		}
	}

	return errors
}

// validateBusinessRules checks vocabulary membership, formats, bounds,
// and cross-field constraints.
func (s *Service) validateBusinessRules(metadata map[string]any) []string {
	errors := rules.ValidateCompleteness(metadata)

	if v, ok := metadata["version"].(string); ok {
		if !rules.VersionPattern.MatchString(v) {
			errors = append(errors, fmt.Sprintf(
				"Invalid version format: %s. Expected format: major.minor or major.minor.patch", v))
		}
	}

	for _, field := range []string{"effective_date", "expiration_date"} {
		if v, ok := metadata[field].(string); ok && v != "" {
			if !rules.DatePattern.MatchString(v) {
				errors = append(errors, fmt.Sprintf(
					"Invalid %s format: %s. Expected format: YYYY-MM-DD", field, v))
			}
		}
	}

	if v, ok := metadata["document_summary"].(string); ok {
		if len(v) < rules.MinSummaryLength {
			errors = append(errors, fmt.Sprintf(
				"Summary too short: %d characters. Minimum: %d", len(v), rules.MinSummaryLength))
		}
		if len(v) > rules.MaxSummaryLength {
			errors = append(errors, fmt.Sprintf(
				"Summary too long: %d characters. Maximum: %d", len(v), rules.MaxSummaryLength))
		}
	}

	if v, ok := metadata["classification_confidence"]; ok {
		if conf, isNum := toFloat(v); isNum {
			if conf < rules.MinConfidence || conf > rules.MaxConfidence {
				errors = append(errors, fmt.Sprintf(
					"Confidence out of range: %v. Must be between %.1f and %.1f",
					v, rules.MinConfidence, rules.MaxConfidence))
			}
		}
	}

	// ISO dates compare correctly as strings
	effective, hasEffective := metadata["effective_date"].(string)
	expiration, hasExpiration := metadata["expiration_date"].(string)
	if hasEffective && hasExpiration && effective != "" && expiration != "" {
		if expiration <= effective {
			errors = append(errors, "expiration_date must be after effective_date")
		}
	}

	return errors
}

// ValidateChunkMetadata checks chunk-level constraints: section topic
// and reference link caps, and non-negative chunk numbers.
func (s *Service) ValidateChunkMetadata(chunkMetadata map[string]any, strict bool) ([]string, error) {
	var errors []string

	if v, ok := chunkMetadata["section_topics"]; ok {
		if n := arrayLen(v); n > rules.MaxSectionTopics {
			errors = append(errors, fmt.Sprintf(
				"Too many section topics: %d. Maximum: %d", n, rules.MaxSectionTopics))
		}
	}

	if v, ok := chunkMetadata["reference_links"]; ok {
		if n := arrayLen(v); n > rules.MaxReferenceLinks {
			errors = append(errors, fmt.Sprintf(
				"Too many reference links: %d. Maximum: %d", n, rules.MaxReferenceLinks))
		}
	}

	if v, ok := chunkMetadata["chunk_number"]; ok {
		if n, isNum := toFloat(v); isNum && n < 0 {
			errors = append(errors, "chunk_number cannot be negative")
		}
	}

	if len(errors) > 0 {
		s.logger.Warn().
			Int("error_count", len(errors)).
			Msg("Chunk metadata validation failed")
		if strict {
			return errors, models.NewValidationError(errors)
		}
	}

	return errors, nil
}

// IsHighConfidence reports classification_confidence >= 0.9. Missing
// confidence is not high.
func (s *Service) IsHighConfidence(metadata map[string]any) bool {
	conf, ok := toFloat(metadata["classification_confidence"])
	return ok && conf >= rules.HighConfidenceThreshold
}

// IsLowConfidence reports classification_confidence < 0.7. Missing
// confidence counts as low (needs review).
func (s *Service) IsLowConfidence(metadata map[string]any) bool {
	conf, ok := toFloat(metadata["classification_confidence"])
	if !ok {
		return true
	}
	return conf < rules.LowConfidenceThreshold
}

// Summary describes a non-raising validation run.
type Summary struct {
	IsValid           bool     `json:"is_valid"`
	ErrorCount        int      `json:"error_count"`
	Errors            []string `json:"errors,omitempty"`
	IsHighConfidence  bool     `json:"is_high_confidence"`
	IsLowConfidence   bool     `json:"is_low_confidence"`
	HasRequiredFields bool     `json:"has_required_fields"`
}

// Summarize validates without raising and reports the outcome alongside
// confidence flags.
func (s *Service) Summarize(metadata map[string]any) Summary {
	_, errors, _ := s.Validate(metadata, Options{Strict: false, FixMinorIssues: true})

	hasRequired := true
	for _, field := range []string{"document_type", "department", "authority_level", "topics", "intended_audience"} {
		if _, ok := metadata[field]; !ok {
			hasRequired = false
			break
		}
	}

	return Summary{
		IsValid:           len(errors) == 0,
		ErrorCount:        len(errors),
		Errors:            errors,
		IsHighConfidence:  s.IsHighConfidence(metadata),
		IsLowConfidence:   s.IsLowConfidence(metadata),
		HasRequiredFields: hasRequired,
	}
}

func isArray(v any) bool {
	switch v.(type) {
	case []any, []string:
		return true
	default:
		return false
	}
}

func arrayLen(v any) int {
	switch vals := v.(type) {
	case []any:
		return len(vals)
	case []string:
		return len(vals)
	default:
		return 0
	}
}

func isNumber(v any) bool {
	_, ok := toFloat(v)
	return ok
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func isEmpty(v any) bool {
	switch value := v.(type) {
	case nil:
		return true
	case string:
		return value == ""
	case []any:
		return len(value) == 0
	case []string:
		return len(value) == 0
	default:
		return false
	}
}
