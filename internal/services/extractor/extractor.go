// -----------------------------------------------------------------------
// Package extractor pulls document-level metadata out of full document
// text, guided by the earlier classification
// -----------------------------------------------------------------------

package extractor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/prompts"
)

// Service extracts document metadata with a full-text model call.
type Service struct {
	gateway interfaces.Gateway
	prompts *prompts.Store
	model   string
	logger  arbor.ILogger
}

// NewService creates a document metadata extractor. An empty model uses
// the gateway's configured default.
func NewService(gateway interfaces.Gateway, promptStore *prompts.Store, model string, logger arbor.ILogger) *Service {
	return &Service{
		gateway: gateway,
		prompts: promptStore,
		model:   model,
		logger:  logger,
	}
}

// Extract returns the document-level metadata map. The classification is
// serialized into the prompt for context, and its fields override what
// the model returns where they conflict.
func (s *Service) Extract(ctx context.Context, documentText string, classification *models.Classification) (map[string]any, error) {
	if classification == nil {
		return nil, fmt.Errorf("classification is required before extraction")
	}

	classificationJSON, err := json.MarshalIndent(classification, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize classification: %w", err)
	}

	prompt, err := s.prompts.Render("doc_metadata_extraction", map[string]string{
		"classification": string(classificationJSON),
		"full_text":      documentText,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render extraction prompt: %w", err)
	}

	s.logger.Debug().
		Str("document_type", classification.DocumentType).
		Str("complexity", classification.Complexity).
		Int("text_length", len(documentText)).
		Msg("Metadata extraction started")

	metadata, err := s.gateway.CompleteJSON(ctx, interfaces.CompletionRequest{
		Prompt:      prompt,
		Model:       s.model,
		Temperature: 0.1,
		MaxTokens:   800,
	})
	if err != nil {
		return nil, fmt.Errorf("metadata extraction call failed: %w", err)
	}

	metadata = s.postProcess(metadata, classification)

	s.logger.Info().
		Int("fields_extracted", len(metadata)).
		Str("document_type", classification.DocumentType).
		Msg("Metadata extraction completed")

	return metadata, nil
}

// postProcess enforces consistency between the extracted metadata and
// the classification, normalizes list fields, strips empty values, and
// injects safe defaults.
func (s *Service) postProcess(metadata map[string]any, classification *models.Classification) map[string]any {
	// The classification owns document_type; the extraction must not
	// contradict it.
	if extracted, ok := metadata["document_type"].(string); ok && extracted != classification.DocumentType {
		s.logger.Warn().
			Str("classification", classification.DocumentType).
			Str("extracted", extracted).
			Msg("Document type mismatch, trusting classification")
	}
	metadata["document_type"] = classification.DocumentType

	metadata["complexity"] = classification.Complexity
	metadata["requires_deep_analysis"] = classification.RequiresDeepAnalysis
	metadata["classification_confidence"] = classification.Confidence

	for _, field := range []string{"topics", "intended_audience"} {
		if v, ok := metadata[field]; ok {
			if _, isList := v.([]any); !isList {
				if _, isStrings := v.([]string); !isStrings {
					metadata[field] = []any{v}
				}
			}
		}
	}

	cleaned := make(map[string]any, len(metadata))
	for k, v := range metadata {
		if isEmptyValue(v) {
			continue
		}
		cleaned[k] = v
	}

	defaults := map[string]any{
		"requires_acknowledgment": false,
		"compliance_related":      false,
		"geographic_scope":        []any{"global"},
	}
	for field, value := range defaults {
		if _, ok := cleaned[field]; !ok {
			cleaned[field] = value
		}
	}

	return cleaned
}

// isEmptyValue reports values that carry no information: nil, "", and
// empty arrays. Note false is not empty; boolean fields keep explicit
// false values.
func isEmptyValue(v any) bool {
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
