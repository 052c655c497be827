// -----------------------------------------------------------------------
// Package classifier triages documents to determine type, complexity,
// and the extraction strategy to route them to
// -----------------------------------------------------------------------

package classifier

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/prompts"
	"github.com/ternarybob/colligo/internal/rules"
)

// DefaultPreviewLength is the preview budget in characters (~500 words).
const DefaultPreviewLength = 2000

const previewMarker = "[... middle content omitted ...]"

// Service classifies documents via a preview-based model call.
type Service struct {
	gateway       interfaces.Gateway
	prompts       *prompts.Store
	model         string
	previewLength int
	logger        arbor.ILogger
}

// NewService creates a document classifier. An empty model uses the
// gateway's configured default.
func NewService(gateway interfaces.Gateway, promptStore *prompts.Store, model string, logger arbor.ILogger) *Service {
	return &Service{
		gateway:       gateway,
		prompts:       promptStore,
		model:         model,
		previewLength: DefaultPreviewLength,
		logger:        logger,
	}
}

// Classify determines the document's type, complexity, and whether deep
// analysis is required. Recoverable response problems (unknown enum
// values, out-of-range confidence) are repaired with a warning; missing
// required fields fail with a ValidationError naming them.
func (s *Service) Classify(ctx context.Context, documentText string) (*models.Classification, error) {
	preview := BuildPreview(documentText, s.previewLength)

	prompt, err := s.prompts.Render("classification", map[string]string{
		"document_preview": preview,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render classification prompt: %w", err)
	}

	s.logger.Debug().
		Int("text_length", len(documentText)).
		Int("preview_length", len(preview)).
		Msg("Classification started")

	response, err := s.gateway.CompleteJSON(ctx, interfaces.CompletionRequest{
		Prompt:      prompt,
		Model:       s.model,
		Temperature: 0.1,
		MaxTokens:   250,
	})
	if err != nil {
		return nil, fmt.Errorf("classification call failed: %w", err)
	}

	classification, err := s.parseClassification(response)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("document_type", classification.DocumentType).
		Str("complexity", classification.Complexity).
		Bool("requires_deep", classification.RequiresDeepAnalysis).
		Msg("Classification completed")

	return classification, nil
}

// BuildPreview creates a representative preview of the document: the
// first 80% of the budget from the start and the last 20% from the end,
// joined by an omission marker. Text within the budget passes through
// unchanged. This captures title, headers, and conclusion/signature.
func BuildPreview(text string, maxLength int) string {
	if len(text) <= maxLength {
		return text
	}

	startLength := maxLength * 8 / 10
	endLength := maxLength - startLength

	return text[:startLength] + "\n\n" + previewMarker + "\n\n" + text[len(text)-endLength:]
}

// parseClassification validates the model response and repairs
// recoverable problems.
func (s *Service) parseClassification(response map[string]any) (*models.Classification, error) {
	var missing []string
	for _, field := range []string{"complexity", "document_type", "requires_deep_analysis", "confidence"} {
		if _, ok := response[field]; !ok {
			missing = append(missing, fmt.Sprintf("missing required field: %s", field))
		}
	}
	if len(missing) > 0 {
		return nil, models.NewValidationError(missing)
	}

	complexity, _ := response["complexity"].(string)
	documentType, _ := response["document_type"].(string)
	requiresDeep, _ := response["requires_deep_analysis"].(bool)
	confidence, _ := response["confidence"].(float64)
	reasoning, _ := response["reasoning"].(string)

	if !rules.IsValidComplexity(complexity) {
		s.logger.Warn().
			Str("received", complexity).
			Msg("Invalid complexity level, defaulting to structured")
		complexity = "structured"
	}

	if !rules.IsValidDocumentType(documentType) {
		s.logger.Warn().
			Str("received", documentType).
			Msg("Invalid document type, defaulting to Other")
		documentType = "Other"
	}

	if confidence < 0.0 || confidence > 1.0 {
		s.logger.Warn().
			Str("received", fmt.Sprintf("%v", response["confidence"])).
			Msg("Confidence out of range, clamping")
		confidence = clamp(confidence, 0.0, 1.0)
	}

	if reasoning == "" {
		reasoning = "No reasoning provided"
	}

	return &models.Classification{
		DocumentType:         documentType,
		Complexity:           complexity,
		Confidence:           confidence,
		Reasoning:            reasoning,
		RequiresDeepAnalysis: requiresDeep,
	}, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
