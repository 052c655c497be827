// -----------------------------------------------------------------------
// Package answer synthesizes grounded answers from retrieved chunks,
// with source attribution and retrieval-based confidence scoring
// -----------------------------------------------------------------------

package answer

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/prompts"
)

const (
	generationTemperature = 0.3
	generationMaxTokens   = 1000

	// emptyContext stands in when retrieval returned nothing, so the
	// model says so instead of inventing an answer.
	emptyContext = "No relevant documents found."
)

// Service generates answers from retrieval results.
type Service struct {
	gateway     interfaces.Gateway
	promptStore *prompts.Store
	model       string
	logger      arbor.ILogger
}

// NewService creates an answer generation service.
//
// Parameters:
//   - gateway: model gateway for answer completions
//   - promptStore: prompt template store
//   - model: generation model; empty uses the gateway default
//   - logger: logger instance
//
// Returns:
//   - *Service: configured answer service
func NewService(gateway interfaces.Gateway, promptStore *prompts.Store, model string, logger arbor.ILogger) *Service {
	return &Service{
		gateway:     gateway,
		promptStore: promptStore,
		model:       model,
		logger:      logger,
	}
}

// Generate synthesizes an answer for the query from the retrieval
// result. The answer carries per-chunk source attribution and a
// confidence derived from the retrieval scores.
func (s *Service) Generate(ctx context.Context, result *models.QueryResult) (*models.Answer, error) {
	prompt, err := s.promptStore.Render("answer_generation", map[string]string{
		"query":   result.Query,
		"context": FormatContext(result.Chunks),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build answer prompt: %w", err)
	}

	text, err := s.gateway.Complete(ctx, interfaces.CompletionRequest{
		Prompt:      prompt,
		Model:       s.model,
		Temperature: generationTemperature,
		MaxTokens:   generationMaxTokens,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("query", result.Query).Msg("Answer generation failed")
		return nil, fmt.Errorf("answer generation failed: %w", err)
	}

	answer := &models.Answer{
		Query:      result.Query,
		Text:       text,
		Confidence: CalculateConfidence(result.Chunks),
		Sources:    prepareSources(result.Chunks),
		ChunksUsed: len(result.Chunks),
	}

	s.logger.Info().
		Str("query", result.Query).
		Int("answer_length", len(text)).
		Int("sources", len(answer.Sources)).
		Msg("Answer generated")

	return answer, nil
}

// FormatContext renders the retrieved chunks as a source-attributed
// context block for the generation prompt.
func FormatContext(chunks []models.RetrievedChunk) string {
	if len(chunks) == 0 {
		return emptyContext
	}

	parts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		var sourceParts []string
		if v := chunk.Metadata["document_type"]; v != "" {
			sourceParts = append(sourceParts, v)
		}
		if v := chunk.Metadata["department"]; v != "" {
			sourceParts = append(sourceParts, v)
		}
		if v := chunk.Metadata["authority_level"]; v != "" {
			sourceParts = append(sourceParts, "Authority: "+v)
		}

		parts = append(parts, fmt.Sprintf("---\nSource: %s\nContent: %s\n---",
			strings.Join(sourceParts, " | "), chunk.Text))
	}

	return strings.Join(parts, "\n\n")
}

// CalculateConfidence scores the answer from the retrieval results: the
// average of the top three scores, boosted by 0.1 when at least three
// chunks all score above 0.7 and by 0.05 when at least two of the top
// three come from official sources. Capped at 1.0 and rounded to two
// decimals.
func CalculateConfidence(chunks []models.RetrievedChunk) float64 {
	if len(chunks) == 0 {
		return 0.0
	}

	top := chunks
	if len(top) > 3 {
		top = top[:3]
	}

	var sum float64
	allAbove := true
	for _, chunk := range top {
		sum += chunk.Score
		if chunk.Score <= 0.7 {
			allAbove = false
		}
	}
	confidence := sum / float64(len(top))

	if len(chunks) >= 3 && allAbove {
		confidence = math.Min(1.0, confidence+0.1)
	}

	official := 0
	for _, chunk := range top {
		if chunk.Metadata["authority_level"] == "official" {
			official++
		}
	}
	if official >= 2 {
		confidence = math.Min(1.0, confidence+0.05)
	}

	return math.Round(confidence*100) / 100
}

// prepareSources builds the attribution list, one entry per chunk.
func prepareSources(chunks []models.RetrievedChunk) []models.Source {
	sources := make([]models.Source, 0, len(chunks))
	for _, chunk := range chunks {
		source := models.Source{
			DocumentID:     metadataOr(chunk.Metadata, "document_id", "Unknown"),
			DocumentType:   metadataOr(chunk.Metadata, "document_type", "Unknown"),
			Department:     metadataOr(chunk.Metadata, "department", "Unknown"),
			AuthorityLevel: metadataOr(chunk.Metadata, "authority_level", "Unknown"),
			EffectiveDate:  chunk.Metadata["effective_date"],
			Version:        chunk.Metadata["version"],
			Score:          chunk.Score,
		}
		sources = append(sources, source)
	}
	return sources
}

func metadataOr(metadata map[string]string, key, fallback string) string {
	if v, ok := metadata[key]; ok && v != "" {
		return v
	}
	return fallback
}
