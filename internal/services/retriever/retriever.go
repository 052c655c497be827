// -----------------------------------------------------------------------
// Package retriever turns natural-language questions into filtered
// vector searches: query understanding, metadata filters, and scored
// results
// -----------------------------------------------------------------------

package retriever

import (
	"context"
	"fmt"
	"sort"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/prompts"
	"github.com/ternarybob/colligo/internal/services/vectorstore"
)

const (
	understandingTemperature = 0.2
	understandingMaxTokens   = 300

	// DefaultTopK is the result count used when the caller passes zero.
	DefaultTopK = 5
)

// filterableFields are the only metadata fields turned into hard
// filters. Topics and audience stay with similarity ranking; filtering
// on them cuts recall too aggressively.
var filterableFields = []string{"document_type", "department"}

// Service answers retrieval requests against the vector store.
type Service struct {
	gateway     interfaces.Gateway
	store       interfaces.VectorStore
	promptStore *prompts.Store
	model       string
	logger      arbor.ILogger
}

// NewService creates a retriever service.
//
// Parameters:
//   - gateway: model gateway for query understanding
//   - store: vector store to search
//   - promptStore: prompt template store
//   - model: query understanding model; empty uses the gateway default
//   - logger: logger instance
//
// Returns:
//   - *Service: configured retriever
func NewService(gateway interfaces.Gateway, store interfaces.VectorStore, promptStore *prompts.Store, model string, logger arbor.ILogger) *Service {
	return &Service{
		gateway:     gateway,
		store:       store,
		promptStore: promptStore,
		model:       model,
		logger:      logger,
	}
}

// Retrieve analyzes the query, searches with the reformulated text and
// any metadata filters, and returns results ordered by descending
// normalized score.
func (s *Service) Retrieve(ctx context.Context, query string, topK int) (*models.QueryResult, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	analysis := s.UnderstandQuery(ctx, query)
	filters := BuildFilters(analysis.RequiredFilters)

	hits, err := s.store.Search(ctx, analysis.ReformulatedQuery, topK, filters)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	vectorstore.NormalizeScores(hits)
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	s.logger.Info().
		Str("intent", analysis.Intent).
		Int("filters", len(filters)).
		Int("results", len(hits)).
		Msg("Retrieval completed")

	return &models.QueryResult{
		Query:    query,
		Analysis: &analysis,
		Chunks:   hits,
	}, nil
}

// UnderstandQuery asks the model to classify intent, extract filters,
// and reformulate the query. Any failure falls back to searching the
// original query with no filters.
func (s *Service) UnderstandQuery(ctx context.Context, query string) models.QueryAnalysis {
	fallback := models.QueryAnalysis{
		Intent:            "factual",
		ReformulatedQuery: query,
		RequiredFilters:   map[string][]string{},
		Confidence:        0.5,
	}

	prompt, err := s.promptStore.Render("query_understanding", map[string]string{
		"query": query,
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("Query understanding prompt unavailable, using fallback")
		return fallback
	}

	response, err := s.gateway.CompleteJSON(ctx, interfaces.CompletionRequest{
		Prompt:      prompt,
		Model:       s.model,
		Temperature: understandingTemperature,
		MaxTokens:   understandingMaxTokens,
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("Query understanding failed, using fallback")
		return fallback
	}

	analysis := fallback
	if intent, ok := response["intent"].(string); ok && intent != "" {
		analysis.Intent = intent
	}
	if reformulated, ok := response["reformulated_query"].(string); ok && reformulated != "" {
		analysis.ReformulatedQuery = reformulated
	}
	if confidence, ok := response["confidence"].(float64); ok {
		analysis.Confidence = confidence
	}
	if rawFilters, ok := response["required_filters"].(map[string]any); ok {
		analysis.RequiredFilters = parseFilterValues(rawFilters)
	}

	s.logger.Debug().
		Str("intent", analysis.Intent).
		Str("reformulated", analysis.ReformulatedQuery).
		Msg("Query understood")

	return analysis
}

// BuildFilters converts the analysis filters into store filters. Only
// document_type and department are honored; filters combine with AND,
// and a multi-valued filter matches any of its values.
func BuildFilters(required map[string][]string) []interfaces.Filter {
	var filters []interfaces.Filter
	for _, field := range filterableFields {
		values := required[field]
		if len(values) == 0 {
			continue
		}
		filters = append(filters, interfaces.Filter{Field: field, Values: values})
	}
	return filters
}

// parseFilterValues accepts both a single string and a list of strings
// per field.
func parseFilterValues(raw map[string]any) map[string][]string {
	parsed := make(map[string][]string, len(raw))
	for field, value := range raw {
		switch v := value.(type) {
		case string:
			if v != "" {
				parsed[field] = []string{v}
			}
		case []any:
			var values []string
			for _, item := range v {
				if str, ok := item.(string); ok && str != "" {
					values = append(values, str)
				}
			}
			if len(values) > 0 {
				parsed[field] = values
			}
		}
	}
	return parsed
}
