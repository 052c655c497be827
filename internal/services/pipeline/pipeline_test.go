package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/prompts"
	"github.com/ternarybob/colligo/internal/services/chunker"
	"github.com/ternarybob/colligo/internal/services/classifier"
	"github.com/ternarybob/colligo/internal/services/extractor"
	"github.com/ternarybob/colligo/internal/services/validator"
)

type jsonReply struct {
	response map[string]any
	err      error
}

// fakeGateway serves queued JSON replies in call order.
type fakeGateway struct {
	replies []jsonReply
	calls   int
	usage   models.Usage
}

func (f *fakeGateway) Complete(ctx context.Context, req interfaces.CompletionRequest) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeGateway) CompleteJSON(ctx context.Context, req interfaces.CompletionRequest) (map[string]any, error) {
	if f.calls >= len(f.replies) {
		return nil, errors.New("no reply queued")
	}
	reply := f.replies[f.calls]
	f.calls++
	return reply.response, reply.err
}

func (f *fakeGateway) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeGateway) Usage() models.Usage { return f.usage }
func (f *fakeGateway) ResetUsage()         { f.usage = models.Usage{} }

// wordEncoder tokenizes on whitespace so window math is deterministic.
type wordEncoder struct {
	words []string
}

func (e *wordEncoder) Encode(text string) []int {
	e.words = strings.Fields(text)
	tokens := make([]int, len(e.words))
	for i := range tokens {
		tokens[i] = i
	}
	return tokens
}

func (e *wordEncoder) Decode(tokens []int) string {
	parts := make([]string, len(tokens))
	for i, tok := range tokens {
		parts[i] = e.words[tok]
	}
	return strings.Join(parts, " ")
}

func classificationReply(complexity string, requiresDeep bool) jsonReply {
	return jsonReply{response: map[string]any{
		"complexity":             complexity,
		"document_type":          "HR Policy",
		"requires_deep_analysis": requiresDeep,
		"confidence":             0.92,
		"reasoning":              "Standard policy structure",
	}}
}

func extractionReply() jsonReply {
	return jsonReply{response: map[string]any{
		"document_type":     "HR Policy",
		"department":        "HR",
		"authority_level":   "official",
		"topics":            []any{"remote_work", "hybrid_work"},
		"intended_audience": []any{"all_employees"},
		"document_summary":  "Defines eligibility and expectations for employees working remotely on a full or hybrid schedule.",
	}}
}

func newTestPipeline(t *testing.T, gateway *fakeGateway, opts ...Option) *Service {
	t.Helper()

	logger := arbor.NewLogger()
	promptStore, err := prompts.NewStore("", logger)
	require.NoError(t, err)

	chunkerSvc, err := chunker.NewService(&wordEncoder{}, 10, 2, logger)
	require.NoError(t, err)

	return NewService(
		classifier.NewService(gateway, promptStore, "", logger),
		extractor.NewService(gateway, promptStore, "", logger),
		chunkerSvc,
		validator.NewService(logger),
		gateway,
		logger,
		opts...,
	)
}

func policyDocument() *models.Document {
	return &models.Document{
		ID:         "remote_work_policy_ab12cd34",
		SourceFile: "remote_work_policy.md",
		Content: "REMOTE WORK POLICY Effective 2026-01-01 this policy defines eligibility " +
			"expectations and equipment standards for employees working remotely on a " +
			"full or hybrid schedule including approval workflow and security requirements",
	}
}

func TestRunCompletesSimpleDocument(t *testing.T) {
	gateway := &fakeGateway{
		replies: []jsonReply{classificationReply("structured", false), extractionReply()},
		usage:   models.Usage{TotalTokens: 1200, Requests: 2, CostUSD: 0.01},
	}
	service := newTestPipeline(t, gateway)

	state := service.Run(context.Background(), policyDocument())

	assert.Equal(t, models.StatusCompleted, state.Status)
	assert.True(t, state.Status.IsTerminal())
	assert.True(t, state.IsValid)
	assert.Empty(t, state.ValidationErrors)
	assert.Empty(t, state.Error)

	require.NotNil(t, state.Classification)
	assert.Equal(t, "HR Policy", state.Classification.DocumentType)
	assert.Equal(t, models.StrategyTemplate, state.Strategy)

	assert.NotEmpty(t, state.Chunks)
	for _, chunk := range state.Chunks {
		assert.Equal(t, state.DocumentID, chunk.DocumentID)
		assert.Equal(t, "HR", chunk.Metadata["department"])
	}

	assert.Equal(t, "HR", state.Metadata["department"])
	assert.InDelta(t, 0.92, state.Metadata["classification_confidence"].(float64), 1e-9)

	assert.Equal(t, int64(1200), state.Usage.TotalTokens)
	assert.False(t, state.CompletedAt.IsZero())
	assert.GreaterOrEqual(t, state.Duration, state.CompletedAt.Sub(state.StartedAt))

	// Simple path skips chunk enrichment: classify + extract only.
	assert.Equal(t, 2, gateway.calls)
}

func TestRunDeepAnalysisCallsEnrich(t *testing.T) {
	gateway := &fakeGateway{
		replies: []jsonReply{classificationReply("complex", true), extractionReply()},
	}

	enriched := false
	service := newTestPipeline(t, gateway, WithEnrichFunc(func(ctx context.Context, state *models.PipelineState) error {
		enriched = true
		for _, chunk := range state.Chunks {
			chunk.Metadata["section_type"] = "policy_statement"
		}
		return nil
	}))

	state := service.Run(context.Background(), policyDocument())

	assert.Equal(t, models.StatusCompleted, state.Status)
	assert.True(t, enriched)
	require.NotEmpty(t, state.Chunks)
	assert.Equal(t, "policy_statement", state.Chunks[0].Metadata["section_type"])
}

func TestRunDeepAnalysisWithoutEnrichPassesThrough(t *testing.T) {
	gateway := &fakeGateway{
		replies: []jsonReply{classificationReply("complex", true), extractionReply()},
	}
	service := newTestPipeline(t, gateway)

	state := service.Run(context.Background(), policyDocument())

	assert.Equal(t, models.StatusCompleted, state.Status)
	require.NotEmpty(t, state.Chunks)
	assert.Equal(t, "HR", state.Chunks[0].Metadata["department"])
}

func TestRunFailsAtClassification(t *testing.T) {
	gateway := &fakeGateway{
		replies: []jsonReply{{err: errors.New("model unavailable")}},
	}
	service := newTestPipeline(t, gateway)

	state := service.Run(context.Background(), policyDocument())

	assert.Equal(t, models.StatusFailed, state.Status)
	assert.True(t, state.Status.IsTerminal())
	assert.Equal(t, "classifying", state.ErrorStage)
	assert.Contains(t, state.Error, "classification failed")
	assert.Nil(t, state.Classification)
	assert.False(t, state.CompletedAt.IsZero())
}

func TestRunFailsAtExtraction(t *testing.T) {
	gateway := &fakeGateway{
		replies: []jsonReply{classificationReply("structured", false), {err: errors.New("timeout")}},
	}
	service := newTestPipeline(t, gateway)

	state := service.Run(context.Background(), policyDocument())

	assert.Equal(t, models.StatusFailed, state.Status)
	assert.Equal(t, "extracting_metadata", state.ErrorStage)
	assert.Contains(t, state.Error, "document metadata extraction failed")
	assert.NotNil(t, state.Classification)
}

func TestRunFailsAtEnrichment(t *testing.T) {
	gateway := &fakeGateway{
		replies: []jsonReply{classificationReply("complex", true), extractionReply()},
	}
	service := newTestPipeline(t, gateway, WithEnrichFunc(func(ctx context.Context, state *models.PipelineState) error {
		return errors.New("chunk model rejected request")
	}))

	state := service.Run(context.Background(), policyDocument())

	assert.Equal(t, models.StatusFailed, state.Status)
	assert.Equal(t, "extracting_chunks", state.ErrorStage)
	assert.Contains(t, state.Error, "chunk metadata extraction failed")
}

func TestRunValidationErrorsStillComplete(t *testing.T) {
	badExtraction := extractionReply()
	badExtraction.response["document_summary"] = "Too short."
	delete(badExtraction.response, "department")

	gateway := &fakeGateway{
		replies: []jsonReply{classificationReply("structured", false), badExtraction},
	}
	service := newTestPipeline(t, gateway)

	state := service.Run(context.Background(), policyDocument())

	assert.Equal(t, models.StatusCompleted, state.Status)
	assert.False(t, state.IsValid)
	assert.NotEmpty(t, state.ValidationErrors)
	assert.Empty(t, state.Error)
}

func TestRunLowConfidenceWarning(t *testing.T) {
	classification := classificationReply("structured", false)
	classification.response["confidence"] = 0.55

	gateway := &fakeGateway{
		replies: []jsonReply{classification, extractionReply()},
	}
	service := newTestPipeline(t, gateway)

	state := service.Run(context.Background(), policyDocument())

	assert.Equal(t, models.StatusCompleted, state.Status)
	assert.Contains(t, state.ValidationWarnings, "Low confidence classification - manual review recommended")
}
