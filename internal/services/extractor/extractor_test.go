package extractor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/prompts"
)

type fakeGateway struct {
	response map[string]any
	err      error
	lastReq  interfaces.CompletionRequest
}

func (f *fakeGateway) Complete(ctx context.Context, req interfaces.CompletionRequest) (string, error) {
	f.lastReq = req
	return "", f.err
}

func (f *fakeGateway) CompleteJSON(ctx context.Context, req interfaces.CompletionRequest) (map[string]any, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func (f *fakeGateway) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeGateway) Usage() models.Usage { return models.Usage{} }
func (f *fakeGateway) ResetUsage()         {}

func newTestService(t *testing.T, gateway *fakeGateway) *Service {
	t.Helper()
	store, err := prompts.NewStore("", arbor.NewLogger())
	require.NoError(t, err)
	return NewService(gateway, store, "claude-sonnet-4-20250514", arbor.NewLogger())
}

func hrClassification() *models.Classification {
	return &models.Classification{
		DocumentType:         "HR Policy",
		Complexity:           "structured",
		Confidence:           0.92,
		RequiresDeepAnalysis: false,
	}
}

func TestExtract(t *testing.T) {
	gateway := &fakeGateway{response: map[string]any{
		"document_type":     "HR Policy",
		"department":        "HR",
		"authority_level":   "official",
		"topics":            []any{"remote_work", "hybrid_work"},
		"intended_audience": []any{"all_employees"},
		"document_summary":  "Defines eligibility and expectations for employees working remotely on a full or hybrid schedule.",
	}}
	service := newTestService(t, gateway)

	metadata, err := service.Extract(context.Background(), "REMOTE WORK POLICY ...", hrClassification())
	require.NoError(t, err)

	assert.Equal(t, "HR Policy", metadata["document_type"])
	assert.Equal(t, "HR", metadata["department"])

	// Classification context flows into the record
	assert.Equal(t, "structured", metadata["complexity"])
	assert.Equal(t, false, metadata["requires_deep_analysis"])
	assert.Equal(t, 0.92, metadata["classification_confidence"])

	// Prompt includes the serialized classification and the full text
	assert.Contains(t, gateway.lastReq.Prompt, `"document_type": "HR Policy"`)
	assert.Contains(t, gateway.lastReq.Prompt, "REMOTE WORK POLICY")
	assert.Equal(t, float32(0.1), gateway.lastReq.Temperature)
	assert.Equal(t, 800, gateway.lastReq.MaxTokens)
	assert.Equal(t, "claude-sonnet-4-20250514", gateway.lastReq.Model)
}

func TestExtractForcesClassifiedDocumentType(t *testing.T) {
	gateway := &fakeGateway{response: map[string]any{
		"document_type": "Memo",
		"department":    "HR",
	}}
	service := newTestService(t, gateway)

	metadata, err := service.Extract(context.Background(), "text", hrClassification())
	require.NoError(t, err)

	assert.Equal(t, "HR Policy", metadata["document_type"])
}

func TestExtractCoercesScalarsToLists(t *testing.T) {
	gateway := &fakeGateway{response: map[string]any{
		"topics":            "remote_work",
		"intended_audience": "all_employees",
	}}
	service := newTestService(t, gateway)

	metadata, err := service.Extract(context.Background(), "text", hrClassification())
	require.NoError(t, err)

	assert.Equal(t, []any{"remote_work"}, metadata["topics"])
	assert.Equal(t, []any{"all_employees"}, metadata["intended_audience"])
}

func TestExtractStripsEmptyValues(t *testing.T) {
	gateway := &fakeGateway{response: map[string]any{
		"department":      "HR",
		"effective_date":  "",
		"expiration_date": nil,
		"key_entities":    []any{},
	}}
	service := newTestService(t, gateway)

	metadata, err := service.Extract(context.Background(), "text", hrClassification())
	require.NoError(t, err)

	assert.NotContains(t, metadata, "effective_date")
	assert.NotContains(t, metadata, "expiration_date")
	assert.NotContains(t, metadata, "key_entities")
	assert.Equal(t, "HR", metadata["department"])
}

func TestExtractInjectsDefaults(t *testing.T) {
	gateway := &fakeGateway{response: map[string]any{
		"department": "HR",
	}}
	service := newTestService(t, gateway)

	metadata, err := service.Extract(context.Background(), "text", hrClassification())
	require.NoError(t, err)

	assert.Equal(t, false, metadata["requires_acknowledgment"])
	assert.Equal(t, false, metadata["compliance_related"])
	assert.Equal(t, []any{"global"}, metadata["geographic_scope"])
}

func TestExtractDefaultsDoNotOverride(t *testing.T) {
	gateway := &fakeGateway{response: map[string]any{
		"requires_acknowledgment": true,
		"geographic_scope":        []any{"us", "eu"},
	}}
	service := newTestService(t, gateway)

	metadata, err := service.Extract(context.Background(), "text", hrClassification())
	require.NoError(t, err)

	assert.Equal(t, true, metadata["requires_acknowledgment"])
	assert.Equal(t, []any{"us", "eu"}, metadata["geographic_scope"])
}

func TestExtractRequiresClassification(t *testing.T) {
	service := newTestService(t, &fakeGateway{})

	_, err := service.Extract(context.Background(), "text", nil)
	assert.Error(t, err)
}

func TestExtractGatewayError(t *testing.T) {
	gateway := &fakeGateway{err: errors.New("api down")}
	service := newTestService(t, gateway)

	_, err := service.Extract(context.Background(), "text", hrClassification())
	assert.Error(t, err)
}
