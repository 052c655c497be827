package retriever

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

// fakeGateway returns a canned JSON response for query understanding.
type fakeGateway struct {
	response map[string]any
	err      error
	lastReq  interfaces.CompletionRequest
}

func (f *fakeGateway) Complete(ctx context.Context, req interfaces.CompletionRequest) (string, error) {
	return "", errors.New("not implemented")
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

// fakeStore records the search request and returns canned hits.
type fakeStore struct {
	hits        []models.RetrievedChunk
	err         error
	lastQuery   string
	lastTopK    int
	lastFilters []interfaces.Filter
}

func (f *fakeStore) AddChunks(ctx context.Context, chunks []*models.Chunk) error { return nil }

func (f *fakeStore) Search(ctx context.Context, query string, topK int, filters []interfaces.Filter) ([]models.RetrievedChunk, error) {
	f.lastQuery = query
	f.lastTopK = topK
	f.lastFilters = filters
	return f.hits, f.err
}

func (f *fakeStore) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	return 0, nil
}

func (f *fakeStore) Count() (int, error) { return len(f.hits), nil }

func newTestService(t *testing.T, gateway *fakeGateway, store *fakeStore) *Service {
	t.Helper()
	promptStore, err := prompts.NewStore("", arbor.NewLogger())
	require.NoError(t, err)
	return NewService(gateway, store, promptStore, "claude-sonnet-4-20250514", arbor.NewLogger())
}

func TestUnderstandQuery(t *testing.T) {
	t.Run("parses full response", func(t *testing.T) {
		gateway := &fakeGateway{response: map[string]any{
			"intent":             "procedural",
			"reformulated_query": "remote work eligibility policy",
			"required_filters": map[string]any{
				"document_type": "HR Policy",
				"department":    []any{"HR", "Operations"},
			},
			"confidence": 0.85,
		}}
		service := newTestService(t, gateway, &fakeStore{})

		analysis := service.UnderstandQuery(context.Background(), "can I work from home?")

		assert.Equal(t, "procedural", analysis.Intent)
		assert.Equal(t, "remote work eligibility policy", analysis.ReformulatedQuery)
		assert.Equal(t, 0.85, analysis.Confidence)
		assert.Equal(t, []string{"HR Policy"}, analysis.RequiredFilters["document_type"])
		assert.Equal(t, []string{"HR", "Operations"}, analysis.RequiredFilters["department"])

		assert.InDelta(t, 0.2, float64(gateway.lastReq.Temperature), 1e-6)
		assert.Equal(t, 300, gateway.lastReq.MaxTokens)
		assert.Equal(t, "claude-sonnet-4-20250514", gateway.lastReq.Model)
		assert.Contains(t, gateway.lastReq.Prompt, "can I work from home?")
	})

	t.Run("gateway failure falls back", func(t *testing.T) {
		gateway := &fakeGateway{err: errors.New("model unavailable")}
		service := newTestService(t, gateway, &fakeStore{})

		analysis := service.UnderstandQuery(context.Background(), "expense policy?")

		assert.Equal(t, "factual", analysis.Intent)
		assert.Equal(t, "expense policy?", analysis.ReformulatedQuery)
		assert.Equal(t, 0.5, analysis.Confidence)
		assert.Empty(t, analysis.RequiredFilters)
	})

	t.Run("partial response keeps defaults", func(t *testing.T) {
		gateway := &fakeGateway{response: map[string]any{
			"intent": "comparative",
		}}
		service := newTestService(t, gateway, &fakeStore{})

		analysis := service.UnderstandQuery(context.Background(), "original query")

		assert.Equal(t, "comparative", analysis.Intent)
		assert.Equal(t, "original query", analysis.ReformulatedQuery)
		assert.Equal(t, 0.5, analysis.Confidence)
	})
}

func TestBuildFilters(t *testing.T) {
	t.Run("only filterable fields pass", func(t *testing.T) {
		filters := BuildFilters(map[string][]string{
			"document_type": {"HR Policy"},
			"department":    {"HR"},
			"topics":        {"remote_work"},
			"authority":     {"official"},
		})

		require.Len(t, filters, 2)
		fields := []string{filters[0].Field, filters[1].Field}
		assert.ElementsMatch(t, []string{"document_type", "department"}, fields)
	})

	t.Run("multi-value filter keeps all values", func(t *testing.T) {
		filters := BuildFilters(map[string][]string{
			"department": {"HR", "Finance"},
		})

		require.Len(t, filters, 1)
		assert.Equal(t, []string{"HR", "Finance"}, filters[0].Values)
	})

	t.Run("empty map builds nothing", func(t *testing.T) {
		assert.Empty(t, BuildFilters(nil))
		assert.Empty(t, BuildFilters(map[string][]string{"department": {}}))
	})
}

func TestRetrieve(t *testing.T) {
	t.Run("searches reformulated query with filters", func(t *testing.T) {
		gateway := &fakeGateway{response: map[string]any{
			"intent":             "factual",
			"reformulated_query": "remote work policy",
			"required_filters":   map[string]any{"department": "HR"},
			"confidence":         0.9,
		}}
		store := &fakeStore{hits: []models.RetrievedChunk{
			{ID: "doc1_chunk_0", Distance: 0.1},
			{ID: "doc1_chunk_1", Distance: 0.5},
		}}
		service := newTestService(t, gateway, store)

		result, err := service.Retrieve(context.Background(), "can I work remotely?", 3)
		require.NoError(t, err)

		assert.Equal(t, "remote work policy", store.lastQuery)
		assert.Equal(t, 3, store.lastTopK)
		require.Len(t, store.lastFilters, 1)
		assert.Equal(t, "department", store.lastFilters[0].Field)

		assert.Equal(t, "can I work remotely?", result.Query)
		require.Len(t, result.Chunks, 2)
		assert.Equal(t, 1.0, result.Chunks[0].Score)
		assert.Equal(t, 0.0, result.Chunks[1].Score)
		assert.GreaterOrEqual(t, result.Chunks[0].Score, result.Chunks[1].Score)
	})

	t.Run("understanding failure still searches", func(t *testing.T) {
		gateway := &fakeGateway{err: errors.New("model unavailable")}
		store := &fakeStore{hits: []models.RetrievedChunk{{ID: "doc1_chunk_0"}}}
		service := newTestService(t, gateway, store)

		result, err := service.Retrieve(context.Background(), "expense limits", 0)
		require.NoError(t, err)

		assert.Equal(t, "expense limits", store.lastQuery)
		assert.Equal(t, DefaultTopK, store.lastTopK)
		assert.Empty(t, store.lastFilters)
		assert.Len(t, result.Chunks, 1)
	})

	t.Run("search error surfaces", func(t *testing.T) {
		gateway := &fakeGateway{response: map[string]any{}}
		store := &fakeStore{err: errors.New("store closed")}
		service := newTestService(t, gateway, store)

		_, err := service.Retrieve(context.Background(), "anything", 5)
		assert.ErrorContains(t, err, "search failed")
	})
}
