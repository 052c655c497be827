package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/models"
)

// wordEncoder is a deterministic test encoder: one token per
// space-separated word, decoded with single-space joins.
type wordEncoder struct {
	words []string
}

func newWordEncoder() *wordEncoder {
	return &wordEncoder{}
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
	parts := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		parts = append(parts, e.words[tok])
	}
	return strings.Join(parts, " ")
}

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "w"
	}
	return strings.Join(parts, " ")
}

func newTestService(t *testing.T, size, overlap int) *Service {
	t.Helper()
	service, err := NewService(newWordEncoder(), size, overlap, arbor.NewLogger())
	require.NoError(t, err)
	return service
}

func TestNewServiceValidation(t *testing.T) {
	logger := arbor.NewLogger()

	_, err := NewService(newWordEncoder(), 0, 0, logger)
	assert.Error(t, err)

	_, err = NewService(newWordEncoder(), 10, 10, logger)
	assert.Error(t, err)

	_, err = NewService(newWordEncoder(), 10, -1, logger)
	assert.Error(t, err)

	_, err = NewService(newWordEncoder(), 10, 9, logger)
	assert.NoError(t, err)
}

func TestChunkNumbersAndCoverage(t *testing.T) {
	service := newTestService(t, 10, 2)
	doc := &models.Document{ID: "doc1", Content: words(25)}

	chunks := service.Chunk(doc, nil)

	// stride 8: windows [0,10) [8,18) [16,25) [24,25)
	require.Len(t, chunks, 4)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.ChunkNumber)
		assert.Equal(t, "doc1", chunk.DocumentID)
	}
	assert.Equal(t, 10, chunks[0].TokenCount)
	assert.Equal(t, 10, chunks[1].TokenCount)
	assert.Equal(t, 9, chunks[2].TokenCount)
	assert.Equal(t, 1, chunks[3].TokenCount)
}

func TestChunkOverlap(t *testing.T) {
	encoder := newWordEncoder()
	service, err := NewService(encoder, 5, 2, arbor.NewLogger())
	require.NoError(t, err)

	content := "a b c d e f g h i j"
	doc := &models.Document{ID: "doc1", Content: content}

	chunks := service.Chunk(doc, nil)
	require.Len(t, chunks, 4)

	assert.Equal(t, "a b c d e", chunks[0].Text)
	assert.Equal(t, "d e f g h", chunks[1].Text)
	assert.Equal(t, "g h i j", chunks[2].Text)
	assert.Equal(t, "j", chunks[3].Text)

	// Consecutive chunks share exactly the overlap tokens
	first := strings.Fields(chunks[0].Text)
	second := strings.Fields(chunks[1].Text)
	assert.Equal(t, first[len(first)-2:], second[:2])
}

func TestSingleChunkDocument(t *testing.T) {
	service := newTestService(t, 100, 10)
	doc := &models.Document{ID: "doc1", Content: words(5)}

	chunks := service.Chunk(doc, nil)
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].ChunkNumber)
	assert.Equal(t, 5, chunks[0].TokenCount)
	assert.Equal(t, 0, chunks[0].StartChar)
}

func TestEmptyDocument(t *testing.T) {
	service := newTestService(t, 10, 2)
	doc := &models.Document{ID: "doc1", Content: ""}

	chunks := service.Chunk(doc, nil)
	assert.Empty(t, chunks)
}

func TestCharOffsets(t *testing.T) {
	service := newTestService(t, 5, 0)
	content := "a b c d e f g h i j"
	doc := &models.Document{ID: "doc1", Content: content}

	chunks := service.Chunk(doc, nil)
	require.Len(t, chunks, 2)

	assert.Equal(t, 0, chunks[0].StartChar)
	assert.Equal(t, len("a b c d e"), chunks[0].EndChar)
	// Second window starts after re-decoding the 5-token prefix
	assert.Equal(t, len("a b c d e"), chunks[1].StartChar)
}

func TestMetadataCopiedPerChunk(t *testing.T) {
	service := newTestService(t, 5, 0)
	doc := &models.Document{ID: "doc1", Content: words(10)}

	inherited := map[string]any{"department": "HR"}
	chunks := service.Chunk(doc, inherited)
	require.Len(t, chunks, 2)

	chunks[0].Metadata["section_type"] = "overview"

	assert.Equal(t, "HR", chunks[1].Metadata["department"])
	assert.NotContains(t, chunks[1].Metadata, "section_type")
	assert.NotContains(t, inherited, "section_type")
}

func TestVectorID(t *testing.T) {
	chunk := &models.Chunk{DocumentID: "remote_work_policy", ChunkNumber: 3}
	assert.Equal(t, "remote_work_policy_chunk_3", chunk.VectorID())
}
