// -----------------------------------------------------------------------
// Package vectorstore embeds chunks, persists them with flattened
// metadata, and serves cosine-distance search over the stored vectors
// -----------------------------------------------------------------------

package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	storage "github.com/ternarybob/colligo/internal/storage/badger"
)

// Manager implements interfaces.VectorStore over badger-backed chunk
// records. Search is brute-force cosine distance over the candidate set
// after metadata filtering.
type Manager struct {
	storage *storage.ChunkStorage
	gateway interfaces.Gateway
	logger  arbor.ILogger
}

var _ interfaces.VectorStore = (*Manager)(nil)

// NewManager creates a vector store manager.
func NewManager(chunkStorage *storage.ChunkStorage, gateway interfaces.Gateway, logger arbor.ILogger) *Manager {
	return &Manager{
		storage: chunkStorage,
		gateway: gateway,
		logger:  logger,
	}
}

// AddChunks embeds the chunks and upserts their records. Chunk ids are
// derived from document id and chunk number, so re-adding a document's
// chunks overwrites the previous records.
func (m *Manager) AddChunks(ctx context.Context, chunks []*models.Chunk) error {
	if len(chunks) == 0 {
		m.logger.Warn().Msg("AddChunks called with empty chunk list")
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	embeddings, err := m.gateway.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("expected %d embeddings, got %d", len(chunks), len(embeddings))
	}

	for i, chunk := range chunks {
		record := &storage.ChunkRecord{
			ID:          chunk.VectorID(),
			DocumentID:  chunk.DocumentID,
			ChunkNumber: chunk.ChunkNumber,
			Text:        chunk.Text,
			TokenCount:  chunk.TokenCount,
			StartChar:   chunk.StartChar,
			EndChar:     chunk.EndChar,
			Embedding:   embeddings[i],
			Metadata:    FlattenMetadata(chunk),
		}
		if err := m.storage.Upsert(record); err != nil {
			return err
		}
	}

	total, _ := m.storage.Count()
	m.logger.Info().
		Str("document_id", chunks[0].DocumentID).
		Int("chunk_count", len(chunks)).
		Int("total_stored", total).
		Msg("Chunks added to vector store")

	return nil
}

// Search embeds the query and returns up to topK chunks ordered by
// ascending cosine distance, after applying the metadata filters.
// Scores are left for the caller to normalize over the result set.
func (m *Manager) Search(ctx context.Context, query string, topK int, filters []interfaces.Filter) ([]models.RetrievedChunk, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}

	embeddings, err := m.gateway.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	queryVec := embeddings[0]

	records, err := m.storage.All()
	if err != nil {
		return nil, err
	}

	var hits []models.RetrievedChunk
	for _, record := range records {
		if !matchesFilters(record.Metadata, filters) {
			continue
		}
		hits = append(hits, models.RetrievedChunk{
			ID:         record.ID,
			DocumentID: record.DocumentID,
			Text:       record.Text,
			Metadata:   record.Metadata,
			Distance:   CosineDistance(queryVec, record.Embedding),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}

	m.logger.Debug().
		Int("candidates", len(records)).
		Int("results", len(hits)).
		Int("filters", len(filters)).
		Msg("Vector search completed")

	return hits, nil
}

// DeleteDocument removes all stored chunks for the document.
func (m *Manager) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	deleted, err := m.storage.DeleteByDocument(documentID)
	if err != nil {
		return 0, err
	}

	if deleted == 0 {
		m.logger.Warn().
			Str("document_id", documentID).
			Msg("No chunks found for document")
		return 0, nil
	}

	m.logger.Info().
		Str("document_id", documentID).
		Int("deleted", deleted).
		Msg("Document removed from vector store")

	return deleted, nil
}

// Count returns the number of stored chunks.
func (m *Manager) Count() (int, error) {
	return m.storage.Count()
}

// FlattenMetadata converts a chunk's metadata to the flat string map
// used for filtered queries: lists join to ", "-separated strings,
// nested maps are dropped, nils are removed, and chunk position fields
// are appended.
func FlattenMetadata(chunk *models.Chunk) map[string]string {
	flat := make(map[string]string, len(chunk.Metadata)+4)

	for key, value := range chunk.Metadata {
		switch v := value.(type) {
		case nil:
			continue
		case map[string]any:
			continue
		case []any:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, fmt.Sprintf("%v", item))
			}
			flat[key] = strings.Join(parts, ", ")
		case []string:
			flat[key] = strings.Join(v, ", ")
		case string:
			flat[key] = v
		default:
			flat[key] = fmt.Sprintf("%v", v)
		}
	}

	flat["document_id"] = chunk.DocumentID
	flat["chunk_number"] = fmt.Sprintf("%d", chunk.ChunkNumber)
	flat["start_char"] = fmt.Sprintf("%d", chunk.StartChar)
	flat["end_char"] = fmt.Sprintf("%d", chunk.EndChar)

	return flat
}

// matchesFilters applies every filter (AND semantics); within a filter
// any listed value may match.
func matchesFilters(metadata map[string]string, filters []interfaces.Filter) bool {
	for _, filter := range filters {
		value, ok := metadata[filter.Field]
		if !ok {
			return false
		}
		matched := false
		for _, candidate := range filter.Values {
			if value == candidate {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// CosineDistance returns 1 - cosine similarity. Zero vectors are
// maximally distant.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1.0
	}

	return 1.0 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

// NormalizeScores applies min-max normalization over the result set:
// the closest hit scores 1.0, the farthest 0.0. When all distances are
// equal every hit scores 1.0.
func NormalizeScores(hits []models.RetrievedChunk) {
	if len(hits) == 0 {
		return
	}

	minDist, maxDist := hits[0].Distance, hits[0].Distance
	for _, hit := range hits[1:] {
		if hit.Distance < minDist {
			minDist = hit.Distance
		}
		if hit.Distance > maxDist {
			maxDist = hit.Distance
		}
	}

	distRange := maxDist - minDist
	for i := range hits {
		if distRange > 0 {
			hits[i].Score = clamp(1.0-(hits[i].Distance-minDist)/distRange, 0.0, 1.0)
		} else {
			hits[i].Score = 1.0
		}
	}
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
