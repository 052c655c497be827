package interfaces

import (
	"context"

	"github.com/ternarybob/colligo/internal/models"
)

// Filter restricts a vector search to chunks whose flattened metadata
// field matches one of the given values. A single value is an equality
// match; multiple values match any of them.
type Filter struct {
	Field  string
	Values []string
}

// VectorStore persists embedded chunks and serves similarity search.
type VectorStore interface {
	// AddChunks embeds and upserts the chunks. Adding a chunk with an
	// existing vector id overwrites the prior record.
	AddChunks(ctx context.Context, chunks []*models.Chunk) error

	// Search embeds the query and returns up to topK chunks ordered by
	// ascending cosine distance, after applying the metadata filters.
	// Scores are left unset; callers normalize over the result set.
	Search(ctx context.Context, query string, topK int, filters []Filter) ([]models.RetrievedChunk, error)

	// DeleteDocument removes all chunks for the document and returns
	// how many were deleted.
	DeleteDocument(ctx context.Context, documentID string) (int, error)

	// Count returns the number of stored chunks.
	Count() (int, error)
}
