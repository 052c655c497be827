// -----------------------------------------------------------------------
// Package chunker splits document text into overlapping token windows
// for vector storage
// -----------------------------------------------------------------------

package chunker

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/models"
)

// Encoder tokenizes and detokenizes text. The production encoder is
// tiktoken's cl100k_base; tests substitute a deterministic fake.
type Encoder interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// tiktokenEncoder adapts tiktoken to the Encoder interface.
type tiktokenEncoder struct {
	encoding *tiktoken.Tiktoken
}

func (e *tiktokenEncoder) Encode(text string) []int {
	return e.encoding.Encode(text, nil, nil)
}

func (e *tiktokenEncoder) Decode(tokens []int) string {
	return e.encoding.Decode(tokens)
}

// NewTiktokenEncoder returns the cl100k_base encoder.
func NewTiktokenEncoder() (Encoder, error) {
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to load cl100k_base encoding: %w", err)
	}
	return &tiktokenEncoder{encoding: encoding}, nil
}

// Service splits documents into overlapping token-window chunks.
type Service struct {
	encoder Encoder
	size    int
	overlap int
	logger  arbor.ILogger
}

// NewService creates a chunker. Overlap must be strictly less than size;
// the stride between windows is size-overlap.
func NewService(encoder Encoder, size, overlap int, logger arbor.ILogger) (*Service, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap (%d) must be in [0, size), size is %d", overlap, size)
	}

	return &Service{
		encoder: encoder,
		size:    size,
		overlap: overlap,
		logger:  logger,
	}, nil
}

// Chunk splits the document content into overlapping chunks. Each chunk
// carries its own copy of the inherited metadata, a token count, and
// character offsets derived by re-decoding the prefix token span (the
// offsets are approximate: token boundaries do not always align with
// the original bytes).
func (s *Service) Chunk(doc *models.Document, inherited map[string]any) []*models.Chunk {
	tokens := s.encoder.Encode(doc.Content)

	s.logger.Debug().
		Str("document_id", doc.ID).
		Int("text_length", len(doc.Content)).
		Int("token_count", len(tokens)).
		Int("chunk_size", s.size).
		Int("chunk_overlap", s.overlap).
		Msg("Chunking document")

	var chunks []*models.Chunk
	stride := s.size - s.overlap

	for start, num := 0, 0; start < len(tokens); start, num = start+stride, num+1 {
		end := start + s.size
		if end > len(tokens) {
			end = len(tokens)
		}

		chunkTokens := tokens[start:end]
		text := s.encoder.Decode(chunkTokens)
		startChar := len(s.encoder.Decode(tokens[:start]))

		chunks = append(chunks, &models.Chunk{
			DocumentID:  doc.ID,
			ChunkNumber: num,
			Text:        text,
			TokenCount:  len(chunkTokens),
			StartChar:   startChar,
			EndChar:     startChar + len(text),
			Metadata:    copyMetadata(inherited),
		})
	}

	s.logger.Debug().
		Str("document_id", doc.ID).
		Int("chunk_count", len(chunks)).
		Msg("Chunking completed")

	return chunks
}

// copyMetadata gives each chunk an independent metadata map so later
// per-chunk enrichment cannot leak across chunks.
func copyMetadata(metadata map[string]any) map[string]any {
	copied := make(map[string]any, len(metadata))
	for k, v := range metadata {
		copied[k] = v
	}
	return copied
}
