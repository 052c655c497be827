package models

import "fmt"

// Document is an ingested document prior to pipeline processing.
type Document struct {
	ID         string         `json:"id"`
	SourceFile string         `json:"source_file,omitempty"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Chunk is a token-bounded slice of a document. Chunk numbers start at 0
// and character offsets refer to the original document content.
type Chunk struct {
	DocumentID  string         `json:"document_id"`
	ChunkNumber int            `json:"chunk_number"`
	Text        string         `json:"text"`
	TokenCount  int            `json:"token_count"`
	StartChar   int            `json:"start_char"`
	EndChar     int            `json:"end_char"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// VectorID returns the stable identifier used for the chunk in the vector
// store: "<document_id>_chunk_<chunk_number>". Re-adding the same chunk
// overwrites the previous record.
func (c *Chunk) VectorID() string {
	return fmt.Sprintf("%s_chunk_%d", c.DocumentID, c.ChunkNumber)
}
