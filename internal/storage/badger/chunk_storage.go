package badger

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// ChunkRecord is the persisted form of an embedded chunk. ID is
// "<document_id>_chunk_<chunk_number>"; Metadata holds the flattened
// string form used for filtered queries.
type ChunkRecord struct {
	ID          string `badgerhold:"key"`
	DocumentID  string `badgerhold:"index"`
	ChunkNumber int
	Text        string
	TokenCount  int
	StartChar   int
	EndChar     int
	Embedding   []float32
	Metadata    map[string]string
	CreatedAt   time.Time
}

// ChunkStorage persists chunk records in badgerhold.
type ChunkStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewChunkStorage creates chunk storage over an open connection.
func NewChunkStorage(db *BadgerDB, logger arbor.ILogger) *ChunkStorage {
	return &ChunkStorage{
		db:     db,
		logger: logger,
	}
}

// Upsert stores the record, replacing any existing record with the same
// ID.
func (s *ChunkStorage) Upsert(record *ChunkRecord) error {
	if record.ID == "" {
		return fmt.Errorf("chunk record ID cannot be empty")
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(record.ID, record); err != nil {
		return fmt.Errorf("failed to upsert chunk %s: %w", record.ID, err)
	}

	s.logger.Debug().
		Str("chunk_id", record.ID).
		Str("document_id", record.DocumentID).
		Msg("Chunk record upserted")

	return nil
}

// GetByDocument returns every chunk record for a document.
func (s *ChunkStorage) GetByDocument(documentID string) ([]*ChunkRecord, error) {
	var records []*ChunkRecord
	if err := s.db.Store().Find(&records, badgerhold.Where("DocumentID").Eq(documentID)); err != nil {
		return nil, fmt.Errorf("failed to find chunks for document %s: %w", documentID, err)
	}
	return records, nil
}

// All returns every stored chunk record.
func (s *ChunkStorage) All() ([]*ChunkRecord, error) {
	var records []*ChunkRecord
	if err := s.db.Store().Find(&records, nil); err != nil {
		return nil, fmt.Errorf("failed to list chunk records: %w", err)
	}
	return records, nil
}

// DeleteByDocument removes all chunks for a document and returns the
// number removed.
func (s *ChunkStorage) DeleteByDocument(documentID string) (int, error) {
	records, err := s.GetByDocument(documentID)
	if err != nil {
		return 0, err
	}

	for _, record := range records {
		if err := s.db.Store().Delete(record.ID, &ChunkRecord{}); err != nil {
			return 0, fmt.Errorf("failed to delete chunk %s: %w", record.ID, err)
		}
	}

	s.logger.Debug().
		Str("document_id", documentID).
		Int("deleted", len(records)).
		Msg("Document chunks deleted")

	return len(records), nil
}

// Count returns the number of stored chunk records.
func (s *ChunkStorage) Count() (int, error) {
	count, err := s.db.Store().Count(&ChunkRecord{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunk records: %w", err)
	}
	return int(count), nil
}
