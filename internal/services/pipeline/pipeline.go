// -----------------------------------------------------------------------
// Package pipeline drives a document through the extraction state
// machine: classify, extract metadata, chunk, optionally enrich chunks,
// validate
// -----------------------------------------------------------------------

package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/services/chunker"
	"github.com/ternarybob/colligo/internal/services/classifier"
	"github.com/ternarybob/colligo/internal/services/extractor"
	"github.com/ternarybob/colligo/internal/services/validator"
)

// EnrichFunc adds chunk-level metadata to the state's chunks. The
// default pass-through leaves chunks with their inherited metadata.
type EnrichFunc func(ctx context.Context, state *models.PipelineState) error

// stageFunc runs one pipeline stage and names the next status. Errors
// fail the run at the current stage.
type stageFunc func(ctx context.Context, state *models.PipelineState) (models.Status, error)

// transitions is the set of legal status moves. Every stage may also
// move to failed.
var transitions = map[models.Status][]models.Status{
	models.StatusPending:            {models.StatusClassifying},
	models.StatusClassifying:        {models.StatusExtractingMetadata},
	models.StatusExtractingMetadata: {models.StatusChunking},
	models.StatusChunking:           {models.StatusExtractingChunks, models.StatusValidating},
	models.StatusExtractingChunks:   {models.StatusValidating},
	models.StatusValidating:         {models.StatusCompleted},
}

// Service orchestrates the extraction pipeline.
type Service struct {
	classifier *classifier.Service
	extractor  *extractor.Service
	chunker    *chunker.Service
	validator  *validator.Service
	gateway    interfaces.Gateway
	enrich     EnrichFunc
	logger     arbor.ILogger

	stages map[models.Status]stageFunc
}

var _ interfaces.Pipeline = (*Service)(nil)

// Option configures the pipeline service.
type Option func(*Service)

// WithEnrichFunc replaces the chunk metadata enrichment step.
func WithEnrichFunc(fn EnrichFunc) Option {
	return func(s *Service) {
		s.enrich = fn
	}
}

// NewService creates the pipeline orchestrator.
//
// Parameters:
//   - classifierSvc: document classification service
//   - extractorSvc: document metadata extraction service
//   - chunkerSvc: token-window chunking service
//   - validatorSvc: metadata validation service
//   - gateway: model gateway, read for usage accounting
//   - logger: logger instance
//
// Returns:
//   - *Service: configured pipeline
func NewService(
	classifierSvc *classifier.Service,
	extractorSvc *extractor.Service,
	chunkerSvc *chunker.Service,
	validatorSvc *validator.Service,
	gateway interfaces.Gateway,
	logger arbor.ILogger,
	opts ...Option,
) *Service {
	s := &Service{
		classifier: classifierSvc,
		extractor:  extractorSvc,
		chunker:    chunkerSvc,
		validator:  validatorSvc,
		gateway:    gateway,
		logger:     logger,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.stages = map[models.Status]stageFunc{
		models.StatusClassifying:        s.classifyStage,
		models.StatusExtractingMetadata: s.extractMetadataStage,
		models.StatusChunking:           s.chunkStage,
		models.StatusExtractingChunks:   s.extractChunksStage,
		models.StatusValidating:         s.validateStage,
	}

	return s
}

// Run processes a document through every stage and returns the final
// state. The state is always terminal on return: completed, or failed
// with the error and the stage that produced it. Validation errors do
// not fail the run; they are recorded on a completed state.
func (s *Service) Run(ctx context.Context, doc *models.Document) *models.PipelineState {
	state := models.NewPipelineState(doc)

	s.logger.Info().
		Str("document_id", doc.ID).
		Str("source_file", doc.SourceFile).
		Int("text_length", len(doc.Content)).
		Msg("Pipeline started")

	if err := s.advance(state, models.StatusClassifying); err != nil {
		state.MarkFailed(string(state.Status), err)
	}

	for !state.Status.IsTerminal() {
		stage, ok := s.stages[state.Status]
		if !ok {
			state.MarkFailed(string(state.Status), fmt.Errorf("no stage registered for status %s", state.Status))
			break
		}

		current := state.Status
		next, err := stage(ctx, state)
		if err != nil {
			s.logger.Error().
				Str("document_id", state.DocumentID).
				Str("stage", string(current)).
				Err(err).
				Msg("Pipeline stage failed")
			state.MarkFailed(string(current), err)
			break
		}

		if err := s.advance(state, next); err != nil {
			state.MarkFailed(string(current), err)
			break
		}
	}

	state.CompletedAt = time.Now()
	state.Duration = state.CompletedAt.Sub(state.StartedAt)
	state.Usage = s.gateway.Usage()

	s.logger.Info().
		Str("document_id", state.DocumentID).
		Str("status", string(state.Status)).
		Bool("is_valid", state.IsValid).
		Int("chunks", len(state.Chunks)).
		Dur("duration", state.Duration).
		Msg("Pipeline finished")

	return state
}

// advance moves the state to the next status, enforcing the transition
// table.
func (s *Service) advance(state *models.PipelineState, next models.Status) error {
	for _, allowed := range transitions[state.Status] {
		if next == allowed {
			state.Status = next
			return nil
		}
	}
	return fmt.Errorf("illegal transition from %s to %s", state.Status, next)
}

func (s *Service) classifyStage(ctx context.Context, state *models.PipelineState) (models.Status, error) {
	classification, err := s.classifier.Classify(ctx, state.Content)
	if err != nil {
		return "", fmt.Errorf("classification failed: %w", err)
	}

	state.Classification = classification
	state.Strategy = classification.Strategy()

	s.logger.Info().
		Str("document_id", state.DocumentID).
		Str("document_type", classification.DocumentType).
		Str("complexity", classification.Complexity).
		Str("strategy", string(state.Strategy)).
		Msg("Document classified")

	return models.StatusExtractingMetadata, nil
}

func (s *Service) extractMetadataStage(ctx context.Context, state *models.PipelineState) (models.Status, error) {
	metadata, err := s.extractor.Extract(ctx, state.Content, state.Classification)
	if err != nil {
		return "", fmt.Errorf("document metadata extraction failed: %w", err)
	}

	state.Metadata = metadata

	s.logger.Info().
		Str("document_id", state.DocumentID).
		Int("metadata_fields", len(metadata)).
		Msg("Document metadata extracted")

	return models.StatusChunking, nil
}

func (s *Service) chunkStage(ctx context.Context, state *models.PipelineState) (models.Status, error) {
	doc := &models.Document{
		ID:         state.DocumentID,
		SourceFile: state.SourceFile,
		Content:    state.Content,
		Metadata:   state.Metadata,
	}
	state.Chunks = s.chunker.Chunk(doc, state.Metadata)

	s.logger.Info().
		Str("document_id", state.DocumentID).
		Int("chunk_count", len(state.Chunks)).
		Msg("Document chunked")

	if state.Classification.NeedsChunkMetadata() {
		return models.StatusExtractingChunks, nil
	}
	return models.StatusValidating, nil
}

func (s *Service) extractChunksStage(ctx context.Context, state *models.PipelineState) (models.Status, error) {
	if s.enrich != nil {
		if err := s.enrich(ctx, state); err != nil {
			return "", fmt.Errorf("chunk metadata extraction failed: %w", err)
		}
	}

	s.logger.Info().
		Str("document_id", state.DocumentID).
		Int("chunk_count", len(state.Chunks)).
		Msg("Chunk metadata extracted")

	return models.StatusValidating, nil
}

func (s *Service) validateStage(ctx context.Context, state *models.PipelineState) (models.Status, error) {
	fixed, validationErrors, _ := s.validator.Validate(state.Metadata, validator.Options{
		Strict:         false,
		FixMinorIssues: true,
	})

	state.Metadata = fixed
	state.IsValid = len(validationErrors) == 0
	state.ValidationErrors = validationErrors

	var warnings []string
	if s.validator.IsLowConfidence(fixed) {
		warnings = append(warnings, "Low confidence classification - manual review recommended")
	}
	state.ValidationWarnings = warnings

	s.logger.Info().
		Str("document_id", state.DocumentID).
		Bool("is_valid", state.IsValid).
		Int("error_count", len(validationErrors)).
		Int("warning_count", len(warnings)).
		Msg("Metadata validated")

	return models.StatusCompleted, nil
}
