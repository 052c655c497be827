package models

import "time"

// Status is the pipeline processing status of a document.
type Status string

const (
	StatusPending            Status = "pending"
	StatusClassifying        Status = "classifying"
	StatusExtractingMetadata Status = "extracting_metadata"
	StatusChunking           Status = "chunking"
	StatusExtractingChunks   Status = "extracting_chunks"
	StatusValidating         Status = "validating"
	StatusCompleted          Status = "completed"
	StatusFailed             Status = "failed"
)

// IsTerminal reports whether the status is a final pipeline state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// PipelineState carries a document through the extraction pipeline. Stages
// mutate the state in place; the orchestrator owns status transitions.
type PipelineState struct {
	DocumentID string `json:"document_id"`
	SourceFile string `json:"source_file,omitempty"`
	Content    string `json:"content"`
	Status     Status `json:"status"`

	Classification *Classification    `json:"classification,omitempty"`
	Strategy       ExtractionStrategy `json:"extraction_strategy,omitempty"`
	Metadata       map[string]any     `json:"metadata,omitempty"`
	Chunks         []*Chunk           `json:"chunks,omitempty"`

	IsValid            bool     `json:"is_valid"`
	ValidationErrors   []string `json:"validation_errors,omitempty"`
	ValidationWarnings []string `json:"validation_warnings,omitempty"`

	Error      string `json:"error,omitempty"`
	ErrorStage string `json:"error_stage,omitempty"`

	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`

	Usage Usage `json:"usage"`
}

// NewPipelineState creates the initial state for a document run.
func NewPipelineState(doc *Document) *PipelineState {
	return &PipelineState{
		DocumentID: doc.ID,
		SourceFile: doc.SourceFile,
		Content:    doc.Content,
		Status:     StatusPending,
		StartedAt:  time.Now(),
	}
}

// MarkFailed records the failing stage and error message and moves the
// state to the failed terminal status.
func (s *PipelineState) MarkFailed(stage string, err error) {
	s.Status = StatusFailed
	s.ErrorStage = stage
	if err != nil {
		s.Error = err.Error()
	}
}
