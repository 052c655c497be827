package interfaces

import (
	"context"

	"github.com/ternarybob/colligo/internal/models"
)

// Pipeline runs a document through the extraction stages. The returned
// state is always terminal: completed, or failed with the stage that
// produced the error.
type Pipeline interface {
	Run(ctx context.Context, doc *models.Document) *models.PipelineState
}
