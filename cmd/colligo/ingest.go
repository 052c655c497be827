package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ternarybob/colligo/internal/app"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/models"
)

// runIngest processes each file through the extraction pipeline and
// indexes the resulting chunks. Files that fail extraction are reported
// and skipped; validation errors are reported but do not block
// indexing.
func runIngest(ctx context.Context, application *app.App, files []string) error {
	if len(files) == 0 {
		return fmt.Errorf("ingest requires at least one file")
	}

	failures := 0
	for _, file := range files {
		if err := ingestFile(ctx, application, file); err != nil {
			application.Logger.Error().Err(err).Str("file", file).Msg("Ingest failed")
			fmt.Fprintf(os.Stderr, "FAILED  %s: %v\n", file, err)
			failures++
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d files failed", failures, len(files))
	}
	return nil
}

func ingestFile(ctx context.Context, application *app.App, file string) error {
	content, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	doc := &models.Document{
		ID:         common.DeriveDocumentID(file),
		SourceFile: file,
		Content:    string(content),
	}

	state := application.Pipeline.Run(ctx, doc)
	if state.Status == models.StatusFailed {
		return fmt.Errorf("pipeline failed at %s: %s", state.ErrorStage, state.Error)
	}

	if err := application.VectorStore.AddChunks(ctx, state.Chunks); err != nil {
		return fmt.Errorf("failed to index chunks: %w", err)
	}

	fmt.Printf("OK      %s\n", file)
	fmt.Printf("        document_id: %s\n", doc.ID)
	fmt.Printf("        type: %s  strategy: %s  chunks: %d\n",
		state.Classification.DocumentType, state.Strategy, len(state.Chunks))
	fmt.Printf("        tokens: %d  cost: $%.4f  duration: %s\n",
		state.Usage.TotalTokens, state.Usage.CostUSD, state.Duration.Round(10*time.Millisecond))

	if !state.IsValid {
		fmt.Printf("        validation errors (%d):\n", len(state.ValidationErrors))
		for _, e := range state.ValidationErrors {
			fmt.Printf("          - %s\n", e)
		}
	}
	for _, w := range state.ValidationWarnings {
		fmt.Printf("        warning: %s\n", w)
	}

	return nil
}
