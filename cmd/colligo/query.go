package main

import (
	"context"
	"fmt"

	"github.com/ternarybob/colligo/internal/app"
)

// runQuery retrieves relevant chunks for the question and prints the
// generated answer with its sources.
func runQuery(ctx context.Context, application *app.App, question string) error {
	if question == "" {
		return fmt.Errorf("query requires a question")
	}

	result, err := application.RetrieverService.Retrieve(ctx, question, config.Retrieval.TopK)
	if err != nil {
		return err
	}

	answer, err := application.AnswerService.Generate(ctx, result)
	if err != nil {
		return err
	}

	fmt.Printf("\n%s\n\n", answer.Text)
	fmt.Printf("Confidence: %.2f\n", answer.Confidence)

	if len(answer.Sources) > 0 {
		fmt.Println("Sources:")
		for i, source := range answer.Sources {
			fmt.Printf("  %d. %s (%s, %s", i+1, source.DocumentID, source.DocumentType, source.Department)
			if source.Version != "" {
				fmt.Printf(", v%s", source.Version)
			}
			fmt.Printf(") score=%.2f\n", source.Score)
		}
	}

	return nil
}

// runDelete removes a document's chunks from the index.
func runDelete(ctx context.Context, application *app.App, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("delete requires exactly one document id")
	}

	deleted, err := application.VectorStore.DeleteDocument(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Deleted %d chunks for document %s\n", deleted, args[0])
	return nil
}
