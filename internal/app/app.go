package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/prompts"
	"github.com/ternarybob/colligo/internal/services/answer"
	"github.com/ternarybob/colligo/internal/services/chunker"
	"github.com/ternarybob/colligo/internal/services/classifier"
	"github.com/ternarybob/colligo/internal/services/extractor"
	"github.com/ternarybob/colligo/internal/services/llm"
	"github.com/ternarybob/colligo/internal/services/pipeline"
	"github.com/ternarybob/colligo/internal/services/retriever"
	"github.com/ternarybob/colligo/internal/services/validator"
	"github.com/ternarybob/colligo/internal/services/vectorstore"
	storage "github.com/ternarybob/colligo/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	DB          *storage.BadgerDB
	PromptStore *prompts.Store

	// Model gateway (Claude completions, Gemini embeddings)
	Gateway *llm.Service

	// Extraction pipeline services
	ClassifierService *classifier.Service
	ExtractorService  *extractor.Service
	ChunkerService    *chunker.Service
	ValidatorService  *validator.Service
	Pipeline          *pipeline.Service

	// Retrieval services
	VectorStore      *vectorstore.Manager
	RetrieverService *retriever.Service
	AnswerService    *answer.Service
}

// New initializes the application with all dependencies
func New(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(ctx); err != nil {
		_ = app.DB.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("model", cfg.Claude.Model).
		Str("embed_model", cfg.Gemini.EmbedModel).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	db, err := storage.NewBadgerDB(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return err
	}
	a.DB = db

	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	return nil
}

// initServices initializes all business services in dependency order
func (a *App) initServices(ctx context.Context) error {
	promptDir := a.Config.Prompts.Dir
	if promptDir == "" {
		promptDir = prompts.DefaultDir()
	}
	promptStore, err := prompts.NewStore(promptDir, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize prompt store: %w", err)
	}
	a.PromptStore = promptStore
	a.Logger.Debug().Strs("templates", promptStore.ListAvailable()).Msg("Prompt store initialized")

	gateway, err := llm.NewService(ctx, a.Config, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize model gateway: %w", err)
	}
	a.Gateway = gateway
	a.Logger.Debug().Msg("Model gateway initialized")

	encoder, err := chunker.NewTiktokenEncoder()
	if err != nil {
		return fmt.Errorf("failed to initialize token encoder: %w", err)
	}

	a.ChunkerService, err = chunker.NewService(encoder, a.Config.Chunking.Size, a.Config.Chunking.Overlap, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize chunker: %w", err)
	}

	a.ClassifierService = classifier.NewService(gateway, promptStore, a.Config.Claude.ClassificationModel, a.Logger)
	a.ExtractorService = extractor.NewService(gateway, promptStore, a.Config.Claude.ExtractionModel, a.Logger)
	a.ValidatorService = validator.NewService(a.Logger)

	a.Pipeline = pipeline.NewService(
		a.ClassifierService,
		a.ExtractorService,
		a.ChunkerService,
		a.ValidatorService,
		gateway,
		a.Logger,
	)
	a.Logger.Debug().Msg("Extraction pipeline initialized")

	chunkStorage := storage.NewChunkStorage(a.DB, a.Logger)
	a.VectorStore = vectorstore.NewManager(chunkStorage, gateway, a.Logger)
	a.RetrieverService = retriever.NewService(gateway, a.VectorStore, promptStore, a.Config.Claude.QueryModel, a.Logger)
	a.AnswerService = answer.NewService(gateway, promptStore, a.Config.Claude.GenerationModel, a.Logger)
	a.Logger.Debug().Msg("Retrieval services initialized")

	return nil
}

// Close closes all application resources
func (a *App) Close() error {
	if a.DB != nil {
		if err := a.DB.RunMaintenance(); err != nil {
			a.Logger.Warn().Err(err).Msg("Storage maintenance failed")
		}
		if err := a.DB.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}
	return nil
}
