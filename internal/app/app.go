// Package app wires configuration, storage, services, and handlers into one
// dependency container.
package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vestigo/internal/common"
	"github.com/ternarybob/vestigo/internal/handlers"
	"github.com/ternarybob/vestigo/internal/interfaces"
	"github.com/ternarybob/vestigo/internal/services/chat"
	"github.com/ternarybob/vestigo/internal/services/embeddings"
	"github.com/ternarybob/vestigo/internal/services/ingest"
	"github.com/ternarybob/vestigo/internal/services/landmarks"
	"github.com/ternarybob/vestigo/internal/services/llm"
	"github.com/ternarybob/vestigo/internal/services/pdf"
	"github.com/ternarybob/vestigo/internal/services/query"
	"github.com/ternarybob/vestigo/internal/services/reconciler"
	"github.com/ternarybob/vestigo/internal/services/scheduler"
	"github.com/ternarybob/vestigo/internal/services/validation"
	"github.com/ternarybob/vestigo/internal/storage/badger"
	"github.com/ternarybob/vestigo/internal/storage/pinecone"
)

// App holds all application components and dependencies.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager *badger.Manager
	VectorStorage  interfaces.VectorStorage

	Validator  *validation.Validator
	Reconciler *reconciler.Service

	LLMService       interfaces.LLMService
	EmbeddingService interfaces.EmbeddingService
	LandmarkService  interfaces.LandmarkService
	QueryService     *query.Service
	ChatService      *chat.Service
	IngestService    *ingest.Service

	ConversationStore *chat.ConversationStore
	AuditScheduler    *scheduler.AuditScheduler

	// HTTP handlers
	VectorHandler   *handlers.VectorHandler
	QueryHandler    *handlers.QueryHandler
	ChatHandler     *handlers.ChatHandler
	WSHandler       *handlers.WebSocketHandler
	LandmarkHandler *handlers.LandmarkHandler
	AuditHandler    *handlers.AuditHandler
	StatusHandler   *handlers.StatusHandler
}

// New initializes the application with all dependencies. LLM-backed services
// are skipped when no API key is configured so validation tooling works
// standalone.
func New(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	storageManager, err := badger.NewManager(logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.StorageManager = storageManager
	kv := storageManager.KeyValueStorage()

	pineconeKey, err := common.ResolveAPIKey(kv, "pinecone", cfg.Pinecone.APIKey)
	if err != nil {
		logger.Warn().Err(err).Msg("Pinecone API key not resolved; index operations will fail")
	}
	app.VectorStorage = pinecone.NewClient(cfg.Pinecone, pineconeKey, logger)

	app.Validator = validation.NewValidator(logger)
	app.Reconciler = reconciler.NewService(app.VectorStorage, app.Validator, logger)
	app.LandmarkService = landmarks.NewService(cfg.Landmarks, kv, logger)

	if err := app.initLLMServices(ctx, kv); err != nil {
		logger.Warn().Err(err).Msg("LLM services unavailable; query and chat endpoints disabled")
	}

	app.AuditScheduler = scheduler.NewAuditScheduler(
		app.Reconciler,
		storageManager.AuditStorage(),
		cfg.Audit,
		logger,
	)

	app.initHandlers()
	return app, nil
}

func (a *App) initLLMServices(ctx context.Context, kv interfaces.KeyValueStorage) error {
	llmService, err := llm.NewLLMService(ctx, a.Config, kv, a.Logger)
	if err != nil {
		return err
	}
	a.LLMService = llmService

	backend, err := llm.NewEmbeddingBackend(ctx, a.Config, kv, a.Logger)
	if err != nil {
		return err
	}
	a.EmbeddingService = embeddings.NewService(backend, a.Logger)

	a.QueryService = query.NewService(a.VectorStorage, a.EmbeddingService, a.LLMService, a.LandmarkService, a.Logger)

	a.ConversationStore = chat.NewConversationStore(a.Config.Chat.ConversationTTL, a.Config.Chat.MaxHistory)
	a.ChatService = chat.NewService(a.QueryService, a.LLMService, a.ConversationStore, a.Config.Chat, a.Logger)

	a.IngestService = ingest.NewService(a.VectorStorage, a.EmbeddingService, a.Config.Ingest, a.Logger)
	return nil
}

func (a *App) initHandlers() {
	a.VectorHandler = handlers.NewVectorHandler(a.VectorStorage, a.Validator, a.Reconciler)
	a.LandmarkHandler = handlers.NewLandmarkHandler(a.LandmarkService)
	a.StatusHandler = handlers.NewStatusHandler(a.VectorStorage, a.Config)
	a.AuditHandler = handlers.NewAuditHandler(a.StorageManager.AuditStorage(), a.AuditScheduler, pdf.NewReportWriter(a.Logger))

	if a.QueryService != nil {
		a.QueryHandler = handlers.NewQueryHandler(a.QueryService)
	}
	if a.ChatService != nil {
		a.ChatHandler = handlers.NewChatHandler(a.ChatService, a.ChatService)
		a.WSHandler = handlers.NewWebSocketHandler(a.ChatService, a.ChatService)
	}
}

// StartScheduler begins scheduled audits when enabled in configuration.
func (a *App) StartScheduler() error {
	if !a.Config.Audit.Enabled {
		a.Logger.Debug().Msg("Audit scheduling disabled")
		return nil
	}
	return a.AuditScheduler.Start()
}

// Close releases application resources.
func (a *App) Close() error {
	if a.AuditScheduler != nil {
		a.AuditScheduler.Stop()
	}
	if a.ConversationStore != nil {
		a.ConversationStore.Close()
	}
	if a.StorageManager != nil {
		return a.StorageManager.Close()
	}
	return nil
}
