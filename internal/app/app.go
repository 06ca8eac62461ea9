package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/handlers"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/services/budget"
	"github.com/ternarybob/colligo/internal/services/extract"
	"github.com/ternarybob/colligo/internal/services/gdelt"
	"github.com/ternarybob/colligo/internal/services/ingest"
	"github.com/ternarybob/colligo/internal/services/scheduler"
	"github.com/ternarybob/colligo/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config    *common.Config
	Logger    arbor.ILogger
	ctx       context.Context
	cancelCtx context.CancelFunc

	StorageManager interfaces.StorageManager

	// Pipeline services
	GdeltClient      *gdelt.Client
	Aggregator       *gdelt.Aggregator
	BudgetGate       *budget.Gate
	Fetcher          *extract.Fetcher
	Extractor        *extract.Extractor
	Tracker          *ingest.Tracker
	Worker           *ingest.Worker
	Coordinator      *ingest.Coordinator
	SchedulerService *scheduler.Service

	// HTTP handlers
	APIHandler       *handlers.APIHandler
	ThemeHandler     *handlers.ThemeHandler
	IngestionHandler *handlers.IngestionHandler
	JobHandler       *handlers.JobHandler
	DocumentHandler  *handlers.DocumentHandler
}

// New wires the application together: storage, pipeline services, handlers.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	storageManager, err := badger.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := storageManager.LoadThemesFromFiles(ctx, config.Themes.Dir); err != nil {
		storageManager.Close()
		cancel()
		return nil, fmt.Errorf("failed to load themes: %w", err)
	}

	client := gdelt.NewClient(
		gdelt.WithBaseURL(config.Gdelt.BaseURL),
		gdelt.WithUserAgent(config.Gdelt.UserAgent),
		gdelt.WithHTTPClient(&http.Client{Timeout: config.Gdelt.RequestTimeout}),
		gdelt.WithBatchInterval(config.Gdelt.BatchInterval),
		gdelt.WithRetry(config.Gdelt.RetryAttempts, config.Gdelt.RetryBackoff),
		gdelt.WithLogger(logger),
	)
	aggregator := gdelt.NewAggregator(client, logger, &config.Gdelt)

	gate := budget.NewGate(storageManager.Budget(), logger)
	fetcher := extract.NewFetcher(&config.Extract, logger)
	extractor := extract.NewExtractor(logger)

	tracker := ingest.NewTracker(storageManager.Jobs(), logger)
	worker := ingest.NewWorker(storageManager, fetcher, extractor, gate, tracker, &config.Extract, logger)
	coordinator := ingest.NewCoordinator(ctx, storageManager, aggregator, gate, worker, tracker, logger)

	schedulerService := scheduler.NewService(storageManager, coordinator, logger)

	a := &App{
		Config:           config,
		Logger:           logger,
		ctx:              ctx,
		cancelCtx:        cancel,
		StorageManager:   storageManager,
		GdeltClient:      client,
		Aggregator:       aggregator,
		BudgetGate:       gate,
		Fetcher:          fetcher,
		Extractor:        extractor,
		Tracker:          tracker,
		Worker:           worker,
		Coordinator:      coordinator,
		SchedulerService: schedulerService,
		APIHandler:       handlers.NewAPIHandler(logger),
		ThemeHandler:     handlers.NewThemeHandler(storageManager, gate, logger),
		IngestionHandler: handlers.NewIngestionHandler(coordinator, logger),
		JobHandler:       handlers.NewJobHandler(storageManager, logger),
		DocumentHandler:  handlers.NewDocumentHandler(storageManager, logger),
	}

	return a, nil
}

// Start launches background services.
func (a *App) Start() error {
	if err := a.SchedulerService.Start(a.ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	return nil
}

// Shutdown stops background services and closes storage. In-flight units
// see the service context cancel and finalize as failed rather than
// hanging.
func (a *App) Shutdown() {
	if err := a.SchedulerService.Stop(); err != nil {
		a.Logger.Warn().Err(err).Msg("Scheduler stop failed")
	}

	a.cancelCtx()

	if err := a.StorageManager.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Storage close failed")
	}

	a.Logger.Info().Msg("Application shut down")
}
