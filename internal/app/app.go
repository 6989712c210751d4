package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/hpcwfm/wfm/internal/common"
	"github.com/hpcwfm/wfm/internal/ephemeral"
	"github.com/hpcwfm/wfm/internal/handlers"
	"github.com/hpcwfm/wfm/internal/interfaces"
	"github.com/hpcwfm/wfm/internal/jobmanager"
	"github.com/hpcwfm/wfm/internal/orchestrator"
	"github.com/hpcwfm/wfm/internal/resourcemanager"
	badgerstore "github.com/hpcwfm/wfm/internal/storage/badger"
	"github.com/hpcwfm/wfm/internal/workflow"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager  interfaces.StorageManager
	JobManager      interfaces.JobManager
	ResourceManager interfaces.ResourceManager
	Registry        interfaces.ServiceRegistry
	Validator       *workflow.Validator
	Orchestrator    *orchestrator.Orchestrator
	Janitor         *orchestrator.Janitor

	// HTTP handlers
	APIHandler      *handlers.APIHandler
	SessionHandler  *handlers.SessionHandler
	StepHandler     *handlers.StepHandler
	ServiceHandler  *handlers.ServiceHandler
	ClusterHandler  *handlers.ClusterHandler
	ActivityHandler *handlers.ActivityHandler
}

// New creates the application and wires all components
func New(cfg *common.Config) (*App, error) {
	logger := common.GetLogger()

	store, err := badgerstore.NewManager(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	jm, err := jobmanager.New(cfg.JobManager, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize job manager: %w", err)
	}

	rm, err := resourcemanager.New(cfg.ResourceManager, jm, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize resource manager: %w", err)
	}

	registry := ephemeral.NewRegistry(jm, cfg.Workflow, logger)
	validator := workflow.NewValidator(registry, logger)
	orc := orchestrator.New(store, jm, rm, registry, validator, cfg, logger)

	janitor, err := orc.StartJanitor(cfg.Workflow.JanitorSchedule)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to start janitor: %w", err)
	}

	return &App{
		Config:          cfg,
		Logger:          logger,
		StorageManager:  store,
		JobManager:      jm,
		ResourceManager: rm,
		Registry:        registry,
		Validator:       validator,
		Orchestrator:    orc,
		Janitor:         janitor,

		APIHandler:      handlers.NewAPIHandler(),
		SessionHandler:  handlers.NewSessionHandler(orc, store, logger),
		StepHandler:     handlers.NewStepHandler(orc, store, logger),
		ServiceHandler:  handlers.NewServiceHandler(store, logger),
		ClusterHandler:  handlers.NewClusterHandler(jm, rm, logger),
		ActivityHandler: handlers.NewActivityHandler(store, logger),
	}, nil
}

// Shutdown stops background work and closes the storage
func (a *App) Shutdown(ctx context.Context) error {
	if a.Janitor != nil {
		a.Janitor.Stop()
	}
	if err := a.StorageManager.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}
	a.Logger.Info().Msg("Application shut down")
	return nil
}
