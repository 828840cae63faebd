package config

import (
	"sync"

	"pdf-view-session/internal/domain"
	"pdf-view-session/internal/engine"
	"pdf-view-session/internal/repository"
	"pdf-view-session/internal/session"
	"pdf-view-session/internal/telemetry"
	"pdf-view-session/pkg/logger"

	"github.com/google/uuid"
)

// Container holds all application dependencies
type Container struct {
	Config         domain.Config
	Logger         domain.Logger
	SupabaseClient domain.SupabaseClient
	FaultRecorder  domain.FaultRecorder
	DocumentSource domain.DocumentSource
	Engine         *engine.Engine
	Session        *session.Controller
	Poller         *telemetry.Poller

	closeOnce sync.Once
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return NewContainerWithConfig(NewConfig())
}

// NewContainerWithConfig wires the session around an existing configuration.
func NewContainerWithConfig(config domain.Config) *Container {
	sessionID := uuid.New().String()
	baseLogger := logger.NewLogger(config.GetLogLevel())
	appLogger := baseLogger.With("session_id", sessionID)

	// Initialize Supabase client
	supabaseClient := repository.NewSupabaseClient(config, appLogger)
	faults := repository.MultiFaultRecorder{repository.NewLogFaultRecorder(appLogger)}
	if supabaseClient.IsConfigured() {
		if err := supabaseClient.Initialize(); err != nil {
			appLogger.Warn("Supabase unavailable, faults are only logged", "error", err)
		} else {
			faults = append(faults, repository.NewSupabaseFaultRecorder(supabaseClient, config.GetFaultTable(), appLogger))
		}
	}
	source := repository.NewStorageDocumentSource(supabaseClient, config.GetStorageBucket(), appLogger)

	width, height := config.GetViewportSize()
	eng := engine.New(engine.Options{
		ViewportWidth:  width,
		ViewportHeight: height,
		CacheTTL:       config.GetRenderCacheTTL(),
		Logger:         appLogger,
	})

	controller := session.NewController(session.Options{
		SessionID:   sessionID,
		Engine:      eng,
		Logger:      appLogger,
		Faults:      faults,
		MaxFileSize: config.GetMaxFileSize(),
		SweepYield:  config.GetSweepYield(),
	})

	var poller *telemetry.Poller
	if sampler, err := telemetry.NewProcessSampler(); err != nil {
		appLogger.Warn("Memory telemetry disabled", "error", err)
	} else {
		poller = telemetry.NewPoller(sampler, config.GetTelemetryInterval(), controller.SetStatus, appLogger)
	}

	return &Container{
		Config:         config,
		Logger:         appLogger,
		SupabaseClient: supabaseClient,
		FaultRecorder:  faults,
		DocumentSource: source,
		Engine:         eng,
		Session:        controller,
		Poller:         poller,
	}
}

// GetConfig returns the configuration instance
func (c *Container) GetConfig() domain.Config {
	return c.Config
}

// GetLogger returns the logger instance
func (c *Container) GetLogger() domain.Logger {
	return c.Logger
}

// Close stops telemetry before the session so no status write races the
// teardown. Safe to call more than once.
func (c *Container) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.Poller != nil {
			c.Poller.Stop()
		}
		err = c.Session.Close()
	})
	return err
}
