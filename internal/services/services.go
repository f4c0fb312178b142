package services

import (
	"fmt"

	"github.com/cmpdchtr/Sluhay/internal/api/spotify"
	"github.com/cmpdchtr/Sluhay/internal/config"
	"github.com/cmpdchtr/Sluhay/internal/core/acquire"
	"github.com/cmpdchtr/Sluhay/internal/core/batch"
	"github.com/cmpdchtr/Sluhay/internal/core/request"
	"github.com/cmpdchtr/Sluhay/internal/interfaces"
	"github.com/cmpdchtr/Sluhay/internal/shared"
	"github.com/cmpdchtr/Sluhay/internal/store"
)

// ServiceContainer holds all application services
type ServiceContainer struct {
	Config   *config.Config
	Resolver interfaces.CatalogResolver
	Gateway  interfaces.AcquisitionGateway
	Store    *store.Store
	Batches  interfaces.BatchDownloader
	Requests *request.Handler
	Logger   interfaces.Logger
}

// NewServiceContainer creates a service container with all services wired.
// No network calls happen here; the catalog resolver authenticates lazily on
// first use.
func NewServiceContainer(cfg *config.Config) (*ServiceContainer, error) {
	// Create logger first as other services need it
	logger := NewConsoleLogger()

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open user store: %w", err)
	}

	resolver := spotify.NewClient(cfg.SpotifyClientID, cfg.SpotifyClientSecret)

	gateway, err := acquire.NewGateway(cfg.DownloadDir, cfg.MaxRetryAttempts, cfg.MaxConcurrentFetch, cfg.FetchRatePerMinute, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up acquisition gateway: %w", err)
	}

	batches := batch.NewOrchestrator(gateway, st, st, logger)
	requests := request.NewHandler(resolver, gateway, batches, st, logger)

	return &ServiceContainer{
		Config:   cfg,
		Resolver: resolver,
		Gateway:  gateway,
		Store:    st,
		Batches:  batches,
		Requests: requests,
		Logger:   logger,
	}, nil
}

// ConsoleLogger implementation
type ConsoleLogger struct {
	debugMode bool
}

func NewConsoleLogger() *ConsoleLogger {
	return &ConsoleLogger{debugMode: false}
}

func (cl *ConsoleLogger) Info(message string, args ...interface{}) {
	shared.ColorInfo.Printf(message+"\n", args...)
}

func (cl *ConsoleLogger) Warning(message string, args ...interface{}) {
	shared.ColorWarning.Printf("⚠️ "+message+"\n", args...)
}

func (cl *ConsoleLogger) Error(message string, args ...interface{}) {
	shared.ColorError.Printf("❌ "+message+"\n", args...)
}

func (cl *ConsoleLogger) Debug(message string, args ...interface{}) {
	if !cl.debugMode {
		return
	}
	fmt.Printf("DEBUG: "+message+"\n", args...)
}

func (cl *ConsoleLogger) Success(message string, args ...interface{}) {
	shared.ColorSuccess.Printf("✅ "+message+"\n", args...)
}

func (cl *ConsoleLogger) SetDebugMode(enabled bool) {
	cl.debugMode = enabled
}
