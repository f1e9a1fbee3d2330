package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pos/backoffice/internal/application/autoprint"
	"github.com/pos/backoffice/internal/domain/ordering"
	"github.com/pos/backoffice/internal/infrastructure/cache"
	"github.com/pos/backoffice/internal/infrastructure/config"
	"github.com/pos/backoffice/internal/infrastructure/event"
	"github.com/pos/backoffice/internal/infrastructure/logger"
	"github.com/pos/backoffice/internal/infrastructure/persistence"
	"github.com/pos/backoffice/internal/infrastructure/printing"
	"github.com/pos/backoffice/internal/infrastructure/remote"
	"github.com/pos/backoffice/internal/infrastructure/scheduler"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting back-office agent",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("monitor_method", cfg.Monitor.Method),
	)

	// Local sqlite mirror
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabase(cfg.Mirror.Path, gormLog)
	if err != nil {
		log.Fatal("Failed to open local mirror", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing local mirror", zap.Error(err))
		}
	}()
	log.Info("Local mirror ready", zap.String("path", cfg.Mirror.Path))

	// Remote order store client
	remoteClient, err := remote.NewClient(remote.Config{
		BaseURL:      cfg.Remote.BaseURL,
		APIKey:       cfg.Remote.APIKey,
		ReadTimeout:  cfg.Remote.ReadTimeout,
		ProbeTimeout: cfg.Remote.ProbeTimeout,
		SyncTimeout:  cfg.Remote.SyncTimeout,
	}, log)
	if err != nil {
		log.Fatal("Failed to create remote client", zap.Error(err))
	}

	// Mirror repository with query cache
	queryCache := cache.NewQueryCache(cache.DefaultTTL, log)
	mirror := persistence.NewOrderMirror(db, remoteClient, queryCache, log)

	// Print pipeline
	dispatcher, err := printing.BuildDispatcher(cfg, log)
	if err != nil {
		log.Fatal("Failed to build print dispatcher", zap.Error(err))
	}
	defer func() {
		if err := dispatcher.Close(); err != nil {
			log.Error("Error closing print sinks", zap.Error(err))
		}
	}()

	// Event bus
	bus := event.NewInMemoryEventBus(log)

	// Auto-print service
	settings := ordering.PrintSettings{
		AutoPrintEnabled:   cfg.Print.AutoPrintEnabled,
		PrintDineInOnly:    cfg.Print.DineInOnly,
		BusinessHoursStart: cfg.Print.BusinessHoursStart,
		BusinessHoursEnd:   cfg.Print.BusinessHoursEnd,
	}
	service := autoprint.NewService(
		remoteClient,
		mirror,
		dispatcher,
		bus,
		settings,
		cfg.Monitor.BatchSize,
		cfg.Print.Timezone,
		log,
	)

	// Monitor
	monitor, err := scheduler.BuildMonitor(cfg, service, log)
	if err != nil {
		log.Fatal("Failed to build monitor", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := monitor.Start(ctx); err != nil {
		log.Fatal("Failed to start monitor", zap.Error(err))
	}
	log.Info("Order monitor running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down agent...")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()

	if err := monitor.Stop(stopCtx); err != nil {
		log.Error("Monitor did not stop cleanly", zap.Error(err))
	}
	cancel()

	log.Info("Agent exited gracefully")
}
