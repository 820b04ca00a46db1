// Package main provides the entry point for the tower server application.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/tombotower/tower-server/internal/di"
	"github.com/tombotower/tower-server/internal/di/providers"
	"github.com/tombotower/tower-server/internal/logger"
)

func main() {
	// Create DI container
	injector := di.NewContainer()

	// Bootstrap all services. The configured logger may not exist yet, so
	// failures go through a default one.
	if err := di.Bootstrap(injector); err != nil {
		logger.New(logger.Config{}).WithError(err).Fatal("Failed to bootstrap server")
	}

	// Get logger for shutdown messages
	log := do.MustInvoke[*logger.Logger](injector)

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	// Shutdown all services in reverse order
	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
	}

	// The store uses a wrapper handle, so close it explicitly.
	if storeHandle, err := do.Invoke[*providers.StoreHandle](injector); err == nil {
		log.Info("Closing database...")
		if err := storeHandle.Shutdown(); err != nil {
			log.Error("Failed to close database", "error", err)
		} else {
			log.Info("Database closed successfully")
		}
	}

	log.Info("Goodbye")
}
