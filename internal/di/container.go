// Package di provides dependency injection configuration for the tower server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/tombotower/tower-server/internal/auth"
	"github.com/tombotower/tower-server/internal/config"
	"github.com/tombotower/tower-server/internal/di/providers"
	"github.com/tombotower/tower-server/internal/logger"
	"github.com/tombotower/tower-server/internal/session"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// Auth layer
	do.Provide(injector, providers.ProvideBackend)
	do.Provide(injector, providers.ProvideCookieCodec)
	do.Provide(injector, providers.ProvideSessionManager)

	// Workers
	do.Provide(injector, providers.ProvideSessionCleanupJob)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*auth.Backend](injector)
	_ = do.MustInvoke[*auth.CookieCodec](injector)
	_ = do.MustInvoke[*session.Manager](injector)
	_ = do.MustInvoke[*providers.SessionCleanupJob](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
