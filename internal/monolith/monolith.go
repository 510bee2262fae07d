// Package monolith provides the application container and module interface.
package monolith

import (
	"context"
	"errors"
	"fmt"

	"github.com/evalysfun/evalys-arcium-bridge-service/internal/config"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/di"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/health"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/logger"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	Health() *health.Server
	Services() di.ServiceRegistry
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// Stopper is implemented by modules that own resources needing release.
type Stopper interface {
	Shutdown(context.Context, Monolith) error
}

// app implements the Monolith interface.
type app struct {
	config    *config.Config
	logger    logger.LoggerInterface
	health    *health.Server
	container di.Container
	started   []Module
}

// New creates a new Monolith instance.
func New(cfg *config.Config, log logger.LoggerInterface, hs *health.Server) (*app, error) {
	if cfg == nil {
		return nil, errors.New("monolith: config is required")
	}
	if hs == nil {
		hs = health.NewServer(cfg.Health.Port, cfg.App.Name, "", log)
	}

	container := di.NewContainer()

	// Register global services
	container.Register("config", cfg)
	container.Register("logger", log)
	container.Register("health", hs)

	return &app{
		config:    cfg,
		logger:    log,
		health:    hs,
		container: container,
	}, nil
}

func (a *app) Config() *config.Config {
	return a.config
}

func (a *app) Logger() logger.LoggerInterface {
	return a.logger
}

func (a *app) Health() *health.Server {
	return a.health
}

func (a *app) Services() di.ServiceRegistry {
	return a.container
}

// Container returns the DI container for module registration.
func (a *app) Container() di.Container {
	return a.container
}

// RegisterModules registers all provided modules.
func (a *app) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return fmt.Errorf("register %T: %w", m, err)
		}
	}
	return nil
}

// StartModules starts all provided modules in order. Modules started before
// a failure are remembered so Close can stop them.
func (a *app) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return fmt.Errorf("start %T: %w", m, err)
		}
		a.started = append(a.started, m)
	}
	return nil
}

// Close stops started modules in reverse order.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.started) - 1; i >= 0; i-- {
		s, ok := a.started[i].(Stopper)
		if !ok {
			continue
		}
		if err := s.Shutdown(ctx, a); err != nil {
			errs = append(errs, fmt.Errorf("stop %T: %w", a.started[i], err))
		}
	}
	a.started = nil
	return errors.Join(errs...)
}
