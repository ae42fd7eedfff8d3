package app

import (
	"io"
	"log/slog"
	"sync"

	"github.com/vk/kernelgen/registry"
)

// App encapsulates the driver's dependencies and configuration.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	config   *Config
}

var registerCore sync.Once

// NewApp is the constructor for the driver. Without modules the core
// modules are used, registered once into the process-wide registry that
// generated wrappers read from. Explicit modules get a registry of their
// own.
func NewApp(outW io.Writer, cfg *Config, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	var reg *registry.Registry
	if len(modules) == 0 {
		reg = registry.Default()
		registerCore.Do(func() {
			for _, mod := range coreModules {
				mod.Register(reg)
			}
		})
		modules = coreModules
	} else {
		reg = registry.New()
		for _, mod := range modules {
			mod.Register(reg)
		}
	}
	logger.Debug("All generator modules registered.", "count", len(modules))

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		config:   cfg,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}
