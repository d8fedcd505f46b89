package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"stockprob/internal/repository"
	"stockprob/internal/usecase"
	"stockprob/pkg/config"
	xhttp "stockprob/pkg/http"
	"stockprob/pkg/logger"
)

// Resource is an infrastructure client released on shutdown.
type Resource struct {
	Name  string
	Close func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *logger.Logger
	httpServer *xhttp.Server
	resources  []Resource

	Stocks   *usecase.StockService
	Universe *usecase.UniverseService
	Exporter *repository.ParquetExporter
}

// New creates a new App instance with all dependencies. Resources are closed
// in reverse order.
func New(
	cfg *config.Config,
	log *logger.Logger,
	httpServer *xhttp.Server,
	stocks *usecase.StockService,
	universe *usecase.UniverseService,
	exporter *repository.ParquetExporter,
	resources ...Resource,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		httpServer: httpServer,
		resources:  resources,
		Stocks:     stocks,
		Universe:   universe,
		Exporter:   exporter,
	}
}

// Logger returns the application logger.
func (a *App) Logger() *logger.Logger { return a.log }

// Config returns the loaded configuration.
func (a *App) Config() *config.Config { return a.cfg }

// Run starts the HTTP server and blocks until ctx is done or an interrupt
// arrives, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", logger.Error(err))
		return err
	}
	a.log.Info("stock analysis service started",
		logger.String("environment", a.cfg.Environment),
		logger.Int("port", a.cfg.Server.Port),
		logger.String("data_dir", a.cfg.Storage.DataDir),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
		a.log.Info("shutdown signal received")
	case <-ctx.Done():
	}
	return a.shutdown(context.Background())
}

func (a *App) shutdown(ctx context.Context) error {
	a.log.Info("shutting down...")

	var firstErr error
	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", logger.Error(err))
		firstErr = err
	}
	if err := a.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	a.log.Info("shutdown complete")
	return firstErr
}

// Close releases infrastructure clients. One-shot commands that never start
// the HTTP server call it directly.
func (a *App) Close() error {
	var firstErr error
	for i := len(a.resources) - 1; i >= 0; i-- {
		r := a.resources[i]
		if err := r.Close(); err != nil {
			a.log.Warn("close error", logger.String("resource", r.Name), logger.Error(err))
			if firstErr == nil {
				firstErr = fmt.Errorf("close %s: %w", r.Name, err)
			}
		}
	}
	return firstErr
}
