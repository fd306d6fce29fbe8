package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	domrepo "Rectifex/internal/domain/repository"
	"Rectifex/internal/usecase"
	"Rectifex/pkg/config"
	xhttp "Rectifex/pkg/http"
	applogger "Rectifex/pkg/logger"
)

// App owns the screener's lifecycle. Without a cron schedule it runs the
// configured scan once and exits; with one it keeps the HTTP server up and
// re-runs the scan on schedule until interrupted.
type App struct {
	cfg      *config.Config
	log      *applogger.Logger
	engine   *usecase.ScanEngine
	universe *usecase.Universe
	store    domrepo.PriceCache
	handler  xhttp.Handler

	httpServer *xhttp.Server
}

func New(
	cfg *config.Config,
	log *applogger.Logger,
	engine *usecase.ScanEngine,
	universe *usecase.Universe,
	store domrepo.PriceCache,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:      cfg,
		log:      log,
		engine:   engine,
		universe: universe,
		store:    store,
		handler:  handler,
	}
}

// Run starts the application. It blocks until the work is done (one-shot
// mode) or a termination signal arrives (scheduled mode).
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		a.log.Info("shutdown signal received")
		cancel()
	}()

	defer func() {
		if err := a.store.Close(); err != nil {
			a.log.Warn("cache close failed", applogger.Error(err))
		}
	}()

	if a.cfg.Scan.Schedule == "" {
		return a.runScan(ctx)
	}
	return a.runScheduled(ctx)
}

func (a *App) runScheduled(ctx context.Context) error {
	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(a.cfg.Metrics.Path),
		xhttp.WithLogger(a.log),
	)
	if err := a.httpServer.Start(); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	a.log.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	c := cron.New()
	_, err := c.AddFunc(a.cfg.Scan.Schedule, func() {
		if err := a.runScan(ctx); err != nil {
			a.log.Error("scheduled scan failed", applogger.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", a.cfg.Scan.Schedule, err)
	}
	c.Start()
	a.log.Info("scheduler started", applogger.String("schedule", a.cfg.Scan.Schedule))

	<-ctx.Done()

	cronCtx := c.Stop()
	<-cronCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Warn("http shutdown failed", applogger.Error(err))
	}
	return nil
}

// runScan executes the configured scan end to end, logging scored symbols
// as they stream in.
func (a *App) runScan(ctx context.Context) error {
	start := time.Now()

	symbols, err := a.universe.Load(ctx, usecase.UniverseSpec{
		Name:       a.cfg.Universe.Name,
		MaxTickers: a.cfg.Universe.MaxTickers,
		Refresh:    time.Duration(a.cfg.Universe.RefreshDays) * 24 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("load universe: %w", err)
	}
	a.log.Info("universe loaded",
		applogger.String("universe", a.cfg.Universe.Name),
		applogger.Int("symbols", len(symbols)))

	events, err := a.engine.Run(ctx, usecase.ScanOptions{
		Strategy: a.cfg.Scan.Strategy,
		Symbols:  symbols,
		Period:   a.cfg.Scan.Period,
		Profile:  a.cfg.Scan.Profile,
		Workers:  a.cfg.Scan.Workers,
	})
	if err != nil {
		return fmt.Errorf("start scan: %w", err)
	}

	for ev := range events {
		switch {
		case ev.Summary != nil:
			a.log.Info("scan summary",
				applogger.Int("total", ev.Summary.Total),
				applogger.Int("scored", ev.Summary.Scored),
				applogger.Int("skipped", ev.Summary.Skipped),
				applogger.Int("failed", ev.Summary.Failed),
				applogger.Int("cache_hits", ev.Summary.CacheHits),
				applogger.Int("cache_misses", ev.Summary.CacheMisses),
				applogger.Duration("duration", time.Since(start)))
		case ev.Result != nil:
			a.log.Info("scored",
				applogger.String("symbol", ev.Symbol),
				applogger.Float("score", ev.Result.Score),
				applogger.Float("price", ev.Result.LastPrice),
				applogger.Strings("reasons", ev.Result.Reasons))
		case ev.Err != nil:
			a.log.Warn("symbol failed",
				applogger.String("symbol", ev.Symbol),
				applogger.Error(ev.Err))
		}
	}
	return nil
}
