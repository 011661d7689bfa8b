package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"EquityLens/internal/domain/repository"
	"EquityLens/internal/handler/api"
	"EquityLens/internal/scheduler"
	"EquityLens/internal/usecase"
	pkgch "EquityLens/pkg/clickhouse"
	"EquityLens/pkg/config"
	xhttp "EquityLens/pkg/http"
	applogger "EquityLens/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	agg        *usecase.Aggregator
	sched      *scheduler.Scheduler
	chClient   *pkgch.Client
	history    repository.ScoreHistory
	events     repository.EventPublisher
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	agg *usecase.Aggregator,
	sched *scheduler.Scheduler,
	chClient *pkgch.Client,
	history repository.ScoreHistory,
	events repository.EventPublisher,
) *App {
	return &App{
		cfg:      cfg,
		l:        l,
		agg:      agg,
		sched:    sched,
		chClient: chClient,
		history:  history,
		events:   events,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	handler := api.NewDashboardEchoHandler(a.l, a.agg)
	a.httpServer = xhttp.NewServer(handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(a.l),
	)

	if a.sched != nil {
		a.sched.Start()
	}

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("server started",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("environment", a.cfg.Environment),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	if a.sched != nil {
		a.sched.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.l.Warn("event publisher close error", applogger.Error(err))
		}
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.l.Warn("score history close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
