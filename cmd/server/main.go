package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/farmops/internal/app"
	"github.com/mamadbah2/farmops/internal/auth"
	"github.com/mamadbah2/farmops/internal/config"
	"github.com/mamadbah2/farmops/internal/scheduler"
	"github.com/mamadbah2/farmops/internal/server/handlers"
	"github.com/mamadbah2/farmops/internal/server/router"
	"github.com/mamadbah2/farmops/pkg/clients/whatsapp"
	"github.com/mamadbah2/farmops/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(logger.Options{Level: cfg.Log.Level, File: cfg.Log.File}))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	farm, err := app.New(context.Background(), cfg, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to wire services", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := farm.Close(closeCtx); err != nil {
			baseLogger.Error("failed to close connections", zap.Error(err))
		}
	}()

	handler := handlers.New(farm.Services, baseLogger.Named("handlers"))
	authn := auth.Middleware(farm.Resolver, baseLogger.Named("auth"))
	engine := router.New(handler, authn, baseLogger.Named("router"))

	var notifier whatsapp.Notifier
	if cfg.WhatsApp.Enabled() {
		notifier = whatsapp.NewClient(cfg.WhatsApp)
	} else {
		baseLogger.Info("whatsapp not configured, daily summary will not be pushed")
	}

	sched := scheduler.NewScheduler(cfg.Reporting.CronSchedule, cfg.Location(), farm.Services.Reports, notifier, cfg.WhatsApp.ManagerNumber, baseLogger.Named("scheduler"))
	sched.SetJobContext(farm.BackgroundContext)
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
