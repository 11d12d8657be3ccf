package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadflow/config"
	"leadflow/routes"
	"leadflow/store"
	"leadflow/utils"
	"leadflow/worker"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := config.AppConfig

	// Initialize logger
	utils.InitLogger(cfg.LogLevel, cfg.LogFormat)
	logger := utils.Component("main")

	if err := utils.InitSentry(cfg.SentryDSN, cfg.Environment); err != nil {
		logger.WithError(err).Warn("Sentry disabled")
	}
	defer utils.FlushSentry()

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	hub := utils.NewActivityHub(0)
	st := store.New(config.DB, store.WithActivityHook(hub.Publish))
	mailer := utils.NewLogMailer(cfg.FromEmail, utils.Component("mailer"))

	app := routes.NewApp(routes.Dependencies{
		Store:     st,
		Hub:       hub,
		Mailer:    mailer,
		Config:    cfg,
		AccessLog: true,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Dispatch worker
	dispatchWorker := worker.NewDispatchWorker(st, utils.Component("dispatch"), cfg.DispatchInterval)
	g.Go(func() error {
		dispatchWorker.Start(ctx)
		return nil
	})

	// Start server
	g.Go(func() error {
		logger.Infof("🚀 Server starting on port %s", cfg.ServerPort)
		return app.Listen(":" + cfg.ServerPort)
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Error("Server stopped with error")
	}

	if sqlDB, err := config.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("Server stopped")
}
