package main

import (
	"context"
	"os/signal"
	"syscall"

	"autosolver/internal/app"
	"autosolver/internal/platform/config"
	"autosolver/internal/platform/database"
	"autosolver/internal/platform/logger"
	"autosolver/internal/platform/queue"

	"go.uber.org/zap"
)

func main() {
	config.Load()
	cfg := config.AppConfig
	log := logger.Must(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	defer func() { _ = log.Sync() }()
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	database.Connect(cfg.DBConnStr, log)
	defer database.Close(log)
	queue.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, log)
	defer queue.CloseRedis(log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Start returns once the signal arrives and the job in hand has finished.
	app.New(cfg, database.DB, queue.RDB, log).NewWorker().Start(ctx)
	log.Info("worker exited cleanly")
}
