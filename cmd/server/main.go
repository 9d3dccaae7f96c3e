package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"autosolver/internal/api"
	"autosolver/internal/app"
	"autosolver/internal/common/security"
	"autosolver/internal/platform/config"
	"autosolver/internal/platform/database"
	"autosolver/internal/platform/logger"
	"autosolver/internal/platform/queue"

	"go.uber.org/zap"
)

func main() {
	// 1. Configuration and logging
	config.Load()
	cfg := config.AppConfig
	log := logger.Must(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	defer func() { _ = log.Sync() }()
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	// 2. Dispatch tokens
	security.InitJWT(cfg.WorkerJWTSecret, cfg.WorkerTokenTTL())

	// 3. Database
	database.Connect(cfg.DBConnStr, log)
	defer database.Close(log)
	if cfg.AutoMigrate {
		if err := database.MigrateUp(cfg.DBURL, log); err != nil {
			log.Fatal("migration failed", zap.Error(err))
		}
	}

	// 4. Redis
	queue.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, log)
	defer queue.CloseRedis(log)

	// 5. Services
	a := app.New(cfg, database.DB, queue.RDB, log)

	// 6. In-process queue consumer
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	var wg sync.WaitGroup
	if cfg.RunWorkerInProcess && cfg.DispatchMode == config.DispatchModeRedis {
		solveWorker := a.NewWorker()
		wg.Add(1)
		go func() {
			defer wg.Done()
			solveWorker.Start(workerCtx)
		}()
	}

	// 7. Router and HTTP server
	router := api.NewRouter(api.Dependencies{
		Triggers:   a.Triggers,
		Solver:     a.Solver,
		Commands:   a.Commands,
		Runner:     a.Runner,
		Jobs:       a.Jobs,
		Defaults:   a.Defaults,
		CronSecret: cfg.CronSecret,
		TokenAuth:  security.TokenAuth,
		Log:        log.Named("http"),
	})

	server := &http.Server{
		Addr:        ":" + cfg.APIPort,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		// solves hold the connection through generation and verdict polling
		WriteTimeout: 6 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// 8. Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("server starting", zap.String("port", cfg.APIPort), zap.String("dispatch_mode", cfg.DispatchMode))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("could not listen", zap.String("port", cfg.APIPort), zap.Error(err))
		}
	}()

	<-stop

	log.Info("shutting down server")
	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}
	a.Drain()
	wg.Wait()

	log.Info("server and worker stopped gracefully")
}
