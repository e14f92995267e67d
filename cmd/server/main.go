package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"argpipe/orchestrator/internal/api"
	"argpipe/orchestrator/internal/assets"
	"argpipe/orchestrator/internal/config"
	"argpipe/orchestrator/internal/models"
	"argpipe/orchestrator/internal/runnumber"
	"argpipe/orchestrator/internal/store"
	"argpipe/orchestrator/internal/supervisor"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(os.Getenv("ARGPIPE_CONFIG"))
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	gormLog := gormlogger.New(
		newSlogWriter(logger),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(sqlite.Open(cfg.Store.Path), &gorm.Config{Logger: gormLog})
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}

	if err := models.Migrate(db); err != nil {
		slog.Error("failed to migrate store schema", "error", err)
		os.Exit(1)
	}

	st := store.New(db)
	allocator := runnumber.New(cfg.Pipeline.OutputsRoot)
	sup := supervisor.New(
		st,
		allocator,
		cfg.Pipeline.ScriptPath,
		cfg.Pipeline.OutputsRoot,
		cfg.Pipeline.MaxConcurrentJobs,
		time.Duration(cfg.Pipeline.StopGracePeriodSeconds)*time.Second,
		time.Duration(cfg.Pipeline.ShutdownDrainSeconds)*time.Second,
	)
	assetMgr := assets.New(assets.DefaultSpecs(cfg.Assets.InstallRoot), cfg.Assets.MaxConcurrentDownloads)

	reconciled, err := st.ReconcileOnStartup()
	if err != nil {
		slog.Error("startup reconciliation failed", "error", err)
	} else if reconciled > 0 {
		slog.Info("reconciled orphaned running jobs", "count", reconciled)
	}

	apiServer := api.NewServer(st, sup, assetMgr, cfg.Pipeline.DefaultThreads)

	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: apiServer.Handler(),
	}

	go func() {
		slog.Info("starting HTTP server", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down")
	sup.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}
}
