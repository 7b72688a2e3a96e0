// Package main is the entry point for the Confluence signal-aggregation
// service. It wires the pure decision engine to its collaborators: the
// intake staging store, the SQLite decision history, the run monitor, the
// cron scheduler, the snapshot archive, and the HTTP API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/confluence/internal/archive"
	"github.com/aristath/confluence/internal/config"
	"github.com/aristath/confluence/internal/database"
	"github.com/aristath/confluence/internal/engine"
	"github.com/aristath/confluence/internal/events"
	"github.com/aristath/confluence/internal/modules/decisions"
	"github.com/aristath/confluence/internal/modules/intake"
	"github.com/aristath/confluence/internal/monitor"
	"github.com/aristath/confluence/internal/scheduler"
	"github.com/aristath/confluence/internal/server"
	"github.com/aristath/confluence/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Pretty:  cfg.DevMode,
		Service: "confluence",
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Int("port", cfg.Port).
		Str("data_dir", cfg.DataDir).
		Str("run_schedule", cfg.RunSchedule).
		Msg("Starting Confluence")

	db, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "decisions.db"),
		Profile: database.ProfileLedger,
		Name:    "decisions",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open decisions database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate decisions database")
	}

	repo := decisions.NewRepository(db.Conn(), log)
	staging := intake.NewService(log)
	bus := events.NewBus(log)
	eng := engine.NewDefault(log).WithMinRiskReward(cfg.MinRiskReward)

	var archiveSvc *archive.Service
	var archiver monitor.Archiver
	if cfg.Archive != nil && cfg.Archive.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		store, err := archive.NewClient(ctx, cfg.Archive, log)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize snapshot archive")
		}
		archiveSvc = archive.NewService(store, cfg.Archive.Prefix, log)
		archiver = archiveSvc
		log.Info().Str("bucket", cfg.Archive.Bucket).Msg("Snapshot archive enabled")
	}

	mon := monitor.NewService(eng, staging, repo, archiver, bus, log)

	sched := scheduler.New(log)
	if err := sched.AddJob(cfg.RunSchedule,
		scheduler.NewAggregationJob(mon, 10*time.Minute, log)); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.RunSchedule).Msg("Invalid run schedule")
	}
	if err := sched.AddJob("30 3 * * *",
		scheduler.NewPruneJob(repo, cfg.RetentionDays, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register prune job")
	}
	if err := sched.AddJob("0 5 * * 0",
		scheduler.NewMaintenanceJob(db, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register maintenance job")
	}
	if archiveSvc != nil {
		if err := sched.AddJob("0 4 * * *",
			scheduler.NewRotateJob(archiveSvc, cfg.Archive.RetentionDays, cfg.Archive.MinKeep, 10*time.Minute, log)); err != nil {
			log.Fatal().Err(err).Msg("Failed to register rotate job")
		}
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:          log,
		Cfg:          cfg,
		DecisionsDB:  db,
		DecisionRepo: repo,
		Intake:       staging,
		Monitor:      mon,
		Bus:          bus,
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Error().Err(err).Msg("HTTP server failed")
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Confluence stopped")
}
