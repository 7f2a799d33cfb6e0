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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinic-scheduling/internal/api"
	"github.com/clinicdesk/clinic-scheduling/internal/appointment"
	"github.com/clinicdesk/clinic-scheduling/internal/config"
	"github.com/clinicdesk/clinic-scheduling/internal/db"
	"github.com/clinicdesk/clinic-scheduling/internal/directory"
	"github.com/clinicdesk/clinic-scheduling/internal/inventory"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		errLogger := zerolog.New(os.Stderr)
		errLogger.Fatal().Err(err).Msg("config load error")
	}

	logger := newLogger(cfg)
	logger.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(filepath.Dir(cfg.DataFile), 0o755); err != nil {
		logger.Fatal().Err(err).Msg("create data directory")
	}

	// Load the appointment table from its flat file. A missing file is an
	// empty store; an unreadable one is fatal.
	fileStore := appointment.NewFileStore(cfg.DataFile, logger)
	appts, err := fileStore.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load appointment file")
	}
	store := appointment.NewStore()
	store.Reset(appts)

	// Doctor/patient directory: Postgres when configured, flat files
	// otherwise.
	var (
		dir    directory.Resolver
		pgPool *pgxpool.Pool
	)
	if cfg.PostgresDSN != "" {
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pgPool, err = db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
		cancelPg()
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection error")
		}
		defer pgPool.Close()
		dir = directory.NewPg(pgPool)
		logger.Info().Msg("directory backed by Postgres")
	} else {
		mem := directory.NewMemory()
		if err := mem.LoadDoctorsFile(cfg.DoctorsFile); err != nil {
			logger.Fatal().Err(err).Msg("load doctors file")
		}
		if err := mem.LoadPatientsFile(cfg.PatientsFile); err != nil {
			logger.Fatal().Err(err).Msg("load patients file")
		}
		dir = mem
	}

	inv := inventory.NewMemory()
	if err := inv.LoadFile(cfg.MedicinesFile); err != nil {
		logger.Fatal().Err(err).Msg("load medicines file")
	}

	svc := appointment.NewService(store, fileStore, dir, inv, cfg.BackupOnSave, logger)

	router := api.NewRouter(api.RouterConfig{
		Service:  svc,
		DataFile: cfg.DataFile,
		PgPool:   pgPool,
		Env:      cfg.Env,
		Version:  version,
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()
	logger.Info().Int("appointments", store.Len()).Msg("api-server ready")

	<-rootCtx.Done()
	logger.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}

	// Final safe flush: the in-memory table is the truth, make it durable
	// before exit.
	if err := svc.Flush(); err != nil {
		logger.Error().Err(err).Msg("final flush failed")
	}
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	if cfg.Env == "dev" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).Level(level).With().Timestamp().Logger()
	}
	return logger
}
