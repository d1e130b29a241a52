package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/venuescout/venuescout-backup/internal/backup"
	"github.com/venuescout/venuescout-backup/internal/config"
	"github.com/venuescout/venuescout-backup/internal/database"
	"github.com/venuescout/venuescout-backup/internal/logger"
	"github.com/venuescout/venuescout-backup/internal/models"
	"github.com/venuescout/venuescout-backup/internal/scheduler"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger.Init(cfg.LogLevel)

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to apply database migrations")
	}

	// Set up the backup engine
	engine := backup.NewEngine(db, backup.Config{
		BackupDir:     cfg.BackupDir,
		MaxBackups:    cfg.MaxBackups,
		RetentionDays: cfg.RetentionDays,
		Compression:   cfg.Compression,
		Encryption:    cfg.Encryption,
		ExcludeTables: cfg.ExcludeTables,
	}, log.Logger)

	// Set up the backup scheduler: daily full backup at 03:00 local time
	sched := scheduler.New(engine, models.ScheduleConfig{
		Type:           models.ScheduleTypeCron,
		CronExpression: "0 3 * * *",
		Enabled:        true,
		BackupType:     models.BackupTypeFull,
		Description:    "Scheduled automatic backup",
	}, log.Logger)

	// Automatic backups run only in production-like environments
	if cfg.Environment == "production" {
		sched.Start()
	} else {
		log.Info().Str("env", cfg.Environment).Msg("scheduler not started outside production")
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	sched.Stop()
}
