// Package scheduler triggers backup engine operations on a fixed interval
// or a cron-style schedule, with manual override.
package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/venuescout/venuescout-backup/internal/models"
)

const (
	// defaultBootstrapDelay is how long after Start the first interval-mode
	// backup runs, so a fresh scheduler does not wait a full interval.
	defaultBootstrapDelay = 60 * time.Second

	// defaultPollInterval is the cron evaluation tick. Expressions are
	// matched against wall-clock minutes, so firing is minute-granular by
	// design, not second-exact.
	defaultPollInterval = 60 * time.Second
)

const (
	timerIntervalBackup = "interval-backup"
	timerBootstrap      = "bootstrap-backup"
	timerCronPoll       = "cron-poll"
)

// BackupRunner is the subset of the backup engine the scheduler drives.
type BackupRunner interface {
	CreateBackup(ctx context.Context, kind models.BackupType, description string) *models.BackupResult
	CleanupOldBackups() (*models.CleanupResult, error)
}

// Scheduler owns the timers that drive periodic backups. It is either
// stopped or running, with no intermediate state.
type Scheduler struct {
	engine BackupRunner
	logger zerolog.Logger

	bootstrapDelay time.Duration
	pollInterval   time.Duration

	mu        sync.Mutex
	config    models.ScheduleConfig
	running   bool
	timers    map[string]func() // timer name -> cancellation
	startedAt time.Time
}

// New creates a stopped scheduler. Call Start to arm its timers.
func New(engine BackupRunner, config models.ScheduleConfig, logger zerolog.Logger) *Scheduler {
	if config.BackupType == "" {
		config.BackupType = models.BackupTypeFull
	}
	return &Scheduler{
		engine:         engine,
		logger:         logger.With().Str("component", "backup_scheduler").Logger(),
		bootstrapDelay: defaultBootstrapDelay,
		pollInterval:   defaultPollInterval,
		config:         config,
		timers:         make(map[string]func()),
	}
}

// Start arms the scheduler's timers. It is a no-op when already running or
// when the configuration is disabled.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Info().Msg("scheduler already running")
		return
	}
	if !s.config.Enabled {
		s.logger.Info().Msg("scheduler is disabled, not starting")
		return
	}

	switch s.config.Type {
	case models.ScheduleTypeInterval:
		if s.config.Interval <= 0 {
			s.logger.Error().Dur("interval", s.config.Interval).Msg("invalid interval, not starting")
			return
		}
		s.addTicker(timerIntervalBackup, s.config.Interval, s.executeBackup)
		s.addTimer(timerBootstrap, s.bootstrapDelay, s.executeBackup)
	case models.ScheduleTypeCron:
		if _, err := cron.ParseStandard(s.config.CronExpression); err != nil {
			s.logger.Warn().Err(err).Str("expression", s.config.CronExpression).
				Msg("cron expression did not validate, poller will treat bad fields as non-matching")
		}
		s.addTicker(timerCronPoll, s.pollInterval, func() { s.pollCron(time.Now()) })
	case models.ScheduleTypeManual:
		s.logger.Info().Msg("manual mode, no timers armed")
	default:
		s.logger.Error().Str("type", string(s.config.Type)).Msg("unknown schedule type, not starting")
		return
	}

	s.running = true
	s.startedAt = time.Now()
	s.logger.Info().
		Str("type", string(s.config.Type)).
		Dur("interval", s.config.Interval).
		Str("cron", s.config.CronExpression).
		Msg("scheduler started")
}

// Stop cancels every timer the scheduler owns and clears its registry. A
// backup already in flight runs to completion.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		s.logger.Debug().Msg("scheduler not running")
		return
	}

	for _, cancel := range s.timers {
		cancel()
	}
	s.timers = make(map[string]func())
	s.running = false
	s.logger.Info().Msg("scheduler stopped")
}

// addTicker registers a repeating timer. Caller must hold s.mu.
func (s *Scheduler) addTicker(name string, every time.Duration, fn func()) {
	ticker := time.NewTicker(every)
	done := make(chan struct{})
	s.timers[name] = func() {
		ticker.Stop()
		close(done)
	}
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
}

// addTimer registers a one-shot timer that removes itself after firing.
// Caller must hold s.mu.
func (s *Scheduler) addTimer(name string, delay time.Duration, fn func()) {
	timer := time.AfterFunc(delay, func() {
		s.removeTimer(name)
		fn()
	})
	s.timers[name] = func() { timer.Stop() }
}

func (s *Scheduler) removeTimer(name string) {
	s.mu.Lock()
	delete(s.timers, name)
	s.mu.Unlock()
}

// executeBackup runs one scheduled backup followed by retention cleanup.
// Errors never escape a timer callback; every outcome is logged instead.
func (s *Scheduler) executeBackup() {
	s.mu.Lock()
	cfg := s.config
	s.mu.Unlock()

	result := s.engine.CreateBackup(context.Background(), cfg.BackupType, cfg.Description)
	if !result.Success {
		s.logger.Error().Str("error", result.Error).Dur("duration", result.Duration).
			Msg("scheduled backup failed")
		return
	}
	s.logger.Info().
		Str("backup_id", result.Metadata.ID).
		Int64("size_bytes", result.Metadata.Size).
		Dur("duration", result.Duration).
		Msg("scheduled backup completed")

	cleanup, err := s.engine.CleanupOldBackups()
	if err != nil {
		s.logger.Error().Err(err).Msg("backup cleanup failed")
		return
	}
	if cleanup.DeletedCount > 0 {
		s.logger.Info().
			Int("deleted", cleanup.DeletedCount).
			Int64("freed_bytes", cleanup.FreedSpace).
			Msg("retention cleanup ran after scheduled backup")
	}
}

// ExecuteManualBackup runs a one-off backup outside the schedule. Unlike the
// scheduled path it does not trigger retention cleanup.
func (s *Scheduler) ExecuteManualBackup(kind models.BackupType, description string) *models.BackupResult {
	result := s.engine.CreateBackup(context.Background(), kind, description)
	if result.Success {
		s.logger.Info().Str("backup_id", result.Metadata.ID).Msg("manual backup completed")
	} else {
		s.logger.Error().Str("error", result.Error).Msg("manual backup failed")
	}
	return result
}

// pollCron fires a backup when the expression matches the current wall
// clock. Called once per poll tick.
func (s *Scheduler) pollCron(now time.Time) {
	s.mu.Lock()
	expr := s.config.CronExpression
	s.mu.Unlock()

	if matchesCron(expr, now) {
		s.executeBackup()
	}
}

// UpdateConfig merges a partial configuration change, restarting the
// scheduler when the merged config is still enabled.
func (s *Scheduler) UpdateConfig(update models.ScheduleUpdate) {
	s.Stop()

	s.mu.Lock()
	if update.Type != nil {
		s.config.Type = *update.Type
	}
	if update.Interval != nil {
		s.config.Interval = *update.Interval
	}
	if update.CronExpression != nil {
		s.config.CronExpression = *update.CronExpression
	}
	if update.Enabled != nil {
		s.config.Enabled = *update.Enabled
	}
	if update.BackupType != nil {
		s.config.BackupType = *update.BackupType
	}
	if update.Description != nil {
		s.config.Description = *update.Description
	}
	enabled := s.config.Enabled
	s.mu.Unlock()

	s.logger.Info().Bool("enabled", enabled).Msg("scheduler configuration updated")
	if enabled {
		s.Start()
	}
}

// GetConfig returns a copy of the current schedule configuration.
func (s *Scheduler) GetConfig() models.ScheduleConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// Status reports the scheduler's running state, active timers, and an
// estimate of the next backup time.
func (s *Scheduler) Status() models.SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := models.SchedulerStatus{
		Running: s.running,
		Config:  s.config,
		Timers:  make([]string, 0, len(s.timers)),
	}
	for name := range s.timers {
		status.Timers = append(status.Timers, name)
	}
	sort.Strings(status.Timers)

	if !s.running {
		return status
	}

	now := time.Now()
	switch s.config.Type {
	case models.ScheduleTypeInterval:
		if s.config.Interval > 0 {
			elapsed := now.Sub(s.startedAt)
			next := s.startedAt.Add(elapsed - elapsed%s.config.Interval + s.config.Interval)
			status.NextBackupTime = &next
		}
	case models.ScheduleTypeCron:
		if sched, err := cron.ParseStandard(s.config.CronExpression); err == nil {
			next := sched.Next(now)
			status.NextBackupTime = &next
		}
	}
	return status
}
