package models

import "time"

// ScheduleType selects how the scheduler decides when to trigger a backup.
type ScheduleType string

const (
	// ScheduleTypeInterval triggers on a fixed repeating duration.
	ScheduleTypeInterval ScheduleType = "interval"
	// ScheduleTypeCron triggers when a five-field cron expression matches.
	ScheduleTypeCron ScheduleType = "cron"
	// ScheduleTypeManual disables automatic triggering entirely.
	ScheduleTypeManual ScheduleType = "manual"
)

// ScheduleConfig is the scheduler's mutable configuration.
type ScheduleConfig struct {
	Type           ScheduleType  `json:"type"`
	Interval       time.Duration `json:"interval"`
	CronExpression string        `json:"cronExpression,omitempty"`
	Enabled        bool          `json:"enabled"`
	BackupType     BackupType    `json:"backupType"`
	Description    string        `json:"description,omitempty"`
}

// ScheduleUpdate carries a partial configuration change. Nil fields keep
// their current value.
type ScheduleUpdate struct {
	Type           *ScheduleType  `json:"type,omitempty"`
	Interval       *time.Duration `json:"interval,omitempty"`
	CronExpression *string        `json:"cronExpression,omitempty"`
	Enabled        *bool          `json:"enabled,omitempty"`
	BackupType     *BackupType    `json:"backupType,omitempty"`
	Description    *string        `json:"description,omitempty"`
}

// SchedulerStatus is a point-in-time snapshot of the scheduler.
type SchedulerStatus struct {
	Running        bool           `json:"running"`
	Config         ScheduleConfig `json:"config"`
	Timers         []string       `json:"timers"`
	NextBackupTime *time.Time     `json:"nextBackupTime,omitempty"`
}
