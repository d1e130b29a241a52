package models

import "time"

// BackupType identifies what a backup artifact contains.
type BackupType string

const (
	// BackupTypeFull includes schema and data for every table.
	BackupTypeFull BackupType = "full"
	// BackupTypeIncremental is reserved for a future delta format.
	BackupTypeIncremental BackupType = "incremental"
	// BackupTypeSchema includes table and index definitions only.
	BackupTypeSchema BackupType = "schema"
)

// BackupMetadata describes a single backup artifact. It is written as a JSON
// sidecar next to the artifact and never mutated afterwards.
type BackupMetadata struct {
	ID          string     `json:"id"`
	Type        BackupType `json:"type"`
	Filename    string     `json:"filename"`
	CreatedAt   time.Time  `json:"createdAt"`
	Size        int64      `json:"size"`
	Checksum    string     `json:"checksum"`
	Description string     `json:"description,omitempty"`
	Tables      []string   `json:"tables"`
	RecordCount int64      `json:"recordCount"`
	Compressed  bool       `json:"compressed"`
}

// BackupResult is the outcome of a single backup attempt. It is returned to
// the caller and never persisted.
type BackupResult struct {
	Success  bool            `json:"success"`
	Metadata *BackupMetadata `json:"metadata,omitempty"`
	Error    string          `json:"error,omitempty"`
	Duration time.Duration   `json:"duration"`
}

// RestoreResult is the outcome of a single restore attempt.
type RestoreResult struct {
	Success     bool          `json:"success"`
	Tables      []string      `json:"tables,omitempty"`
	RecordCount int64         `json:"recordCount"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// CleanupResult reports what a retention pass actually removed.
type CleanupResult struct {
	DeletedCount int   `json:"deletedCount"`
	FreedSpace   int64 `json:"freedSpace"`
}
