package backup

// Config holds the engine's backup policy. It is fixed for the lifetime of
// an Engine instance.
type Config struct {
	// BackupDir is the directory where artifacts and sidecars are stored.
	BackupDir string
	// MaxBackups is the maximum number of backups to keep (0 = unlimited).
	MaxBackups int
	// RetentionDays is how many days to keep backups.
	RetentionDays int
	// Compression enables gzip compression of the dump output.
	Compression bool
	// Encryption is reserved and currently ignored.
	Encryption bool
	// ExcludeTables are table names never included in dumps.
	ExcludeTables []string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BackupDir:     "./backups",
		MaxBackups:    30,
		RetentionDays: 30,
		Compression:   true,
		Encryption:    false,
		ExcludeTables: []string{"error_logs"},
	}
}
