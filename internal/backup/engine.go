// Package backup implements SQL dump, restore, and retention for the
// venuescout SQLite database. Artifacts are plain replayable SQL scripts,
// optionally gzipped, each paired with a JSON metadata sidecar.
package backup

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/venuescout/venuescout-backup/internal/models"
)

var (
	// ErrBackupNotFound is returned when no backup matches the requested id.
	ErrBackupNotFound = errors.New("backup not found")

	// ErrChecksumMismatch is returned when an artifact's bytes no longer
	// match the digest recorded at creation time.
	ErrChecksumMismatch = errors.New("backup checksum mismatch")

	// ErrArtifactMissing is returned when a sidecar exists but its artifact
	// file is gone.
	ErrArtifactMissing = errors.New("backup artifact missing")
)

// diskSpaceWarnPercent is the backup-directory usage level above which a
// low-space warning is logged before dumping.
const diskSpaceWarnPercent = 90.0

// Engine produces, lists, restores, and prunes database backups. Backup and
// restore are serialized behind a single mutex, so a manual trigger cannot
// interleave with a scheduled one.
type Engine struct {
	db     *sql.DB
	config Config

	exclude map[string]struct{}
	logger  zerolog.Logger
	mu      sync.Mutex
}

// NewEngine creates a backup engine over a live database connection. Zero
// config fields fall back to defaults.
func NewEngine(db *sql.DB, config Config, logger zerolog.Logger) *Engine {
	defaults := DefaultConfig()
	if config.BackupDir == "" {
		config.BackupDir = defaults.BackupDir
	}
	if config.RetentionDays == 0 {
		config.RetentionDays = defaults.RetentionDays
	}

	exclude := make(map[string]struct{}, len(config.ExcludeTables))
	for _, name := range config.ExcludeTables {
		exclude[name] = struct{}{}
	}

	return &Engine{
		db:      db,
		config:  config,
		exclude: exclude,
		logger:  logger.With().Str("component", "backup_engine").Logger(),
	}
}

// Config returns the engine's backup policy.
func (e *Engine) Config() Config {
	return e.config
}

// CreateBackup dumps the database into a new artifact plus metadata sidecar.
// All failure paths are captured into the result; the method never returns
// an error to the caller.
func (e *Engine) CreateBackup(ctx context.Context, kind models.BackupType, description string) *models.BackupResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	opLog := e.logger.With().Str("op_id", uuid.NewString()).Str("type", string(kind)).Logger()

	fail := func(err error) *models.BackupResult {
		opLog.Error().Err(err).Dur("duration", time.Since(start)).Msg("backup failed")
		return &models.BackupResult{Error: err.Error(), Duration: time.Since(start)}
	}

	if kind != models.BackupTypeFull && kind != models.BackupTypeSchema {
		return fail(fmt.Errorf("unsupported backup type %q", kind))
	}

	if err := os.MkdirAll(e.config.BackupDir, 0755); err != nil {
		return fail(fmt.Errorf("create backup directory: %w", err))
	}
	e.checkDiskSpace(opLog)

	createdAt := time.Now()
	dump, tables, recordCount, err := e.generateDump(ctx, kind, createdAt)
	if err != nil {
		return fail(fmt.Errorf("generate dump: %w", err))
	}

	data := []byte(dump)
	if e.config.Compression {
		if data, err = compress(data); err != nil {
			return fail(err)
		}
	}

	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])

	id := fmt.Sprintf("%s_%d", kind, createdAt.UnixMilli())
	filename := id + artifactExt
	if e.config.Compression {
		filename = id + compressedExt
	}

	artifactPath := filepath.Join(e.config.BackupDir, filename)
	if err := os.WriteFile(artifactPath, data, 0644); err != nil {
		return fail(fmt.Errorf("write backup artifact: %w", err))
	}

	meta := &models.BackupMetadata{
		ID:          id,
		Type:        kind,
		Filename:    filename,
		CreatedAt:   createdAt,
		Size:        int64(len(data)),
		Checksum:    checksum,
		Description: description,
		Tables:      tables,
		RecordCount: recordCount,
		Compressed:  e.config.Compression,
	}

	// The sidecar is written only after the artifact write succeeded; a
	// failure here removes the artifact so no half-recorded backup remains.
	sidecarPath := filepath.Join(e.config.BackupDir, id+metadataExt)
	if err := writeMetadata(sidecarPath, meta); err != nil {
		os.Remove(artifactPath)
		return fail(err)
	}

	opLog.Info().
		Str("artifact", filename).
		Int64("size_bytes", meta.Size).
		Int("tables", len(tables)).
		Int64("records", recordCount).
		Bool("compressed", meta.Compressed).
		Dur("duration", time.Since(start)).
		Msg("backup created")

	return &models.BackupResult{Success: true, Metadata: meta, Duration: time.Since(start)}
}

// checkDiskSpace logs a warning when the backup directory's filesystem is
// nearly full. Backups proceed regardless; the write itself surfaces hard
// failures.
func (e *Engine) checkDiskSpace(log zerolog.Logger) {
	usage, err := disk.Usage(e.config.BackupDir)
	if err != nil {
		log.Debug().Err(err).Msg("disk usage probe failed")
		return
	}
	if usage.UsedPercent >= diskSpaceWarnPercent {
		log.Warn().
			Float64("used_percent", usage.UsedPercent).
			Uint64("free_bytes", usage.Free).
			Msg("backup directory is low on disk space")
	}
}

// ListBackups returns all known backups, newest first. Unparsable sidecars
// are logged and skipped; a missing backup directory yields an empty list.
func (e *Engine) ListBackups() ([]*models.BackupMetadata, error) {
	entries, err := os.ReadDir(e.config.BackupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backup directory: %w", err)
	}

	var backups []*models.BackupMetadata
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), metadataExt) {
			continue
		}
		meta, err := readMetadata(filepath.Join(e.config.BackupDir, entry.Name()))
		if err != nil {
			e.logger.Warn().Err(err).Str("sidecar", entry.Name()).Msg("skipping unreadable backup metadata")
			continue
		}
		backups = append(backups, meta)
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// findBackup resolves a backup id via the sidecar listing.
func (e *Engine) findBackup(id string) (*models.BackupMetadata, error) {
	backups, err := e.ListBackups()
	if err != nil {
		return nil, err
	}
	for _, meta := range backups {
		if meta.ID == id {
			return meta, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrBackupNotFound, id)
}

// VerifyBackup checks an artifact's integrity against its recorded digest
// without touching the database.
func (e *Engine) VerifyBackup(id string) error {
	meta, err := e.findBackup(id)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(filepath.Join(e.config.BackupDir, meta.Filename))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrArtifactMissing, meta.Filename)
		}
		return fmt.Errorf("read backup artifact: %w", err)
	}

	sum := sha256.Sum256(data)
	if hex.EncodeToString(sum[:]) != meta.Checksum {
		return fmt.Errorf("%w: %s", ErrChecksumMismatch, id)
	}
	return nil
}

// RestoreFromBackup replays a backup into the live database. The artifact's
// digest is re-verified before any SQL runs, and the whole script executes
// inside one transaction so a failed restore leaves the database untouched.
func (e *Engine) RestoreFromBackup(ctx context.Context, id string) *models.RestoreResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	opLog := e.logger.With().Str("op_id", uuid.NewString()).Str("backup_id", id).Logger()

	fail := func(err error) *models.RestoreResult {
		opLog.Error().Err(err).Dur("duration", time.Since(start)).Msg("restore failed")
		return &models.RestoreResult{Error: err.Error(), Duration: time.Since(start)}
	}

	meta, err := e.findBackup(id)
	if err != nil {
		return fail(err)
	}

	data, err := os.ReadFile(filepath.Join(e.config.BackupDir, meta.Filename))
	if err != nil {
		if os.IsNotExist(err) {
			return fail(fmt.Errorf("%w: %s", ErrArtifactMissing, meta.Filename))
		}
		return fail(fmt.Errorf("read backup artifact: %w", err))
	}

	// Integrity gate: the digest covers the stored bytes, so corruption is
	// detected before decompression and before any SQL executes.
	sum := sha256.Sum256(data)
	if hex.EncodeToString(sum[:]) != meta.Checksum {
		return fail(fmt.Errorf("%w: %s", ErrChecksumMismatch, id))
	}

	if meta.Compressed {
		if data, err = decompress(data); err != nil {
			return fail(err)
		}
	}
	body := scriptBody(string(data))

	// A dedicated connection keeps the foreign-key pragma scoped to this
	// restore rather than leaking into the pool.
	conn, err := e.db.Conn(ctx)
	if err != nil {
		return fail(fmt.Errorf("acquire connection: %w", err))
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys=OFF"); err != nil {
		return fail(fmt.Errorf("disable foreign keys: %w", err))
	}
	defer conn.ExecContext(context.Background(), "PRAGMA foreign_keys=ON")

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fail(fmt.Errorf("begin restore transaction: %w", err))
	}
	if _, err := tx.ExecContext(ctx, body); err != nil {
		tx.Rollback()
		return fail(fmt.Errorf("execute restore script: %w", err))
	}
	if err := tx.Commit(); err != nil {
		return fail(fmt.Errorf("commit restore transaction: %w", err))
	}

	opLog.Info().
		Str("artifact", meta.Filename).
		Int("tables", len(meta.Tables)).
		Int64("records", meta.RecordCount).
		Dur("duration", time.Since(start)).
		Msg("restore completed")

	return &models.RestoreResult{
		Success:     true,
		Tables:      meta.Tables,
		RecordCount: meta.RecordCount,
		Duration:    time.Since(start),
	}
}
