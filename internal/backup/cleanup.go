package backup

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/venuescout/venuescout-backup/internal/models"
)

// CleanupOldBackups prunes backups in two independent passes: everything
// older than the retention window, then the oldest survivors past the count
// cap. Deletion failures are logged and skipped; the returned counts cover
// only what actually succeeded.
func (e *Engine) CleanupOldBackups() (*models.CleanupResult, error) {
	result := &models.CleanupResult{}

	backups, err := e.ListBackups()
	if err != nil {
		return result, err
	}

	cutoff := time.Now().AddDate(0, 0, -e.config.RetentionDays)

	var survivors []*models.BackupMetadata
	for _, meta := range backups {
		if meta.CreatedAt.Before(cutoff) {
			e.deleteBackup(meta, result)
			continue
		}
		survivors = append(survivors, meta)
	}

	if e.config.MaxBackups > 0 && len(survivors) > e.config.MaxBackups {
		// Oldest first, trim down to the cap.
		sort.Slice(survivors, func(i, j int) bool {
			return survivors[i].CreatedAt.Before(survivors[j].CreatedAt)
		})
		for _, meta := range survivors[:len(survivors)-e.config.MaxBackups] {
			e.deleteBackup(meta, result)
		}
	}

	e.reconcileOrphans(cutoff, result)

	if result.DeletedCount > 0 {
		e.logger.Info().
			Int("deleted", result.DeletedCount).
			Int64("freed_bytes", result.FreedSpace).
			Msg("backup cleanup completed")
	}
	return result, nil
}

// deleteBackup removes an artifact and its sidecar as a pair. Either file
// already being gone is not an error.
func (e *Engine) deleteBackup(meta *models.BackupMetadata, result *models.CleanupResult) {
	artifactPath := filepath.Join(e.config.BackupDir, meta.Filename)
	if info, err := os.Stat(artifactPath); err == nil {
		if err := os.Remove(artifactPath); err != nil {
			e.logger.Warn().Err(err).Str("artifact", meta.Filename).Msg("could not delete backup artifact")
			return
		}
		result.FreedSpace += info.Size()
	}

	sidecarPath := filepath.Join(e.config.BackupDir, meta.ID+metadataExt)
	if err := os.Remove(sidecarPath); err != nil && !os.IsNotExist(err) {
		e.logger.Warn().Err(err).Str("backup_id", meta.ID).Msg("could not delete backup metadata")
		return
	}

	result.DeletedCount++
	e.logger.Info().
		Str("backup_id", meta.ID).
		Time("created_at", meta.CreatedAt).
		Msg("deleted old backup")
}

// reconcileOrphans removes artifacts that lost their sidecar (a crash
// between artifact and metadata writes) once they age past the retention
// window.
func (e *Engine) reconcileOrphans(cutoff time.Time, result *models.CleanupResult) {
	entries, err := os.ReadDir(e.config.BackupDir)
	if err != nil {
		if !os.IsNotExist(err) {
			e.logger.Warn().Err(err).Msg("could not scan backup directory for orphans")
		}
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || (!strings.HasSuffix(name, artifactExt) && !strings.HasSuffix(name, compressedExt)) {
			continue
		}

		id := strings.TrimSuffix(strings.TrimSuffix(name, compressedExt), artifactExt)
		if _, err := os.Stat(filepath.Join(e.config.BackupDir, id+metadataExt)); err == nil {
			continue
		}

		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(e.config.BackupDir, name)); err != nil {
			e.logger.Warn().Err(err).Str("artifact", name).Msg("could not delete orphaned artifact")
			continue
		}
		result.DeletedCount++
		result.FreedSpace += info.Size()
		e.logger.Info().Str("artifact", name).Msg("deleted orphaned backup artifact")
	}
}
