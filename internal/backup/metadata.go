package backup

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/venuescout/venuescout-backup/internal/models"
)

const (
	metadataExt   = ".meta.json"
	artifactExt   = ".sql"
	compressedExt = ".sql.gz"
)

// writeMetadata persists a backup's sidecar file, pretty-printed.
func writeMetadata(path string, meta *models.BackupMetadata) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create metadata file %q: %w", path, err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(meta); err != nil {
		return fmt.Errorf("encode metadata JSON: %w", err)
	}
	return nil
}

// readMetadata parses one sidecar file. Unknown fields are ignored so newer
// sidecar versions stay readable.
func readMetadata(path string) (*models.BackupMetadata, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open metadata file %q: %w", path, err)
	}
	defer file.Close()

	var meta models.BackupMetadata
	if err := json.NewDecoder(file).Decode(&meta); err != nil {
		return nil, fmt.Errorf("decode metadata JSON: %w", err)
	}
	return &meta, nil
}
