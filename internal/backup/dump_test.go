package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venuescout/venuescout-backup/internal/models"
)

func TestGenerateDump_Structure(t *testing.T) {
	db := newTestDB(t)
	seedTestData(t, db)

	dir := t.TempDir()
	engine := newTestEngine(t, db, Config{BackupDir: dir, Compression: false})

	result := engine.CreateBackup(context.Background(), models.BackupTypeFull, "")
	require.True(t, result.Success, "backup failed: %s", result.Error)

	raw, err := os.ReadFile(filepath.Join(dir, result.Metadata.Filename))
	require.NoError(t, err)
	dump := string(raw)

	// Header: provenance comment, FK disable, transaction begin
	assert.True(t, strings.HasPrefix(dump, "-- venuescout database backup\n"))
	assert.Contains(t, dump, "PRAGMA foreign_keys=OFF;\nBEGIN TRANSACTION;\n")

	// Footer: commit, FK re-enable
	assert.True(t, strings.HasSuffix(dump, "COMMIT;\nPRAGMA foreign_keys=ON;\n"))

	// Destructive-safe recreate: DROP precedes CREATE for every table
	for _, table := range result.Metadata.Tables {
		drop := strings.Index(dump, fmt.Sprintf("DROP TABLE IF EXISTS %q;", table))
		create := strings.Index(dump, fmt.Sprintf("CREATE TABLE %s", table))
		require.GreaterOrEqual(t, drop, 0, "missing DROP for %s", table)
		require.GreaterOrEqual(t, create, 0, "missing CREATE for %s", table)
		assert.Less(t, drop, create, "DROP must precede CREATE for %s", table)
	}

	// Index recreation comes after all table statements
	idxPos := strings.Index(dump, "CREATE INDEX idx_venues_category")
	require.GreaterOrEqual(t, idxPos, 0)
	lastInsert := strings.LastIndex(dump, "INSERT INTO")
	assert.Greater(t, idxPos, lastInsert, "indexes must follow table data")
}

func TestDumpTableRows_Batching(t *testing.T) {
	db := newTestDB(t)
	for i := 0; i < 250; i++ {
		_, err := db.Exec("INSERT INTO notifications (id, kind, body) VALUES (?, 'promo', 'hello')", fmt.Sprintf("n%03d", i))
		require.NoError(t, err)
	}

	dir := t.TempDir()
	engine := newTestEngine(t, db, Config{BackupDir: dir, Compression: false})

	result := engine.CreateBackup(context.Background(), models.BackupTypeFull, "")
	require.True(t, result.Success, "backup failed: %s", result.Error)
	assert.EqualValues(t, 250, result.Metadata.RecordCount)

	raw, err := os.ReadFile(filepath.Join(dir, result.Metadata.Filename))
	require.NoError(t, err)

	// 250 rows at 100 per statement -> 3 INSERTs
	assert.Equal(t, 3, strings.Count(string(raw), `INSERT INTO "notifications"`))
}

func TestRenderValue(t *testing.T) {
	loc := time.FixedZone("UTC", 0)
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil is literal NULL", nil, "NULL"},
		{"plain string", "cafe", "'cafe'"},
		{"quote doubling", "O'Brien", "'O''Brien'"},
		{"only quotes", "'''", "''''''''"},
		{"byte slice as text", []byte("raw"), "'raw'"},
		{"integer", int64(42), "42"},
		{"float", 4.5, "4.5"},
		{"negative", int64(-7), "-7"},
		{"bool true", true, "1"},
		{"bool false", false, "0"},
		{"timestamp", time.Date(2025, 6, 1, 13, 45, 9, 0, loc), "'2025-06-01 13:45:09'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, renderValue(tt.in))
		})
	}
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"venues"`, quoteIdent("venues"))
	assert.Equal(t, `"odd""name"`, quoteIdent(`odd"name`))
}

func TestScriptBody(t *testing.T) {
	dump := "-- venuescout database backup\n" +
		"-- Type: full\n" +
		"--\n" +
		"PRAGMA foreign_keys=OFF;\n" +
		"BEGIN TRANSACTION;\n" +
		"CREATE TABLE t (id TEXT);\n" +
		"COMMIT;\nPRAGMA foreign_keys=ON;\n"

	assert.Equal(t, "CREATE TABLE t (id TEXT);\n", scriptBody(dump))
}
