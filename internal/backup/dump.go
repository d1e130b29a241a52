package backup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/venuescout/venuescout-backup/internal/models"
)

// insertBatchSize bounds how many rows share a single INSERT statement.
const insertBatchSize = 100

const (
	dumpBeginMarker = "BEGIN TRANSACTION;"
	dumpFooter      = "COMMIT;\nPRAGMA foreign_keys=ON;\n"
)

type tableDef struct {
	name      string
	createSQL string
}

// collectTables reads table definitions from the database catalog, skipping
// SQLite internals and the configured exclusion set.
func (e *Engine) collectTables(ctx context.Context) ([]tableDef, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT name, sql FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%' AND sql IS NOT NULL
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query table catalog: %w", err)
	}
	defer rows.Close()

	var tables []tableDef
	for rows.Next() {
		var t tableDef
		if err := rows.Scan(&t.name, &t.createSQL); err != nil {
			return nil, fmt.Errorf("scan table definition: %w", err)
		}
		if _, excluded := e.exclude[t.name]; excluded {
			continue
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

// collectIndexes reads index definitions for the retained tables. Implicit
// indexes (primary keys, UNIQUE constraints) have no SQL and are skipped.
func (e *Engine) collectIndexes(ctx context.Context) ([]string, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT tbl_name, sql FROM sqlite_master
		WHERE type = 'index' AND sql IS NOT NULL
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query index catalog: %w", err)
	}
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var tblName, createSQL string
		if err := rows.Scan(&tblName, &createSQL); err != nil {
			return nil, fmt.Errorf("scan index definition: %w", err)
		}
		if _, excluded := e.exclude[tblName]; excluded {
			continue
		}
		indexes = append(indexes, createSQL)
	}
	return indexes, rows.Err()
}

// generateDump serializes the database into a replayable SQL script. The
// script drops and recreates every retained table, inserts all rows for full
// dumps, and recreates indexes last. The whole body is bracketed so that
// replaying it is itself transactional.
func (e *Engine) generateDump(ctx context.Context, kind models.BackupType, createdAt time.Time) (string, []string, int64, error) {
	tables, err := e.collectTables(ctx)
	if err != nil {
		return "", nil, 0, err
	}

	var b strings.Builder
	b.WriteString("-- venuescout database backup\n")
	fmt.Fprintf(&b, "-- Type: %s\n", kind)
	fmt.Fprintf(&b, "-- Created: %s\n", createdAt.Format(time.RFC3339))
	b.WriteString("--\n")
	b.WriteString("PRAGMA foreign_keys=OFF;\n")
	b.WriteString(dumpBeginMarker + "\n")

	var (
		names       []string
		recordCount int64
	)
	for _, t := range tables {
		names = append(names, t.name)
		fmt.Fprintf(&b, "\nDROP TABLE IF EXISTS %s;\n", quoteIdent(t.name))
		b.WriteString(t.createSQL)
		b.WriteString(";\n")

		if kind == models.BackupTypeFull {
			n, err := e.dumpTableRows(ctx, t.name, &b)
			if err != nil {
				return "", nil, 0, fmt.Errorf("dump rows of %s: %w", t.name, err)
			}
			recordCount += n
		}
	}

	indexes, err := e.collectIndexes(ctx)
	if err != nil {
		return "", nil, 0, err
	}
	if len(indexes) > 0 {
		b.WriteString("\n")
		for _, idx := range indexes {
			b.WriteString(idx)
			b.WriteString(";\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(dumpFooter)

	return b.String(), names, recordCount, nil
}

// dumpTableRows emits batched INSERT statements for every row of a table and
// returns the number of rows written.
func (e *Engine) dumpTableRows(ctx context.Context, table string, b *strings.Builder) (int64, error) {
	rows, err := e.db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(table))
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return 0, err
	}
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	colList := strings.Join(quoted, ", ")

	flush := func(batch []string) {
		fmt.Fprintf(b, "INSERT INTO %s (%s) VALUES %s;\n",
			quoteIdent(table), colList, strings.Join(batch, ", "))
	}

	var (
		batch []string
		count int64
	)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return count, err
		}

		rendered := make([]string, len(vals))
		for i, v := range vals {
			rendered[i] = renderValue(v)
		}
		batch = append(batch, "("+strings.Join(rendered, ", ")+")")
		count++

		if len(batch) == insertBatchSize {
			flush(batch)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		flush(batch)
	}
	return count, rows.Err()
}

// renderValue converts a scanned column value into SQL literal text. The
// rules mirror the replay side of the dump format: NULL stays literal,
// strings get single-quote doubling, everything else renders textually.
func renderValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return quoteString(string(x))
	case string:
		return quoteString(x)
	case time.Time:
		return quoteString(x.Format("2006-01-02 15:04:05"))
	case bool:
		if x {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprintf("%v", x)
	}
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// scriptBody strips the transaction bracketing from a dump so the remaining
// statements can run inside a transaction the engine controls. The header
// ends at the BEGIN line and the footer is a fixed suffix.
func scriptBody(dump string) string {
	if i := strings.Index(dump, dumpBeginMarker+"\n"); i >= 0 {
		dump = dump[i+len(dumpBeginMarker)+1:]
	}
	dump = strings.TrimSuffix(dump, dumpFooter)
	return dump
}
