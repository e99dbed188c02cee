package storage

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// Migration adds one column to a table that predates it.
type Migration struct {
	Table  string
	Column string
	Def    string
}

// pendingMigrations covers databases written by earlier releases, which
// lacked categories, task tags, note linking and completion tracking.
var pendingMigrations = []Migration{
	{"notes", "category_id", "INTEGER REFERENCES categories(id)"},
	{"tasks", "tags", "TEXT DEFAULT '[]'"},
	{"tasks", "category_id", "INTEGER REFERENCES categories(id)"},
	{"tasks", "linked_note_id", "INTEGER REFERENCES notes(id)"},
	{"tasks", "updated_at", "TEXT"},
	{"tasks", "completed_at", "TEXT"},
	{"note_links", "link_type", "TEXT DEFAULT 'reference'"},
}

// runMigrations adds any missing columns. Existing rows are not rewritten.
func runMigrations(ctx context.Context, db *sql.DB, log *zap.Logger) (int, error) {
	applied := 0
	for _, m := range pendingMigrations {
		ok, err := tableExists(ctx, db, m.Table)
		if err != nil {
			return applied, err
		}
		if !ok {
			log.Debug("table missing, skipping migration", zap.String("table", m.Table), zap.String("column", m.Column))
			continue
		}
		has, err := columnExists(ctx, db, m.Table, m.Column)
		if err != nil {
			return applied, err
		}
		if has {
			continue
		}
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := db.ExecContext(ctx, query); err != nil {
			return applied, fmt.Errorf("migrate %s.%s: %w", m.Table, m.Column, err)
		}
		log.Info("migration applied", zap.String("table", m.Table), zap.String("column", m.Column))
		applied++
	}
	return applied, nil
}

// columnExists checks PRAGMA table_info for the column.
func columnExists(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notnull   int
			dfltValue any
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return false, fmt.Errorf("scan table info %s: %w", table, err)
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

func tableExists(ctx context.Context, db *sql.DB, table string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", table, err)
	}
	return count > 0, nil
}

// parentCascades reports whether categories.parent_id carries a foreign key
// with ON DELETE CASCADE. Databases written by the first knowledgeflow
// releases declare one.
func parentCascades(ctx context.Context, db *sql.DB) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_foreign_key_list('categories')
		 WHERE "from" = 'parent_id' AND upper(on_delete) = 'CASCADE'`,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("inspect categories foreign keys: %w", err)
	}
	return count > 0, nil
}
