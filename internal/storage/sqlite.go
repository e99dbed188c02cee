package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"go.uber.org/zap"
)

// SQLiteConfig configures a SQLiteStore.
type SQLiteConfig struct {
	// Path is the database file. Its directory is created if needed.
	Path   string
	Logger *zap.Logger
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

// SQLiteStore keeps notes, tasks, note links and categories in one SQLite database.
// Links are note-to-note; ids are decimal strings of the row ids.
type SQLiteStore struct {
	db    *sql.DB
	log   *zap.Logger
	clock clock
	// parentCascade is set for databases whose categories table deletes
	// children together with their parent.
	parentCascade bool
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (or creates) the database, creates missing tables and
// runs column migrations.
func OpenSQLite(ctx context.Context, cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+cfg.Path+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	if _, err := runMigrations(ctx, db, log); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, Indexes); err != nil {
		db.Close()
		return nil, fmt.Errorf("create indexes: %w", err)
	}
	cascade, err := parentCascades(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	log.Debug("sqlite store opened", zap.String("path", cfg.Path), zap.Bool("parent_cascade", cascade))
	return &SQLiteStore{db: db, log: log, clock: clock(cfg.Now), parentCascade: cascade}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// withTx runs fn in a transaction, committing only if fn succeeds.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func exists(ctx context.Context, q querier, table string, id int64) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE id = ?`, table), id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("lookup %s: %w", table, err)
	}
	return n > 0, nil
}

// parseID converts an external id to a row id. Ids that are not positive
// integers cannot exist in this backend.
func parseID(id string) (int64, bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// mustRowID is for ids that were read back from the database.
func mustRowID(id string) int64 {
	n, _ := parseID(id)
	return n
}

func formatID(n int64) string {
	return strconv.FormatInt(n, 10)
}

func refValue(v sql.NullInt64) *string {
	if !v.Valid {
		return nil
	}
	s := formatID(v.Int64)
	return &s
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(b), nil
}

// decodeTags reads a tags column. A value that is not a JSON string array
// reads as no tags and is logged; updates leave such a column untouched
// unless they replace the tags.
func decodeTags(v sql.NullString, log *zap.Logger, kind string, id int64) []string {
	tags := []string{}
	if !v.Valid || v.String == "" {
		return tags
	}
	if err := json.Unmarshal([]byte(v.String), &tags); err != nil {
		log.Warn("unreadable tags",
			zap.String("kind", kind), zap.Int64("id", id), zap.String("raw", v.String), zap.Error(err))
		return []string{}
	}
	return tags
}

// assignments collects the SET clause of an UPDATE.
type assignments struct {
	cols []string
	args []any
}

func (a *assignments) set(col string, v any) {
	a.cols = append(a.cols, col+" = ?")
	a.args = append(a.args, v)
}

func (a *assignments) exec(ctx context.Context, q querier, table string, id int64) error {
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = ?`, table, strings.Join(a.cols, ", "))
	_, err := q.ExecContext(ctx, query, append(a.args, id)...)
	return err
}

func nullString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return encodeTime(*t)
}
