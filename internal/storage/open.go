package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Backends understood by Open.
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
)

// SQLiteFile is the database file name inside the data directory.
const SQLiteFile = "knowledgeflow.db"

// Options selects a backend and where it keeps its data.
type Options struct {
	Backend       string
	DataDir       string
	CorruptPolicy CorruptPolicy
	Logger        *zap.Logger
	Now           func() time.Time
}

// Open opens the configured backend rooted at DataDir.
func Open(ctx context.Context, opts Options) (Store, error) {
	if opts.DataDir == "" {
		return nil, fmt.Errorf("data dir is required")
	}
	switch opts.Backend {
	case "", BackendSQLite:
		s, err := OpenSQLite(ctx, SQLiteConfig{
			Path:   filepath.Join(opts.DataDir, SQLiteFile),
			Logger: opts.Logger,
			Now:    opts.Now,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendJSON:
		s, err := OpenJSON(JSONConfig{
			Dir:           opts.DataDir,
			CorruptPolicy: opts.CorruptPolicy,
			Logger:        opts.Logger,
			Now:           opts.Now,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown backend %q (want sqlite or json)", opts.Backend)
}
