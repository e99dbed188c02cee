package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Collection file names inside the data directory.
const (
	NotesFile      = "notes.json"
	TasksFile      = "tasks.json"
	LinksFile      = "links.json"
	CategoriesFile = "categories.json"
)

var collectionFiles = []string{NotesFile, TasksFile, LinksFile, CategoriesFile}

// CorruptPolicy decides what a read does with a collection file that cannot be parsed.
type CorruptPolicy string

const (
	// CorruptFail returns a *CorruptStoreError and leaves the file alone.
	CorruptFail CorruptPolicy = "fail"
	// CorruptReset treats the file as an empty collection and logs a warning.
	// The next write to the collection replaces the corrupt contents.
	CorruptReset CorruptPolicy = "reset"
)

// ParseCorruptPolicy validates a policy name. Empty means fail.
func ParseCorruptPolicy(s string) (CorruptPolicy, error) {
	switch p := CorruptPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return CorruptFail, nil
	case CorruptFail, CorruptReset:
		return p, nil
	}
	return "", fmt.Errorf("unknown corrupt policy %q (want fail or reset)", s)
}

// JSONConfig configures a JSONStore.
type JSONConfig struct {
	// Dir holds the collection files. It is created if needed.
	Dir           string
	CorruptPolicy CorruptPolicy
	Logger        *zap.Logger
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

// JSONStore keeps each collection in its own JSON array file. Every call
// re-reads the files it needs and writes whole collections back atomically.
// Links may join any two items, notes or tasks.
type JSONStore struct {
	dir    string
	policy CorruptPolicy
	log    *zap.Logger
	clock  clock

	mu sync.Mutex
}

var _ Store = (*JSONStore)(nil)

// OpenJSON prepares the data directory and creates missing collection files.
func OpenJSON(cfg JSONConfig) (*JSONStore, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("json data dir is required")
	}
	policy, err := ParseCorruptPolicy(string(cfg.CorruptPolicy))
	if err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	s := &JSONStore{dir: cfg.Dir, policy: policy, log: log, clock: clock(cfg.Now)}
	for _, name := range collectionFiles {
		path := s.path(name)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			if err := writeFileAtomic(path, []byte("[]\n"), 0o644); err != nil {
				return nil, fmt.Errorf("init %s: %w", name, err)
			}
		} else if err != nil {
			return nil, fmt.Errorf("stat %s: %w", name, err)
		}
	}
	log.Debug("json store opened", zap.String("dir", cfg.Dir), zap.String("corrupt_policy", string(policy)))
	return s, nil
}

// Dir returns the data directory.
func (s *JSONStore) Dir() string { return s.dir }

// Close is a no-op; files are not held open between calls.
func (s *JSONStore) Close() error { return nil }

func (s *JSONStore) path(name string) string {
	return filepath.Join(s.dir, name)
}

func collectionName(file string) string {
	return strings.TrimSuffix(file, ".json")
}

// readCollection loads one collection. A missing or blank file is empty.
func readCollection[T any](s *JSONStore, name string) ([]T, error) {
	path := s.path(name)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []T{}, nil
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		cerr := &CorruptStoreError{Collection: collectionName(name), Path: path, Err: err}
		if s.policy == CorruptReset {
			s.log.Warn("corrupt collection treated as empty",
				zap.String("collection", cerr.Collection), zap.String("path", path), zap.Error(err))
			return []T{}, nil
		}
		return nil, cerr
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// writeCollection replaces one collection file atomically.
func writeCollection[T any](s *JSONStore, name string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	data = append(data, '\n')
	if err := writeFileAtomic(s.path(name), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Repair moves every collection file that does not parse aside as
// <name>.corrupt-<unix> and replaces it with an empty array. It returns the
// names of the repaired collections.
func (s *JSONStore) Repair(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repaired := []string{}
	for _, name := range collectionFiles {
		if err := ctx.Err(); err != nil {
			return repaired, err
		}
		path := s.path(name)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return repaired, fmt.Errorf("read %s: %w", name, err)
		}
		if len(bytes.TrimSpace(data)) == 0 || recordCheckers[name](data) == nil {
			continue
		}
		backup := fmt.Sprintf("%s.corrupt-%d", path, s.clock.now().Unix())
		if err := os.Rename(path, backup); err != nil {
			return repaired, fmt.Errorf("move aside %s: %w", name, err)
		}
		if err := writeFileAtomic(path, []byte("[]\n"), 0o644); err != nil {
			return repaired, fmt.Errorf("reset %s: %w", name, err)
		}
		s.log.Warn("corrupt collection repaired",
			zap.String("collection", collectionName(name)), zap.String("backup", backup))
		repaired = append(repaired, collectionName(name))
	}
	return repaired, nil
}

// recordCheckers decode a collection file the same way reads do.
var recordCheckers = map[string]func([]byte) error{
	NotesFile:      checkRecords[noteRecord],
	TasksFile:      checkRecords[taskRecord],
	LinksFile:      checkRecords[linkRecord],
	CategoriesFile: checkRecords[categoryRecord],
}

func checkRecords[T any](data []byte) error {
	var items []T
	return json.Unmarshal(data, &items)
}
