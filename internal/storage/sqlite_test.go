package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wagnerlima/knowledgeflow/internal/models"
)

// legacySchema is the layout written by the first SQLite prototypes: no
// categories, task tags, note linking, completion or update times.
const legacySchema = `
CREATE TABLE notes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    content TEXT,
    tags TEXT DEFAULT '[]',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE TABLE tasks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    description TEXT,
    status TEXT DEFAULT 'pending',
    priority TEXT DEFAULT 'medium',
    due_date TEXT,
    created_at TEXT NOT NULL
);
CREATE TABLE note_links (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source_note_id INTEGER NOT NULL,
    target_note_id INTEGER NOT NULL,
    created_at TEXT NOT NULL,
    UNIQUE(source_note_id, target_note_id)
);
INSERT INTO notes (title, content, tags, created_at, updated_at)
VALUES ('Old note', 'from tasks3', '["legacy"]', '2024-01-05T10:00:00.123456', '2024-01-05T10:00:00.123456');
INSERT INTO tasks (title, description, status, priority, created_at)
VALUES ('Old task', '', 'done', 'high', '2024-01-06T08:30:00');
`

// knowledgeflowSchema is the layout of the first knowledgeflow releases.
// They declared foreign keys but never enabled them, so their databases can
// hold dangling references. The rows below include a task linked to a note
// that is gone, a note whose tags are not JSON and a category tree whose
// parent_id cascades on delete.
const knowledgeflowSchema = `
CREATE TABLE notes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    content TEXT,
    tags TEXT DEFAULT '[]',
    category_id INTEGER,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    FOREIGN KEY (category_id) REFERENCES categories(id)
);
CREATE TABLE tasks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    description TEXT,
    status TEXT DEFAULT 'pending',
    priority TEXT DEFAULT 'medium',
    due_date TEXT,
    tags TEXT DEFAULT '[]',
    category_id INTEGER,
    linked_note_id INTEGER,
    created_at TEXT NOT NULL,
    completed_at TEXT,
    FOREIGN KEY (category_id) REFERENCES categories(id),
    FOREIGN KEY (linked_note_id) REFERENCES notes(id)
);
CREATE TABLE note_links (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source_note_id INTEGER NOT NULL,
    target_note_id INTEGER NOT NULL,
    link_type TEXT DEFAULT 'reference',
    created_at TEXT NOT NULL,
    FOREIGN KEY (source_note_id) REFERENCES notes(id) ON DELETE CASCADE,
    FOREIGN KEY (target_note_id) REFERENCES notes(id) ON DELETE CASCADE,
    UNIQUE(source_note_id, target_note_id)
);
CREATE TABLE categories (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    parent_id INTEGER,
    type TEXT DEFAULT 'note',
    created_at TEXT NOT NULL,
    FOREIGN KEY (parent_id) REFERENCES categories(id) ON DELETE CASCADE
);
INSERT INTO notes (title, content, tags, created_at, updated_at)
VALUES ('Scratch', 'typed by hand', 'ideas, later', '2024-02-01T09:00:00', '2024-02-01T09:00:00');
INSERT INTO tasks (title, linked_note_id, created_at)
VALUES ('Orphan task', 42, '2024-02-02T09:00:00');
INSERT INTO categories (name, parent_id, type, created_at) VALUES ('Projects', NULL, 'both', '2024-02-03T09:00:00');
INSERT INTO categories (name, parent_id, type, created_at) VALUES ('Garden', 1, 'note', '2024-02-03T09:00:00');
`

// seedSQLite writes schema to a fresh database file and returns its path.
func seedSQLite(t *testing.T, schema string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "knowledgeflow.db")
	raw, err := sql.Open("sqlite3", "file:"+path)
	require.NoError(t, err)
	_, err = raw.ExecContext(context.Background(), schema)
	require.NoError(t, err)
	require.NoError(t, raw.Close())
	return path
}

func TestOpenSQLiteMigratesLegacySchema(t *testing.T) {
	ctx := context.Background()
	path := seedSQLite(t, legacySchema)

	s, err := OpenSQLite(ctx, SQLiteConfig{Path: path, Logger: zap.NewNop()})
	require.NoError(t, err)
	defer s.Close()

	for _, m := range pendingMigrations {
		has, err := columnExists(ctx, s.db, m.Table, m.Column)
		require.NoError(t, err)
		assert.True(t, has, "%s.%s should exist after migration", m.Table, m.Column)
	}

	applied, err := runMigrations(ctx, s.db, zap.NewNop())
	require.NoError(t, err)
	assert.Zero(t, applied, "migrations must be idempotent")

	note, err := s.GetNote(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Old note", note.Title)
	assert.Equal(t, []string{"legacy"}, note.Tags)
	assert.Equal(t, time.Date(2024, 1, 5, 10, 0, 0, 123456000, time.UTC), note.CreatedAt)

	task, err := s.GetTask(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, task.Status)
	assert.Equal(t, models.PriorityHigh, task.Priority)
	assert.Equal(t, []string{}, task.Tags)
	assert.Equal(t, task.CreatedAt, task.UpdatedAt, "missing updated_at falls back to created_at")

	// Migrated tables accept the new columns.
	cat, _, err := s.CreateCategory(ctx, models.NewCategory{Name: "Archive"})
	require.NoError(t, err)
	ok, err := s.AssignTaskCategory(ctx, task.ID, &cat.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	other, err := s.CreateNote(ctx, models.NewNote{Title: "New note"})
	require.NoError(t, err)
	link, created, err := s.CreateLink(ctx, note.ID, other.ID, "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.DefaultLinkType, link.LinkType)
}

func TestOpenSQLiteKnowledgeflowDatabase(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.WarnLevel)
	s, err := OpenSQLite(ctx, SQLiteConfig{Path: seedSQLite(t, knowledgeflowSchema), Logger: zap.New(core)})
	require.NoError(t, err)
	defer s.Close()

	t.Run("dangling linked note", func(t *testing.T) {
		ok, err := s.CompleteTask(ctx, "1")
		require.NoError(t, err)
		assert.True(t, ok)

		title := "Orphan task, renamed"
		task, err := s.UpdateTask(ctx, "1", models.TaskPatch{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, task.Status)
		require.NotNil(t, task.LinkedNoteID)
		assert.Equal(t, "42", *task.LinkedNoteID, "an untouched reference is kept")

		_, err = s.UpdateTask(ctx, "1", models.TaskPatch{LinkedNoteID: ptr("43")})
		assert.ErrorIs(t, err, ErrValidation, "a new reference must resolve")
		task, err = s.UpdateTask(ctx, "1", models.TaskPatch{LinkedNoteID: ptr("")})
		require.NoError(t, err)
		assert.Nil(t, task.LinkedNoteID)
	})

	t.Run("unreadable tags", func(t *testing.T) {
		note, err := s.GetNote(ctx, "1")
		require.NoError(t, err)
		assert.Empty(t, note.Tags)
		assert.NotZero(t, logs.FilterMessage("unreadable tags").Len())

		content := "typed by hand, then edited"
		_, err = s.UpdateNote(ctx, "1", models.NotePatch{Content: &content})
		require.NoError(t, err)
		var raw string
		require.NoError(t, s.db.QueryRowContext(ctx, `SELECT tags FROM notes WHERE id = 1`).Scan(&raw))
		assert.Equal(t, "ideas, later", raw, "edits that leave tags alone keep the stored value")

		tags := []string{"ideas"}
		note, err = s.UpdateNote(ctx, "1", models.NotePatch{Tags: &tags})
		require.NoError(t, err)
		assert.Equal(t, tags, note.Tags)
	})

	t.Run("deleting a parent keeps its children", func(t *testing.T) {
		require.True(t, s.parentCascade)
		ok, err := s.DeleteCategory(ctx, "1")
		require.NoError(t, err)
		assert.True(t, ok)

		child, err := s.GetCategory(ctx, "2")
		require.NoError(t, err)
		assert.Equal(t, "Garden", child.Name)
		assert.Nil(t, child.ParentID, "children are detached instead of cascaded")
	})
}

func TestSQLiteNewDatabaseHasNoParentCascade(t *testing.T) {
	s := setupSQLite(t, nil)
	assert.False(t, s.parentCascade)
}

func TestSQLiteIDs(t *testing.T) {
	s := setupSQLite(t, nil)
	ctx := context.Background()

	a := mustNote(t, s, "A")
	b := mustNote(t, s, "B")
	assert.Equal(t, "1", a.ID)
	assert.Equal(t, "2", b.ID)

	for _, id := range []string{"", "abc", "-1", "0", "1.5"} {
		_, err := s.GetNote(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound, "id %q", id)
		ok, err := s.DeleteNote(ctx, id)
		require.NoError(t, err)
		assert.False(t, ok)
	}

	// Ids are never reused.
	_, err := s.DeleteNote(ctx, b.ID)
	require.NoError(t, err)
	c := mustNote(t, s, "C")
	assert.Equal(t, "3", c.ID)
}

func TestSQLiteListsNewestFirst(t *testing.T) {
	s := setupSQLite(t, tickingClock())
	for _, title := range []string{"first", "second", "third"} {
		mustNote(t, s, title)
		mustTask(t, s, models.NewTask{Title: title})
	}

	notes, err := s.ListNotes(context.Background(), models.NoteFilter{})
	require.NoError(t, err)
	tasks, err := s.ListTasks(context.Background(), models.TaskFilter{})
	require.NoError(t, err)
	for i, want := range []string{"third", "second", "first"} {
		assert.Equal(t, want, notes[i].Title)
		assert.Equal(t, want, tasks[i].Title)
	}
}

func TestSQLiteLinksAreNoteToNote(t *testing.T) {
	s := setupSQLite(t, nil)
	ctx := context.Background()
	n := mustNote(t, s, "Note")
	mustTask(t, s, models.NewTask{Title: "First task"})
	task := mustTask(t, s, models.NewTask{Title: "Second task"})
	require.Equal(t, "2", task.ID)

	// Task 2 exists, but there is no note 2 to link to.
	_, _, err := s.CreateLink(ctx, n.ID, task.ID, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEncodeTimeSortsAsText(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	whole := encodeTime(base)
	half := encodeTime(base.Add(500 * time.Millisecond))
	assert.Less(t, whole, half)
	assert.Equal(t, base.Add(500*time.Millisecond), decodeTime(half))
}
