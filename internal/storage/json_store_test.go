package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/wagnerlima/knowledgeflow/internal/models"
)

func TestOpenJSONCreatesCollections(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	_, err := OpenJSON(JSONConfig{Dir: dir})
	require.NoError(t, err)

	for _, name := range collectionFiles {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.JSONEq(t, "[]", string(data))
	}

	_, err = OpenJSON(JSONConfig{Dir: dir, CorruptPolicy: "explode"})
	assert.Error(t, err)
}

// Two notes and a high priority task linked to the first note. Deleting the
// task takes its link with it.
func TestJSONDeleteTaskRemovesItsLinks(t *testing.T) {
	s := setupJSON(t, tickingClock())
	ctx := context.Background()

	n1 := mustNote(t, s, "N1")
	n2 := mustNote(t, s, "N2")
	t1 := mustTask(t, s, models.NewTask{Title: "T1", Priority: models.PriorityHigh})

	noteLink, _, err := s.CreateLink(ctx, n1.ID, n2.ID, "")
	require.NoError(t, err)
	_, created, err := s.CreateLink(ctx, t1.ID, n1.ID, "relates_to")
	require.NoError(t, err)
	require.True(t, created)

	back, err := s.Backlinks(ctx, n1.ID)
	require.NoError(t, err)
	require.Len(t, back, 1)
	assert.Equal(t, models.LinkRef{ID: t1.ID, Title: "T1", LinkType: "relates_to", Kind: models.KindTask}, back[0])

	ok, err := s.DeleteTask(ctx, t1.ID)
	require.NoError(t, err)
	require.True(t, ok)

	links, err := s.GetLinks(ctx, n1.ID)
	require.NoError(t, err)
	if diff := cmp.Diff([]models.Link{*noteLink}, links); diff != "" {
		t.Errorf("links after task delete (-want +got):\n%s", diff)
	}

	tasks, err := s.ListTasks(ctx, models.TaskFilter{})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestJSONListsInInsertionOrder(t *testing.T) {
	s := setupJSON(t, tickingClock())
	for _, title := range []string{"first", "second", "third"} {
		mustNote(t, s, title)
	}
	notes, err := s.ListNotes(context.Background(), models.NoteFilter{})
	require.NoError(t, err)
	require.Len(t, notes, 3)
	assert.Equal(t, "first", notes[0].Title)
	assert.Equal(t, "third", notes[2].Title)
}

func TestJSONDanglingLinkIsReportedMissing(t *testing.T) {
	s := setupJSON(t, nil)
	ctx := context.Background()
	n := mustNote(t, s, "Survivor")

	// A crash between the note write and the link cleanup leaves this behind.
	dangling := []linkRecord{{ID: "l1", FromID: n.ID, ToID: "gone", LinkType: "reference", CreatedAt: encodeTime(time.Now())}}
	require.NoError(t, writeCollection(s, LinksFile, dangling))

	refs, err := s.ForwardLinks(ctx, n.ID)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, models.LinkRef{ID: "gone", LinkType: "reference", Missing: true}, refs[0])
}

func TestJSONReadsLegacyFiles(t *testing.T) {
	dir := t.TempDir()
	legacyNotes := `[{"id": "a1", "title": "Old", "content": "text", "tags": null,
		"created_at": "2024-02-01T10:00:00.500000", "updated_at": "2024-02-01T10:00:00.500000"}]`
	legacyTasks := `[{"id": "t1", "title": "Old task", "description": "", "status": "in-progress",
		"priority": "low", "due_date": null, "tags": ["x", "x"], "linked_note_id": "a1",
		"created_at": "2024-02-01T11:00:00", "updated_at": "2024-02-01T11:00:00"}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, NotesFile), []byte(legacyNotes), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, TasksFile), []byte(legacyTasks), 0o644))

	s, err := OpenJSON(JSONConfig{Dir: dir})
	require.NoError(t, err)
	ctx := context.Background()

	n, err := s.GetNote(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, []string{}, n.Tags)
	assert.Equal(t, time.Date(2024, 2, 1, 10, 0, 0, 500000000, time.UTC), n.CreatedAt)

	task, err := s.GetTask(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, task.Status)
	assert.Equal(t, []string{"x"}, task.Tags)
	require.NotNil(t, task.LinkedNoteID)
	assert.Equal(t, "a1", *task.LinkedNoteID)

	// Rewriting the collection stores canonical values.
	_, err = s.UpdateTask(ctx, "t1", models.TaskPatch{Title: ptr("Renamed")})
	require.NoError(t, err)
	var recs []taskRecord
	data, err := os.ReadFile(filepath.Join(dir, TasksFile))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &recs))
	assert.Equal(t, "in_progress", recs[0].Status)
}

func corruptNotes(t *testing.T, dir string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, NotesFile), []byte(`[{"id": "a", "title": `), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestJSONCorruptFailPolicy(t *testing.T) {
	s := setupJSON(t, nil)
	corruptNotes(t, s.Dir())
	ctx := context.Background()

	_, err := s.ListNotes(ctx, models.NoteFilter{})
	require.ErrorIs(t, err, ErrCorruptStore)
	var cerr *CorruptStoreError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "notes", cerr.Collection)

	_, err = s.CreateNote(ctx, models.NewNote{Title: "must not overwrite"})
	require.ErrorIs(t, err, ErrCorruptStore)

	data, err := os.ReadFile(filepath.Join(s.Dir(), NotesFile))
	require.NoError(t, err)
	assert.Equal(t, `[{"id": "a", "title": `, string(data), "corrupt file must be left alone")

	// Other collections keep working.
	_, err = s.CreateTask(ctx, models.NewTask{Title: "unaffected"})
	assert.NoError(t, err)
}

func TestJSONCorruptResetPolicy(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenJSON(JSONConfig{Dir: dir, CorruptPolicy: CorruptReset})
	require.NoError(t, err)
	corruptNotes(t, dir)
	ctx := context.Background()

	notes, err := s.ListNotes(ctx, models.NoteFilter{})
	require.NoError(t, err)
	assert.Empty(t, notes)

	mustNote(t, s, "fresh start")
	notes, err = s.ListNotes(ctx, models.NoteFilter{})
	require.NoError(t, err)
	assert.Len(t, notes, 1)
}

func TestJSONRepair(t *testing.T) {
	s := setupJSON(t, fixedClock())
	mustTask(t, s, models.NewTask{Title: "keep me"})
	corruptNotes(t, s.Dir())
	ctx := context.Background()

	repaired, err := s.Repair(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"notes"}, repaired)

	backup := filepath.Join(s.Dir(), NotesFile+".corrupt-"+"1709285400")
	data, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Equal(t, `[{"id": "a", "title": `, string(data))

	notes, err := s.ListNotes(ctx, models.NoteFilter{})
	require.NoError(t, err)
	assert.Empty(t, notes)
	tasks, err := s.ListTasks(ctx, models.TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	repaired, err = s.Repair(ctx)
	require.NoError(t, err)
	assert.Empty(t, repaired)
}

func TestJSONRepairDetectsWrongShape(t *testing.T) {
	s := setupJSON(t, nil)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), LinksFile), []byte(`{"not": "an array"}`), 0o644))

	_, err := s.GetLinks(context.Background(), "x")
	require.ErrorIs(t, err, ErrCorruptStore)

	repaired, err := s.Repair(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"links"}, repaired)
}

func TestJSONWatch(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := setupJSON(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := s.Watch(ctx)
	require.NoError(t, err)

	mustNote(t, s, "watched")

	select {
	case ev := <-events:
		assert.Equal(t, ChangeEvent{Collection: "notes", Op: ChangeWrite}, ev)
	case <-ctx.Done():
		t.Fatal("timed out waiting for change event")
	}

	cancel()
	for range events {
		// drain until the watcher closes the channel
	}
}
