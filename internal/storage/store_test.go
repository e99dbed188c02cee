package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagnerlima/knowledgeflow/internal/models"
)

// fixedClock always returns the same instant, so strictly increasing
// updated_at values must come from clock.after.
func fixedClock() func() time.Time {
	t := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	return func() time.Time { return t }
}

// tickingClock advances one second per call.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func setupSQLite(t *testing.T, now func() time.Time) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), SQLiteConfig{
		Path: filepath.Join(t.TempDir(), "knowledgeflow.db"),
		Now:  now,
	})
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func setupJSON(t *testing.T, now func() time.Time) *JSONStore {
	t.Helper()
	s, err := OpenJSON(JSONConfig{Dir: t.TempDir(), Now: now})
	if err != nil {
		t.Fatalf("OpenJSON: %v", err)
	}
	return s
}

// forEachBackend runs fn against a fresh store of each kind.
func forEachBackend(t *testing.T, now func() time.Time, fn func(t *testing.T, s Store)) {
	t.Helper()
	t.Run("sqlite", func(t *testing.T) { fn(t, setupSQLite(t, now)) })
	t.Run("json", func(t *testing.T) { fn(t, setupJSON(t, now)) })
}

func mustNote(t *testing.T, s Store, title string, tags ...string) *models.Note {
	t.Helper()
	n, err := s.CreateNote(context.Background(), models.NewNote{Title: title, Tags: tags})
	if err != nil {
		t.Fatalf("CreateNote(%q): %v", title, err)
	}
	return n
}

func mustTask(t *testing.T, s Store, in models.NewTask) *models.Task {
	t.Helper()
	task, err := s.CreateTask(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateTask(%q): %v", in.Title, err)
	}
	return task
}

func ptr[T any](v T) *T { return &v }

func TestNoteRoundTrip(t *testing.T) {
	forEachBackend(t, tickingClock(), func(t *testing.T, s Store) {
		ctx := context.Background()
		created, err := s.CreateNote(ctx, models.NewNote{
			Title:   "Go concurrency",
			Content: "channels and goroutines",
			Tags:    []string{"go", "concurrency"},
		})
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)
		assert.Equal(t, created.CreatedAt, created.UpdatedAt)

		got, err := s.GetNote(ctx, created.ID)
		require.NoError(t, err)
		if diff := cmp.Diff(created, got); diff != "" {
			t.Errorf("GetNote mismatch (-created +got):\n%s", diff)
		}
	})
}

func TestCreateNoteRequiresTitle(t *testing.T) {
	forEachBackend(t, nil, func(t *testing.T, s Store) {
		_, err := s.CreateNote(context.Background(), models.NewNote{Title: "   "})
		require.ErrorIs(t, err, ErrValidation)

		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "title", verr.Field)

		notes, err := s.ListNotes(context.Background(), models.NoteFilter{})
		require.NoError(t, err)
		assert.Empty(t, notes)
	})
}

func TestUpdateNoteChangesOnlyPatchedFields(t *testing.T) {
	forEachBackend(t, fixedClock(), func(t *testing.T, s Store) {
		ctx := context.Background()
		n, err := s.CreateNote(ctx, models.NewNote{Title: "Draft", Content: "body", Tags: []string{"a"}})
		require.NoError(t, err)

		updated, err := s.UpdateNote(ctx, n.ID, models.NotePatch{Title: ptr("Final")})
		require.NoError(t, err)
		assert.Equal(t, "Final", updated.Title)
		assert.Equal(t, "body", updated.Content)
		assert.Equal(t, []string{"a"}, updated.Tags)
		assert.Equal(t, n.CreatedAt, updated.CreatedAt)
		assert.True(t, updated.UpdatedAt.After(n.UpdatedAt), "updated_at must strictly increase")

		again, err := s.UpdateNote(ctx, n.ID, models.NotePatch{Content: ptr("new body")})
		require.NoError(t, err)
		assert.True(t, again.UpdatedAt.After(updated.UpdatedAt))

		stored, err := s.GetNote(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, "Final", stored.Title)
		assert.Equal(t, "new body", stored.Content)
		assert.Equal(t, again.UpdatedAt, stored.UpdatedAt)
	})
}

func TestUpdateNoteErrors(t *testing.T) {
	forEachBackend(t, nil, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, err := s.UpdateNote(ctx, "999", models.NotePatch{Title: ptr("x")})
		assert.ErrorIs(t, err, ErrNotFound)

		n := mustNote(t, s, "Keep")
		_, err = s.UpdateNote(ctx, n.ID, models.NotePatch{Title: ptr("")})
		assert.ErrorIs(t, err, ErrValidation)

		stored, err := s.GetNote(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, "Keep", stored.Title)
	})
}

func TestDeleteNote(t *testing.T) {
	forEachBackend(t, nil, func(t *testing.T, s Store) {
		ctx := context.Background()
		n := mustNote(t, s, "Temporary")
		other := mustNote(t, s, "Other")

		ok, err := s.DeleteNote(ctx, n.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		_, err = s.GetNote(ctx, n.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		ok, err = s.DeleteNote(ctx, n.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		notes, err := s.ListNotes(ctx, models.NoteFilter{})
		require.NoError(t, err)
		require.Len(t, notes, 1)
		assert.Equal(t, other.ID, notes[0].ID)
	})
}

func TestListNotesByTag(t *testing.T) {
	forEachBackend(t, tickingClock(), func(t *testing.T, s Store) {
		ctx := context.Background()
		mustNote(t, s, "One", "work")
		mustNote(t, s, "Two", "Work")
		mustNote(t, s, "Three", "work", "home")

		notes, err := s.ListNotes(ctx, models.NoteFilter{Tag: "work"})
		require.NoError(t, err)
		var titles []string
		for _, n := range notes {
			titles = append(titles, n.Title)
		}
		assert.ElementsMatch(t, []string{"One", "Three"}, titles)
	})
}

func TestTagsAreNormalized(t *testing.T) {
	forEachBackend(t, nil, func(t *testing.T, s Store) {
		n, err := s.CreateNote(context.Background(), models.NewNote{
			Title: "Tags",
			Tags:  []string{" go ", "go", "", "db"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"go", "db"}, n.Tags)
	})
}

func TestSearchNotesIsCaseInsensitive(t *testing.T) {
	forEachBackend(t, tickingClock(), func(t *testing.T, s Store) {
		ctx := context.Background()
		py := mustNote(t, s, "Python Tutorial")
		mustNote(t, s, "JavaScript Guide")

		results, err := s.SearchNotes(ctx, "python")
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, py.ID, results[0].ID)

		tagged := mustNote(t, s, "Untitled", "Databases")
		results, err = s.SearchNotes(ctx, "DATABASE")
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, tagged.ID, results[0].ID)
	})
}

func TestTaskDefaultsAndCompletion(t *testing.T) {
	forEachBackend(t, tickingClock(), func(t *testing.T, s Store) {
		ctx := context.Background()
		task := mustTask(t, s, models.NewTask{Title: "Write report"})
		assert.Equal(t, models.StatusPending, task.Status)
		assert.Equal(t, models.PriorityMedium, task.Priority)
		assert.Nil(t, task.CompletedAt)
		assert.Equal(t, []string{}, task.Tags)

		ok, err := s.CompleteTask(ctx, task.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		done, err := s.GetTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, done.Status)
		require.NotNil(t, done.CompletedAt)

		reopened, err := s.UpdateTask(ctx, task.ID, models.TaskPatch{Status: ptr(models.StatusInProgress)})
		require.NoError(t, err)
		assert.Nil(t, reopened.CompletedAt)

		ok, err = s.CompleteTask(ctx, "12345")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestTaskStatusSpellings(t *testing.T) {
	forEachBackend(t, nil, func(t *testing.T, s Store) {
		task := mustTask(t, s, models.NewTask{Title: "Legacy", Status: "done"})
		assert.Equal(t, models.StatusCompleted, task.Status)
		assert.NotNil(t, task.CompletedAt)

		_, err := s.CreateTask(context.Background(), models.NewTask{Title: "Bad", Priority: "urgent"})
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestTaskDueDateValidation(t *testing.T) {
	forEachBackend(t, nil, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, err := s.CreateTask(ctx, models.NewTask{Title: "Bad date", DueDate: ptr("next friday")})
		require.ErrorIs(t, err, ErrValidation)

		task := mustTask(t, s, models.NewTask{Title: "Dated", DueDate: ptr("2024-12-31")})
		require.NotNil(t, task.DueDate)
		assert.Equal(t, "2024-12-31", *task.DueDate)

		cleared, err := s.UpdateTask(ctx, task.ID, models.TaskPatch{DueDate: ptr("")})
		require.NoError(t, err)
		assert.Nil(t, cleared.DueDate)
	})
}

func TestListTasksFilters(t *testing.T) {
	forEachBackend(t, tickingClock(), func(t *testing.T, s Store) {
		ctx := context.Background()
		mustTask(t, s, models.NewTask{Title: "A", Priority: models.PriorityHigh})
		mustTask(t, s, models.NewTask{Title: "B", Priority: models.PriorityLow, Tags: []string{"home"}})
		c := mustTask(t, s, models.NewTask{Title: "C", Priority: models.PriorityHigh})
		_, err := s.CompleteTask(ctx, c.ID)
		require.NoError(t, err)

		high, err := s.ListTasks(ctx, models.TaskFilter{Priority: models.PriorityHigh})
		require.NoError(t, err)
		assert.Len(t, high, 2)

		pendingHigh, err := s.ListTasks(ctx, models.TaskFilter{Status: models.StatusPending, Priority: models.PriorityHigh})
		require.NoError(t, err)
		require.Len(t, pendingHigh, 1)
		assert.Equal(t, "A", pendingHigh[0].Title)

		home, err := s.ListTasks(ctx, models.TaskFilter{Tag: "home"})
		require.NoError(t, err)
		require.Len(t, home, 1)
		assert.Equal(t, "B", home[0].Title)
	})
}

func TestSearchTasks(t *testing.T) {
	forEachBackend(t, nil, func(t *testing.T, s Store) {
		mustTask(t, s, models.NewTask{Title: "Refactor", Description: "Split the Parser"})
		mustTask(t, s, models.NewTask{Title: "Lunch"})

		results, err := s.SearchTasks(context.Background(), "parser")
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "Refactor", results[0].Title)
	})
}

func TestLinkedNote(t *testing.T) {
	forEachBackend(t, nil, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, err := s.CreateTask(ctx, models.NewTask{Title: "Orphan", LinkedNoteID: ptr("424242")})
		require.ErrorIs(t, err, ErrValidation)

		n := mustNote(t, s, "Design notes")
		task := mustTask(t, s, models.NewTask{Title: "Implement", LinkedNoteID: &n.ID})
		require.NotNil(t, task.LinkedNoteID)
		assert.Equal(t, n.ID, *task.LinkedNoteID)

		_, err = s.DeleteNote(ctx, n.ID)
		require.NoError(t, err)

		got, err := s.GetTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Nil(t, got.LinkedNoteID)
	})
}

func TestCreateLinkIsIdempotent(t *testing.T) {
	forEachBackend(t, tickingClock(), func(t *testing.T, s Store) {
		ctx := context.Background()
		a := mustNote(t, s, "A")
		b := mustNote(t, s, "B")

		first, created, err := s.CreateLink(ctx, a.ID, b.ID, "")
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, models.DefaultLinkType, first.LinkType)

		second, created, err := s.CreateLink(ctx, a.ID, b.ID, "supports")
		require.NoError(t, err)
		assert.False(t, created)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("duplicate link changed (-first +second):\n%s", diff)
		}

		links, err := s.GetLinks(ctx, a.ID)
		require.NoError(t, err)
		assert.Len(t, links, 1)
	})
}

func TestCreateLinkRejectsBadEndpoints(t *testing.T) {
	forEachBackend(t, nil, func(t *testing.T, s Store) {
		ctx := context.Background()
		a := mustNote(t, s, "A")

		_, _, err := s.CreateLink(ctx, a.ID, a.ID, "")
		assert.ErrorIs(t, err, ErrValidation)

		_, _, err = s.CreateLink(ctx, a.ID, "", "")
		assert.ErrorIs(t, err, ErrValidation)

		_, _, err = s.CreateLink(ctx, a.ID, "987654", "")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestDeleteNoteRemovesItsLinks(t *testing.T) {
	forEachBackend(t, tickingClock(), func(t *testing.T, s Store) {
		ctx := context.Background()
		a := mustNote(t, s, "A")
		b := mustNote(t, s, "B")
		c := mustNote(t, s, "C")
		for _, to := range []string{b.ID, c.ID} {
			_, _, err := s.CreateLink(ctx, a.ID, to, "")
			require.NoError(t, err)
		}
		_, _, err := s.CreateLink(ctx, b.ID, c.ID, "")
		require.NoError(t, err)

		ok, err := s.DeleteNote(ctx, a.ID)
		require.NoError(t, err)
		require.True(t, ok)

		for _, id := range []string{b.ID, c.ID} {
			links, err := s.GetLinks(ctx, id)
			require.NoError(t, err)
			for _, l := range links {
				assert.NotEqual(t, a.ID, l.FromID)
				assert.NotEqual(t, a.ID, l.ToID)
			}
			_, err = s.GetNote(ctx, id)
			assert.NoError(t, err)
		}

		links, err := s.GetLinks(ctx, b.ID)
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, c.ID, links[0].ToID)
	})
}

func TestForwardAndBacklinks(t *testing.T) {
	forEachBackend(t, tickingClock(), func(t *testing.T, s Store) {
		ctx := context.Background()
		hub := mustNote(t, s, "Hub")
		first := mustNote(t, s, "First")
		second := mustNote(t, s, "Second")

		_, _, err := s.CreateLink(ctx, hub.ID, first.ID, "reference")
		require.NoError(t, err)
		_, _, err = s.CreateLink(ctx, hub.ID, second.ID, "supports")
		require.NoError(t, err)
		_, _, err = s.CreateLink(ctx, second.ID, hub.ID, "")
		require.NoError(t, err)

		forward, err := s.ForwardLinks(ctx, hub.ID)
		require.NoError(t, err)
		want := []models.LinkRef{
			{ID: second.ID, Title: "Second", LinkType: "supports", Kind: models.KindNote},
			{ID: first.ID, Title: "First", LinkType: "reference", Kind: models.KindNote},
		}
		if diff := cmp.Diff(want, forward); diff != "" {
			t.Errorf("ForwardLinks mismatch (-want +got):\n%s", diff)
		}

		back, err := s.Backlinks(ctx, hub.ID)
		require.NoError(t, err)
		want = []models.LinkRef{{ID: second.ID, Title: "Second", LinkType: "reference", Kind: models.KindNote}}
		if diff := cmp.Diff(want, back); diff != "" {
			t.Errorf("Backlinks mismatch (-want +got):\n%s", diff)
		}

		ok, err := s.DeleteLink(ctx, hub.ID, first.ID)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = s.DeleteLink(ctx, hub.ID, first.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestAutoCreateLinks(t *testing.T) {
	forEachBackend(t, tickingClock(), func(t *testing.T, s Store) {
		ctx := context.Background()
		alpha := mustNote(t, s, "Alpha")
		self := mustNote(t, s, "Journal")

		content := "See [[Alpha]], [[Beta]] and [[Alpha]] again, plus [[Journal]]."
		n, err := AutoCreateLinks(ctx, s, self.ID, content)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "only the first Alpha marker creates a link")

		forward, err := s.ForwardLinks(ctx, self.ID)
		require.NoError(t, err)
		require.Len(t, forward, 1)
		assert.Equal(t, alpha.ID, forward[0].ID)

		n, err = AutoCreateLinks(ctx, s, self.ID, content)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestCategories(t *testing.T) {
	forEachBackend(t, tickingClock(), func(t *testing.T, s Store) {
		ctx := context.Background()
		work, created, err := s.CreateCategory(ctx, models.NewCategory{Name: "Work", Type: models.CategoryBoth})
		require.NoError(t, err)
		require.True(t, created)

		dup, created, err := s.CreateCategory(ctx, models.NewCategory{Name: "Work", Type: models.CategoryTask})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, work.ID, dup.ID)
		assert.Equal(t, models.CategoryBoth, dup.Type)

		_, _, err = s.CreateCategory(ctx, models.NewCategory{Name: "Lost", ParentID: ptr("31337")})
		assert.ErrorIs(t, err, ErrValidation)

		dup, created, err = s.CreateCategory(ctx, models.NewCategory{Name: "Work", ParentID: ptr("31337")})
		require.NoError(t, err, "a taken name is returned before the parent is checked")
		assert.False(t, created)
		assert.Equal(t, work.ID, dup.ID)

		meetings, _, err := s.CreateCategory(ctx, models.NewCategory{Name: "Meetings", ParentID: &work.ID, Type: models.CategoryNote})
		require.NoError(t, err)
		require.NotNil(t, meetings.ParentID)
		assert.Equal(t, work.ID, *meetings.ParentID)

		_, _, err = s.CreateCategory(ctx, models.NewCategory{Name: "Chores", Type: models.CategoryTask})
		require.NoError(t, err)

		noteCats, err := s.ListCategories(ctx, models.CategoryNote)
		require.NoError(t, err)
		var names []string
		for _, c := range noteCats {
			names = append(names, c.Name)
		}
		assert.Equal(t, []string{"Meetings", "Work"}, names)

		all, err := s.ListCategories(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 3)

		got, err := s.GetCategory(ctx, meetings.ID)
		require.NoError(t, err)
		assert.Equal(t, "Meetings", got.Name)
	})
}

func TestAssignAndDeleteCategory(t *testing.T) {
	forEachBackend(t, tickingClock(), func(t *testing.T, s Store) {
		ctx := context.Background()
		cat, _, err := s.CreateCategory(ctx, models.NewCategory{Name: "Research", Type: models.CategoryBoth})
		require.NoError(t, err)
		child, _, err := s.CreateCategory(ctx, models.NewCategory{Name: "Papers", ParentID: &cat.ID})
		require.NoError(t, err)
		n := mustNote(t, s, "Paper notes")
		task := mustTask(t, s, models.NewTask{Title: "Read paper"})

		ok, err := s.AssignNoteCategory(ctx, n.ID, &cat.ID)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = s.AssignTaskCategory(ctx, task.ID, &cat.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		_, err = s.AssignNoteCategory(ctx, n.ID, ptr("55555"))
		assert.ErrorIs(t, err, ErrValidation)
		ok, err = s.AssignNoteCategory(ctx, "55555", &cat.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		inCat, err := s.ListNotes(ctx, models.NoteFilter{CategoryID: cat.ID})
		require.NoError(t, err)
		require.Len(t, inCat, 1)
		assert.Equal(t, n.ID, inCat[0].ID)

		ok, err = s.DeleteCategory(ctx, cat.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		gotNote, err := s.GetNote(ctx, n.ID)
		require.NoError(t, err)
		assert.Nil(t, gotNote.CategoryID)
		gotTask, err := s.GetTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Nil(t, gotTask.CategoryID)

		orphan, err := s.GetCategory(ctx, child.ID)
		require.NoError(t, err)
		require.NotNil(t, orphan.ParentID, "children keep their dangling parent")
		assert.Equal(t, cat.ID, *orphan.ParentID)

		ok, err = s.DeleteCategory(ctx, cat.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestClearCategoryAssignment(t *testing.T) {
	forEachBackend(t, nil, func(t *testing.T, s Store) {
		ctx := context.Background()
		cat, _, err := s.CreateCategory(ctx, models.NewCategory{Name: "Inbox", Type: models.CategoryTask})
		require.NoError(t, err)
		task := mustTask(t, s, models.NewTask{Title: "Triage"})

		_, err = s.AssignTaskCategory(ctx, task.ID, &cat.ID)
		require.NoError(t, err)
		ok, err := s.AssignTaskCategory(ctx, task.ID, nil)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := s.GetTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Nil(t, got.CategoryID)
	})
}

func TestSearchAll(t *testing.T) {
	forEachBackend(t, nil, func(t *testing.T, s Store) {
		mustNote(t, s, "Kubernetes notes")
		mustTask(t, s, models.NewTask{Title: "Upgrade kubernetes"})
		mustTask(t, s, models.NewTask{Title: "Unrelated"})

		res, err := SearchAll(context.Background(), s, "KUBERNETES")
		require.NoError(t, err)
		assert.Len(t, res.Notes, 1)
		assert.Len(t, res.Tasks, 1)
	})
}

func TestCategoryTreeFromStore(t *testing.T) {
	forEachBackend(t, tickingClock(), func(t *testing.T, s Store) {
		ctx := context.Background()
		root, _, err := s.CreateCategory(ctx, models.NewCategory{Name: "Projects"})
		require.NoError(t, err)
		mid, _, err := s.CreateCategory(ctx, models.NewCategory{Name: "Backend", ParentID: &root.ID})
		require.NoError(t, err)
		_, _, err = s.CreateCategory(ctx, models.NewCategory{Name: "Database", ParentID: &mid.ID})
		require.NoError(t, err)

		forest, err := CategoryTree(ctx, s, models.CategoryNote, TreeRecursive)
		require.NoError(t, err)
		require.Len(t, forest, 1)
		require.Len(t, forest[0].Children, 1)
		require.Len(t, forest[0].Children[0].Children, 1)
		assert.Equal(t, "Database", forest[0].Children[0].Children[0].Category.Name)

		flat, err := CategoryTree(ctx, s, models.CategoryNote, TreeFlat)
		require.NoError(t, err)
		require.Len(t, flat, 1)
		require.Len(t, flat[0].Children, 1)
		assert.Empty(t, flat[0].Children[0].Children)
	})
}
