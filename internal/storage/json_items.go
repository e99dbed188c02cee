package storage

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wagnerlima/knowledgeflow/internal/models"
)

func (s *JSONStore) notes() ([]noteRecord, error) {
	return readCollection[noteRecord](s, NotesFile)
}

func (s *JSONStore) tasks() ([]taskRecord, error) {
	return readCollection[taskRecord](s, TasksFile)
}

func noteIndex(recs []noteRecord, id string) int {
	return slices.IndexFunc(recs, func(r noteRecord) bool { return r.ID == id })
}

func taskIndex(recs []taskRecord, id string) int {
	return slices.IndexFunc(recs, func(r taskRecord) bool { return r.ID == id })
}

// CreateNote appends a note with a fresh uuid.
func (s *JSONStore) CreateNote(ctx context.Context, in models.NewNote) (*models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := buildNote(in, uuid.NewString(), s.clock.now())
	if err != nil {
		return nil, err
	}
	recs, err := s.notes()
	if err != nil {
		return nil, err
	}
	if err := writeCollection(s, NotesFile, append(recs, newNoteRecord(n))); err != nil {
		return nil, err
	}
	s.log.Debug("note created", zap.String("id", n.ID))
	return &n, nil
}

// GetNote looks up a note by id.
func (s *JSONStore) GetNote(ctx context.Context, id string) (*models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.notes()
	if err != nil {
		return nil, err
	}
	i := noteIndex(recs, id)
	if i < 0 {
		return nil, notFound("note", id)
	}
	n := recs[i].note()
	return &n, nil
}

// ListNotes returns notes in insertion order.
func (s *JSONStore) ListNotes(ctx context.Context, f models.NoteFilter) ([]models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.notes()
	if err != nil {
		return nil, err
	}
	notes := []models.Note{}
	for _, r := range recs {
		if n := r.note(); f.Match(n) {
			notes = append(notes, n)
		}
	}
	return notes, nil
}

// UpdateNote applies the non-nil patch fields and refreshes updated_at.
func (s *JSONStore) UpdateNote(ctx context.Context, id string, p models.NotePatch) (*models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.notes()
	if err != nil {
		return nil, err
	}
	i := noteIndex(recs, id)
	if i < 0 {
		return nil, notFound("note", id)
	}
	n := recs[i].note()
	if err := applyNotePatch(&n, p, s.clock.after(n.UpdatedAt)); err != nil {
		return nil, err
	}
	recs[i] = newNoteRecord(n)
	if err := writeCollection(s, NotesFile, recs); err != nil {
		return nil, err
	}
	return &n, nil
}

// DeleteNote removes a note, then the links touching it, then task references
// to it. Each step is its own atomic write.
func (s *JSONStore) DeleteNote(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.notes()
	if err != nil {
		return false, err
	}
	i := noteIndex(recs, id)
	if i < 0 {
		return false, nil
	}
	if err := writeCollection(s, NotesFile, slices.Delete(recs, i, i+1)); err != nil {
		return false, err
	}
	if err := s.removeLinksFor(id); err != nil {
		return true, err
	}
	if err := s.unlinkTasksFrom(id); err != nil {
		return true, err
	}
	s.log.Debug("note deleted", zap.String("id", id))
	return true, nil
}

func (s *JSONStore) unlinkTasksFrom(noteID string) error {
	recs, err := s.tasks()
	if err != nil {
		return err
	}
	changed := false
	for i := range recs {
		if recs[i].LinkedNoteID != nil && *recs[i].LinkedNoteID == noteID {
			recs[i].LinkedNoteID = nil
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return writeCollection(s, TasksFile, recs)
}

// SearchNotes matches the query case-insensitively against title, content and tags.
func (s *JSONStore) SearchNotes(ctx context.Context, query string) ([]models.Note, error) {
	notes, err := s.ListNotes(ctx, models.NoteFilter{})
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	results := []models.Note{}
	for _, n := range notes {
		if noteMatches(n, q) {
			results = append(results, n)
		}
	}
	return results, nil
}

// FindNotesByTitle returns notes whose title equals title exactly, in insertion order.
func (s *JSONStore) FindNotesByTitle(ctx context.Context, title string) ([]models.Note, error) {
	notes, err := s.ListNotes(ctx, models.NoteFilter{})
	if err != nil {
		return nil, err
	}
	matches := []models.Note{}
	for _, n := range notes {
		if n.Title == title {
			matches = append(matches, n)
		}
	}
	return matches, nil
}

// checkLinkedNote rejects a linked_note_id that names no stored note.
func (s *JSONStore) checkLinkedNote(id *string) error {
	if id == nil {
		return nil
	}
	recs, err := s.notes()
	if err != nil {
		return err
	}
	if noteIndex(recs, *id) < 0 {
		return invalid("linked_note_id", "note %q does not exist", *id)
	}
	return nil
}

// CreateTask appends a task with a fresh uuid. A linked note, if given, must exist.
func (s *JSONStore) CreateTask(ctx context.Context, in models.NewTask) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := buildTask(in, uuid.NewString(), s.clock.now())
	if err != nil {
		return nil, err
	}
	if err := s.checkLinkedNote(t.LinkedNoteID); err != nil {
		return nil, err
	}
	recs, err := s.tasks()
	if err != nil {
		return nil, err
	}
	if err := writeCollection(s, TasksFile, append(recs, newTaskRecord(t))); err != nil {
		return nil, err
	}
	s.log.Debug("task created", zap.String("id", t.ID))
	return &t, nil
}

// GetTask looks up a task by id.
func (s *JSONStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.tasks()
	if err != nil {
		return nil, err
	}
	i := taskIndex(recs, id)
	if i < 0 {
		return nil, notFound("task", id)
	}
	t := recs[i].task()
	return &t, nil
}

// ListTasks returns tasks in insertion order.
func (s *JSONStore) ListTasks(ctx context.Context, f models.TaskFilter) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.tasks()
	if err != nil {
		return nil, err
	}
	tasks := []models.Task{}
	for _, r := range recs {
		if t := r.task(); f.Match(t) {
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

// UpdateTask applies the non-nil patch fields and refreshes updated_at.
func (s *JSONStore) UpdateTask(ctx context.Context, id string, p models.TaskPatch) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateTask(id, p)
}

func (s *JSONStore) updateTask(id string, p models.TaskPatch) (*models.Task, error) {
	recs, err := s.tasks()
	if err != nil {
		return nil, err
	}
	i := taskIndex(recs, id)
	if i < 0 {
		return nil, notFound("task", id)
	}
	t := recs[i].task()
	if err := applyTaskPatch(&t, p, s.clock.after(t.UpdatedAt)); err != nil {
		return nil, err
	}
	if p.LinkedNoteID != nil {
		if err := s.checkLinkedNote(t.LinkedNoteID); err != nil {
			return nil, err
		}
	}
	recs[i] = newTaskRecord(t)
	if err := writeCollection(s, TasksFile, recs); err != nil {
		return nil, err
	}
	return &t, nil
}

// CompleteTask marks a task completed. It reports false if the task does not exist.
func (s *JSONStore) CompleteTask(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := models.StatusCompleted
	_, err := s.updateTask(id, models.TaskPatch{Status: &status})
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeleteTask removes a task and then every link touching it.
func (s *JSONStore) DeleteTask(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.tasks()
	if err != nil {
		return false, err
	}
	i := taskIndex(recs, id)
	if i < 0 {
		return false, nil
	}
	if err := writeCollection(s, TasksFile, slices.Delete(recs, i, i+1)); err != nil {
		return false, err
	}
	if err := s.removeLinksFor(id); err != nil {
		return true, err
	}
	s.log.Debug("task deleted", zap.String("id", id))
	return true, nil
}

// SearchTasks matches the query case-insensitively against title, description and tags.
func (s *JSONStore) SearchTasks(ctx context.Context, query string) ([]models.Task, error) {
	tasks, err := s.ListTasks(ctx, models.TaskFilter{})
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	results := []models.Task{}
	for _, t := range tasks {
		if taskMatches(t, q) {
			results = append(results, t)
		}
	}
	return results, nil
}
