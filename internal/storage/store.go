package storage

import (
	"context"
	"time"

	"github.com/wagnerlima/knowledgeflow/internal/models"
)

// Store is the knowledge store contract shared by the SQLite and JSON backends.
//
// Lookups of absent ids return ErrNotFound; deletes and assignments report
// absence as false. Duplicate links and category names are not errors: the
// existing entity is returned with created == false.
type Store interface {
	CreateNote(ctx context.Context, in models.NewNote) (*models.Note, error)
	GetNote(ctx context.Context, id string) (*models.Note, error)
	ListNotes(ctx context.Context, f models.NoteFilter) ([]models.Note, error)
	UpdateNote(ctx context.Context, id string, p models.NotePatch) (*models.Note, error)
	DeleteNote(ctx context.Context, id string) (bool, error)
	SearchNotes(ctx context.Context, query string) ([]models.Note, error)
	FindNotesByTitle(ctx context.Context, title string) ([]models.Note, error)

	CreateTask(ctx context.Context, in models.NewTask) (*models.Task, error)
	GetTask(ctx context.Context, id string) (*models.Task, error)
	ListTasks(ctx context.Context, f models.TaskFilter) ([]models.Task, error)
	UpdateTask(ctx context.Context, id string, p models.TaskPatch) (*models.Task, error)
	CompleteTask(ctx context.Context, id string) (bool, error)
	DeleteTask(ctx context.Context, id string) (bool, error)
	SearchTasks(ctx context.Context, query string) ([]models.Task, error)

	CreateLink(ctx context.Context, fromID, toID, linkType string) (*models.Link, bool, error)
	DeleteLink(ctx context.Context, fromID, toID string) (bool, error)
	GetLinks(ctx context.Context, id string) ([]models.Link, error)
	ForwardLinks(ctx context.Context, id string) ([]models.LinkRef, error)
	Backlinks(ctx context.Context, id string) ([]models.LinkRef, error)

	CreateCategory(ctx context.Context, in models.NewCategory) (*models.Category, bool, error)
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	ListCategories(ctx context.Context, typ models.CategoryType) ([]models.Category, error)
	AssignNoteCategory(ctx context.Context, noteID string, categoryID *string) (bool, error)
	AssignTaskCategory(ctx context.Context, taskID string, categoryID *string) (bool, error)
	DeleteCategory(ctx context.Context, id string) (bool, error)

	Close() error
}

// SearchAll runs a query against notes and tasks.
func SearchAll(ctx context.Context, s Store, query string) (*models.SearchResults, error) {
	notes, err := s.SearchNotes(ctx, query)
	if err != nil {
		return nil, err
	}
	tasks, err := s.SearchTasks(ctx, query)
	if err != nil {
		return nil, err
	}
	return &models.SearchResults{Notes: notes, Tasks: tasks}, nil
}

// clock hands out timestamps that never repeat or go backwards for one entity.
type clock func() time.Time

func (c clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

// after returns the current time, nudged forward if it is not later than prev.
func (c clock) after(prev time.Time) time.Time {
	t := c.now()
	if !t.After(prev) {
		t = prev.Add(time.Nanosecond)
	}
	return t
}
