package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/wagnerlima/knowledgeflow/internal/models"
)

const taskColumns = `id, title, description, status, priority, due_date, tags, category_id,
	linked_note_id, created_at, updated_at, completed_at`

func scanTask(row rowScanner, log *zap.Logger) (models.Task, error) {
	var (
		t                      models.Task
		id                     int64
		description, status    sql.NullString
		priority, due, tags    sql.NullString
		category, linkedNote   sql.NullInt64
		createdAt              string
		updatedAt, completedAt sql.NullString
	)
	err := row.Scan(&id, &t.Title, &description, &status, &priority, &due, &tags,
		&category, &linkedNote, &createdAt, &updatedAt, &completedAt)
	if err != nil {
		return t, err
	}
	t.ID = formatID(id)
	t.Description = description.String
	// Rows from older releases may carry "done" or "in-progress".
	if st, err := models.ParseStatus(status.String); err == nil {
		t.Status = st
	} else {
		t.Status = models.StatusPending
	}
	if pr, err := models.ParsePriority(priority.String); err == nil {
		t.Priority = pr
	} else {
		t.Priority = models.PriorityMedium
	}
	if due.Valid && due.String != "" {
		d := due.String
		t.DueDate = &d
	}
	t.Tags = decodeTags(tags, log, models.KindTask, id)
	t.CategoryID = refValue(category)
	t.LinkedNoteID = refValue(linkedNote)
	t.CreatedAt = decodeTime(createdAt)
	t.UpdatedAt = t.CreatedAt
	if updatedAt.Valid && updatedAt.String != "" {
		t.UpdatedAt = decodeTime(updatedAt.String)
	}
	t.CompletedAt = decodeNullTime(completedAt)
	return t, nil
}

func (s *SQLiteStore) collectTasks(rows *sql.Rows) ([]models.Task, error) {
	defer rows.Close()
	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows, s.log)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *SQLiteStore) getTask(ctx context.Context, q querier, id string) (*models.Task, error) {
	rowID, ok := parseID(id)
	if !ok {
		return nil, notFound("task", id)
	}
	t, err := scanTask(q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, rowID), s.log)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("task", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &t, nil
}

// linkedNoteArg checks that an optional linked note exists and returns the
// value to bind for linked_note_id.
func linkedNoteArg(ctx context.Context, q querier, id *string) (any, error) {
	if id == nil {
		return nil, nil
	}
	rowID, ok := parseID(*id)
	if ok {
		found, err := exists(ctx, q, "notes", rowID)
		if err != nil {
			return nil, err
		}
		ok = found
	}
	if !ok {
		return nil, invalid("linked_note_id", "note %q does not exist", *id)
	}
	return rowID, nil
}

// CreateTask inserts a task. A linked note, if given, must exist.
func (s *SQLiteStore) CreateTask(ctx context.Context, in models.NewTask) (*models.Task, error) {
	now := s.clock.now()
	t, err := buildTask(in, "", now)
	if err != nil {
		return nil, err
	}
	tags, err := encodeTags(t.Tags)
	if err != nil {
		return nil, err
	}
	linked, err := linkedNoteArg(ctx, s.db, t.LinkedNoteID)
	if err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (title, description, status, priority, due_date, tags, linked_note_id,
			created_at, updated_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Title, t.Description, string(t.Status), string(t.Priority), nullString(t.DueDate), tags, linked,
		encodeTime(now), encodeTime(now), nullTime(t.CompletedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("task id: %w", err)
	}
	t.ID = formatID(id)
	s.log.Debug("task created", zap.String("id", t.ID))
	return &t, nil
}

// GetTask looks up a task by id.
func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	return s.getTask(ctx, s.db, id)
}

// ListTasks returns tasks newest first.
func (s *SQLiteStore) ListTasks(ctx context.Context, f models.TaskFilter) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	var args []any
	if f.CategoryID != "" {
		catID, ok := parseID(f.CategoryID)
		if !ok {
			return []models.Task{}, nil
		}
		query += ` WHERE category_id = ?`
		args = append(args, catID)
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	tasks, err := s.collectTasks(rows)
	if err != nil {
		return nil, err
	}
	// Status is compared after normalization, so it is filtered here rather than in SQL.
	filtered := tasks[:0]
	for _, t := range tasks {
		if f.Match(t) {
			filtered = append(filtered, t)
		}
	}
	return filtered, nil
}

// UpdateTask applies the non-nil patch fields and refreshes updated_at.
func (s *SQLiteStore) UpdateTask(ctx context.Context, id string, p models.TaskPatch) (*models.Task, error) {
	var updated *models.Task
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		t, err := s.getTask(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := applyTaskPatch(t, p, s.clock.after(t.UpdatedAt)); err != nil {
			return err
		}
		var set assignments
		set.set("title", t.Title)
		set.set("description", t.Description)
		set.set("status", string(t.Status))
		set.set("priority", string(t.Priority))
		set.set("due_date", nullString(t.DueDate))
		// Tags and the linked note are written only when patched, so rows
		// from older databases with unreadable tags or a note that is gone
		// stay as they are.
		if p.Tags != nil {
			tags, err := encodeTags(t.Tags)
			if err != nil {
				return err
			}
			set.set("tags", tags)
		}
		if p.LinkedNoteID != nil {
			linked, err := linkedNoteArg(ctx, tx, t.LinkedNoteID)
			if err != nil {
				return err
			}
			set.set("linked_note_id", linked)
		}
		set.set("updated_at", encodeTime(t.UpdatedAt))
		set.set("completed_at", nullTime(t.CompletedAt))
		if err := set.exec(ctx, tx, "tasks", mustRowID(t.ID)); err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// CompleteTask marks a task completed. It reports false if the task does not exist.
func (s *SQLiteStore) CompleteTask(ctx context.Context, id string) (bool, error) {
	status := models.StatusCompleted
	_, err := s.UpdateTask(ctx, id, models.TaskPatch{Status: &status})
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeleteTask removes a task. Task links are not stored in this backend.
func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) (bool, error) {
	rowID, ok := parseID(id)
	if !ok {
		return false, nil
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, rowID)
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.log.Debug("task deleted", zap.String("id", id))
	}
	return n > 0, nil
}

// SearchTasks matches the query case-insensitively against title, description and tags.
func (s *SQLiteStore) SearchTasks(ctx context.Context, query string) ([]models.Task, error) {
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
