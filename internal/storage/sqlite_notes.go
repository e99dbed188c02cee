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

const noteColumns = `id, title, content, tags, category_id, created_at, updated_at`

func scanNote(row rowScanner, log *zap.Logger) (models.Note, error) {
	var (
		n                    models.Note
		id                   int64
		content, tags        sql.NullString
		category             sql.NullInt64
		createdAt, updatedAt string
	)
	if err := row.Scan(&id, &n.Title, &content, &tags, &category, &createdAt, &updatedAt); err != nil {
		return n, err
	}
	n.ID = formatID(id)
	n.Content = content.String
	n.Tags = decodeTags(tags, log, models.KindNote, id)
	n.CategoryID = refValue(category)
	n.CreatedAt = decodeTime(createdAt)
	n.UpdatedAt = decodeTime(updatedAt)
	return n, nil
}

func (s *SQLiteStore) collectNotes(rows *sql.Rows) ([]models.Note, error) {
	defer rows.Close()
	notes := []models.Note{}
	for rows.Next() {
		n, err := scanNote(rows, s.log)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func (s *SQLiteStore) getNote(ctx context.Context, q querier, id string) (*models.Note, error) {
	rowID, ok := parseID(id)
	if !ok {
		return nil, notFound("note", id)
	}
	n, err := scanNote(q.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = ?`, rowID), s.log)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("note", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	return &n, nil
}

// CreateNote inserts a note and returns it with its new id.
func (s *SQLiteStore) CreateNote(ctx context.Context, in models.NewNote) (*models.Note, error) {
	now := s.clock.now()
	n, err := buildNote(in, "", now)
	if err != nil {
		return nil, err
	}
	tags, err := encodeTags(n.Tags)
	if err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO notes (title, content, tags, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		n.Title, n.Content, tags, encodeTime(now), encodeTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert note: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("note id: %w", err)
	}
	n.ID = formatID(id)
	s.log.Debug("note created", zap.String("id", n.ID))
	return &n, nil
}

// GetNote looks up a note by id.
func (s *SQLiteStore) GetNote(ctx context.Context, id string) (*models.Note, error) {
	return s.getNote(ctx, s.db, id)
}

// ListNotes returns notes newest first.
func (s *SQLiteStore) ListNotes(ctx context.Context, f models.NoteFilter) ([]models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes`
	var args []any
	if f.CategoryID != "" {
		catID, ok := parseID(f.CategoryID)
		if !ok {
			return []models.Note{}, nil
		}
		query += ` WHERE category_id = ?`
		args = append(args, catID)
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	notes, err := s.collectNotes(rows)
	if err != nil {
		return nil, err
	}
	if f.Tag == "" {
		return notes, nil
	}
	filtered := notes[:0]
	for _, n := range notes {
		if f.Match(n) {
			filtered = append(filtered, n)
		}
	}
	return filtered, nil
}

// UpdateNote applies the non-nil patch fields and refreshes updated_at.
func (s *SQLiteStore) UpdateNote(ctx context.Context, id string, p models.NotePatch) (*models.Note, error) {
	var updated *models.Note
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		n, err := s.getNote(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := applyNotePatch(n, p, s.clock.after(n.UpdatedAt)); err != nil {
			return err
		}
		var set assignments
		set.set("title", n.Title)
		set.set("content", n.Content)
		if p.Tags != nil {
			tags, err := encodeTags(n.Tags)
			if err != nil {
				return err
			}
			set.set("tags", tags)
		}
		set.set("updated_at", encodeTime(n.UpdatedAt))
		if err := set.exec(ctx, tx, "notes", mustRowID(n.ID)); err != nil {
			return fmt.Errorf("update note: %w", err)
		}
		updated = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteNote removes a note together with its links, and unlinks tasks
// that pointed at it.
func (s *SQLiteStore) DeleteNote(ctx context.Context, id string) (bool, error) {
	rowID, ok := parseID(id)
	if !ok {
		return false, nil
	}
	deleted := false
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM note_links WHERE source_note_id = ? OR target_note_id = ?`, rowID, rowID,
		); err != nil {
			return fmt.Errorf("delete note links: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE tasks SET linked_note_id = NULL WHERE linked_note_id = ?`, rowID,
		); err != nil {
			return fmt.Errorf("unlink tasks: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, rowID)
		if err != nil {
			return fmt.Errorf("delete note: %w", err)
		}
		n, _ := res.RowsAffected()
		deleted = n > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	if deleted {
		s.log.Debug("note deleted", zap.String("id", id))
	}
	return deleted, nil
}

// SearchNotes matches the query case-insensitively against title, content and tags.
func (s *SQLiteStore) SearchNotes(ctx context.Context, query string) ([]models.Note, error) {
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

// FindNotesByTitle returns notes whose title equals title exactly, oldest first.
func (s *SQLiteStore) FindNotesByTitle(ctx context.Context, title string) ([]models.Note, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE title = ? ORDER BY id`, title,
	)
	if err != nil {
		return nil, fmt.Errorf("find notes by title: %w", err)
	}
	return s.collectNotes(rows)
}
