package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/wagnerlima/knowledgeflow/internal/models"
)

const categoryColumns = `id, name, parent_id, type, created_at`

func scanCategory(row rowScanner) (models.Category, error) {
	var (
		c         models.Category
		id        int64
		parent    sql.NullInt64
		typ       sql.NullString
		createdAt string
	)
	if err := row.Scan(&id, &c.Name, &parent, &typ, &createdAt); err != nil {
		return c, err
	}
	c.ID = formatID(id)
	c.ParentID = refValue(parent)
	c.Type = models.CategoryNote
	if ct, err := models.ParseCategoryType(typ.String); err == nil {
		c.Type = ct
	}
	c.CreatedAt = decodeTime(createdAt)
	return c, nil
}

// categoryRef validates an optional category reference, reporting unknown
// categories as a validation error on field.
func categoryRef(ctx context.Context, q querier, field string, id *string) (any, error) {
	if id == nil {
		return nil, nil
	}
	rowID, ok := parseID(*id)
	if ok {
		found, err := exists(ctx, q, "categories", rowID)
		if err != nil {
			return nil, err
		}
		ok = found
	}
	if !ok {
		return nil, invalid(field, "category %q does not exist", *id)
	}
	return rowID, nil
}

// CreateCategory inserts a category. A name that is already taken returns
// the existing category with created == false.
func (s *SQLiteStore) CreateCategory(ctx context.Context, in models.NewCategory) (*models.Category, bool, error) {
	in, err := checkNewCategory(in)
	if err != nil {
		return nil, false, err
	}
	var (
		cat     models.Category
		created bool
	)
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		byName := func() error {
			c, err := scanCategory(tx.QueryRowContext(ctx,
				`SELECT `+categoryColumns+` FROM categories WHERE name = ?`, in.Name,
			))
			if err != nil {
				return err
			}
			cat = c
			return nil
		}
		// A taken name returns the existing category even when the parent is unknown.
		err := byName()
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("read category: %w", err)
		}
		parent, err := categoryRef(ctx, tx, "parent_id", in.ParentID)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO categories (name, parent_id, type, created_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(name) DO NOTHING`,
			in.Name, parent, string(in.Type), encodeTime(s.clock.now()),
		)
		if err != nil {
			return fmt.Errorf("insert category: %w", err)
		}
		n, _ := res.RowsAffected()
		created = n > 0
		if err := byName(); err != nil {
			return fmt.Errorf("read category: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		s.log.Debug("category created", zap.String("id", cat.ID), zap.String("name", cat.Name))
	}
	return &cat, created, nil
}

// GetCategory looks up a category by id.
func (s *SQLiteStore) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	rowID, ok := parseID(id)
	if !ok {
		return nil, notFound("category", id)
	}
	c, err := scanCategory(s.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ?`, rowID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("category", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &c, nil
}

// ListCategories returns categories ordered by name. A non-empty type also
// admits categories of type both.
func (s *SQLiteStore) ListCategories(ctx context.Context, typ models.CategoryType) ([]models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories`
	var args []any
	if typ != "" {
		query += ` WHERE type = ? OR type = 'both'`
		args = append(args, string(typ))
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	cats := []models.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// AssignNoteCategory sets or, with a nil categoryID, clears a note's category.
func (s *SQLiteStore) AssignNoteCategory(ctx context.Context, noteID string, categoryID *string) (bool, error) {
	assigned := false
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		cat, err := categoryRef(ctx, tx, "category_id", optionalID(categoryID))
		if err != nil {
			return err
		}
		n, err := s.getNote(ctx, tx, noteID)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE notes SET category_id = ?, updated_at = ? WHERE id = ?`,
			cat, encodeTime(s.clock.after(n.UpdatedAt)), mustRowID(n.ID),
		)
		if err != nil {
			return fmt.Errorf("assign note category: %w", err)
		}
		assigned = true
		return nil
	})
	return assigned, err
}

// AssignTaskCategory sets or, with a nil categoryID, clears a task's category.
func (s *SQLiteStore) AssignTaskCategory(ctx context.Context, taskID string, categoryID *string) (bool, error) {
	assigned := false
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		cat, err := categoryRef(ctx, tx, "category_id", optionalID(categoryID))
		if err != nil {
			return err
		}
		t, err := s.getTask(ctx, tx, taskID)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE tasks SET category_id = ?, updated_at = ? WHERE id = ?`,
			cat, encodeTime(s.clock.after(t.UpdatedAt)), mustRowID(t.ID),
		)
		if err != nil {
			return fmt.Errorf("assign task category: %w", err)
		}
		assigned = true
		return nil
	})
	return assigned, err
}

// DeleteCategory clears the category from notes and tasks and removes it.
// Child categories keep their parent_id, except in databases whose schema
// cascades parent deletes: there the children are detached first so that
// they survive as roots.
func (s *SQLiteStore) DeleteCategory(ctx context.Context, id string) (bool, error) {
	rowID, ok := parseID(id)
	if !ok {
		return false, nil
	}
	deleted := false
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE notes SET category_id = NULL WHERE category_id = ?`, rowID); err != nil {
			return fmt.Errorf("clear note categories: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET category_id = NULL WHERE category_id = ?`, rowID); err != nil {
			return fmt.Errorf("clear task categories: %w", err)
		}
		if s.parentCascade {
			if _, err := tx.ExecContext(ctx, `UPDATE categories SET parent_id = NULL WHERE parent_id = ?`, rowID); err != nil {
				return fmt.Errorf("detach child categories: %w", err)
			}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, rowID)
		if err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		n, _ := res.RowsAffected()
		deleted = n > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	if deleted {
		s.log.Debug("category deleted", zap.String("id", id))
	}
	return deleted, nil
}
