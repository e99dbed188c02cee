package storage

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/wagnerlima/knowledgeflow/internal/models"
)

const linkColumns = `id, source_note_id, target_note_id, link_type, created_at`

func scanLink(row rowScanner) (models.Link, error) {
	var (
		l            models.Link
		id, from, to int64
		linkType     sql.NullString
		createdAt    string
	)
	if err := row.Scan(&id, &from, &to, &linkType, &createdAt); err != nil {
		return l, err
	}
	l.ID = formatID(id)
	l.FromID = formatID(from)
	l.ToID = formatID(to)
	l.LinkType = linkTypeOrDefault(linkType.String)
	l.CreatedAt = decodeTime(createdAt)
	return l, nil
}

// noteEnd resolves a link endpoint to a row id, reporting ErrNotFound for
// ids that are not stored notes.
func noteEnd(ctx context.Context, q querier, id string) (int64, error) {
	rowID, ok := parseID(id)
	if ok {
		found, err := exists(ctx, q, "notes", rowID)
		if err != nil {
			return 0, err
		}
		ok = found
	}
	if !ok {
		return 0, notFound("note", id)
	}
	return rowID, nil
}

// CreateLink links two notes. If the pair is already linked the stored link
// is returned unchanged with created == false.
func (s *SQLiteStore) CreateLink(ctx context.Context, fromID, toID, linkType string) (*models.Link, bool, error) {
	if err := checkLinkEnds(fromID, toID); err != nil {
		return nil, false, err
	}
	var (
		link    models.Link
		created bool
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		from, err := noteEnd(ctx, tx, fromID)
		if err != nil {
			return err
		}
		to, err := noteEnd(ctx, tx, toID)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO note_links (source_note_id, target_note_id, link_type, created_at)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT(source_note_id, target_note_id) DO NOTHING`,
			from, to, linkTypeOrDefault(linkType), encodeTime(s.clock.now()),
		)
		if err != nil {
			return fmt.Errorf("insert link: %w", err)
		}
		n, _ := res.RowsAffected()
		created = n > 0
		link, err = scanLink(tx.QueryRowContext(ctx,
			`SELECT `+linkColumns+` FROM note_links WHERE source_note_id = ? AND target_note_id = ?`,
			from, to,
		))
		if err != nil {
			return fmt.Errorf("read link: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		s.log.Debug("link created", zap.String("from", fromID), zap.String("to", toID))
	}
	return &link, created, nil
}

// DeleteLink removes the link from fromID to toID.
func (s *SQLiteStore) DeleteLink(ctx context.Context, fromID, toID string) (bool, error) {
	from, ok := parseID(fromID)
	if !ok {
		return false, nil
	}
	to, ok := parseID(toID)
	if !ok {
		return false, nil
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM note_links WHERE source_note_id = ? AND target_note_id = ?`, from, to,
	)
	if err != nil {
		return false, fmt.Errorf("delete link: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// GetLinks returns every link that starts or ends at id, newest first.
func (s *SQLiteStore) GetLinks(ctx context.Context, id string) ([]models.Link, error) {
	rowID, ok := parseID(id)
	if !ok {
		return []models.Link{}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+linkColumns+` FROM note_links
		 WHERE source_note_id = ? OR target_note_id = ?
		 ORDER BY created_at DESC, id DESC`,
		rowID, rowID,
	)
	if err != nil {
		return nil, fmt.Errorf("get links: %w", err)
	}
	defer rows.Close()

	links := []models.Link{}
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// ForwardLinks lists the notes id links to.
func (s *SQLiteStore) ForwardLinks(ctx context.Context, id string) ([]models.LinkRef, error) {
	return s.linkRefs(ctx, id, "source_note_id", "target_note_id")
}

// Backlinks lists the notes that link to id.
func (s *SQLiteStore) Backlinks(ctx context.Context, id string) ([]models.LinkRef, error) {
	return s.linkRefs(ctx, id, "target_note_id", "source_note_id")
}

// linkRefs follows links one hop from the column self to the column other.
func (s *SQLiteStore) linkRefs(ctx context.Context, id, self, other string) ([]models.LinkRef, error) {
	rowID, ok := parseID(id)
	if !ok {
		return []models.LinkRef{}, nil
	}
	query := fmt.Sprintf(
		`SELECT n.id, n.title, nl.link_type
		 FROM note_links nl
		 JOIN notes n ON n.id = nl.%s
		 WHERE nl.%s = ?
		 ORDER BY nl.created_at DESC, nl.id DESC`, other, self)
	rows, err := s.db.QueryContext(ctx, query, rowID)
	if err != nil {
		return nil, fmt.Errorf("query links: %w", err)
	}
	defer rows.Close()

	refs := []models.LinkRef{}
	for rows.Next() {
		var (
			noteID   int64
			title    string
			linkType sql.NullString
		)
		if err := rows.Scan(&noteID, &title, &linkType); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		refs = append(refs, models.LinkRef{
			ID:       formatID(noteID),
			Title:    title,
			LinkType: linkTypeOrDefault(linkType.String),
			Kind:     models.KindNote,
		})
	}
	return refs, rows.Err()
}
