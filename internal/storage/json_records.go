package storage

import "github.com/wagnerlima/knowledgeflow/internal/models"

// Records mirror the on-disk layout. Timestamps stay strings so files written
// by older versions, with zone-less ISO times, still load.

type noteRecord struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Tags       []string `json:"tags"`
	CategoryID *string  `json:"category_id,omitempty"`
	CreatedAt  string   `json:"created_at"`
	UpdatedAt  string   `json:"updated_at"`
}

func (r noteRecord) note() models.Note {
	n := models.Note{
		ID:         r.ID,
		Title:      r.Title,
		Content:    r.Content,
		Tags:       models.NormalizeTags(r.Tags),
		CategoryID: r.CategoryID,
		CreatedAt:  decodeTime(r.CreatedAt),
		UpdatedAt:  decodeTime(r.UpdatedAt),
	}
	if r.UpdatedAt == "" {
		n.UpdatedAt = n.CreatedAt
	}
	return n
}

func newNoteRecord(n models.Note) noteRecord {
	return noteRecord{
		ID:         n.ID,
		Title:      n.Title,
		Content:    n.Content,
		Tags:       models.NormalizeTags(n.Tags),
		CategoryID: n.CategoryID,
		CreatedAt:  encodeTime(n.CreatedAt),
		UpdatedAt:  encodeTime(n.UpdatedAt),
	}
}

type taskRecord struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Status       string   `json:"status"`
	Priority     string   `json:"priority"`
	DueDate      *string  `json:"due_date"`
	Tags         []string `json:"tags"`
	CategoryID   *string  `json:"category_id,omitempty"`
	LinkedNoteID *string  `json:"linked_note_id"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
	CompletedAt  *string  `json:"completed_at,omitempty"`
}

func (r taskRecord) task() models.Task {
	t := models.Task{
		ID:           r.ID,
		Title:        r.Title,
		Description:  r.Description,
		Status:       models.StatusPending,
		Priority:     models.PriorityMedium,
		DueDate:      optionalID(r.DueDate),
		Tags:         models.NormalizeTags(r.Tags),
		CategoryID:   r.CategoryID,
		LinkedNoteID: optionalID(r.LinkedNoteID),
		CreatedAt:    decodeTime(r.CreatedAt),
		UpdatedAt:    decodeTime(r.UpdatedAt),
	}
	if st, err := models.ParseStatus(r.Status); err == nil {
		t.Status = st
	}
	if pr, err := models.ParsePriority(r.Priority); err == nil {
		t.Priority = pr
	}
	if r.UpdatedAt == "" {
		t.UpdatedAt = t.CreatedAt
	}
	if r.CompletedAt != nil && *r.CompletedAt != "" {
		c := decodeTime(*r.CompletedAt)
		t.CompletedAt = &c
	}
	return t
}

func newTaskRecord(t models.Task) taskRecord {
	r := taskRecord{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		Status:       string(t.Status),
		Priority:     string(t.Priority),
		DueDate:      t.DueDate,
		Tags:         models.NormalizeTags(t.Tags),
		CategoryID:   t.CategoryID,
		LinkedNoteID: t.LinkedNoteID,
		CreatedAt:    encodeTime(t.CreatedAt),
		UpdatedAt:    encodeTime(t.UpdatedAt),
	}
	if t.CompletedAt != nil {
		c := encodeTime(*t.CompletedAt)
		r.CompletedAt = &c
	}
	return r
}

type linkRecord struct {
	ID        string `json:"id"`
	FromID    string `json:"from_id"`
	ToID      string `json:"to_id"`
	LinkType  string `json:"link_type"`
	CreatedAt string `json:"created_at"`
}

func (r linkRecord) link() models.Link {
	return models.Link{
		ID:        r.ID,
		FromID:    r.FromID,
		ToID:      r.ToID,
		LinkType:  linkTypeOrDefault(r.LinkType),
		CreatedAt: decodeTime(r.CreatedAt),
	}
}

type categoryRecord struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	ParentID  *string `json:"parent_id"`
	Type      string  `json:"type"`
	CreatedAt string  `json:"created_at"`
}

func (r categoryRecord) category() models.Category {
	typ, err := models.ParseCategoryType(r.Type)
	if err != nil {
		typ = models.CategoryNote
	}
	return models.Category{
		ID:        r.ID,
		Name:      r.Name,
		ParentID:  optionalID(r.ParentID),
		Type:      typ,
		CreatedAt: decodeTime(r.CreatedAt),
	}
}
