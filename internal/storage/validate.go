package storage

import (
	"strings"
	"time"

	"github.com/wagnerlima/knowledgeflow/internal/models"
)

// DueDateLayout is the accepted due date format.
const DueDateLayout = "2006-01-02"

func checkTitle(title string) (string, error) {
	t := strings.TrimSpace(title)
	if t == "" {
		return "", invalid("title", "must not be empty")
	}
	return t, nil
}

func checkDueDate(d *string) (*string, error) {
	if d == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*d)
	if v == "" {
		return nil, nil
	}
	if _, err := time.Parse(DueDateLayout, v); err != nil {
		return nil, invalid("due_date", "%q is not a YYYY-MM-DD date", v)
	}
	return &v, nil
}

func checkStatus(s models.Status) (models.Status, error) {
	if s == "" {
		return models.StatusPending, nil
	}
	st, err := models.ParseStatus(string(s))
	if err != nil {
		return "", invalid("status", "%v", err)
	}
	return st, nil
}

func checkPriority(p models.Priority) (models.Priority, error) {
	if p == "" {
		return models.PriorityMedium, nil
	}
	pr, err := models.ParsePriority(string(p))
	if err != nil {
		return "", invalid("priority", "%v", err)
	}
	return pr, nil
}

// optionalID turns a pointer to a blank id into nil.
func optionalID(id *string) *string {
	if id == nil || strings.TrimSpace(*id) == "" {
		return nil
	}
	v := strings.TrimSpace(*id)
	return &v
}

func buildNote(in models.NewNote, id string, now time.Time) (models.Note, error) {
	title, err := checkTitle(in.Title)
	if err != nil {
		return models.Note{}, err
	}
	return models.Note{
		ID:        id,
		Title:     title,
		Content:   in.Content,
		Tags:      models.NormalizeTags(in.Tags),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// applyNotePatch validates p and then applies it to n; n is untouched on error.
func applyNotePatch(n *models.Note, p models.NotePatch, now time.Time) error {
	if p.Title != nil {
		title, err := checkTitle(*p.Title)
		if err != nil {
			return err
		}
		n.Title = title
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	if p.Tags != nil {
		n.Tags = models.NormalizeTags(*p.Tags)
	}
	n.UpdatedAt = now
	return nil
}

func buildTask(in models.NewTask, id string, now time.Time) (models.Task, error) {
	title, err := checkTitle(in.Title)
	if err != nil {
		return models.Task{}, err
	}
	status, err := checkStatus(in.Status)
	if err != nil {
		return models.Task{}, err
	}
	priority, err := checkPriority(in.Priority)
	if err != nil {
		return models.Task{}, err
	}
	due, err := checkDueDate(in.DueDate)
	if err != nil {
		return models.Task{}, err
	}
	t := models.Task{
		ID:           id,
		Title:        title,
		Description:  in.Description,
		Status:       status,
		Priority:     priority,
		DueDate:      due,
		Tags:         models.NormalizeTags(in.Tags),
		LinkedNoteID: optionalID(in.LinkedNoteID),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if status == models.StatusCompleted {
		t.CompletedAt = &now
	}
	return t, nil
}

// applyTaskPatch validates p and then applies it to t; t is untouched on error.
// A DueDate or LinkedNoteID pointing at an empty string clears the field.
func applyTaskPatch(t *models.Task, p models.TaskPatch, now time.Time) error {
	next := *t
	if p.Title != nil {
		title, err := checkTitle(*p.Title)
		if err != nil {
			return err
		}
		next.Title = title
	}
	if p.Description != nil {
		next.Description = *p.Description
	}
	if p.Status != nil {
		st, err := checkStatus(*p.Status)
		if err != nil {
			return err
		}
		next.Status = st
	}
	if p.Priority != nil {
		pr, err := checkPriority(*p.Priority)
		if err != nil {
			return err
		}
		next.Priority = pr
	}
	if p.DueDate != nil {
		due, err := checkDueDate(p.DueDate)
		if err != nil {
			return err
		}
		next.DueDate = due
	}
	if p.Tags != nil {
		next.Tags = models.NormalizeTags(*p.Tags)
	}
	if p.LinkedNoteID != nil {
		next.LinkedNoteID = optionalID(p.LinkedNoteID)
	}
	markCompletion(&next, t.Status, now)
	next.UpdatedAt = now
	*t = next
	return nil
}

// markCompletion keeps CompletedAt in step with a status transition.
func markCompletion(t *models.Task, prev models.Status, now time.Time) {
	switch {
	case t.Status == models.StatusCompleted && prev != models.StatusCompleted:
		t.CompletedAt = &now
	case t.Status != models.StatusCompleted:
		t.CompletedAt = nil
	}
}

func checkLinkEnds(fromID, toID string) error {
	if strings.TrimSpace(fromID) == "" || strings.TrimSpace(toID) == "" {
		return invalid("link", "both endpoints are required")
	}
	if fromID == toID {
		return invalid("link", "an item cannot link to itself")
	}
	return nil
}

func linkTypeOrDefault(t string) string {
	if t = strings.TrimSpace(t); t == "" {
		return models.DefaultLinkType
	}
	return t
}

func checkNewCategory(in models.NewCategory) (models.NewCategory, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return in, invalid("name", "must not be empty")
	}
	typ := in.Type
	if typ == "" {
		typ = models.CategoryNote
	} else {
		t, err := models.ParseCategoryType(string(typ))
		if err != nil {
			return in, invalid("type", "%v", err)
		}
		typ = t
	}
	return models.NewCategory{Name: name, ParentID: optionalID(in.ParentID), Type: typ}, nil
}

// matchesQuery is the case-insensitive substring test used by search.
func matchesQuery(q string, fields []string, tags []string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	for _, t := range tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

func noteMatches(n models.Note, q string) bool {
	return matchesQuery(q, []string{n.Title, n.Content}, n.Tags)
}

func taskMatches(t models.Task, q string) bool {
	return matchesQuery(q, []string{t.Title, t.Description}, t.Tags)
}
