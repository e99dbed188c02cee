package models

import "strings"

// NewNote carries the fields for creating a note.
type NewNote struct {
	Title   string
	Content string
	Tags    []string
}

// NotePatch lists the note fields an update may change. Nil fields are left alone.
type NotePatch struct {
	Title   *string
	Content *string
	Tags    *[]string
}

// NewTask carries the fields for creating a task. Zero Status and Priority
// fall back to pending and medium.
type NewTask struct {
	Title        string
	Description  string
	Status       Status
	Priority     Priority
	DueDate      *string
	Tags         []string
	LinkedNoteID *string
}

// TaskPatch lists the task fields an update may change. Nil fields are left alone;
// DueDate and LinkedNoteID pointing at an empty string clear the field.
type TaskPatch struct {
	Title        *string
	Description  *string
	Status       *Status
	Priority     *Priority
	DueDate      *string
	Tags         *[]string
	LinkedNoteID *string
}

// NewCategory carries the fields for creating a category.
type NewCategory struct {
	Name     string
	ParentID *string
	Type     CategoryType
}

// NoteFilter narrows ListNotes. Empty fields do not filter.
type NoteFilter struct {
	Tag        string
	CategoryID string
}

// Match reports whether n passes the filter.
func (f NoteFilter) Match(n Note) bool {
	if f.Tag != "" && !HasTag(n.Tags, f.Tag) {
		return false
	}
	if f.CategoryID != "" && (n.CategoryID == nil || *n.CategoryID != f.CategoryID) {
		return false
	}
	return true
}

// TaskFilter narrows ListTasks. Empty fields do not filter.
type TaskFilter struct {
	Status     Status
	Priority   Priority
	Tag        string
	CategoryID string
}

// ParseTaskFilter builds a filter from user-supplied strings, accepting the
// same status and priority spellings as task creation.
func ParseTaskFilter(status, priority, tag, categoryID string) (TaskFilter, error) {
	f := TaskFilter{Tag: tag, CategoryID: categoryID}
	if status != "" {
		st, err := ParseStatus(status)
		if err != nil {
			return f, err
		}
		f.Status = st
	}
	if priority != "" {
		pr, err := ParsePriority(priority)
		if err != nil {
			return f, err
		}
		f.Priority = pr
	}
	return f, nil
}

// Match reports whether t passes the filter.
func (f TaskFilter) Match(t Task) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.Tag != "" && !HasTag(t.Tags, f.Tag) {
		return false
	}
	if f.CategoryID != "" && (t.CategoryID == nil || *t.CategoryID != f.CategoryID) {
		return false
	}
	return true
}

// HasTag is an exact, case-sensitive membership test.
func HasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// NormalizeTags trims tags, drops empty ones and removes duplicates,
// keeping the first occurrence. The result is never nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
