package models

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// ParseStatus normalizes the spellings used by older data files
// ("in-progress", "done") to the canonical set.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return StatusPending, nil
	case "in_progress", "in-progress":
		return StatusInProgress, nil
	case "completed", "done":
		return StatusCompleted, nil
	}
	return "", fmt.Errorf("unknown status %q (want pending, in_progress or completed)", s)
}

// Priority ranks tasks.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority validates a priority name.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	}
	return "", fmt.Errorf("unknown priority %q (want low, medium or high)", s)
}

// CategoryType says which items a category applies to.
type CategoryType string

const (
	CategoryNote CategoryType = "note"
	CategoryTask CategoryType = "task"
	CategoryBoth CategoryType = "both"
)

// ParseCategoryType validates a category type name.
func ParseCategoryType(s string) (CategoryType, error) {
	switch c := CategoryType(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryNote, CategoryTask, CategoryBoth:
		return c, nil
	}
	return "", fmt.Errorf("unknown category type %q (want note, task or both)", s)
}

// Matches reports whether a category of type c is listed under filter f.
// An empty filter matches everything; "both" matches every filter.
func (c CategoryType) Matches(f CategoryType) bool {
	return f == "" || c == f || c == CategoryBoth
}
