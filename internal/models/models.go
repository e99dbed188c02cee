package models

import "time"

// Note is a titled piece of free-text content.
type Note struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Tags       []string  `json:"tags"`
	CategoryID *string   `json:"category_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Task is a status- and priority-tracked unit of work, optionally tied to one note.
type Task struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Status       Status     `json:"status"`
	Priority     Priority   `json:"priority"`
	DueDate      *string    `json:"due_date"`
	Tags         []string   `json:"tags"`
	CategoryID   *string    `json:"category_id"`
	LinkedNoteID *string    `json:"linked_note_id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	CompletedAt  *time.Time `json:"completed_at"`
}

// Link is a directed, typed edge between two items.
type Link struct {
	ID        string    `json:"id"`
	FromID    string    `json:"from_id"`
	ToID      string    `json:"to_id"`
	LinkType  string    `json:"link_type"`
	CreatedAt time.Time `json:"created_at"`
}

// LinkRef is the far end of a link as seen from one item.
// Missing is set when the referenced item no longer exists.
type LinkRef struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	LinkType string `json:"link_type"`
	Kind     string `json:"kind,omitempty"`
	Missing  bool   `json:"missing,omitempty"`
}

// Category groups notes and/or tasks, optionally under a parent category.
type Category struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	ParentID  *string      `json:"parent_id"`
	Type      CategoryType `json:"type"`
	CreatedAt time.Time    `json:"created_at"`
}

// CategoryNode is a category with its children in a category tree.
type CategoryNode struct {
	Category Category        `json:"category"`
	Children []*CategoryNode `json:"children"`
}

// SearchResults bundles matches across notes and tasks.
type SearchResults struct {
	Notes []Note `json:"notes"`
	Tasks []Task `json:"tasks"`
}

// Item kinds reported in LinkRef.Kind.
const (
	KindNote = "note"
	KindTask = "task"
)

// DefaultLinkType is used when a link is created without an explicit type.
const DefaultLinkType = "reference"
