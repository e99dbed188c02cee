package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/wagnerlima/knowledgeflow/internal/models"
	"github.com/wagnerlima/knowledgeflow/internal/storage"
)

// KnowledgeTools holds references needed by note, task and search tool handlers.
type KnowledgeTools struct {
	Store storage.Store
	Log   *zap.Logger
}

// --- Input types ---

type IDInput struct {
	ID string `json:"id" jsonschema:"Id of the note or task"`
}

type SearchInput struct {
	Query string `json:"query" jsonschema:"Case-insensitive text matched against titles, bodies and tags"`
}

type CreateNoteInput struct {
	Title    string   `json:"title" jsonschema:"Note title"`
	Content  string   `json:"content,omitempty" jsonschema:"Note body; [[Title]] markers can be turned into links"`
	Tags     []string `json:"tags,omitempty" jsonschema:"Tags for the note"`
	AutoLink bool     `json:"auto_link,omitempty" jsonschema:"Link to notes named by [[Title]] markers in the content"`
}

type ListNotesInput struct {
	Tag        string `json:"tag,omitempty" jsonschema:"Only notes carrying this exact tag"`
	CategoryID string `json:"category_id,omitempty" jsonschema:"Only notes in this category"`
}

type UpdateNoteInput struct {
	ID       string    `json:"id" jsonschema:"Id of the note to update"`
	Title    *string   `json:"title,omitempty" jsonschema:"New title"`
	Content  *string   `json:"content,omitempty" jsonschema:"New body"`
	Tags     *[]string `json:"tags,omitempty" jsonschema:"Replacement tag list"`
	AutoLink bool      `json:"auto_link,omitempty" jsonschema:"Link to notes named by [[Title]] markers in the new content"`
}

type CreateTaskInput struct {
	Title        string   `json:"title" jsonschema:"Task title"`
	Description  string   `json:"description,omitempty" jsonschema:"Task description"`
	Status       string   `json:"status,omitempty" jsonschema:"pending, in_progress or completed (default pending)"`
	Priority     string   `json:"priority,omitempty" jsonschema:"low, medium or high (default medium)"`
	DueDate      *string  `json:"due_date,omitempty" jsonschema:"Due date as YYYY-MM-DD"`
	Tags         []string `json:"tags,omitempty" jsonschema:"Tags for the task"`
	LinkedNoteID *string  `json:"linked_note_id,omitempty" jsonschema:"Id of an existing note this task belongs to"`
}

type ListTasksInput struct {
	Status     string `json:"status,omitempty" jsonschema:"Only tasks with this status"`
	Priority   string `json:"priority,omitempty" jsonschema:"Only tasks with this priority"`
	Tag        string `json:"tag,omitempty" jsonschema:"Only tasks carrying this exact tag"`
	CategoryID string `json:"category_id,omitempty" jsonschema:"Only tasks in this category"`
}

type UpdateTaskInput struct {
	ID           string    `json:"id" jsonschema:"Id of the task to update"`
	Title        *string   `json:"title,omitempty" jsonschema:"New title"`
	Description  *string   `json:"description,omitempty" jsonschema:"New description"`
	Status       *string   `json:"status,omitempty" jsonschema:"New status"`
	Priority     *string   `json:"priority,omitempty" jsonschema:"New priority"`
	DueDate      *string   `json:"due_date,omitempty" jsonschema:"New due date as YYYY-MM-DD; empty clears it"`
	Tags         *[]string `json:"tags,omitempty" jsonschema:"Replacement tag list"`
	LinkedNoteID *string   `json:"linked_note_id,omitempty" jsonschema:"New linked note id; empty clears it"`
}

// NoteResult is a note plus the number of links made from its [[Title]] markers.
type NoteResult struct {
	*models.Note
	LinksCreated int `json:"links_created,omitempty"`
}

// --- Note handlers ---

func (t *KnowledgeTools) autoLink(ctx context.Context, n *models.Note) (int, error) {
	count, err := storage.AutoCreateLinks(ctx, t.Store, n.ID, n.Content)
	if err != nil {
		return count, err
	}
	if count > 0 && t.Log != nil {
		t.Log.Debug("auto-linked note", zap.String("id", n.ID), zap.Int("links", count))
	}
	return count, nil
}

func (t *KnowledgeTools) CreateNote(ctx context.Context, _ *mcp.CallToolRequest, input CreateNoteInput) (*mcp.CallToolResult, any, error) {
	n, err := t.Store.CreateNote(ctx, models.NewNote{Title: input.Title, Content: input.Content, Tags: input.Tags})
	if err != nil {
		return failed("create note", err)
	}
	res := NoteResult{Note: n}
	if input.AutoLink {
		if res.LinksCreated, err = t.autoLink(ctx, n); err != nil {
			return failed("link note", err)
		}
	}
	return toolJSON(res)
}

func (t *KnowledgeTools) GetNote(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, any, error) {
	n, err := t.Store.GetNote(ctx, input.ID)
	if err != nil {
		return failed("get note", err)
	}
	return toolJSON(n)
}

func (t *KnowledgeTools) ListNotes(ctx context.Context, _ *mcp.CallToolRequest, input ListNotesInput) (*mcp.CallToolResult, any, error) {
	notes, err := t.Store.ListNotes(ctx, models.NoteFilter{Tag: input.Tag, CategoryID: input.CategoryID})
	if err != nil {
		return failed("list notes", err)
	}
	return toolJSON(notes)
}

func (t *KnowledgeTools) UpdateNote(ctx context.Context, _ *mcp.CallToolRequest, input UpdateNoteInput) (*mcp.CallToolResult, any, error) {
	n, err := t.Store.UpdateNote(ctx, input.ID, models.NotePatch{
		Title:   input.Title,
		Content: input.Content,
		Tags:    input.Tags,
	})
	if err != nil {
		return failed("update note", err)
	}
	res := NoteResult{Note: n}
	if input.AutoLink {
		if res.LinksCreated, err = t.autoLink(ctx, n); err != nil {
			return failed("link note", err)
		}
	}
	return toolJSON(res)
}

func (t *KnowledgeTools) DeleteNote(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, any, error) {
	ok, err := t.Store.DeleteNote(ctx, input.ID)
	if err != nil {
		return failed("delete note", err)
	}
	if !ok {
		return toolError("Note %q not found.", input.ID), nil, nil
	}
	return toolText(fmt.Sprintf("Deleted note %s.", input.ID)), nil, nil
}

func (t *KnowledgeTools) SearchNotes(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, any, error) {
	notes, err := t.Store.SearchNotes(ctx, input.Query)
	if err != nil {
		return failed("search notes", err)
	}
	return toolJSON(notes)
}

// --- Task handlers ---

func (t *KnowledgeTools) CreateTask(ctx context.Context, _ *mcp.CallToolRequest, input CreateTaskInput) (*mcp.CallToolResult, any, error) {
	task, err := t.Store.CreateTask(ctx, models.NewTask{
		Title:        input.Title,
		Description:  input.Description,
		Status:       models.Status(input.Status),
		Priority:     models.Priority(input.Priority),
		DueDate:      input.DueDate,
		Tags:         input.Tags,
		LinkedNoteID: input.LinkedNoteID,
	})
	if err != nil {
		return failed("create task", err)
	}
	return toolJSON(task)
}

func (t *KnowledgeTools) GetTask(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, any, error) {
	task, err := t.Store.GetTask(ctx, input.ID)
	if err != nil {
		return failed("get task", err)
	}
	return toolJSON(task)
}

func (t *KnowledgeTools) ListTasks(ctx context.Context, _ *mcp.CallToolRequest, input ListTasksInput) (*mcp.CallToolResult, any, error) {
	filter, err := models.ParseTaskFilter(input.Status, input.Priority, input.Tag, input.CategoryID)
	if err != nil {
		return toolError("Invalid filter: %v", err), nil, nil
	}
	tasks, err := t.Store.ListTasks(ctx, filter)
	if err != nil {
		return failed("list tasks", err)
	}
	return toolJSON(tasks)
}

func (t *KnowledgeTools) UpdateTask(ctx context.Context, _ *mcp.CallToolRequest, input UpdateTaskInput) (*mcp.CallToolResult, any, error) {
	p := models.TaskPatch{
		Title:        input.Title,
		Description:  input.Description,
		DueDate:      input.DueDate,
		Tags:         input.Tags,
		LinkedNoteID: input.LinkedNoteID,
	}
	if input.Status != nil {
		st := models.Status(*input.Status)
		p.Status = &st
	}
	if input.Priority != nil {
		pr := models.Priority(*input.Priority)
		p.Priority = &pr
	}
	task, err := t.Store.UpdateTask(ctx, input.ID, p)
	if err != nil {
		return failed("update task", err)
	}
	return toolJSON(task)
}

func (t *KnowledgeTools) CompleteTask(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, any, error) {
	ok, err := t.Store.CompleteTask(ctx, input.ID)
	if err != nil {
		return failed("complete task", err)
	}
	if !ok {
		return toolError("Task %q not found.", input.ID), nil, nil
	}
	return toolText(fmt.Sprintf("Completed task %s.", input.ID)), nil, nil
}

func (t *KnowledgeTools) DeleteTask(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, any, error) {
	ok, err := t.Store.DeleteTask(ctx, input.ID)
	if err != nil {
		return failed("delete task", err)
	}
	if !ok {
		return toolError("Task %q not found.", input.ID), nil, nil
	}
	return toolText(fmt.Sprintf("Deleted task %s.", input.ID)), nil, nil
}

func (t *KnowledgeTools) SearchTasks(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, any, error) {
	tasks, err := t.Store.SearchTasks(ctx, input.Query)
	if err != nil {
		return failed("search tasks", err)
	}
	return toolJSON(tasks)
}

func (t *KnowledgeTools) SearchAll(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, any, error) {
	res, err := storage.SearchAll(ctx, t.Store, input.Query)
	if err != nil {
		return failed("search", err)
	}
	return toolJSON(res)
}
