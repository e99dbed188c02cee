package server

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/wagnerlima/knowledgeflow/internal/ai"
	"github.com/wagnerlima/knowledgeflow/internal/storage"
	"github.com/wagnerlima/knowledgeflow/internal/tools"
)

// Version is reported to MCP clients.
const Version = "0.3.0"

// Options tunes the server. The zero value serves the store without AI tools.
type Options struct {
	// Agent enables summarize_note, summarize_task and generate_title.
	Agent    *ai.Agent
	TreeMode storage.TreeMode
	Log      *zap.Logger
}

// New creates a fully configured MCP server with all tools registered.
func New(store storage.Store, opts Options) *mcp.Server {
	if opts.TreeMode == "" {
		opts.TreeMode = storage.TreeRecursive
	}
	kt := &tools.KnowledgeTools{Store: store, Log: opts.Log}
	gt := &tools.GraphTools{Store: store, TreeMode: opts.TreeMode}

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "knowledgeflow",
		Version: Version,
	}, nil)

	// Note tools
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "create_note",
		Description: "Create a note; set auto_link to link it to notes named by [[Title]] markers",
	}, kt.CreateNote)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_note",
		Description: "Get a note by id",
	}, kt.GetNote)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_notes",
		Description: "List notes, optionally filtered by tag or category",
	}, kt.ListNotes)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "update_note",
		Description: "Update the given fields of a note",
	}, kt.UpdateNote)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "delete_note",
		Description: "Delete a note together with its links",
	}, kt.DeleteNote)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "search_notes",
		Description: "Case-insensitive search over note titles, content and tags",
	}, kt.SearchNotes)

	// Task tools
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "create_task",
		Description: "Create a task, optionally linked to an existing note",
	}, kt.CreateTask)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_task",
		Description: "Get a task by id",
	}, kt.GetTask)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_tasks",
		Description: "List tasks, optionally filtered by status, priority, tag or category",
	}, kt.ListTasks)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "update_task",
		Description: "Update the given fields of a task",
	}, kt.UpdateTask)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "complete_task",
		Description: "Mark a task completed",
	}, kt.CompleteTask)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "delete_task",
		Description: "Delete a task",
	}, kt.DeleteTask)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "search_tasks",
		Description: "Case-insensitive search over task titles, descriptions and tags",
	}, kt.SearchTasks)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "search_all",
		Description: "Search notes and tasks at once",
	}, kt.SearchAll)

	// Link tools
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "create_link",
		Description: "Link two items; linking an already linked pair returns the existing link",
	}, gt.CreateLink)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "delete_link",
		Description: "Remove the link between two items",
	}, gt.DeleteLink)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_links",
		Description: "List the raw links that start or end at an item",
	}, gt.GetLinks)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_note_links",
		Description: "List the items an item links to and the items linking to it",
	}, gt.GetNoteLinks)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "auto_link_note",
		Description: "Create links from a note to every note named by a [[Title]] marker in its content",
	}, gt.AutoLinkNote)

	// Category tools
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "create_category",
		Description: "Create a category; an existing name returns the existing category",
	}, gt.CreateCategory)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_categories",
		Description: "List categories by name, optionally only those usable for notes or tasks",
	}, gt.ListCategories)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "category_tree",
		Description: "Return categories arranged by parent",
	}, gt.CategoryTree)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "assign_category",
		Description: "Assign a note or task to a category, or clear its category",
	}, gt.AssignCategory)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "delete_category",
		Description: "Delete a category and clear it from notes and tasks",
	}, gt.DeleteCategory)

	if opts.Agent == nil {
		return srv
	}

	// AI tools
	at := &tools.AITools{Store: store, Agent: opts.Agent}

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "summarize_note",
		Description: "Summarize a note with the configured language model",
	}, at.SummarizeNote)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "summarize_task",
		Description: "Summarize a task with the configured language model",
	}, at.SummarizeTask)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "generate_title",
		Description: "Suggest a short title for a piece of text",
	}, at.GenerateTitle)

	return srv
}
