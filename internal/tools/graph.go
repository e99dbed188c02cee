package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagnerlima/knowledgeflow/internal/models"
	"github.com/wagnerlima/knowledgeflow/internal/storage"
)

// GraphTools holds references needed by link and category tool handlers.
type GraphTools struct {
	Store    storage.Store
	TreeMode storage.TreeMode
}

// --- Input types ---

type CreateLinkInput struct {
	FromID   string `json:"from_id" jsonschema:"Id of the linking item"`
	ToID     string `json:"to_id" jsonschema:"Id of the linked item"`
	LinkType string `json:"link_type,omitempty" jsonschema:"Free-form link type (default reference)"`
}

type DeleteLinkInput struct {
	FromID string `json:"from_id" jsonschema:"Id of the linking item"`
	ToID   string `json:"to_id" jsonschema:"Id of the linked item"`
}

type CreateCategoryInput struct {
	Name     string  `json:"name" jsonschema:"Unique category name"`
	ParentID *string `json:"parent_id,omitempty" jsonschema:"Id of an existing parent category"`
	Type     string  `json:"type,omitempty" jsonschema:"note, task or both (default note)"`
}

type ListCategoriesInput struct {
	Type string `json:"type,omitempty" jsonschema:"Only categories usable for note or task; both-typed categories always match"`
}

type CategoryTreeInput struct {
	Type string `json:"type,omitempty" jsonschema:"Only categories usable for note or task"`
	Mode string `json:"mode,omitempty" jsonschema:"recursive (all depths) or flat (roots and direct children); defaults to the server setting"`
}

type AssignCategoryInput struct {
	ItemID     string `json:"item_id" jsonschema:"Id of the note or task"`
	ItemKind   string `json:"item_kind" jsonschema:"note or task"`
	CategoryID string `json:"category_id,omitempty" jsonschema:"Category id; empty clears the assignment"`
}

type DeleteCategoryInput struct {
	ID string `json:"id" jsonschema:"Id of the category to delete"`
}

// LinkResult reports whether CreateLink stored a new link or found an existing one.
type LinkResult struct {
	Link    *models.Link `json:"link"`
	Created bool         `json:"created"`
}

// NoteLinks is the one-hop neighbourhood of an item.
type NoteLinks struct {
	Forward   []models.LinkRef `json:"forward"`
	Backlinks []models.LinkRef `json:"backlinks"`
}

// CategoryResult reports whether CreateCategory stored a new category.
type CategoryResult struct {
	Category *models.Category `json:"category"`
	Created  bool             `json:"created"`
}

// --- Link handlers ---

func (t *GraphTools) CreateLink(ctx context.Context, _ *mcp.CallToolRequest, input CreateLinkInput) (*mcp.CallToolResult, any, error) {
	link, created, err := t.Store.CreateLink(ctx, input.FromID, input.ToID, input.LinkType)
	if err != nil {
		return failed("create link", err)
	}
	return toolJSON(LinkResult{Link: link, Created: created})
}

func (t *GraphTools) DeleteLink(ctx context.Context, _ *mcp.CallToolRequest, input DeleteLinkInput) (*mcp.CallToolResult, any, error) {
	ok, err := t.Store.DeleteLink(ctx, input.FromID, input.ToID)
	if err != nil {
		return failed("delete link", err)
	}
	if !ok {
		return toolError("No link from %q to %q.", input.FromID, input.ToID), nil, nil
	}
	return toolText(fmt.Sprintf("Deleted link %s -> %s.", input.FromID, input.ToID)), nil, nil
}

func (t *GraphTools) GetLinks(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, any, error) {
	links, err := t.Store.GetLinks(ctx, input.ID)
	if err != nil {
		return failed("get links", err)
	}
	return toolJSON(links)
}

func (t *GraphTools) GetNoteLinks(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, any, error) {
	res, err := Neighbours(ctx, t.Store, input.ID)
	if err != nil {
		return failed("get links", err)
	}
	return toolJSON(res)
}

// Neighbours collects forward links and backlinks of id.
func Neighbours(ctx context.Context, s storage.Store, id string) (*NoteLinks, error) {
	forward, err := s.ForwardLinks(ctx, id)
	if err != nil {
		return nil, err
	}
	back, err := s.Backlinks(ctx, id)
	if err != nil {
		return nil, err
	}
	return &NoteLinks{Forward: forward, Backlinks: back}, nil
}

func (t *GraphTools) AutoLinkNote(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, any, error) {
	n, err := t.Store.GetNote(ctx, input.ID)
	if err != nil {
		return failed("load note", err)
	}
	count, err := storage.AutoCreateLinks(ctx, t.Store, n.ID, n.Content)
	if err != nil {
		return failed("link note", err)
	}
	return toolText(fmt.Sprintf("Created %d links.", count)), nil, nil
}

// --- Category handlers ---

func (t *GraphTools) CreateCategory(ctx context.Context, _ *mcp.CallToolRequest, input CreateCategoryInput) (*mcp.CallToolResult, any, error) {
	cat, created, err := t.Store.CreateCategory(ctx, models.NewCategory{
		Name:     input.Name,
		ParentID: input.ParentID,
		Type:     models.CategoryType(input.Type),
	})
	if err != nil {
		return failed("create category", err)
	}
	return toolJSON(CategoryResult{Category: cat, Created: created})
}

func (t *GraphTools) ListCategories(ctx context.Context, _ *mcp.CallToolRequest, input ListCategoriesInput) (*mcp.CallToolResult, any, error) {
	typ, err := categoryFilter(input.Type)
	if err != nil {
		return toolError("Invalid type: %v", err), nil, nil
	}
	cats, err := t.Store.ListCategories(ctx, typ)
	if err != nil {
		return failed("list categories", err)
	}
	return toolJSON(cats)
}

func (t *GraphTools) CategoryTree(ctx context.Context, _ *mcp.CallToolRequest, input CategoryTreeInput) (*mcp.CallToolResult, any, error) {
	typ, err := categoryFilter(input.Type)
	if err != nil {
		return toolError("Invalid type: %v", err), nil, nil
	}
	mode := t.TreeMode
	if input.Mode != "" {
		if mode, err = storage.ParseTreeMode(input.Mode); err != nil {
			return toolError("Invalid mode: %v", err), nil, nil
		}
	}
	forest, err := storage.CategoryTree(ctx, t.Store, typ, mode)
	if err != nil {
		return failed("build category tree", err)
	}
	return toolJSON(forest)
}

func (t *GraphTools) AssignCategory(ctx context.Context, _ *mcp.CallToolRequest, input AssignCategoryInput) (*mcp.CallToolResult, any, error) {
	var category *string
	if input.CategoryID != "" {
		category = &input.CategoryID
	}
	var (
		ok  bool
		err error
	)
	switch input.ItemKind {
	case models.KindNote:
		ok, err = t.Store.AssignNoteCategory(ctx, input.ItemID, category)
	case models.KindTask:
		ok, err = t.Store.AssignTaskCategory(ctx, input.ItemID, category)
	default:
		return toolError("Invalid item_kind %q (want note or task).", input.ItemKind), nil, nil
	}
	if err != nil {
		return failed("assign category", err)
	}
	if !ok {
		return toolError("%s %q not found.", input.ItemKind, input.ItemID), nil, nil
	}
	if category == nil {
		return toolText(fmt.Sprintf("Cleared category of %s %s.", input.ItemKind, input.ItemID)), nil, nil
	}
	return toolText(fmt.Sprintf("Assigned %s %s to category %s.", input.ItemKind, input.ItemID, *category)), nil, nil
}

func (t *GraphTools) DeleteCategory(ctx context.Context, _ *mcp.CallToolRequest, input DeleteCategoryInput) (*mcp.CallToolResult, any, error) {
	ok, err := t.Store.DeleteCategory(ctx, input.ID)
	if err != nil {
		return failed("delete category", err)
	}
	if !ok {
		return toolError("Category %q not found.", input.ID), nil, nil
	}
	return toolText(fmt.Sprintf("Deleted category %s.", input.ID)), nil, nil
}

func categoryFilter(s string) (models.CategoryType, error) {
	if s == "" {
		return "", nil
	}
	return models.ParseCategoryType(s)
}
