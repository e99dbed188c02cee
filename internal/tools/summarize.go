package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagnerlima/knowledgeflow/internal/ai"
	"github.com/wagnerlima/knowledgeflow/internal/storage"
)

// AITools holds references needed by the summarization tool handlers.
type AITools struct {
	Store storage.Store
	Agent *ai.Agent
}

// --- Input types ---

type SummarizeInput struct {
	ID       string `json:"id" jsonschema:"Id of the note or task to summarize"`
	MaxWords int    `json:"max_words,omitempty" jsonschema:"Approximate summary length in words"`
}

type GenerateTitleInput struct {
	Content  string `json:"content" jsonschema:"Text to derive a title from"`
	MaxWords int    `json:"max_words,omitempty" jsonschema:"Maximum title length in words (default 5)"`
}

// Summary is a generated summary of one item.
type Summary struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
}

// --- Handlers ---

func (t *AITools) SummarizeNote(ctx context.Context, _ *mcp.CallToolRequest, input SummarizeInput) (*mcp.CallToolResult, any, error) {
	n, err := t.Store.GetNote(ctx, input.ID)
	if err != nil {
		return failed("load note", err)
	}
	text, err := t.Agent.SummarizeNote(ctx, *n, input.MaxWords)
	if err != nil {
		return failed("summarize note", err)
	}
	return toolJSON(Summary{ID: n.ID, Summary: text})
}

func (t *AITools) SummarizeTask(ctx context.Context, _ *mcp.CallToolRequest, input SummarizeInput) (*mcp.CallToolResult, any, error) {
	task, err := t.Store.GetTask(ctx, input.ID)
	if err != nil {
		return failed("load task", err)
	}
	text, err := t.Agent.SummarizeTask(ctx, *task, input.MaxWords)
	if err != nil {
		return failed("summarize task", err)
	}
	return toolJSON(Summary{ID: task.ID, Summary: text})
}

func (t *AITools) GenerateTitle(ctx context.Context, _ *mcp.CallToolRequest, input GenerateTitleInput) (*mcp.CallToolResult, any, error) {
	title, err := t.Agent.GenerateTitle(ctx, input.Content, input.MaxWords)
	if err != nil {
		return failed("generate title", err)
	}
	return toolText(title), nil, nil
}
